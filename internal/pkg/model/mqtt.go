package model

// RegisterDevice groups every entity of one helper under a single Home Assistant device.
type RegisterDevice struct {
	Name         string   `json:"name"`
	Identifiers  []string `json:"identifiers"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer"`
}

// RegisterMessage is the MQTT discovery payload of a binary_sensor or button entity.
type RegisterMessage struct {
	Tilda               string         `json:"~"`
	Name                string         `json:"name"`
	ID                  string         `json:"unique_id"`
	ObjectID            string         `json:"object_id"`
	Icon                string         `json:"icon,omitempty"`
	StateTopic          string         `json:"state_topic,omitempty"`
	JSONAttributesTopic string         `json:"json_attributes_topic,omitempty"`
	CommandTopic        string         `json:"command_topic,omitempty"`
	PayloadOn           string         `json:"payload_on,omitempty"`
	PayloadOff          string         `json:"payload_off,omitempty"`
	PayloadPress        string         `json:"payload_press,omitempty"`
	AvailabilityTopic   string         `json:"availability_topic,omitempty"`
	Device              RegisterDevice `json:"device"`
}

const (
	PayloadOn        = "ON"
	PayloadOff       = "OFF"
	PayloadPress     = "PRESS"
	PayloadOnline    = "online"
	PayloadOffline   = "offline"
	PayloadStateNone = "None"
)
