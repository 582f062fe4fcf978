package model

import (
	"maps"
	"time"
)

type SensorState string

const (
	SensorUnknown SensorState = "unknown"
	SensorOn      SensorState = "on"
	SensorOff     SensorState = "off"
)

func (s SensorState) String() string {
	return string(s)
}

// SensorSnapshot is a point-in-time copy of a binary sensor.
type SensorSnapshot struct {
	UniqueID   string            `json:"unique_id"`
	ObjectID   string            `json:"object_id"`
	Helper     string            `json:"helper"`
	Command    string            `json:"command"`
	Source     string            `json:"source"`
	Name       string            `json:"name"`
	Icon       string            `json:"icon"`
	State      SensorState       `json:"state"`
	Activity   string            `json:"activity"`
	Attributes map[string]string `json:"attributes"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Equal ignores UpdatedAt.
func (s SensorSnapshot) Equal(o SensorSnapshot) bool {
	return s.UniqueID == o.UniqueID &&
		s.State == o.State &&
		s.Activity == o.Activity &&
		s.PresentationEqual(o) &&
		maps.Equal(s.Attributes, o.Attributes)
}

// PresentationEqual reports whether name and icon match.
func (s SensorSnapshot) PresentationEqual(o SensorSnapshot) bool {
	return s.Name == o.Name && s.Icon == o.Icon
}

// HistoryRecord is one stored state transition.
type HistoryRecord struct {
	ID            int64       `json:"id"`
	TimeStamp     time.Time   `json:"timestamp"`
	UniqueID      string      `json:"unique_id"`
	Helper        string      `json:"helper"`
	State         SensorState `json:"state"`
	Activity      string      `json:"activity"`
	Device        string      `json:"device"`
	DeviceCommand string      `json:"device_command"`
}
