package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/anicoll/harmony-helper/internal/pkg/model"
)

const (
	componentBinarySensor = "binary_sensor"
	componentButton       = "button"
	sendCommandSuffix     = "send_command"
)

func (s *service) entityTopic(objectID string) string {
	return fmt.Sprintf("%s/%s", s.baseTopic, objectID)
}

func (s *service) configTopic(component, objectID string) string {
	return fmt.Sprintf("%s/%s/%s/config", s.discoveryPrefix, component, objectID)
}

func (s *service) commandTopic(objectID string) string {
	return fmt.Sprintf("%s/%s", s.entityTopic(objectID), sendCommandSuffix)
}

// RegisterSensor publishes the discovery configs of the binary sensor and its send_command button.
func (s *service) RegisterSensor(_ context.Context, sensor model.SensorSnapshot) error {
	if err := s.announce(sensor); err != nil {
		return err
	}
	s.mu.Lock()
	s.configured[sensor.UniqueID] = sensor
	s.mu.Unlock()
	return nil
}

func (s *service) announce(sensor model.SensorSnapshot) error {
	for component, msg := range map[string]model.RegisterMessage{
		componentBinarySensor: s.binarySensorRegisterMsg(sensor),
		componentButton:       s.buttonRegisterMsg(sensor),
	} {
		payload, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		if err := s.publish(s.configTopic(component, sensor.ObjectID), true, payload); err != nil {
			return err
		}
	}
	return nil
}

// Write publishes state and attributes. A changed name or icon re-publishes the discovery config first.
func (s *service) Write(ctx context.Context, data []model.SensorSnapshot) error {
	for _, d := range data {
		if err := s.PublishData(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) PublishData(ctx context.Context, sensor model.SensorSnapshot) error {
	s.mu.Lock()
	announced, ok := s.configured[sensor.UniqueID]
	s.mu.Unlock()
	if !ok || !announced.PresentationEqual(sensor) {
		if err := s.RegisterSensor(ctx, sensor); err != nil {
			return err
		}
	}

	attributes, err := json.Marshal(sensor.Attributes)
	if err != nil {
		return err
	}
	base := s.entityTopic(sensor.ObjectID)
	if err := s.publish(base+"/attributes", true, attributes); err != nil {
		return err
	}
	return s.publish(base+"/state", true, []byte(statePayload(sensor.State)))
}

// SubscribeCommands calls handler with the object id of every pressed send_command button.
func (s *service) SubscribeCommands(handler func(objectID string)) error {
	topic := fmt.Sprintf("%s/+/%s", s.baseTopic, sendCommandSuffix)
	token := s.client.Subscribe(topic, qos, func(_ paho_mqtt.Client, msg paho_mqtt.Message) {
		objectID, ok := s.objectIDFromCommandTopic(msg.Topic())
		if !ok {
			s.logger.Warn("unexpected command topic", zap.String("topic", msg.Topic()))
			return
		}
		if payload := string(msg.Payload()); payload != model.PayloadPress {
			s.logger.Warn("ignoring command payload", zap.String("topic", msg.Topic()), zap.String("payload", payload))
			return
		}
		go handler(objectID)
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: subscribe %s", ErrPublishTimeout, topic)
	}
	return token.Error()
}

func (s *service) objectIDFromCommandTopic(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, s.baseTopic+"/")
	if !ok {
		return "", false
	}
	objectID, ok := strings.CutSuffix(rest, "/"+sendCommandSuffix)
	if !ok || objectID == "" || strings.Contains(objectID, "/") {
		return "", false
	}
	return objectID, true
}

func statePayload(state model.SensorState) string {
	switch state {
	case model.SensorOn:
		return model.PayloadOn
	case model.SensorOff:
		return model.PayloadOff
	default:
		return model.PayloadStateNone
	}
}

func (s *service) registerDevice(sensor model.SensorSnapshot) model.RegisterDevice {
	return model.RegisterDevice{
		Name:         fmt.Sprintf("Harmony Helper %s", sensor.Helper),
		Identifiers:  []string{fmt.Sprintf("%s_%s", s.baseTopic, sensor.Helper)},
		Model:        sensor.Source,
		Manufacturer: "harmony-helper",
	}
}

func (s *service) binarySensorRegisterMsg(sensor model.SensorSnapshot) model.RegisterMessage {
	return model.RegisterMessage{
		Tilda:               s.entityTopic(sensor.ObjectID),
		Name:                sensor.Name,
		ID:                  sensor.UniqueID,
		ObjectID:            sensor.ObjectID,
		Icon:                sensor.Icon,
		StateTopic:          "~/state",
		JSONAttributesTopic: "~/attributes",
		PayloadOn:           model.PayloadOn,
		PayloadOff:          model.PayloadOff,
		AvailabilityTopic:   AvailabilityTopic(s.baseTopic),
		Device:              s.registerDevice(sensor),
	}
}

func (s *service) buttonRegisterMsg(sensor model.SensorSnapshot) model.RegisterMessage {
	return model.RegisterMessage{
		Tilda:             s.entityTopic(sensor.ObjectID),
		Name:              fmt.Sprintf("%s send command", sensor.Name),
		ID:                fmt.Sprintf("%s_%s", sensor.UniqueID, sendCommandSuffix),
		ObjectID:          fmt.Sprintf("%s_%s", sensor.ObjectID, sendCommandSuffix),
		Icon:              sensor.Icon,
		CommandTopic:      "~/" + sendCommandSuffix,
		PayloadPress:      model.PayloadPress,
		AvailabilityTopic: AvailabilityTopic(s.baseTopic),
		Device:            s.registerDevice(sensor),
	}
}
