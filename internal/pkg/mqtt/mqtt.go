package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/anicoll/harmony-helper/internal/pkg/config"
	"github.com/anicoll/harmony-helper/internal/pkg/model"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 10 * time.Second
	qos            = 1
)

var (
	ErrConnectTimeout = errors.New("unable to connect in time")
	ErrPublishTimeout = errors.New("mqtt: publish timed out")
)

type service struct {
	client          paho_mqtt.Client
	discoveryPrefix string
	baseTopic       string
	logger          *zap.Logger

	mu         sync.Mutex
	configured map[string]model.SensorSnapshot
}

func New(client paho_mqtt.Client, cfg config.MqttConfig) *service {
	return &service{
		client:          client,
		discoveryPrefix: cfg.DiscoveryPrefix,
		baseTopic:       cfg.BaseTopic,
		logger:          zap.L(),
		configured:      make(map[string]model.SensorSnapshot),
	}
}

// NewClientOptions builds broker options with an "offline" last will on the availability topic.
// onConnect runs after every (re)connect.
func NewClientOptions(cfg config.MqttConfig, onConnect func(paho_mqtt.Client)) *paho_mqtt.ClientOptions {
	opts := paho_mqtt.NewClientOptions().
		AddBroker(cfg.Host).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetOrderMatters(false).
		SetWill(AvailabilityTopic(cfg.BaseTopic), model.PayloadOffline, qos, true)
	opts.SetOnConnectHandler(func(c paho_mqtt.Client) {
		zap.L().Info("connected to mqtt broker", zap.String("broker", cfg.Host))
		if onConnect != nil {
			onConnect(c)
		}
	})
	opts.SetConnectionLostHandler(func(_ paho_mqtt.Client, err error) {
		zap.L().Warn("mqtt connection lost", zap.Error(err))
	})
	return opts
}

func (s *service) Connect() error {
	token := s.client.Connect()
	res := token.WaitTimeout(connectTimeout)
	if err := token.Error(); err != nil {
		return err
	}
	if res {
		return nil
	}
	return ErrConnectTimeout
}

// Online marks the bridge available. Called on every connect.
func (s *service) Online() error {
	return s.publish(AvailabilityTopic(s.baseTopic), true, []byte(model.PayloadOnline))
}

// Close marks the bridge unavailable and disconnects.
func (s *service) Close() error {
	err := s.publish(AvailabilityTopic(s.baseTopic), true, []byte(model.PayloadOffline))
	s.client.Disconnect(250)
	return err
}

func (s *service) publish(topic string, retained bool, payload []byte) error {
	token := s.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: %s", ErrPublishTimeout, topic)
	}
	return token.Error()
}

func AvailabilityTopic(baseTopic string) string {
	return fmt.Sprintf("%s/status", baseTopic)
}
