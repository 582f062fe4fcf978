package mqtt

import (
	"sync"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
)

type mockToken struct {
	err error
}

func (t *mockToken) Wait() bool                     { return true }
func (t *mockToken) WaitTimeout(time.Duration) bool { return true }
func (t *mockToken) Error() error                   { return t.err }
func (t *mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	retained bool
	payload  string
}

// MockClient records publishes and subscriptions. Methods the service does not use panic.
type MockClient struct {
	paho_mqtt.Client

	PublishErr error

	mu            sync.Mutex
	published     []published
	subscriptions map[string]paho_mqtt.MessageHandler
	disconnected  bool
}

func (m *MockClient) Connect() paho_mqtt.Token { return &mockToken{} }

func (m *MockClient) Disconnect(uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnected = true
}

func (m *MockClient) Publish(topic string, _ byte, retained bool, payload interface{}) paho_mqtt.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	var body string
	switch p := payload.(type) {
	case []byte:
		body = string(p)
	case string:
		body = p
	}
	m.published = append(m.published, published{topic: topic, retained: retained, payload: body})
	return &mockToken{err: m.PublishErr}
}

func (m *MockClient) Subscribe(topic string, _ byte, callback paho_mqtt.MessageHandler) paho_mqtt.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscriptions == nil {
		m.subscriptions = make(map[string]paho_mqtt.MessageHandler)
	}
	m.subscriptions[topic] = callback
	return &mockToken{}
}

func (m *MockClient) byTopic(topic string) []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []published{}
	for _, p := range m.published {
		if p.topic == topic {
			out = append(out, p)
		}
	}
	return out
}

type mockMessage struct {
	paho_mqtt.Message
	topic   string
	payload []byte
}

func (m *mockMessage) Topic() string   { return m.topic }
func (m *mockMessage) Payload() []byte { return m.payload }
