package cmd

import (
	"context"
	"sync"
	"time"

	"github.com/anicoll/harmony-helper/internal/pkg/model"
)

type MockHomeAssistant struct {
	ConnectFunc               func(ctx context.Context) error
	DoneFunc                  func() <-chan error
	GetStatesFunc             func(ctx context.Context) ([]model.State, error)
	SubscribeStateChangesFunc func(ctx context.Context, handler func(model.StateChangedEvent)) error
	CallServiceFunc           func(ctx context.Context, call model.ServiceCall) error
	PingFunc                  func(ctx context.Context) error

	mu     sync.Mutex
	closed int
}

func (m *MockHomeAssistant) Connect(ctx context.Context) error {
	return m.ConnectFunc(ctx)
}

func (m *MockHomeAssistant) Done() <-chan error {
	if m.DoneFunc == nil {
		return nil
	}
	return m.DoneFunc()
}

func (m *MockHomeAssistant) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *MockHomeAssistant) GetStates(ctx context.Context) ([]model.State, error) {
	if m.GetStatesFunc == nil {
		return nil, nil
	}
	return m.GetStatesFunc(ctx)
}

func (m *MockHomeAssistant) SubscribeStateChanges(ctx context.Context, handler func(model.StateChangedEvent)) error {
	if m.SubscribeStateChangesFunc == nil {
		return nil
	}
	return m.SubscribeStateChangesFunc(ctx, handler)
}

func (m *MockHomeAssistant) CallService(ctx context.Context, call model.ServiceCall) error {
	if m.CallServiceFunc == nil {
		return nil
	}
	return m.CallServiceFunc(ctx, call)
}

func (m *MockHomeAssistant) Ping(ctx context.Context) error {
	if m.PingFunc == nil {
		return nil
	}
	return m.PingFunc(ctx)
}

type MockMqttService struct {
	ConnectFunc           func() error
	SubscribeCommandsFunc func(handler func(objectID string)) error

	mu         sync.Mutex
	registered []model.SensorSnapshot
	written    []model.SensorSnapshot
	online     int
	closed     int
}

func (m *MockMqttService) RegisterSensor(_ context.Context, sensor model.SensorSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered = append(m.registered, sensor)
	return nil
}

func (m *MockMqttService) Write(_ context.Context, data []model.SensorSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, data...)
	return nil
}

func (m *MockMqttService) Connect() error {
	if m.ConnectFunc == nil {
		return nil
	}
	return m.ConnectFunc()
}

func (m *MockMqttService) Online() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online++
	return nil
}

func (m *MockMqttService) SubscribeCommands(handler func(objectID string)) error {
	if m.SubscribeCommandsFunc == nil {
		return nil
	}
	return m.SubscribeCommandsFunc(handler)
}

func (m *MockMqttService) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *MockMqttService) writtenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.written)
}

func (m *MockMqttService) counts() (registered, online, closed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.registered), m.online, m.closed
}

type MockHistoryStore struct {
	CleanupFunc func(ctx context.Context, retention time.Duration) (int64, error)
}

func (m *MockHistoryStore) RegisterSensor(context.Context, model.SensorSnapshot) error { return nil }

func (m *MockHistoryStore) Write(context.Context, []model.SensorSnapshot) error { return nil }

func (m *MockHistoryStore) GetHistory(context.Context, string, *time.Time, *time.Time) ([]model.HistoryRecord, error) {
	return nil, nil
}

func (m *MockHistoryStore) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	return m.CleanupFunc(ctx, retention)
}
