package cmd

import (
	"context"
	"time"

	"github.com/anicoll/harmony-helper/internal/pkg/model"
	"github.com/anicoll/harmony-helper/internal/pkg/publisher"
)

// HomeAssistant defines what run expects from the websocket client.
type HomeAssistant interface {
	Connect(ctx context.Context) error
	Done() <-chan error
	Close() error
	GetStates(ctx context.Context) ([]model.State, error)
	SubscribeStateChanges(ctx context.Context, handler func(model.StateChangedEvent)) error
	CallService(ctx context.Context, call model.ServiceCall) error
	Ping(ctx context.Context) error
}

// MqttService is the discovery publisher plus its broker lifecycle.
type MqttService interface {
	publisher.Publisher
	Connect() error
	Online() error
	SubscribeCommands(handler func(objectID string)) error
	Close() error
}

// HistoryStore is the optional state history.
type HistoryStore interface {
	publisher.Publisher
	GetHistory(ctx context.Context, uniqueID string, from, to *time.Time) ([]model.HistoryRecord, error)
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

// Dependencies are the external services run wires together. Everything but HomeAssistant is optional.
type Dependencies struct {
	HomeAssistant HomeAssistant
	Mqtt          MqttService
	// MqttConnected receives a value after every broker (re)connect.
	MqttConnected <-chan struct{}
	History       HistoryStore
	Influx        publisher.Publisher
}
