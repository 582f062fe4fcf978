package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/harmony-helper/internal/pkg/helper"
	"github.com/anicoll/harmony-helper/internal/pkg/model"
	"github.com/anicoll/harmony-helper/internal/pkg/sensor"
)

var ErrUnknownEntity = errors.New("unknown entity")

type homeAssistant interface {
	GetStates(ctx context.Context) ([]model.State, error)
	SubscribeStateChanges(ctx context.Context, handler func(model.StateChangedEvent)) error
	CallService(ctx context.Context, call model.ServiceCall) error
}

type publisher interface {
	RegisterSensor(ctx context.Context, sensor model.SensorSnapshot) error
	Publish(ctx context.Context, sensors ...model.SensorSnapshot) error
}

// Bridge owns one binary sensor per helper command and keeps them in step with their source remotes.
type Bridge struct {
	ha        homeAssistant
	publisher publisher
	logger    *zap.Logger

	sensors  []*sensor.BinarySensor
	byID     map[string]*sensor.BinarySensor
	bySource map[string][]*sensor.BinarySensor

	// mu serializes state application; lastUpdated holds the newest applied state per source.
	mu          sync.Mutex
	lastUpdated map[string]time.Time
}

func New(helpers []*helper.Helper, ha homeAssistant, pub publisher) *Bridge {
	b := &Bridge{
		ha:          ha,
		publisher:   pub,
		logger:      zap.L(),
		byID:        make(map[string]*sensor.BinarySensor),
		bySource:    make(map[string][]*sensor.BinarySensor),
		lastUpdated: make(map[string]time.Time),
	}
	for _, h := range helpers {
		for _, command := range h.Commands() {
			s := sensor.New(h.Name, h.Source, command)
			if other, ok := b.byID[s.ObjectID()]; ok {
				b.logger.Error("object id already in use, skipping sensor",
					zap.String("sensor", s.UniqueID()),
					zap.String("object", s.ObjectID()),
					zap.String("existing", other.UniqueID()),
				)
				continue
			}
			b.sensors = append(b.sensors, s)
			b.byID[s.UniqueID()] = s
			b.byID[s.ObjectID()] = s
			b.bySource[h.Source] = append(b.bySource[h.Source], s)
		}
	}
	return b
}

// Register announces every sensor to the publishers.
func (b *Bridge) Register(ctx context.Context) error {
	for _, s := range b.sensors {
		if err := b.publisher.RegisterSensor(ctx, s.Snapshot()); err != nil {
			return fmt.Errorf("registering %s: %w", s.UniqueID(), err)
		}
	}
	return nil
}

// Start subscribes to state changes and then seeds the sensors from the current states.
// It must be called after every Home Assistant (re)connect.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.ha.SubscribeStateChanges(ctx, func(e model.StateChangedEvent) {
		b.HandleStateChanged(ctx, e)
	}); err != nil {
		return fmt.Errorf("subscribing to state changes: %w", err)
	}

	states, err := b.ha.GetStates(ctx)
	if err != nil {
		return fmt.Errorf("fetching states: %w", err)
	}
	for i := range states {
		if _, ok := b.bySource[states[i].EntityID]; !ok {
			continue
		}
		b.HandleStateChanged(ctx, model.StateChangedEvent{EntityID: states[i].EntityID, NewState: &states[i]})
	}
	for source := range b.bySource {
		if !lo.ContainsBy(states, func(s model.State) bool { return s.EntityID == source }) {
			b.logger.Warn("source entity not found", zap.String("source", source))
		}
	}
	return nil
}

// HandleStateChanged updates the sensors fed by e.EntityID and publishes those that changed.
// States not newer than the last one applied for the source are dropped.
func (b *Bridge) HandleStateChanged(ctx context.Context, e model.StateChangedEvent) {
	sensors, ok := b.bySource[e.EntityID]
	if !ok || e.NewState == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if ts := e.NewState.LastUpdated; !ts.IsZero() {
		if last, seen := b.lastUpdated[e.EntityID]; seen && !ts.After(last) {
			b.logger.Debug("dropping stale state",
				zap.String("source", e.EntityID),
				zap.Time("last_updated", ts),
				zap.Time("applied", last),
			)
			return
		}
		b.lastUpdated[e.EntityID] = ts
	}
	changed := make([]model.SensorSnapshot, 0, len(sensors))
	for _, s := range sensors {
		if s.HandleStateChange(e.NewState) {
			changed = append(changed, s.Snapshot())
		}
	}
	if len(changed) == 0 {
		return
	}
	if err := b.publisher.Publish(ctx, changed...); err != nil {
		b.logger.Error("failed to publish sensors", zap.Error(err), zap.String("source", e.EntityID))
	}
}

// SendCommand replays the linked command of one sensor, addressed by unique id or object id.
func (b *Bridge) SendCommand(ctx context.Context, id string) error {
	s, ok := b.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	return s.SendCommand(ctx, b.ha)
}

// SendCommands replays the commands of several sensors, one after the other.
func (b *Bridge) SendCommands(ctx context.Context, ids []string) error {
	var errs []error
	for _, id := range ids {
		if err := b.SendCommand(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bridge) Sensors() []model.SensorSnapshot {
	out := make([]model.SensorSnapshot, 0, len(b.sensors))
	for _, s := range b.sensors {
		out = append(out, s.Snapshot())
	}
	return out
}

func (b *Bridge) Sensor(id string) (model.SensorSnapshot, bool) {
	s, ok := b.byID[id]
	if !ok {
		return model.SensorSnapshot{}, false
	}
	return s.Snapshot(), true
}
