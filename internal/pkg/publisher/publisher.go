package publisher

import (
	"context"
	"errors"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/anicoll/harmony-helper/internal/pkg/model"
)

var ErrAlreadyRegistered = errors.New("publisher already registered")

type Publisher interface {
	// RegisterSensor announces a sensor before its first state is written.
	RegisterSensor(ctx context.Context, sensor model.SensorSnapshot) error
	// Write publishes sensor states.
	Write(ctx context.Context, data []model.SensorSnapshot) error
}

// Registry fans sensor updates out to every registered publisher.
type Registry struct {
	mu         sync.RWMutex
	publishers map[string]Publisher
	sensors    sync.Map
	logger     *zap.Logger
}

func NewRegistry() *Registry {
	return &Registry{
		publishers: make(map[string]Publisher),
		logger:     zap.L(),
	}
}

func (r *Registry) Register(name string, p Publisher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.publishers[name]; ok {
		return ErrAlreadyRegistered
	}
	r.publishers[name] = p
	return nil
}

// Names returns the registered publisher names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.publishers))
	for name := range r.publishers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *Registry) RegisterSensor(ctx context.Context, sensor model.SensorSnapshot) error {
	for name, p := range r.snapshot() {
		if err := p.RegisterSensor(ctx, sensor); err != nil {
			r.logger.Error("failed to register sensor", zap.Error(err), zap.String("publisher", name), zap.String("sensor", sensor.UniqueID))
			continue
		}
		r.logger.Debug("registered sensor", zap.String("sensor", sensor.UniqueID), zap.String("publisher", name))
	}
	return nil
}

// Publish writes the snapshots that differ from what was last published. Publisher errors are logged.
func (r *Registry) Publish(ctx context.Context, sensors ...model.SensorSnapshot) error {
	data := make([]model.SensorSnapshot, 0, len(sensors))
	for _, s := range sensors {
		if r.shouldUpdate(s) {
			data = append(data, s)
		}
	}
	if len(data) == 0 {
		return nil
	}
	for name, p := range r.snapshot() {
		if err := p.Write(ctx, data); err != nil {
			r.logger.Error("failed to publish data", zap.Error(err), zap.String("publisher", name))
			continue
		}
		r.logger.Debug("updated sensors", zap.Int("count", len(data)), zap.String("publisher", name))
	}
	return nil
}

func (r *Registry) snapshot() map[string]Publisher {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Publisher, len(r.publishers))
	for k, v := range r.publishers {
		out[k] = v
	}
	return out
}

func (r *Registry) shouldUpdate(s model.SensorSnapshot) bool {
	old, exists := r.sensors.Load(s.UniqueID)
	if exists && old.(model.SensorSnapshot).Equal(s) {
		return false
	}
	r.logger.Info("sensor changed", zap.String("sensor", s.UniqueID), zap.String("state", s.State.String()), zap.String("activity", s.Activity))
	r.sensors.Store(s.UniqueID, s)
	return true
}
