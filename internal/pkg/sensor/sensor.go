package sensor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/harmony-helper/internal/pkg/config"
	"github.com/anicoll/harmony-helper/internal/pkg/helper"
	"github.com/anicoll/harmony-helper/internal/pkg/model"
)

type serviceCaller interface {
	CallService(ctx context.Context, call model.ServiceCall) error
}

// BinarySensor is on while the source remote runs an activity the command is linked to.
// After the activity changes to an unlinked one the sensor turns off but keeps the last link,
// so its name, icon and send_command still refer to it.
type BinarySensor struct {
	uniqueID string
	objectID string
	helper   string
	source   string
	name     string
	command  *helper.Command

	mu        sync.RWMutex
	state     model.SensorState
	link      *helper.Link
	activity  string
	updatedAt time.Time
}

func New(helperName, source string, command *helper.Command) *BinarySensor {
	uniqueID := fmt.Sprintf("%s_%s", helperName, command.Command())
	return &BinarySensor{
		uniqueID:  uniqueID,
		objectID:  config.Slugify(uniqueID),
		helper:    helperName,
		source:    source,
		name:      fmt.Sprintf("%s %s", source, command.Command()),
		command:   command,
		state:     model.SensorUnknown,
		updatedAt: time.Now(),
	}
}

func (s *BinarySensor) UniqueID() string {
	return s.uniqueID
}

// ObjectID is UniqueID made safe for MQTT topics and entity ids.
func (s *BinarySensor) ObjectID() string {
	return s.objectID
}

func (s *BinarySensor) Source() string {
	return s.source
}

func (s *BinarySensor) Helper() string {
	return s.helper
}

func (s *BinarySensor) Command() *helper.Command {
	return s.command
}

// HandleStateChange applies a new state of the source entity and reports whether the sensor changed.
// A nil state means the source was removed and is ignored.
func (s *BinarySensor) HandleStateChange(newState *model.State) bool {
	if newState == nil {
		return false
	}
	activity := newState.StringAttribute(model.AttrCurrentActivity, "")

	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.snapshotLocked()

	s.activity = activity
	if link, ok := s.command.LinkFor(activity); ok {
		s.link = link
		s.state = model.SensorOn
	} else {
		s.state = model.SensorOff
	}

	after := s.snapshotLocked()
	if before.Equal(after) {
		return false
	}
	s.updatedAt = time.Now()
	return true
}

func (s *BinarySensor) State() model.SensorState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *BinarySensor) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nameLocked()
}

func (s *BinarySensor) nameLocked() string {
	if s.link != nil {
		return s.link.Name()
	}
	return s.name
}

func (s *BinarySensor) Icon() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.iconLocked()
}

func (s *BinarySensor) iconLocked() string {
	if s.link != nil {
		return s.link.Icon()
	}
	return helper.DefaultIcon
}

func (s *BinarySensor) Attributes() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attributesLocked()
}

func (s *BinarySensor) attributesLocked() map[string]string {
	attrs := map[string]string{
		model.AttrSource: s.source,
	}
	if s.link != nil {
		attrs[model.AttrCommand] = s.link.DeviceCommand()
		attrs[model.AttrDevice] = s.link.Device()
	}
	return attrs
}

func (s *BinarySensor) Snapshot() model.SensorSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *BinarySensor) snapshotLocked() model.SensorSnapshot {
	return model.SensorSnapshot{
		UniqueID:   s.uniqueID,
		ObjectID:   s.objectID,
		Helper:     s.helper,
		Command:    s.command.Command(),
		Source:     s.source,
		Name:       s.nameLocked(),
		Icon:       s.iconLocked(),
		State:      s.state,
		Activity:   s.activity,
		Attributes: s.attributesLocked(),
		UpdatedAt:  s.updatedAt,
	}
}

// ServiceCall returns the remote.send_command call for the current link, if there is one.
func (s *BinarySensor) ServiceCall() (model.ServiceCall, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.link == nil {
		return model.ServiceCall{}, false
	}
	return model.ServiceCall{
		Domain:  model.RemoteDomain,
		Service: model.ServiceSendCommand,
		Data: map[string]any{
			model.AttrDevice:  s.link.Device(),
			model.AttrCommand: s.link.DeviceCommand(),
		},
		Target: model.ServiceTarget{EntityID: []string{s.source}},
	}, true
}

// SendCommand replays the linked device command on the source remote and waits for it to complete.
// Without a link it does nothing.
func (s *BinarySensor) SendCommand(ctx context.Context, caller serviceCaller) error {
	call, ok := s.ServiceCall()
	if !ok {
		zap.L().Debug("no link to send command for", zap.String("entity", s.uniqueID))
		return nil
	}
	zap.L().Info("sending command",
		zap.String("entity", s.uniqueID),
		zap.Any("device", call.Data[model.AttrDevice]),
		zap.Any("command", call.Data[model.AttrCommand]),
	)
	return caller.CallService(ctx, call)
}
