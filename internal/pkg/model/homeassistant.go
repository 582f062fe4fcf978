package model

import (
	"encoding/json"
	"time"
)

const (
	EventStateChanged = "state_changed"

	AttrCurrentActivity = "current_activity"
	AttrEntityID        = "entity_id"
	AttrSource          = "source"
	AttrCommand         = "command"
	AttrDevice          = "device"

	RemoteDomain       = "remote"
	ServiceSendCommand = "send_command"
)

// MessageType is the "type" field of a Home Assistant websocket message.
type MessageType string

const (
	AuthRequired    MessageType = "auth_required"
	Auth            MessageType = "auth"
	AuthOK          MessageType = "auth_ok"
	AuthInvalid     MessageType = "auth_invalid"
	Result          MessageType = "result"
	EventMessage    MessageType = "event"
	Ping            MessageType = "ping"
	Pong            MessageType = "pong"
	SubscribeEvents MessageType = "subscribe_events"
	GetStates       MessageType = "get_states"
	CallService     MessageType = "call_service"
)

func (m MessageType) String() string {
	return string(m)
}

// State is an entity state as reported by Home Assistant.
type State struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged time.Time      `json:"last_changed"`
	LastUpdated time.Time      `json:"last_updated"`
	Context     *StateContext  `json:"context,omitempty"`
}

type StateContext struct {
	ID       string  `json:"id"`
	ParentID *string `json:"parent_id"`
	UserID   *string `json:"user_id"`
}

// StringAttribute returns the named attribute when it is a string, or fallback.
func (s *State) StringAttribute(name, fallback string) string {
	if s == nil || s.Attributes == nil {
		return fallback
	}
	if v, ok := s.Attributes[name].(string); ok {
		return v
	}
	return fallback
}

type Event struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Origin    string          `json:"origin"`
	TimeFired time.Time       `json:"time_fired"`
}

type StateChangedEvent struct {
	EntityID string `json:"entity_id"`
	OldState *State `json:"old_state"`
	NewState *State `json:"new_state"`
}

// Envelope covers every message Home Assistant sends over the websocket.
type Envelope struct {
	ID        int64           `json:"id"`
	Type      MessageType     `json:"type"`
	Success   bool            `json:"success"`
	Result    json.RawMessage `json:"result"`
	Error     *ResultError    `json:"error"`
	Event     *Event          `json:"event"`
	HAVersion string          `json:"ha_version"`
	Message   string          `json:"message"`
}

type ResultError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type AuthRequest struct {
	Type        MessageType `json:"type"`
	AccessToken string      `json:"access_token"`
}

type Request struct {
	ID   int64       `json:"id"`
	Type MessageType `json:"type"`
}

type SubscribeEventsRequest struct {
	Request
	EventType string `json:"event_type,omitempty"`
}

type CallServiceRequest struct {
	Request
	Domain      string         `json:"domain"`
	Service     string         `json:"service"`
	ServiceData map[string]any `json:"service_data,omitempty"`
	Target      *ServiceTarget `json:"target,omitempty"`
}

type ServiceTarget struct {
	EntityID []string `json:"entity_id"`
}

// ServiceCall is a Home Assistant service invocation.
type ServiceCall struct {
	Domain  string
	Service string
	Data    map[string]any
	Target  ServiceTarget
}
