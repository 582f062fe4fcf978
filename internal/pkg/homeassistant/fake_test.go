package homeassistant

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/anicoll/harmony-helper/internal/pkg/model"
)

// fakeHomeAssistant is a minimal websocket API server.
type fakeHomeAssistant struct {
	srv   *httptest.Server
	token string

	mu         sync.Mutex
	writeMu    sync.Mutex
	conn       *websocket.Conn
	states     []model.State
	calls      []model.CallServiceRequest
	callError  *model.ResultError
	subID      int64
	subscribed chan struct{}
}

func newFakeHomeAssistant(t *testing.T, token string) *fakeHomeAssistant {
	t.Helper()
	f := &fakeHomeAssistant{token: token, subscribed: make(chan struct{}, 1)}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeHomeAssistant) URL() string {
	return f.srv.URL
}

func (f *fakeHomeAssistant) serve(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != websocketPath {
		http.NotFound(w, r)
		return
	}
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	f.write(map[string]any{"type": "auth_required", "ha_version": "2026.10.0"})
	auth := model.AuthRequest{}
	if err := conn.ReadJSON(&auth); err != nil {
		return
	}
	if auth.Type != model.Auth || auth.AccessToken != f.token {
		f.write(map[string]any{"type": "auth_invalid", "message": "Invalid access token or password"})
		return
	}
	f.write(map[string]any{"type": "auth_ok", "ha_version": "2026.10.0"})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		req := model.Request{}
		if err := json.Unmarshal(data, &req); err != nil {
			return
		}
		switch req.Type {
		case model.GetStates:
			f.mu.Lock()
			states := f.states
			f.mu.Unlock()
			f.write(map[string]any{"id": req.ID, "type": "result", "success": true, "result": states})
		case model.SubscribeEvents:
			f.mu.Lock()
			f.subID = req.ID
			f.mu.Unlock()
			f.write(map[string]any{"id": req.ID, "type": "result", "success": true, "result": nil})
			f.subscribed <- struct{}{}
		case model.CallService:
			call := model.CallServiceRequest{}
			_ = json.Unmarshal(data, &call)
			f.mu.Lock()
			f.calls = append(f.calls, call)
			callErr := f.callError
			f.mu.Unlock()
			if callErr != nil {
				f.write(map[string]any{"id": req.ID, "type": "result", "success": false, "error": callErr})
				continue
			}
			f.write(map[string]any{"id": req.ID, "type": "result", "success": true, "result": map[string]any{"context": map[string]any{"id": "ctx"}}})
		case model.Ping:
			f.write(map[string]any{"id": req.ID, "type": "pong"})
		}
	}
}

func (f *fakeHomeAssistant) write(v any) {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	_ = conn.WriteJSON(v)
}

func (f *fakeHomeAssistant) setStates(states ...model.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = states
}

func (f *fakeHomeAssistant) setCallError(err *model.ResultError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callError = err
}

func (f *fakeHomeAssistant) recordedCalls() []model.CallServiceRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.CallServiceRequest(nil), f.calls...)
}

func (f *fakeHomeAssistant) pushStateChanged(entityID string, newState *model.State) {
	f.mu.Lock()
	id := f.subID
	f.mu.Unlock()
	f.write(map[string]any{
		"id":   id,
		"type": "event",
		"event": map[string]any{
			"event_type": model.EventStateChanged,
			"data": map[string]any{
				"entity_id": entityID,
				"old_state": nil,
				"new_state": newState,
			},
		},
	})
}

func (f *fakeHomeAssistant) drop() {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	_ = conn.Close()
}
