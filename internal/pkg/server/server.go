package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/anicoll/harmony-helper/internal/pkg/bridge"
	"github.com/anicoll/harmony-helper/internal/pkg/homeassistant"
	"github.com/anicoll/harmony-helper/internal/pkg/model"
)

var errHistoryDisabled = errors.New("history is not enabled")

type bridgeService interface {
	Sensors() []model.SensorSnapshot
	Sensor(id string) (model.SensorSnapshot, bool)
	SendCommand(ctx context.Context, id string) error
	SendCommands(ctx context.Context, ids []string) error
}

type historyStore interface {
	GetHistory(ctx context.Context, uniqueID string, from, to *time.Time) ([]model.HistoryRecord, error)
}

type server struct {
	bridge  bridgeService
	history historyStore
	logger  *zap.Logger
}

// New returns the API handlers. history may be nil.
func New(b bridgeService, history historyStore) *server {
	return &server{bridge: b, history: history, logger: zap.L()}
}

// Router wires the API routes. Requests under /api need a bearer token signed with jwtSecret when it is set.
func (s *server) Router(jwtSecret string) *mux.Router {
	router := mux.NewRouter()
	router.Use(LoggingMiddleware)
	router.HandleFunc("/healthz", s.Healthz).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	if jwtSecret != "" {
		api.Use(JWTMiddleware([]byte(jwtSecret)))
	}
	api.HandleFunc("/sensors", s.GetSensors).Methods(http.MethodGet)
	api.HandleFunc("/sensors/{id}", s.GetSensor).Methods(http.MethodGet)
	api.HandleFunc("/sensors/{id}/history", s.GetSensorHistory).Methods(http.MethodGet)
	api.HandleFunc("/sensors/{id}/send_command", s.PostSensorSendCommand).Methods(http.MethodPost)
	api.HandleFunc("/send_command", s.PostSendCommand).Methods(http.MethodPost)
	return router
}

func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func (s *server) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) GetSensors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.bridge.Sensors())
}

func (s *server) GetSensor(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	snap, ok := s.bridge.Sensor(id)
	if !ok {
		handleError(w, bridge.ErrUnknownEntity)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *server) GetSensorHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, errHistoryDisabled)
		return
	}
	snap, ok := s.bridge.Sensor(mux.Vars(r)["id"])
	if !ok {
		handleError(w, bridge.ErrUnknownEntity)
		return
	}
	from, err := parseTime(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	to, err := parseTime(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	records, err := s.history.GetHistory(r.Context(), snap.UniqueID, from, to)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *server) PostSensorSendCommand(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.bridge.SendCommand(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}
	s.logger.Info("command sent", zap.String("entity_id", id))
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

type SendCommandPayload struct {
	EntityIDs []string `json:"entity_ids"`
}

func (s *server) PostSendCommand(w http.ResponseWriter, r *http.Request) {
	req, err := unmarshalPayload[SendCommandPayload](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.EntityIDs) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("entity_ids cannot be empty"))
		return
	}
	if err := s.bridge.SendCommands(r.Context(), req.EntityIDs); err != nil {
		handleError(w, err)
		return
	}
	s.logger.Info("commands sent", zap.Strings("entity_ids", req.EntityIDs))
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bridge.ErrUnknownEntity):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, homeassistant.ErrNotConnected), errors.Is(err, homeassistant.ErrDisconnected):
		writeError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, homeassistant.ErrCommandFailed), errors.Is(err, homeassistant.ErrTimeout):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func unmarshalPayload[T any](r *http.Request) (*T, error) {
	var out T
	if err := json.NewDecoder(r.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func parseTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
