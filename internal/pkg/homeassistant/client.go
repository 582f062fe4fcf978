package homeassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/harmony-helper/internal/pkg/config"
	"github.com/anicoll/harmony-helper/internal/pkg/model"
	ws "github.com/anicoll/harmony-helper/pkg/sockets"
)

const (
	websocketPath  = "/api/websocket"
	pingInterval   = 30 * time.Second
	maxMessageSize = 16 * 1024 * 1024
	eventBuffer    = 256
)

type response struct {
	env model.Envelope
	err error
}

type subscription struct {
	id      int64
	handler func(model.Event)
}

// Client speaks the Home Assistant websocket API.
type Client struct {
	cfg    config.HomeAssistantConfig
	logger *zap.Logger
	nextID atomic.Int64

	mu            sync.Mutex
	conn          ws.Connection
	pending       map[int64]chan response
	subscriptions map[int64]subscription
	authCh        chan model.Envelope
	events        chan queuedEvent
	done          chan error
	quit          chan struct{}
	quitOnce      *sync.Once
	version       string
}

type queuedEvent struct {
	sub   int64
	event model.Event
}

func New(cfg config.HomeAssistantConfig) *Client {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = config.DefaultCallTimeout
	}
	return &Client{
		cfg:    cfg,
		logger: zap.L(), // returns the global logger.
		done:   make(chan error, 1),
	}
}

// Connect dials the websocket and authenticates. It can be called again after Done fires.
func (c *Client) Connect(ctx context.Context) error {
	u, err := websocketURL(c.cfg.URL)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.pending = make(map[int64]chan response)
	c.subscriptions = make(map[int64]subscription)
	c.authCh = make(chan model.Envelope, 2)
	c.events = make(chan queuedEvent, eventBuffer)
	c.done = make(chan error, 1)
	c.quit = make(chan struct{})
	c.quitOnce = &sync.Once{}
	authCh, events, quit := c.authCh, c.events, c.quit
	c.mu.Unlock()

	opts := []func(*ws.Conn){
		ws.OnMessage(c.onMessage),
		ws.OnError(c.onError),
		ws.WithPingInterval(pingInterval),
		ws.WithMaxMessageSize(maxMessageSize),
	}
	if c.cfg.InsecureSkipVerify {
		opts = append(opts, ws.InsecureSkipVerify())
	}
	conn := ws.New(opts...)

	c.logger.Debug("connecting to", zap.String("url", u))
	if err := conn.Dial(ctx, u); err != nil {
		c.logger.Error("failed to connect to", zap.String("url", u), zap.Error(err))
		return fmt.Errorf("dialing %s: %w", u, err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.dispatch(events, quit)

	if err := c.authenticate(ctx, conn, authCh); err != nil {
		c.stop()
		_ = conn.Close()
		return err
	}
	c.logger.Info("connected to home assistant", zap.String("url", u), zap.String("version", c.Version()))
	return nil
}

func (c *Client) authenticate(ctx context.Context, conn ws.Connection, authCh chan model.Envelope) error {
	env, err := c.awaitAuth(ctx, authCh)
	if err != nil {
		return err
	}
	if env.Type != model.AuthRequired {
		return fmt.Errorf("%w: %s before auth", errUnexpectedMessage, env.Type)
	}

	data, err := json.Marshal(model.AuthRequest{Type: model.Auth, AccessToken: c.cfg.Token})
	if err != nil {
		return err
	}
	if err := conn.Send(ws.Msg{Body: data}); err != nil {
		return err
	}

	env, err = c.awaitAuth(ctx, authCh)
	if err != nil {
		return err
	}
	switch env.Type {
	case model.AuthOK:
		c.mu.Lock()
		c.version = env.HAVersion
		c.mu.Unlock()
		return nil
	case model.AuthInvalid:
		return fmt.Errorf("%w: %s", ErrAuthInvalid, env.Message)
	default:
		return fmt.Errorf("%w: %s during auth", errUnexpectedMessage, env.Type)
	}
}

func (c *Client) awaitAuth(ctx context.Context, authCh chan model.Envelope) (model.Envelope, error) {
	timer := time.NewTimer(c.cfg.CallTimeout)
	defer timer.Stop()
	select {
	case env := <-authCh:
		return env, nil
	case err := <-c.Done():
		// the auth reply is queued before the read error that closed the socket.
		select {
		case env := <-authCh:
			return env, nil
		default:
		}
		return model.Envelope{}, err
	case <-timer.C:
		return model.Envelope{}, fmt.Errorf("%w: auth", ErrTimeout)
	case <-ctx.Done():
		return model.Envelope{}, ctx.Err()
	}
}

// Version is the Home Assistant version reported during auth.
func (c *Client) Version() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.conn.IsConnected()
}

// Done yields an ErrDisconnected-wrapped error once the current connection drops.
func (c *Client) Done() <-chan error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	c.stop()
	c.failPending(ErrNotConnected)
	return conn.Close()
}

// GetStates returns the state of every entity.
func (c *Client) GetStates(ctx context.Context) ([]model.State, error) {
	env, err := c.call(ctx, func(id int64) any {
		return model.Request{ID: id, Type: model.GetStates}
	})
	if err != nil {
		return nil, err
	}
	states := []model.State{}
	if err := json.Unmarshal(env.Result, &states); err != nil {
		return nil, fmt.Errorf("decoding states: %w", err)
	}
	return states, nil
}

// SubscribeStateChanges delivers every state_changed event to handler, one at a time and in order.
func (c *Client) SubscribeStateChanges(ctx context.Context, handler func(model.StateChangedEvent)) error {
	_, err := c.callWithSubscription(ctx, func(event model.Event) {
		data := model.StateChangedEvent{}
		if err := json.Unmarshal(event.Data, &data); err != nil {
			c.logger.Warn("failed to decode state_changed event", zap.Error(err))
			return
		}
		handler(data)
	}, func(id int64) any {
		return model.SubscribeEventsRequest{
			Request:   model.Request{ID: id, Type: model.SubscribeEvents},
			EventType: model.EventStateChanged,
		}
	})
	return err
}

// CallService calls a service and waits for Home Assistant to finish it.
func (c *Client) CallService(ctx context.Context, call model.ServiceCall) error {
	_, err := c.call(ctx, func(id int64) any {
		req := model.CallServiceRequest{
			Request:     model.Request{ID: id, Type: model.CallService},
			Domain:      call.Domain,
			Service:     call.Service,
			ServiceData: call.Data,
		}
		if len(call.Target.EntityID) > 0 {
			req.Target = &model.ServiceTarget{EntityID: call.Target.EntityID}
		}
		return req
	})
	if err != nil {
		return fmt.Errorf("calling %s.%s: %w", call.Domain, call.Service, err)
	}
	return nil
}

// Ping round-trips a ping message.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, func(id int64) any {
		return model.Request{ID: id, Type: model.Ping}
	})
	return err
}

func (c *Client) call(ctx context.Context, build func(id int64) any) (model.Envelope, error) {
	return c.callWithSubscription(ctx, nil, build)
}

func (c *Client) callWithSubscription(ctx context.Context, handler func(model.Event), build func(id int64) any) (model.Envelope, error) {
	id := c.nextID.Add(1)
	ch := make(chan response, 1)

	c.mu.Lock()
	conn := c.conn
	if conn == nil || !conn.IsConnected() {
		c.mu.Unlock()
		return model.Envelope{}, ErrNotConnected
	}
	c.pending[id] = ch
	if handler != nil {
		c.subscriptions[id] = subscription{id: id, handler: handler}
	}
	c.mu.Unlock()

	cleanup := func() {
		c.mu.Lock()
		delete(c.pending, id)
		if handler != nil {
			delete(c.subscriptions, id)
		}
		c.mu.Unlock()
	}

	req := build(id)
	data, err := json.Marshal(req)
	if err != nil {
		cleanup()
		return model.Envelope{}, err
	}
	c.logger.Debug("sending msg", zap.Int64("id", id), zap.ByteString("request", truncate(data)))
	if err := conn.Send(ws.Msg{Body: data}); err != nil {
		cleanup()
		return model.Envelope{}, err
	}

	timer := time.NewTimer(c.cfg.CallTimeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		if res.err != nil {
			cleanup()
			return model.Envelope{}, res.err
		}
		if res.env.Type == model.Result && !res.env.Success {
			cleanup()
			if res.env.Error != nil {
				return res.env, fmt.Errorf("%w: %s: %s", ErrCommandFailed, res.env.Error.Code, res.env.Error.Message)
			}
			return res.env, ErrCommandFailed
		}
		return res.env, nil
	case <-timer.C:
		cleanup()
		return model.Envelope{}, ErrTimeout
	case <-ctx.Done():
		cleanup()
		return model.Envelope{}, ctx.Err()
	}
}

func (c *Client) onMessage(data []byte, _ ws.Connection) {
	envs := []model.Envelope{}
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &envs); err != nil {
			c.logger.Warn("failed to decode message", zap.Error(err))
			return
		}
	} else {
		env := model.Envelope{}
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn("failed to decode message", zap.Error(err))
			return
		}
		envs = append(envs, env)
	}
	for _, env := range envs {
		c.handle(env)
	}
}

func (c *Client) handle(env model.Envelope) {
	switch env.Type {
	case model.AuthRequired, model.AuthOK, model.AuthInvalid:
		c.mu.Lock()
		authCh := c.authCh
		c.mu.Unlock()
		select {
		case authCh <- env:
		default:
			c.logger.Warn("dropping auth message", zap.String("type", env.Type.String()))
		}
	case model.Result, model.Pong:
		c.mu.Lock()
		ch, ok := c.pending[env.ID]
		delete(c.pending, env.ID)
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("result for unknown request", zap.Int64("id", env.ID))
			return
		}
		ch <- response{env: env}
	case model.EventMessage:
		if env.Event == nil {
			return
		}
		c.mu.Lock()
		_, ok := c.subscriptions[env.ID]
		events, quit := c.events, c.quit
		c.mu.Unlock()
		if !ok {
			return
		}
		select {
		case events <- queuedEvent{sub: env.ID, event: *env.Event}:
		case <-quit:
		}
	default:
		c.logger.Debug("ignoring message", zap.String("type", env.Type.String()), zap.Int64("id", env.ID))
	}
}

// dispatch runs subscription handlers off the read goroutine so they can call back into the client.
func (c *Client) dispatch(events chan queuedEvent, quit chan struct{}) {
	for {
		select {
		case qe := <-events:
			c.mu.Lock()
			sub, ok := c.subscriptions[qe.sub]
			c.mu.Unlock()
			if ok {
				sub.handler(qe.event)
			}
		case <-quit:
			return
		}
	}
}

func (c *Client) stop() {
	c.mu.Lock()
	once, quit := c.quitOnce, c.quit
	c.mu.Unlock()
	if once != nil {
		once.Do(func() { close(quit) })
	}
}

func (c *Client) onError(err error) {
	c.logger.Warn("home assistant connection lost", zap.Error(err))
	c.stop()
	c.failPending(fmt.Errorf("%w: %w", ErrDisconnected, err))
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	select {
	case done <- fmt.Errorf("%w: %w", ErrDisconnected, err):
	default:
	}
}

func (c *Client) failPending(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[int64]chan response)
	c.mu.Unlock()
	for _, ch := range pending {
		ch <- response{err: err}
	}
}

func websocketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing home assistant url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported home assistant url scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, websocketPath) {
		u.Path = strings.TrimSuffix(u.Path, "/") + websocketPath
	}
	return u.String(), nil
}

func truncate(data []byte) []byte {
	if len(data) > 1024 {
		return data[:1024]
	}
	return data
}
