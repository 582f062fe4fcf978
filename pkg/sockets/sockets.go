package sockets

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var ErrClosed = errors.New("closed connection")

type Connection interface {
	Dial(ctx context.Context, url string) error
	Send(msg Msg) error
	IsConnected() bool
	io.Closer
}

type Conn struct {
	ws             *websocket.Conn
	mu             sync.Mutex
	closed         bool
	sslSkipVerify  bool
	pingInterval   time.Duration
	maxMessageSize int64
	onError        func(err error)
	onMessage      func([]byte, Connection)
	onConnected    func(Connection)
	done           chan struct{}
}

func New(opts ...func(*Conn)) Connection {
	c := &Conn{closed: true}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Msg is the message structure.
type Msg struct {
	Body []byte
}

// Close closes the connection. Errors raised by the read loop afterwards are not reported.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Conn) closeLocked() error {
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.ws.Close()
}

func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Send writes msg as a text frame. Writes are serialized.
func (c *Conn) Send(msg Msg) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	err := c.ws.WriteMessage(websocket.TextMessage, msg.Body)
	if err != nil {
		_ = c.closeLocked()
	}
	c.mu.Unlock()

	if err != nil && c.onError != nil {
		c.onError(err)
	}
	return err
}

func (c *Conn) Dial(ctx context.Context, url string) error {
	dialer := &websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: c.sslSkipVerify,
		},
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	if c.maxMessageSize > 0 {
		conn.SetReadLimit(c.maxMessageSize)
	}

	c.mu.Lock()
	c.ws = conn
	c.closed = false
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	if c.onConnected != nil {
		c.onConnected(c)
	}
	go c.readLoop(conn, done)
	c.setupPing(conn, done)
	return nil
}

// readLoop delivers messages in the order they arrive.
func (c *Conn) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
				return
			default:
			}
			c.mu.Lock()
			_ = c.closeLocked()
			c.mu.Unlock()
			if c.onError != nil {
				c.onError(err)
			}
			return
		}
		if c.onMessage != nil {
			c.onMessage(msg, c)
		}
	}
}

func (c *Conn) setupPing(conn *websocket.Conn, done chan struct{}) {
	if c.pingInterval <= 0 {
		return
	}
	deadline := func() time.Time { return time.Now().Add(3 * c.pingInterval) }
	_ = conn.SetReadDeadline(deadline())
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(deadline())
	})

	ticker := time.NewTicker(c.pingInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.mu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.pingInterval))
				c.mu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()
}
