package sockets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoServer(t *testing.T, closeAfter int) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for i := 0; closeAfter == 0 || i < closeAfter; i++ {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, msg); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConn_SendReceivesInOrder(t *testing.T) {
	srv := echoServer(t, 0)
	received := make(chan string, 3)
	connected := make(chan struct{}, 1)

	conn := New(
		OnMessage(func(b []byte, _ Connection) { received <- string(b) }),
		OnConnected(func(Connection) { connected <- struct{}{} }),
		WithPingInterval(time.Second),
	)
	require.NoError(t, conn.Dial(context.Background(), wsURL(srv)))
	defer conn.Close()

	select {
	case <-connected:
	case <-time.After(time.Second):
		t.Fatal("OnConnected not called")
	}
	assert.True(t, conn.IsConnected())

	for _, m := range []string{"one", "two", "three"} {
		require.NoError(t, conn.Send(Msg{Body: []byte(m)}))
	}
	for _, want := range []string{"one", "two", "three"} {
		select {
		case got := <-received:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestConn_SendAfterClose(t *testing.T) {
	srv := echoServer(t, 0)
	errs := make(chan error, 1)
	conn := New(OnError(func(err error) { errs <- err }))
	require.NoError(t, conn.Dial(context.Background(), wsURL(srv)))

	require.NoError(t, conn.Close())
	assert.False(t, conn.IsConnected())
	assert.ErrorIs(t, conn.Send(Msg{Body: []byte("late")}), ErrClosed)

	select {
	case err := <-errs:
		t.Fatalf("OnError called after Close: %v", err)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestConn_OnErrorWhenServerGoesAway(t *testing.T) {
	srv := echoServer(t, 1)
	errs := make(chan error, 1)
	conn := New(OnError(func(err error) { errs <- err }))
	require.NoError(t, conn.Dial(context.Background(), wsURL(srv)))

	require.NoError(t, conn.Send(Msg{Body: []byte("bye")}))

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("OnError not called")
	}
	assert.False(t, conn.IsConnected())
}

func TestConn_DialError(t *testing.T) {
	conn := New()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, conn.Dial(ctx, "ws://127.0.0.1:1/none"))
	assert.False(t, conn.IsConnected())
}
