package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type receivedMessage struct {
	Type string
	Raw  []byte
}

type fakeServer struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	dials    atomic.Int32
	requests chan *http.Request
	conns    chan *websocket.Conn
	received chan receivedMessage

	// beforeUpgrade, when set, runs before the handshake completes.
	beforeUpgrade func()
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	return newFakeServerWithHook(t, nil)
}

func newFakeServerWithHook(t *testing.T, beforeUpgrade func()) *fakeServer {
	t.Helper()

	fs := &fakeServer{
		requests:      make(chan *http.Request, 8),
		conns:         make(chan *websocket.Conn, 8),
		received:      make(chan receivedMessage, 64),
		beforeUpgrade: beforeUpgrade,
	}
	fs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.dials.Add(1)
		fs.requests <- r
		if fs.beforeUpgrade != nil {
			fs.beforeUpgrade()
		}

		conn, err := fs.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.conns <- conn
		go fs.readLoop(conn)
	}))
	t.Cleanup(fs.server.Close)

	return fs
}

func (fs *fakeServer) endpoint() string {
	return "ws" + strings.TrimPrefix(fs.server.URL, "http")
}

func (fs *fakeServer) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var envelope struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(data, &envelope)
		fs.received <- receivedMessage{Type: envelope.Type, Raw: data}
	}
}

func (fs *fakeServer) nextConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-fs.conns:
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for client connection")
		return nil
	}
}

func (fs *fakeServer) nextMessage(t *testing.T) receivedMessage {
	t.Helper()
	select {
	case msg := <-fs.received:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for client message")
		return receivedMessage{}
	}
}

func (fs *fakeServer) expectNoMessage(t *testing.T) {
	t.Helper()
	select {
	case msg := <-fs.received:
		t.Fatalf("expected no client message, got %q", msg.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(event)); err != nil {
		t.Fatalf("failed to write server event: %v", err)
	}
}

func waitFor(t *testing.T, description string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", description)
}
