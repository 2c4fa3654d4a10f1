package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// dialTestConn produces a live server-side websocket connection, the way hub
// clients hold one.
func dialTestConn(t *testing.T) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	serverSide := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverSide <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientSide, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { clientSide.Close() })

	select {
	case conn := <-serverSide:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(time.Second):
		t.Fatal("upgrade never completed")
		return nil
	}
}

func assertSendClosed(t *testing.T, send chan []byte) {
	t.Helper()
	for {
		select {
		case _, ok := <-send:
			if !ok {
				return
			}
		case <-time.After(time.Second):
			t.Fatal("send channel not closed")
		}
	}
}

func TestStudentHubUnregisterClosesSend(t *testing.T) {
	hub := NewStudentHub()
	go hub.Run()

	c := newStudentClient(hub, dialTestConn(t), "student-1", "sess-1", nil)
	hub.register <- c
	hub.unregister <- c

	assertSendClosed(t, c.send)
}

func TestStudentHubReplacementClosesOldSend(t *testing.T) {
	hub := NewStudentHub()
	go hub.Run()

	old := newStudentClient(hub, dialTestConn(t), "student-1", "sess-1", nil)
	hub.register <- old
	replacement := newStudentClient(hub, dialTestConn(t), "student-1", "sess-2", nil)
	hub.register <- replacement

	assertSendClosed(t, old.send)

	// the old client's read pump will still report its disconnect; that must
	// not evict the replacement
	hub.unregister <- old

	hub.Notify("student-1", StudentFrame{Type: "event_ack", EventID: "ev-1"})
	select {
	case msg, ok := <-replacement.send:
		if !ok {
			t.Fatal("replacement send closed by the old client's unregister")
		}
		if !strings.Contains(string(msg), "ev-1") {
			t.Errorf("unexpected frame: %s", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("frame never reached the replacement client")
	}
}
