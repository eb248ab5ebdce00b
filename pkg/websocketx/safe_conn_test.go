package websocketx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTimeoutUnblocksStalledPeer(t *testing.T) {
	release := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		// never reads
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	conn := NewConn(ws)
	conn.WriteTimeout = 50 * time.Millisecond
	defer conn.Close()

	payload := make([]byte, 1<<20)
	start := time.Now()
	var writeErr error
	for i := 0; i < 256 && writeErr == nil; i++ {
		writeErr = conn.WriteMessage(websocket.BinaryMessage, payload)
	}
	assert.Error(t, writeErr)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestWriteJSON(t *testing.T) {
	got := make(chan string, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		_, data, err := c.ReadMessage()
		if err == nil {
			got <- string(data)
		}
	}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	conn := NewConn(ws)
	conn.WriteTimeout = time.Second
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"userId": "u1"}))
	select {
	case s := <-got:
		assert.JSONEq(t, `{"userId":"u1"}`, s)
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}
}
