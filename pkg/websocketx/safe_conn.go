package websocketx

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/naiba/nezha-uptime/pkg/utils"
)

// Conn serializes writes on a websocket connection; gorilla allows only one
// concurrent writer.
type Conn struct {
	*websocket.Conn
	writeLock sync.Mutex
	// WriteTimeout bounds every write when positive, so a peer that stops
	// reading cannot hold the writer forever.
	WriteTimeout time.Duration
}

func NewConn(conn *websocket.Conn) *Conn {
	return &Conn{Conn: conn}
}

func (conn *Conn) WriteMessage(msgType int, data []byte) error {
	conn.writeLock.Lock()
	defer conn.writeLock.Unlock()
	var err error
	lo.TryCatchWithErrorValue(func() error {
		if conn.WriteTimeout > 0 {
			if err := conn.Conn.SetWriteDeadline(time.Now().Add(conn.WriteTimeout)); err != nil {
				return err
			}
		}
		return conn.Conn.WriteMessage(msgType, data)
	}, func(res any) {
		if e, ok := res.(error); ok {
			err = e
			return
		}
		err = fmt.Errorf("websocket write panic: %v", res)
	})
	return err
}

// WriteJSON encodes v with utils.Json and sends it as a text frame.
func (conn *Conn) WriteJSON(v any) error {
	data, err := utils.Json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// KeepAlive pings the peer every interval until a write fails or done closes.
func (conn *Conn) KeepAlive(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}
