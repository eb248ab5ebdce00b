package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/naiba/nezha-uptime/model"
	"github.com/naiba/nezha-uptime/pkg/websocketx"
)

var upgrader = &websocket.Upgrader{
	ReadBufferSize:  32768,
	WriteBufferSize: 32768,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	pingInterval = time.Second * 8
	writeTimeout = time.Second * 10
)

// monitorStream relays every MonitorsUpdated event to the connected client
// until it goes away.
func (ctl *Controller) monitorStream(c *gin.Context) {
	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		ctl.logger.Debug().Err(err).Msg("[Dashboard] Websocket upgrade failed")
		return
	}
	conn := websocketx.NewConn(wsConn)
	conn.WriteTimeout = writeTimeout
	defer conn.Close()

	done := make(chan struct{})
	failed := make(chan struct{}, 1)
	handle, err := ctl.hub.Subscribe(func(ev model.MonitorsUpdatedEvent) {
		if err := conn.WriteJSON(ev); err != nil {
			select {
			case failed <- struct{}{}:
			default:
			}
		}
	})
	if err != nil {
		ctl.logger.Warn().Err(err).Msg("[Dashboard] Subscribe failed")
		return
	}
	defer ctl.hub.Unsubscribe(handle)

	go conn.KeepAlive(pingInterval, done)
	defer close(done)

	// 客户端不发消息, 读循环只用来感知断开
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-closed:
	case <-failed:
	case <-c.Request.Context().Done():
	}
}
