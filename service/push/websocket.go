package push

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/naiba/nezha-uptime/model"
)

const delayWhenError = time.Second * 5

// WSListener keeps a websocket to the dashboard's push endpoint open and
// hands every decoded event to its subscribers. It reconnects until closed.
type WSListener struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
	hub    *Hub
	logger zerolog.Logger

	retryDelay time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ Listener = (*WSListener)(nil)

func NewWSListener(url string, header http.Header) *WSListener {
	return &WSListener{
		url:        url,
		header:     header,
		dialer:     websocket.DefaultDialer,
		hub:        NewHub(),
		logger:     log.Logger,
		retryDelay: delayWhenError,
	}
}

func (l *WSListener) Subscribe(h Handler) (Handle, error) {
	return l.hub.Subscribe(h)
}

func (l *WSListener) Unsubscribe(h Handle) error {
	return l.hub.Unsubscribe(h)
}

// Start begins the connect/read loop in the background. Calling it twice is
// a no-op.
func (l *WSListener) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return
	}
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})
	go l.run(ctx)
}

// Close stops the loop, closes the connection and drops all subscriptions.
func (l *WSListener) Close() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel = nil
	l.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	l.hub.Close()
}

func (l *WSListener) run(ctx context.Context) {
	defer close(l.done)
	for {
		err := l.session(ctx)
		if ctx.Err() != nil {
			return
		}
		l.logger.Warn().Err(err).Str("url", l.url).Msg("[Push] Connection lost, try to reconnect ...")
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.retryDelay):
		}
	}
}

func (l *WSListener) session(ctx context.Context) error {
	conn, _, err := l.dialer.DialContext(ctx, l.url, l.header)
	if err != nil {
		return err
	}
	defer conn.Close()
	l.logger.Info().Str("url", l.url).Msg("[Push] Connected")

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		ev, err := model.DecodeMonitorsUpdated(data)
		if err != nil {
			l.logger.Debug().Err(err).Int("bytes", len(data)).Msg("[Push] Skipping undecodable message")
			continue
		}
		l.hub.Publish(ctx, ev)
	}
}
