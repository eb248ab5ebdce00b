package push

import (
	"context"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/naiba/nezha-uptime/model"
	"github.com/naiba/nezha-uptime/pkg/utils"
)

const DefaultSubject = "monitors.updated"

// NATSPublisher emits events on a NATS subject.
type NATSPublisher struct {
	Conn    *nats.Conn
	Subject string
}

func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{Conn: conn, Subject: utils.IfOr(subject != "", subject, DefaultSubject)}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, ev model.MonitorsUpdatedEvent) error {
	data, err := utils.Json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.Conn.Publish(p.Subject, data)
}

func (p *NATSPublisher) Close() {
	if p.Conn != nil {
		p.Conn.Drain()
		p.Conn.Close()
	}
}

// NATSListener receives events from a NATS subject.
type NATSListener struct {
	conn   *nats.Conn
	sub    *nats.Subscription
	hub    *Hub
	logger zerolog.Logger
	once   sync.Once
}

var _ Listener = (*NATSListener)(nil)

func NewNATSListener(url, subject string) (*NATSListener, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return newNATSListener(conn, utils.IfOr(subject != "", subject, DefaultSubject))
}

func newNATSListener(conn *nats.Conn, subject string) (*NATSListener, error) {
	l := &NATSListener{conn: conn, hub: NewHub(), logger: log.Logger}
	sub, err := conn.Subscribe(subject, l.onMessage)
	if err != nil {
		conn.Close()
		return nil, err
	}
	l.sub = sub
	return l, nil
}

func (l *NATSListener) onMessage(msg *nats.Msg) {
	ev, err := model.DecodeMonitorsUpdated(msg.Data)
	if err != nil {
		l.logger.Debug().Err(err).Str("subject", msg.Subject).Msg("[Push] Skipping undecodable message")
		return
	}
	l.hub.Publish(context.Background(), ev)
}

func (l *NATSListener) Subscribe(h Handler) (Handle, error) {
	return l.hub.Subscribe(h)
}

func (l *NATSListener) Unsubscribe(h Handle) error {
	return l.hub.Unsubscribe(h)
}

func (l *NATSListener) Close() {
	l.once.Do(func() {
		l.sub.Unsubscribe()
		l.conn.Drain()
		l.hub.Close()
	})
}
