package push

import (
	"context"
	"sync"

	"github.com/hashicorp/go-uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/naiba/nezha-uptime/model"
)

const subscriberBuffer = 256

type subscriber struct {
	handler Handler
	events  chan model.MonitorsUpdatedEvent
	quit    chan struct{}
	done    chan struct{}
}

// Hub is an in-process Listener and Publisher. Each subscriber gets its own
// queue and goroutine, so a slow handler never blocks the others.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[Handle]*subscriber
	buffer      int
	logger      zerolog.Logger
}

var (
	_ Listener  = (*Hub)(nil)
	_ Publisher = (*Hub)(nil)
)

func NewHub() *Hub {
	return newHub(subscriberBuffer)
}

func newHub(buffer int) *Hub {
	return &Hub{
		subscribers: make(map[Handle]*subscriber),
		buffer:      buffer,
		logger:      log.Logger,
	}
}

// WithLogger replaces the hub's logger.
func (h *Hub) WithLogger(l zerolog.Logger) *Hub {
	h.logger = l
	return h
}

func (h *Hub) Subscribe(handler Handler) (Handle, error) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return "", err
	}
	sub := &subscriber{
		handler: handler,
		events:  make(chan model.MonitorsUpdatedEvent, h.buffer),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go sub.run()

	h.mu.Lock()
	h.subscribers[Handle(id)] = sub
	total := len(h.subscribers)
	h.mu.Unlock()

	h.logger.Debug().Str("handle", id).Int("total", total).Msg("[Push] Subscriber added")
	return Handle(id), nil
}

// Unsubscribe must not be called from inside the subscription's own handler.
func (h *Hub) Unsubscribe(handle Handle) error {
	h.mu.Lock()
	sub, ok := h.subscribers[handle]
	if ok {
		delete(h.subscribers, handle)
		close(sub.quit)
	}
	total := len(h.subscribers)
	h.mu.Unlock()
	if !ok {
		return ErrUnknownHandle
	}
	<-sub.done
	h.logger.Debug().Str("handle", string(handle)).Int("total", total).Msg("[Push] Subscriber removed")
	return nil
}

// Publish queues ev for every subscriber. When a subscriber's queue is full
// it waits for room until ctx is done; subscribers removed meanwhile are
// skipped. Events are never dropped silently.
func (h *Hub) Publish(ctx context.Context, ev model.MonitorsUpdatedEvent) error {
	h.mu.RLock()
	subs := make(map[Handle]*subscriber, len(h.subscribers))
	for handle, sub := range h.subscribers {
		subs[handle] = sub
	}
	h.mu.RUnlock()

	for handle, sub := range subs {
		select {
		case sub.events <- ev:
			continue
		default:
		}
		h.logger.Debug().Str("handle", string(handle)).Msg("[Push] Subscriber queue full, waiting")
		select {
		case sub.events <- ev:
		case <-sub.quit:
		case <-ctx.Done():
			h.logger.Warn().Err(ctx.Err()).Str("handle", string(handle)).Msg("[Push] Event not delivered")
			return ctx.Err()
		}
	}
	h.logger.Debug().Str("user_id", ev.UserID).Int("monitors", len(ev.Monitors)).
		Int("subscribers", len(subs)).Msg("[Push] Event published")
	return nil
}

// Len is the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close drops every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subscribers
	h.subscribers = make(map[Handle]*subscriber)
	for _, sub := range subs {
		close(sub.quit)
	}
	h.mu.Unlock()
	for _, sub := range subs {
		<-sub.done
	}
}

func (s *subscriber) run() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case ev := <-s.events:
			select {
			case <-s.quit:
				return
			default:
			}
			s.handler(ev)
		}
	}
}
