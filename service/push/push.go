// Package push delivers MonitorsUpdated events from the dashboard to the
// subscribers of a process.
package push

import (
	"context"
	"errors"

	"github.com/naiba/nezha-uptime/model"
)

var ErrUnknownHandle = errors.New("unknown subscription handle")

// Handler receives events in arrival order, one at a time.
type Handler func(model.MonitorsUpdatedEvent)

// Handle identifies one subscription.
type Handle string

// Listener is the subscribing side of the push channel.
type Listener interface {
	Subscribe(h Handler) (Handle, error)
	// Unsubscribe stops delivery; once it returns the handler is not called
	// again.
	Unsubscribe(h Handle) error
}

// Publisher is the emitting side of the push channel.
type Publisher interface {
	Publish(ctx context.Context, ev model.MonitorsUpdatedEvent) error
}

// Publishers fans one event out to several publishers and reports the first
// error.
type Publishers []Publisher

func (ps Publishers) Publish(ctx context.Context, ev model.MonitorsUpdatedEvent) error {
	var first error
	for _, p := range ps {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
