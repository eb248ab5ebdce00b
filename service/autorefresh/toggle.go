// Package autorefresh switches server-driven periodic pushes on and off.
// Toggle is the client side, Scheduler the dashboard side.
package autorefresh

import (
	"context"
	"errors"
	"fmt"

	"github.com/naiba/nezha-uptime/service/preference"
)

// ErrNotPersisted means the dashboard accepted the change but the local
// preference could not be written. The returned flag is still valid.
var ErrNotPersisted = errors.New("refresh preference not persisted")

// Setter is the remote operation behind the toggle.
type Setter interface {
	SetAutoRefresh(ctx context.Context, userID string, refresh bool) (bool, error)
}

// Toggle asks the dashboard to change a user's auto-refresh flag and mirrors
// the flag the dashboard reports into the preference store. Failures are
// returned, never retried.
type Toggle struct {
	remote Setter
	store  preference.Store
}

func NewToggle(remote Setter, store preference.Store) *Toggle {
	return &Toggle{remote: remote, store: store}
}

func (t *Toggle) SetRefresh(ctx context.Context, userID string, enabled bool) (bool, error) {
	refresh, err := t.remote.SetAutoRefresh(ctx, userID, enabled)
	if err != nil {
		return false, err
	}
	if err := preference.SetAutoRefresh(t.store, refresh); err != nil {
		return refresh, fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	return refresh, nil
}
