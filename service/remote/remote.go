// Package remote talks to the dashboard's monitor API.
package remote

import (
	"context"
	"fmt"

	"github.com/naiba/nezha-uptime/model"
)

// Service is the full set of remote operations a client session uses.
type Service interface {
	FetchUserMonitors(ctx context.Context, userID string) ([]model.Monitor, error)
	CreateMonitor(ctx context.Context, m model.Monitor) (model.Monitor, error)
	UpdateMonitor(ctx context.Context, monitorID, userID string, m model.Monitor) (model.Monitor, error)
	// FetchSingleMonitor keeps the dashboard's singleton-in-array shape.
	FetchSingleMonitor(ctx context.Context, monitorID string) ([]model.Monitor, error)
	SetAutoRefresh(ctx context.Context, userID string, refresh bool) (bool, error)
	FetchNotificationGroups(ctx context.Context, userID string) ([]model.NotificationGroup, error)
}

// RemoteCallError is any failure of a remote operation: transport, non-2xx
// status or an unsuccessful envelope.
type RemoteCallError struct {
	Op     string
	Status int
	// Fields carries per-field messages when the dashboard rejected a form.
	Fields map[string]string
	Err    error
}

func (e *RemoteCallError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}
