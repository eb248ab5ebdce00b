// Package form drives the create and edit screens of a monitor: validation,
// normalization, submission and folding the saved record back into the list.
package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/naiba/nezha-uptime/model"
	"github.com/naiba/nezha-uptime/service/boundary"
)

var (
	ErrSubmitInFlight  = errors.New("a submission is already in flight")
	ErrMonitorNotFound = errors.New("monitor not found")
)

const listingPath = "/status"

type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseInvalid
	PhaseSubmitting
	PhaseSuccess
	PhaseFailed
)

var phaseNames = map[Phase]string{
	PhaseIdle:       "idle",
	PhaseValidating: "validating",
	PhaseInvalid:    "invalid",
	PhaseSubmitting: "submitting",
	PhaseSuccess:    "success",
	PhaseFailed:     "failed",
}

func (p Phase) String() string {
	return phaseNames[p]
}

// Remote is the part of the dashboard API the form needs.
type Remote interface {
	CreateMonitor(ctx context.Context, m model.Monitor) (model.Monitor, error)
	UpdateMonitor(ctx context.Context, monitorID, userID string, m model.Monitor) (model.Monitor, error)
	FetchSingleMonitor(ctx context.Context, monitorID string) ([]model.Monitor, error)
}

// Merger folds a saved monitor into the canonical list.
type Merger interface {
	MergeCreated(m model.Monitor)
	MergeUpdated(m model.Monitor)
}

type Options struct {
	Remote     Remote
	Merger     Merger
	Notifier   boundary.Notifier
	Navigator  boundary.Navigator
	Translator boundary.Translator
	Logger     *zerolog.Logger
	// UserID, when set, owns every submitted monitor.
	UserID string
}

// Controller allows one submission at a time; a second Submit while one is
// in flight returns ErrSubmitInFlight and does nothing else.
type Controller struct {
	remote     Remote
	merger     Merger
	notifier   boundary.Notifier
	navigator  boundary.Navigator
	translator boundary.Translator
	logger     zerolog.Logger
	userID     string

	mu     sync.Mutex
	phase  Phase
	form   model.MonitorForm
	errs   model.ValidationError
	groups []model.NotificationGroup
}

func New(opts Options) *Controller {
	c := &Controller{
		remote:     opts.Remote,
		merger:     opts.Merger,
		notifier:   opts.Notifier,
		navigator:  opts.Navigator,
		translator: opts.Translator,
		logger:     log.Logger,
		userID:     opts.UserID,
	}
	if opts.Logger != nil {
		c.logger = *opts.Logger
	}
	if c.notifier == nil {
		c.notifier = boundary.Nop{}
	}
	if c.navigator == nil {
		c.navigator = boundary.Nop{}
	}
	if c.translator == nil {
		c.translator = boundary.Identity{}
	}
	return c
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Form is the form state last submitted, loaded or edited.
func (c *Controller) Form() model.MonitorForm {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// Errors holds the field errors of the last validation.
func (c *Controller) Errors() model.ValidationError {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(model.ValidationError, len(c.errs))
	for k, v := range c.errs {
		out[k] = v
	}
	return out
}

// Edit records a user change. A form that was invalid or failed goes back
// to idle.
func (c *Controller) Edit(f model.MonitorForm) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = f
	if c.phase == PhaseInvalid || c.phase == PhaseFailed {
		c.phase = PhaseIdle
	}
}

// SetNotificationGroups limits notificationId to the given groups. With no
// groups any id is accepted.
func (c *Controller) SetNotificationGroups(groups []model.NotificationGroup) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups = groups
}

// Submit validates raw, normalizes it and sends it to the dashboard. On
// success the saved monitor is merged into the list, the caller is sent
// back to the listing and a success notification is shown.
func (c *Controller) Submit(ctx context.Context, raw model.MonitorForm, mode Mode) (model.Monitor, error) {
	c.mu.Lock()
	if c.phase == PhaseSubmitting {
		c.mu.Unlock()
		return model.Monitor{}, ErrSubmitInFlight
	}
	if c.userID != "" {
		raw.UserID = c.userID
	}
	c.form = raw
	c.phase = PhaseValidating
	if err := c.validateLocked(raw, mode); err != nil {
		c.phase = PhaseInvalid
		c.mu.Unlock()
		c.logger.Debug().Err(err).Str("mode", mode.String()).Msg("[Form] Invalid monitor")
		return model.Monitor{}, err
	}
	c.phase = PhaseSubmitting
	c.mu.Unlock()

	m := raw.Monitor()
	typeName := strings.ToUpper(m.Type)

	var (
		saved model.Monitor
		err   error
	)
	switch mode {
	case ModeEdit:
		saved, err = c.remote.UpdateMonitor(ctx, m.ID, m.UserID, m)
	default:
		saved, err = c.remote.CreateMonitor(ctx, m)
	}
	if err != nil {
		c.setPhase(PhaseFailed)
		c.logger.Warn().Err(err).Str("mode", mode.String()).Str("type", m.Type).Msg("[Form] Submit failed")
		c.notifier.Error(c.translator.T(
			lo.Ternary(mode == ModeEdit, "MonitorUpdateFailed", "MonitorCreateFailed"),
			map[string]any{"Type": typeName}))
		return model.Monitor{}, fmt.Errorf("%s monitor: %w", mode, err)
	}

	if saved.ID == "" {
		saved.ID = m.ID
	}
	saved.Normalize()
	if c.merger != nil {
		if mode == ModeEdit {
			c.merger.MergeUpdated(saved)
		} else {
			c.merger.MergeCreated(saved)
		}
	}
	c.setPhase(PhaseSuccess)
	c.navigator.Push(listingPath)
	c.notifier.Success(c.translator.T(
		lo.Ternary(mode == ModeEdit, "MonitorUpdated", "MonitorCreated"),
		map[string]any{"Type": typeName}))
	return saved, nil
}

// LoadForEdit fetches one monitor and makes it the form state. Missing
// fields in the response fall back to their defaults.
func (c *Controller) LoadForEdit(ctx context.Context, monitorID string) (model.MonitorForm, error) {
	monitors, err := c.remote.FetchSingleMonitor(ctx, monitorID)
	if err == nil && len(monitors) == 0 {
		err = ErrMonitorNotFound
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("monitor_id", monitorID).Msg("[Form] Load monitor failed")
		c.notifier.Error(c.translator.T("MonitorLoadFailed"))
		return model.MonitorForm{}, fmt.Errorf("load monitor %s: %w", monitorID, err)
	}

	m := monitors[0]
	m.Normalize()
	var f model.MonitorForm
	if err := copier.Copy(&f, &m); err != nil {
		return model.MonitorForm{}, err
	}
	if f.ID == "" {
		f.ID = monitorID
	}
	if c.userID != "" {
		f.UserID = c.userID
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = f
	c.errs = nil
	c.phase = PhaseIdle
	return f, nil
}

func (c *Controller) validateLocked(f model.MonitorForm, mode Mode) error {
	ve := model.ValidationError{}
	if err := model.ValidateMonitorForm(f); err != nil {
		if !errors.As(err, &ve) {
			return err
		}
	}
	if mode == ModeEdit {
		if f.ID == "" {
			ve["id"] = "id is required"
		}
		if f.UserID == "" {
			ve["userId"] = "userId is required"
		}
	}
	if f.NotificationID != 0 && len(c.groups) > 0 {
		known := lo.ContainsBy(c.groups, func(g model.NotificationGroup) bool { return g.ID == f.NotificationID })
		if !known {
			ve["notificationId"] = "notificationId is not a known notification group"
		}
	}
	if len(ve) == 0 {
		c.errs = nil
		return nil
	}
	c.errs = ve
	return ve
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = p
}
