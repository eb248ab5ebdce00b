// Package reconciler owns the canonical monitor list of a session and merges
// fetch results, push events and form submissions into it.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/naiba/nezha-uptime/model"
	"github.com/naiba/nezha-uptime/pkg/utils"
	"github.com/naiba/nezha-uptime/service/autorefresh"
	"github.com/naiba/nezha-uptime/service/boundary"
	"github.com/naiba/nezha-uptime/service/pagination"
	"github.com/naiba/nezha-uptime/service/preference"
	"github.com/naiba/nezha-uptime/service/push"
)

var ErrNoActiveMonitors = errors.New("there are no active monitors")

// SettleDelay is how long the loading flag stays up after a push.
const SettleDelay = time.Second

const (
	openModalKey = "open"
	listingPath  = "/status"
)

// Fetcher loads every monitor of a user.
type Fetcher interface {
	FetchUserMonitors(ctx context.Context, userID string) ([]model.Monitor, error)
}

// RefreshToggler changes the server side auto-refresh flag and persists the
// result.
type RefreshToggler interface {
	SetRefresh(ctx context.Context, userID string, enabled bool) (bool, error)
}

type UIState struct {
	ShowModal          bool `json:"showModal"`
	AutoRefreshLoading bool `json:"autoRefreshLoading"`
	EnableRefresh      bool `json:"enableRefresh"`
}

// State is a snapshot of everything the reconciler owns.
type State struct {
	UserID    string            `json:"userId"`
	Monitors  []model.Monitor   `json:"monitors"`
	UI        UIState           `json:"ui"`
	Loading   bool              `json:"loading"`
	View      model.ViewMode    `json:"view"`
	Window    pagination.Window `json:"window"`
	HasActive bool              `json:"hasActive"`
	// Seq is the sequence number of the last applied update.
	Seq uint64 `json:"seq"`
}

type Options struct {
	Fetcher    Fetcher
	Listener   push.Listener
	Toggle     RefreshToggler
	Store      preference.Store
	Pages      *pagination.Controller
	Notifier   boundary.Notifier
	Navigator  boundary.Navigator
	Location   boundary.Location
	Translator boundary.Translator
	Clock      clockwork.Clock
	Logger     *zerolog.Logger
}

// Reconciler is safe for concurrent use. Every mutation of the list goes
// through apply, which drops results older than the last applied one.
type Reconciler struct {
	fetcher    Fetcher
	listener   push.Listener
	toggle     RefreshToggler
	store      preference.Store
	pages      *pagination.Controller
	notifier   boundary.Notifier
	navigator  boundary.Navigator
	location   boundary.Location
	translator boundary.Translator
	clock      clockwork.Clock
	logger     zerolog.Logger

	mu        sync.Mutex
	state     State
	seq       uint64 // last issued
	timer     clockwork.Timer
	timerGen  uint64
	handle    push.Handle
	observers []func(State)
}

func New(opts Options) *Reconciler {
	r := &Reconciler{
		fetcher:    opts.Fetcher,
		listener:   opts.Listener,
		toggle:     opts.Toggle,
		store:      opts.Store,
		pages:      opts.Pages,
		notifier:   opts.Notifier,
		navigator:  opts.Navigator,
		location:   opts.Location,
		translator: opts.Translator,
		clock:      opts.Clock,
		logger:     log.Logger,
	}
	if opts.Logger != nil {
		r.logger = *opts.Logger
	}
	if r.store == nil {
		r.store = preference.NewMemoryStore()
	}
	if r.pages == nil {
		r.pages = pagination.New(0, pagination.DefaultPageSize)
	}
	if r.notifier == nil {
		r.notifier = boundary.Nop{}
	}
	if r.navigator == nil {
		r.navigator = boundary.Nop{}
	}
	if r.translator == nil {
		r.translator = boundary.Identity{}
	}
	if r.clock == nil {
		r.clock = clockwork.NewRealClock()
	}
	r.state.Monitors = []model.Monitor{}
	r.state.View = model.ViewBox
	r.state.Window = r.pages.Window()
	return r
}

// Initialize hydrates the preferences, performs the first fetch and
// subscribes to pushes. It is called once per session. A failed fetch is
// reported and leaves the list empty; the subscription is made either way.
func (r *Reconciler) Initialize(ctx context.Context, userID string) error {
	if err := preference.Hydrate(r.store); err != nil {
		r.logger.Warn().Err(err).Msg("[Reconciler] Hydrate preferences failed")
	}

	r.mu.Lock()
	r.state.UserID = userID
	r.state.View = preference.View(r.store)
	r.state.UI.EnableRefresh = preference.AutoRefresh(r.store)
	if r.location != nil {
		r.state.UI.ShowModal = r.location.Get(openModalKey) == "true"
	}
	r.state.Loading = true
	seq := r.nextSeqLocked()
	r.commitLocked()

	if r.listener != nil {
		r.subscribe()
	}

	monitors, err := r.fetcher.FetchUserMonitors(ctx, userID)

	r.mu.Lock()
	r.state.Loading = false
	if err == nil {
		r.applyLocked(seq, monitors)
	}
	r.commitLocked()

	if err != nil {
		r.logger.Warn().Err(err).Str("user_id", userID).Msg("[Reconciler] Initial fetch failed")
		r.notifier.Error(r.translator.T("LoadMonitorsFailed"))
		return fmt.Errorf("initialize: %w", err)
	}
	return nil
}

// Refresh refetches the list. It needs at least one active monitor.
func (r *Reconciler) Refresh(ctx context.Context) error {
	r.mu.Lock()
	if !hasActive(r.state.Monitors) {
		r.mu.Unlock()
		r.notifier.Error(r.translator.T("NoActiveMonitors"))
		return ErrNoActiveMonitors
	}
	userID := r.state.UserID
	seq := r.nextSeqLocked()
	r.stopTimerLocked()
	r.state.UI.AutoRefreshLoading = true
	r.commitLocked()

	monitors, err := r.fetcher.FetchUserMonitors(ctx, userID)

	r.mu.Lock()
	if err == nil {
		r.applyLocked(seq, monitors)
	}
	// 推送在途时由结算定时器负责清除标志
	r.clearLoadingLocked()
	r.commitLocked()
	if err != nil {
		r.logger.Warn().Err(err).Str("user_id", userID).Msg("[Reconciler] Refresh failed")
		r.notifier.Error(r.translator.T("RefreshFailed"))
		return fmt.Errorf("refresh: %w", err)
	}
	return nil
}

// OnPushUpdate applies a push event. Events of other users only force the
// loading flag down.
func (r *Reconciler) OnPushUpdate(ev model.MonitorsUpdatedEvent) {
	r.mu.Lock()
	if ev.UserID != r.state.UserID {
		r.stopTimerLocked()
		r.state.UI.AutoRefreshLoading = false
		r.commitLocked()
		r.logger.Debug().Str("user_id", ev.UserID).Msg("[Reconciler] Ignoring push for another user")
		return
	}
	r.applyLocked(r.nextSeqLocked(), ev.Monitors)
	r.state.UI.AutoRefreshLoading = true
	r.scheduleSettleLocked()
	r.commitLocked()
}

// ToggleAutoRefresh flips the persisted refresh preference through the
// dashboard. It needs at least one active monitor.
func (r *Reconciler) ToggleAutoRefresh(ctx context.Context) error {
	r.mu.Lock()
	if !hasActive(r.state.Monitors) {
		r.mu.Unlock()
		r.notifier.Error(r.translator.T("NoActiveMonitors"))
		return ErrNoActiveMonitors
	}
	userID := r.state.UserID
	want := !r.state.UI.EnableRefresh
	r.state.UI.AutoRefreshLoading = true
	r.commitLocked()

	refresh, err := r.toggle.SetRefresh(ctx, userID, want)
	if err != nil && !errors.Is(err, autorefresh.ErrNotPersisted) {
		r.mu.Lock()
		r.clearLoadingLocked()
		r.commitLocked()
		r.logger.Warn().Err(err).Str("user_id", userID).Msg("[Reconciler] Toggle auto refresh failed")
		r.notifier.Error(r.translator.T("AutoRefreshFailed"))
		return fmt.Errorf("toggle auto refresh: %w", err)
	}
	if err != nil {
		// 服务端已切换, 仅本地保存失败
		r.logger.Warn().Err(err).Str("user_id", userID).Msg("[Reconciler] Auto refresh preference not saved")
	}

	r.mu.Lock()
	r.state.UI.EnableRefresh = refresh
	r.clearLoadingLocked()
	r.commitLocked()
	r.notifier.Success(r.translator.T(utils.IfOr(refresh, "AutoRefreshEnabled", "AutoRefreshDisabled")))
	return nil
}

func (r *Reconciler) OpenModal() {
	r.mu.Lock()
	r.state.UI.ShowModal = true
	r.commitLocked()
}

// CloseModal hides the modal and drops the open flag from the caller's
// location, keeping the rest of its query.
func (r *Reconciler) CloseModal() {
	r.mu.Lock()
	r.state.UI.ShowModal = false
	r.commitLocked()

	if r.location == nil {
		r.navigator.Push(listingPath)
		return
	}
	r.location.Del(openModalKey)
	r.navigator.Push(listingPath + "?" + r.location.Encode())
}

func (r *Reconciler) HasActiveMonitors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return hasActive(r.state.Monitors)
}

func (r *Reconciler) View() model.ViewMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.View
}

// SetView persists mode. Unknown modes are stored as box.
func (r *Reconciler) SetView(mode model.ViewMode) error {
	mode = model.ParseViewMode(string(mode))
	if err := preference.SetView(r.store, mode); err != nil {
		return err
	}
	r.mu.Lock()
	r.state.View = mode
	r.commitLocked()
	return nil
}

func (r *Reconciler) PageSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pages.Get()
}

func (r *Reconciler) SetPageSize(size int) error {
	r.mu.Lock()
	if err := r.pages.Set(size); err != nil {
		r.mu.Unlock()
		return err
	}
	r.state.Window = r.pages.Window()
	r.commitLocked()
	return nil
}

// Goto moves the listing window to the zero based page.
func (r *Reconciler) Goto(page int) {
	r.mu.Lock()
	r.pages.Goto(page)
	r.state.Window = r.pages.Window()
	r.commitLocked()
}

// Page is the part of the list inside the current window.
func (r *Reconciler) Page() []model.Monitor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return utils.Clone(pagination.Slice(r.state.Monitors, r.state.Window))
}

// MergeCreated prepends a monitor returned by a successful create. A push
// may already have delivered it, in which case it is replaced in place.
func (r *Reconciler) MergeCreated(m model.Monitor) {
	r.mu.Lock()
	var next []model.Monitor
	if _, idx, ok := lo.FindIndexOf(r.state.Monitors, func(item model.Monitor) bool { return item.ID == m.ID }); ok {
		next = utils.Clone(r.state.Monitors)
		next[idx] = m
	} else {
		next = make([]model.Monitor, 0, len(r.state.Monitors)+1)
		next = append(next, m)
		next = append(next, r.state.Monitors...)
	}
	r.applyLocked(r.nextSeqLocked(), next)
	r.commitLocked()
}

// MergeUpdated replaces the monitor with the same id in place. It does
// nothing when the id is not in the list.
func (r *Reconciler) MergeUpdated(m model.Monitor) {
	r.mu.Lock()
	_, idx, ok := lo.FindIndexOf(r.state.Monitors, func(item model.Monitor) bool { return item.ID == m.ID })
	if !ok {
		r.mu.Unlock()
		r.logger.Debug().Str("monitor_id", m.ID).Msg("[Reconciler] Updated monitor not in list")
		return
	}
	next := utils.Clone(r.state.Monitors)
	next[idx] = m
	r.applyLocked(r.nextSeqLocked(), next)
	r.commitLocked()
}

// Snapshot returns a deep copy of the current state.
func (r *Reconciler) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// OnChange registers fn to be called with a snapshot after every change.
// Calls happen outside the reconciler's lock.
func (r *Reconciler) OnChange(fn func(State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}

// Close unsubscribes from pushes and stops the settle timer.
func (r *Reconciler) Close() error {
	r.mu.Lock()
	handle := r.handle
	r.handle = ""
	r.stopTimerLocked()
	r.mu.Unlock()
	if handle != "" && r.listener != nil {
		return r.listener.Unsubscribe(handle)
	}
	return nil
}

func (r *Reconciler) subscribe() {
	r.mu.Lock()
	subscribed := r.handle != ""
	r.mu.Unlock()
	if subscribed {
		return
	}
	handle, err := r.listener.Subscribe(r.OnPushUpdate)
	if err != nil {
		r.logger.Warn().Err(err).Msg("[Reconciler] Subscribe failed")
		return
	}
	r.mu.Lock()
	r.handle = handle
	r.mu.Unlock()
}

func (r *Reconciler) nextSeqLocked() uint64 {
	r.seq++
	return r.seq
}

// applyLocked replaces the list unless a newer update has been applied.
func (r *Reconciler) applyLocked(seq uint64, monitors []model.Monitor) bool {
	if seq < r.state.Seq {
		r.logger.Debug().Uint64("seq", seq).Uint64("applied", r.state.Seq).Msg("[Reconciler] Discarding stale result")
		return false
	}
	r.state.Seq = seq
	r.state.Monitors = utils.Clone(monitors)
	for i := range r.state.Monitors {
		r.state.Monitors[i].Normalize()
	}
	r.state.HasActive = hasActive(r.state.Monitors)
	return true
}

// commitLocked releases the lock and notifies observers.
func (r *Reconciler) commitLocked() {
	snap := r.snapshotLocked()
	observers := utils.Clone(r.observers)
	r.mu.Unlock()
	for _, fn := range observers {
		fn(snap)
	}
}

func (r *Reconciler) snapshotLocked() State {
	s := r.state
	s.Monitors = utils.Clone(r.state.Monitors)
	return s
}

func (r *Reconciler) scheduleSettleLocked() {
	r.stopTimerLocked()
	gen := r.timerGen
	r.timer = r.clock.AfterFunc(SettleDelay, func() { r.settle(gen) })
}

func (r *Reconciler) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.timerGen++
}

// clearLoadingLocked drops the loading flag unless a push is still settling.
func (r *Reconciler) clearLoadingLocked() {
	if r.timer == nil {
		r.state.UI.AutoRefreshLoading = false
	}
}

func (r *Reconciler) settle(gen uint64) {
	r.mu.Lock()
	if gen != r.timerGen {
		r.mu.Unlock()
		return
	}
	r.timer = nil
	r.state.UI.AutoRefreshLoading = false
	r.commitLocked()
}

func hasActive(monitors []model.Monitor) bool {
	return lo.SomeBy(monitors, func(m model.Monitor) bool { return m.Active })
}
