package reconciler

import (
	"context"
	"errors"
	"math/rand"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naiba/nezha-uptime/model"
	"github.com/naiba/nezha-uptime/service/autorefresh"
	"github.com/naiba/nezha-uptime/service/boundary"
	"github.com/naiba/nezha-uptime/service/preference"
	"github.com/naiba/nezha-uptime/service/push"
)

type fetchResult struct {
	monitors []model.Monitor
	err      error
}

// fakeFetcher answers from a queue. With gate set, each call blocks until
// a result is sent on it.
type fakeFetcher struct {
	mu      sync.Mutex
	queue   []fetchResult
	gate    chan fetchResult
	started chan struct{}
	calls   int
}

func (f *fakeFetcher) FetchUserMonitors(ctx context.Context, _ string) ([]model.Monitor, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	var res fetchResult
	if gate == nil && len(f.queue) > 0 {
		res, f.queue = f.queue[0], f.queue[1:]
	}
	f.mu.Unlock()
	if gate != nil {
		f.started <- struct{}{}
		res = <-gate
	}
	return res.monitors, res.err
}

func (f *fakeFetcher) push(monitors []model.Monitor, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fetchResult{monitors: monitors, err: err})
}

func (f *fakeFetcher) block() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan fetchResult)
	f.started = make(chan struct{}, 1)
}

type fakeSetter struct {
	err error
}

func (s *fakeSetter) SetAutoRefresh(_ context.Context, _ string, refresh bool) (bool, error) {
	return refresh, s.err
}

type fixture struct {
	r        *Reconciler
	fetcher  *fakeFetcher
	setter   *fakeSetter
	store    *preference.MemoryStore
	hub      *push.Hub
	recorder *boundary.Recorder
	location url.Values
	clock    *clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	nop := zerolog.Nop()
	f := &fixture{
		fetcher:  &fakeFetcher{},
		setter:   &fakeSetter{},
		store:    preference.NewMemoryStore(),
		hub:      push.NewHub().WithLogger(nop),
		recorder: &boundary.Recorder{},
		location: url.Values{},
		clock:    clockwork.NewFakeClock(),
	}
	f.r = New(Options{
		Fetcher:   f.fetcher,
		Listener:  f.hub,
		Toggle:    autorefresh.NewToggle(f.setter, f.store),
		Store:     f.store,
		Notifier:  f.recorder,
		Navigator: f.recorder,
		Location:  f.location,
		Clock:     f.clock,
		Logger:    &nop,
	})
	t.Cleanup(func() {
		f.r.Close()
		f.hub.Close()
	})
	return f
}

func (f *fixture) init(t *testing.T, monitors ...model.Monitor) {
	t.Helper()
	f.fetcher.push(monitors, nil)
	require.NoError(t, f.r.Initialize(context.Background(), "u1"))
}

func ids(monitors []model.Monitor) []string {
	out := make([]string, 0, len(monitors))
	for _, m := range monitors {
		out = append(out, m.ID)
	}
	return out
}

func TestInitialize(t *testing.T) {
	f := newFixture(t)
	f.location.Set("open", "true")
	f.init(t, model.Monitor{ID: "1", Active: true}, model.Monitor{ID: "2"})

	s := f.r.Snapshot()
	assert.Equal(t, "u1", s.UserID)
	assert.Equal(t, []string{"1", "2"}, ids(s.Monitors))
	assert.False(t, s.Loading)
	assert.True(t, s.UI.ShowModal)
	assert.False(t, s.UI.EnableRefresh)
	assert.Equal(t, model.ViewBox, s.View)
	assert.True(t, s.HasActive)
	// normalized at ingestion
	assert.Equal(t, model.DefaultTimeout, s.Monitors[0].Timeout)

	v, err := f.store.Get(model.PreferenceKeyView)
	require.NoError(t, err)
	assert.Equal(t, "box", v)
	v, err = f.store.Get(model.PreferenceKeyRefresh)
	require.NoError(t, err)
	assert.Equal(t, "false", v)

	assert.Equal(t, 1, f.hub.Len())
	f.hub.Publish(context.Background(), model.MonitorsUpdatedEvent{UserID: "u1", Monitors: []model.Monitor{{ID: "3"}}})
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"3"}, ids(f.r.Snapshot().Monitors))
	}, time.Second, 5*time.Millisecond)
}

func TestInitializeReadsPersistedPreferences(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Set(model.PreferenceKeyView, "table"))
	require.NoError(t, f.store.Set(model.PreferenceKeyRefresh, `"true"`))
	f.init(t)

	s := f.r.Snapshot()
	assert.Equal(t, model.ViewTable, s.View)
	assert.True(t, s.UI.EnableRefresh)
	assert.False(t, s.UI.ShowModal)
}

func TestInitializeFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Set(model.PreferenceKeyRefresh, "yes please"))
	f.fetcher.push(nil, errors.New("offline"))

	err := f.r.Initialize(context.Background(), "u1")
	assert.Error(t, err)
	s := f.r.Snapshot()
	assert.Empty(t, s.Monitors)
	assert.NotNil(t, s.Monitors)
	assert.False(t, s.Loading)
	assert.False(t, s.UI.EnableRefresh)
	assert.Equal(t, []boundary.Note{{Msg: "LoadMonitorsFailed"}}, f.recorder.Notes())
	// still subscribed
	assert.Equal(t, 1, f.hub.Len())
}

func TestRefreshWithoutActiveMonitors(t *testing.T) {
	f := newFixture(t)
	f.init(t, model.Monitor{ID: "1", Active: false})
	before := f.r.Snapshot()

	assert.ErrorIs(t, f.r.Refresh(context.Background()), ErrNoActiveMonitors)
	assert.ErrorIs(t, f.r.ToggleAutoRefresh(context.Background()), ErrNoActiveMonitors)

	assert.Equal(t, before, f.r.Snapshot())
	assert.Equal(t, 1, f.fetcher.calls)
	assert.Len(t, f.recorder.Notes(), 2)
}

func TestRefreshOnEmptyList(t *testing.T) {
	f := newFixture(t)
	f.init(t)
	assert.False(t, f.r.HasActiveMonitors())
	assert.ErrorIs(t, f.r.Refresh(context.Background()), ErrNoActiveMonitors)
}

func TestRefreshReplacesList(t *testing.T) {
	f := newFixture(t)
	f.init(t, model.Monitor{ID: "1", Active: true})
	f.fetcher.push([]model.Monitor{{ID: "1", Active: true}, {ID: "2", Active: false}}, nil)

	var loading []bool
	f.r.OnChange(func(s State) { loading = append(loading, s.UI.AutoRefreshLoading) })

	require.NoError(t, f.r.Refresh(context.Background()))
	s := f.r.Snapshot()
	assert.Equal(t, []string{"1", "2"}, ids(s.Monitors))
	assert.False(t, s.UI.AutoRefreshLoading)
	assert.Equal(t, []bool{true, false}, loading)
}

func TestRefreshFailureKeepsList(t *testing.T) {
	f := newFixture(t)
	f.init(t, model.Monitor{ID: "1", Active: true})
	f.fetcher.push(nil, errors.New("boom"))

	assert.Error(t, f.r.Refresh(context.Background()))
	s := f.r.Snapshot()
	assert.Equal(t, []string{"1"}, ids(s.Monitors))
	assert.False(t, s.UI.AutoRefreshLoading)
	assert.Equal(t, []boundary.Note{{Msg: "RefreshFailed"}}, f.recorder.Notes())
}

func TestPushDuringRefreshWins(t *testing.T) {
	f := newFixture(t)
	f.init(t, model.Monitor{ID: "1", Active: true})
	f.fetcher.block()

	done := make(chan error)
	go func() { done <- f.r.Refresh(context.Background()) }()
	<-f.fetcher.started

	f.r.OnPushUpdate(model.MonitorsUpdatedEvent{UserID: "u1", Monitors: []model.Monitor{{ID: "push", Active: true}}})
	f.fetcher.gate <- fetchResult{monitors: []model.Monitor{{ID: "stale", Active: true}}}
	require.NoError(t, <-done)

	s := f.r.Snapshot()
	assert.Equal(t, []string{"push"}, ids(s.Monitors))
	// the push owns the flag until it settles
	assert.True(t, s.UI.AutoRefreshLoading)
}

func TestMergeDuringRefreshWins(t *testing.T) {
	f := newFixture(t)
	f.init(t, model.Monitor{ID: "1", Active: true})
	f.fetcher.block()

	done := make(chan error)
	go func() { done <- f.r.Refresh(context.Background()) }()
	<-f.fetcher.started

	f.r.MergeCreated(model.Monitor{ID: "new", Active: true})
	f.fetcher.gate <- fetchResult{monitors: []model.Monitor{{ID: "1", Active: true}}}
	require.NoError(t, <-done)

	s := f.r.Snapshot()
	assert.Equal(t, []string{"new", "1"}, ids(s.Monitors))
	// no push is settling, so the discarded refresh still drops the flag
	assert.False(t, s.UI.AutoRefreshLoading)
	f.clock.Advance(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.False(t, f.r.Snapshot().UI.AutoRefreshLoading)
}

func TestFailedRefreshAfterMergeClearsFlag(t *testing.T) {
	f := newFixture(t)
	f.init(t, model.Monitor{ID: "1", Active: true})
	f.fetcher.block()

	done := make(chan error)
	go func() { done <- f.r.Refresh(context.Background()) }()
	<-f.fetcher.started

	f.r.MergeUpdated(model.Monitor{ID: "1", Name: "renamed", Active: true})
	f.fetcher.gate <- fetchResult{err: errors.New("boom")}
	require.Error(t, <-done)

	s := f.r.Snapshot()
	assert.Equal(t, "renamed", s.Monitors[0].Name)
	assert.False(t, s.UI.AutoRefreshLoading)
}

func TestCreatedMonitorAlreadyPushed(t *testing.T) {
	f := newFixture(t)
	f.init(t, model.Monitor{ID: "web", Active: true})

	f.r.OnPushUpdate(model.MonitorsUpdatedEvent{UserID: "u1", Monitors: []model.Monitor{
		{ID: "db", Name: "db", Active: true},
		{ID: "web", Active: true},
	}})
	f.r.MergeCreated(model.Monitor{ID: "db", Name: "db-created", Active: true})

	s := f.r.Snapshot()
	assert.Equal(t, []string{"db", "web"}, ids(s.Monitors))
	assert.Equal(t, "db-created", s.Monitors[0].Name)
}

func TestPushForAnotherUser(t *testing.T) {
	f := newFixture(t)
	f.init(t, model.Monitor{ID: "1", Active: true})
	f.r.OnPushUpdate(model.MonitorsUpdatedEvent{UserID: "u1", Monitors: []model.Monitor{{ID: "2", Active: true}}})
	require.True(t, f.r.Snapshot().UI.AutoRefreshLoading)

	f.r.OnPushUpdate(model.MonitorsUpdatedEvent{UserID: "someone-else", Monitors: []model.Monitor{{ID: "x"}}})
	s := f.r.Snapshot()
	assert.Equal(t, []string{"2"}, ids(s.Monitors))
	assert.False(t, s.UI.AutoRefreshLoading)
}

func TestSettleTimerIsSingleSlot(t *testing.T) {
	f := newFixture(t)
	f.init(t, model.Monitor{ID: "1", Active: true})

	var mu sync.Mutex
	clears := 0
	last := false
	f.r.OnChange(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		if last && !s.UI.AutoRefreshLoading {
			clears++
		}
		last = s.UI.AutoRefreshLoading
	})
	cleared := func() int {
		mu.Lock()
		defer mu.Unlock()
		return clears
	}

	ev := model.MonitorsUpdatedEvent{UserID: "u1", Monitors: []model.Monitor{{ID: "1", Active: true}}}
	f.r.OnPushUpdate(ev)
	f.clock.Advance(500 * time.Millisecond)
	f.r.OnPushUpdate(ev)
	f.clock.Advance(500 * time.Millisecond)
	f.r.OnPushUpdate(ev)

	f.clock.Advance(999 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.True(t, f.r.Snapshot().UI.AutoRefreshLoading)
	assert.Equal(t, 0, cleared())

	f.clock.Advance(time.Millisecond)
	assert.Eventually(t, func() bool { return !f.r.Snapshot().UI.AutoRefreshLoading }, time.Second, 5*time.Millisecond)
	f.clock.Advance(5 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, cleared())
}

func TestToggleAutoRefresh(t *testing.T) {
	f := newFixture(t)
	f.init(t, model.Monitor{ID: "1", Active: true})

	var loading []bool
	f.r.OnChange(func(s State) { loading = append(loading, s.UI.AutoRefreshLoading) })

	require.NoError(t, f.r.ToggleAutoRefresh(context.Background()))
	assert.Equal(t, []bool{true, false}, loading)
	v, err := f.store.Get(model.PreferenceKeyRefresh)
	require.NoError(t, err)
	assert.Equal(t, "true", v)
	assert.True(t, f.r.Snapshot().UI.EnableRefresh)

	require.NoError(t, f.r.ToggleAutoRefresh(context.Background()))
	v, err = f.store.Get(model.PreferenceKeyRefresh)
	require.NoError(t, err)
	assert.Equal(t, "false", v)
	assert.False(t, f.r.Snapshot().UI.EnableRefresh)

	assert.Equal(t, []boundary.Note{
		{OK: true, Msg: "AutoRefreshEnabled"},
		{OK: true, Msg: "AutoRefreshDisabled"},
	}, f.recorder.Notes())
}

func TestToggleAutoRefreshFailure(t *testing.T) {
	f := newFixture(t)
	f.init(t, model.Monitor{ID: "1", Active: true})
	f.setter.err = errors.New("denied")
	before := f.r.Snapshot()

	assert.Error(t, f.r.ToggleAutoRefresh(context.Background()))
	assert.Equal(t, before, f.r.Snapshot())
	assert.False(t, preference.AutoRefresh(f.store))
	assert.Equal(t, []boundary.Note{{Msg: "AutoRefreshFailed"}}, f.recorder.Notes())
}

// failingStore accepts reads and rejects writes.
type failingStore struct {
	preference.Store
}

func (failingStore) Set(string, string) error { return errors.New("disk full") }

func TestToggleAutoRefreshNotPersisted(t *testing.T) {
	f := newFixture(t)
	nop := zerolog.Nop()
	r := New(Options{
		Fetcher:  f.fetcher,
		Toggle:   autorefresh.NewToggle(f.setter, failingStore{f.store}),
		Store:    f.store,
		Notifier: f.recorder,
		Clock:    f.clock,
		Logger:   &nop,
	})
	f.fetcher.push([]model.Monitor{{ID: "1", Active: true}}, nil)
	require.NoError(t, r.Initialize(context.Background(), "u1"))

	require.NoError(t, r.ToggleAutoRefresh(context.Background()))
	s := r.Snapshot()
	assert.True(t, s.UI.EnableRefresh)
	assert.False(t, s.UI.AutoRefreshLoading)

	// the next toggle follows the dashboard, not the stale store
	require.NoError(t, r.ToggleAutoRefresh(context.Background()))
	assert.False(t, r.Snapshot().UI.EnableRefresh)
	assert.Equal(t, []boundary.Note{
		{OK: true, Msg: "AutoRefreshEnabled"},
		{OK: true, Msg: "AutoRefreshDisabled"},
	}, f.recorder.Notes())
}

func TestCloseModal(t *testing.T) {
	f := newFixture(t)
	f.location.Set("open", "true")
	f.location.Set("tab", "http")
	f.init(t)
	require.True(t, f.r.Snapshot().UI.ShowModal)

	f.r.CloseModal()
	assert.False(t, f.r.Snapshot().UI.ShowModal)
	assert.Equal(t, []string{"/status?tab=http"}, f.recorder.Paths())
	assert.Equal(t, url.Values{"tab": {"http"}}, f.location)

	f.r.OpenModal()
	assert.True(t, f.r.Snapshot().UI.ShowModal)
}

func TestMerge(t *testing.T) {
	f := newFixture(t)
	f.init(t, model.Monitor{ID: "1", Name: "a"}, model.Monitor{ID: "2", Name: "b"})

	f.r.MergeCreated(model.Monitor{ID: "3", Name: "c", Active: true})
	assert.Equal(t, []string{"3", "1", "2"}, ids(f.r.Snapshot().Monitors))
	assert.True(t, f.r.HasActiveMonitors())

	f.r.MergeUpdated(model.Monitor{ID: "1", Name: "a2"})
	s := f.r.Snapshot()
	assert.Equal(t, []string{"3", "1", "2"}, ids(s.Monitors))
	assert.Equal(t, "a2", s.Monitors[1].Name)

	f.r.MergeUpdated(model.Monitor{ID: "missing"})
	assert.Equal(t, s, f.r.Snapshot())
}

func TestSnapshotIsACopy(t *testing.T) {
	f := newFixture(t)
	f.init(t, model.Monitor{ID: "1", Name: "a"})
	s := f.r.Snapshot()
	s.Monitors[0].Name = "changed"
	assert.Equal(t, "a", f.r.Snapshot().Monitors[0].Name)
}

func TestViewAndPagination(t *testing.T) {
	f := newFixture(t)
	monitors := make([]model.Monitor, 0, 25)
	for i := 0; i < 25; i++ {
		monitors = append(monitors, model.Monitor{ID: string(rune('a' + i))})
	}
	f.init(t, monitors...)

	require.NoError(t, f.r.SetView(model.ViewTable))
	assert.Equal(t, model.ViewTable, f.r.View())
	assert.Equal(t, model.ViewTable, preference.View(f.store))
	require.NoError(t, f.r.SetView("grid"))
	assert.Equal(t, model.ViewBox, f.r.View())

	assert.Equal(t, 10, f.r.PageSize())
	assert.Len(t, f.r.Page(), 10)
	assert.Error(t, f.r.SetPageSize(0))
	require.NoError(t, f.r.SetPageSize(20))
	f.r.Goto(1)
	page := f.r.Page()
	assert.Len(t, page, 5)
	assert.Equal(t, "u", page[0].ID)
}

func TestCloseUnsubscribes(t *testing.T) {
	f := newFixture(t)
	f.init(t)
	require.Equal(t, 1, f.hub.Len())
	require.NoError(t, f.r.Close())
	assert.Equal(t, 0, f.hub.Len())
	require.NoError(t, f.r.Close())
}

// Results are applied in random order; the list must always hold the payload
// with the highest sequence number applied so far.
func TestApplyKeepsHighestSequence(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		r := New(Options{Fetcher: &fakeFetcher{}, Clock: clockwork.NewFakeClock()})

		n := 2 + rnd.Intn(10)
		seqs := make([]uint64, n)
		r.mu.Lock()
		for i := range seqs {
			seqs[i] = r.nextSeqLocked()
		}
		r.mu.Unlock()
		rnd.Shuffle(n, func(i, j int) { seqs[i], seqs[j] = seqs[j], seqs[i] })

		var highest uint64
		for _, seq := range seqs {
			r.mu.Lock()
			r.applyLocked(seq, []model.Monitor{{ID: string(rune('0' + seq))}})
			r.mu.Unlock()
			if seq > highest {
				highest = seq
			}
			s := r.Snapshot()
			assert.Equal(t, highest, s.Seq)
			assert.Equal(t, []string{string(rune('0' + highest))}, ids(s.Monitors))
		}
	}
}
