package autorefresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/naiba/nezha-uptime/model"
	"github.com/naiba/nezha-uptime/service/push"
)

// MonitorLoader returns the current monitors of a user.
type MonitorLoader interface {
	UserMonitors(ctx context.Context, userID string) ([]model.Monitor, error)
}

// Scheduler publishes a MonitorsUpdated event for every enabled user once per
// interval.
type Scheduler struct {
	cron     *cron.Cron
	interval time.Duration
	loader   MonitorLoader
	pub      push.Publisher
	logger   zerolog.Logger

	mu   sync.Mutex
	jobs map[string]cron.EntryID
}

func NewScheduler(interval time.Duration, loader MonitorLoader, pub push.Publisher) *Scheduler {
	if interval < time.Second {
		interval = time.Second
	}
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		interval: interval,
		loader:   loader,
		pub:      pub,
		logger:   log.Logger,
		jobs:     make(map[string]cron.EntryID),
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Set enables or disables the periodic push of userID. It is idempotent.
func (s *Scheduler) Set(userID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.jobs[userID]
	switch {
	case enabled && !ok:
		spec := fmt.Sprintf("@every %s", s.interval)
		id, err := s.cron.AddFunc(spec, func() {
			if err := s.Tick(context.Background(), userID); err != nil {
				s.logger.Warn().Err(err).Str("user_id", userID).Msg("[AutoRefresh] Push failed")
			}
		})
		if err != nil {
			return err
		}
		s.jobs[userID] = id
	case !enabled && ok:
		s.cron.Remove(id)
		delete(s.jobs, userID)
	}
	return nil
}

func (s *Scheduler) Enabled(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[userID]
	return ok
}

// Tick loads the monitors of userID and publishes them once.
func (s *Scheduler) Tick(ctx context.Context, userID string) error {
	monitors, err := s.loader.UserMonitors(ctx, userID)
	if err != nil {
		return err
	}
	return s.pub.Publish(ctx, model.MonitorsUpdatedEvent{UserID: userID, Monitors: monitors})
}
