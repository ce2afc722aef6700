package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler runs a Sweeper once a day.
type Scheduler struct {
	cron    *gocron.Scheduler
	sweeper *Sweeper
	at      string
	logger  *slog.Logger
}

// NewScheduler schedules sw daily at the "HH:MM" time at, in loc.
func NewScheduler(sw *Sweeper, loc *time.Location, at string) *Scheduler {
	s := gocron.NewScheduler(loc)
	s.SingletonModeAll()
	return &Scheduler{
		cron:    s,
		sweeper: sw,
		at:      at,
		logger:  sw.logger,
	}
}

// Run starts the schedule and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	job, err := s.cron.Every(1).Day().At(s.at).Do(func() {
		if _, err := s.sweeper.Run(ctx); err != nil {
			s.logger.Error("streak sweep", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sweep at %s: %w", s.at, err)
	}

	s.cron.StartAsync()
	s.logger.Info("streak sweep scheduled", "at", s.at, "next_run", job.NextRun())

	<-ctx.Done()
	s.cron.Stop()
	return nil
}

// NextRun returns when the sweep runs next; zero before Run.
func (s *Scheduler) NextRun() time.Time {
	_, next := s.cron.NextRun()
	return next
}
