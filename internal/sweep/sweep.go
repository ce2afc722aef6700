// Package sweep resets broken streaks of every stored profile, so a learner
// who stopped visiting sees the reset without logging in first.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/frenchbreeze/breeze/internal/profile"
	"github.com/frenchbreeze/breeze/internal/store"
	"github.com/frenchbreeze/breeze/internal/streak"
)

// Store is the document store view the sweep needs.
type Store interface {
	store.DocumentStore
	store.Lister
}

// Result counts the outcome of one sweep.
type Result struct {
	Scanned   int
	Corrected int
	Failed    int
}

// Sweeper applies the streak validation rule to stored profiles.
type Sweeper struct {
	docs       Store
	calendar   streak.Calendar
	logger     *slog.Logger
	collection string
	workers    int
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithCalendar sets the clock and timezone used to derive today.
func WithCalendar(c streak.Calendar) Option {
	return func(s *Sweeper) { s.calendar = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = l }
}

// WithWorkers bounds concurrent profile updates.
func WithWorkers(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.workers = n
		}
	}
}

// New creates a Sweeper over docs.
func New(docs Store, opts ...Option) *Sweeper {
	s := &Sweeper{
		docs:       docs,
		calendar:   streak.NewCalendar(nil, nil),
		logger:     slog.Default(),
		collection: profile.Collection,
		workers:    4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps every profile once. Individual failures are logged and counted;
// only listing failures and cancellation abort the run.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	keys, err := s.docs.Keys(ctx, s.collection)
	if err != nil {
		return Result{}, fmt.Errorf("list profiles: %w", err)
	}

	today := s.calendar.Today()
	var corrected, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, uid := range keys {
		g.Go(func() error {
			fixed, err := s.sweepOne(gctx, uid, today)
			switch {
			case gctx.Err() != nil:
				return gctx.Err()
			case err != nil:
				failed.Add(1)
				s.logger.Warn("sweep profile", "uid", uid, "error", err)
			case fixed:
				corrected.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()

	res := Result{Scanned: len(keys), Corrected: int(corrected.Load()), Failed: int(failed.Load())}
	s.logger.Info("streak sweep finished",
		"day", today.String(),
		"scanned", res.Scanned,
		"corrected", res.Corrected,
		"failed", res.Failed,
	)
	return res, err
}

// sweepOne corrects one profile with a conditional update. It reports
// whether a correction was written.
func (s *Sweeper) sweepOne(ctx context.Context, uid string, today streak.Day) (bool, error) {
	var fixed bool
	_, err := s.docs.Update(ctx, s.collection, uid, func(cur *store.Document) (store.Fields, error) {
		fixed = false
		if cur == nil {
			return nil, nil
		}
		p, err := profile.FromFieldsIn(cur.Data, s.calendar.Location)
		if err != nil {
			return nil, err
		}
		fix := streak.Validate(p.DailyStreak, p.LastLoginDate, today)
		if !fix.Needed {
			return nil, nil
		}
		fixed = true
		return profile.StreakFields(fix.DailyStreak, fix.LastLoginDate), nil
	})
	return fixed && err == nil, err
}
