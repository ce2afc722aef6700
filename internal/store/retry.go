package store

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig returns the retry settings used when none are configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 200 * time.Millisecond,
		MaxWait:     2 * time.Second,
		Multiplier:  2.0,
	}
}

// RetryStore is a decorator that retries transient errors with
// exponential backoff and jitter.
type RetryStore struct {
	inner  DocumentStore
	config RetryConfig
}

// WithRetry wraps a DocumentStore with retry logic.
func WithRetry(ds DocumentStore, cfg RetryConfig) *RetryStore {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 1
	}
	return &RetryStore{inner: ds, config: cfg}
}

var (
	_ DocumentStore = (*RetryStore)(nil)
	_ Lister        = (*RetryStore)(nil)
)

func (r *RetryStore) Get(ctx context.Context, collection, key string) (*Document, error) {
	var doc *Document
	err := r.do(ctx, func() error {
		var err error
		doc, err = r.inner.Get(ctx, collection, key)
		return err
	})
	return doc, err
}

func (r *RetryStore) Create(ctx context.Context, collection, key string, data Fields) (int64, error) {
	return r.write(ctx, func() (int64, error) { return r.inner.Create(ctx, collection, key, data) })
}

func (r *RetryStore) MergeWrite(ctx context.Context, collection, key string, fields Fields) (int64, error) {
	return r.write(ctx, func() (int64, error) { return r.inner.MergeWrite(ctx, collection, key, fields) })
}

func (r *RetryStore) Update(ctx context.Context, collection, key string, fn UpdateFunc) (int64, error) {
	return r.write(ctx, func() (int64, error) { return r.inner.Update(ctx, collection, key, fn) })
}

func (r *RetryStore) Subscribe(ctx context.Context, collection, key string, fn func(Snapshot)) (func(), error) {
	var cancel func()
	err := r.do(ctx, func() error {
		var err error
		cancel, err = r.inner.Subscribe(ctx, collection, key, fn)
		return err
	})
	return cancel, err
}

func (r *RetryStore) Keys(ctx context.Context, collection string) ([]string, error) {
	l, ok := r.inner.(Lister)
	if !ok {
		return nil, &Error{Kind: Permanent, Op: "keys", Err: errors.New("store cannot list keys")}
	}
	var keys []string
	err := r.do(ctx, func() error {
		var err error
		keys, err = l.Keys(ctx, collection)
		return err
	})
	return keys, err
}

func (r *RetryStore) write(ctx context.Context, fn func() (int64, error)) (int64, error) {
	var version int64
	err := r.do(ctx, func() error {
		var err error
		version, err = fn()
		return err
	})
	return version, err
}

func (r *RetryStore) do(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := range r.config.MaxAttempts {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return err
		}

		// Last attempt: return without sleeping.
		if attempt == r.config.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.backoff(attempt)):
		}
	}

	return lastErr
}

// shouldRetry retries only classified transient failures. Context errors,
// sentinels and permanent failures surface immediately.
func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return IsTransient(err)
}

// backoff computes the wait duration for the given attempt.
func (r *RetryStore) backoff(attempt int) time.Duration {
	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	if wait > float64(r.config.MaxWait) {
		wait = float64(r.config.MaxWait)
	}

	// Add ±20% jitter.
	jitter := wait * 0.2 * (2*rand.Float64() - 1)
	wait += jitter

	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
