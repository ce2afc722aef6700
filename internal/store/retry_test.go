package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

// flakyStore fails MergeWrite with the queued errors before succeeding.
type flakyStore struct {
	*Memory
	errs  []error
	calls int
}

func (f *flakyStore) MergeWrite(ctx context.Context, collection, key string, fields Fields) (int64, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return 0, err
	}
	return f.Memory.MergeWrite(ctx, collection, key, fields)
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Multiplier: 2}
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	f := &flakyStore{Memory: NewMemory(), errs: []error{
		&Error{Kind: Transient, Op: "merge", Err: errors.New("busy")},
	}}
	r := WithRetry(f, fastRetry(3))

	if _, err := r.MergeWrite(context.Background(), "users", "u1", Fields{"a": "b"}); err != nil {
		t.Fatalf("MergeWrite: %v", err)
	}
	if f.calls != 2 {
		t.Errorf("calls = %d, want 2", f.calls)
	}
}

func TestRetry_PermanentNotRetried(t *testing.T) {
	f := &flakyStore{Memory: NewMemory(), errs: []error{
		&Error{Kind: Permanent, Op: "merge", Err: errors.New("denied")},
	}}
	r := WithRetry(f, fastRetry(3))

	_, err := r.MergeWrite(context.Background(), "users", "u1", Fields{"a": "b"})
	if !IsPermanent(err) {
		t.Fatalf("err = %v, want permanent", err)
	}
	if f.calls != 1 {
		t.Errorf("calls = %d, want 1", f.calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	transient := &Error{Kind: Transient, Op: "merge", Err: errors.New("busy")}
	f := &flakyStore{Memory: NewMemory(), errs: []error{transient, transient, transient, transient}}
	r := WithRetry(f, fastRetry(3))

	_, err := r.MergeWrite(context.Background(), "users", "u1", Fields{"a": "b"})
	if !IsTransient(err) {
		t.Fatalf("err = %v, want transient", err)
	}
	if f.calls != 3 {
		t.Errorf("calls = %d, want 3", f.calls)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	f := &flakyStore{Memory: NewMemory(), errs: []error{
		&Error{Kind: Transient, Op: "merge", Err: errors.New("busy")},
	}}
	r := WithRetry(f, RetryConfig{MaxAttempts: 3, InitialWait: time.Hour, MaxWait: time.Hour, Multiplier: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.MergeWrite(ctx, "users", "u1", Fields{"a": "b"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestBackoff_Bounds(t *testing.T) {
	r := WithRetry(NewMemory(), RetryConfig{MaxAttempts: 5, InitialWait: 100 * time.Millisecond, MaxWait: 300 * time.Millisecond, Multiplier: 2})
	for attempt := range 5 {
		d := r.backoff(attempt)
		if d < 0 || d > 360*time.Millisecond {
			t.Errorf("backoff(%d) = %v out of bounds", attempt, d)
		}
	}
}
