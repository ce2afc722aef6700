package store

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// LoggingStore is a decorator that logs every document write.
type LoggingStore struct {
	inner  DocumentStore
	logger *slog.Logger
}

// WithLogging wraps a DocumentStore with structured write logging. Failures
// are logged at warn level; the error is returned unchanged.
func WithLogging(ds DocumentStore, logger *slog.Logger) *LoggingStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingStore{inner: ds, logger: logger}
}

var (
	_ DocumentStore = (*LoggingStore)(nil)
	_ Lister        = (*LoggingStore)(nil)
)

func (l *LoggingStore) Get(ctx context.Context, collection, key string) (*Document, error) {
	return l.inner.Get(ctx, collection, key)
}

func (l *LoggingStore) Create(ctx context.Context, collection, key string, data Fields) (int64, error) {
	start := time.Now()
	v, err := l.inner.Create(ctx, collection, key, data)
	l.log(ctx, "create", collection, key, v, start, err)
	return v, err
}

func (l *LoggingStore) MergeWrite(ctx context.Context, collection, key string, fields Fields) (int64, error) {
	start := time.Now()
	v, err := l.inner.MergeWrite(ctx, collection, key, fields)
	l.log(ctx, "merge", collection, key, v, start, err)
	return v, err
}

func (l *LoggingStore) Update(ctx context.Context, collection, key string, fn UpdateFunc) (int64, error) {
	start := time.Now()
	v, err := l.inner.Update(ctx, collection, key, fn)
	l.log(ctx, "update", collection, key, v, start, err)
	return v, err
}

func (l *LoggingStore) Subscribe(ctx context.Context, collection, key string, fn func(Snapshot)) (func(), error) {
	cancel, err := l.inner.Subscribe(ctx, collection, key, fn)
	if err != nil {
		l.logger.WarnContext(ctx, "subscribe failed", "collection", collection, "key", key, "error", err)
	}
	return cancel, err
}

func (l *LoggingStore) Keys(ctx context.Context, collection string) ([]string, error) {
	lister, ok := l.inner.(Lister)
	if !ok {
		return nil, &Error{Kind: Permanent, Op: "keys", Err: errors.New("store cannot list keys")}
	}
	return lister.Keys(ctx, collection)
}

func (l *LoggingStore) log(ctx context.Context, op, collection, key string, version int64, start time.Time, err error) {
	attrs := []any{
		"op", op,
		"collection", collection,
		"key", key,
		"latency_ms", time.Since(start).Milliseconds(),
	}
	if err != nil && !errors.Is(err, ErrAlreadyExists) {
		l.logger.WarnContext(ctx, "document write failed", append(attrs, "error", err)...)
		return
	}
	l.logger.DebugContext(ctx, "document write", append(attrs, "version", version)...)
}
