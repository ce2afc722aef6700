package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
	"modernc.org/sqlite"
)

// Kind classifies a store failure for retry decisions.
type Kind int

const (
	// Transient failures may succeed when retried (busy database, dropped connection).
	Transient Kind = iota + 1
	// Permanent failures will not succeed on retry (permission denied, bad data).
	Permanent
)

func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Permanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Error is a classified store failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a transient store failure.
func IsTransient(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == Transient
}

// IsPermanent reports whether err is a permanent store failure.
func IsPermanent(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == Permanent
}

// Classify wraps a backend error into an *Error. nil, context errors, the
// package sentinels and already classified errors pass through unchanged.
func Classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAlreadyExists):
		return err
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	kind := Permanent
	if isTransientSQL(err) {
		kind = Transient
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func isTransientSQL(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, ErrConflict) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case 5, 6: // SQLITE_BUSY, SQLITE_LOCKED
			return true
		}
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "40", "53": // connection, rollback, insufficient resources
			return true
		}
		return pqErr.Code == "57P01" || pqErr.Code == "57P03"
	}
	return false
}
