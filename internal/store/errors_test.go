package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantTransient bool
		wantPermanent bool
	}{
		{"bad conn", driver.ErrBadConn, true, false},
		{"pg connection failure", &pq.Error{Code: "08006"}, true, false},
		{"pg serialization", &pq.Error{Code: "40001"}, true, false},
		{"pg admin shutdown", &pq.Error{Code: "57P01"}, true, false},
		{"pg permission denied", &pq.Error{Code: "42501"}, false, true},
		{"cas exhausted", fmt.Errorf("wrapped: %w", ErrConflict), true, false},
		{"other", errors.New("syntax error"), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify("op", tt.err)
			if IsTransient(err) != tt.wantTransient {
				t.Errorf("IsTransient = %v, want %v", IsTransient(err), tt.wantTransient)
			}
			if IsPermanent(err) != tt.wantPermanent {
				t.Errorf("IsPermanent = %v, want %v", IsPermanent(err), tt.wantPermanent)
			}
			if !errors.Is(err, tt.err) {
				t.Error("classified error should unwrap to the original")
			}
		})
	}
}

func TestClassify_PassThrough(t *testing.T) {
	for _, err := range []error{nil, context.Canceled, ErrNotFound, ErrAlreadyExists} {
		if got := Classify("op", err); got != err {
			t.Errorf("Classify(%v) = %v, want unchanged", err, got)
		}
	}
	se := &Error{Kind: Transient, Op: "x", Err: errors.New("y")}
	if got := Classify("op", se); got != se {
		t.Error("already classified error should pass through")
	}
}
