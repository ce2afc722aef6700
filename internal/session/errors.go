package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNoIdentity is returned by setters called while signed out.
	ErrNoIdentity = errors.New("no identity attached")

	// ErrDegraded is returned for writes after the profile subscription failed permanently.
	ErrDegraded = errors.New("profile sync degraded")

	// ErrDetached is returned by Attach when a Detach overtook it.
	ErrDetached = errors.New("session detached")
)

// ProfileWriteError reports a profile mutation whose remote write failed.
// Optimistic in-memory values stay in place until the next snapshot.
type ProfileWriteError struct {
	Op  string
	Err error
}

func (e *ProfileWriteError) Error() string {
	return fmt.Sprintf("%s: profile write failed: %v", e.Op, e.Err)
}

func (e *ProfileWriteError) Unwrap() error {
	return e.Err
}
