package session

import (
	"strings"

	"github.com/frenchbreeze/breeze/internal/identity"
	"github.com/frenchbreeze/breeze/internal/profile"
)

// State is a point-in-time copy of what the manager knows.
type State struct {
	// Identity is nil while signed out.
	Identity *identity.Identity

	// LoadingAuth is true until the identity source reported for the first time.
	LoadingAuth bool

	// LoadingProfile is true between attach and the first resolved snapshot.
	LoadingProfile bool

	// Degraded is set after the profile subscription failed permanently.
	// Profile is then frozen and writes are rejected.
	Degraded bool

	Profile profile.Profile
}

func (s State) clone() State {
	cp := s
	if s.Identity != nil {
		id := *s.Identity
		cp.Identity = &id
	}
	cp.Profile = s.Profile.Clone()
	return cp
}

// Overlay keys.
const (
	overlayLevel          = profile.FieldLevel
	overlayName           = profile.FieldName
	overlayProgressPrefix = profile.FieldProgress + "."
)

// pendingWrite is an optimistic value waiting for the snapshot that confirms it.
type pendingWrite struct {
	token   uint64
	value   any
	version int64 // committed version; 0 while the write is in flight
}

// applyOverlay replaces snapshot fields with still-pending optimistic values.
func applyOverlay(p *profile.Profile, pending map[string]*pendingWrite) {
	for key, pw := range pending {
		applyValue(p, key, pw.value)
	}
}

func applyValue(p *profile.Profile, key string, v any) {
	switch {
	case key == overlayLevel:
		p.Level, _ = v.(profile.Level)
	case key == overlayName:
		p.Name, _ = v.(string)
	case strings.HasPrefix(key, overlayProgressPrefix):
		if p.Progress == nil {
			p.Progress = map[string]bool{}
		}
		done, _ := v.(bool)
		p.Progress[strings.TrimPrefix(key, overlayProgressPrefix)] = done
	}
}
