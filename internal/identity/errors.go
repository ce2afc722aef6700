package identity

import (
	"errors"
	"fmt"
)

// Kind enumerates authentication failure causes.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidCredentials
	KindAccountExists
	KindPopupClosed
	KindPopupBlocked
	KindProviderDisabled
	KindUnauthorizedOrigin
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid-credentials"
	case KindAccountExists:
		return "account-exists"
	case KindPopupClosed:
		return "popup-closed"
	case KindPopupBlocked:
		return "popup-blocked"
	case KindProviderDisabled:
		return "provider-disabled"
	case KindUnauthorizedOrigin:
		return "unauthorized-origin"
	default:
		return "unknown"
	}
}

// Message returns the text shown to a learner for this kind of failure.
func (k Kind) Message() string {
	switch k {
	case KindInvalidCredentials:
		return "Invalid email or password. Please try again."
	case KindAccountExists:
		return "An account already exists with this email using a different sign-in method. Try signing in with that method."
	case KindPopupClosed:
		return "Sign-in popup was closed. Please ensure popups are not blocked and try again."
	case KindPopupBlocked:
		return "Popup was blocked by the browser. Please allow popups for this site and try again."
	case KindProviderDisabled:
		return "This sign-in method is not enabled for this app. Please contact support."
	case KindUnauthorizedOrigin:
		return "This domain is not authorized for sign-in. Please contact support."
	default:
		return "Authentication failed. Please try again."
	}
}

// AuthError is returned by every identity operation that fails.
type AuthError struct {
	Kind Kind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("auth %s", e.Kind)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// UserMessage returns a learner-facing description, preferring validation
// details over the generic text of the kind.
func (e *AuthError) UserMessage() string {
	var v *ValidationError
	if errors.As(e.Err, &v) {
		return v.Msg
	}
	return e.Kind.Message()
}

// ValidationError reports rejected sign-up input.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// KindOf returns the Kind of an *AuthError in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

func authErr(kind Kind, err error) *AuthError {
	return &AuthError{Kind: kind, Err: err}
}
