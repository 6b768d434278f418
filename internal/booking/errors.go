package booking

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration   = errors.New("configuration error")
	ErrAuthentication  = errors.New("authentication failed")
	ErrSlotUnavailable = errors.New("slot unavailable")
	ErrNavigation      = errors.New("navigation failed")
	ErrSubmission      = errors.New("submission failed")
)

// ConfigError lists every missing or invalid input found in one pass.
type ConfigError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, "; "))
	}
	return "config: " + strings.Join(parts, "; ")
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// Empty reports whether nothing was recorded.
func (e *ConfigError) Empty() bool { return len(e.Missing) == 0 && len(e.Invalid) == 0 }

type AuthReason int

const (
	InvalidCredentials AuthReason = iota + 1
	AuthUnreachable
	AuthUnexpectedResponse
)

func (r AuthReason) String() string {
	switch r {
	case InvalidCredentials:
		return "invalid credentials"
	case AuthUnreachable:
		return "unreachable"
	case AuthUnexpectedResponse:
		return "unexpected response"
	}
	return "unknown"
}

type AuthError struct {
	Reason AuthReason
	Detail string
	Err    error
}

func (e *AuthError) Error() string {
	msg := "auth: " + e.Reason.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool { return target == ErrAuthentication }

type SubmitReason int

const (
	SessionExpired SubmitReason = iota + 1
	SlotUnavailable
	SubmitUnreachable
	SubmitUnexpectedResponse
)

func (r SubmitReason) String() string {
	switch r {
	case SessionExpired:
		return "session expired"
	case SlotUnavailable:
		return "slot unavailable"
	case SubmitUnreachable:
		return "unreachable"
	case SubmitUnexpectedResponse:
		return "unexpected response"
	}
	return "unknown"
}

type SubmitError struct {
	Resource Resource
	Reason   SubmitReason
	Detail   string
	Err      error
}

func (e *SubmitError) Error() string {
	msg := fmt.Sprintf("submit %s: %s", e.Resource, e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SubmitError) Unwrap() error { return e.Err }

func (e *SubmitError) Is(target error) bool {
	if e.Reason == SlotUnavailable {
		return target == ErrSlotUnavailable
	}
	return target == ErrSubmission
}

// SlotUnavailableError means the requested cell exists but is not open.
type SlotUnavailableError struct {
	Court  string
	Time   string
	Status string
	Label  string
}

func (e *SlotUnavailableError) Error() string {
	return fmt.Sprintf("%s at %s is %s (cell %q)", e.Court, e.Time, e.Status, e.Label)
}

func (e *SlotUnavailableError) Is(target error) bool { return target == ErrSlotUnavailable }

// NavigationError wraps a failed or timed-out page transition.
type NavigationError struct {
	Step string
	Err  error
}

func (e *NavigationError) Error() string {
	if e.Err == nil {
		return "navigation: " + e.Step
	}
	return "navigation: " + e.Step + ": " + e.Err.Error()
}

func (e *NavigationError) Unwrap() error { return e.Err }

func (e *NavigationError) Is(target error) bool { return target == ErrNavigation }

// Fatal reports whether err must abort the whole run rather than a single
// resource attempt.
func Fatal(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrAuthentication)
}
