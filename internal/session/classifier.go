package session

import (
	"bytes"
	"net/http"
)

// Verdict is what a booking response body says happened.
type Verdict int

const (
	VerdictUnrecognized Verdict = iota
	VerdictConfirmed
	VerdictUnavailable
	VerdictLoginRequired
)

func (v Verdict) String() string {
	switch v {
	case VerdictConfirmed:
		return "confirmed"
	case VerdictUnavailable:
		return "unavailable"
	case VerdictLoginRequired:
		return "login required"
	}
	return "unrecognized"
}

// ResponseClassifier decides the outcome of a booking response. The backend
// reports results as phrases inside HTML, so this is the one place that
// knows those phrases.
type ResponseClassifier interface {
	Classify(status int, body []byte) Verdict
}

// MarkerClassifier matches exact, case-sensitive phrases.
type MarkerClassifier struct {
	Success       []string
	Unavailable   []string
	LoginRequired []string
}

var (
	DefaultSuccessMarkers     = []string{"successfully booked"}
	DefaultUnavailableMarkers = []string{"slot taken", "not available"}
	DefaultLoginMarkers       = []string{"Please log in"}
)

func DefaultClassifier() MarkerClassifier {
	return MarkerClassifier{
		Success:       DefaultSuccessMarkers,
		Unavailable:   DefaultUnavailableMarkers,
		LoginRequired: DefaultLoginMarkers,
	}
}

func (m MarkerClassifier) Classify(status int, body []byte) Verdict {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return VerdictLoginRequired
	}
	if status >= 400 {
		if containsAny(body, m.Unavailable) {
			return VerdictUnavailable
		}
		return VerdictUnrecognized
	}
	switch {
	case containsAny(body, m.Success):
		return VerdictConfirmed
	case containsAny(body, m.Unavailable):
		return VerdictUnavailable
	case containsAny(body, m.LoginRequired):
		return VerdictLoginRequired
	}
	return VerdictUnrecognized
}

func containsAny(body []byte, markers []string) bool {
	for _, m := range markers {
		if m != "" && bytes.Contains(body, []byte(m)) {
			return true
		}
	}
	return false
}
