package booking

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusBooked               Status = "booked"
	StatusAuthenticationFailed Status = "authentication_failed"
	StatusAllAttemptsFailed    Status = "all_attempts_failed"
	// StatusAborted means a fatal error stopped the run after login.
	StatusAborted Status = "aborted"
)

// Outcome is the result of one resource attempt.
type Outcome struct {
	Resource  Resource
	Succeeded bool
	Reason    string
	Err       error
}

type Report struct {
	RunID         string
	Mode          Mode
	TargetDate    string
	Authenticated bool
	Status        Status
	Attempts      []Outcome
	// Err is the error that ended the run, if any.
	Err error
}

func (r Report) Succeeded() bool { return r.Status == StatusBooked }

// Booked returns the successful attempt, if there was one.
func (r Report) Booked() (Outcome, bool) {
	for _, a := range r.Attempts {
		if a.Succeeded {
			return a, true
		}
	}
	return Outcome{}, false
}

// Summary renders the per-resource result lines shown at the end of a run.
func (r Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s (%s) target=%s status=%s\n", r.RunID, r.Mode, r.TargetDate, r.Status)
	if r.Status == StatusAuthenticationFailed {
		fmt.Fprintf(&b, "  not authenticated: %v\n", r.Err)
		return b.String()
	}
	for i, a := range r.Attempts {
		res := "failed"
		if a.Succeeded {
			res = "booked"
		}
		fmt.Fprintf(&b, "  %d. %s: %s", i+1, a.Resource, res)
		if a.Reason != "" {
			fmt.Fprintf(&b, " (%s)", a.Reason)
		}
		b.WriteString("\n")
	}
	if r.Status == StatusAborted {
		fmt.Fprintf(&b, "  aborted: %v\n", r.Err)
	}
	return b.String()
}
