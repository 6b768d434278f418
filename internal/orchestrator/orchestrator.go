// Package orchestrator runs one booking attempt: log in once, then try the
// candidate resources in preference order until one is booked.
package orchestrator

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/court-booker/internal/booking"
)

// Backend is a logged-in view of the reservation site.
type Backend interface {
	Authenticate(ctx context.Context) error
	Book(ctx context.Context, req booking.Request) error
}

type Orchestrator struct {
	Backend  Backend
	Mode     booking.Mode
	Template booking.Template
	// DaysAhead is how many calendar days past today to book.
	DaysAhead int
	Logger    *log.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

func (o *Orchestrator) logger() *log.Logger {
	if o.Logger == nil {
		return log.Default()
	}
	return o.Logger
}

// TargetDate is the reservation date Run will submit.
func (o *Orchestrator) TargetDate() string {
	now := time.Now
	if o.Now != nil {
		now = o.Now
	}
	return booking.ResolveDate(now(), o.DaysAhead, booking.LayoutSubmit)
}

// Run books for TargetDate. It never returns an error; everything that
// happened is in the Report.
func (o *Orchestrator) Run(ctx context.Context, resources []booking.Resource) booking.Report {
	return o.RunOn(ctx, o.TargetDate(), resources)
}

// RunOn is Run with the reservation date already resolved, for callers that
// key other work (such as a run lock) on the same date.
func (o *Orchestrator) RunOn(ctx context.Context, targetDate string, resources []booking.Resource) booking.Report {
	log := o.logger()
	rep := booking.Report{
		RunID:      uuid.NewString(),
		Mode:       o.Mode,
		TargetDate: targetDate,
	}

	if len(resources) == 0 {
		rep.Status = booking.StatusAborted
		rep.Err = &booking.ConfigError{Missing: []string{"RESOURCES"}}
		return rep
	}

	if err := o.Backend.Authenticate(ctx); err != nil {
		log.Printf("orchestrator: run %s: authentication failed: %v", rep.RunID, err)
		rep.Status = booking.StatusAuthenticationFailed
		rep.Err = err
		return rep
	}
	rep.Authenticated = true

	for _, res := range resources {
		if err := ctx.Err(); err != nil {
			rep.Status = booking.StatusAborted
			rep.Err = err
			return rep
		}

		req := o.Template.For(res, rep.TargetDate)
		log.Printf("orchestrator: run %s: trying %s for %s", rep.RunID, res, rep.TargetDate)
		err := o.Backend.Book(ctx, req)
		if err == nil {
			rep.Attempts = append(rep.Attempts, booking.Outcome{Resource: res, Succeeded: true})
			rep.Status = booking.StatusBooked
			log.Printf("orchestrator: run %s: booked %s", rep.RunID, res)
			return rep
		}

		rep.Attempts = append(rep.Attempts, booking.Outcome{Resource: res, Reason: reason(err), Err: err})
		log.Printf("orchestrator: run %s: %s failed: %v", rep.RunID, res, err)
		if booking.Fatal(err) {
			rep.Status = booking.StatusAborted
			rep.Err = err
			return rep
		}
	}

	rep.Status = booking.StatusAllAttemptsFailed
	rep.Err = errors.New("no candidate resource could be booked")
	return rep
}

// reason is the short cause shown in the run summary.
func reason(err error) string {
	var se *booking.SubmitError
	if errors.As(err, &se) {
		if se.Detail != "" {
			return se.Reason.String() + ": " + se.Detail
		}
		return se.Reason.String()
	}
	switch {
	case errors.Is(err, booking.ErrSlotUnavailable):
		return "slot unavailable: " + err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	}
	return err.Error()
}
