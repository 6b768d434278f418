// Package scheduler holds a run back until the site releases the next day's
// slots.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"
)

// ReleaseAt returns the release instant on now's calendar day in loc, for a
// local release time given as HH:MM.
func ReleaseAt(now time.Time, releaseTime string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	at, err := time.ParseInLocation("2006-01-02 15:04", local.Format("2006-01-02")+" "+releaseTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid release time %q (want HH:MM): %w", releaseTime, err)
	}
	return at, nil
}

type Scheduler struct {
	ReleaseTime string
	Location    *time.Location
	Logger      *log.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Wait blocks until today's release time. It returns at once when no release
// time is set or it has already passed.
func (s *Scheduler) Wait(ctx context.Context) error {
	if s.ReleaseTime == "" {
		return nil
	}
	now := s.now()
	at, err := ReleaseAt(now, s.ReleaseTime, s.Location)
	if err != nil {
		return err
	}
	d := at.Sub(now)
	if d <= 0 {
		return nil
	}

	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("scheduler: waiting %s for release at %s", d.Round(time.Second), at.Format(time.RFC3339))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
