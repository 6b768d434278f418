package grid

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/example/court-booker/internal/booking"
)

var (
	ErrCourtNotFound = errors.New("court not found")
	ErrTimeNotFound  = errors.New("time slot not found")
	ErrWrongDate     = errors.New("page shows a different date")
)

// Page is the live schedule page. Implementations are expected to act on the
// current DOM and return promptly; the Locator bounds every wait with its own
// timeout.
type Page interface {
	// DisplayedDate returns the date heading shown above the grid.
	DisplayedDate(ctx context.Context) (string, error)
	// Mark tags the current grid so WaitStale can tell when it is replaced.
	Mark(ctx context.Context) (string, error)
	// SetDate writes value (YYYY-MM-DD) into the date input and fires change.
	SetDate(ctx context.Context, value string) error
	WaitStale(ctx context.Context, mark string) error
	WaitGrid(ctx context.Context) error
	Grid(ctx context.Context) (*Grid, error)
	// OpenCell clicks the cell at a 0-based row and 1-based court column and
	// waits for the reservation dialog.
	OpenCell(ctx context.Context, row, col int) error
	SelectDuration(ctx context.Context, label string) error
	Confirm(ctx context.Context) error
	WaitConfirmation(ctx context.Context) error
}

type State string

const (
	GridLoaded    State = "GridLoaded"
	DateVerified  State = "DateVerified"
	DateSwitching State = "DateSwitching"
	SlotSearch    State = "SlotSearch"
	SlotFound     State = "SlotFound"
	SlotNotFound  State = "SlotNotFound"
	CourtNotFound State = "CourtNotFound"
)

// Trace is the sequence of states one Book call went through.
type Trace []State

func (t Trace) String() string {
	parts := make([]string, len(t))
	for i, s := range t {
		parts[i] = string(s)
	}
	return strings.Join(parts, " -> ")
}

// Count returns how many times s was entered.
func (t Trace) Count(s State) int {
	n := 0
	for _, x := range t {
		if x == s {
			n++
		}
	}
	return n
}

type Target struct {
	Court string
	Time  string
	Day   time.Time
	Hours float64
}

type Slot struct {
	Row    int
	Column int
	Cell   Cell
}

type Locator struct {
	Page    Page
	Timeout time.Duration
	Logger  *log.Logger
}

func (l *Locator) logger() *log.Logger {
	if l.Logger == nil {
		return log.Default()
	}
	return l.Logger
}

func (l *Locator) timeout() time.Duration {
	if l.Timeout <= 0 {
		return 15 * time.Second
	}
	return l.Timeout
}

// Book finds the target cell and, when it is open, completes the reservation
// dialog. A cell that is not open yields *booking.SlotUnavailableError.
func (l *Locator) Book(ctx context.Context, t Target) (Trace, error) {
	label, ok := DurationLabel(t.Hours)
	if !ok {
		return nil, &booking.ConfigError{Invalid: []string{fmt.Sprintf("duration %vh (supported: %s)", t.Hours, DurationChoices())}}
	}

	slot, trace, err := l.Locate(ctx, t)
	if err != nil {
		return trace, err
	}
	if slot.Cell.Status != Open {
		return trace, &booking.SlotUnavailableError{Court: t.Court, Time: t.Time, Status: string(slot.Cell.Status), Label: slot.Cell.Label}
	}
	return trace, l.reserve(ctx, t, slot, label)
}

// Locate verifies the displayed date, switching to the target day if needed,
// and resolves the court column and time row.
func (l *Locator) Locate(ctx context.Context, t Target) (Slot, Trace, error) {
	trace := Trace{GridLoaded}
	log := l.logger()

	want := t.Day.Format(booking.LayoutDisplay)
	shown, err := within(ctx, l.timeout(), "read displayed date", func(ctx context.Context) (string, error) {
		return l.Page.DisplayedDate(ctx)
	})
	if err != nil {
		return Slot{}, trace, err
	}
	if !strings.Contains(shown, want) {
		trace = append(trace, DateSwitching)
		log.Printf("locator: page shows %q, switching to %q", strings.TrimSpace(shown), want)
		if err := l.switchDate(ctx, t.Day); err != nil {
			return Slot{}, trace, err
		}
		trace = append(trace, GridLoaded)

		// The site may redraw the old day, e.g. for dates outside its window.
		shown, err = within(ctx, l.timeout(), "read displayed date after switch", func(ctx context.Context) (string, error) {
			return l.Page.DisplayedDate(ctx)
		})
		if err != nil {
			return Slot{}, trace, err
		}
		if !strings.Contains(shown, want) {
			return Slot{}, trace, &booking.NavigationError{
				Step: "verify date after switch",
				Err:  fmt.Errorf("%w: %q, want %q", ErrWrongDate, strings.TrimSpace(shown), want),
			}
		}
	}
	trace = append(trace, DateVerified)

	g, err := within(ctx, l.timeout(), "read grid", func(ctx context.Context) (*Grid, error) {
		return l.Page.Grid(ctx)
	})
	if err != nil {
		return Slot{}, trace, err
	}

	trace = append(trace, SlotSearch)
	col, ok := g.CourtColumn(t.Court)
	if !ok {
		trace = append(trace, CourtNotFound)
		return Slot{}, trace, &booking.NavigationError{Step: fmt.Sprintf("find court %q", t.Court), Err: ErrCourtNotFound}
	}
	row, ok := g.RowIndex(t.Time)
	if !ok {
		trace = append(trace, SlotNotFound)
		return Slot{}, trace, &booking.NavigationError{Step: fmt.Sprintf("find time %q", t.Time), Err: ErrTimeNotFound}
	}
	trace = append(trace, SlotFound)
	return Slot{Row: row, Column: col, Cell: g.At(row, col)}, trace, nil
}

// switchDate replaces the grid with the target day's. The old grid must go
// stale before the new one is awaited, otherwise the wait can succeed on the
// outgoing grid.
func (l *Locator) switchDate(ctx context.Context, day time.Time) error {
	mark, err := within(ctx, l.timeout(), "mark grid", func(ctx context.Context) (string, error) {
		return l.Page.Mark(ctx)
	})
	if err != nil {
		return err
	}
	if err := l.step(ctx, "set date", func(ctx context.Context) error {
		return l.Page.SetDate(ctx, day.Format(booking.LayoutInput))
	}); err != nil {
		return err
	}
	if err := l.step(ctx, "wait for old grid to go stale", func(ctx context.Context) error {
		return l.Page.WaitStale(ctx, mark)
	}); err != nil {
		return err
	}
	return l.step(ctx, "wait for new grid", l.Page.WaitGrid)
}

func (l *Locator) reserve(ctx context.Context, t Target, s Slot, label string) error {
	log := l.logger()
	log.Printf("locator: %s at %s is open (row %d, column %d)", t.Court, t.Time, s.Row+1, s.Column)

	if err := l.step(ctx, "open reservation dialog", func(ctx context.Context) error {
		return l.Page.OpenCell(ctx, s.Row, s.Column)
	}); err != nil {
		return err
	}
	if err := l.step(ctx, "select duration", func(ctx context.Context) error {
		return l.Page.SelectDuration(ctx, label)
	}); err != nil {
		return err
	}
	if err := l.step(ctx, "confirm reservation", l.Page.Confirm); err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, l.timeout())
	defer cancel()
	if err := l.Page.WaitConfirmation(cctx); err != nil {
		return &booking.SubmitError{
			Resource: booking.Resource(t.Court),
			Reason:   booking.SubmitUnexpectedResponse,
			Detail:   "confirmation not observed",
			Err:      err,
		}
	}
	log.Printf("locator: %s at %s booked for %s", t.Court, t.Time, label)
	return nil
}

func (l *Locator) step(ctx context.Context, name string, fn func(context.Context) error) error {
	_, err := within(ctx, l.timeout(), name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// within runs fn under a fresh timeout. Any failure, including the deadline,
// ends the attempt as a navigation error.
func within[T any](ctx context.Context, d time.Duration, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	v, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, &booking.NavigationError{Step: name, Err: err}
	}
	return v, nil
}
