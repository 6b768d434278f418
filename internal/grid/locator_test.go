package grid

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/court-booker/internal/booking"
)

// fakePage serves fixed grids per date and records every call.
type fakePage struct {
	shown  string
	grids  map[string]string // display date -> html
	byDate map[string]string // input value -> display date

	calls     []string
	dialog    []string
	hang      string // call name that blocks until ctx is done
	stuck     bool   // SetDate redraws without changing the date
	fail      map[string]error
	noConfirm bool
}

func newFakePage(shown string) *fakePage {
	return &fakePage{
		shown: shown,
		grids: map[string]string{
			"Tuesday, July 15":  scheduleHTML,
			"Saturday, July 12": scheduleHTML,
		},
		byDate: map[string]string{
			"2025-07-15": "Tuesday, July 15",
			"2025-07-12": "Saturday, July 12",
		},
		fail: map[string]error{},
	}
}

func (p *fakePage) record(ctx context.Context, name string) error {
	p.calls = append(p.calls, name)
	if p.hang == name {
		<-ctx.Done()
		return ctx.Err()
	}
	return p.fail[name]
}

func (p *fakePage) DisplayedDate(ctx context.Context) (string, error) {
	if err := p.record(ctx, "DisplayedDate"); err != nil {
		return "", err
	}
	return "  " + p.shown + " ", nil
}

func (p *fakePage) Mark(ctx context.Context) (string, error) {
	return "m1", p.record(ctx, "Mark")
}

func (p *fakePage) SetDate(ctx context.Context, value string) error {
	if err := p.record(ctx, "SetDate"); err != nil {
		return err
	}
	if !p.stuck {
		p.shown = p.byDate[value]
	}
	return nil
}

func (p *fakePage) WaitStale(ctx context.Context, mark string) error {
	return p.record(ctx, "WaitStale")
}

func (p *fakePage) WaitGrid(ctx context.Context) error { return p.record(ctx, "WaitGrid") }

func (p *fakePage) Grid(ctx context.Context) (*Grid, error) {
	if err := p.record(ctx, "Grid"); err != nil {
		return nil, err
	}
	return Parse(p.grids[p.shown])
}

func (p *fakePage) OpenCell(ctx context.Context, row, col int) error {
	p.dialog = append(p.dialog, "OpenCell")
	return p.record(ctx, "OpenCell")
}

func (p *fakePage) SelectDuration(ctx context.Context, label string) error {
	p.dialog = append(p.dialog, "SelectDuration:"+label)
	return p.record(ctx, "SelectDuration")
}

func (p *fakePage) Confirm(ctx context.Context) error {
	p.dialog = append(p.dialog, "Confirm")
	return p.record(ctx, "Confirm")
}

func (p *fakePage) WaitConfirmation(ctx context.Context) error {
	if err := p.record(ctx, "WaitConfirmation"); err != nil {
		return err
	}
	if p.noConfirm {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (p *fakePage) count(name string) int {
	n := 0
	for _, c := range p.calls {
		if c == name {
			n++
		}
	}
	return n
}

var july15 = time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC)

func newLocator(p Page) *Locator {
	return &Locator{Page: p, Timeout: 50 * time.Millisecond, Logger: log.New(io.Discard, "", 0)}
}

func TestBookOnDisplayedDateSkipsSwitch(t *testing.T) {
	p := newFakePage("Tuesday, July 15")
	trace, err := newLocator(p).Book(context.Background(), Target{Court: "Court 10", Time: "7:00 PM", Day: july15, Hours: 2})
	require.NoError(t, err)

	assert.Zero(t, p.count("SetDate"))
	assert.Zero(t, trace.Count(DateSwitching))
	assert.Equal(t, Trace{GridLoaded, DateVerified, SlotSearch, SlotFound}, trace)
	assert.Equal(t, []string{"OpenCell", "SelectDuration:2 Hours", "Confirm"}, p.dialog)
}

func TestBookSwitchesDateOnce(t *testing.T) {
	p := newFakePage("Saturday, July 12")
	trace, err := newLocator(p).Book(context.Background(), Target{Court: "Court 1", Time: "7:00 AM", Day: july15, Hours: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, p.count("Mark"))
	assert.Equal(t, 1, p.count("SetDate"))
	assert.Equal(t, 1, p.count("WaitStale"))
	assert.Equal(t, 1, p.count("WaitGrid"))
	assert.Equal(t, 1, trace.Count(DateSwitching))
	assert.Equal(t, []string{"DisplayedDate", "Mark", "SetDate", "WaitStale", "WaitGrid", "DisplayedDate", "Grid"}, p.calls[:7])
	assert.Equal(t, Trace{GridLoaded, DateSwitching, GridLoaded, DateVerified, SlotSearch, SlotFound}, trace)
}

func TestBookRefusesGridLeftOnOldDate(t *testing.T) {
	p := newFakePage("Saturday, July 12")
	p.stuck = true
	trace, err := newLocator(p).Book(context.Background(), Target{Court: "Court 1", Time: "7:00 AM", Day: july15, Hours: 1})

	var ne *booking.NavigationError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "verify date after switch", ne.Step)
	assert.ErrorIs(t, err, ErrWrongDate)
	assert.Zero(t, trace.Count(DateVerified))
	assert.Zero(t, p.count("Grid"))
	assert.Empty(t, p.dialog)
}

func TestBookUnsupportedDurationTouchesNothing(t *testing.T) {
	p := newFakePage("Tuesday, July 15")
	_, err := newLocator(p).Book(context.Background(), Target{Court: "Court 1", Time: "7:00 AM", Day: july15, Hours: 3})

	assert.ErrorIs(t, err, booking.ErrConfiguration)
	assert.ErrorContains(t, err, "supported: 1, 1.5, 2")
	assert.Empty(t, p.calls)
	assert.Empty(t, p.dialog)
}

func TestBookCourtNotFound(t *testing.T) {
	p := newFakePage("Tuesday, July 15")
	trace, err := newLocator(p).Book(context.Background(), Target{Court: "Court 7", Time: "7:00 AM", Day: july15, Hours: 1})

	assert.ErrorIs(t, err, ErrCourtNotFound)
	assert.ErrorIs(t, err, booking.ErrNavigation)
	assert.Equal(t, CourtNotFound, trace[len(trace)-1])
	assert.Empty(t, p.dialog)
}

func TestBookTimeMustMatchExactly(t *testing.T) {
	p := newFakePage("Tuesday, July 15")
	trace, err := newLocator(p).Book(context.Background(), Target{Court: "Court 1", Time: "7:00", Day: july15, Hours: 1})

	assert.ErrorIs(t, err, ErrTimeNotFound)
	assert.Equal(t, SlotNotFound, trace[len(trace)-1])
	assert.Empty(t, p.dialog)
}

func TestBookCellNotOpen(t *testing.T) {
	p := newFakePage("Tuesday, July 15")
	_, err := newLocator(p).Book(context.Background(), Target{Court: "Court 1", Time: "7:00 PM", Day: july15, Hours: 1})

	var su *booking.SlotUnavailableError
	require.ErrorAs(t, err, &su)
	assert.Equal(t, "booked", su.Status)
	assert.ErrorIs(t, err, booking.ErrSlotUnavailable)
	assert.Empty(t, p.dialog)
}

func TestBookStaleWaitTimeout(t *testing.T) {
	p := newFakePage("Saturday, July 12")
	p.hang = "WaitStale"
	_, err := newLocator(p).Book(context.Background(), Target{Court: "Court 1", Time: "7:00 AM", Day: july15, Hours: 1})

	var ne *booking.NavigationError
	require.ErrorAs(t, err, &ne)
	assert.Contains(t, ne.Step, "stale")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Zero(t, p.count("WaitGrid"))
	assert.Zero(t, p.count("Grid"))
}

func TestBookNoConfirmation(t *testing.T) {
	p := newFakePage("Tuesday, July 15")
	p.noConfirm = true
	_, err := newLocator(p).Book(context.Background(), Target{Court: "Court 10", Time: "7:00 PM", Day: july15, Hours: 1.5})

	var se *booking.SubmitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "confirmation not observed", se.Detail)
	assert.ErrorIs(t, err, booking.ErrSubmission)
	assert.False(t, booking.Fatal(err))
}
