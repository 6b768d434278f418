package booking

import "time"

const (
	// LayoutSubmit is the reservation_date format of the booking form.
	LayoutSubmit = "01/02/2006"
	// LayoutDisplay matches the date heading above the schedule grid.
	LayoutDisplay = "Monday, January 02"
	// LayoutInput is the value format of the schedule's date input.
	LayoutInput = "2006-01-02"

	DefaultDaysAhead = 3
)

// ResolveDate returns the calendar day offsetDays after now, formatted with
// layout. The wall-clock part of now does not affect the day chosen.
func ResolveDate(now time.Time, offsetDays int, layout string) string {
	return TargetDay(now, offsetDays).Format(layout)
}

// TargetDay is the midnight (in now's location) offsetDays after now.
func TargetDay(now time.Time, offsetDays int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+offsetDays, 0, 0, 0, 0, now.Location())
}
