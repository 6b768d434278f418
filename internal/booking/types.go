package booking

import (
	"fmt"
	"net/url"
	"strings"
)

// Mode selects which backend variant a deployment talks to. The two are
// mutually exclusive: a deployment either posts the booking form directly or
// drives the interactive schedule.
type Mode string

const (
	ModeAPI  Mode = "api"
	ModeGrid Mode = "grid"
)

// Credentials are the backend login. The secret never appears in formatted
// output.
type Credentials struct {
	Identifier string
	Secret     string
}

func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Identifier: %q, Secret: [redacted]}", c.Identifier)
}

func (c Credentials) GoString() string { return c.String() }

type Endpoints struct {
	Auth    string
	Booking string
}

// Resource names a bookable unit: a numeric id for the form backend, a court
// label for the schedule backend.
type Resource string

// ParseResources splits a comma-separated list, keeping order and dropping
// blanks.
func ParseResources(s string) []Resource {
	var out []Resource
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, Resource(p))
	}
	return out
}

// Request is one booking attempt against one resource.
type Request struct {
	ResourceID      Resource
	FacilityID      string
	Date            string
	StartSlot       string
	ReservationType string
	Duration        string
}

// Form renders the request with the field names the reservation endpoint
// expects.
func (r Request) Form() url.Values {
	v := url.Values{}
	v.Set("resource_id", string(r.ResourceID))
	v.Set("facility_id", r.FacilityID)
	v.Set("reservation_date", r.Date)
	v.Set("start_slot_id", r.StartSlot)
	v.Set("reservation_type_id", r.ReservationType)
	v.Set("duration", r.Duration)
	return v
}

// Template carries the per-deployment constants every Request shares.
type Template struct {
	FacilityID      string
	StartSlot       string
	ReservationType string
	Duration        string
}

func (t Template) For(res Resource, date string) Request {
	return Request{
		ResourceID:      res,
		FacilityID:      t.FacilityID,
		Date:            date,
		StartSlot:       t.StartSlot,
		ReservationType: t.ReservationType,
		Duration:        t.Duration,
	}
}
