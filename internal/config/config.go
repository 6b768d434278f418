// Package config loads run settings from the environment and an optional
// config file.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/example/court-booker/internal/booking"
	"github.com/example/court-booker/internal/grid"
)

type Config struct {
	Mode        booking.Mode
	Credentials booking.Credentials
	Endpoints   booking.Endpoints
	Resources   []booking.Resource
	DaysAhead   int
	// Template holds the per-request fields. In grid mode StartSlot is the
	// row time label and Duration is in hours.
	Template booking.Template
	Timeout  time.Duration

	SuccessMarkers     []string
	UnavailableMarkers []string
	LoginErrorMarkers  []string
	AuthSuccessMarker  string
	UsernameField      string
	PasswordField      string

	Headless   bool
	ChromePath string

	LockURL string
	LockTTL time.Duration

	TelegramToken  string
	TelegramChatID int64

	ReleaseTime string
	Timezone    string
}

var defaults = map[string]any{
	"BOOKING_MODE":        string(booking.ModeAPI),
	"DAYS_AHEAD":          strconv.Itoa(booking.DefaultDaysAhead),
	"TIMEOUT":             "15s",
	"SUCCESS_MARKERS":     "successfully booked",
	"UNAVAILABLE_MARKERS": "slot taken,not available",
	"LOGIN_ERROR_MARKERS": "Invalid username or password",
	"AUTH_SUCCESS_MARKER": "Reservations",
	"USERNAME_FIELD":      "username",
	"PASSWORD_FIELD":      "password",
	"HEADLESS":            "true",
	"LOCK_TTL":            "10m",
	"TIMEZONE":            "America/New_York",
}

// Load reads every key, reporting all unparsable and missing values in one
// *booking.ConfigError.
func Load(v *viper.Viper) (Config, error) {
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	ce := &booking.ConfigError{}
	get := func(k string) string { return strings.TrimSpace(v.GetString(k)) }

	cfg := Config{
		Mode: booking.Mode(strings.ToLower(get("BOOKING_MODE"))),
		Credentials: booking.Credentials{
			Identifier: get("BOOKING_USERNAME"),
			Secret:     v.GetString("BOOKING_PASSWORD"),
		},
		Endpoints: booking.Endpoints{
			Auth:    get("AUTH_URL"),
			Booking: get("BOOKING_URL"),
		},
		Resources:          booking.ParseResources(get("RESOURCES")),
		SuccessMarkers:     splitList(v.GetString("SUCCESS_MARKERS")),
		UnavailableMarkers: splitList(v.GetString("UNAVAILABLE_MARKERS")),
		LoginErrorMarkers:  splitList(v.GetString("LOGIN_ERROR_MARKERS")),
		AuthSuccessMarker:  get("AUTH_SUCCESS_MARKER"),
		UsernameField:      get("USERNAME_FIELD"),
		PasswordField:      get("PASSWORD_FIELD"),
		ChromePath:         get("CHROME_PATH"),
		LockURL:            get("LOCK_URL"),
		TelegramToken:      get("TELEGRAM_BOT_TOKEN"),
		ReleaseTime:        get("RELEASE_TIME"),
		Timezone:           get("TIMEZONE"),
	}

	if cfg.Mode == booking.ModeGrid {
		cfg.Template = booking.Template{StartSlot: get("BOOKING_TIME"), Duration: get("DURATION_HOURS")}
	} else {
		cfg.Template = booking.Template{
			FacilityID:      get("FACILITY_ID"),
			StartSlot:       get("START_SLOT_ID"),
			ReservationType: get("RESERVATION_TYPE_ID"),
			Duration:        get("DURATION"),
		}
	}

	if n, err := strconv.Atoi(get("DAYS_AHEAD")); err != nil || n < 0 {
		ce.Invalid = append(ce.Invalid, fmt.Sprintf("DAYS_AHEAD=%q (want a whole number >= 0)", get("DAYS_AHEAD")))
	} else {
		cfg.DaysAhead = n
	}
	cfg.Timeout = duration(get("TIMEOUT"))
	cfg.LockTTL = duration(get("LOCK_TTL"))
	if b, err := strconv.ParseBool(get("HEADLESS")); err != nil {
		ce.Invalid = append(ce.Invalid, fmt.Sprintf("HEADLESS=%q", get("HEADLESS")))
	} else {
		cfg.Headless = b
	}
	if s := get("TELEGRAM_CHAT_ID"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			ce.Invalid = append(ce.Invalid, fmt.Sprintf("TELEGRAM_CHAT_ID=%q", s))
		}
		cfg.TelegramChatID = id
	}

	cfg.check(ce)
	if ce.Empty() {
		return cfg, nil
	}
	return cfg, ce
}

// Validate reports every missing or invalid field of an assembled Config.
func (c Config) Validate() error {
	ce := &booking.ConfigError{}
	c.check(ce)
	if ce.Empty() {
		return nil
	}
	return ce
}

func (c Config) check(ce *booking.ConfigError) {
	required := func(key, val string) {
		if val == "" {
			ce.Missing = append(ce.Missing, key)
		}
	}
	invalid := func(format string, args ...any) {
		ce.Invalid = append(ce.Invalid, fmt.Sprintf(format, args...))
	}

	required("BOOKING_USERNAME", c.Credentials.Identifier)
	required("BOOKING_PASSWORD", c.Credentials.Secret)
	required("AUTH_URL", c.Endpoints.Auth)
	if len(c.Resources) == 0 {
		ce.Missing = append(ce.Missing, "RESOURCES")
	}
	if c.Endpoints.Auth != "" && !httpURL(c.Endpoints.Auth) {
		invalid("AUTH_URL=%q (want an http(s) URL)", c.Endpoints.Auth)
	}

	switch c.Mode {
	case booking.ModeAPI:
		required("BOOKING_URL", c.Endpoints.Booking)
		required("FACILITY_ID", c.Template.FacilityID)
		required("RESERVATION_TYPE_ID", c.Template.ReservationType)
		required("DURATION", c.Template.Duration)
		required("START_SLOT_ID", c.Template.StartSlot)
		if c.Endpoints.Booking != "" && !httpURL(c.Endpoints.Booking) {
			invalid("BOOKING_URL=%q (want an http(s) URL)", c.Endpoints.Booking)
		}
	case booking.ModeGrid:
		required("BOOKING_TIME", c.Template.StartSlot)
		required("DURATION_HOURS", c.Template.Duration)
		if c.Template.Duration != "" {
			h, err := strconv.ParseFloat(c.Template.Duration, 64)
			if _, ok := grid.DurationLabel(h); err != nil || !ok {
				invalid("DURATION_HOURS=%q (want one of %s)", c.Template.Duration, grid.DurationChoices())
			}
		}
	default:
		invalid("BOOKING_MODE=%q (want api or grid)", c.Mode)
	}

	if c.Timeout <= 0 {
		invalid("TIMEOUT (want a positive duration like 15s)")
	}
	if c.LockURL != "" && c.LockTTL <= 0 {
		invalid("LOCK_TTL (want a positive duration like 10m)")
	}
	if c.LockURL != "" {
		if u, err := url.Parse(c.LockURL); err != nil || !knownLockScheme(u.Scheme) {
			invalid("LOCK_URL=%q (want redis:// or postgres://)", c.LockURL)
		}
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == 0) {
		invalid("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	if c.ReleaseTime != "" {
		if _, err := time.Parse("15:04", c.ReleaseTime); err != nil {
			invalid("RELEASE_TIME=%q (want HH:MM)", c.ReleaseTime)
		}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		invalid("TIMEZONE=%q", c.Timezone)
	}
}

// duration returns 0 for anything unparsable; check reports it.
func duration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func httpURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func knownLockScheme(s string) bool {
	switch s {
	case "redis", "rediss", "postgres", "postgresql":
		return true
	}
	return false
}
