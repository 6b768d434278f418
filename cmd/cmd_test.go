package cmd

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/court-booker/internal/booking"
	"github.com/example/court-booker/internal/session/sessiontest"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func siteEnv(t *testing.T, site *sessiontest.Backend) {
	t.Helper()
	ep := site.Endpoints()
	for k, v := range map[string]string{
		"BOOKING_MODE":        "api",
		"BOOKING_USERNAME":    "ace",
		"BOOKING_PASSWORD":    "s3cret",
		"AUTH_URL":            ep.Auth,
		"BOOKING_URL":         ep.Booking,
		"RESOURCES":           "7318,7319",
		"FACILITY_ID":         "1530",
		"RESERVATION_TYPE_ID": "1",
		"DURATION":            "120",
		"START_SLOT_ID":       "13",
		"TIMEZONE":            "UTC",
		"TIMEOUT":             "5s",
		"LOCK_URL":            "",
		"RELEASE_TIME":        "",
		"TELEGRAM_BOT_TOKEN":  "",
		"TELEGRAM_CHAT_ID":    "",
	} {
		t.Setenv(k, v)
	}
}

func TestBookFallsBackAndSucceeds(t *testing.T) {
	site := sessiontest.New("ace", "s3cret", "7319")
	defer site.Close()
	siteEnv(t, site)

	out, err := run(t, "book", "--now", "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "status=booked")
	assert.Contains(t, out, "1. 7318: failed (slot unavailable: http 200)")
	assert.Contains(t, out, "2. 7319: booked")
	assert.Len(t, site.Submissions(), 2)
}

func TestBookAllFailExitsWithError(t *testing.T) {
	site := sessiontest.New("ace", "s3cret")
	defer site.Close()
	siteEnv(t, site)

	out, err := run(t, "book", "--now", "-q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(booking.StatusAllAttemptsFailed))
	assert.Contains(t, out, "status=all_attempts_failed")
}

func TestBookBadPasswordMakesNoSubmissions(t *testing.T) {
	site := sessiontest.New("ace", "s3cret", "7318")
	defer site.Close()
	siteEnv(t, site)
	t.Setenv("BOOKING_PASSWORD", "wrong")

	_, err := run(t, "book", "--now", "-q")
	require.Error(t, err)
	assert.ErrorIs(t, err, booking.ErrAuthentication)
	assert.Empty(t, site.Submissions())
}

func TestBookConfigError(t *testing.T) {
	site := sessiontest.New("ace", "s3cret", "7318")
	defer site.Close()
	siteEnv(t, site)
	t.Setenv("RESOURCES", "")
	t.Setenv("FACILITY_ID", "")

	_, err := run(t, "book", "--now", "-q")
	assert.ErrorIs(t, err, booking.ErrConfiguration)
	assert.ErrorContains(t, err, "RESOURCES, FACILITY_ID")
}

func TestBookLockFailureStopsBeforeLogin(t *testing.T) {
	site := sessiontest.New("ace", "s3cret", "7318")
	defer site.Close()
	siteEnv(t, site)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	t.Setenv("LOCK_URL", "redis://"+addr+"/0")

	out, err := run(t, "book", "--now", "-q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runlock")
	assert.Empty(t, out)
	assert.Zero(t, site.Logins())
	assert.Empty(t, site.Submissions())
}

func TestPingReadsConfigFile(t *testing.T) {
	site := sessiontest.New("ace", "s3cret")
	defer site.Close()
	siteEnv(t, site)
	os.Unsetenv("BOOKING_PASSWORD")

	path := filepath.Join(t.TempDir(), "courtbook.yaml")
	require.NoError(t, os.WriteFile(path, []byte("booking_password: s3cret\n"), 0o600))

	out, err := run(t, "--config", path, "-q", "ping")
	require.NoError(t, err)
	assert.Equal(t, "ok: logged in as ace (api mode)\n", out)
	assert.Empty(t, site.Submissions())
}

func TestDatePrintsAllLayouts(t *testing.T) {
	t.Setenv("TIMEZONE", "UTC")
	out, err := run(t, "date", "--days-ahead", "0")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "submit:  "))
	assert.True(t, strings.HasPrefix(lines[2], "input:   "))
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "courtbook dev"))
}
