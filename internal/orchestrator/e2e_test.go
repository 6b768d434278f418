package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/court-booker/internal/booking"
	"github.com/example/court-booker/internal/session"
	"github.com/example/court-booker/internal/session/sessiontest"
)

func runAgainst(t *testing.T, site *sessiontest.Backend, password string) booking.Report {
	t.Helper()
	c, err := session.New(site.Endpoints(), booking.Credentials{Identifier: "ace", Secret: password}, session.Options{Logger: quiet, Timeout: 5 * time.Second})
	require.NoError(t, err)
	defer c.Close()

	return newOrchestrator(c).Run(context.Background(), booking.ParseResources("7318, 7319"))
}

func TestEndToEndFirstChoiceBooked(t *testing.T) {
	site := sessiontest.New("ace", "s3cret", "7318")
	defer site.Close()

	rep := runAgainst(t, site, "s3cret")
	require.Equal(t, booking.StatusBooked, rep.Status)

	subs := site.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "7318", subs[0].Get("resource_id"))
	assert.Equal(t, "07/15/2025", subs[0].Get("reservation_date"))
	assert.Len(t, rep.Attempts, 1)
}

func TestEndToEndFallsBack(t *testing.T) {
	site := sessiontest.New("ace", "s3cret", "7319")
	defer site.Close()

	rep := runAgainst(t, site, "s3cret")
	require.Equal(t, booking.StatusBooked, rep.Status)

	subs := site.Submissions()
	require.Len(t, subs, 2)
	assert.Equal(t, "7318", subs[0].Get("resource_id"))
	assert.Equal(t, "7319", subs[1].Get("resource_id"))
	require.Len(t, rep.Attempts, 2)
	assert.Equal(t, "slot unavailable: http 200", rep.Attempts[0].Reason)
	assert.True(t, rep.Attempts[1].Succeeded)
}

func TestEndToEndBadPassword(t *testing.T) {
	site := sessiontest.New("ace", "s3cret", "7318")
	defer site.Close()

	rep := runAgainst(t, site, "nope")
	assert.Equal(t, booking.StatusAuthenticationFailed, rep.Status)
	assert.Empty(t, site.Submissions())
}
