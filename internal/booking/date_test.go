package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDateIgnoresTimeOfDay(t *testing.T) {
	for _, clock := range []string{"00:00:00", "00:00:01", "12:30:00", "23:59:59"} {
		now, err := time.Parse("2006-01-02 15:04:05", "2025-07-12 "+clock)
		require.NoError(t, err)
		assert.Equal(t, "07/15/2025", ResolveDate(now, 3, LayoutSubmit), clock)
	}
}

func TestResolveDateIsDeterministic(t *testing.T) {
	now := time.Date(2025, 2, 27, 18, 45, 0, 0, time.UTC)
	first := ResolveDate(now, 3, LayoutInput)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ResolveDate(now, 3, LayoutInput))
	}
	assert.Equal(t, "2025-03-02", first)
}

func TestResolveDateOffsets(t *testing.T) {
	now := time.Date(2024, 12, 30, 22, 0, 0, 0, time.UTC)
	cases := map[int]string{
		0:  "12/30/2024",
		1:  "12/31/2024",
		2:  "01/01/2025",
		3:  "01/02/2025",
		60: "02/28/2025",
	}
	for offset, want := range cases {
		assert.Equal(t, want, ResolveDate(now, offset, LayoutSubmit), "offset %d", offset)
	}
}

func TestResolveDateAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// Clocks spring forward on 2025-03-09; a 23:30 start must still land
	// exactly three calendar days later.
	now := time.Date(2025, 3, 7, 23, 30, 0, 0, ny)
	assert.Equal(t, "03/10/2025", ResolveDate(now, 3, LayoutSubmit))

	day := TargetDay(now, 3)
	assert.Equal(t, 0, day.Hour())
	assert.Equal(t, ny, day.Location())
}

func TestResolveDateDisplayLayout(t *testing.T) {
	now := time.Date(2025, 7, 2, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "Saturday, July 05", ResolveDate(now, 3, LayoutDisplay))
	assert.Equal(t, "2025-07-05", ResolveDate(now, 3, LayoutInput))
}
