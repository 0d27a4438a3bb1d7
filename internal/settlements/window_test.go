package settlements

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWindowNamed(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	start, end, err := ParseWindow("7d", "", "", 24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, now, end)
	assert.Equal(t, now.Add(-7*24*time.Hour), start)
}

func TestParseWindowUnknownName(t *testing.T) {
	_, _, err := ParseWindow("3d", "", "", 24*time.Hour, time.Now())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown window")
}

func TestParseWindowExplicitBounds(t *testing.T) {
	now := time.Now()

	start, end, err := ParseWindow("", "2026-08-01T00:00:00Z", "2026-08-15T00:00:00Z", 24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), end)
}

func TestParseWindowRejectsInvertedBounds(t *testing.T) {
	_, _, err := ParseWindow("", "2026-08-15T00:00:00Z", "2026-08-01T00:00:00Z", 24*time.Hour, time.Now())
	assert.Error(t, err)
}

func TestParseWindowRejectsBadTimestamps(t *testing.T) {
	_, _, err := ParseWindow("", "yesterday", "2026-08-15T00:00:00Z", 24*time.Hour, time.Now())
	assert.Error(t, err)

	_, _, err = ParseWindow("", "2026-08-01T00:00:00Z", "not-a-time", 24*time.Hour, time.Now())
	assert.Error(t, err)
}

func TestParseWindowDefault(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	start, end, err := ParseWindow("", "", "", 48*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, now, end)
	assert.Equal(t, now.Add(-48*time.Hour), start)
}
