package settlements

import (
	"fmt"
	"time"
)

// Named settlement windows accepted by the query contract. Windows are
// inclusive at both ends.
var namedWindows = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
}

// ParseWindow resolves a named window, or an explicit start/end pair, into
// concrete bounds. With nothing specified the default window ending now is
// used.
func ParseWindow(named, startRaw, endRaw string, defaultWindow time.Duration, now time.Time) (time.Time, time.Time, error) {
	if named != "" {
		d, ok := namedWindows[named]
		if !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("unknown window %q (want 24h, 7d, 30d or 90d)", named)
		}
		return now.Add(-d), now, nil
	}
	if startRaw != "" || endRaw != "" {
		start, err := time.Parse(time.RFC3339, startRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start %q: %w", startRaw, err)
		}
		end, err := time.Parse(time.RFC3339, endRaw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end %q: %w", endRaw, err)
		}
		if end.Before(start) {
			return time.Time{}, time.Time{}, fmt.Errorf("window end %s is before start %s", endRaw, startRaw)
		}
		return start, end, nil
	}
	return now.Add(-defaultWindow), now, nil
}
