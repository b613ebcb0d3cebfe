// Package report reshapes raw scan rows into views for the dashboard, exports
// and notifications.
package report

import (
	"strings"
	"time"

	"schoolattend/internal/attendance"
)

// ClockDisplayLayout renders a wall-clock time as "08:47 AM".
const ClockDisplayLayout = "03:04 PM"

// FormatClock renders a stored "15:04:05" time as "03:04 PM". Values that do not
// parse are returned trimmed so a bad row never breaks a page.
func FormatClock(clock string) string {
	clock = strings.TrimSpace(clock)
	for _, layout := range []string{attendance.ClockLayout, "15:04"} {
		if t, err := time.Parse(layout, clock); err == nil {
			return t.Format(ClockDisplayLayout)
		}
	}
	return clock
}

// Status renders a kind in upper case, e.g. "CLOCK IN".
func Status(k attendance.Kind) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(string(k)), "_", " "))
}
