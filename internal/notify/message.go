package notify

import (
	"fmt"
	"strings"

	"schoolattend/internal/attendance"
	"schoolattend/internal/report"
)

// ScanLine renders one scan as "<name> - Clock In at 08:47 AM".
func ScanLine(name string, kind attendance.Kind, clock string) string {
	return fmt.Sprintf("%s - %s at %s", name, kind.Label(), report.FormatClock(clock))
}

// BuildReport renders the daily attendance report for date. Rows are listed in
// the order given; the store returns them by scan time.
func BuildReport(date string, rows []attendance.EventRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Attendance Report for %s\n", date)
	if len(rows) == 0 {
		b.WriteString("No attendance records for today.")
		return b.String()
	}
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString(ScanLine(r.Name, r.Kind, r.Time))
		b.WriteString("\n")
	}
	return b.String()
}
