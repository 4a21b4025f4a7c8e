package journal

import (
	"fmt"
	"strings"
)

// TimeLayout is the clock format used by Format.
const TimeLayout = "15:04:05"

// Format renders an entry as a single console line, e.g.
//
//	[14:03:11] WARNING Network drop simulated. Response lost.
func Format(e Entry) string {
	return fmt.Sprintf("[%s] %-7s %s", e.Timestamp.Format(TimeLayout), strings.ToUpper(string(e.Kind)), e.Message)
}

func FormatAll(entries []Entry) []string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, Format(e))
	}
	return lines
}
