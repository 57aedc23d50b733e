package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/lifecycled/internal/server"
)

// FormatDurationMS formats a millisecond duration as "42ms" or "1.2s"
func FormatDurationMS(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}

// FormatOrder renders a group order as "a → b → c"
func FormatOrder(order []string) string {
	if len(order) == 0 {
		return "(unknown)"
	}
	return strings.Join(order, " → ")
}

// FormatAge renders how long ago something happened
func FormatAge(d time.Duration) string {
	switch {
	case d < 2*time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh %dm ago", int(d.Hours()), int(d.Minutes())%60)
	}
}

// FormatPhases renders completed phase durations as "start 38ms · stop 2ms"
func FormatPhases(phases []server.PhaseSummary) string {
	if len(phases) == 0 {
		return "none"
	}
	parts := make([]string, len(phases))
	for i, p := range phases {
		parts[i] = fmt.Sprintf("%s %s", p.Phase, FormatDurationMS(p.DurationMS))
	}
	return strings.Join(parts, " · ")
}
