// Package format renders durations, sizes and counts for console output.
package format

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Duration formats a duration as HH:MM:SS or MM:SS.
func Duration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Timeout formats a per-invocation timeout. Zero means no timeout.
// Examples: "disabled", "45s", "10m", "1h30m"
func Timeout(d time.Duration) string {
	if d <= 0 {
		return "disabled"
	}
	if d >= time.Hour {
		hours := d / time.Hour
		if minutes := (d % time.Hour) / time.Minute; minutes > 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("%dm", d/time.Minute)
	}
	return d.Round(time.Second).String()
}

// Size formats a size in bytes using binary units ("1.5 MiB").
func Size(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// Count formats an integer with thousands separators ("12,345").
func Count(n int) string {
	return humanize.Comma(int64(n))
}

// Ratio formats part/total as "part/total (pct%)". A zero total renders 0%.
func Ratio(part, total int) string {
	pct := 0.0
	if total > 0 {
		pct = float64(part) / float64(total) * 100
	}
	return fmt.Sprintf("%s/%s (%s%%)", Count(part), Count(total), humanize.FtoaWithDigits(pct, 1))
}
