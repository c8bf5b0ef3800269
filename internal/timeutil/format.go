package timeutil

import (
	"fmt"
	"time"
)

// FormatRelativeTime describes t relative to now ("3 minutes ago", "in an hour").
func FormatRelativeTime(t time.Time, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	duration := t.Sub(now)
	past := duration < 0
	if past {
		duration = -duration
	}

	minutes := int(duration.Minutes())
	hours := int(duration.Hours())
	days := hours / 24

	switch {
	case duration < 30*time.Second:
		return pick(past, "just now", "in a few seconds")
	case duration < 90*time.Second:
		return pick(past, "a minute ago", "in a minute")
	case minutes < 45:
		return pick(past, fmt.Sprintf("%d minutes ago", minutes), fmt.Sprintf("in %d minutes", minutes))
	case minutes < 90:
		return pick(past, "an hour ago", "in an hour")
	case hours < 24:
		return pick(past, fmt.Sprintf("%d hours ago", hours), fmt.Sprintf("in %d hours", hours))
	case days == 1:
		return pick(past, "yesterday", "tomorrow")
	case days < 7:
		return pick(past, fmt.Sprintf("%d days ago", days), fmt.Sprintf("in %d days", days))
	default:
		return "on " + t.Format("Jan 2")
	}
}

func pick(past bool, ago, ahead string) string {
	if past {
		return ago
	}
	return ahead
}

// FormatDuration formats a duration in a compact way
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// FormatReportStamp renders the display stamp stored in an agent report,
// e.g. "Jun 1, 3:04 PM".
func FormatReportStamp(t time.Time) string {
	return t.Format("Jan 2, 3:04 PM")
}

// FormatHour renders the top of t's hour, e.g. "3:00 PM" or "12:00 AM".
func FormatHour(t time.Time) string {
	hour := t.Hour()
	ampm := "AM"
	if hour >= 12 {
		ampm = "PM"
	}
	hour12 := hour % 12
	if hour12 == 0 {
		hour12 = 12
	}
	return fmt.Sprintf("%d:00 %s", hour12, ampm)
}

// FormatLongDate renders "Monday, Jun 1".
func FormatLongDate(t time.Time) string {
	return t.Format("Monday, Jan 2")
}
