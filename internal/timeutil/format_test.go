package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRelativeTime(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Time{}, ""},
		{now.Add(-10 * time.Second), "just now"},
		{now.Add(10 * time.Second), "in a few seconds"},
		{now.Add(-time.Minute), "a minute ago"},
		{now.Add(-5 * time.Minute), "5 minutes ago"},
		{now.Add(time.Hour), "in an hour"},
		{now.Add(-3 * time.Hour), "3 hours ago"},
		{now.Add(-30 * time.Hour), "yesterday"},
		{now.Add(72 * time.Hour), "in 3 days"},
		{now.Add(-10 * 24 * time.Hour), "on May 31"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatRelativeTime(tt.at, now), "at %s", tt.at)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "42s", FormatDuration(42*time.Second))
	assert.Equal(t, "5m", FormatDuration(5*time.Minute+10*time.Second))
	assert.Equal(t, "2h", FormatDuration(2*time.Hour))
	assert.Equal(t, "3d", FormatDuration(80*time.Hour))
}

func TestReportFormats(t *testing.T) {
	at := time.Date(2024, 6, 1, 15, 4, 0, 0, time.UTC)
	assert.Equal(t, "Jun 1, 3:04 PM", FormatReportStamp(at))
	assert.Equal(t, "3:00 PM", FormatHour(at))
	assert.Equal(t, "Saturday, Jun 1", FormatLongDate(at))

	midnight := time.Date(2024, 6, 1, 0, 30, 0, 0, time.UTC)
	assert.Equal(t, "12:00 AM", FormatHour(midnight))
	noon := time.Date(2024, 6, 1, 12, 5, 0, 0, time.UTC)
	assert.Equal(t, "12:00 PM", FormatHour(noon))
}
