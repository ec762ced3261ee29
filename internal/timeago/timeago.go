// Package timeago renders an absolute timestamp as a human readable age.
package timeago

import (
	"fmt"
	"time"
)

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour
	minutesPerYear = 365 * minutesPerDay
)

// Format returns how long ago t happened relative to now, using whole-minute
// buckets. Timestamps in the future clamp to "just now".
func Format(t, now time.Time) string {
	minutes := int64(now.Sub(t).Minutes())
	if minutes < 0 {
		minutes = 0
	}

	switch {
	case minutes < 1:
		return "just now"
	case minutes < minutesPerHour:
		return fmt.Sprintf("%d minutes ago", minutes)
	case minutes < minutesPerDay:
		return fmt.Sprintf("%d hours ago", minutes/minutesPerHour)
	case minutes < minutesPerYear:
		return fmt.Sprintf("%d days ago", minutes/minutesPerDay)
	default:
		return fmt.Sprintf("%d years ago", minutes/minutesPerDay/365)
	}
}
