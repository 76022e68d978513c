package model

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts covers the formats the boards actually emit: ISO timestamps,
// plain ISO dates, and the British long/short forms NHS and DWP use.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2 January 2006",
	"02/01/2006",
	"2 Jan 2006",
}

// ParseDate parses a scraped date string, trying each known layout in turn.
// Returns false for empty or unrecognized input.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatAge renders a scraped date as a short relative string: "3d ago",
// "2w ago" for the past, "in 5d" for future dates (closing dates), and
// "N/A" when the date cannot be parsed.
func FormatAge(s string, now time.Time) string {
	t, ok := ParseDate(s)
	if !ok {
		return "N/A"
	}

	days := int(now.Sub(t).Hours() / 24)
	if days < 0 {
		return "in " + span(-days)
	}
	if days == 0 {
		hours := int(now.Sub(t).Hours())
		if hours < 1 {
			return "just now"
		}
		return fmt.Sprintf("%dh ago", hours)
	}
	return span(days) + " ago"
}

func span(days int) string {
	switch {
	case days < 7:
		return fmt.Sprintf("%dd", days)
	case days < 30:
		return fmt.Sprintf("%dw", days/7)
	case days < 365:
		return fmt.Sprintf("%dmo", days/30)
	default:
		return fmt.Sprintf("%dy", days/365)
	}
}
