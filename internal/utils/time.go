package utils

import (
	"fmt"
	"strings"
	"time"
)

const (
	layoutDate     = "2006-01-02"
	layoutDateTime = "2006-01-02 15:04:05"
	layoutDayFirst = "02/01/2006"
)

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// ParseDate accepts DD/MM/YYYY (what the web client sends) or YYYY-MM-DD and
// returns midnight UTC of that calendar day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range []string{layoutDayFirst, layoutDate, time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return TruncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// TruncateDay drops the clock part, keeping the calendar day in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Nights counts calendar nights in [checkin, checkout).
func Nights(checkin, checkout time.Time) int {
	return int(TruncateDay(checkout).Sub(TruncateDay(checkin)).Hours() / 24)
}

// FormatDate formats time to YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format(layoutDate)
}

// FormatDayFirst formats time to DD/MM/YYYY.
func FormatDayFirst(t time.Time) string {
	return t.UTC().Format(layoutDayFirst)
}

// FormatDateTime formats time to "YYYY-MM-DD HH:MM:SS".
func FormatDateTime(t time.Time) string {
	return t.UTC().Format(layoutDateTime)
}
