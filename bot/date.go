package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// maxAccessDays caps how far out an access grant may expire. The window is
// [today, today+maxAccessDays): today itself is fine, seven full days is not.
const maxAccessDays = 7

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// parseExpiry turns the duration slot into a calendar date. It accepts
// absolute dates in any common form plus the relative keywords "today",
// "tomorrow", and weekday names (meaning the next such day, today included).
func parseExpiry(input string, today time.Time) (time.Time, error) {
	today = truncateToDay(today)

	switch key := strings.ToLower(strings.TrimSpace(input)); key {
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	default:
		if wd, ok := weekdays[key]; ok {
			ahead := (int(wd) - int(today.Weekday()) + 7) % 7
			return today.AddDate(0, 0, ahead), nil
		}
	}

	parsed, err := dateparse.ParseAny(input)
	if err != nil {
		return time.Time{}, err
	}
	return truncateToDay(parsed), nil
}

// validateExpiry checks the grant window and returns the zero-padded
// YYYY-MM-DD form on success. The rejection message is user-facing.
func validateExpiry(expiry, today time.Time) (string, string) {
	delta := int(truncateToDay(expiry).Sub(truncateToDay(today)).Hours() / 24)

	switch {
	case delta < 0:
		return "", "The date you have entered is in the past. The date must be today's date or later (YYYY-MM-DD)."
	case delta >= maxAccessDays:
		return "", fmt.Sprintf("The number of days you have requested is greater than %d days! I can only give you access to tables for %d days.", maxAccessDays, maxAccessDays)
	}

	return isoDate(expiry), ""
}

func isoDate(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
