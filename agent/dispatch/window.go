package dispatch

import "time"

const dateLayout = "2006-01-02"

// NextFriday returns the upcoming Friday relative to now. A Friday maps to
// itself, so weekend planning starts the same day.
func NextFriday(now time.Time) time.Time {
	offset := (int(time.Friday) - int(now.Weekday()) + 7) % 7
	return now.AddDate(0, 0, offset)
}

// TravelWindow derives the default check-in/check-out pair for a trip of the
// given length starting on the next Friday.
func TravelWindow(now time.Time, days int) (checkin, checkout string) {
	if days <= 0 {
		days = defaultTripDays
	}
	start := NextFriday(now)
	return start.Format(dateLayout), start.AddDate(0, 0, days).Format(dateLayout)
}
