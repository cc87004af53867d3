package trips

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "Z")
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// segmentDates extracts the date span a segment contributes: a stay spans
// checkin..checkout, a single-date segment spans date..date.
func segmentDates(seg Segment) (start, end time.Time, okStart, okEnd bool) {
	if seg.Checkin != "" || seg.Checkout != "" {
		start, okStart = parseDate(seg.Checkin)
		end, okEnd = parseDate(seg.Checkout)
		return start, end, okStart, okEnd
	}
	d, ok := parseDate(seg.Date)
	return d, d, ok, ok
}

// computeRange derives the trip's date window from its segments: start is
// the earliest contributed start, end the latest contributed end. Segments
// with no parseable dates contribute nothing; when no segment contributes,
// both results are empty and the caller keeps the previous values.
func computeRange(segments []Segment) (start, end string) {
	var minStart, maxEnd time.Time
	haveStart, haveEnd := false, false

	for _, seg := range segments {
		s, e, okS, okE := segmentDates(seg)
		if okS && (!haveStart || s.Before(minStart)) {
			minStart = s
			haveStart = true
		}
		if okE && (!haveEnd || e.After(maxEnd)) {
			maxEnd = e
			haveEnd = true
		}
	}

	if haveStart {
		start = formatDate(minStart)
	}
	if haveEnd {
		end = formatDate(maxEnd)
	} else if haveStart {
		end = start
	}
	return start, end
}

// displayDate renders an ISO date for user-facing Spanish text.
func displayDate(s string) string {
	t, ok := parseDate(s)
	if !ok {
		if s == "" {
			return "?"
		}
		return s
	}
	return t.Format("02/01/2006")
}
