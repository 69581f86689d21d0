package acquire

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTimeRange is returned for unparseable or inverted time windows.
var ErrInvalidTimeRange = errors.New("invalid time range")

// DefaultLookbackDays is the window searched when no start is given.
const DefaultLookbackDays = 30

// Accepted time formats, most specific first.
var timeFormats = []string{
	time.RFC3339Nano,      // "2006-01-02T15:04:05.999999999Z07:00"
	time.RFC3339,          // "2006-01-02T15:04:05Z07:00"
	"2006-01-02T15:04:05", // Without timezone
	time.DateOnly,         // "2006-01-02"
}

// TimeRange is the closed acquisition window handed to the live source.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// ParseTime parses a timestamp or a bare date. Returns time in UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty time string", ErrInvalidTimeRange)
	}

	var lastErr error
	for _, format := range timeFormats {
		t, err := time.Parse(format, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("%w: failed to parse time %q: %v", ErrInvalidTimeRange, s, lastErr)
}

// ResolveTimeRange builds the acquisition window. A missing end defaults to
// now and a missing start to lookbackDays before the end.
func ResolveTimeRange(start, end string, lookbackDays int, now time.Time) (TimeRange, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}

	to := now.UTC()
	if end != "" {
		t, err := ParseTime(end)
		if err != nil {
			return TimeRange{}, err
		}
		to = t
	}

	from := to.AddDate(0, 0, -lookbackDays)
	if start != "" {
		t, err := ParseTime(start)
		if err != nil {
			return TimeRange{}, err
		}
		from = t
	}

	if from.After(to) {
		return TimeRange{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidTimeRange,
			from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	return TimeRange{From: from, To: to}, nil
}
