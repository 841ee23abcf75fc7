package app

import (
	"errors"
	"time"
)

// User-facing conditions of the D-day registry
var (
	ErrInvalidDateFormat = errors.New("invalid date format")
	ErrDuplicateTitle    = errors.New("title already exists")
	ErrTitleNotFound     = errors.New("title not found")
	ErrEmptyLedger       = errors.New("no d-days registered")
)

const secondsPerDay = 24 * 60 * 60

// ParseDate parses an 8-digit YYYYMMDD date
func ParseDate(text string) (time.Time, error) {
	if len(text) != len(InputDateLayout) {
		return time.Time{}, ErrInvalidDateFormat
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return time.Time{}, ErrInvalidDateFormat
		}
	}
	t, err := time.Parse(InputDateLayout, text)
	if err != nil || t.Year() == 0 {
		return time.Time{}, ErrInvalidDateFormat
	}
	return t, nil
}

// AddEvent returns a copy of ledger with title registered on the date in dateText,
// together with the normalized YYYY-MM-DD date.
func AddEvent(ledger Ledger, title, dateText string) (Ledger, string, error) {
	date, err := ParseDate(dateText)
	if err != nil {
		return ledger, "", err
	}
	if _, ok := ledger[title]; ok {
		return ledger, "", ErrDuplicateTitle
	}

	normalized := date.Format(StoredDateLayout)
	out := ledger.Clone()
	out[title] = normalized
	return out, normalized, nil
}

// DeleteEvent returns a copy of ledger without title
func DeleteEvent(ledger Ledger, title string) (Ledger, error) {
	if _, ok := ledger[title]; !ok {
		return ledger, ErrTitleNotFound
	}
	out := ledger.Clone()
	delete(out, title)
	return out, nil
}

// ListEvents renders the ledger as countdowns relative to asOf, ordered by date.
// Entries with an unparseable stored date are returned in skipped.
func ListEvents(ledger Ledger, asOf time.Time) (countdowns []Countdown, skipped []string, err error) {
	if len(ledger) == 0 {
		return nil, nil, ErrEmptyLedger
	}

	for title, stored := range ledger {
		date, err := time.Parse(StoredDateLayout, stored)
		if err != nil {
			skipped = append(skipped, title)
			continue
		}
		countdowns = append(countdowns, Countdown{
			Title:  title,
			Date:   date,
			Offset: DayOffset(date, asOf),
		})
	}
	SortCountdowns(countdowns)
	return countdowns, skipped, nil
}

// DayOffset returns floor((date - asOf) / 24h) + 1 using wall-clock values,
// so any moment during the event's own day yields 0.
// Whole seconds are counted instead of a Duration, which saturates after ~292 years.
func DayOffset(date, asOf time.Time) int {
	now := wallClock(asOf)
	target := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	secs := target.Unix() - now.Unix()
	if now.Nanosecond() > 0 {
		// The true difference lies strictly between secs-1 and secs
		secs--
	}
	return int(floorDiv(secs, secondsPerDay)) + 1
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// wallClock drops the zone so DST transitions do not shift day arithmetic
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
