package types

import "time"

// DayFormat is the wire and storage format for civil dates.
const DayFormat = "2006-01-02"

// Day truncates a timestamp to its civil date, normalized to midnight
// UTC. All engine arithmetic works on Day-normalized values so that
// equality and ordering behave regardless of the source timezone.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayIn truncates a timestamp to its civil date as observed in loc,
// then normalizes to midnight UTC. This is how "today" is derived for
// a garden whose clock is not UTC.
func DayIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the civil date n days after t (n may be negative).
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

// NextDay returns the civil date immediately after t.
func NextDay(t time.Time) time.Time {
	return AddDays(t, 1)
}

// SameDay reports whether two timestamps fall on the same civil date.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

// DaysBetween returns the number of whole days from a to b; negative
// when b precedes a.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// ParseDay parses a "2006-01-02" string into a normalized civil date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayFormat, s)
	if err != nil {
		return time.Time{}, NewAppError(ErrCodeValidationInvalidDate, "date must be formatted YYYY-MM-DD", err)
	}
	return Day(t), nil
}

// FormatDay renders a timestamp's civil date as "2006-01-02".
func FormatDay(t time.Time) string {
	return Day(t).Format(DayFormat)
}
