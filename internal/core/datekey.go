package core

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// InvalidDateError is returned when a date string cannot be parsed as
// YYYY-MM-DD.
type InvalidDateError struct {
	Input string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q (expected YYYY-MM-DD)", e.Input)
}

var (
	refLocOnce sync.Once
	refLoc     *time.Location
)

// ReferenceLocation returns the fixed reference time zone that anchors the
// upstream API's "current day" boundary. The device-local zone is
// deliberately not used: in the evening the API already considers it the
// next day relative to zones east of US Pacific.
func ReferenceLocation() *time.Location {
	refLocOnce.Do(func() {
		loc, err := time.LoadLocation(ReferenceTZ)
		if err != nil {
			loc = time.UTC
		}
		refLoc = loc
	})
	return refLoc
}

// YearMonthDay is a calendar date key. It is the sole identifier of a cached
// entry: the canonical string form names the on-disk files, and ordering by
// (year, month, day) determines which entry is "latest".
type YearMonthDay struct {
	Year  int
	Month int
	Day   int
}

// ParseYearMonthDay parses a canonical YYYY-MM-DD string. The input must
// have exactly three dash-separated integer segments.
func ParseYearMonthDay(s string) (YearMonthDay, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return YearMonthDay{}, &InvalidDateError{Input: s}
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return YearMonthDay{}, &InvalidDateError{Input: s}
		}
		nums[i] = n
	}
	return YearMonthDay{Year: nums[0], Month: nums[1], Day: nums[2]}, nil
}

// YMDFromTime returns the calendar date of t in the reference time zone.
func YMDFromTime(t time.Time) YearMonthDay {
	t = t.In(ReferenceLocation())
	return YearMonthDay{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// Today returns the current calendar date in the reference time zone.
func Today() YearMonthDay {
	return YMDFromTime(time.Now())
}

// Yesterday returns the calendar date before Today.
func Yesterday() YearMonthDay {
	return Today().AddDays(-1)
}

// Tomorrow returns the calendar date after Today.
func Tomorrow() YearMonthDay {
	return Today().AddDays(1)
}

// String renders the canonical zero-padded form. It round-trips with
// ParseYearMonthDay.
func (d YearMonthDay) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Compare orders two keys lexicographically on (year, month, day),
// returning -1, 0, or 1.
func (d YearMonthDay) Compare(other YearMonthDay) int {
	if c := cmpInt(d.Year, other.Year); c != 0 {
		return c
	}
	if c := cmpInt(d.Month, other.Month); c != 0 {
		return c
	}
	return cmpInt(d.Day, other.Day)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Before reports whether d orders strictly before other.
func (d YearMonthDay) Before(other YearMonthDay) bool {
	return d.Compare(other) < 0
}

// Time returns midnight of the key's date in the reference time zone.
func (d YearMonthDay) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, ReferenceLocation())
}

// AddDays returns the key n calendar days away, normalizing across month and
// year boundaries.
func (d YearMonthDay) AddDays(n int) YearMonthDay {
	return YMDFromTime(d.Time().AddDate(0, 0, n))
}

// IsCurrent reports whether the key is "today" as of now in the reference
// time zone.
func (d YearMonthDay) IsCurrent(now time.Time) bool {
	return d == YMDFromTime(now)
}

// NextDayStart returns the instant the following calendar day begins in the
// reference time zone. Once this instant has passed, a new upstream entry
// may exist.
func (d YearMonthDay) NextDayStart() time.Time {
	return d.AddDays(1).Time()
}

// MarshalJSON encodes the key as its canonical string.
func (d YearMonthDay) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

// UnmarshalJSON decodes a canonical string into the key.
func (d *YearMonthDay) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return &InvalidDateError{Input: string(data)}
	}
	parsed, err := ParseYearMonthDay(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
