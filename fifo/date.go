package fifo

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// DATE - Calendar day, canonical form YYYY-MM-DD
// =============================================================================

const dateLayout = "2006-01-02"

// Date is a calendar day. The zero value means "no date".
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Comparison
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }
func (d Date) IsZero() bool           { return d.t.IsZero() }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

func (d Date) Time() time.Time { return d.t }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := NormalizeDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// DATE NORMALIZER
// =============================================================================

// NormalizeDate canonicalizes a Y-M-D date string. Two-digit years are
// mapped into the 2000s ("24-1-5" -> 2024-01-05). A trailing time component
// separated by 'T' or a space is ignored.
//
// Empty input returns the zero Date and no error: "no date" is not a parse
// failure, but callers must still treat it as invalid input.
func NormalizeDate(raw string) (Date, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Date{}, nil
	}
	if i := strings.IndexAny(s, "T "); i >= 0 {
		s = s[:i]
	}

	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("date %q: want Y-M-D", raw)
	}

	var ymd [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Date{}, fmt.Errorf("date %q: bad component %q", raw, p)
		}
		ymd[i] = n
	}

	year, month, day := ymd[0], ymd[1], ymd[2]
	if year < 100 {
		year += 2000
	}

	d := NewDate(year, time.Month(month), day)
	// time.Date normalizes overflow (Feb 30 -> Mar 2); reject instead.
	if d.t.Year() != year || int(d.t.Month()) != month || d.t.Day() != day {
		return Date{}, fmt.Errorf("date %q: not a calendar day", raw)
	}
	return d, nil
}

// MustDate is NormalizeDate for literals known to be valid. Panics otherwise.
func MustDate(raw string) Date {
	d, err := NormalizeDate(raw)
	if err != nil || d.IsZero() {
		panic(fmt.Sprintf("fifo: invalid date literal %q", raw))
	}
	return d
}
