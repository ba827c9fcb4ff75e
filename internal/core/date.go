package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateFormat is the wire format for ledger dates.
const DateFormat = "2006-01-02"

// Date is a calendar day. It wraps a time.Time pinned to UTC midnight;
// the ledger never deals in times of day.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar day.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// ParseDate accepts a plain date or a full timestamp, keeping only the
// calendar day. Legacy records stored full ISO timestamps.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(DateFormat)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("empty date")
	}
	return nil
}

// InMonth reports whether the date falls in the given year and month.
func (d Date) InMonth(year int, month time.Month) bool {
	return d.Year() == year && d.Month() == month
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON tolerates empty strings and null so partially written
// legacy payloads still decode; both yield the zero date.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
