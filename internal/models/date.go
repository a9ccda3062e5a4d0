package models

import (
	"encoding/json"
	"strings"
	"time"
)

// DateLayout is the canonical date-only representation.
const DateLayout = "2006-01-02"

// Date is a calendar day in DateLayout form. The empty Date means "no date"
// and is encoded as JSON null.
type Date string

// ParseDate converts a date-only string or a full timestamp string into a
// Date, dropping any time of day. Strings that do not start with a valid
// calendar day yield the zero Date.
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	if len(s) < len(DateLayout) {
		return ""
	}
	day := s[:len(DateLayout)]
	if _, err := time.Parse(DateLayout, day); err != nil {
		return ""
	}
	return Date(day)
}

// DateOf formats the calendar day of t.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return ""
	}
	return Date(t.Format(DateLayout))
}

// IsZero reports whether no date is set.
func (d Date) IsZero() bool { return d == "" }

// String returns the date in DateLayout form, or "" when unset.
func (d Date) String() string { return string(d) }

// MarshalJSON encodes the zero Date as null.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

// UnmarshalJSON accepts null, date-only and full timestamp strings.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*d = ParseDate(s)
	return nil
}
