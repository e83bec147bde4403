package odoo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Registries send false for every empty field regardless of its type.
// The types below decode that convention so repositories can use plain
// struct decoding.

func isEmpty(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || bytes.Equal(b, []byte("false")) || bytes.Equal(b, []byte("null"))
}

// String decodes false as "".
type String string

func (s *String) UnmarshalJSON(b []byte) error {
	if isEmpty(b) {
		*s = ""
		return nil
	}
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("decode string field: %w", err)
	}
	*s = String(v)
	return nil
}

// Float decodes false as 0.
type Float float64

func (f *Float) UnmarshalJSON(b []byte) error {
	if isEmpty(b) {
		*f = 0
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("decode float field: %w", err)
	}
	*f = Float(v)
	return nil
}

// NullFloat keeps the difference between false and an actual value.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

func (f *NullFloat) UnmarshalJSON(b []byte) error {
	*f = NullFloat{}
	if isEmpty(b) {
		return nil
	}
	if err := json.Unmarshal(b, &f.Float64); err != nil {
		return fmt.Errorf("decode float field: %w", err)
	}
	f.Valid = true
	return nil
}

// Ptr returns nil for an empty value.
func (f NullFloat) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// IDs decodes a one2many/many2many id list, false as empty.
type IDs []int

func (ids *IDs) UnmarshalJSON(b []byte) error {
	if isEmpty(b) {
		*ids = nil
		return nil
	}
	var v []int
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("decode id list field: %w", err)
	}
	*ids = v
	return nil
}

// TimeLayout is the registry datetime wire format, always UTC.
const TimeLayout = "2006-01-02 15:04:05"

// Time decodes a registry datetime, false as the zero value.
type Time struct {
	time.Time
	Valid bool
}

func (t *Time) UnmarshalJSON(b []byte) error {
	*t = Time{}
	if isEmpty(b) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("decode datetime field: %w", err)
	}
	parsed, err := time.ParseInLocation(TimeLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("decode datetime field %q: %w", s, err)
	}
	t.Time = parsed
	t.Valid = true
	return nil
}

// Ptr returns nil for an empty value.
func (t Time) Ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// FormatTime renders t in the registry datetime format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
