package convert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time accepts the date/time shapes the backend emits: RFC 3339, zone-less
// local date-times, plain dates and null.
type Time struct{ time.Time }

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("time: want string, got %s", b)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, l := range timeLayouts {
		if v, err := time.ParseInLocation(l, s, time.Local); err == nil {
			t.Time = v
			return nil
		}
	}
	return fmt.Errorf("time: unrecognized format %q", s)
}

// Ptr returns nil for the zero time.
func (t Time) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// DateString formats a date the way the backend expects in request bodies.
func DateString(t time.Time) string { return t.Format("2006-01-02") }

// DateTimeString formats a local date-time for request bodies.
func DateTimeString(t time.Time) string { return t.Format("2006-01-02T15:04:05") }
