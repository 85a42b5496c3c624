// Package timex provides a JSON-friendly time type.
// Serialized form is ISO-8601 with millisecond precision, which keeps
// timestamps comparable across the extension exports and this service.
package timex

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Layout is the canonical serialized form.
const Layout = "2006-01-02T15:04:05.000Z07:00"

// legacyLayout accepts timestamps written by older exports.
const legacyLayout = "2006-01-02 15:04:05"

type Time time.Time

// Now returns the current instant as a timex.Time.
func Now() Time {
	return Time(time.Now())
}

func (t Time) MarshalJSON() ([]byte, error) {
	b := make([]byte, 0, len(Layout)+2)
	b = append(b, '"')
	b = time.Time(t).AppendFormat(b, Layout)
	b = append(b, '"')
	return b, nil
}

func (t *Time) UnmarshalJSON(data []byte) error {
	if len(data) == 4 && string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("timex: invalid time %q", data)
	}
	s := string(data[1 : len(data)-1])
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, Layout, legacyLayout} {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			*t = Time(parsed)
			return nil
		}
	}
	return fmt.Errorf("timex: cannot parse time %q", s)
}

func (t Time) String() string {
	return time.Time(t).Format(Layout)
}

// Value implements driver.Valuer so the type can be stored by gorm.
func (t Time) Value() (driver.Value, error) {
	return time.Time(t), nil
}

// Scan implements sql.Scanner.
func (t *Time) Scan(v interface{}) error {
	switch value := v.(type) {
	case time.Time:
		*t = Time(value)
		return nil
	case []byte:
		return t.UnmarshalJSON(append([]byte{'"'}, append(value, '"')...))
	case string:
		return t.UnmarshalJSON([]byte(`"` + value + `"`))
	default:
		return fmt.Errorf("timex: cannot scan %T", v)
	}
}

func (t Time) Time() time.Time {
	return time.Time(t)
}

func (t Time) IsZero() bool {
	return time.Time(t).IsZero()
}

// After reports whether t is after u, the last-write-wins ordering test.
func (t Time) After(u Time) bool {
	return time.Time(t).After(time.Time(u))
}

func (t Time) Add(d time.Duration) Time {
	return Time(time.Time(t).Add(d))
}

func (t Time) Unix() int64 {
	return time.Time(t).Unix()
}

func (t Time) UnixMilli() int64 {
	return time.Time(t).UnixMilli()
}

func (t Time) UnixMicro() int64 {
	return time.Time(t).UnixMicro()
}

func (t Time) UnixNano() int64 {
	return time.Time(t).UnixNano()
}
