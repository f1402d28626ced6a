package academic

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Clock is a time of day with second precision, stored as seconds since midnight.
type Clock int

// ParseClock accepts "HH:MM" or "HH:MM:SS".
func ParseClock(raw string) (Clock, error) {
	raw = strings.TrimSpace(raw)
	var h, m, s int
	var err error
	switch strings.Count(raw, ":") {
	case 1:
		_, err = fmt.Sscanf(raw, "%d:%d", &h, &m)
	case 2:
		_, err = fmt.Sscanf(raw, "%d:%d:%d", &h, &m, &s)
	default:
		err = fmt.Errorf("unexpected format")
	}
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", raw, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || s < 0 || s > 59 {
		return 0, fmt.Errorf("parse clock %q: out of range", raw)
	}
	return Clock(h*3600 + m*60 + s), nil
}

// MustClock is ParseClock for literals known to be valid.
func MustClock(raw string) Clock {
	c, err := ParseClock(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// ClockOf extracts the wall-clock time of t in its own location.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// Within reports whether c falls in the half-open range [start, end).
func (c Clock) Within(start, end Clock) bool {
	return c >= start && c < end
}

func (c Clock) String() string {
	v := int(c)
	return fmt.Sprintf("%02d:%02d:%02d", v/3600, (v%3600)/60, v%60)
}

// MarshalText renders the clock as HH:MM:SS.
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses HH:MM or HH:MM:SS.
func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value stores the clock as a Postgres TIME literal.
func (c Clock) Value() (driver.Value, error) {
	return c.String(), nil
}

// Scan reads TIME columns returned either as text or as time.Time.
func (c *Clock) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = 0
		return nil
	case time.Time:
		*c = ClockOf(v)
		return nil
	case []byte:
		return c.UnmarshalText(trimFraction(string(v)))
	case string:
		return c.UnmarshalText(trimFraction(v))
	default:
		return fmt.Errorf("scan clock: unsupported type %T", src)
	}
}

func trimFraction(raw string) []byte {
	if idx := strings.IndexByte(raw, '.'); idx >= 0 {
		raw = raw[:idx]
	}
	return []byte(raw)
}
