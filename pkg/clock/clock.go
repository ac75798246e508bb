package clock

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the number of minutes in a calendar day
const MinutesPerDay = 24 * 60

// Time is a wall-clock time of day with minute precision, stored as minutes since midnight.
type Time int

// New builds a Time from an hour and minute.
func New(hour, minute int) Time {
	return Time(hour*60 + minute)
}

// Parse accepts "HH:MM" and "HH:MM:SS" (seconds must be zero).
func Parse(s string) (Time, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}

	if !twoDigits(parts[0]) {
		return 0, fmt.Errorf("invalid hour in time %q", s)
	}
	h, _ := strconv.Atoi(parts[0])
	if h > 23 {
		return 0, fmt.Errorf("invalid hour in time %q", s)
	}
	if !twoDigits(parts[1]) {
		return 0, fmt.Errorf("invalid minute in time %q", s)
	}
	m, _ := strconv.Atoi(parts[1])
	if m > 59 {
		return 0, fmt.Errorf("invalid minute in time %q", s)
	}
	if len(parts) == 3 && parts[2] != "00" {
		return 0, fmt.Errorf("invalid seconds in time %q", s)
	}

	return New(h, m), nil
}

// twoDigits reports whether s is exactly two ASCII digits. strconv.Atoi alone
// would accept a leading sign.
func twoDigits(s string) bool {
	return len(s) == 2 && s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}

// MustParse is Parse for constants. It panics on malformed input.
func MustParse(s string) Time {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t Time) Hour() int   { return int(t) / 60 }
func (t Time) Minute() int { return int(t) % 60 }

// Add shifts t by d, truncated to whole minutes.
func (t Time) Add(d time.Duration) Time {
	return t + Time(d/time.Minute)
}

// Sub returns the duration t-u.
func (t Time) Sub(u Time) time.Duration {
	return time.Duration(t-u) * time.Minute
}

func (t Time) Before(u Time) bool { return t < u }
func (t Time) After(u Time) bool  { return t > u }

// Valid reports whether t lies within a single day.
func (t Time) Valid() bool {
	return t >= 0 && t < MinutesPerDay
}

func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On anchors t to the given date in loc.
func (t Time) On(d Date, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour(), t.Minute(), 0, 0, loc)
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Time) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("time must be a string: %w", err)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value stores the time as a postgres time literal.
func (t Time) Value() (driver.Value, error) {
	return t.String() + ":00", nil
}

// Scan reads a postgres time column.
func (t *Time) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return t.scanString(string(v))
	case string:
		return t.scanString(v)
	case time.Time:
		*t = New(v.Hour(), v.Minute())
		return nil
	case nil:
		return fmt.Errorf("cannot scan NULL into clock.Time")
	default:
		return fmt.Errorf("cannot scan %T into clock.Time", src)
	}
}

func (t *Time) scanString(s string) error {
	// postgres may render fractional seconds, e.g. 09:40:00.000000
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
