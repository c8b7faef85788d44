package ids

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Timestamp wraps a UTC instant. Every aggregate stores its occurred_at /
// updated_at fields as Timestamp rather than a bare time.Time so comparisons
// are always made against the same UTC-normalized representation.
type Timestamp struct {
	t time.Time
}

// Now returns the current Timestamp, normalized to UTC.
func Now() Timestamp {
	return Timestamp{t: time.Now().UTC()}
}

// NewTimestamp wraps an existing time.Time, normalizing it to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t: t.UTC()}
}

// Time returns the underlying time.Time.
func (ts Timestamp) Time() time.Time { return ts.t }

// IsAfter reports whether ts is strictly after other.
func (ts Timestamp) IsAfter(other Timestamp) bool {
	return ts.t.After(other.t)
}

// IsBefore reports whether ts is strictly before other.
func (ts Timestamp) IsBefore(other Timestamp) bool {
	return ts.t.Before(other.t)
}

// AddDays returns a new Timestamp offset by n days (n may be negative).
func (ts Timestamp) AddDays(n int) Timestamp {
	return Timestamp{t: ts.t.AddDate(0, 0, n)}
}

// Add returns a new Timestamp offset by d.
func (ts Timestamp) Add(d time.Duration) Timestamp {
	return Timestamp{t: ts.t.Add(d)}
}

// Sub returns the duration between ts and other (ts - other).
func (ts Timestamp) Sub(other Timestamp) time.Duration {
	return ts.t.Sub(other.t)
}

// IsZero reports whether ts is the zero Timestamp.
func (ts Timestamp) IsZero() bool { return ts.t.IsZero() }

// String renders ts in RFC3339Nano, matching the teacher's event payload
// timestamp convention (pkg/events/payloads.go).
func (ts Timestamp) String() string { return ts.t.Format(time.RFC3339Nano) }

// MarshalJSON implements json.Marshaler using RFC3339Nano.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + ts.t.Format(time.RFC3339Nano) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler using RFC3339Nano.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if len(data) >= 2 {
		data = data[1 : len(data)-1]
	}
	parsed, err := time.Parse(time.RFC3339Nano, string(data))
	if err != nil {
		return err
	}
	ts.t = parsed.UTC()
	return nil
}

// Value implements driver.Valuer so Timestamp can be passed directly as a
// database/sql query argument.
func (ts Timestamp) Value() (driver.Value, error) {
	return ts.t, nil
}

// Scan implements sql.Scanner so Timestamp can be scanned directly out of a
// TIMESTAMPTZ column.
func (ts *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		ts.t = v.UTC()
		return nil
	case nil:
		ts.t = time.Time{}
		return nil
	default:
		return fmt.Errorf("ids.Timestamp.Scan: unsupported type %T", src)
	}
}
