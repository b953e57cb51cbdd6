package timeutil

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// UTCTime is a timestamp that is always stored and shown in UTC.
type UTCTime time.Time

func NowUTC() UTCTime {
	return UTCTime(time.Now().UTC())
}

func (t UTCTime) UTC() time.Time {
	return time.Time(t).UTC()
}

func (t UTCTime) String() string {
	return t.UTC().Format(time.RFC3339)
}

func (t UTCTime) MarshalText() ([]byte, error) {
	return t.UTC().MarshalText()
}

func (t *UTCTime) UnmarshalText(b []byte) error {
	var v time.Time
	if err := v.UnmarshalText(b); err != nil {
		return err
	}
	*t = UTCTime(v.UTC())
	return nil
}

func (t UTCTime) Value() (driver.Value, error) {
	return t.UTC(), nil
}

func (t *UTCTime) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		*t = UTCTime(v.UTC())
		return nil
	case string:
		return t.UnmarshalText([]byte(v))
	case []byte:
		return t.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into UTCTime", value)
	}
}
