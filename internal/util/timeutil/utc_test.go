package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScan(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)
	local := time.Date(2024, 5, 1, 15, 0, 0, 0, msk)

	var u UTCTime
	require.NoError(t, u.Scan(local))
	require.Equal(t, "2024-05-01T12:00:00Z", u.String())

	require.NoError(t, u.Scan("2024-05-02T10:30:00+02:00"))
	require.Equal(t, "2024-05-02T08:30:00Z", u.String())

	before := u
	require.NoError(t, u.Scan(nil))
	require.Equal(t, before, u)

	require.Error(t, u.Scan(42))
}

func TestValue(t *testing.T) {
	v, err := NowUTC().Value()
	require.NoError(t, err)
	require.Equal(t, time.UTC, v.(time.Time).Location())
}
