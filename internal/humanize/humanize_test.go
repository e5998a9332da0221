package humanize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSpeed(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   float64
		want string
	}{
		{0, "0 "},
		{-12, "0 "},
		{1, "1 "},
		{99999, "99999 "},
		{100000, "100.0 k"},
		{1_500_000, "1.5 M"},
		{2_340_000_000, "2.3 G"},
		{7.2e12, "7.2 T"},
		{3e15, "3.0 P"},
		{4e18, "4.0 E"},
		{5e21, "5000.0 E"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Speed(tc.in), "Speed(%v)", tc.in)
	}
}

func TestDuration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "0 secs"},
		{500 * time.Millisecond, "0 secs"},
		{-time.Minute, "0 secs"},
		{time.Second, "1 sec"},
		{45 * time.Second, "45 secs"},
		{60 * time.Second, "1 min"},
		{90 * time.Second, "1 min, 30 secs"},
		{3600 * time.Second, "1 hour"},
		{3661 * time.Second, "1 hour, 1 min"},
		{3601 * time.Second, "1 hour, 1 sec"},
		{2*time.Hour + 30*time.Second, "2 hours, 30 secs"},
		{86405 * time.Second, "1 day, 5 secs"},
		{26 * time.Hour, "1 day, 2 hours"},
		{400 * 24 * time.Hour, "1 year, 35 days"},
		{2 * 365 * 24 * time.Hour, "2 years"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Duration(tc.in), "Duration(%v)", tc.in)
	}
}

func TestTimestamp(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, time.March, 5, 7, 8, 9, 0, time.Local)
	require.Equal(t, "Tue Mar  5 07:08:09 2024", Timestamp(ts))
}
