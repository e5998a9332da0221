// Package humanize renders throughput, durations and timestamps for status
// displays.
package humanize

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the ctime-style layout used for absolute times.
const TimestampLayout = "Mon Jan _2 15:04:05 2006"

var speedUnits = [...]string{"", "k", "M", "G", "T", "P", "E"}

// speedRollover is the largest value rendered without a unit.
const speedRollover = 99999

// Speed renders a per-second rate with an SI suffix. Values up to 99999 are
// printed whole with a trailing space; larger values are scaled to the
// largest unit that keeps the mantissa at or above one and printed with one
// decimal.
func Speed(val float64) string {
	if val <= 0 {
		return "0 "
	}
	if val <= speedRollover {
		return fmt.Sprintf("%.0f ", val)
	}
	level := 0
	for val >= 1000 && level < len(speedUnits)-1 {
		val /= 1000
		level++
	}
	return fmt.Sprintf("%.1f %s", val, speedUnits[level])
}

type unit struct {
	one, many string
}

var durationUnits = [...]unit{
	{"year", "years"},
	{"day", "days"},
	{"hour", "hours"},
	{"min", "mins"},
	{"sec", "secs"},
}

// Duration renders d using its two most significant non-zero units. Each
// unit is pluralised by its own value. Sub-second durations render as
// "0 secs".
func Duration(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	tm := time.Unix(secs, 0).UTC()
	parts := [...]int{
		tm.Year() - 1970,
		tm.YearDay() - 1,
		tm.Hour(),
		tm.Minute(),
		tm.Second(),
	}

	out := make([]string, 0, 2)
	for i, v := range parts {
		if v == 0 {
			continue
		}
		out = append(out, plural(v, durationUnits[i]))
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return plural(0, durationUnits[len(durationUnits)-1])
	}
	return strings.Join(out, ", ")
}

func plural(v int, u unit) string {
	if v == 1 {
		return fmt.Sprintf("%d %s", v, u.one)
	}
	return fmt.Sprintf("%d %s", v, u.many)
}

// Timestamp renders t in local time using TimestampLayout.
func Timestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}
