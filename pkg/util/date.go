package util

import (
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// AlignFromTo rounds both ends of a range down to multiples of bucket.
// Truncate counts from the zero time, a Monday, so daily buckets start at
// 00:00 UTC and weekly buckets on Monday 00:00 UTC.
func AlignFromTo(from, to time.Time, bucket time.Duration) (time.Time, time.Time) {
	if bucket <= 0 {
		bucket = time.Minute
	}
	return from.Truncate(bucket).UTC(), to.Truncate(bucket).UTC()
}
