package repository

import (
	"errors"
	"fmt"
	"time"
)

// Granularity is a candle sampling interval. The string values are the codes
// the upstream market-data API accepts and must not change.
type Granularity string

const (
	M1  Granularity = "M1"
	M5  Granularity = "M5"
	M15 Granularity = "M15"
	M30 Granularity = "M30"
	H1  Granularity = "H1"
	H4  Granularity = "H4"
	D   Granularity = "D"
	W   Granularity = "W"
)

// ErrUnknownGranularity is returned for codes outside the fixed set.
var ErrUnknownGranularity = errors.New("unknown granularity")

// granularities is ordered by ascending duration.
var granularities = []Granularity{M1, M5, M15, M30, H1, H4, D, W}

var granularitySeconds = map[Granularity]int64{
	M1:  60,
	M5:  300,
	M15: 900,
	M30: 1800,
	H1:  3600,
	H4:  14400,
	D:   86400,
	W:   604800,
}

// Granularities returns the supported granularities in ascending duration order.
func Granularities() []Granularity {
	out := make([]Granularity, len(granularities))
	copy(out, granularities)
	return out
}

// IsValidGranularity returns true if g is a supported granularity.
func IsValidGranularity(g Granularity) bool {
	_, ok := granularitySeconds[g]
	return ok
}

// ParseGranularity converts a raw code to a Granularity. Matching is exact.
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(s)
	if !IsValidGranularity(g) {
		return "", fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
	}
	return g, nil
}

// Seconds returns the bucket length in seconds, or 0 for an unknown code.
func (g Granularity) Seconds() int64 { return granularitySeconds[g] }

// Duration returns the bucket length, or 0 for an unknown code.
func (g Granularity) Duration() time.Duration {
	return time.Duration(g.Seconds()) * time.Second
}

func (g Granularity) String() string { return string(g) }
