package granularity

import (
	"errors"
	"fmt"
	"time"

	domrepo "FxChart/internal/domain/repository"
)

const (
	MinTargetPoints = 50
	MaxTargetPoints = 500

	// DefaultTargetPoints applies when no target is supplied.
	DefaultTargetPoints = 150
)

var (
	ErrInvalidRange  = errors.New("invalid range")
	ErrInvalidTarget = errors.New("invalid target")

	// ErrUnknownGranularity is shared with ParseGranularity so callers can
	// match either source with errors.Is.
	ErrUnknownGranularity = domrepo.ErrUnknownGranularity
)

// Calculator picks candle granularities for chart ranges. It holds no mutable
// state and is safe for concurrent use.
type Calculator struct {
	defaultTarget int
}

// NewCalculator creates a Calculator. A zero defaultTarget selects DefaultTargetPoints.
func NewCalculator(defaultTarget int) (*Calculator, error) {
	if defaultTarget == 0 {
		defaultTarget = DefaultTargetPoints
	}
	if err := ValidateTarget(defaultTarget); err != nil {
		return nil, fmt.Errorf("default target: %w", err)
	}
	return &Calculator{defaultTarget: defaultTarget}, nil
}

// DefaultTarget returns the target used when callers pass no target.
func (c *Calculator) DefaultTarget() int { return c.defaultTarget }

// Granularity returns the granularity whose point count for [start, end) is
// closest to target, preferring counts inside [MinTargetPoints, MaxTargetPoints].
// A nil target selects the default; any supplied value, 0 included, must lie
// in the band. Ties go to the coarser granularity.
func (c *Calculator) Granularity(start, end time.Time, target *int) (domrepo.Granularity, error) {
	if err := ValidateRange(start, end); err != nil {
		return "", err
	}
	want := c.defaultTarget
	if target != nil {
		if err := ValidateTarget(*target); err != nil {
			return "", err
		}
		want = *target
	}

	span := end.Sub(start)
	var (
		best       domrepo.Granularity
		bestDist   int
		bestInBand bool
	)
	for _, g := range domrepo.Granularities() {
		n := countPoints(span, g)
		inBand := n >= MinTargetPoints && n <= MaxTargetPoints
		dist := abs(n - want)

		// candidates come in ascending duration, so <= lets the coarser one win a tie
		switch {
		case best == "":
		case inBand && !bestInBand:
		case inBand == bestInBand && dist <= bestDist:
		default:
			continue
		}
		best, bestDist, bestInBand = g, dist, inBand
	}
	return best, nil
}

// DataPoints returns how many whole g buckets fit in [start, end). The range
// is not validated; an empty or inverted range yields 0.
func (c *Calculator) DataPoints(start, end time.Time, g domrepo.Granularity) (int, error) {
	if !domrepo.IsValidGranularity(g) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownGranularity, g)
	}
	return countPoints(end.Sub(start), g), nil
}

// Available returns the supported granularities in ascending duration order.
func (c *Calculator) Available() []domrepo.Granularity {
	return domrepo.Granularities()
}

// ValidateRange checks that start is strictly before end.
func ValidateRange(start, end time.Time) error {
	if !start.Before(end) {
		return fmt.Errorf("%w: start %s must be before end %s",
			ErrInvalidRange, start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
	}
	return nil
}

// ValidateTarget checks that target lies in [MinTargetPoints, MaxTargetPoints].
func ValidateTarget(target int) error {
	if target < MinTargetPoints || target > MaxTargetPoints {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidTarget, target, MinTargetPoints, MaxTargetPoints)
	}
	return nil
}

func countPoints(span time.Duration, g domrepo.Granularity) int {
	if span <= 0 {
		return 0
	}
	return int(span / g.Duration())
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
