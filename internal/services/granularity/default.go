package granularity

import (
	"time"

	domrepo "FxChart/internal/domain/repository"
)

var std = &Calculator{defaultTarget: DefaultTargetPoints}

// CalculateGranularity picks a granularity for [start, end) using the default target.
func CalculateGranularity(start, end time.Time) (domrepo.Granularity, error) {
	return std.Granularity(start, end, nil)
}

// CalculateGranularityWithTarget picks a granularity for [start, end) steering
// towards target points.
func CalculateGranularityWithTarget(start, end time.Time, target int) (domrepo.Granularity, error) {
	return std.Granularity(start, end, &target)
}

// CalculateDataPoints returns how many whole g buckets fit in [start, end).
func CalculateDataPoints(start, end time.Time, g domrepo.Granularity) (int, error) {
	return std.DataPoints(start, end, g)
}

// AvailableGranularities returns the supported granularities in ascending order.
func AvailableGranularities() []domrepo.Granularity {
	return std.Available()
}
