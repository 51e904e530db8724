package granularity

import (
	"testing"
	"time"

	domrepo "FxChart/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func TestCalculateGranularityRepresentativeSpans(t *testing.T) {
	tests := []struct {
		name     string
		end      time.Time
		expected domrepo.Granularity
		inBand   bool
	}{
		{name: "30 minutes", end: base.Add(30 * time.Minute), expected: domrepo.M1, inBand: false},
		{name: "1 hour", end: base.Add(time.Hour), expected: domrepo.M1, inBand: true},
		{name: "2 hours", end: base.Add(2 * time.Hour), expected: domrepo.M1, inBand: true},
		{name: "8 hours", end: base.Add(8 * time.Hour), expected: domrepo.M5, inBand: true},
		{name: "1.5 days", end: base.Add(36 * time.Hour), expected: domrepo.M15, inBand: true},
		{name: "7 days", end: base.AddDate(0, 0, 7), expected: domrepo.H1, inBand: true},
		{name: "30 days", end: base.AddDate(0, 0, 30), expected: domrepo.H4, inBand: true},
		{name: "5 months", end: base.AddDate(0, 5, 0), expected: domrepo.D, inBand: true},
		{name: "1 year", end: base.AddDate(1, 0, 0), expected: domrepo.W, inBand: true},
		{name: "2 years", end: base.AddDate(2, 0, 0), expected: domrepo.W, inBand: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := CalculateGranularity(base, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, g)

			n, err := CalculateDataPoints(base, tt.end, g)
			require.NoError(t, err)
			if tt.inBand {
				assert.GreaterOrEqual(t, n, MinTargetPoints)
				assert.LessOrEqual(t, n, MaxTargetPoints)
			}
		})
	}
}

func TestCalculateGranularityStaysInBand(t *testing.T) {
	limit := base.AddDate(2, 0, 0).Sub(base)
	for span := time.Hour; span <= limit; span = span * 107 / 100 {
		end := base.Add(span)
		g, err := CalculateGranularity(base, end)
		require.NoError(t, err)

		n, err := CalculateDataPoints(base, end, g)
		require.NoError(t, err)
		if n < MinTargetPoints || n > MaxTargetPoints {
			t.Fatalf("span %s: %s yields %d points", span, g, n)
		}
	}
}

func TestCalculateGranularityInvalidRange(t *testing.T) {
	_, err := CalculateGranularity(base, base)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = CalculateGranularity(base.Add(time.Hour), base)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = CalculateGranularityWithTarget(base, base, 100)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestCalculateGranularityTargetBounds(t *testing.T) {
	end := base.Add(24 * time.Hour)
	tests := []struct {
		name    string
		target  int
		wantErr bool
	}{
		{name: "below band", target: 10, wantErr: true},
		{name: "above band", target: 1000, wantErr: true},
		{name: "negative", target: -1, wantErr: true},
		{name: "zero is explicit here", target: 0, wantErr: true},
		{name: "lower bound", target: 50},
		{name: "upper bound", target: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CalculateGranularityWithTarget(base, end, tt.target)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTarget)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCalculateGranularityPrefersNearestToTarget(t *testing.T) {
	// M15 gives 96 points, M30 only 48
	g, err := CalculateGranularityWithTarget(base, base.Add(24*time.Hour), 100)
	require.NoError(t, err)
	assert.Equal(t, domrepo.M15, g)
}

func TestCalculateGranularityTieGoesCoarser(t *testing.T) {
	// 8h: M1 = 480, M5 = 96, both 192 away from 288
	g, err := CalculateGranularityWithTarget(base, base.Add(8*time.Hour), 288)
	require.NoError(t, err)
	assert.Equal(t, domrepo.M5, g)

	// 1d: M5 = 288, M15 = 96, both 96 away from 192
	g, err = CalculateGranularityWithTarget(base, base.Add(24*time.Hour), 192)
	require.NoError(t, err)
	assert.Equal(t, domrepo.M15, g)
}

func TestCalculateDataPoints(t *testing.T) {
	tests := []struct {
		name     string
		end      time.Time
		g        domrepo.Granularity
		expected int
	}{
		{name: "hour at M1", end: base.Add(60 * time.Minute), g: domrepo.M1, expected: 60},
		{name: "hour at M5", end: base.Add(60 * time.Minute), g: domrepo.M5, expected: 12},
		{name: "day at H1", end: base.Add(24 * time.Hour), g: domrepo.H1, expected: 24},
		{name: "day at H4", end: base.Add(24 * time.Hour), g: domrepo.H4, expected: 6},
		{name: "30 days at D", end: base.AddDate(0, 0, 30), g: domrepo.D, expected: 30},
		{name: "9 weeks and change at W", end: base.AddDate(0, 0, 9*7+3), g: domrepo.W, expected: 9},
		{name: "partial bucket truncates", end: base.Add(29 * time.Minute), g: domrepo.M30, expected: 0},
		{name: "inverted range", end: base.Add(-time.Hour), g: domrepo.M1, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := CalculateDataPoints(base, tt.end, tt.g)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, n)
		})
	}
}

func TestCalculateDataPointsUnknownGranularity(t *testing.T) {
	for _, raw := range []string{"X", "m5", "", "1h"} {
		_, err := CalculateDataPoints(base, base.Add(time.Hour), domrepo.Granularity(raw))
		assert.ErrorIs(t, err, ErrUnknownGranularity, raw)
	}
}

func TestAvailableGranularities(t *testing.T) {
	want := []domrepo.Granularity{"M1", "M5", "M15", "M30", "H1", "H4", "D", "W"}

	first := AvailableGranularities()
	assert.Equal(t, want, first)
	assert.Len(t, first, 8)

	first[0] = "X"
	assert.Equal(t, want, AvailableGranularities())
}

func TestNewCalculator(t *testing.T) {
	c, err := NewCalculator(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTargetPoints, c.DefaultTarget())

	_, err = NewCalculator(600)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	c, err = NewCalculator(100)
	require.NoError(t, err)
	g, err := c.Granularity(base, base.Add(24*time.Hour), nil)
	require.NoError(t, err)
	assert.Equal(t, domrepo.M15, g)
}

func TestGranularityExplicitZeroTarget(t *testing.T) {
	c, err := NewCalculator(0)
	require.NoError(t, err)

	zero := 0
	_, err = c.Granularity(base, base.Add(24*time.Hour), &zero)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	g, err := c.Granularity(base, base.Add(24*time.Hour), nil)
	require.NoError(t, err)
	assert.Equal(t, domrepo.M15, g)
}
