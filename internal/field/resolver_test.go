package field

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floe-data/drift.report/internal/grid"
)

// uniformSlice builds a 3x3 slice over [0,2]x[0,2] with constant field "u".
func uniformSlice(t *testing.T, stamp, value float64) TimeSlice {
	t.Helper()
	g, err := grid.New([]float64{0, 1, 2}, []float64{0, 1, 2})
	require.NoError(t, err)
	vals := make([]float64, 9)
	for i := range vals {
		vals[i] = value
	}
	require.NoError(t, g.AddField("u", vals))
	return TimeSlice{Time: stamp, Grid: g}
}

func TestNewSeriesValidation(t *testing.T) {
	s1 := uniformSlice(t, 0, 1)
	s2 := uniformSlice(t, 1, 2)

	_, err := NewSeries()
	assert.Error(t, err, "empty series")

	_, err = NewSeries(s2, s1)
	assert.Error(t, err, "out-of-order timestamps")

	_, err = NewSeries(s1, uniformSlice(t, 0, 2))
	assert.Error(t, err, "duplicate timestamps")

	_, err = NewSeries(TimeSlice{Time: math.NaN(), Grid: s1.Grid})
	assert.Error(t, err, "non-finite timestamp")

	_, err = NewSeries(TimeSlice{Time: 0})
	assert.Error(t, err, "nil grid")

	s, err := NewSeries(s1, s2)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	first, last := s.TimeBounds()
	assert.Equal(t, 0.0, first)
	assert.Equal(t, 1.0, last)
}

func TestResolverBlend(t *testing.T) {
	// field constant in space: u=10 at t=0, u=20 at t=2
	s, err := NewSeries(uniformSlice(t, 0, 10), uniformSlice(t, 2, 20))
	require.NoError(t, err)
	r, err := NewResolver(s, grid.Bilinear, false, RangeClamp)
	require.NoError(t, err)

	// at the endpoints: exactly the endpoint slices
	got := r.SampleAt("u", 0, 1, 1)
	require.True(t, got.Valid)
	assert.Equal(t, 10.0, got.Value)

	got = r.SampleAt("u", 2, 1, 1)
	require.True(t, got.Valid)
	assert.Equal(t, 20.0, got.Value)

	// at the midpoint: the arithmetic mean
	got = r.SampleAt("u", 1, 1, 1)
	require.True(t, got.Valid)
	assert.InDelta(t, 15.0, got.Value, 1e-12)

	// quarter point
	got = r.SampleAt("u", 0.5, 1, 1)
	require.True(t, got.Valid)
	assert.InDelta(t, 12.5, got.Value, 1e-12)
}

func TestResolverSteady(t *testing.T) {
	s, err := NewSeries(uniformSlice(t, 5, 42))
	require.NoError(t, err)
	r, err := NewResolver(s, grid.Bilinear, false, RangeInvalidate)
	require.NoError(t, err)

	// steady dataset ignores t entirely, even with the invalidate policy
	for _, tm := range []float64{-100, 0, 5, 1e6} {
		got := r.SampleAt("u", tm, 1, 1)
		require.True(t, got.Valid, "t=%v", tm)
		assert.Equal(t, 42.0, got.Value)
	}
}

func TestResolverRangePolicy(t *testing.T) {
	s, err := NewSeries(uniformSlice(t, 0, 10), uniformSlice(t, 1, 20))
	require.NoError(t, err)

	clamp, err := NewResolver(s, grid.Bilinear, false, RangeClamp)
	require.NoError(t, err)
	inval, err := NewResolver(s, grid.Bilinear, false, RangeInvalidate)
	require.NoError(t, err)

	// before the first slice
	got := clamp.SampleAt("u", -1, 1, 1)
	require.True(t, got.Valid)
	assert.Equal(t, 10.0, got.Value)
	assert.False(t, inval.SampleAt("u", -1, 1, 1).Valid)

	// after the last slice
	got = clamp.SampleAt("u", 3, 1, 1)
	require.True(t, got.Valid)
	assert.Equal(t, 20.0, got.Value)
	assert.False(t, inval.SampleAt("u", 3, 1, 1).Valid)

	// exactly on the boundary stays valid under both policies
	assert.True(t, inval.SampleAt("u", 0, 1, 1).Valid)
	assert.True(t, inval.SampleAt("u", 1, 1, 1).Valid)
}

func TestResolverExactInteriorHit(t *testing.T) {
	s, err := NewSeries(uniformSlice(t, 0, 10), uniformSlice(t, 1, 20), uniformSlice(t, 2, 40))
	require.NoError(t, err)
	r, err := NewResolver(s, grid.Bilinear, false, RangeClamp)
	require.NoError(t, err)

	got := r.SampleAt("u", 1, 1, 1)
	require.True(t, got.Valid)
	assert.Equal(t, 20.0, got.Value)
}

func TestResolverInvalidEndpointPoisonsBlend(t *testing.T) {
	// second slice has a hole at the query point's cell corners
	g, err := grid.New([]float64{0, 1, 2}, []float64{0, 1, 2})
	require.NoError(t, err)
	vals := make([]float64, 9)
	for i := range vals {
		vals[i] = math.NaN()
	}
	require.NoError(t, g.AddField("u", vals))

	s, err := NewSeries(uniformSlice(t, 0, 10), TimeSlice{Time: 2, Grid: g})
	require.NoError(t, err)
	r, err := NewResolver(s, grid.Bilinear, false, RangeClamp)
	require.NoError(t, err)

	assert.False(t, r.SampleAt("u", 1, 1, 1).Valid, "blend with invalid endpoint must be invalid")
}

func TestResolverSpatialOutOfBounds(t *testing.T) {
	s, err := NewSeries(uniformSlice(t, 0, 10), uniformSlice(t, 1, 20))
	require.NoError(t, err)
	r, err := NewResolver(s, grid.Bilinear, false, RangeClamp)
	require.NoError(t, err)

	assert.False(t, r.SampleAt("u", 0.5, 5, 5).Valid)
}
