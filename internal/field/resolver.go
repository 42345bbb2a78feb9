package field

import (
	"fmt"
	"sort"

	"github.com/floe-data/drift.report/internal/grid"
)

// RangePolicy controls how time queries outside the series' time span are
// answered.
type RangePolicy string

const (
	// RangeClamp answers out-of-range times with the nearest slice. This is
	// the default: the velocity products this system was built for are
	// published as annual or quarterly mosaics, and parcels routinely need
	// to be advected slightly past the last mosaic.
	RangeClamp RangePolicy = "clamp"
	// RangeInvalidate marks out-of-range time queries invalid.
	RangeInvalidate RangePolicy = "invalidate"
)

// ValidRangePolicies lists the supported out-of-range time policies.
var ValidRangePolicies = []string{string(RangeClamp), string(RangeInvalidate)}

// Resolver answers (t, x, y) point queries over a Series by locating the
// bracketing pair of time slices and blending their spatial samples
// linearly in time. Samplers are built eagerly, one per slice, and the
// resolver is safe for concurrent use.
type Resolver struct {
	series   *Series
	samplers []*grid.Sampler
	policy   RangePolicy
}

// NewResolver builds a Resolver over s using the given spatial
// interpolation method and out-of-range time policy.
func NewResolver(s *Series, method grid.Method, extrapolate bool, policy RangePolicy) (*Resolver, error) {
	if s == nil {
		return nil, fmt.Errorf("nil series")
	}
	switch policy {
	case RangeClamp, RangeInvalidate:
	default:
		return nil, fmt.Errorf("unknown range policy %q", policy)
	}
	samplers := make([]*grid.Sampler, s.Len())
	for i := range samplers {
		sampler, err := grid.NewSampler(s.Slice(i).Grid, method, extrapolate)
		if err != nil {
			return nil, fmt.Errorf("slice %d: %w", i, err)
		}
		samplers[i] = sampler
	}
	return &Resolver{series: s, samplers: samplers, policy: policy}, nil
}

// Series returns the underlying time-slice series.
func (r *Resolver) Series() *Series { return r.series }

// SampleAt interpolates the named field at (x, y) and time t.
func (r *Resolver) SampleAt(field string, t, x, y float64) grid.Sample {
	// steady dataset: time is ignored
	if r.series.Steady() {
		return r.samplers[0].Sample(field, x, y)
	}

	first, last := r.series.TimeBounds()
	if t <= first {
		if t < first && r.policy == RangeInvalidate {
			return grid.Invalid
		}
		return r.samplers[0].Sample(field, x, y)
	}
	if t >= last {
		if t > last && r.policy == RangeInvalidate {
			return grid.Invalid
		}
		return r.samplers[len(r.samplers)-1].Sample(field, x, y)
	}

	// first index with slice time >= t; t is interior so 1 <= i <= len-1
	i := sort.Search(r.series.Len(), func(i int) bool {
		return r.series.Slice(i).Time >= t
	})
	if r.series.Slice(i).Time == t {
		// exact hit: no blend, no zero-length interval
		return r.samplers[i].Sample(field, x, y)
	}

	t0 := r.series.Slice(i - 1).Time
	t1 := r.series.Slice(i).Time
	s0 := r.samplers[i-1].Sample(field, x, y)
	s1 := r.samplers[i].Sample(field, x, y)
	if !s0.Valid || !s1.Valid {
		return grid.Invalid
	}
	w := (t1 - t) / (t1 - t0)
	return grid.Sample{Value: s0.Value*w + s1.Value*(1.0-w), Valid: true}
}
