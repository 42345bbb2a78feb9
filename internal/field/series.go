package field

import (
	"fmt"
	"math"

	"github.com/floe-data/drift.report/internal/grid"
)

// TimeSlice is one time-stamped snapshot of a gridded field. Time is in
// the internal numeric time unit (days since J2000).
type TimeSlice struct {
	Time float64
	Grid *grid.Grid
}

// Series is an ordered sequence of TimeSlices with strictly increasing,
// unique timestamps. A single-slice Series describes a steady field.
type Series struct {
	slices []TimeSlice
}

// NewSeries validates and builds a Series. Slices must be supplied in
// ascending time order.
func NewSeries(slices ...TimeSlice) (*Series, error) {
	if len(slices) == 0 {
		return nil, fmt.Errorf("series: no time slices")
	}
	for i, ts := range slices {
		if ts.Grid == nil {
			return nil, fmt.Errorf("series: nil grid at slice %d", i)
		}
		if math.IsNaN(ts.Time) || math.IsInf(ts.Time, 0) {
			return nil, fmt.Errorf("series: non-finite timestamp at slice %d", i)
		}
		if i > 0 && ts.Time <= slices[i-1].Time {
			return nil, fmt.Errorf("series: timestamps not strictly increasing at slice %d (%v after %v)", i, ts.Time, slices[i-1].Time)
		}
	}
	return &Series{slices: append([]TimeSlice(nil), slices...)}, nil
}

// Len returns the number of time slices.
func (s *Series) Len() int { return len(s.slices) }

// Slice returns the i-th time slice.
func (s *Series) Slice(i int) TimeSlice { return s.slices[i] }

// TimeBounds returns the first and last timestamps.
func (s *Series) TimeBounds() (t0, t1 float64) {
	return s.slices[0].Time, s.slices[len(s.slices)-1].Time
}

// Steady reports whether the series holds a single time slice.
func (s *Series) Steady() bool { return len(s.slices) == 1 }
