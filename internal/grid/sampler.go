package grid

import (
	"fmt"
	"math"
	"sort"
)

// Method selects the spatial interpolation scheme.
type Method string

const (
	Bilinear Method = "bilinear"
	Nearest  Method = "nearest"
)

// ValidMethods lists the supported interpolation methods.
var ValidMethods = []string{string(Bilinear), string(Nearest)}

// Sample is the result of a point query. Valid is false when the query
// point fell outside the covered domain or hit missing data.
type Sample struct {
	Value float64
	Valid bool
}

// Invalid is the zero sample returned for out-of-domain queries.
var Invalid = Sample{Value: math.NaN(), Valid: false}

// Sampler answers point queries against one Grid. A Sampler is a pure
// function of (Grid, x, y): it holds no mutable state and is safe for
// concurrent use.
type Sampler struct {
	g           *Grid
	method      Method
	extrapolate bool
}

// NewSampler builds a Sampler for g. When extrapolate is true, queries up
// to one cell beyond the grid bounds are answered by linear extrapolation
// instead of being invalidated.
func NewSampler(g *Grid, method Method, extrapolate bool) (*Sampler, error) {
	if g == nil {
		return nil, fmt.Errorf("nil grid")
	}
	switch method {
	case Bilinear, Nearest:
	default:
		return nil, fmt.Errorf("unknown interpolation method %q", method)
	}
	return &Sampler{g: g, method: method, extrapolate: extrapolate}, nil
}

// Grid returns the mesh this sampler reads from.
func (s *Sampler) Grid() *Grid { return s.g }

// Sample interpolates the named field at (x, y).
func (s *Sampler) Sample(field string, x, y float64) Sample {
	values, ok := s.g.fields[field]
	if !ok {
		return Invalid
	}
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return Invalid
	}
	ix, fx, ok := cellIndex(s.g.xs, x, s.extrapolate)
	if !ok {
		return Invalid
	}
	iy, fy, ok := cellIndex(s.g.ys, y, s.extrapolate)
	if !ok {
		return Invalid
	}

	switch s.method {
	case Nearest:
		if fx >= 0.5 {
			ix++
		}
		if fy >= 0.5 {
			iy++
		}
		v := s.g.value(values, ix, iy)
		if math.IsNaN(v) {
			return Invalid
		}
		return Sample{Value: v, Valid: true}
	default: // Bilinear
		v00 := s.g.value(values, ix, iy)
		v10 := s.g.value(values, ix+1, iy)
		v01 := s.g.value(values, ix, iy+1)
		v11 := s.g.value(values, ix+1, iy+1)
		if math.IsNaN(v00) || math.IsNaN(v10) || math.IsNaN(v01) || math.IsNaN(v11) {
			return Invalid
		}
		v := (1-fy)*((1-fx)*v00+fx*v10) + fy*((1-fx)*v01+fx*v11)
		return Sample{Value: v, Valid: true}
	}
}

// cellIndex locates the cell enclosing v on a strictly increasing axis and
// returns the cell's lower index plus the fractional position within it.
// With extrapolation enabled, points within one edge cell width beyond the
// axis are mapped onto the edge cell (fraction outside [0, 1]).
func cellIndex(axis []float64, v float64, extrapolate bool) (int, float64, bool) {
	n := len(axis)
	if v < axis[0] {
		w := axis[1] - axis[0]
		if !extrapolate || v < axis[0]-w {
			return 0, 0, false
		}
		return 0, (v - axis[0]) / w, true
	}
	if v > axis[n-1] {
		w := axis[n-1] - axis[n-2]
		if !extrapolate || v > axis[n-1]+w {
			return 0, 0, false
		}
		return n - 2, (v - axis[n-2]) / w, true
	}
	// first index with axis[i] >= v
	i := sort.SearchFloat64s(axis, v)
	if i > 0 {
		i--
	}
	if i > n-2 {
		i = n - 2
	}
	return i, (v - axis[i]) / (axis[i+1] - axis[i]), true
}
