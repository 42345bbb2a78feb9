package dataset

import (
	"fmt"
	"sort"

	"github.com/floe-data/drift.report/internal/field"
	"github.com/floe-data/drift.report/internal/grid"
)

// Bounds is a spatial bounding box.
type Bounds struct {
	MinX, MaxX, MinY, MaxY float64
}

// Crop restricts every slice of a series to the cells covering bounds,
// expanded by buffer whole cells on each side. Parcels advected within
// bounds then only carry the memory for the region of interest.
func Crop(s *field.Series, b Bounds, buffer int) (*field.Series, error) {
	if b.MinX > b.MaxX || b.MinY > b.MaxY {
		return nil, fmt.Errorf("crop: inverted bounds %+v", b)
	}
	if buffer < 0 {
		return nil, fmt.Errorf("crop: negative buffer %d", buffer)
	}

	slices := make([]field.TimeSlice, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		ts := s.Slice(i)
		g, err := cropGrid(ts.Grid, b, buffer)
		if err != nil {
			return nil, fmt.Errorf("slice %d: %w", i, err)
		}
		slices = append(slices, field.TimeSlice{Time: ts.Time, Grid: g})
	}
	return field.NewSeries(slices...)
}

func cropGrid(g *grid.Grid, b Bounds, buffer int) (*grid.Grid, error) {
	xs, ys := g.Xs(), g.Ys()
	x0, x1 := axisWindow(xs, b.MinX, b.MaxX, buffer)
	y0, y1 := axisWindow(ys, b.MinY, b.MaxY, buffer)
	if x1-x0 < 2 || y1-y0 < 2 {
		return nil, fmt.Errorf("cropped window too small (%dx%d)", x1-x0, y1-y0)
	}

	out, err := grid.New(xs[x0:x1], ys[y0:y1])
	if err != nil {
		return nil, err
	}
	nx := len(xs)
	for _, name := range g.FieldNames() {
		values, _ := g.Field(name)
		sub := make([]float64, 0, (x1-x0)*(y1-y0))
		for iy := y0; iy < y1; iy++ {
			sub = append(sub, values[iy*nx+x0:iy*nx+x1]...)
		}
		if err := out.AddField(name, sub); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// axisWindow returns the half-open index window [lo, hi) of the axis
// coordinates covering [min, max], expanded by buffer cells.
func axisWindow(axis []float64, min, max float64, buffer int) (lo, hi int) {
	n := len(axis)
	// last coordinate <= min
	lo = sort.SearchFloat64s(axis, min)
	if lo == n || axis[lo] > min {
		lo--
	}
	lo -= buffer
	if lo < 0 {
		lo = 0
	}
	// first coordinate >= max, inclusive
	hi = sort.SearchFloat64s(axis, max)
	if hi < n {
		hi++
	}
	hi += buffer
	if hi > n {
		hi = n
	}
	return lo, hi
}
