package grid

import (
	"fmt"
	"math"
	"sort"
)

// Grid is a regular spatial mesh with one or more named scalar fields.
// Axes are strictly increasing; field values are stored row-major with
// shape len(Y) x len(X). Grids are read-only after construction.
type Grid struct {
	xs, ys []float64
	fields map[string][]float64
}

// New builds a Grid from the given axes. Both axes must have at least two
// strictly increasing, finite coordinates.
func New(xs, ys []float64) (*Grid, error) {
	if err := checkAxis("x", xs); err != nil {
		return nil, err
	}
	if err := checkAxis("y", ys); err != nil {
		return nil, err
	}
	g := &Grid{
		xs:     append([]float64(nil), xs...),
		ys:     append([]float64(nil), ys...),
		fields: make(map[string][]float64),
	}
	return g, nil
}

func checkAxis(name string, axis []float64) error {
	if len(axis) < 2 {
		return fmt.Errorf("%s axis: need at least 2 coordinates, got %d", name, len(axis))
	}
	for i, v := range axis {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s axis: non-finite coordinate at index %d", name, i)
		}
		if i > 0 && v <= axis[i-1] {
			return fmt.Errorf("%s axis: not strictly increasing at index %d (%v after %v)", name, i, v, axis[i-1])
		}
	}
	return nil
}

// AddField stores a named field on the grid. values must be row-major with
// len(Y)*len(X) entries; NaN entries mark missing data. The slice is copied.
func (g *Grid) AddField(name string, values []float64) error {
	if name == "" {
		return fmt.Errorf("field name must not be empty")
	}
	if want := len(g.xs) * len(g.ys); len(values) != want {
		return fmt.Errorf("field %q: shape mismatch, got %d values for %dx%d grid", name, len(values), len(g.ys), len(g.xs))
	}
	if _, ok := g.fields[name]; ok {
		return fmt.Errorf("field %q already present", name)
	}
	g.fields[name] = append([]float64(nil), values...)
	return nil
}

// Field returns the raw values for a named field. Callers must not modify
// the returned slice.
func (g *Grid) Field(name string) ([]float64, bool) {
	f, ok := g.fields[name]
	return f, ok
}

// FieldNames returns the names of all stored fields in sorted order.
func (g *Grid) FieldNames() []string {
	names := make([]string, 0, len(g.fields))
	for name := range g.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Xs returns the x axis. Callers must not modify the returned slice.
func (g *Grid) Xs() []float64 { return g.xs }

// Ys returns the y axis. Callers must not modify the returned slice.
func (g *Grid) Ys() []float64 { return g.ys }

// Dims returns the number of columns (x) and rows (y).
func (g *Grid) Dims() (nx, ny int) { return len(g.xs), len(g.ys) }

// Bounds returns the bounding box of the mesh.
func (g *Grid) Bounds() (minX, maxX, minY, maxY float64) {
	return g.xs[0], g.xs[len(g.xs)-1], g.ys[0], g.ys[len(g.ys)-1]
}

// value returns the stored node value at column ix, row iy.
func (g *Grid) value(field []float64, ix, iy int) float64 {
	return field[iy*len(g.xs)+ix]
}
