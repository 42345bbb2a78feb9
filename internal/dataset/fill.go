package dataset

import (
	"fmt"

	"github.com/floe-data/drift.report/internal/field"
	"github.com/floe-data/drift.report/internal/grid"
)

// FillGaps inpaints missing (NaN) cells of every field in every slice of a
// series, so that gap-bearing products can be advected through without
// poisoning interpolation near the gaps.
func FillGaps(s *field.Series, opt grid.InpaintOptions) (*field.Series, error) {
	slices := make([]field.TimeSlice, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		ts := s.Slice(i)
		xs, ys := ts.Grid.Xs(), ts.Grid.Ys()
		g, err := grid.New(xs, ys)
		if err != nil {
			return nil, fmt.Errorf("slice %d: %w", i, err)
		}
		for _, name := range ts.Grid.FieldNames() {
			values, _ := ts.Grid.Field(name)
			filled, err := grid.Inpaint(xs, ys, values, opt)
			if err != nil {
				return nil, fmt.Errorf("slice %d field %q: %w", i, name, err)
			}
			if err := g.AddField(name, filled); err != nil {
				return nil, fmt.Errorf("slice %d: %w", i, err)
			}
		}
		slices = append(slices, field.TimeSlice{Time: ts.Time, Grid: g})
	}
	return field.NewSeries(slices...)
}
