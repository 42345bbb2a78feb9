package field

import (
	"fmt"
	"math"

	"github.com/floe-data/drift.report/internal/grid"
)

// Sample is an interpolated velocity vector. Valid is false when any
// constituent resolver reported an out-of-domain query.
type Sample struct {
	U, V  float64
	Valid bool
}

// Evaluator composes one or two Resolvers into the single velocity field
// consumed by the integrator. U and V components may come from a combined
// product (one resolver, two field names) or from separate u/v products.
type Evaluator struct {
	u, v           *Resolver
	uField, vField string
}

// NewEvaluator builds an evaluator reading component uField from u and
// vField from v. The two resolvers may be the same.
func NewEvaluator(u *Resolver, uField string, v *Resolver, vField string) (*Evaluator, error) {
	if u == nil || v == nil {
		return nil, fmt.Errorf("nil resolver")
	}
	if uField == "" || vField == "" {
		return nil, fmt.Errorf("empty component field name")
	}
	return &Evaluator{u: u, v: v, uField: uField, vField: vField}, nil
}

// NewCombinedEvaluator builds an evaluator over a single product carrying
// both components under the conventional "u" and "v" field names.
func NewCombinedEvaluator(r *Resolver) (*Evaluator, error) {
	return NewEvaluator(r, "u", r, "v")
}

// VelocityAt returns the interpolated velocity vector at (x, y) and time t.
func (e *Evaluator) VelocityAt(t, x, y float64) Sample {
	su := e.u.SampleAt(e.uField, t, x, y)
	if !su.Valid {
		return Sample{U: math.NaN(), V: math.NaN()}
	}
	sv := e.v.SampleAt(e.vField, t, x, y)
	if !sv.Valid {
		return Sample{U: math.NaN(), V: math.NaN()}
	}
	return Sample{U: su.Value, V: sv.Value, Valid: true}
}

// ScalarAt samples an auxiliary named field along the same spatio-temporal
// axes as the velocity components. The field is looked up on the u-side
// product first, then on the v-side product.
func (e *Evaluator) ScalarAt(field string, t, x, y float64) grid.Sample {
	if s := e.u.SampleAt(field, t, x, y); s.Valid {
		return s
	}
	if e.v != e.u {
		return e.v.SampleAt(field, t, x, y)
	}
	return grid.Invalid
}
