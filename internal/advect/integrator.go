package advect

import (
	"fmt"
	"strings"

	"github.com/floe-data/drift.report/internal/field"
	"github.com/floe-data/drift.report/internal/grid"
)

// VectorField is the integrator's sole dependency on data access: an
// interpolated velocity sample at an arbitrary (t, x, y) query point.
// field.Evaluator is the production implementation.
type VectorField interface {
	VelocityAt(t, x, y float64) field.Sample
}

// ScalarField is implemented by evaluators that can additionally sample
// auxiliary scalar fields along a trajectory.
type ScalarField interface {
	ScalarAt(name string, t, x, y float64) grid.Sample
}

// Integrator advances one parcel by a single fixed step of size dt
// (signed; negative steps backward in time). Step reports false when a
// required velocity sample fell outside the covered domain, in which case
// the parcel is left unmodified.
type Integrator interface {
	Step(f VectorField, p *Parcel, dt float64) bool
}

// Integrator scheme names.
const (
	SchemeEuler = "euler"
	SchemeRK4   = "rk4"
)

// NewIntegrator returns the named integration scheme.
func NewIntegrator(name string) (Integrator, error) {
	switch strings.ToLower(name) {
	case SchemeEuler:
		return Euler{}, nil
	case SchemeRK4:
		return RK4{}, nil
	default:
		return nil, fmt.Errorf("unknown integrator %q (valid: %s, %s)", name, SchemeEuler, SchemeRK4)
	}
}

// Euler is the explicit first-order scheme: one evaluator call per step.
type Euler struct{}

// Step advances p by dt using the velocity at the current position.
func (Euler) Step(f VectorField, p *Parcel, dt float64) bool {
	s := f.VelocityAt(p.T, p.X, p.Y)
	if !s.Valid {
		return false
	}
	p.X += s.U * dt
	p.Y += s.V * dt
	p.T += dt
	p.Steps++
	return true
}

// RK4 is the classical fourth-order Runge-Kutta scheme: four evaluator
// calls per step, at t, t+dt/2 (twice) and t+dt, with positions offset by
// the scaled stage velocities.
type RK4 struct{}

// Step advances p by dt. Any invalid stage sample aborts the step without
// touching the parcel; partially valid stage data is never used.
func (RK4) Step(f VectorField, p *Parcel, dt float64) bool {
	k1 := f.VelocityAt(p.T, p.X, p.Y)
	if !k1.Valid {
		return false
	}
	k2 := f.VelocityAt(p.T+dt/2, p.X+k1.U*dt/2, p.Y+k1.V*dt/2)
	if !k2.Valid {
		return false
	}
	k3 := f.VelocityAt(p.T+dt/2, p.X+k2.U*dt/2, p.Y+k2.V*dt/2)
	if !k3.Valid {
		return false
	}
	k4 := f.VelocityAt(p.T+dt, p.X+k3.U*dt, p.Y+k3.V*dt)
	if !k4.Valid {
		return false
	}
	p.X += dt * (k1.U + 2*k2.U + 2*k3.U + k4.U) / 6.0
	p.Y += dt * (k1.V + 2*k2.V + 2*k3.V + k4.V) / 6.0
	p.T += dt
	p.Steps++
	return true
}
