// Package field owns the temporal layer of the advection data model.
//
// Responsibilities: time-slice series validation, bracketing-slice search
// with linear time blending, and composition of scalar resolvers into the
// vector evaluator consumed by the integrator.
// Key types: TimeSlice, Series, Resolver, Evaluator, Sample.
//
// Dependency rule: field may depend on grid, but never on advect.
package field
