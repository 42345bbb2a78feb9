// Package advect owns the Lagrangian integration core.
//
// Responsibilities: per-parcel time stepping (explicit Euler and classical
// fourth-order Runge-Kutta), parcel lifecycle state, and batch dispatch of
// independent parcels over a worker pool.
// Key types: Parcel, State, Integrator, Trajectory, Options, BatchResult.
//
// The integrator's only view of data is the VectorField interface; it
// never touches grids or files directly. Domain exits are encoded as
// parcel state, never as errors.
package advect
