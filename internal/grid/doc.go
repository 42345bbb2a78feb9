// Package grid owns the spatial layer of the advection data model.
//
// Responsibilities: regular-mesh storage for named scalar fields,
// point sampling by bilinear or nearest-neighbour interpolation, and
// gap filling of missing cells before a field is handed to the core.
// Key types: Grid, Sampler, Sample.
//
// Grids are immutable once built and safe for concurrent readers.
// No time-axis logic is allowed in this package; that lives in
// internal/field.
package grid
