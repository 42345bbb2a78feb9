// Package dataset is the I/O boundary of the advection core: it loads
// gridded velocity products and initial parcel positions into validated
// in-memory structures, and maintains the registry of known velocity
// products.
//
// All structural validation (monotonic axes, shape checks, finite
// coordinates) happens here, before any parcel begins integration. The
// core packages assume well-formed series.
package dataset
