// Package units provides shared constants and conversions for the time axis.
//
// All numeric times inside the advection core are expressed in days since
// the J2000 epoch. User-facing datasets declare their own time base as a
// "<unit> since <timestamp>" string; this package parses those strings and
// converts between the two representations.
package units

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Unit constants
const (
	Seconds = "seconds"
	Hours   = "hours"
	Days    = "days"
)

// ValidUnits contains all valid time unit values
var ValidUnits = []string{Seconds, Hours, Days}

// SecondsPerDay is the length of a day on the numeric time axis.
const SecondsPerDay = 86400.0

// J2000 is the epoch of the internal numeric time axis.
var J2000 = time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)

// IsValid checks if the given unit is in the list of valid time units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// scale returns the number of seconds per unit.
func scale(unit string) float64 {
	switch unit {
	case Seconds:
		return 1.0
	case Hours:
		return 3600.0
	case Days:
		return SecondsPerDay
	default:
		return math.NaN()
	}
}

// TimeBase describes the time axis of a dataset: an epoch plus the number
// of seconds per unit step.
type TimeBase struct {
	Epoch time.Time
	Scale float64 // seconds per unit
}

// epoch timestamp layouts accepted in unit strings
var epochLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parse parses a time base declaration of the form "<unit> since <timestamp>",
// e.g. "days since 2018-01-01" or "seconds since 2018-01-01T00:00:00".
func Parse(s string) (TimeBase, error) {
	parts := strings.SplitN(strings.TrimSpace(s), " since ", 2)
	if len(parts) != 2 {
		return TimeBase{}, fmt.Errorf("time units %q: want \"<unit> since <timestamp>\"", s)
	}
	unit := strings.ToLower(strings.TrimSpace(parts[0]))
	if !IsValid(unit) {
		return TimeBase{}, fmt.Errorf("time units %q: unknown unit %q (valid: %s)", s, unit, strings.Join(ValidUnits, ", "))
	}
	stamp := strings.TrimSpace(parts[1])
	for _, layout := range epochLayouts {
		if epoch, err := time.ParseInLocation(layout, stamp, time.UTC); err == nil {
			return TimeBase{Epoch: epoch, Scale: scale(unit)}, nil
		}
	}
	return TimeBase{}, fmt.Errorf("time units %q: cannot parse epoch %q", s, stamp)
}

// ToDays converts a time value in this base to days since J2000.
func (b TimeBase) ToDays(v float64) float64 {
	offset := b.Epoch.Sub(J2000).Seconds()
	return (offset + v*b.Scale) / SecondsPerDay
}

// FromDays converts days since J2000 back into this time base.
func (b TimeBase) FromDays(d float64) float64 {
	offset := b.Epoch.Sub(J2000).Seconds()
	return (d*SecondsPerDay - offset) / b.Scale
}

// ToDaysSlice converts a slice of time values to days since J2000.
func (b TimeBase) ToDaysSlice(vs []float64) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = b.ToDays(v)
	}
	return out
}
