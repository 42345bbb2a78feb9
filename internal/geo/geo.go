// Package geo provides projection distortion factors and input-shape
// classification for gridded velocity products.
package geo

import (
	"fmt"
	"math"
)

// Metric selects which distortion factor ScaleFactors computes.
type Metric string

const (
	MetricDistance Metric = "distance"
	MetricArea     Metric = "area"
)

// WGS84Flattening is the ellipsoidal flattening of the WGS84 ellipsoid.
const WGS84Flattening = 1.0 / 298.257223563

// DefaultReferenceLatitude is the true-scale latitude used by the polar
// stereographic grids of the supported velocity products.
const DefaultReferenceLatitude = 70.0

// ScaleFactors calculates scaling factors to account for polar stereographic
// distortion at the input latitudes (degrees north), including the special
// case of the exact pole. flat is the ellipsoidal flattening and refLat the
// true-scale latitude of the projection.
func ScaleFactors(lats []float64, flat, refLat float64, metric Metric) ([]float64, error) {
	if metric != MetricDistance && metric != MetricArea {
		return nil, fmt.Errorf("unknown metric %q", metric)
	}
	// square of the eccentricity of the ellipsoid
	// ecc2 = (1 - b^2/a^2) = 2*flat - flat^2
	ecc2 := 2.0*flat - flat*flat
	ecc := math.Sqrt(ecc2)

	thetaRef := toAbsRadians(refLat)
	mRef := math.Cos(thetaRef) / math.Sqrt(1.0-ecc2*math.Sin(thetaRef)*math.Sin(thetaRef))
	tRef := halfAngleRatio(thetaRef, ecc)

	// distance scaling at the exact pole
	kp := 0.5 * mRef * math.Sqrt(math.Pow(1.0+ecc, 1.0+ecc)*math.Pow(1.0-ecc, 1.0-ecc)) / tRef

	out := make([]float64, len(lats))
	for i, lat := range lats {
		theta := toAbsRadians(lat)
		var k float64
		if atPole(theta) {
			k = kp
		} else {
			m := math.Cos(theta) / math.Sqrt(1.0-ecc2*math.Sin(theta)*math.Sin(theta))
			t := halfAngleRatio(theta, ecc)
			k = (mRef / m) * (t / tRef)
		}
		switch metric {
		case MetricDistance:
			out[i] = 1.0 / k
		case MetricArea:
			out[i] = 1.0 / (k * k)
		}
	}
	return out, nil
}

func toAbsRadians(lat float64) float64 {
	return math.Abs(lat) * math.Pi / 180.0
}

// halfAngleRatio is the isometric latitude term of the polar stereographic
// projection equations.
func halfAngleRatio(theta, ecc float64) float64 {
	s := ecc * math.Sin(theta)
	return math.Tan(math.Pi/4.0-theta/2.0) / math.Pow((1.0-s)/(1.0+s), ecc/2.0)
}

func atPole(theta float64) bool {
	return math.Abs(theta-math.Pi/2.0) < 1e-9
}

// Kind classifies the shape of user-supplied query coordinates.
type Kind string

const (
	KindTimeSeries Kind = "time series" // one point, many times
	KindDrift      Kind = "drift"       // one time per point
	KindGrid       Kind = "grid"        // independent x/y axes
)

// Classify determines the input kind from the lengths of the x, y and t
// coordinate sequences.
func Classify(xn, yn, tn int) (Kind, error) {
	switch {
	case xn == 1 && yn == 1 && tn >= 1:
		return KindTimeSeries, nil
	case xn == yn && xn == tn:
		return KindDrift, nil
	case xn != yn:
		return KindGrid, nil
	default:
		return "", fmt.Errorf("unknown input kind for sizes x=%d y=%d t=%d", xn, yn, tn)
	}
}
