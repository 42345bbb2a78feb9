package advect

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/stat"
)

// State represents the lifecycle state of a parcel.
type State string

const (
	StateActive      State = "active"        // Parcel is still being stepped
	StateOutOfBounds State = "out_of_bounds" // Parcel sampled outside domain coverage
	StateCompleted   State = "completed"     // Parcel reached the step cap or end time
)

// Parcel is the mutable integration state of a single advected point.
// It is owned exclusively by one integration task; only the integrator
// mutates it.
type Parcel struct {
	Index int
	X, Y  float64
	T     float64
	Steps int
	State State
}

// TrajectoryPoint is one (t, x, y) sample along a trajectory.
type TrajectoryPoint struct {
	T float64 `json:"t"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Trajectory is the immutable output for one parcel: the ordered position
// samples from start to the parcel's terminal state, plus any auxiliary
// scalar series sampled along the path (NaN where the auxiliary sample was
// invalid).
type Trajectory struct {
	Points []TrajectoryPoint    `json:"points"`
	Aux    map[string][]float64 `json:"aux,omitempty"`
}

// MarshalJSON encodes invalid auxiliary samples as null; JSON has no NaN.
func (tr Trajectory) MarshalJSON() ([]byte, error) {
	enc := struct {
		Points []TrajectoryPoint     `json:"points"`
		Aux    map[string][]*float64 `json:"aux,omitempty"`
	}{Points: tr.Points}
	if tr.Aux != nil {
		enc.Aux = make(map[string][]*float64, len(tr.Aux))
		for name, vs := range tr.Aux {
			out := make([]*float64, len(vs))
			for i, v := range vs {
				if !math.IsNaN(v) {
					v := v
					out[i] = &v
				}
			}
			enc.Aux[name] = out
		}
	}
	return json.Marshal(enc)
}

// UnmarshalJSON is the inverse of MarshalJSON: null auxiliary samples
// decode back to NaN.
func (tr *Trajectory) UnmarshalJSON(data []byte) error {
	var dec struct {
		Points []TrajectoryPoint     `json:"points"`
		Aux    map[string][]*float64 `json:"aux"`
	}
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	tr.Points = dec.Points
	tr.Aux = nil
	if dec.Aux != nil {
		tr.Aux = make(map[string][]float64, len(dec.Aux))
		for name, vs := range dec.Aux {
			out := make([]float64, len(vs))
			for i, v := range vs {
				if v == nil {
					out[i] = math.NaN()
				} else {
					out[i] = *v
				}
			}
			tr.Aux[name] = out
		}
	}
	return nil
}

// Summary condenses a trajectory into scalar diagnostics.
type Summary struct {
	Displacement float64 // straight-line distance from start to end
	PathLength   float64 // sum of per-step segment lengths
	MeanSpeed    float64 // mean of per-segment speeds, NaN for a single sample
}

// Summarize computes trajectory diagnostics.
func (tr Trajectory) Summarize() Summary {
	n := len(tr.Points)
	if n == 0 {
		return Summary{Displacement: math.NaN(), PathLength: math.NaN(), MeanSpeed: math.NaN()}
	}
	first, last := tr.Points[0], tr.Points[n-1]
	sum := Summary{
		Displacement: math.Hypot(last.X-first.X, last.Y-first.Y),
	}
	if n == 1 {
		sum.MeanSpeed = math.NaN()
		return sum
	}
	speeds := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		seg := math.Hypot(tr.Points[i].X-tr.Points[i-1].X, tr.Points[i].Y-tr.Points[i-1].Y)
		sum.PathLength += seg
		if dt := math.Abs(tr.Points[i].T - tr.Points[i-1].T); dt > 0 {
			speeds = append(speeds, seg/dt)
		}
	}
	if len(speeds) > 0 {
		sum.MeanSpeed = stat.Mean(speeds, nil)
	} else {
		sum.MeanSpeed = math.NaN()
	}
	return sum
}
