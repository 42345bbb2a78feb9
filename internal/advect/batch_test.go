package advect

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/floe-data/drift.report/internal/field"
	"github.com/floe-data/drift.report/internal/grid"
)

// smallUniformField is a steady unit flow on a 3x3 mesh: x=[0,1,2],
// y=[0,1,2], u=1, v=0, single time slice.
func smallUniformField(t *testing.T) *field.Evaluator {
	t.Helper()
	g, err := grid.New([]float64{0, 1, 2}, []float64{0, 1, 2})
	if err != nil {
		t.Fatal(err)
	}
	u := make([]float64, 9)
	v := make([]float64, 9)
	for i := range u {
		u[i] = 1
	}
	if err := g.AddField("u", u); err != nil {
		t.Fatal(err)
	}
	if err := g.AddField("v", v); err != nil {
		t.Fatal(err)
	}
	s, err := field.NewSeries(field.TimeSlice{Time: 0, Grid: g})
	if err != nil {
		t.Fatal(err)
	}
	r, err := field.NewResolver(s, grid.Bilinear, false, field.RangeClamp)
	if err != nil {
		t.Fatal(err)
	}
	e, err := field.NewCombinedEvaluator(r)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestRunScenarioStraightLine(t *testing.T) {
	f := smallUniformField(t)
	res, err := Run(f, []Start{{X: 0.5, Y: 0.5, T: 0}}, Options{DT: 0.5, MaxSteps: 2})
	if err != nil {
		t.Fatal(err)
	}
	if res.RunID == "" {
		t.Error("empty run ID")
	}
	if len(res.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(res.Results))
	}
	r := res.Results[0]
	if r.State != StateCompleted {
		t.Errorf("state = %q, want %q", r.State, StateCompleted)
	}
	want := []TrajectoryPoint{
		{T: 0, X: 0.5, Y: 0.5},
		{T: 0.5, X: 1.0, Y: 0.5},
		{T: 1.0, X: 1.5, Y: 0.5},
	}
	if len(r.Trajectory.Points) != len(want) {
		t.Fatalf("got %d trajectory points, want %d", len(r.Trajectory.Points), len(want))
	}
	for i, p := range r.Trajectory.Points {
		if math.Abs(p.T-want[i].T) > 1e-12 || math.Abs(p.X-want[i].X) > 1e-12 || math.Abs(p.Y-want[i].Y) > 1e-12 {
			t.Errorf("point %d = %+v, want %+v", i, p, want[i])
		}
	}
}

func TestRunScenarioStartOutOfBounds(t *testing.T) {
	f := smallUniformField(t)
	res, err := Run(f, []Start{{X: 5.0, Y: 5.0, T: 0}}, Options{DT: 0.5, MaxSteps: 2})
	if err != nil {
		t.Fatal(err)
	}
	r := res.Results[0]
	if r.State != StateOutOfBounds {
		t.Errorf("state = %q, want %q", r.State, StateOutOfBounds)
	}
	if len(r.Trajectory.Points) != 1 {
		t.Errorf("got %d trajectory points, want exactly 1", len(r.Trajectory.Points))
	}
	if r.Steps != 0 {
		t.Errorf("steps = %d, want 0", r.Steps)
	}
	if r.Reason != "started outside domain coverage" {
		t.Errorf("reason = %q", r.Reason)
	}
}

func TestRunParcelExitsMidway(t *testing.T) {
	f := smallUniformField(t)
	// u=1 pushes the parcel past x=2 after three steps of 0.6
	res, err := Run(f, []Start{{X: 0.5, Y: 1.0, T: 0}}, Options{DT: 0.6, MaxSteps: 100})
	if err != nil {
		t.Fatal(err)
	}
	r := res.Results[0]
	if r.State != StateOutOfBounds {
		t.Errorf("state = %q, want %q", r.State, StateOutOfBounds)
	}
	// trajectory truncated at the last valid sample
	last := r.Trajectory.Points[len(r.Trajectory.Points)-1]
	if last.X > 2.0 {
		t.Errorf("trajectory retained out-of-domain sample at x=%v", last.X)
	}
	if !strings.HasPrefix(r.Reason, "left domain coverage") {
		t.Errorf("reason = %q", r.Reason)
	}
	if len(r.Trajectory.Points) != r.Steps+1 {
		t.Errorf("got %d points for %d steps", len(r.Trajectory.Points), r.Steps)
	}
}

func TestRunOrderIndependence(t *testing.T) {
	f := smallUniformField(t)
	starts := []Start{
		{X: 0.2, Y: 0.2},
		{X: 1.0, Y: 1.0},
		{X: 1.8, Y: 0.5},
		{X: 5.0, Y: 5.0},
	}
	perm := []Start{starts[2], starts[0], starts[3], starts[1]}

	a, err := Run(f, starts, Options{DT: 0.1, MaxSteps: 5, Workers: 3})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Run(f, perm, Options{DT: 0.1, MaxSteps: 5, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}

	// permuting the input permutes the output identically, values unchanged
	order := []int{2, 0, 3, 1}
	for bi, ai := range order {
		if diff := cmp.Diff(a.Results[ai], b.Results[bi]); diff != "" {
			t.Errorf("parcel %d differs under permutation (-orig +perm):\n%s", ai, diff)
		}
	}
}

func TestRunEndTimeStop(t *testing.T) {
	f := smallUniformField(t)
	end := 0.6
	res, err := Run(f, []Start{{X: 0.2, Y: 1.0, T: 0}}, Options{DT: 0.2, EndTime: &end})
	if err != nil {
		t.Fatal(err)
	}
	r := res.Results[0]
	if r.State != StateCompleted {
		t.Errorf("state = %q, want %q", r.State, StateCompleted)
	}
	if r.Steps != 3 {
		t.Errorf("steps = %d, want 3", r.Steps)
	}
	last := r.Trajectory.Points[len(r.Trajectory.Points)-1]
	if math.Abs(last.T-end) > 1e-9 {
		t.Errorf("final t = %v, want %v", last.T, end)
	}
}

func TestRunZeroLengthWindow(t *testing.T) {
	f := smallUniformField(t)
	end := 1.5
	res, err := Run(f, []Start{{X: 1.0, Y: 1.0, T: 1.5}}, Options{DT: 0.5, EndTime: &end})
	if err != nil {
		t.Fatal(err)
	}
	r := res.Results[0]
	if r.State != StateCompleted {
		t.Errorf("state = %q, want %q", r.State, StateCompleted)
	}
	if len(r.Trajectory.Points) != 1 {
		t.Errorf("got %d points, want single-sample trajectory", len(r.Trajectory.Points))
	}
}

func TestRunBackwardIntegration(t *testing.T) {
	f := smallUniformField(t)
	end := -0.5
	res, err := Run(f, []Start{{X: 1.5, Y: 1.0, T: 0}}, Options{DT: -0.25, EndTime: &end})
	if err != nil {
		t.Fatal(err)
	}
	r := res.Results[0]
	if r.State != StateCompleted {
		t.Fatalf("state = %q, want %q", r.State, StateCompleted)
	}
	// u=1 with negative dt moves the parcel in -x
	last := r.Trajectory.Points[len(r.Trajectory.Points)-1]
	if math.Abs(last.X-1.0) > 1e-9 || math.Abs(last.T-(-0.5)) > 1e-9 {
		t.Errorf("final sample (x=%v, t=%v), want (1, -0.5)", last.X, last.T)
	}
	// time decreases monotonically along the trajectory
	for i := 1; i < len(r.Trajectory.Points); i++ {
		if r.Trajectory.Points[i].T >= r.Trajectory.Points[i-1].T {
			t.Fatalf("time not decreasing at point %d", i)
		}
	}
}

func TestRunHeterogeneousStartTimes(t *testing.T) {
	f := smallUniformField(t)
	end := 1.0
	res, err := Run(f, []Start{
		{X: 0.2, Y: 1.0, T: 0},
		{X: 0.2, Y: 1.0, T: 0.5},
	}, Options{DT: 0.25, EndTime: &end})
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Results[0].Steps; got != 4 {
		t.Errorf("parcel 0 steps = %d, want 4", got)
	}
	if got := res.Results[1].Steps; got != 2 {
		t.Errorf("parcel 1 steps = %d, want 2", got)
	}
}

func TestRunAuxSampling(t *testing.T) {
	g, err := grid.New([]float64{0, 1, 2}, []float64{0, 1, 2})
	if err != nil {
		t.Fatal(err)
	}
	u := make([]float64, 9)
	v := make([]float64, 9)
	thickness := make([]float64, 9)
	for i := range u {
		u[i] = 1
		thickness[i] = 2.5
	}
	for _, add := range []struct {
		name string
		vals []float64
	}{{"u", u}, {"v", v}, {"thickness", thickness}} {
		if err := g.AddField(add.name, add.vals); err != nil {
			t.Fatal(err)
		}
	}
	s, err := field.NewSeries(field.TimeSlice{Time: 0, Grid: g})
	if err != nil {
		t.Fatal(err)
	}
	r, err := field.NewResolver(s, grid.Bilinear, false, field.RangeClamp)
	if err != nil {
		t.Fatal(err)
	}
	e, err := field.NewCombinedEvaluator(r)
	if err != nil {
		t.Fatal(err)
	}

	res, err := Run(e, []Start{{X: 0.5, Y: 1.0}}, Options{DT: 0.5, MaxSteps: 2, Aux: []string{"thickness"}})
	if err != nil {
		t.Fatal(err)
	}
	aux := res.Results[0].Trajectory.Aux["thickness"]
	if len(aux) != 3 {
		t.Fatalf("got %d aux samples, want 3", len(aux))
	}
	for i, v := range aux {
		if math.Abs(v-2.5) > 1e-12 {
			t.Errorf("aux[%d] = %v, want 2.5", i, v)
		}
	}
}

func TestBatchResultJSONWithInvalidAux(t *testing.T) {
	f := smallUniformField(t)
	// the out-of-bounds start yields an invalid (NaN) aux sample
	res, err := Run(f, []Start{{X: 5.0, Y: 5.0, T: 0}}, Options{DT: 0.5, MaxSteps: 2, Aux: []string{"u"}})
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(res.Results[0].Trajectory.Aux["u"][0]) {
		t.Fatal("expected NaN aux sample for out-of-bounds start")
	}

	data, err := json.MarshalIndent(res, "", " ")
	if err != nil {
		t.Fatalf("marshal failed on NaN aux sample: %v", err)
	}
	if !strings.Contains(string(data), "null") {
		t.Errorf("invalid aux sample not encoded as null: %s", data)
	}

	var tr Trajectory
	trData, err := json.Marshal(res.Results[0].Trajectory)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(trData, &tr); err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(tr.Aux["u"][0]) {
		t.Errorf("null aux sample decoded to %v, want NaN", tr.Aux["u"][0])
	}
	if len(tr.Points) != 1 {
		t.Errorf("round trip changed point count: %d", len(tr.Points))
	}
}

func TestRunEndTimeOvershoot(t *testing.T) {
	f := smallUniformField(t)
	// window 1.3 is not a whole multiple of dt 0.5: the last step lands
	// past the end time rather than being shortened
	end := 1.3
	res, err := Run(f, []Start{{X: 0.2, Y: 1.0, T: 0}}, Options{DT: 0.5, EndTime: &end})
	if err != nil {
		t.Fatal(err)
	}
	r := res.Results[0]
	if r.State != StateCompleted {
		t.Fatalf("state = %q, want %q", r.State, StateCompleted)
	}
	if r.Steps != 3 {
		t.Errorf("steps = %d, want 3", r.Steps)
	}
	last := r.Trajectory.Points[len(r.Trajectory.Points)-1]
	if math.Abs(last.T-1.5) > 1e-12 {
		t.Errorf("final time = %v, want 1.5 (one step past the end time)", last.T)
	}
}

func TestRunValidation(t *testing.T) {
	f := smallUniformField(t)
	end := 1.0
	tests := []struct {
		name   string
		starts []Start
		opts   Options
	}{
		{"nan start", []Start{{X: math.NaN(), Y: 0}}, Options{DT: 0.5, MaxSteps: 1}},
		{"inf start time", []Start{{X: 0.5, Y: 0.5, T: math.Inf(1)}}, Options{DT: 0.5, MaxSteps: 1}},
		{"negative step cap", []Start{{X: 0.5, Y: 0.5}}, Options{DT: 0.5, MaxSteps: -1}},
		{"zero dt", []Start{{X: 0.5, Y: 0.5}}, Options{DT: 0, MaxSteps: 5}},
		{"nan dt", []Start{{X: 0.5, Y: 0.5}}, Options{DT: math.NaN(), MaxSteps: 5}},
		{"unbounded run", []Start{{X: 0.5, Y: 0.5}}, Options{DT: 0.5}},
		{"opposing direction", []Start{{X: 0.5, Y: 0.5, T: 2}}, Options{DT: 0.5, EndTime: &end}},
		{"aux without scalar field", []Start{{X: 0.5, Y: 0.5}}, Options{DT: 0.5, MaxSteps: 1, Aux: []string{"x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var vf VectorField = f
			if tt.name == "aux without scalar field" {
				vf = rotationField{1}
			}
			if _, err := Run(vf, tt.starts, tt.opts); err == nil {
				t.Error("expected setup error")
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	tr := Trajectory{Points: []TrajectoryPoint{
		{T: 0, X: 0, Y: 0},
		{T: 1, X: 3, Y: 0},
		{T: 2, X: 3, Y: 4},
	}}
	s := tr.Summarize()
	if math.Abs(s.Displacement-5) > 1e-12 {
		t.Errorf("displacement = %v, want 5", s.Displacement)
	}
	if math.Abs(s.PathLength-7) > 1e-12 {
		t.Errorf("path length = %v, want 7", s.PathLength)
	}
	if math.Abs(s.MeanSpeed-3.5) > 1e-12 {
		t.Errorf("mean speed = %v, want 3.5", s.MeanSpeed)
	}

	single := Trajectory{Points: []TrajectoryPoint{{T: 0, X: 1, Y: 1}}}
	if got := single.Summarize(); got.Displacement != 0 || !math.IsNaN(got.MeanSpeed) {
		t.Errorf("single-sample summary = %+v", got)
	}
}

func TestStepsFor(t *testing.T) {
	tests := []struct {
		start, end, dt float64
		want           int
	}{
		{0, 1, 0.25, 4},
		{0, 1, 0.3, 4},
		{1, 0, -0.25, 4},
		{0, 0, 0.5, 0},
		{0, 1, 0, 0},
	}
	for _, tt := range tests {
		if got := StepsFor(tt.start, tt.end, tt.dt); got != tt.want {
			t.Errorf("StepsFor(%v, %v, %v) = %d, want %d", tt.start, tt.end, tt.dt, got, tt.want)
		}
	}
}
