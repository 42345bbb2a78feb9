package advect

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/google/uuid"
)

// Start is one user-supplied initial point: position plus start time on
// the internal numeric time axis.
type Start struct {
	X, Y float64
	T    float64
}

// Options configures a batch advection run.
type Options struct {
	// DT is the signed fixed step size; negative steps backward in time.
	DT float64
	// MaxSteps caps the number of steps per parcel. When zero and EndTime
	// is set, the cap is derived from the integration window.
	MaxSteps int
	// EndTime, when non-nil, stops each parcel once its time reaches it.
	// The step size is never shortened: a window that is not a whole
	// multiple of DT overshoots the end time by less than one step.
	EndTime *float64
	// Integrator selects the stepping scheme; nil means RK4.
	Integrator Integrator
	// Aux names auxiliary scalar fields to sample along each trajectory.
	// Requires the field to implement ScalarField.
	Aux []string
	// Workers bounds the number of parallel integration goroutines.
	// Zero means GOMAXPROCS.
	Workers int
}

// Result is the outcome for one parcel: its terminal state, a
// human-readable termination reason, the number of steps taken, and the
// trajectory up to the last valid sample.
type Result struct {
	State      State
	Reason     string
	Steps      int
	Trajectory Trajectory
}

// BatchResult aggregates per-parcel results in caller-supplied order.
type BatchResult struct {
	RunID   string
	Results []Result
}

// Run advects one parcel per start point until each reaches a terminal
// state, and returns the per-parcel trajectories in input order. Parcels
// are independent and are integrated in parallel over a worker pool; the
// field data is shared read-only.
//
// Structural input errors (non-finite coordinates, bad step configuration)
// are reported before any integration begins.
func Run(f VectorField, starts []Start, opts Options) (*BatchResult, error) {
	if f == nil {
		return nil, fmt.Errorf("advect: nil field")
	}
	if err := validate(f, starts, &opts); err != nil {
		return nil, err
	}
	if opts.Integrator == nil {
		opts.Integrator = RK4{}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(starts) {
		workers = len(starts)
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(starts))
	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = integrate(f, starts[i], i, opts)
			}
		}()
	}
	for i := range starts {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return &BatchResult{RunID: uuid.NewString(), Results: results}, nil
}

// validate fails fast on malformed input, before any parcel is stepped.
func validate(f VectorField, starts []Start, opts *Options) error {
	for i, s := range starts {
		if !isFinite(s.X) || !isFinite(s.Y) || !isFinite(s.T) {
			return fmt.Errorf("advect: non-finite start for parcel %d: (%v, %v) at t=%v", i, s.X, s.Y, s.T)
		}
	}
	if math.IsNaN(opts.DT) || math.IsInf(opts.DT, 0) {
		return fmt.Errorf("advect: non-finite step size %v", opts.DT)
	}
	if opts.MaxSteps < 0 {
		return fmt.Errorf("advect: negative step cap %d", opts.MaxSteps)
	}
	if opts.EndTime != nil && !isFinite(*opts.EndTime) {
		return fmt.Errorf("advect: non-finite end time %v", *opts.EndTime)
	}
	if opts.MaxSteps == 0 && opts.EndTime == nil {
		return fmt.Errorf("advect: neither step cap nor end time configured")
	}
	if opts.EndTime != nil {
		for i, s := range starts {
			window := *opts.EndTime - s.T
			if window == 0 {
				continue // zero-length window: single-sample trajectory
			}
			if opts.DT == 0 {
				return fmt.Errorf("advect: zero step size with nonzero window for parcel %d", i)
			}
			if window*opts.DT < 0 {
				return fmt.Errorf("advect: step direction opposes integration window for parcel %d", i)
			}
		}
	} else if opts.DT == 0 {
		return fmt.Errorf("advect: zero step size")
	}
	if len(opts.Aux) > 0 {
		if _, ok := f.(ScalarField); !ok {
			return fmt.Errorf("advect: auxiliary fields requested but field cannot sample scalars")
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// StepsFor returns the number of fixed steps of size dt needed to cover
// the window from start to end, rounding the final partial step up.
func StepsFor(start, end, dt float64) int {
	if dt == 0 || start == end {
		return 0
	}
	return int(math.Ceil(math.Abs((end-start)/dt) - 1e-9))
}

// integrate drives one parcel to a terminal state.
func integrate(f VectorField, start Start, index int, opts Options) Result {
	p := &Parcel{Index: index, X: start.X, Y: start.Y, T: start.T, State: StateActive}

	maxSteps := opts.MaxSteps
	if maxSteps == 0 && opts.EndTime != nil {
		maxSteps = StepsFor(start.T, *opts.EndTime, opts.DT)
	}

	traj := Trajectory{Points: make([]TrajectoryPoint, 0, maxSteps+1)}
	scalars, _ := f.(ScalarField)
	if len(opts.Aux) > 0 && scalars != nil {
		traj.Aux = make(map[string][]float64, len(opts.Aux))
	}
	record := func() {
		traj.Points = append(traj.Points, TrajectoryPoint{T: p.T, X: p.X, Y: p.Y})
		for _, name := range opts.Aux {
			if scalars == nil {
				break
			}
			s := scalars.ScalarAt(name, p.T, p.X, p.Y)
			v := math.NaN()
			if s.Valid {
				v = s.Value
			}
			traj.Aux[name] = append(traj.Aux[name], v)
		}
	}
	record()

	// a parcel starting outside coverage terminates immediately
	if !f.VelocityAt(p.T, p.X, p.Y).Valid {
		p.State = StateOutOfBounds
		return Result{State: p.State, Reason: "started outside domain coverage", Steps: p.Steps, Trajectory: traj}
	}

	var reason string
	for p.State == StateActive {
		if opts.EndTime != nil && reached(p.T, *opts.EndTime, opts.DT) {
			p.State = StateCompleted
			reason = "reached end time"
			break
		}
		if p.Steps >= maxSteps {
			p.State = StateCompleted
			reason = "reached step cap"
			break
		}
		if !opts.Integrator.Step(f, p, opts.DT) {
			p.State = StateOutOfBounds
			reason = fmt.Sprintf("left domain coverage at step %d", p.Steps+1)
			break
		}
		record()
	}
	return Result{State: p.State, Reason: reason, Steps: p.Steps, Trajectory: traj}
}

// reached reports whether time t has arrived at end when stepping in the
// direction of dt, with a small tolerance against accumulated rounding.
func reached(t, end, dt float64) bool {
	if dt == 0 {
		return true
	}
	eps := math.Abs(dt) * 1e-9
	if dt > 0 {
		return t >= end-eps
	}
	return t <= end+eps
}
