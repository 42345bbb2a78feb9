package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/floe-data/drift.report/internal/advect"
	"github.com/floe-data/drift.report/internal/geo"
)

// ExpandStarts builds start points from raw coordinate sequences,
// interpreting their shape: a single point queried at many times, aligned
// per-point times (drift), or the cartesian product of two independent
// axes at one shared time.
func ExpandStarts(xs, ys, ts []float64) ([]advect.Start, error) {
	kind, err := geo.Classify(len(xs), len(ys), len(ts))
	if err != nil {
		return nil, err
	}
	switch kind {
	case geo.KindTimeSeries:
		starts := make([]advect.Start, len(ts))
		for i, t := range ts {
			starts[i] = advect.Start{X: xs[0], Y: ys[0], T: t}
		}
		return starts, nil
	case geo.KindDrift:
		starts := make([]advect.Start, len(xs))
		for i := range xs {
			starts[i] = advect.Start{X: xs[i], Y: ys[i], T: ts[i]}
		}
		return starts, nil
	default: // geo.KindGrid
		if len(ts) != 1 {
			return nil, fmt.Errorf("grid-shaped starts need exactly one time, got %d", len(ts))
		}
		starts := make([]advect.Start, 0, len(xs)*len(ys))
		for _, y := range ys {
			for _, x := range xs {
				starts = append(starts, advect.Start{X: x, Y: y, T: ts[0]})
			}
		}
		return starts, nil
	}
}

// LoadPoints reads initial parcel positions from a CSV file with an
// "x,y" or "x,y,t" header. Times are in the file's own numeric unit; the
// caller converts them to the internal time axis when needed. Non-finite
// coordinates are rejected.
func LoadPoints(path string) ([]advect.Start, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open points file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse points CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("points file has no data rows")
	}

	header := records[0]
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	xi, ok := cols["x"]
	if !ok {
		return nil, fmt.Errorf("points file missing x column")
	}
	yi, ok := cols["y"]
	if !ok {
		return nil, fmt.Errorf("points file missing y column")
	}
	ti, hasT := cols["t"]

	starts := make([]advect.Start, 0, len(records)-1)
	for row, rec := range records[1:] {
		x, err := parseCoord(rec, xi)
		if err != nil {
			return nil, fmt.Errorf("row %d: x: %w", row+2, err)
		}
		y, err := parseCoord(rec, yi)
		if err != nil {
			return nil, fmt.Errorf("row %d: y: %w", row+2, err)
		}
		s := advect.Start{X: x, Y: y}
		if hasT {
			t, err := parseCoord(rec, ti)
			if err != nil {
				return nil, fmt.Errorf("row %d: t: %w", row+2, err)
			}
			s.T = t
		}
		starts = append(starts, s)
	}
	return starts, nil
}

func parseCoord(rec []string, i int) (float64, error) {
	if i >= len(rec) {
		return 0, fmt.Errorf("missing column %d", i)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %v", v)
	}
	return v, nil
}
