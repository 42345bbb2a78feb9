// Command advect runs a batch of Lagrangian parcels through a gridded
// velocity product and writes the resulting trajectories.
//
// Usage:
//
//	advect -data velocity.json -points starts.csv -out trajectories.json
//	advect -u-data east.json -v-data north.json -product osisaf_drift ...
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/floe-data/drift.report/internal/advect"
	"github.com/floe-data/drift.report/internal/config"
	"github.com/floe-data/drift.report/internal/dataset"
	"github.com/floe-data/drift.report/internal/field"
	"github.com/floe-data/drift.report/internal/geo"
	"github.com/floe-data/drift.report/internal/grid"
	"github.com/floe-data/drift.report/internal/monitoring"
	"github.com/floe-data/drift.report/internal/store"
	"github.com/floe-data/drift.report/internal/version"
)

func main() {
	configPath := flag.String("config", "", "run config JSON (optional, defaults apply)")
	dataPath := flag.String("data", "", "combined dataset with both velocity components")
	uDataPath := flag.String("u-data", "", "dataset holding the u component (separate products)")
	vDataPath := flag.String("v-data", "", "dataset holding the v component (separate products)")
	pointsPath := flag.String("points", "", "CSV of start points (x,y[,t])")
	startX := flag.String("x", "", "comma-separated start x coordinates (alternative to -points)")
	startY := flag.String("y", "", "comma-separated start y coordinates")
	startT := flag.String("t", "0", "comma-separated start times")
	cropBounds := flag.String("crop", "", "restrict the field to \"minx,miny,maxx,maxy\" before advection")
	cropBuffer := flag.Int("crop-buffer", 1, "extra whole cells kept around the crop bounds")
	inpaint := flag.Int("inpaint", -1, "fill missing cells before advection: 0 nearest-neighbour, >0 smoothing iterations, -1 disables")
	outPath := flag.String("out", "trajectories.json", "output path (.json or .csv)")
	dbPath := flag.String("db", "", "optionally persist the run to this SQLite database")
	product := flag.String("product", "", "registry product key supplying component field names")
	registryPath := flag.String("registry", "", "extra product registry JSON to merge")
	uField := flag.String("u-field", "u", "u component field name")
	vField := flag.String("v-field", "v", "v component field name")
	scaleLat := flag.Float64("scale-lat", 0, "correct ground-true speeds for polar stereographic distortion at this latitude (0 disables)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("advect %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if *pointsPath == "" && *startX == "" {
		log.Fatal("missing -points (or -x/-y start coordinates)")
	}
	if *dataPath == "" && (*uDataPath == "" || *vDataPath == "") {
		log.Fatal("need -data, or both -u-data and -v-data")
	}

	cfg := config.EmptyRunConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadRunConfig(*configPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
	}

	uf, vf := *uField, *vField
	if *product != "" {
		var extra []string
		if *registryPath != "" {
			extra = append(extra, *registryPath)
		}
		products, err := dataset.LoadRegistry(extra...)
		if err != nil {
			log.Fatalf("registry: %v", err)
		}
		p, ok := products[*product]
		if !ok {
			log.Fatalf("registry: unknown product %q", *product)
		}
		uf, vf = p.Fields["u"], p.Fields["v"]
		monitoring.Logf("product %s: u=%s v=%s (%s)", *product, uf, vf, p.CRS)
	}

	var bounds *dataset.Bounds
	if *cropBounds != "" {
		b, err := parseBounds(*cropBounds)
		if err != nil {
			log.Fatalf("crop: %v", err)
		}
		bounds = &b
	}

	eval, datasetName, err := buildEvaluator(cfg, *dataPath, *uDataPath, *vDataPath, uf, vf, bounds, *cropBuffer, *inpaint)
	if err != nil {
		log.Fatalf("field: %v", err)
	}

	var vfield advect.VectorField = eval
	if *scaleLat != 0 {
		factors, err := geo.ScaleFactors([]float64{*scaleLat}, geo.WGS84Flattening, geo.DefaultReferenceLatitude, geo.MetricDistance)
		if err != nil {
			log.Fatalf("scale: %v", err)
		}
		// projected-plane velocity = ground-true velocity * map scale k
		k := 1 / factors[0]
		vfield = &scaledField{Evaluator: eval, factor: k}
		monitoring.Logf("projection scale factor at %g deg: %g", *scaleLat, k)
	}

	var starts []advect.Start
	if *pointsPath != "" {
		starts, err = dataset.LoadPoints(*pointsPath)
		if err != nil {
			log.Fatalf("points: %v", err)
		}
	} else {
		xs, err := parseFloatList(*startX)
		if err != nil {
			log.Fatalf("-x: %v", err)
		}
		ys, err := parseFloatList(*startY)
		if err != nil {
			log.Fatalf("-y: %v", err)
		}
		ts, err := parseFloatList(*startT)
		if err != nil {
			log.Fatalf("-t: %v", err)
		}
		starts, err = dataset.ExpandStarts(xs, ys, ts)
		if err != nil {
			log.Fatalf("starts: %v", err)
		}
	}
	// Point and config times arrive in the config's declared time base.
	base := cfg.GetTimeBase()
	for i := range starts {
		starts[i].T = base.ToDays(starts[i].T)
	}

	opts := advect.Options{
		DT:       cfg.GetDT(),
		MaxSteps: cfg.GetMaxSteps(),
		Workers:  cfg.GetWorkers(),
		Aux:      cfg.Aux,
	}
	if cfg.EndTime != nil {
		end := base.ToDays(*cfg.EndTime)
		opts.EndTime = &end
	}
	integrator, err := advect.NewIntegrator(cfg.GetIntegrator())
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	opts.Integrator = integrator

	monitoring.Logf("advecting %d parcels (%s, dt=%g)", len(starts), cfg.GetIntegrator(), opts.DT)
	t0 := time.Now()
	batch, err := advect.Run(vfield, starts, opts)
	if err != nil {
		log.Fatalf("advect: %v", err)
	}
	monitoring.Logf("run %s finished in %s", batch.RunID, time.Since(t0).Round(time.Millisecond))

	if err := writeOutput(*outPath, batch); err != nil {
		log.Fatalf("output: %v", err)
	}
	monitoring.Logf("wrote %s", *outPath)

	if *dbPath != "" {
		s, err := store.Open(*dbPath)
		if err != nil {
			log.Fatalf("store: %v", err)
		}
		defer s.Close()
		if err := s.SaveRun(batch, datasetName, cfg.GetIntegrator(), opts.DT); err != nil {
			log.Fatalf("store: %v", err)
		}
		monitoring.Logf("persisted run %s to %s", batch.RunID, *dbPath)
	}
}

// scaledField multiplies velocities by the projection's map scale so that
// products reporting ground-true speeds advect correctly in projected
// coordinates. Auxiliary scalar sampling passes through unscaled.
type scaledField struct {
	*field.Evaluator
	factor float64
}

func (s *scaledField) VelocityAt(t, x, y float64) field.Sample {
	v := s.Evaluator.VelocityAt(t, x, y)
	v.U *= s.factor
	v.V *= s.factor
	return v
}

// buildEvaluator loads the velocity data and composes the sampling stack.
// A combined product carries both components in one file; separate products
// contribute one component each. Each loaded series is optionally cropped
// to the region of interest and gap-filled before resolvers are built.
func buildEvaluator(cfg *config.RunConfig, dataPath, uDataPath, vDataPath, uField, vField string, bounds *dataset.Bounds, buffer, inpaint int) (*field.Evaluator, string, error) {
	newResolver := func(path string) (*field.Resolver, string, error) {
		d, err := dataset.LoadSeries(path)
		if err != nil {
			return nil, "", err
		}
		first, last := d.Series.TimeBounds()
		monitoring.Logf("loaded %s: %d slices, t=[%g, %g]", path, d.Series.Len(), first, last)
		s := d.Series
		if bounds != nil {
			s, err = dataset.Crop(s, *bounds, buffer)
			if err != nil {
				return nil, "", err
			}
			nx, ny := s.Slice(0).Grid.Dims()
			monitoring.Logf("cropped %s to %dx%d nodes", path, nx, ny)
		}
		if inpaint >= 0 {
			opt := grid.DefaultInpaintOptions()
			opt.Iterations = inpaint
			s, err = dataset.FillGaps(s, opt)
			if err != nil {
				return nil, "", err
			}
		}
		r, err := field.NewResolver(s, cfg.GetMethod(), cfg.GetExtrapolate(), cfg.GetTimePolicy())
		return r, d.Name, err
	}

	if dataPath != "" {
		r, name, err := newResolver(dataPath)
		if err != nil {
			return nil, "", err
		}
		eval, err := field.NewEvaluator(r, uField, r, vField)
		return eval, name, err
	}

	ur, uName, err := newResolver(uDataPath)
	if err != nil {
		return nil, "", err
	}
	vr, _, err := newResolver(vDataPath)
	if err != nil {
		return nil, "", err
	}
	eval, err := field.NewEvaluator(ur, uField, vr, vField)
	return eval, uName, err
}

// parseFloatList parses a comma-separated list of floats
func parseFloatList(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseBounds(s string) (dataset.Bounds, error) {
	vs, err := parseFloatList(s)
	if err != nil {
		return dataset.Bounds{}, err
	}
	if len(vs) != 4 {
		return dataset.Bounds{}, fmt.Errorf("want \"minx,miny,maxx,maxy\", got %d values", len(vs))
	}
	return dataset.Bounds{MinX: vs[0], MinY: vs[1], MaxX: vs[2], MaxY: vs[3]}, nil
}

func writeOutput(path string, batch *advect.BatchResult) error {
	switch filepath.Ext(path) {
	case ".json":
		return writeJSON(path, batch)
	case ".csv":
		return writeCSV(path, batch)
	default:
		return fmt.Errorf("output path must end in .json or .csv, got %q", path)
	}
}

// parcelDocument is the exported per-parcel record: terminal state plus
// trajectory diagnostics. Diagnostics that are undefined for the
// trajectory (single-sample mean speed) are null.
type parcelDocument struct {
	State        advect.State      `json:"state"`
	Reason       string            `json:"reason,omitempty"`
	Steps        int               `json:"steps"`
	Displacement *float64          `json:"displacement"`
	PathLength   *float64          `json:"path_length"`
	MeanSpeed    *float64          `json:"mean_speed"`
	Trajectory   advect.Trajectory `json:"trajectory"`
}

type runDocument struct {
	RunID   string           `json:"run_id"`
	Parcels []parcelDocument `json:"parcels"`
}

func writeJSON(path string, batch *advect.BatchResult) error {
	doc := runDocument{RunID: batch.RunID, Parcels: make([]parcelDocument, len(batch.Results))}
	for i, r := range batch.Results {
		sum := r.Trajectory.Summarize()
		doc.Parcels[i] = parcelDocument{
			State:        r.State,
			Reason:       r.Reason,
			Steps:        r.Steps,
			Displacement: finite(sum.Displacement),
			PathLength:   finite(sum.PathLength),
			MeanSpeed:    finite(sum.MeanSpeed),
			Trajectory:   r.Trajectory,
		}
	}
	data, err := json.MarshalIndent(&doc, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// writeCSV flattens all trajectories into one long table, one row per
// trajectory sample.
func writeCSV(path string, batch *advect.BatchResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"parcel", "seq", "t", "x", "y", "state", "reason", "steps", "displacement", "path_length", "mean_speed"}); err != nil {
		return err
	}
	for i, r := range batch.Results {
		sum := r.Trajectory.Summarize()
		for seq, p := range r.Trajectory.Points {
			row := []string{
				strconv.Itoa(i),
				strconv.Itoa(seq),
				strconv.FormatFloat(p.T, 'g', -1, 64),
				strconv.FormatFloat(p.X, 'g', -1, 64),
				strconv.FormatFloat(p.Y, 'g', -1, 64),
				string(r.State),
				r.Reason,
				strconv.Itoa(r.Steps),
				strconv.FormatFloat(sum.Displacement, 'g', -1, 64),
				strconv.FormatFloat(sum.PathLength, 'g', -1, 64),
				strconv.FormatFloat(sum.MeanSpeed, 'g', -1, 64),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}
