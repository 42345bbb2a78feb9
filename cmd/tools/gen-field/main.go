// Command gen-field emits synthetic velocity datasets for testing and
// examples: a uniform flow or a solid-body rotation.
package main

import (
	"flag"
	"log"

	"github.com/floe-data/drift.report/internal/dataset"
	"github.com/floe-data/drift.report/internal/field"
	"github.com/floe-data/drift.report/internal/grid"
	"github.com/floe-data/drift.report/internal/units"
)

func main() {
	output := flag.String("o", "field.json", "output path")
	kind := flag.String("kind", "uniform", "field kind: uniform or rotation")
	n := flag.Int("n", 11, "grid nodes per axis")
	extent := flag.Float64("extent", 10, "axis length, from 0 to extent")
	slices := flag.Int("slices", 2, "number of time slices")
	sliceDT := flag.Float64("slice-dt", 1, "days between slices")
	u := flag.Float64("u", 1, "uniform u component")
	v := flag.Float64("v", 0, "uniform v component")
	omega := flag.Float64("omega", 1, "rotation angular rate (per day)")
	flag.Parse()

	if *n < 2 {
		log.Fatal("need at least 2 nodes per axis")
	}
	if *slices < 1 {
		log.Fatal("need at least 1 time slice")
	}

	nodes := *n
	xs := axis(nodes, *extent)
	ys := axis(nodes, *extent)
	cx, cy := *extent/2, *extent/2

	var timeSlices []field.TimeSlice
	for s := 0; s < *slices; s++ {
		g, err := grid.New(xs, ys)
		if err != nil {
			log.Fatalf("grid: %v", err)
		}
		uv, vv := make([]float64, nodes*nodes), make([]float64, nodes*nodes)
		for iy := 0; iy < nodes; iy++ {
			for ix := 0; ix < nodes; ix++ {
				i := iy*nodes + ix
				switch *kind {
				case "uniform":
					uv[i], vv[i] = *u, *v
				case "rotation":
					uv[i] = -*omega * (ys[iy] - cy)
					vv[i] = *omega * (xs[ix] - cx)
				default:
					log.Fatalf("unknown kind %q", *kind)
				}
			}
		}
		if err := g.AddField("u", uv); err != nil {
			log.Fatalf("grid: %v", err)
		}
		if err := g.AddField("v", vv); err != nil {
			log.Fatalf("grid: %v", err)
		}
		timeSlices = append(timeSlices, field.TimeSlice{Time: float64(s) * *sliceDT, Grid: g})
	}

	series, err := field.NewSeries(timeSlices...)
	if err != nil {
		log.Fatalf("series: %v", err)
	}
	d := &dataset.Dataset{
		Name:   "synthetic-" + *kind,
		Base:   units.TimeBase{Epoch: units.J2000, Scale: units.SecondsPerDay},
		Series: series,
	}
	if err := dataset.SaveSeries(*output, d); err != nil {
		log.Fatalf("save: %v", err)
	}
	log.Printf("✓ Created: %s (%s, %d slices, %dx%d)", *output, *kind, *slices, nodes, nodes)
}

func axis(n int, extent float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = extent * float64(i) / float64(n-1)
	}
	return out
}
