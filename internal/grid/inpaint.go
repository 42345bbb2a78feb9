package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// InpaintOptions controls gap filling of missing (NaN) cells.
type InpaintOptions struct {
	// Iterations is the number of penalized least-squares smoothing passes.
	// Zero keeps the plain nearest-neighbour fill.
	Iterations int
	// S0 is the decadic exponent of the initial smoothness parameter.
	S0 float64
	// Power is the exponent applied to the Laplacian eigenvalues.
	Power float64
	// Epsilon is the relaxation factor applied between passes.
	Epsilon float64
}

// DefaultInpaintOptions mirrors the reference parameterization of the
// penalized least-squares scheme (Garcia, 2010).
func DefaultInpaintOptions() InpaintOptions {
	return InpaintOptions{Iterations: 0, S0: 3, Power: 2, Epsilon: 2.0}
}

// Inpaint fills NaN cells of a row-major ny x nx field. Valid cells are
// always returned unchanged. With Iterations == 0 missing cells take the
// value of their nearest valid neighbour; otherwise the nearest-neighbour
// seed is smoothed by iterated discrete cosine transforms with a
// log-spaced smoothness schedule.
func Inpaint(xs, ys, values []float64, opt InpaintOptions) ([]float64, error) {
	nx, ny := len(xs), len(ys)
	if len(values) != nx*ny {
		return nil, fmt.Errorf("inpaint: shape mismatch, got %d values for %dx%d grid", len(values), ny, nx)
	}

	valid := make([]bool, len(values))
	nValid := 0
	for i, v := range values {
		if !math.IsNaN(v) {
			valid[i] = true
			nValid++
		}
	}
	if nValid == 0 {
		return nil, fmt.Errorf("inpaint: no valid values found")
	}
	if nValid == len(values) {
		return append([]float64(nil), values...), nil
	}

	z0 := nearestFill(xs, ys, values, valid)
	if opt.Iterations == 0 {
		return z0, nil
	}

	// Eigenvalues of the discrete Laplacian under the DCT-I basis.
	lambda := make([]float64, nx*ny)
	for iy := 0; iy < ny; iy++ {
		cy := math.Cos(math.Pi * float64(iy) / float64(ny-1))
		for ix := 0; ix < nx; ix++ {
			cx := math.Cos(math.Pi * float64(ix) / float64(nx-1))
			lambda[iy*nx+ix] = math.Pow(2.0*(2.0-cx-cy), opt.Power)
		}
	}

	work := make([]float64, nx*ny)
	for i := 0; i < opt.Iterations; i++ {
		s := logStep(opt.S0, -6, i, opt.Iterations)
		// Merge: valid cells pinned to the observations, missing cells
		// carry the current estimate.
		for j := range work {
			if valid[j] {
				work[j] = values[j]
			} else {
				work[j] = z0[j]
			}
		}
		dct2(nx, ny, work)
		for j := range work {
			work[j] /= 1.0 + s*lambda[j]
		}
		idct2(nx, ny, work)
		for j := range z0 {
			z0[j] = opt.Epsilon*work[j] + (1.0-opt.Epsilon)*z0[j]
		}
	}

	// reset observed values
	for j := range z0 {
		if valid[j] {
			z0[j] = values[j]
		}
	}
	return z0, nil
}

// nearestFill seeds missing cells with the value of the nearest valid cell,
// looked up through a kd-tree over the valid cell coordinates.
func nearestFill(xs, ys, values []float64, valid []bool) []float64 {
	nx := len(xs)
	points := make(kdtree.Points, 0, len(values))
	byCoord := make(map[[2]float64]float64)
	for iy := range ys {
		for ix := range xs {
			j := iy*nx + ix
			if valid[j] {
				points = append(points, kdtree.Point{xs[ix], ys[iy]})
				byCoord[[2]float64{xs[ix], ys[iy]}] = values[j]
			}
		}
	}
	tree := kdtree.New(points, false)

	out := append([]float64(nil), values...)
	for iy := range ys {
		for ix := range xs {
			j := iy*nx + ix
			if valid[j] {
				continue
			}
			got, _ := tree.Nearest(kdtree.Point{xs[ix], ys[iy]})
			p := got.(kdtree.Point)
			out[j] = byCoord[[2]float64{p[0], p[1]}]
		}
	}
	return out
}

// logStep returns the i-th value of a decadic log-spaced schedule from
// 10^hi down to 10^lo over n steps.
func logStep(hi, lo float64, i, n int) float64 {
	if n == 1 {
		return math.Pow(10, hi)
	}
	e := hi + (lo-hi)*float64(i)/float64(n-1)
	return math.Pow(10, e)
}

// dct2 applies an in-place 2-D DCT-I along rows then columns.
func dct2(nx, ny int, data []float64) {
	rowT := fourier.NewDCT(nx)
	colT := fourier.NewDCT(ny)
	row := make([]float64, nx)
	for iy := 0; iy < ny; iy++ {
		copy(row, data[iy*nx:(iy+1)*nx])
		rowT.Transform(data[iy*nx:(iy+1)*nx], row)
	}
	col := make([]float64, ny)
	dst := make([]float64, ny)
	for ix := 0; ix < nx; ix++ {
		for iy := 0; iy < ny; iy++ {
			col[iy] = data[iy*nx+ix]
		}
		colT.Transform(dst, col)
		for iy := 0; iy < ny; iy++ {
			data[iy*nx+ix] = dst[iy]
		}
	}
}

// idct2 inverts dct2. DCT-I is self-inverse up to a factor of 2(n-1)
// per axis.
func idct2(nx, ny int, data []float64) {
	dct2(nx, ny, data)
	norm := 4.0 * float64(nx-1) * float64(ny-1)
	for i := range data {
		data[i] /= norm
	}
}
