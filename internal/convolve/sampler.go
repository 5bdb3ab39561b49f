// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convolve

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/pdiddy/tasconv/pkg/types"
)

// gridDim is the dimensionality of the resolution ellipsoid:
// (dQx, dQy, dQz, dW).
const gridDim = 4

// gridSigmaSpan is the half-width of the fixed grid along each principal
// axis, in standard deviations of the resolution Gaussian. 3 sigma
// captures 99.7% of the per-axis Gaussian mass.
const gridSigmaSpan = 3.0

// symTol is the relative tolerance for the symmetry check on the
// resolution matrix.
const symTol = 1e-9

// sampleSet is the output of the ellipsoid sampler for one trajectory
// point: local-frame offsets with their integration weights.
type sampleSet struct {
	offsets [][gridDim]float64
	weights []float64
}

// eigenBasis is the principal-axis decomposition M = V diag(vals) V' of
// a resolution quadratic form.
type eigenBasis struct {
	vals [gridDim]float64          // eigenvalues, ascending, all positive
	vecs [gridDim][gridDim]float64 // columns indexed by second subscript
}

// decompose validates that m is symmetric positive-definite and returns
// its principal-axis decomposition. Violations fail with
// ErrDegenerateResolution; they are data errors, never silently
// defaulted.
func decompose(m types.Matrix4) (eigenBasis, error) {
	scale := 0.0
	for i := 0; i < gridDim; i++ {
		for j := 0; j < gridDim; j++ {
			scale = math.Max(scale, math.Abs(m[i][j]))
		}
	}
	tol := symTol * math.Max(1, scale)
	for i := 0; i < gridDim; i++ {
		for j := i + 1; j < gridDim; j++ {
			if math.Abs(m[i][j]-m[j][i]) > tol {
				return eigenBasis{}, fmt.Errorf("%w: M[%d][%d]=%g but M[%d][%d]=%g",
					ErrDegenerateResolution, i, j, m[i][j], j, i, m[j][i])
			}
		}
	}

	data := make([]float64, gridDim*gridDim)
	for i := 0; i < gridDim; i++ {
		for j := 0; j < gridDim; j++ {
			data[i*gridDim+j] = (m[i][j] + m[j][i]) / 2
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(mat.NewSymDense(gridDim, data), true); !ok {
		return eigenBasis{}, fmt.Errorf("%w: eigendecomposition did not converge", ErrDegenerateResolution)
	}

	var b eigenBasis
	vals := eig.Values(nil)
	for i, v := range vals {
		if v <= 0 {
			return eigenBasis{}, fmt.Errorf("%w: eigenvalue %g is not positive", ErrDegenerateResolution, v)
		}
		b.vals[i] = v
	}

	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	for i := 0; i < gridDim; i++ {
		for j := 0; j < gridDim; j++ {
			b.vecs[i][j] = vecs.At(i, j)
		}
	}
	return b, nil
}

// sampleFixed builds a deterministic grid inside the resolution
// ellipsoid of m. Along each principal axis it places counts[i] midpoint
// cells spanning +/- gridSigmaSpan standard deviations; the Cartesian
// product of the per-axis grids is rotated back into the local offset
// frame. A grid point's weight is the unnormalized Gaussian
// exp(-1/2 x' M x) times the grid cell volume, so the weighted sum over
// all points approximates the Gaussian-weighted integral, not merely an
// average.
func sampleFixed(m types.Matrix4, counts [gridDim]int) (sampleSet, error) {
	b, err := decompose(m)
	if err != nil {
		return sampleSet{}, err
	}

	var steps [gridDim]float64
	cellVol := 1.0
	total := 1
	for i := 0; i < gridDim; i++ {
		sigma := 1 / math.Sqrt(b.vals[i])
		steps[i] = 2 * gridSigmaSpan * sigma / float64(counts[i])
		cellVol *= steps[i]
		total *= counts[i]
	}

	s := sampleSet{
		offsets: make([][gridDim]float64, 0, total),
		weights: make([]float64, 0, total),
	}

	var u [gridDim]float64
	for i0 := 0; i0 < counts[0]; i0++ {
		u[0] = axisCoord(i0, counts[0], steps[0])
		for i1 := 0; i1 < counts[1]; i1++ {
			u[1] = axisCoord(i1, counts[1], steps[1])
			for i2 := 0; i2 < counts[2]; i2++ {
				u[2] = axisCoord(i2, counts[2], steps[2])
				for i3 := 0; i3 < counts[3]; i3++ {
					u[3] = axisCoord(i3, counts[3], steps[3])

					quad := 0.0
					for i := 0; i < gridDim; i++ {
						quad += b.vals[i] * u[i] * u[i]
					}

					var x [gridDim]float64
					for r := 0; r < gridDim; r++ {
						for i := 0; i < gridDim; i++ {
							x[r] += b.vecs[r][i] * u[i]
						}
					}

					s.offsets = append(s.offsets, x)
					s.weights = append(s.weights, math.Exp(-quad/2)*cellVol)
				}
			}
		}
	}
	return s, nil
}

// axisCoord returns the center of grid cell i out of n cells of the
// given step, symmetric about zero.
func axisCoord(i, n int, step float64) float64 {
	return (float64(i) - float64(n-1)/2) * step
}

// sampleMC draws n independent samples from the multivariate normal
// distribution implied by m: standard normals in the eigenbasis, scaled
// by 1/sqrt(lambda_i) and rotated back. Every sample carries weight 1/n,
// turning the weighted sum into a plain Monte Carlo estimator of the
// integrand's expectation under the resolution distribution. The draws
// consume rng; reproducibility is the caller's concern through seeding.
func sampleMC(m types.Matrix4, n int, rng *rand.Rand) (sampleSet, error) {
	b, err := decompose(m)
	if err != nil {
		return sampleSet{}, err
	}

	var sigma [gridDim]float64
	for i := 0; i < gridDim; i++ {
		sigma[i] = 1 / math.Sqrt(b.vals[i])
	}

	s := sampleSet{
		offsets: make([][gridDim]float64, n),
		weights: make([]float64, n),
	}
	w := 1 / float64(n)

	for j := 0; j < n; j++ {
		var u [gridDim]float64
		for i := 0; i < gridDim; i++ {
			u[i] = rng.NormFloat64() * sigma[i]
		}
		var x [gridDim]float64
		for r := 0; r < gridDim; r++ {
			for i := 0; i < gridDim; i++ {
				x[r] += b.vecs[r][i] * u[i]
			}
		}
		s.offsets[j] = x
		s.weights[j] = w
	}
	return s, nil
}

// sample dispatches to the resolved accuracy variant.
func sample(m types.Matrix4, acc Accuracy, rng *rand.Rand) (sampleSet, error) {
	switch acc.method {
	case MethodFixed:
		return sampleFixed(m, acc.counts)
	case MethodMonteCarlo:
		return sampleMC(m, acc.draws, rng)
	default:
		// ParseAccuracy rejects anything else before work begins.
		return sampleSet{}, fmt.Errorf("%w: %q", ErrUnknownMethod, acc.method)
	}
}
