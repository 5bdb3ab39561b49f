// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convolve

import "fmt"

// Integration method names accepted at the API boundary.
const (
	MethodFixed      = "fix"
	MethodMonteCarlo = "mc"
)

// mcDrawsPerUnit is the number of Monte Carlo draws per unit of the
// accuracy parameter. An accuracy of 5 therefore means 5000 draws.
const mcDrawsPerUnit = 1000

// Accuracy is the resolved form of the (method, accuracy list) pair: a
// tagged variant that is either a per-axis grid specification for the
// fixed method or a draw count for Monte Carlo. It is built once at the
// API boundary by ParseAccuracy so the engine never branches on the raw
// method string again.
type Accuracy struct {
	method string
	counts [gridDim]int // fixed: grid points per principal axis
	draws  int          // mc: total number of random draws
}

// FixedAccuracy builds a fixed-grid accuracy from per-axis point counts.
// When fewer than four counts are given the last value is replicated
// across the remaining axes, so FixedAccuracy(5, 5) means a 5x5x5x5 grid.
func FixedAccuracy(perAxis ...int) (Accuracy, error) {
	if len(perAxis) == 0 {
		return Accuracy{}, fmt.Errorf("fixed accuracy needs at least one grid count")
	}
	if len(perAxis) > gridDim {
		return Accuracy{}, fmt.Errorf("fixed accuracy takes at most %d grid counts, got %d", gridDim, len(perAxis))
	}
	var counts [gridDim]int
	for i := 0; i < gridDim; i++ {
		v := perAxis[min(i, len(perAxis)-1)]
		if v < 1 {
			return Accuracy{}, fmt.Errorf("grid counts must be positive, got %d", v)
		}
		counts[i] = v
	}
	return Accuracy{method: MethodFixed, counts: counts}, nil
}

// MonteCarloAccuracy builds a Monte Carlo accuracy: n scales the number
// of random draws by mcDrawsPerUnit.
func MonteCarloAccuracy(n int) (Accuracy, error) {
	if n < 1 {
		return Accuracy{}, fmt.Errorf("monte carlo accuracy must be positive, got %d", n)
	}
	return Accuracy{method: MethodMonteCarlo, draws: n * mcDrawsPerUnit}, nil
}

// ParseAccuracy resolves the caller-facing (method, accuracy) pair into
// the tagged variant. The method must be exactly "fix" or "mc"; anything
// else fails with ErrUnknownMethod before any work begins.
func ParseAccuracy(method string, accuracy []int) (Accuracy, error) {
	switch method {
	case MethodFixed:
		return FixedAccuracy(accuracy...)
	case MethodMonteCarlo:
		if len(accuracy) != 1 {
			return Accuracy{}, fmt.Errorf("monte carlo accuracy takes exactly one value, got %d", len(accuracy))
		}
		return MonteCarloAccuracy(accuracy[0])
	default:
		return Accuracy{}, fmt.Errorf("%w: %q (want %q or %q)", ErrUnknownMethod, method, MethodFixed, MethodMonteCarlo)
	}
}

// Method returns the resolved integration method name.
func (a Accuracy) Method() string { return a.method }
