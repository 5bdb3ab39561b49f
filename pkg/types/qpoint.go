// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the tasconv pipeline.
package types

import "fmt"

// QPoint is a single momentum-energy transfer point: momentum transfer
// (H, K, L) in reciprocal-lattice units and energy transfer W in meV.
type QPoint struct {
	H float64 `json:"h" yaml:"h"`
	K float64 `json:"k" yaml:"k"`
	L float64 `json:"l" yaml:"l"`
	W float64 `json:"w" yaml:"w"`
}

func (q QPoint) String() string {
	return fmt.Sprintf("(%.4g, %.4g, %.4g, %.4g)", q.H, q.K, q.L, q.W)
}

// Trajectory is an ordered sequence of momentum-energy points at which
// the convolved intensity is requested. It is immutable input: nothing
// downstream modifies it, and the convolved output is indexed 1:1 with it.
type Trajectory []QPoint

// ConstQScan builds a constant-Q energy scan: the momentum transfer
// (h, k, l) is held fixed while the energy transfer steps from wStart
// to wEnd inclusive over n points. n must be at least 1; with n == 1
// the single point sits at wStart.
func ConstQScan(h, k, l, wStart, wEnd float64, n int) (Trajectory, error) {
	if n < 1 {
		return nil, fmt.Errorf("trajectory needs at least one point, got %d", n)
	}
	traj := make(Trajectory, n)
	step := 0.0
	if n > 1 {
		step = (wEnd - wStart) / float64(n-1)
	}
	for i := range traj {
		traj[i] = QPoint{H: h, K: k, L: l, W: wStart + float64(i)*step}
	}
	return traj, nil
}

// Matrix4 is a 4x4 real matrix in row-major order. It represents either
// a resolution quadratic form M, defining the local Gaussian resolution
// function exp(-1/2 x' M x) in offset coordinates (dQx, dQy, dQz, dW),
// or the frame mapping local offsets into absolute (H, K, L, W) deltas.
type Matrix4 [4][4]float64

// Identity4 returns the 4x4 identity matrix.
func Identity4() Matrix4 {
	var m Matrix4
	for i := 0; i < 4; i++ {
		m[i][i] = 1
	}
	return m
}

// MulVec applies the matrix to a 4-vector.
func (m Matrix4) MulVec(x [4]float64) [4]float64 {
	var y [4]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			y[i] += m[i][j] * x[j]
		}
	}
	return y
}
