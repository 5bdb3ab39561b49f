// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convolve computes the instrument-broadened scattering intensity
// along a momentum-energy trajectory by convolving a user-supplied
// scattering law with the spectrometer's 4-dimensional Gaussian
// resolution function, using either a deterministic grid ("fix") or
// Monte Carlo draws ("mc") inside the resolution ellipsoid.
package convolve

import "github.com/pdiddy/tasconv/pkg/types"

// Params holds user-model parameters by name. The engine passes them
// through to the model and prefactor functions untouched.
type Params map[string]float64

// Point is the resolution description at one trajectory point, as
// returned by a Provider: the symmetric positive-definite quadratic form
// M defining the local Gaussian exp(-1/2 x' M x), and the frame mapping
// local offsets x = (dQx, dQy, dQz, dW) into absolute (H, K, L, W) deltas.
type Point struct {
	Q     types.QPoint
	M     types.Matrix4
	Frame types.Matrix4
}

// Provider yields the resolution quadratic form at a trajectory point.
// The engine treats it as an opaque call and never inspects the
// provider's internal geometry.
type Provider interface {
	ResolutionAt(q types.QPoint) (Point, error)
}

// ModelFunc is a user-supplied scattering law S(Q, w). It is invoked once
// per trajectory point with the entire batch of sample coordinates and
// must return one row per excitation mode, each row holding one value per
// sample. It must be pure: partial batches would not change its output.
type ModelFunc func(h, k, l, w []float64, p Params) ([][]float64, error)

// PrefactorFunc is a user-supplied multiplicative weighting (form factor,
// polarization, background) with the same batch contract as ModelFunc.
// It may return a single row, which is broadcast across all modes. The
// resolution Point for the trajectory point is passed as context.
type PrefactorFunc func(h, k, l, w []float64, pt Point, p Params) ([][]float64, error)

// UnitPrefactor weighs every mode of every sample with 1.
func UnitPrefactor(h, _, _, _ []float64, _ Point, _ Params) ([][]float64, error) {
	row := make([]float64, len(h))
	for i := range row {
		row[i] = 1
	}
	return [][]float64{row}, nil
}
