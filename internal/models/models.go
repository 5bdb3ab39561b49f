// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package models provides built-in scattering-law models for the CLI and
// tests. User code can always pass its own convolve.ModelFunc; these
// cover the common demonstration cases.
package models

import (
	"fmt"
	"math"

	"github.com/pdiddy/tasconv/internal/convolve"
)

// Lorentzian is a multi-mode scattering law: each excitation branch is a
// Lorentzian in energy transfer centered at a fixed mode energy.
// Parameters (all optional):
//
//	modes            number of branches (default 3)
//	center1..N       mode energies in meV (default 2, 6, 10, ...)
//	hwhm1..N         half-widths at half-maximum in meV (default 0.5)
//	amp1..N          mode amplitudes (default 1)
func Lorentzian(h, k, l, w []float64, p convolve.Params) ([][]float64, error) {
	nModes := int(param(p, "modes", 3))
	if nModes < 1 {
		return nil, fmt.Errorf("lorentzian model needs at least one mode, got %d", nModes)
	}

	out := make([][]float64, nModes)
	for m := 0; m < nModes; m++ {
		center := param(p, fmt.Sprintf("center%d", m+1), float64(2+4*m))
		hwhm := param(p, fmt.Sprintf("hwhm%d", m+1), 0.5)
		amp := param(p, fmt.Sprintf("amp%d", m+1), 1)
		if hwhm <= 0 {
			return nil, fmt.Errorf("lorentzian mode %d: hwhm must be positive, got %g", m+1, hwhm)
		}

		row := make([]float64, len(w))
		for j, wj := range w {
			d := wj - center
			row[j] = amp * hwhm / (math.Pi * (d*d + hwhm*hwhm))
		}
		out[m] = row
	}
	return out, nil
}

// Constant is a single-mode scattering law with value 1 everywhere. A
// resolution convolution of it must return exactly 1 at every point,
// which makes it the canonical normalization check.
func Constant(h, _, _, _ []float64, _ convolve.Params) ([][]float64, error) {
	row := make([]float64, len(h))
	for j := range row {
		row[j] = 1
	}
	return [][]float64{row}, nil
}

// ByName resolves a built-in model by its config name.
func ByName(name string) (convolve.ModelFunc, error) {
	switch name {
	case "lorentzian", "":
		return Lorentzian, nil
	case "constant":
		return Constant, nil
	default:
		return nil, fmt.Errorf("unknown model %q (want \"lorentzian\" or \"constant\")", name)
	}
}

func param(p convolve.Params, key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}
