// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convolve

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// evaluate maps the sampled local offsets to absolute (H, K, L, W)
// coordinates through the point's frame and invokes the model and
// prefactor once with the entire batch. Batch-wise invocation is a
// contract, not an optimization knob: the functions must be pure, so a
// single full-batch call is both the fast path and the reference
// semantics. Shape disagreement between the two outputs fails with
// ErrShapeMismatch; errors from the user functions propagate unchanged.
func evaluate(model ModelFunc, prefactor PrefactorFunc, pt Point, s sampleSet, p Params) (modelOut, prefOut [][]float64, err error) {
	n := len(s.offsets)
	h := make([]float64, n)
	k := make([]float64, n)
	l := make([]float64, n)
	w := make([]float64, n)
	for j, x := range s.offsets {
		d := pt.Frame.MulVec(x)
		h[j] = pt.Q.H + d[0]
		k[j] = pt.Q.K + d[1]
		l[j] = pt.Q.L + d[2]
		w[j] = pt.Q.W + d[3]
	}

	modelOut, err = model(h, k, l, w, p)
	if err != nil {
		return nil, nil, err
	}
	prefOut, err = prefactor(h, k, l, w, pt, p)
	if err != nil {
		return nil, nil, err
	}

	if len(modelOut) == 0 {
		return nil, nil, fmt.Errorf("%w: model returned no modes", ErrShapeMismatch)
	}
	for i, row := range modelOut {
		if len(row) != n {
			return nil, nil, fmt.Errorf("%w: model mode %d has %d samples, want %d", ErrShapeMismatch, i, len(row), n)
		}
	}
	// A single prefactor row broadcasts across all modes.
	if len(prefOut) != len(modelOut) && len(prefOut) != 1 {
		return nil, nil, fmt.Errorf("%w: prefactor has %d modes, model has %d", ErrShapeMismatch, len(prefOut), len(modelOut))
	}
	for i, row := range prefOut {
		if len(row) != n {
			return nil, nil, fmt.Errorf("%w: prefactor mode %d has %d samples, want %d", ErrShapeMismatch, i, len(row), n)
		}
	}
	return modelOut, prefOut, nil
}

// accumulate combines the sampled model values with the sampler weights
// into the convolved intensity for one trajectory point. Mode
// contributions are summed per sample, weighted, summed over samples,
// and normalized by the resolution volume (the weight sum) so that a
// constant model convolves to exactly that constant regardless of
// accuracy. The normalized value is then scaled by the global intensity
// factor.
func accumulate(modelOut, prefOut [][]float64, weights []float64, scale float64) (float64, error) {
	wsum := floats.Sum(weights)
	if wsum == 0 {
		return 0, ErrZeroWeight
	}

	total := 0.0
	for j, wj := range weights {
		contrib := 0.0
		for i, row := range modelOut {
			pref := prefOut[0][j]
			if len(prefOut) > 1 {
				pref = prefOut[i][j]
			}
			contrib += row[j] * pref
		}
		total += contrib * wj
	}
	return total / wsum * scale, nil
}
