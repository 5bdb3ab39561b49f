// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convolve

import "errors"

// Sentinel errors for contract violations inside the convolution engine.
// Every one of them aborts the whole run; none are retried, since all
// inputs are deterministic numerical data and a retry cannot change the
// outcome. Errors raised by user-supplied model functions propagate
// unchanged so callers can diagnose their own model bugs.
var (
	// ErrUnknownMethod reports an integration method other than "fix"
	// or "mc". Checked before any per-point work begins.
	ErrUnknownMethod = errors.New("unknown integration method")

	// ErrDegenerateResolution reports a resolution matrix that is not
	// symmetric positive-definite.
	ErrDegenerateResolution = errors.New("degenerate resolution matrix")

	// ErrShapeMismatch reports model and prefactor outputs whose mode or
	// sample counts disagree for a batch.
	ErrShapeMismatch = errors.New("model/prefactor shape mismatch")

	// ErrZeroWeight reports a resolution weight sum of zero. A valid
	// positive-definite matrix can never produce it, so it indicates an
	// upstream contract violation rather than a property of the input.
	ErrZeroWeight = errors.New("resolution weight sum is zero")
)
