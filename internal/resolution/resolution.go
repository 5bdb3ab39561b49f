// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolution provides resolution point providers for the
// convolution engine. The EllipsoidProvider here is a parametrized
// Gaussian ellipsoid built from an instrument description; it honors the
// provider contract without deriving the quadratic form from
// monochromator/analyzer optics.
package resolution

import (
	"fmt"
	"math"

	"github.com/pdiddy/tasconv/internal/convolve"
	"github.com/pdiddy/tasconv/internal/lattice"
	"github.com/pdiddy/tasconv/pkg/types"
)

// arcminToRad converts arc minutes to radians.
const arcminToRad = math.Pi / (180 * 60)

// EllipsoidProvider computes a 4-dimensional Gaussian resolution
// ellipsoid at each trajectory point from fixed per-axis widths,
// optional |Q|- and energy-dependent broadening, and an optional
// momentum-energy correlation tilt. The local frame has dQx along the
// momentum transfer, dQy transverse in the scattering plane, dQz
// vertical, and dW along energy. The provider is immutable after
// construction; concurrent calls are safe.
type EllipsoidProvider struct {
	cfg    types.InstrumentConfig
	sample lattice.Sample
}

// NewEllipsoidProvider validates the instrument description and builds
// the provider, including the sample's reciprocal basis used to map
// local Cartesian offsets into reciprocal-lattice units.
func NewEllipsoidProvider(cfg types.InstrumentConfig) (*EllipsoidProvider, error) {
	sample, err := lattice.NewSample(cfg.Sample)
	if err != nil {
		return nil, fmt.Errorf("sample lattice: %w", err)
	}
	r := cfg.Resolution
	for name, v := range map[string]float64{
		"dq_par": r.DQPar, "dq_perp": r.DQPerp, "dq_vert": r.DQVert, "de": r.DE,
	} {
		if v <= 0 {
			return nil, fmt.Errorf("resolution width %s must be positive, got %g", name, v)
		}
	}
	if a := math.Abs(r.CorrAngle); a >= 90 {
		return nil, fmt.Errorf("corr_angle must lie in (-90, 90) degrees, got %g", r.CorrAngle)
	}
	return &EllipsoidProvider{cfg: cfg, sample: sample}, nil
}

// Sample returns the sample lattice the provider was built with.
func (p *EllipsoidProvider) Sample() lattice.Sample { return p.sample }

// Widths returns the effective Gaussian standard deviations
// (dQx, dQy, dQz, dW) at the given trajectory point, after broadening.
func (p *EllipsoidProvider) Widths(q types.QPoint) [4]float64 {
	r := p.cfg.Resolution
	qmag := p.sample.QMag(q.H, q.K, q.L)

	sx := r.DQPar * (1 + r.QBroadening*qmag)
	sy := r.DQPerp
	if p.cfg.Sample.Mosaic > 0 && qmag > 0 {
		// Mosaic spread fans the Bragg point transversely by eta*|Q|.
		eta := p.cfg.Sample.Mosaic * arcminToRad
		sy = math.Sqrt(sy*sy + eta*eta*qmag*qmag)
	}
	sz := r.DQVert
	sw := r.DE * (1 + r.EBroadening*math.Abs(q.W))
	return [4]float64{sx, sy, sz, sw}
}

// ResolutionAt returns the resolution quadratic form M and the
// local-to-absolute frame at the trajectory point.
func (p *EllipsoidProvider) ResolutionAt(q types.QPoint) (convolve.Point, error) {
	s := p.Widths(q)
	for i, v := range s {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return convolve.Point{}, fmt.Errorf("resolution width %d degenerate at %s: %g", i, q, v)
		}
	}

	// Diagonal quadratic form in the principal frame, then an optional
	// rotation in the (dQx, dW) plane to couple momentum and energy.
	var m types.Matrix4
	for i := 0; i < 4; i++ {
		m[i][i] = 1 / (s[i] * s[i])
	}
	if a := p.cfg.Resolution.CorrAngle; a != 0 {
		rad := a * math.Pi / 180
		c, sn := math.Cos(rad), math.Sin(rad)
		dxx, dww := m[0][0], m[3][3]
		m[0][0] = c*c*dxx + sn*sn*dww
		m[3][3] = sn*sn*dxx + c*c*dww
		m[0][3] = c * sn * (dww - dxx)
		m[3][0] = m[0][3]
	}

	frame, err := p.frameAt(q)
	if err != nil {
		return convolve.Point{}, err
	}
	return convolve.Point{Q: q, M: m, Frame: frame}, nil
}

// frameAt builds the 4x4 mapping from local offsets (dQx, dQy, dQz, dW)
// to absolute (H, K, L, W) deltas. The Cartesian local axes (x along Q,
// z vertical, y completing the right-handed set) are mapped into
// reciprocal-lattice units through the inverse reciprocal basis; the
// energy axis passes through unchanged.
func (p *EllipsoidProvider) frameAt(q types.QPoint) (types.Matrix4, error) {
	qc := p.sample.QCart(q.H, q.K, q.L)
	qn := math.Sqrt(qc[0]*qc[0] + qc[1]*qc[1] + qc[2]*qc[2])
	if qn == 0 {
		// At the zone center there is no preferred direction; use the
		// reciprocal axes directly.
		f := types.Identity4()
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				f[i][j] = p.sample.BmatInv[i][j]
			}
		}
		return f, nil
	}

	x := [3]float64{qc[0] / qn, qc[1] / qn, qc[2] / qn}
	z := [3]float64{0, 0, 1}
	if math.Abs(x[2]) > 0.999 {
		// Q is vertical; pick a horizontal vertical-axis substitute.
		z = [3]float64{1, 0, 0}
	}
	// y = z cross x, then re-orthogonalize z = x cross y.
	y := cross(z, x)
	yn := math.Sqrt(y[0]*y[0] + y[1]*y[1] + y[2]*y[2])
	for i := range y {
		y[i] /= yn
	}
	z = cross(x, y)

	var f types.Matrix4
	for col, axis := range [][3]float64{x, y, z} {
		rlu := p.sample.BmatInv.MulVec(axis)
		for row := 0; row < 3; row++ {
			f[row][col] = rlu[row]
		}
	}
	f[3][3] = 1
	return f, nil
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
