// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package lattice provides crystal lattice algebra for the sample under
// study: the reciprocal basis matrix, d-spacings, momentum-transfer
// magnitudes, and angles between reciprocal vectors, plus neutron beam
// energy conversions.
package lattice

import (
	"fmt"
	"math"

	"github.com/pdiddy/tasconv/pkg/types"
)

// Matrix3 is a 3x3 real matrix in row-major order.
type Matrix3 [3][3]float64

// MulVec applies the matrix to a 3-vector.
func (m Matrix3) MulVec(x [3]float64) [3]float64 {
	var y [3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			y[i] += m[i][j] * x[j]
		}
	}
	return y
}

// Inv returns the matrix inverse, or an error when the matrix is singular.
func (m Matrix3) Inv() (Matrix3, error) {
	det := m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
	if math.Abs(det) < 1e-15 {
		return Matrix3{}, fmt.Errorf("singular matrix, det = %g", det)
	}
	inv := Matrix3{
		{m[1][1]*m[2][2] - m[1][2]*m[2][1], m[0][2]*m[2][1] - m[0][1]*m[2][2], m[0][1]*m[1][2] - m[0][2]*m[1][1]},
		{m[1][2]*m[2][0] - m[1][0]*m[2][2], m[0][0]*m[2][2] - m[0][2]*m[2][0], m[0][2]*m[1][0] - m[0][0]*m[1][2]},
		{m[1][0]*m[2][1] - m[1][1]*m[2][0], m[0][1]*m[2][0] - m[0][0]*m[2][1], m[0][0]*m[1][1] - m[0][1]*m[1][0]},
	}
	for i := range inv {
		for j := range inv[i] {
			inv[i][j] /= det
		}
	}
	return inv, nil
}

// Sample holds a crystal lattice and its precomputed reciprocal basis.
// The B matrix follows the Busing-Levy convention with the 2*pi factor
// included, so B*(h,k,l) is the momentum transfer in 1/angstrom.
type Sample struct {
	A, B, C            float64 // lattice constants, angstrom
	Alpha, Beta, Gamma float64 // cell angles, degrees
	Volume             float64 // unit cell volume, angstrom^3
	Bmat, BmatInv      Matrix3
}

// NewSample builds a Sample from lattice constants (angstrom) and cell
// angles (degrees), precomputing the reciprocal basis.
func NewSample(cfg types.SampleConfig) (Sample, error) {
	if cfg.A <= 0 || cfg.B <= 0 || cfg.C <= 0 {
		return Sample{}, fmt.Errorf("lattice constants must be positive, got a=%g b=%g c=%g", cfg.A, cfg.B, cfg.C)
	}
	for _, ang := range []float64{cfg.Alpha, cfg.Beta, cfg.Gamma} {
		if ang <= 0 || ang >= 180 {
			return Sample{}, fmt.Errorf("cell angles must lie in (0, 180) degrees, got %g", ang)
		}
	}

	ca, sa := sincosDeg(cfg.Alpha)
	cb, sb := sincosDeg(cfg.Beta)
	cg, sg := sincosDeg(cfg.Gamma)

	arg := 1 - ca*ca - cb*cb - cg*cg + 2*ca*cb*cg
	if arg <= 0 {
		return Sample{}, fmt.Errorf("cell angles alpha=%g beta=%g gamma=%g do not form a valid cell", cfg.Alpha, cfg.Beta, cfg.Gamma)
	}
	vol := cfg.A * cfg.B * cfg.C * math.Sqrt(arg)

	astar := 2 * math.Pi * cfg.B * cfg.C * sa / vol
	bstar := 2 * math.Pi * cfg.A * cfg.C * sb / vol
	cstar := 2 * math.Pi * cfg.A * cfg.B * sg / vol

	// Reciprocal cell angles (Busing-Levy).
	cbStar := (ca*cg - cb) / (sa * sg)
	cgStar := (ca*cb - cg) / (sa * sb)
	sbStar := math.Sqrt(1 - cbStar*cbStar)
	sgStar := math.Sqrt(1 - cgStar*cgStar)

	b := Matrix3{
		{astar, bstar * cgStar, cstar * cbStar},
		{0, bstar * sgStar, -cstar * sbStar * ca},
		{0, 0, 2 * math.Pi / cfg.C},
	}
	bInv, err := b.Inv()
	if err != nil {
		return Sample{}, fmt.Errorf("reciprocal basis: %w", err)
	}

	return Sample{
		A: cfg.A, B: cfg.B, C: cfg.C,
		Alpha: cfg.Alpha, Beta: cfg.Beta, Gamma: cfg.Gamma,
		Volume:  vol,
		Bmat:    b,
		BmatInv: bInv,
	}, nil
}

// QCart maps Miller indices (h, k, l) to the momentum transfer vector in
// Cartesian reciprocal coordinates (1/angstrom).
func (s Sample) QCart(h, k, l float64) [3]float64 {
	return s.Bmat.MulVec([3]float64{h, k, l})
}

// QMag returns the magnitude of the momentum transfer |Q| at (h, k, l)
// in 1/angstrom.
func (s Sample) QMag(h, k, l float64) float64 {
	q := s.QCart(h, k, l)
	return math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2])
}

// DSpacing returns the interplanar spacing of the (h, k, l) reflection
// in angstrom.
func (s Sample) DSpacing(h, k, l float64) (float64, error) {
	q := s.QMag(h, k, l)
	if q == 0 {
		return 0, fmt.Errorf("d-spacing undefined for (0, 0, 0)")
	}
	return 2 * math.Pi / q, nil
}

// AngleBetween returns the angle in degrees between the reciprocal
// vectors (h1, k1, l1) and (h2, k2, l2).
func (s Sample) AngleBetween(h1, k1, l1, h2, k2, l2 float64) (float64, error) {
	v1 := s.QCart(h1, k1, l1)
	v2 := s.QCart(h2, k2, l2)
	n1 := math.Sqrt(v1[0]*v1[0] + v1[1]*v1[1] + v1[2]*v1[2])
	n2 := math.Sqrt(v2[0]*v2[0] + v2[1]*v2[1] + v2[2]*v2[2])
	if n1 == 0 || n2 == 0 {
		return 0, fmt.Errorf("angle undefined for zero vector")
	}
	cos := (v1[0]*v2[0] + v1[1]*v2[1] + v1[2]*v2[2]) / (n1 * n2)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi, nil
}

func sincosDeg(deg float64) (cos, sin float64) {
	rad := deg * math.Pi / 180
	return math.Cos(rad), math.Sin(rad)
}
