// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scandata handles measured triple-axis scan data: monitor- or
// time-normalized intensities, combining repeated scans, rebinning onto
// regular grids, and peak moments.
package scandata

import (
	"fmt"
	"math"
	"sort"
)

// DefaultCombineTol is the per-coordinate tolerance used by Combine when
// the caller does not supply one.
const DefaultCombineTol = 5e-4

// Scan holds column-oriented scan data. Every column has the same
// length; one row is one measured point (H, K, L, E, Temp) with its
// detector counts, monitor counts, and counting time in minutes.
type Scan struct {
	H, K, L, E, Temp        []float64
	Detector, Monitor, Time []float64

	// M0 is the monitor value intensities are normalized to; zero means
	// the maximum monitor in the scan. T0 is the analogous counting
	// time for time normalization.
	M0, T0 float64

	// TimeNorm selects counting-time normalization instead of monitor
	// normalization.
	TimeNorm bool
}

// Len returns the number of measured points.
func (s *Scan) Len() int { return len(s.Detector) }

// Validate checks that all columns have equal length and counts are
// non-negative where required.
func (s *Scan) Validate() error {
	n := s.Len()
	for name, col := range map[string][]float64{
		"h": s.H, "k": s.K, "l": s.L, "e": s.E, "temp": s.Temp,
		"detector": s.Detector, "monitor": s.Monitor, "time": s.Time,
	} {
		if len(col) != n {
			return fmt.Errorf("column %s has %d rows, want %d", name, len(col), n)
		}
	}
	return nil
}

// monitorScale returns the effective normalization monitor: M0, or the
// maximum monitor in the scan when M0 is unset.
func (s *Scan) monitorScale() float64 {
	if s.M0 > 0 {
		return s.M0
	}
	return maxIgnoringNaN(s.Monitor)
}

func (s *Scan) timeScale() float64 {
	if s.T0 > 0 {
		return s.T0
	}
	return maxIgnoringNaN(s.Time)
}

// Intensity returns the normalized intensity per point: detector counts
// scaled to a common monitor (or counting time when TimeNorm is set).
func (s *Scan) Intensity() []float64 {
	out := make([]float64, s.Len())
	if s.TimeNorm {
		t0 := s.timeScale()
		for i := range out {
			out[i] = s.Detector[i] / s.Time[i] * t0
		}
		return out
	}
	m0 := s.monitorScale()
	for i := range out {
		out[i] = s.Detector[i] / s.Monitor[i] * m0
	}
	return out
}

// Error returns the square-root counting error of the normalized
// intensity per point.
func (s *Scan) Error() []float64 {
	out := make([]float64, s.Len())
	if s.TimeNorm {
		t0 := s.timeScale()
		for i := range out {
			out[i] = math.Sqrt(s.Detector[i]) / s.Time[i] * t0
		}
		return out
	}
	m0 := s.monitorScale()
	for i := range out {
		out[i] = math.Sqrt(s.Detector[i]) / s.Monitor[i] * m0
	}
	return out
}

// Combine merges another scan into this one and returns the result.
// Points whose (H, K, L, E, Temp) agree within tol summed their detector,
// monitor, and time columns; the remaining points of other are appended.
// The combined scan is sorted lexicographically by coordinate. A
// non-positive tol uses DefaultCombineTol.
func (s *Scan) Combine(other *Scan, tol float64) (*Scan, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("combining: %w", err)
	}
	if err := other.Validate(); err != nil {
		return nil, fmt.Errorf("combining: %w", err)
	}
	if tol <= 0 {
		tol = DefaultCombineTol
	}

	out := s.clone()
	for i := 0; i < other.Len(); i++ {
		j, ok := out.findWithin(other.coord(i), tol)
		if ok {
			out.Detector[j] += other.Detector[i]
			out.Monitor[j] += other.Monitor[i]
			out.Time[j] += other.Time[i]
			continue
		}
		out.H = append(out.H, other.H[i])
		out.K = append(out.K, other.K[i])
		out.L = append(out.L, other.L[i])
		out.E = append(out.E, other.E[i])
		out.Temp = append(out.Temp, other.Temp[i])
		out.Detector = append(out.Detector, other.Detector[i])
		out.Monitor = append(out.Monitor, other.Monitor[i])
		out.Time = append(out.Time, other.Time[i])
	}
	out.sortByCoord()
	return out, nil
}

func (s *Scan) coord(i int) [5]float64 {
	return [5]float64{s.H[i], s.K[i], s.L[i], s.E[i], s.Temp[i]}
}

func (s *Scan) findWithin(c [5]float64, tol float64) (int, bool) {
	for j := 0; j < s.Len(); j++ {
		d := s.coord(j)
		match := true
		for a := 0; a < 5; a++ {
			if math.Abs(d[a]-c[a]) > tol {
				match = false
				break
			}
		}
		if match {
			return j, true
		}
	}
	return 0, false
}

func (s *Scan) clone() *Scan {
	out := &Scan{M0: s.M0, T0: s.T0, TimeNorm: s.TimeNorm}
	out.H = append([]float64(nil), s.H...)
	out.K = append([]float64(nil), s.K...)
	out.L = append([]float64(nil), s.L...)
	out.E = append([]float64(nil), s.E...)
	out.Temp = append([]float64(nil), s.Temp...)
	out.Detector = append([]float64(nil), s.Detector...)
	out.Monitor = append([]float64(nil), s.Monitor...)
	out.Time = append([]float64(nil), s.Time...)
	return out
}

// sortByCoord reorders all columns lexicographically by
// (H, K, L, E, Temp).
func (s *Scan) sortByCoord() {
	idx := make([]int, s.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ca, cb := s.coord(idx[a]), s.coord(idx[b])
		for i := 0; i < 5; i++ {
			if ca[i] != cb[i] {
				return ca[i] < cb[i]
			}
		}
		return false
	})
	for _, col := range []*[]float64{&s.H, &s.K, &s.L, &s.E, &s.Temp, &s.Detector, &s.Monitor, &s.Time} {
		old := *col
		next := make([]float64, len(old))
		for i, j := range idx {
			next[i] = old[j]
		}
		*col = next
	}
}

func maxIgnoringNaN(xs []float64) float64 {
	best := math.Inf(-1)
	for _, x := range xs {
		if !math.IsNaN(x) && x > best {
			best = x
		}
	}
	return best
}
