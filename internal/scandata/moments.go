// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scandata

import (
	"fmt"
	"sort"
)

// Background specifies how the background level is estimated before
// computing moments.
type Background struct {
	// Type is one of "", "constant", "percent", or "minimum". The empty
	// type means no background subtraction.
	Type string

	// Value is the constant level for "constant", or the percentage of
	// lowest-intensity points averaged for "percent".
	Value float64
}

// EstimateBackground returns the background level for the scan.
// "constant" returns Value as-is, "percent" averages the lowest Value
// percent of the non-negative intensities, and "minimum" returns the
// smallest intensity.
func (s *Scan) EstimateBackground(bg Background) (float64, error) {
	switch bg.Type {
	case "", "none":
		return 0, nil
	case "constant":
		return bg.Value, nil
	case "percent":
		if bg.Value <= 0 || bg.Value > 100 {
			return 0, fmt.Errorf("percent background needs a value in (0, 100], got %g", bg.Value)
		}
		var inten []float64
		for _, v := range s.Intensity() {
			if v >= 0 {
				inten = append(inten, v)
			}
		}
		if len(inten) == 0 {
			return 0, fmt.Errorf("no non-negative intensities to estimate background from")
		}
		sort.Float64s(inten)
		n := int(float64(len(inten)) * bg.Value / 100)
		if n < 1 {
			n = 1
		}
		sum := 0.0
		for _, v := range inten[:n] {
			sum += v
		}
		return sum / float64(n), nil
	case "minimum":
		inten := s.Intensity()
		if len(inten) == 0 {
			return 0, fmt.Errorf("empty scan")
		}
		best := inten[0]
		for _, v := range inten[1:] {
			if v < best {
				best = v
			}
		}
		return best, nil
	default:
		return 0, fmt.Errorf("unknown background type %q", bg.Type)
	}
}

// Bounds selects the points a moment is computed over. A nil Bounds
// keeps every point.
type Bounds func(h, k, l, e float64) bool

// Integrate returns the integrated background-subtracted intensity,
// summed over trapezoidal integrals along each of the four momentum-energy
// axes in data order.
func (s *Scan) Integrate(bounds Bounds, bg Background) (float64, error) {
	idx, err := s.selectIdx(bounds)
	if err != nil {
		return 0, err
	}
	level, err := s.EstimateBackground(bg)
	if err != nil {
		return 0, err
	}

	inten := s.Intensity()
	y := make([]float64, len(idx))
	for j, i := range idx {
		y[j] = inten[i] - level
	}

	result := 0.0
	for _, axis := range s.axisColumns() {
		x := make([]float64, len(idx))
		for j, i := range idx {
			x[j] = axis[i]
		}
		result += trapz(y, x)
	}
	return result, nil
}

// Position returns the intensity-weighted first moment (peak position)
// in each of (H, K, L, E).
func (s *Scan) Position(bounds Bounds, bg Background) ([4]float64, error) {
	total, err := s.Integrate(bounds, bg)
	if err != nil {
		return [4]float64{}, err
	}
	if total == 0 {
		return [4]float64{}, fmt.Errorf("integrated intensity is zero, position undefined")
	}
	return s.weightedMoment(bounds, bg, total, nil)
}

// Width returns the intensity-weighted mean-squared width of the peak
// in each of (H, K, L, E).
func (s *Scan) Width(bounds Bounds, bg Background) ([4]float64, error) {
	total, err := s.Integrate(bounds, bg)
	if err != nil {
		return [4]float64{}, err
	}
	if total == 0 {
		return [4]float64{}, fmt.Errorf("integrated intensity is zero, width undefined")
	}
	pos, err := s.weightedMoment(bounds, bg, total, nil)
	if err != nil {
		return [4]float64{}, err
	}
	return s.weightedMoment(bounds, bg, total, &pos)
}

// weightedMoment computes, per output axis j, the trapezoidal integral
// of Q_j * (I - bg) (or (Q_j - pos_j)^2 * (I - bg) when pos is given)
// summed over the four integration axes and normalized by total.
func (s *Scan) weightedMoment(bounds Bounds, bg Background, total float64, pos *[4]float64) ([4]float64, error) {
	idx, err := s.selectIdx(bounds)
	if err != nil {
		return [4]float64{}, err
	}
	level, err := s.EstimateBackground(bg)
	if err != nil {
		return [4]float64{}, err
	}

	inten := s.Intensity()
	cols := s.axisColumns()

	var result [4]float64
	for j, colJ := range cols {
		y := make([]float64, len(idx))
		for jj, i := range idx {
			q := colJ[i]
			w := inten[i] - level
			if pos != nil {
				d := q - pos[j]
				y[jj] = d * d * w
			} else {
				y[jj] = q * w
			}
		}
		for _, colI := range cols {
			x := make([]float64, len(idx))
			for jj, i := range idx {
				x[jj] = colI[i]
			}
			result[j] += trapz(y, x) / total
		}
	}
	return result, nil
}

func (s *Scan) axisColumns() [4][]float64 {
	return [4][]float64{s.H, s.K, s.L, s.E}
}

func (s *Scan) selectIdx(bounds Bounds) ([]int, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	idx := make([]int, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		if bounds == nil || bounds(s.H[i], s.K[i], s.L[i], s.E[i]) {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return nil, fmt.Errorf("bounds select no points")
	}
	return idx, nil
}

// trapz is the trapezoidal integral of y over x in the given order.
func trapz(y, x []float64) float64 {
	result := 0.0
	for i := 1; i < len(x); i++ {
		result += (x[i] - x[i-1]) * (y[i] + y[i-1]) / 2
	}
	return result
}
