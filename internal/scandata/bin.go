// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scandata

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
)

// BinAxis specifies one rebinning axis: the bounds and the number of
// grid points. N == 1 collapses the axis to a single cell spanning
// [Min, Max].
type BinAxis struct {
	Min, Max float64
	N        int
}

// BinRanges specifies the regular (H, K, L, E, Temp) grid to rebin onto.
type BinRanges struct {
	H, K, L, E, Temp BinAxis
}

func (r BinRanges) axes() [5]BinAxis {
	return [5]BinAxis{r.H, r.K, r.L, r.E, r.Temp}
}

// Bin rebins the scan onto the regular grid given by r: for every grid
// cell, the detector, monitor, and time of the source points falling
// inside the cell are averaged. Cells with no source points keep zero
// monitor, which marks them empty downstream. Grid cells are independent,
// so the work is chunked across workers (GOMAXPROCS when workers is not
// positive).
func (s *Scan) Bin(ctx context.Context, r BinRanges, workers int) (*Scan, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("binning: %w", err)
	}
	axes := r.axes()
	centers := make([][]float64, 5)
	var steps [5]float64
	total := 1
	for i, ax := range axes {
		if ax.N < 1 {
			return nil, fmt.Errorf("binning axis %d needs at least one point, got %d", i, ax.N)
		}
		if ax.Max < ax.Min {
			return nil, fmt.Errorf("binning axis %d has max %g below min %g", i, ax.Max, ax.Min)
		}
		if ax.N == 1 {
			centers[i] = []float64{(ax.Min + ax.Max) / 2}
			steps[i] = ax.Max - ax.Min
		} else {
			step := (ax.Max - ax.Min) / float64(ax.N-1)
			grid := make([]float64, ax.N)
			for j := range grid {
				grid[j] = ax.Min + float64(j)*step
			}
			centers[i] = grid
			steps[i] = step
		}
		total *= ax.N
	}

	out := &Scan{
		H:        make([]float64, total),
		K:        make([]float64, total),
		L:        make([]float64, total),
		E:        make([]float64, total),
		Temp:     make([]float64, total),
		Detector: make([]float64, total),
		Monitor:  make([]float64, total),
		Time:     make([]float64, total),
		M0:       s.M0,
		T0:       s.T0,
		TimeNorm: s.TimeNorm,
	}

	// Lay out the grid points in row-major order.
	for idx := 0; idx < total; idx++ {
		rem := idx
		var c [5]float64
		for axis := 4; axis >= 0; axis-- {
			n := len(centers[axis])
			c[axis] = centers[axis][rem%n]
			rem /= n
		}
		out.H[idx], out.K[idx], out.L[idx], out.E[idx], out.Temp[idx] = c[0], c[1], c[2], c[3], c[4]
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > total {
		workers = total
	}

	var wg sync.WaitGroup
	chunk := (total + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, total)
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for idx := lo; idx < hi; idx++ {
				if ctx.Err() != nil {
					return
				}
				s.binCell(out, idx, steps)
			}
		}(lo, hi)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// binCell averages the source points inside grid cell idx of out.
func (s *Scan) binCell(out *Scan, idx int, steps [5]float64) {
	center := out.coord(idx)
	var det, mon, tim float64
	count := 0

	for i := 0; i < s.Len(); i++ {
		c := s.coord(i)
		inside := true
		for a := 0; a < 5; a++ {
			if math.Abs(c[a]-center[a]) > steps[a]/2 {
				inside = false
				break
			}
		}
		if !inside {
			continue
		}
		det += s.Detector[i]
		mon += s.Monitor[i]
		tim += s.Time[i]
		count++
	}

	if count > 0 {
		out.Detector[idx] = det / float64(count)
		out.Monitor[idx] = mon / float64(count)
		out.Time[idx] = tim / float64(count)
	}
}
