// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convolve

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/pdiddy/tasconv/pkg/types"
)

// pointSeedStride separates the per-point random streams derived from
// the base seed. Derived seeds, not a shared generator, keep Monte Carlo
// results identical regardless of how points are scheduled across
// workers. The value is the 64-bit golden-ratio stride 0x9E3779B97F4A7C15
// reinterpreted as a signed constant; seed arithmetic wraps mod 2^64, so
// the stream separation is unchanged.
const pointSeedStride int64 = -0x61C8864680B583EB

// Run convolves the model with the instrument resolution at every point
// of the trajectory and returns one intensity per point, indexed exactly
// like the input. Trajectory points are independent, so they are fanned
// out across a bounded worker pool with results written into
// pre-indexed slots; cfg.Workers bounds the pool (GOMAXPROCS when
// unset). The method and accuracy are validated before any point is
// processed, and the first failure at any point aborts the whole run
// with no partial results.
//
// A zero cfg.Scale means 1 so that config files may omit it.
func Run(ctx context.Context, model ModelFunc, prefactor PrefactorFunc, provider Provider, traj types.Trajectory, params Params, cfg types.ConvolutionConfig) ([]float64, error) {
	if model == nil {
		return nil, fmt.Errorf("model function is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("resolution provider is required")
	}
	if prefactor == nil {
		prefactor = UnitPrefactor
	}

	acc, err := ParseAccuracy(cfg.Method, cfg.Accuracy)
	if err != nil {
		return nil, err
	}

	scale := cfg.Scale
	if scale == 0 {
		scale = 1
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(traj) {
		workers = len(traj)
	}
	if len(traj) == 0 {
		return []float64{}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make([]float64, len(traj))
	indices := make(chan int)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				// Each point gets its own generator so draws never
				// interleave between workers.
				rng := rand.New(rand.NewSource(seed + int64(i)*pointSeedStride))
				v, err := convolveOne(model, prefactor, provider, traj[i], params, acc, scale, rng)
				if err != nil {
					fail(fmt.Errorf("trajectory point %d %s: %w", i, traj[i], err))
					return
				}
				out[i] = v
			}
		}()
	}

feed:
	for i := range traj {
		select {
		case indices <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indices)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// convolveOne computes the convolved intensity at a single trajectory
// point: resolution lookup, ellipsoid sampling, batch model evaluation,
// and weighted accumulation.
func convolveOne(model ModelFunc, prefactor PrefactorFunc, provider Provider, q types.QPoint, params Params, acc Accuracy, scale float64, rng *rand.Rand) (float64, error) {
	pt, err := provider.ResolutionAt(q)
	if err != nil {
		return 0, err
	}
	s, err := sample(pt.M, acc, rng)
	if err != nil {
		return 0, err
	}
	modelOut, prefOut, err := evaluate(model, prefactor, pt, s, params)
	if err != nil {
		return 0, err
	}
	return accumulate(modelOut, prefOut, s.weights, scale)
}
