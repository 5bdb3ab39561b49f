// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convolve

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/tasconv/pkg/types"
)

// stubProvider returns the same quadratic form at every point, with an
// identity local-to-absolute frame. calls counts ResolutionAt
// invocations.
type stubProvider struct {
	m     types.Matrix4
	calls atomic.Int64
}

func (s *stubProvider) ResolutionAt(q types.QPoint) (Point, error) {
	s.calls.Add(1)
	return Point{Q: q, M: s.m, Frame: types.Identity4()}, nil
}

func narrowProvider() *stubProvider {
	return &stubProvider{m: diagForm([4]float64{0.02, 0.03, 0.05, 0.25})}
}

// constantModel is the canonical normalization probe: one mode, value 1.
func constantModel(h, _, _, _ []float64, _ Params) ([][]float64, error) {
	row := make([]float64, len(h))
	for i := range row {
		row[i] = 1
	}
	return [][]float64{row}, nil
}

// lorentzianModel mirrors the demonstration physics: three
// Lorentzian-broadened modes in energy transfer.
func lorentzianModel(_, _, _, w []float64, _ Params) ([][]float64, error) {
	centers := []float64{2, 6, 10}
	hwhm := 0.75
	out := make([][]float64, len(centers))
	for m, c := range centers {
		row := make([]float64, len(w))
		for j, wj := range w {
			d := wj - c
			row[j] = hwhm / (math.Pi * (d*d + hwhm*hwhm))
		}
		out[m] = row
	}
	return out, nil
}

func testTraj(t *testing.T, n int) types.Trajectory {
	t.Helper()
	traj, err := types.ConstQScan(1.5, 0, 0.35, 20, 0.5, n)
	require.NoError(t, err)
	return traj
}

func TestRunNormalizationInvariant(t *testing.T) {
	// Convolving a constant model with any valid resolution must return
	// exactly that constant for both methods, independent of accuracy.
	traj := testTraj(t, 5)

	tests := []struct {
		name string
		cfg  types.ConvolutionConfig
	}{
		{"fix coarse", types.ConvolutionConfig{Method: "fix", Accuracy: []int{3}}},
		{"fix fine", types.ConvolutionConfig{Method: "fix", Accuracy: []int{9, 9}}},
		{"mc", types.ConvolutionConfig{Method: "mc", Accuracy: []int{2}, Seed: 11}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Run(context.Background(), constantModel, nil, narrowProvider(), traj, nil, tt.cfg)
			require.NoError(t, err)
			require.Len(t, out, len(traj))
			for i, v := range out {
				assert.InDelta(t, 1, v, 1e-9, "point %d", i)
			}
		})
	}
}

func TestRunScaleFactor(t *testing.T) {
	traj := testTraj(t, 3)
	cfg := types.ConvolutionConfig{Method: "fix", Accuracy: []int{5}, Scale: 2.5}
	out, err := Run(context.Background(), constantModel, nil, narrowProvider(), traj, nil, cfg)
	require.NoError(t, err)
	for _, v := range out {
		assert.InDelta(t, 2.5, v, 1e-9)
	}
}

func TestRunOutputMatchesTrajectoryLength(t *testing.T) {
	for _, n := range []int{1, 2, 20} {
		traj := testTraj(t, n)
		out, err := Run(context.Background(), lorentzianModel, nil, narrowProvider(), traj, nil,
			types.ConvolutionConfig{Method: "fix", Accuracy: []int{4}})
		require.NoError(t, err)
		assert.Len(t, out, n)
	}
}

func TestRunEmptyTrajectory(t *testing.T) {
	out, err := Run(context.Background(), constantModel, nil, narrowProvider(), types.Trajectory{}, nil,
		types.ConvolutionConfig{Method: "fix", Accuracy: []int{3}})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunFixDeterminism(t *testing.T) {
	traj := testTraj(t, 10)
	cfg := types.ConvolutionConfig{Method: "fix", Accuracy: []int{5, 5}}

	a, err := Run(context.Background(), lorentzianModel, nil, narrowProvider(), traj, nil, cfg)
	require.NoError(t, err)
	b, err := Run(context.Background(), lorentzianModel, nil, narrowProvider(), traj, nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRunMCSeedDeterminismAcrossWorkerCounts(t *testing.T) {
	// Per-point derived seeds make results independent of how points are
	// scheduled across workers.
	traj := testTraj(t, 8)
	base := types.ConvolutionConfig{Method: "mc", Accuracy: []int{2}, Seed: 99}

	serial := base
	serial.Workers = 1
	parallel := base
	parallel.Workers = 4

	a, err := Run(context.Background(), lorentzianModel, nil, narrowProvider(), traj, nil, serial)
	require.NoError(t, err)
	b, err := Run(context.Background(), lorentzianModel, nil, narrowProvider(), traj, nil, parallel)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other := base
	other.Seed = 100
	c, err := Run(context.Background(), lorentzianModel, nil, narrowProvider(), traj, nil, other)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestPointSeedStrideSeparatesStreams(t *testing.T) {
	// Per-point seeds are derived by int64 stride arithmetic; the
	// wrapped products must stay distinct and nonzero across a scan so
	// neighboring points never share a random stream.
	const base int64 = 12345
	seen := make(map[int64]bool)
	for i := 0; i < 1000; i++ {
		s := base + int64(i)*pointSeedStride
		assert.False(t, seen[s], "seed for point %d collides", i)
		seen[s] = true
	}

	// Adjacent points draw different first normals.
	a := rand.New(rand.NewSource(base)).NormFloat64()
	b := rand.New(rand.NewSource(base + pointSeedStride)).NormFloat64()
	assert.NotEqual(t, a, b)
}

func TestRunUnknownMethodFailsFast(t *testing.T) {
	traj := testTraj(t, 5)
	p := narrowProvider()

	out, err := Run(context.Background(), constantModel, nil, p, traj, nil,
		types.ConvolutionConfig{Method: "montecarlo", Accuracy: []int{2}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownMethod)
	assert.Nil(t, out)
	// Fail-fast: no per-point work may have started.
	assert.Zero(t, p.calls.Load())
}

func TestRunDegenerateResolutionAborts(t *testing.T) {
	traj := testTraj(t, 5)
	bad := &stubProvider{m: withDiag(diagForm([4]float64{1, 1, 1, 1}), 1, -4)}

	out, err := Run(context.Background(), constantModel, nil, bad, traj, nil,
		types.ConvolutionConfig{Method: "fix", Accuracy: []int{3}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDegenerateResolution)
	assert.Nil(t, out, "no partial results on failure")
}

func TestRunShapeMismatch(t *testing.T) {
	traj := testTraj(t, 2)

	raggedModel := func(h, _, _, _ []float64, _ Params) ([][]float64, error) {
		return [][]float64{make([]float64, len(h)), make([]float64, len(h)-1)}, nil
	}
	_, err := Run(context.Background(), raggedModel, nil, narrowProvider(), traj, nil,
		types.ConvolutionConfig{Method: "fix", Accuracy: []int{3}})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	twoModePref := func(h, _, _, _ []float64, _ Point, _ Params) ([][]float64, error) {
		return [][]float64{make([]float64, len(h)), make([]float64, len(h)), make([]float64, len(h))}, nil
	}
	_, err = Run(context.Background(), constantModel, twoModePref, narrowProvider(), traj, nil,
		types.ConvolutionConfig{Method: "fix", Accuracy: []int{3}})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestRunUserModelErrorPropagatesUnchanged(t *testing.T) {
	traj := testTraj(t, 3)
	modelErr := errors.New("dispersion table exhausted")
	failing := func(_, _, _, _ []float64, _ Params) ([][]float64, error) {
		return nil, modelErr
	}

	_, err := Run(context.Background(), failing, nil, narrowProvider(), traj, nil,
		types.ConvolutionConfig{Method: "fix", Accuracy: []int{3}})
	require.Error(t, err)
	assert.ErrorIs(t, err, modelErr)
}

func TestRunParamsReachModel(t *testing.T) {
	traj := testTraj(t, 1)
	gain := 0.0
	probe := func(h, _, _, _ []float64, p Params) ([][]float64, error) {
		gain = p["gain"]
		row := make([]float64, len(h))
		for i := range row {
			row[i] = p["gain"]
		}
		return [][]float64{row}, nil
	}

	out, err := Run(context.Background(), probe, nil, narrowProvider(), traj, Params{"gain": 3},
		types.ConvolutionConfig{Method: "fix", Accuracy: []int{3}})
	require.NoError(t, err)
	assert.Equal(t, 3.0, gain)
	assert.InDelta(t, 3, out[0], 1e-9)
}

func TestRunCancelledContext(t *testing.T) {
	traj := testTraj(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, constantModel, nil, narrowProvider(), traj, nil,
		types.ConvolutionConfig{Method: "fix", Accuracy: []int{3}})
	assert.ErrorIs(t, err, context.Canceled)
}

// TestScenarioFixVersusMonteCarlo runs the demonstration scenario: a
// 20-point constant-Q energy scan over a three-mode Lorentzian model,
// convolved independently with the fixed grid and with Monte Carlo. The
// two numerically independent methods must agree pointwise.
func TestScenarioFixVersusMonteCarlo(t *testing.T) {
	traj := testTraj(t, 20)
	require.Equal(t, 20.0, traj[0].W)
	require.InDelta(t, 0.5, traj[19].W, 1e-12)

	provider := narrowProvider()

	fix, err := Run(context.Background(), lorentzianModel, nil, provider, traj, nil,
		types.ConvolutionConfig{Method: "fix", Accuracy: []int{5, 5}})
	require.NoError(t, err)

	mc, err := Run(context.Background(), lorentzianModel, nil, provider, traj, nil,
		types.ConvolutionConfig{Method: "mc", Accuracy: []int{5}, Seed: 12345})
	require.NoError(t, err)

	require.Len(t, fix, 20)
	require.Len(t, mc, 20)
	for i := range fix {
		require.Greater(t, fix[i], 0.0)
		rel := math.Abs(fix[i]-mc[i]) / fix[i]
		assert.Less(t, rel, 0.10, "point %d (w=%g): fix=%g mc=%g", i, traj[i].W, fix[i], mc[i])
	}
}

// TestMonteCarloConvergence checks that more draws pull the Monte Carlo
// estimate toward the fixed-grid reference on average.
func TestMonteCarloConvergence(t *testing.T) {
	traj := types.Trajectory{{H: 1.5, K: 0, L: 0.35, W: 2.2}}
	provider := narrowProvider()

	ref, err := Run(context.Background(), lorentzianModel, nil, provider, traj, nil,
		types.ConvolutionConfig{Method: "fix", Accuracy: []int{17, 17}})
	require.NoError(t, err)

	avgErr := func(accuracy int) float64 {
		total := 0.0
		seeds := []int64{3, 17, 41, 97, 203}
		for _, seed := range seeds {
			out, err := Run(context.Background(), lorentzianModel, nil, provider, traj, nil,
				types.ConvolutionConfig{Method: "mc", Accuracy: []int{accuracy}, Seed: seed})
			require.NoError(t, err)
			total += math.Abs(out[0] - ref[0])
		}
		return total / float64(len(seeds))
	}

	coarse := avgErr(1)
	fine := avgErr(20)
	assert.Less(t, fine, coarse,
		"20x the draws should reduce the mean deviation (coarse=%g fine=%g)", coarse, fine)
}

func TestRunNilModelOrProvider(t *testing.T) {
	traj := testTraj(t, 1)
	_, err := Run(context.Background(), nil, nil, narrowProvider(), traj, nil,
		types.ConvolutionConfig{Method: "fix", Accuracy: []int{3}})
	assert.Error(t, err)

	_, err = Run(context.Background(), constantModel, nil, nil, traj, nil,
		types.ConvolutionConfig{Method: "fix", Accuracy: []int{3}})
	assert.Error(t, err)
}

func ExampleRun() {
	provider := &stubProvider{m: diagForm([4]float64{0.02, 0.03, 0.05, 0.25})}
	traj, _ := types.ConstQScan(1, 0, 0, 4, 0, 3)

	out, _ := Run(context.Background(), constantModel, nil, provider, traj, nil,
		types.ConvolutionConfig{Method: "fix", Accuracy: []int{5}})
	for i, v := range out {
		fmt.Printf("w=%.1f I=%.3f\n", traj[i].W, v)
	}
	// Output:
	// w=4.0 I=1.000
	// w=2.0 I=1.000
	// w=0.0 I=1.000
}
