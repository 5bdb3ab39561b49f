// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scandata

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// --- test helpers ---

func writeScanFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.dat")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// triangleScan is a constant-Q energy scan with a triangular peak at e = 2.
func triangleScan() *Scan {
	return &Scan{
		H:        []float64{1.5, 1.5, 1.5, 1.5, 1.5},
		K:        []float64{0, 0, 0, 0, 0},
		L:        []float64{0.35, 0.35, 0.35, 0.35, 0.35},
		E:        []float64{0, 1, 2, 3, 4},
		Temp:     []float64{300, 300, 300, 300, 300},
		Detector: []float64{0, 1, 2, 1, 0},
		Monitor:  []float64{1, 1, 1, 1, 1},
		Time:     []float64{1, 1, 1, 1, 1},
		M0:       1,
	}
}

func almostEqual(t *testing.T, got, want, tol float64, what string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %g, want %g", what, got, want)
	}
}

// --- normalization ---

func TestIntensityMonitorNormalization(t *testing.T) {
	s := &Scan{
		H: []float64{0, 0}, K: []float64{0, 0}, L: []float64{0, 0},
		E: []float64{0, 1}, Temp: []float64{0, 0},
		Detector: []float64{10, 40},
		Monitor:  []float64{1000, 2000},
		Time:     []float64{1, 2},
	}

	// M0 unset: normalize to the maximum monitor in the scan.
	inten := s.Intensity()
	almostEqual(t, inten[0], 20, 1e-12, "Intensity[0]")
	almostEqual(t, inten[1], 40, 1e-12, "Intensity[1]")

	errs := s.Error()
	almostEqual(t, errs[0], math.Sqrt(10)/1000*2000, 1e-12, "Error[0]")
	almostEqual(t, errs[1], math.Sqrt(40)/2000*2000, 1e-12, "Error[1]")

	s.M0 = 1000
	inten = s.Intensity()
	almostEqual(t, inten[0], 10, 1e-12, "Intensity[0] with M0")
	almostEqual(t, inten[1], 20, 1e-12, "Intensity[1] with M0")
}

func TestIntensityTimeNormalization(t *testing.T) {
	s := &Scan{
		H: []float64{0, 0}, K: []float64{0, 0}, L: []float64{0, 0},
		E: []float64{0, 1}, Temp: []float64{0, 0},
		Detector: []float64{30, 30},
		Monitor:  []float64{1, 1},
		Time:     []float64{1, 3},
		TimeNorm: true,
	}

	inten := s.Intensity()
	almostEqual(t, inten[0], 90, 1e-12, "Intensity[0]")
	almostEqual(t, inten[1], 30, 1e-12, "Intensity[1]")
}

func TestValidateColumnLengths(t *testing.T) {
	s := triangleScan()
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	s.Monitor = s.Monitor[:3]
	if err := s.Validate(); err == nil {
		t.Error("Validate() should fail on ragged columns")
	}
}

// --- combining ---

func TestCombineSumsMatchingPoints(t *testing.T) {
	a := triangleScan()
	b := triangleScan()

	combined, err := a.Combine(b, 0)
	if err != nil {
		t.Fatal(err)
	}

	if combined.Len() != a.Len() {
		t.Fatalf("Len = %d, want %d (all points match)", combined.Len(), a.Len())
	}
	for i := 0; i < combined.Len(); i++ {
		almostEqual(t, combined.Detector[i], 2*a.Detector[i], 1e-12, "Detector")
		almostEqual(t, combined.Monitor[i], 2*a.Monitor[i], 1e-12, "Monitor")
		almostEqual(t, combined.Time[i], 2*a.Time[i], 1e-12, "Time")
	}

	// The inputs are untouched.
	almostEqual(t, a.Detector[2], 2, 1e-12, "source Detector")
}

func TestCombineAppendsAndSortsNewPoints(t *testing.T) {
	a := triangleScan()
	b := &Scan{
		H: []float64{1.5}, K: []float64{0}, L: []float64{0.35},
		E: []float64{-1}, Temp: []float64{300},
		Detector: []float64{5}, Monitor: []float64{1}, Time: []float64{1},
	}

	combined, err := a.Combine(b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if combined.Len() != 6 {
		t.Fatalf("Len = %d, want 6", combined.Len())
	}
	// Sorted by coordinate, so the e = -1 point comes first.
	almostEqual(t, combined.E[0], -1, 1e-12, "E[0]")
	almostEqual(t, combined.Detector[0], 5, 1e-12, "Detector[0]")
	for i := 1; i < combined.Len(); i++ {
		if combined.E[i] < combined.E[i-1] {
			t.Errorf("E not sorted at %d: %g after %g", i, combined.E[i], combined.E[i-1])
		}
	}
}

func TestCombineTolerance(t *testing.T) {
	a := triangleScan()
	b := triangleScan()
	for i := range b.E {
		b.E[i] += 2e-4 // within the default tolerance
	}

	combined, err := a.Combine(b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if combined.Len() != a.Len() {
		t.Errorf("Len = %d, want %d (points within tol merge)", combined.Len(), a.Len())
	}

	combined, err = a.Combine(b, 1e-5)
	if err != nil {
		t.Fatal(err)
	}
	if combined.Len() != 2*a.Len() {
		t.Errorf("Len = %d, want %d (tighter tol keeps points apart)", combined.Len(), 2*a.Len())
	}
}

// --- binning ---

func TestBinAveragesCells(t *testing.T) {
	s := triangleScan()
	r := BinRanges{
		H:    BinAxis{Min: 1.5, Max: 1.5, N: 1},
		K:    BinAxis{Min: 0, Max: 0, N: 1},
		L:    BinAxis{Min: 0.35, Max: 0.35, N: 1},
		E:    BinAxis{Min: 0.5, Max: 3.5, N: 2},
		Temp: BinAxis{Min: 0, Max: 400, N: 1},
	}

	binned, err := s.Bin(context.Background(), r, 2)
	if err != nil {
		t.Fatal(err)
	}
	if binned.Len() != 2 {
		t.Fatalf("Len = %d, want 2", binned.Len())
	}

	// Cell at e = 0.5 spans [-1, 2]: source points 0, 1, 2 average to 1.
	almostEqual(t, binned.E[0], 0.5, 1e-12, "E[0]")
	almostEqual(t, binned.Detector[0], (0.0+1+2)/3, 1e-12, "Detector[0]")
	// Cell at e = 3.5 spans [2, 5]: source points 2, 3, 4 average to 1.
	almostEqual(t, binned.Detector[1], (2.0+1+0)/3, 1e-12, "Detector[1]")
}

func TestBinEmptyCellsKeepZeroMonitor(t *testing.T) {
	s := triangleScan()
	r := BinRanges{
		H:    BinAxis{Min: 1.5, Max: 1.5, N: 1},
		K:    BinAxis{Min: 0, Max: 0, N: 1},
		L:    BinAxis{Min: 0.35, Max: 0.35, N: 1},
		E:    BinAxis{Min: 10, Max: 11, N: 2},
		Temp: BinAxis{Min: 0, Max: 400, N: 1},
	}

	binned, err := s.Bin(context.Background(), r, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < binned.Len(); i++ {
		if binned.Monitor[i] != 0 {
			t.Errorf("Monitor[%d] = %g, want 0 for empty cell", i, binned.Monitor[i])
		}
	}
}

func TestBinRejectsBadAxes(t *testing.T) {
	s := triangleScan()
	r := BinRanges{
		H: BinAxis{Min: 0, Max: 1, N: 0},
		K: BinAxis{N: 1}, L: BinAxis{N: 1}, E: BinAxis{N: 1}, Temp: BinAxis{N: 1},
	}
	if _, err := s.Bin(context.Background(), r, 1); err == nil {
		t.Error("Bin should reject a zero-point axis")
	}

	r.H = BinAxis{Min: 2, Max: 1, N: 2}
	if _, err := s.Bin(context.Background(), r, 1); err == nil {
		t.Error("Bin should reject max below min")
	}
}

// --- background and moments ---

func TestEstimateBackground(t *testing.T) {
	s := triangleScan()

	tests := []struct {
		name    string
		bg      Background
		want    float64
		wantErr bool
	}{
		{"none", Background{}, 0, false},
		{"constant", Background{Type: "constant", Value: 0.25}, 0.25, false},
		{"minimum", Background{Type: "minimum"}, 0, false},
		{"percent lowest two", Background{Type: "percent", Value: 40}, 0, false},
		{"percent all", Background{Type: "percent", Value: 100}, 0.8, false},
		{"percent out of range", Background{Type: "percent", Value: 0}, 0, true},
		{"unknown type", Background{Type: "linear"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.EstimateBackground(tt.bg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("want error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			almostEqual(t, got, tt.want, 1e-12, "background")
		})
	}
}

func TestIntegrateTriangle(t *testing.T) {
	s := triangleScan()

	// Only the energy axis varies, so the integral is the trapezoidal
	// area of the triangle: 4.
	got, err := s.Integrate(nil, Background{})
	if err != nil {
		t.Fatal(err)
	}
	almostEqual(t, got, 4, 1e-12, "Integrate")
}

func TestPositionAndWidth(t *testing.T) {
	s := triangleScan()

	pos, err := s.Position(nil, Background{})
	if err != nil {
		t.Fatal(err)
	}
	almostEqual(t, pos[0], 1.5, 1e-12, "Position h")
	almostEqual(t, pos[3], 2, 1e-12, "Position e")

	width, err := s.Width(nil, Background{})
	if err != nil {
		t.Fatal(err)
	}
	almostEqual(t, width[3], 0.5, 1e-12, "Width e")
	almostEqual(t, width[0], 0, 1e-12, "Width h")
}

func TestMomentsWithBounds(t *testing.T) {
	s := triangleScan()

	// Restrict to e >= 2: integral over the falling edge only.
	bounds := func(h, k, l, e float64) bool { return e >= 2 }
	got, err := s.Integrate(bounds, Background{})
	if err != nil {
		t.Fatal(err)
	}
	almostEqual(t, got, 2, 1e-12, "Integrate over bounds")

	if _, err := s.Integrate(func(h, k, l, e float64) bool { return false }, Background{}); err == nil {
		t.Error("bounds selecting no points should fail")
	}
}

func TestPositionZeroIntensity(t *testing.T) {
	s := triangleScan()
	for i := range s.Detector {
		s.Detector[i] = 0
	}
	if _, err := s.Position(nil, Background{}); err == nil {
		t.Error("Position should fail on zero integrated intensity")
	}
}

// --- file loading ---

func TestReadFile(t *testing.T) {
	path := writeScanFile(t, `# constant-Q scan
# comment line
h k l e detector monitor temp time
1.5 0 0.35 0.0 10 1000 300 1
1.5 0 0.35 1.0 25 1000 300 1
`)

	s, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	almostEqual(t, s.H[0], 1.5, 1e-12, "H[0]")
	almostEqual(t, s.Detector[1], 25, 1e-12, "Detector[1]")
	almostEqual(t, s.Monitor[0], 1000, 1e-12, "Monitor[0]")
	almostEqual(t, s.Temp[1], 300, 1e-12, "Temp[1]")
}

func TestReadFileDefaults(t *testing.T) {
	path := writeScanFile(t, `h k l e detector
0 0 1 2.5 42
`)

	s, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	almostEqual(t, s.Monitor[0], 1, 1e-12, "default Monitor")
	almostEqual(t, s.Temp[0], 0, 1e-12, "default Temp")
	almostEqual(t, s.Time[0], 0, 1e-12, "default Time")
}

func TestReadFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing required column", "h k l detector\n0 0 1 42\n"},
		{"ragged row", "h k l e detector\n0 0 1 2.5\n"},
		{"bad number", "h k l e detector\n0 0 1 x 42\n"},
		{"no data rows", "h k l e detector\n"},
		{"empty file", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScanFile(t, tt.content)
			if _, err := ReadFile(path); err == nil {
				t.Error("ReadFile should fail")
			}
		})
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.dat")); err == nil {
		t.Error("ReadFile should fail on a missing file")
	}
}
