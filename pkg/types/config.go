package types

// SampleConfig describes the crystal lattice of the sample under study:
// lattice constants in angstroms and cell angles in degrees.
type SampleConfig struct {
	A     float64 `json:"a" yaml:"a"`
	B     float64 `json:"b" yaml:"b"`
	C     float64 `json:"c" yaml:"c"`
	Alpha float64 `json:"alpha" yaml:"alpha"`
	Beta  float64 `json:"beta" yaml:"beta"`
	Gamma float64 `json:"gamma" yaml:"gamma"`

	// Mosaic is the sample mosaic spread in arc minutes. It broadens
	// the transverse resolution width.
	Mosaic float64 `json:"mosaic,omitempty" yaml:"mosaic,omitempty"`
}

// ResolutionConfig parametrizes the Gaussian resolution ellipsoid in the
// local frame at a trajectory point. Widths are standard deviations:
// DQPar along Q, DQPerp transverse in the scattering plane, DQVert
// vertical (all 1/angstrom), DE in meV.
type ResolutionConfig struct {
	DQPar  float64 `json:"dq_par" yaml:"dq_par"`
	DQPerp float64 `json:"dq_perp" yaml:"dq_perp"`
	DQVert float64 `json:"dq_vert" yaml:"dq_vert"`
	DE     float64 `json:"de" yaml:"de"`

	// QBroadening scales the longitudinal width linearly with |Q|
	// (fractional increase per 1/angstrom). Zero disables it.
	QBroadening float64 `json:"q_broadening,omitempty" yaml:"q_broadening,omitempty"`

	// EBroadening scales the energy width linearly with |W|
	// (fractional increase per meV). Zero disables it.
	EBroadening float64 `json:"e_broadening,omitempty" yaml:"e_broadening,omitempty"`

	// CorrAngle tilts the ellipsoid in the (dQx, dW) plane by the given
	// angle in degrees, coupling momentum and energy resolution the way
	// a real spectrometer does. Zero keeps the axes uncoupled.
	CorrAngle float64 `json:"corr_angle,omitempty" yaml:"corr_angle,omitempty"`
}

// InstrumentConfig groups the sample and resolution descriptions consumed
// by the resolution point provider. It is built once and never mutated
// during a convolution run.
type InstrumentConfig struct {
	Sample     SampleConfig     `json:"sample" yaml:"sample"`
	Resolution ResolutionConfig `json:"resolution" yaml:"resolution"`
}

// ConvolutionConfig holds settings for a resolution-convolution run.
type ConvolutionConfig struct {
	// Method selects the integration strategy: "fix" for the
	// deterministic grid or "mc" for Monte Carlo.
	Method string `json:"method" yaml:"method"`

	// Accuracy controls integration density. For "fix" it lists grid
	// point counts per principal axis (shorter lists replicate their
	// last value across the remaining axes); for "mc" its single entry
	// scales the number of random draws.
	Accuracy []int `json:"accuracy" yaml:"accuracy"`

	// Scale is the global intensity scale factor applied to every
	// convolved value.
	Scale float64 `json:"scale" yaml:"scale"`

	// Seed makes Monte Carlo runs reproducible. Zero draws a seed from
	// the clock, so unseeded runs differ between invocations.
	Seed int64 `json:"seed,omitempty" yaml:"seed,omitempty"`

	// Workers bounds the number of trajectory points convolved in
	// parallel. Zero or negative uses GOMAXPROCS.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// ModelConfig selects and parametrizes a built-in scattering model.
type ModelConfig struct {
	// Name identifies the model (e.g. "lorentzian").
	Name string `json:"name" yaml:"name"`

	// Params holds the model parameters by name (mode centers, widths,
	// amplitudes). Interpretation is up to the model.
	Params map[string]float64 `json:"params,omitempty" yaml:"params,omitempty"`
}

// StoreConfig holds settings for the scan-result store.
type StoreConfig struct {
	// ResultsDir is the directory holding the results database.
	ResultsDir string `json:"results_dir" yaml:"results_dir"`

	// MaxResults is the default maximum number of listed scans (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// PipelineConfig groups all stage configurations for the CLI.
type PipelineConfig struct {
	Instrument  InstrumentConfig  `json:"instrument" yaml:"instrument"`
	Convolution ConvolutionConfig `json:"convolution" yaml:"convolution"`
	Model       ModelConfig       `json:"model" yaml:"model"`
	Store       StoreConfig       `json:"store" yaml:"store"`
}
