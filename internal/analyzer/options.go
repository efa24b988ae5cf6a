package analyzer

import "fmt"

// AnalysisOptions holds the tunable parameters of the screening pipeline
type AnalysisOptions struct {
	// Preprocessing
	ThresholdBlockSize int     `yaml:"threshold_block_size"`
	ThresholdBias      float64 `yaml:"threshold_bias"`
	OpeningKernelSize  int     `yaml:"opening_kernel_size"`

	// Bend test
	EpsilonRatio   float64 `yaml:"epsilon_ratio"`
	ReferenceAngle float64 `yaml:"reference_angle"`

	// Posture check
	SpineStripHalfWidth int `yaml:"spine_strip_half_width"`
}

// DefaultOptions returns the parameters the screening scores are calibrated against
func DefaultOptions() AnalysisOptions {
	return AnalysisOptions{
		ThresholdBlockSize:  11,
		ThresholdBias:       2,
		OpeningKernelSize:   3,
		EpsilonRatio:        0.02,
		ReferenceAngle:      40.0,
		SpineStripHalfWidth: 5,
	}
}

// WithThreshold returns options with a different adaptive threshold block and bias
func (opts AnalysisOptions) WithThreshold(blockSize int, bias float64) AnalysisOptions {
	opts.ThresholdBlockSize = blockSize
	opts.ThresholdBias = bias
	return opts
}

// WithEpsilonRatio returns options with a different polygon simplification tolerance
func (opts AnalysisOptions) WithEpsilonRatio(ratio float64) AnalysisOptions {
	opts.EpsilonRatio = ratio
	return opts
}

// WithReferenceAngle returns options with a different curvature normalisation angle
func (opts AnalysisOptions) WithReferenceAngle(degrees float64) AnalysisOptions {
	opts.ReferenceAngle = degrees
	return opts
}

// Validate checks that every parameter is usable by the pipeline
func (opts AnalysisOptions) Validate() error {
	if opts.ThresholdBlockSize < 3 || opts.ThresholdBlockSize%2 == 0 {
		return fmt.Errorf("threshold_block_size must be an odd number >= 3 (got %d)", opts.ThresholdBlockSize)
	}
	if opts.OpeningKernelSize < 1 || opts.OpeningKernelSize%2 == 0 {
		return fmt.Errorf("opening_kernel_size must be an odd number >= 1 (got %d)", opts.OpeningKernelSize)
	}
	if opts.EpsilonRatio <= 0 || opts.EpsilonRatio >= 1 {
		return fmt.Errorf("epsilon_ratio must be between 0 and 1 (got %f)", opts.EpsilonRatio)
	}
	if opts.ReferenceAngle <= 0 {
		return fmt.Errorf("reference_angle must be > 0 (got %f)", opts.ReferenceAngle)
	}
	if opts.SpineStripHalfWidth < 0 {
		return fmt.Errorf("spine_strip_half_width must be >= 0 (got %d)", opts.SpineStripHalfWidth)
	}
	return nil
}
