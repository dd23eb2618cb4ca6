package pipeline

import (
	"strconv"

	"niftymic/internal/config"
)

// Options controls volume reconstruction.
type Options struct {
	Alpha               float64
	OutlierRejection    bool
	ThresholdFirst      float64
	Threshold           float64
	IntensityCorrection bool
	IsotropicResolution float64
	TwoStepCycles       int
}

// DefaultOptions returns the stock reconstruction settings.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default().Reconstruction)
}

// OptionsFromConfig copies the [reconstruction] section.
func OptionsFromConfig(r config.Reconstruction) Options {
	return Options{
		Alpha:               r.Alpha,
		OutlierRejection:    r.OutlierRejection,
		ThresholdFirst:      r.ThresholdFirst,
		Threshold:           r.Threshold,
		IntensityCorrection: r.IntensityCorrection,
		IsotropicResolution: r.IsotropicResolution,
		TwoStepCycles:       r.TwoStepCycles,
	}
}

// Args serializes the options as flag/value pairs in the order
// niftymic_reconstruct_volume documents them, followed by --verbose 1.
func (o Options) Args() []string {
	return []string{
		"--alpha", formatFloat(o.Alpha),
		"--outlier-rejection", formatFlag(o.OutlierRejection),
		"--threshold-first", formatFloat(o.ThresholdFirst),
		"--threshold", formatFloat(o.Threshold),
		"--intensity-correction", formatFlag(o.IntensityCorrection),
		"--isotropic-resolution", formatFloat(o.IsotropicResolution),
		"--two-step-cycles", strconv.Itoa(o.TwoStepCycles),
		"--verbose", "1",
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
