package polyphase

import resampler "github.com/tphakala/go-audio-resampler"

// Option is the type for a function option
type Option func(*Options)

// Options contains the parameters for the polyphase converter.
type Options struct {
	Quality resampler.QualityPreset
}

// Quality is a functional option to select the filter quality preset.
// By default resampler.QualityMedium is used.
func Quality(q resampler.QualityPreset) Option {
	return func(args *Options) {
		args.Quality = q
	}
}

// ParseQuality maps the names "quick", "low", "medium", "high" and
// "veryhigh" onto the corresponding quality presets.
func ParseQuality(name string) (resampler.QualityPreset, bool) {
	switch name {
	case "quick":
		return resampler.QualityQuick, true
	case "low":
		return resampler.QualityLow, true
	case "medium":
		return resampler.QualityMedium, true
	case "high":
		return resampler.QualityHigh, true
	case "veryhigh":
		return resampler.QualityVeryHigh, true
	}
	return resampler.QualityMedium, false
}
