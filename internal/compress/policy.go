package compress

import "fmt"

// Preset is a resize and quality envelope. Threshold is in KB of raw RGBA.
type Preset struct {
	MaxWidth  int     `json:"maxWidth" yaml:"maxWidth"`
	MaxHeight int     `json:"maxHeight" yaml:"maxHeight"`
	Quality   float64 `json:"quality" yaml:"quality"`
	Threshold int     `json:"threshold" yaml:"threshold"`
}

func (p Preset) Options() Options {
	return Options{MaxWidth: p.MaxWidth, MaxHeight: p.MaxHeight, Quality: p.Quality}
}

type Config struct {
	Small  Preset `json:"small" yaml:"small"`
	Medium Preset `json:"medium" yaml:"medium"`
	Large  Preset `json:"large" yaml:"large"`
}

const (
	PresetSmall  = "small"
	PresetMedium = "medium"
	PresetLarge  = "large"
)

func DefaultConfig() Config {
	return Config{
		Small:  Preset{MaxWidth: 1920, MaxHeight: 1080, Quality: 0.8, Threshold: 1000},
		Medium: Preset{MaxWidth: 1600, MaxHeight: 900, Quality: 0.7, Threshold: 2000},
		Large:  Preset{MaxWidth: 1400, MaxHeight: 800, Quality: 0.65, Threshold: 999999},
	}
}

func (c Config) Validate() error {
	for _, p := range []struct {
		name   string
		preset Preset
	}{
		{PresetSmall, c.Small},
		{PresetMedium, c.Medium},
		{PresetLarge, c.Large},
	} {
		if p.preset.MaxWidth <= 0 || p.preset.MaxHeight <= 0 {
			return fmt.Errorf("%w: %s preset needs positive dimensions", ErrInvalidConfig, p.name)
		}
		if p.preset.Quality <= 0 || p.preset.Quality > 1 {
			return fmt.Errorf("%w: %s preset quality %.2f outside (0, 1]", ErrInvalidConfig, p.name, p.preset.Quality)
		}
		if p.preset.Threshold <= 0 {
			return fmt.Errorf("%w: %s preset needs a positive threshold", ErrInvalidConfig, p.name)
		}
	}
	if c.Small.Threshold >= c.Medium.Threshold {
		return fmt.Errorf("%w: small threshold must be below medium", ErrInvalidConfig)
	}
	if c.Medium.Threshold > c.Large.Threshold {
		return fmt.Errorf("%w: medium threshold must not exceed large", ErrInvalidConfig)
	}
	return nil
}

// EstimateKB is the uncompressed RGBA footprint of a w x h frame.
func EstimateKB(width, height int) int {
	return width * height * 4 / 1024
}

// Select picks the smallest preset whose threshold is strictly above estKB,
// falling back to large. Exactly 1000KB with a 1000KB small threshold is medium.
func (c Config) Select(estKB int) (string, Preset) {
	switch {
	case estKB < c.Small.Threshold:
		return PresetSmall, c.Small
	case estKB < c.Medium.Threshold:
		return PresetMedium, c.Medium
	default:
		return PresetLarge, c.Large
	}
}
