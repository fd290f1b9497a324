package compress

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadPresetsFile reads a YAML preset file:
//
//	small:  {maxWidth: 1920, maxHeight: 1080, quality: 0.8, threshold: 1000}
//	medium: {maxWidth: 1600, maxHeight: 900, quality: 0.7, threshold: 2000}
//	large:  {maxWidth: 1400, maxHeight: 800, quality: 0.65, threshold: 999999}
func LoadPresetsFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read presets: %w", err)
	}
	return ParsePresets(data)
}

func ParsePresets(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse presets: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func MarshalPresets(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// FileSource serves presets straight from a YAML file.
type FileSource struct {
	Path string
}

func (s FileSource) GetCompressionConfig(ctx context.Context) (Config, error) {
	return LoadPresetsFile(s.Path)
}
