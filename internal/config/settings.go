package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings is the optional YAML file that overrides the distance limits and
// the poster size table. Absent keys leave the environment values untouched.
//
//	max_distance: 25000
//	warning_distance: 20000
//	default_poster_size: A3
//	poster_sizes:
//	  - {key: A3, width: 11.7, height: 16.5, label: "A3 - 30×42 cm"}
//	country_aliases:
//	  - [netherlands, nederland, holland]
type Settings struct {
	MaxDistance       *int         `yaml:"max_distance"`
	WarningDistance   *int         `yaml:"warning_distance"`
	ThumbnailSize     *int         `yaml:"thumbnail_size"`
	DefaultPosterSize string       `yaml:"default_poster_size"`
	PosterSizes       []PosterSize `yaml:"poster_sizes"`
	CountryAliases    [][]string   `yaml:"country_aliases"`
}

// LoadSettings decodes the settings file at path. Unknown keys are rejected so
// typos surface at startup.
func LoadSettings(path string) (*Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var s Settings
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode settings %s: %w", path, err)
	}
	return &s, nil
}

// Apply overlays the settings onto cfg.
func (s *Settings) Apply(cfg *Config) error {
	if s == nil {
		return nil
	}
	if s.MaxDistance != nil {
		cfg.MaxDistance = *s.MaxDistance
	}
	if s.WarningDistance != nil {
		cfg.WarningDistance = *s.WarningDistance
	}
	if s.ThumbnailSize != nil {
		cfg.ThumbnailSize = *s.ThumbnailSize
	}
	if len(s.PosterSizes) > 0 {
		cfg.PosterSizes.Sizes = append([]PosterSize(nil), s.PosterSizes...)
	}
	cfg.CountryAliases = append(cfg.CountryAliases, s.CountryAliases...)
	if s.DefaultPosterSize != "" {
		cfg.PosterSizes.Default = s.DefaultPosterSize
	}
	return cfg.PosterSizes.Validate()
}
