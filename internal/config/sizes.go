package config

import (
	"errors"
	"fmt"
)

// PosterSize is one entry of the poster size table, measured in inches.
type PosterSize struct {
	Key    string  `yaml:"key" json:"value"`
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
	Label  string  `yaml:"label" json:"label"`
}

// PosterSizes is the ordered size table plus the key used whenever a request
// names a size that does not exist.
type PosterSizes struct {
	Default string
	Sizes   []PosterSize
}

// DefaultPosterSizes returns the built-in table.
func DefaultPosterSizes() PosterSizes {
	return PosterSizes{
		Default: "A3",
		Sizes: []PosterSize{
			{Key: "A4", Width: 8.3, Height: 11.7, Label: "A4 - 21×30 cm"},
			{Key: "A3", Width: 11.7, Height: 16.5, Label: "A3 - 30×42 cm"},
			{Key: "12x16", Width: 12, Height: 16, Label: "12×16 inch - 30×41 cm"},
			{Key: "A2", Width: 16.5, Height: 23.4, Label: "A2 - 42×59 cm"},
			{Key: "A1", Width: 23.4, Height: 33.1, Label: "A1 - 59×84 cm"},
			{Key: "18x24", Width: 18, Height: 24, Label: "18×24 inch - 46×61 cm"},
		},
	}
}

// Find returns the entry for key.
func (p PosterSizes) Find(key string) (PosterSize, bool) {
	for _, s := range p.Sizes {
		if s.Key == key {
			return s, true
		}
	}
	return PosterSize{}, false
}

// Lookup returns the entry for key, falling back to the default entry for
// unknown keys.
func (p PosterSizes) Lookup(key string) PosterSize {
	if s, ok := p.Find(key); ok {
		return s
	}
	s, _ := p.Find(p.Default)
	return s
}

// Validate ensures the table is usable: non-empty, positive dimensions, unique
// keys and a default that exists.
func (p PosterSizes) Validate() error {
	if len(p.Sizes) == 0 {
		return errors.New("poster size table is empty")
	}
	seen := make(map[string]struct{}, len(p.Sizes))
	for _, s := range p.Sizes {
		if s.Key == "" {
			return errors.New("poster size with empty key")
		}
		if s.Width <= 0 || s.Height <= 0 {
			return fmt.Errorf("poster size %q has non-positive dimensions", s.Key)
		}
		if _, dup := seen[s.Key]; dup {
			return fmt.Errorf("duplicate poster size %q", s.Key)
		}
		seen[s.Key] = struct{}{}
	}
	if _, ok := seen[p.Default]; !ok {
		return fmt.Errorf("default poster size %q is not in the table", p.Default)
	}
	return nil
}
