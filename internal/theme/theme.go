// Package theme loads the named colour bundles posters are drawn with.
package theme

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FallbackName identifies the embedded theme used whenever a theme file is
// missing or unreadable.
const FallbackName = "feature_based"

// Theme is one colour bundle. Colours are hex strings (#RGB or #RRGGBB).
type Theme struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Background      string `json:"bg"`
	Text            string `json:"text"`
	Gradient        string `json:"gradient_color"`
	Water           string `json:"water"`
	Parks           string `json:"parks"`
	RoadMotorway    string `json:"road_motorway"`
	RoadPrimary     string `json:"road_primary"`
	RoadSecondary   string `json:"road_secondary"`
	RoadTertiary    string `json:"road_tertiary"`
	RoadResidential string `json:"road_residential"`
	RoadDefault     string `json:"road_default"`
}

// Fallback returns the embedded feature-based theme.
func Fallback() Theme {
	return Theme{
		Name:            "Feature-Based Shading",
		Background:      "#FFFFFF",
		Text:            "#000000",
		Gradient:        "#FFFFFF",
		Water:           "#C0C0C0",
		Parks:           "#F0F0F0",
		RoadMotorway:    "#0A0A0A",
		RoadPrimary:     "#1A1A1A",
		RoadSecondary:   "#2A2A2A",
		RoadTertiary:    "#3A3A3A",
		RoadResidential: "#4A4A4A",
		RoadDefault:     "#3A3A3A",
	}
}

// colorFields exposes the colour slots so they can be checked uniformly.
func (t *Theme) colorFields() map[string]*string {
	return map[string]*string{
		"bg":               &t.Background,
		"text":             &t.Text,
		"gradient_color":   &t.Gradient,
		"water":            &t.Water,
		"parks":            &t.Parks,
		"road_motorway":    &t.RoadMotorway,
		"road_primary":     &t.RoadPrimary,
		"road_secondary":   &t.RoadSecondary,
		"road_tertiary":    &t.RoadTertiary,
		"road_residential": &t.RoadResidential,
		"road_default":     &t.RoadDefault,
	}
}

// fillFrom replaces every missing or malformed colour with the one from base
// and returns the keys it replaced.
func (t *Theme) fillFrom(base Theme) []string {
	var replaced []string
	baseFields := base.colorFields()
	for key, value := range t.colorFields() {
		if _, err := ParseHex(*value); err != nil {
			*value = *baseFields[key]
			replaced = append(replaced, key)
		}
	}
	sort.Strings(replaced)
	return replaced
}

// Palette is a theme resolved to concrete colours.
type Palette struct {
	Background      color.RGBA
	Text            color.RGBA
	Gradient        color.RGBA
	Water           color.RGBA
	Parks           color.RGBA
	RoadMotorway    color.RGBA
	RoadPrimary     color.RGBA
	RoadSecondary   color.RGBA
	RoadTertiary    color.RGBA
	RoadResidential color.RGBA
	RoadDefault     color.RGBA
}

// Palette converts the theme's colours. Themes returned by a Store always
// convert cleanly; a hand-built theme with a bad colour gets the fallback's.
func (t Theme) Palette() Palette {
	t.fillFrom(Fallback())
	must := func(s string) color.RGBA {
		c, _ := ParseHex(s)
		return c
	}
	return Palette{
		Background:      must(t.Background),
		Text:            must(t.Text),
		Gradient:        must(t.Gradient),
		Water:           must(t.Water),
		Parks:           must(t.Parks),
		RoadMotorway:    must(t.RoadMotorway),
		RoadPrimary:     must(t.RoadPrimary),
		RoadSecondary:   must(t.RoadSecondary),
		RoadTertiary:    must(t.RoadTertiary),
		RoadResidential: must(t.RoadResidential),
		RoadDefault:     must(t.RoadDefault),
	}
}

var hexPattern = regexp.MustCompile(`^#([0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$`)

// ParseHex parses #RGB or #RRGGBB into an opaque colour.
func ParseHex(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if !hexPattern.MatchString(s) {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	digits := s[1:]
	if len(digits) == 3 {
		digits = string([]byte{digits[0], digits[0], digits[1], digits[1], digits[2], digits[2]})
	}
	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}, nil
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Store reads themes from a directory of {name}.json files.
type Store struct {
	dir string
	log zerolog.Logger
}

// NewStore constructs a Store rooted at dir.
func NewStore(dir string, log zerolog.Logger) *Store {
	return &Store{dir: dir, log: log}
}

// Load returns the named theme. A missing file, an unreadable file or an
// invalid name all yield the fallback theme; individual bad colours are
// replaced with the fallback's colour for that slot.
func (s *Store) Load(name string) Theme {
	t, err := s.read(name)
	if err != nil {
		s.log.Warn().Err(err).Str("theme", name).Msg("using fallback theme")
		return Fallback()
	}
	if replaced := t.fillFrom(Fallback()); len(replaced) > 0 {
		s.log.Warn().Str("theme", name).Strs("colors", replaced).Msg("theme colours missing or invalid, using fallback colours")
	}
	return t
}

// Exists reports whether a theme file with that name is present.
func (s *Store) Exists(name string) bool {
	if !namePattern.MatchString(name) {
		return false
	}
	info, err := os.Stat(s.path(name))
	return err == nil && !info.IsDir()
}

func (s *Store) read(name string) (Theme, error) {
	if !namePattern.MatchString(name) {
		return Theme{}, fmt.Errorf("invalid theme name %q", name)
	}
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return Theme{}, err
	}
	var t Theme
	if err := json.Unmarshal(data, &t); err != nil {
		return Theme{}, fmt.Errorf("decode theme %s: %w", name, err)
	}
	return t, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// List returns the sorted names of every theme file. A missing directory is
// not an error.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list themes: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		if namePattern.MatchString(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Summary describes a theme for listings.
type Summary struct {
	Name        string        `json:"name"`
	DisplayName string        `json:"display_name"`
	Description string        `json:"description"`
	Colors      SummaryColors `json:"colors"`
}

// SummaryColors are the three colours a theme picker shows.
type SummaryColors struct {
	Background string `json:"bg"`
	Text       string `json:"text"`
	Accent     string `json:"accent"`
}

// Summaries loads every listed theme. Themes that fail to parse are skipped.
func (s *Store) Summaries() ([]Summary, error) {
	names, err := s.List()
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(names))
	for _, name := range names {
		t, err := s.read(name)
		if err != nil {
			s.log.Warn().Err(err).Str("theme", name).Msg("skipping unreadable theme")
			continue
		}
		t.fillFrom(Fallback())
		display := t.Name
		if display == "" {
			display = DisplayName(name)
		}
		out = append(out, Summary{
			Name:        name,
			DisplayName: display,
			Description: t.Description,
			Colors: SummaryColors{
				Background: t.Background,
				Text:       t.Text,
				Accent:     t.RoadMotorway,
			},
		})
	}
	return out, nil
}

// DisplayName turns a file-style name like "warm_beige" into "Warm Beige".
func DisplayName(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}
