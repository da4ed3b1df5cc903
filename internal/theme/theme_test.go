package theme

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTheme(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), []byte(body), 0o644))
}

func TestLoadMissingThemeFallsBack(t *testing.T) {
	s := NewStore(t.TempDir(), zerolog.Nop())
	assert.Equal(t, Fallback(), s.Load("does_not_exist"))
	assert.Equal(t, Fallback(), s.Load("../etc/passwd"))
}

func TestLoadFillsInvalidColours(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "noir", `{"name": "Noir", "bg": "#000", "text": "#FFFFFF", "water": "blue"}`)
	s := NewStore(dir, zerolog.Nop())

	th := s.Load("noir")
	assert.Equal(t, "Noir", th.Name)
	assert.Equal(t, "#000", th.Background)
	assert.Equal(t, Fallback().Water, th.Water)
	assert.Equal(t, Fallback().RoadMotorway, th.RoadMotorway)

	p := th.Palette()
	assert.Equal(t, color.RGBA{A: 0xFF}, p.Background)
	assert.Equal(t, color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}, p.Text)
}

func TestLoadBrokenJSONFallsBack(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "broken", `{"name": `)
	assert.Equal(t, Fallback(), NewStore(dir, zerolog.Nop()).Load("broken"))
}

func TestListAndSummaries(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "warm_beige", `{"bg": "#F5EDE0", "text": "#3B2F2F", "road_motorway": "#8B4513", "description": "Sepia"}`)
	writeTheme(t, dir, "blueprint", `{"name": "Blueprint", "bg": "#1A3A5C"}`)
	writeTheme(t, dir, "broken", `nope`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	s := NewStore(dir, zerolog.Nop())
	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"blueprint", "broken", "warm_beige"}, names)

	summaries, err := s.Summaries()
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "Blueprint", summaries[0].DisplayName)
	assert.Equal(t, Fallback().RoadMotorway, summaries[0].Colors.Accent)
	assert.Equal(t, "Warm Beige", summaries[1].DisplayName)
	assert.Equal(t, "Sepia", summaries[1].Description)
	assert.Equal(t, "#8B4513", summaries[1].Colors.Accent)

	assert.True(t, s.Exists("blueprint"))
	assert.False(t, s.Exists("sub"))
}

func TestListMissingDirectory(t *testing.T) {
	names, err := NewStore(filepath.Join(t.TempDir(), "nope"), zerolog.Nop()).List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#1a2B3c")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0x1a, G: 0x2b, B: 0x3c, A: 0xff}, c)

	c, err = ParseHex("#abc")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0xaa, G: 0xbb, B: 0xcc, A: 0xff}, c)

	for _, bad := range []string{"", "abc", "#abcd", "#GGGGGG"} {
		_, err := ParseHex(bad)
		assert.Error(t, err, bad)
	}
}
