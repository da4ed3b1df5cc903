package render

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/MapPoster/internal/model"
	"github.com/dharsanguruparan/MapPoster/internal/osm"
	"github.com/dharsanguruparan/MapPoster/internal/theme"
)

type fakeFetcher struct {
	data *osm.MapData
	err  error
	got  osm.Request
}

func (f *fakeFetcher) Fetch(_ context.Context, req osm.Request) (*osm.MapData, error) {
	f.got = req
	return f.data, f.err
}

func sampleData() *osm.MapData {
	return &osm.MapData{
		Roads: []osm.Road{
			{Highway: "primary", Points: []model.Point{{Lat: 41.89, Lon: 12.49}, {Lat: 41.90, Lon: 12.50}, {Lat: 41.91, Lon: 12.49}}},
			{Highway: "residential", Points: []model.Point{{Lat: 41.88, Lon: 12.48}, {Lat: 41.89, Lon: 12.47}}},
		},
		Water: []osm.Area{{
			Outer: [][]model.Point{{{Lat: 41.88, Lon: 12.48}, {Lat: 41.88, Lon: 12.50}, {Lat: 41.90, Lon: 12.50}, {Lat: 41.90, Lon: 12.48}}},
			Inner: [][]model.Point{{{Lat: 41.885, Lon: 12.485}, {Lat: 41.895, Lon: 12.485}, {Lat: 41.895, Lon: 12.495}}},
		}},
		Parks: []osm.Area{{Outer: [][]model.Point{{{Lat: 41.87, Lon: 12.47}, {Lat: 41.87, Lon: 12.48}, {Lat: 41.88, Lon: 12.48}}}}},
	}
}

func testJob(dir, format string) Job {
	return Job{
		Center:       model.Point{Lat: 41.89, Lon: 12.49},
		Distance:     2000,
		NetworkType:  "drive",
		Theme:        theme.Fallback(),
		WidthInches:  2,
		HeightInches: 3,
		Format:       format,
		City:         "Rome",
		Country:      "Italy",
		OutputPath:   filepath.Join(dir, "rome", "noir_20240101_120000."+format),
	}
}

func TestRenderPNG(t *testing.T) {
	fetcher := &fakeFetcher{data: sampleData()}
	r := New(fetcher, nil, Options{DPI: 50}, zerolog.Nop())
	job := testJob(t.TempDir(), model.FormatPNG)
	job.Simplified = true

	require.NoError(t, r.Render(context.Background(), job))
	assert.True(t, fetcher.got.Simplified)
	assert.Equal(t, "drive", fetcher.got.NetworkType)

	f, err := os.Open(job.OutputPath)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 150, img.Bounds().Dy())
}

func TestRenderPNGRespectsPixelBudget(t *testing.T) {
	img, err := Rasterize(BuildScene(sampleData(), SceneOptions{
		Center: model.Point{Lat: 41.89, Lon: 12.49}, Distance: 2000, WidthInches: 4, HeightInches: 4,
		Palette: theme.Fallback().Palette(), City: "Rome",
	}), 300, 10_000, GoFonts())
	require.NoError(t, err)
	assert.LessOrEqual(t, img.Bounds().Dx()*img.Bounds().Dy(), 10_100)
}

func TestRenderSVG(t *testing.T) {
	r := New(&fakeFetcher{data: sampleData()}, nil, DefaultOptions(), zerolog.Nop())
	job := testJob(t.TempDir(), model.FormatSVG)
	job.HideAttribution = true
	require.NoError(t, r.Render(context.Background(), job))

	data, err := os.ReadFile(job.OutputPath)
	require.NoError(t, err)
	svg := string(data)
	assert.True(t, strings.HasPrefix(svg, "<?xml"))
	assert.Contains(t, svg, `width="144.00pt"`)
	assert.Contains(t, svg, "R  O  M  E")
	assert.Contains(t, svg, `fill-rule="evenodd"`)
	assert.Contains(t, svg, "url(#fade-top)")
	assert.NotContains(t, svg, "OpenStreetMap")
}

func TestRenderFetchFailure(t *testing.T) {
	r := New(&fakeFetcher{err: errors.New("overpass down")}, nil, DefaultOptions(), zerolog.Nop())
	job := testJob(t.TempDir(), model.FormatPNG)
	err := r.Render(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overpass down")
	_, statErr := os.Stat(job.OutputPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteSVGEscapesText(t *testing.T) {
	var buf bytes.Buffer
	s := BuildScene(nil, SceneOptions{WidthInches: 1, HeightInches: 1, City: "A&B", Country: "<x>", Palette: theme.Fallback().Palette()})
	require.NoError(t, WriteSVG(&buf, s, "Roboto"))
	assert.Contains(t, buf.String(), "A  &amp;  B")
	assert.Contains(t, buf.String(), "&lt;X&gt;")
}

func TestLoadFontsFallsBack(t *testing.T) {
	fonts, err := LoadFonts(t.TempDir())
	require.Error(t, err)
	require.NotNil(t, fonts)
	_, err = fonts.Face(WeightBold, 12)
	require.NoError(t, err)
}
