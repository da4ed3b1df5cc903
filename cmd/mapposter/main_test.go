package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const overpassFixture = `{"elements":[
  {"type":"way","tags":{"highway":"primary"},"geometry":[{"lat":48.850,"lon":2.340},{"lat":48.860,"lon":2.360}]},
  {"type":"way","tags":{"natural":"water"},"geometry":[{"lat":48.852,"lon":2.345},{"lat":48.853,"lon":2.350},{"lat":48.851,"lon":2.352},{"lat":48.852,"lon":2.345}]}
]}`

type cliEnv struct {
	drafts  string
	gallery string
}

func setupCLI(t *testing.T) cliEnv {
	t.Helper()
	root := t.TempDir()
	overpass := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(overpassFixture))
	}))
	t.Cleanup(overpass.Close)

	settings := filepath.Join(root, "settings.yaml")
	require.NoError(t, os.WriteFile(settings, []byte(`default_poster_size: tiny
poster_sizes:
  - {key: tiny, width: 1, height: 1.5, label: "Tiny test size"}
`), 0o644))

	env := cliEnv{drafts: filepath.Join(root, "temp_posters"), gallery: filepath.Join(root, "posters")}
	for key, value := range map[string]string{
		"APP_ENV":                  "test",
		"LOG_LEVEL":                "",
		"MAPPOSTER_SETTINGS":       settings,
		"MAPPOSTER_TEMP_DIR":       env.drafts,
		"MAPPOSTER_POSTERS_DIR":    env.gallery,
		"MAPPOSTER_THEMES_DIR":     filepath.Join(root, "themes"),
		"MAPPOSTER_FONTS_DIR":      filepath.Join(root, "fonts"),
		"MAPPOSTER_THUMBNAIL_SIZE": "100",
		"OVERPASS_URL":             overpass.URL,
		"ADMIN_PASSWORD":           "secret",
		"REDIS_ADDR":               "",
		"DATABASE_URL":             "",
		"S3_ENDPOINT":              "",
	} {
		t.Setenv(key, value)
	}
	return env
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	verbose = false
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSizesCommand(t *testing.T) {
	setupCLI(t)
	out, err := runCLI(t, "sizes")
	require.NoError(t, err)
	assert.Contains(t, out, "tiny")
	assert.Contains(t, out, "1x1.5")
	assert.Contains(t, out, "(default)")
}

func TestThemesCommandEmpty(t *testing.T) {
	setupCLI(t)
	out, err := runCLI(t, "themes")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")

	_, err = runCLI(t, "generate", "--city", "Paris", "--theme", "all")
	assert.ErrorContains(t, err, "no themes found")
}

func TestGenerateRequiresCity(t *testing.T) {
	setupCLI(t)
	_, err := runCLI(t, "generate")
	assert.ErrorContains(t, err, `required flag(s) "city" not set`)
}

func TestGeneratePublishAndList(t *testing.T) {
	env := setupCLI(t)

	out, err := runCLI(t, "generate", "--city", "Paris", "--country", "France",
		"--latitude", "48.8566", "--longitude", "2.3522", "--distance", "2000", "--thumbnail")
	require.NoError(t, err, out)
	assert.Contains(t, out, "+ noir:")
	assert.Contains(t, out, "collage:")

	posters, err := filepath.Glob(filepath.Join(env.drafts, "paris", "noir_*.png"))
	require.NoError(t, err)
	require.Len(t, posters, 1)
	assert.FileExists(t, filepath.Join(env.drafts, "paris", "thumbnails", "collages", "collage_1.jpg"))

	_, err = runCLI(t, "publish", "paris", "--password", "wrong")
	assert.ErrorContains(t, err, "invalid password")

	out, err = runCLI(t, "publish", "paris")
	require.NoError(t, err)
	assert.Contains(t, out, "published paris")
	assert.FileExists(t, filepath.Join(env.gallery, "paris", filepath.Base(posters[0])))

	out, err = runCLI(t, "gallery")
	require.NoError(t, err)
	assert.Contains(t, out, "paris")
	assert.Contains(t, out, "France")

	_, err = runCLI(t, "publish", "rome")
	assert.ErrorContains(t, err, "no drafts")
}

func TestCatalogRequiresDatabase(t *testing.T) {
	setupCLI(t)
	_, err := runCLI(t, "catalog")
	assert.ErrorContains(t, err, "DATABASE_URL")
}
