package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MAPPOSTER_WORKERS", "")
	t.Setenv("MAPPOSTER_SETTINGS", "")
	t.Setenv("MAPPOSTER_MAX_DISTANCE", "")
	t.Setenv("MAPPOSTER_WARNING_DISTANCE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, defaultAddress, cfg.Address)
	assert.Equal(t, defaultWorkerCount, cfg.Workers)
	assert.Equal(t, defaultWorkerCount*16, cfg.QueueSize)
	assert.Equal(t, defaultMaxDistance, cfg.MaxDistance)
	assert.Equal(t, defaultWarningDistance, cfg.WarningDistance)
	assert.Equal(t, 10*time.Minute, cfg.TaskTimeout)
	assert.Equal(t, "A3", cfg.PosterSizes.Default)
	assert.Len(t, cfg.PosterSizes.Sizes, 6)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MAPPOSTER_SETTINGS", "")
	t.Setenv("MAPPOSTER_WORKERS", "4")
	t.Setenv("MAPPOSTER_TASK_TIMEOUT", "90s")
	t.Setenv("MAPPOSTER_MAX_DISTANCE", "30000")
	t.Setenv("MAPPOSTER_WARNING_DISTANCE", "40000")
	t.Setenv("S3_USE_SSL", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 90*time.Second, cfg.TaskTimeout)
	assert.Equal(t, 30000, cfg.MaxDistance)
	// A warning threshold above the hard limit is clamped.
	assert.Equal(t, 30000, cfg.WarningDistance)
	assert.True(t, cfg.S3UseSSL)
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("MAPPOSTER_SETTINGS", "")
	t.Setenv("MAPPOSTER_WORKERS", "many")
	t.Setenv("MAPPOSTER_TASK_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, defaultWorkerCount, cfg.Workers)
	assert.Equal(t, defaultTaskTimeout, cfg.TaskTimeout)
}

func TestLoadSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	body := `max_distance: 20000
warning_distance: 15000
default_poster_size: small
poster_sizes:
  - {key: small, width: 8, height: 10, label: "8x10 inch"}
  - {key: large, width: 24, height: 36, label: "24x36 inch"}
country_aliases:
  - [netherlands, nederland, holland]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("MAPPOSTER_SETTINGS", path)
	t.Setenv("MAPPOSTER_MAX_DISTANCE", "")
	t.Setenv("MAPPOSTER_WARNING_DISTANCE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 20000, cfg.MaxDistance)
	assert.Equal(t, 15000, cfg.WarningDistance)
	assert.Equal(t, "small", cfg.PosterSizes.Default)
	assert.Equal(t, "large", cfg.PosterSizes.Lookup("large").Key)
	assert.Equal(t, "small", cfg.PosterSizes.Lookup("A3").Key)
	assert.Equal(t, [][]string{{"netherlands", "nederland", "holland"}}, cfg.CountryAliases)
}

func TestLoadSettingsRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_distanse: 10\n"), 0o644))

	_, err := LoadSettings(path)
	require.Error(t, err)
}

func TestPosterSizesLookupFallsBackToDefault(t *testing.T) {
	sizes := DefaultPosterSizes()

	got := sizes.Lookup("A1")
	assert.Equal(t, 23.4, got.Width)

	fallback := sizes.Lookup("poster-of-unusual-size")
	assert.Equal(t, "A3", fallback.Key)
	assert.Equal(t, "A3 - 30×42 cm", fallback.Label)
}

func TestPosterSizesValidate(t *testing.T) {
	tests := []struct {
		name  string
		sizes PosterSizes
		ok    bool
	}{
		{name: "builtin", sizes: DefaultPosterSizes(), ok: true},
		{name: "empty", sizes: PosterSizes{Default: "A3"}},
		{name: "missing default", sizes: PosterSizes{Default: "B2", Sizes: []PosterSize{{Key: "A3", Width: 1, Height: 1}}}},
		{name: "duplicate", sizes: PosterSizes{Default: "A3", Sizes: []PosterSize{{Key: "A3", Width: 1, Height: 1}, {Key: "A3", Width: 2, Height: 2}}}},
		{name: "zero width", sizes: PosterSizes{Default: "A3", Sizes: []PosterSize{{Key: "A3", Height: 1}}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.sizes.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
