package app

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/MapPoster/internal/config"
	"github.com/dharsanguruparan/MapPoster/internal/queue"
	"github.com/dharsanguruparan/MapPoster/internal/storage"
	"github.com/dharsanguruparan/MapPoster/internal/worker"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		PostersDir:         t.TempDir(),
		TempDir:            t.TempDir(),
		ThemesDir:          t.TempDir(),
		FontsDir:           t.TempDir(),
		NominatimURL:       "https://nominatim.example.org",
		OverpassURL:        "https://overpass.example.org/api/interpreter",
		MaxDistance:        25000,
		WarningDistance:    20000,
		ThumbnailSize:      1080,
		TaskTimeout:        time.Minute,
		PosterSizes:        config.DefaultPosterSizes(),
		AdminPassword:      "secret",
		NominatimUserAgent: "test",
	}
}

func TestLayouts(t *testing.T) {
	cfg := testConfig(t)
	assert.Equal(t, "/temp_posters/paris", Drafts(cfg).URL("paris"))
	assert.Equal(t, "/posters/paris", Gallery(cfg).URL("paris"))
	assert.Equal(t, cfg.PostersDir, Gallery(cfg).Root)
}

func TestFollowUpsInlineWithoutRedis(t *testing.T) {
	cfg := testConfig(t)
	followUps, closeFn, err := FollowUps(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &worker.Processor{}, followUps)
}

func TestFollowUpsQueuedWithRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisAddr = "127.0.0.1:6379"
	followUps, closeFn, err := FollowUps(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &queue.Dispatcher{}, followUps)
}

func TestNewRunner(t *testing.T) {
	cfg := testConfig(t)
	runner, err := NewRunner(cfg, storage.NewTaskStore(0), nil, zerolog.Nop())
	require.NoError(t, err)
	assert.NotNil(t, runner)

	cfg.NominatimURL = "not a url"
	_, err = NewRunner(cfg, storage.NewTaskStore(0), nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestCatalogDisabled(t *testing.T) {
	repo, closeFn, err := Catalog(context.Background(), testConfig(t))
	require.NoError(t, err)
	assert.Nil(t, repo)
	closeFn()
}

func TestPublisherUsesAdminPassword(t *testing.T) {
	pub := NewPublisher(testConfig(t), nil, zerolog.Nop())
	assert.True(t, pub.Verify("secret"))
	assert.False(t, pub.Verify("admin123"))
}
