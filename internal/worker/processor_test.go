package worker

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/MapPoster/internal/gallery"
	"github.com/dharsanguruparan/MapPoster/internal/queue"
)

type fakeMirror struct {
	dirs     []string
	prefixes []string
	err      error
}

func (m *fakeMirror) MirrorDir(_ context.Context, localDir, prefix string) (int, error) {
	m.dirs = append(m.dirs, localDir)
	m.prefixes = append(m.prefixes, prefix)
	return 3, m.err
}

func writeJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.Black)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, nil))
}

func buildCity(t *testing.T, posters int) gallery.Layout {
	t.Helper()
	layout := gallery.Layout{Root: t.TempDir(), URLPrefix: gallery.GalleryURLPrefix}
	dir, err := layout.Ensure("paris")
	require.NoError(t, err)
	for i := 0; i < posters; i++ {
		name := gallery.PosterFile("noir", "2024010"+string(rune('1'+i))+"_120000", "png")
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("png"), 0o644))
		writeJPEG(t, gallery.ThumbnailPath(filepath.Join(dir, name)), 20, 30)
	}
	return layout
}

func TestRebuildCollagesReplacesStaleGrids(t *testing.T) {
	layout := buildCity(t, 4)
	stale := filepath.Join(layout.CollagesDir("paris"), "collage_7.jpg")
	writeJPEG(t, stale, 5, 5)

	p := NewProcessor(layout, nil, zerolog.Nop())
	collages, err := p.RebuildCollages("paris")
	require.NoError(t, err)
	require.Len(t, collages, 1)
	assert.FileExists(t, filepath.Join(layout.CollagesDir("paris"), "collage_1.jpg"))
	assert.NoFileExists(t, stale)
}

func TestAfterPublishInline(t *testing.T) {
	layout := buildCity(t, 1)
	mirror := &fakeMirror{}
	p := NewProcessor(layout, mirror, zerolog.Nop())

	require.NoError(t, p.AfterPublish(context.Background(), "paris"))
	assert.Equal(t, []string{layout.CityDir("paris")}, mirror.dirs)
	assert.Equal(t, []string{"paris"}, mirror.prefixes)
	assert.FileExists(t, filepath.Join(layout.CollagesDir("paris"), "collage_1.jpg"))
}

func TestHandlerDispatchesTasks(t *testing.T) {
	layout := buildCity(t, 2)
	mirror := &fakeMirror{}
	mux := NewProcessor(layout, mirror, zerolog.Nop()).Handler()
	ctx := context.Background()

	task, _, err := queue.NewGalleryTask(queue.RebuildCollagesTask, "paris")
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(ctx, task))
	assert.FileExists(t, filepath.Join(layout.CollagesDir("paris"), "collage_1.jpg"))

	task, _, err = queue.NewGalleryTask(queue.MirrorGalleryTask, "paris")
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(ctx, task))
	assert.Len(t, mirror.dirs, 1)
}

func TestHandlerSkipsRetryForMissingCity(t *testing.T) {
	layout := gallery.Layout{Root: t.TempDir(), URLPrefix: gallery.GalleryURLPrefix}
	mux := NewProcessor(layout, nil, zerolog.Nop()).Handler()

	task, _, err := queue.NewGalleryTask(queue.RebuildCollagesTask, "atlantis")
	require.NoError(t, err)
	assert.ErrorIs(t, mux.ProcessTask(context.Background(), task), asynq.SkipRetry)

	task, _, err = queue.NewGalleryTask(queue.MirrorGalleryTask, "atlantis")
	require.NoError(t, err)
	assert.ErrorIs(t, mux.ProcessTask(context.Background(), task), asynq.SkipRetry)
}

func TestMirrorErrorPropagates(t *testing.T) {
	layout := buildCity(t, 1)
	mirror := &fakeMirror{err: errors.New("bucket gone")}
	p := NewProcessor(layout, mirror, zerolog.Nop())
	assert.ErrorContains(t, p.Mirror(context.Background(), "paris"), "bucket gone")
}

func TestAsynqLoggerWritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	logger := AsynqLogger(zerolog.New(&buf))
	logger.Info("worker ", "ready")
	assert.Contains(t, buf.String(), `"message":"worker ready"`)
	assert.Contains(t, buf.String(), `"component":"asynq"`)
}
