// Package gallery owns the on-disk poster layout: per-city run directories in
// the draft area, promotion of drafts into the public gallery and the gallery
// listings built from those directories.
package gallery

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dharsanguruparan/MapPoster/internal/fsutil"
	"github.com/dharsanguruparan/MapPoster/internal/model"
)

// URL prefixes under which the two areas are served.
const (
	DraftURLPrefix   = "/temp_posters"
	GalleryURLPrefix = "/posters"
)

const (
	thumbnailsDir = "thumbnails"
	collagesDir   = "collages"
	runIDLayout   = "20060102_150405"

	reserveAttempts = 60
)

// Slug derives the directory name for a city: lower-cased, spaces replaced by
// underscores and path separators removed.
func Slug(city string) string {
	s := strings.ToLower(strings.TrimSpace(city))
	s = strings.NewReplacer(" ", "_", "/", "", "\\", "", "..", "").Replace(s)
	return strings.Trim(s, ".")
}

// ValidSlug reports whether slug names a single directory inside a root.
func ValidSlug(slug string) bool {
	return slug != "" && slug != "." && slug != ".." &&
		!strings.ContainsAny(slug, `/\`) && !strings.Contains(slug, "..")
}

// RunID formats the generation timestamp used in artifact names.
func RunID(t time.Time) string {
	return t.Format(runIDLayout)
}

// CityName turns a slug back into a display name: "new_york" -> "New York".
func CityName(slug string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(slug, "_", " "))
}

// Layout maps slugs to directories and URLs within one area.
type Layout struct {
	Root      string
	URLPrefix string
}

// CityDir returns the run directory of slug.
func (l Layout) CityDir(slug string) string {
	return filepath.Join(l.Root, slug)
}

// ThumbnailsDir returns the thumbnail directory of slug.
func (l Layout) ThumbnailsDir(slug string) string {
	return filepath.Join(l.Root, slug, thumbnailsDir)
}

// CollagesDir returns the collage directory of slug.
func (l Layout) CollagesDir(slug string) string {
	return filepath.Join(l.Root, slug, thumbnailsDir, collagesDir)
}

// Ensure creates the run directory of slug with its thumbnail and collage
// subdirectories. Existing content is left untouched.
func (l Layout) Ensure(slug string) (string, error) {
	if !ValidSlug(slug) {
		return "", fmt.Errorf("invalid city slug %q", slug)
	}
	if err := os.MkdirAll(l.CollagesDir(slug), 0o755); err != nil {
		return "", fmt.Errorf("create run directory: %w", err)
	}
	return l.CityDir(slug), nil
}

// URL joins the area prefix, slug and further path elements.
func (l Layout) URL(slug string, elems ...string) string {
	return path.Join(append([]string{l.URLPrefix, slug}, elems...)...)
}

// PosterFile is the artifact name "{theme}_{runID}.{ext}".
func PosterFile(theme, runID, ext string) string {
	return fmt.Sprintf("%s_%s.%s", theme, runID, ext)
}

// ReservePoster claims an unused poster name in dir by creating an empty file
// exclusively. The run id starts at t and moves forward one second while the
// name is taken, so the name always keeps the "{theme}_{runID}" form.
func ReservePoster(dir, theme, ext string, t time.Time) (name, runID string, err error) {
	for i := 0; i < reserveAttempts; i++ {
		runID = RunID(t.Add(time.Duration(i) * time.Second))
		name = PosterFile(theme, runID, ext)
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", "", fmt.Errorf("reserve poster name: %w", err)
		}
		return name, runID, f.Close()
	}
	return "", "", fmt.Errorf("reserve poster name: %s names taken for %d seconds from %s", theme, reserveAttempts, RunID(t))
}

// Stem strips the extension from a file name.
func Stem(name string) string {
	return strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
}

// SidecarPath returns the metadata path next to posterPath.
func SidecarPath(posterPath string) string {
	return strings.TrimSuffix(posterPath, filepath.Ext(posterPath)) + ".json"
}

// ThumbnailPath returns where the thumbnail of posterPath lives.
func ThumbnailPath(posterPath string) string {
	return filepath.Join(filepath.Dir(posterPath), thumbnailsDir, Stem(posterPath)+".jpg")
}

// WriteMetadata stores meta as the JSON sidecar of posterPath.
func WriteMetadata(posterPath string, meta model.PosterMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(SidecarPath(posterPath), data)
}

// ReadMetadata loads the JSON sidecar of posterPath.
func ReadMetadata(posterPath string) (model.PosterMetadata, error) {
	var meta model.PosterMetadata
	data, err := os.ReadFile(SidecarPath(posterPath))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("decode metadata: %w", err)
	}
	return meta, nil
}
