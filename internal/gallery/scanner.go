package gallery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/MapPoster/internal/model"
)

// ErrCityNotFound is returned for a slug with no directory or no posters.
var ErrCityNotFound = errors.New("city not found")

const unknownCountry = "Unknown"

// Scanner builds gallery listings from the directory tree of one area.
type Scanner struct {
	layout Layout
	log    zerolog.Logger
}

// NewScanner constructs a Scanner over layout.
func NewScanner(layout Layout, log zerolog.Logger) *Scanner {
	return &Scanner{layout: layout, log: log}
}

// Cities lists every city directory holding at least one poster, newest first.
func (s *Scanner) Cities() ([]model.CityGalleryItem, error) {
	entries, err := os.ReadDir(s.layout.Root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.CityGalleryItem{}, nil
		}
		return nil, fmt.Errorf("scan gallery: %w", err)
	}

	cities := make([]model.CityGalleryItem, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		slug := entry.Name()
		posters, err := s.posterFiles(slug)
		if err != nil {
			s.log.Warn().Err(err).Str("slug", slug).Msg("skipping unreadable city directory")
			continue
		}
		if len(posters) == 0 {
			continue
		}

		var newest time.Time
		for _, p := range posters {
			if p.mod.After(newest) {
				newest = p.mod
			}
		}
		first := posters[0]
		preview := s.layout.URL(slug, first.name)
		if _, err := os.Stat(ThumbnailPath(first.path)); err == nil {
			preview = s.layout.URL(slug, thumbnailsDir, Stem(first.name)+".jpg")
		}
		country := unknownCountry
		if meta, err := ReadMetadata(first.path); err == nil && meta.Country != "" {
			country = meta.Country
		}

		cities = append(cities, model.CityGalleryItem{
			City:         CityName(slug),
			Country:      country,
			Slug:         slug,
			PreviewImage: preview,
			ThemeCount:   len(posters),
			CreatedAt:    RunID(newest),
		})
	}

	sort.SliceStable(cities, func(i, j int) bool { return cities[i].CreatedAt > cities[j].CreatedAt })
	return cities, nil
}

// Page size bounds of the gallery listing.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page returns one page of Cities. Non-positive page or limit select the
// defaults 1 and DefaultPageLimit; limit is capped at MaxPageLimit. A page
// past the end is empty.
func (s *Scanner) Page(page, limit int) (model.GalleryPage, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	limit = min(limit, MaxPageLimit)
	cities, err := s.Cities()
	if err != nil {
		return model.GalleryPage{}, err
	}
	result := model.GalleryPage{Cities: []model.CityGalleryItem{}, Total: len(cities), Page: page, Limit: limit}
	// Compared before multiplying so huge page numbers cannot overflow.
	if page-1 > len(cities)/limit {
		return result, nil
	}
	start := (page - 1) * limit
	end := min(start+limit, len(cities))
	result.Cities = cities[start:end]
	return result, nil
}

// City lists every poster of slug.
func (s *Scanner) City(slug string) (model.CityDetail, error) {
	if !ValidSlug(slug) {
		return model.CityDetail{}, ErrCityNotFound
	}
	posters, err := s.posterFiles(slug)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.CityDetail{}, ErrCityNotFound
		}
		return model.CityDetail{}, err
	}
	if len(posters) == 0 {
		return model.CityDetail{}, ErrCityNotFound
	}

	items := make([]model.PosterItem, 0, len(posters))
	for _, p := range posters {
		stem := Stem(p.name)
		themeName, createdAt, ok := ParseStem(stem)
		if !ok {
			createdAt = RunID(p.mod)
		}
		item := model.PosterItem{
			Theme:            themeName,
			ThemeDisplayName: CityName(themeName),
			PosterURL:        s.layout.URL(slug, p.name),
			FileSize:         p.size,
			Format:           strings.TrimPrefix(filepath.Ext(p.name), "."),
			CreatedAt:        createdAt,
		}
		if _, err := os.Stat(ThumbnailPath(p.path)); err == nil {
			u := s.layout.URL(slug, thumbnailsDir, stem+".jpg")
			item.ThumbnailURL = &u
		}
		if meta, err := ReadMetadata(p.path); err == nil {
			item.PosterSize = nonEmpty(meta.PosterSize)
			item.SizeLabel = nonEmpty(meta.SizeLabel)
		}
		items = append(items, item)
	}
	return model.CityDetail{City: CityName(slug), Slug: slug, Posters: items}, nil
}

// Thumbnails returns the thumbnail files of slug's posters, in poster order.
func (s *Scanner) Thumbnails(slug string) ([]string, error) {
	posters, err := s.posterFiles(slug)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range posters {
		thumb := ThumbnailPath(p.path)
		if _, err := os.Stat(thumb); err == nil {
			out = append(out, thumb)
		}
	}
	return out, nil
}

type posterFile struct {
	name string
	path string
	mod  time.Time
	size int64
}

// posterFiles returns the PNG posters of slug followed by the SVG posters,
// each group sorted by name.
func (s *Scanner) posterFiles(slug string) ([]posterFile, error) {
	dir := s.layout.CityDir(slug)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var pngs, svgs []posterFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".png" && ext != ".svg" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		pf := posterFile{name: e.Name(), path: filepath.Join(dir, e.Name()), mod: info.ModTime(), size: info.Size()}
		if ext == ".png" {
			pngs = append(pngs, pf)
		} else {
			svgs = append(svgs, pf)
		}
	}
	return append(pngs, svgs...), nil
}

// ParseStem splits "{theme}_{YYYYMMDD}_{HHMMSS}" or "{theme}_{digits}" into the
// theme and timestamp. ok is false when no timestamp suffix is present, in
// which case theme is the whole stem.
func ParseStem(stem string) (theme, timestamp string, ok bool) {
	i := strings.LastIndex(stem, "_")
	if i < 0 || !isDigits(stem[i+1:]) {
		return stem, "", false
	}
	head, last := stem[:i], stem[i+1:]
	if j := strings.LastIndex(head, "_"); j >= 0 && isDigits(head[j+1:]) {
		return head[:j], head[j+1:] + "_" + last, true
	}
	return head, last, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
