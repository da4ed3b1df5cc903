package gallery

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/MapPoster/internal/signing"
)

// ErrPublishUnauthorized is returned when the admin secret does not match.
var ErrPublishUnauthorized = errors.New("invalid password")

// FollowUps runs the work that trails a successful publish, such as
// rebuilding collages or mirroring the directory to object storage.
type FollowUps interface {
	AfterPublish(ctx context.Context, slug string) error
}

// PublishResult is returned to the caller of Publish.
type PublishResult struct {
	Slug        string
	GalleryDir  string
	GalleryPath string
}

// Publisher authorizes and performs publishes.
type Publisher struct {
	verifier  *signing.Verifier
	merger    *Merger
	gallery   Layout
	followUps FollowUps
	log       zerolog.Logger
}

// NewPublisher wires a Publisher. followUps may be nil.
func NewPublisher(verifier *signing.Verifier, merger *Merger, gallery Layout, followUps FollowUps, log zerolog.Logger) *Publisher {
	return &Publisher{verifier: verifier, merger: merger, gallery: gallery, followUps: followUps, log: log}
}

// Verify reports whether password is the admin secret.
func (p *Publisher) Verify(password string) bool {
	return p.verifier.Verify(password)
}

// Publish promotes the draft directory named by the first segment of
// posterPath (relative to the draft root, e.g. "paris/noir_20240101_120000.png").
func (p *Publisher) Publish(ctx context.Context, password, posterPath string) (PublishResult, error) {
	if !p.verifier.Verify(password) {
		return PublishResult{}, ErrPublishUnauthorized
	}
	slug := SlugFromPosterPath(posterPath)
	dir, err := p.merger.Publish(slug)
	if err != nil {
		return PublishResult{}, err
	}
	p.log.Info().Str("slug", slug).Str("gallery_dir", dir).Msg("draft published to gallery")

	if p.followUps != nil {
		if err := p.followUps.AfterPublish(ctx, slug); err != nil {
			p.log.Warn().Err(err).Str("slug", slug).Msg("publish follow-up failed")
		}
	}
	return PublishResult{Slug: slug, GalleryDir: dir, GalleryPath: path.Join(p.gallery.URLPrefix, slug)}, nil
}

// SlugFromPosterPath extracts the city slug from a draft-relative poster
// path. URL-style prefixes such as "/temp_posters/" are tolerated.
func SlugFromPosterPath(posterPath string) string {
	p := strings.ReplaceAll(strings.TrimSpace(posterPath), "\\", "/")
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimPrefix(p, strings.TrimPrefix(DraftURLPrefix, "/")+"/")
	slug, _, _ := strings.Cut(p, "/")
	return slug
}
