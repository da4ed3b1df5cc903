// Package server wires together HTTP routes, dependency injection, and the
// generation and gallery logic. Handlers are plain functions receiving
// http.ResponseWriter + *http.Request, routed by chi.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/MapPoster/internal/config"
	"github.com/dharsanguruparan/MapPoster/internal/gallery"
	"github.com/dharsanguruparan/MapPoster/internal/geoip"
	"github.com/dharsanguruparan/MapPoster/internal/processing"
	"github.com/dharsanguruparan/MapPoster/internal/storage"
	"github.com/dharsanguruparan/MapPoster/internal/theme"
)

// Submitter hands accepted jobs to the worker pool.
type Submitter interface {
	Submit(job processing.Job) error
}

// ThemeLister lists the installed themes.
type ThemeLister interface {
	Summaries() ([]theme.Summary, error)
}

// Deps are the collaborators of the HTTP surface. GeoIP may be nil; Starter
// is optional and started once by Serve.
type Deps struct {
	Config    *config.Config
	Store     *storage.TaskStore
	Processor Submitter
	Starter   interface{ Start(ctx context.Context) }
	Themes    ThemeLister
	Gallery   *gallery.Scanner
	Publisher *gallery.Publisher
	GeoIP     geoip.CountryResolver
	Log       zerolog.Logger
}

// Server hosts HTTP handlers for the poster service.
type Server struct {
	Deps
	// pollInterval paces the progress stream.
	pollInterval time.Duration
	once         sync.Once
}

// New creates a configured server.
func New(deps Deps) *Server {
	return &Server{Deps: deps, pollInterval: 500 * time.Millisecond}
}

// Serve launches the HTTP server until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.once.Do(func() {
		// sync.Once ensures we only start the background workers once even if
		// Serve is called multiple times in tests.
		if s.Starter != nil {
			s.Starter.Start(ctx)
		}
	})
	httpServer := &http.Server{
		Addr:              s.Config.Address,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		// When the context is cancelled we gracefully shutdown with a timeout.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()
	s.Log.Info().Str("address", s.Config.Address).Msg("api listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Routes builds the router. Exported so tests can drive it with httptest.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(accessLog(s.Log))
	r.Use(chimw.Recoverer)
	r.Use(cors)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/poster-sizes", s.handlePosterSizes)
	r.Get("/themes", s.handleThemes)
	r.Post("/generate", s.handleGenerate)
	r.Get("/task/{taskID}", s.handleTask)
	r.Get("/task/{taskID}/ws", s.handleTaskStream)
	r.Get("/gallery", s.handleGallery)
	r.Get("/city/{slug}", s.handleCity)
	r.Post("/verify-password", s.handleVerifyPassword)
	r.Post("/publish-to-gallery", s.handlePublish)

	r.Handle(gallery.GalleryURLPrefix+"/*", staticFiles(gallery.GalleryURLPrefix, s.Config.PostersDir))
	r.Handle(gallery.DraftURLPrefix+"/*", staticFiles(gallery.DraftURLPrefix, s.Config.TempDir))
	return r
}

// staticFiles serves dir under prefix without directory listings.
func staticFiles(prefix, dir string) http.Handler {
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) > 0 && r.URL.Path[len(r.URL.Path)-1] == '/' {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, errorResponse{Detail: detail})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	// ResponseWriter exposes headers + status writing; once WriteHeader is
	// called we must send the body, so always set headers first.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
