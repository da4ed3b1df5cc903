package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dharsanguruparan/MapPoster/internal/config"
	"github.com/dharsanguruparan/MapPoster/internal/gallery"
	"github.com/dharsanguruparan/MapPoster/internal/model"
	"github.com/dharsanguruparan/MapPoster/internal/processing"
	"github.com/dharsanguruparan/MapPoster/internal/theme"
)

const (
	apiName    = "City Map Poster API"
	apiVersion = "1.0.0"
	// maxBodyBytes bounds the JSON request bodies.
	maxBodyBytes = 1 << 20
)

type taskResponse struct {
	TaskID   string              `json:"task_id"`
	Status   model.TaskStatus    `json:"status"`
	Progress int                 `json:"progress"`
	Result   *model.PosterResult `json:"result"`
	Error    *string             `json:"error"`
}

func newTaskResponse(t *model.Task) taskResponse {
	resp := taskResponse{TaskID: t.ID, Status: t.Status, Progress: t.Progress, Result: t.Result}
	if t.Error != "" {
		msg := t.Error
		resp.Error = &msg
	}
	return resp
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"name": apiName, "version": apiVersion, "status": "running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handlePosterSizes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, struct {
		Sizes   []config.PosterSize `json:"sizes"`
		Default string              `json:"default"`
	}{s.Config.PosterSizes.Sizes, s.Config.PosterSizes.Default})
}

func (s *Server) handleThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := s.Themes.Summaries()
	if err != nil {
		s.Log.Error().Err(err).Msg("list themes")
		respondError(w, http.StatusInternalServerError, "Failed to list themes")
		return
	}
	if themes == nil {
		themes = []theme.Summary{}
	}
	respondJSON(w, http.StatusOK, map[string][]theme.Summary{"themes": themes})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req model.GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.ApplyDefaults(s.Config.PosterSizes.Default)
	if req.Country == "" {
		req.Country = s.countryHint(r)
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	task := s.Store.Create()
	if err := s.Processor.Submit(processing.Job{TaskID: task.ID, Request: req}); err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.Log.Info().Str("task_id", task.ID).Str("city", req.City).Str("theme", req.Theme).Msg("task created")
	respondJSON(w, http.StatusOK, map[string]string{
		"task_id": task.ID,
		"status":  string(model.StatusPending),
		"message": "Task created successfully",
	})
}

// countryHint looks up the caller's country when GeoIP is configured.
func (s *Server) countryHint(r *http.Request) string {
	if s.GeoIP == nil {
		return ""
	}
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	name, err := s.GeoIP.CountryName(ip)
	if err != nil {
		s.Log.Debug().Err(err).Str("ip", ip).Msg("no country hint")
		return ""
	}
	return name
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.Store.Get(chi.URLParam(r, "taskID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "Task not found")
		return
	}
	respondJSON(w, http.StatusOK, newTaskResponse(task))
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)
	result, err := s.Gallery.Page(page, limit)
	if err != nil {
		s.Log.Error().Err(err).Msg("scan gallery")
		respondError(w, http.StatusInternalServerError, "Failed to read gallery")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleCity(w http.ResponseWriter, r *http.Request) {
	detail, err := s.Gallery.City(chi.URLParam(r, "slug"))
	if errors.Is(err, gallery.ErrCityNotFound) {
		respondError(w, http.StatusNotFound, "City not found")
		return
	}
	if err != nil {
		s.Log.Error().Err(err).Msg("read city")
		respondError(w, http.StatusInternalServerError, "Failed to read city")
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

type passwordRequest struct {
	Password   string `json:"password"`
	PosterPath string `json:"poster_path"`
}

func (s *Server) handleVerifyPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.Publisher.Verify(req.Password) {
		respondJSON(w, http.StatusOK, map[string]any{"valid": true, "message": "Password verified"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"valid": false, "message": "Invalid password"})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.Publisher.Publish(r.Context(), req.Password, req.PosterPath)
	switch {
	case errors.Is(err, gallery.ErrPublishUnauthorized):
		respondError(w, http.StatusUnauthorized, "Invalid password. Please check your password.")
		return
	case errors.Is(err, gallery.ErrDraftMissing):
		respondError(w, http.StatusNotFound, "Poster directory not found")
		return
	case err != nil:
		s.Log.Error().Err(err).Str("poster_path", req.PosterPath).Msg("publish failed")
		respondError(w, http.StatusInternalServerError, "Failed to publish poster: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "Poster published to gallery successfully",
		"gallery_path": result.GalleryPath,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}
