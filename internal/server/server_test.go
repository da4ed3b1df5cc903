package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/MapPoster/internal/config"
	"github.com/dharsanguruparan/MapPoster/internal/gallery"
	"github.com/dharsanguruparan/MapPoster/internal/model"
	"github.com/dharsanguruparan/MapPoster/internal/processing"
	"github.com/dharsanguruparan/MapPoster/internal/signing"
	"github.com/dharsanguruparan/MapPoster/internal/storage"
	"github.com/dharsanguruparan/MapPoster/internal/theme"
)

type fakeSubmitter struct {
	mu   sync.Mutex
	jobs []processing.Job
	err  error
}

func (f *fakeSubmitter) Submit(job processing.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeGeoIP struct{ country string }

func (f fakeGeoIP) CountryName(string) (string, error) { return f.country, nil }

type testEnv struct {
	server    *Server
	handler   http.Handler
	store     *storage.TaskStore
	submitter *fakeSubmitter
	drafts    gallery.Layout
	gallery   gallery.Layout
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		PosterSizes: config.DefaultPosterSizes(),
		PostersDir:  filepath.Join(root, "posters"),
		TempDir:     filepath.Join(root, "temp_posters"),
		ThemesDir:   filepath.Join(root, "themes"),
	}
	require.NoError(t, os.MkdirAll(cfg.ThemesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ThemesDir, "noir.json"),
		[]byte(`{"name":"Noir","description":"Black and white","bg":"#000000","text":"#FFFFFF","road_motorway":"#EEEEEE"}`), 0o644))

	log := zerolog.Nop()
	drafts := gallery.Layout{Root: cfg.TempDir, URLPrefix: gallery.DraftURLPrefix}
	pub := gallery.Layout{Root: cfg.PostersDir, URLPrefix: gallery.GalleryURLPrefix}
	store := storage.NewTaskStore(time.Hour)
	submitter := &fakeSubmitter{}

	srv := New(Deps{
		Config:    cfg,
		Store:     store,
		Processor: submitter,
		Themes:    theme.NewStore(cfg.ThemesDir, log),
		Gallery:   gallery.NewScanner(pub, log),
		Publisher: gallery.NewPublisher(signing.NewVerifier("letmein"), gallery.NewMerger(drafts, pub), pub, nil, log),
		GeoIP:     fakeGeoIP{country: "Germany"},
		Log:       log,
	})
	srv.pollInterval = 5 * time.Millisecond
	return &testEnv{server: srv, handler: srv.Routes(), store: store, submitter: submitter, drafts: drafts, gallery: pub}
}

func (e *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRootAndHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "running", decode(t, rec)["status"])

	rec = env.do(t, http.MethodGet, "/health", nil)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestPosterSizes(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/poster-sizes", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Sizes []struct {
			Value  string  `json:"value"`
			Label  string  `json:"label"`
			Width  float64 `json:"width"`
			Height float64 `json:"height"`
		} `json:"sizes"`
		Default string `json:"default"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "A3", body.Default)
	require.Len(t, body.Sizes, 6)
	assert.Equal(t, "A4", body.Sizes[0].Value)
	assert.Equal(t, 8.3, body.Sizes[0].Width)
}

func TestThemes(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/themes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"themes":[{"name":"noir","display_name":"Noir","description":"Black and white",
		"colors":{"bg":"#000000","text":"#FFFFFF","accent":"#EEEEEE"}}]}`, rec.Body.String())
}

func TestGenerateCreatesPendingTask(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/generate", map[string]any{"city": "Paris", "country": "France"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "Task created successfully", body["message"])
	id := body["task_id"].(string)

	task, err := env.store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, task.Status)

	require.Len(t, env.submitter.jobs, 1)
	job := env.submitter.jobs[0]
	assert.Equal(t, id, job.TaskID)
	assert.Equal(t, "noir", job.Request.Theme)
	assert.Equal(t, 12000, job.Request.Distance)
	assert.Equal(t, "A3", job.Request.PosterSize)
	assert.Equal(t, "France", job.Request.Country)
}

func TestGenerateUsesCountryHint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/generate", map[string]any{"city": "Berlin"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Germany", env.submitter.jobs[0].Request.Country)
}

func TestGenerateRejectsInvalidRequests(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		name   string
		body   any
		detail string
	}{
		{"missing city", map[string]any{"country": "France"}, "city is required"},
		{"bad format", map[string]any{"city": "Paris", "format": "gif"}, `unsupported format "gif"`},
		{"bad network", map[string]any{"city": "Paris", "network_type": "boat"}, `unsupported network type "boat"`},
		{"half coordinates", map[string]any{"city": "Paris", "latitude": 48.8}, "latitude and longitude must be provided together"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/generate", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.detail, decode(t, rec)["detail"])
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.submitter.jobs)
}

func TestGenerateQueueFull(t *testing.T) {
	env := newTestEnv(t)
	env.submitter.err = processing.ErrQueueFull
	rec := env.do(t, http.MethodPost, "/generate", map[string]any{"city": "Paris"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "processing queue full", decode(t, rec)["detail"])
}

func TestTaskStatus(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/task/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Task not found", decode(t, rec)["detail"])

	task := env.store.Create()
	require.NoError(t, env.store.Start(task.ID, 10))
	rec = env.do(t, http.MethodGet, "/task/"+task.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"task_id":"`+task.ID+`","status":"processing","progress":10,"result":null,"error":null}`, rec.Body.String())

	require.NoError(t, env.store.Fail(task.ID, "Could not find coordinates"))
	body := decode(t, env.do(t, http.MethodGet, "/task/"+task.ID, nil))
	assert.Equal(t, "failed", body["status"])
	assert.Equal(t, "Could not find coordinates", body["error"])
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestGalleryAndCity(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/gallery", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cities":[],"total":0,"page":1,"limit":20}`, rec.Body.String())

	writeFile(t, filepath.Join(env.gallery.CityDir("paris"), "noir_20240101_120000.png"), "png")
	body := decode(t, env.do(t, http.MethodGet, "/gallery?page=1&limit=5", nil))
	assert.EqualValues(t, 1, body["total"])
	assert.EqualValues(t, 5, body["limit"])

	body = decode(t, env.do(t, http.MethodGet, "/city/paris", nil))
	assert.Equal(t, "Paris", body["city"])
	assert.Len(t, body["posters"], 1)

	rec = env.do(t, http.MethodGet, "/city/atlantis", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "City not found", decode(t, rec)["detail"])
}

func TestGalleryPastLastPage(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, filepath.Join(env.gallery.CityDir("paris"), "noir_20240101_120000.png"), "png")

	rec := env.do(t, http.MethodGet, "/gallery?page=4611686018427387906&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Empty(t, body["cities"])
	assert.EqualValues(t, 1, body["total"])

	body = decode(t, env.do(t, http.MethodGet, "/gallery?limit=5000", nil))
	assert.EqualValues(t, 100, body["limit"])
}

func TestVerifyPassword(t *testing.T) {
	env := newTestEnv(t)
	assert.JSONEq(t, `{"valid":true,"message":"Password verified"}`,
		env.do(t, http.MethodPost, "/verify-password", map[string]string{"password": "letmein"}).Body.String())
	assert.JSONEq(t, `{"valid":false,"message":"Invalid password"}`,
		env.do(t, http.MethodPost, "/verify-password", map[string]string{"password": "nope"}).Body.String())
}

func TestPublishToGallery(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, filepath.Join(env.drafts.CityDir("paris"), "noir_20240101_120000.png"), "png")

	rec := env.do(t, http.MethodPost, "/publish-to-gallery",
		map[string]string{"password": "nope", "poster_path": "paris/noir_20240101_120000.png"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid password. Please check your password.", decode(t, rec)["detail"])

	rec = env.do(t, http.MethodPost, "/publish-to-gallery",
		map[string]string{"password": "letmein", "poster_path": "rome/noir.png"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Poster directory not found", decode(t, rec)["detail"])

	rec = env.do(t, http.MethodPost, "/publish-to-gallery",
		map[string]string{"password": "letmein", "poster_path": "paris/noir_20240101_120000.png"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true,"message":"Poster published to gallery successfully","gallery_path":"/posters/paris"}`,
		rec.Body.String())
	assert.FileExists(t, filepath.Join(env.gallery.CityDir("paris"), "noir_20240101_120000.png"))
}

func TestStaticFiles(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, filepath.Join(env.drafts.CityDir("paris"), "noir.png"), "draft")
	writeFile(t, filepath.Join(env.gallery.CityDir("paris"), "noir.png"), "gallery")

	rec := env.do(t, http.MethodGet, "/temp_posters/paris/noir.png", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "draft", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/posters/paris/noir.png", nil)
	assert.Equal(t, "gallery", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/posters/paris/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodOptions, "/generate", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestTaskStream(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	task := env.store.Create()
	require.NoError(t, env.store.Start(task.ID, 10))

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/task/" + task.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = env.store.Advance(task.ID, 50)
		time.Sleep(20 * time.Millisecond)
		_ = env.store.Complete(task.ID, model.PosterResult{PosterURL: "/temp_posters/paris/noir.png"})
	}()

	var updates []taskResponse
	for {
		var resp taskResponse
		if err := conn.ReadJSON(&resp); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), err.Error())
			break
		}
		updates = append(updates, resp)
	}
	require.NotEmpty(t, updates)
	assert.Equal(t, 10, updates[0].Progress)
	final := updates[len(updates)-1]
	assert.Equal(t, model.StatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	require.NotNil(t, final.Result)
	for i := 1; i < len(updates); i++ {
		assert.GreaterOrEqual(t, updates[i].Progress, updates[i-1].Progress)
	}
}

func TestTaskStreamUnknownTask(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/task/missing/ws", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
