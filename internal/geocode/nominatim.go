// Package geocode talks to a Nominatim-compatible geocoding service and adapts
// its answers into place candidates.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dharsanguruparan/MapPoster/internal/model"
	"github.com/dharsanguruparan/MapPoster/internal/place"
)

// Options configures a Nominatim client.
type Options struct {
	BaseURL   string
	UserAgent string
	// Timeout bounds every single HTTP request.
	Timeout time.Duration
	// Interval is the minimum spacing between two requests. Public Nominatim
	// instances allow at most one request per second.
	Interval time.Duration
}

// Nominatim implements place.Geocoder against the /search endpoint.
type Nominatim struct {
	base      *url.URL
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

// NewNominatim builds a client. httpClient may be nil.
func NewNominatim(opts Options, httpClient *http.Client) (*Nominatim, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse nominatim url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("nominatim url %q must be absolute", opts.BaseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	limit := rate.Inf
	if opts.Interval > 0 {
		limit = rate.Every(opts.Interval)
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "city_map_poster"
	}
	return &Nominatim{
		base:      base,
		userAgent: userAgent,
		client:    httpClient,
		limiter:   rate.NewLimiter(limit, 1),
	}, nil
}

// searchResult mirrors the jsonv2 search response fields we consume.
type searchResult struct {
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
	NameDetails map[string]string `json:"namedetails"`
}

// Geocode issues one search and returns the best match, or nil when the
// service has none.
func (n *Nominatim) Geocode(ctx context.Context, q place.Query) (*place.Candidate, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.searchURL(q), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim search %q: %w", q.String(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("nominatim search %q: unexpected status %s", q.String(), resp.Status)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode nominatim response: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return toCandidate(results[0])
}

func (n *Nominatim) searchURL(q place.Query) string {
	values := url.Values{}
	values.Set("format", "jsonv2")
	values.Set("addressdetails", "1")
	values.Set("namedetails", "1")
	values.Set("limit", "1")
	values.Set("accept-language", "en")
	switch q.Kind {
	case place.KindFreeText:
		values.Set("q", q.Text)
	default:
		values.Set(string(q.Kind), q.Name)
		if q.Country != "" {
			values.Set("country", q.Country)
		}
	}
	u := *n.base
	u.Path = strings.TrimRight(u.Path, "/") + "/search"
	u.RawQuery = values.Encode()
	return u.String()
}

func toCandidate(r searchResult) (*place.Candidate, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse latitude %q: %w", r.Lat, err)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse longitude %q: %w", r.Lon, err)
	}
	a := r.Address
	return &place.Candidate{
		FormattedAddress: r.DisplayName,
		DisplayName:      r.DisplayName,
		Address: place.Address{
			Country:      a["country"],
			City:         a["city"],
			Town:         a["town"],
			Village:      a["village"],
			Municipality: a["municipality"],
			County:       a["county"],
			State:        a["state"],
			Region:       a["region"],
			Province:     a["province"],
		},
		NameDetails: r.NameDetails,
		Point:       model.Point{Lat: lat, Lon: lon},
	}, nil
}
