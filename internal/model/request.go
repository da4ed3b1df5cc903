package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Output formats accepted by the renderer.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

const (
	DefaultTheme       = "noir"
	DefaultDistance    = 12000
	DefaultNetworkType = "drive"
)

// NetworkTypes lists the street network profiles the map fetcher understands.
var NetworkTypes = []string{"drive", "drive_service", "walk", "bike", "all", "all_private"}

var themeNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// GenerateRequest is what a caller submits to create a poster.
type GenerateRequest struct {
	City            string   `json:"city"`
	Country         string   `json:"country"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	Theme           string   `json:"theme"`
	Distance        int      `json:"distance"`
	NetworkType     string   `json:"network_type"`
	Format          string   `json:"format"`
	Thumbnail       bool     `json:"thumbnail"`
	HideAttribution bool     `json:"hide_attribution"`
	PosterSize      string   `json:"poster_size"`
}

// ApplyDefaults fills zero-valued optional fields.
func (r *GenerateRequest) ApplyDefaults(defaultPosterSize string) {
	r.City = strings.TrimSpace(r.City)
	r.Country = strings.TrimSpace(r.Country)
	if r.Theme == "" {
		r.Theme = DefaultTheme
	}
	if r.Distance == 0 {
		r.Distance = DefaultDistance
	}
	if r.NetworkType == "" {
		r.NetworkType = DefaultNetworkType
	}
	r.Format = strings.ToLower(strings.TrimSpace(r.Format))
	if r.Format == "" {
		r.Format = FormatPNG
	}
	if r.PosterSize == "" {
		r.PosterSize = defaultPosterSize
	}
}

// Validate rejects requests that cannot be processed at all. Distance limits
// are checked later by the task itself because they are configuration
// dependent.
func (r GenerateRequest) Validate() error {
	if r.City == "" {
		return errors.New("city is required")
	}
	if r.Distance < 0 {
		return errors.New("distance must be positive")
	}
	if (r.Latitude == nil) != (r.Longitude == nil) {
		return errors.New("latitude and longitude must be provided together")
	}
	if r.Latitude != nil && (*r.Latitude < -90 || *r.Latitude > 90) {
		return fmt.Errorf("latitude %v out of range", *r.Latitude)
	}
	if r.Longitude != nil && (*r.Longitude < -180 || *r.Longitude > 180) {
		return fmt.Errorf("longitude %v out of range", *r.Longitude)
	}
	if r.Format != FormatPNG && r.Format != FormatSVG {
		return fmt.Errorf("unsupported format %q", r.Format)
	}
	if !themeNamePattern.MatchString(r.Theme) {
		return fmt.Errorf("invalid theme name %q", r.Theme)
	}
	for _, nt := range NetworkTypes {
		if nt == r.NetworkType {
			return nil
		}
	}
	return fmt.Errorf("unsupported network type %q", r.NetworkType)
}

// Coordinates returns the explicit map center, if one was supplied.
func (r GenerateRequest) Coordinates() (Point, bool) {
	if r.Latitude == nil || r.Longitude == nil {
		return Point{}, false
	}
	return Point{Lat: *r.Latitude, Lon: *r.Longitude}, true
}

// Extension returns the file extension for the requested format.
func (r GenerateRequest) Extension() string {
	if r.Format == FormatSVG {
		return FormatSVG
	}
	return FormatPNG
}
