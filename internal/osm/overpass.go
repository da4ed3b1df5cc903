// Package osm downloads the street network, water bodies and parks around a
// map center from an Overpass API endpoint.
package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dharsanguruparan/MapPoster/internal/model"
)

const metersPerDegree = 111320.0

// BBox is a latitude/longitude bounding box.
type BBox struct {
	South, West, North, East float64
}

// Around returns the box extending dist meters from center on every side.
func Around(center model.Point, dist int) BBox {
	dLat := float64(dist) / metersPerDegree
	cos := math.Cos(center.Lat * math.Pi / 180)
	if cos < 0.01 {
		cos = 0.01
	}
	dLon := float64(dist) / (metersPerDegree * cos)
	return BBox{
		South: center.Lat - dLat,
		West:  center.Lon - dLon,
		North: center.Lat + dLat,
		East:  center.Lon + dLon,
	}
}

func (b BBox) overpass() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.South, b.West, b.North, b.East)
}

// Road is one highway way.
type Road struct {
	Highway string
	Points  []model.Point
}

// Area is a polygon made of one or more outer rings and optional holes.
type Area struct {
	Outer [][]model.Point
	Inner [][]model.Point
}

// MapData is everything a poster is drawn from.
type MapData struct {
	BBox  BBox
	Roads []Road
	Water []Area
	Parks []Area
}

// Request describes one fetch.
type Request struct {
	Center      model.Point
	Distance    int
	NetworkType string
	// Simplified keeps only major roads, used for very large radii.
	Simplified bool
}

var networkFilters = map[string]string{
	"drive":         `["highway"~"^(motorway|trunk|primary|secondary|tertiary|unclassified|residential|living_street|motorway_link|trunk_link|primary_link|secondary_link|tertiary_link)$"]`,
	"drive_service": `["highway"~"^(motorway|trunk|primary|secondary|tertiary|unclassified|residential|living_street|service|motorway_link|trunk_link|primary_link|secondary_link|tertiary_link)$"]`,
	"walk":          `["highway"~"^(primary|secondary|tertiary|unclassified|residential|living_street|service|pedestrian|footway|path|steps|track|primary_link|secondary_link|tertiary_link)$"]`,
	"bike":          `["highway"~"^(primary|secondary|tertiary|unclassified|residential|living_street|service|cycleway|path|track|primary_link|secondary_link|tertiary_link)$"]`,
	"all":           `["highway"]["access"!~"^(private|no)$"]`,
	"all_private":   `["highway"]`,
}

const simplifiedFilter = `["highway"~"^(motorway|trunk|primary|secondary|motorway_link|trunk_link|primary_link)$"]`

// Client queries an Overpass interpreter endpoint.
type Client struct {
	endpoint  string
	userAgent string
	timeout   time.Duration
	http      *http.Client
}

// NewClient builds a Client. httpClient may be nil.
func NewClient(endpoint, userAgent string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout + 30*time.Second}
	}
	return &Client{endpoint: endpoint, userAgent: userAgent, timeout: timeout, http: httpClient}
}

// Query builds the Overpass QL for req.
func (c *Client) Query(req Request) (string, error) {
	filter := simplifiedFilter
	if !req.Simplified {
		f, ok := networkFilters[req.NetworkType]
		if !ok {
			return "", fmt.Errorf("unsupported network type %q", req.NetworkType)
		}
		filter = f
	}
	box := Around(req.Center, req.Distance).overpass()
	seconds := int(c.timeout / time.Second)
	if seconds <= 0 {
		seconds = 180
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", seconds)
	fmt.Fprintf(&b, "  way%s(%s);\n", filter, box)
	for _, sel := range []string{`["natural"="water"]`, `["waterway"="riverbank"]`, `["leisure"="park"]`, `["landuse"="grass"]`} {
		fmt.Fprintf(&b, "  way%s(%s);\n", sel, box)
		fmt.Fprintf(&b, "  relation%s(%s);\n", sel, box)
	}
	b.WriteString(");\nout geom;\n")
	return b.String(), nil
}

type response struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type     string            `json:"type"`
	Tags     map[string]string `json:"tags"`
	Geometry []latLon          `json:"geometry"`
	Members  []member          `json:"members"`
}

type member struct {
	Type     string   `json:"type"`
	Role     string   `json:"role"`
	Geometry []latLon `json:"geometry"`
}

type latLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Fetch downloads and classifies the map features for req.
func (c *Client) Fetch(ctx context.Context, req Request) (*MapData, error) {
	query, err := c.Query(req)
	if err != nil {
		return nil, err
	}
	form := url.Values{"data": {query}}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("overpass request: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}
	data := classify(decoded.Elements)
	data.BBox = Around(req.Center, req.Distance)
	return data, nil
}

func classify(elements []element) *MapData {
	data := &MapData{}
	for _, el := range elements {
		switch {
		case el.Tags["highway"] != "" && el.Type == "way":
			if pts := points(el.Geometry); len(pts) >= 2 {
				data.Roads = append(data.Roads, Road{Highway: el.Tags["highway"], Points: pts})
			}
		case el.Tags["natural"] == "water" || el.Tags["waterway"] == "riverbank":
			if area, ok := toArea(el); ok {
				data.Water = append(data.Water, area)
			}
		case el.Tags["leisure"] == "park" || el.Tags["landuse"] == "grass":
			if area, ok := toArea(el); ok {
				data.Parks = append(data.Parks, area)
			}
		}
	}
	return data
}

func toArea(el element) (Area, bool) {
	var area Area
	if el.Type == "way" {
		if pts := points(el.Geometry); len(pts) >= 3 {
			area.Outer = append(area.Outer, pts)
		}
		return area, len(area.Outer) > 0
	}
	for _, m := range el.Members {
		pts := points(m.Geometry)
		if m.Type != "way" || len(pts) < 3 {
			continue
		}
		if m.Role == "inner" {
			area.Inner = append(area.Inner, pts)
		} else {
			area.Outer = append(area.Outer, pts)
		}
	}
	return area, len(area.Outer) > 0
}

func points(geom []latLon) []model.Point {
	out := make([]model.Point, 0, len(geom))
	for _, g := range geom {
		out = append(out, model.Point{Lat: g.Lat, Lon: g.Lon})
	}
	return out
}
