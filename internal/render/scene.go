package render

import (
	"fmt"
	"image/color"
	"math"
	"sort"
	"strings"

	"github.com/dharsanguruparan/MapPoster/internal/model"
	"github.com/dharsanguruparan/MapPoster/internal/osm"
	"github.com/dharsanguruparan/MapPoster/internal/theme"
)

const (
	pointsPerInch   = 72.0
	metersPerDegree = 111320.0
)

// Vec is a position in poster points, origin top-left.
type Vec struct{ X, Y float64 }

// Polygon is a filled shape. Holes are drawn with the opposite winding.
type Polygon struct {
	Outer [][]Vec
	Inner [][]Vec
	Fill  color.RGBA
}

// Polyline is a stroked road.
type Polyline struct {
	Points []Vec
	Stroke color.RGBA
	Width  float64
}

// FontWeight selects one of the three poster typefaces.
type FontWeight int

const (
	WeightRegular FontWeight = iota
	WeightBold
	WeightLight
)

// Anchor is the horizontal alignment of a text label.
type Anchor int

const (
	AnchorMiddle Anchor = iota
	AnchorEnd
)

// Label is one line of poster typography. Y is the baseline.
type Label struct {
	Text   string
	X, Y   float64
	Size   float64
	Weight FontWeight
	Color  color.RGBA
	Alpha  float64
	Anchor Anchor
}

// Scene is a resolution independent description of one poster.
type Scene struct {
	Width, Height float64
	Background    color.RGBA
	Water         []Polygon
	Parks         []Polygon
	Roads         []Polyline
	Gradient      color.RGBA
	// FadeFraction is the share of the height covered by each edge fade.
	FadeFraction float64
	Divider      [2]Vec
	DividerColor color.RGBA
	Labels       []Label
}

// RoadClass groups highway tags into the five drawing tiers.
type RoadClass int

const (
	ClassOther RoadClass = iota
	ClassTertiary
	ClassSecondary
	ClassPrimary
	ClassMotorway
)

// ClassifyHighway maps an OSM highway tag to its tier.
func ClassifyHighway(highway string) RoadClass {
	switch highway {
	case "motorway", "motorway_link":
		return ClassMotorway
	case "trunk", "trunk_link", "primary", "primary_link":
		return ClassPrimary
	case "secondary", "secondary_link":
		return ClassSecondary
	case "tertiary", "tertiary_link":
		return ClassTertiary
	default:
		return ClassOther
	}
}

// Width returns the stroke width in points.
func (c RoadClass) Width() float64 {
	switch c {
	case ClassMotorway:
		return 1.2
	case ClassPrimary:
		return 1.0
	case ClassSecondary:
		return 0.8
	case ClassTertiary:
		return 0.6
	default:
		return 0.4
	}
}

func roadColor(highway string, p theme.Palette) color.RGBA {
	switch ClassifyHighway(highway) {
	case ClassMotorway:
		return p.RoadMotorway
	case ClassPrimary:
		return p.RoadPrimary
	case ClassSecondary:
		return p.RoadSecondary
	case ClassTertiary:
		return p.RoadTertiary
	}
	switch highway {
	case "residential", "living_street", "unclassified":
		return p.RoadResidential
	}
	return p.RoadDefault
}

// projection maps lat/lon onto poster points with an equirectangular
// projection around the center, scaled so the ±distance box covers the poster.
type projection struct {
	center        model.Point
	cosLat        float64
	scale         float64
	width, height float64
}

func newProjection(center model.Point, distance int, width, height float64) projection {
	cosLat := math.Cos(center.Lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	d := float64(distance)
	if d <= 0 {
		d = 1
	}
	return projection{
		center: center,
		cosLat: cosLat,
		scale:  math.Max(width, height) / (2 * d),
		width:  width,
		height: height,
	}
}

func (p projection) project(pt model.Point) Vec {
	x := (pt.Lon - p.center.Lon) * metersPerDegree * p.cosLat
	y := (pt.Lat - p.center.Lat) * metersPerDegree
	return Vec{X: p.width/2 + x*p.scale, Y: p.height/2 - y*p.scale}
}

func (p projection) ring(pts []model.Point) []Vec {
	out := make([]Vec, len(pts))
	for i, pt := range pts {
		out[i] = p.project(pt)
	}
	return out
}

// SceneOptions carries the non-map inputs of a poster.
type SceneOptions struct {
	Center          model.Point
	Distance        int
	WidthInches     float64
	HeightInches    float64
	City            string
	Country         string
	Palette         theme.Palette
	HideAttribution bool
}

// BuildScene lays out the map layers and typography.
func BuildScene(data *osm.MapData, opts SceneOptions) Scene {
	w := opts.WidthInches * pointsPerInch
	h := opts.HeightInches * pointsPerInch
	proj := newProjection(opts.Center, opts.Distance, w, h)
	p := opts.Palette

	s := Scene{
		Width:        w,
		Height:       h,
		Background:   p.Background,
		Gradient:     p.Gradient,
		FadeFraction: 0.25,
		DividerColor: p.Text,
		Divider:      [2]Vec{{X: 0.4 * w, Y: (1 - 0.125) * h}, {X: 0.6 * w, Y: (1 - 0.125) * h}},
	}

	if data != nil {
		for _, a := range data.Water {
			s.Water = append(s.Water, toPolygon(proj, a, p.Water))
		}
		for _, a := range data.Parks {
			s.Parks = append(s.Parks, toPolygon(proj, a, p.Parks))
		}
		for _, r := range data.Roads {
			s.Roads = append(s.Roads, Polyline{
				Points: proj.ring(r.Points),
				Stroke: roadColor(r.Highway, p),
				Width:  ClassifyHighway(r.Highway).Width(),
			})
		}
		// Minor roads first so major ones are painted on top.
		sort.SliceStable(s.Roads, func(i, j int) bool { return s.Roads[i].Width < s.Roads[j].Width })
	}

	s.Labels = []Label{
		{Text: SpacedCity(opts.City), X: w / 2, Y: (1 - 0.14) * h, Size: 60, Weight: WeightBold, Color: p.Text, Alpha: 1},
		{Text: strings.ToUpper(opts.Country), X: w / 2, Y: (1 - 0.10) * h, Size: 22, Weight: WeightLight, Color: p.Text, Alpha: 1},
		{Text: CoordinatesLabel(opts.Center), X: w / 2, Y: (1 - 0.07) * h, Size: 14, Weight: WeightRegular, Color: p.Text, Alpha: 0.7},
	}
	if !opts.HideAttribution {
		s.Labels = append(s.Labels, Label{
			Text: "© OpenStreetMap contributors", X: 0.995 * w, Y: (1 - 0.005) * h,
			Size: 8, Weight: WeightLight, Color: p.Text, Alpha: 0.5, Anchor: AnchorEnd,
		})
	}
	return s
}

func toPolygon(proj projection, a osm.Area, fill color.RGBA) Polygon {
	poly := Polygon{Fill: fill}
	for _, r := range a.Outer {
		poly.Outer = append(poly.Outer, proj.ring(r))
	}
	for _, r := range a.Inner {
		poly.Inner = append(poly.Inner, proj.ring(r))
	}
	return poly
}

// SpacedCity upper-cases name and separates its letters by two spaces.
func SpacedCity(name string) string {
	runes := []rune(strings.ToUpper(strings.TrimSpace(name)))
	parts := make([]string, len(runes))
	for i, r := range runes {
		parts[i] = string(r)
	}
	return strings.Join(parts, "  ")
}

// CoordinatesLabel formats a point as "48.8566° N / 2.3522° E".
func CoordinatesLabel(pt model.Point) string {
	ns, ew := "N", "E"
	if pt.Lat < 0 {
		ns = "S"
	}
	if pt.Lon < 0 {
		ew = "W"
	}
	return fmt.Sprintf("%.4f° %s / %.4f° %s", math.Abs(pt.Lat), ns, math.Abs(pt.Lon), ew)
}
