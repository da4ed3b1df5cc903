package render

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"image/color"
	"io"
	"strings"
)

// WriteSVG writes the scene as an SVG document measured in points.
func WriteSVG(w io.Writer, s Scene, family string) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) {
		fmt.Fprintf(bw, format, args...)
	}

	p(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	p(`<svg xmlns="http://www.w3.org/2000/svg" width="%.2fpt" height="%.2fpt" viewBox="0 0 %.2f %.2f">`+"\n", s.Width, s.Height, s.Width, s.Height)
	fade := fadeFraction(s)
	p(`<defs>`)
	p(`<linearGradient id="fade-top" x1="0" y1="0" x2="0" y2="1"><stop offset="0" stop-color="%s" stop-opacity="1"/><stop offset="1" stop-color="%s" stop-opacity="0"/></linearGradient>`, hex(s.Gradient), hex(s.Gradient))
	p(`<linearGradient id="fade-bottom" x1="0" y1="0" x2="0" y2="1"><stop offset="0" stop-color="%s" stop-opacity="0"/><stop offset="1" stop-color="%s" stop-opacity="1"/></linearGradient>`, hex(s.Gradient), hex(s.Gradient))
	p("</defs>\n")
	p(`<rect width="100%%" height="100%%" fill="%s"/>`+"\n", hex(s.Background))

	for _, layer := range [][]Polygon{s.Water, s.Parks} {
		for _, poly := range layer {
			var d strings.Builder
			for _, ring := range poly.Outer {
				writeRing(&d, ring)
			}
			for _, ring := range poly.Inner {
				writeRing(&d, ring)
			}
			if d.Len() > 0 {
				p(`<path d="%s" fill="%s" fill-rule="evenodd" stroke="none"/>`+"\n", d.String(), hex(poly.Fill))
			}
		}
	}

	var order []strokeKey
	groups := make(map[strokeKey]*strings.Builder)
	for _, l := range s.Roads {
		if len(l.Points) < 2 {
			continue
		}
		k := strokeKey{c: l.Stroke, w: l.Width}
		b, ok := groups[k]
		if !ok {
			b = &strings.Builder{}
			groups[k] = b
			order = append(order, k)
		}
		writePolyline(b, l.Points)
	}
	for _, k := range order {
		p(`<path d="%s" fill="none" stroke="%s" stroke-width="%.2f" stroke-linecap="round" stroke-linejoin="round"/>`+"\n", groups[k].String(), hex(k.c), k.w)
	}

	band := s.Height * fade
	p(`<rect x="0" y="0" width="%.2f" height="%.2f" fill="url(#fade-top)"/>`+"\n", s.Width, band)
	p(`<rect x="0" y="%.2f" width="%.2f" height="%.2f" fill="url(#fade-bottom)"/>`+"\n", s.Height-band, s.Width, band)
	p(`<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="1"/>`+"\n",
		s.Divider[0].X, s.Divider[0].Y, s.Divider[1].X, s.Divider[1].Y, hex(s.DividerColor))

	for _, l := range s.Labels {
		anchor := "middle"
		if l.Anchor == AnchorEnd {
			anchor = "end"
		}
		var text strings.Builder
		if err := xml.EscapeText(&text, []byte(l.Text)); err != nil {
			return err
		}
		p(`<text x="%.2f" y="%.2f" font-family="%s" font-weight="%s" font-size="%.1f" fill="%s" fill-opacity="%.2f" text-anchor="%s">%s</text>`+"\n",
			l.X, l.Y, family, svgWeight(l.Weight), l.Size, hex(l.Color), l.Alpha, anchor, text.String())
	}
	p("</svg>\n")
	return bw.Flush()
}

func fadeFraction(s Scene) float64 {
	if s.FadeFraction <= 0 {
		return 0.25
	}
	return s.FadeFraction
}

func writeRing(b *strings.Builder, pts []Vec) {
	if len(pts) < 3 {
		return
	}
	writePolyline(b, pts)
	b.WriteString("Z")
}

func writePolyline(b *strings.Builder, pts []Vec) {
	for i, pt := range pts {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(b, "%s%.2f %.2f", cmd, pt.X, pt.Y)
	}
}

func svgWeight(w FontWeight) string {
	switch w {
	case WeightBold:
		return "bold"
	case WeightLight:
		return "300"
	default:
		return "normal"
	}
}

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}
