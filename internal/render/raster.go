package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Rasterize draws the scene at dpi. When the result would exceed maxPixels the
// resolution is reduced proportionally.
func Rasterize(s Scene, dpi float64, maxPixels int, fonts *FontSet) (*image.RGBA, error) {
	scale := dpi / pointsPerInch
	if maxPixels > 0 {
		if px := s.Width * scale * s.Height * scale; px > float64(maxPixels) {
			scale *= math.Sqrt(float64(maxPixels) / px)
		}
	}
	w := int(math.Round(s.Width * scale))
	h := int(math.Round(s.Height * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(s.Background), image.Point{}, draw.Src)

	r := &rasterizer{img: img, z: vector.NewRasterizer(w, h), scale: scale}
	for _, p := range s.Water {
		r.fill(p)
	}
	for _, p := range s.Parks {
		r.fill(p)
	}
	r.strokeAll(s.Roads)
	r.fades(s.Gradient, s.FadeFraction)
	r.stroke([]Polyline{{Points: s.Divider[:], Stroke: s.DividerColor, Width: 1}})

	for _, l := range s.Labels {
		if err := r.label(l, fonts); err != nil {
			return nil, err
		}
	}
	return img, nil
}

type rasterizer struct {
	img   *image.RGBA
	z     *vector.Rasterizer
	scale float64
}

func (r *rasterizer) reset() {
	b := r.img.Bounds()
	r.z.Reset(b.Dx(), b.Dy())
}

func (r *rasterizer) ring(pts []Vec, reverse bool) {
	if len(pts) < 3 {
		return
	}
	at := func(i int) Vec {
		if reverse {
			return pts[len(pts)-1-i]
		}
		return pts[i]
	}
	first := at(0)
	r.z.MoveTo(float32(first.X*r.scale), float32(first.Y*r.scale))
	for i := 1; i < len(pts); i++ {
		p := at(i)
		r.z.LineTo(float32(p.X*r.scale), float32(p.Y*r.scale))
	}
	r.z.ClosePath()
}

func (r *rasterizer) fill(p Polygon) {
	if len(p.Outer) == 0 {
		return
	}
	r.reset()
	outerSign := signedArea(p.Outer[0]) >= 0
	for _, ring := range p.Outer {
		r.ring(ring, (signedArea(ring) >= 0) != outerSign)
	}
	// Holes wind against the outer ring so the accumulated coverage cancels.
	for _, ring := range p.Inner {
		r.ring(ring, (signedArea(ring) >= 0) == outerSign)
	}
	r.z.Draw(r.img, r.img.Bounds(), image.NewUniform(p.Fill), image.Point{})
}

type strokeKey struct {
	c color.RGBA
	w float64
}

// strokeAll draws roads grouped by colour and width, keeping the input order
// of the groups so wider tiers still land on top.
func (r *rasterizer) strokeAll(lines []Polyline) {
	var order []strokeKey
	groups := make(map[strokeKey][]Polyline)
	for _, l := range lines {
		k := strokeKey{c: l.Stroke, w: l.Width}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], l)
	}
	for _, k := range order {
		r.stroke(groups[k])
	}
}

// stroke draws lines that share colour and width in one rasterizer pass. Each
// segment becomes a quad extended by half the width at both ends, which
// closes the gaps at joins for the thin widths posters use.
func (r *rasterizer) stroke(lines []Polyline) {
	if len(lines) == 0 {
		return
	}
	r.reset()
	half := math.Max(lines[0].Width*r.scale/2, 0.5)
	for _, l := range lines {
		for i := 1; i < len(l.Points); i++ {
			a := Vec{X: l.Points[i-1].X * r.scale, Y: l.Points[i-1].Y * r.scale}
			b := Vec{X: l.Points[i].X * r.scale, Y: l.Points[i].Y * r.scale}
			dx, dy := b.X-a.X, b.Y-a.Y
			length := math.Hypot(dx, dy)
			if length == 0 {
				continue
			}
			ux, uy := dx/length*half, dy/length*half
			nx, ny := -uy, ux
			a.X, a.Y = a.X-ux, a.Y-uy
			b.X, b.Y = b.X+ux, b.Y+uy
			r.z.MoveTo(float32(a.X+nx), float32(a.Y+ny))
			r.z.LineTo(float32(b.X+nx), float32(b.Y+ny))
			r.z.LineTo(float32(b.X-nx), float32(b.Y-ny))
			r.z.LineTo(float32(a.X-nx), float32(a.Y-ny))
			r.z.ClosePath()
		}
	}
	r.z.Draw(r.img, r.img.Bounds(), image.NewUniform(lines[0].Stroke), image.Point{})
}

// fades blends the gradient colour over the top and bottom edges, fully
// opaque at the border and transparent fraction*height inwards.
func (r *rasterizer) fades(c color.RGBA, fraction float64) {
	b := r.img.Bounds()
	band := int(math.Round(float64(b.Dy()) * fraction))
	if band <= 0 {
		return
	}
	for i := 0; i < band; i++ {
		alpha := uint8(math.Round(255 * (1 - float64(i)/float64(band))))
		if alpha == 0 {
			continue
		}
		src := image.NewUniform(color.NRGBA{R: c.R, G: c.G, B: c.B, A: alpha})
		top := image.Rect(b.Min.X, b.Min.Y+i, b.Max.X, b.Min.Y+i+1)
		bottom := image.Rect(b.Min.X, b.Max.Y-1-i, b.Max.X, b.Max.Y-i)
		draw.Draw(r.img, top, src, image.Point{}, draw.Over)
		draw.Draw(r.img, bottom, src, image.Point{}, draw.Over)
	}
}

func (r *rasterizer) label(l Label, fonts *FontSet) error {
	if l.Text == "" {
		return nil
	}
	size := l.Size * r.scale
	face, err := fonts.Face(l.Weight, size)
	if err != nil {
		return err
	}
	width := float64(font.MeasureString(face, l.Text)) / 64
	// Long city names shrink to fit 90% of the poster width.
	maxWidth := 0.9 * float64(r.img.Bounds().Dx())
	if width > maxWidth && width > 0 {
		size *= maxWidth / width
		if face, err = fonts.Face(l.Weight, size); err != nil {
			return err
		}
		width = float64(font.MeasureString(face, l.Text)) / 64
	}

	x := l.X * r.scale
	switch l.Anchor {
	case AnchorMiddle:
		x -= width / 2
	case AnchorEnd:
		x -= width
	}
	d := &font.Drawer{
		Dst:  r.img,
		Src:  image.NewUniform(color.NRGBA{R: l.Color.R, G: l.Color.G, B: l.Color.B, A: uint8(math.Round(255 * l.Alpha))}),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(l.Y * r.scale * 64)},
	}
	d.DrawString(l.Text)
	return nil
}

func signedArea(pts []Vec) float64 {
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return sum / 2
}
