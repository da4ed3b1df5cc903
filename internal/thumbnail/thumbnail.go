// Package thumbnail produces reduced JPEG copies of posters and 3x3 collages
// of those copies.
package thumbnail

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"github.com/dharsanguruparan/MapPoster/internal/fsutil"
)

// Quality is the JPEG quality of every thumbnail and collage.
const Quality = 85

// ErrAlreadySmall reports that the source does not exceed the requested size;
// no thumbnail is written. It is informational, not a failure.
var ErrAlreadySmall = errors.New("image already smaller than requested size")

// Generate writes {dir}/{stem}.jpg whose longest side equals maxDimension and
// returns its path.
func Generate(imagePath, dir string, maxDimension int) (string, error) {
	if maxDimension <= 0 {
		return "", fmt.Errorf("invalid thumbnail size %d", maxDimension)
	}
	src, err := decode(imagePath)
	if err != nil {
		return "", err
	}
	b := src.Bounds()
	longest := max(b.Dx(), b.Dy())
	if longest <= maxDimension {
		return "", ErrAlreadySmall
	}
	scale := float64(maxDimension) / float64(longest)
	w := max(1, int(float64(b.Dx())*scale))
	h := max(1, int(float64(b.Dy())*scale))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	stem := strings.TrimSuffix(filepath.Base(imagePath), filepath.Ext(imagePath))
	out := filepath.Join(dir, stem+".jpg")
	if err := writeJPEG(out, dst); err != nil {
		return "", err
	}
	return out, nil
}

// Grid is the collage layout.
const (
	GridCols = 3
	GridRows = 3
)

// Collages arranges thumbs into 3x3 grids, written as collage_{n}.jpg in dir.
// Cells are sized to the largest thumbnail in each chunk; smaller images are
// centered on white.
func Collages(thumbs []string, dir string) ([]string, error) {
	per := GridCols * GridRows
	var out []string
	for start := 0; start < len(thumbs); start += per {
		end := min(start+per, len(thumbs))
		images := make([]image.Image, 0, end-start)
		cellW, cellH := 0, 0
		for _, path := range thumbs[start:end] {
			img, err := decode(path)
			if err != nil {
				return out, err
			}
			images = append(images, img)
			cellW = max(cellW, img.Bounds().Dx())
			cellH = max(cellH, img.Bounds().Dy())
		}

		canvas := image.NewRGBA(image.Rect(0, 0, cellW*GridCols, cellH*GridRows))
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
		for i, img := range images {
			col, row := i%GridCols, i/GridCols
			b := img.Bounds()
			x := col*cellW + (cellW-b.Dx())/2
			y := row*cellH + (cellH-b.Dy())/2
			draw.Draw(canvas, image.Rect(x, y, x+b.Dx(), y+b.Dy()), img, b.Min, draw.Src)
		}

		path := filepath.Join(dir, fmt.Sprintf("collage_%d.jpg", start/per+1))
		if err := writeJPEG(path, canvas); err != nil {
			return out, err
		}
		out = append(out, path)
	}
	return out, nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func writeJPEG(path string, img image.Image) error {
	return fsutil.WriteAtomic(path, func(w io.Writer) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: Quality})
	})
}
