package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var robotoFiles = map[FontWeight]string{
	WeightBold:    "Roboto-Bold.ttf",
	WeightRegular: "Roboto-Regular.ttf",
	WeightLight:   "Roboto-Light.ttf",
}

type faceKey struct {
	weight FontWeight
	size   float64
}

// FontSet holds the three poster typefaces and caches sized faces.
type FontSet struct {
	fonts map[FontWeight]*opentype.Font
	// Family is the CSS family name written into SVG output.
	Family string

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

// LoadFonts reads the Roboto family from dir. When any file is missing or
// unparsable the embedded Go fonts are used instead, so rendering never
// depends on the fonts directory being present.
func LoadFonts(dir string) (*FontSet, error) {
	fonts := make(map[FontWeight]*opentype.Font, len(robotoFiles))
	for weight, name := range robotoFiles {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return GoFonts(), fmt.Errorf("read font %s: %w", name, err)
		}
		f, err := opentype.Parse(data)
		if err != nil {
			return GoFonts(), fmt.Errorf("parse font %s: %w", name, err)
		}
		fonts[weight] = f
	}
	return &FontSet{fonts: fonts, Family: "Roboto", faces: make(map[faceKey]font.Face)}, nil
}

// GoFonts returns the embedded Go font family.
func GoFonts() *FontSet {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		panic(err)
	}
	return &FontSet{
		fonts: map[FontWeight]*opentype.Font{
			WeightRegular: regular,
			WeightBold:    bold,
			WeightLight:   regular,
		},
		Family: "Go, sans-serif",
		faces:  make(map[faceKey]font.Face),
	}
}

// Face returns a face for weight at size pixels.
func (f *FontSet) Face(weight FontWeight, size float64) (font.Face, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := faceKey{weight: weight, size: size}
	if face, ok := f.faces[key]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f.fonts[weight], &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, err
	}
	f.faces[key] = face
	return face, nil
}
