package render

import (
	"fmt"
	"log"
	"math"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var bundledFonts = map[string][]byte{
	"go":         goregular.TTF,
	"sans":       goregular.TTF,
	"sans-serif": goregular.TTF,
	"go bold":    gobold.TTF,
	"bold":       gobold.TTF,
	"go medium":  gomedium.TTF,
	"go mono":    gomono.TTF,
	"mono":       gomono.TTF,
	"monospace":  gomono.TTF,
}

// faceCache hands out faces of one font at integer pixel sizes
type faceCache struct {
	mu    sync.Mutex
	font  *opentype.Font
	faces map[int]font.Face
}

// loadFont resolves a font file path first, then a bundled family name
func loadFont(family, path string) (*faceCache, error) {
	var data []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read font file: %w", err)
		}
		data = b
	} else {
		b, ok := bundledFonts[strings.ToLower(strings.TrimSpace(family))]
		if !ok {
			log.Printf("[Renderer] Warning: unknown font family %q, using Go regular", family)
			b = goregular.TTF
		}
		data = b
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return &faceCache{font: f, faces: make(map[int]font.Face)}, nil
}

// Face returns a face of roughly px pixels
func (c *faceCache) Face(px float64) (font.Face, error) {
	size := max(int(math.Round(px)), 6)

	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.faces[size]; ok {
		return f, nil
	}
	face, err := opentype.NewFace(c.font, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	c.faces[size] = face
	return face, nil
}

// Close releases every cached face
func (c *faceCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, f := range c.faces {
		f.Close()
		delete(c.faces, k)
	}
}
