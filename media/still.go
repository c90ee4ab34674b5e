package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Still is a static image visual. It decodes lazily on Open.
type Still struct {
	ref     string
	fetcher *Fetcher
	img     image.Image
}

// NewStill references an image to be fetched and decoded on Open
func NewStill(ref string, fetcher *Fetcher) *Still {
	return &Still{ref: ref, fetcher: fetcher}
}

// NewStillImage wraps an already decoded image
func NewStillImage(img image.Image) *Still {
	return &Still{img: img}
}

// Blank is a visual that draws only the background
func Blank() *Still {
	return &Still{}
}

func (s *Still) Open(ctx context.Context) error {
	if s.img != nil || s.ref == "" {
		return nil
	}
	data, err := s.fetcher.Read(ctx, s.ref)
	if err != nil {
		return err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode image %s: %w", s.ref, err)
	}
	s.img = img
	return nil
}

func (s *Still) Size() (int, int) {
	if s.img == nil {
		return 0, 0
	}
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *Still) Duration() time.Duration { return 0 }

func (s *Still) Frame(context.Context, time.Duration) (image.Image, error) {
	if s.img == nil {
		return nil, nil
	}
	return s.img, nil
}

func (s *Still) Close() error {
	if s.ref != "" {
		s.img = nil
	}
	return nil
}
