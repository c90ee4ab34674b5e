package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"slidecast/audio"
	"slidecast/config"
	"slidecast/types"

	"github.com/goccy/go-yaml"
	"golang.org/x/sync/errgroup"
)

// LoadManifest reads a JSON or YAML manifest file
func LoadManifest(path string) (*types.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data, filepath.Ext(path))
}

// ParseManifest decodes a manifest. ext selects the format (".json",
// ".yaml", ".yml"); anything else is sniffed.
func ParseManifest(data []byte, ext string) (*types.Manifest, error) {
	var m types.Manifest
	var err error

	switch strings.ToLower(ext) {
	case ".json":
		err = json.Unmarshal(data, &m)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	default:
		if trimmed := strings.TrimSpace(string(data)); strings.HasPrefix(trimmed, "{") {
			err = json.Unmarshal(data, &m)
		} else {
			err = yaml.Unmarshal(data, &m)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks references and fills default output size
func Validate(m *types.Manifest) error {
	if m.Width == 0 && m.Height == 0 {
		m.Width, m.Height = config.DefaultWidth, config.DefaultHeight
	}
	if m.Width <= 0 || m.Height <= 0 || m.Width > config.MaxDimension || m.Height > config.MaxDimension {
		return fmt.Errorf("invalid output size %dx%d", m.Width, m.Height)
	}

	var errs []error
	for i, s := range m.Slides {
		if s.Image != "" && s.Clip != "" {
			errs = append(errs, fmt.Errorf("slide %d: image and clip are mutually exclusive", i))
		}
		if s.Image == "" && s.Clip == "" {
			errs = append(errs, fmt.Errorf("slide %d: image or clip is required", i))
		}
		if m.Slides[i].ID == "" {
			m.Slides[i].ID = fmt.Sprintf("slide-%d", i+1)
		}
	}
	return errors.Join(errs...)
}

// BuildSlides resolves a manifest into engine slides. Narration is decoded
// up front and clips are probed so the timeline can be built. A clip or
// narration that cannot be loaded is logged and dropped from its slide.
func BuildSlides(ctx context.Context, m *types.Manifest, f *Fetcher) ([]types.Slide, error) {
	slides := make([]types.Slide, len(m.Slides))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.PreloadConcurrency)

	for i, spec := range m.Slides {
		g.Go(func() error {
			s := types.Slide{
				ID:       spec.ID,
				Script:   spec.Script,
				Subtitle: spec.Subtitle,
			}

			switch {
			case spec.Clip != "":
				s.Visual = loadClip(gctx, spec, f)
			default:
				s.Visual = NewStill(spec.Image, f)
			}

			if spec.Narration != "" {
				s.Narration = loadNarration(gctx, spec, f)
			}
			if err := gctx.Err(); err != nil {
				return err
			}

			slides[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slides, nil
}

func loadClip(ctx context.Context, spec types.SlideSpec, f *Fetcher) types.FrameSource {
	path, err := f.Local(ctx, spec.Clip)
	if err != nil {
		log.Printf("[Media] Warning: clip %s for %s unavailable: %v", spec.Clip, spec.ID, err)
		return Blank()
	}
	clip, err := NewClip(path)
	if err != nil {
		log.Printf("[Media] Warning: clip %s for %s unreadable: %v", spec.Clip, spec.ID, err)
		return Blank()
	}
	return clip
}

func loadNarration(ctx context.Context, spec types.SlideSpec, f *Fetcher) *types.AudioBuffer {
	path, err := f.Local(ctx, spec.Narration)
	if err != nil {
		log.Printf("[Media] Warning: narration %s for %s unavailable: %v", spec.Narration, spec.ID, err)
		return nil
	}
	buf, err := audio.DecodeFile(ctx, path, config.SampleRate, config.Channels)
	if err != nil {
		log.Printf("[Media] Warning: narration for %s dropped: %v", spec.ID, err)
		return nil
	}
	return buf
}
