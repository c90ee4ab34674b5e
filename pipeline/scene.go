package pipeline

import (
	"context"
	"image"
	"log"
	"sync"
	"time"

	"slidecast/config"
	"slidecast/render"
	"slidecast/subtitle"

	"golang.org/x/sync/errgroup"
)

// scene resolves what is on screen at a timeline instant
type scene struct {
	job      *Job
	renderer *render.Renderer
	tracks   []subtitle.Track
	stills   []*render.Prescaled
	opened   []bool
	// broken marks clips whose frames failed to decode; they draw blank
	broken []bool
}

func newScene(job *Job) (*scene, error) {
	w, h := job.Size()
	r, err := render.New(render.Options{
		Width:      w,
		Height:     h,
		Style:      job.Style,
		Subtitles:  job.IncludeSubtitles,
		Background: job.Background,
	})
	if err != nil {
		return nil, err
	}

	n := len(job.Slides)
	s := &scene{
		job:      job,
		renderer: r,
		tracks:   make([]subtitle.Track, n),
		stills:   make([]*render.Prescaled, n),
		opened:   make([]bool, n),
		broken:   make([]bool, n),
	}
	maxChars := subtitle.MaxChars(w, h)
	for i, seg := range job.Timeline.Segments {
		sl := job.Slides[i]
		s.tracks[i] = subtitle.NewTrack(sl.Script, sl.Subtitle, seg.Content, maxChars)
	}
	return s, nil
}

// preload opens every visual concurrently and prescales stills. A visual
// that fails to open is logged and drawn as background only. Visuals are
// opened with ctx, not the group context, because clips keep decoding
// after the group has finished.
func (s *scene) preload(ctx context.Context, onDone func(done, total int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.PreloadConcurrency)

	total := 0
	for _, sl := range s.job.Slides {
		if sl.Visual != nil {
			total++
		}
	}

	var mu sync.Mutex
	done := 0
	for i, sl := range s.job.Slides {
		if sl.Visual == nil {
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if err := sl.Visual.Open(ctx); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Printf("[Scene] Warning: slide %d (%s) visual unavailable, drawing blank: %v", i+1, sl.ID, err)
			} else {
				s.opened[i] = true
				if !sl.IsClip() {
					if img, err := sl.Visual.Frame(gctx, 0); err == nil && img != nil {
						s.stills[i] = s.renderer.Prescale(img)
					}
				}
			}

			mu.Lock()
			done++
			if onDone != nil {
				onDone(done, total)
			}
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// draw renders the instant t into dst and returns the slide index shown
func (s *scene) draw(ctx context.Context, dst *image.RGBA, t time.Duration) (int, error) {
	idx, local, ok := s.job.Timeline.Locate(t)
	if !ok {
		s.renderer.Draw(dst, nil, "")
		return -1, nil
	}

	var frame image.Image
	switch {
	case !s.opened[idx], s.broken[idx]:
	case s.stills[idx] != nil:
		frame = s.stills[idx]
	default:
		img, err := s.job.Slides[idx].Visual.Frame(ctx, local)
		if err != nil {
			if ctx.Err() != nil {
				return idx, ctx.Err()
			}
			sl := s.job.Slides[idx]
			log.Printf("[Scene] Warning: slide %d (%s) frame at %v failed, drawing blank: %v", idx+1, sl.ID, local, err)
			s.broken[idx] = true
			break
		}
		frame = img
	}

	s.renderer.Draw(dst, frame, s.tracks[idx].Text(local))
	return idx, nil
}

func (s *scene) close() {
	for i, sl := range s.job.Slides {
		if s.opened[i] {
			if err := sl.Visual.Close(); err != nil {
				log.Printf("[Scene] Warning: closing slide %d: %v", i+1, err)
			}
		}
	}
	s.renderer.Close()
}
