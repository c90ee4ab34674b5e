package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"slidecast/config"
	"slidecast/encoder"
	"slidecast/timeline"
	"slidecast/types"
)

// ErrNoRaster is returned when the drawing surface cannot be obtained
var ErrNoRaster = errors.New("raster surface unavailable")

// Job is one export handed to a pipeline
type Job struct {
	Slides           []types.Slide
	Timeline         timeline.Timeline
	Width            int
	Height           int
	Style            types.SubtitleStyle
	IncludeSubtitles bool
	Background       string
	// Surface, when set, is drawn into and defines the output size
	Surface  *image.RGBA
	Progress types.ProgressFunc
}

// Result is a finished container
type Result struct {
	Data       []byte
	Container  string
	Pipeline   string
	VideoCodec string
	AudioCodec string
	Frames     int
	Duration   time.Duration
}

// ExportPipeline turns a job into a muxed file
type ExportPipeline interface {
	Name() string
	// Available reports whether the pipeline can run the job on this host
	Available(job *Job) bool
	Run(ctx context.Context, job *Job) (*Result, error)
}

// Size returns the output dimensions
func (j *Job) Size() (int, int) {
	if j.Surface != nil {
		b := j.Surface.Bounds()
		return b.Dx(), b.Dy()
	}
	return j.Width, j.Height
}

func (j *Job) raster() (*image.RGBA, error) {
	if j.Surface != nil {
		if j.Surface.Bounds().Empty() || j.Surface.Bounds().Min != (image.Point{}) {
			return nil, fmt.Errorf("%w: surface bounds %v", ErrNoRaster, j.Surface.Bounds())
		}
		return j.Surface, nil
	}
	w, h := j.Size()
	if w <= 0 || h <= 0 || w > config.MaxDimension || h > config.MaxDimension {
		return nil, fmt.Errorf("%w: %dx%d", ErrNoRaster, w, h)
	}
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

func (j *Job) report(pct float64, status string) {
	if j.Progress != nil {
		j.Progress(pct, status)
	}
}

// waitQueue blocks while the encoder holds more than high pending items
func waitQueue(ctx context.Context, q encoder.Queue, high int) error {
	for q.QueueSize() > high {
		select {
		case <-q.Dequeued():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// framePTS is the presentation time of frame i at fps
func framePTS(i, fps int) time.Duration {
	return time.Duration(int64(i) * int64(time.Second) / int64(fps))
}
