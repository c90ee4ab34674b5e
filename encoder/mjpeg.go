package encoder

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"slidecast/config"
)

// MJPEG is the in-process fallback video codec: every frame is a JPEG keyframe
type MJPEG struct {
	Quality int
}

func (MJPEG) Name() string   { return "mjpeg" }
func (MJPEG) Format() string { return "mjpeg" }

func (MJPEG) Supported(cfg VideoConfig) bool {
	return cfg.Width > 0 && cfg.Height > 0 && cfg.Width <= config.MaxDimension && cfg.Height <= config.MaxDimension
}

type videoJob struct {
	frame *image.RGBA
	pts   time.Duration
	key   bool
}

type mjpegEncoder struct {
	*workQueue[videoJob]
	cfg     VideoConfig
	quality int
	sink    Sink
}

func (c MJPEG) NewEncoder(cfg VideoConfig, sink Sink) (VideoEncoder, error) {
	if !c.Supported(cfg) {
		return nil, fmt.Errorf("%w: mjpeg %dx%d", ErrUnsupported, cfg.Width, cfg.Height)
	}
	q := c.Quality
	if q <= 0 {
		q = config.JPEGQuality
	}
	e := &mjpegEncoder{cfg: cfg, quality: q, sink: sink}
	e.workQueue = newWorkQueue(config.VideoQueueHighWater*2, e.encode)
	return e, nil
}

func (e *mjpegEncoder) Encode(frame *image.RGBA, pts time.Duration, key bool) error {
	return e.submit(videoJob{frame: copyFrame(frame), pts: pts, key: key})
}

func (e *mjpegEncoder) encode(j videoJob) error {
	data, err := EncodeJPEG(j.frame, e.quality)
	if err != nil {
		return err
	}
	return e.sink(Unit{
		Data:     data,
		PTS:      j.pts,
		Duration: frameDuration(e.cfg.FPS),
		Key:      true,
	})
}

func (e *mjpegEncoder) Flush() error { return e.drain() }
func (e *mjpegEncoder) Close() error {
	e.drain()
	return nil
}

// EncodeJPEG compresses a frame at the given quality
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

func copyFrame(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Rect)
	if src.Stride == dst.Stride {
		copy(dst.Pix, src.Pix)
		return dst
	}
	w := src.Rect.Dx() * 4
	for y := 0; y < src.Rect.Dy(); y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+w], src.Pix[y*src.Stride:y*src.Stride+w])
	}
	return dst
}
