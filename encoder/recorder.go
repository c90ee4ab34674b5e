package encoder

import (
	"errors"
	"fmt"
	"image"
	"os"
	"time"

	"slidecast/config"
	"slidecast/types"

	"github.com/icza/mjpeg"
)

// Recorder captures a raster at a fixed frame rate, plus optional audio,
// into a finished container.
type Recorder interface {
	WriteFrame(frame *image.RGBA) error
	WriteAudio(chunk *types.AudioBuffer) error
	// Finish finalizes the container and returns its bytes
	Finish() ([]byte, error)
	// Abort releases resources without producing output
	Abort()
	Container() string
}

// MP4Recorder records MJPEG video and PCM audio into an MP4 file
type MP4Recorder struct {
	mux    *MP4Muxer
	video  VideoEncoder
	audio  AudioEncoder
	fps    int
	frames int64
}

// NewMP4Recorder creates a recorder; audio may be nil for a video-only file
func NewMP4Recorder(v VideoConfig, a *AudioConfig) (*MP4Recorder, error) {
	mux := NewMP4Muxer()
	vTrack := mux.AddTrack(TrackSpec{Kind: TrackVideo, Format: "mjpeg", Width: v.Width, Height: v.Height, Bitrate: v.Bitrate})
	video, err := MJPEG{}.NewEncoder(v, mux.Sink(vTrack))
	if err != nil {
		return nil, err
	}
	r := &MP4Recorder{mux: mux, video: video, fps: v.FPS}

	if a != nil {
		aTrack := mux.AddTrack(TrackSpec{Kind: TrackAudio, Format: "pcm", SampleRate: a.SampleRate, Channels: a.Channels})
		if r.audio, err = (PCM{}).NewEncoder(*a, mux.Sink(aTrack)); err != nil {
			video.Close()
			return nil, err
		}
	}
	return r, nil
}

func (r *MP4Recorder) Container() string { return "mp4" }

func (r *MP4Recorder) WriteFrame(frame *image.RGBA) error {
	pts := time.Duration(r.frames) * frameDuration(r.fps)
	r.frames++
	return r.video.Encode(frame, pts, true)
}

func (r *MP4Recorder) WriteAudio(chunk *types.AudioBuffer) error {
	if r.audio == nil {
		return nil
	}
	return r.audio.Encode(chunk)
}

func (r *MP4Recorder) Finish() ([]byte, error) {
	var errs []error
	errs = append(errs, r.video.Flush())
	if r.audio != nil {
		errs = append(errs, r.audio.Flush())
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return r.mux.Finalize()
}

func (r *MP4Recorder) Abort() {
	r.video.Close()
	if r.audio != nil {
		r.audio.Close()
	}
}

// AVIRecorder records video-only MJPEG into an AVI container
type AVIRecorder struct {
	path    string
	writer  mjpeg.AviWriter
	quality int
}

// NewAVIRecorder opens a temporary AVI file
func NewAVIRecorder(v VideoConfig) (*AVIRecorder, error) {
	f, err := os.CreateTemp("", "slidecast-*.avi")
	if err != nil {
		return nil, err
	}
	path := f.Name()
	f.Close()

	w, err := mjpeg.New(path, int32(v.Width), int32(v.Height), int32(v.FPS))
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to create avi writer: %w", err)
	}
	return &AVIRecorder{path: path, writer: w, quality: config.JPEGQuality}, nil
}

func (r *AVIRecorder) Container() string { return "avi" }

func (r *AVIRecorder) WriteFrame(frame *image.RGBA) error {
	data, err := EncodeJPEG(frame, r.quality)
	if err != nil {
		return err
	}
	return r.writer.AddFrame(data)
}

func (r *AVIRecorder) WriteAudio(chunk *types.AudioBuffer) error {
	if chunk.Frames() == 0 {
		return nil
	}
	return fmt.Errorf("%w: avi recorder has no audio track", ErrUnsupported)
}

func (r *AVIRecorder) Finish() ([]byte, error) {
	defer os.Remove(r.path)
	if err := r.writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize avi: %w", err)
	}
	return os.ReadFile(r.path)
}

func (r *AVIRecorder) Abort() {
	r.writer.Close()
	os.Remove(r.path)
}
