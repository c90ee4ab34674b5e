package encoder

import (
	"errors"
	"image"
	"time"

	"slidecast/types"
)

var (
	// ErrNoCodec is returned when no registered codec supports a config
	ErrNoCodec = errors.New("no supported codec")
	// ErrUnsupported is returned when a codec rejects a config at creation
	ErrUnsupported = errors.New("codec configuration not supported")
	// ErrClosed is returned when submitting to a flushed encoder
	ErrClosed = errors.New("encoder closed")
)

// TrackKind distinguishes muxer tracks
type TrackKind string

const (
	TrackVideo TrackKind = "vide"
	TrackAudio TrackKind = "soun"
)

// Unit is one encoded frame or audio packet
type Unit struct {
	Track    int
	Data     []byte
	PTS      time.Duration
	Duration time.Duration
	Key      bool
	// Samples is the number of PCM frames carried by an uncompressed audio unit
	Samples int
	// Config is the decoder configuration record, set on the first key unit
	Config []byte
}

// Sink receives encoded units in decode order
type Sink func(Unit) error

// VideoConfig describes the raw input and target of a video encoder
type VideoConfig struct {
	Width   int
	Height  int
	FPS     int
	Bitrate int
	// KeyframeInterval is the distance between keyframes in frames
	KeyframeInterval int
}

// AudioConfig describes the raw input and target of an audio encoder
type AudioConfig struct {
	SampleRate int
	Channels   int
	Bitrate    int
}

// Queue exposes the pending depth of an asynchronous encoder. Dequeued
// fires after each processed item so producers can wait without polling.
type Queue interface {
	QueueSize() int
	Dequeued() <-chan struct{}
}

// VideoEncoder consumes RGBA frames. Frames are copied on submit.
type VideoEncoder interface {
	Queue
	Encode(frame *image.RGBA, pts time.Duration, key bool) error
	// Flush waits until every submitted frame reached the sink
	Flush() error
	Close() error
}

// AudioEncoder consumes planar PCM chunks in timeline order
type AudioEncoder interface {
	Queue
	Encode(chunk *types.AudioBuffer) error
	Flush() error
	Close() error
}

// VideoCodec creates video encoders and reports platform support
type VideoCodec interface {
	Name() string
	// Format is the muxer sample entry family ("avc", "mjpeg")
	Format() string
	Supported(cfg VideoConfig) bool
	NewEncoder(cfg VideoConfig, sink Sink) (VideoEncoder, error)
}

// AudioCodec creates audio encoders and reports platform support
type AudioCodec interface {
	Name() string
	Format() string
	Supported(cfg AudioConfig) bool
	NewEncoder(cfg AudioConfig, sink Sink) (AudioEncoder, error)
}

func frameDuration(fps int) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Second / time.Duration(fps)
}
