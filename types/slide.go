package types

import (
	"context"
	"image"
	"time"
)

// FrameSource produces the visual content of a slide.
// Duration is known before Open; Size is valid after Open.
type FrameSource interface {
	Open(ctx context.Context) error
	Size() (width, height int)
	// Duration is the intrinsic length of a playable clip, zero for stills
	Duration() time.Duration
	// Frame returns the bitmap at t; past the end a clip holds its final frame
	Frame(ctx context.Context, t time.Duration) (image.Image, error)
	Close() error
}

// AudioSource is implemented by visuals that carry their own audio track.
type AudioSource interface {
	DecodeAudio(ctx context.Context, sampleRate, channels int) (*AudioBuffer, error)
}

// Slide is one ordered timeline unit
type Slide struct {
	ID        string
	Visual    FrameSource
	Narration *AudioBuffer
	Script    string
	// Subtitle is shown verbatim when the script yields no chunks
	Subtitle string
}

// IsClip reports whether the slide's visual is a playable clip
func (s Slide) IsClip() bool {
	return s.Visual != nil && s.Visual.Duration() > 0
}
