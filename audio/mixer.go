package audio

import (
	"context"
	"log"
	"time"

	"slidecast/config"
	"slidecast/timeline"
	"slidecast/types"
)

// MixStats summarizes a mix
type MixStats struct {
	// Silent is true when no slide contributed an audible sample
	Silent bool
	// Sources counts slides that contributed audio
	Sources int
	// Failed counts slides whose embedded audio could not be decoded
	Failed int
}

// Mixer renders every slide's audio onto one continuous buffer
type Mixer struct {
	SampleRate int
	Channels   int
}

// NewMixer returns a mixer at the configured output layout
func NewMixer() *Mixer {
	return &Mixer{SampleRate: config.SampleRate, Channels: config.Channels}
}

// FramesFor converts a duration to a sample frame count, rounding up
func FramesFor(d time.Duration, sampleRate int) int {
	if d <= 0 {
		return 0
	}
	n := int64(d) * int64(sampleRate)
	return int((n + int64(time.Second) - 1) / int64(time.Second))
}

// FrameAt returns the sample frame an instant falls in
func FrameAt(d time.Duration, sampleRate int) int {
	if d <= 0 {
		return 0
	}
	return int(int64(d) * int64(sampleRate) / int64(time.Second))
}

// Mix produces a buffer spanning tl.Total. Narration is scheduled at each
// slide's start; otherwise a clip's embedded audio is decoded and scheduled,
// truncated to the slide's content. Decode failures contribute silence.
func (m *Mixer) Mix(ctx context.Context, slides []types.Slide, tl timeline.Timeline) (*types.AudioBuffer, MixStats, error) {
	out := types.NewAudioBuffer(m.SampleRate, m.Channels, FramesFor(tl.Total, m.SampleRate))
	stats := MixStats{Silent: true}

	for i, seg := range tl.Segments {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		src, narrated, err := SourceFor(ctx, slides[i], m.SampleRate, m.Channels)
		if err != nil {
			log.Printf("[Mixer] slide %d (%s): audio decode failed, using silence: %v", i+1, slides[i].ID, err)
			stats.Failed++
			continue
		}
		if src == nil {
			continue
		}

		limit := -1
		if !narrated {
			limit = FramesFor(seg.Content, m.SampleRate)
		}
		offset := FrameAt(seg.Start, m.SampleRate)
		if addInto(out, src, offset, limit) {
			stats.Silent = false
		}
		stats.Sources++
	}

	hardClip(out)
	return out, stats, nil
}

// SourceFor returns the slide's audio converted to the output layout:
// narration if present, else the visual's embedded audio. A nil buffer
// means the slide is silent.
func SourceFor(ctx context.Context, s types.Slide, sampleRate, channels int) (buf *types.AudioBuffer, narrated bool, err error) {
	if s.Narration.Frames() > 0 {
		return Convert(s.Narration, sampleRate, channels), true, nil
	}
	as, ok := s.Visual.(types.AudioSource)
	if !ok || !s.IsClip() {
		return nil, false, nil
	}
	decoded, err := as.DecodeAudio(ctx, sampleRate, channels)
	if err != nil {
		return nil, false, err
	}
	if decoded.Frames() == 0 {
		return nil, false, nil
	}
	return Convert(decoded, sampleRate, channels), false, nil
}
