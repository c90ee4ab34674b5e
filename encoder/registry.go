package encoder

import (
	"fmt"
	"log"
	"strings"

	"slidecast/config"
)

// Registry lists codecs in preference order
type Registry struct {
	Video []VideoCodec
	Audio []AudioCodec
}

// Capability is one line of the codec support report
type Capability struct {
	Kind      TrackKind `json:"kind"`
	Name      string    `json:"name"`
	Supported bool      `json:"supported"`
}

var (
	videoCodecs = map[string]VideoCodec{
		"avc":   AVC{},
		"mjpeg": MJPEG{},
	}
	audioCodecs = map[string]AudioCodec{
		"aac": AAC{},
		"pcm": PCM{},
	}
)

// NewRegistry builds a registry from codec names; unknown names are skipped
func NewRegistry(video, audio []string) *Registry {
	r := &Registry{}
	for _, name := range video {
		if c, ok := videoCodecs[strings.ToLower(strings.TrimSpace(name))]; ok {
			r.Video = append(r.Video, c)
		} else {
			log.Printf("[Registry] Warning: unknown video codec %q", name)
		}
	}
	for _, name := range audio {
		if c, ok := audioCodecs[strings.ToLower(strings.TrimSpace(name))]; ok {
			r.Audio = append(r.Audio, c)
		} else {
			log.Printf("[Registry] Warning: unknown audio codec %q", name)
		}
	}
	return r
}

// DefaultRegistry prefers ffmpeg codecs and falls back to in-process ones
func DefaultRegistry() *Registry {
	return NewRegistry([]string{"avc", "mjpeg"}, []string{"aac", "pcm"})
}

// SelectVideo returns the first codec that supports cfg
func (r *Registry) SelectVideo(cfg VideoConfig) (VideoCodec, error) {
	for _, c := range r.Video {
		if c.Supported(cfg) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: video %dx%d@%d", ErrNoCodec, cfg.Width, cfg.Height, cfg.FPS)
}

// SelectAudio returns the first codec that supports cfg
func (r *Registry) SelectAudio(cfg AudioConfig) (AudioCodec, error) {
	for _, c := range r.Audio {
		if c.Supported(cfg) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: audio %d Hz x%d", ErrNoCodec, cfg.SampleRate, cfg.Channels)
}

// Capabilities probes every registered codec at the default output format
func (r *Registry) Capabilities() []Capability {
	v := DefaultVideoConfig(config.DefaultWidth, config.DefaultHeight)
	a := DefaultAudioConfig()

	var out []Capability
	for _, c := range r.Video {
		out = append(out, Capability{Kind: TrackVideo, Name: c.Name(), Supported: c.Supported(v)})
	}
	for _, c := range r.Audio {
		out = append(out, Capability{Kind: TrackAudio, Name: c.Name(), Supported: c.Supported(a)})
	}
	return out
}

// DefaultVideoConfig is the export target at the given size
func DefaultVideoConfig(width, height int) VideoConfig {
	return VideoConfig{
		Width:            width,
		Height:           height,
		FPS:              config.FrameRate,
		Bitrate:          config.VideoBitrate,
		KeyframeInterval: config.FrameRate * config.KeyframeIntervalSeconds,
	}
}

// DefaultAudioConfig is the export audio target
func DefaultAudioConfig() AudioConfig {
	return AudioConfig{
		SampleRate: config.SampleRate,
		Channels:   config.Channels,
		Bitrate:    config.AudioBitrate,
	}
}
