package types

import "time"

// AudioBuffer holds planar float32 PCM in [-1, 1]
type AudioBuffer struct {
	SampleRate int
	Channels   [][]float32
}

// NewAudioBuffer allocates a silent buffer
func NewAudioBuffer(sampleRate, channels, frames int) *AudioBuffer {
	b := &AudioBuffer{SampleRate: sampleRate, Channels: make([][]float32, channels)}
	for i := range b.Channels {
		b.Channels[i] = make([]float32, frames)
	}
	return b
}

// Frames returns the number of sample frames
func (b *AudioBuffer) Frames() int {
	if b == nil || len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// NumChannels returns the channel count
func (b *AudioBuffer) NumChannels() int {
	if b == nil {
		return 0
	}
	return len(b.Channels)
}

// Duration returns the playback length of the buffer
func (b *AudioBuffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(int64(b.Frames()) * int64(time.Second) / int64(b.SampleRate))
}

// Interleave packs the frames in [from, to) as interleaved samples
func (b *AudioBuffer) Interleave(from, to int) []float32 {
	if to > b.Frames() {
		to = b.Frames()
	}
	if from >= to {
		return nil
	}
	ch := b.NumChannels()
	out := make([]float32, (to-from)*ch)
	for i := from; i < to; i++ {
		for c := 0; c < ch; c++ {
			out[(i-from)*ch+c] = b.Channels[c][i]
		}
	}
	return out
}
