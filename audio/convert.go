package audio

import (
	"math"

	"slidecast/types"
)

// Convert resamples and remaps src to the given layout. The source is left untouched.
func Convert(src *types.AudioBuffer, sampleRate, channels int) *types.AudioBuffer {
	if src == nil || src.Frames() == 0 || src.SampleRate <= 0 {
		return types.NewAudioBuffer(sampleRate, channels, 0)
	}

	mapped := remap(src.Channels, channels)
	if src.SampleRate == sampleRate {
		return &types.AudioBuffer{SampleRate: sampleRate, Channels: mapped}
	}

	out := &types.AudioBuffer{SampleRate: sampleRate, Channels: make([][]float32, channels)}
	for c, ch := range mapped {
		out.Channels[c] = resample(ch, src.SampleRate, sampleRate)
	}
	return out
}

// remap copies mono to every output channel, averages down to mono,
// and otherwise wraps source channels.
func remap(in [][]float32, channels int) [][]float32 {
	out := make([][]float32, channels)
	switch {
	case len(in) == 1:
		for c := range out {
			out[c] = append([]float32(nil), in[0]...)
		}
	case channels == 1:
		frames := len(in[0])
		mono := make([]float32, frames)
		for _, ch := range in {
			for i, v := range ch {
				mono[i] += v
			}
		}
		scale := 1 / float32(len(in))
		for i := range mono {
			mono[i] *= scale
		}
		out[0] = mono
	default:
		for c := range out {
			out[c] = append([]float32(nil), in[c%len(in)]...)
		}
	}
	return out
}

// resample uses linear interpolation
func resample(in []float32, from, to int) []float32 {
	if len(in) == 0 {
		return nil
	}
	n := int(math.Ceil(float64(len(in)) * float64(to) / float64(from)))
	out := make([]float32, n)
	step := float64(from) / float64(to)
	last := len(in) - 1
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = in[last]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = in[j]*(1-frac) + in[j+1]*frac
	}
	return out
}

// addInto sums src into dst starting at offset frames, writing at most limit frames
// of src (limit < 0 means no limit). It returns whether any non-zero sample landed.
func addInto(dst, src *types.AudioBuffer, offset, limit int) bool {
	n := src.Frames()
	if limit >= 0 && n > limit {
		n = limit
	}
	if offset+n > dst.Frames() {
		n = dst.Frames() - offset
	}
	if n <= 0 || offset < 0 {
		return false
	}

	audible := false
	for c := range dst.Channels {
		s := src.Channels[c%len(src.Channels)]
		d := dst.Channels[c][offset : offset+n]
		for i := range d {
			v := s[i]
			if v != 0 {
				audible = true
			}
			d[i] += v
		}
	}
	return audible
}

func hardClip(b *types.AudioBuffer) {
	for _, ch := range b.Channels {
		for i, v := range ch {
			if v > 1 {
				ch[i] = 1
			} else if v < -1 {
				ch[i] = -1
			}
		}
	}
}
