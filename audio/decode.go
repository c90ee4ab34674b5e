package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"slidecast/common"
	"slidecast/types"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// DecodeFile decodes any ffmpeg-readable audio (or a video's audio track)
// to planar float PCM at the requested layout.
func DecodeFile(ctx context.Context, path string, sampleRate, channels int) (*types.AudioBuffer, error) {
	stream := ffmpeg.Input(path).Output("pipe:1", ffmpeg.KwArgs{
		"vn": "",
		"f":  "f32le",
		"ac": channels,
		"ar": sampleRate,
	})

	var out bytes.Buffer
	if err := common.Run(ctx, stream, &out); err != nil {
		return nil, fmt.Errorf("failed to decode audio %s: %w", path, err)
	}
	return FromInterleaved(out.Bytes(), sampleRate, channels), nil
}

// FromInterleaved converts little-endian float32 interleaved PCM to a buffer
func FromInterleaved(raw []byte, sampleRate, channels int) *types.AudioBuffer {
	frames := len(raw) / 4 / channels
	buf := types.NewAudioBuffer(sampleRate, channels, frames)
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			off := (i*channels + c) * 4
			buf.Channels[c][i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[off:]))
		}
	}
	return buf
}
