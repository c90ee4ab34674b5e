package encoder

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"slidecast/config"
	"slidecast/types"
)

// PCM stores audio uncompressed as 16-bit little-endian samples
type PCM struct{}

func (PCM) Name() string   { return "pcm" }
func (PCM) Format() string { return "pcm" }

func (PCM) Supported(cfg AudioConfig) bool {
	return cfg.SampleRate > 0 && cfg.Channels > 0
}

type pcmEncoder struct {
	*workQueue[*types.AudioBuffer]
	cfg    AudioConfig
	sink   Sink
	frames int64
}

func (c PCM) NewEncoder(cfg AudioConfig, sink Sink) (AudioEncoder, error) {
	if !c.Supported(cfg) {
		return nil, fmt.Errorf("%w: pcm %d Hz x%d", ErrUnsupported, cfg.SampleRate, cfg.Channels)
	}
	e := &pcmEncoder{cfg: cfg, sink: sink}
	e.workQueue = newWorkQueue(config.AudioQueueHighWater*2, e.encode)
	return e, nil
}

func (e *pcmEncoder) Encode(chunk *types.AudioBuffer) error {
	if chunk.Frames() == 0 {
		return nil
	}
	return e.submit(chunk)
}

func (e *pcmEncoder) encode(chunk *types.AudioBuffer) error {
	n := chunk.Frames()
	pts := samplesToDuration(e.frames, e.cfg.SampleRate)
	e.frames += int64(n)

	return e.sink(Unit{
		Data:     PCM16(chunk, e.cfg.Channels),
		PTS:      pts,
		Duration: samplesToDuration(e.frames, e.cfg.SampleRate) - pts,
		Key:      true,
		Samples:  n,
	})
}

func (e *pcmEncoder) Flush() error { return e.drain() }
func (e *pcmEncoder) Close() error {
	e.drain()
	return nil
}

// PCM16 interleaves a planar buffer into signed 16-bit little-endian samples
func PCM16(buf *types.AudioBuffer, channels int) []byte {
	n := buf.Frames()
	out := make([]byte, n*channels*2)
	for i := 0; i < n; i++ {
		for c := 0; c < channels; c++ {
			v := buf.Channels[c%len(buf.Channels)][i]
			v = max(-1, min(1, v))
			s := int16(math.Round(float64(v) * math.MaxInt16))
			binary.LittleEndian.PutUint16(out[(i*channels+c)*2:], uint16(s))
		}
	}
	return out
}

func samplesToDuration(samples int64, rate int) time.Duration {
	return time.Duration(samples * int64(time.Second) / int64(rate))
}
