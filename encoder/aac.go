package encoder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"slidecast/common"
	"slidecast/config"
	"slidecast/types"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

const aacFrameSamples = 1024

var adtsSampleRates = []int{96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050, 16000, 12000, 11025, 8000, 7350}

// AAC encodes through ffmpeg's native aac encoder, reading ADTS back
type AAC struct{}

func (AAC) Name() string   { return "aac" }
func (AAC) Format() string { return "aac" }

func (AAC) Supported(cfg AudioConfig) bool {
	if sampleRateIndex(cfg.SampleRate) < 0 || cfg.Channels < 1 || cfg.Channels > 2 {
		return false
	}
	return common.HasEncoder("aac")
}

type aacEncoder struct {
	*workQueue[*types.AudioBuffer]
	cfg     AudioConfig
	sink    Sink
	proc    *ffmpegProcess
	parser  adtsParser
	count   int64
	sentCfg bool
}

func (c AAC) NewEncoder(cfg AudioConfig, sink Sink) (AudioEncoder, error) {
	if !c.Supported(cfg) {
		return nil, fmt.Errorf("%w: aac %d Hz x%d", ErrUnsupported, cfg.SampleRate, cfg.Channels)
	}
	bitrate := cfg.Bitrate
	if bitrate <= 0 {
		bitrate = config.AudioBitrate
	}

	stream := ffmpeg.Input("pipe:0", ffmpeg.KwArgs{
		"f":  "f32le",
		"ar": cfg.SampleRate,
		"ac": cfg.Channels,
	}).Output("pipe:1", ffmpeg.KwArgs{
		"c:a": "aac",
		"b:a": bitrate,
		"f":   "adts",
	})

	e := &aacEncoder{cfg: cfg, sink: sink}
	proc, err := startFFmpeg(stream, e.onData, e.onEOF)
	if err != nil {
		return nil, err
	}
	e.proc = proc
	e.workQueue = newWorkQueue(config.AudioQueueHighWater*2, e.write)
	return e, nil
}

func (e *aacEncoder) Encode(chunk *types.AudioBuffer) error {
	if chunk.Frames() == 0 {
		return nil
	}
	return e.submit(chunk)
}

func (e *aacEncoder) write(chunk *types.AudioBuffer) error {
	samples := chunk.Interleave(0, chunk.Frames())
	raw := make([]byte, len(samples)*4)
	for i, v := range samples {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	return e.proc.Write(raw)
}

func (e *aacEncoder) onData(p []byte) error {
	frames, err := e.parser.Write(p)
	for _, f := range frames {
		if err := e.emit(f); err != nil {
			return err
		}
	}
	return err
}

func (e *aacEncoder) onEOF() error {
	if len(e.parser.buf) > 0 {
		return fmt.Errorf("truncated ADTS stream: %d trailing bytes", len(e.parser.buf))
	}
	return nil
}

func (e *aacEncoder) emit(f adtsFrame) error {
	pts := samplesToDuration(e.count*aacFrameSamples, e.cfg.SampleRate)
	e.count++
	u := Unit{
		Data:     f.payload,
		PTS:      pts,
		Duration: samplesToDuration(e.count*aacFrameSamples, e.cfg.SampleRate) - pts,
		Key:      true,
		Samples:  aacFrameSamples,
	}
	if !e.sentCfg {
		u.Config = f.audioSpecificConfig()
		e.sentCfg = true
	}
	return e.sink(u)
}

func (e *aacEncoder) Flush() error {
	qErr := e.drain()
	pErr := e.proc.finish()
	if qErr != nil {
		return qErr
	}
	return pErr
}

func (e *aacEncoder) Close() error {
	e.drain()
	e.proc.kill()
	return nil
}

// adtsFrame is one raw AAC frame with the header fields needed for the
// AudioSpecificConfig
type adtsFrame struct {
	payload     []byte
	objectType  int
	rateIndex   int
	channelConf int
}

func (f adtsFrame) audioSpecificConfig() []byte {
	v := uint16(f.objectType)<<11 | uint16(f.rateIndex)<<7 | uint16(f.channelConf)<<3
	return []byte{byte(v >> 8), byte(v)}
}

type adtsParser struct {
	buf []byte
}

var errADTSSync = errors.New("lost ADTS sync")

// Write appends stream bytes and returns the complete frames
func (p *adtsParser) Write(b []byte) ([]adtsFrame, error) {
	p.buf = append(p.buf, b...)
	var out []adtsFrame
	for len(p.buf) >= 7 {
		if p.buf[0] != 0xff || p.buf[1]&0xf0 != 0xf0 {
			return out, errADTSSync
		}
		protectionAbsent := p.buf[1]&0x01 == 1
		profile := int(p.buf[2]>>6) & 0x03
		rateIndex := int(p.buf[2]>>2) & 0x0f
		channelConf := int(p.buf[2]&0x01)<<2 | int(p.buf[3]>>6)
		frameLen := int(p.buf[3]&0x03)<<11 | int(p.buf[4])<<3 | int(p.buf[5]>>5)

		header := 7
		if !protectionAbsent {
			header = 9
		}
		if frameLen < header {
			return out, errADTSSync
		}
		if len(p.buf) < frameLen {
			break
		}
		out = append(out, adtsFrame{
			payload:     append([]byte(nil), p.buf[header:frameLen]...),
			objectType:  profile + 1,
			rateIndex:   rateIndex,
			channelConf: channelConf,
		})
		p.buf = p.buf[frameLen:]
	}
	return out, nil
}

func sampleRateIndex(rate int) int {
	for i, r := range adtsSampleRates {
		if r == rate {
			return i
		}
	}
	return -1
}
