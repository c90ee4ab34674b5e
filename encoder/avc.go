package encoder

import (
	"fmt"
	"image"
	"log"
	"time"

	"slidecast/common"
	"slidecast/config"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// AVC encodes H.264 through an ffmpeg libx264 subprocess. No B-frames, so
// output order equals input order and PTS is derived from the frame count.
type AVC struct {
	Preset string
}

func (AVC) Name() string   { return "avc" }
func (AVC) Format() string { return "avc" }

func (AVC) Supported(cfg VideoConfig) bool {
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > config.MaxDimension || cfg.Height > config.MaxDimension {
		return false
	}
	// yuv420p needs even dimensions
	if cfg.Width%2 != 0 || cfg.Height%2 != 0 {
		return false
	}
	return common.HasEncoder("libx264")
}

type avcEncoder struct {
	*workQueue[videoJob]
	cfg      VideoConfig
	sink     Sink
	proc     *ffmpegProcess
	splitter annexBSplitter
	count    int64
	sentCfg  bool
}

func (c AVC) NewEncoder(cfg VideoConfig, sink Sink) (VideoEncoder, error) {
	if !c.Supported(cfg) {
		return nil, fmt.Errorf("%w: avc %dx%d", ErrUnsupported, cfg.Width, cfg.Height)
	}
	preset := c.Preset
	if preset == "" {
		preset = config.X264Preset
	}
	gop := cfg.KeyframeInterval
	if gop <= 0 {
		gop = cfg.FPS * config.KeyframeIntervalSeconds
	}

	stream := ffmpeg.Input("pipe:0", ffmpeg.KwArgs{
		"f":       "rawvideo",
		"pix_fmt": "rgba",
		"s":       fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"r":       cfg.FPS,
	}).Output("pipe:1", ffmpeg.KwArgs{
		"c:v":          "libx264",
		"preset":       preset,
		"tune":         "zerolatency",
		"b:v":          cfg.Bitrate,
		"bf":           0,
		"g":            gop,
		"keyint_min":   gop,
		"sc_threshold": 0,
		"pix_fmt":      "yuv420p",
		"x264-params":  "aud=1",
		"f":            "h264",
	})

	e := &avcEncoder{cfg: cfg, sink: sink}
	proc, err := startFFmpeg(stream, e.onData, e.onEOF)
	if err != nil {
		return nil, err
	}
	e.proc = proc
	e.workQueue = newWorkQueue(config.VideoQueueHighWater*2, e.write)
	log.Printf("[AVC] Started libx264 %dx%d@%d preset=%s gop=%d", cfg.Width, cfg.Height, cfg.FPS, preset, gop)
	return e, nil
}

func (e *avcEncoder) Encode(frame *image.RGBA, _ time.Duration, _ bool) error {
	return e.submit(videoJob{frame: copyFrame(frame)})
}

func (e *avcEncoder) write(j videoJob) error {
	return e.proc.Write(j.frame.Pix)
}

func (e *avcEncoder) onData(p []byte) error {
	for _, au := range e.splitter.Write(p) {
		if err := e.emit(au); err != nil {
			return err
		}
	}
	return nil
}

func (e *avcEncoder) onEOF() error {
	for _, au := range e.splitter.Flush() {
		if err := e.emit(au); err != nil {
			return err
		}
	}
	return nil
}

func (e *avcEncoder) emit(au accessUnit) error {
	dur := frameDuration(e.cfg.FPS)
	u := Unit{
		Data:     au.data,
		PTS:      time.Duration(e.count) * dur,
		Duration: dur,
		Key:      au.key,
	}
	e.count++

	if !e.sentCfg {
		record, err := avcDecoderConfig(au.sps, au.pps)
		if err != nil {
			return fmt.Errorf("first access unit: %w", err)
		}
		u.Config = record
		e.sentCfg = true
	}
	return e.sink(u)
}

func (e *avcEncoder) Flush() error {
	qErr := e.drain()
	pErr := e.proc.finish()
	if qErr != nil {
		return qErr
	}
	return pErr
}

func (e *avcEncoder) Close() error {
	e.drain()
	e.proc.kill()
	return nil
}
