package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"slidecast/audio"
	"slidecast/config"
	"slidecast/encoder"
)

// RecorderFactory opens a recorder; audio is nil when nothing is scheduled
type RecorderFactory func(v encoder.VideoConfig, a *encoder.AudioConfig) (encoder.Recorder, error)

// Legacy plays the deck back in real time and records the raster. It never
// runs faster than the clock.
type Legacy struct {
	Clock       Clock
	NewRecorder RecorderFactory
}

// NewLegacy creates the real-time capture pipeline on the wall clock
func NewLegacy() *Legacy {
	return &Legacy{Clock: RealClock{}, NewRecorder: DefaultRecorder}
}

// DefaultRecorder records MP4 (MJPEG + PCM) when there is audio and AVI otherwise
func DefaultRecorder(v encoder.VideoConfig, a *encoder.AudioConfig) (encoder.Recorder, error) {
	if a != nil {
		return encoder.NewMP4Recorder(v, a)
	}
	return encoder.NewAVIRecorder(v)
}

func (l *Legacy) Name() string { return "legacy" }

func (l *Legacy) Available(job *Job) bool {
	w, h := job.Size()
	return w > 0 && h > 0
}

func (l *Legacy) Run(ctx context.Context, job *Job) (*Result, error) {
	raster, err := job.raster()
	if err != nil {
		return nil, err
	}
	w, h := job.Size()
	fps := config.FrameRate
	vcfg := encoder.DefaultVideoConfig(w, h)
	tl := job.Timeline

	sc, err := newScene(job)
	if err != nil {
		return nil, err
	}
	defer sc.close()

	job.report(0, "Loading slides")
	if err := sc.preload(ctx, nil); err != nil {
		return nil, err
	}

	live := audio.NewLiveMixer(config.SampleRate, config.Channels)
	for i, seg := range tl.Segments {
		sl := job.Slides[i]
		src, narrated, err := audio.SourceFor(ctx, sl, config.SampleRate, config.Channels)
		if err != nil {
			log.Printf("[LegacyPipeline] slide %d (%s): audio decode failed, using silence: %v", i+1, sl.ID, err)
			continue
		}
		if src == nil {
			continue
		}
		limit := time.Duration(0)
		if !narrated {
			limit = seg.Content
		}
		live.Schedule(seg.Start, src, limit)
	}

	var acfg *encoder.AudioConfig
	if live.Active() {
		a := encoder.DefaultAudioConfig()
		acfg = &a
	}
	rec, err := l.NewRecorder(vcfg, acfg)
	if err != nil {
		return nil, fmt.Errorf("recorder: %w", err)
	}
	finished := false
	defer func() {
		if !finished {
			rec.Abort()
		}
	}()

	total := tl.FrameCount(fps)
	written := 0
	capture := func(elapsed time.Duration) error {
		// ticks land a few ns early, so round to the nearest frame
		due := min(total, int((int64(elapsed)*int64(fps)+int64(time.Second)/2)/int64(time.Second))+1)
		for written < due {
			if err := rec.WriteFrame(raster); err != nil {
				return fmt.Errorf("recorder: %w", err)
			}
			written++
		}
		if acfg == nil {
			return nil
		}
		if chunk := live.Pull(elapsed); chunk != nil {
			if err := rec.WriteAudio(chunk); err != nil {
				return fmt.Errorf("recorder: %w", err)
			}
		}
		return nil
	}

	log.Printf("[LegacyPipeline] Capturing %d slides in real time (%v) into %s", len(job.Slides), tl.Total, rec.Container())

	start := l.Clock.Now()
	if _, err := sc.draw(ctx, raster, 0); err != nil {
		return nil, err
	}
	if err := capture(0); err != nil {
		return nil, err
	}

	ticks, stop := l.Clock.Tick(frameDuration(fps))
	defer stop()

	last := -1
	for elapsed := time.Duration(0); elapsed < tl.Total; {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case now := <-ticks:
			elapsed = min(now.Sub(start), tl.Total)
		}

		idx, err := sc.draw(ctx, raster, elapsed)
		if err != nil {
			return nil, err
		}
		if err := capture(elapsed); err != nil {
			return nil, err
		}

		if idx != last || written%config.ProgressEveryFrames == 0 {
			last = idx
			job.report(100*float64(elapsed)/float64(tl.Total), fmt.Sprintf("Recording slide %d/%d", idx+1, len(job.Slides)))
		}
	}

	data, err := rec.Finish()
	finished = true
	if err != nil {
		return nil, fmt.Errorf("recorder: %w", err)
	}
	job.report(100, "Done")

	res := &Result{
		Data:       data,
		Container:  rec.Container(),
		Pipeline:   l.Name(),
		VideoCodec: "mjpeg",
		Frames:     written,
		Duration:   tl.Total,
	}
	if acfg != nil {
		res.AudioCodec = "pcm"
	}
	return res, nil
}

func frameDuration(fps int) time.Duration {
	return time.Second / time.Duration(fps)
}
