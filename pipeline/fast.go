package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"

	"slidecast/audio"
	"slidecast/config"
	"slidecast/encoder"
	"slidecast/types"
)

// Fast encodes offline as fast as the codecs allow
type Fast struct {
	Registry *encoder.Registry
	Mixer    *audio.Mixer
}

// NewFast creates the offline pipeline over a codec registry
func NewFast(reg *encoder.Registry) *Fast {
	return &Fast{Registry: reg, Mixer: audio.NewMixer()}
}

func (f *Fast) Name() string { return "fast" }

func (f *Fast) Available(job *Job) bool {
	if f.Registry == nil {
		return false
	}
	w, h := job.Size()
	_, err := f.Registry.SelectVideo(encoder.DefaultVideoConfig(w, h))
	return err == nil
}

func (f *Fast) Run(ctx context.Context, job *Job) (*Result, error) {
	raster, err := job.raster()
	if err != nil {
		return nil, err
	}
	w, h := job.Size()
	vcfg := encoder.DefaultVideoConfig(w, h)
	vcodec, err := f.Registry.SelectVideo(vcfg)
	if err != nil {
		return nil, err
	}

	sc, err := newScene(job)
	if err != nil {
		return nil, err
	}
	defer sc.close()

	job.report(0, "Loading slides")
	err = sc.preload(ctx, func(done, total int) {
		job.report(5*float64(done)/float64(total), fmt.Sprintf("Loaded %d/%d slides", done, total))
	})
	if err != nil {
		return nil, err
	}

	job.report(5, "Mixing audio")
	mixed, stats, err := f.Mixer.Mix(ctx, job.Slides, job.Timeline)
	if err != nil {
		return nil, err
	}
	job.report(10, "Mixing audio")

	mux := encoder.NewMP4Muxer()
	vTrack := mux.AddTrack(encoder.TrackSpec{
		Kind:    encoder.TrackVideo,
		Format:  vcodec.Format(),
		Width:   w,
		Height:  h,
		Bitrate: vcfg.Bitrate,
	})
	venc, err := vcodec.NewEncoder(vcfg, mux.Sink(vTrack))
	if err != nil {
		return nil, err
	}
	defer venc.Close()

	res := &Result{Container: "mp4", Pipeline: f.Name(), VideoCodec: vcodec.Name(), Duration: job.Timeline.Total}

	var aenc encoder.AudioEncoder
	if !stats.Silent {
		acfg := encoder.DefaultAudioConfig()
		acodec, err := f.Registry.SelectAudio(acfg)
		switch {
		case errors.Is(err, encoder.ErrNoCodec):
			log.Printf("[FastPipeline] Warning: %v, exporting without audio", err)
		case err != nil:
			return nil, err
		default:
			aTrack := mux.AddTrack(encoder.TrackSpec{
				Kind:       encoder.TrackAudio,
				Format:     acodec.Format(),
				SampleRate: acfg.SampleRate,
				Channels:   acfg.Channels,
				Bitrate:    acfg.Bitrate,
			})
			if aenc, err = acodec.NewEncoder(acfg, mux.Sink(aTrack)); err != nil {
				return nil, err
			}
			defer aenc.Close()
			res.AudioCodec = acodec.Name()
		}
	}

	log.Printf("[FastPipeline] Encoding %d slides, %v, %dx%d with %s/%s",
		len(job.Slides), job.Timeline.Total, w, h, res.VideoCodec, res.AudioCodec)

	if res.Frames, err = f.encodeVideo(ctx, job, sc, venc, raster, vcfg); err != nil {
		return nil, err
	}
	if aenc != nil {
		if err := encodeAudio(ctx, job, mixed, aenc); err != nil {
			return nil, err
		}
	}

	job.report(95, "Finalizing")
	if err := venc.Flush(); err != nil {
		return nil, fmt.Errorf("video encoder: %w", err)
	}
	if aenc != nil {
		if err := aenc.Flush(); err != nil {
			return nil, fmt.Errorf("audio encoder: %w", err)
		}
	}
	if res.Data, err = mux.Finalize(); err != nil {
		return nil, err
	}
	job.report(100, "Done")
	return res, nil
}

func (f *Fast) encodeVideo(ctx context.Context, job *Job, sc *scene, venc encoder.VideoEncoder, raster *image.RGBA, vcfg encoder.VideoConfig) (int, error) {
	total := job.Timeline.FrameCount(vcfg.FPS)
	slides := len(job.Slides)
	last := -1

	for i := 0; i < total; i++ {
		pts := framePTS(i, vcfg.FPS)
		idx, err := sc.draw(ctx, raster, pts)
		if err != nil {
			return i, err
		}
		if err := waitQueue(ctx, venc, config.VideoQueueHighWater); err != nil {
			return i, err
		}
		if err := venc.Encode(raster, pts, i%vcfg.KeyframeInterval == 0); err != nil {
			return i, err
		}

		if idx != last || i%config.ProgressEveryFrames == 0 {
			last = idx
			job.report(10+80*float64(i)/float64(total), fmt.Sprintf("Encoding slide %d/%d", idx+1, slides))
		}
	}
	return total, nil
}

func encodeAudio(ctx context.Context, job *Job, mixed *types.AudioBuffer, aenc encoder.AudioEncoder) error {
	total := mixed.Frames()
	for from := 0; from < total; from += config.AudioChunkFrames {
		to := min(from+config.AudioChunkFrames, total)
		chunk := &types.AudioBuffer{SampleRate: mixed.SampleRate, Channels: make([][]float32, len(mixed.Channels))}
		for c := range mixed.Channels {
			chunk.Channels[c] = mixed.Channels[c][from:to]
		}

		if err := waitQueue(ctx, aenc, config.AudioQueueHighWater); err != nil {
			return err
		}
		if err := aenc.Encode(chunk); err != nil {
			return err
		}
		job.report(90+5*float64(to)/float64(total), "Encoding audio")
	}
	return nil
}
