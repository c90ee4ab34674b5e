package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"slidecast/encoder"
	"slidecast/media"
	"slidecast/pipeline"
	"slidecast/types"
)

// stubPipeline reports a fixed progress and then returns err or a result
type stubPipeline struct {
	name      string
	available bool
	progress  float64
	err       error
	block     chan struct{}

	running atomic.Int32
	overlap atomic.Bool
	runs    atomic.Int32
}

func (p *stubPipeline) Name() string                 { return p.name }
func (p *stubPipeline) Available(*pipeline.Job) bool { return p.available }

func (p *stubPipeline) Run(ctx context.Context, job *pipeline.Job) (*pipeline.Result, error) {
	p.runs.Add(1)
	if p.running.Add(1) > 1 {
		p.overlap.Store(true)
	}
	defer p.running.Add(-1)

	if p.block != nil {
		<-p.block
	}
	if job.Progress != nil {
		job.Progress(p.progress, p.name)
	}
	if p.err != nil {
		return nil, p.err
	}
	if job.Progress != nil {
		job.Progress(100, p.name)
	}
	return &pipeline.Result{Data: []byte(p.name), Container: "mp4", Pipeline: p.name, Duration: job.Timeline.Total}, nil
}

func slides(n int) []types.Slide {
	out := make([]types.Slide, n)
	for i := range out {
		img := image.NewRGBA(image.Rect(0, 0, 16, 9))
		for p := 0; p < len(img.Pix); p += 4 {
			img.Pix[p], img.Pix[p+3] = 0xff, 0xff
		}
		out[i] = types.Slide{ID: "s", Visual: media.NewStillImage(img), Script: "Hello there"}
	}
	return out
}

type progressLog struct {
	mu     sync.Mutex
	values []float64
}

func (l *progressLog) record(pct float64, _ string) {
	l.mu.Lock()
	l.values = append(l.values, pct)
	l.mu.Unlock()
}

func (l *progressLog) check(t *testing.T) {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.values) == 0 {
		t.Fatal("no progress reported")
	}
	for i := 1; i < len(l.values); i++ {
		if l.values[i] < l.values[i-1] {
			t.Fatalf("progress went backwards at %d: %v", i, l.values)
		}
	}
	if last := l.values[len(l.values)-1]; last != 100 {
		t.Errorf("final progress = %v", last)
	}
}

func TestEmptyDeckIsDone(t *testing.T) {
	fast := &stubPipeline{name: "fast", available: true}
	o := New(fast, &stubPipeline{name: "legacy", available: true})

	var progress progressLog
	res, err := o.Export(context.Background(), Request{Progress: progress.record})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Data) != 0 || fast.runs.Load() != 0 {
		t.Errorf("empty deck should not run a pipeline")
	}
	if o.State() != types.StateDone {
		t.Errorf("state = %s", o.State())
	}
	progress.check(t)
}

func TestFallbackKeepsProgressMonotonic(t *testing.T) {
	fast := &stubPipeline{name: "fast", available: true, progress: 40, err: errors.New("encoder crashed")}
	legacy := &stubPipeline{name: "legacy", available: true, progress: 10}
	o := New(fast, legacy)

	var states []types.ExportState
	var progress progressLog
	res, err := o.Export(context.Background(), Request{
		Slides:   slides(2),
		Width:    64,
		Height:   36,
		Progress: progress.record,
		OnState:  func(s types.ExportState) { states = append(states, s) },
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Pipeline != "legacy" || !res.FellBack {
		t.Errorf("result = %+v", res)
	}
	progress.check(t)

	// legacy's 10% lands at 40 + 60*0.1
	progress.mu.Lock()
	found := false
	for _, v := range progress.values {
		if v > 45.9 && v < 46.1 {
			found = true
		}
	}
	progress.mu.Unlock()
	if !found {
		t.Errorf("legacy progress was not rescaled: %v", progress.values)
	}

	want := []types.ExportState{types.StateProbing, types.StateEncodingFast, types.StateEncodingLegacy, types.StateDone}
	if len(states) != len(want) {
		t.Fatalf("states = %v", states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("states = %v, want %v", states, want)
		}
	}
}

func TestBothPipelinesFail(t *testing.T) {
	rasterErr := pipeline.ErrNoRaster
	o := New(
		&stubPipeline{name: "fast", available: true, err: errors.New("boom")},
		&stubPipeline{name: "legacy", available: true, err: rasterErr},
	)
	_, err := o.Export(context.Background(), Request{Slides: slides(1), Width: 64, Height: 36})
	if !errors.Is(err, ErrExportFailed) || !errors.Is(err, rasterErr) {
		t.Errorf("err = %v", err)
	}
	if o.State() != types.StateFailed {
		t.Errorf("state = %s", o.State())
	}
}

func TestNoFallbackAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	legacy := &stubPipeline{name: "legacy", available: true}
	o := New(&stubPipeline{name: "fast", available: true, err: context.Canceled}, legacy)

	if _, err := o.Export(ctx, Request{Slides: slides(1), Width: 64, Height: 36}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
	if legacy.runs.Load() != 0 {
		t.Error("a cancelled export should not fall back")
	}
}

func TestExportsRunOneAtATime(t *testing.T) {
	block := make(chan struct{})
	fast := &stubPipeline{name: "fast", available: true, block: block}
	o := New(fast, &stubPipeline{name: "legacy"})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.Export(context.Background(), Request{Slides: slides(1), Width: 64, Height: 36}); err != nil {
				t.Error(err)
			}
		}()
	}
	for i := 0; i < 3; i++ {
		block <- struct{}{}
	}
	wg.Wait()

	if fast.overlap.Load() {
		t.Error("exports overlapped")
	}
	if fast.runs.Load() != 3 {
		t.Errorf("runs = %d", fast.runs.Load())
	}
}

func TestLegacyWhenNoCodecs(t *testing.T) {
	fast := pipeline.NewFast(&encoder.Registry{})
	legacy := &pipeline.Legacy{Clock: pipeline.NewSimClock(time.Unix(0, 0)), NewRecorder: pipeline.DefaultRecorder}
	o := New(fast, legacy)

	var progress progressLog
	res, err := o.Export(context.Background(), Request{
		Slides:           slides(2),
		Width:            32,
		Height:           18,
		IncludeSubtitles: true,
		Delay:            types.DelayConfig{Enabled: true, Seconds: 0.5},
		Background:       "#202020",
		Progress:         progress.record,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Pipeline != "legacy" || res.FellBack || len(res.Data) == 0 {
		t.Errorf("result = %s fellBack=%v size=%d", res.Pipeline, res.FellBack, len(res.Data))
	}
	// no narration and stills only, so nothing is recorded on the audio side
	if res.Container != "avi" || res.AudioCodec != "" || !bytes.HasPrefix(res.Data, []byte("RIFF")) {
		t.Errorf("silent deck: container %q audio %q", res.Container, res.AudioCodec)
	}
	if res.Duration != 10500*time.Millisecond {
		t.Errorf("duration = %v", res.Duration)
	}
	progress.check(t)
}

func TestFastEndToEnd(t *testing.T) {
	fast := pipeline.NewFast(encoder.NewRegistry([]string{"mjpeg"}, []string{"pcm"}))
	o := New(fast, pipeline.NewLegacy())

	s := slides(1)
	s[0].Narration = types.NewAudioBuffer(48000, 2, 48000)
	s[0].Narration.Channels[0][0] = 0.5

	surface := image.NewRGBA(image.Rect(0, 0, 48, 32))
	res, err := o.Export(context.Background(), Request{Slides: s, Surface: surface})
	if err != nil {
		t.Fatal(err)
	}
	if res.Pipeline != "fast" || res.VideoCodec != "mjpeg" || res.AudioCodec != "pcm" {
		t.Errorf("result = %+v", res)
	}
	if got := surface.RGBAAt(24, 4); got.R < 0xf0 || got.G > 0x10 {
		t.Errorf("surface pixel = %v", got)
	}
}
