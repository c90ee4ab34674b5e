package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"slidecast/config"
	"slidecast/pipeline"
	"slidecast/timeline"
	"slidecast/types"
)

// ErrExportFailed wraps every error that ends an export
var ErrExportFailed = errors.New("export failed")

// Request is one export
type Request struct {
	Slides           []types.Slide
	Width            int
	Height           int
	Style            types.SubtitleStyle
	IncludeSubtitles bool
	Delay            types.DelayConfig
	Background       string
	// Surface is an optional caller-owned raster that defines the output size
	Surface  *image.RGBA
	Progress types.ProgressFunc
	// OnState observes state transitions of this export
	OnState func(types.ExportState)
}

// Result is a finished export. Data is empty for an empty deck.
type Result struct {
	Data       []byte
	Pipeline   string
	Container  string
	VideoCodec string
	AudioCodec string
	Duration   time.Duration
	// FellBack is set when the fast pipeline failed and legacy produced the file
	FellBack bool
}

// Orchestrator runs exports one at a time, preferring the fast pipeline
// and falling back to real-time capture.
type Orchestrator struct {
	fast   pipeline.ExportPipeline
	legacy pipeline.ExportPipeline

	run     sync.Mutex
	stateMu sync.RWMutex
	state   types.ExportState
}

// New creates an orchestrator over the two pipelines
func New(fast, legacy pipeline.ExportPipeline) *Orchestrator {
	return &Orchestrator{fast: fast, legacy: legacy, state: types.StateIdle}
}

// State returns the current state
func (o *Orchestrator) State() types.ExportState {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.state
}

func (o *Orchestrator) setState(req *Request, s types.ExportState) {
	o.stateMu.Lock()
	o.state = s
	o.stateMu.Unlock()
	if req.OnState != nil {
		req.OnState(s)
	}
}

// choose picks the primary pipeline for a job
func choose(fast, legacy pipeline.ExportPipeline, job *pipeline.Job) pipeline.ExportPipeline {
	if fast != nil && fast.Available(job) {
		return fast
	}
	return legacy
}

// Export renders the request into a single muxed file. A concurrent call
// waits for the running export to finish.
func (o *Orchestrator) Export(ctx context.Context, req Request) (*Result, error) {
	o.run.Lock()
	defer o.run.Unlock()

	progress := newProgressGate(req.Progress)
	tl := timeline.Build(req.Slides, req.Delay)
	if tl.Empty() {
		o.setState(&req, types.StateDone)
		progress.report(100, "Nothing to export")
		return &Result{}, nil
	}

	width, height := req.Width, req.Height
	if req.Surface == nil && width == 0 && height == 0 {
		width, height = config.DefaultWidth, config.DefaultHeight
	}
	job := &pipeline.Job{
		Slides:           req.Slides,
		Timeline:         tl,
		Width:            width,
		Height:           height,
		Style:            req.Style.WithDefaults(),
		IncludeSubtitles: req.IncludeSubtitles,
		Background:       req.Background,
		Surface:          req.Surface,
		Progress:         progress.report,
	}

	o.setState(&req, types.StateProbing)
	progress.report(0, "Checking encoder support")
	primary := choose(o.fast, o.legacy, job)

	res, err := o.runPipeline(ctx, &req, primary, job)
	fellBack := false
	if err != nil && primary != o.legacy && ctx.Err() == nil {
		log.Printf("[Orchestrator] %s pipeline failed, falling back to %s: %v", primary.Name(), o.legacy.Name(), err)
		progress.rebase()
		res, err = o.runPipeline(ctx, &req, o.legacy, job)
		fellBack = true
	}
	if err != nil {
		o.setState(&req, types.StateFailed)
		return nil, fmt.Errorf("%w: %w", ErrExportFailed, err)
	}

	o.setState(&req, types.StateDone)
	progress.report(100, "Export complete")
	log.Printf("[Orchestrator] Exported %v via %s (%s, %d bytes)", res.Duration, res.Pipeline, res.Container, len(res.Data))
	return &Result{
		Data:       res.Data,
		Pipeline:   res.Pipeline,
		Container:  res.Container,
		VideoCodec: res.VideoCodec,
		AudioCodec: res.AudioCodec,
		Duration:   res.Duration,
		FellBack:   fellBack,
	}, nil
}

func (o *Orchestrator) runPipeline(ctx context.Context, req *Request, p pipeline.ExportPipeline, job *pipeline.Job) (*pipeline.Result, error) {
	if p == o.fast {
		o.setState(req, types.StateEncodingFast)
	} else {
		o.setState(req, types.StateEncodingLegacy)
	}
	res, err := p.Run(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("%s pipeline: %w", p.Name(), err)
	}
	return res, nil
}

// progressGate keeps reported progress non-decreasing and maps a fallback
// run onto the range left after the failed attempt.
type progressGate struct {
	mu    sync.Mutex
	fn    types.ProgressFunc
	last  float64
	base  float64
	scale float64
}

func newProgressGate(fn types.ProgressFunc) *progressGate {
	return &progressGate{fn: fn, scale: 1}
}

func (g *progressGate) report(pct float64, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	v := g.base + max(0, min(100, pct))*g.scale
	v = max(v, g.last)
	g.last = v
	if g.fn != nil {
		g.fn(v, status)
	}
}

func (g *progressGate) rebase() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.base = g.last
	g.scale = (100 - g.last) / 100
}

// RequestFor builds a request from a validated manifest and its resolved slides
func RequestFor(m *types.Manifest, slides []types.Slide) Request {
	style := types.DefaultSubtitleStyle()
	if m.Style != nil {
		style = m.Style.WithDefaults()
	}
	return Request{
		Slides:           slides,
		Width:            m.Width,
		Height:           m.Height,
		Style:            style,
		IncludeSubtitles: m.IncludeSubtitles,
		Delay:            m.Delay,
		Background:       m.Background,
	}
}
