package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"slidecast/common"
	"slidecast/config"
	"slidecast/media"
	"slidecast/orchestrator"
	"slidecast/publish"
	"slidecast/types"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for unknown job ids
	ErrNotFound = errors.New("job not found")
	// ErrQueueFull is returned when the runner backlog is full
	ErrQueueFull = errors.New("export queue is full")
	// ErrNotReady is returned when a job has no output yet
	ErrNotReady = errors.New("export not finished")
)

// Exporter renders a request into a video
type Exporter interface {
	Export(ctx context.Context, req orchestrator.Request) (*orchestrator.Result, error)
}

// Uploader stores a finished video and returns its location
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// Publisher pushes a finished video to a hosting platform
type Publisher interface {
	Publish(ctx context.Context, video io.Reader, size int64, meta publish.Metadata) (string, error)
}

// Notifier receives an event when a job reaches a terminal state
type Notifier interface {
	Notify(ctx context.Context, ev types.ExportEvent) error
}

// Mirror persists job snapshots outside the process
type Mirror interface {
	Save(ctx context.Context, st types.JobStatus) error
	Load(ctx context.Context, id string) (*types.JobStatus, error)
}

// Options wires a Manager to its collaborators. Only Exporter is required.
type Options struct {
	Exporter  Exporter
	S3        *common.S3
	OutputDir string
	Uploader  Uploader
	Publisher Publisher
	Notifier  Notifier
	Mirror    Mirror
}

type job struct {
	status  types.JobStatus
	req     types.ExportRequest
	baseDir string
	output  string
}

// Manager queues export jobs and runs them one at a time
type Manager struct {
	opts  Options
	queue chan string
	wg    sync.WaitGroup

	mu   sync.RWMutex
	jobs map[string]*job
}

// NewManager creates a manager; call Start to begin processing
func NewManager(opts Options) *Manager {
	if opts.OutputDir == "" {
		opts.OutputDir = config.OutputDir
	}
	return &Manager{
		opts:  opts,
		queue: make(chan string, config.JobQueueSize),
		jobs:  make(map[string]*job),
	}
}

// Start launches the runner; it stops when ctx is cancelled
func (m *Manager) Start(ctx context.Context) {
	for i := 0; i < config.MaxConcurrentExports; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case id := <-m.queue:
					m.run(ctx, id)
				}
			}
		}()
	}
}

// Wait blocks until the runner has stopped
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Submit validates and queues an export. Resubmitting a known job id is a
// no-op so redelivered messages do not render twice. baseDir resolves
// relative local references.
func (m *Manager) Submit(req types.ExportRequest, baseDir string) (string, error) {
	if err := media.Validate(&req.Manifest); err != nil {
		return "", err
	}
	id := req.JobID
	if id == "" {
		id = uuid.NewString()
	}

	m.mu.Lock()
	if _, ok := m.jobs[id]; ok {
		m.mu.Unlock()
		log.Printf("[Jobs] %s already submitted, skipping", id)
		return id, nil
	}
	now := time.Now()
	j := &job{
		req:     req,
		baseDir: baseDir,
		status: types.JobStatus{
			ID:        id,
			Title:     req.Manifest.Title,
			State:     types.StateQueued,
			Status:    "Queued",
			Logs:      []types.LogEntry{},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	select {
	case m.queue <- id:
	default:
		m.mu.Unlock()
		return "", ErrQueueFull
	}
	m.jobs[id] = j
	m.mu.Unlock()

	m.addLog(id, fmt.Sprintf("Queued %d slides", len(req.Manifest.Slides)))
	m.mirror(id)
	return id, nil
}

// Get returns a job snapshot, falling back to the mirror for jobs run by
// another process
func (m *Manager) Get(ctx context.Context, id string) (types.JobStatus, error) {
	m.mu.RLock()
	j, ok := m.jobs[id]
	if ok {
		st := snapshot(j)
		m.mu.RUnlock()
		return st, nil
	}
	m.mu.RUnlock()

	if m.opts.Mirror != nil {
		st, err := m.opts.Mirror.Load(ctx, id)
		if err != nil {
			return types.JobStatus{}, err
		}
		if st != nil {
			return *st, nil
		}
	}
	return types.JobStatus{}, ErrNotFound
}

// List returns all in-memory jobs, newest first
func (m *Manager) List() []types.JobStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.JobStatus, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, snapshot(j))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out
}

// Output returns the local path of a finished export
func (m *Manager) Output(id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[id]
	if !ok {
		return "", ErrNotFound
	}
	if j.status.State != types.StateDone || j.output == "" {
		return "", ErrNotReady
	}
	return j.output, nil
}

// snapshot copies a job status (must hold lock)
func snapshot(j *job) types.JobStatus {
	st := j.status
	st.Logs = append([]types.LogEntry{}, j.status.Logs...)
	return st
}

func (m *Manager) update(id string, fn func(j *job)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		fn(j)
		j.status.UpdatedAt = time.Now()
	}
}

func (m *Manager) addLog(id, message string) {
	log.Printf("[Jobs] %s: %s", id, message)
	m.update(id, func(j *job) {
		j.status.Logs = append(j.status.Logs, types.LogEntry{Timestamp: time.Now(), Message: message})
		if len(j.status.Logs) > config.MaxJobLogs {
			j.status.Logs = j.status.Logs[len(j.status.Logs)-config.MaxJobLogs:]
		}
	})
}

func (m *Manager) mirror(id string) {
	if m.opts.Mirror == nil {
		return
	}
	m.mu.RLock()
	j, ok := m.jobs[id]
	if !ok {
		m.mu.RUnlock()
		return
	}
	st := snapshot(j)
	m.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.opts.Mirror.Save(ctx, st); err != nil {
		log.Printf("[Jobs] Warning: mirroring %s failed: %v", id, err)
	}
}

func (m *Manager) setError(id string, err error) {
	m.update(id, func(j *job) {
		j.status.State = types.StateFailed
		j.status.Status = "Failed"
		j.status.Error = err.Error()
	})
	m.addLog(id, fmt.Sprintf("Error: %v", err))
}

func (m *Manager) run(ctx context.Context, id string) {
	m.mu.RLock()
	j, ok := m.jobs[id]
	if !ok {
		m.mu.RUnlock()
		return
	}
	req, baseDir := j.req, j.baseDir
	m.mu.RUnlock()

	start := time.Now()
	err := m.export(ctx, id, req, baseDir)
	if err != nil {
		m.setError(id, err)
	} else {
		m.addLog(id, fmt.Sprintf("Finished in %v", time.Since(start).Round(time.Millisecond)))
	}
	m.mirror(id)
	m.notify(ctx, id)
}

func (m *Manager) export(ctx context.Context, id string, req types.ExportRequest, baseDir string) error {
	fetcher := media.NewFetcher(baseDir, m.opts.S3)
	fetcher.BaseURL = req.BaseURL
	defer fetcher.Cleanup()

	m.update(id, func(j *job) { j.status.Status = "Loading assets" })
	m.addLog(id, "Resolving slide assets")
	slides, err := media.BuildSlides(ctx, &req.Manifest, fetcher)
	if err != nil {
		return fmt.Errorf("loading slides: %w", err)
	}

	r := orchestrator.RequestFor(&req.Manifest, slides)
	lastMirror := time.Time{}
	r.Progress = func(pct float64, status string) {
		m.update(id, func(j *job) {
			j.status.Progress = pct
			j.status.Status = status
		})
		if time.Since(lastMirror) > time.Second {
			lastMirror = time.Now()
			m.mirror(id)
		}
	}
	// terminal states are set once outputs are stored
	r.OnState = func(s types.ExportState) {
		if s.Terminal() {
			return
		}
		m.update(id, func(j *job) { j.status.State = s })
		m.addLog(id, "State: "+string(s))
		m.mirror(id)
	}

	res, err := m.opts.Exporter.Export(ctx, r)
	if err != nil {
		return err
	}
	m.update(id, func(j *job) {
		j.status.Pipeline = res.Pipeline
		j.status.Container = res.Container
		j.status.Size = len(res.Data)
	})
	if res.FellBack {
		m.addLog(id, "Fast encoder failed, recorded with the legacy pipeline")
	}
	if len(res.Data) == 0 {
		m.finish(id, "", "Nothing to export")
		return nil
	}

	if err := os.MkdirAll(m.opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}
	name := id + "." + res.Container
	path := filepath.Join(m.opts.OutputDir, name)
	if err := os.WriteFile(path, res.Data, 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	m.update(id, func(j *job) { j.output = path })
	m.addLog(id, fmt.Sprintf("Wrote %s (%.2f MB) via %s", path, float64(len(res.Data))/(1024*1024), res.Pipeline))

	location := path
	if m.opts.Uploader != nil {
		loc, err := m.opts.Uploader.Upload(ctx, name, bytes.NewReader(res.Data), ContentType(res.Container))
		if err != nil {
			return fmt.Errorf("upload: %w", err)
		}
		location = loc
		m.addLog(id, "Uploaded to "+loc)
	}
	m.update(id, func(j *job) { j.status.Location = location })

	if req.PublishYouTube {
		if m.opts.Publisher == nil {
			m.addLog(id, "Warning: YouTube publishing requested but not configured")
		} else {
			meta := publish.MetadataFor(req.Manifest.Title, len(slides))
			videoID, err := m.opts.Publisher.Publish(ctx, bytes.NewReader(res.Data), int64(len(res.Data)), meta)
			if err != nil {
				return fmt.Errorf("publish: %w", err)
			}
			m.update(id, func(j *job) { j.status.VideoID = videoID })
			m.addLog(id, "Published as "+videoID)
		}
	}

	m.finish(id, location, "Export complete")
	return nil
}

func (m *Manager) finish(id, location, status string) {
	m.update(id, func(j *job) {
		j.status.State = types.StateDone
		j.status.Progress = 100
		j.status.Status = status
		j.status.Location = location
	})
}

func (m *Manager) notify(ctx context.Context, id string) {
	if m.opts.Notifier == nil {
		return
	}
	m.mu.RLock()
	j, ok := m.jobs[id]
	if !ok {
		m.mu.RUnlock()
		return
	}
	ev := types.ExportEvent{
		JobID:    id,
		State:    j.status.State,
		Location: j.status.Location,
		VideoID:  j.status.VideoID,
		Error:    j.status.Error,
	}
	m.mu.RUnlock()

	if err := m.opts.Notifier.Notify(ctx, ev); err != nil {
		log.Printf("[Jobs] Warning: event for %s not delivered: %v", id, err)
	}
}

// ContentType is the MIME type of a container
func ContentType(container string) string {
	switch container {
	case "mp4":
		return "video/mp4"
	case "avi":
		return "video/x-msvideo"
	default:
		return "application/octet-stream"
	}
}
