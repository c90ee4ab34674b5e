package jobs

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"slidecast/orchestrator"
	"slidecast/publish"
	"slidecast/types"

	"github.com/redis/go-redis/v9"
)

type fakeExporter struct {
	err      error
	data     []byte
	requests []orchestrator.Request
}

func (f *fakeExporter) Export(_ context.Context, req orchestrator.Request) (*orchestrator.Result, error) {
	f.requests = append(f.requests, req)
	if req.OnState != nil {
		req.OnState(types.StateProbing)
		req.OnState(types.StateEncodingFast)
	}
	if req.Progress != nil {
		req.Progress(50, "Encoding slide 1/1")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &orchestrator.Result{Data: f.data, Pipeline: "fast", Container: "mp4"}, nil
}

type fakeUploader struct{ keys []string }

func (u *fakeUploader) Upload(_ context.Context, key string, body io.Reader, contentType string) (string, error) {
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	u.keys = append(u.keys, key+" "+contentType)
	return "s3://bucket/" + key, nil
}

type fakePublisher struct{ titles []string }

func (p *fakePublisher) Publish(_ context.Context, _ io.Reader, _ int64, meta publish.Metadata) (string, error) {
	p.titles = append(p.titles, meta.Title)
	return "yt123", nil
}

type chanNotifier chan types.ExportEvent

func (n chanNotifier) Notify(_ context.Context, ev types.ExportEvent) error {
	n <- ev
	return nil
}

type memMirror struct {
	mu   sync.Mutex
	data map[string]types.JobStatus
}

func (m *memMirror) Save(_ context.Context, st types.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[st.ID] = st
	return nil
}

func (m *memMirror) Load(_ context.Context, id string) (*types.JobStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &st, nil
}

func request(id string) types.ExportRequest {
	return types.ExportRequest{
		JobID: id,
		Manifest: types.Manifest{
			Title:  "Deck",
			Slides: []types.SlideSpec{{Image: "one.png"}, {Image: "two.png"}},
		},
	}
}

func waitEvent(t *testing.T, events chanNotifier) types.ExportEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job event")
	}
	return types.ExportEvent{}
}

func TestManagerRunsJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exporter := &fakeExporter{data: []byte("video")}
	uploader := &fakeUploader{}
	publisher := &fakePublisher{}
	events := make(chanNotifier, 1)
	mirror := &memMirror{data: map[string]types.JobStatus{}}
	m := NewManager(Options{
		Exporter:  exporter,
		OutputDir: t.TempDir(),
		Uploader:  uploader,
		Publisher: publisher,
		Notifier:  events,
		Mirror:    mirror,
	})
	m.Start(ctx)

	req := request("")
	req.PublishYouTube = true
	id, err := m.Submit(req, "")
	if err != nil {
		t.Fatal(err)
	}

	ev := waitEvent(t, events)
	if ev.JobID != id || ev.State != types.StateDone || ev.Location != "s3://bucket/"+id+".mp4" || ev.VideoID != "yt123" {
		t.Fatalf("event = %+v", ev)
	}

	st, err := m.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if st.Progress != 100 || st.Pipeline != "fast" || st.Size != 5 || len(st.Logs) == 0 {
		t.Errorf("status = %+v", st)
	}
	if len(uploader.keys) != 1 || uploader.keys[0] != id+".mp4 video/mp4" {
		t.Errorf("uploads = %v", uploader.keys)
	}
	if len(publisher.titles) != 1 || publisher.titles[0] != "Deck" {
		t.Errorf("published = %v", publisher.titles)
	}

	path, err := m.Output(id)
	if err != nil {
		t.Fatal(err)
	}
	if data, _ := os.ReadFile(path); string(data) != "video" {
		t.Errorf("output = %q", data)
	}

	if mirrored, err := mirror.Load(ctx, id); err != nil || mirrored.State != types.StateDone {
		t.Errorf("mirror = %+v, %v", mirrored, err)
	}
	if r := exporter.requests[0]; r.Width != 1920 || r.Height != 1080 || len(r.Slides) != 2 {
		t.Errorf("request = %dx%d, %d slides", r.Width, r.Height, len(r.Slides))
	}
}

func TestManagerRecordsFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chanNotifier, 1)
	m := NewManager(Options{
		Exporter:  &fakeExporter{err: orchestrator.ErrExportFailed},
		OutputDir: t.TempDir(),
		Notifier:  events,
	})
	m.Start(ctx)

	id, err := m.Submit(request("job-1"), "")
	if err != nil {
		t.Fatal(err)
	}
	ev := waitEvent(t, events)
	if ev.State != types.StateFailed || ev.Error == "" {
		t.Fatalf("event = %+v", ev)
	}
	if _, err := m.Output(id); !errors.Is(err, ErrNotReady) {
		t.Errorf("output err = %v", err)
	}
	st, _ := m.Get(ctx, id)
	if st.Logs[len(st.Logs)-1].Message != "Error: "+orchestrator.ErrExportFailed.Error() {
		t.Errorf("last log = %q", st.Logs[len(st.Logs)-1].Message)
	}
}

func TestSubmitValidation(t *testing.T) {
	m := NewManager(Options{Exporter: &fakeExporter{}})

	bad := request("")
	bad.Manifest.Slides = append(bad.Manifest.Slides, types.SlideSpec{})
	if _, err := m.Submit(bad, ""); err == nil {
		t.Error("slide without a visual should be rejected")
	}

	// resubmitting is idempotent
	for i := 0; i < 2; i++ {
		if id, err := m.Submit(request("same"), ""); err != nil || id != "same" {
			t.Fatalf("submit %d: %q, %v", i, id, err)
		}
	}
	if got := len(m.List()); got != 1 {
		t.Errorf("jobs = %d", got)
	}

	if _, err := m.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get err = %v", err)
	}
	if _, err := m.Output("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("output err = %v", err)
	}
}

func TestSubmitQueueFull(t *testing.T) {
	m := NewManager(Options{Exporter: &fakeExporter{}})
	var err error
	for i := 0; err == nil && i < 1000; i++ {
		_, err = m.Submit(request(""), "")
	}
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("err = %v", err)
	}
}

func TestGetFallsBackToMirror(t *testing.T) {
	mirror := &memMirror{data: map[string]types.JobStatus{
		"remote": {ID: "remote", State: types.StateEncodingLegacy, Progress: 42},
	}}
	m := NewManager(Options{Exporter: &fakeExporter{}, Mirror: mirror})
	st, err := m.Get(context.Background(), "remote")
	if err != nil || st.Progress != 42 {
		t.Errorf("status = %+v, %v", st, err)
	}
}

// fakeRedis implements the two commands the mirror uses
type fakeRedis struct {
	redis.Cmdable
	data map[string]string
	ttl  time.Duration
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	f.ttl = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func TestRedisMirror(t *testing.T) {
	rdb := &fakeRedis{data: map[string]string{}}
	mirror := newRedisMirror(rdb, 0)
	ctx := context.Background()

	if err := mirror.Save(ctx, types.JobStatus{ID: "abc", State: types.StateDone, Location: "s3://b/abc.mp4"}); err != nil {
		t.Fatal(err)
	}
	if _, ok := rdb.data["slidecast:job:abc"]; !ok || rdb.ttl != 24*time.Hour {
		t.Errorf("stored %v with ttl %v", rdb.data, rdb.ttl)
	}
	st, err := mirror.Load(ctx, "abc")
	if err != nil || st.Location != "s3://b/abc.mp4" {
		t.Errorf("loaded %+v, %v", st, err)
	}
	if _, err := mirror.Load(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}
