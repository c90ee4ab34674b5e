package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"slidecast/encoder"
	"slidecast/jobs"
	"slidecast/types"
)

func TestOutputPath(t *testing.T) {
	tests := []struct {
		requested, manifest, container string
		expected                       string
	}{
		{"", "decks/intro.yaml", "mp4", "decks/intro.mp4"},
		{"", "decks/intro.yaml", "avi", "decks/intro.avi"},
		{"out.mp4", "deck.json", "mp4", "out.mp4"},
		{"out.MP4", "deck.json", "mp4", "out.MP4"},
		{"out.mp4", "deck.json", "avi", "out.avi"},
		{"out", "deck.json", "mp4", "out.mp4"},
	}
	for _, tt := range tests {
		if got := outputPath(tt.requested, tt.manifest, tt.container); got != tt.expected {
			t.Errorf("outputPath(%q, %q, %q) = %q, want %q", tt.requested, tt.manifest, tt.container, got, tt.expected)
		}
	}
}

func TestPrintCapabilities(t *testing.T) {
	var buf bytes.Buffer
	if err := printCapabilities(&buf, encoder.NewRegistry([]string{"mjpeg"}, []string{"pcm"})); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"KIND", "mjpeg", "pcm", "Pipeline at 1920x1080: fast"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := printCapabilities(&buf, &encoder.Registry{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "legacy") {
		t.Errorf("empty registry should report legacy:\n%s", buf.String())
	}
}

func TestRequestHandler(t *testing.T) {
	jm := jobs.NewManager(jobs.Options{})
	h := requestHandler(jm)
	ctx := context.Background()

	tests := []struct {
		name     string
		message  string
		wantMark bool
		wantErr  bool
	}{
		{"queued", `{"job_id":"k1","manifest":{"slides":[{"image":"a.png"}]}}`, true, false},
		{"no slides", `{"job_id":"k2","manifest":{"slides":[]}}`, true, false},
		{"invalid slide", `{"job_id":"k3","manifest":{"slides":[{"script":"no visual"}]}}`, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mark, err := h.HandleMessage(ctx, []byte(tt.message))
			if mark != tt.wantMark || (err != nil) != tt.wantErr {
				t.Errorf("mark=%v err=%v", mark, err)
			}
		})
	}
	if _, err := jm.Get(ctx, "k1"); err != nil {
		t.Errorf("k1 should be queued: %v", err)
	}
	if _, err := jm.Get(ctx, "k3"); !errors.Is(err, jobs.ErrNotFound) {
		t.Errorf("k3 should be rejected: %v", err)
	}

	// fill the backlog; the next request must stay unmarked
	var err error
	for err == nil {
		_, err = jm.Submit(types.ExportRequest{Manifest: types.Manifest{Slides: []types.SlideSpec{{Image: "a.png"}}}}, "")
	}
	mark, err := h.HandleMessage(ctx, []byte(`{"manifest":{"slides":[{"image":"a.png"}]}}`))
	if mark || !errors.Is(err, jobs.ErrQueueFull) {
		t.Errorf("full queue: mark=%v err=%v", mark, err)
	}
}
