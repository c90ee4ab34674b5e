package timeline

import (
	"context"
	"image"
	"testing"
	"time"

	"slidecast/config"
	"slidecast/types"
)

type fakeVisual struct {
	duration time.Duration
}

func (f fakeVisual) Open(context.Context) error { return nil }
func (f fakeVisual) Size() (int, int)           { return 16, 9 }
func (f fakeVisual) Duration() time.Duration    { return f.duration }
func (f fakeVisual) Frame(context.Context, time.Duration) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 16, 9)), nil
}
func (f fakeVisual) Close() error { return nil }

func narration(seconds float64) *types.AudioBuffer {
	return types.NewAudioBuffer(48000, 1, int(seconds*48000))
}

func TestBuildExampleDeck(t *testing.T) {
	slides := []types.Slide{
		{ID: "a", Visual: fakeVisual{}, Narration: narration(4)},
		{ID: "b", Visual: fakeVisual{duration: 5 * time.Second}},
		{ID: "c", Visual: fakeVisual{}, Narration: narration(2)},
	}

	tl := Build(slides, types.DelayConfig{Enabled: true, Seconds: 1})

	if tl.Total != 13*time.Second {
		t.Fatalf("total: got %v want 13s", tl.Total)
	}

	want := []Segment{
		{Index: 0, Start: 0, Content: 4 * time.Second, Delay: time.Second},
		{Index: 1, Start: 5 * time.Second, Content: 5 * time.Second, Delay: time.Second},
		{Index: 2, Start: 11 * time.Second, Content: 2 * time.Second, Delay: 0},
	}
	for i, seg := range tl.Segments {
		if seg != want[i] {
			t.Errorf("segment %d: got %+v want %+v", i, seg, want[i])
		}
	}
}

func TestBuildTotals(t *testing.T) {
	tests := []struct {
		name   string
		slides []types.Slide
		delay  types.DelayConfig
		want   time.Duration
	}{
		{
			name:   "empty deck",
			slides: nil,
			delay:  types.DelayConfig{Enabled: true, Seconds: 1},
			want:   0,
		},
		{
			name:   "delay disabled",
			slides: []types.Slide{{Narration: narration(3)}, {Narration: narration(2)}},
			delay:  types.DelayConfig{Enabled: false, Seconds: 1},
			want:   5 * time.Second,
		},
		{
			name:   "single slide never gets a delay",
			slides: []types.Slide{{Narration: narration(3)}},
			delay:  types.DelayConfig{Enabled: true, Seconds: 2},
			want:   3 * time.Second,
		},
		{
			name:   "image only uses default",
			slides: []types.Slide{{Visual: fakeVisual{}}},
			want:   config.DefaultSlideDuration,
		},
		{
			name:   "narration wins over clip",
			slides: []types.Slide{{Visual: fakeVisual{duration: 9 * time.Second}, Narration: narration(2)}},
			want:   2 * time.Second,
		},
		{
			name:   "empty narration falls through to clip",
			slides: []types.Slide{{Visual: fakeVisual{duration: 7 * time.Second}, Narration: narration(0)}},
			want:   7 * time.Second,
		},
		{
			name: "n minus one delays",
			slides: []types.Slide{
				{Visual: fakeVisual{}}, {Visual: fakeVisual{}}, {Visual: fakeVisual{}}, {Visual: fakeVisual{}},
			},
			delay: types.DelayConfig{Enabled: true, Seconds: 0.5},
			want:  4*config.DefaultSlideDuration + 1500*time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := Build(tt.slides, tt.delay)
			if tl.Total != tt.want {
				t.Fatalf("got %v want %v", tl.Total, tt.want)
			}
			var sum time.Duration
			for i, seg := range tl.Segments {
				if seg.Start != sum {
					t.Fatalf("segment %d not contiguous: start %v want %v", i, seg.Start, sum)
				}
				if seg.Content <= 0 {
					t.Fatalf("segment %d has non-positive content %v", i, seg.Content)
				}
				sum += seg.Effective()
			}
		})
	}
}

func TestLocate(t *testing.T) {
	tl := Build([]types.Slide{
		{Narration: narration(2)},
		{Narration: narration(3)},
	}, types.DelayConfig{Enabled: true, Seconds: 1})

	tests := []struct {
		at        time.Duration
		wantIndex int
		wantLocal time.Duration
	}{
		{0, 0, 0},
		{1500 * time.Millisecond, 0, 1500 * time.Millisecond},
		{2500 * time.Millisecond, 0, 2500 * time.Millisecond},
		{3 * time.Second, 1, 0},
		{5 * time.Second, 1, 2 * time.Second},
		{6 * time.Second, 1, 3 * time.Second},
		{10 * time.Second, 1, 3 * time.Second},
	}
	for _, tt := range tests {
		idx, local, ok := tl.Locate(tt.at)
		if !ok || idx != tt.wantIndex || local != tt.wantLocal {
			t.Errorf("Locate(%v) = %d, %v, %v; want %d, %v", tt.at, idx, local, ok, tt.wantIndex, tt.wantLocal)
		}
	}

	if _, _, ok := (Timeline{}).Locate(0); ok {
		t.Error("empty timeline should not locate")
	}
}

func TestFrameCount(t *testing.T) {
	tests := []struct {
		total time.Duration
		fps   int
		want  int
	}{
		{13 * time.Second, 30, 390},
		{1001 * time.Millisecond, 30, 31},
		{0, 30, 0},
		{time.Second / 3, 30, 10},
	}
	for _, tt := range tests {
		got := Timeline{Total: tt.total}.FrameCount(tt.fps)
		if got != tt.want {
			t.Errorf("FrameCount(%v, %d) = %d want %d", tt.total, tt.fps, got, tt.want)
		}
	}
}
