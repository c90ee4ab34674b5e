package audio

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"
	"time"

	"slidecast/timeline"
	"slidecast/types"
)

type fakeClip struct {
	duration time.Duration
	audio    *types.AudioBuffer
	err      error
	decodes  int
}

func (f *fakeClip) Open(context.Context) error { return nil }
func (f *fakeClip) Size() (int, int)           { return 4, 4 }
func (f *fakeClip) Duration() time.Duration    { return f.duration }
func (f *fakeClip) Frame(context.Context, time.Duration) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}
func (f *fakeClip) Close() error { return nil }
func (f *fakeClip) DecodeAudio(_ context.Context, rate, ch int) (*types.AudioBuffer, error) {
	f.decodes++
	if f.err != nil {
		return nil, f.err
	}
	return Convert(f.audio, rate, ch), nil
}

func constant(rate, channels int, seconds, value float64) *types.AudioBuffer {
	b := types.NewAudioBuffer(rate, channels, int(seconds*float64(rate)))
	for _, ch := range b.Channels {
		for i := range ch {
			ch[i] = float32(value)
		}
	}
	return b
}

func TestMixPlacesSourcesAtSlideOffsets(t *testing.T) {
	const rate = 1000
	clip := &fakeClip{duration: 2 * time.Second, audio: constant(rate, 2, 5, 0.25)}
	slides := []types.Slide{
		{ID: "narrated", Narration: constant(rate, 1, 1, 0.5)},
		{ID: "clip", Visual: clip},
		{ID: "still"},
	}
	tl := timeline.Build(slides, types.DelayConfig{Enabled: true, Seconds: 1})
	// segments: [0,2) [2,5) [5,10)

	m := &Mixer{SampleRate: rate, Channels: 2}
	out, stats, err := m.Mix(context.Background(), slides, tl)
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	if stats.Silent || stats.Sources != 2 || stats.Failed != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if out.Frames() != 10*rate {
		t.Fatalf("frames: got %d want %d", out.Frames(), 10*rate)
	}

	tests := []struct {
		name  string
		frame int
		want  float32
	}{
		{"narration upmixed", 500, 0.5},
		{"narration ends", 1500, 0},
		{"clip audio starts at offset", 2000, 0.25},
		{"clip audio inside content", 3999, 0.25},
		{"clip audio cut at content end", 4000, 0},
		{"still is silent", 7000, 0},
	}
	for _, tt := range tests {
		for c := 0; c < 2; c++ {
			if got := out.Channels[c][tt.frame]; got != tt.want {
				t.Errorf("%s: channel %d frame %d = %v want %v", tt.name, c, tt.frame, got, tt.want)
			}
		}
	}
}

func TestMixSwallowsDecodeFailures(t *testing.T) {
	clip := &fakeClip{duration: time.Second, err: errors.New("no audio stream")}
	slides := []types.Slide{{ID: "broken", Visual: clip}}
	tl := timeline.Build(slides, types.DelayConfig{})

	out, stats, err := (&Mixer{SampleRate: 8000, Channels: 2}).Mix(context.Background(), slides, tl)
	if err != nil {
		t.Fatalf("Mix should not fail: %v", err)
	}
	if !stats.Silent || stats.Failed != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if out.Frames() != 8000 {
		t.Fatalf("frames: got %d", out.Frames())
	}
	if clip.decodes != 1 {
		t.Fatalf("decode attempts: %d", clip.decodes)
	}
}

func TestMixNarrationSkipsClipAudio(t *testing.T) {
	clip := &fakeClip{duration: time.Second, audio: constant(100, 1, 1, 1)}
	slides := []types.Slide{{Visual: clip, Narration: constant(100, 1, 1, 0.1)}}
	tl := timeline.Build(slides, types.DelayConfig{})

	if _, _, err := (&Mixer{SampleRate: 100, Channels: 1}).Mix(context.Background(), slides, tl); err != nil {
		t.Fatal(err)
	}
	if clip.decodes != 0 {
		t.Fatal("clip audio must not be decoded when narration exists")
	}
}

func TestMixClipsOverlaps(t *testing.T) {
	out := types.NewAudioBuffer(10, 1, 10)
	addInto(out, constant(10, 1, 1, 0.8), 0, -1)
	addInto(out, constant(10, 1, 1, 0.8), 0, -1)
	hardClip(out)
	if out.Channels[0][0] != 1 {
		t.Fatalf("expected clipping to 1, got %v", out.Channels[0][0])
	}
}

func TestConvert(t *testing.T) {
	stereo := types.NewAudioBuffer(100, 2, 100)
	for i := range stereo.Channels[0] {
		stereo.Channels[0][i] = 1
		stereo.Channels[1][i] = 0
	}

	mono := Convert(stereo, 100, 1)
	if mono.NumChannels() != 1 || mono.Channels[0][10] != 0.5 {
		t.Fatalf("downmix: got %d channels, sample %v", mono.NumChannels(), mono.Channels[0][10])
	}

	up := Convert(stereo, 200, 2)
	if up.Frames() != 200 {
		t.Fatalf("upsample frames: got %d want 200", up.Frames())
	}
	if up.Duration() != stereo.Duration() {
		t.Fatalf("duration changed: %v -> %v", stereo.Duration(), up.Duration())
	}

	ramp := types.NewAudioBuffer(10, 1, 10)
	for i := range ramp.Channels[0] {
		ramp.Channels[0][i] = float32(i) / 10
	}
	res := Convert(ramp, 20, 1)
	if got := res.Channels[0][3]; math.Abs(float64(got)-0.15) > 1e-6 {
		t.Fatalf("interpolated sample: got %v want 0.15", got)
	}
}

func TestLiveMixerPull(t *testing.T) {
	l := NewLiveMixer(100, 1)
	if l.Active() {
		t.Fatal("new mixer should be inactive")
	}
	l.Schedule(500*time.Millisecond, constant(100, 1, 2, 0.5), time.Second)
	if !l.Active() {
		t.Fatal("mixer should be active after scheduling")
	}

	first := l.Pull(700 * time.Millisecond)
	if first.Frames() != 70 {
		t.Fatalf("first pull frames: %d", first.Frames())
	}
	if first.Channels[0][49] != 0 || first.Channels[0][50] != 0.5 {
		t.Fatalf("scheduled offset not honored: %v %v", first.Channels[0][49], first.Channels[0][50])
	}

	if l.Pull(700*time.Millisecond) != nil {
		t.Fatal("pull without progress should return nil")
	}

	second := l.Pull(2 * time.Second)
	if second.Frames() != 130 {
		t.Fatalf("second pull frames: %d", second.Frames())
	}
	// limit of one second ends the source at 1.5s, frame 80 of this pull
	if second.Channels[0][79] != 0.5 || second.Channels[0][80] != 0 {
		t.Fatalf("limit not honored: %v %v", second.Channels[0][79], second.Channels[0][80])
	}
}

func TestFromInterleaved(t *testing.T) {
	raw := []byte{
		0x00, 0x00, 0x80, 0x3f, // 1.0
		0x00, 0x00, 0x00, 0xbf, // -0.5
		0x00, 0x00, 0x00, 0x3f, // 0.5
		0x00, 0x00, 0x00, 0x00, // 0
	}
	b := FromInterleaved(raw, 48000, 2)
	if b.Frames() != 2 {
		t.Fatalf("frames: %d", b.Frames())
	}
	if b.Channels[0][0] != 1 || b.Channels[1][0] != -0.5 || b.Channels[0][1] != 0.5 || b.Channels[1][1] != 0 {
		t.Fatalf("unexpected samples %v", b.Channels)
	}
}
