package render

import (
	"image"
	"image/color"
	"math"
	"testing"

	"slidecast/types"
)

func TestFitPreservesAspect(t *testing.T) {
	tests := []struct {
		srcW, srcH, dstW, dstH int
	}{
		{1920, 1080, 1920, 1080},
		{1080, 1920, 1920, 1080},
		{4000, 3000, 1280, 720},
		{640, 480, 1920, 1080},
		{333, 777, 1080, 1920},
		{1, 1000, 100, 100},
	}

	for _, tt := range tests {
		w, h := Fit(tt.srcW, tt.srcH, tt.dstW, tt.dstH)
		if w > float64(tt.dstW)+1e-9 || h > float64(tt.dstH)+1e-9 {
			t.Errorf("%v: %.3fx%.3f exceeds target", tt, w, h)
		}
		want := float64(tt.srcW) / float64(tt.srcH)
		if got := w / h; math.Abs(got-want) > 1e-9*want {
			t.Errorf("%v: aspect %.6f want %.6f", tt, got, want)
		}
		if math.Abs(w-float64(tt.dstW)) > 1e-9 && math.Abs(h-float64(tt.dstH)) > 1e-9 {
			t.Errorf("%v: neither axis fills the target (%.3fx%.3f)", tt, w, h)
		}

		rect := FitContain(tt.srcW, tt.srcH, tt.dstW, tt.dstH)
		if !rect.In(image.Rect(0, 0, tt.dstW, tt.dstH)) {
			t.Errorf("%v: rect %v outside target", tt, rect)
		}
		if rect.Empty() {
			continue
		}
		left, right := rect.Min.X, tt.dstW-rect.Max.X
		if d := left - right; d < -1 || d > 1 {
			t.Errorf("%v: rect %v not horizontally centered", tt, rect)
		}
	}

	if r := FitContain(0, 10, 100, 100); !r.Empty() {
		t.Errorf("zero source should produce empty rect, got %v", r)
	}
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestDrawLetterboxes(t *testing.T) {
	red := color.RGBA{R: 0xff, A: 0xff}
	r, err := New(Options{Width: 200, Height: 100})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	src := solid(100, 100, red)
	for name, frame := range map[string]image.Image{"live": src, "prescaled": r.Prescale(src)} {
		t.Run(name, func(t *testing.T) {
			dst := image.NewRGBA(image.Rect(0, 0, 200, 100))
			r.Draw(dst, frame, "")

			if got := dst.RGBAAt(10, 50); got != (color.RGBA{A: 0xff}) {
				t.Errorf("left bar: got %v want black", got)
			}
			if got := dst.RGBAAt(190, 50); got != (color.RGBA{A: 0xff}) {
				t.Errorf("right bar: got %v want black", got)
			}
			if got := dst.RGBAAt(100, 50); got.R < 0xf0 || got.G > 0x10 || got.B > 0x10 {
				t.Errorf("center: got %v want red", got)
			}
		})
	}
}

func TestDrawBackgroundOnly(t *testing.T) {
	r, err := New(Options{Width: 8, Height: 8, Background: "#336699"})
	if err != nil {
		t.Fatal(err)
	}
	dst := image.NewRGBA(image.Rect(0, 0, 8, 8))
	r.Draw(dst, nil, "ignored without subtitles")
	want := color.RGBA{0x33, 0x66, 0x99, 0xff}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if got := dst.RGBAAt(x, y); got != want {
				t.Fatalf("pixel %d,%d = %v want %v", x, y, got, want)
			}
		}
	}
}

func countColor(img *image.RGBA, c color.RGBA) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y) == c {
				n++
			}
		}
	}
	return n
}

func TestSubtitleBoxAndOutline(t *testing.T) {
	white := color.RGBA{0xff, 0xff, 0xff, 0xff}
	green := color.RGBA{G: 0xff, A: 0xff}

	style := types.SubtitleStyle{
		FontSize:          48,
		FontFamily:        "Go",
		TextColor:         "#00ff00",
		BackgroundColor:   "#ffffff",
		BackgroundOpacity: 1,
		Position:          50,
	}

	boxed, err := New(Options{Width: 1280, Height: 720, Style: style, Subtitles: true})
	if err != nil {
		t.Fatal(err)
	}
	defer boxed.Close()
	dst := image.NewRGBA(image.Rect(0, 0, 1280, 720))
	boxed.Draw(dst, nil, "Hello slides")

	if countColor(dst, white) == 0 {
		t.Error("expected an opaque white subtitle box")
	}
	if countColor(dst, green) == 0 {
		t.Error("expected green text pixels")
	}
	if got := dst.RGBAAt(640, 10); got != (color.RGBA{A: 0xff}) {
		t.Errorf("top of frame should stay background, got %v", got)
	}

	style.BackgroundOpacity = 0
	outlined, err := New(Options{Width: 1280, Height: 720, Style: style, Subtitles: true})
	if err != nil {
		t.Fatal(err)
	}
	defer outlined.Close()
	dst = image.NewRGBA(image.Rect(0, 0, 1280, 720))
	outlined.Draw(dst, solid(1280, 720, white), "Hello slides")

	if countColor(dst, green) == 0 {
		t.Error("expected green text pixels with outline")
	}
	if countColor(dst, color.RGBA{A: 0xff}) == 0 {
		t.Error("expected a dark outline over the white frame")
	}
}

func TestUnknownFontFallsBack(t *testing.T) {
	r, err := New(Options{
		Width:     100,
		Height:    100,
		Subtitles: true,
		Style:     types.SubtitleStyle{FontFamily: "Comic Neue", FontPath: "/does/not/exist.ttf"},
	})
	if err != nil {
		t.Fatalf("expected fallback font, got %v", err)
	}
	r.Close()
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#FFFFFF", color.RGBA{0xff, 0xff, 0xff, 0xff}, false},
		{"#000", color.RGBA{0, 0, 0, 0xff}, false},
		{"ff8800", color.RGBA{0xff, 0x88, 0x00, 0xff}, false},
		{" White ", color.RGBA{0xff, 0xff, 0xff, 0xff}, false},
		{"#zzzzzz", color.RGBA{}, true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseColor(%q) err = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseColor(%q) = %v want %v", tt.in, got, tt.want)
		}
	}
}

func TestRoundedMaskCorners(t *testing.T) {
	m := &roundedMask{rect: image.Rect(0, 0, 40, 20), radius: 8, alpha: 200}
	if a := m.At(0, 0).(color.Alpha).A; a != 0 {
		t.Errorf("corner should be transparent, got %d", a)
	}
	if a := m.At(20, 10).(color.Alpha).A; a != 200 {
		t.Errorf("center should be %d, got %d", 200, a)
	}
	if a := m.At(0, 10).(color.Alpha).A; a != 200 {
		t.Errorf("edge middle should be filled, got %d", a)
	}
}
