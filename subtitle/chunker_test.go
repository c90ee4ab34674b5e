package subtitle

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"slidecast/config"
)

const script = "Welcome to the quarterly review. Revenue grew by twelve percent while costs stayed flat, " +
	"and the team shipped three major releases ahead of schedule."

func TestSplitRespectsLimitAndWords(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		maxChars int
	}{
		{"landscape", script, config.SubtitleMaxCharsLandscape},
		{"portrait", script, config.SubtitleMaxCharsPortrait},
		{"tiny limit", script, 5},
		{"messy whitespace", "  one\ttwo \n\n three   four  ", 8},
		{"unicode", "naïve café déjà vu über straße", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Split(tt.script, tt.maxChars)
			if c.Len() == 0 {
				t.Fatal("expected chunks")
			}

			words := strings.Fields(tt.script)
			if got, want := strings.Join(c.Text, " "), strings.Join(words, " "); got != want {
				t.Fatalf("round trip mismatch:\n got  %q\n want %q", got, want)
			}

			for _, chunk := range c.Text {
				n := utf8.RuneCountInString(chunk)
				if n > tt.maxChars && strings.Contains(chunk, " ") {
					t.Errorf("chunk %q has %d runes, limit %d", chunk, n, tt.maxChars)
				}
			}
		})
	}
}

func TestSplitLongWordStandsAlone(t *testing.T) {
	c := Split("a supercalifragilistic b", 6)
	want := []string{"a", "supercalifragilistic", "b"}
	if strings.Join(c.Text, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q want %q", c.Text, want)
	}
}

func TestSplitEmpty(t *testing.T) {
	for _, s := range []string{"", "   ", "\n\t"} {
		if c := Split(s, 20); c.Len() != 0 {
			t.Errorf("Split(%q) produced %d chunks", s, c.Len())
		}
	}
}

func TestIndexMonotonic(t *testing.T) {
	c := Split(script, 20)
	prev := -1
	for i := -10; i <= 110; i++ {
		p := float64(i) / 100
		idx := c.Index(p)
		if idx < prev {
			t.Fatalf("index decreased at p=%.2f: %d < %d", p, idx, prev)
		}
		prev = idx
	}
}

func TestIndexEdges(t *testing.T) {
	c := Split("aaaa bb cccccccc", 4)
	// cumulative: 4, 6, 14
	tests := []struct {
		progress float64
		want     int
	}{
		{-1, 0},
		{0, 0},
		{0.2, 0},  // target 2.8
		{0.3, 1},  // target 4.2
		{0.42, 1}, // target 5.88
		{0.5, 2},  // target 7
		{1, 2},
		{3, 2},
	}
	for _, tt := range tests {
		if got := c.Index(tt.progress); got != tt.want {
			t.Errorf("Index(%v) = %d want %d", tt.progress, got, tt.want)
		}
	}

	if got := (Chunks{}).Index(0.5); got != -1 {
		t.Errorf("empty chunks index = %d want -1", got)
	}
}

func TestMaxChars(t *testing.T) {
	if MaxChars(1080, 1920) != config.SubtitleMaxCharsPortrait {
		t.Error("portrait output should use the portrait limit")
	}
	if MaxChars(1920, 1080) != config.SubtitleMaxCharsLandscape {
		t.Error("landscape output should use the landscape limit")
	}
	if MaxChars(1080, 1080) != config.SubtitleMaxCharsLandscape {
		t.Error("square output should use the landscape limit")
	}
}

func TestTrackText(t *testing.T) {
	content := 4 * time.Second

	tr := NewTrack("first second third fourth", "", content, 6)
	if got := tr.Text(0); got != "first" {
		t.Errorf("start: got %q", got)
	}
	if got := tr.Text(content - time.Millisecond); got != "fourth" {
		t.Errorf("end: got %q", got)
	}
	if got := tr.Text(content + 500*time.Millisecond); got != "" {
		t.Errorf("delay window should be empty, got %q", got)
	}

	override := NewTrack("", "  Thanks for watching ", content, 6)
	if got := override.Text(time.Second); got != "  Thanks for watching " {
		t.Errorf("override: got %q", got)
	}
	if got := override.Text(content); got != "" {
		t.Errorf("override in delay window: got %q", got)
	}

	none := NewTrack("", "", content, 6)
	if got := none.Text(time.Second); got != "" {
		t.Errorf("no subtitle expected, got %q", got)
	}
}
