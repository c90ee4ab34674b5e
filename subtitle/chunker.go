package subtitle

import (
	"strings"
	"time"
	"unicode/utf8"

	"slidecast/config"
)

// Chunks is an ordered, word-safe split of a narration script
type Chunks struct {
	Text []string
	// cumulative[i] is the rune count of Text[0..i]
	cumulative []int
}

// MaxChars returns the chunk length bound for an output size
func MaxChars(width, height int) int {
	if height > width {
		return config.SubtitleMaxCharsPortrait
	}
	return config.SubtitleMaxCharsLandscape
}

// Split greedily packs whole words into chunks of at most maxChars runes.
// A word longer than maxChars becomes a chunk of its own.
func Split(script string, maxChars int) Chunks {
	words := strings.Fields(script)
	if len(words) == 0 {
		return Chunks{}
	}
	if maxChars < 1 {
		maxChars = 1
	}

	var c Chunks
	var line strings.Builder
	lineLen := 0
	flush := func() {
		if lineLen == 0 {
			return
		}
		c.add(line.String(), lineLen)
		line.Reset()
		lineLen = 0
	}

	for _, w := range words {
		n := utf8.RuneCountInString(w)
		if lineLen > 0 && lineLen+1+n > maxChars {
			flush()
		}
		if lineLen > 0 {
			line.WriteByte(' ')
			lineLen++
		}
		line.WriteString(w)
		lineLen += n
	}
	flush()
	return c
}

func (c *Chunks) add(text string, n int) {
	prev := 0
	if len(c.cumulative) > 0 {
		prev = c.cumulative[len(c.cumulative)-1]
	}
	c.Text = append(c.Text, text)
	c.cumulative = append(c.cumulative, prev+n)
}

// Len returns the number of chunks
func (c Chunks) Len() int {
	return len(c.Text)
}

// TotalChars returns the rune count across all chunks
func (c Chunks) TotalChars() int {
	if len(c.cumulative) == 0 {
		return 0
	}
	return c.cumulative[len(c.cumulative)-1]
}

// Index maps a progress fraction over the slide's content to a chunk index,
// advancing in proportion to the characters already read. It returns -1
// when there are no chunks.
func (c Chunks) Index(progress float64) int {
	switch {
	case len(c.Text) == 0:
		return -1
	case progress <= 0:
		return 0
	case progress >= 1:
		return len(c.Text) - 1
	}
	target := progress * float64(c.TotalChars())
	for i, cum := range c.cumulative {
		if float64(cum) >= target {
			return i
		}
	}
	return len(c.Text) - 1
}

// At returns the chunk visible at progress, or "" when there are no chunks
func (c Chunks) At(progress float64) string {
	i := c.Index(progress)
	if i < 0 {
		return ""
	}
	return c.Text[i]
}

// Track resolves the subtitle for one slide
type Track struct {
	Chunks   Chunks
	Override string
	Content  time.Duration
}

// NewTrack splits script for a slide whose content lasts content. The
// override is shown as given.
func NewTrack(script, override string, content time.Duration, maxChars int) Track {
	return Track{
		Chunks:   Split(script, maxChars),
		Override: override,
		Content:  content,
	}
}

// Text returns the subtitle at local time within the slide. Nothing is shown
// in the trailing delay window.
func (t Track) Text(local time.Duration) string {
	if local >= t.Content || local < 0 {
		return ""
	}
	if t.Chunks.Len() == 0 {
		return t.Override
	}
	progress := 0.0
	if t.Content > 0 {
		progress = float64(local) / float64(t.Content)
	}
	return t.Chunks.At(progress)
}
