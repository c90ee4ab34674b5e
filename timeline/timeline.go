package timeline

import (
	"time"

	"slidecast/config"
	"slidecast/types"
)

// Segment is one slide's span on the output timeline
type Segment struct {
	Index   int
	Start   time.Duration
	Content time.Duration
	// Delay is the trailing gap, zero for the last slide
	Delay time.Duration
}

// Effective returns content plus trailing delay
func (s Segment) Effective() time.Duration {
	return s.Content + s.Delay
}

// End returns the first instant after the segment
func (s Segment) End() time.Duration {
	return s.Start + s.Effective()
}

// Timeline is the contiguous sequence of segments
type Timeline struct {
	Segments []Segment
	Total    time.Duration
}

// ContentDuration resolves a slide's content length: narration first,
// then the clip's intrinsic duration, then the default.
func ContentDuration(s types.Slide) time.Duration {
	if d := s.Narration.Duration(); d > 0 {
		return d
	}
	if s.Visual != nil {
		if d := s.Visual.Duration(); d > 0 {
			return d
		}
	}
	return config.DefaultSlideDuration
}

// Build computes start offsets and the total duration for the slides
func Build(slides []types.Slide, delay types.DelayConfig) Timeline {
	gap := delay.Duration()
	tl := Timeline{Segments: make([]Segment, 0, len(slides))}

	var cursor time.Duration
	for i, s := range slides {
		seg := Segment{
			Index:   i,
			Start:   cursor,
			Content: ContentDuration(s),
		}
		if i < len(slides)-1 {
			seg.Delay = gap
		}
		tl.Segments = append(tl.Segments, seg)
		cursor += seg.Effective()
	}
	tl.Total = cursor
	return tl
}

// Empty reports whether there is nothing to export
func (tl Timeline) Empty() bool {
	return len(tl.Segments) == 0
}

// Locate returns the segment index containing t and the offset within it.
// Instants at or past Total resolve to the end of the last segment.
func (tl Timeline) Locate(t time.Duration) (index int, local time.Duration, ok bool) {
	if len(tl.Segments) == 0 {
		return 0, 0, false
	}
	if t < 0 {
		t = 0
	}
	for i, seg := range tl.Segments {
		if t < seg.End() {
			return i, t - seg.Start, true
		}
	}
	last := tl.Segments[len(tl.Segments)-1]
	return last.Index, last.Effective(), true
}

// FrameCount returns the number of frames needed to cover the timeline
func (tl Timeline) FrameCount(fps int) int {
	if fps <= 0 || tl.Total <= 0 {
		return 0
	}
	n := int64(tl.Total) * int64(fps)
	count := n / int64(time.Second)
	if n%int64(time.Second) != 0 {
		count++
	}
	return int(count)
}
