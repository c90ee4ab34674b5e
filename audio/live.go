package audio

import (
	"sync"
	"time"

	"slidecast/types"
)

type scheduled struct {
	offset int
	limit  int
	buf    *types.AudioBuffer
}

// LiveMixer is a mixing destination for real-time capture. Sources are
// scheduled against the timeline up front and rendered incrementally as
// wall-clock time reaches them.
type LiveMixer struct {
	mu         sync.Mutex
	sampleRate int
	channels   int
	entries    []scheduled
	cursor     int
}

// NewLiveMixer creates an empty destination
func NewLiveMixer(sampleRate, channels int) *LiveMixer {
	return &LiveMixer{sampleRate: sampleRate, channels: channels}
}

// Schedule plays buf starting at the timeline offset at, cut after limit
// (limit <= 0 plays the whole buffer).
func (l *LiveMixer) Schedule(at time.Duration, buf *types.AudioBuffer, limit time.Duration) {
	if buf.Frames() == 0 {
		return
	}
	buf = Convert(buf, l.sampleRate, l.channels)
	e := scheduled{
		offset: FrameAt(at, l.sampleRate),
		limit:  -1,
		buf:    buf,
	}
	if limit > 0 {
		e.limit = FramesFor(limit, l.sampleRate)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// Active reports whether anything has been scheduled
func (l *LiveMixer) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries) > 0
}

// Pull renders the mix from the previous pull up to until. It returns nil
// when until has not advanced.
func (l *LiveMixer) Pull(until time.Duration) *types.AudioBuffer {
	l.mu.Lock()
	defer l.mu.Unlock()

	end := FramesFor(until, l.sampleRate)
	if end <= l.cursor {
		return nil
	}
	out := types.NewAudioBuffer(l.sampleRate, l.channels, end-l.cursor)

	for _, e := range l.entries {
		length := e.buf.Frames()
		if e.limit >= 0 && length > e.limit {
			length = e.limit
		}
		from := max(l.cursor, e.offset)
		to := min(end, e.offset+length)
		if from >= to {
			continue
		}
		for c := range out.Channels {
			src := e.buf.Channels[c%len(e.buf.Channels)][from-e.offset : to-e.offset]
			dst := out.Channels[c][from-l.cursor : to-l.cursor]
			for i, v := range src {
				dst[i] += v
			}
		}
	}

	l.cursor = end
	hardClip(out)
	return out
}
