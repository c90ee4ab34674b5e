package encoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	videoTimescale = 90000
	movieTimescale = 1000
	mdatHeaderSize = 16
)

// TrackSpec declares a muxer track before any unit is written
type TrackSpec struct {
	Kind       TrackKind
	Format     string
	Width      int
	Height     int
	SampleRate int
	Channels   int
	Bitrate    int
}

type chunkRef struct {
	offset  uint64
	samples uint32
}

type muxTrack struct {
	id        int
	spec      TrackSpec
	timescale uint32
	config    []byte

	sizes     []uint32
	deltas    []uint32
	syncs     []uint32
	allSync   bool
	chunks    []chunkRef
	elapsed   uint64
	pcmFrames uint64
}

// MP4Muxer interleaves encoded units into an in-memory MP4 file. The mdat
// is written as units arrive and the moov is appended on Finalize.
type MP4Muxer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	tracks    []*muxTrack
	mdatStart int
	finalized bool
}

// NewMP4Muxer writes ftyp and opens the mdat
func NewMP4Muxer() *MP4Muxer {
	m := &MP4Muxer{}
	ftyp := new(atomBuffer)
	ftyp.WriteTag("isom")
	ftyp.WriteUint32(512)
	for _, brand := range []string{"isom", "iso2", "avc1", "mp41"} {
		ftyp.WriteTag(brand)
	}
	m.buf.Write((&atom{Type: "ftyp", Data: ftyp.Bytes()}).serialize())

	m.mdatStart = m.buf.Len()
	hdr := new(atomBuffer)
	hdr.WriteUint32(1)
	hdr.WriteTag("mdat")
	hdr.WriteUint64(0)
	m.buf.Write(hdr.Bytes())
	return m
}

// AddTrack registers a track and returns its 1-based id
func (m *MP4Muxer) AddTrack(spec TrackSpec) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &muxTrack{id: len(m.tracks) + 1, spec: spec, allSync: true}
	switch spec.Kind {
	case TrackVideo:
		t.timescale = videoTimescale
	default:
		t.timescale = uint32(spec.SampleRate)
	}
	m.tracks = append(m.tracks, t)
	return t.id
}

// Sink binds encoder output to a track
func (m *MP4Muxer) Sink(track int) Sink {
	return func(u Unit) error {
		u.Track = track
		return m.Write(u)
	}
}

// Write appends one unit to the mdat
func (m *MP4Muxer) Write(u Unit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finalized {
		return ErrClosed
	}
	if u.Track < 1 || u.Track > len(m.tracks) {
		return fmt.Errorf("unknown track %d", u.Track)
	}
	t := m.tracks[u.Track-1]
	if t.config == nil && u.Config != nil {
		t.config = append([]byte(nil), u.Config...)
	}

	offset := uint64(m.buf.Len())
	m.buf.Write(u.Data)

	if t.spec.Format == "pcm" {
		frames := uint64(u.Samples)
		if frames == 0 {
			frames = uint64(len(u.Data) / pcmFrameSize(t.spec.Channels))
		}
		t.chunks = append(t.chunks, chunkRef{offset: offset, samples: uint32(frames)})
		t.pcmFrames += frames
		return nil
	}

	end := toTicks(u.PTS+u.Duration, t.timescale)
	delta := uint32(0)
	if end > t.elapsed {
		delta = uint32(end - t.elapsed)
		t.elapsed = end
	}
	t.sizes = append(t.sizes, uint32(len(u.Data)))
	t.deltas = append(t.deltas, delta)
	t.chunks = append(t.chunks, chunkRef{offset: offset, samples: 1})
	if u.Key {
		t.syncs = append(t.syncs, uint32(len(t.sizes)))
	} else {
		t.allSync = false
	}
	return nil
}

// Finalize closes the mdat, appends the moov and returns the file
func (m *MP4Muxer) Finalize() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finalized {
		return nil, ErrClosed
	}
	m.finalized = true

	if len(m.tracks) == 0 {
		return nil, errors.New("mp4: no tracks")
	}
	for _, t := range m.tracks {
		if t.spec.Format == "avc" && t.config == nil {
			return nil, fmt.Errorf("mp4: track %d has no decoder configuration", t.id)
		}
	}

	out := m.buf.Bytes()
	binary.BigEndian.PutUint64(out[m.mdatStart+8:], uint64(len(out)-m.mdatStart))

	moov := m.moov()
	return append(out, moov.serialize()...), nil
}

func (m *MP4Muxer) moov() *atom {
	var longest uint64
	children := []*atom{nil}
	for _, t := range m.tracks {
		d := convertTicks(t.duration(), t.timescale, movieTimescale)
		longest = max(longest, d)
		children = append(children, t.trak())
	}

	mvhd := new(atomBuffer)
	mvhd.WriteZeros(12)
	mvhd.WriteUint32(movieTimescale)
	mvhd.WriteUint32(uint32(longest))
	mvhd.WriteUint32(0x00010000)
	mvhd.WriteUint16(0x0100)
	mvhd.WriteZeros(10)
	mvhd.WriteBytes(unityMatrix)
	mvhd.WriteZeros(24)
	mvhd.WriteUint32(uint32(len(m.tracks) + 1))
	children[0] = &atom{Type: "mvhd", Data: mvhd.Bytes()}

	return &atom{Type: "moov", Children: children}
}

func (t *muxTrack) duration() uint64 {
	if t.spec.Format == "pcm" {
		return t.pcmFrames
	}
	var d uint64
	for _, v := range t.deltas {
		d += uint64(v)
	}
	return d
}

func (t *muxTrack) trak() *atom {
	dur := t.duration()

	tkhd := new(atomBuffer)
	tkhd.WriteUint32(0x00000003)
	tkhd.WriteZeros(8)
	tkhd.WriteUint32(uint32(t.id))
	tkhd.WriteUint32(0)
	tkhd.WriteUint32(uint32(convertTicks(dur, t.timescale, movieTimescale)))
	tkhd.WriteZeros(8)
	tkhd.WriteUint16(0)
	tkhd.WriteUint16(0)
	if t.spec.Kind == TrackAudio {
		tkhd.WriteUint16(0x0100)
	} else {
		tkhd.WriteUint16(0)
	}
	tkhd.WriteUint16(0)
	tkhd.WriteBytes(unityMatrix)
	tkhd.WriteUint32(uint32(t.spec.Width) << 16)
	tkhd.WriteUint32(uint32(t.spec.Height) << 16)

	mdhd := new(atomBuffer)
	mdhd.WriteZeros(12)
	mdhd.WriteUint32(t.timescale)
	mdhd.WriteUint32(uint32(dur))
	mdhd.WriteUint16(0x55c4)
	mdhd.WriteUint16(0)

	hdlr := new(atomBuffer)
	hdlr.WriteZeros(8)
	hdlr.WriteTag(string(t.spec.Kind))
	hdlr.WriteZeros(12)
	var header *atom
	if t.spec.Kind == TrackVideo {
		hdlr.WriteBytes([]byte("VideoHandler\x00"))
		header = &atom{Type: "vmhd", Data: []byte{0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0}}
	} else {
		hdlr.WriteBytes([]byte("SoundHandler\x00"))
		header = &atom{Type: "smhd", Data: make([]byte, 8)}
	}

	dinf := &atom{Type: "dinf", Children: []*atom{
		{Type: "dref", Data: []byte{0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 12, 'u', 'r', 'l', ' ', 0, 0, 0, 1}},
	}}

	minf := &atom{Type: "minf", Children: []*atom{header, dinf, t.stbl()}}
	mdia := &atom{Type: "mdia", Children: []*atom{
		{Type: "mdhd", Data: mdhd.Bytes()},
		{Type: "hdlr", Data: hdlr.Bytes()},
		minf,
	}}
	return &atom{Type: "trak", Children: []*atom{{Type: "tkhd", Data: tkhd.Bytes()}, mdia}}
}

func (t *muxTrack) stbl() *atom {
	stsd := new(atomBuffer)
	stsd.WriteUint32(0)
	stsd.WriteUint32(1)
	stsd.WriteBytes(t.sampleEntry().serialize())

	children := []*atom{
		{Type: "stsd", Data: stsd.Bytes()},
		{Type: "stts", Data: t.stts()},
		{Type: "stsc", Data: t.stsc()},
		{Type: "stsz", Data: t.stsz()},
		t.chunkOffsets(),
	}
	if t.spec.Kind == TrackVideo && !t.allSync {
		stss := new(atomBuffer)
		stss.WriteUint32(0)
		stss.WriteUint32(uint32(len(t.syncs)))
		for _, s := range t.syncs {
			stss.WriteUint32(s)
		}
		children = append(children, &atom{Type: "stss", Data: stss.Bytes()})
	}
	return &atom{Type: "stbl", Children: children}
}

// stts run-length encodes sample deltas
func (t *muxTrack) stts() []byte {
	type run struct{ count, delta uint32 }
	var runs []run
	if t.spec.Format == "pcm" {
		if t.pcmFrames > 0 {
			runs = append(runs, run{uint32(t.pcmFrames), 1})
		}
	} else {
		for _, d := range t.deltas {
			if n := len(runs); n > 0 && runs[n-1].delta == d {
				runs[n-1].count++
				continue
			}
			runs = append(runs, run{1, d})
		}
	}

	b := new(atomBuffer)
	b.WriteUint32(0)
	b.WriteUint32(uint32(len(runs)))
	for _, r := range runs {
		b.WriteUint32(r.count)
		b.WriteUint32(r.delta)
	}
	return b.Bytes()
}

// stsc records runs of chunks sharing a samples-per-chunk count
func (t *muxTrack) stsc() []byte {
	type entry struct{ first, samples uint32 }
	var entries []entry
	for i, c := range t.chunks {
		if n := len(entries); n > 0 && entries[n-1].samples == c.samples {
			continue
		}
		entries = append(entries, entry{uint32(i + 1), c.samples})
	}

	b := new(atomBuffer)
	b.WriteUint32(0)
	b.WriteUint32(uint32(len(entries)))
	for _, e := range entries {
		b.WriteUint32(e.first)
		b.WriteUint32(e.samples)
		b.WriteUint32(1)
	}
	return b.Bytes()
}

func (t *muxTrack) stsz() []byte {
	b := new(atomBuffer)
	b.WriteUint32(0)
	if t.spec.Format == "pcm" {
		b.WriteUint32(uint32(pcmFrameSize(t.spec.Channels)))
		b.WriteUint32(uint32(t.pcmFrames))
		return b.Bytes()
	}
	b.WriteUint32(0)
	b.WriteUint32(uint32(len(t.sizes)))
	for _, s := range t.sizes {
		b.WriteUint32(s)
	}
	return b.Bytes()
}

// chunkOffsets emits stco, or co64 once offsets pass 4 GiB
func (t *muxTrack) chunkOffsets() *atom {
	wide := false
	for _, c := range t.chunks {
		if c.offset > math.MaxUint32 {
			wide = true
			break
		}
	}

	b := new(atomBuffer)
	b.WriteUint32(0)
	b.WriteUint32(uint32(len(t.chunks)))
	for _, c := range t.chunks {
		if wide {
			b.WriteUint64(c.offset)
		} else {
			b.WriteUint32(uint32(c.offset))
		}
	}
	if wide {
		return &atom{Type: "co64", Data: b.Bytes()}
	}
	return &atom{Type: "stco", Data: b.Bytes()}
}

func (t *muxTrack) sampleEntry() *atom {
	switch t.spec.Format {
	case "avc":
		return visualEntry("avc1", t.spec, &atom{Type: "avcC", Data: t.config})
	case "mjpeg":
		return visualEntry("mp4v", t.spec, esds(0x6c, 0x04, nil, t.spec.Bitrate))
	case "aac":
		return audioEntry("mp4a", t.spec, esds(0x40, 0x05, t.config, t.spec.Bitrate))
	default:
		return audioEntry("sowt", t.spec, nil)
	}
}

func visualEntry(tag string, spec TrackSpec, config *atom) *atom {
	b := new(atomBuffer)
	b.WriteZeros(6)
	b.WriteUint16(1)
	b.WriteZeros(16)
	b.WriteUint16(uint16(spec.Width))
	b.WriteUint16(uint16(spec.Height))
	b.WriteUint32(0x00480000)
	b.WriteUint32(0x00480000)
	b.WriteUint32(0)
	b.WriteUint16(1)
	b.WriteZeros(32)
	b.WriteUint16(0x0018)
	b.WriteUint16(0xffff)
	return &atom{Type: tag, Data: b.Bytes(), Children: []*atom{config}}
}

func audioEntry(tag string, spec TrackSpec, config *atom) *atom {
	b := new(atomBuffer)
	b.WriteZeros(6)
	b.WriteUint16(1)
	b.WriteZeros(8)
	b.WriteUint16(uint16(spec.Channels))
	b.WriteUint16(16)
	b.WriteUint16(0)
	b.WriteUint16(0)
	b.WriteUint32(uint32(spec.SampleRate) << 16)
	a := &atom{Type: tag, Data: b.Bytes()}
	if config != nil {
		a.Children = []*atom{config}
	}
	return a
}

// esds wraps an elementary stream descriptor for mp4v/mp4a entries
func esds(objectType, streamType byte, specific []byte, bitrate int) *atom {
	dc := new(atomBuffer)
	dc.WriteUint8(objectType)
	dc.WriteUint8(streamType<<2 | 1)
	dc.WriteZeros(3)
	dc.WriteUint32(uint32(bitrate))
	dc.WriteUint32(uint32(bitrate))
	if len(specific) > 0 {
		dc.WriteBytes(descriptor(0x05, specific))
	}

	es := new(atomBuffer)
	es.WriteUint16(0)
	es.WriteUint8(0)
	es.WriteBytes(descriptor(0x04, dc.Bytes()))
	es.WriteBytes(descriptor(0x06, []byte{0x02}))

	b := new(atomBuffer)
	b.WriteUint32(0)
	b.WriteBytes(descriptor(0x03, es.Bytes()))
	return &atom{Type: "esds", Data: b.Bytes()}
}

func pcmFrameSize(channels int) int {
	return channels * 2
}

func toTicks(d time.Duration, timescale uint32) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64((int64(d)*int64(timescale) + int64(time.Second)/2) / int64(time.Second))
}

func convertTicks(v uint64, from, to uint32) uint64 {
	if from == 0 {
		return 0
	}
	return v * uint64(to) / uint64(from)
}
