package encoder

import "encoding/binary"

// atom is an ISO BMFF box: header + payload + children
type atom struct {
	Type     string
	Data     []byte
	Children []*atom
}

func (a *atom) size() int {
	n := 8 + len(a.Data)
	for _, c := range a.Children {
		n += c.size()
	}
	return n
}

// serialize encodes the box tree depth first
func (a *atom) serialize() []byte {
	out := make([]byte, 0, a.size())
	return a.appendTo(out)
}

func (a *atom) appendTo(out []byte) []byte {
	out = binary.BigEndian.AppendUint32(out, uint32(a.size()))
	out = append(out, a.Type[:4]...)
	out = append(out, a.Data...)
	for _, c := range a.Children {
		out = c.appendTo(out)
	}
	return out
}

// atomBuffer accumulates big-endian box payloads
type atomBuffer struct {
	buf []byte
}

func (b *atomBuffer) WriteUint8(v uint8) { b.buf = append(b.buf, v) }

func (b *atomBuffer) WriteUint16(v uint16) { b.buf = binary.BigEndian.AppendUint16(b.buf, v) }

func (b *atomBuffer) WriteUint32(v uint32) { b.buf = binary.BigEndian.AppendUint32(b.buf, v) }

func (b *atomBuffer) WriteUint64(v uint64) { b.buf = binary.BigEndian.AppendUint64(b.buf, v) }

func (b *atomBuffer) WriteTag(tag string) { b.buf = append(b.buf, tag[:4]...) }

func (b *atomBuffer) WriteBytes(p []byte) { b.buf = append(b.buf, p...) }

func (b *atomBuffer) WriteZeros(n int) { b.buf = append(b.buf, make([]byte, n)...) }

func (b *atomBuffer) Bytes() []byte { return b.buf }

// unityMatrix is the identity transform used by mvhd and tkhd
var unityMatrix = []byte{
	0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 64, 0, 0, 0,
}

// descriptor encodes an MPEG-4 descriptor with a four byte length field
func descriptor(tag byte, body []byte) []byte {
	n := len(body)
	out := []byte{tag, 0x80 | byte(n>>21&0x7f), 0x80 | byte(n>>14&0x7f), 0x80 | byte(n>>7&0x7f), byte(n & 0x7f)}
	return append(out, body...)
}
