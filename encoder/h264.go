package encoder

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// H.264 NAL unit types
const (
	nalIDR = 5
	nalSPS = 7
	nalPPS = 8
	nalAUD = 9
)

// accessUnit is one coded picture in length-prefixed (AVCC) form
type accessUnit struct {
	data []byte
	key  bool
	sps  []byte
	pps  []byte
}

// annexBSplitter cuts an Annex-B byte stream into access units. The stream
// must carry access unit delimiters (x264 aud=1).
type annexBSplitter struct {
	buf     []byte
	current [][]byte
}

var startCode3 = []byte{0, 0, 1}

// Write appends stream bytes and returns every access unit completed by them
func (s *annexBSplitter) Write(p []byte) []accessUnit {
	s.buf = append(s.buf, p...)
	var out []accessUnit
	for {
		first := bytes.Index(s.buf, startCode3)
		if first < 0 {
			return out
		}
		next := bytes.Index(s.buf[first+3:], startCode3)
		if next < 0 {
			s.buf = s.buf[first:]
			return out
		}
		nal := trimZeros(s.buf[first+3 : first+3+next])
		s.buf = s.buf[first+3+next:]
		if au, ok := s.push(nal); ok {
			out = append(out, au)
		}
	}
}

// Flush returns the trailing access unit at end of stream
func (s *annexBSplitter) Flush() []accessUnit {
	var out []accessUnit
	if first := bytes.Index(s.buf, startCode3); first >= 0 {
		if au, ok := s.push(trimZeros(s.buf[first+3:])); ok {
			out = append(out, au)
		}
	}
	s.buf = nil
	if au, ok := s.emit(); ok {
		out = append(out, au)
	}
	return out
}

func (s *annexBSplitter) push(nal []byte) (accessUnit, bool) {
	if len(nal) == 0 {
		return accessUnit{}, false
	}
	if nal[0]&0x1f == nalAUD {
		return s.emit()
	}
	s.current = append(s.current, append([]byte(nil), nal...))
	return accessUnit{}, false
}

func (s *annexBSplitter) emit() (accessUnit, bool) {
	if len(s.current) == 0 {
		return accessUnit{}, false
	}
	var au accessUnit
	var data bytes.Buffer
	for _, nal := range s.current {
		switch nal[0] & 0x1f {
		case nalSPS:
			au.sps = nal
			continue
		case nalPPS:
			au.pps = nal
			continue
		case nalIDR:
			au.key = true
		}
		var size [4]byte
		binary.BigEndian.PutUint32(size[:], uint32(len(nal)))
		data.Write(size[:])
		data.Write(nal)
	}
	s.current = nil
	au.data = data.Bytes()
	if len(au.data) == 0 {
		return accessUnit{}, false
	}
	return au, true
}

// trimZeros drops the leading zero of a four byte start code that belongs
// to the next NAL
func trimZeros(nal []byte) []byte {
	for len(nal) > 0 && nal[len(nal)-1] == 0 {
		nal = nal[:len(nal)-1]
	}
	return nal
}

// avcDecoderConfig builds an AVCDecoderConfigurationRecord (avcC payload)
func avcDecoderConfig(sps, pps []byte) ([]byte, error) {
	if len(sps) < 4 || len(pps) == 0 {
		return nil, errors.New("missing SPS/PPS")
	}
	b := new(atomBuffer)
	b.WriteBytes([]byte{1, sps[1], sps[2], sps[3], 0xff, 0xe1})
	b.WriteUint16(uint16(len(sps)))
	b.WriteBytes(sps)
	b.WriteBytes([]byte{1})
	b.WriteUint16(uint16(len(pps)))
	b.WriteBytes(pps)
	return b.Bytes(), nil
}
