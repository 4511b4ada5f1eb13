package ebml

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/tagkit/tagkit/element"
)

// ReadData reads an element's raw data bytes from stream. Unlike the
// teacher's EBMLReader.ReadElement, which always reads data eagerly, tagkit
// elements are lazy (tagkit/element); drivers call ReadData only for the
// scalar leaves they actually need, which is what lets a large file skip
// parsing cluster payloads entirely.
func ReadData(stream io.ReadSeeker, e *element.Element) ([]byte, error) {
	if _, err := stream.Seek(e.DataOffset(), io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, e.DataSize)
	if e.DataSize == 0 {
		return buf, nil
	}
	if _, err := io.ReadFull(stream, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// UInt interprets data as a big-endian unsigned integer (ported from the
// teacher's EBMLElement.ReadUInt).
func UInt(data []byte) uint64 {
	var v uint64
	for _, b := range data {
		v = (v << 8) | uint64(b)
	}
	return v
}

// Int interprets data as a big-endian two's-complement signed integer
//.
func Int(data []byte) int64 {
	if len(data) == 0 {
		return 0
	}
	negative := data[0]&0x80 != 0
	v := UInt(data)
	if !negative {
		return int64(v)
	}
	switch len(data) {
	case 1:
		return int64(int8(v))
	case 2:
		return int64(int16(v))
	case 4:
		return int64(int32(v))
	case 8:
		return int64(v)
	default:
		mask := uint64(1)<<(uint(len(data))*8-1) - 1
		return -int64((^v & mask) + 1)
	}
}

// Float interprets data as a big-endian IEEE-754 float, 4 or 8 bytes wide
//.
func Float(data []byte) float64 {
	switch len(data) {
	case 4:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(data)))
	case 8:
		return math.Float64frombits(binary.BigEndian.Uint64(data))
	default:
		return 0
	}
}

// String interprets data as a UTF-8 string, stripping one trailing NUL
// terminator if present.
func String(data []byte) string {
	if len(data) > 0 && data[len(data)-1] == 0 {
		data = data[:len(data)-1]
	}
	return string(data)
}

// EncodeUInt encodes v as a big-endian unsigned integer using the smallest
// number of bytes (at least 1) that can represent it.
func EncodeUInt(v uint64) []byte {
	n := 1
	for t := v >> 8; t != 0; t >>= 8 {
		n++
	}
	buf := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return buf
}

// EncodeInt encodes v as a big-endian two's-complement signed integer using
// the smallest number of bytes that preserves its sign.
func EncodeInt(v int64) []byte {
	if v >= 0 {
		buf := EncodeUInt(uint64(v))
		if buf[0]&0x80 != 0 {
			return append([]byte{0}, buf...)
		}
		return buf
	}
	n := 1
	for t := v; t < -128 || t >= 128; t >>= 8 {
		n++
	}
	buf := make([]byte, n)
	uv := uint64(v)
	for i := n - 1; i >= 0; i-- {
		buf[i] = byte(uv)
		uv >>= 8
	}
	return buf
}

// EncodeString encodes s as UTF-8 bytes (no terminator; matching how the
// original writes fixed-size string elements without a trailing NUL).
func EncodeString(s string) []byte { return []byte(s) }
