// Package ebml implements the EBML (Extensible Binary Meta Language) codec:
// variable-length integer (VINT) encoding, element headers, the EBML
// header, CRC-32 validation, and the Matroska-family SeekHead/Cues
// structures built on top of VINTs.
//
// The generic tree walk itself (lazy children/siblings, padding
// accounting) lives in tagkit/element; this package is the EBML Dialect
// that plugs into it, structured around tagkit/element.Dialect so Ogg can
// share the same tree walker.
package ebml

import "github.com/tagkit/tagkit/diag"

// MaxIDLength and MaxSizeLength are the hard ceilings places on
// VINT widths; a file declaring larger maxima in its EBML header fails with
// VersionNotSupported.
const (
	MaxIDLength   = 4
	MaxSizeLength = 8
)

// vintLength returns the number of bytes a VINT's first byte says it
// occupies (1..8), or 0 if the byte has no length-marker bit set at all
// (an invalid encoding).
func vintLength(firstByte byte) int {
	for n, mask := 1, byte(0x80); n <= 8; n, mask = n+1, mask>>1 {
		if firstByte&mask != 0 {
			return n
		}
	}
	return 0
}

// DecodeVInt decodes a VINT from buf (which must be at least vintLength(buf[0])
// bytes long). keepLengthMarker preserves the marker bit in the returned
// value, which requires for element IDs ("the ID is preserved
// including its length-marker bit... unlike size denotations") so that the
// same integer round-trips; size denotations pass keepLengthMarker=false.
func DecodeVInt(buf []byte, keepLengthMarker bool) (value uint64, length int, err *diag.Error) {
	if len(buf) == 0 {
		return 0, 0, diag.New(diag.Truncated, "empty buffer for VINT")
	}
	n := vintLength(buf[0])
	if n == 0 {
		return 0, 0, diag.New(diag.Invalid, "VINT first byte 0x%02X has no length marker", buf[0])
	}
	if len(buf) < n {
		return 0, 0, diag.New(diag.Truncated, "VINT declares %d bytes, only %d available", n, len(buf))
	}
	var v uint64
	if keepLengthMarker {
		v = uint64(buf[0])
	} else {
		mask := byte(0xFF >> uint(n))
		v = uint64(buf[0] & mask)
	}
	for i := 1; i < n; i++ {
		v = (v << 8) | uint64(buf[i])
	}
	return v, n, nil
}

// IsUnknownSize reports whether a decoded size denotation (with the length
// marker already cleared) is EBML's reserved "all ones" value for the
// given encoded length, meaning "unknown size / extends to parent's end"
//.
func IsUnknownSize(value uint64, length int) bool {
	bits := uint(7 * length)
	if bits >= 64 {
		return value == ^uint64(0)
	}
	return value == (uint64(1)<<bits)-1
}

// EncodedSizeLength returns the shortest VINT length (1..8) that can
// represent n, or 0 if n exceeds the representable range. Sizes of width len can hold values up to
// 2^(7*len)-2 (the all-ones pattern of that width is reserved for "unknown
// size").
func EncodedSizeLength(n uint64) int {
	for length := 1; length <= 8; length++ {
		bits := uint(7 * length)
		var max uint64
		if bits >= 64 {
			max = ^uint64(0) - 1
		} else {
			max = (uint64(1) << bits) - 2
		}
		if n <= max {
			return length
		}
	}
	return 0
}

// EncodeSize encodes n as a size denotation of the given length.
func EncodeSize(n uint64, length int) ([]byte, *diag.Error) {
	if length == 0 {
		length = EncodedSizeLength(n)
		if length == 0 {
			return nil, diag.New(diag.Invalid, "value %d exceeds maximum representable EBML size", n)
		}
	}
	if length < 1 || length > 8 {
		return nil, diag.New(diag.Invalid, "invalid EBML size length %d", length)
	}
	bits := uint(7 * length)
	var max uint64
	if bits >= 64 {
		max = ^uint64(0) - 1
	} else {
		max = (uint64(1) << bits) - 2
	}
	if n > max {
		return nil, diag.New(diag.Invalid, "value %d does not fit in a %d-byte EBML size", n, length)
	}
	buf := make([]byte, length)
	for i := length - 1; i >= 0; i-- {
		buf[i] = byte(n)
		n >>= 8
	}
	buf[0] |= 0x80 >> uint(length-1)
	return buf, nil
}

// EncodeID encodes id (which already carries its original length-marker
// bit, per DecodeVInt(keepLengthMarker=true)) back to its wire bytes. The
// number of bytes is derived from the position of id's highest set byte,
// since the marker bit itself lives in that byte.
func EncodeID(id uint32) []byte {
	w := widthOf(id)
	buf := make([]byte, w+1)
	v := id
	for i := w; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return buf
}

// widthOf returns the number of bytes beyond the first needed to hold id,
// based on its highest set bit.
func widthOf(id uint32) int {
	switch {
	case id > 0xFFFFFF:
		return 3
	case id > 0xFFFF:
		return 2
	case id > 0xFF:
		return 1
	default:
		return 0
	}
}
