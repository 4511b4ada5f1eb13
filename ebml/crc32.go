package ebml

import (
	"hash/crc32"
	"io"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/element"
)

// ComputeCRC32 computes the standard CRC-32 (IEEE 802.3 polynomial
// 0xEDB88320, reflected, the same algorithm Go's hash/crc32 implements by
// default) over data, as required for EBML CRC-32 elements.
func ComputeCRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// ValidateCRC32 reads a parent element's CRC-32 child (ID 0xBF, if
// present) and verifies it against the parent's remaining bytes after the
// CRC element itself. It returns (true, nil) if no CRC-32 child is present
// (nothing to validate), (false, nil) if present but mismatched (a
// non-fatal diagnostic — the caller decides severity), and a *diag.Error
// when the CRC-32 child or its covered bytes cannot be located or read, or
// when the child's data is not 4 bytes long.
func ValidateCRC32(stream io.ReadSeeker, parent *element.Element) (ok bool, err *diag.Error) {
	crcChild, ferr := parent.ChildByID(element.ID(IDCRC32))
	if ferr != nil {
		return false, ferr
	}
	if crcChild == nil {
		return true, nil
	}
	stored, rerr := ReadData(stream, crcChild)
	if rerr != nil {
		return false, diag.Wrap(diag.Truncated, rerr, "reading CRC-32 element data")
	}
	if len(stored) != 4 {
		return false, diag.New(diag.Invalid, "CRC-32 element has unexpected size %d", len(stored))
	}
	storedValue := uint32(stored[0]) | uint32(stored[1])<<8 | uint32(stored[2])<<16 | uint32(stored[3])<<24

	coveredStart := crcChild.DataEnd()
	coveredEnd := parent.DataEnd()
	if coveredStart >= coveredEnd {
		return storedValue == ComputeCRC32(nil), nil
	}
	buf := make([]byte, coveredEnd-coveredStart)
	if _, serr := stream.Seek(coveredStart, io.SeekStart); serr != nil {
		return false, diag.Wrap(diag.Truncated, serr, "seeking to CRC-32 covered range")
	}
	if _, rerr := io.ReadFull(stream, buf); rerr != nil {
		return false, diag.Wrap(diag.Truncated, rerr, "reading CRC-32 covered range")
	}
	return storedValue == ComputeCRC32(buf), nil
}

// EncodeCRC32Element builds the wire bytes of a full CRC-32 element (ID
// 0xBF, 4-byte data) covering coveredBytes, for the rewrite engine's
// after-the-fact patch pass.
func EncodeCRC32Element(coveredBytes []byte) []byte {
	value := ComputeCRC32(coveredBytes)
	out := make([]byte, 0, 2+4)
	out = append(out, EncodeID(IDCRC32)...)
	sizeBuf, _ := EncodeSize(4, 0)
	out = append(out, sizeBuf...)
	out = append(out, byte(value), byte(value>>8), byte(value>>16), byte(value>>24))
	return out
}
