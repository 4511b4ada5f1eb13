package ebml

import (
	"io"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/element"
	"github.com/tagkit/tagkit/ioutil"
)

// Dialect implements element.Dialect for EBML, parameterized by the
// MaxIDLength/MaxSizeLength declared in the file's EBML header. The zero value uses the default maxima (4/8).
type Dialect struct {
	MaxIDLength   int
	MaxSizeLength int
}

// NewDialect returns a Dialect honoring the given header maxima, failing
// with VersionNotSupported up front if they exceed what this
// implementation understands.
func NewDialect(maxIDLength, maxSizeLength uint64) (Dialect, *diag.Error) {
	if maxIDLength > MaxIDLength {
		return Dialect{}, diag.New(diag.VersionNotSupported, "MaxIDLength %d exceeds supported maximum %d", maxIDLength, MaxIDLength)
	}
	if maxSizeLength > MaxSizeLength {
		return Dialect{}, diag.New(diag.VersionNotSupported, "MaxSizeLength %d exceeds supported maximum %d", maxSizeLength, MaxSizeLength)
	}
	return Dialect{MaxIDLength: int(maxIDLength), MaxSizeLength: int(maxSizeLength)}, nil
}

var _ element.Dialect = Dialect{}

// ParseHeader implements element.Dialect by reading an EBML element ID and
// size denotation, returning an (id, headerSize, dataSize) triple so the
// generic element tree can materialize children lazily instead of eagerly
// slurping the element's data into memory.
func (d Dialect) ParseHeader(r io.ReadSeeker, limit int64) (element.ID, int64, int64, bool, *diag.Error) {
	// NewReader assumes its stream starts at offset 0, but r is generally
	// mid-stream here (another sibling's worth of tree walk already
	// behind it); startPos is only used to annotate diagnostics below, so
	// it is captured straight from r rather than from the wrapper.
	startPos, _ := r.Seek(0, io.SeekCurrent)
	rd := ioutil.NewReader(r)

	idFirst, err := rd.ReadByte()
	if err != nil {
		return 0, 0, 0, false, diag.Wrap(diag.Truncated, err, "reading element ID first byte at %d", startPos)
	}
	idLen := vintLength(idFirst)
	if idLen == 0 {
		return 0, 0, 0, false, diag.New(diag.Invalid, "malformed element ID at %d: 0x%02X", startPos, idFirst)
	}
	if idLen > d.maxIDLength() {
		return 0, 0, 0, false, diag.New(diag.VersionNotSupported, "element ID at %d is %d bytes, exceeds MaxIDLength", startPos, idLen)
	}
	full := make([]byte, idLen)
	full[0] = idFirst
	if idLen > 1 {
		if err := rd.ReadFull(full[1:]); err != nil {
			return 0, 0, 0, false, diag.Wrap(diag.Truncated, err, "reading element ID at %d", startPos)
		}
	}
	id, _, derr := DecodeVInt(full, true)
	if derr != nil {
		return 0, 0, 0, false, derr
	}

	sizeFirst, err := rd.ReadByte()
	if err != nil {
		return 0, 0, 0, false, diag.Wrap(diag.Truncated, err, "reading size first byte at %d", startPos)
	}
	sizeLen := vintLength(sizeFirst)
	if sizeLen == 0 {
		return 0, 0, 0, false, diag.New(diag.Invalid, "malformed size denotation at %d: 0x%02X", startPos, sizeFirst)
	}
	if sizeLen > d.maxSizeLength() {
		return 0, 0, 0, false, diag.New(diag.VersionNotSupported, "size denotation at %d is %d bytes, exceeds MaxSizeLength", startPos, sizeLen)
	}
	fullSize := make([]byte, sizeLen)
	fullSize[0] = sizeFirst
	if sizeLen > 1 {
		if err := rd.ReadFull(fullSize[1:]); err != nil {
			return 0, 0, 0, false, diag.Wrap(diag.Truncated, err, "reading size at %d", startPos)
		}
	}
	size, _, derr := DecodeVInt(fullSize, false)
	if derr != nil {
		return 0, 0, 0, false, derr
	}

	headerSize := int64(idLen + sizeLen)
	unknown := IsUnknownSize(size, sizeLen)
	if unknown {
		return element.ID(id), headerSize, 0, true, nil
	}
	return element.ID(id), headerSize, int64(size), false, nil
}

func (d Dialect) maxIDLength() int {
	if d.MaxIDLength == 0 {
		return MaxIDLength
	}
	return d.MaxIDLength
}

func (d Dialect) maxSizeLength() int {
	if d.MaxSizeLength == 0 {
		return MaxSizeLength
	}
	return d.MaxSizeLength
}

// IsParent implements element.Dialect using the fixed parent-ID table.
func (d Dialect) IsParent(id element.ID) bool { return IsParentID(uint32(id)) }

// IsPadding implements element.Dialect: only Void elements count as
// padding. CRC-32 elements are transparent but are not padding — they carry a real checksum.
func (d Dialect) IsPadding(id element.ID) bool { return uint32(id) == IDVoid }

// Name implements element.Dialect.
func (d Dialect) Name(id element.ID) string { return Name(uint32(id)) }
