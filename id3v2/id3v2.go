// Package id3v2 implements the ID3v2 tag dialect: the tag header (v2.2's
// 3-character frame ids and plain 24-bit sizes, v2.3/v2.4's 4-character
// ids and 2.3's plain vs. 2.4's synchsafe frame sizes), the FieldMap
// comparator that gives ID3v2 its stable write
// order, and the KnownField mapping.
//
// Grounded on github.com/jlubawy/go-id3v2 and its id3v230 subpackage: the
// frame-id-as-string, header-then-frame-loop shape of Decode/Encode comes
// from there, generalized across all three major versions instead of just
// 2.3.0, and synchsafe conversion is the same bit-spreading arithmetic as
// SizeToSynchSafe/SynchSafeToSize.
package id3v2

import (
	"strconv"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/tagfield"
)

// Version identifies a tag header's major ID3v2 version.
type Version int

const (
	V2 Version = 2
	V3 Version = 3
	V4 Version = 4
)

// FrameID is a frame identifier: a 3-character id in v2.2, 4-character in
// v2.3/v2.4. Both fit in a uint32 with the leading byte zero for v2.2.
type FrameID uint32

// NewFrameID3 builds a v2.2, 3-character frame id.
func NewFrameID3(a, b, c byte) FrameID {
	return FrameID(uint32(a)<<16 | uint32(b)<<8 | uint32(c))
}

// NewFrameID4 builds a v2.3/v2.4, 4-character frame id.
func NewFrameID4(a, b, c, d byte) FrameID {
	return FrameID(uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d))
}

// String renders the frame id back to its ASCII characters.
func (id FrameID) String() string {
	var buf [4]byte
	n := 0
	if id>>24 != 0 {
		buf[n] = byte(id >> 24)
		n++
	}
	buf[n] = byte(id >> 16)
	buf[n+1] = byte(id >> 8)
	buf[n+2] = byte(id)
	return string(buf[:n+3])
}

// Well-known frame ids used by FrameComparer's tiering (v2.3/v2.4 forms;
// v2.2's 3-character equivalents are UFI/TT2/PIC).
var (
	idUniqueFileID = NewFrameID4('U', 'F', 'I', 'D')
	idTitle        = NewFrameID4('T', 'I', 'T', '2')
	idCover        = NewFrameID4('A', 'P', 'I', 'C')
)

// SizeToSynchSafe converts a normal 28-bit size to ID3v2's synchsafe
// encoding (each byte's top bit always clear), used for v2.4 frame sizes
// and for the tag header's size in every version.
func SizeToSynchSafe(s uint32) uint32 {
	return ((s & 0x0FE00000) << 3) | ((s & 0x1FC000) << 2) | ((s & 0x3F80) << 1) | (s & 0x7F)
}

// SynchSafeToSize is SizeToSynchSafe's inverse.
func SynchSafeToSize(s uint32) uint32 {
	return ((s & 0x7F000000) >> 3) | ((s & 0x7F0000) >> 2) | ((s & 0x7F00) >> 1) | (s & 0x7F)
}

// FrameSizeIsSynchSafe reports whether a frame's declared size is
// synchsafe for the given major version: true only for v2.4. v2.3 frame
// sizes are plain big-endian and v2.2 frame sizes plain 24-bit; the tag
// header's own size is synchsafe in every version.
func FrameSizeIsSynchSafe(v Version) bool {
	return v == V4
}

// tierOf buckets a frame id for FrameComparer: UniqueFileID first, then
// Title, then other text frames (ids beginning with 'T'), then everything
// else, then Cover last.
func tierOf(id FrameID) int {
	switch id {
	case idUniqueFileID:
		return 0
	case idTitle:
		return 1
	case idCover:
		return 4
	}
	if isTextFrame(id) {
		return 2
	}
	return 3
}

// isTextFrame reports whether id's first character is 'T', the ID3v2
// convention for text-information frames.
func isTextFrame(id FrameID) bool {
	var first byte
	if id>>24 != 0 {
		first = byte(id >> 24)
	} else {
		first = byte(id >> 16)
	}
	return first == 'T'
}

// FrameComparer implements tagfield.Comparator[FrameID]: a strict weak
// order used to pick ID3v2's stable frame write order. Frames equal under the
// five tiers above fall back to ascending numeric id order.
func FrameComparer(a, b FrameID) int {
	ta, tb := tierOf(a), tierOf(b)
	if ta != tb {
		return ta - tb
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// knownFieldIDs maps tagfield.KnownField to its v2.3/v2.4 frame id. v2.2
// frames use 3-character ids, which ParseTag keeps as read without
// translating them, so this table (and FrameComparer's UFID/TIT2/APIC
// tiers) only recognizes the 4-character forms.
var knownFieldIDs = map[tagfield.KnownField]FrameID{
	tagfield.FieldTitle:        idTitle,
	tagfield.FieldArtist:       NewFrameID4('T', 'P', 'E', '1'),
	tagfield.FieldAlbum:        NewFrameID4('T', 'A', 'L', 'B'),
	tagfield.FieldAlbumArtist:  NewFrameID4('T', 'P', 'E', '2'),
	tagfield.FieldComment:      NewFrameID4('C', 'O', 'M', 'M'),
	tagfield.FieldGenre:        NewFrameID4('T', 'C', 'O', 'N'),
	tagfield.FieldYear:         NewFrameID4('T', 'Y', 'E', 'R'),
	tagfield.FieldTrackPosition: NewFrameID4('T', 'R', 'C', 'K'),
	tagfield.FieldDiskPosition: NewFrameID4('T', 'P', 'O', 'S'),
	tagfield.FieldComposer:     NewFrameID4('T', 'C', 'O', 'M'),
	tagfield.FieldEncoder:      NewFrameID4('T', 'E', 'N', 'C'),
	tagfield.FieldLyrics:       NewFrameID4('U', 'S', 'L', 'T'),
	tagfield.FieldCover:        idCover,
	tagfield.FieldUniqueFileID: idUniqueFileID,
}

var idToKnownField = func() map[FrameID]tagfield.KnownField {
	m := make(map[FrameID]tagfield.KnownField, len(knownFieldIDs))
	for k, v := range knownFieldIDs {
		m[v] = k
	}
	return m
}()

// Mapper implements tagfield.KnownFieldMapper[FrameID].
type Mapper struct{}

func (Mapper) KnownFieldToID(f tagfield.KnownField) (FrameID, bool) {
	id, ok := knownFieldIDs[f]
	return id, ok
}

func (Mapper) IDToKnownField(id FrameID) tagfield.KnownField {
	if f, ok := idToKnownField[id]; ok {
		return f
	}
	return tagfield.FieldInvalid
}

// NewFieldMap creates an empty FieldMap ordered by FrameComparer.
func NewFieldMap() *tagfield.FieldMap[FrameID] {
	return tagfield.NewFieldMap(FrameComparer)
}

// ParseFrameHeaderSize decodes a frame's declared size for the given
// major version, returning VersionNotSupported for an unrecognized
// version.
func ParseFrameHeaderSize(v Version, raw uint32) (uint32, *diag.Error) {
	switch v {
	case V2:
		return raw & 0x00FFFFFF, nil
	case V3:
		return raw, nil
	case V4:
		return SynchSafeToSize(raw), nil
	default:
		return 0, diag.New(diag.VersionNotSupported, "id3v2 major version %d", int(v))
	}
}

// EncodeFrameHeaderSize is ParseFrameHeaderSize's inverse.
func EncodeFrameHeaderSize(v Version, size uint32) (uint32, *diag.Error) {
	switch v {
	case V2:
		if size > 0x00FFFFFF {
			return 0, diag.New(diag.Invalid, "frame size %d exceeds v2.2's 24-bit field", size)
		}
		return size, nil
	case V3:
		return size, nil
	case V4:
		return SizeToSynchSafe(size), nil
	default:
		return 0, diag.New(diag.VersionNotSupported, "id3v2 major version %d", int(v))
	}
}

// versionString renders a major/revision pair the way the pack's readers
// do for diagnostics, e.g. "id3v2.4.0".
func versionString(major, revision byte) string {
	return "id3v2." + strconv.Itoa(int(major)) + "." + strconv.Itoa(int(revision))
}
