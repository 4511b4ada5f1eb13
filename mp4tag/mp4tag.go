// Package mp4tag implements the MP4/QuickTime tag dialect's identifier
// mapping: the 4-byte atom id as FieldMap's Id type, its integer
// comparator, and the KnownField lookup table.
//
// Full MP4 atom demuxing is explicitly out of scope; this package gives the MP4 dialect a home in the
// shared tag model without reimplementing a moov/udta/meta/ilst walker.
package mp4tag

import (
	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/tagfield"
	"github.com/tagkit/tagkit/tagvalue"
)

// AtomID is MP4's 4-byte metadata atom identifier (e.g. "\xa9nam" for the
// title atom), represented as its big-endian uint32 value so it orders
// and compares like any other integer id.
type AtomID uint32

// NewAtomID builds an AtomID from its four wire bytes.
func NewAtomID(a, b, c, d byte) AtomID {
	return AtomID(uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d))
}

func (id AtomID) String() string {
	return string([]byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)})
}

// Comparator orders atom ids numerically.
func Comparator(a, b AtomID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// NewFieldMap creates an empty FieldMap using Comparator.
func NewFieldMap() *tagfield.FieldMap[AtomID] {
	return tagfield.NewFieldMap(Comparator)
}

// Well-known iTunes-style metadata atoms.
var (
	AtomTitle       = NewAtomID(0xA9, 'n', 'a', 'm')
	AtomArtist      = NewAtomID(0xA9, 'A', 'R', 'T')
	AtomAlbum       = NewAtomID(0xA9, 'a', 'l', 'b')
	AtomAlbumArtist = NewAtomID('a', 'A', 'R', 'T')
	AtomComment     = NewAtomID(0xA9, 'c', 'm', 't')
	AtomGenre       = NewAtomID(0xA9, 'g', 'e', 'n')
	AtomYear        = NewAtomID(0xA9, 'd', 'a', 'y')
	AtomTrack       = NewAtomID('t', 'r', 'k', 'n')
	AtomDisk        = NewAtomID('d', 'i', 's', 'k')
	AtomComposer    = NewAtomID(0xA9, 'w', 'r', 't')
	AtomLyrics      = NewAtomID(0xA9, 'l', 'y', 'r')
	AtomCover       = NewAtomID('c', 'o', 'v', 'r')
)

var knownFieldAtoms = map[tagfield.KnownField]AtomID{
	tagfield.FieldTitle:        AtomTitle,
	tagfield.FieldArtist:       AtomArtist,
	tagfield.FieldAlbum:        AtomAlbum,
	tagfield.FieldAlbumArtist:  AtomAlbumArtist,
	tagfield.FieldComment:      AtomComment,
	tagfield.FieldGenre:        AtomGenre,
	tagfield.FieldYear:         AtomYear,
	tagfield.FieldTrackPosition: AtomTrack,
	tagfield.FieldDiskPosition: AtomDisk,
	tagfield.FieldComposer:     AtomComposer,
	tagfield.FieldLyrics:       AtomLyrics,
	tagfield.FieldCover:        AtomCover,
}

var atomToKnownField = func() map[AtomID]tagfield.KnownField {
	m := make(map[AtomID]tagfield.KnownField, len(knownFieldAtoms))
	for k, v := range knownFieldAtoms {
		m[v] = k
	}
	return m
}()

// Mapper implements tagfield.KnownFieldMapper[AtomID].
type Mapper struct{}

func (Mapper) KnownFieldToID(f tagfield.KnownField) (AtomID, bool) {
	id, ok := knownFieldAtoms[f]
	return id, ok
}

func (Mapper) IDToKnownField(id AtomID) tagfield.KnownField {
	if f, ok := atomToKnownField[id]; ok {
		return f
	}
	return tagfield.FieldInvalid
}

// Tag wraps a FieldMap[AtomID] the way id3v1.Tag and id3v2.Tag wrap their
// own dialect's FieldMap, giving MP4's identifier mapping a field-set
// container even though this package stops short of a full moov/udta/
// meta/ilst atom walker.
type Tag struct {
	Fields *tagfield.FieldMap[AtomID]
}

// NewTag returns a Tag with an empty, Comparator-ordered FieldMap.
func NewTag() *Tag {
	return &Tag{Fields: NewFieldMap()}
}

// SetKnownValue writes value to the atom field's dialect-independent
// KnownField, routing through Mapper so a caller never has to spell out a
// raw AtomID.
func (t *Tag) SetKnownValue(field tagfield.KnownField, value tagvalue.Value) *diag.Error {
	return tagfield.SetKnownValue(t.Fields, Mapper{}, field, value)
}
