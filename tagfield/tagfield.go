// Package tagfield implements the dialect-parameterized tag field model:
// FieldMap (a multimap keyed by a dialect's Id type), TagField, TagTarget,
// and the KnownField lookup that lets callers set "Title" or "Artist"
// without knowing which dialect they're writing.
//
// The source this is ported from parameterizes FieldMap by a template Id
// plus a comparator functor; Go's generics express the same shape with a
// type parameter and a Comparator[I] function value, so each dialect (ID3v2
// numeric frame ids, Matroska/Vorbis string ids, MP4 atom ids) supplies its
// own ordering without the package needing an interface method on Id itself.
package tagfield

import (
	"sort"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/tagvalue"
)

// Comparator imposes a strict weak order on a dialect's Id type, used to
// pick a stable write order for FieldMap.SortedForWrite.
type Comparator[I comparable] func(a, b I) int

// TagField owns one value (or a multi-value slot via Nested, for dialects
// that support it) under an Id.
type TagField[I comparable] struct {
	ID        I
	Value     tagvalue.Value
	TypeInfo  any // dialect-defined, e.g. an ID3v2 picture-type byte
	IsDefault bool
	Nested    []*TagField[I]
}

// FieldMap is a multimap of TagField values: a dialect's Id can repeat,
// with insertion order preserved except where Cmp imposes a write order.
type FieldMap[I comparable] struct {
	fields []*TagField[I]
	cmp    Comparator[I]
}

// NewFieldMap creates an empty FieldMap using cmp to order fields for
// writing. cmp may be nil, in which case SortedForWrite returns fields in
// insertion order.
func NewFieldMap[I comparable](cmp Comparator[I]) *FieldMap[I] {
	return &FieldMap[I]{cmp: cmp}
}

// Add appends a new field under id, preserving any existing ones with the
// same id (multimap semantics).
func (m *FieldMap[I]) Add(id I, value tagvalue.Value) *TagField[I] {
	f := &TagField[I]{ID: id, Value: value}
	m.fields = append(m.fields, f)
	return f
}

// Values returns every field currently stored under id, in insertion order.
func (m *FieldMap[I]) Values(id I) []*TagField[I] {
	var out []*TagField[I]
	for _, f := range m.fields {
		if f.ID == id {
			out = append(out, f)
		}
	}
	return out
}

// SetValues replaces the full multiset of values stored under id.
func (m *FieldMap[I]) SetValues(id I, values []tagvalue.Value) {
	m.Remove(id)
	for _, v := range values {
		m.Add(id, v)
	}
}

// Remove deletes every field stored under id.
func (m *FieldMap[I]) Remove(id I) {
	kept := m.fields[:0]
	for _, f := range m.fields {
		if f.ID != id {
			kept = append(kept, f)
		}
	}
	m.fields = kept
}

// All returns every field in insertion order.
func (m *FieldMap[I]) All() []*TagField[I] {
	return append([]*TagField[I]{}, m.fields...)
}

// Len returns the number of fields currently stored.
func (m *FieldMap[I]) Len() int { return len(m.fields) }

// SortedForWrite returns every field ordered by the map's Comparator, with
// ties (the comparator returning 0) broken by insertion order so the sort
// is stable.
func (m *FieldMap[I]) SortedForWrite() []*TagField[I] {
	out := m.All()
	if m.cmp == nil {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		return m.cmp(out[i].ID, out[j].ID) < 0
	})
	return out
}

// TagTarget describes a tag's scope: a numeric
// level (0 = unspecified; 10..70 map onto Shot/Subtrack/Track/Part/
// Album/Edition/Collection in Matroska), plus the specific UIDs it
// targets.
type TagTarget struct {
	Level       uint64
	LevelName   string
	Tracks      []uint64
	Editions    []uint64
	Chapters    []uint64
	Attachments []uint64
}

// Matches reports whether target scopes to the given track/edition/
// chapter/attachment UID sets: empty lists on the target side are treated
// as "matches everything at this level", and a non-empty list must contain
// the UID being tested.
func (t TagTarget) Matches(trackUID, editionUID, chapterUID, attachmentUID uint64) bool {
	return matchesUIDSet(t.Tracks, trackUID) &&
		matchesUIDSet(t.Editions, editionUID) &&
		matchesUIDSet(t.Chapters, chapterUID) &&
		matchesUIDSet(t.Attachments, attachmentUID)
}

func matchesUIDSet(set []uint64, uid uint64) bool {
	if len(set) == 0 {
		return true
	}
	for _, u := range set {
		if u == uid {
			return true
		}
	}
	return false
}

// Equal compares two targets for equality, ignoring LevelName.
func (t TagTarget) Equal(o TagTarget) bool {
	return t.Level == o.Level &&
		equalUIDs(t.Tracks, o.Tracks) &&
		equalUIDs(t.Editions, o.Editions) &&
		equalUIDs(t.Chapters, o.Chapters) &&
		equalUIDs(t.Attachments, o.Attachments)
}

func equalUIDs(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// KnownField is a dialect-independent field identity, letting a caller
// write "Title" or "Artist" without knowing the active dialect's Id
// representation.
type KnownField int

const (
	FieldInvalid KnownField = iota
	FieldTitle
	FieldArtist
	FieldAlbum
	FieldAlbumArtist
	FieldComment
	FieldGenre
	FieldYear
	FieldTrackPosition
	FieldDiskPosition
	FieldComposer
	FieldEncoder
	FieldLyrics
	FieldCover
	FieldUniqueFileID
)

// KnownFieldMapper is implemented by each dialect to translate between
// KnownField and the dialect's own Id type.
type KnownFieldMapper[I comparable] interface {
	KnownFieldToID(KnownField) (id I, ok bool)
	IDToKnownField(id I) KnownField
}

// SetKnownValue routes a KnownField write to the dialect's Id via mapper,
// failing with NotImplemented if the dialect has no field for it.
func SetKnownValue[I comparable](m *FieldMap[I], mapper KnownFieldMapper[I], field KnownField, value tagvalue.Value) *diag.Error {
	id, ok := mapper.KnownFieldToID(field)
	if !ok {
		return diag.New(diag.NotImplemented, "field %d has no mapping in this dialect", field)
	}
	m.Add(id, value)
	return nil
}
