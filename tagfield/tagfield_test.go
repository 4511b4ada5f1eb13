package tagfield

import (
	"testing"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/tagvalue"
)

func stringComparator(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func textValue(t *testing.T, s string) tagvalue.Value {
	t.Helper()
	v, err := tagvalue.NewText(s, tagvalue.Utf8)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}
	return v
}

func TestFieldMapMultimapSemantics(t *testing.T) {
	m := NewFieldMap(stringComparator)
	m.Add("ARTIST", textValue(t, "First"))
	m.Add("ARTIST", textValue(t, "Second"))
	m.Add("TITLE", textValue(t, "Song"))

	artists := m.Values("ARTIST")
	if len(artists) != 2 {
		t.Fatalf("expected 2 ARTIST fields, got %d", len(artists))
	}
	if m.Len() != 3 {
		t.Fatalf("expected 3 total fields, got %d", m.Len())
	}

	m.SetValues("ARTIST", []tagvalue.Value{textValue(t, "Only")})
	artists = m.Values("ARTIST")
	if len(artists) != 1 {
		t.Fatalf("expected 1 ARTIST field after SetValues, got %d", len(artists))
	}
	s, err := artists[0].Value.String()
	if err != nil {
		t.Fatalf("String: %v", err)
	}
	if s != "Only" {
		t.Fatalf("got %q, want %q", s, "Only")
	}

	m.Remove("TITLE")
	if len(m.Values("TITLE")) != 0 {
		t.Fatal("expected TITLE removed")
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 field remaining, got %d", m.Len())
	}
}

func TestFieldMapSortedForWriteStable(t *testing.T) {
	m := NewFieldMap(stringComparator)
	m.Add("TITLE", textValue(t, "a"))
	m.Add("ARTIST", textValue(t, "b"))
	m.Add("ARTIST", textValue(t, "c"))
	m.Add("ALBUM", textValue(t, "d"))

	sorted := m.SortedForWrite()
	var order []string
	for _, f := range sorted {
		order = append(order, f.ID)
	}
	want := []string{"ALBUM", "ARTIST", "ARTIST", "TITLE"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
	// The two ARTIST fields must keep their insertion order (b before c)
	// since the comparator ties on equal ids.
	s0, _ := sorted[1].Value.String()
	s1, _ := sorted[2].Value.String()
	if s0 != "b" || s1 != "c" {
		t.Fatalf("expected stable tie-break, got %q then %q", s0, s1)
	}
}

func TestFieldMapNilComparatorPreservesInsertionOrder(t *testing.T) {
	m := NewFieldMap[string](nil)
	m.Add("B", textValue(t, "1"))
	m.Add("A", textValue(t, "2"))
	sorted := m.SortedForWrite()
	if sorted[0].ID != "B" || sorted[1].ID != "A" {
		t.Fatalf("expected insertion order preserved with nil comparator, got %v, %v", sorted[0].ID, sorted[1].ID)
	}
}

func TestTagTargetMatches(t *testing.T) {
	empty := TagTarget{Level: 50}
	if !empty.Matches(1, 2, 3, 4) {
		t.Fatal("empty UID lists should match everything at the level")
	}

	scoped := TagTarget{Level: 30, Tracks: []uint64{7, 8}}
	if !scoped.Matches(7, 0, 0, 0) {
		t.Fatal("expected track 7 to match")
	}
	if scoped.Matches(9, 0, 0, 0) {
		t.Fatal("expected track 9 not to match")
	}
}

func TestTagTargetEqualIgnoresLevelName(t *testing.T) {
	a := TagTarget{Level: 50, LevelName: "Album", Tracks: []uint64{1, 2}}
	b := TagTarget{Level: 50, LevelName: "different name entirely", Tracks: []uint64{1, 2}}
	if !a.Equal(b) {
		t.Fatal("expected targets differing only in LevelName to be equal")
	}

	c := TagTarget{Level: 50, Tracks: []uint64{1, 3}}
	if a.Equal(c) {
		t.Fatal("expected targets with different Tracks to be unequal")
	}
}

type fakeMapper struct{}

func (fakeMapper) KnownFieldToID(f KnownField) (string, bool) {
	if f == FieldTitle {
		return "TITLE", true
	}
	return "", false
}

func (fakeMapper) IDToKnownField(id string) KnownField {
	if id == "TITLE" {
		return FieldTitle
	}
	return FieldInvalid
}

func TestSetKnownValue(t *testing.T) {
	m := NewFieldMap(stringComparator)
	if err := SetKnownValue[string](m, fakeMapper{}, FieldTitle, textValue(t, "Known")); err != nil {
		t.Fatalf("SetKnownValue: %v", err)
	}
	values := m.Values("TITLE")
	if len(values) != 1 {
		t.Fatalf("expected 1 TITLE field, got %d", len(values))
	}

	err := SetKnownValue[string](m, fakeMapper{}, FieldArtist, textValue(t, "x"))
	if err == nil {
		t.Fatal("expected NotImplemented for an unmapped field")
	}
	if err.Kind != diag.NotImplemented {
		t.Fatalf("got kind %v, want NotImplemented", err.Kind)
	}
}
