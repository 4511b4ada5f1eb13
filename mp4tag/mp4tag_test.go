package mp4tag

import (
	"testing"

	"github.com/tagkit/tagkit/tagfield"
	"github.com/tagkit/tagkit/tagvalue"
)

func TestAtomIDString(t *testing.T) {
	if got := AtomTitle.String(); got != "\xa9nam" {
		t.Fatalf("got %q", got)
	}
}

func TestComparatorOrdersNumerically(t *testing.T) {
	if Comparator(AtomAlbum, AtomTitle) == 0 {
		t.Fatal("expected distinct atoms to compare unequal")
	}
	a, b := NewAtomID(0, 0, 0, 1), NewAtomID(0, 0, 0, 2)
	if Comparator(a, b) >= 0 {
		t.Fatalf("expected %v < %v", a, b)
	}
}

func TestKnownFieldMapperRoundTrip(t *testing.T) {
	var m Mapper
	id, ok := m.KnownFieldToID(tagfield.FieldTitle)
	if !ok {
		t.Fatal("expected Title to map to an atom id")
	}
	if id != AtomTitle {
		t.Fatalf("got %v, want %v", id, AtomTitle)
	}
}

func TestTagSetKnownValue(t *testing.T) {
	tag := NewTag()
	text, err := tagvalue.NewText("Album Title", tagvalue.Utf8)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}
	if serr := tag.SetKnownValue(tagfield.FieldAlbum, text); serr != nil {
		t.Fatalf("SetKnownValue: %v", serr)
	}
	values := tag.Fields.Values(AtomAlbum)
	if len(values) != 1 {
		t.Fatalf("expected 1 album atom, got %d", len(values))
	}
	s, gerr := values[0].Value.String()
	if gerr != nil {
		t.Fatalf("String: %v", gerr)
	}
	if s != "Album Title" {
		t.Fatalf("got %q", s)
	}
}

func TestTagSetKnownValueUnmapped(t *testing.T) {
	tag := NewTag()
	text, err := tagvalue.NewText("x", tagvalue.Utf8)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}
	if serr := tag.SetKnownValue(tagfield.FieldUniqueFileID, text); serr == nil {
		t.Fatal("expected NotImplemented for a field this dialect has no atom for")
	}
}
