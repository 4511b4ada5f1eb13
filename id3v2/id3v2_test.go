package id3v2

import (
	"bytes"
	"sort"
	"testing"

	"github.com/tagkit/tagkit/tagfield"
	"github.com/tagkit/tagkit/tagvalue"
)

func TestSynchSafeRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 16383, 16384, 0x0FFFFFFF}
	for _, v := range values {
		got := SynchSafeToSize(SizeToSynchSafe(v))
		if got != v {
			t.Fatalf("round trip failed for %d: got %d", v, got)
		}
	}
}

func TestFrameComparerTiering(t *testing.T) {
	ids := []FrameID{
		idCover,
		NewFrameID4('T', 'P', 'E', '1'), // other text frame
		idTitle,
		NewFrameID4('A', 'P', 'I', 'C'), // == idCover
		idUniqueFileID,
		NewFrameID4('C', 'O', 'M', 'M'), // non-text, non-special
	}
	sorted := append([]FrameID{}, ids...)
	sort.Slice(sorted, func(i, j int) bool { return FrameComparer(sorted[i], sorted[j]) < 0 })

	if sorted[0] != idUniqueFileID {
		t.Fatalf("expected UniqueFileID first, got %s", sorted[0])
	}
	if sorted[1] != idTitle {
		t.Fatalf("expected Title second, got %s", sorted[1])
	}
	if sorted[len(sorted)-1] != idCover {
		t.Fatalf("expected Cover last, got %s", sorted[len(sorted)-1])
	}
}

func TestFrameComparerStrictWeakOrder(t *testing.T) {
	a := NewFrameID4('T', 'I', 'T', '2')
	b := NewFrameID4('T', 'P', 'E', '1')
	if FrameComparer(a, a) != 0 {
		t.Fatal("expected a compared to itself to be 0")
	}
	ab := FrameComparer(a, b)
	ba := FrameComparer(b, a)
	if ab == 0 || (ab > 0) == (ba > 0) {
		t.Fatalf("expected asymmetric ordering for distinct ids, got ab=%d ba=%d", ab, ba)
	}
}

func TestKnownFieldMapperRoundTrip(t *testing.T) {
	var m Mapper
	id, ok := m.KnownFieldToID(tagfield.FieldTitle)
	if !ok {
		t.Fatal("expected Title to map to a frame id")
	}
	if id != idTitle {
		t.Fatalf("got %s, want %s", id, idTitle)
	}
	if got := m.IDToKnownField(id); got != tagfield.FieldTitle {
		t.Fatalf("got %v", got)
	}
}

func TestTagSetKnownValue(t *testing.T) {
	tag := &Tag{Version: V3, Fields: NewFieldMap()}
	text, err := tagvalue.NewText("Known Title", tagvalue.Utf8)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}
	if serr := tag.SetKnownValue(tagfield.FieldTitle, text); serr != nil {
		t.Fatalf("SetKnownValue: %v", serr)
	}
	titles := tag.Fields.Values(idTitle)
	if len(titles) != 1 {
		t.Fatalf("expected 1 title frame, got %d", len(titles))
	}
	s, gerr := titles[0].Value.String()
	if gerr != nil {
		t.Fatalf("String: %v", gerr)
	}
	if s != "Known Title" {
		t.Fatalf("got %q", s)
	}

	binary := tagvalue.NewBinary([]byte{1, 2, 3})
	if serr := tag.SetKnownValue(tagfield.FieldCover, binary); serr != nil {
		t.Fatalf("SetKnownValue(FieldCover): %v", serr)
	}
	if len(tag.Fields.Values(idCover)) != 1 {
		t.Fatal("expected 1 cover frame after SetKnownValue")
	}
}

func TestTagRoundTrip(t *testing.T) {
	tag := &Tag{Version: V4, Fields: NewFieldMap()}
	text, err := tagvalue.NewText("Test Title", tagvalue.Utf8)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}
	tag.Fields.Add(idTitle, text)
	tag.Fields.Add(idUniqueFileID, tagvalue.NewBinary([]byte("abc123")))

	var buf bytes.Buffer
	if werr := WriteTag(&buf, tag); werr != nil {
		t.Fatalf("WriteTag: %v", werr)
	}

	got, perr := ParseTag(&buf)
	if perr != nil {
		t.Fatalf("ParseTag: %v", perr)
	}
	if got.Version != V4 {
		t.Fatalf("got version %d", got.Version)
	}
	titles := got.Fields.Values(idTitle)
	if len(titles) != 1 {
		t.Fatalf("expected 1 title frame, got %d", len(titles))
	}
	s, serr := titles[0].Value.String()
	if serr != nil {
		t.Fatalf("String: %v", serr)
	}
	if s != "Test Title" {
		t.Fatalf("got %q", s)
	}
}
