package ebml

import (
	"bytes"
	"testing"

	"github.com/tagkit/tagkit/element"
)

// buildElement returns the wire bytes for [id][size][data], using the
// shortest valid VINT encodings.
func buildElement(id uint32, data []byte) []byte {
	out := append([]byte{}, EncodeID(id)...)
	sizeBuf, _ := EncodeSize(uint64(len(data)), 0)
	out = append(out, sizeBuf...)
	out = append(out, data...)
	return out
}

func TestDialectParseHeader(t *testing.T) {
	want := []byte("hello")
	buf := buildElement(IDEBMLDocType, want)

	stream := bytes.NewReader(buf)
	root := element.NewRoot(Dialect{}, stream, 0, int64(len(buf)))
	if err := root.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if uint32(root.ID) != IDEBMLDocType {
		t.Fatalf("got id 0x%X, want 0x%X", uint32(root.ID), IDEBMLDocType)
	}
	if root.DataSize != int64(len(want)) {
		t.Fatalf("got size %d, want %d", root.DataSize, len(want))
	}
	data, err := ReadData(stream, root)
	if err != nil {
		t.Fatalf("ReadData: %v", err)
	}
	if String(data) != "hello" {
		t.Fatalf("got %q, want hello", String(data))
	}
}

func TestParseHeaderAndSegment(t *testing.T) {
	docType := buildElement(IDEBMLDocType, []byte("matroska"))
	version := buildElement(IDEBMLVersion, EncodeUInt(1))
	headerBody := append(append([]byte{}, version...), docType...)
	header := buildElement(IDEBMLHeader, headerBody)

	segmentInfo := buildElement(IDSegmentInfo, buildElement(IDTitle, []byte("demo")))
	segment := buildElement(IDSegment, segmentInfo)

	buf := append(append([]byte{}, header...), segment...)
	stream := bytes.NewReader(buf)

	h, headerElem, err := ParseHeader(stream, int64(len(buf)))
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.DocType != "matroska" {
		t.Fatalf("got DocType %q, want matroska", h.DocType)
	}
	if h.Version != 1 {
		t.Fatalf("got Version %d, want 1", h.Version)
	}

	segElem, serr := ParseSegment(stream, int64(len(buf)), headerElem, h)
	if serr != nil {
		t.Fatalf("ParseSegment: %v", serr)
	}
	info, cerr := segElem.ChildByID(element.ID(IDSegmentInfo))
	if cerr != nil {
		t.Fatalf("ChildByID: %v", cerr)
	}
	if info == nil {
		t.Fatal("expected SegmentInfo child")
	}
	title, terr := info.ChildByID(element.ID(IDTitle))
	if terr != nil {
		t.Fatalf("ChildByID(Title): %v", terr)
	}
	data, rerr := ReadData(stream, title)
	if rerr != nil {
		t.Fatalf("ReadData: %v", rerr)
	}
	if String(data) != "demo" {
		t.Fatalf("got title %q, want demo", String(data))
	}
}

func TestCRC32RoundTrip(t *testing.T) {
	covered := []byte("the quick brown fox")
	crcElem := EncodeCRC32Element(covered)

	parentBody := append(append([]byte{}, crcElem...), covered...)
	parent := buildElement(IDSegmentInfo, parentBody)

	stream := bytes.NewReader(parent)
	root := element.NewRoot(Dialect{}, stream, 0, int64(len(parent)))
	if err := root.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	ok, verr := ValidateCRC32(stream, root)
	if verr != nil {
		t.Fatalf("ValidateCRC32: %v", verr)
	}
	if !ok {
		t.Fatal("expected CRC-32 to validate")
	}
}

func TestSeekHeadRoundTrip(t *testing.T) {
	entries := []SeekEntry{
		{ElementID: IDSegmentInfo, Offset: 64},
		{ElementID: IDTracks, Offset: 128},
	}
	buf := EncodeSeekHead(entries)

	stream := bytes.NewReader(buf)
	root := element.NewRoot(Dialect{}, stream, 0, int64(len(buf)))
	if err := root.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sh, err := ParseSeekHead(stream, root)
	if err != nil {
		t.Fatalf("ParseSeekHead: %v", err)
	}
	if len(sh.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(sh.Entries))
	}
	if sh.Entries[0].ElementID != IDSegmentInfo || sh.Entries[0].Offset != 64 {
		t.Fatalf("unexpected entry: %+v", sh.Entries[0])
	}
	if len(sh.DuplicateElementIDs()) != 0 {
		t.Fatalf("expected no duplicates")
	}
}
