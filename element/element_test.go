package element

import (
	"bytes"
	"io"
	"testing"

	"github.com/tagkit/tagkit/diag"
)

// fakeDialect implements a trivial TLV format for exercising the generic
// tree walk without depending on the real EBML/Ogg codecs: [1-byte id][1-byte
// size][size bytes of data]. ID 0xFF is "parent", 0xEE is "padding".
type fakeDialect struct{}

func (fakeDialect) ParseHeader(r io.ReadSeeker, limit int64) (ID, int64, int64, bool, *diag.Error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, 0, 0, false, diag.Wrap(diag.Truncated, err, "reading TLV header")
	}
	return ID(hdr[0]), 2, int64(hdr[1]), false, nil
}

func (fakeDialect) IsParent(id ID) bool  { return id == 0xFF }
func (fakeDialect) IsPadding(id ID) bool { return id == 0xEE }
func (fakeDialect) Name(id ID) string    { return "fake" }

func tlv(id byte, data []byte) []byte {
	return append([]byte{id, byte(len(data))}, data...)
}

func TestElementSiblingWalk(t *testing.T) {
	buf := append(tlv(0x01, []byte("aa")), tlv(0x02, []byte("bbb"))...)
	buf = append(buf, tlv(0x03, nil)...)

	stream := bytes.NewReader(buf)
	root := NewRoot(fakeDialect{}, stream, 0, int64(len(buf)))

	var ids []ID
	child := root
	for {
		if err := child.Parse(); err != nil {
			t.Fatalf("Parse: %v", err)
		}
		ids = append(ids, child.ID)
		next, err := child.NextSibling()
		if err != nil {
			t.Fatalf("NextSibling: %v", err)
		}
		if next == nil {
			break
		}
		child = next
	}

	if len(ids) != 3 || ids[0] != 0x01 || ids[1] != 0x02 || ids[2] != 0x03 {
		t.Fatalf("unexpected walk order: %v", ids)
	}
}

func TestElementChildren(t *testing.T) {
	inner := append(tlv(0x01, []byte("x")), tlv(0x02, []byte("yy"))...)
	buf := tlv(0xFF, inner)

	stream := bytes.NewReader(buf)
	root := NewRoot(fakeDialect{}, stream, 0, int64(len(buf)))

	if err := root.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !root.IsParent() {
		t.Fatal("expected root to be a parent")
	}

	children, err := root.Children()
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(children))
	}
	if children[0].ID != 0x01 || children[1].ID != 0x02 {
		t.Fatalf("unexpected child ids: %v, %v", children[0].ID, children[1].ID)
	}
}

func TestValidateSubsequentAccumulatesPadding(t *testing.T) {
	inner := append(tlv(0xEE, []byte("pad")), tlv(0x01, []byte("x"))...)
	buf := tlv(0xFF, inner)

	stream := bytes.NewReader(buf)
	root := NewRoot(fakeDialect{}, stream, 0, int64(len(buf)))

	padding, err := root.ValidateSubsequent(true)
	if err != nil {
		t.Fatalf("ValidateSubsequent: %v", err)
	}
	if padding != 5 { // 2-byte header + 3 bytes of "pad"
		t.Fatalf("expected 5 padding bytes, got %d", padding)
	}
}

func TestElementTruncated(t *testing.T) {
	buf := []byte{0x01, 0x05, 'a', 'b'} // declares 5 bytes of data, only 2 present
	stream := bytes.NewReader(buf)
	root := NewRoot(fakeDialect{}, stream, 0, int64(len(buf)))

	err := root.Parse()
	if err == nil || err.Kind != diag.Truncated {
		t.Fatalf("expected Truncated error, got %v", err)
	}
}
