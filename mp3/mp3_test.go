package mp3

import (
	"bytes"
	"testing"

	"github.com/tagkit/tagkit/id3v1"
	"github.com/tagkit/tagkit/id3v2"
	"github.com/tagkit/tagkit/tagvalue"
)

// fakeAudio returns a minimal byte run that looks like the start of an
// MPEG frame stream to validateFrameSync: a sync word followed by filler.
func fakeAudio(n int) []byte {
	buf := make([]byte, n)
	buf[0] = 0xFF
	buf[1] = 0xFB
	for i := 2; i < n; i++ {
		buf[i] = byte(i)
	}
	return buf
}

func newReadSeeker(b []byte) *bytes.Reader { return bytes.NewReader(b) }

func TestRoundTripID3v2TextFrame(t *testing.T) {
	tag := &id3v2.Tag{Version: id3v2.V3, Fields: id3v2.NewFieldMap()}
	text, err := tagvalue.NewText("Hello", tagvalue.Utf16LE)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}
	tag.Fields.Add(id3v2.NewFrameID4('T', 'I', 'T', '2'), text)

	var tagBuf bytes.Buffer
	if werr := id3v2.WriteTag(&tagBuf, tag); werr != nil {
		t.Fatalf("WriteTag: %v", werr)
	}

	raw := append(append([]byte{}, tagBuf.Bytes()...), fakeAudio(64)...)

	f, oerr := Open(newReadSeeker(raw), int64(len(raw)))
	if oerr != nil {
		t.Fatalf("Open: %v", oerr)
	}
	if f.ID3v2 == nil {
		t.Fatal("expected an ID3v2 tag")
	}
	frames := f.ID3v2.Fields.Values(id3v2.NewFrameID4('T', 'I', 'T', '2'))
	if len(frames) != 1 {
		t.Fatalf("expected 1 TIT2 frame, got %d", len(frames))
	}
	s, serr := frames[0].Value.String()
	if serr != nil {
		t.Fatalf("String: %v", serr)
	}
	if s != "Hello" {
		t.Fatalf("got %q, want %q", s, "Hello")
	}
	if frames[0].Value.TextEncoding != tagvalue.Utf16LE {
		t.Fatalf("got encoding %v, want Utf16LE", frames[0].Value.TextEncoding)
	}
}

func TestNoOpRewriteIsByteIdentical(t *testing.T) {
	audio := fakeAudio(128)
	stream := newReadSeeker(audio)
	f, oerr := Open(stream, int64(len(audio)))
	if oerr != nil {
		t.Fatalf("Open: %v", oerr)
	}

	var out bytes.Buffer
	if rerr := f.Rewrite(&out, false); rerr != nil {
		t.Fatalf("Rewrite: %v", rerr)
	}
	if !bytes.Equal(out.Bytes(), audio) {
		t.Fatalf("no-op rewrite changed the file")
	}
}

func TestRewriteSplicesID3v1Trailer(t *testing.T) {
	audio := fakeAudio(96)
	f, oerr := Open(newReadSeeker(audio), int64(len(audio)))
	if oerr != nil {
		t.Fatalf("Open: %v", oerr)
	}

	v1 := id3v1.NewTag()
	title, terr := tagvalue.NewText("Title", tagvalue.Latin1)
	if terr != nil {
		t.Fatalf("NewText: %v", terr)
	}
	v1.Fields.Add(id3v1.SlotTitle, title)
	f.SetID3v1Tag(v1)

	var out bytes.Buffer
	if rerr := f.Rewrite(&out, false); rerr != nil {
		t.Fatalf("Rewrite: %v", rerr)
	}
	got := out.Bytes()
	if len(got) != len(audio)+id3v1.Size {
		t.Fatalf("got %d bytes, want %d", len(got), len(audio)+id3v1.Size)
	}
	if !bytes.Equal(got[:len(audio)], audio) {
		t.Fatal("audio region was altered by the splice")
	}

	reopened, rerr := Open(newReadSeeker(got), int64(len(got)))
	if rerr != nil {
		t.Fatalf("re-Open: %v", rerr)
	}
	if reopened.ID3v1 == nil {
		t.Fatal("expected an ID3v1 trailer after rewrite")
	}
	titles := reopened.ID3v1.Fields.Values(id3v1.SlotTitle)
	if len(titles) != 1 {
		t.Fatalf("expected 1 title, got %d", len(titles))
	}
	s, _ := titles[0].Value.String()
	if s != "Title" {
		t.Fatalf("got %q", s)
	}
}
