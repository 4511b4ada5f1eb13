package ogg

import (
	"bytes"
	"testing"

	"github.com/tagkit/tagkit/oggpage"
	"github.com/tagkit/tagkit/vorbiscomment"
)

// buildPage serializes one page's wire bytes for test fixtures, mirroring
// oggpage's own test helper.
func buildPage(serial, seq uint32, granule uint64, flags uint8, payload []byte) []byte {
	p := &oggpage.Page{
		Version:         0,
		HeaderType:      flags,
		GranulePosition: granule,
		StreamSerial:    serial,
		SequenceNumber:  seq,
		SegmentTable:    oggpage.LaceSegments(payload),
	}
	return oggpage.Encode(p, payload)
}

// vorbisIdentPacket builds a minimal valid Vorbis identification packet.
func vorbisIdentPacket(channels byte, sampleRate uint32) []byte {
	b := make([]byte, 30)
	b[0] = 1
	copy(b[1:7], "vorbis")
	// b[7:11] version left zero
	b[11] = channels
	b[12] = byte(sampleRate)
	b[13] = byte(sampleRate >> 8)
	b[14] = byte(sampleRate >> 16)
	b[15] = byte(sampleRate >> 24)
	b[29] = 1 // framing bit
	return b
}

func vorbisCommentPacket(c *vorbiscomment.Comment) []byte {
	out := []byte{3}
	out = append(out, "vorbis"...)
	out = append(out, vorbiscomment.Encode(c)...)
	out = append(out, 1) // framing bit
	return out
}

// buildVorbisStream assembles a 3-page Ogg Vorbis stream: the
// identification page, the comment page, and one trailing audio-data page
// that the rewrite path must carry through untouched apart from its
// sequence number.
func buildVorbisStream(t *testing.T, serial uint32, comment *vorbiscomment.Comment, tail []byte) []byte {
	t.Helper()
	ident := vorbisIdentPacket(2, 44100)
	commentPkt := vorbisCommentPacket(comment)

	page0 := buildPage(serial, 0, 0, oggpage.FlagFirst, ident)
	page1 := buildPage(serial, 1, 0, 0, commentPkt)
	page2 := buildPage(serial, 2, 9999, oggpage.FlagLast, tail)

	buf := append(append([]byte{}, page0...), page1...)
	buf = append(buf, page2...)
	return buf
}

func newTestComment(vendor string, pairs ...[2]string) *vorbiscomment.Comment {
	c := &vorbiscomment.Comment{Vendor: vendor, Fields: vorbiscomment.NewFieldMap()}
	for _, p := range pairs {
		c.Add(p[0], p[1])
	}
	return c
}

func TestOpenIdentifiesVorbis(t *testing.T) {
	comment := newTestComment("tagkit-test", [2]string{"ARTIST", "Old Artist"})
	buf := buildVorbisStream(t, 0xABCD1234, comment, []byte("audio-data"))

	f, err := Open(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if f.Codec != CodecVorbis {
		t.Fatalf("got codec %v, want Vorbis", f.Codec)
	}
	if f.Vorbis == nil || f.Vorbis.Channels != 2 || f.Vorbis.SampleRate != 44100 {
		t.Fatalf("got %+v", f.Vorbis)
	}
	if f.Serial != 0xABCD1234 {
		t.Fatalf("got serial 0x%X", f.Serial)
	}
}

func TestParseTagsReadsCommentPacket(t *testing.T) {
	comment := newTestComment("tagkit-test", [2]string{"ARTIST", "Old Artist"}, [2]string{"TITLE", "Old Title"})
	buf := buildVorbisStream(t, 1, comment, []byte("audio-data"))

	stream := bytes.NewReader(buf)
	f, err := Open(stream, int64(len(buf)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if perr := f.ParseTags(); perr != nil {
		t.Fatalf("ParseTags: %v", perr)
	}
	if got := f.Comment.Values("artist"); len(got) != 1 || got[0] != "Old Artist" {
		t.Fatalf("got ARTIST %v", got)
	}
	if got := f.Comment.Values("TITLE"); len(got) != 1 || got[0] != "Old Title" {
		t.Fatalf("got TITLE %v", got)
	}
}

// TestRewriteRoundTripPreservesTailAndUpdatesComment exercises the full
// rewrite path: the comment packet is replaced, the rebuilt header pages
// are re-laced and checksummed from scratch, and the trailing audio page
// survives unchanged except for its renumbered sequence number.
func TestRewriteRoundTripPreservesTailAndUpdatesComment(t *testing.T) {
	oldComment := newTestComment("tagkit-test", [2]string{"ARTIST", "Old Artist"})
	tailPayload := []byte("some-audio-payload-bytes")
	buf := buildVorbisStream(t, 42, oldComment, tailPayload)

	stream := bytes.NewReader(buf)
	f, err := Open(stream, int64(len(buf)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if perr := f.ParseTags(); perr != nil {
		t.Fatalf("ParseTags: %v", perr)
	}

	newComment := newTestComment("tagkit-test", [2]string{"ARTIST", "New Artist"}, [2]string{"ALBUM", "New Album"})
	f.SetComment(newComment)

	var out bytes.Buffer
	if rerr := f.Rewrite(&out, false); rerr != nil {
		t.Fatalf("Rewrite: %v", rerr)
	}

	rewritten := out.Bytes()
	f2, err := Open(bytes.NewReader(rewritten), int64(len(rewritten)))
	if err != nil {
		t.Fatalf("Open on rewritten stream: %v", err)
	}
	if f2.Codec != CodecVorbis {
		t.Fatalf("got codec %v after rewrite, want Vorbis", f2.Codec)
	}
	if perr := f2.ParseTags(); perr != nil {
		t.Fatalf("ParseTags on rewritten stream: %v", perr)
	}
	if got := f2.Comment.Values("ARTIST"); len(got) != 1 || got[0] != "New Artist" {
		t.Fatalf("got ARTIST %v, want New Artist", got)
	}
	if got := f2.Comment.Values("ALBUM"); len(got) != 1 || got[0] != "New Album" {
		t.Fatalf("got ALBUM %v, want New Album", got)
	}

	// Walk every rewritten page and verify its checksum, and confirm the
	// tail page's payload survived byte-for-byte.
	it := oggpage.NewIterator(bytes.NewReader(rewritten), int64(len(rewritten)))
	var pages []*oggpage.Page
	page, perr := it.CurrentPage()
	if perr != nil {
		t.Fatalf("CurrentPage: %v", perr)
	}
	pages = append(pages, page)
	for {
		next, nerr := it.NextPage()
		if nerr != nil {
			t.Fatalf("NextPage: %v", nerr)
		}
		if next == nil {
			break
		}
		pages = append(pages, next)
	}

	for i, p := range pages {
		ok, verr := oggpage.VerifyChecksum(bytes.NewReader(rewritten), p)
		if verr != nil {
			t.Fatalf("VerifyChecksum(page %d): %v", i, verr)
		}
		if !ok {
			t.Fatalf("page %d failed its checksum after rewrite", i)
		}
		if p.StreamSerial != 42 {
			t.Fatalf("page %d: got serial %d, want 42", i, p.StreamSerial)
		}
		if p.SequenceNumber != uint32(i) {
			t.Fatalf("page %d: got sequence %d, want %d", i, p.SequenceNumber, i)
		}
	}

	last := pages[len(pages)-1]
	lastBuf := make([]byte, last.PayloadSize())
	if _, serr := bytes.NewReader(rewritten).ReadAt(lastBuf, last.Elem.DataOffset()); serr != nil {
		t.Fatalf("reading last page payload: %v", serr)
	}
	if !bytes.Equal(lastBuf, tailPayload) {
		t.Fatalf("got tail payload %q, want %q", lastBuf, tailPayload)
	}
	if !last.Last() {
		t.Fatal("expected the trailing page to keep its FlagLast bit")
	}
}

func TestRewriteVerbatimWhenNotDirty(t *testing.T) {
	comment := newTestComment("tagkit-test", [2]string{"ARTIST", "Unchanged"})
	buf := buildVorbisStream(t, 7, comment, []byte("tail"))

	stream := bytes.NewReader(buf)
	f, err := Open(stream, int64(len(buf)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var out bytes.Buffer
	if rerr := f.Rewrite(&out, false); rerr != nil {
		t.Fatalf("Rewrite: %v", rerr)
	}
	if !bytes.Equal(out.Bytes(), buf) {
		t.Fatal("expected a verbatim copy when the comment was never set dirty")
	}
}
