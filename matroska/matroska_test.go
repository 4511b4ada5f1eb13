package matroska

import (
	"bytes"
	"testing"

	"golang.org/x/text/language"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/ebml"
	"github.com/tagkit/tagkit/tagfield"
	"github.com/tagkit/tagkit/tagvalue"
)

func mustParseLanguage(t *testing.T, s string) language.Tag {
	t.Helper()
	tag, err := language.Parse(s)
	if err != nil {
		t.Fatalf("language.Parse(%q): %v", s, err)
	}
	return tag
}

// buildElem returns [id][size][data] using the shortest valid VINT size
// encoding, matching ebml's own test helper.
func buildElem(id uint32, data []byte) []byte {
	out := append([]byte{}, ebml.EncodeID(id)...)
	sizeBuf, _ := ebml.EncodeSize(uint64(len(data)), 0)
	out = append(out, sizeBuf...)
	out = append(out, data...)
	return out
}

// buildMatroskaFile assembles a minimal but structurally real Matroska
// stream: an EBML header, a SegmentInfo, one TrackEntry and one Cluster
// (carrying a CRC-32 child over a SimpleBlock payload). It has no Tags or
// Attachments block; the tests supply those through SetTags and
// SetAttachments (one real attachment and one empty one).
func buildMatroskaFile(t *testing.T) []byte {
	t.Helper()

	docType := buildElem(ebml.IDEBMLDocType, []byte("matroska"))
	version := buildElem(ebml.IDEBMLVersion, ebml.EncodeUInt(1))
	header := buildElem(ebml.IDEBMLHeader, append(append([]byte{}, version...), docType...))

	segmentInfo := buildElem(ebml.IDSegmentInfo, buildElem(ebml.IDTitle, []byte("Original Title")))

	trackEntry := buildElem(ebml.IDTrackEntry, append(append(
		buildElem(ebml.IDTrackNum, ebml.EncodeUInt(1)),
		buildElem(ebml.IDTrackUID, ebml.EncodeUInt(42))...),
		buildElem(ebml.IDCodecID, []byte("A_OPUS"))...))
	tracks := buildElem(ebml.IDTracks, trackEntry)

	simpleBlock := buildElem(ebml.IDSimpleBlock, []byte{0x81, 0x00, 0x00, 0x80, 0xAB, 0xCD})
	clusterCovered := append(append([]byte{}, buildElem(ebml.IDTimestamp, ebml.EncodeUInt(0))...), simpleBlock...)
	crc := ebml.EncodeCRC32Element(clusterCovered)
	cluster := buildElem(ebml.IDCluster, append(append([]byte{}, crc...), clusterCovered...))

	segmentBody := append(append(append([]byte{}, segmentInfo...), tracks...), cluster...)
	segment := buildElem(ebml.IDSegment, segmentBody)

	return append(append([]byte{}, header...), segment...)
}

func openTestFile(t *testing.T, buf []byte) *File {
	t.Helper()
	stream := bytes.NewReader(buf)
	f, err := Open(stream, int64(len(buf)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if perr := f.ParseContainer(); perr != nil {
		t.Fatalf("ParseContainer: %v", perr)
	}
	return f
}

func TestParseContainerLocatesTopLevelChildren(t *testing.T) {
	f := openTestFile(t, buildMatroskaFile(t))
	if perr := f.ParseTracks(); perr != nil {
		t.Fatalf("ParseTracks: %v", perr)
	}
	if len(f.Tracks) != 1 || f.Tracks[0].CodecID != "A_OPUS" {
		t.Fatalf("got tracks %+v", f.Tracks)
	}

	clusters, cerr := f.Clusters()
	if cerr != nil {
		t.Fatalf("Clusters: %v", cerr)
	}
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}
}

func TestValidateChecksumsAcceptsWellFormedCRC(t *testing.T) {
	f := openTestFile(t, buildMatroskaFile(t))
	if verr := f.ValidateChecksums(); verr != nil {
		t.Fatalf("ValidateChecksums: %v", verr)
	}
	if f.Diag.HasCritical() {
		t.Fatalf("unexpected critical diagnostics: %v", f.Diag.Entries())
	}
	for _, e := range f.Diag.Entries() {
		if e.Severity == diag.Warning {
			t.Fatalf("unexpected warning diagnostic: %v", e)
		}
	}
}

// TestRewriteRoundTripPatchesCRC32 exercises a full tag+attachment rewrite:
// the rewritten file's Cluster keeps its CRC-32 child, but the checksum
// must be recomputed rather than carried over, since Position/PrevSize
// were rewritten alongside it.
func TestRewriteRoundTripPatchesCRC32(t *testing.T) {
	f := openTestFile(t, buildMatroskaFile(t))
	if perr := f.ParseTags(); perr != nil {
		t.Fatalf("ParseTags: %v", perr)
	}
	if perr := f.ParseAttachments(); perr != nil {
		t.Fatalf("ParseAttachments: %v", perr)
	}

	tag := NewTag(tagfield.TagTarget{Level: 50, LevelName: "ALBUM"})
	text, terr := tagvalue.NewText("New Album", tagvalue.Utf8)
	if terr != nil {
		t.Fatalf("NewText: %v", terr)
	}
	tag.Fields.Add("TITLE", text)
	f.SetTags([]*Tag{tag})

	real := &Attachment{Name: "cover.jpg", MimeType: "image/jpeg", UID: 7, Data: NewDataBlockFromBytes([]byte{0xFF, 0xD8, 0xFF})}
	empty := &Attachment{}
	f.SetAttachments([]*Attachment{real, empty})

	var out bytes.Buffer
	if rerr := f.Rewrite(&out, RewriteOptions{}); rerr != nil {
		t.Fatalf("Rewrite: %v", rerr)
	}

	rewritten := out.Bytes()
	f2 := openTestFile(t, rewritten)

	if verr := f2.ValidateChecksums(); verr != nil {
		t.Fatalf("ValidateChecksums on rewritten file: %v", verr)
	}
	for _, e := range f2.Diag.Entries() {
		t.Fatalf("unexpected diagnostic on rewritten file's CRC-32: %v", e)
	}

	if perr := f2.ParseTags(); perr != nil {
		t.Fatalf("ParseTags on rewritten file: %v", perr)
	}
	if len(f2.Tags) != 1 {
		t.Fatalf("got %d tags, want 1", len(f2.Tags))
	}
	values := f2.Tags[0].Fields.Values("TITLE")
	if len(values) != 1 {
		t.Fatalf("expected 1 TITLE field, got %d", len(values))
	}
	s, serr := values[0].Value.String()
	if serr != nil {
		t.Fatalf("String: %v", serr)
	}
	if s != "New Album" {
		t.Fatalf("got %q, want New Album", s)
	}

	if perr := f2.ParseAttachments(); perr != nil {
		t.Fatalf("ParseAttachments on rewritten file: %v", perr)
	}
	if len(f2.Attachments) != 1 {
		t.Fatalf("expected the empty attachment to be dropped, got %d attachments", len(f2.Attachments))
	}
	if f2.Attachments[0].Name != "cover.jpg" {
		t.Fatalf("got attachment %+v", f2.Attachments[0])
	}

	if verr := f2.ValidateIndex(); verr != nil {
		t.Fatalf("ValidateIndex on rewritten file: %v", verr)
	}
	for _, e := range f2.Diag.Entries() {
		t.Fatalf("unexpected index diagnostic on rewritten file: %v", e)
	}
}

func TestLiveAttachmentsDropsEmptyAndLogsInfo(t *testing.T) {
	f := openTestFile(t, buildMatroskaFile(t))
	real := &Attachment{Name: "a.txt", MimeType: "text/plain", Data: NewDataBlockFromBytes([]byte("x"))}
	empty := &Attachment{}
	f.SetAttachments([]*Attachment{real, empty})

	live := f.liveAttachments()
	if len(live) != 1 || live[0] != real {
		t.Fatalf("expected only the real attachment to survive, got %+v", live)
	}

	found := false
	for _, e := range f.Diag.Entries() {
		if e.Severity == diag.Information {
			found = true
		}
	}
	if !found {
		t.Fatal("expected an informational diagnostic about the dropped attachment")
	}
}

func TestAttachmentIsEmpty(t *testing.T) {
	if !(&Attachment{}).IsEmpty() {
		t.Fatal("expected zero-value attachment to be empty")
	}
	if (&Attachment{Name: "x"}).IsEmpty() {
		t.Fatal("expected named attachment to not be empty")
	}
	if (&Attachment{Data: NewDataBlockFromBytes([]byte("x"))}).IsEmpty() {
		t.Fatal("expected attachment with data to not be empty")
	}
}

func TestChapterLocaleAwareString(t *testing.T) {
	ch := &Chapter{Names: []ChapterDisplay{
		{Text: "Chapitre Un", Language: "fr"},
		{Text: "Chapter One", Language: "en"},
	}}
	if got := ch.LocaleAwareString(mustParseLanguage(t, "en-US")); got != "Chapter One" {
		t.Fatalf("got %q, want Chapter One", got)
	}
	if got := ch.LocaleAwareString(mustParseLanguage(t, "fr-FR")); got != "Chapitre Un" {
		t.Fatalf("got %q, want Chapitre Un", got)
	}
}

func TestChapterLocaleAwareStringEmpty(t *testing.T) {
	ch := &Chapter{}
	if got := ch.LocaleAwareString(mustParseLanguage(t, "en")); got != "" {
		t.Fatalf("got %q, want empty string", got)
	}
}
