// Package mp3 implements the MP3 container driver: locating whatever
// ID3v2 tag brackets the front of the file and whatever ID3v1 trailer
// brackets the back, leaving the MPEG audio frames between them opaque,
// and the splice rewrite that replaces either bracket without touching
// the frame stream.
//
// Unlike the matroska and ogg drivers, which parse tags in a separate phase
// after Open, Open here locates and parses both tags itself, MP3's
// "optional header, opaque body, optional trailer" layout being much
// flatter than an element tree; it builds on tagkit/id3v2 and
// tagkit/id3v1 for the tag dialects themselves.
package mp3

import (
	"bufio"
	"io"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/id3v1"
	"github.com/tagkit/tagkit/id3v2"
)

// frameSyncScanSize is how many trailing bytes Open scans, from the end of
// the stream backwards, looking for an ID3v1 trailer before giving up.
// ID3v1 is always exactly the last 128 bytes when present, so this is just
// id3v1.Size; Open itself uses id3v1.Size directly.
const frameSyncScanSize = id3v1.Size

// File is an open MP3 stream: an optional leading ID3v2 tag, an optional
// trailing ID3v1 tag, and the byte range of the MPEG frames between them.
// Unlike matroska.File and ogg.File, there is no element tree to lazily
// walk — the three regions are located once, in Open, since finding them
// is O(1) (a fixed-size header, a fixed-size trailer).
type File struct {
	Stream     io.ReadSeeker
	StreamSize int64
	Diag       *diag.Diagnostics
	Progress   *diag.Progress

	ID3v2 *id3v2.Tag // nil if the file has no ID3v2 header
	ID3v1 *id3v1.Tag // nil if the file has no ID3v1 trailer

	// audioStart/audioEnd bound the MPEG frame stream: the byte range that
	// must be copied verbatim by Rewrite regardless of which tags change.
	audioStart int64
	audioEnd   int64

	id3v2Dirty bool
	id3v1Dirty bool
	// removeID3v2/removeID3v1 request dropping a previously-present tag on
	// the next Rewrite, distinct from "never had one" (id3v2Dirty alone
	// can't express deletion, since a nil ID3v2 also means "unchanged" for
	// a file that never had one).
	removeID3v2 bool
	removeID3v1 bool

	TagsStatus diag.ParsingStatus
}

// Open locates the leading ID3v2 tag (if any) and the trailing ID3v1
// tag (if any), and parses both.
func Open(stream io.ReadSeeker, streamSize int64) (*File, *diag.Error) {
	f := &File{
		Stream:     stream,
		StreamSize: streamSize,
		Diag:       diag.NewDiagnostics(),
		audioStart: 0,
		audioEnd:   streamSize,
	}

	if streamSize >= 10 {
		var hdr [10]byte
		if _, err := stream.Seek(0, io.SeekStart); err != nil {
			return nil, diag.Wrap(diag.Truncated, err, "mp3: seeking to start")
		}
		if _, err := io.ReadFull(stream, hdr[:]); err != nil {
			return nil, diag.Wrap(diag.Truncated, err, "mp3: reading leading bytes")
		}
		if string(hdr[0:3]) == "ID3" {
			size := id3v2.SynchSafeToSize(beUint32(hdr[6:10]))
			tagLen := int64(10) + int64(size)
			if tagLen > streamSize {
				f.Diag.Warn("mp3: open", "ID3v2 tag declares size %d past end of file, ignoring", size)
			} else {
				if _, err := stream.Seek(0, io.SeekStart); err != nil {
					return nil, diag.Wrap(diag.Truncated, err, "mp3: seeking to ID3v2 header")
				}
				tag, terr := id3v2.ParseTag(io.LimitReader(stream, tagLen))
				if terr != nil {
					f.Diag.AddError(diag.Warning, "mp3: parsing ID3v2 tag", terr)
				} else {
					f.ID3v2 = tag
					f.audioStart = tagLen
				}
			}
		}
	}

	if streamSize-f.audioStart >= id3v1.Size {
		var trailer [id3v1.Size]byte
		if _, err := stream.Seek(streamSize-id3v1.Size, io.SeekStart); err != nil {
			return nil, diag.Wrap(diag.Truncated, err, "mp3: seeking to ID3v1 trailer")
		}
		if _, err := io.ReadFull(stream, trailer[:]); err != nil {
			return nil, diag.Wrap(diag.Truncated, err, "mp3: reading ID3v1 trailer")
		}
		if string(trailer[0:3]) == "TAG" {
			tag, terr := id3v1.Parse(trailer[:])
			if terr != nil {
				f.Diag.AddError(diag.Warning, "mp3: parsing ID3v1 tag", terr)
			} else {
				f.ID3v1 = tag
				f.audioEnd = streamSize - id3v1.Size
			}
		}
	}

	if err := validateFrameSync(stream, f.audioStart, f.audioEnd); err != nil {
		f.Diag.AddError(diag.Warning, "mp3: validating MPEG frame sync", err)
	}

	f.TagsStatus = diag.StatusOk
	return f, nil
}

// validateFrameSync checks that the audio region begins with a plausible
// MPEG frame sync (11 set bits), a cheap sanity check that the computed
// ID3v2 boundary didn't eat into the frame stream.
func validateFrameSync(stream io.ReadSeeker, start, end int64) *diag.Error {
	if end-start < 2 {
		return diag.New(diag.Truncated, "mp3: audio region is too short to contain a frame header")
	}
	if _, err := stream.Seek(start, io.SeekStart); err != nil {
		return diag.Wrap(diag.Truncated, err, "mp3: seeking to audio start")
	}
	var hdr [2]byte
	if _, err := io.ReadFull(stream, hdr[:]); err != nil {
		return diag.Wrap(diag.Truncated, err, "mp3: reading frame sync")
	}
	if hdr[0] != 0xFF || hdr[1]&0xE0 != 0xE0 {
		return diag.New(diag.Invalid, "mp3: audio region does not begin with an MPEG frame sync")
	}
	return nil
}

// SetID3v2Tag replaces the file's ID3v2 tag, marking it dirty for the next
// Rewrite. Passing nil requests removal of an existing tag.
func (f *File) SetID3v2Tag(tag *id3v2.Tag) {
	f.ID3v2 = tag
	f.id3v2Dirty = true
	f.removeID3v2 = tag == nil
}

// SetID3v1Tag replaces the file's ID3v1 tag, marking it dirty for the next
// Rewrite. Passing nil requests removal of an existing tag.
func (f *File) SetID3v1Tag(tag *id3v1.Tag) {
	f.ID3v1 = tag
	f.id3v1Dirty = true
	f.removeID3v1 = tag == nil
}

func (f *File) dirty() bool {
	return f.id3v2Dirty || f.id3v1Dirty
}

// Rewrite splices the configured ID3v2/ID3v1 tags around the MPEG frame
// stream, copying the audio bytes verbatim ("strip any
// existing ID3v1/ID3v2 bracketing the MPEG frames, then emit ID3v2 (if
// configured) at the front and ID3v1 (if configured) at the back; the
// MPEG frame stream is copied verbatim"). With nothing dirty and force
// false it copies the original file byte-for-byte instead, matching the
// other two drivers' no-op save invariant.
func (f *File) Rewrite(out io.Writer, force bool) *diag.Error {
	if !force && !f.dirty() {
		if _, err := f.Stream.Seek(0, io.SeekStart); err != nil {
			return diag.Wrap(diag.Truncated, err, "mp3: seeking to start for verbatim copy")
		}
		if _, err := io.Copy(out, io.LimitReader(f.Stream, f.StreamSize)); err != nil {
			return diag.Wrap(diag.Truncated, err, "mp3: copying file verbatim")
		}
		return nil
	}

	bw := bufio.NewWriter(out)

	if f.ID3v2 != nil && !f.removeID3v2 {
		if err := id3v2.WriteTag(bw, f.ID3v2); err != nil {
			return err
		}
	}

	if _, err := f.Stream.Seek(f.audioStart, io.SeekStart); err != nil {
		return diag.Wrap(diag.Truncated, err, "mp3: seeking to audio start")
	}
	if _, err := io.Copy(bw, io.LimitReader(f.Stream, f.audioEnd-f.audioStart)); err != nil {
		return diag.Wrap(diag.Truncated, err, "mp3: copying audio frames")
	}

	if f.ID3v1 != nil && !f.removeID3v1 {
		buf, eerr := id3v1.Encode(f.ID3v1)
		if eerr != nil {
			return eerr
		}
		if _, err := bw.Write(buf); err != nil {
			return diag.Wrap(diag.Truncated, err, "mp3: writing ID3v1 trailer")
		}
	}

	if err := bw.Flush(); err != nil {
		return diag.Wrap(diag.Truncated, err, "mp3: flushing output")
	}
	return nil
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
