package ogg

import (
	"io"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/oggpage"
	"github.com/tagkit/tagkit/vorbiscomment"
)

// maxContinuationChunk is the most payload bytes a single "packet
// continues onto the next page" page can carry: 255 segments, each valued
// 255, with no terminating entry.
const maxContinuationChunk = 255 * 255

// Rewrite writes a copy of the file to out, rebuilding only the pages that
// carry the identification and comment packets: every page after that header run is copied byte-for-byte
// except for a renumbered sequence_number and recomputed checksum. When
// SetComment has not been called and force is false, Rewrite copies the
// file verbatim instead, mirroring matroska.File.Rewrite's no-op save
// invariant.
//
// tagkit's rewrite assumes the comment packet's header run does not
// itself carry bytes belonging to a second logical stream multiplexed
// into the same pages (not expected for the single-stream files this
// driver targets). It does handle the one boundary case that is common in
// practice: the old comment packet's final page also carrying the start
// of the next packet. Those trailing bytes are preserved and re-laced
// immediately after the new comment bytes, with a Warning diagnostic
// noting it happened.
func (f *File) Rewrite(out io.Writer, force bool) *diag.Error {
	if !force && !f.commentDirty {
		if _, err := f.Stream.Seek(0, io.SeekStart); err != nil {
			return diag.Wrap(diag.Truncated, err, "ogg: seeking to start for verbatim copy")
		}
		if _, err := io.Copy(out, io.LimitReader(f.Stream, f.StreamSize)); err != nil {
			return diag.Wrap(diag.Truncated, err, "ogg: copying file verbatim")
		}
		return nil
	}
	return f.fullRewrite(out)
}

func (f *File) fullRewrite(out io.Writer) *diag.Error {
	it := oggpage.NewIterator(f.Stream, f.StreamSize)
	headerPages := make([]*oggpage.Page, 0, f.commentEndPage+1)
	page, err := it.CurrentPage()
	if err != nil {
		return err
	}
	headerPages = append(headerPages, page)
	for i := 0; i < f.commentEndPage; i++ {
		if cerr := diag.CheckPoint(f.Progress); cerr != nil {
			return cerr
		}
		next, nerr := it.NextPage()
		if nerr != nil {
			return nerr
		}
		if next == nil {
			return diag.New(diag.Truncated, "ogg: rewrite: fewer pages than expected before end of header run")
		}
		headerPages = append(headerPages, next)
	}

	var totalOldPayload int64
	for _, p := range headerPages {
		totalOldPayload += p.PayloadSize()
	}

	skipLen := int64(len(f.identBytes)) + f.oldCommentLen
	carryLen := totalOldPayload - skipLen
	if carryLen < 0 {
		return diag.New(diag.Invalid, "ogg: rewrite: header run shorter than its own identification and comment packets")
	}
	reread := oggpage.NewIterator(f.Stream, f.StreamSize)
	skipBuf := make([]byte, skipLen)
	if serr := reread.Read(skipBuf); serr != nil {
		return serr
	}
	var carryover []byte
	if carryLen > 0 {
		carryover = make([]byte, carryLen)
		if serr := reread.Read(carryover); serr != nil {
			return serr
		}
		f.Diag.Warn("ogg: rewrite", "comment packet's final page also carries %d bytes of a following packet; re-lacing them after the new comment bytes", carryLen)
	}

	newCommentBody := vorbiscomment.Encode(f.Comment)
	newCommentPacket := encodeCommentPacket(f.Codec, newCommentBody)

	payload := make([]byte, 0, len(f.identBytes)+len(newCommentPacket)+len(carryover))
	payload = append(payload, f.identBytes...)
	payload = append(payload, newCommentPacket...)
	payload = append(payload, carryover...)

	chunks := splitContinuationChunks(payload)
	first := headerPages[0]
	seq := first.SequenceNumber
	var newHeaderBytes []byte
	for i, chunk := range chunks {
		continues := i < len(chunks)-1
		var headerType uint8
		if i == 0 && first.First() {
			headerType |= oggpage.FlagFirst
		}
		if i > 0 {
			headerType |= oggpage.FlagContinued
		}
		p := &oggpage.Page{
			Version:         first.Version,
			HeaderType:      headerType,
			GranulePosition: first.GranulePosition,
			StreamSerial:    f.Serial,
			SequenceNumber:  seq,
			SegmentTable:    segmentTableForChunk(chunk, continues),
		}
		newHeaderBytes = append(newHeaderBytes, oggpage.Encode(p, chunk)...)
		seq++
	}
	if _, werr := out.Write(newHeaderBytes); werr != nil {
		return diag.Wrap(diag.Truncated, werr, "ogg: writing rebuilt header pages")
	}

	for {
		if cerr := diag.CheckPoint(f.Progress); cerr != nil {
			return cerr
		}
		next, nerr := it.NextPage()
		if nerr != nil {
			return nerr
		}
		if next == nil {
			break
		}
		buf := make([]byte, next.PayloadSize())
		if _, serr := f.Stream.Seek(next.Elem.DataOffset(), io.SeekStart); serr != nil {
			return diag.Wrap(diag.Truncated, serr, "ogg: seeking to tail page payload")
		}
		if _, rerr := io.ReadFull(f.Stream, buf); rerr != nil {
			return diag.Wrap(diag.Truncated, rerr, "ogg: reading tail page payload")
		}
		p := &oggpage.Page{
			Version:         next.Version,
			HeaderType:      next.HeaderType,
			GranulePosition: next.GranulePosition,
			StreamSerial:    next.StreamSerial,
			SequenceNumber:  seq,
			SegmentTable:    next.SegmentTable,
		}
		if _, werr := out.Write(oggpage.Encode(p, buf)); werr != nil {
			return diag.Wrap(diag.Truncated, werr, "ogg: writing tail page")
		}
		seq++
	}
	return nil
}

// splitContinuationChunks splits payload into page-sized runs. Every chunk
// but the last is exactly maxContinuationChunk bytes (a page that is
// entirely 255-valued lacing entries, continuing into the next page); the
// last chunk is always short enough that ordinary LaceSegments can
// terminate it in at most 255 segment-table entries, and is empty when
// the payload is an exact multiple of maxContinuationChunk.
func splitContinuationChunks(payload []byte) [][]byte {
	if len(payload) == 0 {
		return [][]byte{{}}
	}
	var chunks [][]byte
	offset := 0
	for offset < len(payload) {
		remaining := len(payload) - offset
		switch {
		case remaining > maxContinuationChunk:
			chunks = append(chunks, payload[offset:offset+maxContinuationChunk])
			offset += maxContinuationChunk
		case remaining == maxContinuationChunk:
			// An exact-multiple final run fills a whole page of 255-valued
			// entries, so the packet is terminated on one more page whose
			// segment table is a single zero entry.
			chunks = append(chunks, payload[offset:offset+maxContinuationChunk], []byte{})
			offset = len(payload)
		default:
			chunks = append(chunks, payload[offset:])
			offset = len(payload)
		}
	}
	return chunks
}

func segmentTableForChunk(chunk []byte, continues bool) []byte {
	if continues {
		table := make([]byte, 255)
		for i := range table {
			table[i] = 255
		}
		return table
	}
	return oggpage.LaceSegments(chunk)
}
