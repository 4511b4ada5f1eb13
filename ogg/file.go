package ogg

import (
	"bytes"
	"io"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/oggpage"
	"github.com/tagkit/tagkit/vorbiscomment"
)

// File is the Ogg container driver, mirroring matroska.File's lazy-open,
// explicit-parse-phase shape but over a flat page sequence instead of an
// element tree: Open only identifies the logical stream's codec, leaving
// comment-packet location and parsing to ParseTags.
//
// tagkit scopes this driver to files carrying exactly one logical bitstream
// (true of essentially all Vorbis/Opus/FLAC-in-Ogg audio files it targets);
// a multiplexed file is read as whichever logical stream owns the very
// first page.
type File struct {
	Stream     io.ReadSeeker
	StreamSize int64
	Diag       *diag.Diagnostics
	Progress   *diag.Progress

	Serial uint32
	Codec  Codec

	Vorbis *VorbisIdentHeader
	Opus   *OpusIdentHeader
	Flac   *FlacMappingHeader

	Comment *vorbiscomment.Comment

	HeaderStatus diag.ParsingStatus
	TagsStatus   diag.ParsingStatus

	commentDirty bool

	// commentStartPage/commentEndPage bound the run of pages that carry any
	// byte of the identification and comment packets together, recorded by
	// ParseTags so Rewrite knows which pages to rebuild.
	commentStartPage int
	commentEndPage   int
	identBytes       []byte
	oldCommentLen    int64
}

// Open reads the first page of stream and identifies its codec from the
// identification packet. It does not locate or parse the comment packet;
// call ParseTags for that.
func Open(stream io.ReadSeeker, streamSize int64) (*File, *diag.Error) {
	f := &File{
		Stream:     stream,
		StreamSize: streamSize,
		Diag:       diag.NewDiagnostics(),
	}
	it := oggpage.NewIterator(stream, streamSize)
	first, err := it.CurrentPage()
	if err != nil {
		f.HeaderStatus = diag.CriticalFailure
		return nil, err
	}
	if !first.First() {
		f.Diag.Warn("ogg: open", "first page at offset %d does not carry the FlagFirst bit", first.Elem.StartOffset)
	}
	f.Serial = first.StreamSerial

	_, identData, err := readLeadingPackets(stream, streamSize, 1)
	if err != nil {
		f.HeaderStatus = diag.CriticalFailure
		return nil, err
	}
	f.Codec = identifyCodec(identData[0])
	switch f.Codec {
	case CodecVorbis:
		f.Vorbis, err = parseVorbisIdent(identData[0])
	case CodecOpus:
		f.Opus, err = parseOpusIdent(identData[0])
	case CodecFlac:
		f.Flac, err = parseFlacMapping(identData[0])
	default:
		f.HeaderStatus = diag.NotSupported
		f.Diag.Warn("ogg: open", "unrecognized identification packet, first bytes %x", firstBytes(identData[0], 8))
		return f, nil
	}
	if err != nil {
		f.HeaderStatus = diag.CriticalFailure
		return nil, err
	}
	f.HeaderStatus = diag.StatusOk
	return f, nil
}

func firstBytes(b []byte, n int) []byte {
	if len(b) < n {
		n = len(b)
	}
	return b[:n]
}

// ParseTags locates and decodes the Vorbis comment packet (the second
// packet of the logical stream for all three codecs tagkit recognizes) and
// records the page range it occupies, for Rewrite's use.
func (f *File) ParseTags() *diag.Error {
	if f.Codec == CodecUnknown {
		f.TagsStatus = diag.NotSupported
		return nil
	}
	sizes, packets, endPage, err := readLeadingPacketsWithPages(f.Stream, f.StreamSize, 2)
	if err != nil {
		f.TagsStatus = diag.CriticalFailure
		return err
	}
	f.identBytes = packets[0]
	f.oldCommentLen = sizes[1]
	f.commentStartPage = 0
	f.commentEndPage = endPage

	comment, cerr := parseCommentPacket(f.Codec, packets[1])
	if cerr != nil {
		f.TagsStatus = diag.CriticalFailure
		return cerr
	}
	f.Comment = comment
	f.TagsStatus = diag.StatusOk
	return nil
}

// SetComment replaces the parsed comment metadata, marking it dirty so
// Rewrite knows to rebuild the comment-bearing pages instead of copying the
// file verbatim.
func (f *File) SetComment(c *vorbiscomment.Comment) {
	f.Comment = c
	f.commentDirty = true
}

// parseCommentPacket strips the codec-specific magic prefix from a comment
// packet's bytes and decodes the remainder with vorbiscomment.Parse. Vorbis
// wraps its comment packet in a packet-type byte and "vorbis" magic (plus a
// trailing framing bit Parse doesn't need to consume); Opus prefixes
// "OpusTags"; FLAC-in-Ogg wraps it in a native metadata-block header (one
// flag/type byte plus a 24-bit length).
func parseCommentPacket(codec Codec, data []byte) (*vorbiscomment.Comment, *diag.Error) {
	switch codec {
	case CodecVorbis:
		if len(data) < 7 || data[0] != 3 || string(data[1:7]) != "vorbis" {
			return nil, diag.New(diag.Invalid, "ogg: malformed Vorbis comment packet header")
		}
		return vorbiscomment.Parse(bytes.NewReader(data[7:]))
	case CodecOpus:
		if len(data) < 8 || string(data[0:8]) != "OpusTags" {
			return nil, diag.New(diag.Invalid, "ogg: malformed Opus comment packet header")
		}
		return vorbiscomment.Parse(bytes.NewReader(data[8:]))
	case CodecFlac:
		if len(data) < 4 {
			return nil, diag.New(diag.Invalid, "ogg: malformed FLAC comment packet header")
		}
		return vorbiscomment.Parse(bytes.NewReader(data[4:]))
	default:
		return nil, diag.New(diag.NotImplemented, "ogg: unknown codec, cannot parse comment packet")
	}
}

// encodeCommentPacket re-wraps an encoded vorbiscomment payload in the
// codec-appropriate magic prefix (and, for Vorbis, the trailing framing
// bit).
func encodeCommentPacket(codec Codec, body []byte) []byte {
	switch codec {
	case CodecVorbis:
		out := make([]byte, 0, 7+len(body)+1)
		out = append(out, 3)
		out = append(out, "vorbis"...)
		out = append(out, body...)
		out = append(out, 1) // framing bit
		return out
	case CodecOpus:
		out := make([]byte, 0, 8+len(body))
		out = append(out, "OpusTags"...)
		out = append(out, body...)
		return out
	case CodecFlac:
		out := make([]byte, 0, 4+len(body))
		// last-metadata-block flag left clear: more FLAC metadata blocks
		// typically follow the comment block, matching how the original
		// file was laid out (header_packet_count > 1).
		out = append(out, 4) // BLOCK_TYPE_VORBIS_COMMENT, flag bit clear
		n := len(body)
		out = append(out, byte(n>>16), byte(n>>8), byte(n))
		out = append(out, body...)
		return out
	default:
		return body
	}
}
