package id3v2

import (
	"io"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/tagfield"
	"github.com/tagkit/tagkit/tagvalue"
)

// textEncodingByte values, as the first byte of every ID3v2 text frame's
// payload.
const (
	encLatin1  = 0
	encUtf16   = 1 // UTF-16 with BOM
	encUtf16BE = 2 // v2.4 only
	encUtf8    = 3 // v2.4 only
)

func textEncodingFromByte(b byte) tagvalue.Encoding {
	switch b {
	case encLatin1:
		return tagvalue.Latin1
	case encUtf16BE:
		return tagvalue.Utf16BE
	case encUtf8:
		return tagvalue.Utf8
	default:
		return tagvalue.Utf16LE
	}
}

func textEncodingToByte(enc tagvalue.Encoding, v Version) byte {
	switch enc {
	case tagvalue.Latin1:
		return encLatin1
	case tagvalue.Utf16BE:
		if v == V4 {
			return encUtf16BE
		}
		return encUtf16
	case tagvalue.Utf8:
		if v == V4 {
			return encUtf8
		}
		return encUtf16
	default:
		return encUtf16
	}
}

// Tag is a fully parsed ID3v2 tag: its declared version plus every frame,
// ordered by FrameComparer when written back out.
type Tag struct {
	Version  Version
	Revision byte
	Fields   *tagfield.FieldMap[FrameID]
}

// SetKnownValue writes value to the frame field's dialect-independent
// KnownField, routing through Mapper so a caller never has to spell out a
// raw FrameID.
func (t *Tag) SetKnownValue(field tagfield.KnownField, value tagvalue.Value) *diag.Error {
	return tagfield.SetKnownValue(t.Fields, Mapper{}, field, value)
}

// ParseTag reads a 10-byte ID3v2 header followed by its frames from the
// start of stream. Extended headers and unsynchronisation are not
// supported;
// encountering one returns NotImplemented rather than silently
// misinterpreting the frame data.
func ParseTag(stream io.Reader) (*Tag, *diag.Error) {
	var hdr [10]byte
	if _, err := io.ReadFull(stream, hdr[:]); err != nil {
		return nil, diag.Wrap(diag.Truncated, err, "reading ID3v2 header")
	}
	if string(hdr[0:3]) != "ID3" {
		return nil, diag.New(diag.Invalid, "missing ID3 file identifier")
	}
	major := hdr[3]
	revision := hdr[4]
	flags := hdr[5]
	if flags&0x40 != 0 {
		return nil, diag.New(diag.NotImplemented, "ID3v2 extended header is not supported")
	}
	if flags&0x80 != 0 {
		return nil, diag.New(diag.NotImplemented, "ID3v2 unsynchronisation is not supported")
	}
	size := SynchSafeToSize(beUint32(hdr[6:10]))

	var v Version
	switch major {
	case 2:
		v = V2
	case 3:
		v = V3
	case 4:
		v = V4
	default:
		return nil, diag.New(diag.VersionNotSupported, "id3v2 major version %d", major)
	}

	tag := &Tag{Version: v, Revision: revision, Fields: NewFieldMap()}
	remaining := int64(size)
	idWidth := 4
	frameHeaderSize := int64(10)
	if v == V2 {
		idWidth = 3
		frameHeaderSize = 6
	}

	for remaining > frameHeaderSize {
		idBuf := make([]byte, idWidth)
		if _, err := io.ReadFull(stream, idBuf); err != nil {
			return nil, diag.Wrap(diag.Truncated, err, "reading frame id")
		}
		if idBuf[0] == 0 {
			break // padding
		}
		var sizeBuf [4]byte
		sizeWidth := 4
		if v == V2 {
			sizeWidth = 3
		}
		if _, err := io.ReadFull(stream, sizeBuf[:sizeWidth]); err != nil {
			return nil, diag.Wrap(diag.Truncated, err, "reading frame size")
		}
		var rawSize uint32
		for i := 0; i < sizeWidth; i++ {
			rawSize = rawSize<<8 | uint32(sizeBuf[i])
		}
		frameSize, serr := ParseFrameHeaderSize(v, rawSize)
		if serr != nil {
			return nil, serr
		}
		if v != V2 {
			var flagBuf [2]byte
			if _, err := io.ReadFull(stream, flagBuf[:]); err != nil {
				return nil, diag.Wrap(diag.Truncated, err, "reading frame flags")
			}
		}
		remaining -= frameHeaderSize

		payload := make([]byte, frameSize)
		if frameSize > 0 {
			if _, err := io.ReadFull(stream, payload); err != nil {
				return nil, diag.Wrap(diag.Truncated, err, "reading frame payload")
			}
		}
		remaining -= int64(frameSize)

		var id FrameID
		if idWidth == 3 {
			id = NewFrameID3(idBuf[0], idBuf[1], idBuf[2])
		} else {
			id = NewFrameID4(idBuf[0], idBuf[1], idBuf[2], idBuf[3])
		}

		value := decodeFramePayload(id, payload)
		tag.Fields.Add(id, value)
	}

	return tag, nil
}

// decodeFramePayload interprets a frame's raw bytes as a TagValue: text
// frames (id starting with 'T', other than TXXX) decode their leading
// encoding byte and the remainder as declared-encoding Text; everything
// else is kept as raw Binary so unrecognized or binary frames (APIC,
// UFID, ...) survive an untouched round trip.
func decodeFramePayload(id FrameID, payload []byte) tagvalue.Value {
	if isTextFrame(id) && len(payload) >= 1 {
		enc := textEncodingFromByte(payload[0])
		return tagvalue.NewTextRaw(payload[1:], enc)
	}
	return tagvalue.NewBinary(payload)
}

// encodeFramePayload is decodeFramePayload's inverse.
func encodeFramePayload(id FrameID, v tagvalue.Value, version Version) ([]byte, *diag.Error) {
	if isTextFrame(id) {
		text := v
		if text.Kind != tagvalue.KindText {
			converted, err := v.AsText(tagvalue.Utf8)
			if err != nil {
				return nil, err
			}
			text = converted
		}
		encByte := textEncodingToByte(text.TextEncoding, version)
		if want := textEncodingFromByte(encByte); want != text.TextEncoding {
			// This version has no byte for the text's encoding; re-encode
			// it into the one the written byte declares.
			reencoded, err := text.AsText(want)
			if err != nil {
				return nil, err
			}
			text = reencoded
		}
		out := make([]byte, 0, len(text.Text)+1)
		out = append(out, encByte)
		out = append(out, text.Text...)
		return out, nil
	}
	bin, err := v.AsBinary()
	if err != nil {
		return nil, err
	}
	return bin.Binary, nil
}

// WriteTag serializes tag's fields (in FrameComparer order) into a
// complete ID3v2 tag, choosing the frame size encoding and id width that
// match tag.Version.
func WriteTag(w io.Writer, tag *Tag) *diag.Error {
	idWidth := 4
	if tag.Version == V2 {
		idWidth = 3
	}

	var body []byte
	for _, f := range tag.Fields.SortedForWrite() {
		payload, err := encodeFramePayload(f.ID, f.Value, tag.Version)
		if err != nil {
			return err
		}
		idBytes := frameIDBytes(f.ID, idWidth)
		sizeWidth := 4
		if tag.Version == V2 {
			sizeWidth = 3
		}
		encodedSize, serr := EncodeFrameHeaderSize(tag.Version, uint32(len(payload)))
		if serr != nil {
			return serr
		}
		body = append(body, idBytes...)
		body = appendBESize(body, encodedSize, sizeWidth)
		if tag.Version != V2 {
			body = append(body, 0, 0) // frame flags
		}
		body = append(body, payload...)
	}

	var hdr [10]byte
	copy(hdr[0:3], "ID3")
	hdr[3] = byte(tag.Version)
	hdr[4] = tag.Revision
	hdr[5] = 0
	beSize := SizeToSynchSafe(uint32(len(body)))
	hdr[6] = byte(beSize >> 24)
	hdr[7] = byte(beSize >> 16)
	hdr[8] = byte(beSize >> 8)
	hdr[9] = byte(beSize)

	if _, err := w.Write(hdr[:]); err != nil {
		return diag.Wrap(diag.Truncated, err, "writing ID3v2 header")
	}
	if _, err := w.Write(body); err != nil {
		return diag.Wrap(diag.Truncated, err, "writing ID3v2 frames")
	}
	return nil
}

func frameIDBytes(id FrameID, width int) []byte {
	buf := make([]byte, width)
	if width == 3 {
		buf[0] = byte(id >> 16)
		buf[1] = byte(id >> 8)
		buf[2] = byte(id)
	} else {
		buf[0] = byte(id >> 24)
		buf[1] = byte(id >> 16)
		buf[2] = byte(id >> 8)
		buf[3] = byte(id)
	}
	return buf
}

func appendBESize(buf []byte, size uint32, width int) []byte {
	for i := width - 1; i >= 0; i-- {
		buf = append(buf, byte(size>>(8*uint(i))))
	}
	return buf
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
