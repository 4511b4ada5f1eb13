package matroska

import (
	"math"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/ebml"
	"github.com/tagkit/tagkit/tagfield"
	"github.com/tagkit/tagkit/tagvalue"
)

// encodeElem builds [id][size][data] for a single element using the
// shortest valid EBML size encoding, mirroring ebml's unexported
// encodeChild.
func encodeElem(id uint32, data []byte) []byte {
	out := append([]byte{}, ebml.EncodeID(id)...)
	sizeBuf, _ := ebml.EncodeSize(uint64(len(data)), 0)
	out = append(out, sizeBuf...)
	out = append(out, data...)
	return out
}

// EncodeTags serializes tags as a full Tags element, in the order given
// (callers sort beforehand if a stable order matters).
func EncodeTags(tags []*Tag) []byte {
	var body []byte
	for _, tag := range tags {
		body = append(body, encodeElem(ebml.IDTag, encodeTagBlock(tag))...)
	}
	return encodeElem(ebml.IDTags, body)
}

func encodeTagBlock(tag *Tag) []byte {
	var body []byte
	body = append(body, encodeElem(ebml.IDTargets, encodeTargets(tag.Target))...)
	for _, f := range tag.Fields.SortedForWrite() {
		body = append(body, encodeElem(ebml.IDSimpleTag, encodeSimpleTag(f))...)
	}
	return body
}

func encodeTargets(t tagfield.TagTarget) []byte {
	var body []byte
	if t.LevelName != "" {
		body = append(body, encodeElem(ebml.IDTargetType, ebml.EncodeString(t.LevelName))...)
	}
	if t.Level != 0 {
		body = append(body, encodeElem(ebml.IDTargetValue, ebml.EncodeUInt(t.Level))...)
	}
	for _, uid := range t.Tracks {
		body = append(body, encodeElem(ebml.IDTagTrackUID, ebml.EncodeUInt(uid))...)
	}
	for _, uid := range t.Editions {
		body = append(body, encodeElem(ebml.IDTagEditionUID, ebml.EncodeUInt(uid))...)
	}
	for _, uid := range t.Chapters {
		body = append(body, encodeElem(ebml.IDTagChapterUID, ebml.EncodeUInt(uid))...)
	}
	for _, uid := range t.Attachments {
		body = append(body, encodeElem(ebml.IDTagAttachmentUID, ebml.EncodeUInt(uid))...)
	}
	return body
}

func encodeSimpleTag(f *tagfield.TagField[string]) []byte {
	var body []byte
	body = append(body, encodeElem(ebml.IDTagName, ebml.EncodeString(f.ID))...)
	if !f.IsDefault {
		body = append(body, encodeElem(ebml.IDTagDefault, ebml.EncodeUInt(0))...)
	}
	if f.Value.Kind == tagvalue.KindBinary {
		body = append(body, encodeElem(ebml.IDTagBinary, f.Value.Binary)...)
	} else if text, terr := f.Value.AsText(tagvalue.Utf8); terr == nil {
		body = append(body, encodeElem(ebml.IDTagString, text.Text)...)
	}
	for _, nested := range f.Nested {
		body = append(body, encodeElem(ebml.IDSimpleTag, encodeSimpleTag(nested))...)
	}
	return body
}

// EncodeAttachments serializes attachments as a full Attachments element.
// Attachments marked Ignored are skipped: they were parsed but the caller
// chose to drop them on save.
func EncodeAttachments(attachments []*Attachment) ([]byte, *diag.Error) {
	var body []byte
	for _, a := range attachments {
		if a.Ignored {
			continue
		}
		data, err := a.Data.Bytes()
		if err != nil {
			return nil, err
		}
		var entry []byte
		if a.Description != "" {
			entry = append(entry, encodeElem(ebml.IDFileDescription, ebml.EncodeString(a.Description))...)
		}
		entry = append(entry, encodeElem(ebml.IDFileName, ebml.EncodeString(a.Name))...)
		entry = append(entry, encodeElem(ebml.IDFileMimeType, ebml.EncodeString(a.MimeType))...)
		entry = append(entry, encodeElem(ebml.IDFileData, data)...)
		entry = append(entry, encodeElem(ebml.IDFileUID, ebml.EncodeUInt(a.UID))...)
		body = append(body, encodeElem(ebml.IDAttachedFile, entry)...)
	}
	return encodeElem(ebml.IDAttachments, body), nil
}

// EncodeSegmentInfo serializes info as a full SegmentInfo element.
func EncodeSegmentInfo(info *SegmentInfo) []byte {
	var body []byte
	if len(info.UID) > 0 {
		body = append(body, encodeElem(ebml.IDSegmentUID, info.UID)...)
	}
	if info.Filename != "" {
		body = append(body, encodeElem(ebml.IDSegmentFilename, ebml.EncodeString(info.Filename))...)
	}
	body = append(body, encodeElem(ebml.IDTimestampScale, ebml.EncodeUInt(info.TimestampScale))...)
	if info.Duration != 0 {
		body = append(body, encodeElem(ebml.IDDuration, encodeFloat64(info.Duration))...)
	}
	if info.Title != "" {
		body = append(body, encodeElem(ebml.IDTitle, ebml.EncodeString(info.Title))...)
	}
	if info.MuxingApp != "" {
		body = append(body, encodeElem(ebml.IDMuxingApp, ebml.EncodeString(info.MuxingApp))...)
	}
	if info.WritingApp != "" {
		body = append(body, encodeElem(ebml.IDWritingApp, ebml.EncodeString(info.WritingApp))...)
	}
	return encodeElem(ebml.IDSegmentInfo, body)
}

func encodeFloat64(f float64) []byte {
	bits := math.Float64bits(f)
	buf := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		buf[i] = byte(bits)
		bits >>= 8
	}
	return buf
}
