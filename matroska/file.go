// Package matroska implements the Matroska/WebM container driver: parsing
// SegmentInfo/Tracks/Tags/Chapters/Attachments/Cues out of the element
// tree built by tagkit/ebml, index validation, and the two-phase rewrite
// engine that keeps SeekHead/Cues consistent after a tag edit.
//
// File exposes one accessor per top-level segment concept
// (SegmentInfo/Tracks/Tags/Chapters/Attachments), each backed by a lazily
// walked element tree plus an explicit Diagnostics log rather than an
// eager single-pass parse.
package matroska

import (
	"io"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/ebml"
	"github.com/tagkit/tagkit/element"
	"github.com/tagkit/tagkit/tagfield"
)

// fullParseSize is the file size beyond which File.ParseContainer stops
// scanning top-level elements once Tracks and Tags have both been located
//.
const fullParseSize = 128 << 20 // 128 MiB

// File is an open Matroska/WebM container: the EBML header and Segment
// elements, plus whichever of SegmentInfo/Tracks/Tags/Chapters/Attachments
// have been requested so far. Each collection is gated by its own
// ParsingStatus so repeated calls to the matching Parse* method are
// idempotent.
type File struct {
	Stream     io.ReadSeeker
	StreamSize int64
	Diag       *diag.Diagnostics
	Progress   *diag.Progress

	Header      *ebml.Header
	Dialect     ebml.Dialect
	HeaderElem  *element.Element
	SegmentElem *element.Element

	SegmentInfo *SegmentInfo
	SeekHead    *ebml.SeekHead
	Cues        []ebml.CuePoint

	Tracks      []*Track
	Tags        []*Tag
	Chapters    []*Chapter
	Attachments []*Attachment

	HeaderStatus      diag.ParsingStatus
	TracksStatus      diag.ParsingStatus
	TagsStatus        diag.ParsingStatus
	ChaptersStatus    diag.ParsingStatus
	AttachmentsStatus diag.ParsingStatus

	// elems caches the top-level element for each of Tracks/Tags/Chapters/
	// Attachments/Cues located during ParseContainer, so the later lazy
	// Parse* calls don't have to re-walk the segment's children.
	elems map[uint32]*element.Element

	forceFullParse bool

	// tagsDirty/attachmentsDirty track whether SetTags/SetAttachments have
	// been called since Open, so Rewrite can fall back to a verbatim copy
	// when nothing changed.
	tagsDirty        bool
	attachmentsDirty bool
}

// Open constructs a File over stream (size bytes long) and eagerly parses
// the EBML header and Segment element header — the cheap, always-needed
// prerequisite for every other operation. It does not yet parse
// SegmentInfo or any of Tracks/Tags/Chapters/Attachments; call
// ParseContainer (and then the individual Parse* methods) for those.
func Open(stream io.ReadSeeker, streamSize int64) (*File, *diag.Error) {
	header, headerElem, err := ebml.ParseHeader(stream, streamSize)
	if err != nil {
		return nil, err
	}
	segment, serr := ebml.ParseSegment(stream, streamSize, headerElem, header)
	if serr != nil {
		return nil, serr
	}
	dialect, derr := ebml.NewDialect(header.MaxIDLength, header.MaxSizeLength)
	if derr != nil {
		return nil, derr
	}
	return &File{
		Stream:      stream,
		StreamSize:  streamSize,
		Diag:        diag.NewDiagnostics(),
		Header:      header,
		Dialect:     dialect,
		HeaderElem:  headerElem,
		SegmentElem: segment,
		elems:       map[uint32]*element.Element{},
	}, nil
}

// ForceFullParse requests that ParseContainer keep scanning top-level
// elements past the point it would otherwise stop at a Cluster, matching
// the ForceFullParse configuration flag.
func (f *File) ForceFullParse(v bool) { f.forceFullParse = v }

// ParseContainer walks the Segment's top-level children: SeekHead, SegmentInfo, and the locations (not yet the contents) of
// Tracks/Tags/Chapters/Attachments/Cues. It stops at the first Cluster
// once both a Tracks and a Tags element have been seen, unless
// ForceFullParse is set or the file is small enough that a full walk is
// cheap regardless (fullParseSize).
func (f *File) ParseContainer() *diag.Error {
	if f.HeaderStatus != diag.NotParsedYet {
		return nil
	}
	if err := diag.CheckPoint(f.Progress); err != nil {
		f.HeaderStatus = diag.CriticalFailure
		return err
	}

	child, cerr := f.SegmentElem.FirstChild()
	if cerr != nil {
		f.HeaderStatus = diag.CriticalFailure
		return cerr
	}

	sawTracks, sawTags := false, false
	for child != nil {
		if err := diag.CheckPoint(f.Progress); err != nil {
			f.HeaderStatus = diag.CriticalFailure
			return err
		}
		switch uint32(child.ID) {
		case ebml.IDSeekHead:
			sh, serr := ebml.ParseSeekHead(f.Stream, child)
			if serr != nil {
				f.Diag.AddError(diag.Warning, "matroska: parsing SeekHead", serr)
				break
			}
			if f.SeekHead == nil {
				f.SeekHead = sh
			} else {
				f.SeekHead.Entries = append(f.SeekHead.Entries, sh.Entries...)
			}
			for _, dup := range f.SeekHead.DuplicateElementIDs() {
				f.Diag.Warn("matroska: SeekHead", "duplicate entry for element 0x%X", dup)
			}
		case ebml.IDSegmentInfo:
			info, ierr := parseSegmentInfo(f.Stream, child)
			if ierr != nil {
				f.Diag.AddError(diag.Warning, "matroska: parsing SegmentInfo", ierr)
				break
			}
			f.SegmentInfo = info
		case ebml.IDTracks:
			f.elems[ebml.IDTracks] = child
			sawTracks = true
		case ebml.IDTags:
			f.elems[ebml.IDTags] = child
			sawTags = true
		case ebml.IDChapters:
			f.elems[ebml.IDChapters] = child
		case ebml.IDAttachments:
			f.elems[ebml.IDAttachments] = child
		case ebml.IDCues:
			f.elems[ebml.IDCues] = child
			cues, cuerr := ebml.ParseCues(f.Stream, child)
			if cuerr != nil {
				f.Diag.AddError(diag.Warning, "matroska: parsing Cues", cuerr)
				break
			}
			f.Cues = cues
		case ebml.IDCluster:
			if sawTracks && sawTags && !f.forceFullParse && f.StreamSize > fullParseSize {
				f.HeaderStatus = diag.StatusOk
				return nil
			}
		}
		next, nerr := child.NextSibling()
		if nerr != nil {
			f.Diag.AddError(diag.Warning, "matroska: walking segment children", nerr)
			break
		}
		child = next
	}
	f.HeaderStatus = diag.StatusOk
	return nil
}

// ParseTracks populates Tracks from the Tracks element located by
// ParseContainer, idempotently.
func (f *File) ParseTracks() *diag.Error {
	if f.TracksStatus != diag.NotParsedYet {
		return nil
	}
	if err := f.ParseContainer(); err != nil {
		f.TracksStatus = diag.CriticalFailure
		return err
	}
	elem, ok := f.elems[ebml.IDTracks]
	if !ok {
		f.TracksStatus = diag.NotSupported
		return nil
	}
	children, err := elem.Children()
	if err != nil {
		f.TracksStatus = diag.CriticalFailure
		return err
	}
	for _, c := range children {
		if uint32(c.ID) != ebml.IDTrackEntry {
			continue
		}
		t, terr := parseTrackEntry(f.Stream, c)
		if terr != nil {
			f.Diag.AddError(diag.Warning, "matroska: parsing TrackEntry", terr)
			continue
		}
		f.Tracks = append(f.Tracks, t)
	}
	f.TracksStatus = diag.StatusOk
	return nil
}

// ParseTags populates Tags from the Tags element located by
// ParseContainer, idempotently.
func (f *File) ParseTags() *diag.Error {
	if f.TagsStatus != diag.NotParsedYet {
		return nil
	}
	if err := f.ParseContainer(); err != nil {
		f.TagsStatus = diag.CriticalFailure
		return err
	}
	elem, ok := f.elems[ebml.IDTags]
	if !ok {
		f.TagsStatus = diag.NotSupported
		return nil
	}
	children, err := elem.Children()
	if err != nil {
		f.TagsStatus = diag.CriticalFailure
		return err
	}
	for _, c := range children {
		if uint32(c.ID) != ebml.IDTag {
			continue
		}
		tag, terr := parseTagBlock(f.Stream, c)
		if terr != nil {
			f.Diag.AddError(diag.Warning, "matroska: parsing Tag", terr)
			continue
		}
		f.Tags = append(f.Tags, tag)
	}
	f.TagsStatus = diag.StatusOk
	return nil
}

// ParseChapters populates Chapters from the Chapters element located by
// ParseContainer, idempotently.
func (f *File) ParseChapters() *diag.Error {
	if f.ChaptersStatus != diag.NotParsedYet {
		return nil
	}
	if err := f.ParseContainer(); err != nil {
		f.ChaptersStatus = diag.CriticalFailure
		return err
	}
	elem, ok := f.elems[ebml.IDChapters]
	if !ok {
		f.ChaptersStatus = diag.NotSupported
		return nil
	}
	children, err := elem.Children()
	if err != nil {
		f.ChaptersStatus = diag.CriticalFailure
		return err
	}
	for _, c := range children {
		if uint32(c.ID) != ebml.IDEditionEntry {
			continue
		}
		edChildren, eerr := c.Children()
		if eerr != nil {
			f.Diag.AddError(diag.Warning, "matroska: parsing EditionEntry", eerr)
			continue
		}
		for _, ec := range edChildren {
			if uint32(ec.ID) != ebml.IDChapterAtom {
				continue
			}
			ch, cherr := parseChapterAtom(f.Stream, ec)
			if cherr != nil {
				f.Diag.AddError(diag.Warning, "matroska: parsing ChapterAtom", cherr)
				continue
			}
			f.Chapters = append(f.Chapters, ch)
		}
	}
	f.ChaptersStatus = diag.StatusOk
	return nil
}

// ParseAttachments populates Attachments from the Attachments element
// located by ParseContainer, idempotently. Attachment data is kept lazy
// (a DataBlock, not a slurped buffer); see attachment.go.
func (f *File) ParseAttachments() *diag.Error {
	if f.AttachmentsStatus != diag.NotParsedYet {
		return nil
	}
	if err := f.ParseContainer(); err != nil {
		f.AttachmentsStatus = diag.CriticalFailure
		return err
	}
	elem, ok := f.elems[ebml.IDAttachments]
	if !ok {
		f.AttachmentsStatus = diag.NotSupported
		return nil
	}
	children, err := elem.Children()
	if err != nil {
		f.AttachmentsStatus = diag.CriticalFailure
		return err
	}
	provider := f.streamProvider()
	for _, c := range children {
		if uint32(c.ID) != ebml.IDAttachedFile {
			continue
		}
		a, aerr := parseAttachedFile(f.Stream, c, provider)
		if aerr != nil {
			f.Diag.AddError(diag.Warning, "matroska: parsing AttachedFile", aerr)
			continue
		}
		f.Attachments = append(f.Attachments, a)
	}
	f.AttachmentsStatus = diag.StatusOk
	return nil
}

func parseSegmentInfo(stream io.ReadSeeker, e *element.Element) (*SegmentInfo, *diag.Error) {
	info := &SegmentInfo{TimestampScale: 1000000}
	children, err := e.Children()
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		data, rerr := ebml.ReadData(stream, c)
		if rerr != nil {
			return nil, diag.Wrap(diag.Truncated, rerr, "reading SegmentInfo child 0x%X", uint32(c.ID))
		}
		switch uint32(c.ID) {
		case ebml.IDSegmentUID:
			info.UID = data
		case ebml.IDSegmentFilename:
			info.Filename = ebml.String(data)
		case ebml.IDTimestampScale:
			info.TimestampScale = ebml.UInt(data)
		case ebml.IDDuration:
			info.Duration = ebml.Float(data)
		case ebml.IDTitle:
			info.Title = ebml.String(data)
		case ebml.IDMuxingApp:
			info.MuxingApp = ebml.String(data)
		case ebml.IDWritingApp:
			info.WritingApp = ebml.String(data)
		}
	}
	return info, nil
}

func parseTrackEntry(stream io.ReadSeeker, e *element.Element) (*Track, *diag.Error) {
	t := &Track{}
	children, err := e.Children()
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		data, rerr := ebml.ReadData(stream, c)
		if rerr != nil {
			return nil, diag.Wrap(diag.Truncated, rerr, "reading TrackEntry child 0x%X", uint32(c.ID))
		}
		switch uint32(c.ID) {
		case ebml.IDTrackNum:
			t.Number = ebml.UInt(data)
		case ebml.IDTrackUID:
			t.UID = ebml.UInt(data)
		case ebml.IDTrackType:
			t.Type = ebml.UInt(data)
		case ebml.IDTrackName:
			t.Name = ebml.String(data)
		case ebml.IDLanguage:
			t.Language = ebml.String(data)
		case ebml.IDCodecID:
			t.CodecID = ebml.String(data)
		}
	}
	return t, nil
}

func parseTagBlock(stream io.ReadSeeker, e *element.Element) (*Tag, *diag.Error) {
	tag := NewTag(tagfield.TagTarget{})
	children, err := e.Children()
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		switch uint32(c.ID) {
		case ebml.IDTargets:
			target, terr := parseTargets(stream, c)
			if terr != nil {
				return nil, terr
			}
			tag.Target = target
		case ebml.IDSimpleTag:
			if serr := parseSimpleTagInto(stream, c, tag.Fields); serr != nil {
				return nil, serr
			}
		}
	}
	return tag, nil
}

func parseTargets(stream io.ReadSeeker, e *element.Element) (tagfield.TagTarget, *diag.Error) {
	var target tagfield.TagTarget
	children, err := e.Children()
	if err != nil {
		return target, err
	}
	var typeName string
	for _, c := range children {
		data, rerr := ebml.ReadData(stream, c)
		if rerr != nil {
			return target, diag.Wrap(diag.Truncated, rerr, "reading Targets child 0x%X", uint32(c.ID))
		}
		switch uint32(c.ID) {
		case ebml.IDTargetType:
			typeName = ebml.String(data)
		case ebml.IDTargetValue:
			target.Level = ebml.UInt(data)
		case ebml.IDTagTrackUID:
			target.Tracks = append(target.Tracks, ebml.UInt(data))
		case ebml.IDTagEditionUID:
			target.Editions = append(target.Editions, ebml.UInt(data))
		case ebml.IDTagChapterUID:
			target.Chapters = append(target.Chapters, ebml.UInt(data))
		case ebml.IDTagAttachmentUID:
			target.Attachments = append(target.Attachments, ebml.UInt(data))
		}
	}
	if typeName != "" {
		target.LevelName = typeName
		if lvl, ok := targetTypeToLevel[typeName]; ok {
			target.Level = lvl
		}
	} else if target.Level != 0 {
		target.LevelName = levelName(target.Level)
	}
	return target, nil
}

// parseSimpleTagInto decodes a (possibly nested) SimpleTag element into
// fields, keyed by its TagName string.
// A nested SimpleTag is decoded the same way and kept, recursively, in its
// parent field's Nested slice.
func parseSimpleTagInto(stream io.ReadSeeker, e *element.Element, fields *tagfield.FieldMap[string]) *diag.Error {
	field, err := parseSimpleTag(stream, e)
	if err != nil {
		return err
	}
	f := fields.Add(field.ID, field.Value)
	f.Nested = field.Nested
	return nil
}

func parseSimpleTag(stream io.ReadSeeker, e *element.Element) (*tagfield.TagField[string], *diag.Error) {
	f := &tagfield.TagField[string]{}
	var isDefault uint64 = 1
	children, err := e.Children()
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		switch uint32(c.ID) {
		case ebml.IDTagName:
			data, rerr := ebml.ReadData(stream, c)
			if rerr != nil {
				return nil, diag.Wrap(diag.Truncated, rerr, "reading TagName")
			}
			f.ID = ebml.String(data)
		case ebml.IDTagLanguage:
			// informational only; not modeled as a separate field today
		case ebml.IDTagDefault:
			data, rerr := ebml.ReadData(stream, c)
			if rerr != nil {
				return nil, diag.Wrap(diag.Truncated, rerr, "reading TagDefault")
			}
			isDefault = ebml.UInt(data)
		case ebml.IDTagString:
			data, rerr := ebml.ReadData(stream, c)
			if rerr != nil {
				return nil, diag.Wrap(diag.Truncated, rerr, "reading TagString")
			}
			f.Value = textValue(ebml.String(data))
		case ebml.IDTagBinary:
			data, rerr := ebml.ReadData(stream, c)
			if rerr != nil {
				return nil, diag.Wrap(diag.Truncated, rerr, "reading TagBinary")
			}
			f.Value = binaryValue(data)
		case ebml.IDSimpleTag:
			nested, nerr := parseSimpleTag(stream, c)
			if nerr != nil {
				return nil, nerr
			}
			f.Nested = append(f.Nested, nested)
		}
	}
	f.IsDefault = isDefault != 0
	return f, nil
}

func parseChapterAtom(stream io.ReadSeeker, e *element.Element) (*Chapter, *diag.Error) {
	ch := &Chapter{Enabled: true}
	children, err := e.Children()
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		switch uint32(c.ID) {
		case ebml.IDChapterUID:
			data, rerr := ebml.ReadData(stream, c)
			if rerr != nil {
				return nil, diag.Wrap(diag.Truncated, rerr, "reading ChapterUID")
			}
			ch.UID = ebml.UInt(data)
		case ebml.IDChapterTimeStart:
			data, rerr := ebml.ReadData(stream, c)
			if rerr != nil {
				return nil, diag.Wrap(diag.Truncated, rerr, "reading ChapterTimeStart")
			}
			ch.StartTicks = int64(ebml.UInt(data))
		case ebml.IDChapterTimeEnd:
			data, rerr := ebml.ReadData(stream, c)
			if rerr != nil {
				return nil, diag.Wrap(diag.Truncated, rerr, "reading ChapterTimeEnd")
			}
			ch.EndTicks = int64(ebml.UInt(data))
			ch.HasEnd = true
		case ebml.IDChapterFlagHidden:
			data, rerr := ebml.ReadData(stream, c)
			if rerr != nil {
				return nil, diag.Wrap(diag.Truncated, rerr, "reading ChapterFlagHidden")
			}
			ch.Hidden = ebml.UInt(data) != 0
		case ebml.IDChapterFlagEnabled:
			data, rerr := ebml.ReadData(stream, c)
			if rerr != nil {
				return nil, diag.Wrap(diag.Truncated, rerr, "reading ChapterFlagEnabled")
			}
			ch.Enabled = ebml.UInt(data) != 0
		case ebml.IDChapterDisplay:
			name, derr := parseChapterDisplay(stream, c)
			if derr != nil {
				return nil, derr
			}
			ch.Names = append(ch.Names, name)
		case ebml.IDChapterTrack:
			trackChildren, terr := c.Children()
			if terr != nil {
				return nil, terr
			}
			for _, tc := range trackChildren {
				if uint32(tc.ID) != ebml.IDChapterTrackUID {
					continue
				}
				data, rerr := ebml.ReadData(stream, tc)
				if rerr != nil {
					return nil, diag.Wrap(diag.Truncated, rerr, "reading ChapterTrackUID")
				}
				ch.Tracks = append(ch.Tracks, ebml.UInt(data))
			}
		case ebml.IDChapterAtom:
			nested, nerr := parseChapterAtom(stream, c)
			if nerr != nil {
				return nil, nerr
			}
			ch.Nested = append(ch.Nested, nested)
		}
	}
	return ch, nil
}

// parseChapterDisplay reads one ChapterDisplay element's title and
// language, preferring ChapLanguageIETF's BCP-47 tag over the legacy
// ChapLanguage ISO 639-2 code when both are present.
func parseChapterDisplay(stream io.ReadSeeker, e *element.Element) (ChapterDisplay, *diag.Error) {
	var d ChapterDisplay
	children, err := e.Children()
	if err != nil {
		return d, err
	}
	for _, c := range children {
		switch uint32(c.ID) {
		case ebml.IDChapString:
			data, rerr := ebml.ReadData(stream, c)
			if rerr != nil {
				return d, diag.Wrap(diag.Truncated, rerr, "reading ChapString")
			}
			d.Text = ebml.String(data)
		case ebml.IDChapLanguage:
			if d.Language == "" {
				data, rerr := ebml.ReadData(stream, c)
				if rerr != nil {
					return d, diag.Wrap(diag.Truncated, rerr, "reading ChapLanguage")
				}
				d.Language = ebml.String(data)
			}
		case ebml.IDChapLanguageIETF:
			data, rerr := ebml.ReadData(stream, c)
			if rerr != nil {
				return d, diag.Wrap(diag.Truncated, rerr, "reading ChapLanguageIETF")
			}
			d.Language = ebml.String(data)
		}
	}
	return d, nil
}
