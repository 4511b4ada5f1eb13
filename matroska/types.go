// Package matroska implements the Matroska/WebM container driver: parsing
// SegmentInfo/Tracks/Tags/Chapters/Attachments/Cues out of the element
// tree built by tagkit/ebml, index validation, and the two-phase rewrite
// engine that keeps SeekHead/Cues consistent after a tag edit.
package matroska

import (
	"golang.org/x/text/language"

	"github.com/tagkit/tagkit/tagfield"
)

// SegmentInfo holds the single per-segment SegmentInfo element's scalar
// fields.
type SegmentInfo struct {
	UID              []byte
	Filename         string
	TimestampScale   uint64
	Duration         float64
	Title            string
	MuxingApp        string
	WritingApp       string
}

// Track is one TrackEntry's identifying fields; full codec-specific
// descriptors are out of scope.
type Track struct {
	Number   uint64
	UID      uint64
	Type     uint64
	Name     string
	Language string
	CodecID  string
}

// ChapterDisplay is one ChapterDisplay element: a title string paired with
// the language it is written in. Language holds ChapLanguageIETF's BCP-47
// tag when present, falling back to ChapLanguage's ISO 639-2 code.
type ChapterDisplay struct {
	Text     string
	Language string
}

// Chapter mirrors this package glossary's Chapter shape, nested arbitrarily
// deep via EditionEntry/ChapterAtom.
type Chapter struct {
	UID        uint64
	StartTicks int64
	EndTicks   int64
	HasEnd     bool
	Names      []ChapterDisplay
	Tracks     []uint64
	Hidden     bool
	Enabled    bool
	Nested     []*Chapter
}

// LocaleAwareString picks the ChapterDisplay whose Language best matches
// pref, falling back to the first display (or "" if the chapter has none).
// Matching uses golang.org/x/text/language so an IETF tag like "en-US" and
// a legacy ISO 639-2 code like "eng" both resolve against the same
// preference list instead of requiring an exact string match.
func (c *Chapter) LocaleAwareString(pref language.Tag) string {
	if len(c.Names) == 0 {
		return ""
	}
	tags := make([]language.Tag, 0, len(c.Names))
	for _, d := range c.Names {
		t, err := language.Parse(d.Language)
		if err != nil {
			t = language.Und
		}
		tags = append(tags, t)
	}
	matcher := language.NewMatcher(tags)
	_, index, _ := matcher.Match(pref)
	return c.Names[index].Text
}

// Attachment mirrors this package glossary's Attachment shape. Data is a lazy
// DataBlock rather than a slurped buffer, consistent with tagkit/element's
// lazy design (see attachment.go).
type Attachment struct {
	UID         uint64
	Name        string
	Description string
	MimeType    string
	Data        *DataBlock
	Ignored     bool
}

// IsEmpty reports whether the attachment carries no content: no MIME type,
// no name, and no (or zero-length) data.
func (a *Attachment) IsEmpty() bool {
	return a.MimeType == "" && a.Name == "" && (a.Data == nil || a.Data.Size() == 0)
}

// TagComparator orders Matroska tag names lexicographically.
func TagComparator(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Tag is a single Matroska <Tag> block: a TagTarget plus its SimpleTag
// fields, keyed by tag name (e.g. "TITLE", "ARTIST").
type Tag struct {
	Target tagfield.TagTarget
	Fields *tagfield.FieldMap[string]
}

// NewTag creates an empty Tag for the given target.
func NewTag(target tagfield.TagTarget) *Tag {
	return &Tag{Target: target, Fields: tagfield.NewFieldMap(TagComparator)}
}

// targetTypeToLevel maps Matroska's well-known TargetType strings to the
// numeric level describes (10..70 → Shot/Subtrack/Track/Part/
// Album/Edition/Collection). An unrecognized or absent TargetType keeps
// whatever numeric TargetTypeValue was present, or 0 if neither was given.
var targetTypeToLevel = map[string]uint64{
	"SHOT":       10,
	"SUBTRACK":   20,
	"TRACK":      30,
	"PART":       40,
	"ALBUM":      50,
	"EDITION":    60,
	"COLLECTION": 70,
}

func levelName(level uint64) string {
	for name, lvl := range targetTypeToLevel {
		if lvl == level {
			return name
		}
	}
	return ""
}
