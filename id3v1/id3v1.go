// Package id3v1 implements the ID3v1 tag dialect: the fixed 128-byte
// trailer ("TAG" + title/artist/album/year/comment/genre in fixed-width
// Latin-1 slots), its one-slot-per-field FieldMap, and the standard genre
// table StandardGenreIndex indexes into.
package id3v1

import (
	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/tagfield"
	"github.com/tagkit/tagkit/tagvalue"
)

// Size is the fixed length of an ID3v1 tag trailer.
const Size = 128

// Slot identifies one of ID3v1's fixed fields. Unlike every other
// dialect's Id type, a Slot can hold at most one value.
type Slot int

const (
	SlotTitle Slot = iota
	SlotArtist
	SlotAlbum
	SlotYear
	SlotComment
	SlotTrack // ID3v1.1 only; zero means absent
	SlotGenre
)

// Genres is the fixed standard genre table StandardGenreIndex values index
// into: the original ID3v1 list, indices 0..79. Winamp's extension indices
// 80..191 are not in it. Index 255 (Winamp's "Unknown") round-trips as
// GenreUnknown.
var Genres = []string{
	"Blues", "Classic Rock", "Country", "Dance", "Disco", "Funk", "Grunge",
	"Hip-Hop", "Jazz", "Metal", "New Age", "Oldies", "Other", "Pop", "R&B",
	"Rap", "Reggae", "Rock", "Techno", "Industrial", "Alternative", "Ska",
	"Death Metal", "Pranks", "Soundtrack", "Euro-Techno", "Ambient",
	"Trip-Hop", "Vocal", "Jazz+Funk", "Fusion", "Trance", "Classical",
	"Instrumental", "Acid", "House", "Game", "Sound Clip", "Gospel",
	"Noise", "AlternRock", "Bass", "Soul", "Punk", "Space", "Meditative",
	"Instrumental Pop", "Instrumental Rock", "Ethnic", "Gothic",
	"Darkwave", "Techno-Industrial", "Electronic", "Pop-Folk",
	"Eurodance", "Dream", "Southern Rock", "Comedy", "Cult", "Gangsta",
	"Top 40", "Christian Rap", "Pop/Funk", "Jungle", "Native American",
	"Cabaret", "New Wave", "Psychedelic", "Rave", "Showtunes", "Trailer",
	"Lo-Fi", "Tribal", "Acid Punk", "Acid Jazz", "Polka", "Retro",
	"Musical", "Rock & Roll", "Hard Rock",
}

// GenreUnknown is Winamp's "no genre" sentinel for StandardGenreIndex,
// used for tags that don't have an entry in Genres.
const GenreUnknown = 255

// GenreName returns Genres[idx], or "" if idx is out of range.
func GenreName(idx uint32) string {
	if int(idx) < len(Genres) {
		return Genres[idx]
	}
	return ""
}

// GenreIndexOf returns the index of name in Genres (case-sensitive exact
// match, as the format historically requires), or GenreUnknown if absent.
func GenreIndexOf(name string) uint32 {
	for i, g := range Genres {
		if g == name {
			return uint32(i)
		}
	}
	return GenreUnknown
}

// Tag is a parsed ID3v1 (or ID3v1.1, when Track != 0) trailer.
type Tag struct {
	Fields *tagfield.FieldMap[Slot]
}

// NewTag creates an empty Tag.
func NewTag() *Tag {
	return &Tag{Fields: tagfield.NewFieldMap[Slot](nil)}
}

func padLatin1(s string, n int) []byte {
	raw, _ := tagvalue.NewText(s, tagvalue.Latin1)
	buf := make([]byte, n)
	copy(buf, raw.Text)
	return buf
}

func unpadLatin1(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	v := tagvalue.NewTextRaw(b[:end], tagvalue.Latin1)
	s, err := v.String()
	if err != nil {
		return string(b[:end])
	}
	return s
}

// Parse decodes a 128-byte ID3v1 trailer. ID3v1.1 is detected by byte 125
// being zero and byte 126 nonzero (the track-number convention).
func Parse(buf []byte) (*Tag, *diag.Error) {
	if len(buf) != Size {
		return nil, diag.New(diag.Truncated, "ID3v1 tag must be %d bytes, got %d", Size, len(buf))
	}
	if string(buf[0:3]) != "TAG" {
		return nil, diag.New(diag.Invalid, "missing TAG identifier")
	}
	t := NewTag()
	setText := func(slot Slot, raw []byte) {
		s := unpadLatin1(raw)
		if s == "" {
			return
		}
		v, _ := tagvalue.NewText(s, tagvalue.Latin1)
		t.Fields.Add(slot, v)
	}
	setText(SlotTitle, buf[3:33])
	setText(SlotArtist, buf[33:63])
	setText(SlotAlbum, buf[63:93])
	setText(SlotYear, buf[93:97])

	isV11 := buf[125] == 0 && buf[126] != 0
	if isV11 {
		setText(SlotComment, buf[97:125])
		t.Fields.Add(SlotTrack, tagvalue.NewInteger(int64(buf[126])))
	} else {
		setText(SlotComment, buf[97:127])
	}
	t.Fields.Add(SlotGenre, tagvalue.NewStandardGenreIndex(uint32(buf[127])))
	return t, nil
}

// Encode serializes t to its 128-byte wire form. If a SlotTrack value is
// present, the comment field is truncated to 28 bytes and ID3v1.1's
// trailing zero/track-byte convention is used.
func Encode(t *Tag) ([]byte, *diag.Error) {
	buf := make([]byte, Size)
	copy(buf[0:3], "TAG")

	textOf := func(slot Slot) string {
		vals := t.Fields.Values(slot)
		if len(vals) == 0 {
			return ""
		}
		s, err := vals[0].Value.String()
		if err != nil {
			return ""
		}
		return s
	}
	copy(buf[3:33], padLatin1(textOf(SlotTitle), 30))
	copy(buf[33:63], padLatin1(textOf(SlotArtist), 30))
	copy(buf[63:93], padLatin1(textOf(SlotAlbum), 30))
	copy(buf[93:97], padLatin1(textOf(SlotYear), 4))

	trackVals := t.Fields.Values(SlotTrack)
	if len(trackVals) > 0 {
		copy(buf[97:125], padLatin1(textOf(SlotComment), 28))
		buf[125] = 0
		buf[126] = byte(trackVals[0].Value.Integer)
	} else {
		copy(buf[97:127], padLatin1(textOf(SlotComment), 30))
	}

	genreVals := t.Fields.Values(SlotGenre)
	if len(genreVals) > 0 {
		buf[127] = byte(genreVals[0].Value.GenreIndex)
	} else {
		buf[127] = GenreUnknown
	}
	return buf, nil
}
