package id3v1

import (
	"testing"

	"github.com/tagkit/tagkit/tagvalue"
)

func TestRoundTripV10(t *testing.T) {
	tag := NewTag()
	title, err := tagvalue.NewText("My Song", tagvalue.Latin1)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}
	tag.Fields.Add(SlotTitle, title)
	artist, _ := tagvalue.NewText("Some Artist", tagvalue.Latin1)
	tag.Fields.Add(SlotArtist, artist)
	tag.Fields.Add(SlotGenre, tagvalue.NewStandardGenreIndex(GenreIndexOf("Rock")))

	buf, eerr := Encode(tag)
	if eerr != nil {
		t.Fatalf("Encode: %v", eerr)
	}
	if len(buf) != Size {
		t.Fatalf("got %d bytes, want %d", len(buf), Size)
	}

	got, perr := Parse(buf)
	if perr != nil {
		t.Fatalf("Parse: %v", perr)
	}
	titles := got.Fields.Values(SlotTitle)
	if len(titles) != 1 {
		t.Fatalf("expected 1 title, got %d", len(titles))
	}
	s, _ := titles[0].Value.String()
	if s != "My Song" {
		t.Fatalf("got %q", s)
	}
	genres := got.Fields.Values(SlotGenre)
	if len(genres) != 1 || GenreName(genres[0].Value.GenreIndex) != "Rock" {
		t.Fatalf("got genres %+v", genres)
	}
	if len(got.Fields.Values(SlotTrack)) != 0 {
		t.Fatal("expected no track slot for ID3v1.0")
	}
}

func TestRoundTripV11WithTrack(t *testing.T) {
	tag := NewTag()
	tag.Fields.Add(SlotTrack, tagvalue.NewInteger(7))

	buf, err := Encode(tag)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, perr := Parse(buf)
	if perr != nil {
		t.Fatalf("Parse: %v", perr)
	}
	tracks := got.Fields.Values(SlotTrack)
	if len(tracks) != 1 || tracks[0].Value.Integer != 7 {
		t.Fatalf("got tracks %+v", tracks)
	}
}

func TestGenreIndexOfUnknown(t *testing.T) {
	if GenreIndexOf("Not A Real Genre") != GenreUnknown {
		t.Fatal("expected GenreUnknown for unrecognized genre name")
	}
}
