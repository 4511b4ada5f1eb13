package vorbiscomment

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	c := &Comment{Vendor: "tagkit", Fields: NewFieldMap()}
	c.Add("ARTIST", "Test Artist")
	c.Add("artist", "Second Artist") // different case, same normalized key
	c.Add("TITLE", "Test Title")

	buf := Encode(c)
	got, err := Parse(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Vendor != "tagkit" {
		t.Fatalf("got vendor %q", got.Vendor)
	}
	artists := got.Values("Artist")
	if len(artists) != 2 {
		t.Fatalf("expected 2 case-insensitively merged artists, got %d: %v", len(artists), artists)
	}
	titles := got.Values("title")
	if len(titles) != 1 || titles[0] != "Test Title" {
		t.Fatalf("got titles %v", titles)
	}
}

func TestCaseInsensitiveLookup(t *testing.T) {
	c := &Comment{Vendor: "v", Fields: NewFieldMap()}
	c.Add("Album", "Test Album")
	if len(c.Values("ALBUM")) != 1 {
		t.Fatal("expected case-insensitive lookup to find the field")
	}
}
