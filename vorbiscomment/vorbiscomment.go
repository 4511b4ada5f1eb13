// Package vorbiscomment implements the Vorbis comment tag dialect: the
// wire format shared by Ogg Vorbis and Ogg Opus comment packets (vendor
// string + a list of "KEY=value" entries), and its case-insensitive,
// multi-value FieldMap.
//
// FieldMap itself compares keys with Go's ==, so case-insensitivity is
// enforced at this package's boundary: every key is normalized to upper-
// case ASCII before it reaches the FieldMap, the same approach the
// format's own readers take (field names are conventionally written
// upper-case, e.g. "ARTIST", "TITLE").
package vorbiscomment

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/tagfield"
	"github.com/tagkit/tagkit/tagvalue"
)

// NormalizeKey upper-cases a Vorbis comment field name for use as a
// FieldMap key, implementing the dialect's case-insensitive comparator.
func NormalizeKey(key string) string {
	return strings.ToUpper(key)
}

// Comparator orders normalized keys lexicographically.
func Comparator(a, b string) int {
	return strings.Compare(a, b)
}

// NewFieldMap creates an empty FieldMap using Comparator.
func NewFieldMap() *tagfield.FieldMap[string] {
	return tagfield.NewFieldMap(Comparator)
}

// Comment is a parsed Vorbis comment block: the vendor string plus every
// "KEY=value" entry, stored in a case-insensitive multimap.
type Comment struct {
	Vendor string
	Fields *tagfield.FieldMap[string]
}

// Add stores value under key, normalizing case and preserving any
// existing values under the same (normalized) key, since Vorbis allows
// multi-value fields.
func (c *Comment) Add(key string, value string) {
	v, _ := tagvalue.NewText(value, tagvalue.Utf8)
	c.Fields.Add(NormalizeKey(key), v)
}

// Values returns every value stored under key (case-insensitive), decoded
// to plain strings.
func (c *Comment) Values(key string) []string {
	fields := c.Fields.Values(NormalizeKey(key))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if s, err := f.Value.String(); err == nil {
			out = append(out, s)
		}
	}
	return out
}

// Parse decodes a Vorbis comment packet (vendor-length-prefixed string,
// then a count and that many length-prefixed "KEY=value" entries, all
// little-endian, no trailing framing bit expected — callers that need to
// skip Vorbis's single trailing framing byte do so before calling Parse).
func Parse(r io.Reader) (*Comment, *diag.Error) {
	vendor, err := readLPString(r)
	if err != nil {
		return nil, err
	}
	count, cerr := readUint32LE(r)
	if cerr != nil {
		return nil, cerr
	}
	c := &Comment{Vendor: vendor, Fields: NewFieldMap()}
	for i := uint32(0); i < count; i++ {
		entry, eerr := readLPString(r)
		if eerr != nil {
			return nil, eerr
		}
		eq := strings.IndexByte(entry, '=')
		if eq < 0 {
			return nil, diag.New(diag.Invalid, "comment entry %q missing '='", entry)
		}
		c.Add(entry[:eq], entry[eq+1:])
	}
	return c, nil
}

// Encode serializes c back to a Vorbis comment packet.
func Encode(c *Comment) []byte {
	var buf []byte
	buf = appendLPString(buf, c.Vendor)
	entries := c.Fields.SortedForWrite()
	buf = appendUint32LE(buf, uint32(len(entries)))
	for _, f := range entries {
		s, err := f.Value.String()
		if err != nil {
			continue
		}
		buf = appendLPString(buf, f.ID+"="+s)
	}
	return buf
}

func readUint32LE(r io.Reader) (uint32, *diag.Error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, diag.Wrap(diag.Truncated, err, "reading uint32")
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readLPString(r io.Reader) (string, *diag.Error) {
	n, err := readUint32LE(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if n > 0 {
		if _, rerr := io.ReadFull(r, buf); rerr != nil {
			return "", diag.Wrap(diag.Truncated, rerr, "reading length-prefixed string")
		}
	}
	return string(buf), nil
}

func appendUint32LE(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendLPString(buf []byte, s string) []byte {
	buf = appendUint32LE(buf, uint32(len(s)))
	return append(buf, s...)
}
