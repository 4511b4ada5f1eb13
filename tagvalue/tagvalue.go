// Package tagvalue implements TagValue, the tagged union every tag field
// across every dialect stores its content in, and the
// conversion matrix between its variants.
//
// Text content carries a declared encoding rather than always being
// normalized to UTF-8 on read, because several dialects (ID3v2 in
// particular) write several different encodings across frames in the same
// file and the rewrite engine needs to reproduce the original encoding
// byte-for-byte when a field is left untouched. Conversions between
// encodings go through golang.org/x/text's transform.Transformer-based
// decoders/encoders rather than hand-rolled UTF-16 byte swapping, the way
// the pack's ID3v2 readers that DO depend on an encoding library do it.
package tagvalue

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/tagkit/tagkit/diag"
)

// Encoding is the declared byte encoding of a Text value.
type Encoding int

const (
	Unspecified Encoding = iota
	Latin1
	Utf8
	Utf16LE
	Utf16BE
)

func (e Encoding) String() string {
	switch e {
	case Latin1:
		return "Latin1"
	case Utf8:
		return "Utf8"
	case Utf16LE:
		return "Utf16LE"
	case Utf16BE:
		return "Utf16BE"
	default:
		return "Unspecified"
	}
}

// codec returns the x/text encoding.Encoding implementing e, or nil for
// Unspecified/Utf8 (which need no transform).
func (e Encoding) codec() encoding.Encoding {
	switch e {
	case Latin1:
		return charmap.ISO8859_1
	case Utf16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case Utf16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	default:
		return nil
	}
}

// Kind identifies which variant a Value holds.
type Kind int

const (
	Empty Kind = iota
	KindText
	KindInteger
	KindUnsignedInteger
	KindPositionInSet
	KindStandardGenreIndex
	KindTimeSpan
	KindDateTime
	KindBinary
	KindPicture
)

// PositionInSet is a "track 3 of 12"-style value; Total of 0 means unknown.
type PositionInSet struct {
	Position int32
	Total    int32
}

// Picture is embedded artwork with its MIME type and an optional caption.
type Picture struct {
	Bytes       []byte
	MimeType    string
	Description string
}

// DateTime is a calendar timestamp. Tagkit does not depend on the wall
// clock anywhere in its own operation, so this is a plain value type, not
// tied to time.Time's monotonic-reading machinery.
type DateTime struct {
	Year            int
	Month, Day      int
	Hour, Min, Sec  int
	HasTimeOfDay    bool
}

// Value is the TagValue tagged union. Exactly one field group
// is meaningful, selected by Kind; zero values of the others are ignored.
type Value struct {
	Kind Kind

	Text         []byte
	TextEncoding Encoding

	Integer         int64
	UnsignedInteger uint64

	Position PositionInSet

	GenreIndex uint32

	// TimeSpanTicks is hundred-nanosecond ticks, matching // i128 tick resolution truncated to what int64 can hold; tagkit's
	// supported formats never need spans beyond that range.
	TimeSpanTicks int64

	DateTime DateTime

	Binary []byte

	Picture Picture
}

// NewText builds a Text value from UTF-8 Go string content, encoded as
// declared by enc.
func NewText(s string, enc Encoding) (Value, *diag.Error) {
	raw, err := encodeText(s, enc)
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindText, Text: raw, TextEncoding: enc}, nil
}

// NewTextRaw builds a Text value directly from already-encoded bytes, as
// read off the wire.
func NewTextRaw(raw []byte, enc Encoding) Value {
	return Value{Kind: KindText, Text: append([]byte{}, raw...), TextEncoding: enc}
}

func NewInteger(i int64) Value         { return Value{Kind: KindInteger, Integer: i} }
func NewUnsignedInteger(u uint64) Value { return Value{Kind: KindUnsignedInteger, UnsignedInteger: u} }
func NewPositionInSet(pos, total int32) Value {
	return Value{Kind: KindPositionInSet, Position: PositionInSet{Position: pos, Total: total}}
}
func NewStandardGenreIndex(idx uint32) Value { return Value{Kind: KindStandardGenreIndex, GenreIndex: idx} }
func NewTimeSpan(ticks int64) Value          { return Value{Kind: KindTimeSpan, TimeSpanTicks: ticks} }
func NewBinary(b []byte) Value               { return Value{Kind: KindBinary, Binary: append([]byte{}, b...)} }
func NewPicture(bytes []byte, mime, desc string) Value {
	return Value{Kind: KindPicture, Picture: Picture{Bytes: append([]byte{}, bytes...), MimeType: mime, Description: desc}}
}

// decodeText converts a Text value's declared-encoding bytes to a UTF-8 Go
// string.
func decodeText(raw []byte, enc Encoding) (string, *diag.Error) {
	codec := enc.codec()
	if codec == nil {
		return string(raw), nil
	}
	out, err := codec.NewDecoder().Bytes(raw)
	if err != nil {
		return "", diag.Wrap(diag.Invalid, err, "decoding text as %s", enc)
	}
	return string(out), nil
}

// encodeText converts a UTF-8 Go string to enc's declared byte encoding.
func encodeText(s string, enc Encoding) ([]byte, *diag.Error) {
	codec := enc.codec()
	if codec == nil {
		return []byte(s), nil
	}
	out, err := codec.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, diag.Wrap(diag.Conversion, err, "encoding text as %s", enc)
	}
	return out, nil
}

// String returns v's Text content decoded to UTF-8. It panics-free returns
// an error for non-Text values via the second return, matching the rest of
// the package's fallible-conversion style.
func (v Value) String() (string, *diag.Error) {
	if v.Kind != KindText {
		return "", diag.New(diag.Conversion, "value is %v, not Text", v.Kind)
	}
	return decodeText(v.Text, v.TextEncoding)
}

// AsText converts v to a Text value in the target encoding. Picture has no
// Text conversion and returns Conversion.
func (v Value) AsText(enc Encoding) (Value, *diag.Error) {
	var s string
	switch v.Kind {
	case KindText:
		decoded, err := decodeText(v.Text, v.TextEncoding)
		if err != nil {
			return Value{}, err
		}
		s = decoded
	case KindInteger:
		s = strconv.FormatInt(v.Integer, 10)
	case KindUnsignedInteger:
		s = strconv.FormatUint(v.UnsignedInteger, 10)
	case KindPositionInSet:
		if v.Position.Total != 0 {
			s = fmt.Sprintf("%d/%d", v.Position.Position, v.Position.Total)
		} else {
			s = strconv.FormatInt(int64(v.Position.Position), 10)
		}
	case KindTimeSpan:
		s = formatTimeSpan(v.TimeSpanTicks)
	default:
		return Value{}, diag.New(diag.Conversion, "cannot convert %v to Text", v.Kind)
	}
	return NewText(s, enc)
}

// AsInteger converts v to Integer, per the conversion matrix. Converting a
// PositionInSet this way is lossy (the Total is discarded) and returns
// Conversion so the caller can decide whether to accept the loss.
func (v Value) AsInteger() (Value, *diag.Error) {
	switch v.Kind {
	case KindInteger:
		return v, nil
	case KindText:
		s, err := decodeText(v.Text, v.TextEncoding)
		if err != nil {
			return Value{}, err
		}
		n, perr := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if perr != nil {
			return Value{}, diag.Wrap(diag.Conversion, perr, "parsing %q as integer", s)
		}
		return NewInteger(n), nil
	case KindUnsignedInteger:
		return NewInteger(int64(v.UnsignedInteger)), nil
	case KindTimeSpan:
		return NewInteger(v.TimeSpanTicks), nil
	case KindPositionInSet:
		if v.Position.Total != 0 {
			return Value{}, diag.New(diag.Conversion, "PositionInSet %d/%d to Integer discards total", v.Position.Position, v.Position.Total)
		}
		return NewInteger(int64(v.Position.Position)), nil
	default:
		return Value{}, diag.New(diag.Conversion, "cannot convert %v to Integer", v.Kind)
	}
}

// AsPositionInSet converts v to PositionInSet. Text must parse as "a/b" or
// a bare integer; Integer becomes "a/0" (unknown total).
func (v Value) AsPositionInSet() (Value, *diag.Error) {
	switch v.Kind {
	case KindPositionInSet:
		return v, nil
	case KindInteger:
		return NewPositionInSet(int32(v.Integer), 0), nil
	case KindText:
		s, err := decodeText(v.Text, v.TextEncoding)
		if err != nil {
			return Value{}, err
		}
		s = strings.TrimSpace(s)
		if idx := strings.IndexByte(s, '/'); idx >= 0 {
			a, aerr := strconv.ParseInt(s[:idx], 10, 32)
			b, berr := strconv.ParseInt(s[idx+1:], 10, 32)
			if aerr != nil || berr != nil {
				return Value{}, diag.New(diag.Conversion, "parsing %q as a/b position", s)
			}
			return NewPositionInSet(int32(a), int32(b)), nil
		}
		a, aerr := strconv.ParseInt(s, 10, 32)
		if aerr != nil {
			return Value{}, diag.Wrap(diag.Conversion, aerr, "parsing %q as position", s)
		}
		return NewPositionInSet(int32(a), 0), nil
	default:
		return Value{}, diag.New(diag.Conversion, "cannot convert %v to PositionInSet", v.Kind)
	}
}

// AsTimeSpan converts v to TimeSpan. Text is parsed as "HH:MM:SS.fff".
func (v Value) AsTimeSpan() (Value, *diag.Error) {
	switch v.Kind {
	case KindTimeSpan:
		return v, nil
	case KindInteger:
		return NewTimeSpan(v.Integer), nil
	case KindText:
		s, err := decodeText(v.Text, v.TextEncoding)
		if err != nil {
			return Value{}, err
		}
		ticks, perr := parseTimeSpan(strings.TrimSpace(s))
		if perr != nil {
			return Value{}, perr
		}
		return NewTimeSpan(ticks), nil
	default:
		return Value{}, diag.New(diag.Conversion, "cannot convert %v to TimeSpan", v.Kind)
	}
}

// AsBinary converts v to raw Binary bytes. Text is reinterpreted as its
// declared-encoding wire bytes (no re-encoding); Integer/UnsignedInteger
// become big-endian bytes; Picture yields its embedded image bytes.
func (v Value) AsBinary() (Value, *diag.Error) {
	switch v.Kind {
	case KindBinary:
		return v, nil
	case KindText:
		return NewBinary(v.Text), nil
	case KindInteger:
		return NewBinary(bigEndianBytes(uint64(v.Integer))), nil
	case KindUnsignedInteger:
		return NewBinary(bigEndianBytes(v.UnsignedInteger)), nil
	case KindPicture:
		return NewBinary(v.Picture.Bytes), nil
	default:
		return Value{}, diag.New(diag.Conversion, "cannot convert %v to Binary", v.Kind)
	}
}

func bigEndianBytes(u uint64) []byte {
	var buf [8]byte
	n := 8
	for n > 1 && u>>((n-1)*8) == 0 {
		n--
	}
	for i := 0; i < n; i++ {
		buf[i] = byte(u >> ((n - 1 - i) * 8))
	}
	return buf[:n]
}

func formatTimeSpan(ticks int64) string {
	neg := ticks < 0
	if neg {
		ticks = -ticks
	}
	totalMs := ticks / 10000
	ms := totalMs % 1000
	totalSec := totalMs / 1000
	sec := totalSec % 60
	totalMin := totalSec / 60
	min := totalMin % 60
	hour := totalMin / 60
	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%02d:%02d:%02d.%03d", sign, hour, min, sec, ms)
}

func parseTimeSpan(s string) (int64, *diag.Error) {
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var hour, min int
	var secFrac float64
	n, err := fmt.Sscanf(s, "%d:%d:%f", &hour, &min, &secFrac)
	if err != nil || n != 3 {
		return 0, diag.New(diag.Conversion, "parsing %q as HH:MM:SS.fff", s)
	}
	ticks := (int64(hour)*3600+int64(min)*60)*10_000_000 + int64(secFrac*10_000_000)
	if neg {
		ticks = -ticks
	}
	return ticks, nil
}
