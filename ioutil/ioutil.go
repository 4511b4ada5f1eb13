// Package ioutil provides the big/little-endian readers and writers tagkit's
// codecs build on top of.
//
// Every codec in tagkit (EBML, Ogg, ID3v2, ...) reads and writes fixed-width
// integers and raw byte ranges over a seekable stream. This package factors
// that plumbing out of the codecs themselves: a thin wrapper around an
// io.ReadSeeker (or io.WriteSeeker) that tracks position and exposes typed
// reads in both endiannesses.
package ioutil

import (
	"fmt"
	"io"
	"math"
)

// Reader wraps an io.ReadSeeker and tracks the current stream position so
// every codec doesn't have to re-derive it from repeated
// Seek(0, io.SeekCurrent) calls.
type Reader struct {
	R   io.ReadSeeker
	pos int64
}

// NewReader wraps r, assuming the stream starts at position 0.
func NewReader(r io.ReadSeeker) *Reader {
	return &Reader{R: r}
}

// Position returns the reader's current offset from the start of the
// stream.
func (r *Reader) Position() int64 { return r.pos }

// Seek implements io.Seeker, keeping the internal position in sync.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	pos, err := r.R.Seek(offset, whence)
	if err != nil {
		return 0, err
	}
	r.pos = pos
	return pos, nil
}

// ReadFull reads exactly len(buf) bytes, failing with io.ErrUnexpectedEOF on
// a short read.
func (r *Reader) ReadFull(buf []byte) error {
	n, err := io.ReadFull(r.R, buf)
	r.pos += int64(n)
	return err
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	var b [1]byte
	if err := r.ReadFull(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadBEUint reads an n-byte (1..8) big-endian unsigned integer.
func (r *Reader) ReadBEUint(n int) (uint64, error) {
	if n < 1 || n > 8 {
		return 0, fmt.Errorf("ioutil: invalid big-endian width %d", n)
	}
	buf := make([]byte, n)
	if err := r.ReadFull(buf); err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range buf {
		v = (v << 8) | uint64(b)
	}
	return v, nil
}

// ReadLEUint reads an n-byte (1..8) little-endian unsigned integer.
func (r *Reader) ReadLEUint(n int) (uint64, error) {
	if n < 1 || n > 8 {
		return 0, fmt.Errorf("ioutil: invalid little-endian width %d", n)
	}
	buf := make([]byte, n)
	if err := r.ReadFull(buf); err != nil {
		return 0, err
	}
	var v uint64
	for i := n - 1; i >= 0; i-- {
		v = (v << 8) | uint64(buf[i])
	}
	return v, nil
}

// ReadFloat32BE reads a big-endian IEEE-754 single-precision float.
func (r *Reader) ReadFloat32BE() (float32, error) {
	v, err := r.ReadBEUint(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(uint32(v)), nil
}

// ReadFloat64BE reads a big-endian IEEE-754 double-precision float.
func (r *Reader) ReadFloat64BE() (float64, error) {
	v, err := r.ReadBEUint(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// Writer wraps an io.Writer and tracks how many bytes have been written,
// which rewrite-engine size calculations need.
type Writer struct {
	W   io.Writer
	pos int64
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{W: w}
}

// Position returns the number of bytes written so far.
func (w *Writer) Position() int64 { return w.pos }

// Write implements io.Writer, tracking position.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.W.Write(p)
	w.pos += int64(n)
	return n, err
}

// WriteBEUint writes v as an n-byte (1..8) big-endian unsigned integer.
func (w *Writer) WriteBEUint(v uint64, n int) error {
	if n < 1 || n > 8 {
		return fmt.Errorf("ioutil: invalid big-endian width %d", n)
	}
	buf := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	_, err := w.Write(buf)
	return err
}

// WriteLEUint writes v as an n-byte (1..8) little-endian unsigned integer.
func (w *Writer) WriteLEUint(v uint64, n int) error {
	if n < 1 || n > 8 {
		return fmt.Errorf("ioutil: invalid little-endian width %d", n)
	}
	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		buf[i] = byte(v)
		v >>= 8
	}
	_, err := w.Write(buf)
	return err
}
