// Package element implements the generic element tree that both of
// tagkit's structured container codecs (EBML and Ogg pages) are built on.
//
// The source this module is ported from uses a CRTP template
// (GenericFileElement<T>) so that Matroska's EBML elements and Ogg's pages
// share one tree-walking algorithm while each dialect supplies its own
// header-parsing and parent/child rules. Go has no CRTP; the equivalent
// here is a single concrete Element type plus a small Dialect strategy
// interface (ParseHeader/IsParent/IsPadding) that supplies exactly the two
// things that differ between dialects: how to read one header, and which
// IDs can have children. Every other behaviour — lazy materialization,
// sibling/child walks, validation, buffered copies — lives once, in this
// package.
package element

import (
	"bytes"
	"io"

	"github.com/tagkit/tagkit/diag"
)

// ID is a dialect-specific element identifier. EBML IDs are up to 32 bits
//; Ogg pages have no
// per-element ID of their own and use a single sentinel (see tagkit/oggpage).
type ID uint64

// Dialect supplies the three operations that vary between EBML and Ogg:
// parsing one header, deciding whether an element is a parent, and
// recognizing padding so ValidateSubsequent can report it without every
// caller re-checking the ID.
type Dialect interface {
	// ParseHeader reads one element header starting at the stream's
	// current position. limit is the absolute offset the header (and its
	// eventual data) must not run past; Element.Parse itself reports a
	// *diag.Error of kind Truncated when the parsed header and data run
	// past it, so a dialect may check it too but need not.
	// unknownSize is true for EBML's "all ones" size sentinel;
	// the element then extends to limit.
	ParseHeader(r io.ReadSeeker, limit int64) (id ID, headerSize int64, dataSize int64, unknownSize bool, err *diag.Error)
	// IsParent reports whether id names a container element.
	IsParent(id ID) bool
	// IsPadding reports whether id names a content-free filler element
	// (EBML Void; Ogg has none and always returns false).
	IsPadding(id ID) bool
	// Name returns a short human name for id, used only in diagnostics.
	Name(id ID) string
}

// Element is a single node in a lazily-materialized tree over a seekable
// byte stream. It does not own the stream.
type Element struct {
	Dialect Dialect
	Stream  io.ReadSeeker

	ID          ID
	StartOffset int64
	HeaderSize  int64
	DataSize    int64
	UnknownSize bool

	Parent *Element
	// RootLimit bounds a top-level (Parent == nil) element's header and
	// data, typically the stream's total size. Ignored when Parent is set.
	RootLimit int64

	parsed          bool
	firstChild      *Element
	firstChildDone  bool
	nextSibling     *Element
	nextSiblingDone bool
}

// New constructs an unparsed child Element at startOffset.
func New(dialect Dialect, stream io.ReadSeeker, startOffset int64, parent *Element) *Element {
	return &Element{Dialect: dialect, Stream: stream, StartOffset: startOffset, Parent: parent}
}

// NewRoot constructs an unparsed top-level Element, bounded by limit
// (typically the stream's total size).
func NewRoot(dialect Dialect, stream io.ReadSeeker, startOffset int64, limit int64) *Element {
	return &Element{Dialect: dialect, Stream: stream, StartOffset: startOffset, RootLimit: limit}
}

// limit returns the offset this element's header/data must not run past.
func (e *Element) limit() int64 {
	if e.Parent != nil {
		return e.Parent.DataEnd()
	}
	return e.RootLimit
}

// Parse reads the element's header if it has not been read yet. It is
// idempotent: calling it again after a successful parse is a no-op and
// returns nil.
func (e *Element) Parse() *diag.Error {
	if e.parsed {
		return nil
	}
	if _, err := e.Stream.Seek(e.StartOffset, io.SeekStart); err != nil {
		return diag.Wrap(diag.Truncated, err, "seeking to element at %d", e.StartOffset)
	}
	id, headerSize, dataSize, unknownSize, perr := e.Dialect.ParseHeader(e.Stream, e.limit())
	if perr != nil {
		return perr
	}
	e.ID = id
	e.HeaderSize = headerSize
	e.DataSize = dataSize
	e.UnknownSize = unknownSize
	if !unknownSize && e.StartOffset+headerSize+dataSize > e.limit() {
		return diag.New(diag.Truncated, "element 0x%X at %d extends past limit %d", id, e.StartOffset, e.limit())
	}
	e.parsed = true
	return nil
}

// DataOffset is the absolute offset of the element's first data byte.
func (e *Element) DataOffset() int64 { return e.StartOffset + e.HeaderSize }

// DataEnd is the absolute offset one past the element's last data byte. For
// an unknown-size element this is the bounding limit.
func (e *Element) DataEnd() int64 {
	if e.UnknownSize {
		return e.limit()
	}
	return e.DataOffset() + e.DataSize
}

// IsParent reports whether this element's ID can have children, per the
// dialect's fixed parenthood table. It reads the ID that Parse sets, so it
// is only meaningful on an element that has been parsed.
func (e *Element) IsParent() bool { return e.Dialect.IsParent(e.ID) }

// FirstChild parses the element if needed and returns its first child,
// materializing it on first access, or nil if this element is not a
// declared parent or is empty.
func (e *Element) FirstChild() (*Element, *diag.Error) {
	if err := e.Parse(); err != nil {
		return nil, err
	}
	if e.firstChildDone {
		return e.firstChild, nil
	}
	e.firstChildDone = true
	if !e.IsParent() || e.DataOffset() >= e.DataEnd() {
		return nil, nil
	}
	child := New(e.Dialect, e.Stream, e.DataOffset(), e)
	if err := child.Parse(); err != nil {
		return nil, err
	}
	e.firstChild = child
	return child, nil
}

// NextSibling returns the element immediately following this one within
// the same parent, materializing it on first access, or nil once a sibling
// would extend past the parent's (or stream's) end.
func (e *Element) NextSibling() (*Element, *diag.Error) {
	if err := e.Parse(); err != nil {
		return nil, err
	}
	if e.nextSiblingDone {
		return e.nextSibling, nil
	}
	e.nextSiblingDone = true
	next := e.DataEnd()
	if next >= e.limit() {
		return nil, nil
	}
	var sibling *Element
	if e.Parent == nil {
		sibling = NewRoot(e.Dialect, e.Stream, next, e.RootLimit)
	} else {
		sibling = New(e.Dialect, e.Stream, next, e.Parent)
	}
	if err := sibling.Parse(); err != nil {
		return nil, err
	}
	e.nextSibling = sibling
	return sibling, nil
}

// ChildByID linearly scans this element's children for the first one with
// the given ID. Element trees in the formats tagkit supports are shallow
// and wide, so a linear scan (matching the source's approach) is
// appropriate; no index is built.
func (e *Element) ChildByID(id ID) (*Element, *diag.Error) {
	child, err := e.FirstChild()
	if err != nil {
		return nil, err
	}
	for child != nil {
		if child.ID == id {
			return child, nil
		}
		child, err = child.NextSibling()
		if err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// SiblingByID scans forward from this element's next sibling for the first
// one with the given ID.
func (e *Element) SiblingByID(id ID) (*Element, *diag.Error) {
	sib, err := e.NextSibling()
	if err != nil {
		return nil, err
	}
	for sib != nil {
		if sib.ID == id {
			return sib, nil
		}
		sib, err = sib.NextSibling()
		if err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// Children returns every direct child, in order. Equivalent to repeatedly
// calling FirstChild/NextSibling, provided as a convenience for drivers
// that want to range over all children once.
func (e *Element) Children() ([]*Element, *diag.Error) {
	var out []*Element
	child, err := e.FirstChild()
	if err != nil {
		return nil, err
	}
	for child != nil {
		out = append(out, child)
		child, err = child.NextSibling()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ValidateSubsequent walks this element and every descendant, parsing each
// one, accumulating the total byte size of padding elements (if
// accumulatePadding is set) and returning the first fatal diagnostic
// encountered. Non-fatal problems found along the way should be recorded by
// the caller's Dialect via its own Diagnostics hook; this generic walk only
// reports the first *diag.Error bad enough to stop the walk.
func (e *Element) ValidateSubsequent(accumulatePadding bool) (paddingBytes int64, ferr *diag.Error) {
	if err := e.Parse(); err != nil {
		return 0, err
	}
	if accumulatePadding && e.Dialect.IsPadding(e.ID) {
		paddingBytes += e.DataEnd() - e.StartOffset
	}
	if e.IsParent() {
		child, err := e.FirstChild()
		if err != nil {
			return paddingBytes, err
		}
		for child != nil {
			childPadding, err := child.ValidateSubsequent(accumulatePadding)
			paddingBytes += childPadding
			if err != nil {
				return paddingBytes, err
			}
			child, err = child.NextSibling()
			if err != nil {
				return paddingBytes, err
			}
		}
	}
	return paddingBytes, nil
}

// CopyEntirely streams this element's full byte range (header + data) from
// Stream to out.
func (e *Element) CopyEntirely(out io.Writer) error {
	if _, err := e.Stream.Seek(e.StartOffset, io.SeekStart); err != nil {
		return err
	}
	n := e.DataEnd() - e.StartOffset
	_, err := io.CopyN(out, e.Stream, n)
	return err
}

// MakeBuffer materializes the element's full byte range into memory. The
// rewrite engine calls this before opening the output stream for
// truncation, when the backup and output streams might alias the same
// underlying file and a later CopyEntirely would otherwise read already
// partially-overwritten bytes.
func (e *Element) MakeBuffer() ([]byte, error) {
	if _, err := e.Stream.Seek(e.StartOffset, io.SeekStart); err != nil {
		return nil, err
	}
	n := e.DataEnd() - e.StartOffset
	buf := make([]byte, n)
	if _, err := io.ReadFull(e.Stream, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// CopyBuffer writes a previously captured MakeBuffer result to out, instead
// of re-reading from Stream.
func CopyBuffer(out io.Writer, buf []byte) error {
	_, err := io.Copy(out, bytes.NewReader(buf))
	return err
}
