// Package oggpage implements the Ogg page codec: the 27-byte fixed header
// plus segment table, the direct-form CRC-32 checksum, and the iterator
// that hides page/segment boundaries from upper layers.
//
// Like tagkit/ebml, this package supplies a tagkit/element.Dialect so the
// same generic lazy tree walk parses page sequences; the page-specific
// fields (granule position, serial number, lacing) live on top, in Page.
package oggpage

import (
	"encoding/binary"
	"io"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/element"
	"github.com/tagkit/tagkit/ioutil"
)

// headerFixedSize is the size of an Ogg page header before its segment
// table: 4 (capture pattern) + 1 (version) + 1 (flags) + 8 (granule) + 4
// (serial) + 4 (sequence) + 4 (checksum) + 1 (segment count) = 27.
const headerFixedSize = 27

// Header flag bits.
const (
	FlagContinued = 1 << 0
	FlagFirst     = 1 << 1
	FlagLast      = 1 << 2
)

// NoGranule is the "no packet ends here" sentinel for GranulePosition.
const NoGranule = ^uint64(0)

// Page is one parsed Ogg page.
type Page struct {
	Elem            *element.Element
	Version         uint8
	HeaderType      uint8
	GranulePosition uint64
	StreamSerial    uint32
	SequenceNumber  uint32
	Checksum        uint32
	SegmentTable    []byte // lacing values, one per segment, each 0..255
}

// Continued reports whether this page's first segment continues a packet
// from the previous page.
func (p *Page) Continued() bool { return p.HeaderType&FlagContinued != 0 }

// First reports whether this is the first page of the logical stream.
func (p *Page) First() bool { return p.HeaderType&FlagFirst != 0 }

// Last reports whether this is the last page of the logical stream.
func (p *Page) Last() bool { return p.HeaderType&FlagLast != 0 }

// PayloadSize returns the total number of payload bytes the segment table
// describes.
func (p *Page) PayloadSize() int64 {
	var n int64
	for _, s := range p.SegmentTable {
		n += int64(s)
	}
	return n
}

// Dialect implements element.Dialect for a flat sequence of Ogg pages
// (there is no nesting; IsParent is always false).
type Dialect struct{}

var _ element.Dialect = Dialect{}

// ParseHeader reads one page's fixed header and segment table, and returns
// the resulting (sentinel) ID, header size, and payload size so the
// generic element tree can walk the page sequence via NextSibling.
func (Dialect) ParseHeader(r io.ReadSeeker, limit int64) (element.ID, int64, int64, bool, *diag.Error) {
	// NewReader assumes its stream starts at offset 0, but r is generally
	// mid-stream here (a prior page's worth of tree walk already behind
	// it); startPos is only used to annotate diagnostics below, so it is
	// captured straight from r rather than from the wrapper.
	startPos, _ := r.Seek(0, io.SeekCurrent)
	rd := ioutil.NewReader(r)

	var fixed [headerFixedSize]byte
	if err := rd.ReadFull(fixed[:]); err != nil {
		return 0, 0, 0, false, diag.Wrap(diag.Truncated, err, "reading Ogg page header at %d", startPos)
	}
	if string(fixed[0:4]) != "OggS" {
		return 0, 0, 0, false, diag.New(diag.Invalid, "missing OggS capture pattern at %d", startPos)
	}
	segCount := int(fixed[26])
	segTable := make([]byte, segCount)
	if segCount > 0 {
		if err := rd.ReadFull(segTable); err != nil {
			return 0, 0, 0, false, diag.Wrap(diag.Truncated, err, "reading segment table at %d", startPos)
		}
	}
	var payload int64
	for _, s := range segTable {
		payload += int64(s)
	}
	headerSize := int64(headerFixedSize + segCount)
	if startPos+headerSize+payload > limit {
		return 0, 0, 0, false, diag.New(diag.Truncated, "Ogg page at %d extends past stream end", startPos)
	}
	return element.ID(1), headerSize, payload, false, nil
}

// IsParent always returns false: pages do not nest.
func (Dialect) IsParent(element.ID) bool { return false }

// IsPadding always returns false: Ogg has no padding element concept.
func (Dialect) IsPadding(element.ID) bool { return false }

// Name returns a constant name since pages have no per-element identifier.
func (Dialect) Name(element.ID) string { return "Page" }

// Parse reads the full page (header, segment table, and the scalar fields
// DecodeVInt-style parsing doesn't cover) at e's already-parsed offsets.
// e must have been produced by the generic element tree using Dialect, so
// e.HeaderSize/e.DataSize are already known; Parse re-reads the header
// bytes to populate the richer Page fields.
func Parse(stream io.ReadSeeker, e *element.Element) (*Page, *diag.Error) {
	if err := e.Parse(); err != nil {
		return nil, err
	}
	if _, err := stream.Seek(e.StartOffset, io.SeekStart); err != nil {
		return nil, diag.Wrap(diag.Truncated, err, "seeking to page at %d", e.StartOffset)
	}
	var fixed [headerFixedSize]byte
	if _, err := io.ReadFull(stream, fixed[:]); err != nil {
		return nil, diag.Wrap(diag.Truncated, err, "reading page header at %d", e.StartOffset)
	}
	segCount := int(fixed[26])
	segTable := make([]byte, segCount)
	if segCount > 0 {
		if _, err := io.ReadFull(stream, segTable); err != nil {
			return nil, diag.Wrap(diag.Truncated, err, "reading segment table at %d", e.StartOffset)
		}
	}
	p := &Page{
		Elem:            e,
		Version:         fixed[4],
		HeaderType:      fixed[5],
		GranulePosition: binary.LittleEndian.Uint64(fixed[6:14]),
		StreamSerial:    binary.LittleEndian.Uint32(fixed[14:18]),
		SequenceNumber:  binary.LittleEndian.Uint32(fixed[18:22]),
		Checksum:        binary.LittleEndian.Uint32(fixed[22:26]),
		SegmentTable:    segTable,
	}
	return p, nil
}

// VerifyChecksum re-reads the page's full wire bytes from stream and
// compares the computed checksum to the stored one.
func VerifyChecksum(stream io.ReadSeeker, p *Page) (bool, *diag.Error) {
	total := p.Elem.DataEnd() - p.Elem.StartOffset
	buf := make([]byte, total)
	if _, err := stream.Seek(p.Elem.StartOffset, io.SeekStart); err != nil {
		return false, diag.Wrap(diag.Truncated, err, "seeking to page")
	}
	if _, err := io.ReadFull(stream, buf); err != nil {
		return false, diag.Wrap(diag.Truncated, err, "reading page")
	}
	return ComputeChecksum(buf) == p.Checksum, nil
}

// Encode serializes a page to its wire bytes, computing and filling in the
// checksum. payload is the segment data (already laid out per
// SegmentTable).
func Encode(p *Page, payload []byte) []byte {
	buf := make([]byte, headerFixedSize+len(p.SegmentTable)+len(payload))
	copy(buf[0:4], "OggS")
	buf[4] = p.Version
	buf[5] = p.HeaderType
	binary.LittleEndian.PutUint64(buf[6:14], p.GranulePosition)
	binary.LittleEndian.PutUint32(buf[14:18], p.StreamSerial)
	binary.LittleEndian.PutUint32(buf[18:22], p.SequenceNumber)
	// buf[22:26] (checksum) left zero for the checksum computation
	buf[26] = byte(len(p.SegmentTable))
	copy(buf[27:27+len(p.SegmentTable)], p.SegmentTable)
	copy(buf[27+len(p.SegmentTable):], payload)

	crc := ComputeChecksum(buf)
	binary.LittleEndian.PutUint32(buf[22:26], crc)
	return buf
}

// LaceSegments splits data into an Ogg lacing table: each run is at most
// 255 bytes, a value of 255 means "more data in this packet follows in the
// next table entry", and a packet boundary is marked by a final table
// entry less than 255.
func LaceSegments(data []byte) []byte {
	var table []byte
	n := len(data)
	for n >= 255 {
		table = append(table, 255)
		n -= 255
	}
	table = append(table, byte(n))
	return table
}
