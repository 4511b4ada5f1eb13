package ebml

import (
	"io"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/element"
)

// Header is the parsed EBML header element: DocType, version, and the
// IDLength/SizeLength limits a dialect uses to decode the rest of the
// stream.
type Header struct {
	Version            uint64
	ReadVersion        uint64
	MaxIDLength        uint64
	MaxSizeLength      uint64
	DocType            string
	DocTypeVersion     uint64
	DocTypeReadVersion uint64
}

// ParseHeader reads the top-level EBML header element at the stream's
// current position (which must be offset 0 of the file) and returns both
// the parsed Header and the generic Element it was read from, so callers
// can continue walking the tree (e.g. to reach the Segment that follows)
// using the same Dialect.
func ParseHeader(stream io.ReadSeeker, streamSize int64) (*Header, *element.Element, *diag.Error) {
	bootstrap := Dialect{} // default maxima; the header itself never exceeds them
	root := element.NewRoot(bootstrap, stream, 0, streamSize)
	if err := root.Parse(); err != nil {
		return nil, nil, err
	}
	if uint32(root.ID) != IDEBMLHeader {
		return nil, nil, diag.New(diag.Invalid, "expected EBML header element, got ID 0x%X", uint32(root.ID))
	}

	h := &Header{Version: 1, ReadVersion: 1, MaxIDLength: 4, MaxSizeLength: 8, DocTypeVersion: 1, DocTypeReadVersion: 1}
	children, err := root.Children()
	if err != nil {
		return nil, nil, err
	}
	for _, c := range children {
		data, rerr := ReadData(stream, c)
		if rerr != nil {
			return nil, nil, diag.Wrap(diag.Truncated, rerr, "reading EBML header child 0x%X", uint32(c.ID))
		}
		switch uint32(c.ID) {
		case IDEBMLVersion:
			h.Version = UInt(data)
		case IDEBMLReadVersion:
			h.ReadVersion = UInt(data)
		case IDEBMLMaxIDLength:
			h.MaxIDLength = UInt(data)
		case IDEBMLMaxSizeLength:
			h.MaxSizeLength = UInt(data)
		case IDEBMLDocType:
			h.DocType = String(data)
		case IDEBMLDocTypeVersion:
			h.DocTypeVersion = UInt(data)
		case IDEBMLDocTypeReadVersion:
			h.DocTypeReadVersion = UInt(data)
		}
	}
	return h, root, nil
}

// ParseSegment reads the Segment element header immediately following the
// EBML header (headerElement.NextSibling, effectively), enforcing this
// file's declared MaxIDLength/MaxSizeLength from here on.
func ParseSegment(stream io.ReadSeeker, streamSize int64, headerElement *element.Element, h *Header) (*element.Element, *diag.Error) {
	dialect, derr := NewDialect(h.MaxIDLength, h.MaxSizeLength)
	if derr != nil {
		return nil, derr
	}
	startOffset := headerElement.DataEnd()
	segment := element.NewRoot(dialect, stream, startOffset, streamSize)
	if err := segment.Parse(); err != nil {
		return nil, err
	}
	if uint32(segment.ID) != IDSegment {
		return nil, diag.New(diag.Invalid, "expected Segment element, got ID 0x%X", uint32(segment.ID))
	}
	return segment, nil
}
