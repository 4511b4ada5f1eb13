package ebml

import (
	"io"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/element"
)

// SeekEntry is one (element_id, offset_from_segment_data_start) pair held
// by a SeekHead.
type SeekEntry struct {
	ElementID uint32
	Offset    uint64
}

// SeekHead is a parsed SeekHead directory plus a pointer back to the
// element it was read from, so the rewrite engine can re-emit it at the
// correct size once the directory's content (and hence its own size) is
// known.
type SeekHead struct {
	Entries []SeekEntry
	Source  *element.Element
}

// ParseSeekHead reads a SeekHead element's Seek children.
func ParseSeekHead(stream io.ReadSeeker, seekHeadElem *element.Element) (*SeekHead, *diag.Error) {
	sh := &SeekHead{Source: seekHeadElem}
	children, err := seekHeadElem.Children()
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		if uint32(c.ID) != IDSeek {
			continue
		}
		var entry SeekEntry
		seekChildren, cerr := c.Children()
		if cerr != nil {
			return nil, cerr
		}
		for _, sc := range seekChildren {
			data, rerr := ReadData(stream, sc)
			if rerr != nil {
				return nil, diag.Wrap(diag.Truncated, rerr, "reading Seek child 0x%X", uint32(sc.ID))
			}
			switch uint32(sc.ID) {
			case IDSeekID:
				entry.ElementID = uint32(UInt(data))
			case IDSeekPos:
				entry.Offset = UInt(data)
			}
		}
		sh.Entries = append(sh.Entries, entry)
	}
	return sh, nil
}

// DuplicateElementIDs returns the element IDs that appear more than once in
// the directory — the matroska parser surfaces these as a Warning
// diagnostic rather than failing.
func (sh *SeekHead) DuplicateElementIDs() []uint32 {
	seen := map[uint32]int{}
	var dupes []uint32
	for _, e := range sh.Entries {
		seen[e.ElementID]++
	}
	for id, count := range seen {
		if count > 1 {
			dupes = append(dupes, id)
		}
	}
	return dupes
}

// EncodeSeekHead serializes entries as a full SeekHead element (header +
// children), used by the rewrite engine when rebuilding the segment's
// directory of top-level elements. Each entry's Offset is written as given,
// so the caller converts absolute offsets to segment-relative ones (see
// ToSegmentRelative) first.
func EncodeSeekHead(entries []SeekEntry) []byte {
	var body []byte
	for _, e := range entries {
		var seekBody []byte
		seekBody = append(seekBody, encodeChild(IDSeekID, EncodeUInt(uint64(e.ElementID)))...)
		seekBody = append(seekBody, encodeChild(IDSeekPos, EncodeUInt(e.Offset))...)
		body = append(body, encodeChild(IDSeek, seekBody)...)
	}
	return encodeChild(IDSeekHead, body)
}

// encodeChild builds [id][size][data] for a single element, using the
// shortest valid size encoding.
func encodeChild(id uint32, data []byte) []byte {
	out := append([]byte{}, EncodeID(id)...)
	sizeBuf, _ := EncodeSize(uint64(len(data)), 0)
	out = append(out, sizeBuf...)
	out = append(out, data...)
	return out
}

// ToSegmentRelative converts an absolute stream offset to an offset
// relative to the segment's data start, as SeekHead/Cues entries require
//.
func ToSegmentRelative(absolute int64, segmentDataOffset int64) uint64 {
	return uint64(absolute - segmentDataOffset)
}
