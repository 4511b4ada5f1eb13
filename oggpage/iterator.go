package oggpage

import (
	"io"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/element"
)

// Iterator walks a sequence of Ogg pages, hiding page and segment
// boundaries from callers that just want a byte stream of one logical
// stream's packets.
//
// Materialized pages are kept in an append-only slice: PreviousPage only
// ever moves the cursor backwards within what has already been read; it
// never discards pages.
type Iterator struct {
	stream io.ReadSeeker
	size   int64

	pages []*Page // append-only

	pageIndex   int
	segIndex    int
	consumedInSeg int64

	filterSerial    uint32
	filterEnabled   bool
}

// NewIterator creates an Iterator over the page sequence starting at
// offset 0 of stream, which has the given total size.
func NewIterator(stream io.ReadSeeker, streamSize int64) *Iterator {
	return &Iterator{stream: stream, size: streamSize}
}

// SetFilter restricts NextPage/PreviousPage to pages whose StreamSerial
// equals serial. It does not affect Read, which "always follows the page
// chain of the current stream" regardless of filter.
func (it *Iterator) SetFilter(serial uint32) {
	it.filterSerial = serial
	it.filterEnabled = true
}

// ClearFilter removes any serial-number filter.
func (it *Iterator) ClearFilter() {
	it.filterEnabled = false
}

// ensurePage materializes pages up to and including index i, reading
// sequentially from wherever the iterator last stopped.
func (it *Iterator) ensurePage(i int) *diag.Error {
	for len(it.pages) <= i {
		var startOffset int64
		if len(it.pages) == 0 {
			startOffset = 0
		} else {
			last := it.pages[len(it.pages)-1]
			startOffset = last.Elem.DataEnd()
		}
		if startOffset >= it.size {
			return diag.New(diag.Truncated, "no more pages after offset %d", startOffset)
		}
		elem := element.NewRoot(Dialect{}, it.stream, startOffset, it.size)
		page, err := Parse(it.stream, elem)
		if err != nil {
			return err
		}
		it.pages = append(it.pages, page)
	}
	return nil
}

// CurrentPage returns the page the iterator's cursor is positioned within.
func (it *Iterator) CurrentPage() (*Page, *diag.Error) {
	if err := it.ensurePage(it.pageIndex); err != nil {
		return nil, err
	}
	return it.pages[it.pageIndex], nil
}

// NextPage advances to the next page matching the active filter (if any),
// returning nil once the stream is exhausted.
func (it *Iterator) NextPage() (*Page, *diag.Error) {
	for {
		it.pageIndex++
		it.segIndex = 0
		it.consumedInSeg = 0
		if err := it.ensurePage(it.pageIndex); err != nil {
			if err.Kind == diag.Truncated {
				it.pageIndex--
				return nil, nil
			}
			return nil, err
		}
		p := it.pages[it.pageIndex]
		if !it.filterEnabled || p.StreamSerial == it.filterSerial {
			return p, nil
		}
	}
}

// PreviousPage moves the cursor back one page matching the active filter,
// only within already-materialized pages (it never re-reads backwards).
func (it *Iterator) PreviousPage() (*Page, *diag.Error) {
	for it.pageIndex > 0 {
		it.pageIndex--
		p := it.pages[it.pageIndex]
		if !it.filterEnabled || p.StreamSerial == it.filterSerial {
			it.segIndex = 0
			it.consumedInSeg = 0
			return p, nil
		}
	}
	return nil, nil
}

// Read reads exactly len(buf) bytes of the current logical stream's packet
// data, transparently crossing segment and page boundaries. It fails with Truncated at end of stream.
func (it *Iterator) Read(buf []byte) *diag.Error {
	need := len(buf)
	filled := 0
	for filled < need {
		page, err := it.CurrentPage()
		if err != nil {
			return err
		}
		if it.segIndex >= len(page.SegmentTable) {
			next, nerr := it.advancePageForRead()
			if nerr != nil {
				return nerr
			}
			if next == nil {
				return diag.New(diag.Truncated, "Read: end of stream with %d bytes still needed", need-filled)
			}
			continue
		}
		segSize := int64(page.SegmentTable[it.segIndex])
		remaining := segSize - it.consumedInSeg
		if remaining == 0 {
			it.segIndex++
			it.consumedInSeg = 0
			continue
		}
		segOffset := it.segmentStreamOffset(page, it.segIndex) + it.consumedInSeg
		toRead := remaining
		if int64(need-filled) < toRead {
			toRead = int64(need - filled)
		}
		if _, serr := it.stream.Seek(segOffset, io.SeekStart); serr != nil {
			return diag.Wrap(diag.Truncated, serr, "seeking into segment")
		}
		if _, rerr := io.ReadFull(it.stream, buf[filled:filled+int(toRead)]); rerr != nil {
			return diag.Wrap(diag.Truncated, rerr, "reading segment data")
		}
		filled += int(toRead)
		it.consumedInSeg += toRead
	}
	return nil
}

// advancePageForRead moves to the next page in the *current* logical
// stream's chain (ignoring any filter), which Read must do even when a
// filter is set for NextPage/PreviousPage navigation.
func (it *Iterator) advancePageForRead() (*Page, *diag.Error) {
	cur, err := it.CurrentPage()
	if err != nil {
		return nil, err
	}
	serial := cur.StreamSerial
	it.pageIndex++
	it.segIndex = 0
	it.consumedInSeg = 0
	if err := it.ensurePage(it.pageIndex); err != nil {
		if err.Kind == diag.Truncated {
			it.pageIndex--
			return nil, nil
		}
		return nil, err
	}
	p := it.pages[it.pageIndex]
	if p.StreamSerial != serial {
		it.pageIndex--
		return nil, nil
	}
	return p, nil
}

// segmentStreamOffset returns the absolute stream offset of segment
// segIdx's first byte within page.
func (it *Iterator) segmentStreamOffset(page *Page, segIdx int) int64 {
	offset := page.Elem.DataOffset()
	for i := 0; i < segIdx; i++ {
		offset += int64(page.SegmentTable[i])
	}
	return offset
}

// SeekForward skips n bytes of packet data, with the same cross-boundary
// behaviour as Read.
func (it *Iterator) SeekForward(n int64) *diag.Error {
	const chunk = 64 * 1024
	buf := make([]byte, chunk)
	for n > 0 {
		step := n
		if step > chunk {
			step = chunk
		}
		if err := it.Read(buf[:step]); err != nil {
			return err
		}
		n -= step
	}
	return nil
}
