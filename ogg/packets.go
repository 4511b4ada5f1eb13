package ogg

import (
	"io"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/oggpage"
)

// packetSizes walks a dedicated iterator's page chain (via CurrentPage and
// NextPage) tallying lacing-table entries until n packet boundaries have
// been found, replicating how Iterator.Read itself crosses segment and
// page boundaries. It returns
// each packet's byte length and the index (0-based, relative to this walk)
// of the page that holds its last byte.
func packetSizes(it *oggpage.Iterator, n int) ([]int64, []int, *diag.Error) {
	sizes := make([]int64, 0, n)
	endPages := make([]int, 0, n)
	page, err := it.CurrentPage()
	if err != nil {
		return nil, nil, err
	}
	curPage := 0
	segIdx := 0
	var cur int64
	for len(sizes) < n {
		if segIdx >= len(page.SegmentTable) {
			next, nerr := it.NextPage()
			if nerr != nil {
				return nil, nil, nerr
			}
			if next == nil {
				return nil, nil, diag.New(diag.Truncated, "ogg: fewer packets than expected (%d found, %d wanted)", len(sizes), n)
			}
			page = next
			curPage++
			segIdx = 0
			continue
		}
		v := page.SegmentTable[segIdx]
		cur += int64(v)
		segIdx++
		if v < 255 {
			sizes = append(sizes, cur)
			endPages = append(endPages, curPage)
			cur = 0
		}
	}
	return sizes, endPages, nil
}

// readLeadingPacketsWithPages reads the first n packets of the logical
// stream starting at stream offset 0, returning each packet's bytes and
// the index of the last page the nth packet touches.
//
// It uses a throwaway Iterator purely to discover packet sizes, then a
// second, fresh Iterator to perform the actual Read calls: Iterator has no
// "read until packet boundary" primitive of its own, and reusing one
// Iterator for both the size-probing walk (which calls NextPage) and the
// byte reads (which call Read) would desynchronize Read's internal
// segment cursor from the manual walk.
func readLeadingPacketsWithPages(stream io.ReadSeeker, streamSize int64, n int) ([]int64, [][]byte, int, *diag.Error) {
	probe := oggpage.NewIterator(stream, streamSize)
	sizes, endPages, err := packetSizes(probe, n)
	if err != nil {
		return nil, nil, 0, err
	}
	it := oggpage.NewIterator(stream, streamSize)
	packets := make([][]byte, n)
	for i, sz := range sizes {
		buf := make([]byte, sz)
		if rerr := it.Read(buf); rerr != nil {
			return nil, nil, 0, rerr
		}
		packets[i] = buf
	}
	lastPage := 0
	if len(endPages) > 0 {
		lastPage = endPages[len(endPages)-1]
	}
	return sizes, packets, lastPage, nil
}

// readLeadingPackets is readLeadingPacketsWithPages without the page index,
// for callers that only need packet bytes (Open's identification read).
func readLeadingPackets(stream io.ReadSeeker, streamSize int64, n int) ([]int64, [][]byte, *diag.Error) {
	sizes, packets, _, err := readLeadingPacketsWithPages(stream, streamSize, n)
	return sizes, packets, err
}
