package oggpage

import (
	"bytes"
	"testing"

	"github.com/tagkit/tagkit/element"
)

// buildPage serializes one page's wire bytes for test fixtures.
func buildPage(serial, seq uint32, granule uint64, flags uint8, payload []byte) []byte {
	p := &Page{
		Version:         0,
		HeaderType:      flags,
		GranulePosition: granule,
		StreamSerial:    serial,
		SequenceNumber:  seq,
		SegmentTable:    LaceSegments(payload),
	}
	return Encode(p, payload)
}

func TestPageEncodeParseRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0x42}, 10)
	buf := buildPage(0xCAFEBABE, 0, 0, FlagFirst, payload)

	stream := bytes.NewReader(buf)
	elem := element.NewRoot(Dialect{}, stream, 0, int64(len(buf)))
	page, err := Parse(stream, elem)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if page.StreamSerial != 0xCAFEBABE {
		t.Fatalf("got serial 0x%X", page.StreamSerial)
	}
	if !page.First() || page.Continued() || page.Last() {
		t.Fatalf("unexpected flags: %08b", page.HeaderType)
	}
	if page.PayloadSize() != int64(len(payload)) {
		t.Fatalf("got payload size %d, want %d", page.PayloadSize(), len(payload))
	}

	ok, verr := VerifyChecksum(stream, page)
	if verr != nil {
		t.Fatalf("VerifyChecksum: %v", verr)
	}
	if !ok {
		t.Fatal("expected checksum to validate")
	}
}

func TestVerifyChecksumDetectsCorruption(t *testing.T) {
	buf := buildPage(1, 0, 0, FlagFirst|FlagLast, []byte("hello"))
	buf[30] ^= 0xFF // corrupt a payload byte

	stream := bytes.NewReader(buf)
	elem := element.NewRoot(Dialect{}, stream, 0, int64(len(buf)))
	page, err := Parse(stream, elem)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ok, verr := VerifyChecksum(stream, page)
	if verr != nil {
		t.Fatalf("VerifyChecksum: %v", verr)
	}
	if ok {
		t.Fatal("expected checksum mismatch after corruption")
	}
}

func TestLaceSegments(t *testing.T) {
	cases := []struct {
		n    int
		want []byte
	}{
		{0, []byte{0}},
		{10, []byte{10}},
		{255, []byte{255, 0}},
		{300, []byte{255, 45}},
		{510, []byte{255, 255, 0}},
	}
	for _, c := range cases {
		got := LaceSegments(make([]byte, c.n))
		if !bytes.Equal(got, c.want) {
			t.Fatalf("LaceSegments(%d) = %v, want %v", c.n, got, c.want)
		}
	}
}

func TestIteratorCrossesPageBoundary(t *testing.T) {
	part1 := []byte("0123456789")
	part2 := []byte("abcdefghij")

	page0 := buildPage(7, 0, 0, FlagFirst, part1)
	page1 := buildPage(7, 1, 0, FlagContinued, part2)

	buf := append(append([]byte{}, page0...), page1...)
	stream := bytes.NewReader(buf)

	it := NewIterator(stream, int64(len(buf)))
	got := make([]byte, len(part1)+len(part2))
	if err := it.Read(got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := append(append([]byte{}, part1...), part2...)
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestIteratorTruncatedAtEOF(t *testing.T) {
	buf := buildPage(1, 0, 0, FlagFirst|FlagLast, []byte("short"))
	stream := bytes.NewReader(buf)
	it := NewIterator(stream, int64(len(buf)))

	got := make([]byte, 100)
	err := it.Read(got)
	if err == nil {
		t.Fatal("expected Truncated error reading past end of stream")
	}
}

func TestIteratorFilterHidesOtherSerials(t *testing.T) {
	pageA0 := buildPage(1, 0, 0, FlagFirst, []byte("a0"))
	pageB0 := buildPage(2, 0, 0, FlagFirst, []byte("b0"))
	pageA1 := buildPage(1, 1, 0, 0, []byte("a1"))

	buf := append(append(append([]byte{}, pageA0...), pageB0...), pageA1...)
	stream := bytes.NewReader(buf)

	it := NewIterator(stream, int64(len(buf)))
	it.SetFilter(1)

	first, err := it.CurrentPage()
	if err != nil {
		t.Fatalf("CurrentPage: %v", err)
	}
	if first.StreamSerial != 1 {
		t.Fatalf("got serial %d, want 1", first.StreamSerial)
	}

	next, nerr := it.NextPage()
	if nerr != nil {
		t.Fatalf("NextPage: %v", nerr)
	}
	if next == nil || next.StreamSerial != 1 {
		t.Fatalf("NextPage with filter should skip serial 2, got %+v", next)
	}
	if next.SequenceNumber != 1 {
		t.Fatalf("got sequence %d, want 1", next.SequenceNumber)
	}

	prev, perr := it.PreviousPage()
	if perr != nil {
		t.Fatalf("PreviousPage: %v", perr)
	}
	if prev == nil || prev.StreamSerial != 1 || prev.SequenceNumber != 0 {
		t.Fatalf("PreviousPage with filter should land back on serial 1 seq 0, got %+v", prev)
	}
}

func TestIteratorSeekForward(t *testing.T) {
	payload := []byte("0123456789ABCDEF")
	buf := buildPage(5, 0, 0, FlagFirst|FlagLast, payload)
	stream := bytes.NewReader(buf)

	it := NewIterator(stream, int64(len(buf)))
	if err := it.SeekForward(10); err != nil {
		t.Fatalf("SeekForward: %v", err)
	}
	rest := make([]byte, 6)
	if err := it.Read(rest); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(rest, payload[10:]) {
		t.Fatalf("got %q, want %q", rest, payload[10:])
	}
}
