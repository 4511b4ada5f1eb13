package matroska

import (
	"io"

	"github.com/google/uuid"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/ebml"
	"github.com/tagkit/tagkit/element"
)

// StreamProvider is a thunk returning the stream an attachment's
// DataBlock should read from, rebound by the owning facade after a
// rewrite reopens the file under a new handle.
type StreamProvider func() (io.ReadSeeker, *diag.Error)

// DataBlock is a lazy handle onto a byte range of a StreamProvider's
// stream, optionally backed by an in-memory buffer for content that was
// set (not merely parsed) in this session.
type DataBlock struct {
	provider    StreamProvider
	startOffset int64
	endOffset   int64
	buffer      []byte
}

// NewDataBlockFromStream builds a DataBlock over [start, end) of whatever
// stream provider currently returns.
func NewDataBlockFromStream(provider StreamProvider, start, end int64) *DataBlock {
	return &DataBlock{provider: provider, startOffset: start, endOffset: end}
}

// NewDataBlockFromBytes builds an in-memory DataBlock, used when a caller
// attaches new content that has no backing position in any file yet.
func NewDataBlockFromBytes(data []byte) *DataBlock {
	return &DataBlock{buffer: append([]byte{}, data...)}
}

// Size returns the data block's length in bytes.
func (b *DataBlock) Size() int64 {
	if b == nil {
		return 0
	}
	if b.buffer != nil {
		return int64(len(b.buffer))
	}
	return b.endOffset - b.startOffset
}

// Bytes materializes the data block's full content, reading from the
// current stream provider if it is not already an in-memory buffer.
func (b *DataBlock) Bytes() ([]byte, *diag.Error) {
	if b == nil {
		return nil, nil
	}
	if b.buffer != nil {
		return b.buffer, nil
	}
	stream, perr := b.provider()
	if perr != nil {
		return nil, perr
	}
	buf := make([]byte, b.Size())
	if _, err := stream.Seek(b.startOffset, io.SeekStart); err != nil {
		return nil, diag.Wrap(diag.Truncated, err, "seeking to attachment data at %d", b.startOffset)
	}
	if _, err := io.ReadFull(stream, buf); err != nil {
		return nil, diag.Wrap(diag.Truncated, err, "reading attachment data")
	}
	return buf, nil
}

// Rebind replaces the data block's stream provider, used after a rewrite
// reopens the underlying file so outstanding *Attachment references stay
// valid without the caller re-parsing.
func (b *DataBlock) Rebind(provider StreamProvider) {
	if b.buffer == nil {
		b.provider = provider
	}
}

// streamProvider returns a StreamProvider bound to f's current Stream.
// Captured by value at each Attachment's construction; File.Rebind updates
// every outstanding attachment's provider after a rewrite swaps the
// stream.
func (f *File) streamProvider() StreamProvider {
	return func() (io.ReadSeeker, *diag.Error) {
		return f.Stream, nil
	}
}

// Rebind updates every outstanding Attachment's DataBlock to read from f's
// (possibly just-reopened) Stream, per the design note's "facade replaces
// the handle post-rewrite, invalidating no references".
func (f *File) Rebind() {
	provider := f.streamProvider()
	for _, a := range f.Attachments {
		if a.Data != nil {
			a.Data.Rebind(provider)
		}
	}
}

func parseAttachedFile(stream io.ReadSeeker, e *element.Element, provider StreamProvider) (*Attachment, *diag.Error) {
	a := &Attachment{}
	children, err := e.Children()
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		switch uint32(c.ID) {
		case ebml.IDFileDescription:
			data, rerr := ebml.ReadData(stream, c)
			if rerr != nil {
				return nil, diag.Wrap(diag.Truncated, rerr, "reading FileDescription")
			}
			a.Description = ebml.String(data)
		case ebml.IDFileName:
			data, rerr := ebml.ReadData(stream, c)
			if rerr != nil {
				return nil, diag.Wrap(diag.Truncated, rerr, "reading FileName")
			}
			a.Name = ebml.String(data)
		case ebml.IDFileMimeType:
			data, rerr := ebml.ReadData(stream, c)
			if rerr != nil {
				return nil, diag.Wrap(diag.Truncated, rerr, "reading FileMimeType")
			}
			a.MimeType = ebml.String(data)
		case ebml.IDFileUID:
			data, rerr := ebml.ReadData(stream, c)
			if rerr != nil {
				return nil, diag.Wrap(diag.Truncated, rerr, "reading FileUID")
			}
			a.UID = ebml.UInt(data)
		case ebml.IDFileData:
			a.Data = NewDataBlockFromStream(provider, c.DataOffset(), c.DataEnd())
		}
	}
	return a, nil
}

// NewAttachmentUID generates a fresh 64-bit attachment UID that does not
// collide with any in existing, deterministically derived from a
// google/uuid random UUID rather than the source's capped goto-retry loop
// It tries up to 255 (0xFF)
// draws — the same bound the source used — and reports exhaustion via d
// instead of silently accepting a collision.
func NewAttachmentUID(existing []uint64, d *diag.Diagnostics) uint64 {
	seen := make(map[uint64]bool, len(existing))
	for _, u := range existing {
		seen[u] = true
	}
	for attempt := 0; attempt < 0xFF; attempt++ {
		id := uuidFold(uuid.New())
		if id != 0 && !seen[id] {
			return id
		}
	}
	d.Warn("matroska: attachment UID generation", "exhausted %d attempts without finding a free UID; using a counter fallback", 0xFF)
	var candidate uint64 = 1
	for seen[candidate] {
		candidate++
	}
	return candidate
}

// uuidFold folds a 128-bit UUID down to a 64-bit id by XORing its two
// halves (the result can be zero, which NewAttachmentUID rejects), giving attachment UIDs the same "effectively random, fits in
// a u64" property the Matroska format expects without hand-rolling random
// byte generation.
func uuidFold(u uuid.UUID) uint64 {
	var hi, lo uint64
	for i := 0; i < 8; i++ {
		hi = hi<<8 | uint64(u[i])
	}
	for i := 8; i < 16; i++ {
		lo = lo<<8 | uint64(u[i])
	}
	return hi ^ lo
}
