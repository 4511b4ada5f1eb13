package matroska

import (
	"io"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/ebml"
)

// Position selects where a rebuilt Tags/Attachments block or the Cues index
// lands within the segment: at the front, grouped with the other metadata elements, or at
// the end, after every Cluster.
type Position int

const (
	PositionStart Position = iota
	PositionEnd
)

// RewriteOptions configures Rewrite.
type RewriteOptions struct {
	TagPosition   Position
	IndexPosition Position
	ForceRewrite  bool
}

const maxLayoutIterations = 16

// dirty reports whether f carries pending Tags/Attachments edits that
// require a rewrite at all.
func (f *File) dirty() bool {
	return f.tagsDirty || f.attachmentsDirty
}

// SetTags replaces the file's Tags and marks them dirty for the next
// Rewrite.
func (f *File) SetTags(tags []*Tag) {
	f.Tags = tags
	f.tagsDirty = true
}

// SetAttachments replaces the file's Attachments and marks them dirty for
// the next Rewrite.
func (f *File) SetAttachments(attachments []*Attachment) {
	f.Attachments = attachments
	f.attachmentsDirty = true
}

// liveAttachments returns f.Attachments with empty entries (no MIME type,
// no name, and no data) dropped, recording an Information diagnostic for
// each one skipped so a caller can tell a rewrite silently left one out.
func (f *File) liveAttachments() []*Attachment {
	out := make([]*Attachment, 0, len(f.Attachments))
	for _, a := range f.Attachments {
		if a.IsEmpty() {
			f.Diag.Info("matroska: attachments", "dropping empty attachment %q (uid %d) from rewrite", a.Name, a.UID)
			continue
		}
		out = append(out, a)
	}
	return out
}

// Rewrite implements it decides between an in-place verbatim
// copy (nothing dirty, caller didn't force a rewrite) and a full segment
// rebuild, then streams the result to out. Callers that reopen out as the
// new file should call f.Rebind after swapping f.Stream, so outstanding
// *Attachment DataBlocks keep working.
func (f *File) Rewrite(out io.Writer, opts RewriteOptions) *diag.Error {
	if !opts.ForceRewrite && !f.dirty() {
		if _, err := f.Stream.Seek(0, io.SeekStart); err != nil {
			return diag.Wrap(diag.Truncated, err, "seeking to start of stream for verbatim copy")
		}
		if _, err := io.Copy(out, f.Stream); err != nil {
			return diag.Wrap(diag.Truncated, err, "copying file verbatim")
		}
		return nil
	}
	return f.fullRewrite(out, opts)
}

// segmentParts holds every byte-producing piece of the rebuilt segment
// besides the SeekHead (whose size depends on everything else's final
// offset), the rebuilt clusters, and Cues (which depend on the clusters'
// final offsets).
type segmentParts struct {
	segmentInfo []byte
	tracks      []byte
	chapters    []byte
	tags        []byte
	attachments []byte
}

// rawCluster is one Cluster's children other than Position/PrevSize/CRC-32,
// already serialized to bytes, plus the offset (segment-relative, under
// the original layout) CuePoints used to reference it.
type rawCluster struct {
	otherChildren []byte
	oldOffset     uint64
	hasCRC32      bool
}

func (f *File) fullRewrite(out io.Writer, opts RewriteOptions) *diag.Error {
	if err := diag.CheckPoint(f.Progress); err != nil {
		return err
	}
	if f.HeaderElem == nil || f.SegmentElem == nil {
		return diag.New(diag.Invalid, "matroska: cannot rewrite a file whose header was never parsed")
	}

	headerBuf, herr := f.HeaderElem.MakeBuffer()
	if herr != nil {
		return diag.Wrap(diag.Truncated, herr, "buffering EBML header before rewrite")
	}

	tracksBuf, terr := f.rawTopLevelBytes(ebml.IDTracks)
	if terr != nil {
		return terr
	}
	chaptersBuf, cherr := f.rawTopLevelBytes(ebml.IDChapters)
	if cherr != nil {
		return cherr
	}
	attachmentsBuf, aerr := EncodeAttachments(f.liveAttachments())
	if aerr != nil {
		return aerr
	}

	clusters, clerr := f.Clusters()
	if clerr != nil {
		return clerr
	}
	segmentDataOffset := f.SegmentElem.DataOffset()
	rawClusters, cbuferr := f.bufferClusters(clusters, segmentDataOffset)
	if cbuferr != nil {
		return cbuferr
	}

	parts := &segmentParts{
		segmentInfo: EncodeSegmentInfo(f.SegmentInfo),
		tracks:      tracksBuf,
		chapters:    chaptersBuf,
		tags:        EncodeTags(f.Tags),
		attachments: attachmentsBuf,
	}

	segmentBody, clusterOffsets, lerr := f.computeLayout(parts, rawClusters, opts)
	if lerr != nil {
		return lerr
	}
	_ = clusterOffsets

	if err := diag.CheckPoint(f.Progress); err != nil {
		return err
	}

	if _, err := out.Write(headerBuf); err != nil {
		return diag.Wrap(diag.Truncated, err, "writing EBML header")
	}
	segmentElem := append([]byte{}, ebml.EncodeID(ebml.IDSegment)...)
	sizeBuf, serr := ebml.EncodeSize(uint64(len(segmentBody)), 0)
	if serr != nil {
		return serr
	}
	segmentElem = append(segmentElem, sizeBuf...)
	if _, err := out.Write(segmentElem); err != nil {
		return diag.Wrap(diag.Truncated, err, "writing Segment header")
	}
	if _, err := out.Write(segmentBody); err != nil {
		return diag.Wrap(diag.Truncated, err, "writing Segment body")
	}
	return nil
}

// rawTopLevelBytes returns the verbatim header+data bytes of the first
// top-level segment child with the given id, or nil if absent. Tracks and
// Chapters are carried through unchanged by the rewrite engine.
func (f *File) rawTopLevelBytes(id uint32) ([]byte, *diag.Error) {
	elem, ok := f.elems[id]
	if !ok {
		return nil, nil
	}
	buf, err := elem.MakeBuffer()
	if err != nil {
		return nil, diag.Wrap(diag.Truncated, err, "buffering element 0x%X before rewrite", id)
	}
	return buf, nil
}

// bufferClusters materializes every cluster's non-Position/PrevSize/CRC-32
// bytes up front (MakeBuffer, not CopyEntirely) so the output stream can
// safely alias the input file: by the time writeLayout starts writing to
// out, nothing still needs to read from f.Stream. A stored CRC-32 child is
// dropped here rather than copied, since it covers Position/PrevSize
// indirectly through the cluster's remaining bytes and goes stale as soon
// as either one changes; rebuildClusters recomputes and reinserts it.
func (f *File) bufferClusters(clusters []ClusterInfo, segmentDataOffset int64) ([]rawCluster, *diag.Error) {
	out := make([]rawCluster, 0, len(clusters))
	for _, c := range clusters {
		if err := diag.CheckPoint(f.Progress); err != nil {
			return nil, err
		}
		children, err := c.Elem.Children()
		if err != nil {
			return nil, err
		}
		rc := rawCluster{oldOffset: uint64(c.Elem.StartOffset - segmentDataOffset)}
		for _, child := range children {
			switch uint32(child.ID) {
			case ebml.IDPosition, ebml.IDPrevSize:
				continue
			case ebml.IDCRC32:
				// Position/PrevSize change under the new layout, so any
				// stored checksum is stale; recomputed and re-inserted by
				// rebuildClusters instead of being carried over verbatim.
				rc.hasCRC32 = true
				continue
			default:
				buf, berr := child.MakeBuffer()
				if berr != nil {
					return nil, diag.Wrap(diag.Truncated, berr, "buffering cluster child 0x%X", uint32(child.ID))
				}
				rc.otherChildren = append(rc.otherChildren, buf...)
			}
		}
		out = append(out, rc)
	}
	return out, nil
}

// namedSegment is one top-level segment child in write order.
type namedSegment struct {
	name string
	size int
}

func buildOrder(parts *segmentParts, opts RewriteOptions, seekHeadLen int, clustersTotal int, cuesLen int) []namedSegment {
	var order []namedSegment
	order = append(order, namedSegment{"seekhead", seekHeadLen})
	order = append(order, namedSegment{"segmentinfo", len(parts.segmentInfo)})
	if parts.tracks != nil {
		order = append(order, namedSegment{"tracks", len(parts.tracks)})
	}
	if parts.chapters != nil {
		order = append(order, namedSegment{"chapters", len(parts.chapters)})
	}
	if opts.TagPosition == PositionStart {
		order = append(order, namedSegment{"tags", len(parts.tags)}, namedSegment{"attachments", len(parts.attachments)})
	}
	if opts.IndexPosition == PositionStart {
		order = append(order, namedSegment{"cues", cuesLen})
	}
	order = append(order, namedSegment{"clusters", clustersTotal})
	if opts.TagPosition == PositionEnd {
		order = append(order, namedSegment{"tags", len(parts.tags)}, namedSegment{"attachments", len(parts.attachments)})
	}
	if opts.IndexPosition == PositionEnd {
		order = append(order, namedSegment{"cues", cuesLen})
	}
	return order
}

var segmentElementID = map[string]uint32{
	"segmentinfo": ebml.IDSegmentInfo,
	"tracks":      ebml.IDTracks,
	"chapters":    ebml.IDChapters,
	"tags":        ebml.IDTags,
	"attachments": ebml.IDAttachments,
	"cues":        ebml.IDCues,
}

// computeLayout runs the fixed-point iteration describes: the
// SeekHead's size depends on the offsets of the elements it points to,
// which in turn depend on the SeekHead's own size (it is written first),
// and each Cluster's rewritten Position/PrevSize values depend on the
// running offset up to that cluster, which depends on the SeekHead and
// everything before it. It iterates rebuilding SeekHead, clusters, and
// Cues until every size stabilizes or maxLayoutIterations is reached,
// converging in practice within a handful of rounds since a VINT's encoded
// width only grows, never shrinks, as the running offset crosses a
// power-of-128 boundary.
func (f *File) computeLayout(parts *segmentParts, clusters []rawCluster, opts RewriteOptions) (body []byte, newOffsets []uint64, ferr *diag.Error) {
	seekHeadLen := 0
	clustersTotal := 0
	for _, rc := range clusters {
		clustersTotal += len(rc.otherChildren) + 24
	}
	cuesLen := len(ebml.EncodeCues(f.Cues))

	var finalSeekHead, finalCues []byte
	var finalClusterBufs [][]byte
	var finalOffsets []uint64

	for iter := 0; iter < maxLayoutIterations; iter++ {
		if err := diag.CheckPoint(f.Progress); err != nil {
			return nil, nil, err
		}
		order := buildOrder(parts, opts, seekHeadLen, clustersTotal, cuesLen)

		offset := uint64(0)
		offsets := map[string]uint64{}
		var clustersOffset uint64
		for _, seg := range order {
			if seg.name == "clusters" {
				clustersOffset = offset
			}
			offsets[seg.name] = offset
			offset += uint64(seg.size)
		}

		clusterBufs, newClusterOffsets := rebuildClusters(clusters, clustersOffset)
		offsetMap := make(map[uint64]uint64, len(clusters))
		for i, rc := range clusters {
			offsetMap[rc.oldOffset] = newClusterOffsets[i]
		}
		newCues := rebuildCues(f.Cues, offsetMap)
		entries := seekEntries(order, offsets)
		newSeekHead := ebml.EncodeSeekHead(entries)

		newClustersTotal := 0
		for _, c := range clusterBufs {
			newClustersTotal += len(c)
		}

		changed := len(newSeekHead) != seekHeadLen || len(newCues) != cuesLen || newClustersTotal != clustersTotal
		seekHeadLen = len(newSeekHead)
		cuesLen = len(newCues)
		clustersTotal = newClustersTotal
		finalSeekHead, finalCues, finalClusterBufs, finalOffsets = newSeekHead, newCues, clusterBufs, newClusterOffsets

		if !changed {
			break
		}
	}

	order := buildOrder(parts, opts, len(finalSeekHead), clustersTotal, len(finalCues))
	var out []byte
	for _, seg := range order {
		switch seg.name {
		case "seekhead":
			out = append(out, finalSeekHead...)
		case "segmentinfo":
			out = append(out, parts.segmentInfo...)
		case "tracks":
			out = append(out, parts.tracks...)
		case "chapters":
			out = append(out, parts.chapters...)
		case "tags":
			out = append(out, parts.tags...)
		case "attachments":
			out = append(out, parts.attachments...)
		case "clusters":
			for _, c := range finalClusterBufs {
				out = append(out, c...)
			}
		case "cues":
			out = append(out, finalCues...)
		}
	}
	return out, finalOffsets, nil
}

func seekEntries(order []namedSegment, offsets map[string]uint64) []ebml.SeekEntry {
	var entries []ebml.SeekEntry
	for _, seg := range order {
		id, ok := segmentElementID[seg.name]
		if !ok {
			continue
		}
		entries = append(entries, ebml.SeekEntry{ElementID: id, Offset: offsets[seg.name]})
	}
	return entries
}

// rebuildClusters re-encodes every cluster's Position/PrevSize children for
// its offset within the segment, patches in a freshly computed CRC-32
// element for clusters that carried one, and returns the rebuilt bytes
// plus each cluster's new segment-relative offset in original order.
func rebuildClusters(clusters []rawCluster, clustersOffset uint64) ([][]byte, []uint64) {
	offsets := make([]uint64, len(clusters))
	bufs := make([][]byte, len(clusters))
	running := clustersOffset
	var prevSize uint64
	for i, rc := range clusters {
		offsets[i] = running

		var body []byte
		body = append(body, encodeElem(ebml.IDPosition, ebml.EncodeUInt(running))...)
		body = append(body, encodeElem(ebml.IDPrevSize, ebml.EncodeUInt(prevSize))...)
		body = append(body, rc.otherChildren...)
		if rc.hasCRC32 {
			// The CRC-32 element covers the cluster's remaining bytes
			// after itself, so it leads the body it protects.
			body = append(ebml.EncodeCRC32Element(body), body...)
		}

		full := encodeElem(ebml.IDCluster, body)
		bufs[i] = full
		running += uint64(len(full))
		prevSize = uint64(len(full))
	}
	return bufs, offsets
}

// rebuildCues rewrites every CuePoint's CueClusterPosition from its old
// segment-relative offset to the cluster's new one, via the map built from
// the same Clusters() scan that produced both the cues and the clusters
//. A CuePoint referencing an offset absent from
// oldToNew (stale data, or a cue the original muxer never resolved) is
// dropped rather than emitted pointing at garbage.
func rebuildCues(cues []ebml.CuePoint, oldToNew map[uint64]uint64) []byte {
	remapped := make([]ebml.CuePoint, 0, len(cues))
	for _, cue := range cues {
		nc := cue
		nc.Positions = make([]ebml.CueTrackPosition, 0, len(cue.Positions))
		for _, p := range cue.Positions {
			newOffset, ok := oldToNew[p.ClusterPosition]
			if !ok {
				continue
			}
			np := p
			np.ClusterPosition = newOffset
			nc.Positions = append(nc.Positions, np)
		}
		if len(nc.Positions) > 0 {
			remapped = append(remapped, nc)
		}
	}
	return ebml.EncodeCues(remapped)
}
