package matroska

import (
	"io"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/ebml"
	"github.com/tagkit/tagkit/element"
)

// ClusterInfo is one Cluster's offsets, as validateIndex and the rewrite
// engine both need them: its absolute start, its declared Position child
// (segment-relative, if present), and its declared PrevSize child.
type ClusterInfo struct {
	Elem           *element.Element
	Position       uint64
	HasPosition    bool
	PrevSize       uint64
	HasPrevSize    bool
}

// Clusters walks every top-level Cluster in the segment (not just the ones
// ParseContainer's early-exit happened to see), reading only each
// cluster's header-level Position/PrevSize children, never its block
// payload. This is the one walk in the driver that always visits every
// Cluster regardless of ForceFullParse, since index validation and the
// rewrite engine both need the complete list.
func (f *File) Clusters() ([]ClusterInfo, *diag.Error) {
	child, err := f.SegmentElem.FirstChild()
	if err != nil {
		return nil, err
	}
	var clusters []ClusterInfo
	for child != nil {
		if err := diag.CheckPoint(f.Progress); err != nil {
			return clusters, err
		}
		if uint32(child.ID) == ebml.IDCluster {
			ci := ClusterInfo{Elem: child}
			ccs, cerr := child.Children()
			if cerr != nil {
				return clusters, cerr
			}
			for _, cc := range ccs {
				switch uint32(cc.ID) {
				case ebml.IDPosition:
					data, rerr := ebml.ReadData(f.Stream, cc)
					if rerr != nil {
						return clusters, diag.Wrap(diag.Truncated, rerr, "reading Cluster Position")
					}
					ci.Position = ebml.UInt(data)
					ci.HasPosition = true
				case ebml.IDPrevSize:
					data, rerr := ebml.ReadData(f.Stream, cc)
					if rerr != nil {
						return clusters, diag.Wrap(diag.Truncated, rerr, "reading Cluster PrevSize")
					}
					ci.PrevSize = ebml.UInt(data)
					ci.HasPrevSize = true
				}
			}
			clusters = append(clusters, ci)
		}
		next, nerr := child.NextSibling()
		if nerr != nil {
			return clusters, nerr
		}
		child = next
	}
	return clusters, nil
}

// ValidateIndex implements validate_index: every CuePoint's
// CueClusterPosition must point to a real Cluster, every
// CueRelativePosition must land on a block-bearing element
// inside that cluster, every Cluster's declared Position must match its
// actual offset, and every Cluster's declared PrevSize must match the
// previous cluster's total size (0 for the first). Violations are
// recorded as diagnostics, never returned as a fatal error.
func (f *File) ValidateIndex() *diag.Error {
	clusters, err := f.Clusters()
	if err != nil {
		return err
	}
	segmentDataOffset := f.SegmentElem.DataOffset()

	byOffset := make(map[int64]*ClusterInfo, len(clusters))
	for i := range clusters {
		byOffset[clusters[i].Elem.StartOffset] = &clusters[i]
	}

	for i := range clusters {
		c := &clusters[i]
		actualPos := uint64(c.Elem.StartOffset - segmentDataOffset)
		if c.HasPosition && c.Position != actualPos {
			f.Diag.Warn("matroska: index", "Cluster at %d declares Position %d, actual %d", c.Elem.StartOffset, c.Position, actualPos)
		}
		expectedPrev := uint64(0)
		if i > 0 {
			expectedPrev = uint64(clusters[i-1].Elem.DataEnd() - clusters[i-1].Elem.StartOffset)
		}
		if c.HasPrevSize && c.PrevSize != expectedPrev {
			f.Diag.Warn("matroska: index", "Cluster at %d declares PrevSize %d, expected %d", c.Elem.StartOffset, c.PrevSize, expectedPrev)
		}
	}

	for _, cue := range f.Cues {
		for _, pos := range cue.Positions {
			clusterStart := int64(pos.ClusterPosition) + segmentDataOffset
			cluster, ok := byOffset[clusterStart]
			if !ok {
				f.Diag.Warn("matroska: index", "CuePoint at time %d references non-existent cluster at segment offset %d", cue.Time, pos.ClusterPosition)
				continue
			}
			relative := pos.RelativePosition
			if !pos.HasRelativePosition {
				relative = 0
			}
			ok, verr := blockAtRelativeOffset(f.Stream, cluster.Elem, relative)
			if verr != nil {
				f.Diag.AddError(diag.Warning, "matroska: index", verr)
				continue
			}
			if !ok {
				f.Diag.Warn("matroska: index", "CuePoint at time %d: relative offset %d in cluster at %d does not land on a block", cue.Time, relative, cluster.Elem.StartOffset)
			}
		}
	}
	return nil
}

// ValidateChecksums walks every top-level Segment child and verifies its
// CRC-32 element (if any) against its remaining bytes. Mismatches are recorded as Warning diagnostics,
// matching ValidateIndex's non-fatal treatment.
func (f *File) ValidateChecksums() *diag.Error {
	child, err := f.SegmentElem.FirstChild()
	if err != nil {
		return err
	}
	for child != nil {
		if err := diag.CheckPoint(f.Progress); err != nil {
			return err
		}
		if child.IsParent() {
			ok, verr := ebml.ValidateCRC32(f.Stream, child)
			if verr != nil {
				f.Diag.AddError(diag.Warning, "matroska: CRC-32 validation", verr)
			} else if !ok {
				f.Diag.Warn("matroska: CRC-32 validation", "element 0x%X at %d fails its CRC-32 check", uint32(child.ID), child.StartOffset)
			}
		}
		next, nerr := child.NextSibling()
		if nerr != nil {
			return nerr
		}
		child = next
	}
	return nil
}

// blockAtRelativeOffset reports whether offset bytes into cluster's data
// lands exactly on the start of a SimpleBlock, Block, or BlockGroup child.
func blockAtRelativeOffset(stream io.ReadSeeker, cluster *element.Element, offset uint64) (bool, *diag.Error) {
	target := cluster.DataOffset() + int64(offset)
	children, err := cluster.Children()
	if err != nil {
		return false, err
	}
	for _, c := range children {
		switch uint32(c.ID) {
		case ebml.IDSimpleBlock, ebml.IDBlock, ebml.IDBlockGroup:
			if c.StartOffset == target {
				return true, nil
			}
		}
	}
	return false, nil
}
