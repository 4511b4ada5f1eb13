package ebml

import (
	"io"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/element"
)

// CueTrackPosition is one CueTrackPositions entry within a CuePoint.
type CueTrackPosition struct {
	Track             uint64
	ClusterPosition   uint64 // segment-relative offset of the Cluster
	RelativePosition  uint64 // offset within the cluster's data to the block; 0 if absent
	HasRelativePosition bool
	Duration          uint64
	HasDuration       bool
	BlockNumber       uint64
	HasBlockNumber    bool
	CodecState        uint64
	HasCodecState     bool
	References        []int64
}

// CuePoint is one indexed timestamp, with one or more track positions.
type CuePoint struct {
	Time      uint64
	Positions []CueTrackPosition
	Source    *element.Element
}

// ParseCues reads every CuePoint under a Cues element.
func ParseCues(stream io.ReadSeeker, cuesElem *element.Element) ([]CuePoint, *diag.Error) {
	var cues []CuePoint
	children, err := cuesElem.Children()
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		if uint32(c.ID) != IDCuePoint {
			continue
		}
		cue := CuePoint{Source: c}
		cc, cerr := c.Children()
		if cerr != nil {
			return nil, cerr
		}
		for _, child := range cc {
			switch uint32(child.ID) {
			case IDCueTime:
				data, rerr := ReadData(stream, child)
				if rerr != nil {
					return nil, diag.Wrap(diag.Truncated, rerr, "reading CueTime")
				}
				cue.Time = UInt(data)
			case IDCueTrackPositions:
				pos, perr := parseCueTrackPositions(stream, child)
				if perr != nil {
					return nil, perr
				}
				cue.Positions = append(cue.Positions, pos)
			}
		}
		cues = append(cues, cue)
	}
	return cues, nil
}

func parseCueTrackPositions(stream io.ReadSeeker, e *element.Element) (CueTrackPosition, *diag.Error) {
	var p CueTrackPosition
	children, err := e.Children()
	if err != nil {
		return p, err
	}
	for _, c := range children {
		data, rerr := ReadData(stream, c)
		if rerr != nil {
			return p, diag.Wrap(diag.Truncated, rerr, "reading CueTrackPositions child 0x%X", uint32(c.ID))
		}
		switch uint32(c.ID) {
		case IDCueTrack:
			p.Track = UInt(data)
		case IDCueClusterPosition:
			p.ClusterPosition = UInt(data)
		case IDCueRelativePosition:
			p.RelativePosition = UInt(data)
			p.HasRelativePosition = true
		case IDCueDuration:
			p.Duration = UInt(data)
			p.HasDuration = true
		case IDCueBlockNumber:
			p.BlockNumber = UInt(data)
			p.HasBlockNumber = true
		case IDCueCodecState:
			p.CodecState = UInt(data)
			p.HasCodecState = true
		case IDCueReference:
			p.References = append(p.References, Int(data))
		}
	}
	return p, nil
}

// EncodeCues serializes cues as a full Cues element, used by the rewrite
// engine once final cluster offsets are known.
func EncodeCues(cues []CuePoint) []byte {
	var body []byte
	for _, cue := range cues {
		var cueBody []byte
		cueBody = append(cueBody, encodeChild(IDCueTime, EncodeUInt(cue.Time))...)
		for _, p := range cue.Positions {
			var posBody []byte
			posBody = append(posBody, encodeChild(IDCueTrack, EncodeUInt(p.Track))...)
			posBody = append(posBody, encodeChild(IDCueClusterPosition, EncodeUInt(p.ClusterPosition))...)
			if p.HasRelativePosition {
				posBody = append(posBody, encodeChild(IDCueRelativePosition, EncodeUInt(p.RelativePosition))...)
			}
			if p.HasDuration {
				posBody = append(posBody, encodeChild(IDCueDuration, EncodeUInt(p.Duration))...)
			}
			if p.HasBlockNumber {
				posBody = append(posBody, encodeChild(IDCueBlockNumber, EncodeUInt(p.BlockNumber))...)
			}
			if p.HasCodecState {
				posBody = append(posBody, encodeChild(IDCueCodecState, EncodeUInt(p.CodecState))...)
			}
			for _, ref := range p.References {
				posBody = append(posBody, encodeChild(IDCueReference, EncodeInt(ref))...)
			}
			cueBody = append(cueBody, encodeChild(IDCueTrackPositions, posBody)...)
		}
		body = append(body, encodeChild(IDCuePoint, cueBody)...)
	}
	return encodeChild(IDCues, body)
}
