// Package ogg implements the Ogg container driver for the two codecs that
// carry Vorbis-comment metadata in tagkit's scope — Vorbis and Opus — plus
// enough of the FLAC-in-Ogg mapping to locate its comment block.
//
// File mirrors the matroska driver's File-facade shape, generalized to
// Ogg's flat page sequence: there is no element tree to walk, only an
// ordered run of packets recovered from oggpage.Iterator's lacing.
package ogg

import "github.com/tagkit/tagkit/diag"

// Codec identifies which Ogg-mapped codec a logical stream's identification
// packet declares.
type Codec int

const (
	CodecUnknown Codec = iota
	CodecVorbis
	CodecOpus
	CodecFlac
)

func (c Codec) String() string {
	switch c {
	case CodecVorbis:
		return "Vorbis"
	case CodecOpus:
		return "Opus"
	case CodecFlac:
		return "FLAC"
	default:
		return "Unknown"
	}
}

// VorbisIdentHeader is the Vorbis identification packet's scalar fields.
type VorbisIdentHeader struct {
	Version        uint32
	Channels       uint8
	SampleRate     uint32
	BitrateMaximum int32
	BitrateNominal int32
	BitrateMinimum int32
}

// OpusIdentHeader is the Opus identification packet's scalar fields,
// including output_gain and channel_mapping_family beyond the S4 scenario's
// sample_rate/channels/pre_skip.
type OpusIdentHeader struct {
	Version              uint8
	Channels             uint8
	PreSkip              uint16
	InputSampleRate      uint32
	OutputGain           int16
	ChannelMappingFamily uint8
}

// FlacMappingHeader is the one-byte-prefixed mapping header that precedes a
// FLAC-in-Ogg stream's native metadata blocks, reachable from this driver's
// codec dispatch once a stream identifies as FLAC-in-Ogg.
type FlacMappingHeader struct {
	MajorVersion      uint8
	MinorVersion      uint8
	HeaderPacketCount uint16
}

func parseVorbisIdent(data []byte) (*VorbisIdentHeader, *diag.Error) {
	if len(data) < 30 {
		return nil, diag.New(diag.Truncated, "ogg: Vorbis identification packet too short (%d bytes)", len(data))
	}
	return &VorbisIdentHeader{
		Version:        leUint32(data[7:11]),
		Channels:       data[11],
		SampleRate:     leUint32(data[12:16]),
		BitrateMaximum: int32(leUint32(data[16:20])),
		BitrateNominal: int32(leUint32(data[20:24])),
		BitrateMinimum: int32(leUint32(data[24:28])),
	}, nil
}

func parseOpusIdent(data []byte) (*OpusIdentHeader, *diag.Error) {
	if len(data) < 19 {
		return nil, diag.New(diag.Truncated, "ogg: Opus identification packet too short (%d bytes)", len(data))
	}
	return &OpusIdentHeader{
		Version:              data[8],
		Channels:              data[9],
		PreSkip:              leUint16(data[10:12]),
		InputSampleRate:      leUint32(data[12:16]),
		OutputGain:           int16(leUint16(data[16:18])),
		ChannelMappingFamily: data[18],
	}, nil
}

func parseFlacMapping(data []byte) (*FlacMappingHeader, *diag.Error) {
	if len(data) < 9 {
		return nil, diag.New(diag.Truncated, "ogg: FLAC mapping header too short (%d bytes)", len(data))
	}
	return &FlacMappingHeader{
		MajorVersion:      data[5],
		MinorVersion:      data[6],
		HeaderPacketCount: leUint16(data[7:9]),
	}, nil
}

func leUint16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func identifyCodec(data []byte) Codec {
	switch {
	case len(data) >= 7 && data[0] == 1 && string(data[1:7]) == "vorbis":
		return CodecVorbis
	case len(data) >= 8 && string(data[0:8]) == "OpusHead":
		return CodecOpus
	case len(data) >= 5 && data[0] == 0x7F && string(data[1:5]) == "FLAC":
		return CodecFlac
	default:
		return CodecUnknown
	}
}
