package signature

import "testing"

func TestProbe(t *testing.T) {
	testCases := []struct {
		name     string
		input    []byte
		expected ContainerFormat
	}{
		{"ebml", []byte{0x1A, 0x45, 0xDF, 0xA3, 0x9F, 0x42, 0x86, 0x81, 0x01}, Ebml},
		{"ogg", []byte("OggS\x00\x02"), Ogg},
		{"id3v2", []byte("ID3\x03\x00\x00\x00\x00\x00\x00"), Id3v2Tag},
		{"mp4", append([]byte{0, 0, 0, 0x18}, []byte("ftypisom")...), Mp4},
		{"flac", []byte("fLaC\x00\x00\x00\x22"), Flac},
		{"riff-wave", append([]byte("RIFF\x24\x00\x00\x00"), []byte("WAVEfmt ")...), RiffWave},
		{"riff-avi", append([]byte("RIFF\x24\x00\x00\x00"), []byte("AVI LIST")...), RiffAvi},
		{"mpeg-audio-frame", []byte{0xFF, 0xFB, 0x90, 0x00}, MpegAudioFrames},
		{"unknown", []byte{0x00, 0x01, 0x02, 0x03}, Unknown},
		{"too-short", []byte{0x1A}, Unknown},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Probe(tc.input); got != tc.expected {
				t.Errorf("Probe(%q) = %v, want %v", tc.name, got, tc.expected)
			}
		})
	}
}

func TestProbeEBMLDocType(t *testing.T) {
	if got := ProbeEBMLDocType("matroska"); got != Matroska {
		t.Errorf("got %v, want Matroska", got)
	}
	if got := ProbeEBMLDocType("webm"); got != Webm {
		t.Errorf("got %v, want Webm", got)
	}
	if got := ProbeEBMLDocType("something-else"); got != Ebml {
		t.Errorf("got %v, want Ebml", got)
	}
}

func TestTargetLevelMapping(t *testing.T) {
	if got := TargetLevelMapping(Matroska, 50); got != "Album" {
		t.Errorf("got %q, want Album", got)
	}
	if got := TargetLevelMapping(Ogg, 50); got != "" {
		t.Errorf("non-Matroska format should map to \"\", got %q", got)
	}
}
