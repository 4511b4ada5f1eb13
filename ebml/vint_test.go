package ebml

import "testing"

func TestDecodeVInt(t *testing.T) {
	testCases := []struct {
		name             string
		input            []byte
		keepLengthMarker bool
		expectedVal      uint64
		expectedLen      int
		expectErr        bool
	}{
		{"1-byte value", []byte{0x81}, false, 1, 1, false},
		{"1-byte max value", []byte{0xFF}, false, 127, 1, false},
		{"1-byte with length marker", []byte{0x81}, true, 0x81, 1, false},
		{"2-byte value", []byte{0x40, 0x01}, false, 1, 2, false},
		{"2-byte with length marker", []byte{0x50, 0x11}, true, 0x5011, 2, false},
		{"4-byte max value", []byte{0x1F, 0xFF, 0xFF, 0xFF}, false, (1 << 28) - 1, 4, false},
		{"8-byte with length marker", []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}, true, 0x0123456789ABCDEF, 8, false},
		{"invalid zero byte", []byte{0x00}, false, 0, 0, true},
		{"truncated", []byte{0x10, 0x00}, false, 0, 0, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			val, length, err := DecodeVInt(tc.input, tc.keepLengthMarker)
			if tc.expectErr {
				if err == nil {
					t.Fatalf("expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if val != tc.expectedVal || length != tc.expectedLen {
				t.Fatalf("got (%d, %d), want (%d, %d)", val, length, tc.expectedVal, tc.expectedLen)
			}
		})
	}
}

// TestSizeRoundTrip exercises for any n in a representable
// range, decode(encode(n, len)) == n for every valid len, and the shortest
// encoding is chosen when len == 0.
func TestSizeRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 126, 127, 128, 16383, 16384, 1 << 20, (1 << 28) - 2}
	for _, n := range values {
		buf, err := EncodeSize(n, 0)
		if err != nil {
			t.Fatalf("EncodeSize(%d, 0): %v", n, err)
		}
		got, length, derr := DecodeVInt(buf, false)
		if derr != nil {
			t.Fatalf("DecodeVInt: %v", derr)
		}
		if got != n {
			t.Fatalf("round trip mismatch: encoded %d, decoded %d", n, got)
		}
		if length != len(buf) {
			t.Fatalf("length mismatch: %d vs %d", length, len(buf))
		}
	}
}

func TestEncodeSizeMinimumWidth(t *testing.T) {
	buf, err := EncodeSize(1, 4)
	if err != nil {
		t.Fatalf("EncodeSize: %v", err)
	}
	if len(buf) != 4 {
		t.Fatalf("expected 4-byte encoding, got %d bytes", len(buf))
	}
	got, _, derr := DecodeVInt(buf, false)
	if derr != nil || got != 1 {
		t.Fatalf("round trip failed: got=%d err=%v", got, derr)
	}
}

func TestIsUnknownSize(t *testing.T) {
	buf, _ := EncodeSize(0, 1)
	buf[0] = 0xFF // all-ones, 1-byte unknown-size marker
	val, length, err := DecodeVInt(buf, false)
	if err != nil {
		t.Fatalf("DecodeVInt: %v", err)
	}
	if !IsUnknownSize(val, length) {
		t.Fatalf("expected unknown size for all-ones pattern")
	}
}
