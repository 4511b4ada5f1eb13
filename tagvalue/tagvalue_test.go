package tagvalue

import "testing"

func TestTextRoundTripUtf16LE(t *testing.T) {
	v, err := NewText("héllo", Utf16LE)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}
	got, serr := v.String()
	if serr != nil {
		t.Fatalf("String: %v", serr)
	}
	if got != "héllo" {
		t.Fatalf("got %q, want héllo", got)
	}
}

func TestTextRoundTripLatin1(t *testing.T) {
	v, err := NewText("café", Latin1)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}
	if len(v.Text) != 4 {
		t.Fatalf("expected 4 Latin-1 bytes, got %d", len(v.Text))
	}
	got, serr := v.String()
	if serr != nil {
		t.Fatalf("String: %v", serr)
	}
	if got != "café" {
		t.Fatalf("got %q", got)
	}
}

func TestIntegerToTextToInteger(t *testing.T) {
	v := NewInteger(42)
	text, err := v.AsText(Utf8)
	if err != nil {
		t.Fatalf("AsText: %v", err)
	}
	s, serr := text.String()
	if serr != nil || s != "42" {
		t.Fatalf("got %q, err %v", s, serr)
	}
	back, ierr := text.AsInteger()
	if ierr != nil {
		t.Fatalf("AsInteger: %v", ierr)
	}
	if back.Integer != 42 {
		t.Fatalf("got %d, want 42", back.Integer)
	}
}

func TestPositionInSetTextRoundTrip(t *testing.T) {
	v := NewPositionInSet(3, 12)
	text, err := v.AsText(Utf8)
	if err != nil {
		t.Fatalf("AsText: %v", err)
	}
	s, _ := text.String()
	if s != "3/12" {
		t.Fatalf("got %q, want 3/12", s)
	}
	back, perr := text.AsPositionInSet()
	if perr != nil {
		t.Fatalf("AsPositionInSet: %v", perr)
	}
	if back.Position.Position != 3 || back.Position.Total != 12 {
		t.Fatalf("got %+v", back.Position)
	}
}

func TestPositionInSetToIntegerLossyWhenTotalKnown(t *testing.T) {
	v := NewPositionInSet(3, 12)
	_, err := v.AsInteger()
	if err == nil {
		t.Fatal("expected Conversion error discarding the total")
	}
}

func TestPositionInSetToIntegerWhenTotalUnknown(t *testing.T) {
	v := NewPositionInSet(5, 0)
	got, err := v.AsInteger()
	if err != nil {
		t.Fatalf("AsInteger: %v", err)
	}
	if got.Integer != 5 {
		t.Fatalf("got %d, want 5", got.Integer)
	}
}

func TestTimeSpanTextRoundTrip(t *testing.T) {
	ticks := int64((1*3600+2*60+3)*10_000_000 + 4_500_000)
	v := NewTimeSpan(ticks)
	text, err := v.AsText(Utf8)
	if err != nil {
		t.Fatalf("AsText: %v", err)
	}
	s, _ := text.String()
	if s != "01:02:03.450" {
		t.Fatalf("got %q", s)
	}
	back, terr := text.AsTimeSpan()
	if terr != nil {
		t.Fatalf("AsTimeSpan: %v", terr)
	}
	if back.TimeSpanTicks != ticks {
		t.Fatalf("got %d, want %d", back.TimeSpanTicks, ticks)
	}
}

func TestPictureHasNoTextConversion(t *testing.T) {
	v := NewPicture([]byte{1, 2, 3}, "image/png", "cover")
	if _, err := v.AsText(Utf8); err == nil {
		t.Fatal("expected Conversion error for Picture to Text")
	}
}

func TestIntegerToBinaryBigEndian(t *testing.T) {
	v := NewInteger(0x0102)
	b, err := v.AsBinary()
	if err != nil {
		t.Fatalf("AsBinary: %v", err)
	}
	if len(b.Binary) != 2 || b.Binary[0] != 0x01 || b.Binary[1] != 0x02 {
		t.Fatalf("got %v", b.Binary)
	}
}
