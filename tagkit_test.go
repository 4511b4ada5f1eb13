package tagkit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/id3v1"
	"github.com/tagkit/tagkit/signature"
	"github.com/tagkit/tagkit/tagvalue"
)

func writeFakeMp3(t *testing.T, path string) {
	t.Helper()
	audio := make([]byte, 64)
	audio[0] = 0xFF
	audio[1] = 0xFB
	for i := 2; i < len(audio); i++ {
		audio[i] = byte(i)
	}
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestOpenDetectsMpegAudioFrames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audio.mp3")
	writeFakeMp3(t, path)

	mf, err := Open(path, DefaultParseOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer mf.Close()

	if mf.ContainerStatus() != diag.StatusOk {
		t.Fatalf("got container status %v, want StatusOk", mf.ContainerStatus())
	}
	if mf.Format != signature.MpegAudioFrames {
		t.Fatalf("got format %v, want MpegAudioFrames", mf.Format)
	}
	if mf.drv == nil {
		t.Fatal("expected a driver to be selected")
	}
}

func TestApplyChangesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audio.mp3")
	writeFakeMp3(t, path)

	mf, err := Open(path, DefaultParseOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer mf.Close()

	mp, ok := mf.drv.(mp3Driver)
	if !ok {
		t.Fatalf("expected mp3Driver, got %T", mf.drv)
	}
	v1 := id3v1.NewTag()
	title, terr := tagvalue.NewText("Round Trip", tagvalue.Latin1)
	if terr != nil {
		t.Fatalf("NewText: %v", terr)
	}
	v1.Fields.Add(id3v1.SlotTitle, title)
	mp.f.SetID3v1Tag(v1)

	if err := mf.ApplyChanges(DefaultSaveOptions()); err != nil {
		t.Fatalf("ApplyChanges: %v", err)
	}

	info, serr := os.Stat(path)
	if serr != nil {
		t.Fatalf("Stat: %v", serr)
	}
	if info.Size() != 64+int64(id3v1.Size) {
		t.Fatalf("got size %d, want %d", info.Size(), 64+id3v1.Size)
	}
	if _, err := os.Stat(path + ".tagkit-bak"); !os.IsNotExist(err) {
		t.Fatal("expected backup file to be cleaned up after a successful rewrite")
	}
}

func TestOpenUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "random.bin")
	if err := os.WriteFile(path, []byte("not a media container, just filler bytes"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	mf, err := Open(path, DefaultParseOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer mf.Close()

	if mf.ContainerStatus() != diag.NotSupported {
		t.Fatalf("got container status %v, want NotSupported", mf.ContainerStatus())
	}
	if mf.Format != signature.Unknown {
		t.Fatalf("got format %v, want Unknown", mf.Format)
	}
}
