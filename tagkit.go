// Package tagkit is the thin facade over the container drivers in
// tagkit/matroska, tagkit/ogg, and tagkit/mp3: it runs the signature
// probe (tagkit/signature), opens the matching driver, and exposes a
// single MediaFile type whose Tags/Tracks/Chapters/Attachments accessors
// and ApplyChanges method work the same way regardless of which driver is
// underneath.
//
// tagkit itself owns none of the hard engineering — the element tree, the
// EBML/Ogg codecs, the tag field model, and the rewrite engine all live in
// the packages this file imports. What lives here is dispatch, a uniform
// ParsingStatus view across the three drivers, and the backup-swap that
// apply_changes uses to make a rewrite crash-safe.
//
// Example usage:
//
//	mf, err := tagkit.Open("movie.mkv", tagkit.DefaultParseOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mf.Close()
//
//	if err := mf.ParseTags(); err != nil {
//	    log.Fatal(err)
//	}
//	for _, tag := range mf.Tags() {
//	    fmt.Println(tag)
//	}
package tagkit

import (
	"errors"
	"io"
	"os"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/mp3"
	"github.com/tagkit/tagkit/ogg"
	"github.com/tagkit/tagkit/signature"
)

const probeBufferSize = 265

// ParseOptions configures Open and the lazy Parse* calls that follow it,
// gathering the recognised configuration flags into a single explicit
// settings struct rather than functional options.
type ParseOptions struct {
	// ForceFullParse makes the Matroska driver keep scanning top-level
	// elements past the point it would otherwise stop at the first
	// Cluster once Tracks and Tags have both been located.
	ForceFullParse bool
}

// DefaultParseOptions returns the zero-value ParseOptions: no forced full
// parse, matching the drivers' own zero-value defaults.
func DefaultParseOptions() ParseOptions { return ParseOptions{} }

// SaveOptions configures ApplyChanges: where a rewrite places the
// Tags/Attachments block and the Cues index (Matroska only), and whether
// to force a full rewrite even when an in-place no-op copy would do
//.
type SaveOptions struct {
	TagPosition   Position
	IndexPosition Position
	ForceRewrite  bool
}

// Position mirrors matroska.Position for callers that never need to
// import the matroska package directly.
type Position int

const (
	PositionStart Position = iota
	PositionEnd
)

// DefaultSaveOptions places Tags/Attachments and Cues at the start of the
// segment and never forces a rewrite, matching a freshly-muxed file's
// usual layout.
func DefaultSaveOptions() SaveOptions { return SaveOptions{} }

// driver is the uniform method set MediaFile dispatches to; matroska.File,
// ogg.File, and mp3.File each implement it through a small per-format
// adapter below; design note on the source's virtual-inheritance
// AbstractContainer is exactly this: "a driver trait/interface with method
// table; concrete drivers are sum variants held by the file facade."
type driver interface {
	Format() signature.ContainerFormat
	Diagnostics() *diag.Diagnostics
	ParseTags() *diag.Error
	Tags() []string
	Rewrite(out io.Writer, opts SaveOptions) *diag.Error
}

// MediaFile is an open container file: the backing stream, the detected
// ContainerFormat, and whichever format-specific driver Open selected.
// Every status/parse/accessor method on MediaFile delegates to that
// driver, so a caller that only needs tags never has to know whether it
// is looking at a Matroska segment, an Ogg page sequence, or an MP3's
// ID3 brackets.
type MediaFile struct {
	path   string
	stream *os.File
	size   int64

	Format signature.ContainerFormat
	Opts   ParseOptions

	drv driver

	containerStatus diag.ParsingStatus
	tagsStatus      diag.ParsingStatus
}

// Open opens path, runs the signature probe on its leading bytes, and
// hands off to the matching driver's Open ("open(path) → File").
// A format the probe recognises but tagkit has no driver for (e.g. MP4,
// RIFF/WAVE) leaves ContainerStatus at NotSupported rather than failing
// the call outright, matching S3's "container_status = NotSupported"
// scenario for completely unrecognised input.
func Open(path string, opts ParseOptions) (*MediaFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := info.Size()

	probeBuf := make([]byte, probeBufferSize)
	n, _ := io.ReadFull(f, probeBuf)
	if _, serr := f.Seek(0, io.SeekStart); serr != nil {
		f.Close()
		return nil, serr
	}
	format := signature.Probe(probeBuf[:n])

	mf := &MediaFile{path: path, stream: f, size: size, Format: format, Opts: opts}

	drv, derr := openDriver(f, size, format, opts)
	if derr != nil {
		mf.containerStatus = diag.CriticalFailure
		f.Close()
		return nil, derr
	}
	if drv == nil {
		mf.containerStatus = diag.NotSupported
		mf.tagsStatus = diag.NotSupported
		return mf, nil
	}
	mf.drv = drv
	mf.containerStatus = diag.StatusOk
	return mf, nil
}

// openDriver selects and opens the format-specific driver for format,
// returning (nil, nil) for a recognised-but-undriven format (S3's
// "NotSupported" path) rather than an error.
func openDriver(f *os.File, size int64, format signature.ContainerFormat, opts ParseOptions) (driver, *diag.Error) {
	switch format {
	case signature.Matroska, signature.Webm, signature.Ebml:
		mk, err := openMatroskaDriver(f, size, opts)
		if err != nil {
			return nil, err
		}
		return mk, nil
	case signature.Ogg:
		og, err := ogg.Open(f, size)
		if err != nil {
			return nil, err
		}
		return oggDriver{og}, nil
	case signature.Id3v2Tag, signature.MpegAudioFrames:
		mp, err := mp3.Open(f, size)
		if err != nil {
			return nil, err
		}
		return mp3Driver{mp}, nil
	default:
		return nil, nil
	}
}

// ContainerStatus reports whether Open successfully selected a driver for
// this file.
func (mf *MediaFile) ContainerStatus() diag.ParsingStatus { return mf.containerStatus }

// TagsStatus reports ParseTags's outcome, NotParsedYet until it (or an
// equivalent driver call) has run.
func (mf *MediaFile) TagsStatus() diag.ParsingStatus { return mf.tagsStatus }

// Diagnostics returns the active driver's diagnostics log, or a fresh
// empty one if Open never found a driver for this file.
func (mf *MediaFile) Diagnostics() *diag.Diagnostics {
	if mf.drv == nil {
		return diag.NewDiagnostics()
	}
	return mf.drv.Diagnostics()
}

// ParseTags runs the active driver's tag parse phase, idempotently. Calling it on a
// file Open left without a driver is a no-op that leaves TagsStatus at
// NotSupported.
func (mf *MediaFile) ParseTags() error {
	if mf.drv == nil {
		return nil
	}
	if mf.tagsStatus != diag.NotParsedYet {
		return nil
	}
	if err := mf.drv.ParseTags(); err != nil {
		mf.tagsStatus = diag.CriticalFailure
		return err
	}
	mf.tagsStatus = diag.StatusOk
	return nil
}

// Tags returns a human-readable summary of every parsed tag field.
// MediaFile's facade role only needs a display-ready view — callers after
// the structured FieldMap use the format-specific driver directly; a
// richer CLI output formatter belongs outside this package.
func (mf *MediaFile) Tags() []string {
	if mf.drv == nil {
		return nil
	}
	return mf.drv.Tags()
}

// ApplyChanges runs the active driver's rewrite engine (// "apply_changes(file, diag, progress)"), writing to a temporary sibling
// file, then swapping it into place and re-opening it under the same
// *MediaFile.
func (mf *MediaFile) ApplyChanges(opts SaveOptions) error {
	if mf.drv == nil {
		return errors.New("tagkit: no driver open for this file")
	}

	backupPath := mf.path + ".tagkit-bak"
	tmpPath := mf.path + ".tagkit-tmp"

	tmp, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	rerr := mf.drv.Rewrite(tmp, opts)
	closeErr := tmp.Close()
	if rerr != nil {
		os.Remove(tmpPath)
		return rerr
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return closeErr
	}
	if mf.drv.Diagnostics().HasCritical() {
		os.Remove(tmpPath)
		return errors.New("tagkit: rewrite recorded a critical diagnostic, original file left untouched")
	}

	if err := mf.stream.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(mf.path, backupPath); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, mf.path); err != nil {
		// Restore the original so a failed swap never leaves the caller
		// without either file.
		os.Rename(backupPath, mf.path)
		return err
	}

	newStream, err := os.Open(mf.path)
	if err != nil {
		os.Rename(backupPath, mf.path)
		return err
	}
	info, serr := newStream.Stat()
	if serr != nil {
		newStream.Close()
		os.Rename(backupPath, mf.path)
		return serr
	}

	mf.stream = newStream
	mf.size = info.Size()
	mf.tagsStatus = diag.NotParsedYet
	mf.containerStatus = diag.NotParsedYet
	drv, derr := openDriver(newStream, mf.size, mf.Format, mf.Opts)
	if derr != nil {
		return derr
	}
	mf.drv = drv
	mf.containerStatus = diag.StatusOk

	return os.Remove(backupPath)
}

// Close releases the underlying file handle.
func (mf *MediaFile) Close() error {
	if mf.stream == nil {
		return nil
	}
	return mf.stream.Close()
}
