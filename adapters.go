package tagkit

import (
	"fmt"
	"io"

	"github.com/tagkit/tagkit/diag"
	"github.com/tagkit/tagkit/matroska"
	"github.com/tagkit/tagkit/mp3"
	"github.com/tagkit/tagkit/ogg"
	"github.com/tagkit/tagkit/signature"
)

// openMatroskaDriver opens a matroska.File and applies opts.ForceFullParse.
// Nothing further is parsed up front: the adapter's ParseTags calls
// matroska.File.ParseTags, which runs ParseContainer first, and Tags()
// lists nothing until that has happened.
func openMatroskaDriver(f io.ReadSeeker, size int64, opts ParseOptions) (matroskaDriver, *diag.Error) {
	mk, err := matroska.Open(f, size)
	if err != nil {
		return matroskaDriver{}, err
	}
	mk.ForceFullParse(opts.ForceFullParse)
	return matroskaDriver{mk}, nil
}

// matroskaDriver adapts matroska.File to the tagkit.driver interface.
type matroskaDriver struct{ f *matroska.File }

func (d matroskaDriver) Format() signature.ContainerFormat {
	if d.f.Header != nil && d.f.Header.DocType == "webm" {
		return signature.Webm
	}
	return signature.Matroska
}

func (d matroskaDriver) Diagnostics() *diag.Diagnostics { return d.f.Diag }

func (d matroskaDriver) ParseTags() *diag.Error { return d.f.ParseTags() }

func (d matroskaDriver) Tags() []string {
	out := make([]string, 0, len(d.f.Tags))
	for _, tag := range d.f.Tags {
		out = append(out, fmt.Sprintf("target=%d (%d fields)", tag.Target.Level, tag.Fields.Len()))
	}
	return out
}

func (d matroskaDriver) Rewrite(out io.Writer, opts SaveOptions) *diag.Error {
	return d.f.Rewrite(out, matroska.RewriteOptions{
		TagPosition:   matroska.Position(opts.TagPosition),
		IndexPosition: matroska.Position(opts.IndexPosition),
		ForceRewrite:  opts.ForceRewrite,
	})
}

// oggDriver adapts ogg.File to the tagkit.driver interface.
type oggDriver struct{ f *ogg.File }

func (d oggDriver) Format() signature.ContainerFormat { return signature.Ogg }

func (d oggDriver) Diagnostics() *diag.Diagnostics { return d.f.Diag }

func (d oggDriver) ParseTags() *diag.Error { return d.f.ParseTags() }

func (d oggDriver) Tags() []string {
	if d.f.Comment == nil {
		return nil
	}
	out := make([]string, 0, d.f.Comment.Fields.Len())
	for _, field := range d.f.Comment.Fields.All() {
		s, err := field.Value.String()
		if err != nil {
			continue
		}
		out = append(out, field.ID+"="+s)
	}
	return out
}

func (d oggDriver) Rewrite(out io.Writer, opts SaveOptions) *diag.Error {
	return d.f.Rewrite(out, opts.ForceRewrite)
}

// mp3Driver adapts mp3.File to the tagkit.driver interface.
type mp3Driver struct{ f *mp3.File }

func (d mp3Driver) Format() signature.ContainerFormat {
	if d.f.ID3v2 != nil {
		return signature.Id3v2Tag
	}
	return signature.MpegAudioFrames
}

func (d mp3Driver) Diagnostics() *diag.Diagnostics { return d.f.Diag }

func (d mp3Driver) ParseTags() *diag.Error { return nil } // mp3.Open already parses both tags

func (d mp3Driver) Tags() []string {
	var out []string
	if d.f.ID3v2 != nil {
		for _, field := range d.f.ID3v2.Fields.All() {
			s, err := field.Value.String()
			if err != nil {
				continue
			}
			out = append(out, field.ID.String()+"="+s)
		}
	}
	if d.f.ID3v1 != nil {
		for _, field := range d.f.ID3v1.Fields.All() {
			s, err := field.Value.String()
			if err != nil {
				continue
			}
			out = append(out, fmt.Sprintf("id3v1[%d]=%s", field.ID, s))
		}
	}
	return out
}

func (d mp3Driver) Rewrite(out io.Writer, opts SaveOptions) *diag.Error {
	return d.f.Rewrite(out, opts.ForceRewrite)
}
