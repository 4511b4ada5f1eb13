// Package signature classifies the first bytes of a media container stream
// into a ContainerFormat, one level above the matroska driver's own
// DocType check that tells Matroska from WebM: this runs before any driver
// is selected at all.
package signature

import "bytes"

// ContainerFormat is a closed enum of container/raw-stream formats tagkit
// can recognize from a signature probe. Most variants are recognized only
// well enough to be reported; only a handful (Ebml/Matroska/Webm, Ogg,
// Id3v2Tag/MpegAudioFrames) have a driver in tagkit/{matroska,ogg,mp3}.
type ContainerFormat int

const (
	Unknown ContainerFormat = iota
	Ac3Frames
	Adts
	Ar
	Asf
	Bzip2
	Dirac
	Ebml
	Elf
	Flac
	FlashVideo
	Gif87a
	Gif89a
	Gzip
	Id3v2Tag
	Ivf
	JavaClassFile
	Jpeg
	Lha
	Lzip
	Lzw
	Matroska
	Midi
	MonkeysAudio
	Mp4
	MpegAudioFrames
	Ogg
	PhotoshopDocument
	Png
	PortableExecutable
	QuickTime
	Rar
	Riff
	RiffAvi
	RiffWave
	SevenZ
	Tar
	TiffBigEndian
	TiffLittleEndian
	Utf16Text
	Utf32Text
	Utf8Text
	WavPack
	Webm
	WindowsBitmap
	WindowsIcon
	Xz
	YUV4Mpeg2
	Zip
	Aiff
	Zstd
	ApeTag
)

var names = map[ContainerFormat]string{
	Unknown: "unknown", Ac3Frames: "AC-3 frames", Adts: "ADTS", Ar: "ar archive",
	Asf: "ASF", Bzip2: "bzip2", Dirac: "Dirac", Ebml: "EBML", Elf: "ELF",
	Flac: "FLAC", FlashVideo: "Flash Video", Gif87a: "GIF87a", Gif89a: "GIF89a",
	Gzip: "gzip", Id3v2Tag: "ID3v2 tag", Ivf: "IVF", JavaClassFile: "Java class file",
	Jpeg: "JPEG", Lha: "LHA", Lzip: "lzip", Lzw: "LZW", Matroska: "Matroska",
	Midi: "MIDI", MonkeysAudio: "Monkey's Audio", Mp4: "MPEG-4 Part 14",
	MpegAudioFrames: "MPEG audio frames", Ogg: "Ogg", PhotoshopDocument: "Photoshop document",
	Png: "PNG", PortableExecutable: "Portable Executable", QuickTime: "QuickTime",
	Rar: "RAR", Riff: "RIFF", RiffAvi: "AVI", RiffWave: "WAVE", SevenZ: "7z",
	Tar: "tar", TiffBigEndian: "TIFF (big endian)", TiffLittleEndian: "TIFF (little endian)",
	Utf16Text: "UTF-16 text", Utf32Text: "UTF-32 text", Utf8Text: "UTF-8 text",
	WavPack: "WavPack", Webm: "WebM", WindowsBitmap: "Windows Bitmap", WindowsIcon: "Windows Icon",
	Xz: "xz", YUV4Mpeg2: "YUV4MPEG2", Zip: "ZIP", Aiff: "AIFF", Zstd: "Zstandard", ApeTag: "APE tag",
}

// Name returns a human-readable name for the format.
func (f ContainerFormat) Name() string {
	if n, ok := names[f]; ok {
		return n
	}
	return "unknown"
}

// entry is one row of the signature table.
type entry struct {
	offset int
	magic  []byte
	format ContainerFormat
	// confirm, if set, is consulted with the bytes at (and after) offset+len(magic)
	// to distinguish sub-formats sharing a prefix (e.g. RIFF/WAVE vs RIFF/AVI).
	confirm func(buf []byte) ContainerFormat
}

var table = []entry{
	{0, []byte{0x1A, 0x45, 0xDF, 0xA3}, Ebml, nil}, // dispatch refined by DocType, see ProbeEBMLDocType
	{0, []byte("OggS"), Ogg, nil},
	{4, []byte("ftyp"), Mp4, nil},
	{0, []byte("ID3"), Id3v2Tag, nil},
	{0, []byte("fLaC"), Flac, nil},
	{0, []byte{0x30, 0x26, 0xB2, 0x75, 0x8E, 0x66, 0xCF, 0x11}, Asf, nil},
	{0, []byte("RIFF"), Riff, func(buf []byte) ContainerFormat {
		if len(buf) >= 16 && bytes.Equal(buf[8:12], []byte("WAVE")) {
			return RiffWave
		}
		if len(buf) >= 16 && bytes.Equal(buf[8:16], []byte("AVI LIST")) {
			return RiffAvi
		}
		return Riff
	}},
	{0, []byte("FORM"), Aiff, nil},
	{0, []byte{0x42, 0x5A, 0x68}, Bzip2, nil},
	{0, []byte{0x1F, 0x8B}, Gzip, nil},
	{0, []byte("GIF87a"), Gif87a, nil},
	{0, []byte("GIF89a"), Gif89a, nil},
	{0, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, Png, nil},
	{0, []byte{0xFF, 0xD8, 0xFF}, Jpeg, nil},
	{0, []byte("PK\x03\x04"), Zip, nil},
	{0, []byte("PK\x05\x06"), Zip, nil},
	{0, []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}, SevenZ, nil},
	{0, []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}, Xz, nil},
	{0, []byte{0x28, 0xB5, 0x2F, 0xFD}, Zstd, nil},
	{0, []byte("8BPS"), PhotoshopDocument, nil},
	{0, []byte{0x4D, 0x5A}, PortableExecutable, nil},
	{0, []byte{0x7F, 'E', 'L', 'F'}, Elf, nil},
	{0, []byte{0xCA, 0xFE, 0xBA, 0xBE}, JavaClassFile, nil},
	{0, []byte{0x49, 0x49, 0x2A, 0x00}, TiffLittleEndian, nil},
	{0, []byte{0x4D, 0x4D, 0x00, 0x2A}, TiffBigEndian, nil},
	{0, []byte("BM"), WindowsBitmap, nil},
	{0, []byte{0x00, 0x00, 0x01, 0x00}, WindowsIcon, nil},
	{0, []byte("YUV4MPEG2"), YUV4Mpeg2, nil},
	{0, []byte("DKIF"), Ivf, nil},
	{0, []byte("MThd"), Midi, nil},
	{0, []byte("MAC "), MonkeysAudio, nil},
	{0, []byte("wvpk"), WavPack, nil},
	{0, []byte{0xEF, 0xBB, 0xBF}, Utf8Text, nil},
	{0, []byte{0xFF, 0xFE, 0x00, 0x00}, Utf32Text, nil},
	{0, []byte{0xFF, 0xFE}, Utf16Text, nil},
	{0, []byte("!<arch>\n"), Ar, nil},
	{257, []byte("ustar"), Tar, nil},
	{0, []byte("APETAGEX"), ApeTag, nil},
}

// Probe classifies buf, the first bytes of a stream (the caller should
// supply at least 265 bytes where available so the tar check at offset 257
// can match; shorter buffers simply miss formats whose signature lies past
// the buffer's end). It returns Unknown when nothing matches, never an
// error: an unrecognized signature is itself meaningful information to S3's
// "container_status = NotSupported" scenario, not a failure of the probe.
//
// MPEG audio frame sync (the 11-bit 0xFFEx/0xFFFx pattern) and FLV are
// recognized as a fallback after the magic-byte table, since they lack a
// byte-aligned magic string.
func Probe(buf []byte) ContainerFormat {
	for _, e := range table {
		if e.offset+len(e.magic) > len(buf) {
			continue
		}
		if bytes.Equal(buf[e.offset:e.offset+len(e.magic)], e.magic) {
			if e.confirm != nil {
				return e.confirm(buf)
			}
			return e.format
		}
	}
	if len(buf) >= 3 && buf[0] == 'F' && buf[1] == 'L' && buf[2] == 'V' {
		return FlashVideo
	}
	if len(buf) >= 2 && buf[0] == 0xFF && (buf[1]&0xE0) == 0xE0 {
		return MpegAudioFrames
	}
	return Unknown
}

// ProbeEBMLDocType refines an Ebml classification using the EBML header's
// DocType string, as requires ("dispatch on DocType →
// Matroska/WebM/other").
func ProbeEBMLDocType(docType string) ContainerFormat {
	switch docType {
	case "matroska":
		return Matroska
	case "webm":
		return Webm
	default:
		return Ebml
	}
}

// MimeType returns the canonical MIME type for a format, or "" if tagkit
// does not assign one.
func MimeType(f ContainerFormat) string {
	switch f {
	case Matroska:
		return "video/x-matroska"
	case Webm:
		return "video/webm"
	case Ogg:
		return "application/ogg"
	case Mp4:
		return "video/mp4"
	case Id3v2Tag, MpegAudioFrames:
		return "audio/mpeg"
	case Flac:
		return "audio/flac"
	case RiffWave:
		return "audio/wav"
	case RiffAvi:
		return "video/avi"
	case Aiff:
		return "audio/aiff"
	default:
		return ""
	}
}

// Extension returns the canonical file extension (without a leading dot)
// for a format, or "" if tagkit does not assign one.
func Extension(f ContainerFormat) string {
	switch f {
	case Matroska:
		return "mkv"
	case Webm:
		return "webm"
	case Ogg:
		return "ogg"
	case Mp4:
		return "mp4"
	case Id3v2Tag, MpegAudioFrames:
		return "mp3"
	case Flac:
		return "flac"
	case RiffWave:
		return "wav"
	case RiffAvi:
		return "avi"
	case Aiff:
		return "aiff"
	default:
		return ""
	}
}

// TargetLevelMapping associates a Matroska-family TagTarget level with its
// human-readable name. It is only
// meaningful for Matroska/Webm; other formats return "" for every level.
func TargetLevelMapping(f ContainerFormat, level uint64) string {
	if f != Matroska && f != Webm {
		return ""
	}
	switch level {
	case 10:
		return "Shot"
	case 20:
		return "Subtrack"
	case 30:
		return "Track"
	case 40:
		return "Part"
	case 50:
		return "Album"
	case 60:
		return "Edition"
	case 70:
		return "Collection"
	default:
		return ""
	}
}
