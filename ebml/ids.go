package ebml

import "fmt"

// Element IDs for the Matroska/WebM element tree: the core structural
// elements plus the handful the rewrite engine and tag/chapter/attachment
// drivers additionally need (SeekHead/Seek children, Cues children,
// Tags/Chapters/Attachments children, Void, CRC-32).
const (
	IDEBMLHeader             = 0x1A45DFA3
	IDEBMLVersion            = 0x4286
	IDEBMLReadVersion        = 0x42F7
	IDEBMLMaxIDLength        = 0x42F2
	IDEBMLMaxSizeLength      = 0x42F3
	IDEBMLDocType            = 0x4282
	IDEBMLDocTypeVersion     = 0x4287
	IDEBMLDocTypeReadVersion = 0x4285

	IDSegment = 0x18538067

	IDSeekHead = 0x114D9B74
	IDSeek     = 0x4DBB
	IDSeekID   = 0x53AB
	IDSeekPos  = 0x53AC

	IDSegmentInfo     = 0x1549A966
	IDSegmentUID      = 0x73A4
	IDSegmentFilename = 0x7384
	IDPrevUID         = 0x3CB923
	IDPrevFilename    = 0x3C83AB
	IDNextUID         = 0x3EB923
	IDNextFilename    = 0x3E83BB
	IDSegmentFamily   = 0x4444
	IDTimestampScale  = 0x2AD7B1
	IDDuration        = 0x4489
	IDDateUTC         = 0x4461
	IDTitle           = 0x7BA9
	IDMuxingApp       = 0x4D80
	IDWritingApp      = 0x5741

	IDTracks     = 0x1654AE6B
	IDTrackEntry = 0xAE
	IDTrackNum   = 0xD7
	IDTrackUID   = 0x73C5
	IDTrackType  = 0x83
	IDTrackName  = 0x536E
	IDLanguage   = 0x22B59C
	IDCodecID    = 0x86
	IDCodecPriv  = 0x63A2
	IDCodecName  = 0x258688
	IDVideo      = 0xE0
	IDAudio      = 0xE1

	IDFlagInterlaced = 0x9A
	IDPixelWidth     = 0xB0
	IDPixelHeight    = 0xBA
	IDDisplayWidth   = 0x54B0
	IDDisplayHeight  = 0x54BA

	IDSamplingFrequency       = 0xB5
	IDOutputSamplingFrequency = 0x78B5
	IDChannels                = 0x9F
	IDBitDepth                = 0x6264

	IDCluster     = 0x1F43B675
	IDTimestamp   = 0xE7
	IDPosition    = 0xA7
	IDPrevSize    = 0xAB
	IDSimpleBlock = 0xA3
	IDBlockGroup  = 0xA0
	IDBlock       = 0xA1

	IDCues                = 0x1C53BB6B
	IDCuePoint            = 0xBB
	IDCueTime             = 0xB3
	IDCueTrackPositions   = 0xB7
	IDCueTrack            = 0xF7
	IDCueClusterPosition  = 0xF1
	IDCueRelativePosition = 0xF0
	IDCueDuration         = 0xB2
	IDCueBlockNumber      = 0x5378
	IDCueCodecState       = 0xEA
	IDCueReference        = 0xDB

	IDChapters           = 0x1043A770
	IDEditionEntry       = 0x45B9
	IDChapterAtom        = 0xB6
	IDChapterUID         = 0x73C4
	IDChapterTimeStart   = 0x91
	IDChapterTimeEnd     = 0x92
	IDChapterFlagHidden  = 0x98
	IDChapterFlagEnabled = 0x4598
	IDChapterDisplay     = 0x80
	IDChapString         = 0x85
	IDChapLanguage       = 0x437C
	IDChapLanguageIETF   = 0x437D
	IDChapterTrack       = 0x8F
	IDChapterTrackUID    = 0x89

	IDTags        = 0x1254C367
	IDTag         = 0x7373
	IDTargets     = 0x63C0
	IDTargetType  = 0x63CA
	IDTargetValue = 0x68CA
	IDTagTrackUID = 0x63C5
	IDTagEditionUID = 0x63C9
	IDTagChapterUID = 0x63C4
	IDTagAttachmentUID = 0x63C6
	IDSimpleTag   = 0x67C8
	IDTagName     = 0x45A3
	IDTagLanguage = 0x447A
	IDTagDefault  = 0x4484
	IDTagString   = 0x4487
	IDTagBinary   = 0x4485

	IDAttachments    = 0x1941A469
	IDAttachedFile   = 0x61A7
	IDFileDescription = 0x467E
	IDFileName       = 0x466E
	IDFileMimeType   = 0x4660
	IDFileData       = 0x465C
	IDFileUID        = 0x46AE

	IDVoid  = 0xEC
	IDCRC32 = 0xBF
)

// parentIDs is the fixed table of element IDs that can have children.
var parentIDs = map[uint32]bool{
	IDEBMLHeader: true,
	IDSegment:    true,

	IDSeekHead: true,
	IDSeek:     true,

	IDSegmentInfo: true,

	IDTracks:     true,
	IDTrackEntry: true,
	IDVideo:      true,
	IDAudio:      true,

	IDCluster:    true,
	IDBlockGroup: true,

	IDCues:              true,
	IDCuePoint:          true,
	IDCueTrackPositions: true,

	IDChapters:     true,
	IDEditionEntry: true,
	IDChapterAtom:  true,
	IDChapterDisplay: true,
	IDChapterTrack: true,

	IDTags:      true,
	IDTag:       true,
	IDTargets:   true,
	IDSimpleTag: true,

	IDAttachments:  true,
	IDAttachedFile: true,
}

// IsParentID reports whether id names a known parent element.
func IsParentID(id uint32) bool { return parentIDs[id] }

// idNames is used only for diagnostics messages.
var idNames = map[uint32]string{
	IDEBMLHeader: "EBML", IDSegment: "Segment", IDSeekHead: "SeekHead", IDSeek: "Seek",
	IDSegmentInfo: "Info", IDTracks: "Tracks", IDTrackEntry: "TrackEntry",
	IDCluster: "Cluster", IDCues: "Cues", IDCuePoint: "CuePoint",
	IDChapters: "Chapters", IDTags: "Tags", IDTag: "Tag", IDSimpleTag: "SimpleTag",
	IDAttachments: "Attachments", IDAttachedFile: "AttachedFile",
	IDVoid: "Void", IDCRC32: "CRC-32",
}

// Name returns a human name for id, or a hex fallback.
func Name(id uint32) string {
	if n, ok := idNames[id]; ok {
		return n
	}
	return fmt.Sprintf("0x%X", id)
}
