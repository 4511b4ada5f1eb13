package diag

// ParsingStatus tracks the lifecycle of one of a driver's five parse
// phases. The zero value is NotParsedYet so a freshly opened File reports
// it without any initialization.
type ParsingStatus int

const (
	NotParsedYet ParsingStatus = iota
	StatusOk
	NotSupported
	CriticalFailure
)

// String returns the status's name, e.g. "Ok".
func (s ParsingStatus) String() string {
	switch s {
	case NotParsedYet:
		return "NotParsedYet"
	case StatusOk:
		return "Ok"
	case NotSupported:
		return "NotSupported"
	case CriticalFailure:
		return "CriticalFailure"
	default:
		return "Unknown"
	}
}
