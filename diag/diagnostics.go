package diag

import "fmt"

// Severity ranks a diagnostic entry. The zero value, None, means "nothing
// recorded"; Diagnostics.Level reports the maximum severity seen so far,
// which is what S1's "diagnostics level = None" scenario checks.
type Severity int

const (
	None Severity = iota
	Information
	Warning
	Critical
)

// String returns the severity's name, e.g. "Warning".
func (s Severity) String() string {
	switch s {
	case None:
		return "None"
	case Information:
		return "Information"
	case Warning:
		return "Warning"
	case Critical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// Entry is one recorded diagnostic: a severity, free-form context, and the
// underlying Kind when the entry originated from an *Error.
type Entry struct {
	Severity Severity
	Context  string
	Message  string
	Kind     Kind
}

// Diagnostics is an ordered, leveled log accumulated while a driver parses
// or rewrites a container. It is not safe for concurrent writers; tagkit's
// single-caller-per-file model means it never needs to be.
type Diagnostics struct {
	entries []Entry
}

// NewDiagnostics returns an empty Diagnostics log.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

// Add records an entry at the given severity.
func (d *Diagnostics) Add(sev Severity, context, message string) {
	d.entries = append(d.entries, Entry{Severity: sev, Context: context, Message: message})
}

// AddError records an entry derived from a tagkit *Error, preserving its
// Kind for callers that want to filter by category.
func (d *Diagnostics) AddError(sev Severity, context string, err *Error) {
	d.entries = append(d.entries, Entry{Severity: sev, Context: context, Message: err.Error(), Kind: err.Kind})
}

// Info records an Information-level entry.
func (d *Diagnostics) Info(context, format string, args ...any) {
	d.Add(Information, context, sprintf(format, args...))
}

// Warn records a Warning-level entry.
func (d *Diagnostics) Warn(context, format string, args ...any) {
	d.Add(Warning, context, sprintf(format, args...))
}

// Crit records a Critical-level entry.
func (d *Diagnostics) Crit(context, format string, args ...any) {
	d.Add(Critical, context, sprintf(format, args...))
}

// Entries returns every recorded entry, in the order they were added.
func (d *Diagnostics) Entries() []Entry {
	return d.entries
}

// Level returns the maximum severity recorded so far, or None if the log is
// empty.
func (d *Diagnostics) Level() Severity {
	max := None
	for _, e := range d.entries {
		if e.Severity > max {
			max = e.Severity
		}
	}
	return max
}

// HasCritical reports whether any Critical entry was recorded; ApplyChanges
// checks it to decide whether to discard the rewritten copy and leave the
// original file untouched.
func (d *Diagnostics) HasCritical() bool {
	return d.Level() == Critical
}

// Reset discards all entries, e.g. before a fresh parse_container call.
func (d *Diagnostics) Reset() {
	d.entries = nil
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
