package diag

import "sync/atomic"

// Progress is a cooperative-cancellation handle shared between a caller and
// a worker goroutine/thread running a parse or rewrite. Its abort flag is
// the only cross-thread contact point tagkit defines: it may be set from
// any goroutine, and the worker polls it only at well-defined suspension
// points (between top-level segment children while parsing, between
// clusters while copying during rewrite, between Ogg pages, before each of
// the five parse phases).
type Progress struct {
	aborted atomic.Bool
	step    atomic.Value // string, current step description
}

// NewProgress returns a fresh, non-aborted Progress handle.
func NewProgress() *Progress {
	return &Progress{}
}

// Abort requests cancellation. Safe to call from any goroutine.
func (p *Progress) Abort() {
	p.aborted.Store(true)
}

// Aborted reports whether Abort has been called.
func (p *Progress) Aborted() bool {
	return p.aborted.Load()
}

// SetStep records a human-readable description of the current suspension
// point, e.g. "writing cluster 12/48". Purely informational.
func (p *Progress) SetStep(step string) {
	p.step.Store(step)
}

// Step returns the most recently recorded step description, or "" if none.
func (p *Progress) Step() string {
	if v := p.step.Load(); v != nil {
		return v.(string)
	}
	return ""
}

// CheckPoint is called by drivers at each cooperative suspension point. It
// returns an *Error of kind OperationAborted iff the handle's abort flag is
// set, and nil otherwise. A nil Progress is treated as "never aborts",
// letting callers pass nil when they don't need cancellation.
func CheckPoint(p *Progress) *Error {
	if p == nil {
		return nil
	}
	if p.Aborted() {
		return New(OperationAborted, "cooperative abort requested at %q", p.Step())
	}
	return nil
}
