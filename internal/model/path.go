package model

import (
	"fmt"
	"slices"
)

// StopReason is the terminal classification of one walk.
type StopReason int

const (
	// StopReasonNone marks a walk that has not finished yet.
	StopReasonNone StopReason = iota

	// ReachedTarget means the last page of the path is the target article.
	ReachedTarget

	// CycleDetected means the last page of the path already appeared
	// earlier in the path.
	CycleDetected

	// DeadEnd means a page had no qualifying first link or could not be
	// fetched.
	DeadEnd

	// IterationLimitReached means the walk took as many steps as the
	// configured ceiling allows.
	IterationLimitReached
)

// stopReasonNames maps each StopReason to its stable text form.
// The text form is used in JSON output and the history database.
var stopReasonNames = map[StopReason]string{
	StopReasonNone:        "in_progress",
	ReachedTarget:         "reached_target",
	CycleDetected:         "cycle_detected",
	DeadEnd:               "dead_end",
	IterationLimitReached: "iteration_limit_reached",
}

// AllStopReasons lists the terminal stop reasons in reporting order.
var AllStopReasons = []StopReason{ReachedTarget, CycleDetected, DeadEnd, IterationLimitReached}

// String returns the stable text form of the stop reason.
func (r StopReason) String() string {
	if name, ok := stopReasonNames[r]; ok {
		return name
	}
	return "unknown"
}

// Label returns a short human-readable description.
func (r StopReason) Label() string {
	switch r {
	case ReachedTarget:
		return "Reached target"
	case CycleDetected:
		return "Cycle detected"
	case DeadEnd:
		return "Dead end"
	case IterationLimitReached:
		return "Iteration limit reached"
	default:
		return "In progress"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r StopReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *StopReason) UnmarshalText(text []byte) error {
	parsed, err := ParseStopReason(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseStopReason parses the text form produced by String.
func ParseStopReason(s string) (StopReason, error) {
	for reason, name := range stopReasonNames {
		if name == s {
			return reason, nil
		}
	}
	return StopReasonNone, fmt.Errorf("unknown stop reason %q", s)
}

// TraversalPath is the ordered chain of pages visited by one walk.
// Pages only grow; the one exception is ReplaceLast, used when the page
// that was just appended turns out to be a redirect.
//
// No page appears twice, except as the final element of a path that
// stopped with CycleDetected.
type TraversalPath struct {
	// Start is the title the walk was started from.
	Start PageID `json:"start"`

	// Pages is the chain, starting with the start page.
	Pages []PageID `json:"pages"`

	// StopReason is set exactly once, when the walk finishes.
	StopReason StopReason `json:"stop_reason"`

	// Err is the error that ended the walk, if any. Only DeadEnd walks
	// carry an error.
	Err error `json:"-"`

	// ErrorMessage is Err as text for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewTraversalPath creates a path holding only the start page.
func NewTraversalPath(start PageID) *TraversalPath {
	return &TraversalPath{
		Start: start,
		Pages: []PageID{start},
	}
}

// Append adds id to the end of the path and reports whether id was
// already present, that is, whether the append created a repeat.
func (p *TraversalPath) Append(id PageID) bool {
	repeated := slices.Contains(p.Pages, id)
	p.Pages = append(p.Pages, id)
	return repeated
}

// ReplaceLast swaps the last page for id and reports whether id appears
// anywhere before it.
func (p *TraversalPath) ReplaceLast(id PageID) bool {
	if len(p.Pages) == 0 {
		return p.Append(id)
	}
	last := len(p.Pages) - 1
	repeated := slices.Contains(p.Pages[:last], id)
	p.Pages[last] = id
	return repeated
}

// Contains reports whether id is on the path.
func (p *TraversalPath) Contains(id PageID) bool {
	return slices.Contains(p.Pages, id)
}

// Len returns the number of pages on the path, including the start.
func (p *TraversalPath) Len() int {
	return len(p.Pages)
}

// Steps returns the number of links followed.
func (p *TraversalPath) Steps() int {
	if len(p.Pages) == 0 {
		return 0
	}
	return len(p.Pages) - 1
}

// Last returns the most recently appended page.
func (p *TraversalPath) Last() PageID {
	if len(p.Pages) == 0 {
		return ""
	}
	return p.Pages[len(p.Pages)-1]
}

// Finish records the stop reason and the error that caused it.
func (p *TraversalPath) Finish(reason StopReason, err error) {
	p.StopReason = reason
	p.Err = err
	if err != nil {
		p.ErrorMessage = err.Error()
	}
}

// Done reports whether a stop reason has been recorded.
func (p *TraversalPath) Done() bool {
	return p.StopReason != StopReasonNone
}
