package model

import (
	"time"

	"github.com/google/uuid"
)

// WalkReport is the result for one starting article.
// A start that fails the eligibility check carries no Path.
type WalkReport struct {
	// Input is the start title exactly as the caller supplied it.
	Input string `json:"input"`

	// Start is the normalized start title.
	Start PageID `json:"start"`

	// Eligible is false when the start was rejected before walking.
	Eligible bool `json:"eligible"`

	// IneligibleReason explains a rejection ("not found", "disambiguation").
	IneligibleReason string `json:"ineligible_reason,omitempty"`

	// StartPage is the start article as fetched by the eligibility check.
	// The walk begins from it instead of fetching the start again.
	StartPage *PageHandle `json:"-"`

	// Path is the traversal, nil for rejected starts.
	Path *TraversalPath `json:"path,omitempty"`

	// Elapsed is the wall time spent on this start.
	Elapsed time.Duration `json:"elapsed"`

	// Err is the error that rejected the start or ended the walk.
	Err error `json:"-"`

	// ErrorMessage is Err as text for serialization.
	ErrorMessage string `json:"error,omitempty"`

	// Steps lists the pipeline steps that ran for this start.
	Steps []string `json:"steps,omitempty"`
}

// NewWalkReport creates a report for the given raw start title.
func NewWalkReport(input string) *WalkReport {
	return &WalkReport{
		Input: input,
		Start: NewPageID(input),
		Steps: make([]string, 0),
	}
}

// SetError records err on the report.
func (r *WalkReport) SetError(err error) {
	r.Err = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// Reject marks the start as ineligible.
func (r *WalkReport) Reject(reason string, err error) {
	r.Eligible = false
	r.IneligibleReason = reason
	r.StartPage = nil
	r.Path = nil
	r.SetError(err)
}

// BatchReport aggregates the walks of one run.
type BatchReport struct {
	// ID identifies the run in the history database.
	ID uuid.UUID `json:"id"`

	// Target is the article the walks try to reach.
	Target PageID `json:"target"`

	// StartedAt is when the batch began.
	StartedAt time.Time `json:"started_at"`

	// Elapsed is the wall time of the whole batch.
	Elapsed time.Duration `json:"elapsed"`

	// Walks holds one report per start, in input order.
	Walks []*WalkReport `json:"walks"`
}

// NewBatchReport creates an empty batch for target.
func NewBatchReport(target PageID) *BatchReport {
	return &BatchReport{
		ID:        uuid.New(),
		Target:    target,
		StartedAt: time.Now(),
		Walks:     make([]*WalkReport, 0),
	}
}

// Paths returns the traversal paths of all walked starts, in input order.
func (b *BatchReport) Paths() []*TraversalPath {
	paths := make([]*TraversalPath, 0, len(b.Walks))
	for _, w := range b.Walks {
		if w != nil && w.Path != nil {
			paths = append(paths, w.Path)
		}
	}
	return paths
}

// Rejected returns the starts that failed the eligibility check.
func (b *BatchReport) Rejected() []*WalkReport {
	rejected := make([]*WalkReport, 0)
	for _, w := range b.Walks {
		if w != nil && !w.Eligible {
			rejected = append(rejected, w)
		}
	}
	return rejected
}

// FirstPages returns the first page of every walked path.
func (b *BatchReport) FirstPages() []PageID {
	paths := b.Paths()
	firsts := make([]PageID, 0, len(paths))
	for _, p := range paths {
		if p.Len() > 0 {
			firsts = append(firsts, p.Pages[0])
		}
	}
	return firsts
}

// TotalPagesVisited is the sum of all path lengths. A page reached by two
// walks counts twice.
func (b *BatchReport) TotalPagesVisited() int {
	total := 0
	for _, p := range b.Paths() {
		total += p.Len()
	}
	return total
}

// DistinctPages is the number of different pages across all paths.
func (b *BatchReport) DistinctPages() int {
	seen := make(map[PageID]struct{})
	for _, p := range b.Paths() {
		for _, id := range p.Pages {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

// CountByReason counts the walked paths per stop reason.
func (b *BatchReport) CountByReason() map[StopReason]int {
	counts := make(map[StopReason]int, len(AllStopReasons))
	for _, p := range b.Paths() {
		counts[p.StopReason]++
	}
	return counts
}

// BatchSummary is a compact view of a batch for reports and history.
type BatchSummary struct {
	ID            string         `json:"id"`
	Target        string         `json:"target"`
	StartedAt     time.Time      `json:"started_at"`
	Starts        int            `json:"starts"`
	Walked        int            `json:"walked"`
	Rejected      int            `json:"rejected"`
	TotalPages    int            `json:"total_pages"`
	DistinctPages int            `json:"distinct_pages"`
	ByReason      map[string]int `json:"by_reason"`
}

// Summary builds the BatchSummary for b.
func (b *BatchReport) Summary() *BatchSummary {
	byReason := make(map[string]int, len(AllStopReasons))
	for reason, n := range b.CountByReason() {
		byReason[reason.String()] = n
	}

	return &BatchSummary{
		ID:            b.ID.String(),
		Target:        b.Target.String(),
		StartedAt:     b.StartedAt,
		Starts:        len(b.Walks),
		Walked:        len(b.Paths()),
		Rejected:      len(b.Rejected()),
		TotalPages:    b.TotalPagesVisited(),
		DistinctPages: b.DistinctPages(),
		ByReason:      byReason,
	}
}
