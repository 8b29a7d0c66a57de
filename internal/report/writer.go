package report

import (
	"io"

	"github.com/nao1215/philosophy/internal/model"
)

// Writer defines the interface for report output.
// Implementations write batch results in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files or stdout with the same
// API.
type Writer interface {
	// Write outputs the batch report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(batch *model.BatchReport) (int, error)

	// WriteSummaries outputs one line or row per stored run. It is used
	// by the history command.
	WriteSummaries(summaries []*model.BatchSummary) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write reports, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(batch *model.BatchReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(batch)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteSummaries outputs the summaries to all configured Writers.
func (m *MultiWriter) WriteSummaries(summaries []*model.BatchSummary) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteSummaries(summaries)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
