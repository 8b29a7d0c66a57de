package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/philosophy/internal/model"
)

// pathSeparator joins titles when a path is printed on one line.
const pathSeparator = " -> "

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with one block per walk
// and a count per stop reason.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Paths are long and read better without escape codes
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether stop reasons without walks are listed.
	showEmpty bool

	// verbose adds per-walk timing and errors.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to list stop reasons with no walks.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the batch report in human-readable format.
func (w *SimpleWriter) Write(batch *model.BatchReport) (int, error) {
	var sb strings.Builder

	summary := batch.Summary()
	w.writeHeader(&sb, summary)
	w.writeWalks(&sb, batch)
	w.writeSummary(&sb, summary)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// WriteSummaries outputs one line per stored run.
func (w *SimpleWriter) WriteSummaries(summaries []*model.BatchSummary) (int, error) {
	var sb strings.Builder

	if len(summaries) == 0 {
		sb.WriteString("No saved runs.\n")
		return io.WriteString(w.output, sb.String())
	}

	fmt.Fprintf(&sb, "%-36s  %-19s  %-20s  %6s  %7s  %5s\n",
		"ID", "STARTED", "TARGET", "STARTS", "REACHED", "PAGES")
	for _, s := range summaries {
		fmt.Fprintf(&sb, "%-36s  %-19s  %-20s  %6d  %7d  %5d\n",
			s.ID,
			s.StartedAt.Local().Format("2006-01-02 15:04:05"),
			truncateString(s.Target, 20),
			s.Starts,
			s.ByReason[model.ReachedTarget.String()],
			s.TotalPages,
		)
	}

	return io.WriteString(w.output, sb.String())
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.BatchSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                      GETTING TO PHILOSOPHY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Target:         %s\n", summary.Target)
	fmt.Fprintf(sb, "Run:            %s\n", summary.ID)
	fmt.Fprintf(sb, "Started:        %s\n", summary.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Starts:         %d (%d walked, %d rejected)\n", summary.Starts, summary.Walked, summary.Rejected)
	fmt.Fprintf(sb, "Pages visited:  %d (%d distinct)\n", summary.TotalPages, summary.DistinctPages)
	sb.WriteString("\n")
}

// writeWalks writes one block per start, in input order.
func (w *SimpleWriter) writeWalks(sb *strings.Builder, batch *model.BatchReport) {
	writeSection(sb, "WALKS")

	if len(batch.Walks) == 0 {
		sb.WriteString("  No starting articles\n\n")
		return
	}

	for _, walk := range batch.Walks {
		if walk == nil {
			continue
		}

		if !walk.Eligible || walk.Path == nil {
			fmt.Fprintf(sb, "[-] %s: rejected (%s)\n", startLabel(walk), walk.IneligibleReason)
			if w.verbose && walk.ErrorMessage != "" {
				fmt.Fprintf(sb, "    Error: %s\n", walk.ErrorMessage)
			}
			continue
		}

		path := walk.Path
		fmt.Fprintf(sb, "[%s] %s (%s, %s)\n",
			reasonIndicator(path.StopReason),
			startLabel(walk),
			stepCount(path.Steps()),
			path.StopReason.Label(),
		)
		fmt.Fprintf(sb, "    %s\n", JoinPath(path, pathSeparator))
		if w.verbose {
			fmt.Fprintf(sb, "    Elapsed: %s\n", walk.Elapsed)
			if path.ErrorMessage != "" {
				fmt.Fprintf(sb, "    Error: %s\n", path.ErrorMessage)
			}
		}
	}
	sb.WriteString("\n")
}

// writeSummary writes the count of walks per stop reason.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, summary *model.BatchSummary) {
	writeSection(sb, "SUMMARY")

	for _, reason := range model.AllStopReasons {
		n := summary.ByReason[reason.String()]
		if n == 0 && !w.showEmpty {
			continue
		}
		fmt.Fprintf(sb, "  %-24s %d\n", reason.Label()+":", n)
	}
	if summary.Rejected > 0 || w.showEmpty {
		fmt.Fprintf(sb, "  %-24s %d\n", "Rejected:", summary.Rejected)
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// writeSection writes a section heading between rules.
func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// reasonIndicator returns a visual indicator for the stop reason.
func reasonIndicator(reason model.StopReason) string {
	switch reason {
	case model.ReachedTarget:
		return "+"
	case model.CycleDetected:
		return "~"
	case model.DeadEnd:
		return "x"
	case model.IterationLimitReached:
		return "!"
	default:
		return "?"
	}
}

// startLabel shows the input as typed and, when it differs, the title it
// resolved to.
func startLabel(walk *model.WalkReport) string {
	resolved := walk.Start
	if walk.Path != nil && walk.Path.Len() > 0 {
		resolved = walk.Path.Pages[0]
	}
	if walk.Input == resolved.String() || resolved.IsZero() {
		return walk.Input
	}
	return fmt.Sprintf("%s => %s", walk.Input, resolved)
}

// stepCount formats a number of followed links.
func stepCount(n int) string {
	if n == 1 {
		return "1 step"
	}
	return fmt.Sprintf("%d steps", n)
}

// JoinPath joins the titles of path with sep.
func JoinPath(path *model.TraversalPath, sep string) string {
	titles := make([]string, len(path.Pages))
	for i, id := range path.Pages {
		titles[i] = id.String()
	}
	return strings.Join(titles, sep)
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
