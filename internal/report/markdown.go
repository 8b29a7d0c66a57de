package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/flowchart"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/philosophy/internal/model"
)

// markdownPathSeparator joins titles in the walks table.
const markdownPathSeparator = " → "

// mermaidLabelReplacer swaps characters that end a mermaid node label for
// look-alikes, in the same spirit as PageID.DisplayName.
var mermaidLabelReplacer = strings.NewReplacer(
	`"`, "'",
	"(", "（",
	")", "）",
	"[", "［",
	"]", "］",
	"{", "｛",
	"}", "｝",
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Mermaid pie charts and flowcharts for the stop reasons and paths
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter

	// graph adds a mermaid flowchart of all paths.
	graph bool
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithGraph toggles the flowchart of merged paths. It is on by default.
func WithGraph(enabled bool) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.graph = enabled
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		graph:      true,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the batch report in Markdown format.
func (w *MarkdownWriter) Write(batch *model.BatchReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := batch.Summary()

	w.writeHeader(md, summary)
	w.writeReasons(md, summary)
	w.writeWalks(md, batch)
	w.writeRejected(md, batch)
	if w.graph {
		w.writeGraph(md, batch)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSummaries outputs a table of stored runs.
func (w *MarkdownWriter) WriteSummaries(summaries []*model.BatchSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Saved Runs")
	md.PlainText("")

	if len(summaries) == 0 {
		md.PlainText("No saved runs.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(summaries))
	for i, s := range summaries {
		rows[i] = []string{
			"`" + s.ID + "`",
			s.StartedAt.Format("2006-01-02 15:04:05 MST"),
			s.Target,
			strconv.Itoa(s.Starts),
			strconv.Itoa(s.ByReason[model.ReachedTarget.String()]),
			strconv.Itoa(s.TotalPages),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Started", "Target", "Starts", "Reached", "Pages"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.BatchSummary) {
	md.H1("Getting to " + summary.Target)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + summary.ID + "`"},
			{"Started", summary.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Starting articles", strconv.Itoa(summary.Starts)},
			{"Walked", strconv.Itoa(summary.Walked)},
			{"Rejected", strconv.Itoa(summary.Rejected)},
			{"Pages visited", strconv.Itoa(summary.TotalPages)},
			{"Distinct pages", strconv.Itoa(summary.DistinctPages)},
		},
	})
	md.PlainText("")
}

// writeReasons writes the stop reason table, a pie chart and an alert.
func (w *MarkdownWriter) writeReasons(md *markdown.Markdown, summary *model.BatchSummary) {
	md.H2("Stop Reasons")
	md.PlainText("")

	rows := make([][]string, 0, len(model.AllStopReasons))
	for _, reason := range model.AllStopReasons {
		rows = append(rows, []string{reason.Label(), strconv.Itoa(summary.ByReason[reason.String()])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Stop reason", "Walks"},
		Rows:   rows,
	})
	md.PlainText("")

	if summary.Walked > 0 {
		w.writePieChart(md, summary)
	}

	reached := summary.ByReason[model.ReachedTarget.String()]
	switch {
	case summary.Walked == 0:
		md.Warningf("No starting article could be walked (%d rejected).", summary.Rejected)
	case reached == summary.Walked:
		md.Tip(fmt.Sprintf("Every walk reached %s.", summary.Target))
	default:
		md.Note(fmt.Sprintf("%d of %d walks reached %s.", reached, summary.Walked, summary.Target))
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of the stop reasons.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.BatchSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Stop Reasons"),
		piechart.WithShowData(true),
	)

	for _, reason := range model.AllStopReasons {
		if n := summary.ByReason[reason.String()]; n > 0 {
			chart.LabelAndIntValue(reason.Label(), uint64(n))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeWalks writes a table row per walked start.
func (w *MarkdownWriter) writeWalks(md *markdown.Markdown, batch *model.BatchReport) {
	md.H2("Walks")
	md.PlainText("")

	paths := batch.Paths()
	if len(paths) == 0 {
		md.PlainText("No walks.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(paths))
	for _, walk := range batch.Walks {
		if walk == nil || walk.Path == nil {
			continue
		}
		rows = append(rows, []string{
			walk.Input,
			strconv.Itoa(walk.Path.Steps()),
			walk.Path.StopReason.Label(),
			JoinPath(walk.Path, markdownPathSeparator),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Start", "Steps", "Stop reason", "Path"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeRejected lists starts that failed the eligibility check.
func (w *MarkdownWriter) writeRejected(md *markdown.Markdown, batch *model.BatchReport) {
	rejected := batch.Rejected()
	if len(rejected) == 0 {
		return
	}

	md.H2("Rejected Starts")
	md.PlainText("")

	rows := make([][]string, len(rejected))
	for i, walk := range rejected {
		detail := walk.ErrorMessage
		if detail == "" {
			detail = "-"
		}
		rows[i] = []string{walk.Input, walk.IneligibleReason, truncateString(detail, 80)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Start", "Reason", "Detail"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeGraph writes a mermaid flowchart of all paths merged.
func (w *MarkdownWriter) writeGraph(md *markdown.Markdown, batch *model.BatchReport) {
	graph := BuildGraph(batch)
	if len(graph.Edges) == 0 {
		return
	}

	md.H2("Graph")
	md.PlainText("")

	fc := flowchart.NewFlowchart(
		io.Discard,
		flowchart.WithTitle("Paths to "+batch.Target.DisplayName()),
		flowchart.WithOrientalTopToBottom(),
	)

	ids := make(map[model.PageID]string, len(graph.Nodes))
	for i, page := range graph.Nodes {
		id := fmt.Sprintf("n%d", i)
		ids[page] = id
		label := mermaidLabelReplacer.Replace(page.DisplayName())
		if page == batch.Target {
			fc.StadiumNode(id, label)
		} else {
			fc.NodeWithText(id, label)
		}
	}
	for _, e := range graph.Edges {
		fc.LinkWithArrowHead(ids[e.From], ids[e.To])
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, fc.String())
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [philosophy](https://github.com/nao1215/philosophy)*")
}
