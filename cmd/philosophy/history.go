package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/philosophy/internal/config"
	"github.com/nao1215/philosophy/internal/database"
	"github.com/nao1215/philosophy/internal/model"
	"github.com/nao1215/philosophy/internal/report"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit bounds list and top when no limit is given.
const defaultHistoryLimit = 20

// errNoHistory is returned when no database exists yet.
var errNoHistory = errors.New("no saved runs (use 'philosophy walk --save' first)")

// NewHistoryCmd creates the history command and its subcommands.
// Without a subcommand it lists the saved runs.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect runs saved with walk --save",
		Long: `History reads the runs stored by 'philosophy walk --save'.

Examples:
  # List the latest runs
  philosophy history

  # Show one run as Markdown
  philosophy history show 0b6e... --markdown

  # Pages that most saved walks pass through
  philosophy history top -n 5

  # How the chain from an article changed between runs
  philosophy history from Art`,
		Args: cobra.NoArgs,
		RunE: runHistoryListCmd,
	}

	cmd.PersistentFlags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")
	addHistoryListFlags(cmd)

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		Args:  cobra.NoArgs,
		RunE:  runHistoryListCmd,
	}
	addHistoryListFlags(list)

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the full report of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShowCmd,
	}
	show.Flags().BoolP("json", "j", false, "Output JSON report")
	show.Flags().BoolP("markdown", "m", false, "Output Markdown report")
	show.Flags().StringP("output", "o", "", "Write report to specified file path")

	top := &cobra.Command{
		Use:   "top",
		Short: "Show the pages most saved walks pass through",
		Args:  cobra.NoArgs,
		RunE:  runHistoryTopCmd,
	}
	top.Flags().IntP("limit", "n", 10, "Number of pages to show")
	top.Flags().BoolP("json", "j", false, "Output JSON")

	from := &cobra.Command{
		Use:   "from <title>",
		Short: "Show every saved walk that started at an article",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryFromCmd,
	}
	from.Flags().BoolP("json", "j", false, "Output JSON")

	del := &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryDeleteCmd,
	}

	cmd.AddCommand(list, show, top, from, del)
	return cmd
}

func addHistoryListFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Maximum number of runs to list (0 for all)")
	cmd.Flags().BoolP("json", "j", false, "Output JSON")
	cmd.Flags().BoolP("markdown", "m", false, "Output Markdown")
}

// openHistory opens the existing history database named by --db-dir.
func openHistory(cmd *cobra.Command) (*database.HistoryDB, error) {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	if _, err := os.Stat(filepath.Join(dbDir, database.FileName)); errors.Is(err, os.ErrNotExist) {
		return nil, errNoHistory
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// historyReportConfig reads the report flags a history subcommand supports.
func historyReportConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if cmd.Flags().Lookup("markdown") != nil {
		if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Lookup("output") != nil {
		if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
			return nil, err
		}
	}
	if cfg.JSONReport && cfg.MarkdownReport {
		return nil, config.ErrConflictingReportFormats
	}
	return cfg, nil
}

func runHistoryListCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := historyReportConfig(cmd)
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	summaries := make([]*model.BatchSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, runSummary(run))
	}

	return writeReport(cmd, cfg, func(w report.Writer) error {
		_, err := w.WriteSummaries(summaries)
		return err
	})
}

// runSummary converts a stored run to the summary the report writers
// print. Stop reasons are only counted for walked starts, so the rest
// were rejected.
func runSummary(run database.RunRecord) *model.BatchSummary {
	walked := 0
	for _, n := range run.ByReason {
		walked += n
	}
	return &model.BatchSummary{
		ID:            run.ID,
		Target:        run.Target,
		StartedAt:     run.StartedAt,
		Starts:        run.Starts,
		Walked:        walked,
		Rejected:      max(run.Starts-walked, 0),
		TotalPages:    run.TotalPages,
		DistinctPages: run.DistinctPages,
		ByReason:      run.ByReason,
	}
}

func runHistoryShowCmd(cmd *cobra.Command, args []string) error {
	cfg, err := historyReportConfig(cmd)
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	batch, err := db.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	return writeReport(cmd, cfg, func(w report.Writer) error {
		_, err := w.Write(batch)
		return err
	})
}

func runHistoryTopCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	pages, err := db.TopPages(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		if pages == nil {
			pages = []database.PageCount{}
		}
		return writeJSON(out, pages)
	}
	if len(pages) == 0 {
		fmt.Fprintln(out, "No saved walks.")
		return nil
	}

	fmt.Fprintf(out, "%-5s %-40s %s\n", "RANK", "PAGE", "WALKS")
	for i, p := range pages {
		fmt.Fprintf(out, "%-5d %-40s %d\n", i+1, p.Title, p.Walks)
	}
	return nil
}

func runHistoryFromCmd(cmd *cobra.Command, args []string) error {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	walks, err := db.WalksFrom(cmd.Context(), model.NewPageID(args[0]))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		if walks == nil {
			walks = []database.WalkRecord{}
		}
		return writeJSON(out, walks)
	}
	if len(walks) == 0 {
		fmt.Fprintf(out, "No saved walks from %s.\n", model.NewPageID(args[0]))
		return nil
	}

	for _, w := range walks {
		if !w.Eligible {
			fmt.Fprintf(out, "%s  rejected\n", shortID(w.RunID))
			continue
		}
		fmt.Fprintf(out, "%s  %s  %s\n", shortID(w.RunID), w.StopReason, strings.Join(w.Pages, " -> "))
	}
	return nil
}

func runHistoryDeleteCmd(cmd *cobra.Command, args []string) error {
	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DeleteRun(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
	return nil
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// shortID returns the first block of a run UUID, enough to tell runs apart
// in a listing.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
