package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/philosophy/internal/config"
	"github.com/nao1215/philosophy/internal/model"
	"github.com/nao1215/philosophy/internal/pipeline"
	"github.com/nao1215/philosophy/internal/report"
	"github.com/spf13/cobra"
)

// errIneligibleStarts is returned by check when at least one title cannot
// start a walk, so that scripts can rely on the exit status.
var errIneligibleStarts = errors.New("some titles are not eligible starting articles")

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <title>...",
		Short: "Check whether articles can start a walk",
		Long: `Check reports, for each title, whether it names an existing article that
is not a disambiguation page. Nothing is walked.

The command exits with a non-zero status when any title is ineligible.

Examples:
  philosophy check Art Mercury "No such article"
  philosophy check --profile de Kunst`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCheckCmd,
	}

	addWikiFlags(cmd)
	cmd.Flags().BoolP("json", "j", false, "Output JSON report")

	return cmd
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildBaseConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	cfg.Starts = args

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	batch, err := runCheck(ctx, cfg, logger)
	if batch == nil || errors.Is(err, pipeline.ErrSourceUnreachable) {
		return err
	}

	if cfg.JSONReport {
		if werr := writeReport(cmd, cfg, func(w report.Writer) error {
			_, err := w.Write(batch)
			return err
		}); werr != nil {
			return fmt.Errorf("failed to write report: %w", werr)
		}
	} else {
		printEligibility(cmd.OutOrStdout(), batch)
	}

	if err != nil {
		return err
	}
	if len(batch.Rejected()) > 0 {
		return errIneligibleStarts
	}
	return nil
}

// runCheck runs the eligibility step alone for every start.
func runCheck(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*model.BatchReport, error) {
	client, err := newWikiClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			p := pipeline.New(pipeline.WithLogger(logger))
			p.AddStep(pipeline.NewEligibilityStep(client, pipeline.WithEligibilityLogger(logger)))
			return p
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchTarget(model.NewPageID(cfg.Target)),
		pipeline.WithBatchLogger(logger),
	)
	return bp.ProcessBatch(ctx, cfg.Starts)
}

// printEligibility writes one line per start.
func printEligibility(w io.Writer, batch *model.BatchReport) {
	for _, walk := range batch.Walks {
		if walk.Eligible {
			fmt.Fprintf(w, "%s: eligible\n", walk.Start)
			continue
		}
		fmt.Fprintf(w, "%s: ineligible (%s)\n", walk.Input, walk.IneligibleReason)
	}
}
