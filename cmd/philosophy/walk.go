package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/philosophy/internal/config"
	"github.com/nao1215/philosophy/internal/crawler"
	"github.com/nao1215/philosophy/internal/database"
	"github.com/nao1215/philosophy/internal/model"
	"github.com/nao1215/philosophy/internal/pipeline"
	"github.com/nao1215/philosophy/internal/report"
	"github.com/nao1215/philosophy/internal/wiki"
	"github.com/spf13/cobra"
)

// NewWalkCmd creates the walk command.
func NewWalkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "walk [title]...",
		Short: "Follow first links from one or more articles",
		Long: `Walk follows the first qualifying link of each starting article until the
walk reaches the target article, enters a cycle, finds no usable link, or
hits the step ceiling.

Starting articles that do not exist or are disambiguation pages are
rejected before walking, unless --skip-check is given.

Examples:
  # Walk from a single article
  philosophy walk "Albert Einstein"

  # Walk from several articles, four at a time
  philosophy walk Art Music Mathematics --batch 4

  # Walk from ten random articles and save the run
  philosophy walk --random 10 --save

  # Use the German Wikipedia profile from the configuration file
  philosophy walk --profile de Kunst

  # Write a Markdown report with charts
  philosophy walk --markdown -o report.md Art Music`,
		Args: cobra.ArbitraryArgs,
		RunE: runWalkCmd,
	}

	addWikiFlags(cmd)

	// Walk behavior flags
	cmd.Flags().StringP("target", "t", config.DefaultTarget,
		"Article that ends a walk successfully")
	cmd.Flags().IntP("max-steps", "n", config.DefaultMaxSteps,
		"Maximum number of links followed per walk")
	cmd.Flags().String("class-match", config.ClassMatchSubstring,
		"How class markers are matched: substring or token")
	cmd.Flags().Bool("skip-check", false,
		"Walk starting articles without the existence and disambiguation check")

	// Start selection flags
	cmd.Flags().IntP("random", "r", 0,
		"Number of random starting articles to add")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent walks")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().BoolP("save", "s", false,
		"Save the run to the history database")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")

	return cmd
}

// runWalkCmd executes the walk command.
func runWalkCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildWalkConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runWalk(ctx, cmd, cfg, logger)
}

// buildWalkConfig creates a Config from the configuration file and flags.
func buildWalkConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := buildBaseConfig(cmd)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()

	if flags.Changed("target") {
		if cfg.Target, err = flags.GetString("target"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-steps") {
		if cfg.MaxSteps, err = flags.GetInt("max-steps"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("class-match") {
		if cfg.ClassMatch, err = flags.GetString("class-match"); err != nil {
			return nil, err
		}
	}

	if cfg.SkipEligibility, err = flags.GetBool("skip-check"); err != nil {
		return nil, err
	}
	if cfg.Random, err = flags.GetInt("random"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.SaveToDB, err = flags.GetBool("save"); err != nil {
		return nil, err
	}

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	cfg.Starts = args
	return cfg, nil
}

// runWalk walks every start of cfg, writes the report and optionally saves
// the run. The report is written even when the batch was interrupted.
func runWalk(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	client, err := newWikiClient(cfg, logger)
	if err != nil {
		return err
	}

	// Open the database first so that a bad directory fails before walking.
	var db *database.HistoryDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	starts := cfg.Starts
	if cfg.Random > 0 {
		random, err := pipeline.RandomStarts(ctx, client, cfg.Random, starts, logger)
		if err != nil {
			if len(starts)+len(random) == 0 {
				return fmt.Errorf("failed to pick random articles: %w", err)
			}
			logger.Warn("random article selection stopped early", "error", err)
		}
		starts = append(append([]string{}, starts...), random...)
	}

	logger.Info("starting walks",
		"starts", len(starts),
		"target", cfg.Target,
		"wiki", client.BaseURL(),
		"batch", cfg.BatchSize,
	)

	target := model.NewPageID(cfg.Target)
	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			return createPipeline(client, cfg, logger)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchTarget(target),
		pipeline.WithBatchLogger(logger),
	)

	batch, walkErr := bp.ProcessBatch(ctx, starts)
	if errors.Is(walkErr, pipeline.ErrSourceUnreachable) {
		return fmt.Errorf("%w (check --base-url and --proxy)", walkErr)
	}

	if err := writeReport(cmd, cfg, func(w report.Writer) error {
		_, err := w.Write(batch)
		return err
	}); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if db != nil {
		// An interrupted batch is still worth keeping; save without the
		// cancelled context.
		if err := db.SaveBatch(context.WithoutCancel(ctx), batch); err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		logger.Info("run saved", "id", batch.ID)
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved run %s\n", batch.ID)
	}

	return walkErr
}

// createPipeline creates the walk pipeline for one start.
func createPipeline(client *wiki.Client, cfg *config.Config, logger *slog.Logger) *pipeline.Pipeline {
	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
	}

	configOpts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineTarget(model.NewPageID(cfg.Target)),
		pipeline.WithPipelineMaxSteps(cfg.MaxSteps),
		pipeline.WithPipelineClassMatch(crawler.ParseClassMatch(cfg.ClassMatch)),
		pipeline.WithPipelineArticlePath(client.ArticlePath()),
		pipeline.WithPipelineSkipEligibility(cfg.SkipEligibility),
		pipeline.WithPipelineLogger(logger),
	}

	return pipeline.DefaultPipeline(client, pipelineOpts, configOpts...)
}
