package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/philosophy/internal/config"
	plog "github.com/nao1215/philosophy/internal/log"
	"github.com/nao1215/philosophy/internal/report"
	"github.com/nao1215/philosophy/internal/wiki"
	"github.com/spf13/cobra"
)

// addWikiFlags registers the flags that select and reach a wiki.
// They are shared by walk and check.
func addWikiFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .philosophy in current or home directory)")
	cmd.Flags().StringP("profile", "p", "",
		"Wiki profile from the configuration file (e.g. de)")
	cmd.Flags().String("base-url", config.DefaultBaseURL,
		"Base URL of the wiki")
	cmd.Flags().DurationP("timeout", "T", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (e.g. 127.0.0.1:9050)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent sent with every request")
}

// buildBaseConfig creates a Config from defaults, the configuration file
// and the wiki flags, in increasing order of precedence.
func buildBaseConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.Profile, err = flags.GetString("profile"); err != nil {
		return nil, err
	}

	if err := applyConfigFile(cfg); err != nil {
		return nil, err
	}

	// Flags only override the file when given explicitly.
	if flags.Changed("base-url") {
		if cfg.BaseURL, err = flags.GetString("base-url"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return nil, err
		}
	}

	cfg.Verbose = getVerboseFlag(cmd)
	return cfg, nil
}

// applyConfigFile loads the configuration file and applies its defaults
// and the selected profile.
// If the user explicitly specified a config file path, a missing file is
// an error. Otherwise a missing file means built-in defaults.
func applyConfigFile(cfg *config.Config) error {
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath == "" {
		if explicitConfigPath {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
		}
		if cfg.Profile != "" {
			return fmt.Errorf("%w: %s (no configuration file found)", config.ErrUnknownProfile, cfg.Profile)
		}
		return nil
	}

	file, err := config.LoadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	profile, err := file.Profile(cfg.Profile)
	if err != nil {
		return err
	}
	cfg.ApplyProfile(profile)

	return nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	return getGlobalBool(cmd, "verbose")
}

// getGlobalBool retrieves a persistent root flag from the command or its
// parent.
func getGlobalBool(cmd *cobra.Command, name string) bool {
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		value, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return value
}

// setupLogger creates the redacting logger for a command and makes it the
// default, so that packages falling back to slog.Default() share it.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	var logger *slog.Logger
	if getGlobalBool(cmd, "log-json") {
		logger = plog.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	} else {
		logger = plog.NewSecureLogger(cmd.ErrOrStderr(), verbose)
	}
	slog.SetDefault(logger)
	return logger
}

// newWikiClient creates the wiki client described by cfg.
func newWikiClient(cfg *config.Config, logger *slog.Logger) (*wiki.Client, error) {
	client, err := wiki.NewClient(cfg.BaseURL,
		wiki.WithArticlePath(cfg.ArticlePath),
		wiki.WithAPIPath(cfg.APIPath),
		wiki.WithTimeout(cfg.Timeout),
		wiki.WithUserAgent(cfg.UserAgent),
		wiki.WithHeaders(cfg.Headers),
		wiki.WithMaxBodySize(cfg.MaxBodySize),
		wiki.WithProxy(cfg.ProxyAddress),
		wiki.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create wiki client: %w", err)
	}
	return client, nil
}

// openReportOutput returns the destination for a report: the file at path,
// or stdout when path is empty. The returned close function is never nil.
func openReportOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// newReportWriter picks the writer for the requested format.
func newReportWriter(w io.Writer, jsonReport, markdownReport, verbose bool) (report.Writer, error) {
	switch {
	case jsonReport && markdownReport:
		return nil, config.ErrConflictingReportFormats
	case jsonReport:
		return report.NewJSONWriter(w, report.WithPrettyPrint()), nil
	case markdownReport:
		return report.NewMarkdownWriter(w), nil
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(verbose)), nil
	}
}

// writeReport writes batch with the format and destination of cfg.
func writeReport(cmd *cobra.Command, cfg *config.Config, write func(report.Writer) error) (err error) {
	output, closeOutput, err := openReportOutput(cmd, cfg.ReportFile)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, closeOutput())
	}()

	writer, err := newReportWriter(output, cfg.JSONReport, cfg.MarkdownReport, cfg.Verbose)
	if err != nil {
		return err
	}
	return write(writer)
}
