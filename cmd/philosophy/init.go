package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/philosophy/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/philosophy.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new philosophy configuration file",
		Long: `Initialize creates a new .philosophy configuration file in the current directory.

The generated file includes:
- Default settings for the wiki, target and step ceiling
- Profiles for German, French and Simple English Wikipedia
- Commented examples for headers and proxies

Examples:
  # Create .philosophy in current directory
  philosophy init

  # Create config file at a specific path
  philosophy init -o ~/.config/philosophy/config.yaml

  # Force overwrite existing file
  philosophy init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/philosophy.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure settings such as:")
	fmt.Fprintln(out, "  - The wiki and the target article")
	fmt.Fprintln(out, "  - Profiles for other language editions")
	fmt.Fprintln(out, "  - Headers and a SOCKS5 proxy")

	return nil
}
