package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/leaguecrawl/internal/checkpoint"
)

// exportDirName is the default export directory inside the data directory.
const exportDirName = "export"

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the checkpoint as CSV and JSON files",
		Long: `Export writes the checkpoint in its flat file layout:

  sleeper_leagues.csv        one row per discovered league, nested settings
                             flattened into dotted columns
  sleeper_leagues_queue.json the pending leagues, pending users and queried users

Examples:
  # Export into <data-dir>/export
  leaguecrawl export

  # Export into a specific directory
  leaguecrawl export -o ./out`,
		Args: cobra.NoArgs,
		RunE: runExportCmd,
	}

	cmd.Flags().StringP("output", "o", "",
		"Output directory (default: <data-dir>/export)")

	return cmd
}

// runExportCmd executes the export command.
func runExportCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}

	outDir, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if outDir == "" {
		outDir = filepath.Join(cfg.DataDir, exportDirName)
	}

	store, err := checkpoint.Open(cfg.DataDir, checkpoint.Options{EnableWAL: true})
	if errors.Is(err, checkpoint.ErrStoreNotFound) {
		return fmt.Errorf("no checkpoint in %s (run leaguecrawl crawl first)", cfg.DataDir)
	}
	if err != nil {
		return fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close checkpoint", "error", err)
		}
	}()

	if err := store.Export(cmd.Context(), outDir); err != nil {
		return fmt.Errorf("failed to export checkpoint: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported checkpoint to %s\n", outDir)
	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", filepath.Join(outDir, checkpoint.LeaguesCSVFile))
	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", filepath.Join(outDir, checkpoint.QueueJSONFile))
	return nil
}
