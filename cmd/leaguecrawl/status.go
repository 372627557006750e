package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/leaguecrawl/internal/checkpoint"
	"github.com/nao1215/leaguecrawl/internal/config"
	"github.com/nao1215/leaguecrawl/internal/report"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored crawl checkpoint as Markdown",
		Long: `Status prints a Markdown summary of the checkpoint: snapshot version,
save time, discovered leagues and the sizes of both queues.

Examples:
  leaguecrawl status
  leaguecrawl status --pull > STATUS.md`,
		Args: cobra.NoArgs,
		RunE: runStatusCmd,
	}

	cmd.Flags().Bool("pull", false, "Pull the checkpoint from S3 before reading it")

	return cmd
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}

	doPull, err := cmd.Flags().GetBool("pull")
	if err != nil {
		return err
	}
	if doPull {
		syncer, err := newSyncer(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		pull(cmd.Context(), syncer, cfg, logger)
	}

	return writeStatus(cmd.Context(), cmd.OutOrStdout(), cfg, logger)
}

// writeStatus renders the checkpoint in cfg.DataDir to w. A missing
// checkpoint is reported as not started.
func writeStatus(ctx context.Context, w io.Writer, cfg *config.Config, logger *slog.Logger) error {
	status := report.Status{
		Checkpoint: filepath.Join(cfg.DataDir, checkpoint.FileName),
		Remote:     remoteLocation(cfg),
	}

	store, err := checkpoint.Open(cfg.DataDir, checkpoint.Options{EnableWAL: true})
	switch {
	case errors.Is(err, checkpoint.ErrStoreNotFound):
		return report.WriteStatus(w, status)
	case err != nil:
		return fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close checkpoint", "error", err)
		}
	}()

	info, err := store.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to read checkpoint: %w", err)
	}
	status.Exists = info.Exists
	status.Version = info.Version
	status.SavedAt = info.SavedAt
	status.Counts = info.Counts

	return report.WriteStatus(w, status)
}
