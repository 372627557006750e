package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/leaguecrawl/internal/config"
	applog "github.com/nao1215/leaguecrawl/internal/log"
	"github.com/nao1215/leaguecrawl/internal/remotesync"
)

// loadConfig builds the configuration from the file, dotenv and environment
// layers, then applies the global flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(config.LoadOptions{ConfigFile: configPath})
	if err != nil {
		return nil, err
	}

	if flags.Changed("verbose") {
		if cfg.Verbose, err = flags.GetBool("verbose"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("log-format") {
		if cfg.LogFormat, err = flags.GetString("log-format"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("data-dir") {
		if cfg.DataDir, err = flags.GetString("data-dir"); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newLogger creates the masking logger selected by the configuration.
func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	logger, err := applog.New(w, cfg.LogFormat, cfg.Verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// newSyncer returns the S3 mirror, or a disabled Syncer when no bucket is
// configured.
func newSyncer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*remotesync.Syncer, error) {
	if !cfg.RemoteEnabled() {
		return remotesync.New(nil), nil
	}
	store, err := remotesync.NewS3Store(ctx, remotesync.S3Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		UsePathStyle:    cfg.S3PathStyle,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return remotesync.New(store, remotesync.WithLogger(logger)), nil
}

// remoteLocation formats the mirror location for messages.
func remoteLocation(cfg *config.Config) string {
	if !cfg.RemoteEnabled() {
		return ""
	}
	return fmt.Sprintf("s3://%s/%s", cfg.S3Bucket, cfg.S3Prefix)
}

// pull downloads the remote checkpoint into the data directory. Failures
// are logged and the local copy is used as is.
func pull(ctx context.Context, syncer *remotesync.Syncer, cfg *config.Config, logger *slog.Logger) {
	if !syncer.Enabled() {
		return
	}
	res, err := syncer.Pull(ctx, cfg.S3Prefix, cfg.DataDir)
	if err != nil {
		logger.Warn("failed to pull checkpoint, using local copy",
			"remote", remoteLocation(cfg), "error", err)
		return
	}
	logger.Info("checkpoint pulled", "remote", remoteLocation(cfg), "files", res.Files, "bytes", res.Bytes)
}
