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
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/leaguecrawl/internal/checkpoint"
	"github.com/nao1215/leaguecrawl/internal/config"
	"github.com/nao1215/leaguecrawl/internal/crawler"
	"github.com/nao1215/leaguecrawl/internal/model"
	"github.com/nao1215/leaguecrawl/internal/ratelimit"
	"github.com/nao1215/leaguecrawl/internal/remotesync"
	"github.com/nao1215/leaguecrawl/internal/report"
	"github.com/nao1215/leaguecrawl/internal/sleeper"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl Sleeper leagues, resuming from the checkpoint",
		Long: `Crawl walks the Sleeper league/user graph until both queues are empty.

Each cycle first expands pending users into their leagues until the per-cycle
cap of pending leagues is reached, then expands every pending league into its
users. The checkpoint is saved after every cycle and pushed to S3 when a
bucket is configured.

Interrupting the crawl (Ctrl+C) discards the cycle in flight. The previous
checkpoint is kept and the next run resumes from it.

Examples:
  # Start or resume a crawl from the default seed league
  leaguecrawl crawl

  # Start a fresh crawl from another league with four workers
  leaguecrawl crawl --seed 784462448236363776 --workers 4 -D ./nba-crawl --sport nba

  # Mirror the checkpoint to an S3-compatible store
  LEAGUECRAWL_S3_ACCESS_KEY_ID=... LEAGUECRAWL_S3_SECRET_ACCESS_KEY=... \
    leaguecrawl crawl --s3-bucket crawls --s3-endpoint http://localhost:9000 --s3-path-style`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().String("seed", config.DefaultSeedLeagueID,
		"League id the crawl starts from when no checkpoint exists")
	cmd.Flags().Int("cap", config.DefaultCap,
		"Pending leagues at which a cycle stops expanding users")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent API requests")
	cmd.Flags().IntP("rate", "r", ratelimit.DefaultCallsPerMinute,
		"API calls per minute shared by all workers")
	cmd.Flags().Bool("no-progress", false, "Do not print progress lines")

	// API flags
	cmd.Flags().String("sport", sleeper.DefaultSport, "Sport of the user and state endpoints")
	cmd.Flags().String("season", "", "Season queried for user leagues (default: current season)")
	cmd.Flags().DurationP("timeout", "t", sleeper.DefaultTimeout, "Timeout for each request attempt")
	cmd.Flags().Int("max-retries", sleeper.DefaultMaxRetries,
		"Retries after a rate-limited or unavailable response")
	cmd.Flags().String("proxy", "", "SOCKS5 proxy address (e.g., 127.0.0.1:1080)")

	// Remote mirror flags
	cmd.Flags().String("s3-bucket", "", "S3 bucket mirroring the checkpoint directory")
	cmd.Flags().String("s3-prefix", config.AppName, "Key prefix inside the bucket")
	cmd.Flags().String("s3-region", "", "S3 region")
	cmd.Flags().String("s3-endpoint", "", "Custom endpoint for S3-compatible stores")
	cmd.Flags().Bool("s3-path-style", false, "Use path-style bucket addressing")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyCrawlFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, stopping after the current request...")
			cancel()
		case <-ctx.Done():
		}
	}()

	var progressOut io.Writer
	if cfg.Progress {
		progressOut = cmd.ErrOrStderr()
	}
	return runCrawl(ctx, cfg, logger, progressOut)
}

// applyCrawlFlags overlays the crawl flags the user set explicitly.
func applyCrawlFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	strs := map[string]*string{
		"seed":        &cfg.SeedLeagueID,
		"sport":       &cfg.Sport,
		"season":      &cfg.Season,
		"proxy":       &cfg.ProxyAddress,
		"s3-bucket":   &cfg.S3Bucket,
		"s3-prefix":   &cfg.S3Prefix,
		"s3-region":   &cfg.S3Region,
		"s3-endpoint": &cfg.S3Endpoint,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	ints := map[string]*int{
		"cap":         &cfg.Cap,
		"workers":     &cfg.Workers,
		"rate":        &cfg.CallsPerMinute,
		"max-retries": &cfg.MaxRetries,
	}
	for name, dst := range ints {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetInt(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	if flags.Changed("timeout") {
		v, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = v
	}
	if flags.Changed("s3-path-style") {
		v, err := flags.GetBool("s3-path-style")
		if err != nil {
			return err
		}
		cfg.S3PathStyle = v
	}
	if flags.Changed("no-progress") {
		v, err := flags.GetBool("no-progress")
		if err != nil {
			return err
		}
		cfg.Progress = !v
	}
	return nil
}

// newAPIClient creates the Sleeper client for cfg.
func newAPIClient(cfg *config.Config, logger *slog.Logger) (*sleeper.Client, error) {
	opts := []sleeper.Option{
		sleeper.WithBaseURL(cfg.BaseURL),
		sleeper.WithSport(cfg.Sport),
		sleeper.WithTimeout(cfg.Timeout),
		sleeper.WithRetry(cfg.MaxRetries, cfg.InitialBackoff, cfg.MaxBackoff),
		sleeper.WithUserAgent(cfg.UserAgent),
		sleeper.WithLogger(logger),
	}
	if cfg.Season != "" {
		opts = append(opts, sleeper.WithSeason(cfg.Season))
	}
	if cfg.ProxyAddress != "" {
		opts = append(opts, sleeper.WithSOCKS5Proxy(cfg.ProxyAddress))
	}

	client, err := sleeper.NewClient(ratelimit.New(cfg.CallsPerMinute, cfg.Workers), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sleeper client: %w", err)
	}
	return client, nil
}

// runCrawl resumes the checkpoint in cfg.DataDir and crawls until both queues
// are empty or ctx is cancelled. Progress lines go to progressOut when it is
// not nil.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, progressOut io.Writer) error {
	client, err := newAPIClient(cfg, logger)
	if err != nil {
		return err
	}
	return crawlWith(ctx, cfg, client, logger, progressOut)
}

// crawlWith runs the crawl against api. It is split from runCrawl so tests
// can substitute the API.
func crawlWith(ctx context.Context, cfg *config.Config, api crawler.API, logger *slog.Logger, progressOut io.Writer) error {
	seed, err := cfg.Seed()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	syncer, err := newSyncer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	pull(ctx, syncer, cfg, logger)

	store, err := checkpoint.Open(cfg.DataDir, checkpoint.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close checkpoint", "error", err)
		}
	}()

	state, err := store.Load(ctx, seed)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}
	counts := state.Counts()
	logger.Info("starting crawl",
		"checkpoint", store.Path(),
		"discovered", counts.Discovered,
		"pending_leagues", counts.PendingLeagues,
		"pending_users", counts.PendingUsers,
		"queried_users", counts.QueriedUsers,
		"cap", cfg.Cap,
		"workers", cfg.Workers,
	)

	opts := []crawler.Option{
		crawler.WithCap(cfg.Cap),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithLogger(logger),
	}
	var progress *report.Progress
	if progressOut != nil {
		progress = report.NewProgress(progressOut)
		opts = append(opts, crawler.WithProgress(progress.Update))
	}

	afterCycle := func(ctx context.Context, state *model.FrontierState, _ crawler.CycleStats) error {
		// A finished cycle is committed even if a signal arrives meanwhile.
		saveCtx := context.WithoutCancel(ctx)
		stats, err := store.Save(saveCtx, state)
		if err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}
		if progress != nil {
			progress.Saved(stats)
		}
		logger.Debug("checkpoint saved",
			"version", stats.Version,
			"leagues", stats.TotalLeagues,
			"new", stats.NewLeagues,
			"elapsed", stats.Elapsed.Round(time.Millisecond),
		)
		push(saveCtx, syncer, cfg, logger)
		return nil
	}

	err = crawler.New(api, opts...).Run(ctx, state, afterCycle)
	if errors.Is(err, context.Canceled) {
		logger.Info("crawl interrupted, the last saved checkpoint is kept", "checkpoint", store.Path())
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("crawl complete", "discovered", state.DiscoveredCount(), "queried_users", state.QueriedCount())
	return nil
}

// push uploads the data directory. Failures are logged only.
func push(ctx context.Context, syncer *remotesync.Syncer, cfg *config.Config, logger *slog.Logger) {
	if !syncer.Enabled() {
		return
	}
	res, err := syncer.Push(ctx, cfg.DataDir, cfg.S3Prefix)
	if err != nil {
		logger.Warn("failed to push checkpoint", "remote", remoteLocation(cfg), "error", err)
		return
	}
	logger.Debug("checkpoint pushed", "remote", remoteLocation(cfg), "files", res.Files, "bytes", res.Bytes)
}
