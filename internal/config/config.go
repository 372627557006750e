package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/leaguecrawl/internal/model"
	"github.com/nao1215/leaguecrawl/internal/ratelimit"
	"github.com/nao1215/leaguecrawl/internal/sleeper"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "leaguecrawl"

	// DefaultSeedLeagueID is the league the crawl starts from when no
	// checkpoint exists.
	DefaultSeedLeagueID = "1095093570517798912"

	// DefaultCap is the number of pending leagues at which a cycle stops
	// expanding users. A cycle therefore ingests roughly this many leagues
	// before it is checkpointed.
	DefaultCap = 1000

	// DefaultWorkers keeps requests strictly sequential.
	DefaultWorkers = 1

	// DefaultLogFormat is the human-readable slog text handler.
	DefaultLogFormat = "text"
)

// Config holds all configuration options for a crawl.
// It is populated by Load and the CLI flags and passed down explicitly.
type Config struct {
	// SeedLeagueID is the league the crawl starts from. It is only used
	// when the checkpoint is empty.
	SeedLeagueID string `yaml:"seed" env:"SEED"`

	// Cap is the per-cycle league cap.
	Cap int `yaml:"cap" env:"CAP"`

	// CallsPerMinute is the request budget against the Sleeper API, shared
	// by all workers.
	CallsPerMinute int `yaml:"calls_per_minute" env:"CALLS_PER_MINUTE"`

	// Workers is the number of concurrent fetches.
	Workers int `yaml:"workers" env:"WORKERS"`

	// Sport is the sport segment of user and state endpoints.
	Sport string `yaml:"sport" env:"SPORT"`

	// Season is the season queried for user leagues. Empty means the
	// current season reported by the API.
	Season string `yaml:"season" env:"SEASON"`

	// BaseURL is the Sleeper API root.
	BaseURL string `yaml:"base_url" env:"BASE_URL"`

	// Timeout bounds a single request attempt.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`

	// MaxRetries is the number of extra attempts after a rate-limited or
	// unavailable response.
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`

	// InitialBackoff and MaxBackoff shape the exponential retry schedule.
	InitialBackoff time.Duration `yaml:"initial_backoff" env:"INITIAL_BACKOFF"`
	MaxBackoff     time.Duration `yaml:"max_backoff" env:"MAX_BACKOFF"`

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string `yaml:"proxy" env:"PROXY"`

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string `yaml:"user_agent" env:"USER_AGENT"`

	// DataDir is the checkpoint directory.
	// Defaults to the XDG data directory (~/.local/share/leaguecrawl on Linux).
	DataDir string `yaml:"data_dir" env:"DATA_DIR"`

	// S3 mirror of DataDir. The mirror is disabled when S3Bucket is empty.
	S3Bucket          string `yaml:"s3_bucket" env:"S3_BUCKET"`
	S3Prefix          string `yaml:"s3_prefix" env:"S3_PREFIX"`
	S3Region          string `yaml:"s3_region" env:"S3_REGION"`
	S3Endpoint        string `yaml:"s3_endpoint" env:"S3_ENDPOINT"`
	S3PathStyle       bool   `yaml:"s3_path_style" env:"S3_PATH_STYLE"`
	S3AccessKeyID     string `yaml:"-" env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `yaml:"-" env:"S3_SECRET_ACCESS_KEY"`

	// Progress prints per-phase progress lines to stderr.
	Progress bool `yaml:"progress" env:"PROGRESS"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose" env:"VERBOSE"`

	// LogFormat selects the slog handler: "text" or "json".
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`

	// ConfigFilePath is the YAML file the values were loaded from, if any.
	ConfigFilePath string `yaml:"-" env:"-"`
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		SeedLeagueID:   DefaultSeedLeagueID,
		Cap:            DefaultCap,
		CallsPerMinute: ratelimit.DefaultCallsPerMinute,
		Workers:        DefaultWorkers,
		Sport:          sleeper.DefaultSport,
		BaseURL:        sleeper.DefaultBaseURL,
		Timeout:        sleeper.DefaultTimeout,
		MaxRetries:     sleeper.DefaultMaxRetries,
		InitialBackoff: sleeper.DefaultInitialBackoff,
		MaxBackoff:     sleeper.DefaultMaxBackoff,
		UserAgent:      sleeper.DefaultUserAgent,
		DataDir:        XDGDataDir(),
		S3Prefix:       AppName,
		Progress:       true,
		LogFormat:      DefaultLogFormat,
	}
}

// XDGDataDir returns the XDG data directory for leaguecrawl.
// On Linux: ~/.local/share/leaguecrawl
// On macOS: ~/Library/Application Support/leaguecrawl
// On Windows: %LOCALAPPDATA%\leaguecrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for leaguecrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Seed returns the parsed seed league id.
func (c *Config) Seed() (model.LeagueID, error) {
	id, err := model.ParseLeagueID(c.SeedLeagueID)
	if err != nil {
		return 0, ErrInvalidSeed
	}
	return id, nil
}

// RemoteEnabled reports whether the checkpoint is mirrored to S3.
func (c *Config) RemoteEnabled() bool {
	return c.S3Bucket != ""
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if _, err := c.Seed(); err != nil {
		return err
	}
	if c.Cap <= 0 {
		return ErrInvalidCap
	}
	if c.CallsPerMinute <= 0 {
		return ErrInvalidRate
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxRetries < 0 || c.InitialBackoff < 0 || c.MaxBackoff < c.InitialBackoff {
		return ErrInvalidRetry
	}
	if c.DataDir == "" {
		return ErrMissingDataDir
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return ErrInvalidLogFormat
	}
	return nil
}
