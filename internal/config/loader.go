package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".leaguecrawl"

// DefaultDotEnvFile is the dotenv file read from the working directory.
const DefaultDotEnvFile = ".env"

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LEAGUECRAWL_"

// LoadOptions controls where Load reads values from.
type LoadOptions struct {
	// ConfigFile is an explicit YAML file. When empty, FindConfigFile
	// searches the usual locations and a missing file is not an error.
	ConfigFile string

	// DotEnvFile is read if it exists. Empty means DefaultDotEnvFile.
	DotEnvFile string

	// Environ replaces the process environment. Tests use it.
	Environ map[string]string
}

// Load builds a Config from defaults, the YAML file, the dotenv file and the
// environment, in that order of increasing precedence. Real environment
// variables win over dotenv entries. The result is not validated.
func Load(opts LoadOptions) (*Config, error) {
	cfg := NewConfig()

	path := FindConfigFile(opts.ConfigFile)
	if opts.ConfigFile != "" && path == "" {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, opts.ConfigFile)
	}
	if path != "" {
		if err := LoadConfigFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.ConfigFilePath = path
	}

	environ, err := environment(opts)
	if err != nil {
		return nil, err
	}
	if err := env.ParseWithOptions(cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// environment merges the dotenv file under the process environment.
func environment(opts LoadOptions) (map[string]string, error) {
	base := opts.Environ
	if base == nil {
		base = env.ToMap(os.Environ())
	}

	dotenv := opts.DotEnvFile
	if dotenv == "" {
		dotenv = DefaultDotEnvFile
	}
	values, err := godotenv.Read(dotenv)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return base, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", dotenv, err)
	}

	merged := make(map[string]string, len(base)+len(values))
	for k, v := range values {
		merged[k] = v
	}
	for k, v := range base {
		merged[k] = v
	}
	return merged, nil
}

// LoadConfigFile overlays the YAML file at path onto cfg. Keys absent from
// the file leave cfg untouched.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrConfigNotFound
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .leaguecrawl in the current directory
// 3. Look for .leaguecrawl in the user's home directory
// 4. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}
