package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and let callers use
// errors.Is() while still giving the user a readable message.
var (
	// ErrInvalidSeed is returned when the seed league id is not a positive
	// integer.
	ErrInvalidSeed = errors.New("invalid seed league id: must be a positive integer")

	// ErrInvalidCap is returned when the per-cycle league cap is not positive.
	ErrInvalidCap = errors.New("invalid cap: must be positive")

	// ErrInvalidRate is returned when the calls-per-minute budget is not positive.
	ErrInvalidRate = errors.New("invalid rate: calls per minute must be positive")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRetry is returned when the retry limits are negative or the
	// maximum backoff is shorter than the initial backoff.
	ErrInvalidRetry = errors.New("invalid retry settings")

	// ErrMissingDataDir is returned when no checkpoint directory is configured.
	ErrMissingDataDir = errors.New("data directory is required")

	// ErrInvalidLogFormat is returned for a log format other than text or json.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrConfigNotFound is returned when an explicitly requested
	// configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
