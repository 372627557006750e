// Package log builds the application's slog loggers.
//
// Every logger is wrapped in a SecureHandler that masks attributes whose key
// or value looks like a credential: AWS access keys and secrets, session
// tokens, authorization headers and proxy URLs with embedded passwords.
// Masking applies in verbose mode too, so logs can be shared safely.
//
// # Usage
//
//	logger, err := log.New(os.Stderr, "json", verbose)
//	if err != nil {
//		return err
//	}
//	logger.Info("syncing checkpoint", "bucket", bucket, "s3_secret_access_key", secret)
//	// s3_secret_access_key=***REDACTED***
package log
