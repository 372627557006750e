package remotesync

import "errors"

var (
	// ErrUnsafeKey is returned by Pull for object keys that would escape the
	// local directory.
	ErrUnsafeKey = errors.New("object key escapes local directory")

	// ErrMissingBucket is returned by NewS3Store without a bucket name.
	ErrMissingBucket = errors.New("bucket name is required")
)
