package checkpoint

import "errors"

var (
	// ErrStoreNotFound is returned by Open when the checkpoint file is
	// missing and CreateIfNotExists is false.
	ErrStoreNotFound = errors.New("checkpoint not found")

	// ErrInvalidRecord is returned when a stored row cannot be decoded.
	ErrInvalidRecord = errors.New("invalid checkpoint record")

	// ErrNilState is returned when Save is called without a state.
	ErrNilState = errors.New("frontier state is nil")
)
