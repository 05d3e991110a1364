package core

import "errors"

var (
	// ErrPairNotFound is returned when an operation references an unknown
	// pair id or name.
	ErrPairNotFound = errors.New("sync pair not found")

	// ErrSyncDisabled is returned by SyncNow for a disabled pair.
	ErrSyncDisabled = errors.New("sync pair is disabled")
)
