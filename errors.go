package models

import "errors"

// Sentinel errors for model reconciliation operations.
// Use errors.Is() to check for specific error conditions.
var (
	// ErrConfig indicates the manifest or connection configuration is
	// missing, malformed, or violates a uniqueness invariant.
	// Fatal before any database I/O.
	ErrConfig = errors.New("models: invalid configuration")

	// ErrNotFound indicates an explicitly requested model id has no
	// manifest entry. Fatal for the whole requested batch.
	ErrNotFound = errors.New("models: unknown model id")

	// ErrConnection indicates the database session could not be
	// established. Fatal.
	ErrConnection = errors.New("models: database connection failed")

	// ErrFetch indicates a transport or extraction failure for one
	// artifact. Isolated to that artifact; the batch continues.
	ErrFetch = errors.New("models: artifact fetch failed")

	// ErrRegistry indicates a register or deregister call failed for one
	// name. Isolated per item; the batch continues.
	ErrRegistry = errors.New("models: registry operation failed")

	// ErrUsage indicates conflicting or insufficient CLI arguments.
	// Fatal before any I/O.
	ErrUsage = errors.New("models: invalid usage")
)
