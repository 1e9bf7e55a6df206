package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidSettings indicates the configuration failed validation.
	ErrInvalidSettings = errors.New("invalid settings")

	// ErrNotifierUnavailable indicates no messaging collaborator is configured.
	// Alerts and digests cannot be delivered without one.
	ErrNotifierUnavailable = errors.New("notifier unavailable")

	// ErrDeliveryFailed indicates the messaging collaborator rejected a send.
	// The operation is safe to retry; no alert record is kept for it.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrStoreUnavailable indicates the persistence layer cannot be reached.
	// Fatal for the current invocation; the caller owns retry policy.
	ErrStoreUnavailable = errors.New("store unavailable")
)
