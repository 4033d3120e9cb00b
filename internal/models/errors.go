package models

import "errors"

// Sentinel errors surfaced to callers. Everything else is recovered locally
// with a deterministic fallback.
var (
	// ErrSongNotFound is returned when a familiarity adjustment targets an
	// identifier absent from the catalog index.
	ErrSongNotFound = errors.New("song not found in catalog")

	// ErrUnresolvedAttribution is returned when a feedback slot is unknown or
	// its owning session has expired.
	ErrUnresolvedAttribution = errors.New("feedback slot unknown or expired")

	// ErrEmptyCatalog marks the operational condition of a catalog with no
	// songs loaded.
	ErrEmptyCatalog = errors.New("song catalog is empty")

	// ErrInvalidSignal is returned for feedback signals outside the
	// positive/negative/used set.
	ErrInvalidSignal = errors.New("invalid feedback signal")
)
