package interfaces

import "errors"

var (
	// ErrInsufficientData is returned by the anomaly detector when a metric has
	// fewer than the minimum number of observations. Consumers render a
	// degraded state; this is a marker, not a fault.
	ErrInsufficientData = errors.New("insufficient data for deviation")

	// ErrNotFound is returned by storage lookups when no record exists for the
	// given key. First-run absence of a baseline is expected and tolerated.
	ErrNotFound = errors.New("record not found")

	// ErrMalformedConfiguration marks an invalid entity registry or floor
	// table at load time. Fatal at startup only — never raised mid-cycle.
	ErrMalformedConfiguration = errors.New("malformed configuration")

	// ErrCycleBusy is returned when a refresh cycle is requested while the
	// prior cycle's compute stage is still running. The cycle is skipped, not
	// queued.
	ErrCycleBusy = errors.New("refresh cycle already running")

	// ErrCycleTimeout is returned when the worker pool does not return within
	// the cycle deadline. No partial results are committed.
	ErrCycleTimeout = errors.New("refresh cycle deadline exceeded")

	// ErrThrottled is returned by the ingest gateway when a source family
	// exceeds its rate allowance. The collaborator retries next cycle.
	ErrThrottled = errors.New("ingest rate exceeded")

	// ErrBatchTooLarge is returned by the ingest gateway for batches beyond
	// the configured maximum.
	ErrBatchTooLarge = errors.New("ingest batch too large")
)
