package audiocore

import "errors"

// Sentinel errors recognized with errors.Is across the capture pipeline.
var (
	// ErrQueueExhausted means prod_own observed an empty empty-queue
	// despite auto-grow; this is an invariant violation, not a benign
	// condition.
	ErrQueueExhausted = errors.New("audiocore: bucket queue exhausted")

	// ErrNoDevices means a config produced zero device records.
	ErrNoDevices = errors.New("audiocore: no devices configured")

	// ErrDriverClosed is returned by a driver operation invoked after
	// Close.
	ErrDriverClosed = errors.New("audiocore: driver closed")
)
