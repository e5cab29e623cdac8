// Package driver defines the blocking capture-driver contract used by the
// capture pipeline, and a gen2brain/malgo-backed implementation of it.
//
// The driver contract mirrors ALSA's PCM API: open/prepare/drop/link/
// unlink/start/wait/delay/readi/hw_params/sw_params. miniaudio (and
// therefore malgo) is callback-driven rather than blocking-read, so
// MalgoDriver adapts the callback to this contract with an internal
// sample accumulator; see malgo_driver.go.
package driver

import "time"

// Driver is one device's audio capture handle.
type Driver interface {
	// Open opens the named capture device.
	Open(name string) error

	// HWParams requests hardware parameters: fixed S16LE stereo at
	// audiocore.SampleRate, with the given buffer/period times as hints.
	HWParams(bufferTime, periodTime time.Duration) error

	// SWParams sets software parameters; availMin is the minimum
	// available-frames threshold before Wait reports readiness.
	SWParams(availMin int) error

	// Prepare readies the device for a Start.
	Prepare() error

	// Drop discards any pending captured data and stops the device
	// without uninitializing it.
	Drop() error

	// Link hardware-synchronizes this device's start/stop to master.
	// Link has no portable equivalent outside ALSA; see DESIGN.md.
	Link(master Driver) error

	// Unlink reverses Link.
	Unlink() error

	// Start begins capture.
	Start() error

	// Wait blocks until at least one period of frames is available or the
	// timeout elapses. Returns false on timeout (not an error). MalgoDriver
	// returns ErrDriverClosed when Wait is called after Close; a Close
	// during a Wait is not noticed before the timeout.
	Wait(timeout time.Duration) (bool, error)

	// Delay reports the number of frames captured but not yet consumed
	// via ReadInto.
	Delay() (int64, error)

	// ReadInto reads up to `frames` stereo frames (frames*Channels
	// int16 samples) into buf, returning the number of frames read.
	ReadInto(buf []int16, frames int) (int, error)

	// Close releases all driver resources.
	Close() error
}
