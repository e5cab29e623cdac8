// Package device holds the runtime Device type: one per configured sound
// card, combining its driver handle, its producer/consumer queue, its
// resampler, and its output files.
package device

import (
	"sync/atomic"
	"time"

	"github.com/rom9/multirec/internal/audiocore/driver"
	"github.com/rom9/multirec/internal/audiocore/fileio"
	"github.com/rom9/multirec/internal/audiocore/queue"
	"github.com/rom9/multirec/internal/audiocore/resample"
)

// Record is a parsed config-file device record: the literal
// whitespace-separated fields, before any runtime state is attached.
type Record struct {
	Name           string
	Invert         bool
	PrefBufferTime time.Duration
	PrefPeriodTime time.Duration
}

// Device is the runtime handle for one configured sound card.
type Device struct {
	Idx    int
	Name   string
	Record Record

	Driver driver.Driver
	Queue  *queue.DualQueue

	// Resampler is nil for the master device (idx 0); slaves get one
	// built once CPS calibration completes.
	Resampler *resample.DriftResampler

	Left, Right *fileio.MonoWriter

	outputFrameCount atomic.Int64
	peakLeft         atomic.Int32
	peakRight        atomic.Int32
}

// New builds a Device from a parsed Record and its index. The driver is
// constructed and opened by the caller (bootstrap); the queue is created
// here with queueBucketCount pre-allocated chunks.
func New(idx int, rec Record, drv driver.Driver) *Device {
	return &Device{
		Idx:    idx,
		Name:   rec.Name,
		Record: rec,
		Driver: drv,
		Queue:  queue.New(queueBucketCount),
	}
}

const queueBucketCount = 6

// IsMaster reports whether this is device 0, the drift-compensation
// reference.
func (d *Device) IsMaster() bool {
	return d.Idx == 0
}

// Mask returns this device's bit in a device-set bitmask (1<<idx).
func (d *Device) Mask() uint32 {
	return 1 << uint(d.Idx)
}

// OutputFrameCount returns the cumulative frames written for this device.
func (d *Device) OutputFrameCount() int64 {
	return d.outputFrameCount.Load()
}

// AddOutputFrames accumulates frames written by the disk worker.
func (d *Device) AddOutputFrames(n int) {
	d.outputFrameCount.Add(int64(n))
}

// ResetOutputFrameCount is called by initRecording at the start of each
// session.
func (d *Device) ResetOutputFrameCount() {
	d.outputFrameCount.Store(0)
}

// UpdatePeaks computes max(|sample|) per channel over freshly read
// interleaved stereo frames and stores them with atomic stores, without a
// lock; the UI reads a stale-but-bounded value by design.
func (d *Device) UpdatePeaks(frames []int16) {
	if len(frames) == 0 {
		return
	}
	var left, right int32
	for i := 0; i+1 < len(frames); i += 2 {
		if v := abs32(int32(frames[i])); v > left {
			left = v
		}
		if v := abs32(int32(frames[i+1])); v > right {
			right = v
		}
	}
	d.peakLeft.Store(left)
	d.peakRight.Store(right)
}

// Peaks returns the last-published per-channel peak sample magnitudes.
func (d *Device) Peaks() (left, right int32) {
	return d.peakLeft.Load(), d.peakRight.Load()
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
