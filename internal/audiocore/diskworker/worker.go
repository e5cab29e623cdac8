// Package diskworker implements the single consumer thread: round-robins
// every device's queue, drift-resamples non-master chunks, splits
// interleaved stereo into two mono buffers, and appends them to each
// device's output files.
package diskworker

import (
	"log/slog"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rom9/multirec/internal/audiocore"
	"github.com/rom9/multirec/internal/audiocore/device"
	"github.com/rom9/multirec/internal/audiocore/session"
	"github.com/rom9/multirec/internal/errors"
	"github.com/rom9/multirec/internal/logging"
)

// idleSleep is the original's usleep(500) between empty rounds.
const idleSleep = 500 * time.Microsecond

// Worker is the single disk-writing consumer.
type Worker struct {
	sess *session.Session
	log  *slog.Logger

	finished atomic.Bool
	done     chan struct{}

	// stall is an artificial per-chunk delay, controlled by
	// MULTIREC_WORKER_STALL_MS, standing in for the original's
	// -DMRSLOW build macro used to exercise auto-grow in tests (see
	// SPEC_FULL.md §6).
	stall time.Duration
}

// New constructs a disk worker for sess.
func New(sess *session.Session, log *slog.Logger) *Worker {
	w := &Worker{sess: sess, log: log, done: make(chan struct{})}
	if ms, err := strconv.Atoi(os.Getenv("MULTIREC_WORKER_STALL_MS")); err == nil && ms > 0 {
		w.stall = time.Duration(ms) * time.Millisecond
	}
	return w
}

// Finish requests the worker to exit once the current drain round
// produces no more work (multirec.c's waitPendingJobs).
func (w *Worker) Finish() {
	w.finished.Store(true)
}

// Done is closed once Run has drained every queue after Finish.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Run drives the round-robin consume loop until Finish has been called
// and a full round yields no work.
func (w *Worker) Run() {
	defer close(w.done)

	for {
		didWork := false
		for _, dev := range w.sess.Devices {
			if w.consumeOne(dev) {
				didWork = true
				if w.stall > 0 {
					time.Sleep(w.stall)
				}
			}
		}

		if !didWork {
			if w.finished.Load() {
				return
			}
			time.Sleep(idleSleep)
		}
	}
}

// consumeOne processes at most one chunk from dev's queue, returning
// whether any work was done.
func (w *Worker) consumeOne(dev *device.Device) bool {
	c := dev.Queue.ConsOwn()
	if c == nil {
		return false
	}
	defer dev.Queue.ConsFree()

	if c.Len == 0 {
		return false
	}

	var outBuf []int16
	var outLen int

	if dev.IsMaster() || c.MasterFrameCount == 0 {
		outBuf = c.Buf[:c.Len*audiocore.Channels]
		outLen = c.Len
	} else {
		draining := w.sess.State() == audiocore.StateStopping && dev.Queue.ProdLen() == 0
		out, generated, err := dev.Resampler.Resample(c, dev.OutputFrameCount(), draining)
		if err != nil {
			w.logFatal(dev, err)
			return true
		}
		outBuf, outLen = out, generated
	}

	dev.AddOutputFrames(outLen)

	left, right := splitStereo(outBuf, outLen, dev.Record.Invert)
	if err := dev.Left.AppendFrames(left); err != nil {
		w.logFatal(dev, err)
		return true
	}
	if err := dev.Right.AppendFrames(right); err != nil {
		w.logFatal(dev, err)
		return true
	}

	return true
}

// splitStereo separates interleaved stereo frames into two mono buffers.
// When invert is set the bitwise transform 0xFFFF-sample is applied,
// preserved from the original for compatibility; this is not an acoustic
// phase inversion (which would be -sample).
func splitStereo(buf []int16, frames int, invert bool) (left, right []int16) {
	left = make([]int16, frames)
	right = make([]int16, frames)
	for i := range frames {
		l, r := buf[i*2], buf[i*2+1]
		if invert {
			l = int16(0xFFFF - uint16(l))
			r = int16(0xFFFF - uint16(r))
		}
		left[i] = l
		right[i] = r
	}
	return left, right
}

func (w *Worker) logFatal(dev *device.Device, err error) {
	ee := errors.New(err).
		Component("diskworker").
		Category(errors.CategoryProcessing).
		DeviceContext(dev.Idx, dev.Name).
		Build()
	if devLog := logging.ForDevice(w.log, dev.Idx, dev.Name); devLog != nil {
		devLog.Error("disk worker failed", "error", ee)
	}
}
