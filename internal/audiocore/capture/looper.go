// Package capture implements the per-device capture loop: the producer
// half of the pipeline, cycling on session state between monitoring,
// recording, and shutdown.
package capture

import (
	"log/slog"
	"time"

	"github.com/rom9/multirec/internal/audiocore"
	"github.com/rom9/multirec/internal/audiocore/clock"
	"github.com/rom9/multirec/internal/audiocore/device"
	"github.com/rom9/multirec/internal/audiocore/session"
	"github.com/rom9/multirec/internal/errors"
)

// Loop is one device's capture actor: it accepts a Device handle and a
// shared Session reference instead of reaching into process globals.
type Loop struct {
	sess *session.Session
	dev  *device.Device
	log  *slog.Logger

	periodFrames  int
	periodTimeout time.Duration

	scratch []int16
	errCh   chan error

	failed bool
}

// New builds a capture loop for dev within sess. periodFrames and
// periodTimeout come from the device's configured hw params.
func New(sess *session.Session, dev *device.Device, periodFrames int, periodTimeout time.Duration, log *slog.Logger) *Loop {
	return &Loop{
		sess:          sess,
		dev:           dev,
		log:           log,
		periodFrames:  periodFrames,
		periodTimeout: periodTimeout,
		scratch:       make([]int16, periodFrames*audiocore.Channels),
		errCh:         make(chan error, 1),
	}
}

// Errors returns a channel that receives at most one fatal driver error.
func (l *Loop) Errors() <-chan error {
	return l.errCh
}

// Run cycles on session state until STOPPING completes. It always calls
// Barrier.Wait() exactly once per announced transition, even after a
// fatal driver error, so a failed device never deadlocks the others.
func (l *Loop) Run() {
	defer close(l.errCh)

	var cur *audiocore.Chunk

	for {
		switch l.sess.State() {
		case audiocore.StateSkip:
			l.sess.Barrier.Wait()

		case audiocore.StateMonitoring:
			if !l.failed {
				l.monitorPeriod()
			}

		case audiocore.StateRecording:
			if !l.failed {
				cur = l.recordPeriod(cur)
			}

		case audiocore.StateStopping:
			if cur != nil && cur.Len > 0 {
				l.commit(cur)
				cur = nil
			}
			l.sess.Barrier.Wait()
			return
		}
	}
}

// monitorPeriod reads one period into a scratch buffer, updates peaks,
// and discards the frames (no disk I/O while monitoring).
func (l *Loop) monitorPeriod() {
	ready, err := l.dev.Driver.Wait(l.periodTimeout)
	if err != nil {
		l.fail(err, "wait")
		return
	}
	if !ready {
		return
	}

	n, err := l.dev.Driver.ReadInto(l.scratch, l.periodFrames)
	if err != nil {
		l.fail(err, "readi")
		return
	}
	l.dev.UpdatePeaks(l.scratch[:n*audiocore.Channels])
}

// recordPeriod runs one period of the recording algorithm: own a bucket
// if needed, wait+read, update peaks and (if master) the shared clock
// snapshot, and commit on threshold.
func (l *Loop) recordPeriod(cur *audiocore.Chunk) *audiocore.Chunk {
	if cur == nil {
		cur = l.dev.Queue.ProdOwn()
		if cur == nil {
			l.fail(audiocore.ErrQueueExhausted, "prod_own")
			return nil
		}
		cur.Reset()
	}

	ready, err := l.dev.Driver.Wait(l.periodTimeout)
	if err != nil {
		l.fail(err, "wait")
		return cur
	}
	if !ready {
		return cur
	}

	ts := clock.Now()
	delay, err := l.dev.Driver.Delay()
	if err != nil {
		l.fail(err, "delay")
		return cur
	}

	offset := cur.Len * audiocore.Channels
	room := len(cur.Buf) - offset
	wantFrames := l.periodFrames
	if wantFrames*audiocore.Channels > room {
		wantFrames = room / audiocore.Channels
	}

	n, err := l.dev.Driver.ReadInto(cur.Buf[offset:], wantFrames)
	if err != nil {
		l.fail(err, "readi")
		return cur
	}

	cur.TS = ts
	cur.Delay = delay
	l.dev.UpdatePeaks(cur.Buf[offset : offset+n*audiocore.Channels])
	cur.Len += n

	if l.dev.IsMaster() {
		l.sess.Clock.Publish(n, ts, delay)
	}

	if cur.Len >= audiocore.CommitThreshold {
		l.commit(cur)
		return nil
	}
	return cur
}

// commit snapshots the master clock into the chunk and hands it to the
// consumer via ProdFree.
func (l *Loop) commit(c *audiocore.Chunk) {
	mfc, mts, mdelay := l.sess.Clock.Read()
	c.MasterFrameCount = mfc
	c.MasterTS = mts
	c.MasterDelay = mdelay
	l.dev.Queue.ProdFree()
}

// fail records the first fatal error and puts the loop into a no-op mode
// for all future MONITORING/RECORDING periods; it still participates in
// every remaining barrier rendezvous.
func (l *Loop) fail(err error, op string) {
	if l.failed {
		return
	}
	l.failed = true

	ee := errors.New(err).
		Component("capture").
		Category(errors.CategoryDriver).
		DeviceContext(l.dev.Idx, l.dev.Name).
		Context("operation", op).
		Build()

	if l.log != nil {
		l.log.Error("capture loop failed", "operation", op, "error", ee)
	}
	select {
	case l.errCh <- ee:
	default:
	}
}
