// Package session groups the process-wide state the original C
// implementation kept as globals (state, request, devices, the master
// clock snapshot) into one struct passed to every loop. The grown flag is
// kept per queue, in each device's DualQueue.
package session

import (
	"sync/atomic"

	"github.com/rom9/multirec/internal/audiocore"
	"github.com/rom9/multirec/internal/audiocore/clock"
	"github.com/rom9/multirec/internal/audiocore/device"
)

// Request is a UI-issued command posted to the state machine.
type Request int

const (
	ReqNone Request = iota
	ReqStart
	ReqStop
)

// Session is the shared context every capture loop, the disk worker, and
// the state machine hold a reference to.
type Session struct {
	OutDir string

	Devices []*device.Device
	Clock   *clock.Snapshot

	// CPS is cycles (clock units) per frame, calibrated once at startup;
	// CPMillis is cycles per millisecond. See clock.CalibrateCPS.
	CPS, CPMillis int64

	Barrier *Barrier

	// RequestCh carries UI-issued start/stop requests to the state
	// machine goroutine.
	RequestCh chan Request

	state atomic.Int32

	// Session (recording) number, assigned by bootstrap.NextSessionNumber
	// at each RECORDING transition.
	sessionNumber atomic.Int32
}

// New creates a Session wired to devCount+1 barrier participants.
func New(outDir string, devices []*device.Device, cps, cpMillis int64) *Session {
	s := &Session{
		OutDir:    outDir,
		Devices:   devices,
		Clock:     &clock.Snapshot{},
		CPS:       cps,
		CPMillis:  cpMillis,
		Barrier:   NewBarrier(len(devices) + 1),
		RequestCh: make(chan Request, 1),
	}
	s.state.Store(int32(audiocore.StateSkip))
	return s
}

// State returns the current state. Written only by the state machine
// goroutine; read by every capture loop.
func (s *Session) State() audiocore.State {
	return audiocore.State(s.state.Load())
}

// SetState publishes a new state. The caller is responsible for then
// calling Barrier.Wait so every capture loop observes it from a known
// synchronization point.
func (s *Session) SetState(st audiocore.State) {
	s.state.Store(int32(st))
}

// Master returns device 0, the drift-compensation reference.
func (s *Session) Master() *device.Device {
	return s.Devices[0]
}

// SessionNumber returns the currently assigned recording session number.
func (s *Session) SessionNumber() int {
	return int(s.sessionNumber.Load())
}

// SetSessionNumber records the session number assigned for the next
// recording (bootstrap.NextSessionNumber).
func (s *Session) SetSessionNumber(n int) {
	s.sessionNumber.Store(int32(n))
}
