// Package orchestrator drives the session state machine: it spawns the
// per-device capture loops and the disk worker, and sequences the
// SKIP/MONITORING/RECORDING/STOPPING transitions in response to
// UI-issued requests, mirroring multirec.c's main() control loop.
package orchestrator

import (
	"context"
	"log/slog"

	"github.com/rom9/multirec/internal/audiocore"
	"github.com/rom9/multirec/internal/audiocore/bootstrap"
	"github.com/rom9/multirec/internal/audiocore/capture"
	"github.com/rom9/multirec/internal/audiocore/device"
	"github.com/rom9/multirec/internal/audiocore/diskworker"
	"github.com/rom9/multirec/internal/audiocore/fileio"
	"github.com/rom9/multirec/internal/audiocore/resample"
	"github.com/rom9/multirec/internal/audiocore/session"
	"github.com/rom9/multirec/internal/errors"
	"github.com/rom9/multirec/internal/logging"
)

// StateMachine owns the capture loops, the disk worker, and the
// transitions between them for one Session.
type StateMachine struct {
	sess *session.Session
	log  *slog.Logger

	loops  []*capture.Loop
	errCh  chan error
	worker *diskworker.Worker
}

// New builds a state machine for sess. Call Init before Run.
func New(sess *session.Session, log *slog.Logger) *StateMachine {
	return &StateMachine{
		sess:  sess,
		log:   log,
		errCh: make(chan error, len(sess.Devices)),
	}
}

// Init prepares and links every device, then spawns one capture loop per
// device and the disk worker, and brings the session up to MONITORING.
func (sm *StateMachine) Init() error {
	master := sm.sess.Master()

	for _, dev := range sm.sess.Devices {
		if err := dev.Driver.Prepare(); err != nil {
			return sm.wrap(err, dev, "prepare")
		}
	}
	for _, dev := range sm.sess.Devices {
		if dev.IsMaster() {
			continue
		}
		if err := dev.Driver.Link(master.Driver); err != nil {
			return sm.wrap(err, dev, "link")
		}
	}

	sm.loops = make([]*capture.Loop, len(sm.sess.Devices))
	for i, dev := range sm.sess.Devices {
		periodFrames := int(dev.Record.PrefPeriodTime.Seconds() * audiocore.SampleRate)
		devLog := logging.ForDevice(sm.log, dev.Idx, dev.Name)
		loop := capture.New(sm.sess, dev, periodFrames, dev.Record.PrefPeriodTime*4, devLog)
		sm.loops[i] = loop
		go sm.forwardErrors(loop)
		go loop.Run()
	}

	sm.worker = diskworker.New(sm.sess, sm.log)
	go sm.worker.Run()

	sm.logTransition(audiocore.StateMonitoring)
	sm.sess.SetState(audiocore.StateMonitoring)
	sm.sess.Barrier.Wait()
	return nil
}

// logTransition records a state transition at Info level, the same
// session-lifecycle events an operator or log-shipping pipeline would
// want to see regardless of per-device detail.
func (sm *StateMachine) logTransition(st audiocore.State) {
	if sm.log == nil {
		return
	}
	sm.log.Info("session state transition", "from", sm.sess.State(), "to", st)
}

func (sm *StateMachine) forwardErrors(l *capture.Loop) {
	if err := <-l.Errors(); err != nil {
		select {
		case sm.errCh <- err:
		default:
		}
	}
}

// Run processes UI requests until ctx is cancelled or a stop completes.
func (sm *StateMachine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return sm.stop()

		case err := <-sm.errCh:
			if sm.log != nil {
				sm.log.Error("capture device failed, stopping session", "error", err)
			}
			if stopErr := sm.stop(); stopErr != nil {
				return errors.Join(err, stopErr)
			}
			return err

		case req := <-sm.sess.RequestCh:
			switch req {
			case session.ReqStart:
				if sm.sess.State() == audiocore.StateMonitoring {
					if err := sm.startRecording(); err != nil {
						return err
					}
				}
			case session.ReqStop:
				if sm.sess.State() == audiocore.StateRecording {
					return sm.stop()
				}
			}
		}
	}
}

// startRecording implements multirec.c's initRecording(): it pauses every
// capture loop at SKIP, reopens hardware with a fresh link, resets
// per-device state and resamplers, assigns a session number, opens output
// files, and resumes at RECORDING.
func (sm *StateMachine) startRecording() error {
	sm.logTransition(audiocore.StateSkip)
	sm.sess.SetState(audiocore.StateSkip)
	sm.sess.Barrier.Wait()

	master := sm.sess.Master()
	for _, dev := range sm.sess.Devices {
		if !dev.IsMaster() {
			if err := dev.Driver.Unlink(); err != nil {
				return sm.wrap(err, dev, "unlink")
			}
		}
		if err := dev.Driver.Drop(); err != nil {
			return sm.wrap(err, dev, "drop")
		}
		if err := dev.Driver.Prepare(); err != nil {
			return sm.wrap(err, dev, "prepare")
		}
	}
	for _, dev := range sm.sess.Devices {
		if dev.IsMaster() {
			continue
		}
		if err := dev.Driver.Link(master.Driver); err != nil {
			return sm.wrap(err, dev, "link")
		}
	}

	for _, dev := range sm.sess.Devices {
		dev.ResetOutputFrameCount()
		if dev.IsMaster() {
			continue
		}
		if dev.Resampler != nil {
			_ = dev.Resampler.Close()
		}
		r, err := resample.NewDriftResampler(audiocore.Channels, sm.sess.CPS)
		if err != nil {
			return sm.wrap(err, dev, "new_resampler")
		}
		dev.Resampler = r
	}

	num, err := bootstrap.NextSessionNumber(sm.sess.OutDir)
	if err != nil {
		return errors.New(err).Component("orchestrator").Category(errors.CategoryFileIO).Build()
	}
	sm.sess.SetSessionNumber(num)
	if sessLog := logging.ForSession(sm.log, num); sessLog != nil {
		sessLog.Info("assigned recording session number")
	}

	for _, dev := range sm.sess.Devices {
		left, err := fileio.Open(bootstrap.OutputPath(sm.sess.OutDir, num, dev.Idx, 0))
		if err != nil {
			return sm.wrap(err, dev, "open_left")
		}
		right, err := fileio.Open(bootstrap.OutputPath(sm.sess.OutDir, num, dev.Idx, 1))
		if err != nil {
			return sm.wrap(err, dev, "open_right")
		}
		dev.Left, dev.Right = left, right
	}

	// Link does not propagate Start, so every device is started here,
	// master first, before the barrier releases the capture loops.
	for _, dev := range sm.sess.Devices {
		if err := dev.Driver.Start(); err != nil {
			return sm.wrap(err, dev, "start")
		}
	}

	sm.logTransition(audiocore.StateRecording)
	sm.sess.SetState(audiocore.StateRecording)
	sm.sess.Barrier.Wait()
	return nil
}

// stop transitions to STOPPING, lets every capture loop flush and exit,
// drains the disk worker, and closes output files.
func (sm *StateMachine) stop() error {
	if sm.sess.State() != audiocore.StateStopping {
		sm.logTransition(audiocore.StateStopping)
		sm.sess.SetState(audiocore.StateStopping)
		sm.sess.Barrier.Wait()
	}

	sm.worker.Finish()
	<-sm.worker.Done()

	var first error
	for _, dev := range sm.sess.Devices {
		if dev.Left != nil {
			if err := dev.Left.Close(); err != nil && first == nil {
				first = err
			}
			dev.Left = nil
		}
		if dev.Right != nil {
			if err := dev.Right.Close(); err != nil && first == nil {
				first = err
			}
			dev.Right = nil
		}
	}
	if first != nil {
		return errors.New(first).Component("orchestrator").Category(errors.CategoryFileIO).Build()
	}
	return nil
}

func (sm *StateMachine) wrap(err error, dev *device.Device, op string) error {
	return errors.New(err).
		Component("orchestrator").
		Category(errors.CategoryDriver).
		DeviceContext(dev.Idx, dev.Name).
		Context("operation", op).
		Build()
}
