package driver

import (
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/rom9/multirec/internal/audiocore"
	"github.com/rom9/multirec/internal/errors"
	"github.com/rom9/multirec/internal/logging"
)

// MalgoDriver adapts gen2brain/malgo's callback-based capture to the
// blocking Driver contract, reusing the Start/onAudioData/Stop lifecycle
// of a malgo capture source; the callback here appends into an
// accumulator instead of a lossy output channel, since the disk pipeline
// cannot tolerate dropped frames.
type MalgoDriver struct {
	name string

	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	periodFrames int
	bufferFrames int

	buf    []int16 // accumulated interleaved samples awaiting ReadInto
	dataCh chan struct{}

	linkedMaster *MalgoDriver
	closed       bool
}

// NewMalgoDriver constructs an unopened driver handle.
func NewMalgoDriver() *MalgoDriver {
	return &MalgoDriver{dataCh: make(chan struct{}, 1)}
}

func (d *MalgoDriver) Open(name string) error {
	backend, err := backendForPlatform()
	if err != nil {
		return err
	}

	ctx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, nil)
	if err != nil {
		return errors.New(err).Component("driver").Category(errors.CategoryDriver).
			Context("device_name", name).Context("operation", "init_context").Build()
	}

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		_ = ctx.Uninit()
		return errors.New(err).Component("driver").Category(errors.CategoryDriver).
			Context("operation", "enumerate_devices").Build()
	}

	deviceInfo, err := SelectDevice(infos, name)
	if err != nil {
		_ = ctx.Uninit()
		return err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = audiocore.Channels
	deviceConfig.Capture.DeviceID = deviceInfo.ID.Pointer()
	deviceConfig.SampleRate = audiocore.SampleRate
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: d.onAudioData,
	})
	if err != nil {
		_ = ctx.Uninit()
		return errors.New(err).Component("driver").Category(errors.CategoryDriver).
			Context("device_name", name).Context("operation", "init_device").Build()
	}

	d.mu.Lock()
	d.name = name
	d.ctx = ctx
	d.device = device
	d.mu.Unlock()

	logging.ForComponent("driver").Info("opened capture device",
		"device", name, "sample_rate", audiocore.SampleRate, "channels", audiocore.Channels)
	return nil
}

func (d *MalgoDriver) HWParams(bufferTime, periodTime time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.periodFrames = int(periodTime.Seconds() * audiocore.SampleRate)
	d.bufferFrames = int(bufferTime.Seconds() * audiocore.SampleRate)
	if d.periodFrames <= 0 {
		d.periodFrames = 1024
	}
	if d.bufferFrames <= 0 {
		d.bufferFrames = d.periodFrames * 4
	}
	return nil
}

// SWParams sets availMin, the minimum frames Wait requires before
// reporting readiness. miniaudio has no direct analogue; availMin simply
// overrides periodFrames as the readiness threshold.
func (d *MalgoDriver) SWParams(availMin int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if availMin > 0 {
		d.periodFrames = availMin
	}
	return nil
}

func (d *MalgoDriver) Prepare() error {
	return nil
}

// Drop discards accumulated, unread samples.
func (d *MalgoDriver) Drop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buf = d.buf[:0]
	return nil
}

// Link has no miniaudio equivalent; hardware PCM linking is ALSA-specific.
// Devices are instead started together within one barrier-synchronized
// step by the orchestrator. Kept as a documented no-op to preserve the
// driver contract's shape.
func (d *MalgoDriver) Link(master Driver) error {
	if md, ok := master.(*MalgoDriver); ok {
		d.mu.Lock()
		d.linkedMaster = md
		d.mu.Unlock()
	}
	return nil
}

func (d *MalgoDriver) Unlink() error {
	d.mu.Lock()
	d.linkedMaster = nil
	d.mu.Unlock()
	return nil
}

func (d *MalgoDriver) Start() error {
	d.mu.Lock()
	device := d.device
	d.mu.Unlock()
	if device == nil {
		return errors.New(nil).Component("driver").Category(errors.CategoryState).
			Context("device_name", d.name).Context("error", "start before open").Build()
	}
	if err := device.Start(); err != nil {
		return errors.New(err).Component("driver").Category(errors.CategoryDriver).
			Context("device_name", d.name).Context("operation", "start").Build()
	}
	return nil
}

func (d *MalgoDriver) Wait(timeout time.Duration) (bool, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false, audiocore.ErrDriverClosed
	}
	threshold := d.periodFrames * audiocore.Channels
	ready := len(d.buf) >= threshold
	d.mu.Unlock()
	if ready {
		return true, nil
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-d.dataCh:
			d.mu.Lock()
			ready := len(d.buf) >= threshold
			d.mu.Unlock()
			if ready {
				return true, nil
			}
		case <-deadline.C:
			return false, nil
		}
	}
}

func (d *MalgoDriver) Delay() (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.buf) / audiocore.Channels), nil
}

func (d *MalgoDriver) ReadInto(out []int16, frames int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	needSamples := frames * audiocore.Channels
	if needSamples > len(d.buf) {
		needSamples = len(d.buf) - len(d.buf)%audiocore.Channels
	}
	if needSamples <= 0 {
		return 0, nil
	}
	n := copy(out, d.buf[:needSamples])
	d.buf = d.buf[n:]
	return n / audiocore.Channels, nil
}

func (d *MalgoDriver) Close() error {
	d.mu.Lock()
	device, ctx := d.device, d.ctx
	d.device, d.ctx = nil, nil
	d.closed = true
	d.mu.Unlock()

	if device != nil {
		_ = device.Stop()
		device.Uninit()
	}
	if ctx != nil {
		_ = ctx.Uninit()
	}
	return nil
}

// onAudioData is the malgo capture callback: it converts the raw buffer
// to interleaved int16 and appends to the accumulator, then wakes any
// goroutine blocked in Wait.
func (d *MalgoDriver) onAudioData(_ []byte, samples []byte, _ uint32) {
	converted, err := convertToS16(samples, malgo.FormatS16)
	if err != nil {
		logging.ForComponent("driver").Error("capture conversion failed", "device", d.name, "error", err)
		return
	}

	d.mu.Lock()
	d.buf = append(d.buf, converted...)
	d.mu.Unlock()

	select {
	case d.dataCh <- struct{}{}:
	default:
	}
}
