package bootstrap

import (
	"log/slog"

	"github.com/rom9/multirec/internal/audiocore"
	"github.com/rom9/multirec/internal/audiocore/clock"
	"github.com/rom9/multirec/internal/audiocore/device"
	"github.com/rom9/multirec/internal/audiocore/driver"
	"github.com/rom9/multirec/internal/audiocore/session"
	"github.com/rom9/multirec/internal/errors"
	"github.com/rom9/multirec/internal/logging"
)

// Bootstrap parses configPath, opens and parameterizes each device's
// driver, calibrates the clock, and returns a ready-to-run Session for
// outDir. Grounded in multirec.c's init()/cardInit()/set_hwparams().
func Bootstrap(configPath, outDir string, log *slog.Logger) (*session.Session, error) {
	records, err := ParseConfig(configPath)
	if err != nil {
		return nil, err
	}

	devices := make([]*device.Device, len(records))
	for i, rec := range records {
		drv := driver.NewMalgoDriver()
		if err := drv.Open(rec.Name); err != nil {
			return nil, err
		}
		if err := drv.HWParams(rec.PrefBufferTime, rec.PrefPeriodTime); err != nil {
			return nil, err
		}

		periodFrames := int(rec.PrefPeriodTime.Seconds() * audiocore.SampleRate)
		if err := drv.SWParams(periodFrames); err != nil {
			return nil, err
		}

		devices[i] = device.New(i, rec, drv)
		if devLog := logging.ForDevice(log, i, rec.Name); devLog != nil {
			devLog.Info("device configured", "invert", rec.Invert,
				"pref_buffer_time", rec.PrefBufferTime, "pref_period_time", rec.PrefPeriodTime)
		}
	}

	if log != nil {
		log.Info("calibrating clock")
	}
	cps, cpMillis := clock.CalibrateCPS(audiocore.SampleRate)
	if log != nil {
		log.Info("clock calibrated", "cps", cps, "cp_millis", cpMillis)
	}

	return session.New(outDir, devices, cps, cpMillis), nil
}

// Close tears down every device's driver and any open output files. Safe
// to call on a session whose recording was never started.
func Close(sess *session.Session) error {
	var first error
	for _, dev := range sess.Devices {
		if dev.Left != nil {
			if err := dev.Left.Close(); err != nil && first == nil {
				first = err
			}
		}
		if dev.Right != nil {
			if err := dev.Right.Close(); err != nil && first == nil {
				first = err
			}
		}
		if dev.Driver != nil {
			if err := dev.Driver.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	if first != nil {
		return errors.New(first).Component("bootstrap").Category(errors.CategoryResource).Build()
	}
	return nil
}
