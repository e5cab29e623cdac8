package orchestrator

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rom9/multirec/internal/audiocore/bootstrap"
	"github.com/rom9/multirec/internal/audiocore/device"
	"github.com/rom9/multirec/internal/audiocore/driver"
	"github.com/rom9/multirec/internal/audiocore/session"
)

// TestMain verifies, once all tests in the package have finished, that
// every capture loop, disk worker, and error-forwarding goroutine spawned
// by Init/Run has exited.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeDriver is a minimal driver.Driver that never fails and reports a
// steady trickle of silent frames, fast enough for a test but slow
// enough not to busy-spin the capture loop.
type fakeDriver struct {
	linked *fakeDriver
}

var _ driver.Driver = (*fakeDriver)(nil)

func (f *fakeDriver) Open(string) error                          { return nil }
func (f *fakeDriver) HWParams(time.Duration, time.Duration) error { return nil }
func (f *fakeDriver) SWParams(int) error                          { return nil }
func (f *fakeDriver) Prepare() error                              { return nil }
func (f *fakeDriver) Drop() error                                 { return nil }
func (f *fakeDriver) Unlink() error                               { f.linked = nil; return nil }
func (f *fakeDriver) Start() error                                { return nil }
func (f *fakeDriver) Delay() (int64, error)                       { return 0, nil }
func (f *fakeDriver) Close() error                                { return nil }

func (f *fakeDriver) Link(master driver.Driver) error {
	if md, ok := master.(*fakeDriver); ok {
		f.linked = md
	}
	return nil
}

func (f *fakeDriver) Wait(timeout time.Duration) (bool, error) {
	time.Sleep(time.Millisecond)
	return true, nil
}

func (f *fakeDriver) ReadInto(buf []int16, frames int) (int, error) {
	n := frames
	if n*2 > len(buf) {
		n = len(buf) / 2
	}
	for i := 0; i < n*2; i++ {
		buf[i] = 0
	}
	return n, nil
}

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	outDir := t.TempDir()

	devices := make([]*device.Device, 2)
	for i := range devices {
		rec := device.Record{
			Name:           "fake",
			PrefBufferTime: 20 * time.Millisecond,
			PrefPeriodTime: 5 * time.Millisecond,
		}
		devices[i] = device.New(i, rec, &fakeDriver{})
	}

	return session.New(outDir, devices, 1_000_000, 1_000)
}

func TestInitReachesMonitoring(t *testing.T) {
	t.Parallel()

	sess := newTestSession(t)
	sm := New(sess, nil)
	require.NoError(t, sm.Init())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sm.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("state machine did not stop after context cancel")
	}
}

func TestStartRecordingAssignsSessionNumberAndOpensFiles(t *testing.T) {
	t.Parallel()

	sess := newTestSession(t)
	sm := New(sess, nil)
	require.NoError(t, sm.Init())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- sm.Run(ctx) }()

	sess.RequestCh <- session.ReqStart
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, 1, sess.SessionNumber())
	for _, dev := range sess.Devices {
		assert.NotNil(t, dev.Left)
		assert.NotNil(t, dev.Right)
	}

	sess.RequestCh <- session.ReqStop
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("state machine did not stop after ReqStop")
	}

	for _, dev := range sess.Devices {
		for ch := 0; ch < 2; ch++ {
			path := bootstrap.OutputPath(sess.OutDir, 1, dev.Idx, ch)
			_, err := os.Stat(path)
			assert.NoError(t, err, "expected output file %s to exist", path)
		}
	}
}
