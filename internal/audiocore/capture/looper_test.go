package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rom9/multirec/internal/audiocore"
	"github.com/rom9/multirec/internal/audiocore/device"
	"github.com/rom9/multirec/internal/audiocore/driver"
	"github.com/rom9/multirec/internal/audiocore/session"
)

// fakeDriver implements driver.Driver, producing a fixed number of
// periods of deterministic frames, then reporting Wait timeouts forever.
type fakeDriver struct {
	periodFrames int
	periodsLeft  int
	sample       int16
}

func (f *fakeDriver) Open(string) error                                  { return nil }
func (f *fakeDriver) HWParams(bufferTime, periodTime time.Duration) error { return nil }
func (f *fakeDriver) SWParams(int) error                                 { return nil }
func (f *fakeDriver) Prepare() error                                     { return nil }
func (f *fakeDriver) Drop() error                                        { return nil }
func (f *fakeDriver) Link(driver.Driver) error                           { return nil }
func (f *fakeDriver) Unlink() error                                      { return nil }
func (f *fakeDriver) Start() error                                       { return nil }
func (f *fakeDriver) Close() error                                       { return nil }

var _ driver.Driver = (*fakeDriver)(nil)

func (f *fakeDriver) Wait(time.Duration) (bool, error) {
	return f.periodsLeft > 0, nil
}

func (f *fakeDriver) Delay() (int64, error) {
	return 0, nil
}

func (f *fakeDriver) ReadInto(buf []int16, frames int) (int, error) {
	if f.periodsLeft <= 0 {
		return 0, nil
	}
	f.periodsLeft--
	n := frames
	if n*audiocore.Channels > len(buf) {
		n = len(buf) / audiocore.Channels
	}
	for i := range n * audiocore.Channels {
		buf[i] = f.sample
		f.sample++
	}
	return n, nil
}

func newTestSession(t *testing.T, periodsPerDevice int, periodFrames int) (*session.Session, []*Loop) {
	t.Helper()

	masterDev := device.New(0, device.Record{Name: "master"}, &fakeDriver{periodFrames: periodFrames, periodsLeft: periodsPerDevice})
	sess := session.New(t.TempDir(), []*device.Device{masterDev}, 1, 1)

	loop := New(sess, masterDev, periodFrames, 50*time.Millisecond, nil)
	return sess, []*Loop{loop}
}

func TestRecordingCommitsOnThreshold(t *testing.T) {
	t.Parallel()

	const periodFrames = audiocore.CommitThreshold/4 + 1
	sess, loops := newTestSession(t, 6, periodFrames)
	sess.SetState(audiocore.StateRecording)

	var cur *audiocore.Chunk
	for range 5 {
		cur = loops[0].recordPeriod(cur)
	}

	master := sess.Devices[0]
	assert.GreaterOrEqual(t, master.Queue.ProdLen(), 1, "at least one bucket should have committed")
}

func TestChunkLenNeverExceedsCapacity(t *testing.T) {
	t.Parallel()

	const periodFrames = 4096
	sess, loops := newTestSession(t, 200, periodFrames)
	sess.SetState(audiocore.StateRecording)

	var cur *audiocore.Chunk
	for range 200 {
		cur = loops[0].recordPeriod(cur)
		if cur != nil {
			require.LessOrEqual(t, cur.Len, audiocore.BSIZ)
		}
	}
}

func TestMasterPublishesClockSnapshot(t *testing.T) {
	t.Parallel()

	const periodFrames = 512
	sess, loops := newTestSession(t, 3, periodFrames)
	sess.SetState(audiocore.StateRecording)

	var cur *audiocore.Chunk
	cur = loops[0].recordPeriod(cur)

	mfc, _, _ := sess.Clock.Read()
	assert.Equal(t, uint64(periodFrames), mfc)
}
