package diskworker

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rom9/multirec/internal/audiocore/device"
	"github.com/rom9/multirec/internal/audiocore/fileio"
	"github.com/rom9/multirec/internal/audiocore/session"
)

func TestSplitStereoPassThrough(t *testing.T) {
	t.Parallel()

	buf := []int16{1, 2, 3, 4, 5, 6}
	left, right := splitStereo(buf, 3, false)
	assert.Equal(t, []int16{1, 3, 5}, left)
	assert.Equal(t, []int16{2, 4, 6}, right)
}

func TestSplitStereoInvertIsBitwiseNotPhase(t *testing.T) {
	t.Parallel()

	buf := []int16{0, 1, 100, -1}
	left, right := splitStereo(buf, 2, true)

	// 0xFFFF - 0 = 0xFFFF -> int16(-1)
	assert.Equal(t, int16(-1), left[0])
	// 0xFFFF - 100 = 65435 -> int16(-101), NOT -100 (which an acoustic
	// phase inversion would produce).
	assert.Equal(t, int16(-101), left[1])
	assert.NotEqual(t, int16(-100), left[1])

	// 0xFFFF - 1 = 0xFFFE -> int16(-2)
	assert.Equal(t, int16(-2), right[0])
}

func TestConsumeOneDiscardsEmptyChunk(t *testing.T) {
	t.Parallel()

	dev := device.New(0, device.Record{Name: "master"}, nil)
	sess := session.New(t.TempDir(), []*device.Device{dev}, 1, 1)
	w := New(sess, nil)

	c := dev.Queue.ProdOwn()
	require.NotNil(t, c)
	c.Len = 0
	dev.Queue.ProdFree()

	assert.False(t, w.consumeOne(dev))
}

func TestConsumeOneMasterPassesThrough(t *testing.T) {
	t.Parallel()

	dev := device.New(0, device.Record{Name: "master"}, nil)
	sess := session.New(t.TempDir(), []*device.Device{dev}, 1, 1)
	w := New(sess, nil)

	c := dev.Queue.ProdOwn()
	require.NotNil(t, c)
	c.Len = 4
	for i := range 8 {
		c.Buf[i] = int16(i)
	}
	c.MasterFrameCount = 0 // master's own chunks never carry a snapshot
	dev.Queue.ProdFree()

	left, err := fileio.Open(filepath.Join(t.TempDir(), "01_a.wav"))
	require.NoError(t, err)
	right, err := fileio.Open(filepath.Join(t.TempDir(), "01_b.wav"))
	require.NoError(t, err)
	dev.Left, dev.Right = left, right

	require.True(t, w.consumeOne(dev))
	assert.Equal(t, int64(4), dev.OutputFrameCount())
	assert.Equal(t, 4, left.Frames())
	assert.Equal(t, 4, right.Frames())

	require.NoError(t, left.Close())
	require.NoError(t, right.Close())
}
