package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextSessionNumberEmptyDirIsOne(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	n, err := NextSessionNumber(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNextSessionNumberMissingDirIsOne(t *testing.T) {
	t.Parallel()

	n, err := NextSessionNumber(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNextSessionNumberIncrementsPastMax(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"03_a.wav", "03_b.wav", "01_a.wav"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	n, err := NextSessionNumber(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestChannelLetterAndOutputPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, byte('a'), ChannelLetter(0, 0))
	assert.Equal(t, byte('b'), ChannelLetter(0, 1))
	assert.Equal(t, byte('c'), ChannelLetter(1, 0))
	assert.Equal(t, byte('d'), ChannelLetter(1, 1))

	path := OutputPath("/out", 4, 1, 0)
	assert.Equal(t, "/out/04_c.wav", path)
}
