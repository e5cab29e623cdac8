package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "multirec.rc")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestParseConfigBasic(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "# comment line\nhw:0,0\t0\t100000\t25000\nhw:1,0 1 100000 25000\n\n")

	records, err := ParseConfig(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "hw:0,0", records[0].Name)
	assert.False(t, records[0].Invert)
	assert.Equal(t, 100*time.Millisecond, records[0].PrefBufferTime)
	assert.Equal(t, 25*time.Millisecond, records[0].PrefPeriodTime)

	assert.Equal(t, "hw:1,0", records[1].Name)
	assert.True(t, records[1].Invert)
}

func TestParseConfigRejectsBadFieldCount(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "hw:0,0 0 100000\n")
	_, err := ParseConfig(path)
	assert.Error(t, err)
}

func TestParseConfigRejectsEmptyFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "# only comments\n\n")
	_, err := ParseConfig(path)
	assert.Error(t, err)
}
