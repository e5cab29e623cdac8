package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/rom9/multirec/internal/audiocore"
)

// sessionFilePattern matches "NN_c.wav" output filenames.
var sessionFilePattern = regexp.MustCompile(`^(\d+)_[a-z]\.wav$`)

// NextSessionNumber scans outDir for files matching NN_c.wav and returns
// one past the largest session number found, or 1 if none exist.
// Grounded in multirec.c's fileNameFilter/openFiles scandir logic.
func NextSessionNumber(outDir string) (int, error) {
	entries, err := os.ReadDir(outDir)
	if os.IsNotExist(err) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}

	max := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := sessionFilePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}

// ChannelLetter returns the filename letter for device devIdx, channel
// channelIdx: 'a' + devIdx*Channels + channelIdx.
func ChannelLetter(devIdx, channelIdx int) byte {
	return byte('a' + devIdx*audiocore.Channels + channelIdx)
}

// OutputPath builds "<outDir>/<session:02d>_<letter>.wav".
func OutputPath(outDir string, session, devIdx, channelIdx int) string {
	letter := ChannelLetter(devIdx, channelIdx)
	return filepath.Join(outDir, fmt.Sprintf("%02d_%c.wav", session, letter))
}
