package ui

import (
	"fmt"
	"io"
	"math"

	"github.com/rom9/multirec/internal/audiocore/session"
)

// meterWidth is the number of characters in the printed bar.
const meterWidth = 40

// PrintPeaks writes one line per device showing its last-published
// left/right peak levels as a dB-scaled bar, then moves the cursor back
// up by the device row count (ANSI cursor-up) so the next call
// overwrites the same rows.
func PrintPeaks(w io.Writer, sess *session.Session) {
	for _, dev := range sess.Devices {
		left, right := dev.Peaks()
		fmt.Fprintf(w, "  dev %d %-12s L[%s] R[%s]\n",
			dev.Idx, dev.Name, bar(left), bar(right))
	}
	fmt.Fprintf(w, "\x1b[%dA", len(sess.Devices))
}

// bar renders a peak sample magnitude (0..32768) as a fixed-width meter.
func bar(peak int32) string {
	db := dbFullScale(peak)
	// Map [-60dB, 0dB] onto [0, meterWidth].
	frac := (db + 60) / 60
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(frac * meterWidth)

	out := make([]byte, meterWidth)
	for i := range out {
		if i < filled {
			out[i] = '#'
		} else {
			out[i] = '-'
		}
	}
	return string(out)
}

func dbFullScale(peak int32) float64 {
	if peak <= 0 {
		return -60
	}
	return 20 * math.Log10(float64(peak)/32767.0)
}
