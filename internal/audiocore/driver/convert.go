package driver

import (
	"encoding/binary"
	"math"

	"github.com/gen2brain/malgo"
)

// convertToS16 converts a raw capture callback buffer from sourceFormat
// into interleaved int16 samples. Adapted from the malgo source package's
// ConvertToS16, which worked in bytes; this version returns samples
// directly since every caller in this package wants them as int16
// immediately.
func convertToS16(samples []byte, sourceFormat malgo.FormatType) ([]int16, error) {
	if sourceFormat == malgo.FormatS16 {
		out := make([]int16, len(samples)/2)
		for i := range out {
			out[i] = int16(binary.LittleEndian.Uint16(samples[i*2 : i*2+2]))
		}
		return out, nil
	}

	var bytesPerSample int
	switch sourceFormat {
	case malgo.FormatS24:
		bytesPerSample = 3
	case malgo.FormatS32, malgo.FormatF32:
		bytesPerSample = 4
	case malgo.FormatU8:
		bytesPerSample = 1
	default:
		return nil, errUnsupportedFormat(sourceFormat)
	}

	validSampleCount := len(samples) / bytesPerSample
	out := make([]int16, validSampleCount)

	for i := range validSampleCount {
		srcIdx := i * bytesPerSample
		switch sourceFormat {
		case malgo.FormatU8:
			val := uint8(samples[srcIdx])
			out[i] = int16((int32(val) - 128) * 256)

		case malgo.FormatS24:
			val := int32(samples[srcIdx]) | int32(samples[srcIdx+1])<<8 | int32(samples[srcIdx+2])<<16
			if (val & 0x800000) != 0 {
				val |= int32(-0x1000000)
			}
			val >>= 8
			out[i] = clampInt16(val)

		case malgo.FormatS32:
			val := int32(binary.LittleEndian.Uint32(samples[srcIdx : srcIdx+4]))
			val >>= 16
			out[i] = clampInt16(val)

		case malgo.FormatF32:
			bits := binary.LittleEndian.Uint32(samples[srcIdx : srcIdx+4])
			val := math.Float32frombits(bits) * 32767.0
			out[i] = clampFloat16(val)
		}
	}

	return out, nil
}

func clampInt16(val int32) int16 {
	switch {
	case val > 32767:
		return 32767
	case val < -32768:
		return -32768
	default:
		return int16(val)
	}
}

func clampFloat16(val float32) int16 {
	switch {
	case val > 32767.0:
		return 32767
	case val < -32768.0:
		return -32768
	default:
		return int16(val)
	}
}
