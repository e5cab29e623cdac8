// Package resample wraps the streaming resampler library (libsamplerate,
// via gosamplerate) behind a small new/set_ratio/process contract and
// implements the drift-compensation ratio algorithm on top of it.
package resample

import (
	"github.com/dh1tw/gosamplerate"

	"github.com/rom9/multirec/internal/errors"
)

// SRC is a thin adapter over gosamplerate.Src exposing new/set_ratio/
// process, the operations the drift resampler needs from its
// collaborator.
type SRC struct {
	src      gosamplerate.Src
	channels int
	ratio    float64
}

// New creates a linear-interpolation resampler for the given channel
// count, matching the original's src_new(SRC_LINEAR, channels).
func New(channels int) (*SRC, error) {
	src, err := gosamplerate.New(gosamplerate.SRC_LINEAR, channels, 4096)
	if err != nil {
		return nil, errors.New(err).
			Component("resample").
			Category(errors.CategoryResample).
			Context("channels", channels).
			Build()
	}
	return &SRC{src: src, channels: channels, ratio: 1.0}, nil
}

// SetRatio sets the target input:output ratio for the next Process call.
func (s *SRC) SetRatio(ratio float64) error {
	s.ratio = ratio
	if err := s.src.SetRatio(ratio); err != nil {
		return errors.New(err).
			Component("resample").
			Category(errors.CategoryResample).
			Context("ratio", ratio).
			Build()
	}
	return nil
}

// Process resamples inputFrames frames (channels samples per frame) of
// in, returning the generated interleaved samples and the frame count
// generated. endOfInput flushes any buffered tail.
func (s *SRC) Process(in []int16, inputFrames int, endOfInput bool) ([]int16, int, error) {
	samples := inputFrames * s.channels
	if samples > len(in) {
		samples = len(in)
	}

	floatIn := shortToFloat(in[:samples])
	floatOut, err := s.src.Process(floatIn, s.ratio, endOfInput)
	if err != nil {
		return nil, 0, errors.New(err).
			Component("resample").
			Category(errors.CategoryResample).
			Context("input_frames", inputFrames).
			Context("ratio", s.ratio).
			Build()
	}

	generated := len(floatOut) / s.channels
	return floatToShort(floatOut), generated, nil
}

// Close releases the underlying libsamplerate converter state.
func (s *SRC) Close() error {
	return gosamplerate.Delete(s.src)
}

func shortToFloat(in []int16) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v) / 32768.0
	}
	return out
}

func floatToShort(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, v := range in {
		scaled := v * 32768.0
		switch {
		case scaled > 32767:
			out[i] = 32767
		case scaled < -32768:
			out[i] = -32768
		default:
			out[i] = int16(scaled)
		}
	}
	return out
}
