package resample

import "github.com/rom9/multirec/internal/audiocore"

// ChunkSnapshot is the subset of audiocore.Chunk the ratio formula needs,
// kept separate so drift_test.go can exercise the math without a live SRC.
type ChunkSnapshot struct {
	Len              int
	Delay            int64
	MasterFrameCount uint64
	MasterDelay      int64
	MasterTS         int64
	TS               int64
}

// ComputeRatio implements the drift-compensation formula ported from
// worker.c's conve(): the instantaneous resample ratio that would
// realign this slave chunk to the master device's clock.
//
// cps is cycles (here, clock units) per frame, per the calibration in
// clock.CalibrateCPS; tsDiff is computed in frames.
func ComputeRatio(k ChunkSnapshot, outputFrameCount int64, cps int64) float64 {
	if k.Len == 0 || cps == 0 {
		return 1.0
	}

	tsDiff := (k.TS / cps) - (k.MasterTS / cps)
	expected := int64(k.MasterFrameCount) + k.MasterDelay + tsDiff
	actualAfter := outputFrameCount + int64(k.Len) + k.Delay
	diff := expected - actualAfter

	return float64(int64(k.Len)+diff) / float64(k.Len)
}

// snapshotOf builds a ChunkSnapshot from an audiocore.Chunk.
func snapshotOf(c *audiocore.Chunk) ChunkSnapshot {
	return ChunkSnapshot{
		Len:              c.Len,
		Delay:            c.Delay,
		MasterFrameCount: c.MasterFrameCount,
		MasterDelay:      c.MasterDelay,
		MasterTS:         c.MasterTS,
		TS:               c.TS,
	}
}

// DriftResampler binds an SRC to the per-chunk ratio computation so the
// disk worker only has to call Resample.
type DriftResampler struct {
	src *SRC
	cps int64
}

// NewDriftResampler creates a drift resampler for one slave device.
func NewDriftResampler(channels int, cps int64) (*DriftResampler, error) {
	src, err := New(channels)
	if err != nil {
		return nil, err
	}
	return &DriftResampler{src: src, cps: cps}, nil
}

// Resample computes the ratio for chunk c against outputFrameCount (the
// device's cumulative output so far), submits it to the resampler, and
// processes the chunk. endOfInput should be true only while the session
// is STOPPING and the device's queue is draining.
func (d *DriftResampler) Resample(c *audiocore.Chunk, outputFrameCount int64, endOfInput bool) ([]int16, int, error) {
	ratio := ComputeRatio(snapshotOf(c), outputFrameCount, d.cps)
	if err := d.src.SetRatio(ratio); err != nil {
		return nil, 0, err
	}
	return d.src.Process(c.Buf, c.Len, endOfInput)
}

// Close releases the underlying resampler state.
func (d *DriftResampler) Close() error {
	return d.src.Close()
}
