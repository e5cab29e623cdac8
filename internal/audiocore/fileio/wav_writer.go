// Package fileio implements the mono 16-bit PCM file writer: open,
// append frames, close.
//
// Grounded in the export package's WAV writer (its structured-error
// conventions; Open does not create missing parent directories) but
// replaces its one-shot
// buffer-then-encode approach with go-audio/wav's streaming Encoder,
// since the disk worker must append frames as they arrive rather than
// hold an entire session in memory.
package fileio

import (
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/rom9/multirec/internal/audiocore"
	"github.com/rom9/multirec/internal/errors"
)

// MonoWriter streams one mono 16-bit PCM WAV file.
type MonoWriter struct {
	path    string
	file    *os.File
	encoder *wav.Encoder
	scratch *audio.IntBuffer
	frames  int
}

// Open creates path and begins a streaming mono WAV encode at
// audiocore.SampleRate, 16-bit.
func Open(path string) (*MonoWriter, error) {
	f, err := os.Create(path) //nolint:gosec // path is derived from a trusted session+device naming scheme
	if err != nil {
		return nil, errors.FileError(err, path, 0).
			Component("fileio").
			Category(errors.CategoryFileIO).
			Build()
	}

	enc := wav.NewEncoder(f, audiocore.SampleRate, 16, 1, 1)

	return &MonoWriter{
		path:    path,
		file:    f,
		encoder: enc,
		scratch: &audio.IntBuffer{
			Format: &audio.Format{NumChannels: 1, SampleRate: audiocore.SampleRate},
			Data:   make([]int, 0, 4096),
			SourceBitDepth: 16,
		},
	}, nil
}

// AppendFrames writes len(samples) mono frames to the file.
func (w *MonoWriter) AppendFrames(samples []int16) error {
	if len(samples) == 0 {
		return nil
	}

	if cap(w.scratch.Data) < len(samples) {
		w.scratch.Data = make([]int, len(samples))
	}
	w.scratch.Data = w.scratch.Data[:len(samples)]
	for i, s := range samples {
		w.scratch.Data[i] = int(s)
	}

	if err := w.encoder.Write(w.scratch); err != nil {
		return errors.New(err).
			Component("fileio").
			Category(errors.CategoryFileIO).
			FileContext(w.path, 0).
			Context("frames", len(samples)).
			Build()
	}
	w.frames += len(samples)
	return nil
}

// Frames returns the count of frames written so far.
func (w *MonoWriter) Frames() int {
	return w.frames
}

// Close flushes the WAV header (which the encoder back-patches with the
// final data size) and closes the underlying file.
func (w *MonoWriter) Close() error {
	if err := w.encoder.Close(); err != nil {
		_ = w.file.Close()
		return errors.New(err).
			Component("fileio").
			Category(errors.CategoryFileIO).
			FileContext(w.path, 0).
			Build()
	}
	if err := w.file.Close(); err != nil {
		return errors.New(err).
			Component("fileio").
			Category(errors.CategoryFileIO).
			FileContext(w.path, 0).
			Build()
	}
	return nil
}
