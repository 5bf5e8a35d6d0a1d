// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/wav"

	"spectro/internal/log"
)

// FileSource serves sample windows from a fully loaded WAV file. The whole
// file is decoded once at open; reads are random time-offset slices into
// the in-memory buffer.
type FileSource struct {
	path       string
	sampleRate float64
	samples    []float64
	closed     bool
}

var _ Source = (*FileSource)(nil)

// OpenFile loads the WAV file at path, selecting the 1-indexed channel
// (0 selects the first channel), and copies the file verbatim to
// recordPath. A missing or undecodable file yields ErrNotFound.
// An empty recordPath skips the copy.
func OpenFile(path string, channel int, recordPath string) (*FileSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%w: %s is not a valid WAV file", ErrNotFound, path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	numChans := buf.Format.NumChannels
	if channel > numChans {
		return nil, fmt.Errorf("%w: %s has %d channels, requested %d",
			ErrNotFound, path, numChans, channel)
	}

	// Deinterleave the requested channel. Channel 0 means "use as-is",
	// which for multi-channel data takes the first channel.
	ch := channel - 1
	if ch < 0 {
		ch = 0
	}
	frames := len(buf.Data) / numChans
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		samples[i] = float64(buf.Data[i*numChans+ch])
	}

	if recordPath != "" {
		if err := copyFile(path, recordPath); err != nil {
			return nil, fmt.Errorf("failed to copy source recording: %w", err)
		}
	}

	sampleRate := float64(buf.Format.SampleRate)
	log.Debugf("source: loaded %s (%d samples, %.0f Hz, channel %d of %d)",
		path, frames, sampleRate, ch+1, numChans)

	return &FileSource{
		path:       path,
		sampleRate: sampleRate,
		samples:    samples,
	}, nil
}

// SampleRate returns the decoded file's sample rate in Hz.
func (s *FileSource) SampleRate() float64 {
	return s.sampleRate
}

// Duration returns the total file duration in seconds.
func (s *FileSource) Duration() float64 {
	return float64(len(s.samples)) / s.sampleRate
}

// Read returns the n samples centered at the given time, or nil when the
// window would run past either edge of the data. An edge miss is the normal
// end-of-data signal, not an error.
func (s *FileSource) Read(center float64, n int) []float64 {
	ctr := int(math.Round(center * s.sampleRate))
	half := n / 2

	if ctr-half < 0 || ctr+half >= len(s.samples) {
		return nil
	}

	out := make([]float64, 2*half)
	copy(out, s.samples[ctr-half:ctr+half])
	return out
}

// Err returns nil: file sources have no asynchronous execution context.
func (s *FileSource) Err() <-chan error {
	return nil
}

// Close releases the sample buffer. Idempotent.
func (s *FileSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.samples = nil
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
