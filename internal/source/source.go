// SPDX-License-Identifier: MIT
/*
Package source implements the acquisition side of the pipeline: it supplies
contiguous, time-indexed windows of PCM samples from either a recorded WAV
file or a live PortAudio input stream.

File sources load their data once and serve random time-offset reads.
Device sources maintain a bounded rolling buffer fed by the hardware
callback; the buffer is the only state shared between the callback and the
worker loop and is guarded accordingly.
*/
package source

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a file-backed source whose path does not exist
	// or cannot be decoded.
	ErrNotFound = errors.New("source file not found")
	// ErrUnavailable reports a device stream that could not be resolved
	// or opened.
	ErrUnavailable = errors.New("audio device unavailable")
)

// Kind discriminates the acquisition source variants.
type Kind int

const (
	KindFile Kind = iota
	KindDevice
)

// Descriptor identifies one acquisition source as an explicit tagged
// variant. It is immutable once a worker starts.
type Descriptor struct {
	Kind     Kind
	Path     string // WAV file path (KindFile)
	Channel  int    // 1-indexed channel for files; 0 means first / use as-is
	DeviceID int    // PortAudio device index (KindDevice); -1 = system default
}

// FileDescriptor builds a descriptor for a recorded WAV file.
func FileDescriptor(path string, channel int) Descriptor {
	return Descriptor{Kind: KindFile, Path: path, Channel: channel}
}

// DeviceDescriptor builds a descriptor for a live input device.
func DeviceDescriptor(deviceID int) Descriptor {
	return Descriptor{Kind: KindDevice, DeviceID: deviceID}
}

func (d Descriptor) String() string {
	switch d.Kind {
	case KindFile:
		return fmt.Sprintf("file:%s#%d", d.Path, d.Channel)
	case KindDevice:
		return fmt.Sprintf("device:%d", d.DeviceID)
	default:
		return "unknown"
	}
}

// Source supplies PCM sample windows to a processing worker.
type Source interface {
	// SampleRate returns the source sample rate in Hz.
	SampleRate() float64

	// Duration returns the length in seconds of the fixed historical data
	// for file sources, or 0 for live streams.
	Duration() float64

	// Read returns a window of n samples: centered at the given time for
	// file sources, or the most recent n samples for device streams. A nil
	// result is a normal condition, meaning the window runs past the data
	// edge (files) or the rolling buffer has not filled yet (devices).
	Read(center float64, n int) []float64

	// Err delivers asynchronous faults raised inside the stream callback.
	// File sources return a nil channel.
	Err() <-chan error

	// Close releases buffers, handles, and streams. Idempotent.
	Close() error
}

// Open opens the source described by d. recordPath receives the side
// recording: a verbatim copy for file sources, an incrementally written WAV
// for device streams. ringCapacity bounds the device rolling buffer.
func Open(d Descriptor, recordPath string, ringCapacity int) (Source, error) {
	switch d.Kind {
	case KindFile:
		return OpenFile(d.Path, d.Channel, recordPath)
	case KindDevice:
		return OpenDevice(d.DeviceID, recordPath, ringCapacity)
	default:
		return nil, fmt.Errorf("unknown source kind %d", d.Kind)
	}
}
