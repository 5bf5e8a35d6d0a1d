// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"spectro/internal/log"
)

// streamFramesPerBuffer is the hardware delivery size for input streams.
const streamFramesPerBuffer = 512

// DeviceSource streams mono 16-bit PCM from a live PortAudio input device.
// The hardware callback appends each delivered buffer to a bounded rolling
// ring and writes the raw frames to the side recording; the worker loop
// tail-reads the ring. The ring is the only state shared between the two
// execution contexts.
type DeviceSource struct {
	ring       *Ring
	stream     *portaudio.Stream
	sampleRate float64

	// Callback fault reporting. The callback must never panic past its
	// boundary; faults are delivered on errc instead.
	errc    chan error
	stopped atomic.Bool

	// Recording state, written only from the callback.
	wavFile    *os.File
	wavEncoder *wav.Encoder
	sampleBuf  *audio.IntBuffer

	closeOnce sync.Once
	closeErr  error
}

var _ Source = (*DeviceSource)(nil)

// OpenDevice resolves the input device (-1 for the system default), opens an
// input-only stream at the device's native sample rate, and starts it. The
// side recording at recordPath is written incrementally as 16-bit mono WAV.
// Any resolution or open failure yields ErrUnavailable. The returned source
// is fully usable: no readiness polling is needed by callers.
func OpenDevice(deviceID int, recordPath string, ringCapacity int) (*DeviceSource, error) {
	info, err := InputDevice(deviceID)
	if err != nil {
		return nil, err
	}
	sampleRate := info.DefaultSampleRate

	wavFile, err := os.Create(recordPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording %s: %w", recordPath, err)
	}

	d := &DeviceSource{
		ring:       NewRing(ringCapacity),
		sampleRate: sampleRate,
		errc:       make(chan error, 1),
		wavFile:    wavFile,
		wavEncoder: wav.NewEncoder(wavFile, int(sampleRate), 16, 1, 1),
		sampleBuf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: 1,
				SampleRate:  int(sampleRate),
			},
			Data: make([]int, streamFramesPerBuffer),
		},
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   info,
			Latency:  info.DefaultHighInputLatency,
		},
		FramesPerBuffer: streamFramesPerBuffer,
		SampleRate:      sampleRate,
	}

	stream, err := portaudio.OpenStream(params, d.processInput)
	if err != nil {
		wavFile.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	d.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		wavFile.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	log.Infof("source: opened device %q (%.0f Hz, ring %d samples)",
		info.Name, sampleRate, ringCapacity)
	return d, nil
}

// processInput is the hardware callback. It must return promptly on every
// invocation and never let a fault escape: panics are recovered and
// reported through Err, after which the callback becomes a no-op until the
// stream is torn down.
func (d *DeviceSource) processInput(in []int16) {
	defer func() {
		if r := recover(); r != nil {
			d.fail(fmt.Errorf("stream callback panic: %v", r))
		}
	}()

	if d.stopped.Load() {
		return
	}

	d.ring.Append(in)

	data := d.sampleBuf.Data[:cap(d.sampleBuf.Data)]
	n := len(in)
	if n > len(data) {
		n = len(data)
	}
	for i := 0; i < n; i++ {
		data[i] = int(in[i])
	}
	d.sampleBuf.Data = data[:n]

	if err := d.wavEncoder.Write(d.sampleBuf); err != nil {
		d.fail(fmt.Errorf("recording write failed: %w", err))
	}
}

// fail reports a callback fault once and halts further callback work.
func (d *DeviceSource) fail(err error) {
	d.stopped.Store(true)
	select {
	case d.errc <- err:
	default:
	}
}

// SampleRate returns the device's native sample rate in Hz.
func (d *DeviceSource) SampleRate() float64 {
	return d.sampleRate
}

// Duration returns 0: a live stream has no fixed extent.
func (d *DeviceSource) Duration() float64 {
	return 0
}

// Read returns the most recent n samples from the rolling buffer, or nil
// while the buffer has received fewer than n samples. The nil result before
// fill is the "not yet ready" signal the worker tolerates at startup.
func (d *DeviceSource) Read(_ float64, n int) []float64 {
	return d.ring.Tail(n)
}

// Err delivers faults raised inside the hardware callback.
func (d *DeviceSource) Err() <-chan error {
	return d.errc
}

// Close stops the stream and finalizes the recording. Idempotent: closing
// an already-closed source is a no-op.
func (d *DeviceSource) Close() error {
	d.closeOnce.Do(func() {
		d.stopped.Store(true)

		if d.stream != nil {
			if err := d.stream.Stop(); err != nil && d.closeErr == nil {
				d.closeErr = err
			}
			if err := d.stream.Close(); err != nil && d.closeErr == nil {
				d.closeErr = err
			}
		}
		if d.wavEncoder != nil {
			if err := d.wavEncoder.Close(); err != nil && d.closeErr == nil {
				d.closeErr = err
			}
		}
		if d.wavFile != nil {
			if err := d.wavFile.Close(); err != nil && d.closeErr == nil {
				d.closeErr = err
			}
		}
	})
	return d.closeErr
}
