// SPDX-License-Identifier: MIT
package transport

import (
	"errors"

	"spectro/internal/worker"
)

// Fanout delivers every worker event to each of its sinks, in order.
// A slow sink delays the ones after it; sinks that cannot keep up are
// expected to drop internally (see WebSocketSink rate limiting).
type Fanout struct {
	sinks []Sink
}

// NewFanout creates a Fanout over the given sinks.
func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) OnRecord(rec worker.Record) {
	for _, s := range f.sinks {
		s.OnRecord(rec)
	}
}

func (f *Fanout) OnSettings(u worker.SettingsUpdate) {
	for _, s := range f.sinks {
		s.OnSettings(u)
	}
}

func (f *Fanout) OnProgress(workerID int, percent float64) {
	for _, s := range f.sinks {
		s.OnProgress(workerID, percent)
	}
}

func (f *Fanout) OnTerminated(workerID int, reason worker.Reason) {
	for _, s := range f.sinks {
		s.OnTerminated(workerID, reason)
	}
}

// Close closes every sink and joins their errors.
func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Sink = (*Fanout)(nil)
