// SPDX-License-Identifier: MIT
package transport

import (
	applog "spectro/internal/log"
	"spectro/internal/worker"
)

// LogSink writes worker events to the application logger. Records are
// logged at debug level only, to keep the default output readable at
// streaming rates.
type LogSink struct{}

// NewLogSink creates a LogSink.
func NewLogSink() *LogSink {
	return &LogSink{}
}

func (ls *LogSink) OnRecord(rec worker.Record) {
	applog.Debugf("worker %d: record %d/%d at t=%.3fs (%d bins)",
		rec.WorkerID, rec.Iteration, rec.Total, rec.Time, len(rec.PSD))
}

func (ls *LogSink) OnSettings(u worker.SettingsUpdate) {
	applog.Infof("worker %d: settings fs=%.0fHz N=%d df=%.3fHz",
		u.WorkerID, u.SampleRate, u.N, u.DF)
}

func (ls *LogSink) OnProgress(workerID int, percent float64) {
	applog.Debugf("worker %d: %.0f%%", workerID, percent)
}

func (ls *LogSink) OnTerminated(workerID int, reason worker.Reason) {
	if reason == worker.ReasonOK {
		applog.Infof("worker %d: terminated (%s)", workerID, reason)
		return
	}
	applog.Warnf("worker %d: terminated (%s)", workerID, reason)
}

// Close is a no-op; the sink holds no resources.
func (ls *LogSink) Close() error { return nil }

var _ Sink = (*LogSink)(nil)
