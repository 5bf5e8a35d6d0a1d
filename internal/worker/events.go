// SPDX-License-Identifier: MIT
package worker

// Reason enumerates why a worker terminated. It is set at most once per
// worker lifetime; the first write wins.
type Reason int

const (
	ReasonOK Reason = iota
	ReasonSourceNotFound
	ReasonDeviceUnavailable
	ReasonInitTimeout
	ReasonInternalError
	ReasonCallbackError
)

// String returns the string representation of the Reason.
func (r Reason) String() string {
	switch r {
	case ReasonOK:
		return "ok"
	case ReasonSourceNotFound:
		return "source-not-found"
	case ReasonDeviceUnavailable:
		return "device-unavailable"
	case ReasonInitTimeout:
		return "init-timeout"
	case ReasonInternalError:
		return "internal-error"
	case ReasonCallbackError:
		return "callback-error"
	default:
		return "unknown"
	}
}

// Record is one emitted spectral estimate. It is immutable once emitted;
// ownership of the PSD slice transfers to the sink.
type Record struct {
	WorkerID  int
	Iteration int     // monotonically increasing, starting at 0
	Total     int     // expected record count for file sources, 0 for streams
	Time      float64 // sample time in seconds: grid time (files) or elapsed wall clock (devices)
	PSD       []float64
}

// SettingsUpdate republishes the derived spectral settings after initial
// setup or a reconfiguration. All four quantities come from one immutable
// settings value, never a mix of old and new.
type SettingsUpdate struct {
	WorkerID    int
	SampleRate  float64
	DF          float64
	N           int
	Frequencies []float64
}

// Sink consumes the events a worker emits. Implementations must be safe
// for concurrent use and should return promptly; the worker calls them
// inline from its cadence loop.
type Sink interface {
	// OnRecord receives each spectral record, in strictly increasing
	// iteration order and non-decreasing sample-time order.
	OnRecord(rec Record)

	// OnSettings receives the derived settings whenever they are
	// (re)published.
	OnSettings(update SettingsUpdate)

	// OnProgress reports completion percent. Emitted for file sources only.
	OnProgress(workerID int, percent float64)

	// OnTerminated fires exactly once per worker, after the final record.
	OnTerminated(workerID int, reason Reason)
}
