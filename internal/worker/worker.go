// SPDX-License-Identifier: MIT
/*
Package worker implements the cadence-controlled processing loop that ties
an acquisition source to the spectral estimator and emits records to a
sink.

Each worker owns one source and one estimator and runs on one goroutine.
Lifecycle: construction validates and opens the source under a bounded
timeout, the loop then emits records at the configured cadence, and
termination fires exactly once with a reason code, releasing the source
regardless of how the worker ended.
*/
package worker

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"spectro/internal/config"
	"spectro/internal/dsp"
	"spectro/internal/log"
	"spectro/internal/source"
)

var errInitTimeout = errors.New("source open timed out")

// Options tune worker timing and buffering. Zero values fall back to the
// configured defaults; tests shrink the pacing intervals.
type Options struct {
	RecordingDir string
	RingCapacity int
	ReadyTimeout time.Duration // bound on source open
	FilePacing   time.Duration // sleep between file-source cycles
	PollInterval time.Duration // cadence/cancellation poll granularity
}

func (o *Options) withDefaults() {
	if o.RingCapacity <= 0 {
		o.RingCapacity = config.DefaultRingCapacity
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = config.ReadyTimeout
	}
	if o.FilePacing <= 0 {
		o.FilePacing = config.FilePacing
	}
	if o.PollInterval <= 0 {
		o.PollInterval = config.PollInterval
	}
}

// Worker pulls fixed-size sample windows from one acquisition source at a
// controlled cadence, runs the spectral estimator, and emits records to the
// sink. Reconfiguration and abort may be invoked concurrently with the
// running loop.
type Worker struct {
	id   int
	desc source.Descriptor
	sink Sink
	opts Options

	// mu guards the raw parameters and the src handoff between Run and
	// UpdateSettings.
	mu       sync.Mutex
	window   float64
	interval float64
	alpha    float64
	src      source.Source

	// settings holds the current immutable derived settings. A single
	// pointer swap republishes all derived quantities together.
	settings atomic.Pointer[dsp.Settings]

	estimator *dsp.Estimator

	stopped  atomic.Bool
	reason   atomic.Int32
	termOnce sync.Once
	done     chan struct{}
}

// New constructs a worker bound to one source descriptor and the initial
// spectral parameters. The source is not opened until Run.
func New(id int, desc source.Descriptor, windowSeconds, interval, alpha float64, sink Sink, opts Options) *Worker {
	opts.withDefaults()
	return &Worker{
		id:        id,
		desc:      desc,
		sink:      sink,
		opts:      opts,
		window:    windowSeconds,
		interval:  interval,
		alpha:     alpha,
		estimator: dsp.NewEstimator(),
		done:      make(chan struct{}),
	}
}

// ID returns the worker identifier used to key its events and recording.
func (w *Worker) ID() int { return w.id }

// Done is closed when the worker has terminated and emitted its final event.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Reason returns the termination reason. Meaningful once Done is closed.
func (w *Worker) Reason() Reason { return Reason(w.reason.Load()) }

// Abort requests cooperative termination. The stop flag is observed at the
// top of the next cycle; a cycle in progress always completes first, and no
// records are emitted after the termination event.
func (w *Worker) Abort() {
	w.stopped.Store(true)
}

// UpdateSettings replaces the spectral parameters. WindowSeconds is clamped
// to (0, 1] and alpha to [0, 1]; the cadence interval is taken as given.
// All derived quantities are recomputed and republished atomically, so an
// emitted record always reflects entirely old or entirely new settings.
// Safe to call while the loop is running.
func (w *Worker) UpdateSettings(windowSeconds, interval, alpha float64) {
	w.mu.Lock()
	w.window = windowSeconds
	w.interval = interval
	w.alpha = alpha
	src := w.src
	w.mu.Unlock()

	if src == nil {
		// Run has not opened the source yet; the parameters are applied
		// when the initial settings are derived.
		return
	}
	w.publishSettings(src.SampleRate())
}

// publishSettings derives fresh settings from the current parameters,
// swaps them in, and notifies the sink.
func (w *Worker) publishSettings(sampleRate float64) {
	w.mu.Lock()
	s := dsp.NewSettings(sampleRate, w.window, w.interval, w.alpha)
	w.mu.Unlock()

	w.settings.Store(s)
	w.sink.OnSettings(SettingsUpdate{
		WorkerID:    w.id,
		SampleRate:  s.SampleRate,
		DF:          s.DF,
		N:           s.N,
		Frequencies: s.Frequencies,
	})
}

// Run opens the source and drives the cadence loop until exhaustion, abort,
// or failure. It blocks until termination; callers normally run it on its
// own goroutine (see Pool).
func (w *Worker) Run() {
	defer close(w.done)

	src, err := w.openSource()
	if err != nil {
		log.Errorf("worker %d: source open failed: %v", w.id, err)
		w.terminate(openReason(err))
		return
	}

	w.mu.Lock()
	w.src = src
	w.mu.Unlock()

	if w.stopped.Load() {
		w.terminate(ReasonOK)
		return
	}

	// Publishing here rather than in New keeps the settings event ordered
	// after the sink is known to be listening and the true sample rate is
	// known.
	w.publishSettings(src.SampleRate())

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("worker %d: cycle fault: %v", w.id, r)
			w.terminate(ReasonInternalError)
		}
	}()

	w.loop()
}

// openSource opens the descriptor's source under the ready timeout. A
// source that arrives after the timeout is closed to release its stream.
func (w *Worker) openSource() (source.Source, error) {
	recordPath := source.RecordingPath(w.opts.RecordingDir, w.id)

	type result struct {
		src source.Source
		err error
	}
	ch := make(chan result, 1)
	go func() {
		src, err := source.Open(w.desc, recordPath, w.opts.RingCapacity)
		ch <- result{src, err}
	}()

	select {
	case r := <-ch:
		return r.src, r.err
	case <-time.After(w.opts.ReadyTimeout):
		go func() {
			if r := <-ch; r.src != nil {
				r.src.Close()
			}
		}()
		return nil, errInitTimeout
	}
}

// openReason maps a source open failure to its termination reason.
func openReason(err error) Reason {
	switch {
	case errors.Is(err, errInitTimeout):
		return ReasonInitTimeout
	case errors.Is(err, source.ErrNotFound):
		return ReasonSourceNotFound
	case errors.Is(err, source.ErrUnavailable):
		return ReasonDeviceUnavailable
	default:
		return ReasonInternalError
	}
}

// loop is the cadence-controlled cycle. File sources walk a fixed time grid
// computed from the initial cadence; device sources use wall-clock elapsed
// time and block (polling) until the cadence interval has passed.
func (w *Worker) loop() {
	fileMode := w.desc.Kind == source.KindFile
	start := time.Now()

	var grid []float64
	total := 0
	if fileMode {
		s := w.settings.Load()
		duration := w.src.Duration()
		for t := 0.0; t < duration; t += s.Interval {
			grid = append(grid, t)
		}
		total = len(grid)
		log.Debugf("worker %d: file grid of %d sample times over %.2fs", w.id, total, duration)
	}

	for i := 0; ; i++ {
		if w.stopped.Load() {
			w.terminate(ReasonOK)
			return
		}

		select {
		case err := <-w.src.Err():
			log.Errorf("worker %d: callback fault: %v", w.id, err)
			w.terminate(ReasonCallbackError)
			return
		default:
		}

		cycleStart := time.Now()
		s := w.settings.Load()

		var sampleTime float64
		if fileMode {
			if i >= total {
				w.terminate(ReasonOK)
				return
			}
			sampleTime = grid[i]
		} else {
			sampleTime = time.Since(start).Seconds()
		}

		// A nil window is a normal condition: end-of-data edge for files,
		// rolling buffer not yet full for devices. Either way the cycle
		// skips emission and keeps pacing.
		if window := w.src.Read(sampleTime, s.N); window != nil {
			psd := w.estimator.Estimate(window, s)
			w.sink.OnRecord(Record{
				WorkerID:  w.id,
				Iteration: i,
				Total:     total,
				Time:      sampleTime,
				PSD:       psd,
			})
			if fileMode {
				w.sink.OnProgress(w.id, 100*float64(i+1)/float64(total))
			}
		}

		if fileMode {
			time.Sleep(w.opts.FilePacing)
		} else {
			// Poll instead of sleeping the whole interval so that abort and
			// cadence changes take effect at sub-second granularity.
			for time.Since(cycleStart).Seconds() < w.settings.Load().Interval {
				if w.stopped.Load() {
					w.terminate(ReasonOK)
					return
				}
				time.Sleep(w.opts.PollInterval)
			}
		}
	}
}

// terminate records the reason (first write wins), releases the source, and
// notifies the sink exactly once. Shutdown is idempotent: closing an
// already-closed source is a no-op.
func (w *Worker) terminate(reason Reason) {
	w.termOnce.Do(func() {
		w.reason.Store(int32(reason))
		w.stopped.Store(true)

		w.mu.Lock()
		src := w.src
		w.mu.Unlock()
		if src != nil {
			if err := src.Close(); err != nil {
				log.Warnf("worker %d: source close: %v", w.id, err)
			}
		}

		w.sink.OnTerminated(w.id, reason)
		log.Infof("worker %d: terminated (%s)", w.id, reason)
	})
}
