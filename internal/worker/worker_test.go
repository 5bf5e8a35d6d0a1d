// SPDX-License-Identifier: MIT
package worker

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"spectro/internal/source"
	"spectro/pkg/utils"
)

const testFileRate = 8000

// memorySink records every event for later inspection.
type memorySink struct {
	mu         sync.Mutex
	records    []Record
	settings   []SettingsUpdate
	progress   []float64
	terminated []Reason

	// recordsAtTermination captures the record count at the moment the
	// termination event fired, for ordering assertions.
	recordsAtTermination int
}

func (m *memorySink) OnRecord(rec Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
}

func (m *memorySink) OnSettings(update SettingsUpdate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = append(m.settings, update)
}

func (m *memorySink) OnProgress(_ int, percent float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress = append(m.progress, percent)
}

func (m *memorySink) OnTerminated(_ int, reason Reason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terminated = append(m.terminated, reason)
	m.recordsAtTermination = len(m.records)
}

func (m *memorySink) snapshot() ([]Record, []Reason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...), append([]Reason(nil), m.terminated...)
}

func (m *memorySink) recordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

var _ Sink = (*memorySink)(nil)

// writeSineWAV writes a mono 16-bit WAV of the given duration carrying a
// 440Hz sinusoid.
func writeSineWAV(t *testing.T, path string, seconds float64) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test WAV: %v", err)
	}
	defer f.Close()

	frames := int(testFileRate * seconds)
	pcm := utils.GenerateSineWavePCM(frames, testFileRate, 440)
	data := make([]int, frames)
	for i, s := range pcm {
		data[i] = int(s)
	}

	enc := wav.NewEncoder(f, testFileRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: 1, SampleRate: testFileRate},
		Data:   data,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("failed to write test WAV: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("failed to close test WAV: %v", err)
	}
}

func fastOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		RecordingDir: t.TempDir(),
		FilePacing:   time.Millisecond,
		PollInterval: time.Millisecond,
	}
}

func waitDone(t *testing.T, w *Worker) {
	t.Helper()
	select {
	case <-w.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not terminate in time")
	}
}

func TestFileWorkerRunsToExhaustion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	writeSineWAV(t, path, 1.0)

	sink := &memorySink{}
	// 0.125 is exact in binary, so the grid size is not at the mercy of
	// accumulated rounding.
	w := New(1, source.FileDescriptor(path, 0), 0.05, 0.125, 0.25, sink, fastOptions(t))
	go w.Run()
	waitDone(t, w)

	if w.Reason() != ReasonOK {
		t.Fatalf("reason: got %s, want ok", w.Reason())
	}

	records, terminated := sink.snapshot()

	// Grid of 8 sample times (0, 0.125, ..., 0.875); the t=0 window runs
	// past the start edge and is skipped, so 7 records are emitted.
	if len(records) != 7 {
		t.Errorf("record count: got %d, want 7", len(records))
	}
	if len(terminated) != 1 || terminated[0] != ReasonOK {
		t.Errorf("terminated events: got %v, want exactly one ok", terminated)
	}

	for i := 1; i < len(records); i++ {
		if records[i].Iteration <= records[i-1].Iteration {
			t.Errorf("iterations not strictly increasing at %d: %d then %d",
				i, records[i-1].Iteration, records[i].Iteration)
		}
		if records[i].Time < records[i-1].Time {
			t.Errorf("sample times decreasing at %d: %g then %g",
				i, records[i-1].Time, records[i].Time)
		}
	}

	for _, rec := range records {
		if rec.Total != 8 {
			t.Errorf("record total: got %d, want 8", rec.Total)
		}
		// window 0.05s at 8000Hz gives N=400, so 200 non-negative bins.
		if len(rec.PSD) != 200 {
			t.Errorf("PSD length: got %d, want 200", len(rec.PSD))
		}
	}
}

func TestFileWorkerPublishesSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	writeSineWAV(t, path, 0.5)

	sink := &memorySink{}
	w := New(2, source.FileDescriptor(path, 0), 0.05, 0.1, 0.25, sink, fastOptions(t))
	go w.Run()
	waitDone(t, w)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.settings) == 0 {
		t.Fatal("no settings event published")
	}
	s := sink.settings[0]
	if s.SampleRate != testFileRate {
		t.Errorf("sample rate: got %g, want %d", s.SampleRate, testFileRate)
	}
	if s.N%2 != 0 {
		t.Errorf("N must be even, got %d", s.N)
	}
	if want := s.SampleRate / float64(s.N); s.DF != want {
		t.Errorf("DF: got %g, want %g", s.DF, want)
	}
	if len(s.Frequencies) != s.N/2 {
		t.Errorf("frequency count: got %d, want %d", len(s.Frequencies), s.N/2)
	}
	if len(sink.progress) == 0 {
		t.Error("file worker emitted no progress events")
	}
}

func TestFileWorkerWritesRecordingCopy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	writeSineWAV(t, path, 0.5)

	opts := fastOptions(t)
	sink := &memorySink{}
	w := New(7, source.FileDescriptor(path, 0), 0.05, 0.1, 0, sink, opts)
	go w.Run()
	waitDone(t, w)

	if _, err := os.Stat(source.RecordingPath(opts.RecordingDir, 7)); err != nil {
		t.Errorf("recording copy missing: %v", err)
	}
}

func TestMissingFileTerminatesImmediately(t *testing.T) {
	sink := &memorySink{}
	desc := source.FileDescriptor(filepath.Join(t.TempDir(), "ghost.wav"), 0)
	w := New(3, desc, 0.3, 0.3, 0.25, sink, fastOptions(t))
	go w.Run()
	waitDone(t, w)

	if w.Reason() != ReasonSourceNotFound {
		t.Errorf("reason: got %s, want source-not-found", w.Reason())
	}

	records, terminated := sink.snapshot()
	if len(records) != 0 {
		t.Errorf("expected zero records, got %d", len(records))
	}
	if len(terminated) != 1 {
		t.Errorf("terminated events: got %d, want 1", len(terminated))
	}
}

func TestAbortOrdering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	writeSineWAV(t, path, 4.0)

	sink := &memorySink{}
	w := New(4, source.FileDescriptor(path, 0), 0.05, 0.05, 0.25, sink, fastOptions(t))
	go w.Run()

	// Let a few records through, then abort.
	deadline := time.Now().Add(5 * time.Second)
	for sink.recordCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	w.Abort()
	waitDone(t, w)

	if w.Reason() != ReasonOK {
		t.Errorf("reason after abort: got %s, want ok", w.Reason())
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.terminated) != 1 {
		t.Fatalf("terminated events: got %d, want 1", len(sink.terminated))
	}
	if len(sink.records) != sink.recordsAtTermination {
		t.Errorf("records emitted after termination: %d then %d",
			sink.recordsAtTermination, len(sink.records))
	}
}

func TestUpdateSettingsAtomicity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	writeSineWAV(t, path, 2.0)

	sink := &memorySink{}
	// window 0.05s -> N=400 -> 200 bins; window 0.02s -> N=160 -> 80 bins.
	w := New(5, source.FileDescriptor(path, 0), 0.05, 0.02, 0.25, sink, fastOptions(t))
	go w.Run()

	deadline := time.Now().Add(5 * time.Second)
	for sink.recordCount() < 5 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	w.UpdateSettings(0.02, 0.02, 0.25)

	// The swap must land before the grid runs out.
	sawNew := false
	for !sawNew && time.Now().Before(deadline) {
		records, _ := sink.snapshot()
		for _, rec := range records {
			if len(rec.PSD) == 80 {
				sawNew = true
				break
			}
		}
		time.Sleep(time.Millisecond)
	}
	waitDone(t, w)

	if !sawNew {
		t.Fatal("no record reflected the new settings")
	}

	records, _ := sink.snapshot()
	for _, rec := range records {
		if n := len(rec.PSD); n != 200 && n != 80 {
			t.Errorf("record %d has %d bins; want entirely old (200) or new (80)",
				rec.Iteration, n)
		}
	}
}

func TestUpdateSettingsClamps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	writeSineWAV(t, path, 1.0)

	sink := &memorySink{}
	w := New(6, source.FileDescriptor(path, 0), 0.05, 0.05, 0.25, sink, fastOptions(t))
	go w.Run()

	deadline := time.Now().Add(5 * time.Second)
	for sink.recordCount() < 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	w.UpdateSettings(3.0, 0.05, 2.0) // clamps to window=1, alpha=1
	waitDone(t, w)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	last := sink.settings[len(sink.settings)-1]
	if last.N != testFileRate { // 1 second window at 8000Hz
		t.Errorf("clamped window N: got %d, want %d", last.N, testFileRate)
	}
}

func TestOpenReasonMapping(t *testing.T) {
	tests := []struct {
		desc string
		err  error
		want Reason
	}{
		{"timeout", errInitTimeout, ReasonInitTimeout},
		{"missing file", source.ErrNotFound, ReasonSourceNotFound},
		{"wrapped missing file", errors.Join(errors.New("ctx"), source.ErrNotFound), ReasonSourceNotFound},
		{"device", source.ErrUnavailable, ReasonDeviceUnavailable},
		{"other", errors.New("boom"), ReasonInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := openReason(tt.err); got != tt.want {
				t.Errorf("openReason: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestReasonStrings(t *testing.T) {
	tests := []struct {
		reason Reason
		want   string
	}{
		{ReasonOK, "ok"},
		{ReasonSourceNotFound, "source-not-found"},
		{ReasonDeviceUnavailable, "device-unavailable"},
		{ReasonInitTimeout, "init-timeout"},
		{ReasonInternalError, "internal-error"},
		{ReasonCallbackError, "callback-error"},
		{Reason(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.reason.String(); got != tt.want {
			t.Errorf("Reason(%d).String(): got %s, want %s", tt.reason, got, tt.want)
		}
	}
}
