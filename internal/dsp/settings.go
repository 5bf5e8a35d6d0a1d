// SPDX-License-Identifier: MIT
/*
Package dsp implements the spectral estimation core of the pipeline:
derivation of FFT settings from user parameters, and the PSD estimator
that turns PCM sample windows into log-power spectra.
*/
package dsp

// Settings holds the spectral estimation parameters together with every
// quantity derived from them. A Settings value is immutable once built;
// reconfiguration constructs a fresh value and publishes it with a single
// pointer swap, so a consumer can never observe a stale N paired with a
// new DF.
type Settings struct {
	WindowSeconds float64 // Window length in seconds, clamped to (0, 1]
	Interval      float64 // Cadence between successive estimates, seconds
	Alpha         float64 // Tukey taper alpha, clamped to [0, 1]
	SampleRate    float64 // Source sample rate in Hz

	N           int       // FFT length, always even
	DF          float64   // Frequency resolution, SampleRate / N
	Frequencies []float64 // Non-negative frequency bins (0 .. N/2-1)
}

// NewSettings derives a complete Settings value from the raw parameters.
// WindowSeconds is clamped to (0, 1] and Alpha to [0, 1]; Interval is taken
// as given. N is round(SampleRate * WindowSeconds) forced up to an even
// value, and the frequency axis keeps only the bins that map to
// non-negative frequencies under the standard FFT ordering (the bin at N/2
// maps to -Nyquist and is excluded).
func NewSettings(sampleRate, windowSeconds, interval, alpha float64) *Settings {
	if windowSeconds > 1 {
		windowSeconds = 1
	}
	if alpha < 0 {
		alpha = 0
	} else if alpha > 1 {
		alpha = 1
	}

	n := int(windowSeconds*sampleRate + 0.5)
	if n%2 != 0 {
		n++
	}
	if n < 2 {
		n = 2
	}

	df := sampleRate / float64(n)
	freqs := make([]float64, n/2)
	for i := range freqs {
		freqs[i] = df * float64(i)
	}

	return &Settings{
		WindowSeconds: windowSeconds,
		Interval:      interval,
		Alpha:         alpha,
		SampleRate:    sampleRate,
		N:             n,
		DF:            df,
		Frequencies:   freqs,
	}
}

// Nyquist returns the highest representable frequency for these settings.
func (s *Settings) Nyquist() float64 {
	return s.SampleRate / 2
}
