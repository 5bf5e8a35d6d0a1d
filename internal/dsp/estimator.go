// SPDX-License-Identifier: MIT
package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// powerFloor replaces non-positive or infinite PSD values before the log
// so that silent windows yield a finite floor instead of -Inf.
const powerFloor = 1.0e-8

// Estimator computes log-power spectral density estimates from fixed-size
// PCM sample windows. It owns a workspace of pre-allocated buffers plus a
// taper and FFT plan cached by (N, alpha), so repeated calls with unchanged
// settings never recompute coefficients.
//
// An Estimator is not safe for concurrent use; each worker owns one.
type Estimator struct {
	n     int
	alpha float64

	fft    *fourier.FFT
	taper  []float64
	input  []float64
	coeffs []complex128
}

// NewEstimator creates an empty estimator. Buffers are sized lazily on the
// first Estimate call for a given Settings value.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// prepare sizes the workspace for s and refreshes the cached taper. The
// taper is obtained by running the gonum Tukey transform over a unit
// sequence, giving the raw coefficients to reuse across calls.
func (e *Estimator) prepare(s *Settings) {
	if e.fft == nil || e.n != s.N {
		e.n = s.N
		e.fft = fourier.NewFFT(s.N)
		e.input = make([]float64, s.N)
		e.coeffs = make([]complex128, s.N/2+1)
		e.taper = nil // length changed, coefficients are stale
	}

	if s.Alpha > 0 && (e.taper == nil || e.alpha != s.Alpha) {
		taper := make([]float64, e.n)
		for i := range taper {
			taper[i] = 1
		}
		window.Tukey{Alpha: s.Alpha}.Transform(taper)
		e.taper = taper
		e.alpha = s.Alpha
	}
}

// Estimate windows the samples with the Tukey taper (when alpha > 0),
// computes the discrete Fourier transform, and returns log10(|X(f)|²/df)
// over exactly the non-negative-frequency bins of s. Inputs shorter than N
// are zero-padded. The returned slice is freshly allocated: ownership
// transfers to the caller and the values are never mutated afterwards.
func (e *Estimator) Estimate(samples []float64, s *Settings) []float64 {
	e.prepare(s)

	inputLen := len(samples)
	for i := range e.input {
		if i < inputLen {
			v := samples[i]
			if s.Alpha > 0 {
				v *= e.taper[i]
			}
			e.input[i] = v
		} else {
			e.input[i] = 0
		}
	}

	e.fft.Coefficients(e.coeffs, e.input)

	spectra := make([]float64, len(s.Frequencies))
	for i := range spectra {
		c := e.coeffs[i]
		re, im := real(c), imag(c)
		p := (re*re + im*im) / s.DF
		if p <= 0 || math.IsInf(p, 0) {
			p = powerFloor
		}
		spectra[i] = math.Log10(p)
	}
	return spectra
}
