package utils

import "math"

// sampleScale puts generated signals at 16-bit PCM amplitude, matching what
// the acquisition sources deliver.
const sampleScale = math.MaxInt16 * 0.9

// GenerateComplexWave produces a 440Hz fundamental plus harmonics at 16-bit
// PCM scale, useful for exercising estimators with a non-trivial spectrum.
func GenerateComplexWave(size int, sampleRate float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = signal * sampleScale
	}
	return buffer
}

// GenerateSineWave produces a pure sinusoid at the given frequency at 16-bit
// PCM scale.
func GenerateSineWave(size int, sampleRate, frequency float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*frequency*t) * sampleScale
	}
	return buffer
}

// GenerateSineWavePCM is the int16 variant of GenerateSineWave, for feeding
// device-style rolling buffers.
func GenerateSineWavePCM(size int, sampleRate, frequency float64) []int16 {
	buffer := make([]int16, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = int16(math.Sin(2*math.Pi*frequency*t) * sampleScale)
	}
	return buffer
}

// FindPeakBin returns the index of the largest value in values within
// [startBin, endBin], clamping the range to the slice bounds.
func FindPeakBin(values []float64, startBin, endBin int) int {
	if len(values) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(values) {
		endBin = len(values) - 1
	}

	peakBin := startBin
	peakValue := values[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if values[bin] > peakValue {
			peakValue = values[bin]
			peakBin = bin
		}
	}

	return peakBin
}
