package spectral

import (
	"math"
)

// MelScale converts between Hz and mel and builds triangular filter banks
type MelScale struct{}

// NewMelScale creates a new mel scale converter
func NewMelScale() *MelScale {
	return &MelScale{}
}

// HzToMel converts frequency in Hz to mel scale
func (ms *MelScale) HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts mel scale to frequency in Hz
func (ms *MelScale) MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// CreateMelFilterBank creates numFilters triangular filters over the
// fftSize/2+1 bins between lowFreq and highFreq. highFreq is capped at Nyquist.
func (ms *MelScale) CreateMelFilterBank(numFilters int, fftSize int, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	if numFilters <= 0 || fftSize <= 0 || sampleRate <= 0 {
		return nil
	}

	highFreq = math.Min(highFreq, float64(sampleRate)/2)

	lowMel := ms.HzToMel(lowFreq)
	highMel := ms.HzToMel(highFreq)

	// Equally spaced mel points converted back to Hz
	hzPoints := make([]float64, numFilters+2)
	melStep := (highMel - lowMel) / float64(numFilters+1)
	for i := range hzPoints {
		hzPoints[i] = ms.MelToHz(lowMel + float64(i)*melStep)
	}

	freqs := FrequencyBins(sampleRate, fftSize)
	filterBank := make([][]float64, numFilters)

	for m := range numFilters {
		left, center, right := hzPoints[m], hzPoints[m+1], hzPoints[m+2]
		filter := make([]float64, len(freqs))

		for k, f := range freqs {
			switch {
			case f > left && f <= center && center > left:
				filter[k] = (f - left) / (center - left)
			case f > center && f < right && right > center:
				filter[k] = (right - f) / (right - center)
			}
		}

		filterBank[m] = filter
	}

	return filterBank
}

// ApplyFilterBank applies a filter bank to one power frame
func (ms *MelScale) ApplyFilterBank(powerSpectrum []float64, filterBank [][]float64) []float64 {
	melSpectrum := make([]float64, len(filterBank))

	for i, filter := range filterBank {
		sum := 0.0
		for j := 0; j < len(filter) && j < len(powerSpectrum); j++ {
			sum += powerSpectrum[j] * filter[j]
		}
		melSpectrum[i] = sum
	}

	return melSpectrum
}

// MelSpectrogram maps a power spectrogram onto numFilters mel bands
func (ms *MelScale) MelSpectrogram(power [][]float64, fftSize, sampleRate, numFilters int, lowFreq, highFreq float64) [][]float64 {
	filterBank := ms.CreateMelFilterBank(numFilters, fftSize, sampleRate, lowFreq, highFreq)

	mel := make([][]float64, len(power))
	for t, frame := range power {
		mel[t] = ms.ApplyFilterBank(frame, filterBank)
	}
	return mel
}
