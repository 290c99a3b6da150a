package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT wraps mjibson/go-dsp for real-valued frames
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute returns the full complex spectrum of x.
// go-dsp handles non-power-of-two sizes.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// ComputeInverseReal computes the inverse FFT and keeps the real part
func (f *FFT) ComputeInverseReal(x []complex128) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	result := fft.IFFT(x)
	realResult := make([]float64, len(result))
	for i, val := range result {
		realResult[i] = real(val)
	}
	return realResult
}

// Magnitude returns |X[k]| for the non-negative frequency bins of a spectrum
func Magnitude(spectrum []complex128, bins int) []float64 {
	bins = min(bins, len(spectrum))
	magnitude := make([]float64, bins)
	for k := range bins {
		magnitude[k] = cmplx.Abs(spectrum[k])
	}
	return magnitude
}

// FrequencyBins returns the centre frequency of each of the fftSize/2+1 bins
func FrequencyBins(sampleRate, fftSize int) []float64 {
	bins := fftSize/2 + 1
	freqs := make([]float64, bins)
	for k := range bins {
		freqs[k] = float64(k) * float64(sampleRate) / float64(fftSize)
	}
	return freqs
}
