package spectral

import (
	"math"
)

// SpectralFlux measures frame-to-frame spectral change
type SpectralFlux struct{}

// NewSpectralFlux creates a new spectral flux calculator
func NewSpectralFlux() *SpectralFlux {
	return &SpectralFlux{}
}

// Compute returns the L2 norm of the positive bin differences between
// consecutive frames. The result has len(spectrogram)-1 values.
func (sf *SpectralFlux) Compute(spectrogram [][]float64) []float64 {
	if len(spectrogram) < 2 {
		return []float64{}
	}

	flux := make([]float64, len(spectrogram)-1)

	for t := 1; t < len(spectrogram); t++ {
		sum := 0.0
		for f := range spectrogram[t] {
			diff := spectrogram[t][f] - spectrogram[t-1][f]
			if diff > 0 {
				sum += diff * diff
			}
		}
		flux[t-1] = math.Sqrt(sum)
	}

	return flux
}

// OnsetStrength returns the mean positive difference between each frame and
// the one lag frames earlier, one value per frame. The first lag frames are 0
// so that index t lines up with spectrogram frame t. Use a dB spectrogram.
func (sf *SpectralFlux) OnsetStrength(spectrogram [][]float64, lag int) []float64 {
	lag = max(lag, 1)
	strength := make([]float64, len(spectrogram))

	for t := lag; t < len(spectrogram); t++ {
		bands := min(len(spectrogram[t]), len(spectrogram[t-lag]))
		if bands == 0 {
			continue
		}

		sum := 0.0
		for f := range bands {
			if diff := spectrogram[t][f] - spectrogram[t-lag][f]; diff > 0 {
				sum += diff
			}
		}
		strength[t] = sum / float64(bands)
	}

	return strength
}
