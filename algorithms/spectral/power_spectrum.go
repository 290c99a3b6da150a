package spectral

import (
	"math"
)

// PowerSpectrum converts magnitude spectrograms to power, applies perceptual
// weighting and converts to decibels
type PowerSpectrum struct{}

// NewPowerSpectrum creates a new power spectrum calculator
func NewPowerSpectrum() *PowerSpectrum {
	return &PowerSpectrum{}
}

// Compute computes |X|^2 for one magnitude frame
func (ps *PowerSpectrum) Compute(magnitudeSpectrum []float64) []float64 {
	power := make([]float64, len(magnitudeSpectrum))
	for i, mag := range magnitudeSpectrum {
		power[i] = mag * mag
	}
	return power
}

// ComputeFromSTFT computes the power spectrogram of an STFT result
func (ps *PowerSpectrum) ComputeFromSTFT(stftResult *STFTResult) [][]float64 {
	power := make([][]float64, stftResult.TimeFrames)
	for t := range stftResult.TimeFrames {
		power[t] = ps.Compute(stftResult.Magnitude[t])
	}
	return power
}

// AWeighting returns the A-weighting curve in dB for each frequency (IEC 61672).
// The curve is floored at minDB.
func AWeighting(frequencies []float64, minDB float64) []float64 {
	const (
		c1 = 12194.217 * 12194.217
		c2 = 20.598997 * 20.598997
		c3 = 107.65265 * 107.65265
		c4 = 737.86223 * 737.86223
	)

	weights := make([]float64, len(frequencies))
	for i, f := range frequencies {
		if f <= 0 {
			weights[i] = minDB
			continue
		}

		f2 := f * f
		ra := c1 * f2 * f2 / ((f2 + c2) * math.Sqrt((f2+c3)*(f2+c4)) * (f2 + c1))
		weights[i] = math.Max(2.0+20.0*math.Log10(ra), minDB)
	}
	return weights
}

// WeightFrames scales each power frame by a per-bin dB weighting curve and
// returns new frames
func (ps *PowerSpectrum) WeightFrames(power [][]float64, weightsDB []float64) [][]float64 {
	gains := make([]float64, len(weightsDB))
	for i, w := range weightsDB {
		gains[i] = math.Pow(10, w/10.0)
	}

	weighted := make([][]float64, len(power))
	for t, frame := range power {
		weighted[t] = make([]float64, len(frame))
		for f, p := range frame {
			if f < len(gains) {
				weighted[t][f] = p * gains[f]
			}
		}
	}
	return weighted
}

// ToDB converts power values to decibels relative to ref:
// 10*log10(max(p, amin)) - 10*log10(max(ref, amin)). When topDB > 0 the
// output is floored at max(output) - topDB.
func ToDB(power []float64, ref, amin, topDB float64) []float64 {
	out := make([]float64, len(power))
	if len(power) == 0 {
		return out
	}

	refDB := 10 * math.Log10(math.Max(ref, amin))
	peak := math.Inf(-1)
	for i, p := range power {
		out[i] = 10*math.Log10(math.Max(p, amin)) - refDB
		peak = math.Max(peak, out[i])
	}

	if topDB > 0 {
		floor := peak - topDB
		for i := range out {
			out[i] = math.Max(out[i], floor)
		}
	}
	return out
}
