package temporal

import (
	"math"
)

// Envelope provides amplitude envelope extraction
type Envelope struct{}

// NewEnvelope creates a new envelope extractor
func NewEnvelope() *Envelope {
	return &Envelope{}
}

// ComputeRMS computes the RMS envelope of full frames starting at i*hopSize
func (e *Envelope) ComputeRMS(signal []float64, frameSize, hopSize int) []float64 {
	if len(signal) < frameSize || frameSize <= 0 || hopSize <= 0 {
		return []float64{}
	}

	numFrames := (len(signal)-frameSize)/hopSize + 1
	envelope := make([]float64, numFrames)

	for i := range numFrames {
		envelope[i] = frameRMS(signal, i*hopSize, frameSize)
	}

	return envelope
}

// ComputeRMSCentered computes the RMS envelope of frames centred on
// i*hopSize, treating samples outside the signal as zero. It yields
// 1 + len(signal)/hopSize frames.
func (e *Envelope) ComputeRMSCentered(signal []float64, frameSize, hopSize int) []float64 {
	if len(signal) == 0 || frameSize <= 0 || hopSize <= 0 {
		return []float64{}
	}

	numFrames := 1 + len(signal)/hopSize
	envelope := make([]float64, numFrames)

	for i := range numFrames {
		envelope[i] = frameRMS(signal, i*hopSize-frameSize/2, frameSize)
	}

	return envelope
}

// frameRMS is the RMS of signal[start:start+size], zero-padded at the edges
func frameRMS(signal []float64, start, size int) float64 {
	lo := max(start, 0)
	hi := min(start+size, len(signal))

	sumSquares := 0.0
	for j := lo; j < hi; j++ {
		sumSquares += signal[j] * signal[j]
	}
	return math.Sqrt(sumSquares / float64(size))
}
