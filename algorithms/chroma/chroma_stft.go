package chroma

import (
	"math"
)

// Labels are the pitch-class names of the 12 chroma bins, starting at C
var Labels = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// ChromaSTFT folds a power spectrogram into 12 pitch classes.
// Each frame is scaled so its largest bin is 1 (max normalisation), which
// keeps frames of different loudness comparable by cosine distance.
type ChromaSTFT struct {
	sampleRate int
	tuningFreq float64 // A4 frequency (default 440 Hz)
	chromaBins int     // Number of chroma bins (always 12)
	minFreq    float64 // Minimum frequency to consider
	maxFreq    float64 // Maximum frequency to consider
}

// NewChromaSTFT creates a new STFT-based chromagram calculator
func NewChromaSTFT(sampleRate int, tuningFreq float64) *ChromaSTFT {
	return &ChromaSTFT{
		sampleRate: sampleRate,
		tuningFreq: tuningFreq,
		chromaBins: 12,
		minFreq:    32.7, // C1
		maxFreq:    math.Min(8000.0, float64(sampleRate)/2),
	}
}

// FromPower converts a power spectrogram computed with fftSize into a chromagram
func (cs *ChromaSTFT) FromPower(power [][]float64, fftSize int) [][]float64 {
	if len(power) == 0 {
		return [][]float64{}
	}

	mapping := cs.calculateChromaMapping(len(power[0]), float64(cs.sampleRate)/float64(fftSize))

	chromagram := make([][]float64, len(power))
	for t, frame := range power {
		chromagram[t] = make([]float64, cs.chromaBins)

		for f, energy := range frame {
			if f >= len(mapping) {
				break
			}
			if bin := mapping[f]; bin >= 0 {
				chromagram[t][bin] += energy
			}
		}

		normalizeMax(chromagram[t])
	}

	return chromagram
}

// calculateChromaMapping maps FFT bins to chroma bins; -1 marks bins outside the range
func (cs *ChromaSTFT) calculateChromaMapping(freqBins int, freqResolution float64) []int {
	mapping := make([]int, freqBins)

	for f := range freqBins {
		frequency := float64(f) * freqResolution

		if frequency < cs.minFreq || frequency > cs.maxFreq {
			mapping[f] = -1
			continue
		}

		// MIDI 60 is C4, so MIDI mod 12 counts up from C
		midiNote := cs.frequencyToMIDI(frequency)
		chromaBin := int(math.Round(midiNote)) % 12
		if chromaBin < 0 {
			chromaBin += 12
		}
		mapping[f] = chromaBin
	}

	return mapping
}

// frequencyToMIDI converts frequency to MIDI note number
func (cs *ChromaSTFT) frequencyToMIDI(frequency float64) float64 {
	if frequency <= 0 {
		return 0
	}

	// A4 (tuning frequency) = MIDI note 69
	return 69.0 + 12.0*math.Log2(frequency/cs.tuningFreq)
}

func normalizeMax(frame []float64) {
	peak := 0.0
	for _, v := range frame {
		peak = math.Max(peak, v)
	}

	if peak > 1e-10 {
		for i := range frame {
			frame[i] /= peak
		}
	}
}

// Dominant returns the strongest chroma bin of each frame
func Dominant(chromagram [][]float64) []int {
	dominant := make([]int, len(chromagram))

	for t, frame := range chromagram {
		maxEnergy := 0.0
		for bin, energy := range frame {
			if energy > maxEnergy {
				maxEnergy = energy
				dominant[t] = bin
			}
		}
	}

	return dominant
}
