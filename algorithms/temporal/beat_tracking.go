package temporal

import (
	"math"
	"slices"

	"github.com/RyanBlaney/sonido-loop/algorithms/common"
)

// BeatTrackerConfig holds the tempo prior and tracking constants
type BeatTrackerConfig struct {
	StartBPM   float64 `json:"start_bpm"`   // centre of the log-normal tempo prior
	StdBPM     float64 `json:"std_bpm"`     // prior width in octaves
	MinBPM     float64 `json:"min_bpm"`     // slowest tempo considered
	MaxBPM     float64 `json:"max_bpm"`     // fastest tempo considered
	Tightness  float64 `json:"tightness"`   // penalty on deviating from the period
	MaxLagSecs float64 `json:"max_lag_sec"` // autocorrelation window
	WithPulses bool    `json:"with_pulses"` // add pulse peaks to the beat set
}

// DefaultBeatTrackerConfig returns a 120 BPM prior, one octave wide
func DefaultBeatTrackerConfig() BeatTrackerConfig {
	return BeatTrackerConfig{
		StartBPM:   120,
		StdBPM:     1.0,
		MinBPM:     30,
		MaxBPM:     320,
		Tightness:  100,
		MaxLagSecs: 8,
		WithPulses: true,
	}
}

// BeatResult holds the tracked tempo and beat frames
type BeatResult struct {
	BPM    float64 `json:"bpm"`
	Period float64 `json:"period"` // beat period in frames
	Beats  []int   `json:"beats"`  // strictly increasing frame indices
}

// BeatTracker estimates tempo from an onset envelope and places beats with
// dynamic programming (Ellis, 2007)
type BeatTracker struct {
	config BeatTrackerConfig
}

// NewBeatTracker creates a beat tracker
func NewBeatTracker(config BeatTrackerConfig) *BeatTracker {
	return &BeatTracker{config: config}
}

// Track returns the beats of an onset envelope whose frames are hopSize
// samples apart. An envelope without any onset energy yields no beats.
func (bt *BeatTracker) Track(onset []float64, sampleRate, hopSize int) BeatResult {
	framesPerSecond := float64(sampleRate) / float64(hopSize)

	bpm := bt.EstimateTempo(onset, framesPerSecond)
	result := BeatResult{BPM: bpm}
	if bpm <= 0 || len(onset) < 3 {
		return result
	}

	period := 60.0 * framesPerSecond / bpm
	result.Period = period

	if common.StandardDeviation(onset) == 0 {
		return result
	}

	localScore := bt.localScore(onset, period)
	beats := bt.dynamicProgram(localScore, period)
	beats = trimWeakBeats(beats, localScore)

	if bt.config.WithPulses {
		pulses := common.FindPeaks(localScore, common.Mean(localScore), period/2)
		beats = append(beats, pulses...)
	}

	slices.Sort(beats)
	result.Beats = slices.Compact(beats)
	return result
}

// EstimateTempo picks the autocorrelation lag with the highest
// prior-weighted score
func (bt *BeatTracker) EstimateTempo(onset []float64, framesPerSecond float64) float64 {
	if len(onset) < 3 || framesPerSecond <= 0 {
		return 0
	}

	maxLag := min(int(bt.config.MaxLagSecs*framesPerSecond), len(onset)-1)
	autocorr := calculateAutocorrelation(onset, maxLag+1)
	if len(autocorr) == 0 || autocorr[0] == 0 {
		return 0
	}

	bestBPM := 0.0
	bestScore := math.Inf(-1)

	for lag := 1; lag < len(autocorr); lag++ {
		bpm := 60.0 * framesPerSecond / float64(lag)
		if bpm < bt.config.MinBPM || bpm > bt.config.MaxBPM {
			continue
		}

		octaves := math.Log2(bpm / bt.config.StartBPM)
		prior := math.Exp(-0.5 * (octaves / bt.config.StdBPM) * (octaves / bt.config.StdBPM))

		if score := autocorr[lag] * prior; score > bestScore {
			bestScore = score
			bestBPM = bpm
		}
	}

	return bestBPM
}

// calculateAutocorrelation returns the normalised autocorrelation for lags [0, maxLag)
func calculateAutocorrelation(signal []float64, maxLag int) []float64 {
	maxLag = min(maxLag, len(signal))
	autocorr := make([]float64, maxLag)

	for lag := range maxLag {
		sum := 0.0
		for i := 0; i < len(signal)-lag; i++ {
			sum += signal[i] * signal[i+lag]
		}
		autocorr[lag] = sum
	}

	if len(autocorr) > 0 && autocorr[0] > 0 {
		for i := range autocorr {
			autocorr[i] /= autocorr[0]
		}
	}

	return autocorr
}

// localScore smooths the standardised onset envelope with a Gaussian
// spanning one beat period
func (bt *BeatTracker) localScore(onset []float64, period float64) []float64 {
	std := common.StandardDeviation(onset)
	normalized := make([]float64, len(onset))
	for i, v := range onset {
		normalized[i] = v / std
	}

	half := int(math.Round(period))
	kernel := make([]float64, 2*half+1)
	for i := range kernel {
		x := float64(i-half) * 32.0 / period
		kernel[i] = math.Exp(-0.5 * x * x)
	}

	score := make([]float64, len(onset))
	for i := range score {
		sum := 0.0
		for k, w := range kernel {
			j := i + k - half
			if j >= 0 && j < len(normalized) {
				sum += w * normalized[j]
			}
		}
		score[i] = sum
	}
	return score
}

// dynamicProgram finds the best beat sequence through localScore
func (bt *BeatTracker) dynamicProgram(localScore []float64, period float64) []int {
	n := len(localScore)
	cumScore := make([]float64, n)
	backlink := make([]int, n)

	windowStart := int(math.Round(2 * period))
	windowEnd := max(int(math.Round(period/2)), 1)

	// first positive score seeds the chain
	firstBeat := true
	for i := range n {
		backlink[i] = -1
		best := math.Inf(-1)

		for prev := i - windowStart; prev <= i-windowEnd; prev++ {
			if prev < 0 {
				continue
			}
			gap := math.Log(float64(i-prev) / period)
			if candidate := cumScore[prev] - bt.config.Tightness*gap*gap; candidate > best {
				best = candidate
				backlink[i] = prev
			}
		}

		if backlink[i] < 0 || best == math.Inf(-1) {
			best = 0
		}
		cumScore[i] = localScore[i] + best

		if firstBeat && localScore[i] < 0.01*slices.Max(localScore) {
			backlink[i] = -1
		} else {
			firstBeat = false
		}
	}

	last := lastBeat(cumScore)
	if last < 0 {
		return nil
	}

	var beats []int
	for b := last; b >= 0; b = backlink[b] {
		beats = append(beats, b)
	}
	slices.Reverse(beats)
	return beats
}

// lastBeat picks the last local maximum of cumScore that reaches half the
// median of all local maxima
func lastBeat(cumScore []float64) int {
	var maxima []int
	for i := 1; i < len(cumScore)-1; i++ {
		if cumScore[i] > cumScore[i-1] && cumScore[i] >= cumScore[i+1] {
			maxima = append(maxima, i)
		}
	}
	if len(maxima) == 0 {
		return -1
	}

	values := make([]float64, len(maxima))
	for i, m := range maxima {
		values[i] = cumScore[m]
	}
	threshold := 0.5 * common.Median(values)

	for i := len(maxima) - 1; i >= 0; i-- {
		if cumScore[maxima[i]] >= threshold {
			return maxima[i]
		}
	}
	return maxima[len(maxima)-1]
}

// trimWeakBeats drops leading and trailing beats whose local score is below
// half the RMS of the score over the beats
func trimWeakBeats(beats []int, localScore []float64) []int {
	if len(beats) == 0 {
		return beats
	}

	scores := make([]float64, len(beats))
	for i, b := range beats {
		scores[i] = localScore[b]
	}
	threshold := 0.5 * common.RMS(scores)

	lo, hi := 0, len(beats)
	for lo < hi && localScore[beats[lo]] <= threshold {
		lo++
	}
	for hi > lo && localScore[beats[hi-1]] <= threshold {
		hi--
	}
	return beats[lo:hi]
}
