package loop

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
)

// scoreCheckInterval is how many candidates are scored between context checks
const scoreCheckInterval = 8192

// Scorer computes note and loudness distances between the neighbourhoods of
// two frames. It caches per-frame data of one FrameFeatures and has no other state.
type Scorer struct {
	tuning    Tuning
	numFrames int

	vectors [][]float64
	norms   []float64
	weights []float64

	// loudnessPrefix[i] is the sum of loudness over frames [0, i)
	loudnessPrefix []float64
}

// NewScorer prepares a scorer for the given features
func NewScorer(features FrameFeatures, tuning Tuning) *Scorer {
	numFrames := features.NumFrames()

	s := &Scorer{
		tuning:         tuning,
		numFrames:      numFrames,
		vectors:        make([][]float64, numFrames),
		norms:          make([]float64, numFrames),
		weights:        geometricWeights(max(tuning.NeighborhoodFrames, 1)),
		loudnessPrefix: make([]float64, numFrames+1),
	}

	for f := range numFrames {
		s.vectors[f] = features.PitchVector(f)
		s.norms[f] = floats.Norm(s.vectors[f], 2)
		if math.IsNaN(s.norms[f]) || math.IsInf(s.norms[f], 0) {
			// unusable frame, compared as a zero vector
			s.norms[f] = 0
		}

		loudness := features.Loudness(f)
		if loudness < 0 || math.IsNaN(loudness) {
			loudness = 0
		}
		s.loudnessPrefix[f+1] = s.loudnessPrefix[f] + loudness
	}

	return s
}

// geometricWeights returns n weights decaying geometrically from n to 1
func geometricWeights(n int) []float64 {
	weights := make([]float64, n)
	if n == 1 {
		weights[0] = 1
		return weights
	}

	for i := range n {
		exponent := 1.0 - float64(i)/float64(n-1)
		weights[i] = math.Pow(float64(n), exponent)
	}
	return weights
}

// Annotate fills NoteDistance and LoudnessDistance of every candidate in place
func (s *Scorer) Annotate(ctx context.Context, candidates []Candidate) error {
	for i := range candidates {
		if i%scoreCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return &StageError{Stage: StageScore, Err: err}
			}
		}

		c := &candidates[i]
		c.NoteDistance = s.NoteDistance(c.startFrame, c.endFrame)
		c.LoudnessDistance = s.LoudnessDistance(c.startFrame, c.endFrame)
	}
	return nil
}

// NoteDistance returns the smaller of the lookahead and lookbehind weighted
// cosine distances between the pitch vectors around start and end
func (s *Scorer) NoteDistance(start, end int) float64 {
	ahead := s.sequenceDistance(start, end, 1)
	behind := s.sequenceDistance(start, end, -1)
	return math.Min(ahead, behind)
}

// sequenceDistance compares frames start+dir*i with end+dir*i. Offsets that
// fall outside the features are padded with the worst distance observed.
func (s *Scorer) sequenceDistance(start, end, dir int) float64 {
	var weightedSum, weightTotal, missingWeight float64
	worst := 0.0

	for i, w := range s.weights {
		a := start + dir*i
		b := end + dir*i
		if a < 0 || b < 0 || a >= s.numFrames || b >= s.numFrames {
			missingWeight += w
			continue
		}

		d := s.cosineDistance(a, b)
		worst = math.Max(worst, d)
		weightedSum += w * d
		weightTotal += w
	}

	if weightTotal == 0 {
		return 1.0
	}

	weightedSum += missingWeight * worst
	return weightedSum / (weightTotal + missingWeight)
}

// cosineDistance is 1 - cosine similarity; a zero or non-finite vector on
// either side gives 1
func (s *Scorer) cosineDistance(a, b int) float64 {
	if s.norms[a] == 0 || s.norms[b] == 0 {
		return 1.0
	}

	similarity := floats.Dot(s.vectors[a], s.vectors[b]) / (s.norms[a] * s.norms[b])
	if math.IsNaN(similarity) {
		return 1.0
	}
	similarity = math.Max(-1, math.Min(1, similarity))
	return 1.0 - similarity
}

// LoudnessDistance returns the dB difference between the local energies of the
// two frames, with part of the long-term envelope difference forgiven.
// Silent neighbourhoods saturate to MaxLoudnessDistance.
func (s *Scorer) LoudnessDistance(start, end int) float64 {
	bound := s.tuning.MaxLoudnessDistance
	floor := s.tuning.SilenceFloor

	localStart := s.meanLoudness(start, s.tuning.LoudnessNeighborhood)
	localEnd := s.meanLoudness(end, s.tuning.LoudnessNeighborhood)
	if localStart <= floor || localEnd <= floor {
		return bound
	}

	local := decibelRatio(localStart, localEnd)

	envelope := 0.0
	envStart := s.meanLoudness(start, s.tuning.EnvelopeFrames)
	envEnd := s.meanLoudness(end, s.tuning.EnvelopeFrames)
	if envStart > floor && envEnd > floor {
		envelope = decibelRatio(envStart, envEnd)
	}

	distance := math.Abs(local - s.tuning.EnvelopeCompensation*envelope)
	if math.IsNaN(distance) || distance > bound {
		return bound
	}
	return distance
}

// meanLoudness averages loudness over [frame-radius, frame+radius] clipped to the features
func (s *Scorer) meanLoudness(frame, radius int) float64 {
	lo := max(frame-radius, 0)
	hi := min(frame+radius+1, s.numFrames)
	if hi <= lo {
		return 0
	}
	return (s.loudnessPrefix[hi] - s.loudnessPrefix[lo]) / float64(hi-lo)
}

// decibelRatio returns 10*log10(a/b); callers guarantee both are positive
func decibelRatio(a, b float64) float64 {
	return 10 * (math.Log10(a) - math.Log10(b))
}
