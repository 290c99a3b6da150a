package loop

import "fmt"

// Strategy selects which frames may become loop boundaries.
// Implementations: BeatAligned, ExhaustiveGrid.
type Strategy interface {
	// Name identifies the strategy in logs and results
	Name() string

	// frames returns the sorted frame indices eligible as loop points
	frames(features FrameFeatures) ([]int, error)
}

// BeatAligned draws loop points from the detected beat frames only
type BeatAligned struct{}

func (BeatAligned) Name() string { return "beat_aligned" }

func (BeatAligned) frames(features FrameFeatures) ([]int, error) {
	beats := features.BeatFrames()
	numFrames := features.NumFrames()

	valid := make([]int, 0, len(beats))
	for _, beat := range beats {
		if beat < 0 || beat >= numFrames {
			continue
		}
		if len(valid) > 0 && beat <= valid[len(valid)-1] {
			return nil, newError(KindDegenerateInput, "beat frames are not strictly increasing at frame %d", beat)
		}
		valid = append(valid, beat)
	}

	if len(valid) < 2 {
		return nil, newError(KindDegenerateInput, "need at least 2 beat frames, got %d", len(valid))
	}
	return valid, nil
}

// ExhaustiveGrid draws loop points from every Step-th frame (brute force).
// Step 0 is treated as 1.
type ExhaustiveGrid struct {
	Step int
}

func (g ExhaustiveGrid) Name() string {
	return fmt.Sprintf("exhaustive_grid/%d", max(g.Step, 1))
}

func (g ExhaustiveGrid) frames(features FrameFeatures) ([]int, error) {
	step := max(g.Step, 1)
	numFrames := features.NumFrames()

	frames := make([]int, 0, numFrames/step+1)
	for f := 0; f < numFrames; f += step {
		frames = append(frames, f)
	}
	if len(frames) < 2 {
		return nil, newError(KindDegenerateInput, "grid of step %d over %d frames yields fewer than 2 points", step, numFrames)
	}
	return frames, nil
}

// generator enumerates (start, end) frame pairs that satisfy the duration and
// position constraints
type generator struct {
	strategy Strategy
}

// newGenerator creates a generator for the given strategy
func newGenerator(strategy Strategy) *generator {
	if strategy == nil {
		strategy = BeatAligned{}
	}
	return &generator{strategy: strategy}
}

// generate returns unscored candidates. An empty result is not an error here.
func (g *generator) generate(features FrameFeatures, track Track, b bounds) ([]Candidate, error) {
	frames, err := g.strategy.frames(features)
	if err != nil {
		return nil, err
	}

	samples := make([]int, len(frames))
	for i, f := range frames {
		samples[i] = clampSample(features.FrameToSample(f), track.TotalSamples)
	}

	var candidates []Candidate
	for ei, endFrame := range frames {
		endSample := samples[ei]
		if !b.acceptsEnd(endSample) {
			continue
		}

		// starts ascend, so durations shrink; stop once below the minimum
		for si := 0; si < ei; si++ {
			duration := endSample - samples[si]
			if duration < b.minDuration {
				break
			}
			if !b.accepts(duration) || !b.acceptsStart(samples[si]) {
				continue
			}

			candidates = append(candidates, Candidate{
				LoopStart:  samples[si],
				LoopEnd:    endSample,
				startFrame: frames[si],
				endFrame:   endFrame,
			})
		}
	}

	return candidates, nil
}

func clampSample(sample, total int) int {
	if sample < 0 {
		return 0
	}
	if sample > total {
		return total
	}
	return sample
}
