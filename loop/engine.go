package loop

import (
	"context"
)

// Stage names a pipeline step, used in results and cancellation errors
type Stage string

const (
	StageGenerate Stage = "generate"
	StageScore    Stage = "score"
	StagePrune    Stage = "prune"
	StageRank     Stage = "rank"
)

// Result is the immutable output of one analysis
type Result struct {
	Track    Track  `json:"track"`
	Strategy string `json:"strategy"`

	// Counts at each stage boundary
	Generated int  `json:"generated"`
	Scored    int  `json:"scored"`
	Pruned    bool `json:"pruned"`
	Retained  int  `json:"retained"`
	Ranked    int  `json:"ranked"`

	candidates []Candidate
	bounds     bounds
	tuning     Tuning
}

// Candidates returns a copy of the ranked candidates
func (r *Result) Candidates() []Candidate {
	out := make([]Candidate, len(r.candidates))
	copy(out, r.candidates)
	return out
}

// Len returns the number of ranked candidates
func (r *Result) Len() int {
	return len(r.candidates)
}

// At returns the i-th ranked candidate
func (r *Result) At(i int) Candidate {
	return r.candidates[i]
}

// Best returns the top-ranked candidate
func (r *Result) Best() Candidate {
	return r.candidates[0]
}

// MinDuration and MaxDuration return the resolved duration limits in samples
func (r *Result) MinDuration() int { return r.bounds.minDuration }
func (r *Result) MaxDuration() int { return r.bounds.maxDuration }

// Align snaps a selected candidate to zero crossings of w using the tuned
// radius and the given channel policy, honouring the duration limits
func (r *Result) Align(w Waveform, c Candidate, policy ChannelPolicy) Candidate {
	aligner := NewAligner(r.tuning.ZeroCrossingRadius, policy)
	return aligner.AlignCandidate(w, c, r.bounds.minDuration, r.bounds.maxDuration)
}

// Find runs generation, scoring, pruning and ranking once. The context is
// checked between stages and periodically while scoring.
func Find(ctx context.Context, track Track, features FrameFeatures, cfg Config) (*Result, error) {
	b, err := cfg.resolve(track)
	if err != nil {
		return nil, err
	}

	if err := checkDegenerate(features, cfg.Tuning); err != nil {
		return nil, err
	}

	strategy := cfg.strategy()
	result := &Result{
		Track:    track,
		Strategy: strategy.Name(),
		bounds:   b,
		tuning:   cfg.Tuning,
	}

	candidates, err := newGenerator(strategy).generate(features, track, b)
	if err != nil {
		return nil, err
	}
	result.Generated = len(candidates)
	if len(candidates) == 0 {
		return nil, newError(KindNoCandidates, "no pair satisfies duration [%d, %d] samples with strategy %s",
			b.minDuration, b.maxDuration, strategy.Name())
	}

	if err := checkpoint(ctx, StageScore); err != nil {
		return nil, err
	}
	if err := NewScorer(features, cfg.Tuning).Annotate(ctx, candidates); err != nil {
		return nil, err
	}
	result.Scored = len(candidates)

	if err := checkpoint(ctx, StagePrune); err != nil {
		return nil, err
	}
	pruner := NewPruner(cfg.Tuning, cfg.DisablePruning)
	result.Pruned = pruner.Active(len(candidates))
	candidates = pruner.Prune(candidates)
	result.Retained = len(candidates)

	if err := checkpoint(ctx, StageRank); err != nil {
		return nil, err
	}
	tolerance := track.SecondsToSamples(cfg.Tuning.DedupToleranceSeconds)
	result.candidates = NewRanker(cfg.Tuning, tolerance).Rank(candidates)
	result.Ranked = len(result.candidates)

	return result, nil
}

// checkDegenerate rejects tracks that cannot form any pair at all
func checkDegenerate(features FrameFeatures, tuning Tuning) error {
	numFrames := features.NumFrames()
	if numFrames < 2 {
		return newError(KindDegenerateInput, "track has %d analysis frames", numFrames)
	}

	for f := range numFrames {
		if features.Loudness(f) > tuning.SilenceFloor {
			return nil
		}
	}
	return newError(KindDegenerateInput, "all %d frames are silent", numFrames)
}

func checkpoint(ctx context.Context, stage Stage) error {
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	return nil
}

// StageError reports a cancellation observed before a stage started
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return "cancelled before " + string(e.Stage) + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}
