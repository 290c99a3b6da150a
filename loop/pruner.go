package loop

import (
	"github.com/RyanBlaney/sonido-loop/algorithms/stats"
)

// Pruner drops the weaker part of a large candidate set before ranking.
// It keeps every candidate whose combined cost is at or below the configured
// percentile, so the lowest-cost (highest-score) candidate always survives.
type Pruner struct {
	tuning   Tuning
	disabled bool
	pct      *stats.Percentiles
}

// NewPruner creates a pruner; disabled pruners pass candidates through untouched
func NewPruner(tuning Tuning, disabled bool) *Pruner {
	return &Pruner{
		tuning:   tuning,
		disabled: disabled,
		pct:      stats.NewPercentilesWithMethod(stats.Linear),
	}
}

// Active reports whether a set of n candidates would be pruned
func (p *Pruner) Active(n int) bool {
	return !p.disabled && n > p.tuning.PruneThreshold
}

// Prune returns the retained candidates in their original order
func (p *Pruner) Prune(candidates []Candidate) []Candidate {
	if !p.Active(len(candidates)) {
		return candidates
	}

	costs := make([]float64, len(candidates))
	for i, c := range candidates {
		costs[i] = p.tuning.cost(c)
	}

	threshold, err := p.pct.CalculatePercentile(costs, p.tuning.PrunePercentile)
	if err != nil {
		return candidates
	}

	kept := make([]Candidate, 0, len(candidates)/2+1)
	for i, c := range candidates {
		if costs[i] <= threshold {
			kept = append(kept, c)
		}
	}
	return kept
}
