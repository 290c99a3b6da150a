package loop

import (
	"cmp"
	"slices"
)

// cost combines both distances; lower is better
func (t Tuning) cost(c Candidate) float64 {
	return t.NoteWeight*c.NoteDistance + t.LoudnessWeight*c.LoudnessDistance
}

// score maps the cost into (0, 1], strictly decreasing in both distances
func (t Tuning) score(c Candidate) float64 {
	return 1.0 / (1.0 + t.cost(c))
}

// compareRanked orders by score desc, duration asc, start asc, end asc
func compareRanked(a, b Candidate) int {
	if a.Score != b.Score {
		if a.Score > b.Score {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(a.Duration(), b.Duration()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.LoopStart, b.LoopStart); c != 0 {
		return c
	}
	return cmp.Compare(a.LoopEnd, b.LoopEnd)
}

// Ranker scores, sorts and deduplicates candidates
type Ranker struct {
	tuning    Tuning
	tolerance int
}

// NewRanker creates a ranker; tolerance is the dedup radius in samples
func NewRanker(tuning Tuning, tolerance int) *Ranker {
	return &Ranker{tuning: tuning, tolerance: max(tolerance, 0)}
}

// Rank returns a new slice of scored candidates in ranked order with
// near-duplicates of higher-ranked entries removed
func (r *Ranker) Rank(candidates []Candidate) []Candidate {
	ranked := make([]Candidate, len(candidates))
	for i, c := range candidates {
		c.Score = r.tuning.score(c)
		ranked[i] = c
	}

	slices.SortFunc(ranked, compareRanked)
	return r.dedup(ranked)
}

// dedup keeps a candidate unless both its start and end lie within the
// tolerance of an already kept one. Kept candidates are bucketed by start so
// each lookup only inspects neighbouring buckets.
func (r *Ranker) dedup(ranked []Candidate) []Candidate {
	if r.tolerance == 0 || len(ranked) < 2 {
		return dedupExact(ranked)
	}

	width := r.tolerance + 1
	buckets := make(map[int][]int)
	kept := make([]Candidate, 0, len(ranked))

	for _, c := range ranked {
		bucket := c.LoopStart / width
		duplicate := false

	search:
		for b := bucket - 1; b <= bucket+1; b++ {
			for _, idx := range buckets[b] {
				if r.near(kept[idx], c) {
					duplicate = true
					break search
				}
			}
		}

		if !duplicate {
			buckets[bucket] = append(buckets[bucket], len(kept))
			kept = append(kept, c)
		}
	}

	return kept
}

func (r *Ranker) near(a, b Candidate) bool {
	return abs(a.LoopStart-b.LoopStart) <= r.tolerance && abs(a.LoopEnd-b.LoopEnd) <= r.tolerance
}

// dedupExact removes candidates with identical sample positions, which can
// occur when several frames map to the same clamped sample
func dedupExact(ranked []Candidate) []Candidate {
	seen := make(map[[2]int]struct{}, len(ranked))
	kept := make([]Candidate, 0, len(ranked))
	for _, c := range ranked {
		key := [2]int{c.LoopStart, c.LoopEnd}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, c)
	}
	return kept
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
