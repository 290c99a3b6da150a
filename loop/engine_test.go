package loop

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"testing"
)

// newRandomFeatures builds deterministic pseudo-random features so that
// candidate costs are distinct
func newRandomFeatures(numFrames, beatEvery, hop int) *fakeFeatures {
	rng := rand.New(rand.NewPCG(7, 11))
	f := &fakeFeatures{
		loudness: make([]float64, numFrames),
		vectors:  make([][]float64, numFrames),
		hop:      hop,
	}
	for i := range numFrames {
		vec := make([]float64, 12)
		for j := range vec {
			vec[j] = rng.Float64()
		}
		f.vectors[i] = vec
		f.loudness[i] = 0.1 + 0.9*rng.Float64()
		if i%beatEvery == 0 {
			f.beats = append(f.beats, i)
		}
	}
	return f
}

func TestFindTwoBeats(t *testing.T) {
	features := &fakeFeatures{
		loudness: []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5},
		vectors:  make([][]float64, 10),
		beats:    []int{1, 8},
		hop:      100,
	}
	for i := range features.vectors {
		features.vectors[i] = []float64{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0.5}
	}
	track := trackFor(features, 1000)

	cfg := DefaultConfig()
	cfg.MinDuration = 100

	result, err := Find(context.Background(), track, features, cfg)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}

	if result.Generated != 1 {
		t.Errorf("Generated = %d, want 1", result.Generated)
	}
	if result.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", result.Len())
	}

	best := result.Best()
	if best.LoopStart != 100 || best.LoopEnd != 800 {
		t.Errorf("Best() = [%d, %d], want [100, 800]", best.LoopStart, best.LoopEnd)
	}
	for name, v := range map[string]float64{
		"note":     best.NoteDistance,
		"loudness": best.LoudnessDistance,
		"score":    best.Score,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("%s = %v, want finite", name, v)
		}
	}
	if best.Score <= 0 || best.Score > 1 {
		t.Errorf("Score = %v, want in (0, 1]", best.Score)
	}
}

func TestFindInvalidConfiguration(t *testing.T) {
	t.Parallel()

	features := newPeriodicFeatures(100, 8, 4, 100)
	track := trackFor(features, 1000)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name: "min exceeds max",
			mutate: func(c *Config) {
				c.MinDuration = 5000
				c.MaxDuration = 1000
			},
		},
		{
			name: "min exceeds track",
			mutate: func(c *Config) {
				c.MinDuration = track.TotalSamples + 1
			},
		},
		{
			name: "fraction out of range",
			mutate: func(c *Config) {
				c.MinDurationFraction = 1.5
			},
		},
		{
			name: "hint before track",
			mutate: func(c *Config) {
				c.Approx = &PositionHint{ApproxStart: -20000, ApproxEnd: -10000, Tolerance: 100}
			},
		},
		{
			name: "hint after track",
			mutate: func(c *Config) {
				c.Approx = &PositionHint{ApproxStart: track.TotalSamples + 5000, ApproxEnd: track.TotalSamples + 9000, Tolerance: 100}
			},
		},
		{
			name: "hint reversed",
			mutate: func(c *Config) {
				c.Approx = &PositionHint{ApproxStart: 5000, ApproxEnd: 1000}
			},
		},
		{
			name: "negative grid step",
			mutate: func(c *Config) {
				c.Strategy = ExhaustiveGrid{Step: -1}
			},
		},
		{
			name: "zero weights",
			mutate: func(c *Config) {
				c.Tuning.NoteWeight = 0
				c.Tuning.LoudnessWeight = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(&cfg)

			if err := cfg.Validate(track); !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfiguration", err)
			}

			_, err := Find(context.Background(), track, features, cfg)
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("Find() error = %v, want ErrInvalidConfiguration", err)
			}

			var engineErr *Error
			if !errors.As(err, &engineErr) || engineErr.Kind != KindInvalidConfiguration {
				t.Errorf("Find() error kind = %v, want %v", err, KindInvalidConfiguration)
			}
		})
	}
}

func TestFindInvalidConfigurationBeforeGeneration(t *testing.T) {
	// no beats: generation would report degenerate input
	features := newPeriodicFeatures(100, 8, 0, 100)
	track := trackFor(features, 1000)

	cfg := DefaultConfig()
	cfg.MinDuration = 5000
	cfg.MaxDuration = 1000

	_, err := Find(context.Background(), track, features, cfg)
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("Find() error = %v, want ErrInvalidConfiguration", err)
	}

	// a contradictory configuration wins over a track too short to loop
	short := Track{SampleRate: 1000, TotalSamples: 1}
	cfg = DefaultConfig()
	cfg.MinDuration = 10
	cfg.MaxDuration = 5

	_, err = Find(context.Background(), short, features, cfg)
	if !errors.Is(err, ErrInvalidConfiguration) || errors.Is(err, ErrDegenerateInput) {
		t.Errorf("short track: Find() error = %v, want only ErrInvalidConfiguration", err)
	}

	cfg = DefaultConfig()
	if _, err := Find(context.Background(), short, features, cfg); !errors.Is(err, ErrDegenerateInput) {
		t.Errorf("short track, valid config: Find() error = %v, want ErrDegenerateInput", err)
	}
}

func TestFindHintWithoutPairs(t *testing.T) {
	// beats at samples 0, 500, 1000, ...
	features := newPeriodicFeatures(100, 8, 5, 100)
	track := trackFor(features, 1000)

	cfg := DefaultConfig()
	cfg.Approx = &PositionHint{ApproxStart: 0, ApproxEnd: 150, Tolerance: 50}

	_, err := Find(context.Background(), track, features, cfg)
	if !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("Find() error = %v, want ErrNoCandidates", err)
	}
}

func TestFindHintRestrictsWindows(t *testing.T) {
	features := newPeriodicFeatures(200, 8, 4, 100)
	track := trackFor(features, 1000)

	cfg := DefaultConfig()
	cfg.Approx = &PositionHint{ApproxStart: 4000, ApproxEnd: 16000, Tolerance: 1000}

	result, err := Find(context.Background(), track, features, cfg)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}

	for _, c := range result.Candidates() {
		if c.LoopStart < 3000 || c.LoopStart > 5000 {
			t.Errorf("LoopStart %d outside hint window [3000, 5000]", c.LoopStart)
		}
		if c.LoopEnd < 15000 || c.LoopEnd > 17000 {
			t.Errorf("LoopEnd %d outside hint window [15000, 17000]", c.LoopEnd)
		}
	}
}

func TestFindNoCandidates(t *testing.T) {
	features := newPeriodicFeatures(100, 8, 10, 100)
	track := trackFor(features, 1000)

	cfg := DefaultConfig()
	// beats are 1000 samples apart
	cfg.MinDuration = 1100
	cfg.MaxDuration = 1900

	_, err := Find(context.Background(), track, features, cfg)
	if !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("Find() error = %v, want ErrNoCandidates", err)
	}
	if errors.Is(err, ErrDegenerateInput) {
		t.Errorf("Find() error %v must not match ErrDegenerateInput", err)
	}
}

func TestFindDegenerateInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		features *fakeFeatures
	}{
		{
			name:     "single beat",
			features: &fakeFeatures{loudness: []float64{1, 1, 1}, vectors: [][]float64{{1}, {1}, {1}}, beats: []int{1}, hop: 100},
		},
		{
			name:     "beats out of order",
			features: &fakeFeatures{loudness: []float64{1, 1, 1}, vectors: [][]float64{{1}, {1}, {1}}, beats: []int{2, 1}, hop: 100},
		},
		{
			name:     "single frame",
			features: &fakeFeatures{loudness: []float64{1}, vectors: [][]float64{{1}}, beats: []int{0}, hop: 100},
		},
		{
			name:     "silent",
			features: &fakeFeatures{loudness: []float64{0, 0, 0, 0}, vectors: [][]float64{{0}, {0}, {0}, {0}}, beats: []int{0, 3}, hop: 100},
		},
		{
			name:     "empty track",
			features: &fakeFeatures{hop: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			track := Track{SampleRate: 1000, TotalSamples: tt.features.NumFrames() * tt.features.hop}
			cfg := DefaultConfig()
			cfg.MinDuration = 1

			_, err := Find(context.Background(), track, tt.features, cfg)
			if !errors.Is(err, ErrDegenerateInput) {
				t.Errorf("Find() error = %v, want ErrDegenerateInput", err)
			}
		})
	}
}

func TestFindDisablePruningKeepsAll(t *testing.T) {
	features := newRandomFeatures(300, 3, 512)
	track := trackFor(features, 22050)

	cfg := DefaultConfig()
	cfg.DisablePruning = true

	result, err := Find(context.Background(), track, features, cfg)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}

	if result.Generated <= cfg.Tuning.PruneThreshold {
		t.Fatalf("Generated = %d, need more than %d for this test", result.Generated, cfg.Tuning.PruneThreshold)
	}
	if result.Pruned {
		t.Error("Pruned = true with pruning disabled")
	}
	if result.Scored != result.Generated || result.Retained != result.Generated {
		t.Errorf("Generated/Scored/Retained = %d/%d/%d, want all equal",
			result.Generated, result.Scored, result.Retained)
	}

	cfg.DisablePruning = false
	pruned, err := Find(context.Background(), track, features, cfg)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if !pruned.Pruned {
		t.Error("Pruned = false above the threshold")
	}
	if pruned.Retained >= pruned.Scored {
		t.Errorf("Retained = %d, want fewer than %d", pruned.Retained, pruned.Scored)
	}
}

func TestFindPruningKeepsBest(t *testing.T) {
	features := newRandomFeatures(300, 3, 512)
	track := trackFor(features, 22050)

	cfg := DefaultConfig()
	withPruning, err := Find(context.Background(), track, features, cfg)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}

	cfg.DisablePruning = true
	withoutPruning, err := Find(context.Background(), track, features, cfg)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}

	if got, want := withPruning.Best(), withoutPruning.Best(); got != want {
		t.Errorf("Best() with pruning = %+v, without = %+v", got, want)
	}
}

func TestFindInvariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  func() Config
	}{
		{
			name: "beat aligned",
			cfg:  DefaultConfig,
		},
		{
			name: "bounded",
			cfg: func() Config {
				c := DefaultConfig()
				c.MinDuration = 30000
				c.MaxDuration = 90000
				return c
			},
		},
		{
			name: "exhaustive grid",
			cfg: func() Config {
				c := DefaultConfig()
				c.Strategy = ExhaustiveGrid{Step: 2}
				c.MinDurationFraction = 0.5
				return c
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			features := newRandomFeatures(300, 3, 512)
			track := trackFor(features, 22050)
			cfg := tt.cfg()

			result, err := Find(context.Background(), track, features, cfg)
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}

			candidates := result.Candidates()
			if len(candidates) == 0 {
				t.Fatal("no candidates")
			}

			for i, c := range candidates {
				if c.LoopStart < 0 || c.LoopStart >= c.LoopEnd || c.LoopEnd > track.TotalSamples {
					t.Errorf("candidate %d = [%d, %d] violates 0 <= start < end <= %d",
						i, c.LoopStart, c.LoopEnd, track.TotalSamples)
				}
				if c.Duration() < result.MinDuration() || c.Duration() > result.MaxDuration() {
					t.Errorf("candidate %d duration %d outside [%d, %d]",
						i, c.Duration(), result.MinDuration(), result.MaxDuration())
				}
				if c.NoteDistance < 0 || c.LoudnessDistance < 0 {
					t.Errorf("candidate %d has negative distance %+v", i, c)
				}
			}

			for i := 1; i < len(candidates); i++ {
				a, b := candidates[i-1], candidates[i]
				if a.Score < b.Score {
					t.Fatalf("candidates %d, %d out of score order: %v < %v", i-1, i, a.Score, b.Score)
				}
				if a.Score == b.Score && a.Duration() > b.Duration() {
					t.Fatalf("candidates %d, %d tie on score but %d > %d", i-1, i, a.Duration(), b.Duration())
				}
			}
		})
	}
}

func TestFindIdempotent(t *testing.T) {
	features := newRandomFeatures(300, 3, 512)
	track := trackFor(features, 22050)
	cfg := DefaultConfig()

	first, err := Find(context.Background(), track, features, cfg)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	second, err := Find(context.Background(), track, features, cfg)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}

	if !slices.Equal(first.Candidates(), second.Candidates()) {
		t.Error("two runs on identical input returned different rankings")
	}
}

func TestFindCandidatesIsCopy(t *testing.T) {
	features := newRandomFeatures(300, 3, 512)
	track := trackFor(features, 22050)

	result, err := Find(context.Background(), track, features, DefaultConfig())
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}

	best := result.Best()
	candidates := result.Candidates()
	candidates[0].LoopStart = -1

	if result.Best() != best {
		t.Error("mutating Candidates() changed the result")
	}
}

func TestFindExhaustiveGridCount(t *testing.T) {
	features := newPeriodicFeatures(10, 4, 0, 100)
	track := trackFor(features, 100)

	cfg := DefaultConfig()
	cfg.Strategy = ExhaustiveGrid{}
	cfg.MinDuration = 300
	cfg.MaxDuration = 500

	result, err := Find(context.Background(), track, features, cfg)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}

	// frame gaps 3, 4 and 5 over 10 frames
	if result.Generated != 18 {
		t.Errorf("Generated = %d, want 18", result.Generated)
	}
	if result.Strategy != "exhaustive_grid/1" {
		t.Errorf("Strategy = %q", result.Strategy)
	}
}

func TestFindNonFinitePitchVectorsKeepOrder(t *testing.T) {
	features := newPeriodicFeatures(60, 8, 4, 100)
	features.vectors[10][3] = math.NaN()
	features.vectors[40][0] = math.NaN()
	track := trackFor(features, 1000)

	cfg := DefaultConfig()
	cfg.Strategy = ExhaustiveGrid{Step: 1}
	cfg.MinDuration = 1000

	result, err := Find(context.Background(), track, features, cfg)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}

	cands := result.Candidates()
	for i, c := range cands {
		if math.IsNaN(c.Score) || math.IsNaN(c.NoteDistance) {
			t.Fatalf("candidate %d has a NaN score: %+v", i, c)
		}
		if i > 0 && compareRanked(cands[i-1], c) > 0 {
			t.Errorf("candidates %d and %d out of order: %+v, %+v", i-1, i, cands[i-1], c)
		}
	}
	if best := result.Best(); best.Score <= 0 || best.Score > 1 {
		t.Errorf("Best().Score = %v, want in (0, 1]", best.Score)
	}
}

func TestFindCancelled(t *testing.T) {
	features := newRandomFeatures(300, 3, 512)
	track := trackFor(features, 22050)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Find(ctx, track, features, DefaultConfig())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Find() error = %v, want context.Canceled", err)
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageScore {
		t.Errorf("Find() error = %v, want cancellation before %s", err, StageScore)
	}
}

func TestResultAlign(t *testing.T) {
	features := &fakeFeatures{
		loudness: []float64{1, 1, 1, 1},
		vectors:  [][]float64{{1, 0}, {0, 1}, {1, 0}, {0, 1}},
		beats:    []int{0, 2},
		hop:      50,
	}
	track := trackFor(features, 1000)

	cfg := DefaultConfig()
	cfg.MinDuration = 10
	cfg.Tuning.ZeroCrossingRadius = 10

	result, err := Find(context.Background(), track, features, cfg)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}

	// rising crossings at 5 and 103
	samples := make([]float64, track.TotalSamples)
	for i := range samples {
		switch {
		case i < 5, i >= 60 && i < 103:
			samples[i] = -0.5
		default:
			samples[i] = 0.5
		}
	}

	aligned := result.Align(Waveform{Samples: samples, Channels: 1}, result.Best(), PolicyDownmix)
	if aligned.LoopStart != 5 || aligned.LoopEnd != 103 {
		t.Errorf("Align() = [%d, %d], want [5, 103]", aligned.LoopStart, aligned.LoopEnd)
	}
}
