package temporal

import (
	"math"
	"slices"
	"testing"
)

func impulseTrain(n, first, period int) []float64 {
	onset := make([]float64, n)
	for i := first; i < n; i += period {
		onset[i] = 1
	}
	return onset
}

func TestBeatTrackerImpulseTrain(t *testing.T) {
	t.Parallel()

	// 100 frames per second, an onset every 50 frames: 120 BPM
	onset := impulseTrain(500, 10, 50)
	result := NewBeatTracker(DefaultBeatTrackerConfig()).Track(onset, 1000, 10)

	if math.Abs(result.BPM-120) > 0.5 {
		t.Fatalf("BPM = %v, want 120", result.BPM)
	}
	if math.Abs(result.Period-50) > 0.5 {
		t.Errorf("Period = %v, want 50", result.Period)
	}
	if len(result.Beats) < 5 {
		t.Fatalf("got %d beats, want at least 5", len(result.Beats))
	}
	if !slices.IsSorted(result.Beats) {
		t.Errorf("beats not sorted: %v", result.Beats)
	}

	for _, b := range result.Beats {
		if d := (b - 10) % 50; d > 1 && d < 49 {
			t.Errorf("beat at frame %d is not on an onset", b)
		}
	}
}

func TestBeatTrackerPrefersPriorTempo(t *testing.T) {
	t.Parallel()

	// equal evidence at 120 and 60 BPM; the prior picks 120
	bt := NewBeatTracker(DefaultBeatTrackerConfig())
	if got := bt.EstimateTempo(impulseTrain(1000, 0, 50), 100); math.Abs(got-120) > 0.5 {
		t.Errorf("EstimateTempo = %v, want 120", got)
	}
}

func TestBeatTrackerDegenerate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		onset []float64
	}{
		{"empty", nil},
		{"too short", []float64{1, 0}},
		{"flat zero", make([]float64, 300)},
	}

	bt := NewBeatTracker(DefaultBeatTrackerConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := bt.Track(tt.onset, 1000, 10); len(got.Beats) != 0 {
				t.Errorf("Beats = %v, want none", got.Beats)
			}
		})
	}
}

func TestBeatTrackerWithoutPulses(t *testing.T) {
	t.Parallel()

	cfg := DefaultBeatTrackerConfig()
	cfg.WithPulses = false
	result := NewBeatTracker(cfg).Track(impulseTrain(500, 10, 50), 1000, 10)

	for i := 1; i < len(result.Beats); i++ {
		if gap := result.Beats[i] - result.Beats[i-1]; gap < 45 || gap > 55 {
			t.Errorf("beat gap %d between %d and %d, want about 50", gap, result.Beats[i-1], result.Beats[i])
		}
	}
}

func TestTrim(t *testing.T) {
	t.Parallel()

	tone := func(n int) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Sin(float64(i) * 0.3)
		}
		return out
	}

	signal := slices.Concat(make([]float64, 4096), tone(8192), make([]float64, 4096))
	got := NewTrimmer(40, 1024, 256).Trim(signal)

	if got.Start > 4096 || got.Start < 4096-1024 {
		t.Errorf("Start = %d, want within one frame before 4096", got.Start)
	}
	if got.End < 4096+8192 || got.End > 4096+8192+1024 {
		t.Errorf("End = %d, want within one frame after %d", got.End, 4096+8192)
	}
	if got.Len() != got.End-got.Start {
		t.Errorf("Len() = %d", got.Len())
	}
}

func TestTrimSilent(t *testing.T) {
	t.Parallel()

	if got := NewDefaultTrimmer().Trim(make([]float64, 10000)); got.Len() != 0 {
		t.Errorf("Trim(silence) = %+v, want empty", got)
	}
	if got := NewDefaultTrimmer().Trim(nil); got.Len() != 0 {
		t.Errorf("Trim(nil) = %+v, want empty", got)
	}
}

func TestEnvelopeRMS(t *testing.T) {
	t.Parallel()

	signal := []float64{1, -1, 1, -1, 0, 0, 0, 0}
	env := NewEnvelope()

	full := env.ComputeRMS(signal, 4, 4)
	if len(full) != 2 || full[0] != 1 || full[1] != 0 {
		t.Errorf("ComputeRMS = %v, want [1 0]", full)
	}

	centred := env.ComputeRMSCentered(signal, 4, 4)
	if len(centred) != 3 {
		t.Fatalf("ComputeRMSCentered frames = %d, want 3", len(centred))
	}
	// first frame covers two padded zeros and two ones
	if want := math.Sqrt(0.5); math.Abs(centred[0]-want) > 1e-12 {
		t.Errorf("centred[0] = %v, want %v", centred[0], want)
	}

	if got := env.ComputeRMS(signal, 16, 4); len(got) != 0 {
		t.Errorf("frame longer than signal should yield nothing, got %v", got)
	}
}
