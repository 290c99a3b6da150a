package features

import (
	"fmt"

	"github.com/RyanBlaney/sonido-loop/algorithms/temporal"
	"github.com/RyanBlaney/sonido-loop/algorithms/windowing"
)

// ExtractorConfig holds the analysis parameters of the feature extractor
type ExtractorConfig struct {
	// Spectral analysis
	WindowSize int            `json:"window_size"`
	HopSize    int            `json:"hop_size"`
	WindowType windowing.Type `json:"window_type"`

	// Onset envelope
	NumMels    int     `json:"num_mels"`
	MelMaxFreq float64 `json:"mel_max_freq"` // Hz, capped at Nyquist
	OnsetTopDB float64 `json:"onset_top_db"`

	// Chroma
	TuningFreq float64 `json:"tuning_freq"` // A4 in Hz

	// DC blocker cutoff in Hz; <= 0 disables it
	DCCutoff float64 `json:"dc_cutoff"`

	// Silence trimming; TrimTopDB <= 0 disables it
	TrimTopDB float64 `json:"trim_top_db"`

	// SkipBeats leaves BeatFrames empty (brute force and hinted searches)
	SkipBeats bool `json:"skip_beats"`

	Beats temporal.BeatTrackerConfig `json:"beats"`
}

// DefaultExtractorConfig returns the default analysis configuration
func DefaultExtractorConfig() *ExtractorConfig {
	return &ExtractorConfig{
		WindowSize: 2048,
		HopSize:    512,
		WindowType: windowing.TypeHann,
		NumMels:    128,
		MelMaxFreq: 8000,
		OnsetTopDB: 80,
		TuningFreq: 440,
		DCCutoff:   10,
		TrimTopDB:  40,
		Beats:      temporal.DefaultBeatTrackerConfig(),
	}
}

// Validate checks the configuration for values the extractor cannot use
func (c *ExtractorConfig) Validate() error {
	if c.WindowSize <= 0 || c.WindowSize&(c.WindowSize-1) != 0 {
		return fmt.Errorf("window size must be a positive power of two: %d", c.WindowSize)
	}
	if c.HopSize <= 0 || c.HopSize > c.WindowSize {
		return fmt.Errorf("hop size must be in (0, %d]: %d", c.WindowSize, c.HopSize)
	}
	if c.NumMels <= 0 {
		return fmt.Errorf("mel band count must be positive: %d", c.NumMels)
	}
	if c.TuningFreq <= 0 {
		return fmt.Errorf("tuning frequency must be positive: %v", c.TuningFreq)
	}
	return nil
}
