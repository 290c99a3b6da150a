package looper

import (
	"errors"
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-loop/features"
	"github.com/RyanBlaney/sonido-loop/loop"
	"github.com/RyanBlaney/sonido-loop/transcode"
)

// Config holds the settings shared by every analysis of a Looper
type Config struct {
	Decoder   *transcode.DecoderConfig  `json:"decoder"`
	Extractor *features.ExtractorConfig `json:"extractor"`
	Tuning    loop.Tuning               `json:"tuning"`

	// GridStep is the frame step of the exhaustive search used for brute
	// force and hinted analyses
	GridStep int `json:"grid_step"`

	// Align snaps reported candidates to zero crossings
	Align         bool               `json:"align"`
	ChannelPolicy loop.ChannelPolicy `json:"channel_policy"`

	// CacheDir stores extracted features between runs; "" disables caching
	CacheDir string `json:"cache_dir"`
}

// DefaultConfig returns the default looper configuration
func DefaultConfig() *Config {
	return &Config{
		Decoder:       transcode.DefaultDecoderConfig(),
		Extractor:     features.DefaultExtractorConfig(),
		Tuning:        loop.DefaultTuning(),
		GridStep:      1,
		Align:         true,
		ChannelPolicy: loop.PolicyDownmix,
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Decoder == nil || c.Extractor == nil {
		return errors.New("decoder and extractor configuration are required")
	}
	if err := c.Extractor.Validate(); err != nil {
		return fmt.Errorf("extractor: %w", err)
	}
	if c.GridStep < 1 {
		return fmt.Errorf("grid step must be at least 1, got %d", c.GridStep)
	}
	return nil
}

// Options are the per-request search constraints. Durations and positions
// are in seconds; zero values leave a constraint unset.
type Options struct {
	MinDurationMultiplier float64 `json:"min_duration_multiplier"`
	MinLoopDuration       float64 `json:"min_loop_duration"`
	MaxLoopDuration       float64 `json:"max_loop_duration"`

	// ApproxLoopPosition is the approximate [start, end] of the loop
	ApproxLoopPosition []float64 `json:"approx_loop_position,omitempty"`

	BruteForce     bool `json:"brute_force"`
	DisablePruning bool `json:"disable_pruning"`
}

// DefaultOptions returns the default search constraints
func DefaultOptions() Options {
	return Options{MinDurationMultiplier: 0.35}
}

// Validate checks the options before any decoding happens
func (o Options) Validate() error {
	for name, v := range map[string]float64{
		"min duration multiplier": o.MinDurationMultiplier,
		"min loop duration":       o.MinLoopDuration,
		"max loop duration":       o.MaxLoopDuration,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: %s must not be negative", loop.ErrInvalidConfiguration, name)
		}
	}
	if o.MinDurationMultiplier >= 1 {
		return fmt.Errorf("%w: min duration multiplier %.2f must be below 1", loop.ErrInvalidConfiguration, o.MinDurationMultiplier)
	}
	if o.ApproxLoopPosition != nil {
		if len(o.ApproxLoopPosition) != 2 {
			return fmt.Errorf("%w: approximate loop position needs a start and an end", loop.ErrInvalidConfiguration)
		}
		if o.ApproxLoopPosition[0] < 0 || o.ApproxLoopPosition[0] >= o.ApproxLoopPosition[1] {
			return fmt.Errorf("%w: approximate loop start %.2fs must precede end %.2fs",
				loop.ErrInvalidConfiguration, o.ApproxLoopPosition[0], o.ApproxLoopPosition[1])
		}
	}
	return nil
}

// needsBeats reports whether the search runs over tracked beats
func (o Options) needsBeats() bool {
	return !o.BruteForce && o.ApproxLoopPosition == nil
}

// loopConfig converts the options to an engine configuration for track
func (o Options) loopConfig(track loop.Track, cfg *Config) loop.Config {
	lc := loop.Config{
		MinDurationFraction: o.MinDurationMultiplier,
		MinDuration:         track.SecondsToSamples(o.MinLoopDuration),
		MaxDuration:         track.SecondsToSamples(o.MaxLoopDuration),
		DisablePruning:      o.DisablePruning,
		Tuning:              cfg.Tuning,
		Strategy:            loop.BeatAligned{},
	}
	if !o.needsBeats() {
		lc.Strategy = loop.ExhaustiveGrid{Step: cfg.GridStep}
	}
	if o.ApproxLoopPosition != nil {
		lc.Approx = &loop.PositionHint{
			ApproxStart: track.SecondsToSamples(o.ApproxLoopPosition[0]),
			ApproxEnd:   track.SecondsToSamples(o.ApproxLoopPosition[1]),
		}
	}
	return lc
}
