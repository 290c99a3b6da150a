package loop

import "math"

// DefaultHintToleranceSeconds is the half-width of a position-hint window
// when PositionHint.Tolerance is zero
const DefaultHintToleranceSeconds = 2.0

// Config holds the options of one analysis request
type Config struct {
	// MinDurationFraction is the minimum loop length as a fraction of the
	// track. Ignored when MinDuration is set or a position hint is given.
	MinDurationFraction float64 `json:"min_duration_fraction"`

	// MinDuration and MaxDuration are absolute limits in samples (0 = unset)
	MinDuration int `json:"min_duration"`
	MaxDuration int `json:"max_duration"`

	Approx *PositionHint `json:"approx,omitempty"`

	// Strategy selects the candidate search space. Nil means BeatAligned.
	Strategy Strategy `json:"-"`

	DisablePruning bool `json:"disable_pruning"`

	Tuning Tuning `json:"tuning"`
}

// Tuning holds the calibration constants of the scorer, pruner, ranker and aligner
type Tuning struct {
	// Score weights for the combined cost
	NoteWeight     float64 `json:"note_weight"`
	LoudnessWeight float64 `json:"loudness_weight"`

	// NeighborhoodFrames is the lookahead/lookbehind length for note distance
	NeighborhoodFrames int `json:"neighborhood_frames"`

	// LoudnessNeighborhood is the half-width (frames) of the local energy average
	LoudnessNeighborhood int `json:"loudness_neighborhood"`

	// EnvelopeFrames is the half-width (frames) of the long-term envelope
	EnvelopeFrames int `json:"envelope_frames"`

	// EnvelopeCompensation in [0,1] is the share of the envelope level
	// difference forgiven in the loudness distance
	EnvelopeCompensation float64 `json:"envelope_compensation"`

	// SilenceFloor is the energy below which a neighbourhood counts as silent
	SilenceFloor float64 `json:"silence_floor"`

	// MaxLoudnessDistance (dB) is the saturation bound of the loudness distance
	MaxLoudnessDistance float64 `json:"max_loudness_distance"`

	PruneThreshold  int     `json:"prune_threshold"`
	PrunePercentile float64 `json:"prune_percentile"`

	DedupToleranceSeconds float64 `json:"dedup_tolerance_seconds"`

	ZeroCrossingRadius int `json:"zero_crossing_radius"`
}

// DefaultTuning returns the calibrated defaults
func DefaultTuning() Tuning {
	return Tuning{
		NoteWeight:            1.0,
		LoudnessWeight:        0.1,
		NeighborhoodFrames:    16,
		LoudnessNeighborhood:  1,
		EnvelopeFrames:        86, // ~2s at 22050 Hz / 512 hop
		EnvelopeCompensation:  0.5,
		SilenceFloor:          1e-10,
		MaxLoudnessDistance:   80.0,
		PruneThreshold:        100,
		PrunePercentile:       50.0,
		DedupToleranceSeconds: 0.1,
		ZeroCrossingRadius:    1024,
	}
}

// DefaultConfig returns the default analysis configuration
func DefaultConfig() Config {
	return Config{
		MinDurationFraction: 0.35,
		Strategy:            BeatAligned{},
		Tuning:              DefaultTuning(),
	}
}

func (c Config) strategy() Strategy {
	if c.Strategy == nil {
		return BeatAligned{}
	}
	return c.Strategy
}

// Validate checks the configuration against the track before any computation
func (c Config) Validate(track Track) error {
	_, err := c.resolve(track)
	return err
}

// resolve validates the configuration and converts it into sample bounds
func (c Config) resolve(track Track) (bounds, error) {
	if track.SampleRate <= 0 {
		return bounds{}, newError(KindInvalidConfiguration, "sample rate must be positive, got %d", track.SampleRate)
	}
	if track.TotalSamples < 0 {
		return bounds{}, newError(KindInvalidConfiguration, "total samples must not be negative, got %d", track.TotalSamples)
	}
	if c.MinDurationFraction < 0 || c.MinDurationFraction >= 1 || math.IsNaN(c.MinDurationFraction) {
		return bounds{}, newError(KindInvalidConfiguration, "min duration fraction %.3f not in [0, 1)", c.MinDurationFraction)
	}
	if c.MinDuration < 0 || c.MaxDuration < 0 {
		return bounds{}, newError(KindInvalidConfiguration, "durations must not be negative (min %d, max %d)", c.MinDuration, c.MaxDuration)
	}
	if grid, ok := c.strategy().(ExhaustiveGrid); ok && grid.Step < 0 {
		return bounds{}, newError(KindInvalidConfiguration, "grid step must not be negative, got %d", grid.Step)
	}
	if c.MinDuration > 0 && c.MaxDuration > 0 && c.MinDuration > c.MaxDuration {
		return bounds{}, newError(KindInvalidConfiguration, "min duration %d exceeds max duration %d", c.MinDuration, c.MaxDuration)
	}
	if err := c.Tuning.validate(); err != nil {
		return bounds{}, err
	}

	// the configuration itself is consistent; what remains depends on the track
	if track.TotalSamples < 2 {
		return bounds{}, newError(KindDegenerateInput, "track has %d samples", track.TotalSamples)
	}

	b := bounds{maxDuration: track.TotalSamples}
	if c.MaxDuration > 0 {
		b.maxDuration = c.MaxDuration
	}

	switch {
	case c.MinDuration > 0:
		b.minDuration = c.MinDuration
	case c.Approx == nil:
		b.minDuration = int(c.MinDurationFraction * float64(track.TotalSamples))
	}
	b.minDuration = max(b.minDuration, 1)

	if b.minDuration > b.maxDuration {
		return bounds{}, newError(KindInvalidConfiguration, "resolved min duration %d exceeds max duration %d", b.minDuration, b.maxDuration)
	}

	if c.Approx != nil {
		startWin, endWin, err := c.Approx.windows(track)
		if err != nil {
			return bounds{}, err
		}
		b.startWindow = startWin
		b.endWindow = endWin
	}

	return b, nil
}

// windows clips the hint windows to the track; a window with no overlap is a
// configuration error
func (h PositionHint) windows(track Track) (*window, *window, error) {
	if h.Tolerance < 0 {
		return nil, nil, newError(KindInvalidConfiguration, "hint tolerance must not be negative, got %d", h.Tolerance)
	}
	if h.ApproxStart >= h.ApproxEnd {
		return nil, nil, newError(KindInvalidConfiguration, "approx start %d must precede approx end %d", h.ApproxStart, h.ApproxEnd)
	}

	tolerance := h.Tolerance
	if tolerance == 0 {
		tolerance = track.SecondsToSamples(DefaultHintToleranceSeconds)
	}

	clip := func(center int, name string) (*window, error) {
		w := window{lo: max(center-tolerance, 0), hi: min(center+tolerance, track.TotalSamples)}
		if w.lo > w.hi {
			return nil, newError(KindInvalidConfiguration, "approx %s window [%d, %d] lies outside the track (0..%d)",
				name, center-tolerance, center+tolerance, track.TotalSamples)
		}
		return &w, nil
	}

	startWin, err := clip(h.ApproxStart, "start")
	if err != nil {
		return nil, nil, err
	}
	endWin, err := clip(h.ApproxEnd, "end")
	if err != nil {
		return nil, nil, err
	}
	return startWin, endWin, nil
}

func (t Tuning) validate() error {
	if t.NoteWeight < 0 || t.LoudnessWeight < 0 {
		return newError(KindInvalidConfiguration, "score weights must not be negative")
	}
	if t.NoteWeight == 0 && t.LoudnessWeight == 0 {
		return newError(KindInvalidConfiguration, "at least one score weight must be positive")
	}
	if t.NeighborhoodFrames < 1 {
		return newError(KindInvalidConfiguration, "neighborhood frames must be at least 1, got %d", t.NeighborhoodFrames)
	}
	if t.LoudnessNeighborhood < 0 || t.EnvelopeFrames < 0 {
		return newError(KindInvalidConfiguration, "loudness windows must not be negative")
	}
	if t.EnvelopeCompensation < 0 || t.EnvelopeCompensation > 1 {
		return newError(KindInvalidConfiguration, "envelope compensation %.3f not in [0, 1]", t.EnvelopeCompensation)
	}
	if t.SilenceFloor < 0 || t.MaxLoudnessDistance <= 0 {
		return newError(KindInvalidConfiguration, "silence floor must be >= 0 and loudness bound > 0")
	}
	if t.PruneThreshold < 0 {
		return newError(KindInvalidConfiguration, "prune threshold must not be negative, got %d", t.PruneThreshold)
	}
	if t.PrunePercentile <= 0 || t.PrunePercentile > 100 {
		return newError(KindInvalidConfiguration, "prune percentile %.1f not in (0, 100]", t.PrunePercentile)
	}
	if t.DedupToleranceSeconds < 0 || t.ZeroCrossingRadius < 0 {
		return newError(KindInvalidConfiguration, "tolerances must not be negative")
	}
	return nil
}
