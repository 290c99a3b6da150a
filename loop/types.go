package loop

import (
	"fmt"
	"math"
)

// Track holds the immutable properties of the analysed recording
type Track struct {
	SampleRate   int `json:"sample_rate"`
	TotalSamples int `json:"total_samples"`
}

// SecondsToSamples converts a duration in seconds to a sample count for this track
func (t Track) SecondsToSamples(seconds float64) int {
	return int(seconds * float64(t.SampleRate))
}

// SamplesToSeconds converts a sample index or count to seconds
func (t Track) SamplesToSeconds(samples int) float64 {
	if t.SampleRate <= 0 {
		return 0
	}
	return float64(samples) / float64(t.SampleRate)
}

// FormatTime renders seconds as mm:ss.mmm
func FormatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes := math.Floor(seconds / 60)
	return fmt.Sprintf("%02.0f:%06.3f", minutes, seconds-minutes*60)
}

// FrameFeatures is the capability the engine needs from a feature extractor.
// Implementations may compute features from PCM, wrap a native analysis
// library or serve a precomputed cache.
type FrameFeatures interface {
	// NumFrames returns the number of analysis frames
	NumFrames() int

	// Loudness returns the linear energy of a frame (>= 0)
	Loudness(frame int) float64

	// PitchVector returns the pitch-class/timbre vector of a frame.
	// All frames share the same vector length.
	PitchVector(frame int) []float64

	// FrameToSample maps a frame index to a sample index. Must be monotonic.
	FrameToSample(frame int) int

	// BeatFrames returns the strictly increasing beat-aligned frame indices,
	// or nil when beat tracking was skipped
	BeatFrames() []int
}

// Candidate is a scored loop point. LoopEnd is the sample after which
// playback jumps back to LoopStart.
type Candidate struct {
	LoopStart        int     `json:"loop_start"`
	LoopEnd          int     `json:"loop_end"`
	NoteDistance     float64 `json:"note_distance"`
	LoudnessDistance float64 `json:"loudness_distance"`
	Score            float64 `json:"score"`

	startFrame int
	endFrame   int
}

// Duration returns the loop length in samples
func (c Candidate) Duration() int {
	return c.LoopEnd - c.LoopStart
}

// Frames returns the analysis frames the candidate was generated from
func (c Candidate) Frames() (start, end int) {
	return c.startFrame, c.endFrame
}

// PositionHint restricts the search to windows around approximate loop points.
// All values are in samples.
type PositionHint struct {
	ApproxStart int `json:"approx_start"`
	ApproxEnd   int `json:"approx_end"`

	// Tolerance is the half-width of each window. Zero selects the default
	// of two seconds.
	Tolerance int `json:"tolerance"`
}

// window is a closed sample interval
type window struct {
	lo, hi int
}

func (w window) contains(sample int) bool {
	return sample >= w.lo && sample <= w.hi
}

// bounds are the resolved duration limits for one analysis, in samples
type bounds struct {
	minDuration int
	maxDuration int

	startWindow *window
	endWindow   *window
}

func (b bounds) accepts(duration int) bool {
	return duration >= b.minDuration && duration <= b.maxDuration
}

func (b bounds) acceptsStart(sample int) bool {
	return b.startWindow == nil || b.startWindow.contains(sample)
}

func (b bounds) acceptsEnd(sample int) bool {
	return b.endWindow == nil || b.endWindow.contains(sample)
}
