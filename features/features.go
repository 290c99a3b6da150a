package features

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/RyanBlaney/sonido-loop/algorithms/chroma"
	"github.com/RyanBlaney/sonido-loop/loop"
)

// cacheVersion changes whenever the Features layout or its meaning changes
const cacheVersion = 1

// Features holds frame-aligned analysis of one track. It implements
// loop.FrameFeatures and doubles as the on-disk cache format.
type Features struct {
	Version      int         `json:"version"`
	SampleRate   int         `json:"sample_rate"`
	TotalSamples int         `json:"total_samples"`
	HopSize      int         `json:"hop_size"`
	Offset       int         `json:"offset"` // samples trimmed from the start
	BPM          float64     `json:"bpm,omitempty"`
	Energy       []float64   `json:"energy"` // linear loudness per frame
	Chroma       [][]float64 `json:"chroma"` // 12 pitch classes per frame
	Beats        []int       `json:"beats,omitempty"`
}

var _ loop.FrameFeatures = (*Features)(nil)

// NumFrames returns the number of analysis frames
func (f *Features) NumFrames() int {
	return len(f.Energy)
}

// Loudness returns the linear energy of a frame
func (f *Features) Loudness(frame int) float64 {
	return f.Energy[frame]
}

// PitchVector returns the chroma vector of a frame
func (f *Features) PitchVector(frame int) []float64 {
	return f.Chroma[frame]
}

// FrameToSample maps a frame to its centre sample in the untrimmed track
func (f *Features) FrameToSample(frame int) int {
	return min(max(f.Offset+frame*f.HopSize, 0), f.TotalSamples)
}

// SampleToFrame maps a sample of the untrimmed track to the nearest frame,
// clamped to the analysed frames. It returns -1 when there are none.
func (f *Features) SampleToFrame(sample int) int {
	if f.NumFrames() == 0 || f.HopSize <= 0 {
		return -1
	}
	frame := int(math.Round(float64(sample-f.Offset) / float64(f.HopSize)))
	return min(max(frame, 0), f.NumFrames()-1)
}

// PitchClassAt names the dominant pitch class of the frame nearest to sample,
// or "" when the frame carries no pitch
func (f *Features) PitchClassAt(sample int) string {
	frame := f.SampleToFrame(sample)
	if frame < 0 || frame >= len(f.Chroma) {
		return ""
	}
	vec := f.Chroma[frame]
	if len(vec) != len(chroma.Labels) {
		return ""
	}
	dominant := chroma.Dominant([][]float64{vec})[0]
	if vec[dominant] <= 0 {
		return ""
	}
	return chroma.Labels[dominant]
}

// BeatFrames returns the tracked beats, nil when beat tracking was skipped
func (f *Features) BeatFrames() []int {
	if len(f.Beats) == 0 {
		return nil
	}
	return f.Beats
}

// Track returns the track the features were computed from
func (f *Features) Track() loop.Track {
	return loop.Track{SampleRate: f.SampleRate, TotalSamples: f.TotalSamples}
}

// Validate checks that the frame sequences are consistent
func (f *Features) Validate() error {
	if f.Version != cacheVersion {
		return fmt.Errorf("unsupported feature cache version %d", f.Version)
	}
	if f.SampleRate <= 0 || f.HopSize <= 0 {
		return errors.New("sample rate and hop size must be positive")
	}
	if len(f.Chroma) != len(f.Energy) {
		return fmt.Errorf("chroma has %d frames, energy has %d", len(f.Chroma), len(f.Energy))
	}
	for i, v := range f.Chroma {
		if len(v) != len(f.Chroma[0]) {
			return fmt.Errorf("chroma frame %d has %d bins, want %d", i, len(v), len(f.Chroma[0]))
		}
	}
	if !slices.IsSorted(f.Beats) {
		return errors.New("beat frames are not sorted")
	}
	for i := 1; i < len(f.Beats); i++ {
		if f.Beats[i] == f.Beats[i-1] {
			return fmt.Errorf("duplicate beat frame %d", f.Beats[i])
		}
	}
	if n := len(f.Beats); n > 0 && (f.Beats[0] < 0 || f.Beats[n-1] >= len(f.Energy)) {
		return errors.New("beat frame out of range")
	}
	return nil
}

// Save writes the features as JSON, creating parent directories
func (f *Features) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write features: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load reads features written by Save
func Load(path string) (*Features, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f Features
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode features %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid features %s: %w", path, err)
	}
	return &f, nil
}
