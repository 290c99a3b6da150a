package loop

import "math"

// fakeFeatures is an in-memory FrameFeatures with a fixed hop
type fakeFeatures struct {
	loudness []float64
	vectors  [][]float64
	beats    []int
	hop      int
	offset   int
}

func (f *fakeFeatures) NumFrames() int                  { return len(f.loudness) }
func (f *fakeFeatures) Loudness(frame int) float64      { return f.loudness[frame] }
func (f *fakeFeatures) PitchVector(frame int) []float64 { return f.vectors[frame] }
func (f *fakeFeatures) FrameToSample(frame int) int     { return f.offset + frame*f.hop }
func (f *fakeFeatures) BeatFrames() []int               { return f.beats }

// newPeriodicFeatures builds frames whose chroma cycles through period
// distinct patterns, with every beatEvery-th frame marked as a beat
func newPeriodicFeatures(numFrames, period, beatEvery, hop int) *fakeFeatures {
	f := &fakeFeatures{
		loudness: make([]float64, numFrames),
		vectors:  make([][]float64, numFrames),
		hop:      hop,
	}
	for i := range numFrames {
		vec := make([]float64, 12)
		vec[i%period%12] = 1.0
		vec[(i/period+3)%12] = 0.25
		f.vectors[i] = vec
		f.loudness[i] = 0.5 + 0.25*math.Sin(2*math.Pi*float64(i)/float64(period))
		if beatEvery > 0 && i%beatEvery == 0 {
			f.beats = append(f.beats, i)
		}
	}
	return f
}

func trackFor(f *fakeFeatures, sampleRate int) Track {
	return Track{SampleRate: sampleRate, TotalSamples: f.NumFrames() * f.hop}
}
