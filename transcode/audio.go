package transcode

import (
	"errors"
	"time"

	"github.com/RyanBlaney/sonido-loop/loop"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrEmptyAudio        = errors.New("no audio samples decoded")
)

// AudioData represents decoded audio data
type AudioData struct {
	PCM        []float64     `json:"-"` // Interleaved samples in [-1, 1]
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	Duration   time.Duration `json:"duration"`
	Metadata   *FileMetadata `json:"metadata,omitempty"`
}

// FileMetadata describes where decoded audio came from
type FileMetadata struct {
	Path    string `json:"path"`
	Format  string `json:"format"`  // container, e.g. "wav"
	Codec   string `json:"codec"`   // codec or decoder used
	Decoder string `json:"decoder"` // "native" or "ffmpeg"
	Bitrate int    `json:"bitrate,omitempty"`
}

// newAudioData builds AudioData from interleaved samples
func newAudioData(pcm []float64, sampleRate, channels int, meta *FileMetadata) (*AudioData, error) {
	if channels <= 0 {
		channels = 1
	}
	// drop a trailing partial frame
	pcm = pcm[:len(pcm)-len(pcm)%channels]
	if len(pcm) == 0 {
		return nil, ErrEmptyAudio
	}

	frames := len(pcm) / channels
	return &AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   channels,
		Duration:   time.Duration(frames) * time.Second / time.Duration(max(sampleRate, 1)),
		Metadata:   meta,
	}, nil
}

// Frames returns the number of samples per channel
func (a *AudioData) Frames() int {
	if a.Channels <= 0 {
		return 0
	}
	return len(a.PCM) / a.Channels
}

// Mono averages all channels into a new slice
func (a *AudioData) Mono() []float64 {
	if a.Channels <= 1 {
		mono := make([]float64, len(a.PCM))
		copy(mono, a.PCM)
		return mono
	}

	frames := a.Frames()
	mono := make([]float64, frames)
	scale := 1.0 / float64(a.Channels)
	for i := range frames {
		sum := 0.0
		for ch := range a.Channels {
			sum += a.PCM[i*a.Channels+ch]
		}
		mono[i] = sum * scale
	}
	return mono
}

// Track returns the loop-search view of the audio
func (a *AudioData) Track() loop.Track {
	return loop.Track{SampleRate: a.SampleRate, TotalSamples: a.Frames()}
}

// Waveform exposes the interleaved samples to the zero-crossing aligner
func (a *AudioData) Waveform() loop.Waveform {
	return loop.Waveform{Samples: a.PCM, Channels: a.Channels}
}
