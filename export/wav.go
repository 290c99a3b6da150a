package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavWriter streams interleaved float64 frames into a PCM WAV file
type wavWriter struct {
	file     *os.File
	encoder  *wav.Encoder
	format   *audio.Format
	bitDepth int
}

func newWAVWriter(path string, sampleRate, channels, bitDepth int) (*wavWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("could not create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not create %s: %w", path, err)
	}
	return &wavWriter{
		file:     f,
		encoder:  wav.NewEncoder(f, sampleRate, bitDepth, channels, 1),
		format:   &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		bitDepth: bitDepth,
	}, nil
}

// Write appends interleaved samples in [-1, 1]
func (w *wavWriter) Write(samples []float64) error {
	if len(samples) == 0 {
		return nil
	}

	buf := &audio.IntBuffer{
		Format:         w.format,
		Data:           quantize(samples, w.bitDepth),
		SourceBitDepth: w.bitDepth,
	}
	if err := w.encoder.Write(buf); err != nil {
		return fmt.Errorf("wav encode failed: %w", err)
	}
	return nil
}

// Close finalises the header and closes the file
func (w *wavWriter) Close() error {
	encErr := w.encoder.Close()
	fileErr := w.file.Close()
	if encErr != nil {
		return fmt.Errorf("wav finalise failed: %w", encErr)
	}
	return fileErr
}

// writeWAV writes samples to path in one call
func writeWAV(path string, samples []float64, sampleRate, channels, bitDepth int) error {
	w, err := newWAVWriter(path, sampleRate, channels, bitDepth)
	if err != nil {
		return err
	}
	if err := w.Write(samples); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// quantize converts float samples to signed integers of the given depth.
// 8-bit WAV is unsigned, so those samples are offset by 128.
func quantize(samples []float64, bitDepth int) []int {
	scale := math.Pow(2, float64(bitDepth-1)) - 1
	out := make([]int, len(samples))
	for i, s := range samples {
		s = math.Max(-1, math.Min(1, s))
		out[i] = int(math.Round(s * scale))
		if bitDepth == 8 {
			out[i] += 128
		}
	}
	return out
}
