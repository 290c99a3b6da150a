package features

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/RyanBlaney/sonido-loop/algorithms/chroma"
	"github.com/RyanBlaney/sonido-loop/algorithms/common"
	"github.com/RyanBlaney/sonido-loop/algorithms/filters"
	"github.com/RyanBlaney/sonido-loop/algorithms/spectral"
	"github.com/RyanBlaney/sonido-loop/algorithms/temporal"
	"github.com/RyanBlaney/sonido-loop/algorithms/windowing"
	"github.com/RyanBlaney/sonido-loop/logging"
)

const (
	// A-weighting floor in dB
	weightingFloorDB = -80.0

	// amplitude floor for dB conversion of the mel spectrogram
	melAmin = 1e-10
)

// Extractor computes loop-search features from mono PCM
type Extractor struct {
	config *ExtractorConfig
	logger logging.Logger

	stft        *spectral.STFT
	power       *spectral.PowerSpectrum
	mel         *spectral.MelScale
	flux        *spectral.SpectralFlux
	beatTracker *temporal.BeatTracker
}

// NewExtractor creates a feature extractor
func NewExtractor(config *ExtractorConfig) *Extractor {
	if config == nil {
		config = DefaultExtractorConfig()
	}

	return &Extractor{
		config: config,
		logger: logging.WithFields(logging.Fields{
			"component": "feature_extractor",
		}),
		stft:        spectral.NewSTFT(),
		power:       spectral.NewPowerSpectrum(),
		mel:         spectral.NewMelScale(),
		flux:        spectral.NewSpectralFlux(),
		beatTracker: temporal.NewBeatTracker(config.Beats),
	}
}

// Extract analyses a mono signal. The signal is DC-blocked, peak-normalised and trimmed
// of leading and trailing silence; frame indices refer to the trimmed signal
// and FrameToSample maps them back. A silent signal yields zero frames.
func (e *Extractor) Extract(ctx context.Context, mono []float64, sampleRate int) (*Features, error) {
	if err := e.config.Validate(); err != nil {
		return nil, err
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive: %d", sampleRate)
	}
	if len(mono) == 0 {
		return nil, errors.New("empty signal")
	}

	logger := e.logger.WithContext(ctx).WithFields(logging.Fields{
		"function":    "Extract",
		"samples":     len(mono),
		"sample_rate": sampleRate,
	})
	startTime := time.Now()

	features := &Features{
		Version:      cacheVersion,
		SampleRate:   sampleRate,
		TotalSamples: len(mono),
		HopSize:      e.config.HopSize,
		Energy:       []float64{},
		Chroma:       [][]float64{},
	}

	var signal []float64
	if e.config.DCCutoff > 0 {
		signal = filters.NewDCRemovalWithCutoff(sampleRate, e.config.DCCutoff).ProcessBuffer(mono)
	} else {
		signal = slices.Clone(mono)
	}
	gain := common.PeakNormalize(signal)

	region := temporal.TrimResult{Start: 0, End: len(signal)}
	if e.config.TrimTopDB > 0 {
		region = temporal.NewTrimmer(e.config.TrimTopDB, e.config.WindowSize, e.config.HopSize).Trim(signal)
	}
	if region.Len() == 0 {
		logger.Warn("Signal is silent, no frames extracted")
		return features, nil
	}
	features.Offset = region.Start
	signal = signal[region.Start:region.End]

	logger.Debug("Preprocessed signal", logging.Fields{
		"gain":       gain,
		"trim_start": region.Start,
		"trim_end":   region.End,
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	window, err := windowing.New(e.config.WindowType, e.config.WindowSize, false)
	if err != nil {
		return nil, err
	}

	spectrogram, err := e.stft.ComputeCentered(signal, e.config.WindowSize, e.config.HopSize, sampleRate, window)
	if err != nil {
		return nil, fmt.Errorf("compute STFT: %w", err)
	}

	power := e.power.ComputeFromSTFT(spectrogram)
	weights := spectral.AWeighting(spectral.FrequencyBins(sampleRate, e.config.WindowSize), weightingFloorDB)
	weighted := e.power.WeightFrames(power, weights)

	features.Chroma = chroma.NewChromaSTFT(sampleRate, e.config.TuningFreq).FromPower(power, e.config.WindowSize)
	features.Energy = frameEnergy(weighted)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !e.config.SkipBeats {
		onset := e.onsetEnvelope(weighted, sampleRate)
		beats := e.beatTracker.Track(onset, sampleRate, e.config.HopSize)

		features.BPM = beats.BPM
		features.Beats = clipBeats(beats.Beats, len(features.Energy))

		logger.Debug("Beat tracking completed", logging.Fields{
			"bpm":   beats.BPM,
			"beats": len(features.Beats),
		})
	}

	logger.Debug("Feature extraction completed", logging.Fields{
		"frames":       len(features.Energy),
		"extract_time": time.Since(startTime).Seconds(),
	})

	return features, nil
}

// onsetEnvelope is the mean positive flux of the dB mel spectrogram
func (e *Extractor) onsetEnvelope(weighted [][]float64, sampleRate int) []float64 {
	maxFreq := math.Min(e.config.MelMaxFreq, float64(sampleRate)/2)
	mel := e.mel.MelSpectrogram(weighted, e.config.WindowSize, sampleRate, e.config.NumMels, 0, maxFreq)

	ref := 0.0
	for _, frame := range mel {
		for _, v := range frame {
			ref = math.Max(ref, v)
		}
	}

	melDB := make([][]float64, len(mel))
	for t, frame := range mel {
		melDB[t] = spectral.ToDB(frame, ref, melAmin, 0)
		if e.config.OnsetTopDB > 0 {
			for i := range melDB[t] {
				melDB[t][i] = math.Max(melDB[t][i], -e.config.OnsetTopDB)
			}
		}
	}

	return e.flux.OnsetStrength(melDB, 1)
}

// frameEnergy takes the loudest weighted bin of each frame relative to the
// median over all frames
func frameEnergy(weighted [][]float64) []float64 {
	energy := make([]float64, len(weighted))
	for t, frame := range weighted {
		if len(frame) > 0 {
			energy[t] = slices.Max(frame)
		}
	}

	if ref := common.Median(energy); ref > 0 {
		for t := range energy {
			energy[t] /= ref
		}
	}
	return energy
}

func clipBeats(beats []int, numFrames int) []int {
	out := make([]int, 0, len(beats))
	for _, b := range beats {
		if b >= 0 && b < numFrames {
			out = append(out, b)
		}
	}
	return out
}
