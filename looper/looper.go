// Package looper ties decoding, feature extraction and the loop search
// together for one audio file at a time.
package looper

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/RyanBlaney/sonido-loop/features"
	"github.com/RyanBlaney/sonido-loop/logging"
	"github.com/RyanBlaney/sonido-loop/loop"
	"github.com/RyanBlaney/sonido-loop/transcode"
)

// Looper finds loop points in audio files
type Looper struct {
	config  *Config
	decoder *transcode.Decoder
	logger  logging.Logger
}

// Timings records how long each stage of an analysis took
type Timings struct {
	Decode  time.Duration `json:"decode"`
	Extract time.Duration `json:"extract"`
	Search  time.Duration `json:"search"`
	Cached  bool          `json:"cached"`
}

// Analysis is the outcome of analysing one file
type Analysis struct {
	Path     string               `json:"path"`
	Audio    *transcode.AudioData `json:"audio"`
	Features *features.Features   `json:"-"`
	Result   *loop.Result         `json:"result"`
	Timings  Timings              `json:"timings"`

	aligner *loop.Aligner
}

// New creates a looper; a nil config selects DefaultConfig
func New(config *Config) (*Looper, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	decoder := transcode.NewDecoder(config.Decoder)
	if err := decoder.ValidateConfig(); err != nil {
		return nil, err
	}

	return &Looper{
		config:  config,
		decoder: decoder,
		logger: logging.WithFields(logging.Fields{
			"component": "looper",
		}),
	}, nil
}

// Decoder returns the decoder used for analyses
func (l *Looper) Decoder() *transcode.Decoder {
	return l.decoder
}

// Analyze decodes path, extracts its features and ranks loop candidates
func (l *Looper) Analyze(ctx context.Context, path string, opts Options) (*Analysis, error) {
	logger := l.logger.WithFields(logging.Fields{
		"function": "Analyze",
		"path":     path,
	})

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	a := &Analysis{Path: path}
	if l.config.Align {
		a.aligner = loop.NewAligner(l.config.Tuning.ZeroCrossingRadius, l.config.ChannelPolicy)
	}

	start := time.Now()
	audio, err := l.decoder.DecodeFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	a.Audio = audio
	a.Timings.Decode = time.Since(start)

	start = time.Now()
	feats, cached, err := l.features(ctx, path, audio, !opts.needsBeats())
	if err != nil {
		return nil, fmt.Errorf("analyse %s: %w", path, err)
	}
	a.Features = feats
	a.Timings.Extract = time.Since(start)
	a.Timings.Cached = cached

	track := audio.Track()
	cfg := opts.loopConfig(track, l.config)

	start = time.Now()
	result, err := loop.Find(ctx, track, feats, cfg)
	if err != nil {
		logger.Debug("Loop search failed", logging.Fields{"error": err.Error()})
		return nil, fmt.Errorf("search %s: %w", path, err)
	}
	a.Result = result
	a.Timings.Search = time.Since(start)

	logger.Info("Loop analysis complete", logging.Fields{
		"strategy":     result.Strategy,
		"bpm":          feats.BPM,
		"generated":    result.Generated,
		"retained":     result.Retained,
		"ranked":       result.Ranked,
		"decode_time":  a.Timings.Decode.Seconds(),
		"extract_time": a.Timings.Extract.Seconds(),
		"search_time":  a.Timings.Search.Seconds(),
		"cached":       cached,
	})
	return a, nil
}

// features loads cached features or extracts them from the decoded audio
func (l *Looper) features(ctx context.Context, path string, audio *transcode.AudioData, skipBeats bool) (*features.Features, bool, error) {
	cfg := *l.config.Extractor
	cfg.SkipBeats = skipBeats

	cachePath := l.cachePath(path, &cfg)
	if cachePath != "" {
		if f, err := features.Load(cachePath); err == nil && f.TotalSamples == audio.Frames() && f.SampleRate == audio.SampleRate {
			return f, true, nil
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("Ignoring unreadable feature cache", logging.Fields{"cache": cachePath, "error": err.Error()})
		}
	}

	f, err := features.NewExtractor(&cfg).Extract(ctx, audio.Mono(), audio.SampleRate)
	if err != nil {
		return nil, false, err
	}

	if cachePath != "" {
		if err := f.Save(cachePath); err != nil {
			l.logger.Warn("Could not write feature cache", logging.Fields{"cache": cachePath, "error": err.Error()})
		}
	}
	return f, false, nil
}

// cachePath names the cache entry for path under the extraction settings
// that shape the features. Files that changed since caching get a new name.
func (l *Looper) cachePath(path string, cfg *features.ExtractorConfig) string {
	if l.config.CacheDir == "" {
		return ""
	}
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d|%d|%d|%d|%s|%d|%g|%g|%g|%t",
		abs, info.Size(), info.ModTime().UnixNano(),
		cfg.WindowSize, cfg.HopSize, cfg.WindowType, cfg.NumMels, cfg.TuningFreq, cfg.DCCutoff, cfg.TrimTopDB, cfg.SkipBeats)

	name := filepath.Base(path)
	return filepath.Join(l.config.CacheDir, fmt.Sprintf("%s-%016x.json", name, h.Sum64()))
}

// Track returns the analysed track
func (a *Analysis) Track() loop.Track {
	return a.Result.Track
}

// Align snaps c to zero crossings when alignment is enabled
func (a *Analysis) Align(c loop.Candidate) loop.Candidate {
	if a.aligner == nil {
		return c
	}
	return a.aligner.AlignCandidate(a.Audio.Waveform(), c, a.Result.MinDuration(), a.Result.MaxDuration())
}

// Candidates returns the ranked candidates as found, without alignment.
// Align the ones that are kept, or use Top.
func (a *Analysis) Candidates() []loop.Candidate {
	return a.Result.Candidates()
}

// Top returns the n best candidates, aligned when enabled. n <= 0 returns
// all of them.
func (a *Analysis) Top(n int) []loop.Candidate {
	cands := a.Result.Candidates()
	if n > 0 && len(cands) > n {
		cands = cands[:n]
	}
	for i := range cands {
		cands[i] = a.Align(cands[i])
	}
	return cands
}

// Best returns the top-ranked candidate, aligned when enabled
func (a *Analysis) Best() loop.Candidate {
	return a.Align(a.Result.Best())
}

// SamplesToSeconds converts a sample position of the track to seconds
func (a *Analysis) SamplesToSeconds(samples int) float64 {
	return a.Track().SamplesToSeconds(samples)
}

// FormatTime renders a sample position as mm:ss.mmm
func (a *Analysis) FormatTime(samples int) string {
	return loop.FormatTime(a.SamplesToSeconds(samples))
}
