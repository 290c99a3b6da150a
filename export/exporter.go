// Package export writes the audio and text artefacts derived from a chosen
// loop: intro/loop/outro splits, extended renditions and loop-point lists.
package export

import (
	"errors"
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-loop/logging"
	"github.com/RyanBlaney/sonido-loop/loop"
	"github.com/RyanBlaney/sonido-loop/transcode"
)

var (
	ErrInvalidLoop    = errors.New("loop points outside the audio")
	ErrExtendTooShort = errors.New("extended length shorter than the original audio")
)

// Exporter writes loop artefacts for decoded audio
type Exporter struct {
	config *ExporterConfig
	logger logging.Logger
}

// SplitResult lists the files written by SplitWAV. Empty sections are not written.
type SplitResult struct {
	Intro string `json:"intro,omitempty"`
	Loop  string `json:"loop"`
	Outro string `json:"outro,omitempty"`
}

// NewExporter creates a new exporter
func NewExporter(config *ExporterConfig) *Exporter {
	if config == nil {
		config = DefaultExporterConfig()
	}
	return &Exporter{
		config: config,
		logger: logging.WithFields(logging.Fields{
			"component": "loop_exporter",
		}),
	}
}

// SplitWAV writes the audio before, inside and after the loop as three WAV files
// named <source>-intro.wav, <source>-loop.wav and <source>-outro.wav
func (e *Exporter) SplitWAV(a *transcode.AudioData, c loop.Candidate) (*SplitResult, error) {
	if err := e.check(a, c); err != nil {
		return nil, err
	}

	base := e.config.outputBase(sourcePath(a))
	intro, body, outro := sections(a, c)

	result := &SplitResult{Loop: base + "-loop.wav"}
	if len(intro) > 0 {
		result.Intro = base + "-intro.wav"
	}
	if len(outro) > 0 {
		result.Outro = base + "-outro.wav"
	}

	parts := []struct {
		path    string
		samples []float64
	}{
		{result.Intro, intro},
		{result.Loop, body},
		{result.Outro, outro},
	}
	for _, p := range parts {
		if p.path == "" {
			continue
		}
		if err := writeWAV(p.path, p.samples, a.SampleRate, a.Channels, e.config.BitDepth); err != nil {
			return nil, err
		}
	}

	e.logger.Info("Split audio written", logging.Fields{
		"loop_start": c.LoopStart,
		"loop_end":   c.LoopEnd,
		"loop_file":  result.Loop,
	})
	return result, nil
}

// ExtendWAV writes the intro followed by enough repetitions of the loop to
// reach at least extendedSeconds. The final repetition is cut short and
// faded out, or, with disableFade, played in full followed by the outro.
// It returns the written path, which carries the resulting duration.
func (e *Exporter) ExtendWAV(a *transcode.AudioData, c loop.Candidate, extendedSeconds float64, disableFade bool) (string, error) {
	if err := e.check(a, c); err != nil {
		return "", err
	}
	if extendedSeconds < a.Duration.Seconds() {
		return "", fmt.Errorf("%w: %.2fs < %.2fs", ErrExtendTooShort, extendedSeconds, a.Duration.Seconds())
	}

	track := a.Track()
	plan := planExtension(track, c, extendedSeconds, e.config.FadeSeconds, disableFade)

	intro, body, outro := sections(a, c)
	final := finalLoop(a, c, plan, body)

	base := e.config.outputBase(sourcePath(a))
	path := fmt.Sprintf("%s-extended-%s.wav", base, durationSuffix(track.SamplesToSeconds(plan.totalFrames)))

	w, err := newWAVWriter(path, a.SampleRate, a.Channels, e.config.BitDepth)
	if err != nil {
		return "", err
	}

	chunks := [][]float64{intro}
	for range plan.repeats {
		chunks = append(chunks, body)
	}
	chunks = append(chunks, final)
	if disableFade {
		chunks = append(chunks, outro)
	}
	for _, chunk := range chunks {
		if err := w.Write(chunk); err != nil {
			w.Close()
			return "", err
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	e.logger.Info("Extended audio written", logging.Fields{
		"path":    path,
		"repeats": plan.repeats,
		"frames":  plan.totalFrames,
	})
	return path, nil
}

// extension describes how an extended rendition is assembled, in frames
type extension struct {
	repeats     int // full loop repetitions after the intro
	finalFrames int // frames of the last, partial repetition
	fadeFrames  int
	totalFrames int
}

func planExtension(track loop.Track, c loop.Candidate, extendedSeconds, fadeSeconds float64, disableFade bool) extension {
	introFrames := c.LoopStart
	loopFrames := c.Duration()
	outroFrames := track.TotalSamples - c.LoopEnd

	loopBudget := track.SecondsToSamples(extendedSeconds) - introFrames
	if disableFade {
		loopBudget -= outroFrames
	}

	factor := float64(loopBudget) / float64(loopFrames)
	whole := math.Floor(factor)

	ext := extension{repeats: int(whole)}
	if disableFade {
		ext.finalFrames = loopFrames
		ext.totalFrames = introFrames + loopFrames*ext.repeats + loopFrames + outroFrames
		return ext
	}

	ext.finalFrames = int(float64(loopFrames) * (factor - whole))
	ext.fadeFrames = min(track.SecondsToSamples(fadeSeconds), ext.finalFrames)
	ext.totalFrames = introFrames + loopFrames*ext.repeats + ext.finalFrames
	return ext
}

// finalLoop returns the samples of the last repetition, faded when planned
func finalLoop(a *transcode.AudioData, c loop.Candidate, plan extension, body []float64) []float64 {
	if plan.fadeFrames == 0 {
		return body[:plan.finalFrames*a.Channels]
	}

	final := make([]float64, plan.finalFrames*a.Channels)
	copy(final, a.PCM[c.LoopStart*a.Channels:])

	fadeStart := plan.finalFrames - plan.fadeFrames
	for i := range plan.fadeFrames {
		gain := 1.0
		if plan.fadeFrames > 1 {
			gain = 1 - float64(i)/float64(plan.fadeFrames-1)
		}
		frame := fadeStart + i
		for ch := range a.Channels {
			final[frame*a.Channels+ch] *= gain
		}
	}
	return final
}

// durationSuffix renders seconds as e.g. 3m05s, rounding seconds up
func durationSuffix(seconds float64) string {
	mins := int(seconds / 60)
	secs := int(math.Ceil(math.Mod(seconds, 60)))
	if secs == 60 {
		secs = 0
		mins++
	}
	return fmt.Sprintf("%dm%02ds", mins, secs)
}

func (e *Exporter) check(a *transcode.AudioData, c loop.Candidate) error {
	if err := e.config.Validate(); err != nil {
		return err
	}
	if a == nil || a.Channels <= 0 || a.SampleRate <= 0 {
		return fmt.Errorf("export: %w", transcode.ErrEmptyAudio)
	}
	if c.LoopStart < 0 || c.LoopEnd > a.Frames() || c.LoopStart >= c.LoopEnd {
		return fmt.Errorf("%w: [%d, %d] of %d frames", ErrInvalidLoop, c.LoopStart, c.LoopEnd, a.Frames())
	}
	return nil
}

// sections slices the interleaved PCM around the loop without copying
func sections(a *transcode.AudioData, c loop.Candidate) (intro, body, outro []float64) {
	start := c.LoopStart * a.Channels
	end := c.LoopEnd * a.Channels
	return a.PCM[:start], a.PCM[start:end], a.PCM[end:]
}

func sourcePath(a *transcode.AudioData) string {
	if a.Metadata != nil && a.Metadata.Path != "" {
		return a.Metadata.Path
	}
	return "audio"
}
