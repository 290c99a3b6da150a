package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"

	"github.com/RyanBlaney/sonido-loop/export"
	"github.com/RyanBlaney/sonido-loop/internal/cli"
	"github.com/RyanBlaney/sonido-loop/internal/ui"
	"github.com/RyanBlaney/sonido-loop/loop"
	"github.com/RyanBlaney/sonido-loop/looper"
)

// runContext is bound to every command's Run method
type runContext struct {
	ctx    context.Context
	stdout io.Writer
	stdin  io.Reader
}

// searchFlags are shared by every command
type searchFlags struct {
	Paths []string `arg:"" name:"path" type:"path" help:"Audio files or directories to analyse."`

	MinDurationMultiplier float64   `default:"0.35" help:"Minimum loop length as a fraction of the track."`
	MinLoopDuration       float64   `placeholder:"SECONDS" help:"Minimum loop length in seconds; overrides the multiplier."`
	MaxLoopDuration       float64   `placeholder:"SECONDS" help:"Maximum loop length in seconds."`
	ApproxLoopPosition    []float64 `placeholder:"START,END" help:"Approximate loop start and end in seconds; only points within 2s of them are searched."`
	BruteForce            bool      `help:"Search every frame pair instead of tracked beats. Slow on long tracks."`
	DisablePruning        bool      `help:"Rank every scored candidate instead of the best half."`

	Align         bool   `negatable:"" default:"true" help:"Snap loop points to zero crossings (--no-align to disable)."`
	ChannelPolicy string `enum:"downmix,all,majority" default:"downmix" help:"How channels must agree on a zero crossing."`

	Recursive bool   `short:"r" help:"Descend into subdirectories."`
	CacheDir  string `type:"path" placeholder:"DIR" help:"Reuse extracted features stored in this directory."`
	FFmpeg    string `default:"ffmpeg" help:"ffmpeg binary for formats without a native decoder."`
	FFprobe   string `default:"ffprobe" help:"ffprobe binary used to inspect those formats."`
}

func (s *searchFlags) config() (*looper.Config, error) {
	policy, err := loop.ParseChannelPolicy(s.ChannelPolicy)
	if err != nil {
		return nil, err
	}

	cfg := looper.DefaultConfig()
	cfg.Align = s.Align
	cfg.ChannelPolicy = policy
	cfg.CacheDir = s.CacheDir
	cfg.Decoder.FFmpegPath = s.FFmpeg
	cfg.Decoder.FFprobePath = s.FFprobe
	return cfg, nil
}

func (s *searchFlags) options() looper.Options {
	return looper.Options{
		MinDurationMultiplier: s.MinDurationMultiplier,
		MinLoopDuration:       s.MinLoopDuration,
		MaxLoopDuration:       s.MaxLoopDuration,
		ApproxLoopPosition:    s.ApproxLoopPosition,
		BruteForce:            s.BruteForce,
		DisablePruning:        s.DisablePruning,
	}
}

// each analyses every file named by the flags and hands successful analyses
// to fn. Failures are reported per file and summarised at the end.
func (s *searchFlags) each(rc *runContext, fn func(a *looper.Analysis) error) error {
	cfg, err := s.config()
	if err != nil {
		return err
	}
	l, err := looper.New(cfg)
	if err != nil {
		return err
	}
	if err := s.options().Validate(); err != nil {
		return err
	}

	files, err := looper.CollectFiles(s.Paths, l.Decoder().SupportedExtensions(), s.Recursive)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no audio files found")
	}

	failed := 0
	for _, path := range files {
		if err := rc.ctx.Err(); err != nil {
			return err
		}

		a, err := l.Analyze(rc.ctx, path, s.options())
		if err == nil {
			err = fn(a)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			cli.PrintError(fmt.Sprintf("%s: %v", path, err))
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(files))
	}
	return nil
}

// choose returns the best candidate, or lets the user pick one
func choose(rc *runContext, a *looper.Analysis, interactive, samples bool) (loop.Candidate, error) {
	if !interactive {
		return a.Best(), nil
	}

	if f, ok := rc.stdin.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		return loop.Candidate{}, errors.New("interactive selection needs a terminal")
	}

	cands := a.Candidates()
	rows := cli.CandidateRows(a.Track(), cands, samples)
	idx, err := ui.Pick(filepath.Base(a.Path), rows, rc.stdin, rc.stdout)
	if err != nil {
		return loop.Candidate{}, err
	}
	return a.Align(cands[idx]), nil
}

func printHeader(w io.Writer, a *looper.Analysis) {
	fmt.Fprintln(w, cli.TitleStyle.Render(filepath.Base(a.Path)))
	sub := fmt.Sprintf("%s • %d Hz • %d ch", loop.FormatTime(a.Audio.Duration.Seconds()), a.Audio.SampleRate, a.Audio.Channels)
	if a.Features.BPM > 0 {
		sub += fmt.Sprintf(" • %.1f BPM", a.Features.BPM)
	}
	fmt.Fprintln(w, cli.SubtitleStyle.Render(sub))
}

func printLoop(w io.Writer, a *looper.Analysis, c loop.Candidate, samples bool) {
	row := cli.CandidateRows(a.Track(), []loop.Candidate{c}, samples)[0]
	cli.PrintKeyValue(w, "Start", row.Start)
	cli.PrintKeyValue(w, "End", row.End)
	cli.PrintKeyValue(w, "Length", row.Length)
	cli.PrintKeyValue(w, "Score", fmt.Sprintf("%.2f%%", c.Score*100))
	if start, end := a.Features.PitchClassAt(c.LoopStart), a.Features.PitchClassAt(c.LoopEnd); start != "" && end != "" {
		cli.PrintKeyValue(w, "Notes", start+" → "+end)
	}
}

func exporter(outputDir string, bitDepth int) *export.Exporter {
	cfg := export.DefaultExporterConfig()
	cfg.OutputDir = outputDir
	cfg.BitDepth = bitDepth
	return export.NewExporter(cfg)
}

// ListCmd prints the ranked candidates
type ListCmd struct {
	Search  searchFlags `embed:""`
	Count   int         `short:"n" default:"10" help:"Number of candidates to show (0 for all)."`
	Samples bool        `help:"Show positions in samples instead of mm:ss.mmm."`
}

func (c *ListCmd) Run(rc *runContext) error {
	return c.Search.each(rc, func(a *looper.Analysis) error {
		cands := a.Top(c.Count)

		printHeader(rc.stdout, a)
		fmt.Fprintln(rc.stdout, cli.RenderCandidates(cli.CandidateRows(a.Track(), cands, c.Samples)))
		fmt.Fprintln(rc.stdout)
		return nil
	})
}

// BestCmd prints the best loop of each file
type BestCmd struct {
	Search  searchFlags `embed:""`
	Samples bool        `help:"Show positions in samples instead of mm:ss.mmm."`
}

func (c *BestCmd) Run(rc *runContext) error {
	return c.Search.each(rc, func(a *looper.Analysis) error {
		printHeader(rc.stdout, a)
		printLoop(rc.stdout, a, a.Best(), c.Samples)
		fmt.Fprintln(rc.stdout)
		return nil
	})
}

// PickCmd lets the user choose among the ranked loops
type PickCmd struct {
	Search  searchFlags `embed:""`
	Samples bool        `help:"Show positions in samples instead of mm:ss.mmm."`
}

func (c *PickCmd) Run(rc *runContext) error {
	return c.Search.each(rc, func(a *looper.Analysis) error {
		chosen, err := choose(rc, a, true, c.Samples)
		if err != nil {
			return err
		}
		printHeader(rc.stdout, a)
		printLoop(rc.stdout, a, chosen, c.Samples)
		fmt.Fprintln(rc.stdout)
		return nil
	})
}

// SplitCmd writes intro, loop and outro files
type SplitCmd struct {
	Search      searchFlags `embed:""`
	Interactive bool        `short:"i" help:"Choose the loop interactively."`
	OutputDir   string      `short:"o" type:"path" help:"Output directory; defaults to the source directory."`
	BitDepth    int         `default:"16" help:"Bit depth of the written WAV files."`
}

func (c *SplitCmd) Run(rc *runContext) error {
	e := exporter(c.OutputDir, c.BitDepth)
	return c.Search.each(rc, func(a *looper.Analysis) error {
		chosen, err := choose(rc, a, c.Interactive, false)
		if err != nil {
			return err
		}
		res, err := e.SplitWAV(a.Audio, chosen)
		if err != nil {
			return err
		}
		for _, path := range []string{res.Intro, res.Loop, res.Outro} {
			if path != "" {
				cli.PrintWritten(rc.stdout, path)
			}
		}
		return nil
	})
}

// ExtendCmd writes an extended rendition of each file
type ExtendCmd struct {
	Search         searchFlags `embed:""`
	Interactive    bool        `short:"i" help:"Choose the loop interactively."`
	OutputDir      string      `short:"o" type:"path" help:"Output directory; defaults to the source directory."`
	BitDepth       int         `default:"16" help:"Bit depth of the written WAV file."`
	ExtendedLength float64     `required:"" placeholder:"SECONDS" help:"Minimum length of the extended audio in seconds."`
	FadeLength     float64     `default:"5" placeholder:"SECONDS" help:"Fade-out length at the end of the extended audio."`
	DisableFade    bool        `help:"Play the last loop in full followed by the outro instead of fading out."`
}

func (c *ExtendCmd) Run(rc *runContext) error {
	cfg := export.DefaultExporterConfig()
	cfg.OutputDir = c.OutputDir
	cfg.BitDepth = c.BitDepth
	cfg.FadeSeconds = c.FadeLength
	e := export.NewExporter(cfg)

	return c.Search.each(rc, func(a *looper.Analysis) error {
		chosen, err := choose(rc, a, c.Interactive, false)
		if err != nil {
			return err
		}
		path, err := e.ExtendWAV(a.Audio, chosen, c.ExtendedLength, c.DisableFade)
		if err != nil {
			return err
		}
		cli.PrintWritten(rc.stdout, path)
		return nil
	})
}

// PointsCmd exports loop points
type PointsCmd struct {
	Search       searchFlags `embed:""`
	Interactive  bool        `short:"i" help:"Choose the loop interactively."`
	OutputDir    string      `short:"o" type:"path" help:"Output directory; defaults to the source directory."`
	Format       string      `default:"txt" enum:"txt,json,stdout" help:"Append to loops.txt, write <file>.loops.json or print to stdout."`
	Unit         string      `default:"samples" enum:"samples,seconds,time" help:"Unit of text loop points."`
	Alternatives int         `default:"1" help:"Number of ranked loops written to JSON."`
}

func (c *PointsCmd) Run(rc *runContext) error {
	unit, err := export.ParseUnit(c.Unit)
	if err != nil {
		return err
	}
	e := exporter(c.OutputDir, 16)

	return c.Search.each(rc, func(a *looper.Analysis) error {
		if c.Format == "json" {
			cands := a.Top(c.Alternatives)
			points := make([]export.Points, len(cands))
			for i, cand := range cands {
				points[i] = export.NewPoints(a.Path, a.Track(), cand)
			}
			path, err := e.WritePointsJSON(a.Path, points)
			if err != nil {
				return err
			}
			cli.PrintWritten(rc.stdout, path)
			return nil
		}

		chosen, err := choose(rc, a, c.Interactive, unit == export.UnitSamples)
		if err != nil {
			return err
		}
		points := export.NewPoints(a.Path, a.Track(), chosen)

		if c.Format == "stdout" {
			start, end := points.Format(unit)
			fmt.Fprintf(rc.stdout, "%s %s %s\n", start, end, points.File)
			return nil
		}

		path, err := e.AppendPointsTXT(a.Path, points, unit)
		if err != nil {
			return err
		}
		cli.PrintWritten(rc.stdout, path)
		return nil
	})
}
