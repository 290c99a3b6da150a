package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/RyanBlaney/sonido-loop/logging"
	"github.com/RyanBlaney/sonido-loop/loop"
)

// Unit selects how loop points are written to text
type Unit string

const (
	UnitSamples Unit = "samples"
	UnitSeconds Unit = "seconds"
	UnitTime    Unit = "time" // mm:ss.mmm
)

// ParseUnit converts a unit name to a Unit
func ParseUnit(name string) (Unit, error) {
	switch u := Unit(name); u {
	case UnitSamples, UnitSeconds, UnitTime:
		return u, nil
	case "":
		return UnitSamples, nil
	default:
		return "", fmt.Errorf("unknown point unit %q", name)
	}
}

// Points is one loop of one file, as written to points files
type Points struct {
	File             string  `json:"file"`
	SampleRate       int     `json:"sample_rate"`
	LoopStart        int     `json:"loop_start"`
	LoopEnd          int     `json:"loop_end"`
	StartSeconds     float64 `json:"start_seconds"`
	EndSeconds       float64 `json:"end_seconds"`
	Score            float64 `json:"score"`
	NoteDistance     float64 `json:"note_distance"`
	LoudnessDistance float64 `json:"loudness_distance"`
}

// NewPoints describes candidate c of the file at path
func NewPoints(path string, track loop.Track, c loop.Candidate) Points {
	return Points{
		File:             filepath.Base(path),
		SampleRate:       track.SampleRate,
		LoopStart:        c.LoopStart,
		LoopEnd:          c.LoopEnd,
		StartSeconds:     track.SamplesToSeconds(c.LoopStart),
		EndSeconds:       track.SamplesToSeconds(c.LoopEnd),
		Score:            c.Score,
		NoteDistance:     c.NoteDistance,
		LoudnessDistance: c.LoudnessDistance,
	}
}

// Format renders the loop points in the given unit
func (p Points) Format(unit Unit) (start, end string) {
	switch unit {
	case UnitSeconds:
		return strconv.FormatFloat(p.StartSeconds, 'f', -1, 64), strconv.FormatFloat(p.EndSeconds, 'f', -1, 64)
	case UnitTime:
		return loop.FormatTime(p.StartSeconds), loop.FormatTime(p.EndSeconds)
	default:
		return strconv.Itoa(p.LoopStart), strconv.Itoa(p.LoopEnd)
	}
}

// AppendPointsTXT appends a "start end filename" line to the points file in
// the output directory, or next to source when none is configured. It
// returns the path of the points file.
func (e *Exporter) AppendPointsTXT(source string, p Points, unit Unit) (string, error) {
	if err := e.config.Validate(); err != nil {
		return "", err
	}

	dir := e.config.outputDir(source)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create output directory: %w", err)
	}
	path := filepath.Join(dir, e.config.PointsFile+".txt")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("could not open points file: %w", err)
	}
	defer f.Close()

	start, end := p.Format(unit)
	if _, err := fmt.Fprintf(f, "%s %s %s\n", start, end, p.File); err != nil {
		return "", fmt.Errorf("could not write points: %w", err)
	}

	e.logger.Debug("Loop points appended", logging.Fields{"path": path, "file": p.File})
	return path, nil
}

// WritePointsJSON writes the points of source as an indented JSON array to
// <source>.loops.json and returns the path
func (e *Exporter) WritePointsJSON(source string, points []Points) (string, error) {
	if err := e.config.Validate(); err != nil {
		return "", err
	}

	path := e.config.outputBase(source) + ".loops.json"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("could not create output directory: %w", err)
	}

	if points == nil {
		points = []Points{}
	}
	data, err := json.MarshalIndent(points, "", "  ")
	if err != nil {
		return "", fmt.Errorf("could not encode points: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("could not write points: %w", err)
	}

	e.logger.Debug("Loop points written", logging.Fields{"path": path, "count": len(points)})
	return path, nil
}
