package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/wav"

	"github.com/RyanBlaney/sonido-loop/loop"
	"github.com/RyanBlaney/sonido-loop/transcode"
)

func constantAudio(path string, frames, sampleRate, channels int, value float64) *transcode.AudioData {
	pcm := make([]float64, frames*channels)
	for i := range pcm {
		pcm[i] = value
	}
	return &transcode.AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   channels,
		Duration:   time.Duration(frames) * time.Second / time.Duration(sampleRate),
		Metadata:   &transcode.FileMetadata{Path: path},
	}
}

func readWAV(t *testing.T, path string) (data []int, channels int) {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	buf, err := d.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return buf.Data, buf.Format.NumChannels
}

func TestSplitWAV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := constantAudio(filepath.Join(dir, "song.mp3"), 1000, 1000, 2, 0.25)

	res, err := NewExporter(nil).SplitWAV(a, loop.Candidate{LoopStart: 200, LoopEnd: 600})
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]int{
		filepath.Join(dir, "song-intro.wav"): 200,
		filepath.Join(dir, "song-loop.wav"):  400,
		filepath.Join(dir, "song-outro.wav"): 400,
	}
	if res.Intro == "" || res.Outro == "" {
		t.Fatalf("missing sections: %+v", res)
	}
	for _, path := range []string{res.Intro, res.Loop, res.Outro} {
		frames, ok := want[path]
		if !ok {
			t.Fatalf("unexpected output %s", path)
		}
		data, channels := readWAV(t, path)
		if channels != 2 || len(data) != frames*2 {
			t.Errorf("%s: %d samples on %d channels, want %d frames of stereo", path, len(data), channels, frames)
		}
	}
}

func TestSplitWAVSkipsEmptySections(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	a := constantAudio(filepath.Join(dir, "song.wav"), 100, 100, 1, 0.5)

	e := NewExporter(&ExporterConfig{OutputDir: out, BitDepth: 16, PointsFile: "loops"})
	res, err := e.SplitWAV(a, loop.Candidate{LoopStart: 0, LoopEnd: 100})
	if err != nil {
		t.Fatal(err)
	}
	if res.Intro != "" || res.Outro != "" {
		t.Errorf("empty sections written: %+v", res)
	}
	if res.Loop != filepath.Join(out, "song-loop.wav") {
		t.Errorf("loop path = %s", res.Loop)
	}
	if _, err := os.Stat(res.Loop); err != nil {
		t.Error(err)
	}
}

func TestExtendWAVWithFade(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := constantAudio(filepath.Join(dir, "song.ogg"), 1000, 1000, 1, 0.5)

	cfg := DefaultExporterConfig()
	cfg.FadeSeconds = 0.25

	// 2300 frames of loop budget: 5 full loops and three quarters of a sixth
	path, err := NewExporter(cfg).ExtendWAV(a, loop.Candidate{LoopStart: 200, LoopEnd: 600}, 2.5, false)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "song-extended-0m03s.wav"); path != want {
		t.Errorf("path = %s, want %s", path, want)
	}

	data, _ := readWAV(t, path)
	if len(data) != 2500 {
		t.Fatalf("got %d frames, want 2500", len(data))
	}
	// the final 300 frames start at 2200 and fade over their last 250
	if data[2249] != 16384 {
		t.Errorf("sample before fade = %d, want 16384", data[2249])
	}
	if data[2499] != 0 {
		t.Errorf("last sample = %d, want 0", data[2499])
	}
	if data[2400] >= data[2300] {
		t.Errorf("fade not decreasing: %d then %d", data[2300], data[2400])
	}
}

func TestExtendWAVWithOutro(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := constantAudio(filepath.Join(dir, "song.wav"), 1000, 1000, 1, 0.5)

	path, err := NewExporter(nil).ExtendWAV(a, loop.Candidate{LoopStart: 200, LoopEnd: 600}, 2.5, true)
	if err != nil {
		t.Fatal(err)
	}

	// intro 200 + 4 loops + final full loop 400 + outro 400
	data, _ := readWAV(t, path)
	if len(data) != 2600 {
		t.Errorf("got %d frames, want 2600", len(data))
	}
	if data[len(data)-1] != 16384 {
		t.Errorf("outro was faded: %d", data[len(data)-1])
	}
}

func TestExtendWAVErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := constantAudio(filepath.Join(dir, "song.wav"), 1000, 1000, 1, 0.5)
	e := NewExporter(nil)

	if _, err := e.ExtendWAV(a, loop.Candidate{LoopStart: 200, LoopEnd: 600}, 0.5, false); !errors.Is(err, ErrExtendTooShort) {
		t.Errorf("short extension err = %v", err)
	}

	for _, c := range []loop.Candidate{
		{LoopStart: -1, LoopEnd: 10},
		{LoopStart: 10, LoopEnd: 1001},
		{LoopStart: 10, LoopEnd: 10},
	} {
		if _, err := e.ExtendWAV(a, c, 5, false); !errors.Is(err, ErrInvalidLoop) {
			t.Errorf("candidate %+v err = %v, want ErrInvalidLoop", c, err)
		}
	}
}

func TestDurationSuffix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0m00s"},
		{2.5, "0m03s"},
		{59.5, "1m00s"},
		{125, "2m05s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			if got := durationSuffix(tt.seconds); got != tt.want {
				t.Errorf("durationSuffix(%v) = %s, want %s", tt.seconds, got, tt.want)
			}
		})
	}
}

func TestQuantize(t *testing.T) {
	t.Parallel()

	got := quantize([]float64{-2, -1, 0, 0.5, 1}, 16)
	want := []int{-32767, -32767, 0, 16384, 32767}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("16-bit[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	got = quantize([]float64{-1, 0, 1}, 8)
	want = []int{1, 128, 255}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("8-bit[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestAppendPointsTXT(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := filepath.Join(dir, "track.flac")
	track := loop.Track{SampleRate: 1000, TotalSamples: 100000}
	e := NewExporter(nil)

	tests := []struct {
		unit Unit
		c    loop.Candidate
		want string
	}{
		{UnitSamples, loop.Candidate{LoopStart: 1500, LoopEnd: 61250}, "1500 61250 track.flac"},
		{UnitSeconds, loop.Candidate{LoopStart: 1500, LoopEnd: 61250}, "1.5 61.25 track.flac"},
		{UnitTime, loop.Candidate{LoopStart: 1500, LoopEnd: 61250}, "00:01.500 01:01.250 track.flac"},
	}

	var path string
	for _, tt := range tests {
		var err error
		path, err = e.AppendPointsTXT(source, NewPoints(source, track, tt.c), tt.unit)
		if err != nil {
			t.Fatal(err)
		}
	}

	if path != filepath.Join(dir, "loops.txt") {
		t.Errorf("points file = %s", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
	if len(lines) != len(tests) {
		t.Fatalf("got %d lines, want %d: %q", len(lines), len(tests), raw)
	}
	for i, tt := range tests {
		if lines[i] != tt.want {
			t.Errorf("line %d = %q, want %q", i, lines[i], tt.want)
		}
	}
}

func TestWritePointsJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := filepath.Join(dir, "track.mp3")
	track := loop.Track{SampleRate: 100, TotalSamples: 1000}

	e := NewExporter(&ExporterConfig{OutputDir: filepath.Join(dir, "json"), BitDepth: 16, PointsFile: "loops"})
	path, err := e.WritePointsJSON(source, []Points{
		NewPoints(source, track, loop.Candidate{LoopStart: 100, LoopEnd: 900, Score: 0.9}),
	})
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "json", "track.loops.json") {
		t.Errorf("path = %s", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"file": "track.mp3"`, `"loop_start": 100`, `"end_seconds": 9`, `"score": 0.9`} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("JSON missing %s:\n%s", want, raw)
		}
	}
}

func TestParseUnitAndValidate(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]Unit{"": UnitSamples, "seconds": UnitSeconds, "time": UnitTime} {
		if got, err := ParseUnit(name); err != nil || got != want {
			t.Errorf("ParseUnit(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseUnit("beats"); err == nil {
		t.Error("expected error for unknown unit")
	}

	for _, cfg := range []ExporterConfig{
		{BitDepth: 12, PointsFile: "loops"},
		{BitDepth: 16, FadeSeconds: -1, PointsFile: "loops"},
		{BitDepth: 16, PointsFile: ""},
	} {
		if err := cfg.Validate(); err == nil {
			t.Errorf("config %+v should be invalid", cfg)
		}
	}
}
