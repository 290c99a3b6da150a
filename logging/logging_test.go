package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "debug", want: DebugLevel},
		{in: "INFO", want: InfoLevel},
		{in: "", want: InfoLevel},
		{in: "warning", want: WarnLevel},
		{in: " error ", want: ErrorLevel},
		{in: "fatal", want: FatalLevel},
		{in: "loud", want: InfoLevel, wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDefaultLoggerRouting(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	logger := NewDefaultLoggerWithOutput(&stdout, &stderr)

	logger.Debug("hidden")
	logger.Info("analysis started", Fields{"file": "track.ogg"})
	logger.Warn("slow")
	logger.Error(errors.New("boom"), "decode failed")

	out := stdout.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message logged at info level")
	}
	if !strings.Contains(out, "[INFO] analysis started file=track.ogg") {
		t.Errorf("stdout = %q", out)
	}

	errOut := stderr.String()
	if !strings.Contains(errOut, "[WARN] slow") {
		t.Errorf("stderr missing warning: %q", errOut)
	}
	if !strings.Contains(errOut, "[ERROR] decode failed: boom") {
		t.Errorf("stderr missing error: %q", errOut)
	}
	if strings.Contains(errOut, ColorReset) || strings.Contains(out, ColorReset) {
		t.Error("colors written to a non-terminal writer")
	}
}

func TestDefaultLoggerFields(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer
	logger := NewDefaultLoggerWithOutput(&stdout, &bytes.Buffer{})
	logger.SetLevel(DebugLevel)

	component := logger.WithFields(Fields{"component": "looper", "b": 2})
	component.Debug("frames", Fields{"a": 1, "b": 3})

	// call-site fields override preset ones, keys are sorted
	if got := stdout.String(); !strings.Contains(got, "[DEBUG] frames a=1 b=3 component=looper") {
		t.Errorf("stdout = %q", got)
	}

	// parent logger is unchanged
	stdout.Reset()
	logger.Debug("plain")
	if strings.Contains(stdout.String(), "component") {
		t.Errorf("WithFields leaked into parent: %q", stdout.String())
	}
}

func TestDefaultLoggerWithContext(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer
	logger := NewDefaultLoggerWithOutput(&stdout, &bytes.Buffer{})

	ctx := ContextWithFields(context.Background(), Fields{"file": "a.wav"})
	ctx = ContextWithFields(ctx, Fields{"stage": "rank"})

	logger.WithContext(ctx).Info("done")
	if got := stdout.String(); !strings.Contains(got, "file=a.wav stage=rank") {
		t.Errorf("stdout = %q", got)
	}

	if _, ok := FieldsFromContext(context.Background()); ok {
		t.Error("FieldsFromContext() on empty context reported fields")
	}
}

func TestDefaultLoggerFatal(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	logger := NewDefaultLoggerWithOutput(&bytes.Buffer{}, &stderr)

	code := -1
	logger.exit = func(c int) { code = c }

	logger.Fatal(errors.New("no input"), "cannot continue")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "[FATAL] cannot continue: no input") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestSetGlobalLoggerNil(t *testing.T) {
	previous := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(previous) })

	SetGlobalLogger(nil)
	if _, ok := GetGlobalLogger().(*NoOpLogger); !ok {
		t.Errorf("global logger = %T, want *NoOpLogger", GetGlobalLogger())
	}

	// must not panic
	Info("ignored")
	WithFields(Fields{"k": "v"}).Warn("ignored")
}
