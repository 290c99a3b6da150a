package export

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ExporterConfig holds output settings shared by every export
type ExporterConfig struct {
	OutputDir   string  `json:"output_dir"`   // "" writes next to the source file
	BitDepth    int     `json:"bit_depth"`    // 8, 16, 24 or 32
	FadeSeconds float64 `json:"fade_seconds"` // fade-out length used by ExtendWAV
	PointsFile  string  `json:"points_file"`  // base name of the text points file
}

// DefaultExporterConfig returns default export configuration
func DefaultExporterConfig() *ExporterConfig {
	return &ExporterConfig{
		BitDepth:    16,
		FadeSeconds: 5,
		PointsFile:  "loops",
	}
}

// Validate checks the configuration
func (c *ExporterConfig) Validate() error {
	switch c.BitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth %d", c.BitDepth)
	}
	if c.FadeSeconds < 0 {
		return fmt.Errorf("fade length must not be negative, got %.2f", c.FadeSeconds)
	}
	if c.PointsFile == "" || strings.ContainsRune(c.PointsFile, filepath.Separator) {
		return fmt.Errorf("invalid points file name %q", c.PointsFile)
	}
	return nil
}

// outputBase returns the directory and extension-less name used for files
// derived from source
func (c *ExporterConfig) outputBase(source string) string {
	dir := c.OutputDir
	if dir == "" {
		dir = filepath.Dir(source)
	}
	name := filepath.Base(source)
	return filepath.Join(dir, strings.TrimSuffix(name, filepath.Ext(name)))
}

// outputDir returns the directory for files that collect results of many sources
func (c *ExporterConfig) outputDir(source string) string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	return filepath.Dir(source)
}
