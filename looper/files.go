package looper

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// CollectFiles expands paths into the audio files to analyse. Files are kept
// as given; directories contribute their files with one of exts, descending
// into subdirectories only when recursive is set. The result is sorted and
// free of duplicates.
func CollectFiles(paths []string, exts []string, recursive bool) ([]string, error) {
	accept := func(name string) bool {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
		return slices.Contains(exts, ext)
	}

	var files []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && !recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if accept(d.Name()) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	slices.Sort(files)
	return slices.Compact(files), nil
}
