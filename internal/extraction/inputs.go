package extraction

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultExtensions are the file types picked up when a directory is expanded
var DefaultExtensions = []string{
	".pdf", ".png", ".jpg", ".jpeg", ".gif", ".tif", ".tiff",
	".bmp", ".webp", ".heic", ".heif", ".txt",
}

// ExpandInputs replaces each directory in paths with the files below it whose
// extension is in exts, in lexical order. Hidden files and directories are
// skipped. Other paths are kept as given, even if they do not exist, so that
// they fail as unreadable inputs. Duplicates are dropped.
func ExpandInputs(paths []string, exts []string) ([]string, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	seen := make(map[string]bool, len(paths))
	expanded := make([]string, 0, len(paths))
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			expanded = append(expanded, path)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			add(path)
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if p != path && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if slices.Contains(exts, strings.ToLower(filepath.Ext(p))) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", path, err)
		}
	}
	return expanded, nil
}
