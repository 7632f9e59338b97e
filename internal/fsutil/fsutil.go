// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FindFilesByExtension recursively searches the given root path for all files
// ending with the specified extension. Paths matching any of the exclude
// glob patterns (doublestar syntax, matched against the root-relative path)
// are skipped; a matching directory is pruned entirely. It returns a slice
// of root-relative, slash-separated paths.
func FindFilesByExtension(rootPath, extension string, excludes ...string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(rootPath, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		for _, pattern := range excludes {
			matched, err := doublestar.Match(pattern, rel)
			if err != nil {
				return err
			}
			if matched {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, rel)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// CreateDirsForFile ensures the parent directory of path exists.
func CreateDirsForFile(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
