package importer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalidPath is returned for paths outside the upload directory or
	// that are not regular files.
	ErrInvalidPath = errors.New("invalid import file path")

	// ErrFileTooLarge is returned for files above the configured limit.
	ErrFileTooLarge = errors.New("import file too large")
)

// ResolvePath turns a job's file path into a checked absolute path.
// Relative paths are taken relative to baseDir; when baseDir is set the
// result must stay inside it. maxSize <= 0 disables the size check.
func ResolvePath(baseDir, path string, maxSize int64) (string, os.FileInfo, error) {
	if strings.TrimSpace(path) == "" {
		return "", nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	resolved := path
	if baseDir != "" {
		base, err := filepath.Abs(baseDir)
		if err != nil {
			return "", nil, fmt.Errorf("resolve base dir: %w", err)
		}
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(base, resolved)
		}
		resolved = filepath.Clean(resolved)

		rel, err := filepath.Rel(base, resolved)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", nil, fmt.Errorf("%w: %s is outside %s", ErrInvalidPath, path, base)
		}
	} else {
		abs, err := filepath.Abs(resolved)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
		}
		resolved = abs
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if !info.Mode().IsRegular() {
		return "", nil, fmt.Errorf("%w: %s is not a regular file", ErrInvalidPath, path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return "", nil, fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, info.Size(), maxSize)
	}
	return resolved, info, nil
}
