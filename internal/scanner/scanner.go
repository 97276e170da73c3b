package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Scanner scans directories for MHTML snapshot files
type Scanner struct {
	rootPath string
}

// NewScanner creates a new scanner for the given root path
func NewScanner(rootPath string) *Scanner {
	return &Scanner{
		rootPath: rootPath,
	}
}

// GetRootPath returns the root path for resolving relative paths
func (s *Scanner) GetRootPath() string {
	return s.rootPath
}

// isSnapshot reports whether a filename carries an MHTML extension
func isSnapshot(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mht", ".mhtml":
		return true
	}
	return false
}

// Scan recursively scans for .mht/.mhtml files and returns paths relative
// to rootPath. Relative paths keep snapshot collections portable across
// systems and drive mappings.
func (s *Scanner) Scan() ([]string, error) {
	var snapshots []string

	// Get absolute path of root for reliable relative path calculation
	absRoot, err := filepath.Abs(s.rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute root path: %w", err)
	}

	err = filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			return nil
		}

		if isSnapshot(path) {
			relPath, err := filepath.Rel(absRoot, path)
			if err != nil {
				return fmt.Errorf("failed to get relative path for %s: %w", path, err)
			}
			// Normalize to forward slashes for cross-platform compatibility
			relPath = filepath.ToSlash(relPath)
			snapshots = append(snapshots, relPath)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	return snapshots, nil
}

// Count counts the number of snapshot files without collecting paths
func (s *Scanner) Count() (int, error) {
	count := 0

	err := filepath.Walk(s.rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && isSnapshot(path) {
			count++
		}

		return nil
	})

	if err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}

	return count, nil
}
