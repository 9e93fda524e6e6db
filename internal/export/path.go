// Package export writes converted clouds to files: open3d style .xyz point
// lists, edge index files and CloudCompare .asc exports. Every file is
// created inside a caller-chosen export directory.
package export

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const maxFilenameLen = 128

// SanitizeFilename reduces s to ASCII letters, digits, dot, underscore and
// dash. Runs of other characters collapse to one underscore.
func SanitizeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

// canonical resolves symlinks on the longest existing prefix of path.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	for dir := abs; ; {
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		if resolved, err := filepath.EvalSymlinks(parent); err == nil {
			rel, _ := filepath.Rel(parent, abs)
			return filepath.Join(resolved, rel), nil
		}
		dir = parent
	}
}

// WithinDirectory reports an error when path resolves outside dir, following
// symlinks on both sides.
func WithinDirectory(path, dir string) error {
	canonicalPath, err := canonical(filepath.Clean(path))
	if err != nil {
		return err
	}
	canonicalDir, err := canonical(dir)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(canonicalDir, canonicalPath)
	if err != nil {
		return fmt.Errorf("path is outside export directory: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s escapes %s", path, dir)
	}
	return nil
}

// SafePath returns the absolute path of name inside dir. Only the sanitised
// last component of name is used.
func SafePath(dir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty export filename")
	}
	if dir == "" {
		dir = "."
	}
	base := filepath.Base(name)
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return "", fmt.Errorf("invalid export filename %q", name)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("cannot resolve export directory: %w", err)
	}
	path := filepath.Join(absDir, SanitizeFilename(base))
	if err := WithinDirectory(path, absDir); err != nil {
		log.Printf("Security: rejected export path %s (from %s): %v", path, name, err)
		return "", fmt.Errorf("invalid export path: %w", err)
	}
	return path, nil
}

// Create makes dir if needed and creates name inside it.
func Create(dir, name string) (*os.File, string, error) {
	path, err := SafePath(dir, name)
	if err != nil {
		return nil, "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, "", fmt.Errorf("failed to create export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}
