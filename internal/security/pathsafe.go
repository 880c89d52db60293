// Package security keeps user-supplied labels (treatment names, well IDs)
// from steering output files outside their directory.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// maxSegment bounds a sanitised path segment, in bytes.
const maxSegment = 128

// SanitizeSegment turns a label into a single path segment. Path
// separators and control characters become underscores, runs of
// underscores collapse, and "." / ".." or an empty result become
// "unknown". Spaces are kept so "Batch 1 - Well 2" survives unchanged.
func SanitizeSegment(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxSegment {
			break
		}
		if r == '/' || r == '\\' || r == ':' || r < 0x20 || r == 0x7f {
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}
		b.WriteRune(r)
		lastUnderscore = r == '_'
	}
	out := strings.TrimSpace(b.String())
	if out == "" || strings.Trim(out, ".") == "" {
		return "unknown"
	}
	return out
}

// ValidatePathWithinDirectory checks lexically that path resolves inside
// dir. It does not touch the filesystem, so it also guards in-memory
// filesystems.
func ValidatePathWithinDirectory(path, dir string) error {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	absDir, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return fmt.Errorf("failed to resolve directory path: %w", err)
	}

	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return fmt.Errorf("path is outside %s: %w", dir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s escapes %s", path, dir)
	}
	return nil
}
