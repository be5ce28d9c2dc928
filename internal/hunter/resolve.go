// Package hunter implements the dependency hunter (spec.md §4.4): given a
// translation unit, it produces the complete header closure and flag bag,
// faithfully handling macros whose values are themselves defined in headers
// discovered during traversal. Grounded in VKCOM-nocc's
// internal/client/own-includes-parser.go, which performs the analogous
// walk ad hoc for its own compiler-free dependency discovery.
package hunter

import (
	"os"
	"path/filepath"
)

// IncludeDirs mirrors nocc's internal/client/include-dirs.go: quote search
// directories (checked for `"f"` includes, after the including file's own
// directory) and system search directories (checked for `<f>` includes).
// System-derived directories (e.g. pkg-config -isystem output) are tracked
// separately so callers can exclude them from dependency tracking per
// spec.md §4.4.1 step 2.
type IncludeDirs struct {
	Quote  []string
	System []string
}

// resolveInclude implements spec.md §4.4.1: given an include filename f, the
// including file's directory d, and the search path, return the first
// existing, realpath-canonicalized match.
func resolveInclude(filename string, fromDir string, isSystem bool, dirs IncludeDirs) (string, bool) {
	var candidates []string
	if isSystem {
		candidates = dirs.System
	} else {
		candidates = append([]string{fromDir}, dirs.Quote...)
		candidates = append(candidates, dirs.System...)
	}

	for _, dir := range candidates {
		candidate := filepath.Join(dir, filename)
		if real, ok := realExisting(candidate); ok {
			return real, true
		}
	}
	return "", false
}

// realExisting reports whether path exists and, if so, returns its
// realpath-canonicalized form (symlinks resolved).
func realExisting(path string) (string, bool) {
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path, true
	}
	return real, true
}
