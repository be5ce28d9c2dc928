package config

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/compiletools/ctdeps/internal/common"
)

// FindVariantFiles resolves variant (e.g. "dbg", "release.arm") to every
// "<variant>.conf" matching one of searchDirs, in order. Each entry of
// searchDirs may itself be a glob (spec.md §6.6's "a list of search
// directories, several of which may use shell-style globs"), expanded with
// doublestar so "/etc/ctdeps/*" finds every immediate subdirectory before
// the fixed "<variant>.conf" suffix is appended. A leading "~" is not
// expanded to the home directory.
func FindVariantFiles(searchDirs []string, variant string) ([]string, error) {
	var found []string
	target := variant + ".conf"

	for _, pattern := range searchDirs {
		dirs, err := expandDirGlob(pattern)
		if err != nil {
			return nil, err
		}
		for _, dir := range dirs {
			candidate := filepath.Join(dir, target)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				found = append(found, candidate)
			}
		}
	}
	return found, nil
}

// expandDirGlob expands pattern as a doublestar glob if it contains glob
// metacharacters, otherwise returns it unchanged as the sole result.
func expandDirGlob(pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, common.Wrapf(common.ErrMalformedConfigLine, "invalid search-dir glob %q", pattern)
	}
	if !hasGlobMeta(pattern) {
		return []string{pattern}, nil
	}

	base, rest := doublestar.SplitPattern(pattern)
	matches, err := doublestar.Glob(os.DirFS(base), rest)
	if err != nil {
		return nil, common.Wrapf(err, "expanding search-dir glob %q", pattern)
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = filepath.Join(base, m)
	}
	return out, nil
}

func hasGlobMeta(pattern string) bool {
	for _, r := range pattern {
		switch r {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
