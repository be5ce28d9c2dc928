// Package namer builds on-disk object-file names from the three fixed-width
// hash components spec.md §6.5 requires: a 12-hex file hash, a 14-hex
// dependency-set hash, and a 16-hex macro-state hash.
package namer

import (
	"strings"

	"github.com/compiletools/ctdeps/internal/common"
)

const (
	fileHashWidth  = 12
	depHashWidth   = 14
	macroHashWidth = 16
)

// sanitizeBasename replaces path separators and any characters that would be
// awkward in an object filename with '_', so a translation unit basename containing
// them (e.g. a generated file under a templated directory) cannot corrupt
// the fixed `basename_{file}_{dep}_{macro}.o` layout. Not in spec.md
// directly; supplements it the way the original project's own naming
// helper sanitizes names before hashing (see original_source/).
func sanitizeBasename(base string) string {
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// ObjectFileName builds "basename_{file_hash:12}_{dep_hash:14}_{macro_hash:16}.o"
// per spec.md §6.5. fileHash is the TU's own content hash (40-hex, truncated
// to 12); depHash is the 14-hex fold produced by
// common.FoldDependencyHashes; macroHash is the 16-hex fingerprint from
// macroenv.Env.Fingerprint.
func ObjectFileName(tuBasename string, fileHash common.ContentHash, depHash, macroHash string) string {
	base := sanitizeBasename(stripExt(tuBasename))

	fh := truncOrPadHex(string(fileHash), fileHashWidth)
	dh := truncOrPadHex(depHash, depHashWidth)
	mh := truncOrPadHex(macroHash, macroHashWidth)

	return base + "_" + fh + "_" + dh + "_" + mh + ".o"
}

func stripExt(name string) string {
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		return name[:idx]
	}
	return name
}

func truncOrPadHex(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat("0", width-len(s))
}
