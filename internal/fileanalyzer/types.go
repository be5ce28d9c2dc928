// Package fileanalyzer performs the single-pass structural scan of a source
// file's bytes: locating preprocessor directives, #include directives, and
// magic-flag comments, and returning a content-addressed structured summary
// (FileAnalysis). It never opens a second file and never interprets a macro
// environment; that is the evaluator's job (internal/evaluator).
//
// Grounded in VKCOM-nocc's internal/client/own-includes-parser.go and
// includes-collector.go, which scan translation units byte-by-byte for
// #include directives without invoking a real preprocessor.
package fileanalyzer

import "github.com/compiletools/ctdeps/internal/common"

// DirectiveKind enumerates the preprocessor directives the scanner recognizes.
type DirectiveKind int

const (
	DirectiveIf DirectiveKind = iota
	DirectiveIfdef
	DirectiveIfndef
	DirectiveElif
	DirectiveElse
	DirectiveEndif
	DirectiveDefine
	DirectiveUndef
	DirectiveInclude
	DirectivePragma
	DirectiveError
	DirectiveWarning
	DirectiveLine
)

var directiveKeywords = map[string]DirectiveKind{
	"if":      DirectiveIf,
	"ifdef":   DirectiveIfdef,
	"ifndef":  DirectiveIfndef,
	"elif":    DirectiveElif,
	"else":    DirectiveElse,
	"endif":   DirectiveEndif,
	"define":  DirectiveDefine,
	"undef":   DirectiveUndef,
	"include": DirectiveInclude,
	"pragma":  DirectivePragma,
	"error":   DirectiveError,
	"warning": DirectiveWarning,
	"line":    DirectiveLine,
}

// Directive is one recognized preprocessor directive, with whatever fields
// could be extracted for its kind. Malformed syntax never prevents recording
// it; fields that could not be parsed are left at their zero value.
type Directive struct {
	LineNum           int
	BytePos           int
	Kind              DirectiveKind
	ContinuationLines int

	Condition    string // #if, #elif
	MacroName    string // #ifdef, #ifndef, #undef, #define
	MacroValue   string // #define (raw remainder, may be empty)
	IsFunction   bool   // #define FOO(a,b)
	Params       []string
	IsPragmaOnce bool // #pragma once
}

// Include is one #include occurrence, classified but not yet resolved to a
// filesystem path (that is the dependency hunter's job).
type Include struct {
	LineNum     int
	BytePos     int
	Filename    string
	IsSystem    bool // true for <...>, false for "..."
	IsCommented bool
	FullLine    string
}

// MagicFlag is one `//#KEY=VALUE` structured comment (spec.md §6.1).
type MagicFlag struct {
	LineNum int
	BytePos int
	Key     string
	Value   string
}

// Define is one recognized #define, excluding the file's own include guard.
type Define struct {
	LineNum    int
	BytePos    int
	Name       string
	Value      string
	IsFunction bool
	Params     []string
}

// PragmaOnceGuard is the sentinel include_guard value for files that use
// `#pragma once` instead of the ifndef/define idiom.
const PragmaOnceGuard = "pragma_once"

// FileAnalysis is the immutable, content-addressed result of scanning one
// file's bytes. Exactly one is produced per distinct content hash per
// process (see Analyzer.Analyze's memoization).
type FileAnalysis struct {
	ContentHash common.ContentHash

	LineCount       int
	LineByteOffsets []int

	Directives        []Directive
	DirectiveByLine   map[int]*Directive
	DirectivePositions map[DirectiveKind][]int

	Includes []Include

	MagicFlags []MagicFlag

	Defines []Define

	SystemHeaders map[string]struct{}
	QuotedHeaders map[string]struct{}

	IncludeGuard   string // empty if none
	HasIncludeGuard bool

	ConditionalMacros map[string]struct{}

	WasTruncated bool
}

// LineNumOf returns the 0-based line number containing byte offset pos, via
// binary search over LineByteOffsets, matching spec.md's line-offset
// consistency invariant.
func (fa *FileAnalysis) LineNumOf(pos int) int {
	lo, hi := 0, len(fa.LineByteOffsets)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if fa.LineByteOffsets[mid] <= pos {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}
