// Package evaluator walks a FileAnalysis's directives in source order under
// an input macro environment and computes which lines are active, along
// with the macro environment that results (ProcessingResult). It is a pure
// function of its inputs: no file I/O, no caching (that is internal/cache's
// job).
//
// Grounded in spec.md §4.2; the state machine mirrors the conditional-stack
// walk nocc's own-includes-parser.go performs ad hoc while scanning a single
// file, generalized here into its own reusable, cacheable stage.
package evaluator

import (
	"github.com/compiletools/ctdeps/internal/fileanalyzer"
	"github.com/compiletools/ctdeps/internal/macroenv"
)

// ProcessingResult is the output of Evaluate: which lines survived
// conditional compilation, the active subset of each FileAnalysis array, and
// the macro environment after applying every active #define/#undef in order.
//
// Callers chaining multiple Evaluate calls (e.g. the dependency hunter
// walking an include graph) must propagate UpdatedMacros as the next call's
// input environment, never reuse the original input_env (spec.md §4.3.3).
type ProcessingResult struct {
	ActiveLines      map[int]struct{}
	ActiveIncludes   []fileanalyzer.Include
	ActiveMagicFlags []fileanalyzer.MagicFlag
	ActiveDefines    []fileanalyzer.Define
	UpdatedMacros    *macroenv.Env
}

// SortedActiveLines returns ActiveLines as a sorted slice, matching the
// spec's "sorted 0-based line numbers" description of active_lines.
func (r *ProcessingResult) SortedActiveLines() []int {
	out := make([]int, 0, len(r.ActiveLines))
	for l := range r.ActiveLines {
		out = append(out, l)
	}
	// insertion sort is fine: active-line sets are small relative to a TU's
	// total header closure, and this is only used for diagnostics/tests.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
