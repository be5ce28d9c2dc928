package hunter

import (
	"context"

	"github.com/compiletools/ctdeps/internal/common"
	"github.com/compiletools/ctdeps/internal/macroenv"
)

// iterationResult is one single-file-closure pass's output, before the
// fixed-point loop decides whether another pass is needed.
type iterationResult struct {
	deps           []string
	flags          map[string][]string
	impliedSources []string
	includeDirs    IncludeDirs
	macroState     *macroenv.Env
}

// fingerprint captures everything spec.md §4.4.4 says must stabilize across
// iterations: the dependency set, the flag bags, and the final macro state.
// Two iterations with equal fingerprints have reached a fixed point.
func (r *iterationResult) fingerprint() string {
	h := macroenv.New(nil)
	for _, d := range r.deps {
		h.Set("dep:"+d, "1")
	}
	for key, vals := range r.flags {
		for i, v := range vals {
			h.Set("flag:"+key+":"+itoa(i), v)
		}
	}
	if r.macroState != nil {
		h.Set("__macro_fingerprint", r.macroState.Fingerprint())
	}
	return h.Fingerprint()
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	n := i
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// runToConvergence implements spec.md §4.4.4: repeat the single-file closure
// walk, feeding each pass's discovered include directories and implied
// macro-affecting state forward into the next, until two consecutive passes
// produce identical (deps, flags, macro_state), or the iteration bound is
// hit. A magic //#INCLUDE=/PKG-CONFIG= flag discovered late in one pass can
// only change a subsequent pass's resolution and macro evaluation, never the
// pass that discovered it, so at least one re-run is required whenever new
// include directories appeared.
func runToConvergence(ctx context.Context, s *Session, tuPath string) (*iterationResult, int, bool, error) {
	includeDirs := s.includeDirs

	var prev *iterationResult
	for iteration := 1; iteration <= s.convergenceBound; iteration++ {
		result, err := singleFileClosure(ctx, s, tuPath, s.seedEnv, includeDirs)
		if err != nil {
			return nil, iteration, false, err
		}

		if prev != nil && prev.fingerprint() == result.fingerprint() {
			return result, iteration, false, nil
		}

		prev = result
		includeDirs = mergeIncludeDirs(includeDirs, result.includeDirs)
	}

	// Non-fatal per spec.md §4.4.4: log and return the last pass's result
	// rather than failing the whole translation unit.
	s.logger.Error(common.Wrapf(common.ErrConvergenceExceeded, "%s", tuPath))
	return prev, s.convergenceBound, true, nil
}

// mergeIncludeDirs folds newly discovered search directories into base,
// preserving base's ordering and skipping duplicates already present.
func mergeIncludeDirs(base, extra IncludeDirs) IncludeDirs {
	return IncludeDirs{
		Quote:  appendUnique(base.Quote, extra.Quote),
		System: appendUnique(base.System, extra.System),
	}
}

func appendUnique(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base))
	out := make([]string, len(base))
	copy(out, base)
	for _, v := range base {
		seen[v] = struct{}{}
	}
	for _, v := range extra {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
