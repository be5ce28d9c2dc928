package hunter

import (
	"context"
	"path/filepath"

	"github.com/compiletools/ctdeps/internal/common"
	"github.com/compiletools/ctdeps/internal/flagbag"
	"github.com/compiletools/ctdeps/internal/macroenv"
)

// walker holds the mutable state accumulated while tracing one full
// single-file closure (spec.md §4.4.2): the ordered dependency and
// implied-source sets, the flag bags, and the include-dirs search path that
// grows as //#INCLUDE=/PKG-CONFIG= magic flags are discovered.
type walker struct {
	session *Session

	includeDirs    IncludeDirs
	deps           *orderedSet
	impliedSources *orderedSet
	flags          map[string]*flagbag.Bag
}

func newWalker(s *Session, includeDirs IncludeDirs) *walker {
	return &walker{
		session:        s,
		includeDirs:    includeDirs,
		deps:           newOrderedSet(),
		impliedSources: newOrderedSet(),
		flags:          make(map[string]*flagbag.Bag),
	}
}

func (w *walker) bag(key string) *flagbag.Bag {
	b, ok := w.flags[key]
	if !ok {
		b = flagbag.New()
		w.flags[key] = b
	}
	return b
}

// walk is the recursive single-file visit of spec.md §4.4.2: analyze,
// evaluate under env, recurse into each active include (chaining the
// environment across siblings and children in source order), apply active
// magic flags, and return the macro state this file (and everything it
// pulled in) leaves behind.
func (w *walker) walk(ctx context.Context, realPath string, env *macroenv.Env, ancestors map[string]bool) (*macroenv.Env, error) {
	hash, ok := w.session.registry.GetFileHash(realPath)
	if !ok {
		return nil, common.Wrapf(common.ErrHashRegistryMiss, "%s", realPath)
	}

	fa, err := w.session.analyzer.Analyze(realPath, hash)
	if err != nil {
		return nil, err
	}

	pr := w.session.cache.GetOrCompute(fa, env)
	running := pr.UpdatedMacros
	dir := filepath.Dir(realPath)

	for _, inc := range pr.ActiveIncludes {
		resolved, ok := resolveInclude(inc.Filename, dir, inc.IsSystem, w.includeDirs)
		if !ok {
			w.session.logger.Trace("unresolved include", inc.Filename, "from", realPath)
			continue
		}
		w.deps.Add(resolved)

		if ancestors[resolved] {
			// Cycle: stop recursion at this header without failing (spec.md §4.4.2 step 3).
			continue
		}

		nextAncestors := make(map[string]bool, len(ancestors)+1)
		for k := range ancestors {
			nextAncestors[k] = true
		}
		nextAncestors[resolved] = true

		childEnv, err := w.walk(ctx, resolved, running, nextAncestors)
		if err != nil {
			return nil, err
		}
		running = childEnv
	}

	for _, mf := range pr.ActiveMagicFlags {
		if err := w.applyMagicFlag(ctx, mf, dir); err != nil {
			return nil, err
		}
	}

	return running, nil
}

// singleFileClosure runs one full walk of tuPath and packages the result.
func singleFileClosure(ctx context.Context, s *Session, tuPath string, seedEnv *macroenv.Env, includeDirs IncludeDirs) (*iterationResult, error) {
	real, ok := realExisting(tuPath)
	if !ok {
		return nil, common.Wrapf(common.ErrFileMissing, "%s", tuPath)
	}

	w := newWalker(s, includeDirs)
	finalEnv, err := w.walk(ctx, real, seedEnv, map[string]bool{real: true})
	if err != nil {
		return nil, err
	}

	flagsOut := make(map[string][]string, len(w.flags))
	for k, b := range w.flags {
		flagsOut[k] = b.List()
	}

	return &iterationResult{
		deps:           w.deps.List(),
		flags:          flagsOut,
		impliedSources: w.impliedSources.List(),
		includeDirs:    w.includeDirs,
		macroState:     finalEnv,
	}, nil
}
