package hunter

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/compiletools/ctdeps/internal/common"
	"github.com/compiletools/ctdeps/internal/fileanalyzer"
	"github.com/compiletools/ctdeps/internal/toolrunner"
)

// applyMagicFlag implements spec.md §4.4.3's per-key effects. originDir is
// the directory of the file the magic flag was found in, used to resolve
// //#SOURCE= targets.
func (w *walker) applyMagicFlag(ctx context.Context, mf fileanalyzer.MagicFlag, originDir string) error {
	switch mf.Key {
	case "INCLUDE":
		w.bag("CPPFLAGS").Add("-I " + mf.Value)
		w.bag("CFLAGS").Add("-I " + mf.Value)
		w.bag("CXXFLAGS").Add("-I " + mf.Value)
		// The full slice expression forces a copy, so the Session's shared
		// backing array is never written.
		q := w.includeDirs.Quote
		w.includeDirs.Quote = append(q[:len(q):len(q)], mf.Value)

	case "SOURCE":
		resolved := filepath.Join(originDir, mf.Value)
		real, ok := realExisting(resolved)
		if !ok {
			return common.Wrapf(common.ErrMagicFlagSourceMissing, "%s (from %s)", mf.Value, originDir)
		}
		w.impliedSources.Add(real)

	case "PKG-CONFIG":
		for _, pkg := range strings.Fields(mf.Value) {
			cflags, libs, err := toolrunner.PkgConfigFlags(ctx, w.session.runner, pkg)
			if err != nil {
				// Tool invocation failures are fatal (spec.md §7): unlike an
				// unresolved include, a pkg-config query is a command we chose
				// to run and must account for.
				return common.Wrapf(common.ErrToolInvocationFailed, "pkg-config %s", pkg)
			}
			w.bag("CPPFLAGS").AddTokens(cflags)
			w.bag("CFLAGS").AddTokens(cflags)
			w.bag("CXXFLAGS").AddTokens(cflags)
			w.bag("LDFLAGS").AddTokens(libs)
			sys := w.includeDirs.System
			w.includeDirs.System = append(sys[:len(sys):len(sys)], systemDirsFromCflags(cflags)...)
		}

	case "CPPFLAGS", "CFLAGS", "CXXFLAGS", "LDFLAGS":
		w.bag(mf.Key).Add(mf.Value)

	default:
		w.bag(mf.Key).Add(mf.Value)
	}
	return nil
}

// systemDirsFromCflags extracts the path argument of every "-isystem" pair
// in cflags, so pkg-config-derived system directories join the hunter's own
// include search path for subsequent resolution.
func systemDirsFromCflags(cflags []string) []string {
	var dirs []string
	for i := 0; i < len(cflags); i++ {
		if cflags[i] == "-isystem" && i+1 < len(cflags) {
			dirs = append(dirs, cflags[i+1])
			i++
		}
	}
	return dirs
}
