package toolrunner

import (
	"context"
	"strings"

	"github.com/compiletools/ctdeps/internal/flagbag"
	"github.com/compiletools/ctdeps/internal/macroenv"
)

// CompilerPredefinedMacros asks compiler (e.g. "g++") for the macros it
// predefines, parsing `compiler -dM -E -x c++ /dev/null` output lines of the
// form `#define NAME VALUE`. This seeds the macro environment a translation
// unit's hunt starts from (spec.md §4.4.4 step 1).
func CompilerPredefinedMacros(ctx context.Context, r Runner, compiler string) (*macroenv.Env, error) {
	out, err := r.Run(ctx, []string{compiler, "-dM", "-E", "-x", "c++", "/dev/null"}, "")
	if err != nil {
		return nil, err
	}

	symbols := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#define ") {
			continue
		}
		rest := strings.TrimPrefix(line, "#define ")
		sp := strings.IndexAny(rest, " \t")
		if sp < 0 {
			symbols[rest] = ""
			continue
		}
		symbols[rest[:sp]] = strings.TrimSpace(rest[sp+1:])
	}
	return macroenv.New(symbols), nil
}

// PkgConfigFlags queries `pkg-config --cflags` and `--libs` for pkg, rewriting
// a standalone "-I path" into "-isystem path" in the cflags output so the
// header search treats pkg-config-derived directories as system paths
// (spec.md §4.4.3's PKG-CONFIG row and §8.3 Scenario 5).
func PkgConfigFlags(ctx context.Context, r Runner, pkg string) (cflags, libs []string, err error) {
	cflagsOut, err := r.Run(ctx, []string{"pkg-config", "--cflags", pkg}, "")
	if err != nil {
		return nil, nil, err
	}
	libsOut, err := r.Run(ctx, []string{"pkg-config", "--libs", pkg}, "")
	if err != nil {
		return nil, nil, err
	}

	bag := flagbag.New()
	bag.AddTokens(rewriteIncludeToSystem(strings.Fields(cflagsOut)))
	return bag.List(), strings.Fields(libsOut), nil
}

// rewriteIncludeToSystem turns a "-I"/path pair (attached or separate) into
// "-isystem"/path, leaving every other token untouched.
func rewriteIncludeToSystem(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	i := 0
	for i < len(tokens) {
		tok := tokens[i]
		if tok == "-I" && i+1 < len(tokens) {
			out = append(out, "-isystem", tokens[i+1])
			i += 2
			continue
		}
		if strings.HasPrefix(tok, "-I") && len(tok) > 2 {
			out = append(out, "-isystem", tok[2:])
			i++
			continue
		}
		out = append(out, tok)
		i++
	}
	return out
}
