package hunter

import (
	"context"

	"github.com/google/uuid"

	"github.com/compiletools/ctdeps/internal/cache"
	"github.com/compiletools/ctdeps/internal/common"
	"github.com/compiletools/ctdeps/internal/fileanalyzer"
	"github.com/compiletools/ctdeps/internal/hashregistry"
	"github.com/compiletools/ctdeps/internal/macroenv"
	"github.com/compiletools/ctdeps/internal/toolrunner"
)

// Session is the dependency hunter's entry point (spec.md §4.4.5): one
// Session is shared by every translation unit resolved in a process, so its
// analyzer and preprocessing cache pay off across TUs, while each call to
// Resolve gets its own walker state and therefore never leaks deps/flags
// between TUs (spec.md §8.3 Scenario 3).
type Session struct {
	id string

	analyzer *fileanalyzer.Analyzer
	cache    *cache.Cache
	registry hashregistry.Registry
	runner   toolrunner.Runner
	logger   *common.LoggerWrapper

	compiler         string
	seedEnv          *macroenv.Env
	includeDirs      IncludeDirs
	convergenceBound int
}

// Config collects the external services and fixed inputs a Session needs;
// everything here is supplied by cmd/ctdeps's wiring, never constructed
// internally, so tests can substitute fakes for Runner/Registry.
type Config struct {
	Analyzer         *fileanalyzer.Analyzer
	Cache            *cache.Cache
	Registry         hashregistry.Registry
	Runner           toolrunner.Runner
	Logger           *common.LoggerWrapper
	Compiler         string
	IncludeDirs      IncludeDirs
	ConvergenceBound int // 0 means defaultConvergenceBound
}

const defaultConvergenceBound = 5

// NewSession builds a Session, querying the compiler's predefined macros
// once to seed every TU's starting macro environment (spec.md §4.4.5 step 1).
func NewSession(ctx context.Context, cfg Config) (*Session, error) {
	bound := cfg.ConvergenceBound
	if bound <= 0 {
		bound = defaultConvergenceBound
	}

	seed := macroenv.New(nil)
	if cfg.Compiler != "" {
		predefined, err := toolrunner.CompilerPredefinedMacros(ctx, cfg.Runner, cfg.Compiler)
		if err != nil {
			return nil, common.Wrapf(err, "querying predefined macros for %s", cfg.Compiler)
		}
		seed = predefined
	}

	return &Session{
		id:               uuid.NewString(),
		analyzer:         cfg.Analyzer,
		cache:            cfg.Cache,
		registry:         cfg.Registry,
		runner:           cfg.Runner,
		logger:           cfg.Logger,
		compiler:         cfg.Compiler,
		seedEnv:          seed,
		includeDirs:      cfg.IncludeDirs,
		convergenceBound: bound,
	}, nil
}

// ID identifies the session for diagnostics (log correlation across
// concurrently resolved TUs).
func (s *Session) ID() string {
	return s.id
}

// ClearCaches drops every memoized file analysis and preprocessing result
// the session owns; the two are always cleared together. The seed macro
// environment queried in NewSession and the tool runner's own response
// cache are kept.
func (s *Session) ClearCaches() {
	s.analyzer.ClearCaches()
	s.cache.ClearCaches()
}

// Result is the public contract of spec.md §4.4.5: header_dependencies,
// required_source_files and magic_flags for one translation unit.
type Result struct {
	TUPath            string
	HeaderDeps        []string
	RequiredSources   []string
	Flags             map[string][]string
	ConvergedAt       int
	ConvergenceFailed bool
}

// HeaderDependencies implements spec.md §4.4.5's header_dependencies(tu_path).
func (r *Result) HeaderDependencies() []string { return r.HeaderDeps }

// RequiredSourceFiles implements spec.md §4.4.5's required_source_files(tu_path):
// the TU itself plus every //#SOURCE= companion discovered anywhere in its closure.
func (r *Result) RequiredSourceFiles() []string {
	out := make([]string, 0, len(r.RequiredSources)+1)
	out = append(out, r.TUPath)
	out = append(out, r.RequiredSources...)
	return out
}

// MagicFlags implements spec.md §4.4.5's magic_flags(tu_path).
func (r *Result) MagicFlags() map[string][]string { return r.Flags }

// Resolve runs the dependency hunter for one translation unit to a fixed
// point (spec.md §4.4.4) and returns its public result.
func (s *Session) Resolve(ctx context.Context, tuPath string) (*Result, error) {
	final, convergedAt, exceeded, err := runToConvergence(ctx, s, tuPath)
	if err != nil {
		return nil, err
	}

	return &Result{
		TUPath:            tuPath,
		HeaderDeps:        final.deps,
		RequiredSources:   final.impliedSources,
		Flags:             final.flags,
		ConvergedAt:       convergedAt,
		ConvergenceFailed: exceeded,
	}, nil
}
