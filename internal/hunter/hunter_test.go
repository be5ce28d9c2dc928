package hunter

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/compiletools/ctdeps/internal/cache"
	"github.com/compiletools/ctdeps/internal/common"
	"github.com/compiletools/ctdeps/internal/fileanalyzer"
	"github.com/compiletools/ctdeps/internal/hashregistry"
)

// fakeRunner never actually shells out; tests that don't exercise
// PKG-CONFIG/predefined-macros never call it and fail loudly if they do.
type fakeRunner struct{}

func (fakeRunner) Run(ctx context.Context, argv []string, stdin string) (string, error) {
	return "", common.Wrapf(common.ErrToolInvocationFailed, "unexpected tool call in test: %v", argv)
}

func newTestSession(t *testing.T, root string) (*Session, *hashregistry.MemRegistry) {
	t.Helper()
	registry := hashregistry.NewMemRegistry()

	var walk func(string)
	walk = func(dir string) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("reading %s: %v", dir, err)
		}
		for _, e := range entries {
			p := filepath.Join(dir, e.Name())
			if e.IsDir() {
				walk(p)
				continue
			}
			data, err := os.ReadFile(p)
			if err != nil {
				t.Fatalf("reading %s: %v", p, err)
			}
			registry.Set(p, common.ContentHash(p+":"+string(data)))
		}
	}
	walk(root)

	logger, err := common.MakeLogger("stderr", 0, false)
	if err != nil {
		t.Fatalf("building logger: %v", err)
	}

	s, err := NewSession(context.Background(), Config{
		Analyzer: fileanalyzer.NewAnalyzer(fileanalyzer.StrategyNoMmap, 0),
		Cache:    cache.New(),
		Registry: registry,
		Runner:   fakeRunner{},
		Logger:   logger,
		Compiler: "",
		IncludeDirs: IncludeDirs{
			Quote:  []string{root},
			System: []string{root},
		},
	})
	if err != nil {
		t.Fatalf("building session: %v", err)
	}
	return s, registry
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func basenames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	sort.Strings(out)
	return out
}

// TestTransitiveMacroPropagation pins spec.md's Scenario 1: a.hpp defines
// USE_HASH, b.hpp includes a.hpp then conditionally includes c.hpp on
// USE_HASH, and d.hpp is reachable only through c.hpp's own conditional
// include guarded by the same macro.
func TestTransitiveMacroPropagation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.cpp"), `#include "b.hpp"
`)
	writeFile(t, filepath.Join(dir, "a.hpp"), `#define USE_HASH 1
`)
	writeFile(t, filepath.Join(dir, "b.hpp"), `#include "a.hpp"
#ifdef USE_HASH
#include "c.hpp"
#endif
`)
	writeFile(t, filepath.Join(dir, "c.hpp"), `#if USE_HASH
#include "d.hpp"
#endif
`)
	writeFile(t, filepath.Join(dir, "d.hpp"), `int d_marker;
`)

	s, _ := newTestSession(t, dir)
	result, err := s.Resolve(context.Background(), filepath.Join(dir, "main.cpp"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	got := basenames(result.HeaderDependencies())
	want := []string{"a.hpp", "b.hpp", "c.hpp", "d.hpp"}
	if !equalStrings(got, want) {
		t.Fatalf("got deps %v, want %v", got, want)
	}
}

// TestUndefTakesEffect pins Scenario 2: outer.hpp defines TEMP and then
// undefs it before including enabled.hpp, which is only pulled in when TEMP
// is NOT defined.
func TestUndefTakesEffect(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.cpp"), `#include "outer.hpp"
`)
	writeFile(t, filepath.Join(dir, "outer.hpp"), `#define TEMP 1
#undef TEMP
#ifndef TEMP
#include "enabled.hpp"
#endif
`)
	writeFile(t, filepath.Join(dir, "enabled.hpp"), `int enabled_marker;
`)

	s, _ := newTestSession(t, dir)
	result, err := s.Resolve(context.Background(), filepath.Join(dir, "main.cpp"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	got := basenames(result.HeaderDependencies())
	want := []string{"enabled.hpp", "outer.hpp"}
	if !equalStrings(got, want) {
		t.Fatalf("got deps %v, want %v", got, want)
	}
}

// TestMacroIsolationAcrossTUs pins Scenario 3: resolving two TUs from the
// same Session must not let one TU's macro defines leak into the other's
// evaluation of a shared header.
func TestMacroIsolationAcrossTUs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "one.cpp"), `#define LOCAL_FLAG 1
#include "shared.hpp"
`)
	writeFile(t, filepath.Join(dir, "two.cpp"), `#include "shared.hpp"
`)
	writeFile(t, filepath.Join(dir, "shared.hpp"), `#ifdef LOCAL_FLAG
#include "only_for_one.hpp"
#endif
`)
	writeFile(t, filepath.Join(dir, "only_for_one.hpp"), `int marker;
`)

	s, _ := newTestSession(t, dir)

	r1, err := s.Resolve(context.Background(), filepath.Join(dir, "one.cpp"))
	if err != nil {
		t.Fatalf("Resolve one.cpp: %v", err)
	}
	r2, err := s.Resolve(context.Background(), filepath.Join(dir, "two.cpp"))
	if err != nil {
		t.Fatalf("Resolve two.cpp: %v", err)
	}

	if !contains(basenames(r1.HeaderDependencies()), "only_for_one.hpp") {
		t.Fatalf("one.cpp should depend on only_for_one.hpp, got %v", r1.HeaderDependencies())
	}
	if contains(basenames(r2.HeaderDependencies()), "only_for_one.hpp") {
		t.Fatalf("two.cpp must not depend on only_for_one.hpp, got %v", r2.HeaderDependencies())
	}
}

// TestMagicFlagsAndImpliedSources exercises //#SOURCE= and //#CPPFLAGS=
// flowing through the walker into the Result.
func TestMagicFlagsAndImpliedSources(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.cpp"), `#include "widget.hpp"
`)
	writeFile(t, filepath.Join(dir, "widget.hpp"), `//#SOURCE=widget.cpp
//#CPPFLAGS=-DWIDGET_ENABLED
int widget();
`)
	writeFile(t, filepath.Join(dir, "widget.cpp"), `int widget() { return 1; }
`)

	s, _ := newTestSession(t, dir)
	result, err := s.Resolve(context.Background(), filepath.Join(dir, "main.cpp"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if !contains(basenames(result.RequiredSourceFiles()), "widget.cpp") {
		t.Fatalf("expected widget.cpp among required sources, got %v", result.RequiredSourceFiles())
	}
	flags := result.MagicFlags()["CPPFLAGS"]
	if !contains(flags, "-DWIDGET_ENABLED") {
		t.Fatalf("expected -DWIDGET_ENABLED in CPPFLAGS, got %v", flags)
	}
}

// TestCycleDoesNotHang pins the include-cycle guard: a.hpp and b.hpp include
// each other, and resolution must still terminate with both recorded once.
func TestCycleDoesNotHang(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.cpp"), `#include "a.hpp"
`)
	writeFile(t, filepath.Join(dir, "a.hpp"), `#include "b.hpp"
int a_marker;
`)
	writeFile(t, filepath.Join(dir, "b.hpp"), `#include "a.hpp"
int b_marker;
`)

	s, _ := newTestSession(t, dir)
	result, err := s.Resolve(context.Background(), filepath.Join(dir, "main.cpp"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got := basenames(result.HeaderDependencies())
	want := []string{"a.hpp", "b.hpp"}
	if !equalStrings(got, want) {
		t.Fatalf("got deps %v, want %v", got, want)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func contains(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
