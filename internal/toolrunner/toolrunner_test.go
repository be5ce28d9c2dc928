package toolrunner

import (
	"context"
	"strings"
	"sync"
	"testing"
)

// fakeRunner records invocations and serves canned responses keyed by the
// joined argv, so tests can assert a command was only ever executed once.
type fakeRunner struct {
	mu        sync.Mutex
	responses map[string]string
	calls     map[string]int
}

func newFakeRunner(responses map[string]string) *fakeRunner {
	return &fakeRunner{responses: responses, calls: make(map[string]int)}
}

func (f *fakeRunner) Run(_ context.Context, argv []string, _ string) (string, error) {
	key := strings.Join(argv, " ")
	f.mu.Lock()
	f.calls[key]++
	f.mu.Unlock()
	return f.responses[key], nil
}

func TestCompilerPredefinedMacrosParsing(t *testing.T) {
	r := newFakeRunner(map[string]string{
		"g++ -dM -E -x c++ /dev/null": "#define __cplusplus 201703L\n#define __GNUC__ 11\n#define FOO\n",
	})
	env, err := CompilerPredefinedMacros(context.Background(), r, "g++")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := env.Get("__cplusplus"); !ok || v != "201703L" {
		t.Fatalf("expected __cplusplus=201703L, got %q ok=%v", v, ok)
	}
	if !env.Defined("FOO") {
		t.Fatalf("expected valueless FOO to be recorded as defined")
	}
}

func TestPkgConfigRewritesIncludeToSystem(t *testing.T) {
	r := newFakeRunner(map[string]string{
		"pkg-config --cflags zlib": "-I/opt/include -DFOO=1\n",
		"pkg-config --libs zlib":   "-L/opt/lib -lz\n",
	})
	cflags, libs, err := PkgConfigFlags(context.Background(), r, "zlib")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantCflags := "[-isystem /opt/include -DFOO=1]"
	if got := joinBrackets(cflags); got != wantCflags {
		t.Fatalf("got cflags %v, want %v", got, wantCflags)
	}
	if len(libs) != 2 || libs[0] != "-L/opt/lib" || libs[1] != "-lz" {
		t.Fatalf("unexpected libs: %v", libs)
	}
}

func joinBrackets(ss []string) string {
	return "[" + strings.Join(ss, " ") + "]"
}
