package fileanalyzer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/compiletools/ctdeps/internal/common"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "f.cpp")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return p
}

func TestEmptyFile(t *testing.T) {
	p := writeTemp(t, "")
	a := NewAnalyzer(StrategyNoMmap, 0)
	fa, err := a.Analyze(p, common.ContentHash("deadbeef"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fa.LineCount != 1 || len(fa.LineByteOffsets) != 1 || fa.LineByteOffsets[0] != 0 {
		t.Fatalf("expected line_count=1 line_byte_offsets=[0], got %d %v", fa.LineCount, fa.LineByteOffsets)
	}
	if len(fa.Directives) != 0 || len(fa.Includes) != 0 {
		t.Fatalf("expected no directives/includes in empty file")
	}
}

func TestFileMissing(t *testing.T) {
	a := NewAnalyzer(StrategyNoMmap, 0)
	_, err := a.Analyze("/nonexistent/path/does/not/exist.h", common.ContentHash("x"))
	if err == nil || !common.Is(err, common.ErrFileMissing) {
		t.Fatalf("expected ErrFileMissing, got %v", err)
	}
}

func TestMemoizationByContentHash(t *testing.T) {
	p := writeTemp(t, "#include <a.h>\n")
	a := NewAnalyzer(StrategyNoMmap, 0)
	hash := common.ContentHash("abc123")

	fa1, err := a.Analyze(p, hash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Mutate the underlying file; a second Analyze with the same hash must
	// still return the cached FileAnalysis, not re-scan.
	if err := os.WriteFile(p, []byte("completely different\n"), 0644); err != nil {
		t.Fatalf("rewriting temp file: %v", err)
	}
	fa2, err := a.Analyze(p, hash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fa1 != fa2 {
		t.Fatalf("expected identical cached FileAnalysis pointer for repeated content hash")
	}
	if len(fa2.Includes) != 1 {
		t.Fatalf("expected cached analysis to still show the original include")
	}
}

func TestIncludesClassification(t *testing.T) {
	src := "#include <system.h>\n" +
		"#include \"local.h\"\n" +
		"// #include <commented.h>\n" +
		"/* #include <blocked.h>\n*/\n"
	p := writeTemp(t, src)
	a := NewAnalyzer(StrategyNoMmap, 0)
	fa, err := a.Analyze(p, common.ContentHash("h1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fa.Includes) != 4 {
		t.Fatalf("expected 4 include occurrences, got %d", len(fa.Includes))
	}
	if _, ok := fa.SystemHeaders["system.h"]; !ok {
		t.Fatalf("expected system.h in SystemHeaders")
	}
	if _, ok := fa.QuotedHeaders["local.h"]; !ok {
		t.Fatalf("expected local.h in QuotedHeaders")
	}
	if _, ok := fa.SystemHeaders["commented.h"]; ok {
		t.Fatalf("commented.h must be excluded from SystemHeaders")
	}
	if _, ok := fa.SystemHeaders["blocked.h"]; ok {
		t.Fatalf("blocked.h inside block comment must be excluded")
	}
}

func TestMagicFlags(t *testing.T) {
	src := "//#PKG-CONFIG=zlib\n  //#CPPFLAGS=-DFOO\nint x; //#NOTALLOWED=1\n"
	p := writeTemp(t, src)
	a := NewAnalyzer(StrategyNoMmap, 0)
	fa, err := a.Analyze(p, common.ContentHash("h2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fa.MagicFlags) != 2 {
		t.Fatalf("expected 2 magic flags (code-preceded one excluded), got %d: %+v", len(fa.MagicFlags), fa.MagicFlags)
	}
	if fa.MagicFlags[0].Key != "PKG-CONFIG" || fa.MagicFlags[0].Value != "zlib" {
		t.Fatalf("unexpected first magic flag: %+v", fa.MagicFlags[0])
	}
}

func TestIncludeGuardIfndefDefine(t *testing.T) {
	src := "#ifndef FOO_H\n#define FOO_H\nint x;\n#endif\n"
	p := writeTemp(t, src)
	a := NewAnalyzer(StrategyNoMmap, 0)
	fa, err := a.Analyze(p, common.ContentHash("h3"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fa.HasIncludeGuard || fa.IncludeGuard != "FOO_H" {
		t.Fatalf("expected include guard FOO_H, got %+v", fa)
	}
	for _, d := range fa.Defines {
		if d.Name == "FOO_H" {
			t.Fatalf("include guard must be excluded from Defines")
		}
	}
}

func TestIncludeGuardPragmaOnce(t *testing.T) {
	src := "#pragma once\nint x;\n"
	p := writeTemp(t, src)
	a := NewAnalyzer(StrategyNoMmap, 0)
	fa, err := a.Analyze(p, common.ContentHash("h4"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fa.HasIncludeGuard || fa.IncludeGuard != PragmaOnceGuard {
		t.Fatalf("expected pragma_once guard, got %+v", fa)
	}
}

func TestContinuationLines(t *testing.T) {
	src := "#define FOO(a) \\\n  (a + 1)\nint y;\n"
	p := writeTemp(t, src)
	a := NewAnalyzer(StrategyNoMmap, 0)
	fa, err := a.Analyze(p, common.ContentHash("h5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fa.Directives) != 1 {
		t.Fatalf("expected 1 directive, got %d", len(fa.Directives))
	}
	d := fa.Directives[0]
	if d.ContinuationLines != 1 {
		t.Fatalf("expected 1 continuation line, got %d", d.ContinuationLines)
	}
	if d.MacroName != "FOO" || !d.IsFunction || len(d.Params) != 1 || d.Params[0] != "a" {
		t.Fatalf("unexpected define structuring: %+v", d)
	}
}

func TestConditionalMacrosExtraction(t *testing.T) {
	src := "#ifdef FOO\n#endif\n#if defined(BAR) && BAZ > 1\n#endif\n"
	p := writeTemp(t, src)
	a := NewAnalyzer(StrategyNoMmap, 0)
	fa, err := a.Analyze(p, common.ContentHash("h6"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"FOO", "BAR", "BAZ"} {
		if _, ok := fa.ConditionalMacros[want]; !ok {
			t.Fatalf("expected %s in ConditionalMacros, got %v", want, fa.ConditionalMacros)
		}
	}
	if _, ok := fa.ConditionalMacros["defined"]; ok {
		t.Fatalf("reserved keyword 'defined' must be excluded")
	}
}

func TestLineNumOfBinarySearch(t *testing.T) {
	src := "a\nb\nc\n"
	p := writeTemp(t, src)
	a := NewAnalyzer(StrategyNoMmap, 0)
	fa, err := a.Analyze(p, common.ContentHash("h7"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fa.LineNumOf(0) != 0 || fa.LineNumOf(2) != 1 || fa.LineNumOf(4) != 2 {
		t.Fatalf("unexpected LineNumOf results: %+v", fa.LineByteOffsets)
	}
}
