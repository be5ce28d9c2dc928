package evaluator

import (
	"os"
	"testing"

	"github.com/compiletools/ctdeps/internal/fileanalyzer"
	"github.com/compiletools/ctdeps/internal/macroenv"
)

func analyzeString(t *testing.T, src string) *fileanalyzer.FileAnalysis {
	t.Helper()
	a := fileanalyzer.NewAnalyzer(fileanalyzer.StrategyNoMmap, 0)
	p := t.TempDir() + "/f.cpp"
	if err := os.WriteFile(p, []byte(src), 0644); err != nil {
		t.Fatalf("writing %s: %v", p, err)
	}
	fa, err := a.Analyze(p, "fixedhash")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return fa
}

func TestIfdefBranch(t *testing.T) {
	src := "#ifdef FOO\nint a;\n#else\nint b;\n#endif\n"
	fa := analyzeString(t, src)

	withFoo := macroenv.New(map[string]string{"FOO": "1"})
	res := Evaluate(fa, withFoo)
	if _, ok := res.ActiveLines[1]; !ok {
		t.Fatalf("expected line 1 (int a;) active when FOO defined")
	}
	if _, ok := res.ActiveLines[3]; ok {
		t.Fatalf("expected line 3 (int b;) inactive when FOO defined")
	}

	withoutFoo := macroenv.New(nil)
	res2 := Evaluate(fa, withoutFoo)
	if _, ok := res2.ActiveLines[3]; !ok {
		t.Fatalf("expected else-branch active when FOO undefined")
	}
}

func TestElifChain(t *testing.T) {
	src := "#if A\nint a;\n#elif B\nint b;\n#else\nint c;\n#endif\n"
	fa := analyzeString(t, src)

	res := Evaluate(fa, macroenv.New(map[string]string{"B": "1"}))
	if _, ok := res.ActiveLines[3]; !ok {
		t.Fatalf("expected elif branch (int b;) active when B=1 and A undefined")
	}
	if _, ok := res.ActiveLines[1]; ok {
		t.Fatalf("expected #if branch inactive")
	}
	if _, ok := res.ActiveLines[5]; ok {
		t.Fatalf("expected else branch inactive once an earlier branch was taken")
	}
}

func TestDefineUndefPropagation(t *testing.T) {
	src := "#define FOO 1\n#undef FOO\n"
	fa := analyzeString(t, src)
	res := Evaluate(fa, macroenv.New(nil))
	if res.UpdatedMacros.Defined("FOO") {
		t.Fatalf("expected FOO undefined after #undef")
	}
}

func TestExpressionArithmetic(t *testing.T) {
	src := "#if (1 + 2) * 3 == 9\nint ok;\n#endif\n"
	fa := analyzeString(t, src)
	res := Evaluate(fa, macroenv.New(nil))
	if _, ok := res.ActiveLines[1]; !ok {
		t.Fatalf("expected arithmetic #if to evaluate true")
	}
}

func TestExpressionHexAndDefined(t *testing.T) {
	src := "#if defined(FOO) && FOO == 0xFF\nint ok;\n#endif\n"
	fa := analyzeString(t, src)
	res := Evaluate(fa, macroenv.New(map[string]string{"FOO": "0xFF"}))
	if _, ok := res.ActiveLines[1]; !ok {
		t.Fatalf("expected hex comparison to evaluate true")
	}
}

func TestMacroInvariance(t *testing.T) {
	src := "#ifdef FOO\nint a;\n#endif\n"
	fa := analyzeString(t, src)
	if !IsMacroInvariant(fa, macroenv.New(map[string]string{"BAR": "1"})) {
		t.Fatalf("file referencing only FOO must be invariant when env has only BAR")
	}
	if IsMacroInvariant(fa, macroenv.New(map[string]string{"FOO": "1"})) {
		t.Fatalf("file referencing FOO must not be invariant when env defines FOO")
	}
}

func TestMalformedElifDoesNotPanic(t *testing.T) {
	src := "#elif 1\nint a;\n#endif\n"
	fa := analyzeString(t, src)
	_ = Evaluate(fa, macroenv.New(nil))
}
