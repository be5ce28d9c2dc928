package evaluator

import (
	"github.com/compiletools/ctdeps/internal/fileanalyzer"
	"github.com/compiletools/ctdeps/internal/macroenv"
)

// frame is one level of the conditional-compilation stack (spec.md §4.2.1).
type frame struct {
	active         bool
	seenElse       bool
	anyBranchTaken bool
}

// Evaluate walks fa's directives in source order under inputEnv and computes
// the resulting ProcessingResult. It never mutates inputEnv; it returns a
// clone with every active #define/#undef applied (spec.md §3.2, §4.2.3).
func Evaluate(fa *fileanalyzer.FileAnalysis, inputEnv *macroenv.Env) *ProcessingResult {
	env := inputEnv.Clone()
	stack := []frame{{active: true}}

	activeLines := make(map[int]struct{})
	cursor := 0

	markLinesActive := func(d *fileanalyzer.Directive, active bool) {
		if active {
			for l := d.LineNum; l <= d.LineNum+d.ContinuationLines; l++ {
				activeLines[l] = struct{}{}
			}
		}
	}

	// fillRange marks every line in [from, to] active, covering ordinary code
	// (and magic-flag comment) lines that sit between directives and never
	// get a markLinesActive call of their own (spec.md §3.3).
	fillRange := func(from, to int, active bool) {
		if !active {
			return
		}
		for l := from; l <= to; l++ {
			activeLines[l] = struct{}{}
		}
	}

	for i := range fa.Directives {
		d := &fa.Directives[i]
		top := stack[len(stack)-1]

		fillRange(cursor, d.LineNum-1, top.active)
		cursor = d.LineNum + d.ContinuationLines + 1

		switch d.Kind {
		case fileanalyzer.DirectiveIfdef:
			taken := top.active && env.Defined(d.MacroName)
			stack = append(stack, frame{active: taken, anyBranchTaken: taken})
			markLinesActive(d, top.active)

		case fileanalyzer.DirectiveIfndef:
			taken := top.active && !env.Defined(d.MacroName)
			stack = append(stack, frame{active: taken, anyBranchTaken: taken})
			markLinesActive(d, top.active)

		case fileanalyzer.DirectiveIf:
			cond, _ := evalCondition(d.Condition, env)
			taken := top.active && cond
			stack = append(stack, frame{active: taken, anyBranchTaken: taken})
			markLinesActive(d, top.active)

		case fileanalyzer.DirectiveElif:
			markLinesActive(d, top.active)
			if len(stack) < 2 {
				// Unbalanced #elif with no enclosing #if; ignore rather than crash.
				continue
			}
			parent := stack[len(stack)-2]
			popped := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !popped.seenElse && !popped.anyBranchTaken {
				cond, _ := evalCondition(d.Condition, env)
				taken := parent.active && cond
				stack = append(stack, frame{active: taken, seenElse: false, anyBranchTaken: popped.anyBranchTaken || taken})
			} else {
				stack = append(stack, frame{active: false, seenElse: popped.seenElse, anyBranchTaken: popped.anyBranchTaken})
			}

		case fileanalyzer.DirectiveElse:
			markLinesActive(d, top.active)
			if len(stack) < 2 {
				continue
			}
			parent := stack[len(stack)-2]
			popped := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			stack = append(stack, frame{active: parent.active && !popped.anyBranchTaken, seenElse: true, anyBranchTaken: popped.anyBranchTaken})

		case fileanalyzer.DirectiveEndif:
			markLinesActive(d, top.active)
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}

		case fileanalyzer.DirectiveDefine:
			markLinesActive(d, top.active)
			if top.active {
				value := d.MacroValue
				if !d.IsFunction && value == "" {
					value = "1"
				}
				env.Set(d.MacroName, value)
			}

		case fileanalyzer.DirectiveUndef:
			markLinesActive(d, top.active)
			if top.active {
				env.Remove(d.MacroName)
			}

		default:
			// #include, #pragma, #error, #warning, #line, and unrecognized
			// directives never alter the stack (spec.md §4.2.1).
			markLinesActive(d, top.active)
		}
	}

	fillRange(cursor, fa.LineCount-1, stack[len(stack)-1].active)

	result := &ProcessingResult{
		ActiveLines:   activeLines,
		UpdatedMacros: env,
	}

	for _, inc := range fa.Includes {
		if _, ok := activeLines[inc.LineNum]; ok && !inc.IsCommented {
			result.ActiveIncludes = append(result.ActiveIncludes, inc)
		}
	}
	for _, mf := range fa.MagicFlags {
		if _, ok := activeLines[mf.LineNum]; ok {
			result.ActiveMagicFlags = append(result.ActiveMagicFlags, mf)
		}
	}
	for _, def := range fa.Defines {
		if _, ok := activeLines[def.LineNum]; ok {
			result.ActiveDefines = append(result.ActiveDefines, def)
		}
	}

	return result
}

// IsMacroInvariant reports whether fa's active-line set is independent of
// env beyond what env's keys intersect fa.ConditionalMacros (spec.md §4.3.1):
// the preprocessing cache uses this to decide between its invariant and
// variant tiers.
func IsMacroInvariant(fa *fileanalyzer.FileAnalysis, env *macroenv.Env) bool {
	for name := range fa.ConditionalMacros {
		if env.Defined(name) {
			return false
		}
	}
	return true
}
