// Package common holds ambient concerns shared by every core package:
// logging, error taxonomy, filesystem helpers and command-line/env wiring.
package common

import "github.com/pkg/errors"

// Sentinel error kinds, tested with errors.Is (see Is below), which unwraps
// pkg/errors wrappers directly.
// See spec.md §7 for the fatal/non-fatal policy attached to each kind.
var (
	// ErrFileMissing is raised by the file analyzer when the path it was asked
	// to analyze does not exist. Fatal for the translation unit that triggered it.
	ErrFileMissing = errors.New("file missing")

	// ErrHashRegistryMiss means the content-hash registry has no entry for a
	// path the core needed. Always fatal: it indicates the startup file
	// enumeration did not cover this path.
	ErrHashRegistryMiss = errors.New("content hash registry miss")

	// ErrMagicFlagSourceMissing is raised when a //#SOURCE=... magic flag
	// names a companion source file that does not resolve to an existing file.
	ErrMagicFlagSourceMissing = errors.New("magic flag SOURCE target missing")

	// ErrToolInvocationFailed wraps a failed compiler/pkg-config subprocess call.
	ErrToolInvocationFailed = errors.New("tool invocation failed")

	// ErrExpressionEvaluationFailed marks a #if/#elif expression the evaluator
	// could not compute. Non-fatal: callers must treat the branch as false.
	ErrExpressionEvaluationFailed = errors.New("expression evaluation failed")

	// ErrUnresolvedInclude marks an #include that could not be resolved to an
	// existing file along the current search path. Non-fatal: the include is
	// dropped from the dependency set.
	ErrUnresolvedInclude = errors.New("unresolved include")

	// ErrConvergenceExceeded marks a dependency-hunter run that hit its
	// iteration bound without reaching a fixed point. Non-fatal: the last
	// iteration's result is still returned.
	ErrConvergenceExceeded = errors.New("hunter convergence bound exceeded")

	// ErrMalformedConfigLine marks a config file line with no '=' separator.
	ErrMalformedConfigLine = errors.New("malformed config line")
)

// Wrap attaches file/directive/command context to one of the sentinel errors
// above without losing errors.Is/errors.Cause compatibility.
func Wrap(sentinel error, context string) error {
	return errors.Wrap(sentinel, context)
}

// Wrapf is Wrap with fmt-style formatting of the context.
func Wrapf(sentinel error, format string, args ...interface{}) error {
	return errors.Wrapf(sentinel, format, args...)
}

// Is reports whether err resolves (through any number of pkg/errors wraps) to sentinel.
func Is(err, sentinel error) bool {
	return errors.Is(err, sentinel)
}
