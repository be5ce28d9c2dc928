// Package toolrunner invokes the compiler and pkg-config as subprocesses,
// caching each response by its exact command line (spec.md §4.4.3, §5:
// "the tool runner invokes the compiler for its predefined macros or
// pkg-config, each response cached by command"). Grounded in nocc's
// internal/client/includes-collector.go, which shells out to the real
// compiler (`cxx -M`, `cxx -Wp,-v`) and parses its stdout the same way.
package toolrunner

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/compiletools/ctdeps/internal/common"
)

// Runner is the tool-invocation interface the hunter depends on; production
// code uses ExecRunner, tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, argv []string, stdin string) (stdout string, err error)
}

// ExecRunner shells out via os/exec, collapsing identical concurrent
// requests with singleflight and memoizing every response by its exact
// command line for the process lifetime.
type ExecRunner struct {
	group singleflight.Group

	mu    sync.Mutex
	cache map[string]cachedResult
}

type cachedResult struct {
	stdout string
	err    error
}

// NewExecRunner builds a Runner backed by real subprocess invocation.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{cache: make(map[string]cachedResult)}
}

func (r *ExecRunner) cacheKey(argv []string, stdin string) string {
	return strings.Join(argv, "\x1f") + "\x00" + stdin
}

// Run executes argv, feeding stdin if non-empty. Identical (argv, stdin)
// pairs are only ever actually executed once per process: concurrent
// callers collapse onto the same in-flight exec.Cmd via singleflight, and
// later callers hit the memoized result.
func (r *ExecRunner) Run(ctx context.Context, argv []string, stdin string) (string, error) {
	if len(argv) == 0 {
		return "", common.Wrap(common.ErrToolInvocationFailed, "empty argv")
	}
	key := r.cacheKey(argv, stdin)

	r.mu.Lock()
	if cached, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return cached.stdout, cached.err
	}
	r.mu.Unlock()

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		if stdin != "" {
			cmd.Stdin = strings.NewReader(stdin)
		}
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		runErr := cmd.Run()
		if runErr != nil {
			runErr = common.Wrapf(common.ErrToolInvocationFailed, "%s: %v (stderr: %s)",
				strings.Join(argv, " "), runErr, strings.TrimSpace(stderr.String()))
		}

		r.mu.Lock()
		r.cache[key] = cachedResult{stdout: stdout.String(), err: runErr}
		r.mu.Unlock()

		return stdout.String(), runErr
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
