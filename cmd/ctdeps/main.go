// Command ctdeps is a thin driver around the dependency hunter core: for
// each translation unit given on the command line, it prints the header
// dependency closure, the required companion source files, and the
// accumulated flag bags (spec.md §4.4.5), and optionally writes a Makefile
// dependency fragment.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/compiletools/ctdeps/internal/cache"
	"github.com/compiletools/ctdeps/internal/common"
	"github.com/compiletools/ctdeps/internal/depfile"
	"github.com/compiletools/ctdeps/internal/fileanalyzer"
	"github.com/compiletools/ctdeps/internal/hashregistry"
	"github.com/compiletools/ctdeps/internal/hunter"
	"github.com/compiletools/ctdeps/internal/toolrunner"
)

func failedStart(err interface{}) {
	_, _ = fmt.Fprintln(os.Stderr, "[ctdeps]", err)
	os.Exit(1)
}

func main() {
	showVersionAndExit := common.CmdEnvBool("Show version and exit.", false,
		"version", "")
	logFileName := common.CmdEnvString("A filename to log to, stderr by default.", "stderr",
		"", "CTDEPS_LOG_FILENAME")
	logVerbosity := common.CmdEnvInt("Logger verbosity level (0-9).", 0,
		"", "CTDEPS_LOG_VERBOSITY")
	compiler := common.CmdEnvString("Compiler invoked to discover predefined macros (e.g. g++).", "g++",
		"compiler", "CTDEPS_COMPILER")
	convergenceBound := common.CmdEnvInt("Maximum fixed-point iterations per translation unit.", 5,
		"", "CTDEPS_CONVERGENCE_BOUND")
	repoRoot := common.CmdEnvString("Git repository root the content-hash registry is populated from.", ".",
		"repo-root", "CTDEPS_REPO_ROOT")
	includeQuote := common.CmdEnvRepeatable("Quote (\"\") include search directory; repeatable.",
		"I", "CTDEPS_INCLUDE")
	includeSystem := common.CmdEnvRepeatable("System (<>) include search directory; repeatable.",
		"isystem", "CTDEPS_ISYSTEM")
	makefileOut := common.CmdEnvString("Write a Makefile dependency fragment to this path; empty disables it.", "",
		"makefile-out", "CTDEPS_MAKEFILE_OUT")

	common.ParseCmdFlagsCombiningWithEnv()

	if *showVersionAndExit {
		fmt.Println(common.GetVersion())
		os.Exit(0)
	}

	tuPaths := common.RemainingCmdArgs()
	if len(tuPaths) == 0 {
		failedStart("invalid usage: at least one translation unit expected; example: 'ctdeps -I include main.cpp'")
	}

	logger, err := common.MakeLogger(*logFileName, int(*logVerbosity), *logFileName != "stderr")
	if err != nil {
		failedStart(err)
	}

	ctx := context.Background()

	registry, err := hashregistry.PopulateFromGit(ctx, *repoRoot)
	if err != nil {
		failedStart(err)
	}

	session, err := hunter.NewSession(ctx, hunter.Config{
		Analyzer: fileanalyzer.NewAnalyzer(fileanalyzer.StrategyAuto, 0),
		Cache:    cache.New(),
		Registry: registry,
		Runner:   toolrunner.NewExecRunner(),
		Logger:   logger,
		Compiler: *compiler,
		IncludeDirs: hunter.IncludeDirs{
			Quote:  *includeQuote,
			System: *includeSystem,
		},
		ConvergenceBound: int(*convergenceBound),
	})
	if err != nil {
		failedStart(err)
	}

	// Each translation unit gets its own walker state (internal/hunter's
	// Session is built to be shared this way: the analyzer and
	// preprocessing caches it owns are mutex-guarded, and nothing else is
	// mutated per-TU), so they resolve concurrently, one shard per TU.
	results := make([]*hunter.Result, len(tuPaths))
	g, gctx := errgroup.WithContext(ctx)
	for i, tu := range tuPaths {
		i, tu := i, tu
		g.Go(func() error {
			result, err := session.Resolve(gctx, tu)
			if err != nil {
				logger.Error("resolving", tu, ":", err)
				return nil
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	exitCode := 0
	var depFile *depfile.File
	if *makefileOut != "" {
		depFile = &depfile.File{}
	}
	for i, result := range results {
		if result == nil {
			exitCode = 1
			continue
		}
		printResult(result)
		if depFile != nil {
			depFile.Targets = append(depFile.Targets, depfileTarget(tuPaths[i], result))
		}
	}

	if depFile != nil {
		if err := depFile.WriteToFile(*makefileOut); err != nil {
			logger.Error("writing makefile fragment:", err)
			exitCode = 1
		}
	}

	os.Exit(exitCode)
}

func depfileTarget(tu string, result *hunter.Result) depfile.Target {
	return depfile.Target{
		Name:    common.ReplaceFileExt(tu, ".o"),
		DepList: result.HeaderDependencies(),
	}
}

func printResult(result *hunter.Result) {
	fmt.Println("# " + result.TUPath)

	deps := append([]string(nil), result.HeaderDependencies()...)
	sort.Strings(deps)
	fmt.Println("header_dependencies:")
	for _, d := range deps {
		fmt.Println("  " + d)
	}

	fmt.Println("required_source_files:")
	for _, s := range result.RequiredSourceFiles() {
		fmt.Println("  " + s)
	}

	fmt.Println("magic_flags:")
	flags := result.MagicFlags()
	keys := make([]string, 0, len(flags))
	for k := range flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s: %v\n", k, flags[k])
	}

	if result.ConvergenceFailed {
		fmt.Printf("  (warning: did not converge within %d iterations)\n", result.ConvergedAt)
	}
}
