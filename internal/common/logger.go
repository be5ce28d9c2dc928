package common

import (
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/term"
)

// LoggerWrapper gates diagnostic output by a 0-9 verbosity level, as spec.md
// §6.1's `verbose` argument-bag option requires. Ported from nocc's
// internal/common/logger.go; widened from nocc's own -1..2 range to 0-9 and
// given a Trace tier for the "logged under high verbosity" anomalies spec.md
// §7 calls for; the hunter logs unresolved includes through it.
type LoggerWrapper struct {
	impl              *log.Logger
	fileName          string
	verbosity         int
	duplicateToStderr bool
	stderrIsTTY       bool
}

// MakeLogger builds a logger writing to logFile (or stderr if logFile is
// empty or "stderr"). verbosity must be in [0,9].
func MakeLogger(logFile string, verbosity int, duplicateToStderr bool) (*LoggerWrapper, error) {
	var out *os.File

	if logFile != "" && logFile != "stderr" {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			return nil, Wrapf(err, "opening log file %q", logFile)
		}
		out = f
	} else {
		out = os.Stderr
	}

	if verbosity < 0 || verbosity > 9 {
		return nil, fmt.Errorf("verbosity must be in [0,9], got %d", verbosity)
	}

	return &LoggerWrapper{
		impl:              log.New(out, "", 0),
		fileName:          logFile,
		verbosity:         verbosity,
		duplicateToStderr: duplicateToStderr,
		stderrIsTTY:       term.IsTerminal(int(os.Stderr.Fd())),
	}, nil
}

func (logger *LoggerWrapper) formatStr(prefix string, v ...interface{}) string {
	// An interactive terminal session doesn't need a timestamp on every line;
	// a log file or piped output does, so it can be correlated later.
	if logger.stderrIsTTY && (logger.fileName == "" || logger.fileName == "stderr") {
		return fmt.Sprintf("%s %s", prefix, fmt.Sprintln(v...))
	}
	return fmt.Sprintf("%s %s %s", time.Now().Format("2006-01-02 15:04:05"), prefix, fmt.Sprintln(v...))
}

// Info writes v if the logger's verbosity is at least the given level.
func (logger *LoggerWrapper) Info(verbosity int, v ...interface{}) {
	if logger.verbosity >= verbosity {
		_ = logger.impl.Output(0, logger.formatStr("INFO", v...))
	}
}

// Trace writes v only at the highest verbosity tier (9); used for the
// non-fatal anomalies spec.md §7 says must be "logged under high verbosity".
func (logger *LoggerWrapper) Trace(v ...interface{}) {
	logger.Info(9, append([]interface{}{"TRACE"}, v...)...)
}

// Error always writes v, and additionally echoes to stderr if configured to
// and the log destination isn't already stderr.
func (logger *LoggerWrapper) Error(v ...interface{}) {
	_ = logger.impl.Output(0, logger.formatStr("ERROR", v...))
	if logger.duplicateToStderr && logger.fileName != "" && logger.fileName != "stderr" {
		_, _ = fmt.Fprint(os.Stderr, logger.formatStr("[ctdeps]", v...))
	}
}

func (logger *LoggerWrapper) GetFileName() string {
	return logger.fileName
}
