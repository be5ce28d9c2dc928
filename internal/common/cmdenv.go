// This module provides integration of the flag package with environment
// variables, so `ctdeps -compiler clang++` and `CTDEPS_COMPILER=clang++ ctdeps`
// are equivalent. Ported from nocc's internal/common/cmd-env-flags.go, which
// exists for the identical reason (`nocc-server -log-filename fn.log` vs
// `NOCC_LOG_FILENAME=fn.log nocc-server`).
package common

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type cmdLineArg interface {
	flag.Value
	isFlagSet() bool
	getCmdName() string
	getEnvName() string
	getDescription() string
}

var allCmdLineArgs []cmdLineArg

type cmdLineArgString struct {
	cmdName, envName, usage string
	isSet                   bool
	value                   string
}

func (s *cmdLineArgString) String() string            { return s.value }
func (s *cmdLineArgString) Set(v string) error         { s.isSet = true; s.value = v; return nil }
func (s *cmdLineArgString) getCmdName() string         { return s.cmdName }
func (s *cmdLineArgString) getEnvName() string         { return s.envName }
func (s *cmdLineArgString) getDescription() string     { return s.usage }
func (s *cmdLineArgString) isFlagSet() bool            { return s.isSet }

type cmdLineArgInt struct {
	cmdName, envName, usage string
	isSet                   bool
	value                   int64
}

func (s *cmdLineArgInt) String() string { return strconv.FormatInt(s.value, 10) }
func (s *cmdLineArgInt) Set(v string) error {
	n, err := strconv.ParseInt(v, 10, 0)
	if err != nil {
		return err
	}
	s.isSet, s.value = true, n
	return nil
}
func (s *cmdLineArgInt) getCmdName() string     { return s.cmdName }
func (s *cmdLineArgInt) getEnvName() string     { return s.envName }
func (s *cmdLineArgInt) getDescription() string { return s.usage }
func (s *cmdLineArgInt) isFlagSet() bool        { return s.isSet }

type cmdLineArgBool struct {
	cmdName, envName, usage string
	isSet                   bool
	value                   bool
}

func (s *cmdLineArgBool) String() string { return strconv.FormatBool(s.value) }
func (s *cmdLineArgBool) Set(v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	s.isSet, s.value = true, b
	return nil
}
func (s *cmdLineArgBool) IsBoolFlag() bool      { return true }
func (s *cmdLineArgBool) getCmdName() string    { return s.cmdName }
func (s *cmdLineArgBool) getEnvName() string    { return s.envName }
func (s *cmdLineArgBool) getDescription() string { return s.usage }
func (s *cmdLineArgBool) isFlagSet() bool       { return s.isSet }

// cmdLineArgRepeatable backs repeatable options like -I (spec.md §6.1);
// each -I is appended rather than overwriting the previous value.
type cmdLineArgRepeatable struct {
	cmdName, envName, usage string
	isSet                   bool
	values                  []string
}

func (s *cmdLineArgRepeatable) String() string { return strings.Join(s.values, ",") }
func (s *cmdLineArgRepeatable) Set(v string) error {
	s.isSet = true
	s.values = append(s.values, v)
	return nil
}
func (s *cmdLineArgRepeatable) getCmdName() string     { return s.cmdName }
func (s *cmdLineArgRepeatable) getEnvName() string     { return s.envName }
func (s *cmdLineArgRepeatable) getDescription() string { return s.usage }
func (s *cmdLineArgRepeatable) isFlagSet() bool        { return s.isSet }

func initCmdFlag(s cmdLineArg, cmdName string, usage string) {
	if cmdName != "" {
		flag.Var(s, cmdName, usage)
	}
}

func customPrintUsage() {
	fmt.Printf("Usage of %s:\n\n", os.Args[0])
	for _, f := range allCmdLineArgs {
		if f.getCmdName() != "" {
			fmt.Printf("  -%s\n", f.getCmdName())
		}
		if f.getEnvName() != "" {
			fmt.Printf("  %s=\n", f.getEnvName())
		}
		fmt.Print("    \t")
		fmt.Print(strings.ReplaceAll(f.getDescription(), "\n", "\n    \t"))
		fmt.Print("\n\n")
	}
}

func CmdEnvString(usage string, defaultValue string, cmdFlagName string, envName string) *string {
	sf := &cmdLineArgString{cmdFlagName, envName, usage, false, defaultValue}
	allCmdLineArgs = append(allCmdLineArgs, sf)
	initCmdFlag(sf, cmdFlagName, usage)
	return &sf.value
}

func CmdEnvInt(usage string, defaultValue int64, cmdFlagName string, envName string) *int64 {
	sf := &cmdLineArgInt{cmdFlagName, envName, usage, false, defaultValue}
	allCmdLineArgs = append(allCmdLineArgs, sf)
	initCmdFlag(sf, cmdFlagName, usage)
	return &sf.value
}

func CmdEnvBool(usage string, defaultValue bool, cmdFlagName string, envName string) *bool {
	sf := &cmdLineArgBool{cmdFlagName, envName, usage, false, defaultValue}
	allCmdLineArgs = append(allCmdLineArgs, sf)
	initCmdFlag(sf, cmdFlagName, usage)
	return &sf.value
}

func CmdEnvRepeatable(usage string, cmdFlagName string, envName string) *[]string {
	sf := &cmdLineArgRepeatable{cmdName: cmdFlagName, envName: envName, usage: usage}
	allCmdLineArgs = append(allCmdLineArgs, sf)
	initCmdFlag(sf, cmdFlagName, usage)
	return &sf.values
}

// ParseCmdFlagsCombiningWithEnv parses os.Args, then for every flag not set
// on the command line, overrides it from its environment variable if present.
func ParseCmdFlagsCombiningWithEnv() {
	flag.Usage = customPrintUsage
	flag.Parse()
	for _, f := range allCmdLineArgs {
		if !f.isFlagSet() && f.getEnvName() != "" {
			if envVal := os.Getenv(f.getEnvName()); envVal != "" {
				if err := f.Set(envVal); err != nil {
					fmt.Printf("error parsing %s env var: %v\n", f.getEnvName(), err)
					flag.Usage()
					os.Exit(2)
				}
			}
		}
	}
}

// RemainingCmdArgs returns the positional arguments left after flag parsing
// (e.g. the translation unit paths on ctdeps's command line). Must be called
// after ParseCmdFlagsCombiningWithEnv.
func RemainingCmdArgs() []string {
	return flag.Args()
}
