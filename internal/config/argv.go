package config

import (
	"fmt"
	"strings"
)

// hasPrefixOrEqualOption reports whether flagValue is exactly optionName or
// has the form "optionName=...". Ported from the teacher's
// internal/client/options-parser.go, which used the identical check to spot
// a named compiler flag among a raw argv slice.
func hasPrefixOrEqualOption(optionName, flagValue string) bool {
	return flagValue == optionName || strings.HasPrefix(flagValue, fmt.Sprintf("%s=", optionName))
}

// ExtractValueFromArgv finds "--optionName=value" or "--optionName value"
// in argv and returns its value, matching spec.md §6.6's variant selection
// (e.g. "--variant=dbg" on the command line overriding any configured
// default variant).
func ExtractValueFromArgv(optionName string, argv []string) (string, bool) {
	flagName := "--" + optionName
	for i, arg := range argv {
		if !hasPrefixOrEqualOption(flagName, arg) {
			continue
		}
		if value, ok := strings.CutPrefix(arg, flagName+"="); ok {
			return value, true
		}
		if i+1 < len(argv) {
			return argv[i+1], true
		}
		return "", false
	}
	return "", false
}
