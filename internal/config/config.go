// Package config loads the external key=value argument bag spec.md §6.1 and
// §6.6 place outside the core: Load and Merge turn one or more ".conf" files
// into a flat map. cmd/ctdeps does not import this package; its options come
// only from flags and environment variables (internal/common/cmdenv.go).
package config

import (
	"bufio"
	"os"
	"strings"

	"github.com/compiletools/ctdeps/internal/common"
)

// Load reads a key=value config file. Blank lines and lines whose first
// non-space character is '#' are ignored; everything else must contain an
// '=' splitting the trimmed key from the trimmed value. Later keys in the
// same file overwrite earlier ones, matching how a shell sourcing the same
// assignments twice would behave.
func Load(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, common.Wrapf(err, "opening config file %q", path)
	}
	defer f.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, common.Wrapf(common.ErrMalformedConfigLine, "%s:%d: %q", path, lineNum, line)
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, common.Wrapf(err, "reading config file %q", path)
	}
	return values, nil
}

// Merge overlays override onto base, returning a new map; base is left
// untouched. Used to layer a variant-specific file on top of the user's
// default ct.conf-equivalent.
func Merge(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
