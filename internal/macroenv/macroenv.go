// Package macroenv models the macro environment a translation unit is
// compiled under: the set of preprocessor symbols defined on the command
// line (-D), implied by the compiler, or accumulated from #define/#undef
// directives while walking an include graph.
//
// Spec DESIGN NOTES describe the environment as "an owned byte buffer plus a
// precomputed hash, with copy-on-write semantics for the common case of one
// file adding a handful of defines to its parent's environment". Go's string
// type already gives immutable, cheaply-shared byte storage, so the owned
// buffer is represented as Go map values (strings), and only the map
// structure itself is copied on write.
package macroenv

import (
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Env is a macro environment: symbol name to its replacement text. A symbol
// may map to the empty string, which is distinct from the symbol being
// absent: the compiler's predefined-macro list stores a valueless entry that
// way, while the evaluator binds a valueless #define FOO to "1".
type Env struct {
	symbols map[string]string
}

// New builds an environment from an initial set of symbols, typically the
// compiler's predefined macros merged with -D command-line flags.
func New(initial map[string]string) *Env {
	e := &Env{symbols: make(map[string]string, len(initial))}
	for k, v := range initial {
		e.symbols[k] = v
	}
	return e
}

// Clone returns an independent copy. Mutating the clone never affects the
// receiver; this is what lets a single parent environment be shared as the
// starting point for every included file's own environment.
func (e *Env) Clone() *Env {
	cp := make(map[string]string, len(e.symbols))
	for k, v := range e.symbols {
		cp[k] = v
	}
	return &Env{symbols: cp}
}

// Defined reports whether name has been #defined (with or without a value).
func (e *Env) Defined(name string) bool {
	_, ok := e.symbols[name]
	return ok
}

// Get returns the replacement text bound to name, and whether it is defined.
func (e *Env) Get(name string) (string, bool) {
	v, ok := e.symbols[name]
	return v, ok
}

// Set defines or redefines name. An empty value still counts as defined.
func (e *Env) Set(name, value string) {
	e.symbols[name] = value
}

// Remove models #undef. Removing an undefined name is a no-op.
func (e *Env) Remove(name string) {
	delete(e.symbols, name)
}

// Len reports how many symbols are currently defined.
func (e *Env) Len() int {
	return len(e.symbols)
}

// Keys returns the currently defined symbol names in unspecified order.
func (e *Env) Keys() []string {
	keys := make([]string, 0, len(e.symbols))
	for k := range e.symbols {
		keys = append(keys, k)
	}
	return keys
}

// Subset returns a new Env containing only the named symbols that are
// actually defined in e. Used by the preprocessing cache to compute the
// variant fingerprint restricted to a file's conditional_macros set, so two
// environments that differ only in symbols the file never inspects still
// hash identically.
func (e *Env) Subset(names []string) *Env {
	cp := make(map[string]string, len(names))
	for _, n := range names {
		if v, ok := e.symbols[n]; ok {
			cp[n] = v
		}
	}
	return &Env{symbols: cp}
}

// Fingerprint returns a 16-hex-digit digest of the environment's full
// (name, value) contents, sorted by name for order independence. spec.md
// §6.5 requires a 16-hex-char macro-state component in artifact names; this
// is computed from the xxhash64 of the sorted "name=value\n" serialization,
// grounded in other projects' use of xxhash for fast non-cryptographic
// fingerprints (see DESIGN.md).
func (e *Env) Fingerprint() string {
	names := e.Keys()
	sort.Strings(names)

	h := xxhash.New()
	for _, n := range names {
		_, _ = h.WriteString(n)
		_, _ = h.WriteString("=")
		_, _ = h.WriteString(e.symbols[n])
		_, _ = h.WriteString("\n")
	}
	return padHex16(h.Sum64())
}

func padHex16(v uint64) string {
	s := strconv.FormatUint(v, 16)
	if len(s) >= 16 {
		return s[len(s)-16:]
	}
	zeros := "0000000000000000"
	return zeros[:16-len(s)] + s
}
