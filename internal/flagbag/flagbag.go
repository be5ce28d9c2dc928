// Package flagbag implements the ordered, pair-aware deduplicating flag
// accumulator spec.md §4.4.3 describes for CPPFLAGS/CFLAGS/CXXFLAGS/LDFLAGS
// and user-defined magic-flag keys: first-seen order is preserved, and a
// flag that takes a separate or attached argument (-I path, -Ipath,
// -isystem path, -L path, -l name, -D macro, -U macro, -F path, -framework
// name) is deduplicated as a single unit rather than token-by-token. The
// exact textual form retained for a deduplicated pair is whichever form was
// seen first (spec.md §8.3 Scenario 6).
package flagbag

import "strings"

// pairedOptions are the recognized option spellings that take an argument,
// either attached ("-Ipath") or as the following token ("-I path").
var pairedOptions = []string{"-isystem", "-framework", "-I", "-L", "-l", "-D", "-U", "-F"}

// entry is one accumulated, already-deduplicated flag occupying one or two
// original tokens.
type entry struct {
	tokens []string
}

// Bag accumulates one flag list, preserving first-seen order and
// deduplicating pair-aware.
type Bag struct {
	entries []entry
	seen    map[string]struct{}
}

// New returns an empty Bag.
func New() *Bag {
	return &Bag{seen: make(map[string]struct{})}
}

// AddTokens appends a sequence of already-tokenized flag arguments (e.g. the
// result of splitting a compiler's -cflags output on whitespace), applying
// pair-aware deduplication across the whole sequence.
func (b *Bag) AddTokens(tokens []string) {
	i := 0
	for i < len(tokens) {
		tok := tokens[i]
		opt, arg, hasAttached, isPair := matchPairedOption(tok)
		if !isPair {
			b.addEntry(dedupKey(tok, ""), []string{tok})
			i++
			continue
		}

		if hasAttached {
			b.addEntry(dedupKey(opt, arg), []string{tok})
			i++
			continue
		}
		if i+1 < len(tokens) {
			b.addEntry(dedupKey(opt, tokens[i+1]), []string{tok, tokens[i+1]})
			i += 2
			continue
		}
		// Option with no argument available; record as-is.
		b.addEntry(dedupKey(tok, ""), []string{tok})
		i++
	}
}

// Add appends a single already-combined flag string (e.g. "-I /opt/x -DFOO"),
// splitting on whitespace and applying the same pair-aware canonicalization
// as AddTokens.
func (b *Bag) Add(flag string) {
	b.AddTokens(strings.Fields(flag))
}

func (b *Bag) addEntry(key string, tokens []string) {
	if _, ok := b.seen[key]; ok {
		return
	}
	b.seen[key] = struct{}{}
	b.entries = append(b.entries, entry{tokens: tokens})
}

// dedupKey collapses "-I a" and "-Ia" (and any attached/separate variant of
// a paired option) onto the same key, so either form suppresses the other.
// For non-paired flags it is simply the flag text itself.
func dedupKey(opt, arg string) string {
	if arg == "" {
		return opt
	}
	return opt + "\x00" + arg
}

// matchPairedOption recognizes option+argument pairs. tok may be a bare
// option ("-I"), an attached form ("-Ia", "-DFOO=1"), or neither.
func matchPairedOption(tok string) (opt, attachedArg string, hasAttached, isPair bool) {
	for _, option := range pairedOptions {
		if tok == option {
			return option, "", false, true
		}
		if strings.HasPrefix(tok, option) && len(tok) > len(option) {
			return option, tok[len(option):], true, true
		}
	}
	return "", "", false, false
}

// List returns the accumulated flags in first-seen order, each entry's
// original token(s) preserved verbatim.
func (b *Bag) List() []string {
	out := make([]string, 0, len(b.entries)*2)
	for _, e := range b.entries {
		out = append(out, e.tokens...)
	}
	return out
}

// Joined returns the accumulated flags as a single space-joined string,
// convenient for passing straight to a compiler invocation.
func (b *Bag) Joined() string {
	return strings.Join(b.List(), " ")
}

// Len reports how many distinct (post-dedup) flags have been accumulated.
func (b *Bag) Len() int {
	return len(b.entries)
}
