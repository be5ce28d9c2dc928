// Package cache memoizes evaluator.Evaluate across a process, exploiting
// the observation (spec.md §4.3) that most files' active-line sets depend
// only on content_hash, not on the full macro environment. Grounded in
// nocc's internal/client/includes-cache.go, which keeps a similarly
// mutex-guarded two-tier process cache (memory vs on-disk) for include
// resolution; here the two tiers are invariant vs variant rather than
// memory vs disk, per spec.md's own cache design.
package cache

import (
	"sync"

	"github.com/compiletools/ctdeps/internal/common"
	"github.com/compiletools/ctdeps/internal/evaluator"
	"github.com/compiletools/ctdeps/internal/fileanalyzer"
	"github.com/compiletools/ctdeps/internal/macroenv"
)

// Stats exposes cache diagnostics (spec.md §4.3.3).
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int64
	Bytes   int64
}

// HitRate returns Hits/(Hits+Misses), or 0 when nothing has been requested yet.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is the preprocessing cache: get_or_compute(file_analysis, input_env)
// from spec.md §4.3.3, backed by an invariant tier (content_hash alone) and
// a variant tier (content_hash, frozen macro set).
type Cache struct {
	mu        sync.Mutex
	invariant map[common.ContentHash]*evaluator.ProcessingResult
	variant   map[variantKey]*evaluator.ProcessingResult
	stats     Stats
}

type variantKey struct {
	hash        common.ContentHash
	fingerprint string
}

// New builds an empty preprocessing cache.
func New() *Cache {
	return &Cache{
		invariant: make(map[common.ContentHash]*evaluator.ProcessingResult),
		variant:   make(map[variantKey]*evaluator.ProcessingResult),
	}
}

// GetOrCompute returns the ProcessingResult for (fa, inputEnv), computing and
// memoizing it on a miss. When fa is macro-invariant for inputEnv (spec.md
// §4.3.1), the result is stored once under content_hash alone and reused
// regardless of which other keys inputEnv carries; otherwise it is keyed by
// the full (content_hash, frozen macro set) pair.
//
// The returned result's UpdatedMacros must be propagated into any subsequent
// call in a dependency chain, never the original inputEnv (spec.md §4.3.3) —
// this holds for both cache hits and misses, since a hit still reflects the
// directives that were active under the cached computation.
func (c *Cache) GetOrCompute(fa *fileanalyzer.FileAnalysis, inputEnv *macroenv.Env) *evaluator.ProcessingResult {
	invariant := evaluator.IsMacroInvariant(fa, inputEnv)

	if invariant {
		c.mu.Lock()
		if res, ok := c.invariant[fa.ContentHash]; ok {
			c.stats.Hits++
			c.mu.Unlock()
			return res
		}
		c.mu.Unlock()
	} else {
		key := variantKey{hash: fa.ContentHash, fingerprint: relevantFingerprint(fa, inputEnv)}
		c.mu.Lock()
		if res, ok := c.variant[key]; ok {
			c.stats.Hits++
			c.mu.Unlock()
			return res
		}
		c.mu.Unlock()
	}

	res := evaluator.Evaluate(fa, inputEnv)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Misses++
	c.stats.Entries++
	if invariant {
		c.invariant[fa.ContentHash] = res
	} else {
		key := variantKey{hash: fa.ContentHash, fingerprint: relevantFingerprint(fa, inputEnv)}
		c.variant[key] = res
	}
	return res
}

// relevantFingerprint restricts inputEnv to the symbols fa actually inspects
// in a conditional before fingerprinting it, so two environments differing
// only in macros fa never looks at still produce the same variant key
// (spec.md §4.3.1's point of the invariant/variant split in the first
// place — most files only ever test a handful of names).
func relevantFingerprint(fa *fileanalyzer.FileAnalysis, inputEnv *macroenv.Env) string {
	names := make([]string, 0, len(fa.ConditionalMacros))
	for n := range fa.ConditionalMacros {
		names = append(names, n)
	}
	return inputEnv.Subset(names).Fingerprint()
}

// Stats returns a snapshot of the cache's diagnostic counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Reset zeroes the diagnostic counters without discarding cached entries.
// Supplements the ported design with a way to measure hit rate over a
// specific window (e.g. one build invocation) without a full cache flush.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = Stats{}
}

// ClearCaches drops every memoized ProcessingResult. Per spec.md §4.4,
// clearing the preprocessing cache must also invalidate the file-analysis
// cache, since these results are computed from a FileAnalysis; callers own
// an *fileanalyzer.Analyzer alongside this Cache and must clear both
// together (see hunter.Session.ClearCaches).
func (c *Cache) ClearCaches() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invariant = make(map[common.ContentHash]*evaluator.ProcessingResult)
	c.variant = make(map[variantKey]*evaluator.ProcessingResult)
	c.stats = Stats{}
}

// InvalidateContentHash drops every cached entry (invariant or variant) for
// a single content hash, without disturbing entries for any other file.
// Useful when a single file's content is known to have changed (e.g. a
// long-running daemon watching the filesystem) and a full ClearCaches would
// discard unrelated, still-valid work.
func (c *Cache) InvalidateContentHash(hash common.ContentHash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.invariant[hash]; ok {
		delete(c.invariant, hash)
		c.stats.Entries--
	}
	for k := range c.variant {
		if k.hash == hash {
			delete(c.variant, k)
			c.stats.Entries--
		}
	}
}
