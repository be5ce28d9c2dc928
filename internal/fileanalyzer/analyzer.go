package fileanalyzer

import (
	"sync"

	"github.com/compiletools/ctdeps/internal/common"
)

// Analyzer memoizes FileAnalysis by content hash for the process lifetime,
// per spec.md §4.1 ("Exactly one analysis per distinct content_hash per
// process"). Grounded in nocc's includes-cache.go, which guards a
// process-local map the same way.
type Analyzer struct {
	mu       sync.Mutex
	byHash   map[common.ContentHash]*FileAnalysis
	strategy ReadStrategy
	maxRead  int64
}

// NewAnalyzer builds an Analyzer. strategy overrides the auto-selected
// reading strategy when not StrategyAuto; maxReadSize caps how many bytes of
// a file are read (0 means unbounded).
func NewAnalyzer(strategy ReadStrategy, maxReadSize int64) *Analyzer {
	resolved := strategy
	if resolved == StrategyAuto {
		resolved = SelectStrategy()
	}
	return &Analyzer{
		byHash:   make(map[common.ContentHash]*FileAnalysis),
		strategy: resolved,
		maxRead:  maxReadSize,
	}
}

// Analyze returns the FileAnalysis for path, whose bytes are already known to
// hash to contentHash (supplied by the external content-hash registry, per
// spec.md §6.2 — the analyzer never computes its own hash of file bytes, to
// stay consistent with whatever hash the registry uses to key the rest of
// the pipeline). Memoized by contentHash: a second call with the same hash
// never re-reads the file.
func (a *Analyzer) Analyze(path string, contentHash common.ContentHash) (*FileAnalysis, error) {
	a.mu.Lock()
	if fa, ok := a.byHash[contentHash]; ok {
		a.mu.Unlock()
		return fa, nil
	}
	a.mu.Unlock()

	data, truncated, err := readFileBytes(path, a.strategy, a.maxRead)
	if err != nil {
		return nil, err
	}

	fa := scan(data)
	fa.ContentHash = contentHash
	fa.WasTruncated = truncated

	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.byHash[contentHash]; ok {
		// Another goroutine won the race; discard our copy and return theirs so
		// every caller observes the same *FileAnalysis for a given content hash.
		return existing, nil
	}
	a.byHash[contentHash] = fa
	return fa, nil
}

// ClearCaches drops all memoized analyses. Spec.md §4.4's "Resource
// ownership" note requires clearing the file-analysis cache to be reachable
// alongside clearing the preprocessing cache, since the latter's results
// depend on the former.
func (a *Analyzer) ClearCaches() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.byHash = make(map[common.ContentHash]*FileAnalysis)
}

// Len reports how many distinct content hashes have been analyzed so far.
func (a *Analyzer) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.byHash)
}
