// Package hashregistry provides the external content-hash service the core
// consumes (spec.md §6.2): get_file_hash, get_filepath_by_hash, and
// tracked_files, backed by a git-populated, in-memory, read-mostly map.
package hashregistry

import (
	"bufio"
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/compiletools/ctdeps/internal/common"
)

// gitHashObjectBatchSize bounds how many paths go into a single
// `git hash-object --stdin-paths` invocation, to stay well under typical
// open-fd limits (spec.md §6.2).
const gitHashObjectBatchSize = 512

// Registry is the content-hash lookup service the hunter and file analyzer
// depend on.
type Registry interface {
	GetFileHash(path string) (common.ContentHash, bool)
	// GetFilepathByHash returns every tracked path sharing hash, for
	// diagnostics. Plural because two distinct paths can share identical
	// content; collapsing to one would silently hide that ambiguity.
	GetFilepathByHash(hash common.ContentHash) []string
	TrackedFiles() map[string]common.ContentHash
}

// MemRegistry is a read-mostly, in-memory Registry populated once at
// startup and then only queried. Safe for concurrent reads; Populate must
// complete before any concurrent GetFileHash calls begin.
type MemRegistry struct {
	mu        sync.RWMutex
	byPath    map[string]common.ContentHash
	byHash    map[common.ContentHash][]string
}

// NewMemRegistry returns an empty registry; call PopulateFromGit or Set to
// fill it before use.
func NewMemRegistry() *MemRegistry {
	return &MemRegistry{
		byPath: make(map[string]common.ContentHash),
		byHash: make(map[common.ContentHash][]string),
	}
}

// Set records a single (path, hash) pair; used directly by tests and by
// PopulateFromGit.
func (r *MemRegistry) Set(path string, hash common.ContentHash) {
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.byPath[path]; ok {
		if old == hash {
			return
		}
		paths := r.byHash[old]
		for i, p := range paths {
			if p == path {
				r.byHash[old] = append(paths[:i:i], paths[i+1:]...)
				break
			}
		}
	}
	r.byPath[path] = hash
	r.byHash[hash] = append(r.byHash[hash], path)
}

func (r *MemRegistry) GetFileHash(path string) (common.ContentHash, bool) {
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byPath[path]
	return h, ok
}

func (r *MemRegistry) GetFilepathByHash(hash common.ContentHash) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := r.byHash[hash]
	out := make([]string, len(paths))
	copy(out, paths)
	return out
}

func (r *MemRegistry) TrackedFiles() map[string]common.ContentHash {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]common.ContentHash, len(r.byPath))
	for k, v := range r.byPath {
		out[k] = v
	}
	return out
}

// PopulateFromGit fills the registry for every file `git ls-files` reports
// under repoRoot: tracked files get their staged blob hash from `git
// ls-files --stage`; files `git diff --name-only` reports as modified and
// untracked files from `git ls-files --others --exclude-standard` are
// re-hashed in batches of at most gitHashObjectBatchSize via `git
// hash-object --stdin-paths`, grounded in spec.md §6.2's description of the
// expected registry populator.
func PopulateFromGit(ctx context.Context, repoRoot string) (*MemRegistry, error) {
	reg := NewMemRegistry()

	stageOut, err := runGit(ctx, repoRoot, "ls-files", "--stage")
	if err != nil {
		return nil, common.Wrapf(common.ErrToolInvocationFailed, "git ls-files --stage: %v", err)
	}

	var needsRehash []string
	sc := bufio.NewScanner(strings.NewReader(stageOut))
	for sc.Scan() {
		line := sc.Text()
		// Format: "<mode> <blob-sha> <stage>\t<path>"
		tab := strings.IndexByte(line, '\t')
		if tab < 0 {
			continue
		}
		meta := strings.Fields(line[:tab])
		path := line[tab+1:]
		if len(meta) < 2 {
			needsRehash = append(needsRehash, path)
			continue
		}
		reg.Set(filepath.Join(repoRoot, path), common.ContentHash(meta[1]))
	}

	modifiedOut, err := runGit(ctx, repoRoot, "diff", "--name-only")
	if err == nil {
		sc := bufio.NewScanner(strings.NewReader(modifiedOut))
		for sc.Scan() {
			needsRehash = append(needsRehash, sc.Text())
		}
	}

	untrackedOut, err := runGit(ctx, repoRoot, "ls-files", "--others", "--exclude-standard")
	if err == nil {
		sc := bufio.NewScanner(strings.NewReader(untrackedOut))
		for sc.Scan() {
			needsRehash = append(needsRehash, sc.Text())
		}
	}

	for start := 0; start < len(needsRehash); start += gitHashObjectBatchSize {
		end := start + gitHashObjectBatchSize
		if end > len(needsRehash) {
			end = len(needsRehash)
		}
		batch := needsRehash[start:end]
		if len(batch) == 0 {
			continue
		}
		hashes, err := gitHashObjectStdinPaths(ctx, repoRoot, batch)
		if err != nil {
			return nil, err
		}
		for i, h := range hashes {
			reg.Set(filepath.Join(repoRoot, batch[i]), common.ContentHash(h))
		}
	}

	return reg, nil
}

func gitHashObjectStdinPaths(ctx context.Context, repoRoot string, paths []string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "hash-object", "--stdin-paths")
	cmd.Dir = repoRoot
	cmd.Stdin = strings.NewReader(strings.Join(paths, "\n") + "\n")
	out, err := cmd.Output()
	if err != nil {
		return nil, common.Wrapf(common.ErrToolInvocationFailed, "git hash-object --stdin-paths: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	return lines, nil
}

func runGit(ctx context.Context, repoRoot string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoRoot
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}
