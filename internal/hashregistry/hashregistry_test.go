package hashregistry

import (
	"path/filepath"
	"testing"

	"github.com/compiletools/ctdeps/internal/common"
)

func TestSetAndGetFileHash(t *testing.T) {
	r := NewMemRegistry()
	abs, _ := filepath.Abs("a.cpp")
	r.Set("a.cpp", common.ContentHash("hash1"))

	h, ok := r.GetFileHash(abs)
	if !ok || h != "hash1" {
		t.Fatalf("expected hash1, got %q ok=%v", h, ok)
	}
}

func TestAmbiguousHashReturnsAllPaths(t *testing.T) {
	r := NewMemRegistry()
	r.Set("a.cpp", common.ContentHash("same"))
	r.Set("b.cpp", common.ContentHash("same"))

	paths := r.GetFilepathByHash(common.ContentHash("same"))
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths sharing one content hash, got %v", paths)
	}
}

func TestMissingPathReturnsNotOK(t *testing.T) {
	r := NewMemRegistry()
	_, ok := r.GetFileHash("/never/set.cpp")
	if ok {
		t.Fatalf("expected absent registration to report not-ok")
	}
}

func TestTrackedFilesSnapshot(t *testing.T) {
	r := NewMemRegistry()
	r.Set("a.cpp", common.ContentHash("h1"))
	r.Set("b.cpp", common.ContentHash("h2"))
	tracked := r.TrackedFiles()
	if len(tracked) != 2 {
		t.Fatalf("expected 2 tracked files, got %d", len(tracked))
	}
}
