package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadKeyValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ct.conf")
	contents := "# a comment\nCXX=g++\n\nCXXFLAGS = -O2 -Wall\n"
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	values, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if values["CXX"] != "g++" {
		t.Fatalf("got CXX=%q", values["CXX"])
	}
	if values["CXXFLAGS"] != "-O2 -Wall" {
		t.Fatalf("got CXXFLAGS=%q", values["CXXFLAGS"])
	}
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.conf")
	if err := os.WriteFile(path, []byte("not-a-kv-pair\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a line with no '='")
	}
}

func TestMerge(t *testing.T) {
	base := map[string]string{"A": "1", "B": "2"}
	override := map[string]string{"B": "3", "C": "4"}
	merged := Merge(base, override)
	if merged["A"] != "1" || merged["B"] != "3" || merged["C"] != "4" {
		t.Fatalf("unexpected merge result: %v", merged)
	}
	if base["B"] != "2" {
		t.Fatal("Merge must not mutate base")
	}
}

func TestExtractValueFromArgv(t *testing.T) {
	argv := []string{"/usr/bin/ctdeps", "--variant=abc.123", "-a", "-b"}
	v, ok := ExtractValueFromArgv("variant", argv)
	if !ok || v != "abc.123" {
		t.Fatalf("got (%q, %v)", v, ok)
	}

	argv2 := []string{"/usr/bin/ctdeps", "--variant", "dbg", "-a"}
	v2, ok2 := ExtractValueFromArgv("variant", argv2)
	if !ok2 || v2 != "dbg" {
		t.Fatalf("got (%q, %v)", v2, ok2)
	}

	if _, ok3 := ExtractValueFromArgv("missing", argv); ok3 {
		t.Fatal("expected not found")
	}
}

func TestFindVariantFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "confdir")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "dbg.conf"), []byte("CXX=g++\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	found, err := FindVariantFiles([]string{sub}, "dbg")
	if err != nil {
		t.Fatalf("FindVariantFiles: %v", err)
	}
	if len(found) != 1 || filepath.Base(found[0]) != "dbg.conf" {
		t.Fatalf("got %v", found)
	}

	none, err := FindVariantFiles([]string{sub}, "release")
	if err != nil {
		t.Fatalf("FindVariantFiles: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no matches, got %v", none)
	}
}
