package flagbag

import (
	"reflect"
	"testing"
)

func TestScenario6Dedup(t *testing.T) {
	b := New()
	b.AddTokens([]string{"-I", "a", "-Ia", "-I", "b", "-DX", "-DX"})
	got := b.List()
	want := []string{"-I", "a", "-I", "b", "-DX"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestUnrelatedFlagsPreserved(t *testing.T) {
	b := New()
	b.AddTokens([]string{"-Wall", "-O2", "-Wall"})
	got := b.List()
	want := []string{"-Wall", "-O2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestIsystemAndFrameworkPairs(t *testing.T) {
	b := New()
	b.AddTokens([]string{"-isystem", "/opt/x", "-isystem/opt/x", "-framework", "Foo"})
	got := b.List()
	want := []string{"-isystem", "/opt/x", "-framework", "Foo"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestAddSplitsOnWhitespace(t *testing.T) {
	b := New()
	b.Add("-I /opt/include -DFOO=1")
	got := b.List()
	want := []string{"-I", "/opt/include", "-DFOO=1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFirstSeenFormRetained(t *testing.T) {
	b := New()
	b.AddTokens([]string{"-Ia", "-I", "a"})
	got := b.List()
	want := []string{"-Ia"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected attached form retained since seen first, got %v want %v", got, want)
	}
}
