// Package depfile parses and writes Makefile-style ".o.d" dependency
// files, used only by cmd/ctdeps's thin Makefile-fragment emitter (spec.md
// §6.4's "consumed by the makefile emitter, out of scope" framing) — never
// by the core hunter itself. Ported from VKCOM-nocc's
// internal/client/dep-files.go, which parses the same format for its own
// incremental-build bookkeeping.
package depfile

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/compiletools/ctdeps/internal/common"
)

// Target is one "target: dep dep dep" line, deps separated by spaces or
// backslash-newline continuations.
type Target struct {
	Name    string
	DepList []string
}

// File represents a .o.d file, parsed or about to be generated.
type File struct {
	Targets []Target
}

// FromHunterResult builds a single-target File the way cmd/ctdeps emits one
// per translation unit: objectPath depends on every header realpath the
// dependency hunter discovered for it.
func FromHunterResult(objectPath string, headerDeps []string) *File {
	return &File{Targets: []Target{{Name: objectPath, DepList: headerDeps}}}
}

// FindDepListByTargetName returns the dependency list for a named target, or
// nil if no such target is present.
func (f *File) FindDepListByTargetName(targetName string) []string {
	for _, t := range f.Targets {
		if t.Name == targetName {
			return t.DepList
		}
	}
	return nil
}

// FromBytes parses the contents of a .o.d file.
func FromBytes(contents []byte) (*File, error) {
	f := &File{Targets: make([]Target, 0, 1)}
	return f, f.parse(string(contents))
}

// FromFile reads and parses a .o.d file from disk.
func FromFile(path string) (*File, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromBytes(buf)
}

// WriteToBytes renders f in .o.d format.
func (f *File) WriteToBytes() []byte {
	var b bytes.Buffer
	for _, t := range f.Targets {
		if b.Len() > 0 {
			b.WriteRune('\n')
		}
		fmt.Fprintf(&b, "%s:", t.Name)
		if len(t.DepList) > 0 {
			fmt.Fprintf(&b, " %s", escapeSpaces(t.DepList[0]))
			for _, dep := range t.DepList[1:] {
				fmt.Fprintf(&b, " \\\n  %s", escapeSpaces(dep))
			}
		}
		b.WriteRune('\n')
	}
	return b.Bytes()
}

// WriteToFile renders f and writes it to path atomically: the contents land
// in a sibling temp file first, then get renamed into place, so a reader
// never observes a partially written fragment.
func (f *File) WriteToFile(path string) error {
	if err := common.MkdirForFile(path); err != nil {
		return common.Wrapf(err, "creating directory for %q", path)
	}

	tmp, err := common.OpenTempFile(path)
	if err != nil {
		return common.Wrapf(err, "opening temp file for %q", path)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(f.WriteToBytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return common.Wrapf(err, "writing %q", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return common.Wrapf(err, "closing %q", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return common.Wrapf(err, "renaming %q to %q", tmpName, path)
	}
	return nil
}

func (f *File) skipSpaces(c string, start int) int {
	i := start
	for i < len(c) && unicode.IsSpace(rune(c[i])) {
		i++
	}
	return i
}

// parseTargetName reads "targetName:" starting at start.
func (f *File) parseTargetName(c string, start int) (name string, offset int, err error) {
	offset = start
	for offset < len(c) {
		switch {
		case c[offset] == ':':
			offset++
			return escapeSpaces(name), offset, nil
		case c[offset] == '\n':
			return "", offset, fmt.Errorf("':' expected after %s", c[start:offset])
		case c[offset] == '\\':
			if offset+1 < len(c) && c[offset+1] != '\n' {
				name += c[offset+1 : offset+2]
			}
			offset += 2
		case c[offset] == ' ':
			if !strings.HasSuffix(name, " ") {
				name += " "
			}
			offset++
		default:
			name += c[offset : offset+1]
			offset++
		}
	}
	return "", offset, fmt.Errorf("':' expected after %s", c[start:offset])
}

// parseNextDep reads the next dependency item (until space or newline);
// returns an empty item when the list ends.
func (f *File) parseNextDep(c string, start int) (dep string, offset int, err error) {
	offset = start
	for offset < len(c) {
		if c[offset] == ' ' {
			offset++
		} else if c[offset] == '\\' && offset+1 < len(c) {
			offset += 2
		} else {
			break
		}
	}
	if offset >= len(c) {
		return "", offset, nil
	}
	if c[offset] == '\n' {
		return "", offset + 1, nil
	}

	for offset < len(c) {
		if c[offset] == ' ' || c[offset] == '\n' {
			break
		} else if c[offset] == '\\' && offset+1 < len(c) {
			dep += c[offset+1 : offset+2]
			offset += 2
		} else {
			dep += c[offset : offset+1]
			offset++
		}
	}
	return dep, offset, nil
}

func (f *File) parse(c string) error {
	offset := 0
	for {
		offset = f.skipSpaces(c, offset)
		if offset >= len(c) {
			break
		}
		name, next, err := f.parseTargetName(c, offset)
		if err != nil {
			return err
		}
		offset = next

		var deps []string
		for {
			dep, next, err := f.parseNextDep(c, offset)
			if err != nil {
				return err
			}
			offset = next
			if dep == "" {
				break
			}
			deps = append(deps, dep)
		}
		f.Targets = append(f.Targets, Target{Name: name, DepList: deps})
	}
	return nil
}

// escapeSpaces backslash-escapes spaces, colons and embedded newlines, the
// characters a Makefile dependency line cannot contain literally.
func escapeSpaces(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\\n")
	s = strings.ReplaceAll(s, " ", "\\ ")
	s = strings.ReplaceAll(s, ":", "\\:")
	return s
}
