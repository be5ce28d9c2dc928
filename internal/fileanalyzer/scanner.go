package fileanalyzer

import (
	"strings"
)

// reservedConditionIdents are never treated as macro references when
// extracting conditional_macros from #if/#elif expressions (spec.md §3.1).
var reservedConditionIdents = map[string]struct{}{
	"and": {}, "or": {}, "not": {}, "true": {}, "false": {}, "defined": {},
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func isIdentCont(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

func isSpaceOrTab(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r'
}

// scan performs the full byte-level analysis described in spec.md §4.1.2 and
// returns a populated FileAnalysis (content hash and truncation flag filled
// in by the caller).
func scan(data []byte) *FileAnalysis {
	fa := &FileAnalysis{
		DirectiveByLine:    make(map[int]*Directive),
		DirectivePositions: make(map[DirectiveKind][]int),
		SystemHeaders:      make(map[string]struct{}),
		QuotedHeaders:      make(map[string]struct{}),
		ConditionalMacros:  make(map[string]struct{}),
	}

	fa.LineByteOffsets = computeLineOffsets(data)
	fa.LineCount = len(fa.LineByteOffsets)

	scanDirectives(data, fa)
	scanIncludes(data, fa)
	scanMagicFlags(data, fa)
	detectIncludeGuard(fa)
	extractConditionalMacros(fa)
	populateHeaderSets(fa)

	return fa
}

// computeLineOffsets returns the byte offset at which each line begins.
// line_byte_offsets[0] is always 0, even for an empty file (spec.md: "Empty
// file: ... line_count == 1, line_byte_offsets == [0]").
func computeLineOffsets(data []byte) []int {
	offsets := []int{0}
	for i, b := range data {
		if b == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// lineStart returns the byte offset of the start of the line containing pos.
func lineStart(data []byte, pos int) int {
	for i := pos - 1; i >= 0; i-- {
		if data[i] == '\n' {
			return i + 1
		}
	}
	return 0
}

// lineEnd returns the byte offset one past the last byte of the line
// containing pos (the position of the '\n', or len(data)).
func lineEnd(data []byte, pos int) int {
	for i := pos; i < len(data); i++ {
		if data[i] == '\n' {
			return i
		}
	}
	return len(data)
}

// isInsideLineComment reports whether pos falls after a `//` on its own
// physical line (scanning back to line start, spec.md step 2).
func isInsideLineComment(data []byte, pos int) bool {
	start := lineStart(data, pos)
	inString := byte(0)
	for i := start; i < pos; i++ {
		if inString != 0 {
			if data[i] == '\\' {
				i++
				continue
			}
			if data[i] == inString {
				inString = 0
			}
			continue
		}
		if data[i] == '"' || data[i] == '\'' {
			inString = data[i]
			continue
		}
		if i+1 < len(data) && data[i] == '/' && data[i+1] == '/' {
			return true
		}
	}
	return false
}

// isInsideBlockComment reports whether pos lies inside an unterminated
// `/* ... */` block comment by comparing the most recent /* and */ markers
// before pos (spec.md step 2/3).
func isInsideBlockComment(data []byte, pos int) bool {
	lastOpen, lastClose := -1, -1
	for i := 0; i+1 < pos && i+1 <= len(data)-1; i++ {
		if data[i] == '/' && data[i+1] == '*' {
			lastOpen = i
		}
		if data[i] == '*' && data[i+1] == '/' {
			lastClose = i
		}
	}
	return lastOpen > lastClose
}

// scanIncludes implements spec.md step 2: locate every #include, classify
// commented vs active.
func scanIncludes(data []byte, fa *FileAnalysis) {
	needle := []byte("#include")
	for idx := 0; idx+len(needle) <= len(data); {
		rel := indexFrom(data, needle, idx)
		if rel < 0 {
			break
		}
		pos := rel
		idx = pos + len(needle)

		commented := isInsideLineComment(data, pos) || isInsideBlockComment(data, pos)

		le := lineEnd(data, pos)
		fullLine := string(data[lineStart(data, pos):le])

		rest := data[pos+len(needle) : le]
		filename, isSystem, ok := parseIncludeTarget(rest)
		if !ok {
			continue
		}

		fa.Includes = append(fa.Includes, Include{
			LineNum:     fa.LineNumOf(pos),
			BytePos:     pos,
			Filename:    filename,
			IsSystem:    isSystem,
			IsCommented: commented,
			FullLine:    strings.TrimRight(fullLine, "\r"),
		})
	}
}

// parseIncludeTarget extracts the filename and angle/quote kind from the text
// following "#include" on its line, e.g. ` <stdio.h>` or ` "foo.h"`.
func parseIncludeTarget(rest []byte) (string, bool, bool) {
	i := 0
	for i < len(rest) && isSpaceOrTab(rest[i]) {
		i++
	}
	if i >= len(rest) {
		return "", false, false
	}
	open := rest[i]
	var close byte
	var isSystem bool
	switch open {
	case '"':
		close, isSystem = '"', false
	case '<':
		close, isSystem = '>', true
	default:
		return "", false, false
	}
	i++
	start := i
	for i < len(rest) && rest[i] != close {
		i++
	}
	if i >= len(rest) {
		return "", false, false
	}
	return string(rest[start:i]), isSystem, true
}

func indexFrom(data, needle []byte, from int) int {
	if from >= len(data) {
		return -1
	}
	idx := indexBytes(data[from:], needle)
	if idx < 0 {
		return -1
	}
	return from + idx
}

func indexBytes(haystack, needle []byte) int {
	return strings.Index(string(haystack), string(needle))
}

// scanMagicFlags implements spec.md step 3.
func scanMagicFlags(data []byte, fa *FileAnalysis) {
	needle := []byte("//#")
	for idx := 0; idx+len(needle) <= len(data); {
		rel := indexFrom(data, needle, idx)
		if rel < 0 {
			break
		}
		pos := rel
		idx = pos + len(needle)

		ls := lineStart(data, pos)
		onlyWhitespaceBefore := true
		for i := ls; i < pos; i++ {
			if !isSpaceOrTab(data[i]) {
				onlyWhitespaceBefore = false
				break
			}
		}
		if !onlyWhitespaceBefore {
			continue
		}
		if isInsideBlockComment(data, pos) {
			continue
		}

		le := lineEnd(data, pos)
		content := string(data[pos+len(needle) : le])
		key, value, ok := parseMagicFlagContent(content)
		if !ok {
			continue
		}

		fa.MagicFlags = append(fa.MagicFlags, MagicFlag{
			LineNum: fa.LineNumOf(pos),
			BytePos: pos,
			Key:     key,
			Value:   value,
		})
	}
}

func parseMagicFlagContent(content string) (string, string, bool) {
	eq := strings.IndexByte(content, '=')
	if eq < 0 {
		return "", "", false
	}
	key := content[:eq]
	value := strings.TrimRight(content[eq+1:], "\r")
	if key == "" || !isIdentStart(key[0]) {
		return "", "", false
	}
	for i := 1; i < len(key); i++ {
		b := key[i]
		if !isIdentCont(b) && b != '-' {
			return "", "", false
		}
	}
	return key, value, true
}

// scanDirectives implements spec.md steps 4-5: locate and structure every
// recognized preprocessor directive.
func scanDirectives(data []byte, fa *FileAnalysis) {
	n := len(data)
	i := 0
	for i < n {
		ls := lineStart(data, i)
		le := lineEnd(data, i)

		j := ls
		for j < le && isSpaceOrTab(data[j]) {
			j++
		}
		if j >= le || data[j] != '#' {
			i = le + 1
			continue
		}
		hashPos := j
		j++
		for j < le && isSpaceOrTab(data[j]) {
			j++
		}
		kwStart := j
		for j < le && isIdentCont(data[j]) {
			j++
		}
		keyword := string(data[kwStart:j])
		kind, recognized := directiveKeywords[keyword]
		if !recognized {
			i = le + 1
			continue
		}

		// Join continuation lines (trailing backslash).
		bodyStart := j
		contLines := 0
		fullBody := make([]byte, 0, le-bodyStart)
		curStart, curEnd := bodyStart, le
		for {
			line := data[curStart:curEnd]
			trimmed := strings.TrimRight(string(line), " \t\r")
			if strings.HasSuffix(trimmed, "\\") {
				fullBody = append(fullBody, []byte(trimmed[:len(trimmed)-1])...)
				fullBody = append(fullBody, ' ')
				contLines++
				nextStart := curEnd + 1
				if nextStart > n {
					break
				}
				curStart = nextStart
				curEnd = lineEnd(data, nextStart)
				continue
			}
			fullBody = append(fullBody, line...)
			break
		}

		d := Directive{
			LineNum:           fa.LineNumOf(hashPos),
			BytePos:           hashPos,
			Kind:              kind,
			ContinuationLines: contLines,
		}
		structureDirective(&d, string(fullBody))

		fa.Directives = append(fa.Directives, d)
		fa.DirectivePositions[kind] = append(fa.DirectivePositions[kind], hashPos)

		i = curEnd + 1
	}

	for k := range fa.Directives {
		d := &fa.Directives[k]
		fa.DirectiveByLine[d.LineNum] = d
	}
}

// structureDirective extracts directive-specific fields from body, the text
// following the directive keyword (continuation lines already joined).
func structureDirective(d *Directive, body string) {
	body = strings.TrimSpace(body)
	switch d.Kind {
	case DirectiveIfdef, DirectiveIfndef, DirectiveUndef:
		d.MacroName = firstIdent(body)
	case DirectiveIf, DirectiveElif:
		d.Condition = body
	case DirectiveDefine:
		structureDefine(d, body)
	case DirectivePragma:
		d.IsPragmaOnce = strings.TrimSpace(body) == "once"
	default:
		// include/error/warning/line: no structured fields beyond body.
	}
}

func firstIdent(s string) string {
	i := 0
	for i < len(s) && isIdentCont(s[i]) {
		i++
	}
	return s[:i]
}

func structureDefine(d *Directive, body string) {
	i := 0
	for i < len(body) && isIdentCont(body[i]) {
		i++
	}
	name := body[:i]
	d.MacroName = name
	if i < len(body) && body[i] == '(' {
		d.IsFunction = true
		close := strings.IndexByte(body[i:], ')')
		if close < 0 {
			return
		}
		paramStr := body[i+1 : i+close]
		if strings.TrimSpace(paramStr) != "" {
			for _, p := range strings.Split(paramStr, ",") {
				d.Params = append(d.Params, strings.TrimSpace(p))
			}
		}
		rest := body[i+close+1:]
		d.MacroValue = strings.TrimSpace(rest)
		return
	}
	rest := strings.TrimLeft(body[i:], " \t")
	d.MacroValue = rest
}

// detectIncludeGuard implements spec.md step 6: the ifndef/define idiom is
// checked first, falling back to any #pragma once.
func detectIncludeGuard(fa *FileAnalysis) {
	if len(fa.Directives) >= 2 {
		first, second := fa.Directives[0], fa.Directives[1]
		if first.Kind == DirectiveIfndef && second.Kind == DirectiveDefine &&
			first.MacroName != "" && first.MacroName == second.MacroName {
			fa.IncludeGuard = first.MacroName
			fa.HasIncludeGuard = true
			return
		}
	}
	for _, d := range fa.Directives {
		if d.Kind == DirectivePragma && d.IsPragmaOnce {
			fa.IncludeGuard = PragmaOnceGuard
			fa.HasIncludeGuard = true
			return
		}
	}
}

// extractConditionalMacros implements spec.md step 7.
func extractConditionalMacros(fa *FileAnalysis) {
	for _, d := range fa.Directives {
		switch d.Kind {
		case DirectiveIfdef, DirectiveIfndef:
			if d.MacroName != "" {
				fa.ConditionalMacros[d.MacroName] = struct{}{}
			}
		case DirectiveIf, DirectiveElif:
			for _, ident := range extractIdentifiers(d.Condition) {
				if _, reserved := reservedConditionIdents[ident]; reserved {
					continue
				}
				fa.ConditionalMacros[ident] = struct{}{}
			}
		}
	}
}

func extractIdentifiers(expr string) []string {
	var out []string
	i := 0
	for i < len(expr) {
		if isIdentStart(expr[i]) {
			j := i + 1
			for j < len(expr) && isIdentCont(expr[j]) {
				j++
			}
			out = append(out, expr[i:j])
			i = j
			continue
		}
		i++
	}
	return out
}

// populateHeaderSets fills SystemHeaders/QuotedHeaders (commented includes
// excluded) and excludes the include guard from Defines.
func populateHeaderSets(fa *FileAnalysis) {
	for _, inc := range fa.Includes {
		if inc.IsCommented {
			continue
		}
		if inc.IsSystem {
			fa.SystemHeaders[inc.Filename] = struct{}{}
		} else {
			fa.QuotedHeaders[inc.Filename] = struct{}{}
		}
	}

	for _, d := range fa.Directives {
		if d.Kind != DirectiveDefine {
			continue
		}
		if fa.HasIncludeGuard && d.MacroName == fa.IncludeGuard {
			continue
		}
		value := d.MacroValue
		if !d.IsFunction && value == "" {
			value = "1"
		}
		fa.Defines = append(fa.Defines, Define{
			LineNum:    d.LineNum,
			BytePos:    d.BytePos,
			Name:       d.MacroName,
			Value:      value,
			IsFunction: d.IsFunction,
			Params:     d.Params,
		})
	}
}
