// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"regexp"
	"strings"

	"github.com/srobinson/fmmd/internal/model"
)

// CppExtractor handles cpp/cc/cxx/hpp/hh/hxx/h sources with a scope-stack
// line scanner: braces are counted naively (no string/comment awareness)
// to approximate namespace and class nesting, which is sufficient for
// the metadata this tool reports. A real compiler front end is out of
// scope per spec.md §1.
type CppExtractor struct{}

// NewCppExtractor constructs the C++ extractor.
func NewCppExtractor() *CppExtractor { return &CppExtractor{} }

func (e *CppExtractor) LanguageID() string { return "cpp" }

func (e *CppExtractor) Extensions() []string {
	return []string{"cpp", "cc", "cxx", "hpp", "hh", "hxx", "h"}
}

var cppStdlibHeaders = map[string]bool{
	"algorithm": true, "array": true, "atomic": true, "chrono": true, "cstdint": true,
	"cstdio": true, "cstdlib": true, "cstring": true, "deque": true, "fstream": true,
	"functional": true, "iostream": true, "iterator": true, "list": true, "map": true,
	"memory": true, "mutex": true, "optional": true, "queue": true, "set": true,
	"sstream": true, "stack": true, "string": true, "string_view": true, "thread": true,
	"tuple": true, "type_traits": true, "unordered_map": true, "unordered_set": true,
	"utility": true, "variant": true, "vector": true,
}

type cppScope struct {
	kind  string // "namespace" or "class" or "other"
	name  string
	start int // byte offset of the opening brace
	end   int // byte offset, exclusive, of the matching closing brace
}

var (
	cppNamespaceRe = regexp.MustCompile(`\bnamespace\s+([A-Za-z_]\w*)\s*\{|\bnamespace\s*\{`)
	cppClassRe     = regexp.MustCompile(`\b(?:class|struct)\s+([A-Za-z_]\w*)[^{;]*\{`)
	cppEnumRe      = regexp.MustCompile(`\benum(?:\s+class)?\s+([A-Za-z_]\w*)`)
	cppFuncRe      = regexp.MustCompile(`(?m)^[A-Za-z_][\w:<>,\*&\s]*[\s\*&]([A-Za-z_]\w*)\s*\(([^;{}]*)\)\s*(?:const\s*)?\{`)
	cppIncludeRe   = regexp.MustCompile(`(?m)^\s*#include\s*([<"])([^>"]+)[>"]`)
	cppBraceRe     = regexp.MustCompile(`[{}]`)
)

func (e *CppExtractor) Parse(source []byte) (model.Metadata, model.CustomFields, error) {
	loc := countLOC(source)
	text := string(source)

	var exports, imports, deps []string
	var namespaces []string
	nsSet := map[string]struct{}{}

	scopes := e.scanScopes(text)

	for _, m := range cppClassRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		pos := m[0]
		if !cppIsExportable(scopes, pos) {
			continue
		}
		exports = append(exports, name)
	}
	for _, m := range cppEnumRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		pos := m[0]
		if !cppIsExportable(scopes, pos) {
			continue
		}
		exports = append(exports, name)
	}
	for _, m := range cppFuncRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		whole := text[m[0]:m[1]]
		if strings.Contains(whole[:m[2]-m[0]], "::") {
			continue // out-of-line method definition, not a free function
		}
		pos := m[0]
		if !cppIsExportable(scopes, pos) {
			continue
		}
		exports = append(exports, name)
	}

	for _, s := range scopes {
		if s.kind == "namespace" && s.name != "" {
			if _, ok := nsSet[s.name]; !ok {
				nsSet[s.name] = struct{}{}
				namespaces = append(namespaces, s.name)
			}
		}
	}

	for _, m := range cppIncludeRe.FindAllStringSubmatch(text, -1) {
		angled, target := m[1] == "<", m[2]
		if angled {
			if !cppStdlibHeaders[cppHeaderStem(target)] {
				imports = append(imports, target)
			}
		} else {
			deps = append(deps, target)
		}
	}

	var custom model.CustomFields
	if len(namespaces) > 0 {
		custom = model.CustomFields{"namespaces": model.StringArrayField(namespaces)}
	}

	return model.Metadata{
		Exports:      model.CanonicalStrings(exports),
		Imports:      model.CanonicalStrings(imports),
		Dependencies: model.CanonicalStrings(deps),
		LOC:          loc,
	}, custom, nil
}

// scanScopes builds the list of namespace/class scopes in the file by
// locating each opening construct and naively counting braces forward
// to its matching close.
func (e *CppExtractor) scanScopes(text string) []cppScope {
	var scopes []cppScope
	for _, m := range cppNamespaceRe.FindAllStringSubmatchIndex(text, -1) {
		name := ""
		if m[2] >= 0 {
			name = text[m[2]:m[3]]
		}
		braceIdx := strings.IndexByte(text[m[1]-1:], '{')
		openPos := m[1] - 1 + braceIdx
		end := cppMatchingBrace(text, openPos)
		scopes = append(scopes, cppScope{kind: "namespace", name: name, start: openPos, end: end})
		_ = openPos
	}
	for _, m := range cppClassRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		openPos := m[1] - 1
		end := cppMatchingBrace(text, openPos)
		scopes = append(scopes, cppScope{kind: "class", name: name, start: openPos, end: end})
	}
	return scopes
}

// cppMatchingBrace returns the index just past the '}' that matches the
// '{' at openPos, using a naive nesting counter.
func cppMatchingBrace(text string, openPos int) int {
	depth := 0
	for i := openPos; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(text)
}

// cppIsExportable reports whether pos lies in a namespace scope that is
// not "detail" or anonymous, and is not nested inside any class scope.
func cppIsExportable(scopes []cppScope, pos int) bool {
	inExcludedNamespace := false
	inClass := false
	for _, s := range scopes {
		// A scope contains pos only if its opening brace precedes pos and
		// its closing brace follows it; a class's own declaration sits
		// before its opening brace, so it is not inside its own scope.
		if pos <= s.start || pos >= s.end {
			continue
		}
		switch s.kind {
		case "namespace":
			if s.name == "" || s.name == "detail" {
				inExcludedNamespace = true
			}
		case "class":
			inClass = true
		}
	}
	return !inExcludedNamespace && !inClass
}

func cppHeaderStem(target string) string {
	if idx := strings.LastIndexByte(target, '/'); idx >= 0 {
		target = target[idx+1:]
	}
	if idx := strings.LastIndexByte(target, '.'); idx >= 0 {
		target = target[:idx]
	}
	return target
}

var _ = cppBraceRe
