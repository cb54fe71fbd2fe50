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

// RustExtractor handles .rs sources with a line/regex scanner rather
// than a tree-sitter grammar — the smacker/go-tree-sitter distribution
// this module draws on (see internal/extract/treesitter.go) only ships
// Go, JS, Python, and TypeScript grammars, the same gap the teacher's
// own pre-tree-sitter Parser documented before its tree-sitter
// migration (see DESIGN.md).
type RustExtractor struct{}

// NewRustExtractor constructs the Rust extractor.
func NewRustExtractor() *RustExtractor { return &RustExtractor{} }

func (e *RustExtractor) LanguageID() string { return "rust" }

func (e *RustExtractor) Extensions() []string { return []string{"rs"} }

var (
	rustPubItemRe  = regexp.MustCompile(`(?m)^\s*pub(?:\([^)]*\))?\s+(?:async\s+)?(?:unsafe\s+)?(fn|struct|enum|trait|type|const|static|mod)\s+([A-Za-z_]\w*)`)
	rustUseRe      = regexp.MustCompile(`(?m)^\s*(?:pub(?:\([^)]*\))?\s+)?use\s+([A-Za-z_]\w*)`)
	rustDeriveRe   = regexp.MustCompile(`#\[derive\(([^)]*)\)\]`)
	rustAsyncFnRe  = regexp.MustCompile(`\basync\s+fn\b`)
	rustImplForRe  = regexp.MustCompile(`\bimpl\s+([A-Za-z_]\w*(?:<[^>]*>)?)\s+for\s+([A-Za-z_]\w*)`)
	rustUnsafeRe   = regexp.MustCompile(`\bunsafe\s*\{`)
	rustLifetimeRe = regexp.MustCompile(`'([A-Za-z_]\w*)`)
)

var rustStdModules = map[string]bool{
	"std": true, "core": true, "alloc": true,
}

var rustLocalPrefixes = map[string]bool{
	"crate": true, "super": true, "self": true,
}

func (e *RustExtractor) Parse(source []byte) (model.Metadata, model.CustomFields, error) {
	loc := countLOC(source)
	text := string(source)

	var exports, imports, deps []string
	for _, m := range rustPubItemRe.FindAllStringSubmatch(text, -1) {
		exports = append(exports, m[2])
	}
	for _, m := range rustUseRe.FindAllStringSubmatch(text, -1) {
		seg := m[1]
		switch {
		case rustStdModules[seg]:
			// dropped entirely
		case rustLocalPrefixes[seg]:
			deps = append(deps, seg)
		default:
			imports = append(imports, seg)
		}
	}

	var derives []string
	for _, m := range rustDeriveRe.FindAllStringSubmatch(text, -1) {
		for _, part := range strings.Split(m[1], ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				derives = append(derives, part)
			}
		}
	}

	var traitImpls []string
	for _, m := range rustImplForRe.FindAllStringSubmatch(text, -1) {
		traitImpls = append(traitImpls, m[1]+" for "+m[2])
	}

	var lifetimes []string
	for _, m := range rustLifetimeRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		if end < len(text) && text[end] == '\'' {
			// a quoted char literal like 'a', not a lifetime
			continue
		}
		name := text[m[2]:m[3]]
		if name == "static" {
			continue
		}
		_ = start
		lifetimes = append(lifetimes, name)
	}

	custom := model.CustomFields{
		"async_functions": model.IntField(len(rustAsyncFnRe.FindAllStringIndex(text, -1))),
		"unsafe_blocks":   model.IntField(len(rustUnsafeRe.FindAllStringIndex(text, -1))),
	}
	if len(derives) > 0 {
		custom["derives"] = model.StringArrayField(derives)
	}
	if len(traitImpls) > 0 {
		custom["trait_impls"] = model.StringArrayField(traitImpls)
	}
	if len(lifetimes) > 0 {
		custom["lifetimes"] = model.StringArrayField(lifetimes)
	}

	return model.Metadata{
		Exports:      model.CanonicalStrings(exports),
		Imports:      model.CanonicalStrings(imports),
		Dependencies: model.CanonicalStrings(deps),
		LOC:          loc,
	}, custom, nil
}
