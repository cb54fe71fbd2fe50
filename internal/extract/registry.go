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

import "sort"

// Registry owns one Extractor per declared extension and per language
// identifier. It is populated once at process startup (built-ins, then
// any plugin discovery pass) and treated as read-only afterward — there
// is no global mutable state here, only an instance callers construct.
type Registry struct {
	byExtension map[string]Extractor
	byLanguage  map[string]Extractor
}

// NewRegistry returns an empty registry. NewBuiltinRegistry returns one
// already populated with every built-in extractor.
func NewRegistry() *Registry {
	return &Registry{
		byExtension: make(map[string]Extractor),
		byLanguage:  make(map[string]Extractor),
	}
}

// Register adds extractor under every one of its declared extensions and
// under its language identifier. A later registration for the same
// extension overrides an earlier one — this is how a project-scope
// plugin takes precedence over a built-in (see internal/plugin).
func (r *Registry) Register(e Extractor) {
	for _, ext := range e.Extensions() {
		r.byExtension[ext] = e
	}
	r.byLanguage[e.LanguageID()] = e
}

// ResolveByExtension returns the extractor responsible for ext (no
// leading dot), or ok=false if none is registered.
func (r *Registry) ResolveByExtension(ext string) (Extractor, bool) {
	e, ok := r.byExtension[ext]
	return e, ok
}

// ResolveByLanguage returns the extractor registered under language id,
// or ok=false if none is registered.
func (r *Registry) ResolveByLanguage(id string) (Extractor, bool) {
	e, ok := r.byLanguage[id]
	return e, ok
}

// SupportedExtensions returns every registered extension, sorted.
func (r *Registry) SupportedExtensions() []string {
	out := make([]string, 0, len(r.byExtension))
	for ext := range r.byExtension {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// SupportedLanguages returns every registered language identifier, sorted.
func (r *Registry) SupportedLanguages() []string {
	out := make([]string, 0, len(r.byLanguage))
	for id := range r.byLanguage {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// NewBuiltinRegistry returns a registry pre-populated with every built-in
// extractor named in spec.md §4.2's language table.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewTypeScriptExtractor())
	r.Register(NewPythonExtractor())
	r.Register(NewRustExtractor())
	r.Register(NewGoExtractor())
	r.Register(NewJavaExtractor())
	r.Register(NewCppExtractor())
	r.Register(NewCSharpExtractor())
	r.Register(NewRubyExtractor())
	return r
}
