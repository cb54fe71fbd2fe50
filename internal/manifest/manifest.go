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

// Package manifest is the in-memory aggregate index: a map from path to
// FileEntry plus a reverse map from exported symbol to owning path. It
// is always rebuilt from sidecars and never persisted.
package manifest

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/srobinson/fmmd/internal/sidecar"
	"github.com/srobinson/fmmd/internal/walk"

	"github.com/srobinson/fmmd/internal/model"
)

// Version identifies the index schema, independent of the sidecar
// format version (sidecar.FormatVersion).
const Version = "v1"

// Manifest is the aggregate index. Safe for concurrent reads; Add and
// Remove take a write lock.
type Manifest struct {
	mu sync.RWMutex

	version     string
	generated   time.Time
	files       map[string]model.FileEntry
	exportIndex map[string]string
}

// New returns an empty manifest.
func New() *Manifest {
	return &Manifest{
		version:     Version,
		generated:   time.Now(),
		files:       make(map[string]model.FileEntry),
		exportIndex: make(map[string]string),
	}
}

// Version returns the index schema version.
func (m *Manifest) Version() string { return m.version }

// Generated returns when this manifest was built.
func (m *Manifest) Generated() time.Time { return m.generated }

// extClass buckets a path's extension into "ts" (source) or "js"
// (build-artifact counterpart) for the P8 tie-break; unrecognized
// extensions return "".
func extClass(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	switch ext {
	case "ts", "tsx":
		return "ts"
	case "js", "jsx":
		return "js"
	}
	return ""
}

// Add upserts path's entry. Stale-symbol cleanup (P9): for every symbol
// in the old entry's exports no longer present in the new exports, the
// export index's claim on that symbol is removed only if this path
// still owns it. Newly claimed symbols apply the P8 source-over-artifact
// tie-break against any existing owner.
func (m *Manifest) Add(path string, entry model.FileEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, existed := m.files[path]
	m.files[path] = entry

	if existed {
		newSet := make(map[string]struct{}, len(entry.Exports))
		for _, s := range entry.Exports {
			newSet[s] = struct{}{}
		}
		for _, s := range old.Exports {
			if _, stillExported := newSet[s]; stillExported {
				continue
			}
			if m.exportIndex[s] == path {
				delete(m.exportIndex, s)
			}
		}
	}

	for _, s := range entry.Exports {
		owner, claimed := m.exportIndex[s]
		if !claimed || owner == path {
			m.exportIndex[s] = path
			continue
		}
		// Someone else already owns s: apply the source-over-artifact
		// tie-break; otherwise the first-inserted owner is kept.
		if extClass(path) == "ts" && extClass(owner) == "js" {
			m.exportIndex[s] = path
		}
	}
}

// Remove deletes path's entry and releases any symbols it still owns.
func (m *Manifest) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.files[path]
	if !ok {
		return
	}
	delete(m.files, path)
	for _, s := range entry.Exports {
		if m.exportIndex[s] == path {
			delete(m.exportIndex, s)
		}
	}
}

// LookupExport returns the path owning symbol name, if any.
func (m *Manifest) LookupExport(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.exportIndex[name]
	return p, ok
}

// ExportMatch is one (symbol, path) pair.
type ExportMatch struct {
	Symbol string
	Path   string
}

// ListExports returns (symbol, path) pairs, optionally restricted to a
// single file and/or to symbols containing pattern (case-insensitive
// substring), sorted by symbol then path.
func (m *Manifest) ListExports(pattern, file string) []ExportMatch {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lowerPattern := strings.ToLower(pattern)
	var out []ExportMatch
	for sym, path := range m.exportIndex {
		if file != "" && path != file {
			continue
		}
		if pattern != "" && !strings.Contains(strings.ToLower(sym), lowerPattern) {
			continue
		}
		out = append(out, ExportMatch{Symbol: sym, Path: path})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// FileInfo returns the FileEntry at path, if present.
func (m *Manifest) FileInfo(path string) (model.FileEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.files[path]
	return e, ok
}

// Paths returns every indexed path, sorted.
func (m *Manifest) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// namesSpec reports whether a dependency spec declared by owner names
// target, per the §4.7 equivalence: exact match, match with target's
// extension stripped, or match after resolving spec relative to
// owner's directory.
func namesSpec(spec, owner, target string) bool {
	if spec == target {
		return true
	}
	if stripped := strings.TrimSuffix(target, filepath.Ext(target)); spec == stripped {
		return true
	}
	resolved := filepath.ToSlash(filepath.Join(filepath.Dir(owner), spec))
	if resolved == target || resolved == strings.TrimSuffix(target, filepath.Ext(target)) {
		return true
	}
	return false
}

// Dependents returns every path whose dependencies name target, per the
// §4.7 dependency_graph equivalence.
func (m *Manifest) Dependents(target string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for path, entry := range m.files {
		for _, dep := range entry.Dependencies {
			if namesSpec(dep, path, target) {
				out = append(out, path)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// Dependencies returns target's own declared dependency specs.
func (m *Manifest) Dependencies(target string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.files[target]
	if !ok {
		return nil
	}
	return append([]string(nil), entry.Dependencies...)
}

// SearchCriteria are the AND-combined filters for Search.
type SearchCriteria struct {
	Export    string
	Imports   string
	DependsOn string
	MinLOC    *int
	MaxLOC    *int
}

// SearchResult pairs a path with its entry.
type SearchResult struct {
	Path  string
	Entry model.FileEntry
}

// Search returns every (path, FileEntry) matching every non-zero
// criterion in c, sorted by path.
func (m *Manifest) Search(c SearchCriteria) []SearchResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []SearchResult
	for path, entry := range m.files {
		if c.Export != "" && !containsExact(entry.Exports, c.Export) {
			continue
		}
		if c.Imports != "" && !anyContainsSubstring(entry.Imports, c.Imports) {
			continue
		}
		if c.DependsOn != "" && !anyNamesSpec(entry.Dependencies, path, c.DependsOn) {
			continue
		}
		if c.MinLOC != nil && entry.LOC < *c.MinLOC {
			continue
		}
		if c.MaxLOC != nil && entry.LOC > *c.MaxLOC {
			continue
		}
		out = append(out, SearchResult{Path: path, Entry: entry})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func containsExact(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func anyContainsSubstring(values []string, substr string) bool {
	for _, v := range values {
		if strings.Contains(v, substr) {
			return true
		}
	}
	return false
}

func anyNamesSpec(deps []string, owner, target string) bool {
	for _, d := range deps {
		if namesSpec(d, owner, target) {
			return true
		}
	}
	return false
}

// LoadFromSidecars walks root, finds every *.fmm file honoring ignore,
// parses each via sidecar.Parse, and inserts into a freshly built
// Manifest. Errors reading any single sidecar are swallowed (that
// sidecar is skipped); the manifest's generated time is set to now.
func LoadFromSidecars(root string, ignore *walk.IgnoreSet) (*Manifest, error) {
	m := New()

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && ignore != nil && ignore.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(rel, ".fmm") {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		fallback := strings.TrimSuffix(rel, ".fmm")
		doc, ok := sidecar.Parse(string(data), fallback)
		if !ok {
			return nil
		}
		m.Add(doc.DeclaredPath, doc.Metadata.ToFileEntry())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}
