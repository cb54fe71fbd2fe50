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

package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srobinson/fmmd/internal/model"
	"github.com/srobinson/fmmd/internal/sidecar"
	"github.com/srobinson/fmmd/internal/walk"
)

func TestAdd_LookupExport(t *testing.T) {
	m := New()
	m.Add("src/widget.go", model.FileEntry{Exports: []string{"Widget"}})

	path, ok := m.LookupExport("Widget")
	require.True(t, ok)
	assert.Equal(t, "src/widget.go", path)
}

func TestAdd_P8SourceOverArtifactTieBreak(t *testing.T) {
	m := New()
	m.Add("dist/widget.js", model.FileEntry{Exports: []string{"Widget"}})
	m.Add("src/widget.ts", model.FileEntry{Exports: []string{"Widget"}})

	path, ok := m.LookupExport("Widget")
	require.True(t, ok)
	assert.Equal(t, "src/widget.ts", path, "a .ts source file must win the tie against a .js build artifact")
}

func TestAdd_FirstOwnerWinsWhenNeitherIsSourceOverArtifact(t *testing.T) {
	m := New()
	m.Add("a/widget.go", model.FileEntry{Exports: []string{"Widget"}})
	m.Add("b/widget.go", model.FileEntry{Exports: []string{"Widget"}})

	path, _ := m.LookupExport("Widget")
	assert.Equal(t, "a/widget.go", path)
}

func TestAdd_P9StaleSymbolEvictedOnUpdate(t *testing.T) {
	m := New()
	m.Add("src/widget.ts", model.FileEntry{Exports: []string{"Widget", "Gadget"}})
	m.Add("src/widget.ts", model.FileEntry{Exports: []string{"Widget"}})

	_, ok := m.LookupExport("Gadget")
	assert.False(t, ok, "a symbol dropped from a re-added file's exports must be evicted")

	path, ok := m.LookupExport("Widget")
	require.True(t, ok)
	assert.Equal(t, "src/widget.ts", path)
}

func TestAdd_StaleSymbolNotEvictedIfReclaimedElsewhere(t *testing.T) {
	m := New()
	m.Add("dist/shared.js", model.FileEntry{Exports: []string{"Shared"}})
	// src/shared.ts takes Shared over the .js artifact (P8 tie-break), so
	// dropping Shared from dist/shared.js must leave the new owner alone.
	m.Add("src/shared.ts", model.FileEntry{Exports: []string{"Shared"}})
	m.Add("dist/shared.js", model.FileEntry{Exports: []string{}})

	path, ok := m.LookupExport("Shared")
	require.True(t, ok)
	assert.Equal(t, "src/shared.ts", path)
}

func TestRemove_ReleasesOwnedSymbols(t *testing.T) {
	m := New()
	m.Add("src/widget.go", model.FileEntry{Exports: []string{"Widget"}})
	m.Remove("src/widget.go")

	_, ok := m.LookupExport("Widget")
	assert.False(t, ok)
	_, ok = m.FileInfo("src/widget.go")
	assert.False(t, ok)
}

func TestListExports_FiltersByFileAndPattern(t *testing.T) {
	m := New()
	m.Add("a.go", model.FileEntry{Exports: []string{"Alpha", "Beta"}})
	m.Add("b.go", model.FileEntry{Exports: []string{"Gamma"}})

	all := m.ListExports("", "")
	assert.Len(t, all, 3)

	onlyA := m.ListExports("", "a.go")
	require.Len(t, onlyA, 2)
	assert.Equal(t, "Alpha", onlyA[0].Symbol)

	substr := m.ListExports("amm", "")
	require.Len(t, substr, 1)
	assert.Equal(t, "Gamma", substr[0].Symbol)
}

func TestDependents_ResolvesRelativeSpecs(t *testing.T) {
	m := New()
	m.Add("src/util.go", model.FileEntry{})
	m.Add("src/main.go", model.FileEntry{Dependencies: []string{"./util"}})

	deps := m.Dependents("src/util.go")
	assert.Equal(t, []string{"src/main.go"}, deps)
}

func TestSearch_CombinesCriteriaWithAND(t *testing.T) {
	m := New()
	m.Add("a.go", model.FileEntry{Exports: []string{"Foo"}, LOC: 50})
	m.Add("b.go", model.FileEntry{Exports: []string{"Foo"}, LOC: 500})

	minLOC := 100
	results := m.Search(SearchCriteria{Export: "Foo", MinLOC: &minLOC})
	require.Len(t, results, 1)
	assert.Equal(t, "b.go", results[0].Path)
}

func TestSearch_NoCriteriaReturnsEverySortedByPath(t *testing.T) {
	m := New()
	m.Add("z.go", model.FileEntry{})
	m.Add("a.go", model.FileEntry{})

	results := m.Search(SearchCriteria{})
	require.Len(t, results, 2)
	assert.Equal(t, "a.go", results[0].Path)
	assert.Equal(t, "z.go", results[1].Path)
}

func TestLoadFromSidecars_RebuildsFromDisk(t *testing.T) {
	root := t.TempDir()
	doc := sidecar.Document{
		DeclaredPath: "pkg/thing.go",
		Metadata:     model.Metadata{Exports: []string{"Thing"}, LOC: 3},
		Modified:     "2026-01-01",
	}
	full := filepath.Join(root, "pkg", "thing.go.fmm")
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(sidecar.Render(doc)), 0o644))

	ignore, err := walk.LoadIgnoreSet(root)
	require.NoError(t, err)

	m, err := LoadFromSidecars(root, ignore)
	require.NoError(t, err)

	path, ok := m.LookupExport("Thing")
	require.True(t, ok)
	assert.Equal(t, "pkg/thing.go", path)
}

func TestLoadFromSidecars_IgnoresMatchedDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor"), 0o755))
	doc := sidecar.Document{DeclaredPath: "vendor/dep.go", Metadata: model.Metadata{Exports: []string{"Dep"}}, Modified: "2026-01-01"}
	require.NoError(t, os.WriteFile(filepath.Join(root, "vendor", "dep.go.fmm"), []byte(sidecar.Render(doc)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".fmmignore"), []byte("vendor/\n"), 0o644))

	ignore, err := walk.LoadIgnoreSet(root)
	require.NoError(t, err)

	m, err := LoadFromSidecars(root, ignore)
	require.NoError(t, err)
	assert.Empty(t, m.Paths())
}
