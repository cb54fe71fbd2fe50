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

package sidecar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srobinson/fmmd/internal/model"
)

func TestRender_FieldOrderAndOmission(t *testing.T) {
	doc := Document{
		DeclaredPath: "src/widget.go",
		Metadata: model.Metadata{
			Exports: []string{"New", "Widget"},
			LOC:     42,
		},
		Modified: "2026-01-02",
	}

	got := Render(doc)
	want := "file: src/widget.go\n" +
		"fmm: v0.2\n" +
		"exports: [New, Widget]\n" +
		"loc: 42\n" +
		"modified: 2026-01-02\n"

	assert.Equal(t, want, got, "imports/dependencies lines must be omitted when empty")
}

func TestRender_CustomFieldBlockSortedAndIndented(t *testing.T) {
	doc := Document{
		DeclaredPath: "src/lib.rs",
		Metadata:     model.Metadata{LOC: 10},
		LangID:       "rust",
		Custom: model.CustomFields{
			"unsafe_blocks": model.IntField(2),
			"derives":       model.StringArrayField([]string{"Debug", "Clone"}),
		},
		Modified: "2026-01-02",
	}

	got := Render(doc)
	require.Contains(t, got, "rust:\n")
	assert.Contains(t, got, "  derives: [Clone, Debug]\n")
	assert.Contains(t, got, "  unsafe_blocks: 2\n")
}

func TestRender_BackslashPathIsSlashed(t *testing.T) {
	doc := Document{DeclaredPath: `src\windows\path.cs`, Metadata: model.Metadata{}, Modified: "2026-01-02"}
	got := Render(doc)
	assert.Contains(t, got, "file: src/windows/path.cs\n")
}

func TestParse_RoundTripsRender(t *testing.T) {
	doc := Document{
		DeclaredPath: "a/b.py",
		Metadata: model.Metadata{
			Exports:      []string{"run"},
			Imports:      []string{"requests"},
			Dependencies: []string{".util"},
			LOC:          7,
		},
		Modified: "2026-03-01",
	}
	rendered := Render(doc)

	parsed, ok := Parse(rendered, "")
	require.True(t, ok)
	assert.Equal(t, doc.DeclaredPath, parsed.DeclaredPath)
	assert.Equal(t, doc.Metadata.Exports, parsed.Metadata.Exports)
	assert.Equal(t, doc.Metadata.Imports, parsed.Metadata.Imports)
	assert.Equal(t, doc.Metadata.Dependencies, parsed.Metadata.Dependencies)
	assert.Equal(t, doc.Metadata.LOC, parsed.Metadata.LOC)
	assert.Equal(t, doc.Modified, parsed.Modified)
}

func TestParse_MissingFileLineUsesFallback(t *testing.T) {
	text := "fmm: v0.2\nloc: 0\nmodified: 2026-01-01\n"
	parsed, ok := Parse(text, "fallback/path.go")
	require.True(t, ok)
	assert.Equal(t, "fallback/path.go", parsed.DeclaredPath)
}

func TestParse_NoFileLineAndNoFallbackIsInvalid(t *testing.T) {
	_, ok := Parse("loc: 0\n", "")
	assert.False(t, ok)
}

func TestParse_EmptyArrayVsAbsentArray(t *testing.T) {
	text := "file: x.go\nexports: []\nloc: 0\nmodified: 2026-01-01\n"
	parsed, ok := Parse(text, "")
	require.True(t, ok)
	assert.Equal(t, []string{}, parsed.Metadata.Exports, "explicit [] parses to an empty, non-nil slice")
	assert.Nil(t, parsed.Metadata.Imports, "an absent imports: line leaves the field nil")
}

func TestNormalizeForCompare_TrimsWhitespaceOnly(t *testing.T) {
	a := "  file: x.go\nloc: 0\n\n"
	b := "file: x.go\nloc: 0"
	assert.Equal(t, NormalizeForCompare(b), NormalizeForCompare(a))
}

func TestNormalizeIgnoringDate_BlanksModifiedLine(t *testing.T) {
	a := Render(Document{DeclaredPath: "x.go", Metadata: model.Metadata{}, Modified: "2026-01-01"})
	b := Render(Document{DeclaredPath: "x.go", Metadata: model.Metadata{}, Modified: "2026-06-15"})

	assert.NotEqual(t, NormalizeForCompare(a), NormalizeForCompare(b), "strict comparison must still distinguish the two dates")
	assert.Equal(t, NormalizeIgnoringDate(a), NormalizeIgnoringDate(b), "date-ignoring comparison must treat them as identical")
}

func TestExpectedRender_MatchesRenderOfEquivalentDocument(t *testing.T) {
	md := model.Metadata{Exports: []string{"Foo"}, LOC: 3}
	custom := model.CustomFields{"annotations": model.StringArrayField([]string{"Deprecated"})}

	got := ExpectedRender("pkg/Foo.java", md, "java", custom, "2026-02-02")
	want := Render(Document{DeclaredPath: "pkg/Foo.java", Metadata: md, LangID: "java", Custom: custom, Modified: "2026-02-02"})
	assert.Equal(t, want, got)
}
