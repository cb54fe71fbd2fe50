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

package query

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srobinson/fmmd/internal/errors"
	"github.com/srobinson/fmmd/internal/model"
	"github.com/srobinson/fmmd/internal/sidecar"
	"github.com/srobinson/fmmd/internal/walk"
)

func newTestServer(t *testing.T, files map[string]sidecar.Document) *Server {
	t.Helper()
	root := t.TempDir()
	for rel, doc := range files {
		full := filepath.Join(root, filepath.FromSlash(rel)+".fmm")
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(sidecar.Render(doc)), 0o644))
	}
	ignore, err := walk.LoadIgnoreSet(root)
	require.NoError(t, err)
	return New(root, sidecar.Config{}, ignore)
}

func TestHandle_UnknownOperationReturnsNotFound(t *testing.T) {
	s := newTestServer(t, nil)
	_, uerr := s.Handle(context.Background(), "bogus_op", nil)
	require.NotNil(t, uerr)
	assert.Equal(t, errors.NotFound, uerr.Kind)
	assert.Equal(t, errors.ExitNotFound, uerr.ExitCode)
}

func TestHandle_AliasesRouteToCanonicalHandler(t *testing.T) {
	s := newTestServer(t, map[string]sidecar.Document{
		"a.go": {DeclaredPath: "a.go", Metadata: model.Metadata{Exports: []string{"Widget"}}, Modified: "2026-01-01"},
	})

	direct, uerr := s.Handle(context.Background(), "lookup_export", map[string]any{"name": "Widget"})
	require.Nil(t, uerr)
	alias, uerr := s.Handle(context.Background(), "find_export", map[string]any{"name": "Widget"})
	require.Nil(t, uerr)
	assert.Equal(t, direct, alias)
}

func TestHandleLookupExport_MissingNameIsParseFailure(t *testing.T) {
	s := newTestServer(t, nil)
	_, uerr := s.Handle(context.Background(), "lookup_export", map[string]any{})
	require.NotNil(t, uerr)
	assert.Equal(t, errors.ParseFailure, uerr.Kind)
}

func TestHandleLookupExport_NotFoundWhenSymbolAbsent(t *testing.T) {
	s := newTestServer(t, nil)
	_, uerr := s.Handle(context.Background(), "lookup_export", map[string]any{"name": "Nope"})
	require.NotNil(t, uerr)
	assert.Equal(t, errors.NotFound, uerr.Kind)
}

func TestHandleLookupExport_ReturnsOwningPath(t *testing.T) {
	s := newTestServer(t, map[string]sidecar.Document{
		"a.go": {DeclaredPath: "a.go", Metadata: model.Metadata{Exports: []string{"Widget"}, LOC: 4}, Modified: "2026-01-01"},
	})
	res, uerr := s.Handle(context.Background(), "lookup_export", map[string]any{"name": "Widget"})
	require.Nil(t, uerr)
	result := res.(LookupExportResult)
	assert.Equal(t, "a.go", result.Path)
	assert.Equal(t, 4, result.Entry.LOC)
}

func TestHandleListExports_FiltersByPattern(t *testing.T) {
	s := newTestServer(t, map[string]sidecar.Document{
		"a.go": {DeclaredPath: "a.go", Metadata: model.Metadata{Exports: []string{"Alpha"}}, Modified: "2026-01-01"},
		"b.go": {DeclaredPath: "b.go", Metadata: model.Metadata{Exports: []string{"Beta"}}, Modified: "2026-01-01"},
	})
	res, uerr := s.Handle(context.Background(), "list_exports", map[string]any{"pattern": "alp"})
	require.Nil(t, uerr)
	out := res.([]ExportEntry)
	require.Len(t, out, 1)
	assert.Equal(t, "Alpha", out[0].Symbol)
}

func TestHandleFileInfo_NotFoundForUnindexedFile(t *testing.T) {
	s := newTestServer(t, nil)
	_, uerr := s.Handle(context.Background(), "file_info", map[string]any{"file": "missing.go"})
	require.NotNil(t, uerr)
	assert.Equal(t, errors.NotFound, uerr.Kind)
}

func TestHandleDependencyGraph_ReturnsUpstreamAndDownstream(t *testing.T) {
	s := newTestServer(t, map[string]sidecar.Document{
		"util.go": {DeclaredPath: "util.go", Metadata: model.Metadata{}, Modified: "2026-01-01"},
		"main.go": {DeclaredPath: "main.go", Metadata: model.Metadata{Dependencies: []string{"./util"}}, Modified: "2026-01-01"},
	})
	res, uerr := s.Handle(context.Background(), "dependency_graph", map[string]any{"file": "util.go"})
	require.Nil(t, uerr)
	graph := res.(DependencyGraphResult)
	assert.Equal(t, []string{"main.go"}, graph.Downstream)
	assert.Empty(t, graph.Upstream)
}

func TestHandleSearch_AppliesMinLOCFilter(t *testing.T) {
	s := newTestServer(t, map[string]sidecar.Document{
		"small.go": {DeclaredPath: "small.go", Metadata: model.Metadata{LOC: 1}, Modified: "2026-01-01"},
		"large.go": {DeclaredPath: "large.go", Metadata: model.Metadata{LOC: 100}, Modified: "2026-01-01"},
	})
	res, uerr := s.Handle(context.Background(), "search", map[string]any{"min_loc": float64(50)})
	require.Nil(t, uerr)
	out := res.([]SearchEntry)
	require.Len(t, out, 1)
	assert.Equal(t, "large.go", out[0].Path)
}

func TestHandleGetManifest_ListsEveryFile(t *testing.T) {
	s := newTestServer(t, map[string]sidecar.Document{
		"a.go": {DeclaredPath: "a.go", Metadata: model.Metadata{}, Modified: "2026-01-01"},
		"b.go": {DeclaredPath: "b.go", Metadata: model.Metadata{}, Modified: "2026-01-01"},
	})
	res, uerr := s.Handle(context.Background(), "project_overview", map[string]any{})
	require.Nil(t, uerr)
	result := res.(GetManifestResult)
	assert.Len(t, result.Files, 2)
	assert.Equal(t, "v1", result.Version)
}
