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

// Package query implements the stateless request/response server: every
// request rebuilds the aggregate index from on-disk sidecars, evaluates
// one of the canonical operations (or an accepted alias), and returns a
// response capped at a configurable byte size.
package query

import (
	"context"
	"log/slog"

	"github.com/srobinson/fmmd/internal/errors"
	"github.com/srobinson/fmmd/internal/manifest"
	"github.com/srobinson/fmmd/internal/model"
	"github.com/srobinson/fmmd/internal/obs"
	"github.com/srobinson/fmmd/internal/sidecar"
	"github.com/srobinson/fmmd/internal/walk"
)

// DefaultResponseCap is the size, in bytes, at which a response body is
// truncated with a trailing summary line (§4.7, §6).
const DefaultResponseCap = 10240

// canonicalOps are the operation names defined in §6; aliases route to
// the same handler through this same map.
var canonicalOps = map[string]string{
	"lookup_export":        "lookup_export",
	"list_exports":         "list_exports",
	"file_info":            "file_info",
	"dependency_graph":     "dependency_graph",
	"search":               "search",
	"get_manifest":         "get_manifest",
	"find_export":          "lookup_export",
	"find_symbol":          "lookup_export",
	"file_metadata":        "file_info",
	"analyze_dependencies": "dependency_graph",
	"project_overview":     "get_manifest",
}

// handlers maps a canonical operation name to its implementation.
var handlers = map[string]func(*Server, map[string]any) (any, *errors.UserError){
	"lookup_export":    (*Server).handleLookupExport,
	"list_exports":     (*Server).handleListExports,
	"file_info":        (*Server).handleFileInfo,
	"dependency_graph": (*Server).handleDependencyGraph,
	"search":           (*Server).handleSearch,
	"get_manifest":     (*Server).handleGetManifest,
}

// Server answers queries against root. It carries no manifest state
// between requests: Handle rebuilds the index from sidecars every time
// (§4.7a), so concurrent callers never share mutable state.
type Server struct {
	root   string
	config sidecar.Config
	ignore *walk.IgnoreSet
	log    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = obs.Or(l) }
}

// New constructs a Server rooted at root.
func New(root string, config sidecar.Config, ignore *walk.IgnoreSet, opts ...Option) *Server {
	s := &Server{root: root, config: config, ignore: ignore, log: obs.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle resolves operation (canonical name or accepted alias), rebuilds
// the manifest from sidecars, and evaluates the request. An unrecognized
// operation or a malformed parameter set returns a NotFound/ParseFailure
// UserError rather than panicking.
func (s *Server) Handle(ctx context.Context, operation string, params map[string]any) (any, *errors.UserError) {
	canonical, ok := canonicalOps[operation]
	if !ok {
		return nil, errors.New(errors.NotFound, errors.ExitNotFound,
			"unknown query operation", operation,
			"use one of: lookup_export, list_exports, file_info, dependency_graph, search, get_manifest (or an accepted alias)")
	}
	handler := handlers[canonical]
	return handler(s, params)
}

func (s *Server) loadManifest() (*manifest.Manifest, *errors.UserError) {
	m, err := manifest.LoadFromSidecars(s.root, s.ignore)
	if err != nil {
		return nil, errors.Wrap(errors.ReadFailure, errors.ExitInternal,
			"cannot rebuild manifest from sidecars", err.Error(),
			"check that the project root is readable", err)
	}
	return m, nil
}

func stringParam(params map[string]any, key string) string {
	v, _ := params[key].(string)
	return v
}

func intParam(params map[string]any, key string) (int, bool) {
	switch v := params[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// LookupExportResult is the shaped response for a found lookup_export.
type LookupExportResult struct {
	Path  string           `json:"path"`
	Entry manifestFileView `json:"entry"`
}

type manifestFileView struct {
	Exports      []string `json:"exports"`
	Imports      []string `json:"imports"`
	Dependencies []string `json:"dependencies"`
	LOC          int      `json:"loc"`
}

func (s *Server) handleLookupExport(params map[string]any) (any, *errors.UserError) {
	name := stringParam(params, "name")
	if name == "" {
		return nil, errors.New(errors.ParseFailure, errors.ExitInput,
			"lookup_export requires a name parameter", "", "pass {\"name\": \"<symbol>\"}")
	}
	m, uerr := s.loadManifest()
	if uerr != nil {
		return nil, uerr
	}
	path, ok := m.LookupExport(name)
	if !ok {
		return nil, errors.New(errors.NotFound, errors.ExitNotFound,
			"export not found", name, "check that a sidecar exporting this symbol exists under the project root")
	}
	entry, _ := m.FileInfo(path)
	return LookupExportResult{Path: path, Entry: toFileView(entry)}, nil
}

// ExportEntry is one (symbol, path) pair in a list_exports response.
type ExportEntry struct {
	Symbol string `json:"symbol"`
	Path   string `json:"path"`
}

func (s *Server) handleListExports(params map[string]any) (any, *errors.UserError) {
	pattern := stringParam(params, "pattern")
	file := stringParam(params, "file")
	m, uerr := s.loadManifest()
	if uerr != nil {
		return nil, uerr
	}
	matches := m.ListExports(pattern, file)
	out := make([]ExportEntry, len(matches))
	for i, mm := range matches {
		out[i] = ExportEntry{Symbol: mm.Symbol, Path: mm.Path}
	}
	return out, nil
}

func (s *Server) handleFileInfo(params map[string]any) (any, *errors.UserError) {
	file := stringParam(params, "file")
	if file == "" {
		return nil, errors.New(errors.ParseFailure, errors.ExitInput,
			"file_info requires a file parameter", "", "pass {\"file\": \"<relative path>\"}")
	}
	m, uerr := s.loadManifest()
	if uerr != nil {
		return nil, uerr
	}
	entry, ok := m.FileInfo(file)
	if !ok {
		return nil, errors.New(errors.NotFound, errors.ExitNotFound,
			"file not found in manifest", file, "check that this path was indexed and has a sidecar")
	}
	return toFileView(entry), nil
}

// DependencyGraphResult is the shaped response for dependency_graph.
type DependencyGraphResult struct {
	Upstream   []string `json:"upstream"`
	Downstream []string `json:"downstream"`
}

func (s *Server) handleDependencyGraph(params map[string]any) (any, *errors.UserError) {
	file := stringParam(params, "file")
	if file == "" {
		return nil, errors.New(errors.ParseFailure, errors.ExitInput,
			"dependency_graph requires a file parameter", "", "pass {\"file\": \"<relative path>\"}")
	}
	m, uerr := s.loadManifest()
	if uerr != nil {
		return nil, uerr
	}
	if _, ok := m.FileInfo(file); !ok {
		return nil, errors.New(errors.NotFound, errors.ExitNotFound,
			"file not found in manifest", file, "check that this path was indexed and has a sidecar")
	}
	return DependencyGraphResult{
		Upstream:   m.Dependencies(file),
		Downstream: m.Dependents(file),
	}, nil
}

// SearchEntry is one matching (path, entry) pair in a search response.
type SearchEntry struct {
	Path  string           `json:"path"`
	Entry manifestFileView `json:"entry"`
}

func (s *Server) handleSearch(params map[string]any) (any, *errors.UserError) {
	c := manifest.SearchCriteria{
		Export:    stringParam(params, "export"),
		Imports:   stringParam(params, "imports"),
		DependsOn: stringParam(params, "depends_on"),
	}
	if v, ok := intParam(params, "min_loc"); ok {
		c.MinLOC = &v
	}
	if v, ok := intParam(params, "max_loc"); ok {
		c.MaxLOC = &v
	}
	m, uerr := s.loadManifest()
	if uerr != nil {
		return nil, uerr
	}
	results := m.Search(c)
	out := make([]SearchEntry, len(results))
	for i, r := range results {
		out[i] = SearchEntry{Path: r.Path, Entry: toFileView(r.Entry)}
	}
	return out, nil
}

// GetManifestResult is the shaped response for get_manifest.
type GetManifestResult struct {
	Version string                      `json:"version"`
	Files   map[string]manifestFileView `json:"files"`
}

func (s *Server) handleGetManifest(_ map[string]any) (any, *errors.UserError) {
	m, uerr := s.loadManifest()
	if uerr != nil {
		return nil, uerr
	}
	files := make(map[string]manifestFileView, len(m.Paths()))
	for _, p := range m.Paths() {
		entry, _ := m.FileInfo(p)
		files[p] = toFileView(entry)
	}
	return GetManifestResult{Version: m.Version(), Files: files}, nil
}

func toFileView(e model.FileEntry) manifestFileView {
	return manifestFileView{
		Exports:      e.Exports,
		Imports:      e.Imports,
		Dependencies: e.Dependencies,
		LOC:          e.LOC,
	}
}
