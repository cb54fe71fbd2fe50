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

package plugin

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/srobinson/fmmd/internal/extract"
	"github.com/srobinson/fmmd/internal/model"
	"github.com/srobinson/fmmd/internal/obs"
)

// Scope names a plugin search-path tier. Precedence when two plugins
// claim the same extension: Project beats User; built-in extractors
// beat User but never Project.
type Scope int

const (
	ScopeUser Scope = iota
	ScopeEnv
	ScopeProject
)

const (
	// DefaultParseTimeout bounds the main parse entry point.
	DefaultParseTimeout = 5 * time.Second
	// DefaultFieldsTimeout bounds the optional custom-fields entry point.
	DefaultFieldsTimeout = 2 * time.Second

	// EnvSearchPath is the one environment variable the core recognizes
	// for plugin discovery (§6), a PATH-style colon-separated list.
	EnvSearchPath = "FMMD_PLUGIN_PATH"
)

type discovered struct {
	path  string
	scope Scope
}

// Host discovers, loads, and dispatches to plugins across the three
// search-path scopes, enforcing the API-version gate, per-call
// timeouts, and permanent detachment of any plugin that times out.
type Host struct {
	userDir    string
	projectDir string
	log        *slog.Logger

	byExtension map[string]*boundPlugin
	detached    map[string]bool // keyed by Plugin.path
}

type boundPlugin struct {
	plugin *Plugin
	scope  Scope
}

// NewHost builds a host whose project scope is <root>/.fmmd/plugins and
// whose user scope is ~/.config/fmmd/plugins (or $XDG_CONFIG_HOME
// equivalent); the environment-variable scope is read from
// EnvSearchPath at Discover time.
func NewHost(root string, log *slog.Logger) *Host {
	return &Host{
		userDir:     userPluginDir(),
		projectDir:  filepath.Join(root, ".fmmd", "plugins"),
		log:         obs.Or(log),
		byExtension: make(map[string]*boundPlugin),
		detached:    make(map[string]bool),
	}
}

func userPluginDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "fmmd", "plugins")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "fmmd", "plugins")
}

// Discover walks every configured scope, loads each candidate shared
// object, and resolves extension ownership per the precedence rule.
// Load failures (missing symbols, bad handshake, version mismatch) are
// logged and skipped — a broken plugin never aborts discovery.
func (h *Host) Discover() {
	var found []discovered
	found = append(found, scanDir(h.userDir, ScopeUser)...)
	found = append(found, scanEnvPath(EnvSearchPath, ScopeEnv)...)
	found = append(found, scanDir(h.projectDir, ScopeProject)...)

	for _, d := range found {
		p, err := Load(d.path)
		if err != nil {
			h.log.Warn("plugin load failed", "path", d.path, "error", err)
			continue
		}
		h.bind(p, d.scope)
	}
}

func (h *Host) bind(p *Plugin, scope Scope) {
	for _, ext := range p.Handshake().Extensions {
		existing, ok := h.byExtension[ext]
		if !ok {
			h.byExtension[ext] = &boundPlugin{plugin: p, scope: scope}
			continue
		}
		// Project scope always wins; otherwise the first (user or env)
		// binding already present is left in place — env and user are
		// peers, neither overrides the other by specification, so the
		// one discovered first stands.
		if scope == ScopeProject && existing.scope != ScopeProject {
			h.byExtension[ext] = &boundPlugin{plugin: p, scope: scope}
		}
	}
}

// Overrides reports whether a plugin-bound extension should take
// precedence over a built-in extractor for the same extension: only
// true for a project-scope binding (§4.9).
func (h *Host) Overrides(ext string) bool {
	bp, ok := h.byExtension[ext]
	return ok && bp.scope == ScopeProject
}

// RegisterInto folds every discovered plugin into r, honoring §4.9's
// precedence: a project-scope plugin always registers (overriding a
// built-in if one already claims the extension); a user- or env-scope
// plugin registers only if r resolves none of its extensions, since
// built-ins take precedence over those two scopes. Such a plugin is not
// registered for any extension once one of them is taken. Call this after r has
// been populated with extract.NewBuiltinRegistry, never before.
func (h *Host) RegisterInto(r *extract.Registry) {
	seen := make(map[*Plugin]bool)
	for _, bp := range h.byExtension {
		if h.detached[bp.plugin.path] || seen[bp.plugin] {
			continue
		}
		seen[bp.plugin] = true
		adapter := &Adapter{host: h, plugin: bp.plugin}

		if bp.scope == ScopeProject {
			r.Register(adapter)
			continue
		}
		claimed := false
		for _, ext := range adapter.Extensions() {
			if _, exists := r.ResolveByExtension(ext); exists {
				claimed = true
				break
			}
		}
		if !claimed {
			r.Register(adapter)
		}
	}
}

// Extractor returns an extract.Extractor-shaped adapter for ext, or nil
// if no live (non-detached) plugin claims it.
func (h *Host) Extractor(ext string) *Adapter {
	bp, ok := h.byExtension[ext]
	if !ok || h.detached[bp.plugin.path] {
		return nil
	}
	return &Adapter{host: h, plugin: bp.plugin}
}

func (h *Host) isDetached(path string) bool { return h.detached[path] }

func (h *Host) detach(path string, reason error) {
	h.detached[path] = true
	h.log.Warn("plugin detached for remainder of process", "path", path, "error", reason)
}

// Adapter makes one bound plugin satisfy internal/extract.Extractor, so
// the registry can carry project-plugin extractors alongside built-ins
// without a parallel dispatch path.
type Adapter struct {
	host   *Host
	plugin *Plugin
}

func (a *Adapter) LanguageID() string   { return a.plugin.Handshake().Language }
func (a *Adapter) Extensions() []string { return a.plugin.Handshake().Extensions }

// Parse enforces the 5s/2.0s timeouts and crash isolation §4.9
// requires. A plugin call that exceeds its timeout, or that panics at
// the cgo boundary, detaches the plugin for the rest of the process and
// is surfaced as a fail-soft empty Metadata rather than an error — a
// genuine native crash inside the shared object is outside what Go's
// recover can intercept and takes the whole process down with it, same
// as any other cgo call; the timeout and panic guards here catch every
// failure mode short of that.
func (a *Adapter) Parse(source []byte) (model.Metadata, model.CustomFields, error) {
	if a.host.isDetached(a.plugin.path) {
		return model.Metadata{}, nil, nil
	}

	result, err := callWithTimeout(DefaultParseTimeout, func() (ParseResult, error) {
		return a.plugin.Parse(source)
	})
	if err != nil {
		a.host.detach(a.plugin.path, err)
		return model.Metadata{}, nil, nil
	}

	md := model.Metadata{
		Exports:      model.CanonicalStrings(result.Exports),
		Imports:      model.CanonicalStrings(result.Imports),
		Dependencies: model.CanonicalStrings(result.Dependencies),
		LOC:          result.LOC,
	}

	var custom model.CustomFields
	if a.plugin.SupportsCustomFields() {
		fields, ferr := callWithTimeout(DefaultFieldsTimeout, func() (map[string]any, error) {
			return a.plugin.CustomFields(source)
		})
		if ferr != nil {
			a.host.detach(a.plugin.path, ferr)
		} else if len(fields) > 0 {
			custom = toCustomFields(fields)
		}
	}
	return md, custom, nil
}

func toCustomFields(raw map[string]any) model.CustomFields {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(model.CustomFields, len(raw))
	for _, k := range keys {
		switch v := raw[k].(type) {
		case string:
			out[k] = model.StringField(v)
		case bool:
			out[k] = model.BoolField(v)
		case float64:
			out[k] = model.IntField(int(v))
		case []any:
			strs := make([]string, 0, len(v))
			for _, e := range v {
				if s, ok := e.(string); ok {
					strs = append(strs, s)
				}
			}
			out[k] = model.StringArrayField(strs)
		}
	}
	return out
}

// callWithTimeout runs fn on its own goroutine and returns a timeout
// error if it hasn't reported back within d. The goroutine is not
// killable (cgo calls can't be preempted), so a timed-out call still
// runs to completion in the background; the plugin is detached so its
// result is simply never looked at again once it does return.
func callWithTimeout[T any](d time.Duration, fn func() (T, error)) (T, error) {
	type outcome struct {
		val T
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				ch <- outcome{zero, panicError{r}}
			}
		}()
		v, err := fn()
		ch <- outcome{v, err}
	}()

	select {
	case o := <-ch:
		return o.val, o.err
	case <-time.After(d):
		var zero T
		return zero, timeoutError{}
	}
}

type panicError struct{ v any }

func (p panicError) Error() string { return "fmmd: plugin call panicked" }

type timeoutError struct{}

func (timeoutError) Error() string { return "fmmd: plugin call exceeded its deadline" }

func scanDir(dir string, scope Scope) []discovered {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []discovered
	for _, e := range entries {
		if e.IsDir() || !isSharedObject(e.Name()) {
			continue
		}
		out = append(out, discovered{path: filepath.Join(dir, e.Name()), scope: scope})
	}
	return out
}

func scanEnvPath(envVar string, scope Scope) []discovered {
	val := os.Getenv(envVar)
	if val == "" {
		return nil
	}
	var out []discovered
	for _, dir := range filepath.SplitList(val) {
		out = append(out, scanDir(dir, scope)...)
	}
	return out
}

func isSharedObject(name string) bool {
	switch filepath.Ext(name) {
	case ".so", ".dylib", ".dll":
		return true
	default:
		return false
	}
}
