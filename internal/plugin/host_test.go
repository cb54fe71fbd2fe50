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
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srobinson/fmmd/internal/extract"
	"github.com/srobinson/fmmd/internal/model"
)

// fakeBuiltin is a minimal extract.Extractor stand-in for precedence
// tests that never parse anything.
type fakeBuiltin struct {
	lang string
	exts []string
}

func (f *fakeBuiltin) LanguageID() string   { return f.lang }
func (f *fakeBuiltin) Extensions() []string { return f.exts }
func (f *fakeBuiltin) Parse(source []byte) (model.Metadata, model.CustomFields, error) {
	return model.Metadata{}, nil, nil
}

// fakePlugin builds an unloaded *Plugin carrying only a handshake, for
// exercising bind/RegisterInto precedence without a real shared object.
func fakePlugin(t *testing.T, path, language string, exts []string) *Plugin {
	t.Helper()
	return &Plugin{
		path:      path,
		handshake: Handshake{Name: path, Language: language, Extensions: exts, APIVersion: APIVersion},
	}
}

func newTestHost(t *testing.T) *Host {
	t.Helper()
	return &Host{
		byExtension: make(map[string]*boundPlugin),
		detached:    make(map[string]bool),
	}
}

func TestIsSharedObject_RecognizesPlatformExtensions(t *testing.T) {
	assert.True(t, isSharedObject("libthing.so"))
	assert.True(t, isSharedObject("libthing.dylib"))
	assert.True(t, isSharedObject("thing.dll"))
	assert.False(t, isSharedObject("thing.txt"))
	assert.False(t, isSharedObject("thing"))
}

func TestScanDir_FindsOnlySharedObjects(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.so"), []byte{}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte{}, 0o644))

	found := scanDir(dir, ScopeUser)
	require.Len(t, found, 1)
	assert.Equal(t, filepath.Join(dir, "plugin.so"), found[0].path)
	assert.Equal(t, ScopeUser, found[0].scope)
}

func TestScanDir_MissingDirYieldsNil(t *testing.T) {
	assert.Nil(t, scanDir(filepath.Join(t.TempDir(), "does-not-exist"), ScopeUser))
	assert.Nil(t, scanDir("", ScopeUser))
}

func TestScanEnvPath_SplitsColonSeparatedDirs(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(a, "x.so"), []byte{}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(b, "y.so"), []byte{}, 0o644))

	t.Setenv("FMMD_TEST_PLUGIN_PATH", a+string(os.PathListSeparator)+b)
	found := scanEnvPath("FMMD_TEST_PLUGIN_PATH", ScopeEnv)
	require.Len(t, found, 2)
}

func TestHostBind_ProjectScopeOverridesUserScope(t *testing.T) {
	h := newTestHost(t)
	userPlugin := fakePlugin(t, "/user/p.so", "fake", []string{"fk"})
	projectPlugin := fakePlugin(t, "/project/p.so", "fake2", []string{"fk"})

	h.bind(userPlugin, ScopeUser)
	h.bind(projectPlugin, ScopeProject)

	assert.True(t, h.Overrides("fk"))
	assert.Same(t, projectPlugin, h.byExtension["fk"].plugin)
}

func TestHostBind_EnvAndUserArePeersFirstWins(t *testing.T) {
	h := newTestHost(t)
	first := fakePlugin(t, "/user/p.so", "fake", []string{"fk"})
	second := fakePlugin(t, "/env/p.so", "fake2", []string{"fk"})

	h.bind(first, ScopeUser)
	h.bind(second, ScopeEnv)

	assert.Same(t, first, h.byExtension["fk"].plugin)
	assert.False(t, h.Overrides("fk"), "a user/env binding never overrides a built-in")
}

func TestHostBind_ProjectNeverLosesToALaterUserBinding(t *testing.T) {
	h := newTestHost(t)
	projectPlugin := fakePlugin(t, "/project/p.so", "fake", []string{"fk"})
	laterUser := fakePlugin(t, "/user/p.so", "fake2", []string{"fk"})

	h.bind(projectPlugin, ScopeProject)
	h.bind(laterUser, ScopeUser)

	assert.Same(t, projectPlugin, h.byExtension["fk"].plugin)
}

func TestRegisterInto_ProjectScopeOverridesBuiltin(t *testing.T) {
	h := newTestHost(t)
	reg := extract.NewRegistry()
	reg.Register(&fakeBuiltin{lang: "builtin", exts: []string{"fk"}})

	h.bind(fakePlugin(t, "/project/p.so", "fromplugin", []string{"fk"}), ScopeProject)
	h.RegisterInto(reg)

	e, ok := reg.ResolveByExtension("fk")
	require.True(t, ok)
	assert.Equal(t, "fromplugin", e.LanguageID())
}

func TestRegisterInto_UserScopeNeverOverridesBuiltin(t *testing.T) {
	h := newTestHost(t)
	reg := extract.NewRegistry()
	reg.Register(&fakeBuiltin{lang: "builtin", exts: []string{"fk"}})

	h.bind(fakePlugin(t, "/user/p.so", "fromplugin", []string{"fk"}), ScopeUser)
	h.RegisterInto(reg)

	e, ok := reg.ResolveByExtension("fk")
	require.True(t, ok)
	assert.Equal(t, "builtin", e.LanguageID())
}

func TestRegisterInto_UserScopeFillsUnclaimedExtension(t *testing.T) {
	h := newTestHost(t)
	reg := extract.NewRegistry()

	h.bind(fakePlugin(t, "/user/p.so", "fromplugin", []string{"zz"}), ScopeUser)
	h.RegisterInto(reg)

	e, ok := reg.ResolveByExtension("zz")
	require.True(t, ok)
	assert.Equal(t, "fromplugin", e.LanguageID())
}

func TestRegisterInto_SkipsDetachedPlugins(t *testing.T) {
	h := newTestHost(t)
	reg := extract.NewRegistry()

	p := fakePlugin(t, "/project/p.so", "fromplugin", []string{"fk"})
	h.bind(p, ScopeProject)
	h.detach(p.path, errors.New("boom"))
	h.RegisterInto(reg)

	_, ok := reg.ResolveByExtension("fk")
	assert.False(t, ok)
}

func TestHostExtractor_NilWhenUnboundOrDetached(t *testing.T) {
	h := newTestHost(t)
	assert.Nil(t, h.Extractor("fk"))

	p := fakePlugin(t, "/project/p.so", "fromplugin", []string{"fk"})
	h.bind(p, ScopeProject)
	assert.NotNil(t, h.Extractor("fk"))

	h.detach(p.path, errors.New("boom"))
	assert.Nil(t, h.Extractor("fk"))
}

func TestCallWithTimeout_ReturnsResultWhenFast(t *testing.T) {
	v, err := callWithTimeout(50*time.Millisecond, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestCallWithTimeout_TimesOutOnSlowCall(t *testing.T) {
	_, err := callWithTimeout(10*time.Millisecond, func() (int, error) {
		time.Sleep(100 * time.Millisecond)
		return 1, nil
	})
	require.Error(t, err)
	assert.IsType(t, timeoutError{}, err)
}

func TestCallWithTimeout_RecoversPanicAsError(t *testing.T) {
	_, err := callWithTimeout(50*time.Millisecond, func() (int, error) {
		panic("boom")
	})
	require.Error(t, err)
	assert.IsType(t, panicError{}, err)
}

func TestToCustomFields_ConvertsEachJSONTypeAndSortsKeys(t *testing.T) {
	raw := map[string]any{
		"name":    "widget",
		"active":  true,
		"count":   float64(3),
		"tags":    []any{"a", "b"},
		"unknown": map[string]any{"x": 1},
	}
	fields := toCustomFields(raw)

	assert.Equal(t, []string{"active", "count", "name", "tags"}, fields.SortedKeys())
	assert.Equal(t, "widget", fields["name"].Scalar)
	assert.Equal(t, true, fields["active"].Scalar)
	assert.Equal(t, int64(3), fields["count"].Scalar)
	assert.Equal(t, []any{"a", "b"}, fields["tags"].Array)
}
