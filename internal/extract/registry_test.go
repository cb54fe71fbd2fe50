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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srobinson/fmmd/internal/model"
)

type stubExtractor struct {
	lang string
	exts []string
}

func (s *stubExtractor) LanguageID() string   { return s.lang }
func (s *stubExtractor) Extensions() []string { return s.exts }
func (s *stubExtractor) Parse(source []byte) (model.Metadata, model.CustomFields, error) {
	return model.Metadata{}, nil, nil
}

func TestRegistry_ResolveByExtensionAndLanguage(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{lang: "fake", exts: []string{"fk", "fake"}})

	e, ok := r.ResolveByExtension("fk")
	require.True(t, ok)
	assert.Equal(t, "fake", e.LanguageID())

	e, ok = r.ResolveByLanguage("fake")
	require.True(t, ok)
	assert.Equal(t, "fake", e.LanguageID())

	_, ok = r.ResolveByExtension("missing")
	assert.False(t, ok)
}

func TestRegistry_LaterRegistrationOverridesExtension(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{lang: "first", exts: []string{"x"}})
	r.Register(&stubExtractor{lang: "second", exts: []string{"x"}})

	e, _ := r.ResolveByExtension("x")
	assert.Equal(t, "second", e.LanguageID())
}

func TestRegistry_SupportedExtensionsAndLanguagesAreSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{lang: "zzz", exts: []string{"z"}})
	r.Register(&stubExtractor{lang: "aaa", exts: []string{"a"}})

	assert.Equal(t, []string{"a", "z"}, r.SupportedExtensions())
	assert.Equal(t, []string{"aaa", "zzz"}, r.SupportedLanguages())
}

func TestNewBuiltinRegistry_RegistersEveryLanguageTableRow(t *testing.T) {
	r := NewBuiltinRegistry()
	for _, ext := range []string{"go", "ts", "tsx", "js", "jsx", "py", "rs", "java", "cpp", "cs", "rb"} {
		_, ok := r.ResolveByExtension(ext)
		assert.True(t, ok, "extension %q must resolve to a built-in extractor", ext)
	}
}
