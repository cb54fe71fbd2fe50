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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileYieldsDefaults(t *testing.T) {
	root := t.TempDir()
	cfg, err := LoadConfig(root)
	require.NoError(t, err)
	assert.Equal(t, DefaultLanguages, cfg.Languages)
	assert.Equal(t, int64(DefaultMaxFileSizeKB*1024), cfg.MaxFileSizeBytes())
}

func TestLoadConfig_JSONOverridesLanguagesOnly(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".fmmrc.json"), []byte(`{"languages": ["go", "rs"]}`), 0o644))

	cfg, err := LoadConfig(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "rs"}, cfg.Languages)
	assert.Equal(t, int64(DefaultMaxFileSizeKB*1024), cfg.MaxFileSizeBytes(), "unset fields still normalize to defaults")
}

func TestLoadConfig_YAMLFallbackWhenJSONAbsent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".fmmrc.yaml"), []byte("languages: [py]\nmax_file_size: 256\n"), 0o644))

	cfg, err := LoadConfig(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"py"}, cfg.Languages)
	assert.Equal(t, int64(256*1024), cfg.MaxFileSizeBytes())
}

func TestLoadConfig_JSONTakesPrecedenceOverYAML(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".fmmrc.json"), []byte(`{"languages": ["go"]}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".fmmrc.yaml"), []byte("languages: [py]\n"), 0o644))

	cfg, err := LoadConfig(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, cfg.Languages)
}

func TestMaxFileSizeBytes_ZeroDisablesGate(t *testing.T) {
	zero := 0
	cfg := Config{MaxFileSizeKB: &zero}
	assert.Equal(t, int64(0), cfg.MaxFileSizeBytes())
}

func TestLoadConfig_MalformedJSONErrors(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".fmmrc.json"), []byte(`{not json`), 0o644))

	_, err := LoadConfig(root)
	assert.Error(t, err)
}
