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

package walk

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string, size int) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, make([]byte, size), 0o644))
}

func relPaths(cands []Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.RelPath
	}
	sort.Strings(out)
	return out
}

func TestWalk_FiltersByExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", 10)
	writeFile(t, root, "README.md", 10)

	w := New(root, []string{"go"}, 0, &IgnoreSet{})
	cands, err := w.Walk(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, relPaths(cands))
}

func TestWalk_SkipsReservedDirsAndSidecars(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", 10)
	writeFile(t, root, "main.go.fmm", 10)
	writeFile(t, root, ".git/objects/pack.go", 10)

	w := New(root, []string{"go"}, 0, &IgnoreSet{})
	cands, err := w.Walk(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, relPaths(cands))
}

func TestWalk_OversizeFilesReportedThenSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.go", 10)
	writeFile(t, root, "big.go", 5000)

	w := New(root, []string{"go"}, 1024, &IgnoreSet{})
	var skipped []string
	cands, err := w.Walk(func(relPath string, size int64) { skipped = append(skipped, relPath) })
	require.NoError(t, err)

	assert.Equal(t, []string{"small.go"}, relPaths(cands))
	assert.Equal(t, []string{"big.go"}, skipped)
}

func TestWalk_IgnoreSetExcludesMatchedPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.go", 10)
	writeFile(t, root, "vendor/dep.go", 10)

	set, err := loadIgnoreSetFromLines(root, "vendor/\n")
	require.NoError(t, err)

	w := New(root, []string{"go"}, 0, set)
	cands, err := w.Walk(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.go"}, relPaths(cands))
}

func loadIgnoreSetFromLines(root, contents string) (*IgnoreSet, error) {
	if err := os.WriteFile(filepath.Join(root, ".fmmignore"), []byte(contents), 0o644); err != nil {
		return nil, err
	}
	return LoadIgnoreSet(root)
}
