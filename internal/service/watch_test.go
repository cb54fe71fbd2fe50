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

package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srobinson/fmmd/internal/sidecar"
	"github.com/srobinson/fmmd/internal/walk"
)

func TestWatcher_LastReportNilBeforeFirstReindex(t *testing.T) {
	s, _ := newTestService(t, 1)
	w := NewWatcher(s, t.TempDir(), sidecar.Config{Languages: []string{"fk"}}, &walk.IgnoreSet{})
	assert.Nil(t, w.LastReport())
}

func TestWatcher_ReindexPopulatesLastReport(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.fk"), []byte("source"), 0o644))

	s, _ := newTestService(t, 1)
	w := NewWatcher(s, root, sidecar.Config{Languages: []string{"fk"}}, &walk.IgnoreSet{})

	w.reindex(context.Background())

	report := w.LastReport()
	require.NotNil(t, report)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, OutcomeCreated, report.Entries[0].Outcome)
}

func TestWatcher_ReindexSkipsWhenAlreadyInProgress(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.fk"), []byte("source"), 0o644))

	s, _ := newTestService(t, 1)
	w := NewWatcher(s, root, sidecar.Config{Languages: []string{"fk"}}, &walk.IgnoreSet{})

	w.mu.Lock()
	w.inProgress = true
	w.mu.Unlock()

	w.reindex(context.Background())
	assert.Nil(t, w.LastReport(), "a reindex that finds inProgress already set must be a no-op")
}

func TestWatcher_AddDirsSkipsReservedDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "pkg"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))

	s, _ := newTestService(t, 1)
	w := NewWatcher(s, root, sidecar.Config{}, &walk.IgnoreSet{})

	fsw, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer fsw.Close()

	require.NoError(t, w.addDirs(fsw))
	assert.Contains(t, fsw.WatchList(), root)
	assert.Contains(t, fsw.WatchList(), filepath.Join(root, "src"))
	assert.NotContains(t, fsw.WatchList(), filepath.Join(root, "node_modules"))
	assert.NotContains(t, fsw.WatchList(), filepath.Join(root, "node_modules", "pkg"))
}
