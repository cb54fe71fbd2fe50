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
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/srobinson/fmmd/internal/sidecar"
	"github.com/srobinson/fmmd/internal/walk"
)

// watchSkipDirs are never watched — noisy and irrelevant to source
// changes.
var watchSkipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true,
	"dist": true, "build": true, ".fmm": true, "bin": true,
}

const watchDebounce = 2 * time.Second

// Watcher drives a debounced re-update loop over a project root: file
// system events coalesce for watchDebounce before a single Update pass
// runs, avoiding redundant re-extraction during a burst of saves.
type Watcher struct {
	svc    *Service
	root   string
	config sidecar.Config
	ignore *walk.IgnoreSet

	mu         sync.Mutex
	inProgress bool
	lastReport *Report
}

// NewWatcher constructs a Watcher for root using config and ignore to
// resolve the same candidate set generate/update/validate would use.
func NewWatcher(svc *Service, root string, config sidecar.Config, ignore *walk.IgnoreSet) *Watcher {
	return &Watcher{svc: svc, root: root, config: config, ignore: ignore}
}

// Run blocks, watching root and re-running Update on debounced change
// bursts, until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := w.addDirs(fsw); err != nil {
		return err
	}

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if strings.HasSuffix(event.Name, ".fmm") {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(watchDebounce)
			timerCh = timer.C
		case _, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
		case <-timerCh:
			timerCh = nil
			w.reindex(ctx)
		}
	}
}

func (w *Watcher) addDirs(fsw *fsnotify.Watcher) error {
	return filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if watchSkipDirs[base] || (strings.HasPrefix(base, ".") && base != filepath.Base(w.root)) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil && os.IsPermission(err) {
			return filepath.SkipDir
		}
		return nil
	})
}

func (w *Watcher) reindex(ctx context.Context) {
	w.mu.Lock()
	if w.inProgress {
		w.mu.Unlock()
		return
	}
	w.inProgress = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.inProgress = false
		w.mu.Unlock()
	}()

	walker := walk.New(w.root, w.config.Languages, w.config.MaxFileSizeBytes(), w.ignore)
	cands, err := walker.Walk(nil)
	if err != nil {
		w.svc.log.Warn("service.watch.walk_failed", "err", err)
		return
	}

	report := w.svc.Update(ctx, w.root, cands, false)
	w.mu.Lock()
	w.lastReport = report
	w.mu.Unlock()
	w.svc.log.Info("service.watch.reindex.complete", "files", len(report.Entries))
}

// LastReport returns the most recent reindex report, or nil if none has
// completed yet.
func (w *Watcher) LastReport() *Report {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastReport
}
