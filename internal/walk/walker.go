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
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/srobinson/fmmd/internal/obs"
)

// Candidate is one source file discovered under a project root, ready
// for extraction.
type Candidate struct {
	// RelPath is root-relative, slash-separated.
	RelPath string
	// AbsPath is the filesystem path to read.
	AbsPath string
	// Ext is the extension (no leading dot).
	Ext string
	// Size is the file size in bytes, as seen during the walk.
	Size int64
}

// Walker discovers candidate source files under a root, filtering by
// extension allow-list, ignore rules, and a size gate.
type Walker struct {
	root        string
	extensions  map[string]bool
	maxFileSize int64
	ignore      *IgnoreSet
	log         *slog.Logger
}

// Option configures a Walker.
type Option func(*Walker)

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Walker) { w.log = obs.Or(l) }
}

// New constructs a Walker rooted at root, accepting the given
// extensions (no leading dot) and enforcing maxFileSize bytes (0
// disables the gate).
func New(root string, extensions []string, maxFileSize int64, ignore *IgnoreSet, opts ...Option) *Walker {
	extSet := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		extSet[strings.TrimPrefix(e, ".")] = true
	}
	w := &Walker{
		root:        root,
		extensions:  extSet,
		maxFileSize: maxFileSize,
		ignore:      ignore,
		log:         obs.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SkipFunc, when passed non-nil to Walk, is invoked for every file skipped solely for
// exceeding the size gate — callers use this to record P11 outcomes.
type SkipFunc func(relPath string, size int64)

// Walk discovers every candidate file under the root. onOversize, if
// non-nil, is called for each file skipped purely because it exceeded
// the configured max file size (as opposed to extension mismatch or
// ignore-rule exclusion, which are silent per §6).
func (w *Walker) Walk(onOversize SkipFunc) ([]Candidate, error) {
	var out []Candidate

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.log.Warn("walk.visit.error", "path", path, "err", err)
			return nil
		}
		if path == w.root {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if isReservedDir(d.Name()) || (w.ignore != nil && w.ignore.Match(rel, true)) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasSuffix(rel, ".fmm") {
			return nil
		}
		ext := strings.TrimPrefix(filepath.Ext(rel), ".")
		if !w.extensions[ext] {
			return nil
		}
		if w.ignore != nil && w.ignore.Match(rel, false) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			w.log.Warn("walk.stat.error", "path", rel, "err", infoErr)
			return nil
		}
		if w.maxFileSize > 0 && info.Size() > w.maxFileSize {
			if onOversize != nil {
				onOversize(rel, info.Size())
			}
			return nil
		}

		out = append(out, Candidate{
			RelPath: rel,
			AbsPath: path,
			Ext:     ext,
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func isReservedDir(name string) bool {
	return name == ".git" || name == ".fmm"
}
