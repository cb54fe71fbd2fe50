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

// Package walk discovers candidate source files under a project root,
// honoring ignore rules and extension/size gates. It does not run
// extraction; internal/service does that.
package walk

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// pattern is one parsed ignore rule.
type pattern struct {
	raw       string
	negate    bool
	directory bool
	anchored  bool // had a leading "/" — matches only from the ignore file's directory
}

// IgnoreSet matches relative paths against the patterns loaded from a
// project's .fmmignore and VCS ignore file (§6). Both files are read
// from root only — per-directory ignore files are not part of this
// producer's contract.
type IgnoreSet struct {
	patterns []pattern
}

// LoadIgnoreSet reads <root>/.fmmignore and <root>/.gitignore, in that
// order, and returns the combined rule set. A missing file of either
// kind is not an error.
func LoadIgnoreSet(root string) (*IgnoreSet, error) {
	set := &IgnoreSet{}
	for _, name := range []string{".fmmignore", ".gitignore"} {
		if err := set.load(filepath.Join(root, name)); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func (s *IgnoreSet) load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.patterns = append(s.patterns, parsePattern(line))
	}
	return scanner.Err()
}

func parsePattern(line string) pattern {
	p := pattern{}
	if strings.HasPrefix(line, "!") {
		p.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.directory = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.anchored = true
		line = line[1:]
	}
	p.raw = line
	return p
}

// Match reports whether relPath (slash-separated, relative to root)
// should be ignored. isDir indicates whether relPath names a directory.
func (s *IgnoreSet) Match(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)
	ignored := false
	for _, p := range s.patterns {
		if p.directory && !isDir && !s.withinIgnoredDir(p, relPath) {
			continue
		}
		if matchIgnorePattern(p, relPath) {
			ignored = !p.negate
		}
	}
	return ignored
}

func (s *IgnoreSet) withinIgnoredDir(p pattern, relPath string) bool {
	glob := p.raw
	if !p.anchored {
		glob = "**/" + glob
	}
	parts := strings.Split(relPath, "/")
	for i := range parts {
		prefix := strings.Join(parts[:i+1], "/")
		if ok, _ := doublestar.Match(glob, prefix); ok {
			return true
		}
	}
	return false
}

func matchIgnorePattern(p pattern, relPath string) bool {
	glob := p.raw
	if strings.Contains(glob, "/") || p.anchored {
		if !p.anchored {
			glob = "**/" + glob
		}
		if ok, _ := doublestar.Match(glob, relPath); ok {
			return true
		}
		if p.directory {
			if ok, _ := doublestar.Match(glob+"/**", relPath); ok {
				return true
			}
		}
		return false
	}

	// No slash and not anchored: gitignore semantics match the
	// pattern against any path component.
	base := filepath.Base(relPath)
	if ok, _ := doublestar.Match(glob, base); ok {
		return true
	}
	parts := strings.Split(relPath, "/")
	for i := range parts {
		sub := strings.Join(parts[i:], "/")
		if ok, _ := doublestar.Match(glob, sub); ok {
			return true
		}
		if ok, _ := doublestar.Match(glob+"/**", sub); ok {
			return true
		}
	}
	return false
}
