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
	"bufio"
	"regexp"
	"strings"

	"github.com/srobinson/fmmd/internal/model"
)

// RubyExtractor handles .rb sources with a line scanner that tracks
// top-level nesting depth via def/class/module...end pairs, the same
// predecessor-to-tree-sitter strategy used for Rust and Java.
type RubyExtractor struct{}

// NewRubyExtractor constructs the Ruby extractor.
func NewRubyExtractor() *RubyExtractor { return &RubyExtractor{} }

func (e *RubyExtractor) LanguageID() string { return "ruby" }

func (e *RubyExtractor) Extensions() []string { return []string{"rb"} }

var (
	rubyClassModuleRe = regexp.MustCompile(`^\s*(?:class|module)\s+([A-Za-z_][\w:]*)`)
	rubyDefRe         = regexp.MustCompile(`^\s*def\s+(?:self\.)?([A-Za-z_]\w*[?!=]?)`)
	rubyRequireRe     = regexp.MustCompile(`^\s*require\s+['"]([^'"]+)['"]`)
	rubyRequireRelRe  = regexp.MustCompile(`^\s*require_relative\s+['"]([^'"]+)['"]`)
	rubyMixinRe       = regexp.MustCompile(`^\s*(?:include|extend|prepend)\s+([A-Za-z_][\w:]*)`)
	rubyBlockOpenRe   = regexp.MustCompile(`\b(?:def|class|module|do|if|unless|case|while|until|begin)\b`)
	rubyBlockEndRe    = regexp.MustCompile(`^\s*end\b`)
)

func (e *RubyExtractor) Parse(source []byte) (model.Metadata, model.CustomFields, error) {
	loc := countLOC(source)

	var exports, imports, deps []string
	mixinSet := map[string]struct{}{}
	var mixins []string

	depth := 0
	scanner := bufio.NewScanner(strings.NewReader(string(source)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if m := rubyRequireRe.FindStringSubmatch(line); m != nil {
			imports = append(imports, m[1])
		} else if m := rubyRequireRelRe.FindStringSubmatch(line); m != nil {
			deps = append(deps, m[1])
		} else if m := rubyMixinRe.FindStringSubmatch(line); m != nil {
			if _, ok := mixinSet[m[1]]; !ok {
				mixinSet[m[1]] = struct{}{}
				mixins = append(mixins, m[1])
			}
		} else if depth == 0 {
			if m := rubyClassModuleRe.FindStringSubmatch(line); m != nil {
				name := m[1]
				if !strings.HasPrefix(lastSegment(name, "::"), "_") {
					exports = append(exports, name)
				}
			} else if m := rubyDefRe.FindStringSubmatch(line); m != nil {
				name := m[1]
				if !strings.HasPrefix(name, "_") {
					exports = append(exports, name)
				}
			}
		}

		if rubyBlockEndRe.MatchString(line) {
			if depth > 0 {
				depth--
			}
			continue
		}
		if rubyBlockOpenRe.MatchString(trimmed) && !isRubyModifierForm(trimmed) {
			depth++
		}
	}

	var custom model.CustomFields
	if len(mixins) > 0 {
		custom = model.CustomFields{"mixins": model.StringArrayField(mixins)}
	}

	return model.Metadata{
		Exports:      model.CanonicalStrings(exports),
		Imports:      model.CanonicalStrings(imports),
		Dependencies: model.CanonicalStrings(deps),
		LOC:          loc,
	}, custom, nil
}

// isRubyModifierForm reports whether a line using if/unless/while/until
// is a trailing statement modifier ("return x if y") rather than a block
// opener, which would otherwise overcount nesting depth.
func isRubyModifierForm(line string) bool {
	for _, kw := range []string{"if", "unless", "while", "until"} {
		if strings.HasPrefix(line, kw+" ") || line == kw {
			return false
		}
	}
	return strings.Contains(line, " if ") || strings.Contains(line, " unless ") ||
		strings.Contains(line, " while ") || strings.Contains(line, " until ")
}

func lastSegment(name, sep string) string {
	idx := strings.LastIndex(name, sep)
	if idx < 0 {
		return name
	}
	return name[idx+len(sep):]
}
