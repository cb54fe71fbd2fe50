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

// CSharpExtractor handles .cs sources with the same line-scanner strategy
// as JavaExtractor (see lang_java.go).
type CSharpExtractor struct{}

// NewCSharpExtractor constructs the C# extractor.
func NewCSharpExtractor() *CSharpExtractor { return &CSharpExtractor{} }

func (e *CSharpExtractor) LanguageID() string { return "csharp" }

func (e *CSharpExtractor) Extensions() []string { return []string{"cs"} }

var (
	csPublicTypeRe  = regexp.MustCompile(`^\s*public\s+(?:sealed\s+|abstract\s+|static\s+|partial\s+)*(?:class|interface|enum|struct|record)\s+([A-Za-z_]\w*)`)
	csNamespaceRe   = regexp.MustCompile(`^\s*namespace\s+([\w.]+)`)
	csUsingRe       = regexp.MustCompile(`^\s*using\s+(?:static\s+)?([\w.]+)\s*;`)
	csAttributeRe   = regexp.MustCompile(`\[([A-Za-z_]\w*)`)
)

// csWellKnownPrefixes are using-directives treated as ecosystem imports
// rather than project-local dependencies, per the same "first segment"
// classification approach used for Python and Go.
var csWellKnownPrefixes = map[string]bool{
	"System": true, "Microsoft": true, "Newtonsoft": true,
}

func (e *CSharpExtractor) Parse(source []byte) (model.Metadata, model.CustomFields, error) {
	loc := countLOC(source)

	var exports, imports, deps []string
	namespaceSet := map[string]struct{}{}
	var namespaces []string
	attrSet := map[string]struct{}{}
	var attributes []string
	var pending []string

	scanner := bufio.NewScanner(strings.NewReader(string(source)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if m := csUsingRe.FindStringSubmatch(line); m != nil {
			path := m[1]
			if csWellKnownPrefixes[firstSegment(path)] {
				imports = append(imports, path)
			} else {
				deps = append(deps, path)
			}
			pending = nil
			continue
		}

		if m := csNamespaceRe.FindStringSubmatch(line); m != nil {
			if _, ok := namespaceSet[m[1]]; !ok {
				namespaceSet[m[1]] = struct{}{}
				namespaces = append(namespaces, m[1])
			}
			pending = nil
			continue
		}

		if strings.HasPrefix(trimmed, "[") {
			for _, a := range csAttributeRe.FindAllStringSubmatch(trimmed, -1) {
				pending = append(pending, a[1])
			}
			continue
		}

		if m := csPublicTypeRe.FindStringSubmatch(line); m != nil {
			exports = append(exports, m[1])
			for _, a := range pending {
				if _, ok := attrSet[a]; !ok {
					attrSet[a] = struct{}{}
					attributes = append(attributes, a)
				}
			}
			pending = nil
			continue
		}

		if trimmed != "" {
			pending = nil
		}
	}

	custom := model.CustomFields{}
	if len(namespaces) > 0 {
		custom["namespaces"] = model.StringArrayField(namespaces)
	}
	if len(attributes) > 0 {
		custom["attributes"] = model.StringArrayField(attributes)
	}
	if len(custom) == 0 {
		custom = nil
	}

	return model.Metadata{
		Exports:      model.CanonicalStrings(exports),
		Imports:      model.CanonicalStrings(imports),
		Dependencies: model.CanonicalStrings(deps),
		LOC:          loc,
	}, custom, nil
}
