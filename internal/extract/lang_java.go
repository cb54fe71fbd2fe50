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

// JavaExtractor handles .java sources with a line scanner, the same
// predecessor-to-tree-sitter strategy used for Rust (see lang_rust.go).
type JavaExtractor struct{}

// NewJavaExtractor constructs the Java extractor.
func NewJavaExtractor() *JavaExtractor { return &JavaExtractor{} }

func (e *JavaExtractor) LanguageID() string { return "java" }

func (e *JavaExtractor) Extensions() []string { return []string{"java"} }

var (
	javaPublicTypeRe = regexp.MustCompile(`^\s*public\s+(?:final\s+|abstract\s+|static\s+)*(?:class|interface|enum)\s+([A-Za-z_]\w*)`)
	javaAnnotationRe = regexp.MustCompile(`@([A-Za-z_]\w*)`)
	javaImportRe     = regexp.MustCompile(`^\s*import\s+(?:static\s+)?([\w.]+)\s*;`)
)

func (e *JavaExtractor) Parse(source []byte) (model.Metadata, model.CustomFields, error) {
	loc := countLOC(source)

	var exports, imports []string
	annotationSet := map[string]struct{}{}
	var annotations []string
	var pending []string

	scanner := bufio.NewScanner(strings.NewReader(string(source)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if m := javaImportRe.FindStringSubmatch(line); m != nil {
			imports = append(imports, javaPackageWithoutClass(m[1]))
			pending = nil
			continue
		}

		if anns := javaAnnotationRe.FindAllStringSubmatch(trimmed, -1); len(anns) > 0 && strings.HasPrefix(trimmed, "@") {
			for _, a := range anns {
				pending = append(pending, a[1])
			}
			continue
		}

		if m := javaPublicTypeRe.FindStringSubmatch(line); m != nil {
			exports = append(exports, m[1])
			for _, a := range pending {
				if _, ok := annotationSet[a]; !ok {
					annotationSet[a] = struct{}{}
					annotations = append(annotations, a)
				}
			}
			pending = nil
			continue
		}

		if trimmed != "" {
			pending = nil
		}
	}

	var custom model.CustomFields
	if len(annotations) > 0 {
		custom = model.CustomFields{"annotations": model.StringArrayField(annotations)}
	}

	return model.Metadata{
		Exports:      model.CanonicalStrings(exports),
		Imports:      model.CanonicalStrings(imports),
		Dependencies: nil,
		LOC:          loc,
	}, custom, nil
}

// javaPackageWithoutClass drops the terminal segment of a dotted import
// path, e.g. "java.util.List" -> "java.util".
func javaPackageWithoutClass(dotted string) string {
	idx := strings.LastIndexByte(dotted, '.')
	if idx < 0 {
		return dotted
	}
	return dotted[:idx]
}
