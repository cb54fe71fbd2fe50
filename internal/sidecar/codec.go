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

// Package sidecar renders and parses the .fmm sidecar text format: a
// line-oriented form that resembles YAML but is read by literal prefix
// matching, never by a general YAML engine.
package sidecar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/srobinson/fmmd/internal/model"
)

// FormatVersion is the version tag current producers emit on the fmm:
// line.
const FormatVersion = "v0.2"

// Document is everything the codec renders to or parses from a sidecar
// file: the declared source path, the language-specific custom-field
// block, and the producer-time date stamp.
type Document struct {
	DeclaredPath string
	Metadata     model.Metadata
	LangID       string
	Custom       model.CustomFields
	Modified     string // YYYY-MM-DD
}

// Render produces the exact on-disk bytes for doc, per the field order,
// omission, and indentation rules: file, fmm, exports, imports,
// dependencies (array fields omitted when empty), loc and modified
// (always emitted), then the custom-field block (omitted when absent).
func Render(doc Document) string {
	var b strings.Builder

	fmt.Fprintf(&b, "file: %s\n", toSlash(doc.DeclaredPath))
	fmt.Fprintf(&b, "fmm: %s\n", FormatVersion)
	writeArrayLine(&b, "exports", doc.Metadata.Exports)
	writeArrayLine(&b, "imports", doc.Metadata.Imports)
	writeArrayLine(&b, "dependencies", doc.Metadata.Dependencies)
	fmt.Fprintf(&b, "loc: %d\n", doc.Metadata.LOC)
	fmt.Fprintf(&b, "modified: %s\n", doc.Modified)

	if len(doc.Custom) > 0 && doc.LangID != "" {
		fmt.Fprintf(&b, "%s:\n", doc.LangID)
		for _, key := range doc.Custom.SortedKeys() {
			field := doc.Custom[key]
			fmt.Fprintf(&b, "  %s: %s\n", key, renderFieldValue(field))
		}
	}

	return b.String()
}

func writeArrayLine(b *strings.Builder, name string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(b, "%s: [%s]\n", name, strings.Join(values, ", "))
}

func renderFieldValue(f model.Field) string {
	if f.IsArray {
		parts := make([]string, len(f.Array))
		for i, v := range f.Array {
			parts[i] = renderScalar(v)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return renderScalar(f.Scalar)
}

func renderScalar(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(t)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// Parse reads sidecar text by literal ASCII-prefix line matching, per
// §4.3. Non-matching lines and the custom-field block are ignored; the
// custom-field block only round-trips through disk, never through the
// aggregate index (see model.FileEntry).
//
// fallbackPath is used as the declared path when the file: line is
// absent or empty; if both are empty the sidecar is invalid.
func Parse(text string, fallbackPath string) (Document, bool) {
	var doc Document
	doc.Metadata = model.Metadata{}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		switch {
		case strings.HasPrefix(trimmed, "file: "):
			doc.DeclaredPath = strings.TrimPrefix(trimmed, "file: ")
		case strings.HasPrefix(trimmed, "fmm: "):
			// version tag, not surfaced on Document; kept for callers
			// that want it via the raw text if ever needed.
		case strings.HasPrefix(trimmed, "exports: "):
			doc.Metadata.Exports = parseInlineList(strings.TrimPrefix(trimmed, "exports: "))
		case strings.HasPrefix(trimmed, "imports: "):
			doc.Metadata.Imports = parseInlineList(strings.TrimPrefix(trimmed, "imports: "))
		case strings.HasPrefix(trimmed, "dependencies: "):
			doc.Metadata.Dependencies = parseInlineList(strings.TrimPrefix(trimmed, "dependencies: "))
		case strings.HasPrefix(trimmed, "loc: "):
			if n, err := strconv.Atoi(strings.TrimPrefix(trimmed, "loc: ")); err == nil {
				doc.Metadata.LOC = n
			}
		case strings.HasPrefix(trimmed, "modified: "):
			doc.Modified = strings.TrimPrefix(trimmed, "modified: ")
		}
	}

	if doc.DeclaredPath == "" {
		if fallbackPath == "" {
			return Document{}, false
		}
		doc.DeclaredPath = fallbackPath
	}
	return doc, true
}

// parseInlineList splits a "[a, b, c]" body into trimmed elements,
// returning nil (not an empty non-nil slice) for an absent bracket body
// and an empty slice for "[]".
func parseInlineList(s string) []string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return []string{}
	}
	parts := strings.Split(inner, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

// ExpectedRender computes what Render would write for a freshly parsed
// source, given the path it will be declared under and the date it is
// produced on — the "expected text" both update and validate compare
// against (§4.7).
func ExpectedRender(declaredPath string, metadata model.Metadata, langID string, custom model.CustomFields, date string) string {
	return Render(Document{
		DeclaredPath: declaredPath,
		Metadata:     metadata,
		LangID:       langID,
		Custom:       custom,
		Modified:     date,
	})
}

// NormalizeForCompare trims ASCII whitespace from both ends, matching
// the comparison rule update/validate use.
func NormalizeForCompare(s string) string {
	return strings.Trim(s, " \t\r\n")
}

// modifiedLinePattern matches a rendered "modified: <date>" line so it
// can be blanked out before comparison; anchored to line start since
// §4.3 never indents top-level fields.
var modifiedLinePattern = regexp.MustCompile(`(?m)^modified: .*$`)

// NormalizeIgnoringDate is NormalizeForCompare plus blanking of the
// modified: line, for validate's opt-in --ignore-date relaxation (§9's
// strict-by-default rule still applies unless a caller asks for this).
func NormalizeIgnoringDate(s string) string {
	return NormalizeForCompare(modifiedLinePattern.ReplaceAllString(s, "modified:"))
}
