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
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/srobinson/fmmd/internal/model"
)

// TypeScriptExtractor handles ts, tsx, js, and jsx sources. All four
// extensions share one classification rule (§4.2) and parse with the
// typescript grammar, which is a syntactic superset of plain JavaScript;
// the tie-break in §4.6 is what actually distinguishes ts/tsx from
// js/jsx, not the parse strategy.
type TypeScriptExtractor struct {
	pool *sitterPool
}

// NewTypeScriptExtractor constructs the TS/JS extractor.
func NewTypeScriptExtractor() *TypeScriptExtractor {
	return &TypeScriptExtractor{
		pool: newSitterPool(func() *sitter.Language { return typescript.GetLanguage() }),
	}
}

func (e *TypeScriptExtractor) LanguageID() string { return "typescript" }

func (e *TypeScriptExtractor) Extensions() []string { return []string{"ts", "tsx", "js", "jsx"} }

func (e *TypeScriptExtractor) Parse(source []byte) (model.Metadata, model.CustomFields, error) {
	loc := countLOC(source)

	tree, release, err := e.pool.parse(source)
	if err != nil {
		return model.Metadata{LOC: loc}, nil, nil
	}
	defer release()
	defer tree.Close()

	root := tree.RootNode()
	var exports, imports, deps []string

	walk(root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "export_statement":
			exports = append(exports, tsExportNames(n, source)...)
			return false
		case "import_statement":
			spec := tsImportSource(n, source)
			if spec != "" {
				if isLocalSpecifier(spec) {
					deps = append(deps, spec)
				} else {
					imports = append(imports, spec)
				}
			}
		}
		return true
	})

	return model.Metadata{
		Exports:      model.CanonicalStrings(exports),
		Imports:      model.CanonicalStrings(imports),
		Dependencies: model.CanonicalStrings(deps),
		LOC:          loc,
	}, nil, nil
}

// isLocalSpecifier implements the TS/JS dependency rule: a specifier
// starting with "." or "/" names a file inside the project tree.
func isLocalSpecifier(spec string) bool {
	return strings.HasPrefix(spec, ".") || strings.HasPrefix(spec, "/")
}

// tsExportNames expands one export_statement into the names it makes
// publicly visible: named export lists expand to their names, default
// exports contribute "default", and declaration exports contribute the
// declared identifier(s).
func tsExportNames(n *sitter.Node, source []byte) []string {
	var names []string
	isDefault := false
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "default":
			isDefault = true
		case "export_clause":
			for j := 0; j < int(child.ChildCount()); j++ {
				spec := child.Child(j)
				if spec.Type() != "export_specifier" {
					continue
				}
				name := nodeText(spec, source)
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					name = nodeText(alias, source)
				} else if nm := spec.ChildByFieldName("name"); nm != nil {
					name = nodeText(nm, source)
				}
				if name != "" {
					names = append(names, name)
				}
			}
		case "function_declaration", "class_declaration", "interface_declaration",
			"type_alias_declaration", "enum_declaration", "abstract_class_declaration":
			if nm := child.ChildByFieldName("name"); nm != nil {
				names = append(names, nodeText(nm, source))
			}
		case "lexical_declaration", "variable_declaration":
			for j := 0; j < int(child.ChildCount()); j++ {
				decl := child.Child(j)
				if decl.Type() != "variable_declarator" {
					continue
				}
				if nm := decl.ChildByFieldName("name"); nm != nil && nm.Type() == "identifier" {
					names = append(names, nodeText(nm, source))
				}
			}
		}
	}
	if isDefault {
		names = append(names, "default")
	}
	return names
}

// tsImportSource returns the module specifier string of an
// import_statement, quotes stripped, or "" if none is present (a bare
// "import 'side-effect'" still has a source string).
func tsImportSource(n *sitter.Node, source []byte) string {
	var spec string
	walk(n, func(c *sitter.Node) bool {
		if c.Type() == "string" {
			spec = strings.Trim(nodeText(c, source), `"'`+"`")
			return false
		}
		return true
	})
	return spec
}
