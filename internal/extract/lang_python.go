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
	"github.com/smacker/go-tree-sitter/python"

	"github.com/srobinson/fmmd/internal/model"
)

// pythonStdlibPrefixes are dropped from both imports and dependencies
// per the §4.2 Python row. Not exhaustive — per §9 this denylist is
// producer policy, extendable without changing the classification rule.
var pythonStdlibPrefixes = map[string]bool{
	"sys": true, "os": true, "typing": true, "collections": true,
	"pathlib": true, "re": true, "json": true, "functools": true,
	"itertools": true, "dataclasses": true, "enum": true, "abc": true,
	"io": true, "math": true, "random": true, "datetime": true,
	"subprocess": true, "asyncio": true, "logging": true, "unittest": true,
}

// PythonExtractor handles .py sources.
type PythonExtractor struct {
	pool *sitterPool
}

// NewPythonExtractor constructs the Python extractor.
func NewPythonExtractor() *PythonExtractor {
	return &PythonExtractor{pool: newSitterPool(func() *sitter.Language { return python.GetLanguage() })}
}

func (e *PythonExtractor) LanguageID() string { return "python" }

func (e *PythonExtractor) Extensions() []string { return []string{"py"} }

func (e *PythonExtractor) Parse(source []byte) (model.Metadata, model.CustomFields, error) {
	loc := countLOC(source)

	tree, release, err := e.pool.parse(source)
	if err != nil {
		return model.Metadata{LOC: loc}, nil, nil
	}
	defer release()
	defer tree.Close()

	root := tree.RootNode()

	allList, hasAll := pythonDunderAll(root, source)
	var topLevel []string
	decorators := map[string]struct{}{}
	var exportDecorators []string

	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		node := child
		var nodeDecorators []string
		if child.Type() == "decorated_definition" {
			nodeDecorators = pythonDecoratorNames(child, source)
			if def := child.ChildByFieldName("definition"); def != nil {
				node = def
			}
		}

		name, isExport := pythonTopLevelName(node, source)
		if name == "" {
			continue
		}
		if hasAll {
			isExport = contains(allList, name)
		}
		if isExport {
			topLevel = append(topLevel, name)
			for _, d := range nodeDecorators {
				if _, ok := decorators[d]; !ok {
					decorators[d] = struct{}{}
					exportDecorators = append(exportDecorators, d)
				}
			}
		}
	}

	var imports, deps []string
	walk(root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "import_statement":
			for i := 0; i < int(n.ChildCount()); i++ {
				c := n.Child(i)
				mod := pythonModuleName(c, source)
				if mod == "" {
					continue
				}
				if top := firstSegment(mod); !pythonStdlibPrefixes[top] {
					imports = append(imports, mod)
				}
			}
			return false
		case "import_from_statement":
			moduleNode := n.ChildByFieldName("module_name")
			if moduleNode == nil {
				return false
			}
			if moduleNode.Type() == "relative_import" {
				deps = append(deps, pythonRelativeImportSpec(moduleNode, source))
			} else {
				mod := nodeText(moduleNode, source)
				if top := firstSegment(mod); !pythonStdlibPrefixes[top] {
					imports = append(imports, mod)
				}
			}
			return false
		}
		return true
	})

	var custom model.CustomFields
	if len(exportDecorators) > 0 {
		custom = model.CustomFields{"decorators": model.StringArrayField(exportDecorators)}
	}

	return model.Metadata{
		Exports:      model.CanonicalStrings(topLevel),
		Imports:      model.CanonicalStrings(imports),
		Dependencies: model.CanonicalStrings(deps),
		LOC:          loc,
	}, custom, nil
}

// pythonDunderAll looks for a module-scope `__all__ = [...]` literal list
// assignment and, if found, returns its string elements.
func pythonDunderAll(root *sitter.Node, source []byte) ([]string, bool) {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		stmt := child
		if stmt.Type() == "expression_statement" && stmt.ChildCount() > 0 {
			stmt = stmt.Child(0)
		}
		if stmt.Type() != "assignment" {
			continue
		}
		left := stmt.ChildByFieldName("left")
		right := stmt.ChildByFieldName("right")
		if left == nil || right == nil || nodeText(left, source) != "__all__" {
			continue
		}
		if right.Type() != "list" {
			continue
		}
		var names []string
		for j := 0; j < int(right.ChildCount()); j++ {
			el := right.Child(j)
			if el.Type() == "string" {
				names = append(names, pythonStringLiteral(el, source))
			}
		}
		return names, true
	}
	return nil, false
}

// pythonTopLevelName classifies one top-level statement: returns its
// declared name and whether it counts as exported absent an __all__
// override (def/class names and assignment targets not starting with _).
func pythonTopLevelName(node *sitter.Node, source []byte) (string, bool) {
	switch node.Type() {
	case "function_definition", "class_definition":
		nm := node.ChildByFieldName("name")
		if nm == nil {
			return "", false
		}
		name := nodeText(nm, source)
		return name, !strings.HasPrefix(name, "_")
	case "expression_statement":
		if node.ChildCount() == 0 {
			return "", false
		}
		return pythonTopLevelName(node.Child(0), source)
	case "assignment":
		left := node.ChildByFieldName("left")
		if left == nil || left.Type() != "identifier" {
			return "", false
		}
		name := nodeText(left, source)
		return name, !strings.HasPrefix(name, "_")
	}
	return "", false
}

func pythonDecoratorNames(decorated *sitter.Node, source []byte) []string {
	var out []string
	for i := 0; i < int(decorated.ChildCount()); i++ {
		c := decorated.Child(i)
		if c.Type() != "decorator" {
			continue
		}
		text := nodeText(c, source)
		text = strings.TrimPrefix(text, "@")
		if idx := strings.IndexAny(text, "(\n"); idx >= 0 {
			text = text[:idx]
		}
		out = append(out, strings.TrimSpace(text))
	}
	return out
}

// pythonModuleName extracts the module name from a dotted_name or
// aliased_import child of an import_statement.
func pythonModuleName(n *sitter.Node, source []byte) string {
	switch n.Type() {
	case "dotted_name":
		return nodeText(n, source)
	case "aliased_import":
		if name := n.ChildByFieldName("name"); name != nil {
			return nodeText(name, source)
		}
	}
	return ""
}

// pythonRelativeImportSpec renders a relative_import node back to its
// "."/".." prefix plus dotted module name, e.g. "." or "..pkg.sub".
func pythonRelativeImportSpec(n *sitter.Node, source []byte) string {
	return nodeText(n, source)
}

func pythonStringLiteral(n *sitter.Node, source []byte) string {
	text := nodeText(n, source)
	return strings.Trim(text, `"'`)
}

func firstSegment(dotted string) string {
	if idx := strings.IndexByte(dotted, '.'); idx >= 0 {
		return dotted[:idx]
	}
	return dotted
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}
