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
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/srobinson/fmmd/internal/model"
)

// goStdlibTopLevel lists the standard-library top-level package
// directories; an import path whose first "/"-segment is in this set is
// treated as standard library for the §4.2 Go row.
var goStdlibTopLevel = map[string]bool{
	"bufio": true, "bytes": true, "cmp": true, "compress": true, "container": true,
	"context": true, "crypto": true, "database": true, "debug": true, "embed": true,
	"encoding": true, "errors": true, "expvar": true, "flag": true, "fmt": true,
	"go": true, "hash": true, "html": true, "image": true, "index": true, "io": true,
	"iter": true, "log": true, "maps": true, "math": true, "mime": true, "net": true,
	"os": true, "path": true, "plugin": true, "reflect": true, "regexp": true,
	"runtime": true, "slices": true, "sort": true, "strconv": true, "strings": true,
	"sync": true, "syscall": true, "testing": true, "text": true, "time": true,
	"unicode": true, "unsafe": true, "vendor": true, "internal": true, "builtin": true,
}

// GoExtractor handles .go sources.
type GoExtractor struct {
	pool *sitterPool
}

// NewGoExtractor constructs the Go extractor.
func NewGoExtractor() *GoExtractor {
	return &GoExtractor{pool: newSitterPool(func() *sitter.Language { return golang.GetLanguage() })}
}

func (e *GoExtractor) LanguageID() string { return "go" }

func (e *GoExtractor) Extensions() []string { return []string{"go"} }

func (e *GoExtractor) Parse(source []byte) (model.Metadata, model.CustomFields, error) {
	loc := countLOC(source)

	tree, release, err := e.pool.parse(source)
	if err != nil {
		return model.Metadata{LOC: loc}, nil, nil
	}
	defer release()
	defer tree.Close()

	root := tree.RootNode()
	var exports, imports, deps []string

	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "function_declaration", "method_declaration":
			if nm := child.ChildByFieldName("name"); nm != nil {
				if name := nodeText(nm, source); isExportedGoName(name) {
					exports = append(exports, name)
				}
			}
		case "type_declaration":
			exports = append(exports, goDeclNames(child, source, "type_spec")...)
		case "const_declaration":
			exports = append(exports, goDeclNames(child, source, "const_spec")...)
		case "var_declaration":
			exports = append(exports, goDeclNames(child, source, "var_spec")...)
		case "import_declaration":
			for _, path := range goImportPaths(child, source) {
				if !strings.Contains(path, "/") || goStdlibTopLevel[strings.SplitN(path, "/", 2)[0]] {
					imports = append(imports, path)
				} else {
					deps = append(deps, path)
				}
			}
		}
	}

	return model.Metadata{
		Exports:      model.CanonicalStrings(exports),
		Imports:      model.CanonicalStrings(imports),
		Dependencies: model.CanonicalStrings(deps),
		LOC:          loc,
	}, nil, nil
}

func isExportedGoName(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)[0]
	return unicode.IsUpper(r)
}

// goDeclNames extracts exported identifiers out of a type/const/var
// declaration, which may wrap a single spec or a parenthesized block of
// them (specKind is "type_spec", "const_spec", or "var_spec").
func goDeclNames(decl *sitter.Node, source []byte, specKind string) []string {
	var names []string
	collect := func(spec *sitter.Node) {
		if spec.Type() != specKind {
			return
		}
		nm := spec.ChildByFieldName("name")
		if nm == nil {
			// const_spec/var_spec may declare multiple names via
			// identifier_list rather than a single "name" field.
			for i := 0; i < int(spec.ChildCount()); i++ {
				c := spec.Child(i)
				if c.Type() == "identifier_list" {
					for j := 0; j < int(c.ChildCount()); j++ {
						id := c.Child(j)
						if id.Type() == "identifier" {
							if name := nodeText(id, source); isExportedGoName(name) {
								names = append(names, name)
							}
						}
					}
				}
			}
			return
		}
		if name := nodeText(nm, source); isExportedGoName(name) {
			names = append(names, name)
		}
	}
	for i := 0; i < int(decl.ChildCount()); i++ {
		collect(decl.Child(i))
	}
	return names
}

func goImportPaths(decl *sitter.Node, source []byte) []string {
	var paths []string
	var collectSpec func(spec *sitter.Node)
	collectSpec = func(spec *sitter.Node) {
		switch spec.Type() {
		case "import_spec":
			pathNode := spec.ChildByFieldName("path")
			if pathNode == nil {
				return
			}
			paths = append(paths, strings.Trim(nodeText(pathNode, source), `"`))
		case "import_spec_list":
			for i := 0; i < int(spec.ChildCount()); i++ {
				collectSpec(spec.Child(i))
			}
		}
	}
	for i := 0; i < int(decl.ChildCount()); i++ {
		collectSpec(decl.Child(i))
	}
	return paths
}
