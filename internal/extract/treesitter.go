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
	"bytes"
	"context"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// sitterPool hands out tree-sitter parsers for one grammar. sitter.Parser
// values are not safe for concurrent use, so each language keeps its own
// sync.Pool rather than a single shared parser — parallel extraction
// (spec.md §4.4/§5) must not serialize on parser access.
type sitterPool struct {
	once sync.Once
	pool sync.Pool
	lang func() *sitter.Language
}

func newSitterPool(lang func() *sitter.Language) *sitterPool {
	return &sitterPool{lang: lang}
}

func (p *sitterPool) init() {
	p.once.Do(func() {
		p.pool.New = func() any {
			parser := sitter.NewParser()
			parser.SetLanguage(p.lang())
			return parser
		}
	})
}

// parse checks out a parser, parses source, and returns the result along
// with a release func the caller must invoke once done with the tree
// (the tree itself must still be Close()'d separately).
func (p *sitterPool) parse(source []byte) (*sitter.Tree, func(), error) {
	p.init()
	parser := p.pool.Get().(*sitter.Parser)
	release := func() { p.pool.Put(parser) }
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		release()
		return nil, func() {}, err
	}
	return tree, release, nil
}

// nodeText returns the verbatim source text spanned by node.
func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// walk calls visit on node and every descendant, pre-order, stopping
// descent under a subtree when visit returns false.
func walk(node *sitter.Node, visit func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visit(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walk(node.Child(i), visit)
	}
}

// countLOC implements the §4.2 LOC rule: lines are delimited by U+000A; a
// trailing newline-terminated line counts once, and a non-empty,
// newline-less final line counts as one more.
func countLOC(source []byte) int {
	if len(source) == 0 {
		return 0
	}
	n := bytes.Count(source, []byte{'\n'})
	if source[len(source)-1] != '\n' {
		n++
	}
	return n
}
