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

// Package extract holds the parser registry and every built-in language
// extractor. Each extractor computes a model.Metadata plus an optional
// model.CustomFields bag from one source buffer, by walking either a
// tree-sitter parse tree (Go, TS/JS, Python) or a line scanner (Rust,
// Java, C++, C#, Ruby).
package extract

import "github.com/srobinson/fmmd/internal/model"

// Extractor is the contract every language plugs into the registry.
// Parse must fail-soft: a total unreadability condition is the only
// ParseError case; everything else returns a best-effort Metadata.
type Extractor interface {
	// LanguageID is the stable identifier used as the sidecar's
	// custom-field section key (e.g. "rust", "python").
	LanguageID() string

	// Extensions lists the file extensions (without the leading dot)
	// this extractor handles.
	Extensions() []string

	// Parse computes Metadata and an optional custom-field bag for one
	// source buffer. custom may be nil when the language defines none.
	Parse(source []byte) (model.Metadata, model.CustomFields, error)
}

// ParseError signals that a buffer was totally unreadable — §4.1's only
// legitimate Parse failure. Anything short of that must be absorbed into
// a best-effort Metadata instead of returned as an error.
type ParseError struct {
	Extension string
	Reason    string
}

func (e *ParseError) Error() string {
	return "fmmd: cannot parse ." + e.Extension + " source: " + e.Reason
}
