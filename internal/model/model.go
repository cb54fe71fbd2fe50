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

// Package model defines the value types shared by every fmmd component:
// the per-file Metadata an extractor produces, the custom-field bag that
// rides alongside it, and the FileEntry the aggregate index stores.
package model

import "sort"

// Metadata is the per-source-file record produced by a language extractor.
// All three slice fields are canonically ordered (ASCII-lexicographic
// ascending, case-sensitive, deduplicated) before they leave the extractor.
type Metadata struct {
	Exports      []string
	Imports      []string
	Dependencies []string
	LOC          int
}

// FileEntry is the aggregate index's per-path record. It is equal in
// content to Metadata; custom fields never make it into the index, only
// onto disk (see CustomFields).
type FileEntry struct {
	Exports      []string `json:"exports"`
	Imports      []string `json:"imports"`
	Dependencies []string `json:"dependencies"`
	LOC          int      `json:"loc"`
}

// ToFileEntry drops nothing; FileEntry and Metadata carry the same four
// index-visible fields, so this is a straight copy kept as its own
// conversion point in case the two types ever diverge.
func (m Metadata) ToFileEntry() FileEntry {
	return FileEntry{
		Exports:      m.Exports,
		Imports:      m.Imports,
		Dependencies: m.Dependencies,
		LOC:          m.LOC,
	}
}

// Field is a single scalar-or-array custom-field value. Supported scalar
// kinds are string, int64, bool, and nil; Array holds a homogeneous slice
// of one of those. Exactly one of Scalar or Array is meaningful, signaled
// by IsArray.
type Field struct {
	IsArray bool
	Scalar  any
	Array   []any
}

// StringField builds a scalar string custom field.
func StringField(s string) Field { return Field{Scalar: s} }

// IntField builds a scalar integer custom field.
func IntField(n int) Field { return Field{Scalar: int64(n)} }

// BoolField builds a scalar boolean custom field.
func BoolField(b bool) Field { return Field{Scalar: b} }

// StringArrayField builds a sorted, deduplicated array-of-string custom
// field, matching the canonical-order rule applied to every array-valued
// field (§4.2).
func StringArrayField(values []string) Field {
	out := CanonicalStrings(values)
	arr := make([]any, len(out))
	for i, v := range out {
		arr[i] = v
	}
	return Field{IsArray: true, Array: arr}
}

// IntArrayField builds an array-of-integer custom field without imposing
// string ordering (counts and similar numeric arrays are left in the
// order the extractor produced them).
func IntArrayField(values []int) Field {
	arr := make([]any, len(values))
	for i, v := range values {
		arr[i] = int64(v)
	}
	return Field{IsArray: true, Array: arr}
}

// CustomFields maps a field name to its value, scoped under a single
// language identifier in the rendered sidecar. Absent (nil/empty) means
// the extractor produced no custom fields for this file.
type CustomFields map[string]Field

// SortedKeys returns the field names in ascending ASCII order, matching
// the custom-field block's required rendering order.
func (c CustomFields) SortedKeys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CanonicalStrings sorts s ascending (ASCII, case-sensitive) and removes
// duplicates, implementing the canonical-order rule common to exports,
// imports, dependencies, and every array-valued custom field.
func CanonicalStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(s))
	out := make([]string, 0, len(s))
	for _, v := range s {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
