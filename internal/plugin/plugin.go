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

// Package plugin implements the optional plugin host (§4.9): additional
// language extractors loaded from a shared object discovered on a search
// path, rather than compiled into the registry. The C boundary mirrors
// the one the teacher's cozodb binding crosses for its embedded engine —
// C strings in, a host-freed C string out, errors signaled by a nonzero
// return code — except the library isn't linked at build time: it is
// dlopen'd by path, so the set of loadable plugins is a runtime fact, not
// a compile-time one.
package plugin

/*
#include <stdlib.h>
#include <stdint.h>
#include <dlfcn.h>

typedef int32_t (*fmmd_entry_fn)(const char*, size_t, char**);
typedef int32_t (*fmmd_handshake_fn)(char**);
typedef void (*fmmd_free_fn)(char*);

static int32_t fmmd_call_handshake(void *fn, char **out) {
    return ((fmmd_handshake_fn)fn)(out);
}

static int32_t fmmd_call_entry(void *fn, const char *source, size_t length, char **out) {
    return ((fmmd_entry_fn)fn)(source, length, out);
}

static void fmmd_call_free(void *fn, char *s) {
    ((fmmd_free_fn)fn)(s);
}
*/
import "C"

import (
	"encoding/json"
	"fmt"
	"unsafe"
)

// APIVersion is the host's current plugin-API version. A plugin whose
// handshake reports a different value is rejected outright.
const APIVersion = 1

// Symbol names every plugin shared object must export.
const (
	symHandshake    = "fmmd_plugin_handshake"
	symParse        = "fmmd_plugin_parse"
	symCustomFields = "fmmd_plugin_custom_fields" // optional
	symFreeString   = "fmmd_plugin_free_string"
)

// Handshake is the metadata every plugin returns before the host trusts
// it with any file.
type Handshake struct {
	Name       string   `json:"name"`
	Version    string   `json:"version"`
	Language   string   `json:"language"`
	Extensions []string `json:"extensions"`
	APIVersion int      `json:"api_version"`
}

// ParseResult mirrors the four index-visible fields a plugin's parse
// entry point returns, ahead of conversion to model.Metadata.
type ParseResult struct {
	Exports      []string `json:"exports"`
	Imports      []string `json:"imports"`
	Dependencies []string `json:"dependencies"`
	LOC          int      `json:"loc"`
}

// Plugin is one loaded, handshaken shared object. It owns the dlopen
// handle for the remainder of the process lifetime; there is no unload
// path (mirrors the teacher's never-unloaded embedded-engine handle).
type Plugin struct {
	path      string
	handle    unsafe.Pointer
	parseFn   unsafe.Pointer
	fieldsFn  unsafe.Pointer // nil when the plugin doesn't implement it
	freeFn    unsafe.Pointer
	handshake Handshake
}

// Load dlopen's path, resolves the required symbols, and performs the
// handshake. A plugin reporting an API version other than APIVersion is
// rejected (its handle is closed before Load returns an error).
func Load(path string) (*Plugin, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	handle := C.dlopen(cPath, C.RTLD_NOW|C.RTLD_LOCAL)
	if handle == nil {
		return nil, fmt.Errorf("fmmd: dlopen %s: %s", path, C.GoString(C.dlerror()))
	}

	handshakeFn := lookupSymbol(handle, symHandshake)
	if handshakeFn == nil {
		C.dlclose(handle)
		return nil, fmt.Errorf("fmmd: plugin %s missing %s", path, symHandshake)
	}
	parseFn := lookupSymbol(handle, symParse)
	if parseFn == nil {
		C.dlclose(handle)
		return nil, fmt.Errorf("fmmd: plugin %s missing %s", path, symParse)
	}
	freeFn := lookupSymbol(handle, symFreeString)
	if freeFn == nil {
		C.dlclose(handle)
		return nil, fmt.Errorf("fmmd: plugin %s missing %s", path, symFreeString)
	}
	fieldsFn := lookupSymbol(handle, symCustomFields) // optional, nil is fine

	p := &Plugin{path: path, handle: handle, parseFn: parseFn, fieldsFn: fieldsFn, freeFn: freeFn}

	var out *C.char
	rc := C.fmmd_call_handshake(handshakeFn, &out)
	if rc != 0 || out == nil {
		C.dlclose(handle)
		return nil, fmt.Errorf("fmmd: plugin %s handshake failed (rc=%d)", path, rc)
	}
	raw := C.GoString(out)
	C.fmmd_call_free(freeFn, out)

	var h Handshake
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		C.dlclose(handle)
		return nil, fmt.Errorf("fmmd: plugin %s handshake JSON: %w", path, err)
	}
	if h.APIVersion != APIVersion {
		C.dlclose(handle)
		return nil, fmt.Errorf("fmmd: plugin %s reports API version %d, host requires %d", path, h.APIVersion, APIVersion)
	}
	p.handshake = h
	return p, nil
}

func lookupSymbol(handle unsafe.Pointer, name string) unsafe.Pointer {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	return C.dlsym(handle, cName)
}

// Handshake returns the metadata gathered at Load time.
func (p *Plugin) Handshake() Handshake { return p.handshake }

// Parse invokes the plugin's main parse entry point on one source
// buffer. The returned JSON string is copied into a Go ParseResult and
// then released through the plugin's own free-string entry point — the
// plugin allocated it, so only the plugin may free it.
func (p *Plugin) Parse(source []byte) (ParseResult, error) {
	var result ParseResult
	raw, err := p.callEntry(p.parseFn, source)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("fmmd: plugin %s parse JSON: %w", p.path, err)
	}
	return result, nil
}

// SupportsCustomFields reports whether the plugin exports the optional
// custom-fields entry point.
func (p *Plugin) SupportsCustomFields() bool { return p.fieldsFn != nil }

// CustomFields invokes the optional custom-fields entry point, returning
// the raw JSON object; the host-side extractor adapter is responsible
// for shaping it into model.CustomFields.
func (p *Plugin) CustomFields(source []byte) (map[string]any, error) {
	if p.fieldsFn == nil {
		return nil, nil
	}
	raw, err := p.callEntry(p.fieldsFn, source)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("fmmd: plugin %s custom-fields JSON: %w", p.path, err)
	}
	return fields, nil
}

func (p *Plugin) callEntry(fn unsafe.Pointer, source []byte) ([]byte, error) {
	var cSource *C.char
	if len(source) > 0 {
		cSource = (*C.char)(unsafe.Pointer(&source[0]))
	}
	var out *C.char
	rc := C.fmmd_call_entry(fn, cSource, C.size_t(len(source)), &out)
	if rc != 0 {
		return nil, fmt.Errorf("fmmd: plugin %s entry point failed (rc=%d)", p.path, rc)
	}
	if out == nil {
		return nil, fmt.Errorf("fmmd: plugin %s returned a null result", p.path)
	}
	raw := []byte(C.GoString(out))
	C.fmmd_call_free(p.freeFn, out)
	return raw, nil
}

// Close releases the dlopen handle. fmmd never calls this during normal
// operation (§5's "the plugin host owns shared-library handles for the
// process lifetime; there is no unload path") — it exists for tests that
// load and discard a stub plugin within one process.
func (p *Plugin) Close() {
	if p.handle != nil {
		C.dlclose(p.handle)
		p.handle = nil
	}
}
