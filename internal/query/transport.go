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

package query

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/srobinson/fmmd/internal/errors"
)

// ProtocolVersion identifies the wire protocol generation, reported on
// initialize (§6).
const ProtocolVersion = "2024-11-05"

// rpcRequest is one JSON-RPC 2.0 request. Messages are newline-delimited
// JSON on the byte stream: each line is exactly one message, so a
// message's length is bounded by its line (§6's "length-delimited").
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id,omitempty"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// initializeResult is returned for the "initialize" method.
type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	ServerInfo      serverInfo     `json:"serverInfo"`
	Operations      map[string]any `json:"operations"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// errorCodeFor maps an error Kind to a JSON-RPC-ish numeric code. These
// are fmmd's own codes, not borrowed from any particular RPC convention.
func errorCodeFor(kind errors.Kind) int {
	switch kind {
	case errors.NotFound:
		return 404
	case errors.ParseFailure, errors.InvalidSidecar:
		return 400
	case errors.Timeout:
		return 504
	default:
		return 500
	}
}

// Transport drives the query Server over a newline-delimited JSON-RPC
// byte stream (§6), truncating oversize responses per §4.7.
type Transport struct {
	server      *Server
	responseCap int
	metrics     *Metrics
}

// NewTransport wraps server for stdio (or any io.Reader/io.Writer pair).
// responseCap <= 0 uses DefaultResponseCap. metrics may be nil.
func NewTransport(server *Server, responseCap int, metrics *Metrics) *Transport {
	if responseCap <= 0 {
		responseCap = DefaultResponseCap
	}
	return &Transport{server: server, responseCap: responseCap, metrics: metrics}
}

// Serve reads one JSON-RPC request per line from r and writes one
// response per line to w, until r is exhausted or a read error occurs.
func (t *Transport) Serve(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req rpcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			writeLine(w, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: 400, Message: "invalid JSON-RPC request", Kind: string(errors.ParseFailure)}})
			continue
		}

		resp := t.handle(req)
		if resp == nil {
			continue // notification: no response expected
		}
		writeLine(w, *resp)
	}
	return scanner.Err()
}

func (t *Transport) handle(req rpcRequest) *rpcResponse {
	requestID := uuid.NewString()

	switch req.Method {
	case "initialize":
		return &rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: initializeResult{
				ProtocolVersion: ProtocolVersion,
				ServerInfo:      serverInfo{Name: "fmmd", Version: ProtocolVersion},
				Operations: map[string]any{
					"lookup_export":    map[string]any{"required": []string{"name"}},
					"list_exports":     map[string]any{"optional": []string{"pattern", "file"}},
					"file_info":        map[string]any{"required": []string{"file"}},
					"dependency_graph": map[string]any{"required": []string{"file"}},
					"search":           map[string]any{"optional": []string{"export", "imports", "depends_on", "min_loc", "max_loc"}},
					"get_manifest":     map[string]any{},
				},
			},
		}
	case "notifications/initialized":
		return nil
	}

	var params map[string]any
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return &rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{
				Code: errorCodeFor(errors.ParseFailure), Message: "invalid params object", Kind: string(errors.ParseFailure),
			}}
		}
	}

	t.server.log.Info("query.request.received", "operation", req.Method, "request_id", requestID)

	start := time.Now()
	result, uerr := t.server.Handle(context.Background(), req.Method, params)
	if uerr != nil {
		t.metrics.observe(req.Method, string(uerr.Kind), time.Since(start))
		return &rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{
			Code: errorCodeFor(uerr.Kind), Message: uerr.Error(), Kind: string(uerr.Kind),
		}}
	}

	truncated, omitted := truncate(result, t.responseCap)
	if omitted > 0 {
		t.metrics.observeTruncation()
	}
	t.metrics.observe(req.Method, "ok", time.Since(start))
	return &rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: envelope(truncated, omitted)}
}

func envelope(result any, omitted int) any {
	if omitted == 0 {
		return result
	}
	return map[string]any{
		"result":  result,
		"summary": fmt.Sprintf("truncated: %d entr%s omitted", omitted, plural(omitted)),
	}
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

// truncate shrinks slice-shaped results (list_exports, search) or the
// files map of get_manifest entry-by-entry until the JSON encoding fits
// within cap bytes. Scalar results (lookup_export, file_info,
// dependency_graph) are never partially emitted — §4.7 forbids streaming
// a partial object, and single-object responses have nothing to drop.
func truncate(result any, maxBytes int) (any, int) {
	if fits(result, maxBytes) {
		return result, 0
	}
	switch v := result.(type) {
	case []ExportEntry:
		return truncateSlice(v, len(v), maxBytes, func(n int) any { return v[:n] })
	case []SearchEntry:
		return truncateSlice(v, len(v), maxBytes, func(n int) any { return v[:n] })
	case GetManifestResult:
		keys := make([]string, 0, len(v.Files))
		for k := range v.Files {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		build := func(n int) any {
			files := make(map[string]manifestFileView, n)
			for _, k := range keys[:n] {
				files[k] = v.Files[k]
			}
			return GetManifestResult{Version: v.Version, Files: files}
		}
		return truncateSlice(keys, len(keys), maxBytes, build)
	default:
		return result, 0
	}
}

// truncateSlice binary-searches for the largest prefix length n (0..total)
// whose build(n) encodes within cap bytes.
func truncateSlice(_ any, total, maxBytes int, build func(n int) any) (any, int) {
	lo, hi := 0, total
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if fits(build(mid), maxBytes) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return build(lo), total - lo
}

func fits(v any, maxBytes int) bool {
	b, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return len(b) <= maxBytes
}

func writeLine(w io.Writer, resp rpcResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		return
	}
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}
