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

package main

import (
	"fmt"
	"net/http"
	"os"

	flag "github.com/spf13/pflag"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/srobinson/fmmd/internal/errors"
	"github.com/srobinson/fmmd/internal/query"
)

// runServe starts the stateless query server over stdin/stdout (§6:
// newline-delimited JSON-RPC 2.0, protocol version 2024-11-05). An
// optional --metrics-addr serves Prometheus metrics over HTTP alongside
// the stdio transport.
func runServe(args []string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	responseCap := fs.Int("response-cap", query.DefaultResponseCap, "Maximum response size in bytes before truncation")
	metricsAddr := fs.String("metrics-addr", "", "If set, serve Prometheus /metrics on this address (e.g. :9090)")
	if err := fs.Parse(args); err != nil {
		return errors.ExitInput
	}

	root := "."
	if fs.NArg() > 0 {
		root = fs.Arg(0)
	}

	pc, uerr := setupProject(root)
	if uerr != nil {
		fmt.Fprint(os.Stderr, uerr.Format(globals.NoColor))
		return uerr.ExitCode
	}

	metrics := query.NewMetrics(prometheus.DefaultRegisterer)
	server := query.New(pc.root, pc.config, pc.ignore)
	transport := query.NewTransport(server, *responseCap, metrics)

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", query.Handler())
		go func() {
			_ = http.ListenAndServe(*metricsAddr, mux)
		}()
	}

	fmt.Fprintf(os.Stderr, "fmmd query server listening on stdio (protocol %s)\n", query.ProtocolVersion)
	if err := transport.Serve(os.Stdin, os.Stdout); err != nil {
		ue := errors.Wrap(errors.ReadFailure, errors.ExitInternal,
			"query server stopped", err.Error(), "check stdin for an unexpected close", err)
		fmt.Fprint(os.Stderr, ue.Format(globals.NoColor))
		return ue.ExitCode
	}
	return errors.ExitSuccess
}
