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

// Package main implements the fmmd CLI: a thin dispatcher over the
// generate/update/validate/clean/search operations and the stdio query
// server.
//
// Usage:
//
//	fmmd generate [root]          Create sidecars for files that lack one
//	fmmd update [root]            Recompute and rewrite stale sidecars
//	fmmd validate [root]          Check sidecars match regenerated output
//	fmmd clean [root]             Remove every sidecar under root
//	fmmd search [root] [flags]    Query the aggregate index once
//	fmmd serve [root]             Start the query server over stdio
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	flag "github.com/spf13/pflag"

	"github.com/srobinson/fmmd/internal/errors"
)

// GlobalFlags holds flags recognized before the subcommand name.
type GlobalFlags struct {
	JSON    bool
	NoColor bool
	DryRun  bool
}

func main() {
	var (
		jsonOutput = flag.Bool("json", false, "Output in JSON format")
		noColor    = flag.Bool("no-color", false, "Disable color output")
		dryRun     = flag.Bool("dry-run", false, "Report what would change without writing anything")
	)
	flag.SetInterspersed(false)

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `fmmd - structural metadata sidecars for source code

Usage:
  fmmd <command> [root] [options]

Commands:
  generate   Create .fmm sidecars for files that lack one
  update     Recompute and rewrite sidecars that no longer match source
  validate   Check every sidecar matches regenerated output (exit 1 on mismatch)
  clean      Remove every .fmm sidecar under root
  search     Query the aggregate index once and print matches
  serve      Start the query server over stdio (JSON-RPC, newline-delimited)

Global Options:
  --json       Output in JSON format
  --no-color   Disable color output (also respects NO_COLOR env var and
               auto-detects non-terminal stdout)
  --dry-run    Report what would change without writing anything

`)
	}
	flag.Parse()

	if os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stdout.Fd()) {
		*noColor = true
	}
	globals := GlobalFlags{JSON: *jsonOutput, NoColor: *noColor, DryRun: *dryRun}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(errors.ExitInput)
	}

	command := args[0]
	cmdArgs := args[1:]

	var code int
	switch command {
	case "generate":
		code = runGenerate(cmdArgs, globals)
	case "update":
		code = runUpdate(cmdArgs, globals)
	case "validate":
		code = runValidate(cmdArgs, globals)
	case "clean":
		code = runClean(cmdArgs, globals)
	case "search":
		code = runSearch(cmdArgs, globals)
	case "serve", "mcp":
		code = runServe(cmdArgs, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		code = errors.ExitInput
	}
	os.Exit(code)
}

// rootArg returns the first positional argument as the project root, or
// "." if none was given.
func rootArg(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return "."
}
