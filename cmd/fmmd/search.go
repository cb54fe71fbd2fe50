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
	"encoding/json"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/srobinson/fmmd/internal/errors"
	"github.com/srobinson/fmmd/internal/manifest"
)

// runSearch rebuilds the manifest once from on-disk sidecars and applies
// a single multi-criteria search (§4.6's search(criteria)), printing
// matches. This is the one-shot CLI counterpart to the query server's
// "search" operation.
func runSearch(args []string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	export := fs.String("export", "", "Exact symbol name a file must export")
	imports := fs.String("imports", "", "Substring match against any import entry")
	dependsOn := fs.String("depends-on", "", "Path this file's dependencies must name")
	minLOC := fs.Int("min-loc", -1, "Minimum line count (inclusive)")
	maxLOC := fs.Int("max-loc", -1, "Maximum line count (inclusive)")
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

	m, err := manifest.LoadFromSidecars(pc.root, pc.ignore)
	if err != nil {
		ue := errors.Wrap(errors.ReadFailure, errors.ExitInternal,
			"cannot rebuild manifest from sidecars", err.Error(), "check that the root path is readable", err)
		fmt.Fprint(os.Stderr, ue.Format(globals.NoColor))
		return ue.ExitCode
	}

	criteria := manifest.SearchCriteria{Export: *export, Imports: *imports, DependsOn: *dependsOn}
	if *minLOC >= 0 {
		criteria.MinLOC = minLOC
	}
	if *maxLOC >= 0 {
		criteria.MaxLOC = maxLOC
	}

	results := m.Search(criteria)
	if globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(results)
		return errors.ExitSuccess
	}

	for _, r := range results {
		fmt.Printf("%s  (exports=%d imports=%d deps=%d loc=%d)\n",
			r.Path, len(r.Entry.Exports), len(r.Entry.Imports), len(r.Entry.Dependencies), r.Entry.LOC)
	}
	return errors.ExitSuccess
}
