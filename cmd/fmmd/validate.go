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
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/srobinson/fmmd/internal/errors"
	"github.com/srobinson/fmmd/internal/service"
	"github.com/srobinson/fmmd/internal/walk"
)

// runValidate implements §4.5 validate. --ignore-date relaxes the
// byte-equality comparison to ignore the sidecar's modified: line; the
// default remains strict, matching §9's "current producers/validators
// compare strictly" rule (see DESIGN.md's Open Question decision).
func runValidate(args []string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	ignoreDate := fs.Bool("ignore-date", false, "Ignore the sidecar's modified: line when comparing")
	if err := fs.Parse(args); err != nil {
		return errors.ExitInput
	}

	root := rootArg(fs.Args())
	var allOK bool
	report, oversize, uerr := runBatch(root, func(pc *projectContext, ctx context.Context, cands []walk.Candidate) *service.Report {
		r, ok := pc.svc.Validate(ctx, pc.root, cands, *ignoreDate)
		allOK = ok
		return r
	})
	if uerr != nil {
		fmt.Fprint(os.Stderr, uerr.Format(globals.NoColor))
		return uerr.ExitCode
	}
	printReport(report, oversize, globals)
	if !allOK {
		return errors.ExitValidation
	}
	return errors.ExitSuccess
}
