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
	"os"

	"github.com/srobinson/fmmd/internal/errors"
)

// runClean removes every sidecar under root. Unlike the other batch
// commands, clean never needs the candidate walk: it scans for *.fmm
// files directly (internal/service.Service.Clean).
func runClean(args []string, globals GlobalFlags) int {
	root := rootArg(args)
	pc, uerr := setupProject(root)
	if uerr != nil {
		fmt.Fprint(os.Stderr, uerr.Format(globals.NoColor))
		return uerr.ExitCode
	}

	report, err := pc.svc.Clean(root, globals.DryRun)
	if err != nil {
		ue := errors.Wrap(errors.ReadFailure, errors.ExitInternal,
			"cannot clean project root", err.Error(), "check that the root path exists and is readable", err)
		fmt.Fprint(os.Stderr, ue.Format(globals.NoColor))
		return ue.ExitCode
	}

	printReport(report, nil, globals)
	return errors.ExitSuccess
}
