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

	"github.com/srobinson/fmmd/internal/errors"
	"github.com/srobinson/fmmd/internal/service"
	"github.com/srobinson/fmmd/internal/walk"
)

func runUpdate(args []string, globals GlobalFlags) int {
	root := rootArg(args)
	report, oversize, uerr := runBatch(root, func(pc *projectContext, ctx context.Context, cands []walk.Candidate) *service.Report {
		return pc.svc.Update(ctx, pc.root, cands, globals.DryRun)
	})
	if uerr != nil {
		fmt.Fprint(os.Stderr, uerr.Format(globals.NoColor))
		return uerr.ExitCode
	}
	printReport(report, oversize, globals)
	return errors.ExitSuccess
}
