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
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/srobinson/fmmd/internal/errors"
	"github.com/srobinson/fmmd/internal/service"
	"github.com/srobinson/fmmd/internal/walk"
)

// batchOp runs one of the service's batch operations over a freshly
// walked candidate set.
type batchOp func(pc *projectContext, ctx context.Context, cands []walk.Candidate) *service.Report

// runBatch resolves root's project context, walks it honoring the size
// gate (tallying P11 oversize skips), and hands the candidate set to op.
func runBatch(root string, op batchOp) (*service.Report, []string, *errors.UserError) {
	pc, uerr := setupProject(root)
	if uerr != nil {
		return nil, nil, uerr
	}

	var oversize oversizeTally
	cands, err := pc.walker.Walk(oversize.record)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ReadFailure, errors.ExitInternal,
			"cannot walk project root", err.Error(), "check that the root path exists and is readable", err)
	}

	if len(cands) > 0 && isatty.IsTerminal(os.Stderr.Fd()) {
		bar := progressbar.NewOptions(len(cands),
			progressbar.OptionSetDescription("fmmd"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionClearOnFinish(),
		)
		pc.svc.SetProgress(func() { _ = bar.Add(1) })
		defer pc.svc.SetProgress(nil)
	}

	report := op(pc, context.Background(), cands)
	return report, oversize.paths, nil
}

// printReport renders a batch report either as a tally (text mode) or as
// a JSON array of entries (--json mode).
func printReport(report *service.Report, oversize []string, globals GlobalFlags) {
	if globals.JSON {
		printReportJSON(report, oversize)
		return
	}

	tally := map[service.Outcome]int{}
	for _, e := range report.Entries {
		tally[e.Outcome]++
	}

	bold := color.New(color.Bold).SprintFunc()
	if globals.NoColor {
		bold = fmt.Sprint
	}
	fmt.Printf("%s\n", bold("fmmd report"))
	for _, outcome := range []service.Outcome{
		service.OutcomeCreated, service.OutcomeUpdated, service.OutcomeUnchanged,
		service.OutcomeSkippedExists, service.OutcomeSkippedUnparsable, service.OutcomeSkippedOversize,
		service.OutcomeRemoved, service.OutcomeMismatch,
	} {
		if n := tally[outcome]; n > 0 {
			fmt.Printf("  %-22s %d\n", outcome, n)
		}
	}
	if len(oversize) > 0 {
		fmt.Printf("  %-22s %d\n", service.OutcomeSkippedOversize, len(oversize))
	}
}

func printReportJSON(report *service.Report, oversize []string) {
	type jsonEntry struct {
		Path    string `json:"path"`
		Outcome string `json:"outcome"`
		Detail  string `json:"detail,omitempty"`
	}
	out := struct {
		Entries  []jsonEntry `json:"entries"`
		Oversize []string    `json:"oversize_skipped,omitempty"`
	}{Oversize: oversize}
	for _, e := range report.Entries {
		out.Entries = append(out.Entries, jsonEntry{Path: e.Path, Outcome: string(e.Outcome), Detail: e.Detail})
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
