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

// Package service implements the generate/update/validate/clean
// extractor operations (spec §4.5): it never modifies source files, and
// dispatches extraction across a worker pool the way the teacher's
// LocalPipeline.parseFilesParallel does.
package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/srobinson/fmmd/internal/extract"
	"github.com/srobinson/fmmd/internal/obs"
	"github.com/srobinson/fmmd/internal/sidecar"
	"github.com/srobinson/fmmd/internal/walk"
)

// Outcome is the per-file result of a batch operation.
type Outcome string

const (
	OutcomeCreated           Outcome = "created"
	OutcomeUpdated           Outcome = "updated"
	OutcomeUnchanged         Outcome = "unchanged"
	OutcomeSkippedExists     Outcome = "skipped (exists)"
	OutcomeSkippedUnparsable Outcome = "skipped (unparsable)"
	OutcomeSkippedOversize   Outcome = "skipped (oversize)"
	OutcomeRemoved           Outcome = "removed"
	OutcomeMismatch          Outcome = "mismatch"
)

// Entry is one file's outcome within a Report.
type Entry struct {
	Path    string
	Outcome Outcome
	Detail  string
}

// Report aggregates per-file outcomes in deterministic ascending-path
// order, independent of worker scheduling (spec §5 ordering guarantee).
type Report struct {
	Entries  []Entry
	progress func()
}

func (r *Report) add(e Entry) {
	r.Entries = append(r.Entries, e)
	if r.progress != nil {
		r.progress()
	}
}

func (r *Report) sort() {
	sort.Slice(r.Entries, func(i, j int) bool { return r.Entries[i].Path < r.Entries[j].Path })
}

// Service orchestrates generate/update/validate/clean over a project
// root using a registry of language extractors.
type Service struct {
	registry *extract.Registry
	workers  int
	log      *slog.Logger
	today    func() string
	progress func()
}

// SetProgress installs a callback invoked once per report entry added by
// Generate, Update, or Validate — the caller's hook into a per-file
// progress indicator. Pass nil to clear it. Not safe to call
// concurrently with a batch operation in flight.
func (s *Service) SetProgress(fn func()) { s.progress = fn }

// Option configures a Service.
type Option func(*Service)

// WithWorkers overrides the worker-pool size (default: runtime.NumCPU
// via the caller, or a value the caller passes explicitly).
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = obs.Or(l) }
}

// WithClock overrides the function used to stamp sidecar "modified"
// dates; tests substitute a fixed date.
func WithClock(today func() string) Option {
	return func(s *Service) {
		if today != nil {
			s.today = today
		}
	}
}

// New constructs a Service.
func New(registry *extract.Registry, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		workers:  4,
		log:      obs.Default(),
		today:    defaultToday,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultToday() string {
	return time.Now().UTC().Format("2006-01-02")
}

// job is one candidate file paired with its prepared extractor.
type job struct {
	cand      walk.Candidate
	extractor extract.Extractor
}

// planJobs resolves each candidate to its extractor, dropping files
// with no registered extractor.
func (s *Service) planJobs(cands []walk.Candidate) []job {
	jobs := make([]job, 0, len(cands))
	for _, c := range cands {
		if e, ok := s.registry.ResolveByExtension(c.Ext); ok {
			jobs = append(jobs, job{cand: c, extractor: e})
		}
	}
	return jobs
}

// sidecarPath returns the on-disk sidecar location for a candidate.
func sidecarPath(c walk.Candidate) string { return c.AbsPath + ".fmm" }

// renderResult is what one worker produces for one job.
type renderResult struct {
	job      job
	rendered string
	err      error
}

// runParallel extracts and renders every job across a worker pool,
// mirroring the teacher's parseFilesParallel shape: a bounded job
// channel, per-worker goroutines, and a results channel drained by the
// caller. Falls back to sequential execution for small batches.
func (s *Service) runParallel(ctx context.Context, jobs []job) []renderResult {
	if len(jobs) == 0 {
		return nil
	}
	if len(jobs) < 10 || s.workers <= 1 {
		return s.runSequential(ctx, jobs)
	}

	indices := make(chan int, len(jobs))
	results := make(chan renderResult, len(jobs))
	var wg sync.WaitGroup
	var completed int64

	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				select {
				case <-ctx.Done():
					return
				default:
				}
				results <- s.renderOne(jobs[i])
				atomic.AddInt64(&completed, 1)
			}
		}()
	}

	for i := range jobs {
		indices <- i
	}
	close(indices)

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]renderResult, 0, len(jobs))
	for r := range results {
		out = append(out, r)
	}
	return out
}

func (s *Service) runSequential(ctx context.Context, jobs []job) []renderResult {
	out := make([]renderResult, 0, len(jobs))
	for _, j := range jobs {
		select {
		case <-ctx.Done():
			return out
		default:
		}
		out = append(out, s.renderOne(j))
	}
	return out
}

func (s *Service) renderOne(j job) renderResult {
	source, err := os.ReadFile(j.cand.AbsPath)
	if err != nil {
		return renderResult{job: j, err: err}
	}
	metadata, custom, err := j.extractor.Parse(source)
	if err != nil {
		return renderResult{job: j, err: err}
	}
	rendered := sidecar.ExpectedRender(j.cand.RelPath, metadata, j.extractor.LanguageID(), custom, s.today())
	return renderResult{job: j, rendered: rendered}
}

// Generate implements §4.5 generate: produce a sidecar for every
// candidate lacking one. Existing sidecars are untouched.
func (s *Service) Generate(ctx context.Context, root string, cands []walk.Candidate, dryRun bool) *Report {
	report := &Report{progress: s.progress}
	jobs := s.planJobs(cands)

	var toRender []job
	for _, j := range jobs {
		if _, err := os.Stat(sidecarPath(j.cand)); err == nil {
			report.add(Entry{Path: j.cand.RelPath, Outcome: OutcomeSkippedExists})
			continue
		}
		toRender = append(toRender, j)
	}

	for _, r := range s.runParallel(ctx, toRender) {
		if r.err != nil {
			s.log.Warn("service.generate.parse_failed", "path", r.job.cand.RelPath, "err", r.err)
			report.add(Entry{Path: r.job.cand.RelPath, Outcome: OutcomeSkippedUnparsable, Detail: r.err.Error()})
			continue
		}
		if dryRun {
			report.add(Entry{Path: r.job.cand.RelPath, Outcome: OutcomeCreated, Detail: "dry-run"})
			continue
		}
		if err := os.WriteFile(sidecarPath(r.job.cand), []byte(r.rendered), 0o644); err != nil {
			s.log.Warn("service.generate.write_failed", "path", r.job.cand.RelPath, "err", err)
			continue
		}
		report.add(Entry{Path: r.job.cand.RelPath, Outcome: OutcomeCreated})
	}

	report.sort()
	return report
}

// Update implements §4.5 update: recompute the expected sidecar text
// for every candidate and rewrite on mismatch.
func (s *Service) Update(ctx context.Context, root string, cands []walk.Candidate, dryRun bool) *Report {
	report := &Report{progress: s.progress}
	jobs := s.planJobs(cands)

	results := s.runParallel(ctx, jobs)
	for _, r := range results {
		if r.err != nil {
			s.log.Warn("service.update.parse_failed", "path", r.job.cand.RelPath, "err", r.err)
			report.add(Entry{Path: r.job.cand.RelPath, Outcome: OutcomeSkippedUnparsable, Detail: r.err.Error()})
			continue
		}

		path := sidecarPath(r.job.cand)
		existing, err := os.ReadFile(path)
		switch {
		case err != nil:
			if dryRun {
				report.add(Entry{Path: r.job.cand.RelPath, Outcome: OutcomeCreated, Detail: "dry-run"})
				continue
			}
			if werr := os.WriteFile(path, []byte(r.rendered), 0o644); werr != nil {
				s.log.Warn("service.update.write_failed", "path", r.job.cand.RelPath, "err", werr)
				continue
			}
			report.add(Entry{Path: r.job.cand.RelPath, Outcome: OutcomeCreated})
		case sidecar.NormalizeForCompare(string(existing)) == sidecar.NormalizeForCompare(r.rendered):
			report.add(Entry{Path: r.job.cand.RelPath, Outcome: OutcomeUnchanged})
		default:
			if dryRun {
				report.add(Entry{Path: r.job.cand.RelPath, Outcome: OutcomeUpdated, Detail: "dry-run"})
				continue
			}
			if werr := os.WriteFile(path, []byte(r.rendered), 0o644); werr != nil {
				s.log.Warn("service.update.write_failed", "path", r.job.cand.RelPath, "err", werr)
				continue
			}
			report.add(Entry{Path: r.job.cand.RelPath, Outcome: OutcomeUpdated})
		}
	}

	report.sort()
	return report
}

// Validate implements §4.5 validate: like Update but makes no changes.
// Success iff every sidecar exists and matches byte-for-byte (after
// whitespace trim). ignoreDate relaxes the comparison to also ignore the
// modified: line (§9's opt-in relaxation; the default caller should pass
// false to get the strict, current-producers comparison).
func (s *Service) Validate(ctx context.Context, root string, cands []walk.Candidate, ignoreDate bool) (*Report, bool) {
	report := &Report{progress: s.progress}
	jobs := s.planJobs(cands)
	ok := true
	normalize := sidecar.NormalizeForCompare
	if ignoreDate {
		normalize = sidecar.NormalizeIgnoringDate
	}

	for _, r := range s.runParallel(ctx, jobs) {
		if r.err != nil {
			ok = false
			report.add(Entry{Path: r.job.cand.RelPath, Outcome: OutcomeSkippedUnparsable, Detail: r.err.Error()})
			continue
		}
		path := sidecarPath(r.job.cand)
		existing, err := os.ReadFile(path)
		if err != nil {
			ok = false
			report.add(Entry{Path: r.job.cand.RelPath, Outcome: OutcomeMismatch, Detail: "missing sidecar"})
			continue
		}
		if normalize(string(existing)) != normalize(r.rendered) {
			ok = false
			report.add(Entry{Path: r.job.cand.RelPath, Outcome: OutcomeMismatch})
			continue
		}
		report.add(Entry{Path: r.job.cand.RelPath, Outcome: OutcomeUnchanged})
	}

	report.sort()
	return report, ok
}

// Clean implements §4.5 clean: remove every *.fmm sidecar under root,
// and the legacy .fmm directory if present. Source files are untouched.
func (s *Service) Clean(root string, dryRun bool) (*Report, error) {
	report := &Report{}

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ".fmm" {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		if dryRun {
			report.add(Entry{Path: rel, Outcome: OutcomeRemoved, Detail: "dry-run"})
			return nil
		}
		if rmErr := os.Remove(path); rmErr != nil {
			s.log.Warn("service.clean.remove_failed", "path", rel, "err", rmErr)
			return nil
		}
		report.add(Entry{Path: rel, Outcome: OutcomeRemoved})
		return nil
	})
	if err != nil {
		return nil, err
	}

	legacy := filepath.Join(root, ".fmm")
	if info, statErr := os.Stat(legacy); statErr == nil && info.IsDir() {
		if !dryRun {
			if rmErr := os.RemoveAll(legacy); rmErr != nil {
				s.log.Warn("service.clean.legacy_dir_failed", "path", legacy, "err", rmErr)
			}
		}
		report.add(Entry{Path: ".fmm/", Outcome: OutcomeRemoved, Detail: "legacy index directory"})
	}

	report.sort()
	return report, nil
}
