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

// Package errors provides structured, user-facing error reporting for the
// fmmd CLI and the per-file error kinds the extractor service and query
// server recover from instead of failing the whole operation.
//
// A UserError carries three layers of information: what went wrong, why,
// and how to fix it. It also carries a semantic exit code so the CLI can
// signal failure categories consistently.
package errors

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Exit codes for different error categories. 0 and 1 match the contract
// spec.md §6 fixes for the CLI ("0 on success; 1 on validation failure or
// any file-level error"); the rest refine ExitInternal-shaped failures
// into categories useful for scripting against fmmd.
const (
	ExitSuccess    = 0
	ExitValidation = 1
	ExitConfig     = 2
	ExitInput      = 3
	ExitPermission = 4
	ExitNotFound   = 5
	ExitInternal   = 10
)

// Kind enumerates the error conditions named in spec.md §7.
type Kind string

const (
	Unsupported    Kind = "unsupported"
	ReadFailure    Kind = "read_failure"
	ParseFailure   Kind = "parse_failure"
	Oversize       Kind = "oversize"
	WriteFailure   Kind = "write_failure"
	InvalidSidecar Kind = "invalid_sidecar"
	NotFound       Kind = "not_found"
	Truncated      Kind = "truncated"
	Timeout        Kind = "timeout"
)

// UserError represents an error with structured context for end users.
type UserError struct {
	Message  string
	Cause    string
	Fix      string
	ExitCode int
	Kind     Kind
	Err      error
}

func (e *UserError) Error() string {
	if e.Cause != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause)
	}
	return e.Message
}

func (e *UserError) Unwrap() error { return e.Err }

// New builds a UserError of the given kind with no wrapped error.
func New(kind Kind, exitCode int, message, cause, fix string) *UserError {
	return &UserError{Message: message, Cause: cause, Fix: fix, ExitCode: exitCode, Kind: kind}
}

// Wrap builds a UserError that carries an underlying error for %w chains.
func Wrap(kind Kind, exitCode int, message, cause, fix string, err error) *UserError {
	return &UserError{Message: message, Cause: cause, Fix: fix, ExitCode: exitCode, Kind: kind, Err: err}
}

// Format renders the error for terminal output, optionally colorized.
func (e *UserError) Format(noColor bool) string {
	var b strings.Builder
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	if noColor {
		red, yellow, green = fmt.Sprint, fmt.Sprint, fmt.Sprint
	}
	fmt.Fprintf(&b, "%s %s\n", red("Error:"), e.Message)
	if e.Cause != "" {
		fmt.Fprintf(&b, "%s %s\n", yellow("Cause:"), e.Cause)
	}
	if e.Fix != "" {
		fmt.Fprintf(&b, "%s  %s\n", green("Fix:"), e.Fix)
	}
	return b.String()
}

// ToJSON renders the error as a structured map suitable for json.Marshal.
func (e *UserError) ToJSON() map[string]any {
	return map[string]any{
		"error":     e.Message,
		"cause":     e.Cause,
		"fix":       e.Fix,
		"kind":      string(e.Kind),
		"exit_code": e.ExitCode,
	}
}

// MarshalJSON lets a *UserError be passed directly to json.Marshal / an
// encoder without callers needing to call ToJSON first.
func (e *UserError) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToJSON())
}
