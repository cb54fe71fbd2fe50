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

// Package obs centralizes the structured-logging conventions every fmmd
// component shares: a *slog.Logger threaded through constructors (never
// a package-level global), and a "component.action.outcome" key naming
// scheme for log events.
package obs

import (
	"log/slog"
	"os"
)

// Default returns a text-handler slog.Logger writing to stderr, used when
// a constructor is not given an explicit logger.
func Default() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// Or returns l if non-nil, else Default(). Every constructor in this
// module that accepts a *slog.Logger calls this instead of special-casing
// nil at each call site.
func Or(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Default()
	}
	return l
}
