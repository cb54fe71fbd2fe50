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
	"runtime"

	"github.com/srobinson/fmmd/internal/errors"
	"github.com/srobinson/fmmd/internal/extract"
	"github.com/srobinson/fmmd/internal/obs"
	"github.com/srobinson/fmmd/internal/plugin"
	"github.com/srobinson/fmmd/internal/service"
	"github.com/srobinson/fmmd/internal/sidecar"
	"github.com/srobinson/fmmd/internal/walk"
)

// projectContext bundles the pieces every subcommand needs: the resolved
// config, ignore rules, the walker, and the extractor service.
type projectContext struct {
	root   string
	config sidecar.Config
	ignore *walk.IgnoreSet
	walker *walk.Walker
	svc    *service.Service
}

func setupProject(root string) (*projectContext, *errors.UserError) {
	cfg, err := sidecar.LoadConfig(root)
	if err != nil {
		return nil, errors.Wrap(errors.ReadFailure, errors.ExitConfig,
			"cannot load .fmmrc configuration", err.Error(),
			"check .fmmrc.json or .fmmrc.yaml for syntax errors", err)
	}

	ignore, err := walk.LoadIgnoreSet(root)
	if err != nil {
		return nil, errors.Wrap(errors.ReadFailure, errors.ExitConfig,
			"cannot load ignore rules", err.Error(),
			"check .fmmignore and .gitignore for read permissions", err)
	}

	w := walk.New(root, cfg.Languages, cfg.MaxFileSizeBytes(), ignore)
	registry := extract.NewBuiltinRegistry()

	host := plugin.NewHost(root, obs.Default())
	host.Discover()
	host.RegisterInto(registry)

	svc := service.New(registry, service.WithWorkers(runtime.NumCPU()))

	return &projectContext{root: root, config: cfg, ignore: ignore, walker: w, svc: svc}, nil
}

// oversizeTally accumulates P11 skip outcomes reported by the walker so
// batch commands can fold them into the printed report.
type oversizeTally struct {
	paths []string
}

func (t *oversizeTally) record(relPath string, size int64) {
	t.paths = append(t.paths, relPath)
}
