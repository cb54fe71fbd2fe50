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

package sidecar

import (
	"encoding/json"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the recognized shape of a project's .fmmrc.json (or, as a
// convenience this producer also accepts, .fmmrc.yaml).
type Config struct {
	Languages         []string `json:"languages" yaml:"languages"`
	Format            string   `json:"format,omitempty" yaml:"format,omitempty"` // reserved
	IncludeLOC        *bool    `json:"include_loc,omitempty" yaml:"include_loc,omitempty"`
	MaxFileSizeKB     *int     `json:"max_file_size,omitempty" yaml:"max_file_size,omitempty"`
	IncludeComplexity bool     `json:"include_complexity,omitempty" yaml:"include_complexity,omitempty"` // reserved, no effect
}

// DefaultLanguages is the extension set processed absent a languages
// override.
var DefaultLanguages = []string{"ts", "tsx", "js", "jsx", "py", "rs", "go"}

// DefaultMaxFileSizeKB is the size gate applied absent an override; 0
// disables the gate.
const DefaultMaxFileSizeKB = 1024

// LoadConfig reads <root>/.fmmrc.json, falling back to <root>/.fmmrc.yaml
// if the JSON file is absent. A missing config of either form yields
// Defaults() with no error.
func LoadConfig(root string) (Config, error) {
	jsonPath := filepath.Join(root, ".fmmrc.json")
	if data, err := os.ReadFile(jsonPath); err == nil {
		cfg := Defaults()
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
		return cfg.normalized(), nil
	}

	yamlPath := filepath.Join(root, ".fmmrc.yaml")
	if data, err := os.ReadFile(yamlPath); err == nil {
		cfg := Defaults()
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
		return cfg.normalized(), nil
	}

	return Defaults(), nil
}

// Defaults returns the configuration in effect when no .fmmrc file is
// present.
func Defaults() Config {
	includeLOC := true
	maxKB := DefaultMaxFileSizeKB
	return Config{
		Languages:     append([]string(nil), DefaultLanguages...),
		IncludeLOC:    &includeLOC,
		MaxFileSizeKB: &maxKB,
	}
}

func (c Config) normalized() Config {
	if len(c.Languages) == 0 {
		c.Languages = append([]string(nil), DefaultLanguages...)
	}
	if c.IncludeLOC == nil {
		v := true
		c.IncludeLOC = &v
	}
	if c.MaxFileSizeKB == nil {
		v := DefaultMaxFileSizeKB
		c.MaxFileSizeKB = &v
	}
	return c
}

// MaxFileSizeBytes converts the configured KB gate to bytes; 0 means no
// gate.
func (c Config) MaxFileSizeBytes() int64 {
	if c.MaxFileSizeKB == nil || *c.MaxFileSizeKB == 0 {
		return 0
	}
	return int64(*c.MaxFileSizeKB) * 1024
}
