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

package indexing

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
)

// primaryConfigName and secondaryConfigName are the two project config
// file names the discoverer looks for at each nesting level (spec
// §4.6 step 1). tsconfig.json is checked first since it's overwhelmingly
// the more common of the two in a mixed TS/JS repo.
const (
	primaryConfigName   = "tsconfig.json"
	secondaryConfigName = "jsconfig.json"
)

// rawTSConfig mirrors the on-disk project config schema (spec "Project
// config schema consumed").
type rawTSConfig struct {
	Extends         string `json:"extends"`
	CompilerOptions struct {
		BaseURL string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// Mappings is the resolved (post-extends-merge) alias configuration for
// one tsconfig_dir (spec §4.6 inputs).
type Mappings struct {
	BaseURL     string
	Paths       map[string][]string
	TSConfigDir string // repo-relative directory the config file lives in
}

// jsoncCommentPattern strips // line comments and /* */ block comments,
// which tsconfig.json commonly contains despite being named .json.
var jsoncCommentPattern = regexp.MustCompile(`(?s)//[^\n]*|/\*.*?\*/`)

func stripJSONC(data []byte) []byte {
	return jsoncCommentPattern.ReplaceAll(data, nil)
}

// discoverConfigs finds every project config file in a repository, up
// to the configured discovery depth below the root (spec §4.6 step 1).
// Ignored directories (walker.go's ignoredDirs) are excluded from the
// scan. The repo root itself is always checked first regardless of
// depth.
func discoverConfigs(repoRoot string, maxDepth int) []string {
	var found []string

	var walk func(dir string, depth int)
	walk = func(dir string, depth int) {
		for _, name := range []string{primaryConfigName, secondaryConfigName} {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				found = append(found, p)
			}
		}
		if depth >= maxDepth {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		for _, e := range entries {
			if !e.IsDir() || ignoredDirs[e.Name()] {
				continue
			}
			walk(filepath.Join(dir, e.Name()), depth+1)
		}
	}
	walk(repoRoot, 0)
	return found
}

// loadMappings parses a single project config and resolves its extends
// chain (cap spec §4.6 step 2: 10 levels, child overrides parent). A
// parse failure anywhere in the chain yields ("no mappings") — nil,
// not an error — since the resolver must still handle relative imports
// (spec §4.6 step 3).
func loadMappings(configPath string) *Mappings {
	chain, ok := loadExtendsChain(configPath, 10)
	if !ok {
		return nil
	}

	merged := &rawTSConfig{CompilerOptions: struct {
		BaseURL string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	}{Paths: map[string][]string{}}}

	// chain is ordered closest-first (the leaf config at index 0); apply
	// child-over-parent by folding from the base up to the leaf.
	for i := len(chain) - 1; i >= 0; i-- {
		cfg := chain[i]
		if cfg.CompilerOptions.BaseURL != "" {
			merged.CompilerOptions.BaseURL = cfg.CompilerOptions.BaseURL
		}
		for k, v := range cfg.CompilerOptions.Paths {
			merged.CompilerOptions.Paths[k] = v
		}
	}

	return &Mappings{
		BaseURL:     merged.CompilerOptions.BaseURL,
		Paths:       merged.CompilerOptions.Paths,
		TSConfigDir: filepath.Dir(configPath),
	}
}

// loadExtendsChain returns the chain from configPath up through its
// extends ancestors, closest-first, capped at maxLevels. ok is false on
// any read or parse failure; a cycle ends the chain at the first
// repeated file and still returns ok.
func loadExtendsChain(configPath string, maxLevels int) ([]*rawTSConfig, bool) {
	var chain []*rawTSConfig
	seen := map[string]bool{}
	current := configPath

	for level := 0; level < maxLevels; level++ {
		abs, err := filepath.Abs(current)
		if err != nil || seen[abs] {
			break
		}
		seen[abs] = true

		data, err := os.ReadFile(current)
		if err != nil {
			return nil, false
		}
		var cfg rawTSConfig
		if err := json.Unmarshal(stripJSONC(data), &cfg); err != nil {
			return nil, false
		}
		chain = append(chain, &cfg)

		if cfg.Extends == "" {
			break
		}
		current = filepath.Join(filepath.Dir(current), cfg.Extends)
		if filepath.Ext(current) == "" {
			current += ".json"
		}
	}

	return chain, true
}
