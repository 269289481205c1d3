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
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// resolverExtensions is the ordered extension-candidate list (spec
// §4.6 step 4).
var resolverExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}

// resolverExtensionSubstitutions maps a compiled-output extension to
// the source extension a TS/JS project would actually contain on disk.
var resolverExtensionSubstitutions = map[string]string{
	".js": ".ts", ".jsx": ".tsx", ".mjs": ".mts", ".cjs": ".cts",
}

var resolverIndexFiles = []string{"index.ts", "index.tsx", "index.js", "index.jsx"}

// Resolver maps import specifiers to files using tsconfig/jsconfig
// path aliases plus plain relative-import resolution (spec §4.6).
//
//	resolver := indexing.LoadResolver(repoRoot, fileSet, cfg)
//	target, ok := resolver.Resolve(fromFile, importSpecifier)
type Resolver struct {
	repoRoot string
	fileSet  map[string]bool
	configs  []*Mappings // sorted by TSConfigDir depth, deepest first
}

// LoadResolver discovers and parses every project config under
// repoRoot (spec §4.6 step 1) and returns a Resolver ready to resolve
// import strings against fileSet, a set of repo-relative,
// forward-slashed paths known to the current index.
func LoadResolver(repoRoot string, fileSet map[string]bool, cfg Config) *Resolver {
	r := &Resolver{repoRoot: repoRoot, fileSet: fileSet}

	for _, configPath := range discoverConfigs(repoRoot, cfg.TSConfigDiscoveryDepth) {
		m := loadMappings(configPath)
		if m == nil {
			continue
		}
		rel, err := filepath.Rel(repoRoot, m.TSConfigDir)
		if err != nil {
			rel = "."
		}
		m.TSConfigDir = filepath.ToSlash(rel)
		r.configs = append(r.configs, m)
	}

	sort.Slice(r.configs, func(i, j int) bool {
		return len(r.configs[i].TSConfigDir) > len(r.configs[j].TSConfigDir)
	})

	return r
}

// Resolve turns importString (as written in importingFile) into a
// repo-relative path known to fileSet. ok is false for external
// (unresolvable, non-relative) specifiers and for relative imports
// with no matching file on disk.
func (r *Resolver) Resolve(importingFile, importString string) (string, bool) {
	if strings.HasPrefix(importString, ".") {
		dir := path.Dir(importingFile)
		joined := path.Clean(path.Join(dir, importString))
		return resolveFileCandidate(joined, r.fileSet)
	}

	mapping := r.enclosingMapping(importingFile)
	if mapping == nil {
		return "", false
	}

	patterns := make([]string, 0, len(mapping.Paths))
	for p := range mapping.Paths {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)

	for _, pattern := range patterns {
		suffix, ok := matchAliasPattern(pattern, importString)
		if !ok {
			continue
		}
		for _, candidateTemplate := range mapping.Paths[pattern] {
			substituted := strings.ReplaceAll(candidateTemplate, "*", suffix)
			joined := filepath.Join(r.repoRoot, mapping.TSConfigDir, mapping.BaseURL, substituted)
			rel, err := filepath.Rel(r.repoRoot, joined)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if resolved, ok := resolveFileCandidate(rel, r.fileSet); ok {
				return resolved, true
			}
		}
	}

	return "", false
}

// enclosingMapping returns the config whose TSConfigDir is the
// longest-matching ancestor of filePath, nil if none applies.
func (r *Resolver) enclosingMapping(filePath string) *Mappings {
	for _, m := range r.configs {
		if m.TSConfigDir == "." || m.TSConfigDir == "" {
			return m
		}
		if strings.HasPrefix(filePath, m.TSConfigDir+"/") {
			return m
		}
	}
	return nil
}

// matchAliasPattern implements spec §4.6's paths pattern matching.
// Exact patterns (no "*") match only identical strings. Wildcard
// patterns split as prefix*suffix; prefix must be non-empty or the
// pattern is rejected outright.
func matchAliasPattern(pattern, importString string) (matchedSuffix string, ok bool) {
	star := strings.Index(pattern, "*")
	if star == -1 {
		return "", importString == pattern
	}

	prefix := pattern[:star]
	suffix := pattern[star+1:]
	if prefix == "" {
		return "", false
	}
	if !strings.HasPrefix(importString, prefix) {
		return "", false
	}
	if suffix != "" && !strings.HasSuffix(importString, suffix) {
		return "", false
	}
	if len(importString) < len(prefix)+len(suffix) {
		return "", false
	}
	return importString[len(prefix) : len(importString)-len(suffix)], true
}

// resolveFileCandidate probes extension candidates then index-file
// fallbacks for a repo-relative path with no guaranteed extension
// (spec §4.6 steps 4-5).
func resolveFileCandidate(resolved string, fileSet map[string]bool) (string, bool) {
	if p, ok := probeExtensionCandidates(resolved, fileSet); ok {
		return p, true
	}
	for _, idx := range resolverIndexFiles {
		candidate := path.Join(resolved, idx)
		if fileSet[candidate] {
			return candidate, true
		}
	}
	return "", false
}

func probeExtensionCandidates(resolved string, fileSet map[string]bool) (string, bool) {
	ext := path.Ext(resolved)
	if isResolverExtension(ext) {
		if fileSet[resolved] {
			return resolved, true
		}
		if sub, ok := resolverExtensionSubstitutions[ext]; ok {
			candidate := strings.TrimSuffix(resolved, ext) + sub
			if fileSet[candidate] {
				return candidate, true
			}
		}
		return "", false
	}

	for _, e := range resolverExtensions {
		candidate := resolved + e
		if fileSet[candidate] {
			return candidate, true
		}
	}
	return "", false
}

func isResolverExtension(ext string) bool {
	for _, e := range resolverExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
