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
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
)

// ignoredDirs is the exact-basename set the walker never descends into
// (spec §4.1).
var ignoredDirs = map[string]bool{
	".git": true, "node_modules": true, "dist": true, "build": true,
	"out": true, "target": true, ".cache": true, ".next": true,
	".nuxt": true, ".output": true, ".parcel-cache": true, ".svelte-kit": true,
	".turbo": true, ".vercel": true, ".vite": true, "coverage": true,
	"__pycache__": true, ".pytest_cache": true, "venv": true, ".venv": true,
	"env": true, "vendor": true,
}

// supportedExtensions is the closed set of lower-cased extensions the
// walker treats as source (spec §4.1, watched set from §6). This drives
// which files are discovered at all; the parser (C3) narrows this
// further to the subset it can build an AST for.
var supportedExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
	".py": true, ".rs": true, ".go": true, ".java": true, ".kt": true, ".swift": true,
	".c": true, ".cpp": true, ".h": true, ".hpp": true, ".cs": true, ".rb": true,
	".php": true, ".vue": true, ".svelte": true, ".proto": true, ".json": true,
}

// Walker discovers supported source files under a working-tree root.
type Walker struct {
	logger *slog.Logger
}

// NewWalker creates a Walker. A nil logger falls back to slog.Default.
func NewWalker(logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{logger: logger}
}

// Walk returns a deterministic, sorted sequence of supported source
// paths under root, honoring ignoredDirs, maxFileSize, and any
// supplementary excludeGlobs. Directory read and entry stat failures
// are skipped with a warning, never fatal (spec §4.1).
func (w *Walker) Walk(root string, excludeGlobs []string, maxFileSize int64) ([]FileInfo, map[string]int) {
	var files []FileInfo
	skipReasons := make(map[string]int)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("walker.stat.error", "path", path, "err", err)
			skipReasons["stat_error"]++
			return nil
		}

		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath != "." && ignoredDirs[filepath.Base(path)] {
				skipReasons["ignored_dir"]++
				return filepath.SkipDir
			}
			if shouldExclude(relPath, excludeGlobs) {
				skipReasons["excluded_dir"]++
				return filepath.SkipDir
			}
			return nil
		}

		if shouldExclude(relPath, excludeGlobs) {
			skipReasons["excluded"]++
			return nil
		}

		ext := strings.ToLower(filepath.Ext(relPath))
		if !supportedExtensions[ext] {
			skipReasons["unsupported_extension"]++
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			w.logger.Warn("walker.info.error", "path", relPath, "err", infoErr)
			skipReasons["stat_error"]++
			return nil
		}

		if maxFileSize > 0 && info.Size() > maxFileSize {
			w.logger.Warn("walker.skip_large_file", "path", relPath, "size", info.Size(), "limit", maxFileSize)
			skipReasons["too_large"]++
			return nil
		}

		files = append(files, FileInfo{
			Path:     relPath,
			FullPath: path,
			Size:     info.Size(),
			Language: languageForExtension(ext),
		})
		return nil
	})
	if err != nil {
		w.logger.Warn("walker.walk.error", "root", root, "err", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, skipReasons
}
