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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// languageExtensions is the closed extension-to-language mapping (spec
// §4.2). Extensions absent from this map tag as "unknown"; the file
// still participates in content storage.
var languageExtensions = map[string]string{
	".ts": "typescript", ".tsx": "typescript",
	".js": "javascript", ".jsx": "javascript", ".mjs": "javascript", ".cjs": "javascript",
	".py": "python", ".rs": "rust", ".go": "go", ".java": "java",
	".kt": "kotlin", ".swift": "swift", ".c": "c", ".cpp": "cpp",
	".h": "c", ".hpp": "cpp", ".cs": "csharp", ".rb": "ruby",
	".php": "php", ".vue": "vue", ".svelte": "svelte", ".proto": "protobuf",
	".json": "json",
}

// languageForExtension returns the tagged language for a lower-cased
// extension (including the leading dot), or "unknown".
func languageForExtension(ext string) string {
	if lang, ok := languageExtensions[strings.ToLower(ext)]; ok {
		return lang
	}
	return "unknown"
}

// Reader loads discovered files into content + language-tagged records.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a Reader. A nil logger falls back to slog.Default.
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger}
}

// Read loads one discovered file's content. On a read error or invalid
// UTF-8 the file is skipped with a warning and a nil result (spec
// §4.2); the caller continues the job rather than aborting it.
func (r *Reader) Read(file FileInfo) (*LoadedFile, error) {
	data, err := os.ReadFile(file.FullPath)
	if err != nil {
		r.logger.Warn("reader.read.error", "path", file.Path, "err", err)
		return nil, fmt.Errorf("read %s: %w", file.Path, err)
	}

	if !utf8.Valid(data) {
		r.logger.Warn("reader.read.invalid_utf8", "path", file.Path)
		return nil, fmt.Errorf("file %s is not valid UTF-8", file.Path)
	}

	ext := strings.ToLower(filepath.Ext(file.Path))
	return &LoadedFile{
		Path:      file.Path,
		Content:   string(data),
		SizeBytes: int64(len(data)),
		Language:  languageForExtension(ext),
	}, nil
}

// ReadAll loads every discovered file, skipping unreadable ones with a
// warning rather than aborting the batch.
func (r *Reader) ReadAll(files []FileInfo) []LoadedFile {
	loaded := make([]LoadedFile, 0, len(files))
	for _, f := range files {
		lf, err := r.Read(f)
		if err != nil {
			continue
		}
		loaded = append(loaded, *lf)
	}
	return loaded
}
