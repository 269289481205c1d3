// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package indexing

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

// GenerateRepositoryID generates a deterministic repository ID from its
// full_name (owner/name). Re-indexing the same repository always yields
// the same ID, so repository rows upsert instead of duplicating.
func GenerateRepositoryID(fullName string) string {
	hash := sha256.Sum256([]byte(fullName))
	return fmt.Sprintf("repo:%s", hex.EncodeToString(hash[:16]))
}

// GenerateFileID generates a deterministic IndexedFile ID from the
// repository it belongs to and its path. Strategy: use the normalized
// path as the ID when short enough, otherwise hash it to keep IDs
// manageable.
func GenerateFileID(repositoryID, filePath string) string {
	normalized := normalizePath(filePath)
	idStr := fmt.Sprintf("%s|%s", repositoryID, normalized)

	if len(idStr) <= 256 {
		return fmt.Sprintf("file:%s", idStr)
	}

	hash := sha256.Sum256([]byte(idStr))
	return fmt.Sprintf("file:%s", hex.EncodeToString(hash[:16]))
}

// GenerateSymbolID generates a deterministic Symbol ID.
// Strategy: hash(file_id + name + kind + start_line + end_line).
// Signature and documentation are excluded so the ID stays stable when
// parser improvements change extraction of either; they live as plain
// columns on the symbol row instead.
func GenerateSymbolID(fileID, name, kind string, startLine, endLine int) string {
	idStr := fmt.Sprintf("%s|%s|%s|%d|%d", fileID, name, kind, startLine, endLine)
	hash := sha256.Sum256([]byte(idStr))
	return fmt.Sprintf("sym:%s", hex.EncodeToString(hash[:]))
}

// GenerateReferenceID generates a deterministic Reference ID.
// Strategy: hash(source_file_id + line + column + reference_type). Two
// references from the same source line and column can only differ in
// type (e.g. both an import and a call resolving through the same
// token), so type is folded into the hash to disambiguate.
func GenerateReferenceID(sourceFileID string, line, column int, referenceType string) string {
	idStr := fmt.Sprintf("%s|%d|%d|%s", sourceFileID, line, column, referenceType)
	hash := sha256.Sum256([]byte(idStr))
	return fmt.Sprintf("ref:%s", hex.EncodeToString(hash[:]))
}

// GenerateEdgeID generates a deterministic DependencyEdge ID from
// whichever endpoint fields are populated (file-to-file edges leave the
// symbol fields empty, symbol-to-symbol edges leave the file fields
// empty) plus the dependency type, so re-running the pipeline over an
// unchanged file produces the same edge IDs instead of duplicates.
func GenerateEdgeID(fromFileID, toFileID, fromSymbolID, toSymbolID, dependencyType string) string {
	idStr := fmt.Sprintf("%s|%s|%s|%s|%s", fromFileID, toFileID, fromSymbolID, toSymbolID, dependencyType)
	hash := sha256.Sum256([]byte(idStr))
	return fmt.Sprintf("edge:%s", hex.EncodeToString(hash[:]))
}

// GenerateJobID generates a new random IndexJob ID. Unlike the other
// entities, a job record is not content-addressed: two jobs against the
// same repository and ref are distinct runs, so the ID must not collide
// across invocations even when every other field matches.
func GenerateJobID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing means the system entropy source is broken;
		// fall back to a fixed-but-unlikely-to-collide marker rather
		// than panicking mid-pipeline.
		return "job:00000000000000000000000000000000"
	}
	return fmt.Sprintf("job:%s", hex.EncodeToString(buf[:]))
}

// normalizePath normalizes a file path for consistent ID generation.
// Ensures cross-platform consistency by:
//   - Removing leading ./
//   - Normalizing path separators to forward slashes (cross-platform)
//   - Cleaning the path (removing redundant separators, etc.)
//   - Converting absolute paths to relative (if they start with common prefixes)
func normalizePath(path string) string {
	if len(path) >= 2 && path[0:2] == "./" {
		path = path[2:]
	}
	path = filepath.Clean(path)
	path = filepath.ToSlash(path)
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	return path
}
