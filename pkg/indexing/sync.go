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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/kotadb/graphidx/internal/contract"
	"github.com/kotadb/graphidx/pkg/storage"
)

// DefaultExportDir is the well-known export directory (spec §6).
const DefaultExportDir = ".kotadb/export"

// syncTables lists every exported relation alongside the Datalog
// column order Export/Import use to round-trip its rows.
var syncTables = []string{"repository", "indexed_file", "symbol", "reference", "dependency_edge", "index_job"}

// Exporter implements C13's export/import/merge contract.
type Exporter struct {
	backend storage.Backend
	logger  *slog.Logger
}

// NewExporter wires an Exporter against a storage backend.
func NewExporter(backend storage.Backend, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{backend: backend, logger: logger}
}

// Export writes one append-only JSONL file per table under dir (spec
// §4.13). Rows are emitted sorted by id for a stable, diffable output.
func (e *Exporter) Export(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	for _, table := range syncTables {
		rows, err := e.queryAllRows(ctx, table)
		if err != nil {
			return fmt.Errorf("query %s: %w", table, err)
		}
		if err := writeJSONLSorted(filepath.Join(dir, table+".jsonl"), rows); err != nil {
			return fmt.Errorf("write %s: %w", table, err)
		}
	}
	return nil
}

func (e *Exporter) queryAllRows(ctx context.Context, table string) ([]map[string]any, error) {
	cols, ok := tableColumns[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	script := fmt.Sprintf("?[%s] := *%s{%s}", joinCols(cols), table, joinCols(cols))
	res, err := e.backend.Query(ctx, script)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]any, 0, len(res.Rows))
	for _, row := range res.Rows {
		m := map[string]any{}
		for i, col := range cols {
			if i < len(row) {
				m[col] = row[i]
			}
		}
		rows = append(rows, m)
	}
	return rows, nil
}

// tableColumns gives the column order for each relation, matching
// pkg/storage.schemaTables.
var tableColumns = map[string][]string{
	"repository":      {"id", "full_name", "default_ref", "installation_id", "owner_user_id", "owner_org_id"},
	"indexed_file":    {"id", "repository_id", "path", "content", "language", "size_bytes", "indexed_at", "metadata"},
	"symbol":          {"id", "file_id", "name", "kind", "line_start", "line_end", "signature", "documentation", "metadata"},
	"reference":       {"id", "source_file_id", "target_symbol_key", "target_file_id", "line_number", "column_number", "reference_type", "metadata"},
	"dependency_edge": {"id", "from_file_id", "to_file_id", "from_symbol_id", "to_symbol_id", "dependency_type", "metadata"},
	"index_job":       {"id", "repository_id", "ref", "commit_sha", "status", "started_at", "completed_at", "error_message", "skip_reason", "retry_count", "stats"},
}

func joinCols(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}

// writeJSONLSorted writes rows to path, one JSON object per line,
// sorted by the "id" field for deterministic output.
func writeJSONLSorted(path string, rows []map[string]any) error {
	sort.Slice(rows, func(i, j int) bool {
		return anyToString(rows[i]["id"]) < anyToString(rows[j]["id"])
	})

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return w.Flush()
}

// Import applies the deletion manifest then loads every table's export
// file back into the store (spec §4.13 import steps 1-3).
func (e *Exporter) Import(ctx context.Context, dir string, manifest *DeletionManifest) error {
	if manifest != nil {
		records, err := manifest.ReadAll()
		if err != nil {
			return fmt.Errorf("read deletion manifest: %w", err)
		}
		if err := e.applyDeletions(ctx, records); err != nil {
			return fmt.Errorf("apply deletions: %w", err)
		}
	}

	for _, table := range syncTables {
		path := filepath.Join(dir, table+".jsonl")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if err := e.loadTable(ctx, table, path); err != nil {
			return fmt.Errorf("load %s: %w", table, err)
		}
	}

	if manifest != nil {
		if err := manifest.Truncate(); err != nil {
			return fmt.Errorf("truncate deletion manifest: %w", err)
		}
	}
	return nil
}

// applyDeletions groups deletion records by table and removes matching
// IDs, tolerating tables that don't exist yet (spec §4.13 import step 1).
func (e *Exporter) applyDeletions(ctx context.Context, records []DeletionRecord) error {
	byTable := map[string][]string{}
	for _, r := range records {
		byTable[r.Table] = append(byTable[r.Table], r.ID)
	}

	for table, ids := range byTable {
		script := fmt.Sprintf(`?[id] := *%s{id}, id in %s
:rm %s {id}`, table, quotedStringList(ids), table)
		if err := e.backend.Execute(ctx, script); err != nil {
			e.logger.Warn("sync.import.delete_error", "table", table, "err", err)
			continue
		}
	}
	return nil
}

// loadTable reads a table's JSONL export and upserts every row via
// :put, honoring each table's unique key (its id column).
func (e *Exporter) loadTable(ctx context.Context, table, path string) error {
	cols, ok := tableColumns[table]
	if !ok {
		return fmt.Errorf("unknown table %q", table)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	const chunkSize = 500
	var rows []map[string]any
	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		script := buildUpsertScript(table, cols, rows)
		if res := contract.ValidateBatchScript(script); !res.OK {
			e.logger.Warn("sync.import.script_too_large", "table", table, "reason", res.Message)
		}
		rows = nil
		return e.backend.Execute(ctx, script)
	}

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var row map[string]any
		if err := json.Unmarshal(line, &row); err != nil {
			e.logger.Warn("sync.import.parse_error", "table", table, "err", err)
			continue
		}
		rows = append(rows, row)
		if len(rows) >= chunkSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return flush()
}

func buildUpsertScript(table string, cols []string, rows []map[string]any) string {
	var sb []byte
	sb = append(sb, fmt.Sprintf("?[%s] <- [", joinCols(cols))...)
	for i, row := range rows {
		if i > 0 {
			sb = append(sb, ", "...)
		}
		sb = append(sb, '[')
		for j, col := range cols {
			if j > 0 {
				sb = append(sb, ", "...)
			}
			sb = append(sb, jsonLiteral(row[col])...)
		}
		sb = append(sb, ']')
	}
	sb = append(sb, ']', '\n')
	sb = append(sb, fmt.Sprintf(":put %s {%s}", table, joinCols(cols))...)
	return string(sb)
}

func jsonLiteral(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(data)
}

// ThreeWayMerge implements spec §4.13's three-way merge of export
// files: tokenize BASE/OURS/THEIRS by id, prefer THEIRS for any id it
// contains, else OURS, else BASE; output sorted by id. Lines missing
// an "id" field are dropped with a warning.
func ThreeWayMerge(logger *slog.Logger, base, ours, theirs []byte) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}

	baseLines := tokenizeByID(logger, base)
	oursLines := tokenizeByID(logger, ours)
	theirsLines := tokenizeByID(logger, theirs)

	merged := map[string][]byte{}
	for id, line := range baseLines {
		merged[id] = line
	}
	for id, line := range oursLines {
		merged[id] = line
	}
	for id, line := range theirsLines {
		merged[id] = line
	}

	ids := make([]string, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []byte
	for _, id := range ids {
		out = append(out, merged[id]...)
		out = append(out, '\n')
	}
	return out, nil
}

func tokenizeByID(logger *slog.Logger, data []byte) map[string][]byte {
	result := map[string][]byte{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var probe struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(line, &probe); err != nil || probe.ID == "" {
			logger.Warn("sync.merge.missing_id", "line", string(line))
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		result[probe.ID] = cp
	}
	return result
}
