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
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/kotadb/graphidx/pkg/storage"
)

// fakeBackend is an in-memory storage.Backend test double. Rather than
// interpreting arbitrary Datalog (the real job of a CozoDB instance),
// it recognizes exactly the fixed set of script shapes this package's
// own datalog.go builders produce — the same narrow-contract approach
// the teacher's MockCIEClient (pkg/tools/mock_client_test.go) takes for
// its own generated-query surface — and keeps small per-table row maps
// so the pipeline's query-back steps see back what pass 1 wrote.
type fakeBackend struct {
	mu sync.Mutex

	tables map[string]map[string][]string // table -> id -> ordered field values

	executed []string
	execErr  error
}

var _ storage.Backend = (*fakeBackend)(nil)

func newFakeBackend() *fakeBackend {
	return &fakeBackend{tables: map[string]map[string][]string{}}
}

// Column order for each table's row layout: every table's foreign key
// used by a :rm ... in clause happens to sit at index 1. Reuses
// sync.go's tableColumns (the production column-order source of truth)
// rather than redeclaring it.

var (
	// putRowRe captures a `:put TABLE` statement's row-list literal.
	// It matches both the single-row shape pipeline.go's buildInsert*
	// builders emit and the multi-row shape sync.go's buildUpsertScript
	// emits, since the lazy capture backtracks until the literal "]"
	// immediately preceding "\n:put" — which is the list's true closing
	// bracket in either case.
	putRowRe        = regexp.MustCompile(`(?s)<- \[(.*?)\]\s*\n:put (\w+)`)
	rmByRepoPathRe  = regexp.MustCompile(`(?s)\*indexed_file\{id, repository_id, path\}, repository_id = "((?:[^"\\]|\\.)*)", path in (\[.*?\])\n:rm indexed_file \{id\}`)
	rmByRepoRe      = regexp.MustCompile(`(?s)\*(\w+)\{id, repository_id\}, repository_id = "((?:[^"\\]|\\.)*)"\n:rm \w+ \{id\}`)
	rmByFieldInRe   = regexp.MustCompile(`(?s)\*(\w+)\{id, (\w+)\}, \w+ in (\[.*?\])\n:rm (\w+) \{id\}`)
	rmByIDInRe      = regexp.MustCompile(`(?s)\*(\w+)\{id\}, id in (\[.*?\])\n:rm (\w+) \{id\}`)
	selectAllRe     = regexp.MustCompile(`^\?\[.+\] := \*(\w+)\{.+\}$`)
	queryFilesRe    = regexp.MustCompile(`repository_id = "((?:[^"\\]|\\.)*)"`)
	queryLimitRe    = regexp.MustCompile(`:limit (\d+)`)
	queryOffsetRe   = regexp.MustCompile(`:offset (\d+)`)
	queryFileIDInRe = regexp.MustCompile(`file_id in (\[.*?\])`)
)

func (f *fakeBackend) Execute(_ context.Context, script string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = append(f.executed, script)
	if f.execErr != nil {
		return f.execErr
	}

	for _, m := range putRowRe.FindAllStringSubmatch(script, -1) {
		table := m[2]
		if f.tables[table] == nil {
			f.tables[table] = map[string][]string{}
		}
		for _, rowLiteral := range splitRowGroups(m[1]) {
			inner := strings.TrimSuffix(strings.TrimPrefix(rowLiteral, "["), "]")
			fields := splitTopLevelCSV(inner)
			if len(fields) == 0 {
				continue
			}
			id := unquoteField(fields[0])
			values := make([]string, len(fields))
			for i, raw := range fields {
				values[i] = unquoteField(raw)
			}
			f.tables[table][id] = values
		}
	}

	if m := rmByRepoPathRe.FindStringSubmatch(script); m != nil {
		repoID := m[1]
		paths := parseQuotedStringList(m[2])
		wanted := make(map[string]bool, len(paths))
		for _, p := range paths {
			wanted[p] = true
		}
		f.deleteWhere("indexed_file", func(row []string) bool {
			return row[1] == repoID && wanted[row[2]]
		})
		return nil
	}

	if m := rmByRepoRe.FindStringSubmatch(script); m != nil {
		table, repoID := m[1], m[2]
		f.deleteWhere(table, func(row []string) bool { return row[1] == repoID })
		return nil
	}

	for _, m := range rmByFieldInRe.FindAllStringSubmatch(script, -1) {
		table := m[1]
		ids := parseQuotedStringList(m[3])
		wanted := make(map[string]bool, len(ids))
		for _, id := range ids {
			wanted[id] = true
		}
		f.deleteWhere(table, func(row []string) bool { return wanted[row[1]] })
	}

	// applyDeletions' `*TABLE{id}, id in [...]` shape matches on the
	// row's own primary key rather than a foreign-key column.
	for _, m := range rmByIDInRe.FindAllStringSubmatch(script, -1) {
		table := m[1]
		ids := parseQuotedStringList(m[2])
		wanted := make(map[string]bool, len(ids))
		for _, id := range ids {
			wanted[id] = true
		}
		f.deleteWhere(table, func(row []string) bool { return wanted[row[0]] })
	}

	return nil
}

func (f *fakeBackend) deleteWhere(table string, match func(row []string) bool) {
	rows := f.tables[table]
	for id, row := range rows {
		if match(row) {
			delete(rows, id)
		}
	}
}

func (f *fakeBackend) Query(_ context.Context, script string) (*storage.QueryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	trimmed := strings.TrimSpace(script)
	if !strings.Contains(trimmed, "\n") {
		// Exporter.queryAllRows' unfiltered `?[cols] := *table{cols}`
		// shape is always a single line; the filtered/paginated query
		// builders below always span multiple lines.
		if m := selectAllRe.FindStringSubmatch(trimmed); m != nil {
			return f.queryAllRows(m[1]), nil
		}
	}

	switch {
	case strings.Contains(script, "*indexed_file{id, repository_id, path, content, language, size_bytes, indexed_at, metadata}"):
		return f.queryFiles(script), nil
	case strings.Contains(script, "*symbol{id, file_id, name, kind, line_start, line_end, signature, documentation, metadata}"):
		return f.querySymbols(script), nil
	}
	return &storage.QueryResult{}, nil
}

// queryAllRows returns every row of table, unsorted (callers like
// Exporter.Export sort their own output by id before writing).
func (f *fakeBackend) queryAllRows(table string) *storage.QueryResult {
	var rows [][]any
	for _, row := range f.tables[table] {
		rows = append(rows, stringRowToAny(row))
	}
	return &storage.QueryResult{
		Headers: tableColumns[table],
		Rows:    rows,
	}
}

func (f *fakeBackend) queryFiles(script string) *storage.QueryResult {
	m := queryFilesRe.FindStringSubmatch(script)
	if m == nil {
		return &storage.QueryResult{}
	}
	repoID := m[1]
	limit := 1000
	if lm := queryLimitRe.FindStringSubmatch(script); lm != nil {
		limit, _ = strconv.Atoi(lm[1])
	}
	offset := 0
	if om := queryOffsetRe.FindStringSubmatch(script); om != nil {
		offset, _ = strconv.Atoi(om[1])
	}

	var ids []string
	for id, row := range f.tables["indexed_file"] {
		if row[1] == repoID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	if offset > len(ids) {
		offset = len(ids)
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}

	var rows [][]any
	for _, id := range ids[offset:end] {
		row := f.tables["indexed_file"][id]
		rows = append(rows, stringRowToAny(row))
	}
	return &storage.QueryResult{
		Headers: tableColumns["indexed_file"],
		Rows:    rows,
	}
}

func (f *fakeBackend) querySymbols(script string) *storage.QueryResult {
	m := queryFileIDInRe.FindStringSubmatch(script)
	if m == nil {
		return &storage.QueryResult{}
	}
	wanted := make(map[string]bool)
	for _, id := range parseQuotedStringList(m[1]) {
		wanted[id] = true
	}

	var rows [][]any
	for _, row := range f.tables["symbol"] {
		if wanted[row[1]] {
			rows = append(rows, stringRowToAny(row))
		}
	}
	return &storage.QueryResult{
		Headers: tableColumns["symbol"],
		Rows:    rows,
	}
}

func (f *fakeBackend) Close() error { return nil }

func (f *fakeBackend) executedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.executed)
}

func (f *fakeBackend) rowCount(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[table])
}

func stringRowToAny(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

// splitRowGroups splits a Datalog row-list body such as
// `[v1, v2], [v3, v4]` into its individual bracketed row literals
// (`[v1, v2]`, `[v3, v4]`), tracking bracket depth and quoted strings so
// commas and brackets inside a field value never cause a false split.
func splitRowGroups(s string) []string {
	var out []string
	depth := 0
	start := -1
	inStr := false
	esc := false
	for i, r := range s {
		if esc {
			esc = false
			continue
		}
		switch r {
		case '\\':
			if inStr {
				esc = true
			}
		case '"':
			inStr = !inStr
		case '[':
			if !inStr {
				if depth == 0 {
					start = i
				}
				depth++
			}
		case ']':
			if !inStr {
				depth--
				if depth == 0 && start >= 0 {
					out = append(out, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return out
}

// splitTopLevelCSV splits a comma-separated Datalog row/list literal
// into its fields, treating commas inside double-quoted strings as part
// of the field rather than a separator.
func splitTopLevelCSV(s string) []string {
	var out []string
	var cur strings.Builder
	inStr := false
	esc := false
	for _, r := range s {
		if esc {
			cur.WriteRune(r)
			esc = false
			continue
		}
		switch r {
		case '\\':
			cur.WriteRune(r)
			esc = true
		case '"':
			inStr = !inStr
			cur.WriteRune(r)
		case ',':
			if inStr {
				cur.WriteRune(r)
			} else {
				out = append(out, strings.TrimSpace(cur.String()))
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if trimmed := strings.TrimSpace(cur.String()); trimmed != "" {
		out = append(out, trimmed)
	}
	return out
}

// unquoteField strips the Go-style %q quoting datalog.go's builders use
// for string fields; non-string (integer) fields pass through unchanged.
func unquoteField(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `"`) {
		if v, err := strconv.Unquote(s); err == nil {
			return v
		}
	}
	return s
}

// parseQuotedStringList parses a quotedStringList literal, e.g.
// `["a", "b"]`, into its unquoted elements.
func parseQuotedStringList(literal string) []string {
	literal = strings.TrimSpace(literal)
	literal = strings.TrimPrefix(literal, "[")
	literal = strings.TrimSuffix(literal, "]")
	var out []string
	for _, f := range splitTopLevelCSV(literal) {
		if f == "" {
			continue
		}
		out = append(out, unquoteField(f))
	}
	return out
}
