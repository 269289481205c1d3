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

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kotadb/graphidx/internal/bootstrap"
	cliErrors "github.com/kotadb/graphidx/internal/errors"
	"github.com/kotadb/graphidx/internal/output"
	"github.com/kotadb/graphidx/pkg/storage"
)

// runQuery executes 'graphidx query [options] <datalog>': a raw
// CozoScript escape hatch over the same graph store the rest of the
// CLI uses structured commands against.
func runQuery(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	fullName := fs.String("repo", "", "Repository full name (overrides .graphidx/config.yaml)")
	timeout := fs.Duration("timeout", 30*time.Second, "Query timeout")
	limit := fs.Int("limit", 0, "Add :limit to the script (0 = no limit)")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: graphidx query [options] <datalog>

Executes a raw CozoScript query against the local graph store.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprint(os.Stderr, `
Examples:
  # List all symbols
  graphidx query "?[name, kind] := *symbol { name, kind }" --limit 10

  # Find files importing a path
  graphidx query "?[path] := *indexed_file { id, path }, *reference { source_file_id: id, target_symbol_key: 'pkg/foo' }"
`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(1)
	}

	script := fs.Arg(0)
	if *limit > 0 {
		script = strings.TrimSpace(script)
		if !strings.Contains(strings.ToLower(script), ":limit") {
			script = fmt.Sprintf("%s :limit %d", script, *limit)
		}
	}

	logger := newCLILogger(globals)
	repositoryID, err := resolveRepositoryID(*fullName)
	if err != nil {
		cliErrors.FatalError(cliErrors.NewInputError("cannot resolve repository", err.Error(), "pass --repo or run this command from an initialized working tree"), globals.JSON)
	}

	backend, err := bootstrap.OpenRepository(bootstrap.RepositoryConfig{RepositoryID: repositoryID}, logger)
	if err != nil {
		cliErrors.FatalError(cliErrors.NewDatabaseError("cannot open graph store", err.Error(), "run 'graphidx init' first", err), globals.JSON)
	}
	defer func() { _ = backend.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := backend.Query(ctx, script)
	if err != nil {
		cliErrors.FatalError(cliErrors.NewDatabaseError("query failed", err.Error(), "check the CozoScript syntax", err), globals.JSON)
	}

	if globals.JSON {
		_ = output.JSON(map[string]any{
			"headers": result.Headers,
			"rows":    result.Rows,
			"count":   len(result.Rows),
		})
		return
	}
	printQueryResult(result)
}

func printQueryResult(result *storage.QueryResult) {
	if len(result.Rows) == 0 {
		fmt.Println("No results")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	for i, h := range result.Headers {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, strings.ToUpper(h))
	}
	fmt.Fprintln(w)

	for i := range result.Headers {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, "---")
	}
	fmt.Fprintln(w)

	for _, row := range result.Rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, formatCell(cell))
		}
		fmt.Fprintln(w)
	}
	_ = w.Flush()

	fmt.Printf("\n(%d rows)\n", len(result.Rows))
}

func formatCell(v any) string {
	switch val := v.(type) {
	case string:
		if len(val) > 60 {
			return val[:57] + "..."
		}
		return val
	case float64:
		if val == float64(int(val)) {
			return fmt.Sprintf("%d", int(val))
		}
		return fmt.Sprintf("%.2f", val)
	case nil:
		return "<null>"
	default:
		s := fmt.Sprintf("%v", val)
		if len(s) > 60 {
			return s[:57] + "..."
		}
		return s
	}
}
