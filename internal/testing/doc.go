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

// Package testing provides test helpers for graphidx's graph-store
// integration tests.
//
// # Quick Start
//
// Use SetupTestBackend to create an in-memory backend with the
// graphidx schema already applied:
//
//	func TestMyFeature(t *testing.T) {
//	    backend := testing.SetupTestBackend(t)
//
//	    testing.InsertTestFile(t, backend, "file1", "repo1", "main.go", "go", 100)
//
//	    files := testing.QueryFiles(t, backend)
//	    require.Len(t, files.Rows, 1)
//	}
//
// # Seeding Test Data
//
// The package provides helpers for inserting rows of every entity in
// spec.md §3:
//
//   - InsertTestRepository
//   - InsertTestFile
//   - InsertTestSymbol
//   - InsertTestReference
//   - InsertTestFileEdge
//
// # Querying Test Data
//
//   - QueryFiles
//   - QuerySymbols
//   - QueryFileEdges
package testing
