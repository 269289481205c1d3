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

import "strings"

// parseProtobufSimplified extracts services, RPCs, messages, and enums
// from .proto source using line-oriented scanning rather than an AST
// (no tree-sitter-proto grammar is bundled). Services become
// SymbolInterface, RPCs become SymbolMethod, messages become
// SymbolClass, enums become SymbolEnum. No References are extracted;
// cross-file .proto imports are left unresolved.
func parseProtobufSimplified(content []byte) *ParseResult {
	result := &ParseResult{}
	lines := strings.Split(string(content), "\n")

	var currentService string
	var serviceStartLine int
	braceDepth := 0

	for i, line := range lines {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*") {
			continue
		}

		if currentService == "" && strings.HasPrefix(trimmed, "service ") && strings.Contains(trimmed, "{") {
			parts := strings.Fields(trimmed)
			if len(parts) >= 2 {
				currentService = strings.TrimSuffix(parts[1], "{")
				serviceStartLine = lineNum
				braceDepth = strings.Count(trimmed, "{") - strings.Count(trimmed, "}")
				if braceDepth == 0 {
					result.Symbols = append(result.Symbols, protoSymbol(currentService, SymbolInterface, serviceStartLine, lineNum, "service "+currentService))
					currentService = ""
				}
			}
			continue
		}

		if currentService != "" {
			braceDepth += strings.Count(trimmed, "{") - strings.Count(trimmed, "}")

			if strings.HasPrefix(trimmed, "rpc ") {
				rpcName, rpcSignature := extractRPCSignature(trimmed)
				if rpcName != "" {
					result.Symbols = append(result.Symbols, protoSymbol(currentService+"."+rpcName, SymbolMethod, lineNum, lineNum, rpcSignature))
				}
			}

			if braceDepth == 0 {
				result.Symbols = append(result.Symbols, protoSymbol(currentService, SymbolInterface, serviceStartLine, lineNum, "service "+currentService))
				currentService = ""
			}
			continue
		}

		if strings.HasPrefix(trimmed, "message ") && strings.Contains(trimmed, "{") {
			parts := strings.Fields(trimmed)
			if len(parts) >= 2 {
				name := strings.TrimSuffix(parts[1], "{")
				endLine := findProtobufBlockEnd(lines, i)
				result.Symbols = append(result.Symbols, protoSymbol(name, SymbolClass, lineNum, endLine, "message "+name))
			}
			continue
		}

		if strings.HasPrefix(trimmed, "enum ") && strings.Contains(trimmed, "{") {
			parts := strings.Fields(trimmed)
			if len(parts) >= 2 {
				name := strings.TrimSuffix(parts[1], "{")
				endLine := findProtobufBlockEnd(lines, i)
				result.Symbols = append(result.Symbols, protoSymbol(name, SymbolEnum, lineNum, endLine, "enum "+name))
			}
		}
	}

	return result
}

func protoSymbol(name string, kind SymbolKind, startLine, endLine int, signature string) ExtractedSymbol {
	return ExtractedSymbol{
		Name:      name,
		Kind:      kind,
		LineStart: startLine,
		LineEnd:   endLine,
		Signature: signature,
	}
}

// extractRPCSignature extracts the RPC name and full signature from a
// proto "rpc Name(Req) returns (Resp);" line.
func extractRPCSignature(line string) (name, signature string) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(line), "rpc ")
	parenIdx := strings.Index(trimmed, "(")
	if parenIdx == -1 {
		return "", ""
	}
	name = strings.TrimSpace(trimmed[:parenIdx])

	semiIdx := strings.Index(trimmed, ";")
	braceIdx := strings.Index(trimmed, "{")
	endIdx := len(trimmed)
	if semiIdx >= 0 && (braceIdx < 0 || semiIdx < braceIdx) {
		endIdx = semiIdx
	} else if braceIdx >= 0 {
		endIdx = braceIdx
	}
	return name, "rpc " + strings.TrimSpace(trimmed[:endIdx])
}

// findProtobufBlockEnd finds the 1-indexed end line of a brace-delimited
// block (message, enum) starting at the given 0-indexed line.
func findProtobufBlockEnd(lines []string, startIdx int) int {
	braceCount := 0
	started := false
	for i := startIdx; i < len(lines); i++ {
		line := lines[i]
		braceCount += strings.Count(line, "{") - strings.Count(line, "}")
		if !started && strings.Contains(line, "{") {
			started = true
		}
		if started && braceCount == 0 {
			return i + 1
		}
	}
	return len(lines)
}
