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

import "strings"

// ParamInfo holds a parsed parameter's name and base type.
type ParamInfo struct {
	Name string
	Type string
}

// ParseGoSignatureParams parses a Go function/method signature string, as
// produced by the Go parser's signature extraction, into its parameter
// names and base types. The receiver clause of a method signature, if
// present, is excluded.
func ParseGoSignatureParams(signature string) []ParamInfo {
	paramStr := ExtractParamString(signature)
	if paramStr == "" {
		return nil
	}

	groups := splitTopLevel(paramStr, ',')

	var params []ParamInfo
	var pendingNames []string

	for _, group := range groups {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}

		name, typ, ok := splitNameAndType(group)
		if !ok {
			// No type in this group: it's a bare name sharing the type
			// declared by a later group (e.g. "a, b int").
			pendingNames = append(pendingNames, group)
			continue
		}

		for _, n := range pendingNames {
			params = append(params, ParamInfo{Name: n, Type: NormalizeType(typ)})
		}
		pendingNames = nil
		params = append(params, ParamInfo{Name: name, Type: NormalizeType(typ)})
	}

	return params
}

// splitNameAndType splits a single parameter group "name type" into its
// two pieces. ok is false when the group is a single token with no type
// (such as the "a" in "a, b int"), which ParseGoSignatureParams treats
// as a name sharing the type of a later group.
func splitNameAndType(group string) (name, typ string, ok bool) {
	idx := strings.IndexByte(group, ' ')
	if idx < 0 {
		return "", "", false
	}
	name = strings.TrimSpace(group[:idx])
	typ = strings.TrimSpace(group[idx+1:])
	if name == "" || typ == "" {
		return "", "", false
	}
	return name, typ, true
}

// NormalizeType strips pointer/slice/variadic markers and package
// qualifiers from a Go type string, leaving the bare local type name.
// Function types collapse to the literal "func".
func NormalizeType(t string) string {
	t = strings.TrimSpace(t)

	if strings.HasPrefix(t, "func") {
		return "func"
	}

	t = strings.TrimPrefix(t, "...")
	for strings.HasPrefix(t, "[]") {
		t = t[2:]
	}
	for strings.HasPrefix(t, "*") {
		t = t[1:]
	}
	t = strings.TrimSpace(t)

	if idx := strings.LastIndexByte(t, '.'); idx >= 0 {
		t = t[idx+1:]
	}

	return t
}

// ExtractParamString extracts the parenthesized parameter list from a Go
// function signature, skipping a leading method receiver clause if one
// is present.
func ExtractParamString(signature string) string {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ""
	}

	rest := strings.TrimPrefix(signature, "func")
	rest = strings.TrimSpace(rest)

	// Method receiver: "(r *Type) Name(...)" — skip the first paren group.
	if strings.HasPrefix(rest, "(") {
		end := matchParen(rest, 0)
		if end < 0 {
			return ""
		}
		rest = strings.TrimSpace(rest[end+1:])
	}

	// rest is now "Name(params) results" or "(params) results" for a
	// func literal; find the first paren group, which is the param list.
	start := strings.IndexByte(rest, '(')
	if start < 0 {
		return ""
	}
	end := matchParen(rest, start)
	if end < 0 || end <= start+1 {
		return ""
	}
	return strings.TrimSpace(rest[start+1 : end])
}

// matchParen returns the index of the ')' matching the '(' at openIdx
// (which must itself be '(' ), or -1 if unmatched.
func matchParen(s string, openIdx int) int {
	depth := 0
	for i := openIdx; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits s on sep, ignoring occurrences nested inside
// parens/brackets/braces (e.g. the comma in "func(int, int) error").
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		default:
			if s[i] == sep && depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}
