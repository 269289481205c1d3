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
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// parseJSFamilyAST extracts Symbols and References from JavaScript or
// TypeScript source using Tree-sitter. The two grammars share almost
// all node types the extractor cares about; isTypeScript only gates
// the TS-only symbol kinds (interface, type alias, enum) and type
// references.
func (p *TreeSitterParser) parseJSFamilyAST(parser *sitter.Parser, content []byte, filePath string, isTypeScript bool) (*ParseResult, error) {
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	rootNode := tree.RootNode()
	if rootNode.HasError() {
		if errorCount := countErrors(rootNode); errorCount > 0 {
			p.logger.Warn("parser.treesitter.js.syntax_errors",
				"path", filePath,
				"error_count", errorCount,
				"typescript", isTypeScript,
			)
		}
	}

	result := &ParseResult{}
	w := &jsWalker{content: content, isTS: isTypeScript, result: result}
	w.walkSymbols(rootNode, nil)
	w.walkReferences(rootNode)
	return result, nil
}

type jsWalker struct {
	content []byte
	isTS    bool
	result  *ParseResult
}

func (w *jsWalker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(w.content[n.StartByte():n.EndByte()])
}

func (w *jsWalker) isExported(n *sitter.Node) bool {
	p := n.Parent()
	if p != nil && p.Type() == "export_statement" {
		return true
	}
	return false
}

// docFor returns the text of an immediately preceding block/line comment
// run, treated as the node's documentation (spec §4.4).
func (w *jsWalker) docFor(n *sitter.Node) string {
	prev := n.PrevSibling()
	if prev == nil || prev.Type() != "comment" {
		return ""
	}
	return strings.TrimSpace(w.text(prev))
}

func jsSpan(n *sitter.Node) (lineStart, lineEnd, colStart, colEnd int) {
	return int(n.StartPoint().Row) + 1, int(n.EndPoint().Row) + 1,
		int(n.StartPoint().Column), int(n.EndPoint().Column)
}

// walkSymbols visits declaration nodes in document order, emitting
// Symbols. classBody is the enclosing class's node when walking
// class members (nil at top level), used to qualify method names.
func (w *jsWalker) walkSymbols(n *sitter.Node, classNode *sitter.Node) {
	if n == nil {
		return
	}

	switch n.Type() {
	case "function_declaration", "generator_function_declaration":
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			ls, le, cs, ce := jsSpan(n)
			w.result.Symbols = append(w.result.Symbols, ExtractedSymbol{
				Name: w.text(nameNode), Kind: SymbolFunction,
				LineStart: ls, LineEnd: le, ColumnStart: cs, ColumnEnd: ce,
				Signature: jsSignature(n, w), Documentation: w.docFor(topDecl(n)),
				IsExported: w.isExported(n),
			})
		}

	case "class_declaration":
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			ls, le, cs, ce := jsSpan(n)
			w.result.Symbols = append(w.result.Symbols, ExtractedSymbol{
				Name: w.text(nameNode), Kind: SymbolClass,
				LineStart: ls, LineEnd: le, ColumnStart: cs, ColumnEnd: ce,
				Documentation: w.docFor(topDecl(n)), IsExported: w.isExported(n),
			})
		}
		if body := n.ChildByFieldName("body"); body != nil {
			for i := 0; i < int(body.ChildCount()); i++ {
				w.walkSymbols(body.Child(i), n)
			}
		}
		return

	case "method_definition":
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			name := w.text(nameNode)
			if classNode != nil {
				if cn := classNode.ChildByFieldName("name"); cn != nil {
					name = w.text(cn) + "." + name
				}
			}
			ls, le, cs, ce := jsSpan(n)
			w.result.Symbols = append(w.result.Symbols, ExtractedSymbol{
				Name: name, Kind: SymbolMethod,
				LineStart: ls, LineEnd: le, ColumnStart: cs, ColumnEnd: ce,
				Signature: jsSignature(n, w), Documentation: w.docFor(n),
			})
		}

	case "public_field_definition", "field_definition":
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			name := w.text(nameNode)
			if classNode != nil {
				if cn := classNode.ChildByFieldName("name"); cn != nil {
					name = w.text(cn) + "." + name
				}
			}
			ls, le, cs, ce := jsSpan(n)
			w.result.Symbols = append(w.result.Symbols, ExtractedSymbol{
				Name: name, Kind: SymbolProperty,
				LineStart: ls, LineEnd: le, ColumnStart: cs, ColumnEnd: ce,
			})
		}

	case "interface_declaration":
		if w.isTS {
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				ls, le, cs, ce := jsSpan(n)
				w.result.Symbols = append(w.result.Symbols, ExtractedSymbol{
					Name: w.text(nameNode), Kind: SymbolInterface,
					LineStart: ls, LineEnd: le, ColumnStart: cs, ColumnEnd: ce,
					Documentation: w.docFor(topDecl(n)), IsExported: w.isExported(n),
				})
			}
		}

	case "type_alias_declaration":
		if w.isTS {
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				ls, le, cs, ce := jsSpan(n)
				w.result.Symbols = append(w.result.Symbols, ExtractedSymbol{
					Name: w.text(nameNode), Kind: SymbolTypeAlias,
					LineStart: ls, LineEnd: le, ColumnStart: cs, ColumnEnd: ce,
					Documentation: w.docFor(topDecl(n)), IsExported: w.isExported(n),
				})
			}
		}

	case "enum_declaration":
		if w.isTS {
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				ls, le, cs, ce := jsSpan(n)
				w.result.Symbols = append(w.result.Symbols, ExtractedSymbol{
					Name: w.text(nameNode), Kind: SymbolEnum,
					LineStart: ls, LineEnd: le, ColumnStart: cs, ColumnEnd: ce,
					Documentation: w.docFor(topDecl(n)), IsExported: w.isExported(n),
				})
			}
		}

	case "variable_declarator":
		nameNode := n.ChildByFieldName("name")
		valueNode := n.ChildByFieldName("value")
		if nameNode != nil && nameNode.Type() == "identifier" {
			if valueNode != nil && isFunctionLike(valueNode.Type()) {
				ls, le, cs, ce := jsSpan(n)
				w.result.Symbols = append(w.result.Symbols, ExtractedSymbol{
					Name: w.text(nameNode), Kind: SymbolFunction,
					LineStart: ls, LineEnd: le, ColumnStart: cs, ColumnEnd: ce,
					Documentation: w.docFor(topDecl(n)), IsExported: w.isExported(topDecl(n)),
				})
			} else if classNode == nil && topDecl(n) != nil && topDecl(n).Type() == "lexical_declaration" {
				ls, le, cs, ce := jsSpan(n)
				w.result.Symbols = append(w.result.Symbols, ExtractedSymbol{
					Name: w.text(nameNode), Kind: SymbolVariable,
					LineStart: ls, LineEnd: le, ColumnStart: cs, ColumnEnd: ce,
					IsExported: w.isExported(topDecl(n)),
				})
			}
		}
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		w.walkSymbols(n.Child(i), classNode)
	}
}

func isFunctionLike(t string) bool {
	switch t {
	case "arrow_function", "function_expression", "function", "generator_function":
		return true
	}
	return false
}

// topDecl walks up past export wrappers to the statement a doc comment
// or export keyword would attach to.
func topDecl(n *sitter.Node) *sitter.Node {
	cur := n
	for cur.Parent() != nil {
		switch cur.Parent().Type() {
		case "export_statement", "lexical_declaration", "variable_declaration":
			cur = cur.Parent()
			continue
		}
		break
	}
	return cur
}

func jsSignature(n *sitter.Node, w *jsWalker) string {
	params := n.ChildByFieldName("parameters")
	if params == nil {
		return ""
	}
	sig := w.text(params)
	if rt := n.ChildByFieldName("return_type"); rt != nil {
		sig += w.text(rt)
	}
	return sig
}

// walkReferences visits every node looking for imports, calls, member
// accesses, and type references. Unlike walkSymbols it is not scoped to
// function bodies: imports live at module scope and type references
// live in type annotations outside executable code.
func (w *jsWalker) walkReferences(n *sitter.Node) {
	if n == nil {
		return
	}

	switch n.Type() {
	case "import_statement":
		w.result.References = append(w.result.References, w.extractImport(n)...)

	case "call_expression":
		if fn := n.ChildByFieldName("function"); fn != nil {
			if ref := w.extractCall(n, fn); ref != nil {
				w.result.References = append(w.result.References, *ref)
			}
		}

	case "member_expression":
		// Skip when this member_expression is itself the callee of a
		// call_expression; extractCall already emitted its reference.
		if p := n.Parent(); p == nil || p.Type() != "call_expression" || p.ChildByFieldName("function") != n {
			if ref := w.extractPropertyAccess(n); ref != nil {
				w.result.References = append(w.result.References, *ref)
			}
		}

	case "type_identifier":
		if w.isTS && w.inTypePosition(n) {
			w.result.References = append(w.result.References, w.extractTypeReference(n))
		}

	case "nested_type_identifier":
		if w.isTS {
			name := n.ChildByFieldName("name")
			if name != nil {
				ref := w.extractTypeReference(n)
				ref.TargetName = w.text(name)
				ref.Metadata[MetaTargetName] = ref.TargetName
				w.result.References = append(w.result.References, ref)
			}
			for i := 0; i < int(n.ChildCount()); i++ {
				w.walkReferences(n.Child(i))
			}
			return
		}
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		w.walkReferences(n.Child(i))
	}
}

// inTypePosition reports whether a type_identifier sits in a type
// annotation rather than a value position (tree-sitter's TS grammar
// only ever places type_identifier under type nodes, but this guards
// against the JS grammar, which has no such node, calling in here).
func (w *jsWalker) inTypePosition(n *sitter.Node) bool {
	return n.Type() == "type_identifier"
}

func (w *jsWalker) extractTypeReference(n *sitter.Node) ExtractedReference {
	name := w.text(n)
	return ExtractedReference{
		TargetName:    name,
		LineNumber:    int(n.StartPoint().Row) + 1,
		ColumnNumber:  int(n.StartPoint().Column),
		ReferenceType: ReferenceTypeReference,
		Metadata:      map[string]string{MetaTargetName: name},
	}
}

func (w *jsWalker) extractImport(n *sitter.Node) []ExtractedReference {
	var source string
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() == "string" {
			source = strings.Trim(w.text(c), `"'`)
			break
		}
	}
	if source == "" {
		return nil
	}

	line := int(n.StartPoint().Row) + 1
	col := int(n.StartPoint().Column)

	clause := n.ChildByFieldName("source")
	_ = clause
	var importClause *sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "import_clause" {
			importClause = n.Child(i)
			break
		}
	}

	if importClause == nil {
		return []ExtractedReference{{
			TargetName:    source,
			LineNumber:    line,
			ColumnNumber:  col,
			ReferenceType: ReferenceImport,
			Metadata:      map[string]string{MetaImportSource: source, MetaIsSideEffect: "true"},
		}}
	}

	var refs []ExtractedReference
	for i := 0; i < int(importClause.ChildCount()); i++ {
		spec := importClause.Child(i)
		switch spec.Type() {
		case "identifier":
			refs = append(refs, ExtractedReference{
				TargetName: w.text(spec), LineNumber: line, ColumnNumber: col,
				ReferenceType: ReferenceImport,
				Metadata:      map[string]string{MetaImportSource: source, MetaIsDefault: "true"},
			})
		case "namespace_import":
			local := spec.Child(int(spec.ChildCount()) - 1)
			refs = append(refs, ExtractedReference{
				TargetName: w.text(local), LineNumber: line, ColumnNumber: col,
				ReferenceType: ReferenceImport,
				Metadata:      map[string]string{MetaImportSource: source, MetaIsNamespace: "true"},
			})
		case "named_imports":
			for j := 0; j < int(spec.ChildCount()); j++ {
				is := spec.Child(j)
				if is.Type() != "import_specifier" {
					continue
				}
				nameNode := is.ChildByFieldName("name")
				aliasNode := is.ChildByFieldName("alias")
				if nameNode == nil {
					continue
				}
				meta := map[string]string{MetaImportSource: source}
				target := w.text(nameNode)
				if aliasNode != nil {
					local := w.text(aliasNode)
					if local != target {
						meta[MetaImportAlias] = local
					}
				}
				refs = append(refs, ExtractedReference{
					TargetName: target, LineNumber: line, ColumnNumber: col,
					ReferenceType: ReferenceImport, Metadata: meta,
				})
			}
		}
	}
	return refs
}

func (w *jsWalker) extractCall(callNode, fnNode *sitter.Node) *ExtractedReference {
	line := int(callNode.StartPoint().Row) + 1
	col := int(callNode.StartPoint().Column)

	switch fnNode.Type() {
	case "identifier":
		name := w.text(fnNode)
		return &ExtractedReference{
			TargetName: name, LineNumber: line, ColumnNumber: col,
			ReferenceType: ReferenceCall,
			Metadata:      map[string]string{MetaCalleeName: name},
		}
	case "member_expression":
		propNode := fnNode.ChildByFieldName("property")
		if propNode == nil {
			return nil
		}
		name := w.text(propNode)
		meta := map[string]string{MetaCalleeName: name, MetaIsMethodCall: "true", MetaPropertyName: name}
		if hasOptionalChain(fnNode) {
			meta[MetaIsOptionalChaining] = "true"
		}
		return &ExtractedReference{
			TargetName: name, LineNumber: line, ColumnNumber: col,
			ReferenceType: ReferenceCall, Metadata: meta,
		}
	case "subscript_expression":
		// Computed callee cannot be statically resolved; children are
		// still walked by the caller's recursion.
		return nil
	default:
		return nil
	}
}

func (w *jsWalker) extractPropertyAccess(n *sitter.Node) *ExtractedReference {
	propNode := n.ChildByFieldName("property")
	if propNode == nil {
		return nil
	}
	name := w.text(propNode)
	meta := map[string]string{MetaPropertyName: name, MetaTargetName: w.text(n)}
	if hasOptionalChain(n) {
		meta[MetaIsOptionalChaining] = "true"
	}
	return &ExtractedReference{
		TargetName: w.text(n), LineNumber: int(n.StartPoint().Row) + 1,
		ColumnNumber: int(n.StartPoint().Column), ReferenceType: ReferencePropertyAccess,
		Metadata: meta,
	}
}

// hasOptionalChain reports whether a member/call expression uses `?.`
// syntax, surfaced by tree-sitter as a literal "?." token child.
func hasOptionalChain(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "?." {
			return true
		}
	}
	return false
}
