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

// parseGoAST extracts Symbols and References from Go source using
// Tree-sitter. Functions, methods, and type declarations become
// Symbols; imports, calls, and field accesses become References for
// later resolution (resolver.go, dependency.go). Type usages are not
// extracted as References.
func (p *TreeSitterParser) parseGoAST(parser *sitter.Parser, content []byte, filePath string) (*ParseResult, error) {
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	rootNode := tree.RootNode()
	if rootNode.HasError() {
		if errorCount := countErrors(rootNode); errorCount > 0 {
			p.logger.Warn("parser.treesitter.go.syntax_errors",
				"path", filePath,
				"error_count", errorCount,
			)
		}
	}

	result := &ParseResult{}

	result.References = append(result.References, p.extractGoImports(rootNode, content)...)

	var funcNameToSymbol = make(map[string]string)
	p.walkGoSymbols(rootNode, content, result, funcNameToSymbol)

	var funcBodies []*sitter.Node
	collectGoFunctionBodies(rootNode, &funcBodies)
	for _, body := range funcBodies {
		p.walkGoReferences(body, content, result)
	}

	return result, nil
}

// walkGoSymbols walks the AST collecting function/method/type Symbols.
func (p *TreeSitterParser) walkGoSymbols(node *sitter.Node, content []byte, result *ParseResult, seen map[string]string) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "function_declaration":
		if sym := p.extractGoFunctionDeclaration(node, content); sym != nil {
			result.Symbols = append(result.Symbols, *sym)
		}
	case "method_declaration":
		if sym := p.extractGoMethodDeclaration(node, content); sym != nil {
			result.Symbols = append(result.Symbols, *sym)
		}
	case "type_declaration":
		result.Symbols = append(result.Symbols, p.extractGoTypeDeclaration(node, content)...)
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		p.walkGoSymbols(node.Child(i), content, result, seen)
	}
}

// collectGoFunctionBodies gathers the body node of every function-like
// declaration so reference extraction can be scoped to executable code;
// type declarations are skipped and yield no References.
func collectGoFunctionBodies(node *sitter.Node, out *[]*sitter.Node) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "function_declaration", "method_declaration", "func_literal":
		if body := node.ChildByFieldName("body"); body != nil {
			*out = append(*out, body)
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		collectGoFunctionBodies(node.Child(i), out)
	}
}

func (p *TreeSitterParser) extractGoFunctionDeclaration(node *sitter.Node, content []byte) *ExtractedSymbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := string(content[nameNode.StartByte():nameNode.EndByte()])
	signature := goSignature(node, content, "func "+name)
	return goFunctionSymbol(node, content, name, signature, SymbolFunction)
}

func (p *TreeSitterParser) extractGoMethodDeclaration(node *sitter.Node, content []byte) *ExtractedSymbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	methodName := string(content[nameNode.StartByte():nameNode.EndByte()])

	receiverNode := node.ChildByFieldName("receiver")
	var receiver, receiverType string
	if receiverNode != nil {
		receiver = string(content[receiverNode.StartByte():receiverNode.EndByte()])
		receiverType = extractReceiverType(receiverNode, content)
	}

	fullName := methodName
	if receiverType != "" {
		fullName = receiverType + "." + methodName
	}

	signature := goSignature(node, content, "func "+receiver+" "+methodName)
	return goFunctionSymbol(node, content, fullName, signature, SymbolMethod)
}

// goSignature builds "prefix[TypeParams](params) result" from a
// function/method declaration node's named fields.
func goSignature(node *sitter.Node, content []byte, prefix string) string {
	var b strings.Builder
	b.WriteString(prefix)
	if tp := node.ChildByFieldName("type_parameters"); tp != nil {
		b.WriteString(string(content[tp.StartByte():tp.EndByte()]))
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		b.WriteString(string(content[params.StartByte():params.EndByte()]))
	}
	if result := node.ChildByFieldName("result"); result != nil {
		b.WriteString(" ")
		b.WriteString(string(content[result.StartByte():result.EndByte()]))
	}
	return b.String()
}

func goFunctionSymbol(node *sitter.Node, content []byte, name, signature string, kind SymbolKind) *ExtractedSymbol {
	return &ExtractedSymbol{
		Name:        name,
		Kind:        kind,
		LineStart:   int(node.StartPoint().Row) + 1,
		LineEnd:     int(node.EndPoint().Row) + 1,
		ColumnStart: int(node.StartPoint().Column),
		ColumnEnd:   int(node.EndPoint().Column),
		Signature:   signature,
		IsExported:  isExportedGoName(extractSimpleName(name)),
	}
}

// extractReceiverType extracts the type name from a receiver parameter,
// e.g. "(s *Server)" -> "Server", "(s Server[T])" -> "Server".
func extractReceiverType(receiverNode *sitter.Node, content []byte) string {
	if receiverNode == nil {
		return ""
	}
	for i := 0; i < int(receiverNode.ChildCount()); i++ {
		child := receiverNode.Child(i)
		if child.Type() == "parameter_declaration" {
			if typeNode := child.ChildByFieldName("type"); typeNode != nil {
				return extractBaseTypeName(typeNode, content)
			}
		}
	}
	return ""
}

// extractBaseTypeName strips pointer and generic-argument wrapping from
// a type node, e.g. *Server -> Server, Server[T] -> Server.
func extractBaseTypeName(typeNode *sitter.Node, content []byte) string {
	if typeNode == nil {
		return ""
	}
	switch typeNode.Type() {
	case "pointer_type":
		for i := 0; i < int(typeNode.ChildCount()); i++ {
			child := typeNode.Child(i)
			if child.Type() != "*" {
				return extractBaseTypeName(child, content)
			}
		}
	case "generic_type":
		if tn := typeNode.ChildByFieldName("type"); tn != nil {
			return string(content[tn.StartByte():tn.EndByte()])
		}
	case "type_identifier":
		return string(content[typeNode.StartByte():typeNode.EndByte()])
	}
	name := string(content[typeNode.StartByte():typeNode.EndByte()])
	name = strings.TrimPrefix(name, "*")
	if idx := strings.Index(name, "["); idx > 0 {
		name = name[:idx]
	}
	return name
}

// extractSimpleName strips a "Receiver." prefix, e.g. "Server.Start" -> "Start".
func extractSimpleName(fullName string) string {
	if idx := strings.LastIndex(fullName, "."); idx >= 0 {
		return fullName[idx+1:]
	}
	return fullName
}

func isExportedGoName(name string) bool {
	return name != "" && strings.ToUpper(name[:1]) == name[:1]
}

// extractGoImports extracts import References from the top-level
// import declarations.
func (p *TreeSitterParser) extractGoImports(rootNode *sitter.Node, content []byte) []ExtractedReference {
	var refs []ExtractedReference
	if rootNode == nil {
		return refs
	}
	for i := 0; i < int(rootNode.ChildCount()); i++ {
		child := rootNode.Child(i)
		if child.Type() == "import_declaration" {
			refs = append(refs, p.extractGoImportDeclaration(child, content)...)
		}
	}
	return refs
}

func (p *TreeSitterParser) extractGoImportDeclaration(node *sitter.Node, content []byte) []ExtractedReference {
	var refs []ExtractedReference
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "import_spec":
			if ref := p.extractGoImportSpec(child, content); ref != nil {
				refs = append(refs, *ref)
			}
		case "import_spec_list":
			for j := 0; j < int(child.ChildCount()); j++ {
				spec := child.Child(j)
				if spec.Type() == "import_spec" {
					if ref := p.extractGoImportSpec(spec, content); ref != nil {
						refs = append(refs, *ref)
					}
				}
			}
		}
	}
	return refs
}

func (p *TreeSitterParser) extractGoImportSpec(node *sitter.Node, content []byte) *ExtractedReference {
	pathNode := node.ChildByFieldName("path")
	if pathNode == nil {
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child.Type() == "interpreted_string_literal" {
				pathNode = child
				break
			}
		}
	}
	if pathNode == nil {
		return nil
	}
	importPath := strings.Trim(string(content[pathNode.StartByte():pathNode.EndByte()]), `"`)

	meta := map[string]string{MetaImportSource: importPath}
	nameNode := node.ChildByFieldName("name")
	if nameNode != nil {
		alias := string(content[nameNode.StartByte():nameNode.EndByte()])
		switch alias {
		case ".":
			meta[MetaIsNamespace] = "true"
		case "_":
			meta[MetaIsSideEffect] = "true"
		default:
			meta[MetaImportAlias] = alias
		}
	}

	return &ExtractedReference{
		TargetName:    importPath,
		LineNumber:    int(node.StartPoint().Row) + 1,
		ColumnNumber:  int(node.StartPoint().Column),
		ReferenceType: ReferenceImport,
		Metadata:      meta,
	}
}

// walkGoReferences walks executable code collecting call and property
// access references.
func (p *TreeSitterParser) walkGoReferences(node *sitter.Node, content []byte, result *ParseResult) {
	if node == nil {
		return
	}

	if node.Type() == "call_expression" {
		if funcNode := node.ChildByFieldName("function"); funcNode != nil {
			if ref := p.extractGoCallReference(node, funcNode, content); ref != nil {
				result.References = append(result.References, *ref)
			}
		}
	} else if node.Type() == "selector_expression" && node.Parent() != nil && node.Parent().Type() != "call_expression" {
		if ref := p.extractGoPropertyAccess(node, content); ref != nil {
			result.References = append(result.References, *ref)
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		p.walkGoReferences(node.Child(i), content, result)
	}
}

func (p *TreeSitterParser) extractGoCallReference(callNode, funcNode *sitter.Node, content []byte) *ExtractedReference {
	nodeType := funcNode.Type()
	meta := map[string]string{}

	var calleeName string
	switch nodeType {
	case "identifier":
		calleeName = string(content[funcNode.StartByte():funcNode.EndByte()])
	case "selector_expression":
		calleeName = string(content[funcNode.StartByte():funcNode.EndByte()])
		meta[MetaIsMethodCall] = "true"
		if fieldNode := funcNode.ChildByFieldName("field"); fieldNode != nil {
			meta[MetaPropertyName] = string(content[fieldNode.StartByte():fieldNode.EndByte()])
		}
	case "index_expression":
		if operand := funcNode.ChildByFieldName("operand"); operand != nil {
			return p.extractGoCallReference(callNode, operand, content)
		}
		return nil
	default:
		return nil
	}
	if calleeName == "" {
		return nil
	}

	meta[MetaCalleeName] = calleeName
	return &ExtractedReference{
		TargetName:    calleeName,
		LineNumber:    int(callNode.StartPoint().Row) + 1,
		ColumnNumber:  int(callNode.StartPoint().Column),
		ReferenceType: ReferenceCall,
		Metadata:      meta,
	}
}

func (p *TreeSitterParser) extractGoPropertyAccess(node *sitter.Node, content []byte) *ExtractedReference {
	fieldNode := node.ChildByFieldName("field")
	if fieldNode == nil {
		return nil
	}
	fieldName := string(content[fieldNode.StartByte():fieldNode.EndByte()])
	full := string(content[node.StartByte():node.EndByte()])

	return &ExtractedReference{
		TargetName:    full,
		LineNumber:    int(node.StartPoint().Row) + 1,
		ColumnNumber:  int(node.StartPoint().Column),
		ReferenceType: ReferencePropertyAccess,
		Metadata: map[string]string{
			MetaPropertyName: fieldName,
			MetaTargetName:   full,
		},
	}
}

// extractGoTypeDeclaration extracts struct/interface/alias Symbols from
// a type declaration, which may wrap one type_spec or a type_spec_list
// block.
func (p *TreeSitterParser) extractGoTypeDeclaration(node *sitter.Node, content []byte) []ExtractedSymbol {
	var out []ExtractedSymbol
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "type_spec":
			if sym := p.extractGoTypeSpec(child, content); sym != nil {
				out = append(out, *sym)
			}
		case "type_spec_list":
			for j := 0; j < int(child.ChildCount()); j++ {
				spec := child.Child(j)
				if spec.Type() == "type_spec" {
					if sym := p.extractGoTypeSpec(spec, content); sym != nil {
						out = append(out, *sym)
					}
				}
			}
		}
	}
	return out
}

func (p *TreeSitterParser) extractGoTypeSpec(node *sitter.Node, content []byte) *ExtractedSymbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		for i := 0; i < int(node.ChildCount()); i++ {
			if node.Child(i).Type() == "type_identifier" {
				nameNode = node.Child(i)
				break
			}
		}
	}
	if nameNode == nil {
		return nil
	}
	name := string(content[nameNode.StartByte():nameNode.EndByte()])

	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			switch child.Type() {
			case "struct_type", "interface_type", "type_identifier", "pointer_type",
				"array_type", "slice_type", "map_type", "channel_type",
				"function_type", "generic_type":
				typeNode = child
			}
			if typeNode != nil {
				break
			}
		}
	}

	kind := determineGoTypeKind(typeNode)
	if kind == "" {
		return nil
	}

	return &ExtractedSymbol{
		Name:        name,
		Kind:        kind,
		LineStart:   int(node.StartPoint().Row) + 1,
		LineEnd:     int(node.EndPoint().Row) + 1,
		ColumnStart: int(node.StartPoint().Column),
		ColumnEnd:   int(node.EndPoint().Column),
		IsExported:  isExportedGoName(name),
	}
}

func determineGoTypeKind(typeNode *sitter.Node) SymbolKind {
	if typeNode == nil {
		return ""
	}
	switch typeNode.Type() {
	case "struct_type":
		return SymbolClass
	case "interface_type":
		return SymbolInterface
	case "type_identifier", "pointer_type", "array_type", "slice_type",
		"map_type", "channel_type", "function_type", "generic_type":
		return SymbolTypeAlias
	default:
		return ""
	}
}
