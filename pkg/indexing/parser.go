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
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// CodeParser parses a loaded source file into symbols and references.
type CodeParser interface {
	ParseFile(file LoadedFile) (*ParseResult, error)
	SetMaxCodeTextSize(size int64)
	GetTruncatedCount() int
	ResetTruncatedCount()
}

var _ CodeParser = (*TreeSitterParser)(nil)

// ParserMode picks which extraction strategy backs a CodeParser.
type ParserMode string

const (
	ParserModeTreeSitter ParserMode = "treesitter"
	ParserModeSimplified ParserMode = "simplified"
	ParserModeAuto       ParserMode = "auto"
)

const DefaultParserMode = ParserModeAuto

// TreeSitterParser extracts Symbols and References using Tree-sitter
// grammars. Go, TypeScript, and JavaScript get full AST extraction;
// Protocol Buffers use a simplified regex extractor (no bundled
// grammar); every other recognized language is stored content-only by
// the caller without ever reaching ParseFile.
type TreeSitterParser struct {
	logger          *slog.Logger
	maxCodeTextSize int64
	truncatedCount  int
	mu              sync.Mutex

	goPool     sync.Pool
	jsPool     sync.Pool
	tsPool     sync.Pool
	parserInit sync.Once
}

// NewTreeSitterParser creates a parser with a 100KB default code-text
// truncation size.
func NewTreeSitterParser(logger *slog.Logger) *TreeSitterParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &TreeSitterParser{
		logger:          logger,
		maxCodeTextSize: 102400,
	}
}

func (p *TreeSitterParser) initParsers() {
	p.parserInit.Do(func() {
		p.goPool.New = func() any {
			parser := sitter.NewParser()
			parser.SetLanguage(golang.GetLanguage())
			return parser
		}
		p.jsPool.New = func() any {
			parser := sitter.NewParser()
			parser.SetLanguage(javascript.GetLanguage())
			return parser
		}
		p.tsPool.New = func() any {
			parser := sitter.NewParser()
			parser.SetLanguage(typescript.GetLanguage())
			return parser
		}
	})
}

func (p *TreeSitterParser) SetMaxCodeTextSize(size int64) {
	p.maxCodeTextSize = size
}

func (p *TreeSitterParser) GetTruncatedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.truncatedCount
}

func (p *TreeSitterParser) ResetTruncatedCount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.truncatedCount = 0
}

func (p *TreeSitterParser) truncateCodeText(codeText string) string {
	if p.maxCodeTextSize > 0 && int64(len(codeText)) > p.maxCodeTextSize {
		p.mu.Lock()
		p.truncatedCount++
		p.mu.Unlock()
		return codeText[:p.maxCodeTextSize]
	}
	return codeText
}

// ParseFile dispatches to the language-specific extractor and returns
// the file's symbols and unresolved references.
func (p *TreeSitterParser) ParseFile(file LoadedFile) (*ParseResult, error) {
	p.initParsers()

	content := []byte(file.Content)

	switch file.Language {
	case "go":
		parserObj := p.goPool.Get()
		parser, ok := parserObj.(*sitter.Parser)
		if !ok {
			return nil, fmt.Errorf("invalid parser type from go pool")
		}
		defer p.goPool.Put(parser)
		return p.parseGoAST(parser, content, file.Path)

	case "javascript":
		parserObj := p.jsPool.Get()
		parser, ok := parserObj.(*sitter.Parser)
		if !ok {
			return nil, fmt.Errorf("invalid parser type from javascript pool")
		}
		defer p.jsPool.Put(parser)
		return p.parseJSFamilyAST(parser, content, file.Path, false)

	case "typescript":
		parserObj := p.tsPool.Get()
		parser, ok := parserObj.(*sitter.Parser)
		if !ok {
			return nil, fmt.Errorf("invalid parser type from typescript pool")
		}
		defer p.tsPool.Put(parser)
		return p.parseJSFamilyAST(parser, content, file.Path, true)

	case "protobuf":
		return parseProtobufSimplified(content), nil

	default:
		p.logger.Debug("parser.treesitter.skip_unsupported",
			"path", file.Path,
			"language", file.Language,
		)
		return &ParseResult{}, nil
	}
}

// countErrors counts ERROR nodes in an AST, used to log (but not fail
// on) syntax errors Tree-sitter tolerated.
func countErrors(node *sitter.Node) int {
	count := 0
	if node.Type() == "ERROR" {
		count++
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		count += countErrors(node.Child(i))
	}
	return count
}
