package parser

import (
	"fmt"
	"os"

	"github.com/alecthomas/participle/v2"

	"minicc/internal/ast"
)

var miniCParser = participle.MustBuild[programNode](
	participle.Lexer(miniCLexer),
	participle.Elide("Whitespace", "LineComment", "BlockComment"),
	participle.UseLookahead(3),
)

// ParseError describes a syntax error with its source location.
type ParseError struct {
	Message  string
	Position ast.Position
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Position.Line, e.Position.Column, e.Message)
}

// ParseSource parses MiniC source text into an AST.
func ParseSource(filename, source string) (*ast.Program, error) {
	tree, err := miniCParser.ParseString(filename, source)
	if err != nil {
		if pe, ok := err.(participle.Error); ok {
			return nil, ParseError{
				Message:  pe.Message(),
				Position: ast.Position{Line: pe.Position().Line, Column: pe.Position().Column},
			}
		}
		return nil, err
	}
	return convertProgram(tree)
}

// ParseFile reads and parses a MiniC source file.
func ParseFile(path string) (*ast.Program, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseSource(path, string(source))
}
