package parser

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var miniCLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		// Comments
		{"BlockComment", `/\*([^*]|\*[^/])*\*/`, nil},
		{"LineComment", `//[^\n]*`, nil},

		// Keywords and identifiers (order matters)
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},

		// Integer literals
		{"Integer", `[0-9]+`, nil},

		// Operators
		{"Operator", `(==|!=|<=|>=|=|[-+*<>])`, nil},

		// Punctuation (must come after operators)
		{"Punctuation", `[(){};,]`, nil},

		// Whitespace
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
