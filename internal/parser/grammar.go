package parser

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Parse-tree structs with participle grammar tags. These mirror the MiniC
// surface syntax; convertProgram lowers them to the clean AST in internal/ast.

type programNode struct {
	Pos     lexer.Position
	Externs []*externNode `@@*`
	Func    *functionNode `@@`
}

type externNode struct {
	Pos        lexer.Position
	ReturnType string  `"extern" @("int" | "void")`
	Name       string  `@Ident`
	ParamInt   bool    `"(" ( @"int" | "void" )? ")" ";"`
}

type functionNode struct {
	Pos   lexer.Position
	Name  string     `"int" @Ident`
	Param *paramNode `"(" ( @@ | "void" )? ")"`
	Body  *blockNode `@@`
}

type paramNode struct {
	Pos  lexer.Position
	Name string `"int" @Ident`
}

type blockNode struct {
	Pos   lexer.Position
	Stmts []*stmtNode `"{" @@* "}"`
}

type stmtNode struct {
	Pos    lexer.Position
	Block  *blockNode  `  @@`
	If     *ifNode     `| @@`
	While  *whileNode  `| @@`
	Return *returnNode `| @@`
	Decl   *declNode   `| @@`
	Assign *assignNode `| @@`
	Call   *callNode   `| @@ ";"`
}

type declNode struct {
	Pos  lexer.Position
	Name string `"int" @Ident ";"`
}

type assignNode struct {
	Pos   lexer.Position
	Name  string    `@Ident "="`
	Value *exprNode `@@ ";"`
}

type ifNode struct {
	Pos  lexer.Position
	Cond *exprNode `"if" "(" @@ ")"`
	Then *stmtNode `@@`
	Else *stmtNode `( "else" @@ )?`
}

type whileNode struct {
	Pos  lexer.Position
	Cond *exprNode `"while" "(" @@ ")"`
	Body *stmtNode `@@`
}

type returnNode struct {
	Pos   lexer.Position
	Value *exprNode `"return" @@ ";"`
}

// Expressions: a single optional relational comparison over additive terms.

type exprNode struct {
	Pos   lexer.Position
	Left  *addNode `@@`
	Op    string   `( @("==" | "!=" | "<=" | ">=" | "<" | ">")`
	Right *addNode `  @@ )?`
}

type addNode struct {
	Pos  lexer.Position
	Left *mulNode   `@@`
	Ops  []*addOp   `@@*`
}

type addOp struct {
	Op   string   `@("+" | "-")`
	Term *mulNode `@@`
}

type mulNode struct {
	Pos  lexer.Position
	Left *unaryNode `@@`
	Ops  []*mulOp   `@@*`
}

type mulOp struct {
	Op   string     `@"*"`
	Term *unaryNode `@@`
}

type unaryNode struct {
	Pos   lexer.Position
	Minus bool         `@"-"?`
	Term  *primaryNode `@@`
}

type primaryNode struct {
	Pos    lexer.Position
	Call   *callNode `  @@`
	Number *string   `| @Integer`
	Var    *string   `| @Ident`
	Paren  *exprNode `| "(" @@ ")"`
}

type callNode struct {
	Pos  lexer.Position
	Name string    `@Ident "("`
	Arg  *exprNode `@@? ")"`
}
