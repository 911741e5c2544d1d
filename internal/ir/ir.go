package ir

// This file provides the main entry points for the IR stage: lowering a
// semantically-valid AST to a basic-block module and optimizing it to a
// fixed point.

import (
	"minicc/internal/ast"
)

// BuildProgram resolves variable scopes and lowers the AST to IR.
func BuildProgram(program *ast.Program) (*Module, error) {
	resolved, err := ResolveProgram(program)
	if err != nil {
		return nil, err
	}
	return NewBuilder().Build(program, resolved)
}

// Optimize runs the optimization pipeline on the module until no pass
// reports a change.
func Optimize(m *Module) error {
	return NewPipeline().Run(m)
}

// PrintModule returns a textual rendering of the IR for inspection.
func PrintModule(m *Module) string {
	return Print(m)
}
