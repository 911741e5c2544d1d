package ir

import (
	"fmt"

	"minicc/internal/ast"
)

// ResolveError reports a variable name that could not be resolved. With
// semantic analysis run beforehand this should not occur.
type ResolveError struct {
	Name     string
	Position ast.Position
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("%d:%d: unresolved name '%s'", e.Position.Line, e.Position.Column, e.Name)
}

// IRBuildError reports malformed input to the IR generator: an unexpected AST
// variant, a missing required child or stack cell, or a void call used as a
// value.
type IRBuildError struct {
	Message string
}

func (e *IRBuildError) Error() string {
	return "ir build: " + e.Message
}

// AnalysisError reports a dataflow precondition violation, such as a block
// without a terminator where successors are required.
type AnalysisError struct {
	Message string
}

func (e *AnalysisError) Error() string {
	return "analysis: " + e.Message
}
