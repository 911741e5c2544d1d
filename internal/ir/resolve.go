package ir

import (
	"minicc/internal/ast"
)

// The scope resolver renames every source variable to a globally-unique id
// (v0, v1, ...) assigned in declaration order across the whole function, and
// rewrites every reference in place. Inner scopes may shadow outer bindings;
// a binding lives only as long as its frame. After resolution no consumer
// needs to look at source names again.

// ResolveResult describes the variable layout of a resolved function.
type ResolveResult struct {
	// NumVars is the number of distinct variable ids minted.
	NumVars int
	// Names records the source name behind each id, indexed by id.
	Names []string
}

type resolver struct {
	scopes []map[string]int
	names  []string
}

// ResolveProgram rewrites every variable occurrence in the program with its
// resolved id. The AST must already have passed semantic analysis.
func ResolveProgram(program *ast.Program) (*ResolveResult, error) {
	if program == nil || program.Function == nil {
		return nil, &IRBuildError{Message: "program has no function"}
	}

	r := &resolver{}
	r.pushFrame()

	fn := program.Function
	if fn.Param != nil {
		fn.Param.VarID = r.declare(fn.Param.Name)
	}
	// The body block shares the parameter frame.
	for _, stmt := range fn.Body.Stmts {
		if err := r.resolveStmt(stmt); err != nil {
			return nil, err
		}
	}
	r.popFrame()

	return &ResolveResult{NumVars: len(r.names), Names: r.names}, nil
}

func (r *resolver) resolveStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.DeclStmt:
		s.VarID = r.declare(s.Name)
	case *ast.AssignStmt:
		id, ok := r.lookup(s.Name)
		if !ok {
			return &ResolveError{Name: s.Name, Position: s.Position}
		}
		s.VarID = id
		return r.resolveExpr(s.Value)
	case *ast.BlockStmt:
		r.pushFrame()
		for _, inner := range s.Stmts {
			if err := r.resolveStmt(inner); err != nil {
				return err
			}
		}
		r.popFrame()
	case *ast.IfStmt:
		if err := r.resolveExpr(s.Cond); err != nil {
			return err
		}
		if err := r.resolveStmt(s.Then); err != nil {
			return err
		}
		if s.Else != nil {
			return r.resolveStmt(s.Else)
		}
	case *ast.WhileStmt:
		if err := r.resolveExpr(s.Cond); err != nil {
			return err
		}
		return r.resolveStmt(s.Body)
	case *ast.ReturnStmt:
		return r.resolveExpr(s.Value)
	case *ast.ExprStmt:
		return r.resolveExpr(s.Call)
	default:
		return &IRBuildError{Message: "unexpected statement variant"}
	}
	return nil
}

func (r *resolver) resolveExpr(expr ast.Expr) error {
	switch e := expr.(type) {
	case *ast.IntLit:
	case *ast.VarExpr:
		id, ok := r.lookup(e.Name)
		if !ok {
			return &ResolveError{Name: e.Name, Position: e.Position}
		}
		e.VarID = id
	case *ast.UnaryExpr:
		return r.resolveExpr(e.Operand)
	case *ast.BinaryExpr:
		if err := r.resolveExpr(e.Left); err != nil {
			return err
		}
		return r.resolveExpr(e.Right)
	case *ast.RelExpr:
		if err := r.resolveExpr(e.Left); err != nil {
			return err
		}
		return r.resolveExpr(e.Right)
	case *ast.CallExpr:
		if e.Arg != nil {
			return r.resolveExpr(e.Arg)
		}
	default:
		return &IRBuildError{Message: "unexpected expression variant"}
	}
	return nil
}

// declare mints the next id and binds it in the innermost frame, shadowing
// any outer binding of the same name.
func (r *resolver) declare(name string) int {
	id := len(r.names)
	r.names = append(r.names, name)
	r.scopes[len(r.scopes)-1][name] = id
	return id
}

func (r *resolver) lookup(name string) (int, bool) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if id, ok := r.scopes[i][name]; ok {
			return id, true
		}
	}
	return 0, false
}

func (r *resolver) pushFrame() {
	r.scopes = append(r.scopes, make(map[string]int))
}

func (r *resolver) popFrame() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}
