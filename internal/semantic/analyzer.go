package semantic

import (
	"fmt"

	"minicc/internal/ast"
	"minicc/internal/errors"
)

// Analyzer performs name resolution over a MiniC program: every variable must
// be declared before use, no variable may be declared twice in the same
// scope, and calls must name read or print with the matching argument count.
// Whether the program declares the called extern is not checked. Later stages
// rely on these guarantees and do not re-check them.
type Analyzer struct {
	errors []errors.CompilerError
	scopes []map[string]bool
}

// NewAnalyzer creates a new semantic analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// GetErrors returns the errors collected during analysis
func (a *Analyzer) GetErrors() []errors.CompilerError {
	return a.errors
}

// Analyze walks the program and collects semantic errors.
func (a *Analyzer) Analyze(program *ast.Program) {
	for _, ext := range program.Externs {
		a.checkExtern(ext)
	}
	if program.Function == nil {
		return
	}

	a.pushScope()
	if program.Function.Param != nil {
		a.declare(program.Function.Param.Name, program.Function.Param.Position)
	}
	// The function body shares the parameter scope; only nested blocks open
	// fresh scopes.
	for _, stmt := range program.Function.Body.Stmts {
		a.analyzeStmt(stmt)
	}
	a.popScope()
}

func (a *Analyzer) checkExtern(ext *ast.Extern) {
	switch ext.Name {
	case "read":
		if ext.TakesInt || ext.ReturnType != "int" {
			a.reportError(errors.ErrorInvalidExtern,
				"extern read must be declared as int read(void)", ext.Position)
		}
	case "print":
		if !ext.TakesInt || ext.ReturnType != "void" {
			a.reportError(errors.ErrorInvalidExtern,
				"extern print must be declared as void print(int)", ext.Position)
		}
	default:
		a.reportError(errors.ErrorInvalidExtern,
			fmt.Sprintf("unknown extern '%s', expected read or print", ext.Name), ext.Position)
	}
}

func (a *Analyzer) analyzeStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.DeclStmt:
		a.declare(s.Name, s.Position)
	case *ast.AssignStmt:
		a.checkUse(s.Name, s.Position)
		a.analyzeExpr(s.Value)
	case *ast.BlockStmt:
		a.pushScope()
		for _, inner := range s.Stmts {
			a.analyzeStmt(inner)
		}
		a.popScope()
	case *ast.IfStmt:
		a.analyzeExpr(s.Cond)
		a.analyzeStmt(s.Then)
		if s.Else != nil {
			a.analyzeStmt(s.Else)
		}
	case *ast.WhileStmt:
		a.analyzeExpr(s.Cond)
		a.analyzeStmt(s.Body)
	case *ast.ReturnStmt:
		a.analyzeExpr(s.Value)
	case *ast.ExprStmt:
		a.analyzeExpr(s.Call)
	}
}

func (a *Analyzer) analyzeExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.VarExpr:
		a.checkUse(e.Name, e.Position)
	case *ast.UnaryExpr:
		a.analyzeExpr(e.Operand)
	case *ast.BinaryExpr:
		a.analyzeExpr(e.Left)
		a.analyzeExpr(e.Right)
	case *ast.RelExpr:
		a.analyzeExpr(e.Left)
		a.analyzeExpr(e.Right)
	case *ast.CallExpr:
		a.checkCall(e)
	}
}

func (a *Analyzer) checkCall(call *ast.CallExpr) {
	switch call.Callee {
	case "read":
		if call.Arg != nil {
			a.reportError(errors.ErrorInvalidArguments,
				"read takes no argument", call.Position)
		}
	case "print":
		if call.Arg == nil {
			a.reportError(errors.ErrorInvalidArguments,
				"print takes exactly one argument", call.Position)
		} else {
			a.analyzeExpr(call.Arg)
		}
	default:
		a.reportError(errors.ErrorUndefinedFunction,
			fmt.Sprintf("call to undefined function '%s'", call.Callee), call.Position)
	}
}

func (a *Analyzer) declare(name string, pos ast.Position) {
	top := a.scopes[len(a.scopes)-1]
	if top[name] {
		a.reportError(errors.ErrorDuplicateDeclaration,
			fmt.Sprintf("variable '%s' is already declared in this scope", name), pos)
		return
	}
	top[name] = true
}

func (a *Analyzer) checkUse(name string, pos ast.Position) {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if a.scopes[i][name] {
			return
		}
	}
	a.reportError(errors.ErrorUndefinedVariable,
		fmt.Sprintf("use of undeclared variable '%s'", name), pos)
}

func (a *Analyzer) pushScope() {
	a.scopes = append(a.scopes, make(map[string]bool))
}

func (a *Analyzer) popScope() {
	a.scopes = a.scopes[:len(a.scopes)-1]
}

func (a *Analyzer) reportError(code, message string, pos ast.Position) {
	a.errors = append(a.errors, errors.NewSemanticError(code, message, pos))
}
