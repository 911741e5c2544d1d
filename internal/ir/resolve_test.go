package ir

import (
	"testing"

	"minicc/internal/ast"
)

func TestResolveAssignsIdsInDeclarationOrder(t *testing.T) {
	program := parseSource(t, `
		int main() {
			int x;
			int y;
			{
				int z;
				z = 1;
			}
			int w;
			x = 1;
			y = 2;
			w = 3;
			return x;
		}
	`)

	resolved, err := ResolveProgram(program)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.NumVars != 4 {
		t.Fatalf("expected 4 variables, got %d", resolved.NumVars)
	}

	want := []string{"x", "y", "z", "w"}
	for i, name := range want {
		if resolved.Names[i] != name {
			t.Errorf("id v%d should be %q, got %q", i, name, resolved.Names[i])
		}
	}
}

func TestResolveParameterIsVarZero(t *testing.T) {
	program := parseSource(t, `
		int foo(int a) {
			int x;
			x = a;
			return x;
		}
	`)

	resolved, err := ResolveProgram(program)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if program.Function.Param.VarID != 0 {
		t.Errorf("parameter should be v0, got v%d", program.Function.Param.VarID)
	}
	if resolved.NumVars != 2 {
		t.Errorf("expected 2 variables, got %d", resolved.NumVars)
	}

	assign := program.Function.Body.Stmts[1].(*ast.AssignStmt)
	if assign.VarID != 1 {
		t.Errorf("x should be v1, got v%d", assign.VarID)
	}
	use := assign.Value.(*ast.VarExpr)
	if use.VarID != 0 {
		t.Errorf("use of a should resolve to v0, got v%d", use.VarID)
	}
}

func TestResolveShadowing(t *testing.T) {
	program := parseSource(t, `
		int main() {
			int x;
			x = 1;
			{
				int x;
				x = 2;
			}
			x = 3;
			return x;
		}
	`)

	resolved, err := ResolveProgram(program)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.NumVars != 2 {
		t.Fatalf("expected 2 variables, got %d", resolved.NumVars)
	}

	stmts := program.Function.Body.Stmts
	outerFirst := stmts[1].(*ast.AssignStmt)
	inner := stmts[2].(*ast.BlockStmt).Stmts[1].(*ast.AssignStmt)
	outerSecond := stmts[3].(*ast.AssignStmt)

	if outerFirst.VarID != 0 || outerSecond.VarID != 0 {
		t.Error("outer assignments should target v0")
	}
	if inner.VarID != 1 {
		t.Errorf("inner assignment should target the shadowing v1, got v%d", inner.VarID)
	}
}

func TestResolveUnknownNameFails(t *testing.T) {
	// Bypass semantic analysis to exercise the resolver's own failure path.
	program := &ast.Program{
		Function: &ast.Function{
			Name: "main",
			Body: &ast.BlockStmt{
				Stmts: []ast.Stmt{
					&ast.ReturnStmt{Value: &ast.VarExpr{Name: "ghost"}},
				},
			},
		},
	}

	_, err := ResolveProgram(program)
	if err == nil {
		t.Fatal("expected a resolve error")
	}
	if _, ok := err.(*ResolveError); !ok {
		t.Errorf("expected *ResolveError, got %T", err)
	}
}
