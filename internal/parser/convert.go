package parser

import (
	"strconv"

	"github.com/alecthomas/participle/v2/lexer"

	"minicc/internal/ast"
)

// Conversion from the participle parse tree to the internal/ast tree. The
// parse tree keeps the surface shape (operator chains, parenthesised groups);
// the AST is the left-associated form the rest of the compiler consumes.

func convertProgram(tree *programNode) (*ast.Program, error) {
	prog := &ast.Program{Position: pos(tree.Pos)}
	for _, e := range tree.Externs {
		prog.Externs = append(prog.Externs, &ast.Extern{
			Position:   pos(e.Pos),
			Name:       e.Name,
			ReturnType: e.ReturnType,
			TakesInt:   e.ParamInt,
		})
	}
	fn, err := convertFunction(tree.Func)
	if err != nil {
		return nil, err
	}
	prog.Function = fn
	return prog, nil
}

func convertFunction(node *functionNode) (*ast.Function, error) {
	fn := &ast.Function{
		Position: pos(node.Pos),
		Name:     node.Name,
	}
	if node.Param != nil {
		fn.Param = &ast.Param{Position: pos(node.Param.Pos), Name: node.Param.Name}
	}
	body, err := convertBlock(node.Body)
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

func convertBlock(node *blockNode) (*ast.BlockStmt, error) {
	block := &ast.BlockStmt{Position: pos(node.Pos)}
	for _, s := range node.Stmts {
		stmt, err := convertStmt(s)
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}
	return block, nil
}

func convertStmt(node *stmtNode) (ast.Stmt, error) {
	switch {
	case node.Block != nil:
		return convertBlock(node.Block)
	case node.If != nil:
		cond, err := convertExpr(node.If.Cond)
		if err != nil {
			return nil, err
		}
		then, err := convertStmt(node.If.Then)
		if err != nil {
			return nil, err
		}
		stmt := &ast.IfStmt{Position: pos(node.If.Pos), Cond: cond, Then: then}
		if node.If.Else != nil {
			els, err := convertStmt(node.If.Else)
			if err != nil {
				return nil, err
			}
			stmt.Else = els
		}
		return stmt, nil
	case node.While != nil:
		cond, err := convertExpr(node.While.Cond)
		if err != nil {
			return nil, err
		}
		body, err := convertStmt(node.While.Body)
		if err != nil {
			return nil, err
		}
		return &ast.WhileStmt{Position: pos(node.While.Pos), Cond: cond, Body: body}, nil
	case node.Return != nil:
		value, err := convertExpr(node.Return.Value)
		if err != nil {
			return nil, err
		}
		return &ast.ReturnStmt{Position: pos(node.Return.Pos), Value: value}, nil
	case node.Decl != nil:
		return &ast.DeclStmt{Position: pos(node.Decl.Pos), Name: node.Decl.Name}, nil
	case node.Assign != nil:
		value, err := convertExpr(node.Assign.Value)
		if err != nil {
			return nil, err
		}
		return &ast.AssignStmt{Position: pos(node.Assign.Pos), Name: node.Assign.Name, Value: value}, nil
	case node.Call != nil:
		call, err := convertCall(node.Call)
		if err != nil {
			return nil, err
		}
		return &ast.ExprStmt{Position: pos(node.Call.Pos), Call: call}, nil
	}
	return nil, ParseError{Message: "empty statement", Position: pos(node.Pos)}
}

func convertExpr(node *exprNode) (ast.Expr, error) {
	left, err := convertAdd(node.Left)
	if err != nil {
		return nil, err
	}
	if node.Op == "" {
		return left, nil
	}
	right, err := convertAdd(node.Right)
	if err != nil {
		return nil, err
	}
	return &ast.RelExpr{
		Position: pos(node.Pos),
		Op:       ast.RelOp(node.Op),
		Left:     left,
		Right:    right,
	}, nil
}

func convertAdd(node *addNode) (ast.Expr, error) {
	expr, err := convertMul(node.Left)
	if err != nil {
		return nil, err
	}
	for _, op := range node.Ops {
		right, err := convertMul(op.Term)
		if err != nil {
			return nil, err
		}
		expr = &ast.BinaryExpr{
			Position: pos(node.Pos),
			Op:       ast.BinaryOp(op.Op),
			Left:     expr,
			Right:    right,
		}
	}
	return expr, nil
}

func convertMul(node *mulNode) (ast.Expr, error) {
	expr, err := convertUnary(node.Left)
	if err != nil {
		return nil, err
	}
	for _, op := range node.Ops {
		right, err := convertUnary(op.Term)
		if err != nil {
			return nil, err
		}
		expr = &ast.BinaryExpr{
			Position: pos(node.Pos),
			Op:       ast.Mul,
			Left:     expr,
			Right:    right,
		}
	}
	return expr, nil
}

func convertUnary(node *unaryNode) (ast.Expr, error) {
	term, err := convertPrimary(node.Term)
	if err != nil {
		return nil, err
	}
	if node.Minus {
		return &ast.UnaryExpr{Position: pos(node.Pos), Operand: term}, nil
	}
	return term, nil
}

func convertPrimary(node *primaryNode) (ast.Expr, error) {
	switch {
	case node.Call != nil:
		return convertCall(node.Call)
	case node.Number != nil:
		value, err := strconv.ParseInt(*node.Number, 10, 64)
		if err != nil {
			return nil, ParseError{Message: "invalid integer literal", Position: pos(node.Pos)}
		}
		return &ast.IntLit{Position: pos(node.Pos), Value: int32(value)}, nil
	case node.Var != nil:
		return &ast.VarExpr{Position: pos(node.Pos), Name: *node.Var}, nil
	case node.Paren != nil:
		return convertExpr(node.Paren)
	}
	return nil, ParseError{Message: "empty expression", Position: pos(node.Pos)}
}

func convertCall(node *callNode) (*ast.CallExpr, error) {
	call := &ast.CallExpr{Position: pos(node.Pos), Callee: node.Name}
	if node.Arg != nil {
		arg, err := convertExpr(node.Arg)
		if err != nil {
			return nil, err
		}
		call.Arg = arg
	}
	return call, nil
}

func pos(p lexer.Position) ast.Position {
	return ast.Position{Line: p.Line, Column: p.Column}
}
