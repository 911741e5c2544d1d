package ir

import (
	"fmt"

	"minicc/internal/ast"
)

// Builder converts a resolved AST into a basic-block CFG. It holds an
// implicit cursor (current block); every created instruction appends at the
// cursor. Structured control flow allocates its blocks immediately before the
// dedicated return block, so the return block stays last in layout order.
type Builder struct {
	module   *Module
	fn       *Function
	cur      *BasicBlock
	retBlock *BasicBlock
	retSlot  *Value

	valueCounter int
	blockCounter int
	instCounter  int
}

// NewBuilder creates a new IR builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Build lowers a resolved program to an IR module.
func (b *Builder) Build(program *ast.Program, resolved *ResolveResult) (*Module, error) {
	if program == nil || program.Function == nil || resolved == nil {
		return nil, &IRBuildError{Message: "missing program or resolution result"}
	}

	b.module = NewModule()
	astFunc := program.Function

	fn := &Function{
		Name:    astFunc.Name,
		Allocas: make(map[int]*AllocaInstruction),
	}
	b.fn = fn

	entry := b.newBlock("entry")
	fn.AppendBlock(entry)
	b.cur = entry

	// One stack cell per resolved variable, in declaration order.
	for id := 0; id < resolved.NumVars; id++ {
		alloca := b.newAlloca(fmt.Sprintf("v%d", id), id)
		fn.Allocas[id] = alloca
	}

	// The return slot gets its own cell outside the variable id space.
	retSlot := b.newAlloca("retval", -1)
	fn.RetSlot = retSlot
	b.retSlot = retSlot.Result

	if astFunc.Param != nil {
		param := b.newValue(astFunc.Param.Name, I32, nil)
		fn.Param = param
		slot, ok := fn.Allocas[astFunc.Param.VarID]
		if !ok {
			return nil, &IRBuildError{Message: "parameter has no stack cell"}
		}
		b.emitStore(param, slot.Result)
	}

	b.retBlock = b.newBlock("return")
	fn.AppendBlock(b.retBlock)

	for _, stmt := range astFunc.Body.Stmts {
		if b.cur.Terminator != nil {
			// A return already ended this block; trailing siblings are
			// unreachable and skipped.
			break
		}
		if err := b.lowerStmt(stmt); err != nil {
			return nil, err
		}
	}

	// Any block still open falls through to the return block.
	for _, block := range fn.Blocks {
		if block != b.retBlock && block.Terminator == nil {
			b.setTerminator(block, &JumpTerminator{ID: b.nextInstID(), Block: block, Target: b.retBlock})
		}
	}

	b.cur = b.retBlock
	ret := b.emitLoad(b.retSlot)
	b.setTerminator(b.retBlock, &ReturnTerminator{ID: b.nextInstID(), Block: b.retBlock, Value: ret})

	b.module.Function = fn
	return b.module, nil
}

// Statement lowering

func (b *Builder) lowerStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.DeclStmt:
		// The cell already exists from the prologue.
		return nil
	case *ast.AssignStmt:
		value, err := b.lowerExprValue(s.Value)
		if err != nil {
			return err
		}
		slot, ok := b.fn.Allocas[s.VarID]
		if !ok {
			return &IRBuildError{Message: fmt.Sprintf("variable v%d has no stack cell", s.VarID)}
		}
		b.emitStore(value, slot.Result)
		return nil
	case *ast.BlockStmt:
		for _, inner := range s.Stmts {
			if b.cur.Terminator != nil {
				break
			}
			if err := b.lowerStmt(inner); err != nil {
				return err
			}
		}
		return nil
	case *ast.ReturnStmt:
		value, err := b.lowerExprValue(s.Value)
		if err != nil {
			return err
		}
		b.emitStore(value, b.retSlot)
		b.setTerminator(b.cur, &JumpTerminator{ID: b.nextInstID(), Block: b.cur, Target: b.retBlock})
		return nil
	case *ast.IfStmt:
		return b.lowerIf(s)
	case *ast.WhileStmt:
		return b.lowerWhile(s)
	case *ast.ExprStmt:
		_, err := b.lowerCall(s.Call)
		return err
	default:
		return &IRBuildError{Message: "unexpected statement variant"}
	}
}

// lowerIf builds the diamond for an if statement. The condition is evaluated
// in the current block when it is still empty, otherwise in a fresh block.
// Then/else/join blocks are inserted immediately before the return block.
func (b *Builder) lowerIf(s *ast.IfStmt) error {
	cond := b.cursorAsCondBlock()

	c, err := b.lowerExprValue(s.Cond)
	if err != nil {
		return err
	}

	then := b.newBlockBeforeReturn("if.then")
	var els *BasicBlock
	if s.Else != nil {
		els = b.newBlockBeforeReturn("if.else")
	}

	b.cur = then
	if err := b.lowerStmt(s.Then); err != nil {
		return err
	}
	thenEnd := b.cur

	var elseEnd *BasicBlock
	if els != nil {
		b.cur = els
		if err := b.lowerStmt(s.Else); err != nil {
			return err
		}
		elseEnd = b.cur
	}

	thenOpen := thenEnd.Terminator == nil
	elseOpen := elseEnd != nil && elseEnd.Terminator == nil

	// The join block exists whenever some path needs it: an open arm falls
	// through to it, and without an else it is the false target. When both
	// arms returned there is nothing to join and the cursor stays on a
	// terminated block, which stops sibling emission.
	var join *BasicBlock
	if thenOpen || elseOpen || els == nil {
		join = b.newBlockBeforeReturn("if.join")
	}

	falseTarget := join
	if els != nil {
		falseTarget = els
	}
	b.setTerminator(cond, &BranchTerminator{
		ID:         b.nextInstID(),
		Block:      cond,
		Condition:  c,
		TrueBlock:  then,
		FalseBlock: falseTarget,
	})

	if thenOpen {
		b.setTerminator(thenEnd, &JumpTerminator{ID: b.nextInstID(), Block: thenEnd, Target: join})
	}
	if elseOpen {
		b.setTerminator(elseEnd, &JumpTerminator{ID: b.nextInstID(), Block: elseEnd, Target: join})
	}

	if join != nil {
		b.cur = join
	}
	return nil
}

// lowerWhile builds pre -> cond, cond -> body | exit, body -> cond. A body
// that returned skips the backedge.
func (b *Builder) lowerWhile(s *ast.WhileStmt) error {
	cond := b.cursorAsCondBlock()

	c, err := b.lowerExprValue(s.Cond)
	if err != nil {
		return err
	}

	body := b.newBlockBeforeReturn("while.body")
	exit := b.newBlockBeforeReturn("while.exit")

	b.setTerminator(cond, &BranchTerminator{
		ID:         b.nextInstID(),
		Block:      cond,
		Condition:  c,
		TrueBlock:  body,
		FalseBlock: exit,
	})

	b.cur = body
	if err := b.lowerStmt(s.Body); err != nil {
		return err
	}
	if b.cur.Terminator == nil {
		b.setTerminator(b.cur, &JumpTerminator{ID: b.nextInstID(), Block: b.cur, Target: cond})
	}

	b.cur = exit
	return nil
}

// cursorAsCondBlock returns the block a condition should be evaluated in:
// the current block when it holds no instructions yet, otherwise a fresh
// block the current one branches to.
func (b *Builder) cursorAsCondBlock() *BasicBlock {
	cur := b.cur
	if len(cur.Instructions) == 0 && cur.Terminator == nil {
		return cur
	}
	cond := b.newBlockBeforeReturn("cond")
	if cur.Terminator == nil {
		b.setTerminator(cur, &JumpTerminator{ID: b.nextInstID(), Block: cur, Target: cond})
	}
	b.cur = cond
	return cond
}

// Expression lowering

// lowerExprValue lowers an expression that must produce a value.
func (b *Builder) lowerExprValue(expr ast.Expr) (*Value, error) {
	value, err := b.lowerExpr(expr)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, &IRBuildError{Message: "void value used in expression"}
	}
	return value, nil
}

func (b *Builder) lowerExpr(expr ast.Expr) (*Value, error) {
	switch e := expr.(type) {
	case *ast.IntLit:
		return b.module.ConstInt(e.Value), nil
	case *ast.VarExpr:
		slot, ok := b.fn.Allocas[e.VarID]
		if !ok {
			return nil, &IRBuildError{Message: fmt.Sprintf("variable v%d has no stack cell", e.VarID)}
		}
		return b.emitLoad(slot.Result), nil
	case *ast.UnaryExpr:
		operand, err := b.lowerExprValue(e.Operand)
		if err != nil {
			return nil, err
		}
		return b.emitBinary(OpSub, b.module.ConstInt(0), operand), nil
	case *ast.BinaryExpr:
		left, err := b.lowerExprValue(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.lowerExprValue(e.Right)
		if err != nil {
			return nil, err
		}
		var op BinaryOp
		switch e.Op {
		case ast.Add:
			op = OpAdd
		case ast.Sub:
			op = OpSub
		case ast.Mul:
			op = OpMul
		default:
			return nil, &IRBuildError{Message: "unexpected binary operator"}
		}
		return b.emitBinary(op, left, right), nil
	case *ast.RelExpr:
		left, err := b.lowerExprValue(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.lowerExprValue(e.Right)
		if err != nil {
			return nil, err
		}
		var pred Predicate
		switch e.Op {
		case ast.Eq:
			pred = PredEQ
		case ast.Ne:
			pred = PredNE
		case ast.Lt:
			pred = PredSLT
		case ast.Le:
			pred = PredSLE
		case ast.Gt:
			pred = PredSGT
		case ast.Ge:
			pred = PredSGE
		default:
			return nil, &IRBuildError{Message: "unexpected relational operator"}
		}
		return b.emitCompare(pred, left, right), nil
	case *ast.CallExpr:
		return b.lowerCall(e)
	default:
		return nil, &IRBuildError{Message: "unexpected expression variant"}
	}
}

// lowerCall lowers read() and print(e); the returned value is nil for print.
func (b *Builder) lowerCall(call *ast.CallExpr) (*Value, error) {
	switch call.Callee {
	case "read":
		inst := &CallInstruction{ID: b.nextInstID(), Block: b.cur, Callee: "read"}
		inst.Result = b.newValue("", I32, inst)
		b.emit(inst)
		return inst.Result, nil
	case "print":
		arg, err := b.lowerExprValue(call.Arg)
		if err != nil {
			return nil, err
		}
		inst := &CallInstruction{ID: b.nextInstID(), Block: b.cur, Callee: "print", Args: []*Value{arg}}
		b.emit(inst)
		return nil, nil
	default:
		return nil, &IRBuildError{Message: fmt.Sprintf("call to unknown function '%s'", call.Callee)}
	}
}

// Emission helpers

func (b *Builder) emit(inst Instruction) {
	registerUses(inst)
	b.cur.Instructions = append(b.cur.Instructions, inst)
}

func (b *Builder) setTerminator(block *BasicBlock, term Terminator) {
	registerUses(term)
	block.Terminator = term
}

func (b *Builder) newAlloca(name string, varID int) *AllocaInstruction {
	inst := &AllocaInstruction{ID: b.nextInstID(), Block: b.cur, VarID: varID, Align: 4}
	inst.Result = b.newValue(name, I32Ptr, inst)
	b.emit(inst)
	return inst
}

func (b *Builder) emitLoad(addr *Value) *Value {
	inst := &LoadInstruction{ID: b.nextInstID(), Block: b.cur, Address: addr}
	inst.Result = b.newValue("", I32, inst)
	b.emit(inst)
	return inst.Result
}

func (b *Builder) emitStore(value, addr *Value) {
	inst := &StoreInstruction{ID: b.nextInstID(), Block: b.cur, Value: value, Address: addr}
	b.emit(inst)
}

func (b *Builder) emitBinary(op BinaryOp, left, right *Value) *Value {
	inst := &BinaryInstruction{ID: b.nextInstID(), Block: b.cur, Op: op, Left: left, Right: right}
	inst.Result = b.newValue("", I32, inst)
	b.emit(inst)
	return inst.Result
}

func (b *Builder) emitCompare(pred Predicate, left, right *Value) *Value {
	inst := &CompareInstruction{ID: b.nextInstID(), Block: b.cur, Pred: pred, Left: left, Right: right}
	inst.Result = b.newValue("", I1, inst)
	b.emit(inst)
	return inst.Result
}

func (b *Builder) newBlock(name string) *BasicBlock {
	block := &BasicBlock{ID: b.blockCounter, Name: name}
	b.blockCounter++
	return block
}

// newBlockBeforeReturn creates a block and inserts it immediately before the
// return block, keeping the return block last in layout order.
func (b *Builder) newBlockBeforeReturn(base string) *BasicBlock {
	block := b.newBlock("")
	block.Name = fmt.Sprintf("%s%d", base, block.ID)
	b.fn.InsertBlockBefore(b.retBlock, block)
	return block
}

func (b *Builder) newValue(name string, typ Type, def Instruction) *Value {
	value := &Value{ID: b.valueCounter, Name: name, Typ: typ, Def: def}
	b.valueCounter++
	return value
}

func (b *Builder) nextInstID() int {
	id := b.instCounter
	b.instCounter++
	return id
}
