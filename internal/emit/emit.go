package emit

import (
	"fmt"

	llvmir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"minicc/internal/ir"
)

// Emitter converts an optimized IR module into an llir/llvm module for
// textual .ll output. Blocks and instructions map one to one; values are
// translated as their definitions are encountered, which is sufficient
// because every operand is defined before its use.
type Emitter struct {
	mod    *llvmir.Module
	fn     *llvmir.Func
	blocks map[*ir.BasicBlock]*llvmir.Block
	values map[*ir.Value]value.Value

	readFunc  *llvmir.Func
	printFunc *llvmir.Func
}

// Emit renders the module as textual LLVM IR.
func Emit(m *ir.Module) (string, error) {
	if m == nil || m.Function == nil {
		return "", fmt.Errorf("emit: nil module or function")
	}

	e := &Emitter{
		mod:    llvmir.NewModule(),
		blocks: make(map[*ir.BasicBlock]*llvmir.Block),
		values: make(map[*ir.Value]value.Value),
	}
	e.mod.TargetTriple = m.TargetTriple

	e.readFunc = e.mod.NewFunc("read", types.I32)
	e.printFunc = e.mod.NewFunc("print", types.Void, llvmir.NewParam("", types.I32))

	if err := e.emitFunction(m.Function); err != nil {
		return "", err
	}
	return e.mod.String(), nil
}

func (e *Emitter) emitFunction(fn *ir.Function) error {
	var params []*llvmir.Param
	if fn.Param != nil {
		param := llvmir.NewParam(fn.Param.Name, types.I32)
		params = append(params, param)
		e.values[fn.Param] = param
	}
	e.fn = e.mod.NewFunc(fn.Name, types.I32, params...)

	for _, block := range fn.Blocks {
		e.blocks[block] = e.fn.NewBlock(block.Name)
	}

	for _, block := range fn.Blocks {
		llBlock := e.blocks[block]
		for _, inst := range block.Instructions {
			if err := e.emitInstruction(llBlock, inst); err != nil {
				return err
			}
		}
		if block.Terminator == nil {
			return fmt.Errorf("emit: block %s has no terminator", block.Name)
		}
		if err := e.emitTerminator(llBlock, block.Terminator); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) emitInstruction(block *llvmir.Block, inst ir.Instruction) error {
	switch i := inst.(type) {
	case *ir.AllocaInstruction:
		alloca := block.NewAlloca(types.I32)
		alloca.Align = llvmir.Align(i.Align)
		e.values[i.Result] = alloca
	case *ir.LoadInstruction:
		addr, err := e.operand(i.Address)
		if err != nil {
			return err
		}
		e.values[i.Result] = block.NewLoad(types.I32, addr)
	case *ir.StoreInstruction:
		val, err := e.operand(i.Value)
		if err != nil {
			return err
		}
		addr, err := e.operand(i.Address)
		if err != nil {
			return err
		}
		block.NewStore(val, addr)
	case *ir.BinaryInstruction:
		left, err := e.operand(i.Left)
		if err != nil {
			return err
		}
		right, err := e.operand(i.Right)
		if err != nil {
			return err
		}
		switch i.Op {
		case ir.OpAdd:
			e.values[i.Result] = block.NewAdd(left, right)
		case ir.OpSub:
			e.values[i.Result] = block.NewSub(left, right)
		case ir.OpMul:
			e.values[i.Result] = block.NewMul(left, right)
		default:
			return fmt.Errorf("emit: unknown binary op %s", i.Op)
		}
	case *ir.CompareInstruction:
		left, err := e.operand(i.Left)
		if err != nil {
			return err
		}
		right, err := e.operand(i.Right)
		if err != nil {
			return err
		}
		pred, err := comparePred(i.Pred)
		if err != nil {
			return err
		}
		e.values[i.Result] = block.NewICmp(pred, left, right)
	case *ir.CallInstruction:
		switch i.Callee {
		case "read":
			e.values[i.Result] = block.NewCall(e.readFunc)
		case "print":
			arg, err := e.operand(i.Args[0])
			if err != nil {
				return err
			}
			block.NewCall(e.printFunc, arg)
		default:
			return fmt.Errorf("emit: call to unknown function %s", i.Callee)
		}
	default:
		return fmt.Errorf("emit: unknown instruction %d", inst.GetID())
	}
	return nil
}

func (e *Emitter) emitTerminator(block *llvmir.Block, term ir.Terminator) error {
	switch t := term.(type) {
	case *ir.JumpTerminator:
		block.NewBr(e.blocks[t.Target])
	case *ir.BranchTerminator:
		cond, err := e.operand(t.Condition)
		if err != nil {
			return err
		}
		block.NewCondBr(cond, e.blocks[t.TrueBlock], e.blocks[t.FalseBlock])
	case *ir.ReturnTerminator:
		val, err := e.operand(t.Value)
		if err != nil {
			return err
		}
		block.NewRet(val)
	default:
		return fmt.Errorf("emit: unknown terminator %d", term.GetID())
	}
	return nil
}

func (e *Emitter) operand(v *ir.Value) (value.Value, error) {
	if v == nil {
		return nil, fmt.Errorf("emit: nil operand")
	}
	if v.IsConst() {
		return constant.NewInt(types.I32, int64(v.ConstValue())), nil
	}
	if ll, ok := e.values[v]; ok {
		return ll, nil
	}
	return nil, fmt.Errorf("emit: operand used before definition")
}

func comparePred(pred ir.Predicate) (enum.IPred, error) {
	switch pred {
	case ir.PredEQ:
		return enum.IPredEQ, nil
	case ir.PredNE:
		return enum.IPredNE, nil
	case ir.PredSLT:
		return enum.IPredSLT, nil
	case ir.PredSLE:
		return enum.IPredSLE, nil
	case ir.PredSGT:
		return enum.IPredSGT, nil
	case ir.PredSGE:
		return enum.IPredSGE, nil
	}
	return 0, fmt.Errorf("emit: unknown predicate %s", pred)
}
