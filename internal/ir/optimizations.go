package ir

import (
	"github.com/tliron/commonlog"
)

// Optimization passes over the IR. CSE, DCE and constant folding work one
// basic block at a time; constant propagation and dead-store elimination are
// driven by the dataflow analyses over the whole function. The pipeline
// repeats the passes until a complete round reports no change.

var log = commonlog.GetLogger("minicc.ir")

// OptimizationPass represents a single optimization transformation
type OptimizationPass interface {
	Name() string
	Description() string
	Apply(m *Module) (bool, error)
}

// Pipeline manages the sequence of optimization passes
type Pipeline struct {
	cse  *CommonSubexpressionElimination
	dce  *DeadCodeElimination
	fold *ConstantFolding
	prop *ConstantPropagation
	dse  *DeadStoreElimination
}

// NewPipeline creates the default optimization pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		cse:  &CommonSubexpressionElimination{},
		dce:  &DeadCodeElimination{},
		fold: &ConstantFolding{},
		prop: &ConstantPropagation{},
		dse:  &DeadStoreElimination{},
	}
}

// Run executes the pipeline to a fixed point: CSE, DCE, then an inner
// propagation/folding loop, then dead-store elimination, repeated while any
// pass reports change. On an analysis failure the error is returned and no
// further passes run.
func (p *Pipeline) Run(m *Module) error {
	if m == nil || m.Function == nil {
		return &AnalysisError{Message: "nil module or function"}
	}

	round := 0
	for {
		changed := false
		round++

		for _, pass := range []OptimizationPass{p.cse, p.dce} {
			passChanged, err := pass.Apply(m)
			if err != nil {
				return err
			}
			if passChanged {
				changed = true
			}
			log.Debugf("round %d: %s changed=%v", round, pass.Name(), passChanged)
		}

		for {
			propChanged, err := p.prop.Apply(m)
			if err != nil {
				return err
			}
			foldChanged, err := p.fold.Apply(m)
			if err != nil {
				return err
			}
			log.Debugf("round %d: %s changed=%v, %s changed=%v",
				round, p.prop.Name(), propChanged, p.fold.Name(), foldChanged)
			if !propChanged && !foldChanged {
				break
			}
			changed = true
		}

		dseChanged, err := p.dse.Apply(m)
		if err != nil {
			return err
		}
		if dseChanged {
			changed = true
		}
		log.Debugf("round %d: %s changed=%v", round, p.dse.Name(), dseChanged)

		if !changed {
			return nil
		}
	}
}

// CommonSubexpressionElimination removes redundant computations within basic
// blocks by pointing later duplicates at the earlier instruction.
type CommonSubexpressionElimination struct{}

func (cse *CommonSubexpressionElimination) Name() string {
	return "Common Subexpression Elimination"
}

func (cse *CommonSubexpressionElimination) Description() string {
	return "Eliminates redundant computations within basic blocks"
}

func (cse *CommonSubexpressionElimination) Apply(m *Module) (bool, error) {
	changed := false
	for _, block := range m.Function.Blocks {
		if cse.optimizeBlock(block) {
			changed = true
		}
	}
	return changed, nil
}

func (cse *CommonSubexpressionElimination) optimizeBlock(block *BasicBlock) bool {
	changed := false

	for idx, inst := range block.Instructions {
		if !isCSECandidate(inst) {
			continue
		}
		load, isLoad := inst.(*LoadInstruction)

		for _, later := range block.Instructions[idx+1:] {
			// A store to the load's address invalidates the cached result
			// from that point on.
			if isLoad {
				if st, ok := later.(*StoreInstruction); ok && st.Address == load.Address {
					break
				}
			}
			if later.GetResult() == nil || later.GetResult().NumUses() == 0 {
				continue
			}
			if sameExpression(inst, later) {
				ReplaceAllUsesWith(later.GetResult(), inst.GetResult())
				changed = true
			}
		}
	}

	return changed
}

// isCSECandidate excludes instructions whose repetition is meaningful: calls,
// stores and allocas. Terminators never appear in the instruction list.
func isCSECandidate(inst Instruction) bool {
	switch inst.(type) {
	case *CallInstruction, *StoreInstruction, *AllocaInstruction:
		return false
	}
	return true
}

// sameExpression reports whether two instructions compute the same value:
// identical operation and pointer-equal operands.
func sameExpression(a, b Instruction) bool {
	switch ai := a.(type) {
	case *LoadInstruction:
		bi, ok := b.(*LoadInstruction)
		return ok && ai.Address == bi.Address
	case *BinaryInstruction:
		bi, ok := b.(*BinaryInstruction)
		return ok && ai.Op == bi.Op && ai.Left == bi.Left && ai.Right == bi.Right
	case *CompareInstruction:
		bi, ok := b.(*CompareInstruction)
		return ok && ai.Pred == bi.Pred && ai.Left == bi.Left && ai.Right == bi.Right
	}
	return false
}

// DeadCodeElimination deletes instructions whose results are never used.
// Stores, allocas and calls survive: stores and calls for their side effects,
// allocas because they define the variable cells.
type DeadCodeElimination struct{}

func (dce *DeadCodeElimination) Name() string {
	return "Dead Code Elimination"
}

func (dce *DeadCodeElimination) Description() string {
	return "Removes instructions without uses"
}

func (dce *DeadCodeElimination) Apply(m *Module) (bool, error) {
	changed := false
	for _, block := range m.Function.Blocks {
		if dce.optimizeBlock(block) {
			changed = true
		}
	}
	return changed, nil
}

func (dce *DeadCodeElimination) optimizeBlock(block *BasicBlock) bool {
	changed := false
	for i := 0; i < len(block.Instructions); {
		inst := block.Instructions[i]
		if dce.isDead(inst) {
			EraseInstruction(inst)
			changed = true
			// The next instruction now sits at the same index.
			continue
		}
		i++
	}
	return changed
}

func (dce *DeadCodeElimination) isDead(inst Instruction) bool {
	switch inst.(type) {
	case *StoreInstruction, *AllocaInstruction, *CallInstruction:
		return false
	}
	result := inst.GetResult()
	return result != nil && result.NumUses() == 0
}

// ConstantFolding evaluates arithmetic over two constants at compile time,
// with i32 two's-complement wrap.
type ConstantFolding struct{}

func (cf *ConstantFolding) Name() string {
	return "Constant Folding"
}

func (cf *ConstantFolding) Description() string {
	return "Evaluates constant arithmetic at compile time"
}

func (cf *ConstantFolding) Apply(m *Module) (bool, error) {
	changed := false
	for _, block := range m.Function.Blocks {
		var marked []Instruction
		for _, inst := range block.Instructions {
			bin, ok := inst.(*BinaryInstruction)
			if !ok || !bin.Left.IsConst() || !bin.Right.IsConst() {
				continue
			}
			l, r := bin.Left.ConstValue(), bin.Right.ConstValue()
			var folded int32
			switch bin.Op {
			case OpAdd:
				folded = l + r
			case OpSub:
				folded = l - r
			case OpMul:
				folded = l * r
			default:
				continue
			}
			ReplaceAllUsesWith(bin.Result, m.ConstInt(folded))
			marked = append(marked, bin)
			changed = true
		}
		for _, inst := range marked {
			EraseInstruction(inst)
		}
	}
	return changed, nil
}

// ConstantPropagation replaces loads with a constant when every store that
// can reach the load writes the same constant. Driven by the
// reaching-definitions analysis.
type ConstantPropagation struct{}

func (cp *ConstantPropagation) Name() string {
	return "Constant Propagation"
}

func (cp *ConstantPropagation) Description() string {
	return "Folds loads whose reaching stores agree on one constant"
}

func (cp *ConstantPropagation) Apply(m *Module) (bool, error) {
	fn := m.Function
	sets, err := ReachingStores(fn)
	if err != nil {
		return false, err
	}

	changed := false
	for _, block := range fn.Blocks {
		r := sets.In[block].Clone()
		var marked []*LoadInstruction

		for _, inst := range block.Instructions {
			switch i := inst.(type) {
			case *StoreInstruction:
				for reaching := range r {
					if st, ok := reaching.(*StoreInstruction); ok && st.Address == i.Address {
						r.Remove(st)
					}
				}
				r.Add(i)
			case *LoadInstruction:
				constant, ok := cp.uniqueReachingConstant(r, i.Address)
				if !ok {
					continue
				}
				ReplaceAllUsesWith(i.Result, m.ConstInt(constant))
				marked = append(marked, i)
				changed = true
			}
		}

		for _, ld := range marked {
			EraseInstruction(ld)
		}
	}
	return changed, nil
}

// uniqueReachingConstant returns the constant k when the reaching stores to
// addr are non-empty and all write k.
func (cp *ConstantPropagation) uniqueReachingConstant(r InstructionSet, addr *Value) (int32, bool) {
	var constant int32
	found := false
	for reaching := range r {
		st, ok := reaching.(*StoreInstruction)
		if !ok || st.Address != addr {
			continue
		}
		if !st.Value.IsConst() {
			return 0, false
		}
		v := st.Value.ConstValue()
		if found && v != constant {
			return 0, false
		}
		constant = v
		found = true
	}
	return constant, found
}

// DeadStoreElimination deletes stores whose value can never be read: no later
// load of the address in the block and no load of it live out of the block.
// Driven by the backward available-load analysis.
type DeadStoreElimination struct{}

func (dse *DeadStoreElimination) Name() string {
	return "Dead Store Elimination"
}

func (dse *DeadStoreElimination) Description() string {
	return "Removes stores that are never read"
}

func (dse *DeadStoreElimination) Apply(m *Module) (bool, error) {
	fn := m.Function
	sets, err := AvailableLoads(fn)
	if err != nil {
		return false, err
	}

	changed := false
	for _, block := range fn.Blocks {
		// Loads not yet passed; shrinks as the walk advances, so at a store
		// it holds exactly the loads later in the block.
		remaining := make(map[*LoadInstruction]bool)
		for _, inst := range block.Instructions {
			if ld, ok := inst.(*LoadInstruction); ok {
				remaining[ld] = true
			}
		}

		var marked []*StoreInstruction
		for _, inst := range block.Instructions {
			switch i := inst.(type) {
			case *LoadInstruction:
				delete(remaining, i)
			case *StoreInstruction:
				if dse.hasFutureLoad(i.Address, remaining, sets.Out[block]) {
					continue
				}
				marked = append(marked, i)
			}
		}

		for _, st := range marked {
			EraseInstruction(st)
			changed = true
		}
	}
	return changed, nil
}

func (dse *DeadStoreElimination) hasFutureLoad(addr *Value, remaining map[*LoadInstruction]bool, out InstructionSet) bool {
	for ld := range remaining {
		if ld.Address == addr {
			return true
		}
	}
	for inst := range out {
		if ld, ok := inst.(*LoadInstruction); ok && ld.Address == addr {
			return true
		}
	}
	return false
}
