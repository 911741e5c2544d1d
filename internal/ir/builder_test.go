package ir

import (
	"testing"
)

func TestBuildTrivialReturn(t *testing.T) {
	module := buildSource(t, `int main() { return 7; }`)
	fn := module.Function

	if len(fn.Blocks) != 2 {
		t.Fatalf("expected entry + return blocks, got %d", len(fn.Blocks))
	}

	entry := fn.Entry()
	if entry.Name != "entry" {
		t.Errorf("first block should be entry, got %s", entry.Name)
	}

	// alloca retval; store 7 -> retval
	if len(entry.Instructions) != 2 {
		t.Fatalf("expected 2 entry instructions, got %d", len(entry.Instructions))
	}
	alloca, ok := entry.Instructions[0].(*AllocaInstruction)
	if !ok {
		t.Fatal("entry should start with the return slot alloca")
	}
	if alloca.VarID != -1 {
		t.Errorf("return slot should have var id -1, got %d", alloca.VarID)
	}
	store, ok := entry.Instructions[1].(*StoreInstruction)
	if !ok {
		t.Fatal("expected a store of the return value")
	}
	if !store.Value.IsConst() || store.Value.ConstValue() != 7 {
		t.Error("store should write the constant 7")
	}
	if store.Address != fn.RetSlot.Result {
		t.Error("store should target the return slot")
	}

	jump, ok := entry.Terminator.(*JumpTerminator)
	if !ok || jump.Target != fn.ReturnBlock() {
		t.Error("entry should branch to the return block")
	}

	ret := fn.ReturnBlock()
	if len(ret.Instructions) != 1 {
		t.Fatalf("return block should hold one load, got %d instructions", len(ret.Instructions))
	}
	load, ok := ret.Instructions[0].(*LoadInstruction)
	if !ok || load.Address != fn.RetSlot.Result {
		t.Error("return block should load the return slot")
	}
	retTerm, ok := ret.Terminator.(*ReturnTerminator)
	if !ok || retTerm.Value != load.Result {
		t.Error("return block should return the loaded value")
	}
}

func TestBuildAllocasInDeclarationOrder(t *testing.T) {
	module := buildSource(t, `
		int main(int a) {
			int x;
			int y;
			x = a;
			y = x;
			return y;
		}
	`)
	fn := module.Function
	entry := fn.Entry()

	// v0 (param), v1, v2, retval in order, then the parameter spill store.
	var allocas []*AllocaInstruction
	for _, inst := range entry.Instructions {
		if a, ok := inst.(*AllocaInstruction); ok {
			allocas = append(allocas, a)
		}
	}
	if len(allocas) != 4 {
		t.Fatalf("expected 4 allocas, got %d", len(allocas))
	}
	for i, want := range []int{0, 1, 2, -1} {
		if allocas[i].VarID != want {
			t.Errorf("alloca %d should belong to v%d, got v%d", i, want, allocas[i].VarID)
		}
		if allocas[i].Align != 4 {
			t.Errorf("alloca %d should have alignment 4", i)
		}
	}

	if fn.Param == nil {
		t.Fatal("function should carry its parameter value")
	}
	paramStore, ok := entry.Instructions[4].(*StoreInstruction)
	if !ok || paramStore.Value != fn.Param || paramStore.Address != fn.Allocas[0].Result {
		t.Error("parameter should be spilled into v0's cell right after the allocas")
	}
}

func TestBuildIfElseDiamond(t *testing.T) {
	module := buildSource(t, `
		int foo(int a) {
			int x;
			if (a > 0) x = 1; else x = 2;
			return x;
		}
	`)
	fn := module.Function

	// entry, cond, then, else, join, return
	if len(fn.Blocks) != 6 {
		t.Fatalf("expected 6 blocks, got %d", len(fn.Blocks))
	}
	entry, cond, then, els, join := fn.Blocks[0], fn.Blocks[1], fn.Blocks[2], fn.Blocks[3], fn.Blocks[4]

	if jump, ok := entry.Terminator.(*JumpTerminator); !ok || jump.Target != cond {
		t.Error("entry should jump to the condition block")
	}

	branch, ok := cond.Terminator.(*BranchTerminator)
	if !ok {
		t.Fatal("condition block should end in a conditional branch")
	}
	if branch.TrueBlock != then || branch.FalseBlock != els {
		t.Error("branch should target then and else")
	}
	cmp, ok := branch.Condition.Def.(*CompareInstruction)
	if !ok || cmp.Pred != PredSGT {
		t.Error("condition should be an icmp sgt")
	}

	for _, arm := range []*BasicBlock{then, els} {
		if jump, ok := arm.Terminator.(*JumpTerminator); !ok || jump.Target != join {
			t.Errorf("arm %s should jump to the join block", arm.Name)
		}
		if len(arm.Instructions) != 1 {
			t.Errorf("arm %s should hold a single store", arm.Name)
		}
	}

	preds, err := fn.Predecessors()
	if err != nil {
		t.Fatalf("predecessors failed: %v", err)
	}
	if len(preds[join]) != 2 {
		t.Errorf("join should have 2 predecessors, got %d", len(preds[join]))
	}
}

func TestBuildIfWithoutElse(t *testing.T) {
	module := buildSource(t, `
		int foo(int a) {
			int x;
			x = 0;
			if (a > 0) { x = 1; }
			return x;
		}
	`)
	fn := module.Function

	// entry, cond, then, join, return
	if len(fn.Blocks) != 5 {
		t.Fatalf("expected 5 blocks, got %d", len(fn.Blocks))
	}
	cond, then, join := fn.Blocks[1], fn.Blocks[2], fn.Blocks[3]

	branch, ok := cond.Terminator.(*BranchTerminator)
	if !ok {
		t.Fatal("condition block should end in a conditional branch")
	}
	if branch.TrueBlock != then {
		t.Error("true edge should enter the then block")
	}
	if branch.FalseBlock != join {
		t.Error("false edge should skip to the join block")
	}
}

func TestBuildIfBothArmsReturn(t *testing.T) {
	module := buildSource(t, `
		int foo(int a) {
			if (a > 0) { return 1; } else { return 2; }
		}
	`)
	fn := module.Function

	for _, block := range fn.Blocks {
		if block.Terminator == nil {
			t.Errorf("block %s lacks a terminator", block.Name)
		}
	}

	// Both arms jump straight to the return block; no join edge exists.
	preds, err := fn.Predecessors()
	if err != nil {
		t.Fatalf("predecessors failed: %v", err)
	}
	if got := len(preds[fn.ReturnBlock()]); got != 2 {
		t.Errorf("return block should have 2 predecessors, got %d", got)
	}
}

func TestBuildWhileLoop(t *testing.T) {
	module := buildSource(t, `
		int foo(int n) {
			int i;
			i = 0;
			while (i < n) {
				i = i + 1;
			}
			return i;
		}
	`)
	fn := module.Function

	// entry, cond, body, exit, return
	if len(fn.Blocks) != 5 {
		t.Fatalf("expected 5 blocks, got %d", len(fn.Blocks))
	}
	entry, cond, body, exit := fn.Blocks[0], fn.Blocks[1], fn.Blocks[2], fn.Blocks[3]

	if jump, ok := entry.Terminator.(*JumpTerminator); !ok || jump.Target != cond {
		t.Error("entry should jump to the loop condition")
	}
	branch, ok := cond.Terminator.(*BranchTerminator)
	if !ok || branch.TrueBlock != body || branch.FalseBlock != exit {
		t.Error("condition should branch to body and exit")
	}
	if back, ok := body.Terminator.(*JumpTerminator); !ok || back.Target != cond {
		t.Error("body should jump back to the condition")
	}

	preds, err := fn.Predecessors()
	if err != nil {
		t.Fatalf("predecessors failed: %v", err)
	}
	if len(preds[cond]) != 2 {
		t.Errorf("condition block should have 2 predecessors (entry + backedge), got %d", len(preds[cond]))
	}
}

func TestBuildWhileBodyReturns(t *testing.T) {
	module := buildSource(t, `
		int foo(int n) {
			while (n > 0) {
				return n;
			}
			return 0;
		}
	`)
	fn := module.Function

	for _, block := range fn.Blocks {
		if block.Terminator == nil {
			t.Errorf("block %s lacks a terminator", block.Name)
		}
	}

	// The body returns, so the condition block must have only one
	// predecessor: there is no backedge.
	preds, err := fn.Predecessors()
	if err != nil {
		t.Fatalf("predecessors failed: %v", err)
	}
	cond := fn.Blocks[1]
	if len(preds[cond]) != 1 {
		t.Errorf("condition should have a single predecessor, got %d", len(preds[cond]))
	}
}

func TestBuildCalls(t *testing.T) {
	module := buildSource(t, `
		extern int read(void);
		extern void print(int);
		int main() {
			int x;
			x = read();
			print(x);
			return x;
		}
	`)
	fn := module.Function

	reads := countInstructions(fn, func(i Instruction) bool {
		c, ok := i.(*CallInstruction)
		return ok && c.Callee == "read"
	})
	prints := countInstructions(fn, func(i Instruction) bool {
		c, ok := i.(*CallInstruction)
		return ok && c.Callee == "print"
	})
	if reads != 1 || prints != 1 {
		t.Errorf("expected one read and one print call, got %d and %d", reads, prints)
	}
}

func TestBuildUnaryMinus(t *testing.T) {
	module := buildSource(t, `int main() { int x; x = 5; return -x; }`)
	fn := module.Function

	subs := countInstructions(fn, func(i Instruction) bool {
		b, ok := i.(*BinaryInstruction)
		return ok && b.Op == OpSub && b.Left.IsConst() && b.Left.ConstValue() == 0
	})
	if subs != 1 {
		t.Errorf("unary minus should lower to sub 0, x; found %d", subs)
	}
}

func TestBuildStatementsAfterReturnAreDropped(t *testing.T) {
	module := buildSource(t, `
		int main() {
			return 1;
			return 2;
		}
	`)
	fn := module.Function

	stores := countStores(fn)
	if stores != 1 {
		t.Errorf("only the first return should be lowered, got %d stores", stores)
	}
}
