package ir

import (
	"testing"
)

func TestReachingStoresGenLastWriterWins(t *testing.T) {
	module := buildSource(t, `
		int main() {
			int x;
			x = 1;
			x = 2;
			return x;
		}
	`)
	fn := module.Function
	entry := fn.Entry()

	sets, err := ReachingStores(fn)
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}

	var stores []*StoreInstruction
	for _, inst := range entry.Instructions {
		if st, ok := inst.(*StoreInstruction); ok {
			stores = append(stores, st)
		}
	}
	// store 1 -> x, store 2 -> x, store load -> retval
	if len(stores) != 3 {
		t.Fatalf("expected 3 stores in entry, got %d", len(stores))
	}

	gen := sets.Gen[entry]
	if gen.Contains(stores[0]) {
		t.Error("the overwritten store should not be in GEN")
	}
	if !gen.Contains(stores[1]) || !gen.Contains(stores[2]) {
		t.Error("the last store per address should be in GEN")
	}
}

func TestReachingStoresKillExcludesOwnBlock(t *testing.T) {
	module := buildSource(t, `
		int foo(int a) {
			int x;
			if (a > 0) x = 1; else x = 2;
			return x;
		}
	`)
	fn := module.Function

	sets, err := ReachingStores(fn)
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}

	then, els := fn.Blocks[2], fn.Blocks[3]
	thenStore := then.Instructions[0].(*StoreInstruction)
	elseStore := els.Instructions[0].(*StoreInstruction)

	if !sets.Kill[then].Contains(elseStore) {
		t.Error("the then block should kill the else block's store to x")
	}
	if sets.Kill[then].Contains(thenStore) {
		t.Error("a store never kills itself")
	}
}

func TestForwardEquationsHoldAtFixedPoint(t *testing.T) {
	module := buildSource(t, `
		int foo(int n) {
			int i;
			int s;
			i = 0;
			s = 0;
			while (i < n) {
				s = s + i;
				i = i + 1;
			}
			return s;
		}
	`)
	fn := module.Function

	sets, err := ReachingStores(fn)
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	preds, err := fn.Predecessors()
	if err != nil {
		t.Fatalf("predecessors failed: %v", err)
	}

	for _, block := range fn.Blocks {
		// IN[B] = union of OUT[P]
		wantIn := NewInstructionSet()
		for _, p := range preds[block] {
			for inst := range sets.Out[p] {
				wantIn.Add(inst)
			}
		}
		if !sets.In[block].Equals(wantIn) {
			t.Errorf("IN[%s] does not equal the union of predecessor OUT sets", block.Name)
		}

		// OUT[B] = GEN[B] u (IN[B] \ KILL[B])
		wantOut := sets.Gen[block].Clone()
		for inst := range sets.In[block] {
			if !sets.Kill[block].Contains(inst) {
				wantOut.Add(inst)
			}
		}
		if !sets.Out[block].Equals(wantOut) {
			t.Errorf("OUT[%s] does not satisfy the transfer equation", block.Name)
		}
	}
}

func TestAvailableLoadsGenExcludesClobbered(t *testing.T) {
	module := buildSource(t, `
		int main() {
			int x;
			int y;
			x = 1;
			y = x;
			x = y + x;
			return x;
		}
	`)
	fn := module.Function
	entry := fn.Entry()

	sets, err := AvailableLoads(fn)
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}

	gen := sets.Gen[entry]
	for _, inst := range entry.Instructions {
		if ld, ok := inst.(*LoadInstruction); ok {
			alloca := ld.Address.Def.(*AllocaInstruction)
			// Every load of x follows the block's store to x, every load of
			// y follows the store to y; none may be generated upward.
			if alloca.VarID >= 0 && gen.Contains(ld) {
				t.Errorf("load of v%d follows a store in the same block and should not be in GEN", alloca.VarID)
			}
		}
	}
}

func TestBackwardEquationsHoldAtFixedPoint(t *testing.T) {
	module := buildSource(t, `
		int foo(int n) {
			int s;
			s = 0;
			while (s < n) {
				s = s + 1;
			}
			return s;
		}
	`)
	fn := module.Function

	sets, err := AvailableLoads(fn)
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}

	for _, block := range fn.Blocks {
		// OUT[B] = union of IN[S]
		wantOut := NewInstructionSet()
		for _, s := range block.Successors() {
			for inst := range sets.In[s] {
				wantOut.Add(inst)
			}
		}
		if !sets.Out[block].Equals(wantOut) {
			t.Errorf("OUT[%s] does not equal the union of successor IN sets", block.Name)
		}

		// IN[B] = GEN[B] u (OUT[B] \ KILL[B])
		wantIn := sets.Gen[block].Clone()
		for inst := range sets.Out[block] {
			if !sets.Kill[block].Contains(inst) {
				wantIn.Add(inst)
			}
		}
		if !sets.In[block].Equals(wantIn) {
			t.Errorf("IN[%s] does not satisfy the transfer equation", block.Name)
		}
	}
}

func TestAnalysisRequiresTerminators(t *testing.T) {
	fn := &Function{
		Name:   "broken",
		Blocks: []*BasicBlock{{Name: "entry"}},
	}

	if _, err := ReachingStores(fn); err == nil {
		t.Error("analysis over a block without terminator should fail")
	} else if _, ok := err.(*AnalysisError); !ok {
		t.Errorf("expected *AnalysisError, got %T", err)
	}

	if _, err := AvailableLoads(fn); err == nil {
		t.Error("backward analysis over a block without terminator should fail")
	}
}

func TestInstructionSetOperations(t *testing.T) {
	a := &LoadInstruction{ID: 1}
	b := &LoadInstruction{ID: 2}

	s := NewInstructionSet(a)
	if !s.Contains(a) || s.Contains(b) {
		t.Error("set membership is wrong")
	}

	c := s.Clone()
	c.Add(b)
	if s.Contains(b) {
		t.Error("clone should be independent")
	}
	if s.Equals(c) {
		t.Error("sets of different size should not be equal")
	}

	c.Remove(b)
	if !s.Equals(c) {
		t.Error("sets with identical members should be equal")
	}
}
