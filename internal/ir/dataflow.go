package ir

// Iterative dataflow framework. Both directions solve
//
//	forward:  IN[B] = U OUT[P] for P in preds(B); OUT[B] = GEN[B] u (IN[B] \ KILL[B])
//	backward: OUT[B] = U IN[S] for S in succs(B); IN[B] = GEN[B] u (OUT[B] \ KILL[B])
//
// to a fixed point over the finite lattice of instruction sets, with union as
// the meet operator. Termination follows from monotonicity.

// InstructionSet is a set of instructions keyed by identity.
type InstructionSet map[Instruction]struct{}

// NewInstructionSet creates a set holding the given instructions.
func NewInstructionSet(insts ...Instruction) InstructionSet {
	s := make(InstructionSet, len(insts))
	for _, inst := range insts {
		s[inst] = struct{}{}
	}
	return s
}

func (s InstructionSet) Add(inst Instruction)      { s[inst] = struct{}{} }
func (s InstructionSet) Remove(inst Instruction)   { delete(s, inst) }
func (s InstructionSet) Contains(inst Instruction) bool {
	_, ok := s[inst]
	return ok
}
func (s InstructionSet) Len() int { return len(s) }

// Clone returns an independent copy of the set.
func (s InstructionSet) Clone() InstructionSet {
	c := make(InstructionSet, len(s))
	for inst := range s {
		c[inst] = struct{}{}
	}
	return c
}

// Equals reports whether both sets hold exactly the same instructions.
func (s InstructionSet) Equals(other InstructionSet) bool {
	if len(s) != len(other) {
		return false
	}
	for inst := range s {
		if !other.Contains(inst) {
			return false
		}
	}
	return true
}

// BlockSets carries the per-block GEN/KILL inputs and IN/OUT solutions of one
// analysis.
type BlockSets struct {
	Gen  map[*BasicBlock]InstructionSet
	Kill map[*BasicBlock]InstructionSet
	In   map[*BasicBlock]InstructionSet
	Out  map[*BasicBlock]InstructionSet
}

// SolveForward runs the forward solver over the function with the given
// GEN/KILL sets. IN starts empty; OUT starts at GEN. Iterates until no OUT
// set changes between two successive passes.
func SolveForward(fn *Function, gen, kill map[*BasicBlock]InstructionSet) (*BlockSets, error) {
	if fn == nil {
		return nil, &AnalysisError{Message: "nil function"}
	}
	if gen == nil || kill == nil {
		return nil, &AnalysisError{Message: "missing GEN/KILL inputs"}
	}
	preds, err := fn.Predecessors()
	if err != nil {
		return nil, err
	}

	sets := &BlockSets{
		Gen:  gen,
		Kill: kill,
		In:   make(map[*BasicBlock]InstructionSet, len(fn.Blocks)),
		Out:  make(map[*BasicBlock]InstructionSet, len(fn.Blocks)),
	}
	for _, b := range fn.Blocks {
		sets.In[b] = NewInstructionSet()
		sets.Out[b] = gen[b].Clone()
	}

	for {
		changed := false
		for _, b := range fn.Blocks {
			in := NewInstructionSet()
			for _, p := range preds[b] {
				for inst := range sets.Out[p] {
					in.Add(inst)
				}
			}
			sets.In[b] = in
		}
		for _, b := range fn.Blocks {
			out := gen[b].Clone()
			for inst := range sets.In[b] {
				if !kill[b].Contains(inst) {
					out.Add(inst)
				}
			}
			if !out.Equals(sets.Out[b]) {
				changed = true
				sets.Out[b] = out
			}
		}
		if !changed {
			return sets, nil
		}
	}
}

// SolveBackward runs the backward solver over the function with the given
// GEN/KILL sets. OUT starts empty; IN starts at GEN. Iterates until no IN
// set changes between two successive passes.
func SolveBackward(fn *Function, gen, kill map[*BasicBlock]InstructionSet) (*BlockSets, error) {
	if fn == nil {
		return nil, &AnalysisError{Message: "nil function"}
	}
	if gen == nil || kill == nil {
		return nil, &AnalysisError{Message: "missing GEN/KILL inputs"}
	}

	sets := &BlockSets{
		Gen:  gen,
		Kill: kill,
		In:   make(map[*BasicBlock]InstructionSet, len(fn.Blocks)),
		Out:  make(map[*BasicBlock]InstructionSet, len(fn.Blocks)),
	}
	for _, b := range fn.Blocks {
		if b.Terminator == nil {
			return nil, &AnalysisError{Message: "block " + b.Name + " has no terminator"}
		}
		sets.Out[b] = NewInstructionSet()
		sets.In[b] = gen[b].Clone()
	}

	for {
		changed := false
		for _, b := range fn.Blocks {
			out := NewInstructionSet()
			for _, s := range b.Successors() {
				for inst := range sets.In[s] {
					out.Add(inst)
				}
			}
			sets.Out[b] = out
		}
		for _, b := range fn.Blocks {
			in := gen[b].Clone()
			for inst := range sets.Out[b] {
				if !kill[b].Contains(inst) {
					in.Add(inst)
				}
			}
			if !in.Equals(sets.In[b]) {
				changed = true
				sets.In[b] = in
			}
		}
		if !changed {
			return sets, nil
		}
	}
}

// Reaching-definition sets (forward; elements are stores)

// ReachingStores computes GEN/KILL for the reaching-definitions analysis and
// solves it. GEN keeps, per address, only the last store of the block; KILL
// holds every store elsewhere in the function to an address the block also
// stores to.
func ReachingStores(fn *Function) (*BlockSets, error) {
	if fn == nil {
		return nil, &AnalysisError{Message: "nil function"}
	}

	var allStores []*StoreInstruction
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if st, ok := inst.(*StoreInstruction); ok {
				allStores = append(allStores, st)
			}
		}
	}

	gen := make(map[*BasicBlock]InstructionSet, len(fn.Blocks))
	kill := make(map[*BasicBlock]InstructionSet, len(fn.Blocks))
	for _, b := range fn.Blocks {
		g := NewInstructionSet()
		lastByAddr := make(map[*Value]*StoreInstruction)
		for _, inst := range b.Instructions {
			if st, ok := inst.(*StoreInstruction); ok {
				if prev, ok := lastByAddr[st.Address]; ok {
					g.Remove(prev)
				}
				lastByAddr[st.Address] = st
				g.Add(st)
			}
		}
		gen[b] = g

		k := NewInstructionSet()
		for _, st := range allStores {
			if st.GetBlock() == b {
				continue
			}
			if _, ok := lastByAddr[st.Address]; ok {
				k.Add(st)
			}
		}
		kill[b] = k
	}

	return SolveForward(fn, gen, kill)
}

// Available-load sets (backward; elements are loads)

// AvailableLoads computes GEN/KILL for the backward load analysis and solves
// it. GEN holds the loads of a block whose address was not stored to earlier
// in the same block; KILL holds every load in the function whose address the
// block stores to.
func AvailableLoads(fn *Function) (*BlockSets, error) {
	if fn == nil {
		return nil, &AnalysisError{Message: "nil function"}
	}

	var allLoads []*LoadInstruction
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if ld, ok := inst.(*LoadInstruction); ok {
				allLoads = append(allLoads, ld)
			}
		}
	}

	gen := make(map[*BasicBlock]InstructionSet, len(fn.Blocks))
	kill := make(map[*BasicBlock]InstructionSet, len(fn.Blocks))
	for _, b := range fn.Blocks {
		g := NewInstructionSet()
		storedAddrs := make(map[*Value]bool)
		for _, inst := range b.Instructions {
			switch i := inst.(type) {
			case *LoadInstruction:
				if !storedAddrs[i.Address] {
					g.Add(i)
				}
			case *StoreInstruction:
				storedAddrs[i.Address] = true
			}
		}
		gen[b] = g

		k := NewInstructionSet()
		for _, ld := range allLoads {
			if storedAddrs[ld.Address] {
				k.Add(ld)
			}
		}
		kill[b] = k
	}

	return SolveBackward(fn, gen, kill)
}
