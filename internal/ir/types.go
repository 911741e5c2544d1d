package ir

import (
	"fmt"
)

// IR types and structures for the MiniC compiler. The IR keeps every source
// variable in an explicit stack cell (alloca) and threads all cross-block
// state through loads and stores; instruction results are single-assignment
// values referenced by stable identity.

// Module represents a whole compilation unit: the two runtime externs and the
// single user function.
type Module struct {
	TargetTriple string
	Externs      []*ExternDecl
	Function     *Function

	// Interned integer constants, shared by all users
	constants map[int32]*Value
}

// ExternDecl declares a runtime primitive (read or print).
type ExternDecl struct {
	Name    string
	Returns Type
	Params  []Type
}

// NewModule creates an empty module with the read/print extern declarations.
func NewModule() *Module {
	return &Module{
		TargetTriple: "x86_64-pc-linux-gnu",
		Externs: []*ExternDecl{
			{Name: "read", Returns: I32},
			{Name: "print", Returns: Void, Params: []Type{I32}},
		},
		constants: make(map[int32]*Value),
	}
}

// ConstInt returns the interned i32 constant value for v.
func (m *Module) ConstInt(v int32) *Value {
	if c, ok := m.constants[v]; ok {
		return c
	}
	val := v
	c := &Value{Typ: I32, Const: &val}
	m.constants[v] = c
	return c
}

// Function represents the user function in IR form. The first block is the
// entry, the last block is the unique return block.
type Function struct {
	Name   string
	Param  *Value // nil when the function takes no parameter
	Blocks []*BasicBlock

	// Allocas maps each resolved variable id to its entry-block allocation.
	Allocas map[int]*AllocaInstruction
	// RetSlot is the stack cell holding the return value.
	RetSlot *AllocaInstruction
}

// Entry returns the entry block.
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// ReturnBlock returns the dedicated return block.
func (f *Function) ReturnBlock() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[len(f.Blocks)-1]
}

// AppendBlock adds a block at the end of the layout order.
func (f *Function) AppendBlock(b *BasicBlock) {
	f.Blocks = append(f.Blocks, b)
}

// InsertBlockBefore inserts block b immediately before block x in layout
// order.
func (f *Function) InsertBlockBefore(x, b *BasicBlock) {
	for i, blk := range f.Blocks {
		if blk == x {
			f.Blocks = append(f.Blocks[:i], append([]*BasicBlock{b}, f.Blocks[i:]...)...)
			return
		}
	}
	f.Blocks = append(f.Blocks, b)
}

// Predecessors computes the inverse edge relation by scanning every block's
// terminator. Returns an AnalysisError if a block lacks its terminator.
func (f *Function) Predecessors() (map[*BasicBlock][]*BasicBlock, error) {
	preds := make(map[*BasicBlock][]*BasicBlock, len(f.Blocks))
	for _, b := range f.Blocks {
		preds[b] = nil
	}
	for _, b := range f.Blocks {
		if b.Terminator == nil {
			return nil, &AnalysisError{Message: fmt.Sprintf("block %s has no terminator", b.Name)}
		}
		for _, succ := range b.Terminator.GetSuccessors() {
			preds[succ] = append(preds[succ], b)
		}
	}
	return preds, nil
}

// BasicBlock represents a straight-line instruction sequence ended by exactly
// one terminator. Identity is the pointer and stays stable across rewrites.
type BasicBlock struct {
	ID           int
	Name         string
	Instructions []Instruction
	Terminator   Terminator
}

// Successors enumerates the blocks the terminator can transfer to.
func (b *BasicBlock) Successors() []*BasicBlock {
	if b.Terminator == nil {
		return nil
	}
	return b.Terminator.GetSuccessors()
}

// LastInstruction returns the final non-terminator instruction, or nil.
func (b *BasicBlock) LastInstruction() Instruction {
	if len(b.Instructions) == 0 {
		return nil
	}
	return b.Instructions[len(b.Instructions)-1]
}

// Value represents a value with a single definition point. Constants and the
// function parameter have no defining instruction.
type Value struct {
	ID    int
	Name  string
	Typ   Type
	Def   Instruction // nil for constants and parameters
	Const *int32      // set for interned integer constants
	uses  []*Use
}

// Use records one operand slot of one consumer instruction.
type Use struct {
	User  Instruction
	Index int
}

// IsConst reports whether the value is a compile-time integer constant.
func (v *Value) IsConst() bool { return v.Const != nil }

// ConstValue returns the constant payload; valid only when IsConst.
func (v *Value) ConstValue() int32 { return *v.Const }

// NumUses returns the number of operand slots referencing this value.
func (v *Value) NumUses() int { return len(v.uses) }

// Uses returns the current use list.
func (v *Value) Uses() []*Use { return v.uses }

func (v *Value) addUse(user Instruction, index int) {
	v.uses = append(v.uses, &Use{User: user, Index: index})
}

func (v *Value) removeUse(user Instruction, index int) {
	for i, u := range v.uses {
		if u.User == user && u.Index == index {
			v.uses = append(v.uses[:i], v.uses[i+1:]...)
			return
		}
	}
}

// Instruction is implemented by every IR instruction.
type Instruction interface {
	GetID() int
	GetResult() *Value
	GetOperands() []*Value
	GetBlock() *BasicBlock
	IsTerminator() bool

	// setOperand writes operand slot index without touching use lists;
	// callers go through setOperand/ReplaceAllUsesWith below.
	setOperand(index int, v *Value)
}

// Terminator ends a basic block.
type Terminator interface {
	Instruction
	GetSuccessors() []*BasicBlock
}

// registerUses links every operand slot of a freshly created instruction into
// the operands' use lists.
func registerUses(inst Instruction) {
	for i, op := range inst.GetOperands() {
		if op != nil {
			op.addUse(inst, i)
		}
	}
}

// setOperand rewrites one operand slot, keeping both use lists consistent.
func setOperand(inst Instruction, index int, v *Value) {
	old := inst.GetOperands()[index]
	if old == v {
		return
	}
	if old != nil {
		old.removeUse(inst, index)
	}
	inst.setOperand(index, v)
	if v != nil {
		v.addUse(inst, index)
	}
}

// ReplaceAllUsesWith rewires every consumer of old to reference new instead.
// The rewrite is atomic from the caller's perspective: afterwards old has no
// uses.
func ReplaceAllUsesWith(old, new *Value) {
	if old == new {
		return
	}
	uses := old.uses
	old.uses = nil
	for _, u := range uses {
		u.User.setOperand(u.Index, new)
		new.uses = append(new.uses, u)
	}
}

// dropOperandUses unlinks every operand slot of an instruction about to be
// deleted.
func dropOperandUses(inst Instruction) {
	for i, op := range inst.GetOperands() {
		if op != nil {
			op.removeUse(inst, i)
		}
	}
}

// EraseInstruction removes a non-terminator instruction from its block. The
// instruction's result must have no remaining uses.
func EraseInstruction(inst Instruction) {
	block := inst.GetBlock()
	dropOperandUses(inst)
	for i, in := range block.Instructions {
		if in == inst {
			block.Instructions = append(block.Instructions[:i], block.Instructions[i+1:]...)
			return
		}
	}
}

// Binary arithmetic opcodes.
type BinaryOp string

const (
	OpAdd BinaryOp = "add"
	OpSub BinaryOp = "sub"
	OpMul BinaryOp = "mul"
)

// Comparison predicates, signed.
type Predicate string

const (
	PredEQ  Predicate = "eq"
	PredNE  Predicate = "ne"
	PredSLT Predicate = "slt"
	PredSLE Predicate = "sle"
	PredSGT Predicate = "sgt"
	PredSGE Predicate = "sge"
)

// Core instructions

// AllocaInstruction reserves an i32 stack cell; its result is the cell's
// address. Appears only in the entry block.
type AllocaInstruction struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	VarID  int // -1 for the return slot
	Align  int
}

// LoadInstruction reads the cell pointed to by Address.
type LoadInstruction struct {
	ID      int
	Result  *Value
	Block   *BasicBlock
	Address *Value
}

// StoreInstruction writes Value into the cell pointed to by Address.
type StoreInstruction struct {
	ID      int
	Block   *BasicBlock
	Value   *Value
	Address *Value
}

// BinaryInstruction is i32 two's-complement arithmetic.
type BinaryInstruction struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	Op     BinaryOp
	Left   *Value
	Right  *Value
}

// CompareInstruction is a signed integer comparison producing i1.
type CompareInstruction struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	Pred   Predicate
	Left   *Value
	Right  *Value
}

// CallInstruction calls one of the externs. Result is nil for print.
type CallInstruction struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	Callee string
	Args   []*Value
}

// Terminators

// JumpTerminator is an unconditional branch.
type JumpTerminator struct {
	ID     int
	Block  *BasicBlock
	Target *BasicBlock
}

// BranchTerminator is a conditional branch on an i1 value.
type BranchTerminator struct {
	ID         int
	Block      *BasicBlock
	Condition  *Value
	TrueBlock  *BasicBlock
	FalseBlock *BasicBlock
}

// ReturnTerminator returns an i32 value from the function.
type ReturnTerminator struct {
	ID    int
	Block *BasicBlock
	Value *Value
}

// Interface implementations

func (a *AllocaInstruction) GetID() int                { return a.ID }
func (a *AllocaInstruction) GetResult() *Value         { return a.Result }
func (a *AllocaInstruction) GetOperands() []*Value     { return nil }
func (a *AllocaInstruction) GetBlock() *BasicBlock     { return a.Block }
func (a *AllocaInstruction) IsTerminator() bool        { return false }
func (a *AllocaInstruction) setOperand(int, *Value)    {}

func (l *LoadInstruction) GetID() int            { return l.ID }
func (l *LoadInstruction) GetResult() *Value     { return l.Result }
func (l *LoadInstruction) GetOperands() []*Value { return []*Value{l.Address} }
func (l *LoadInstruction) GetBlock() *BasicBlock { return l.Block }
func (l *LoadInstruction) IsTerminator() bool    { return false }
func (l *LoadInstruction) setOperand(index int, v *Value) {
	if index == 0 {
		l.Address = v
	}
}

func (s *StoreInstruction) GetID() int            { return s.ID }
func (s *StoreInstruction) GetResult() *Value     { return nil }
func (s *StoreInstruction) GetOperands() []*Value { return []*Value{s.Value, s.Address} }
func (s *StoreInstruction) GetBlock() *BasicBlock { return s.Block }
func (s *StoreInstruction) IsTerminator() bool    { return false }
func (s *StoreInstruction) setOperand(index int, v *Value) {
	switch index {
	case 0:
		s.Value = v
	case 1:
		s.Address = v
	}
}

func (b *BinaryInstruction) GetID() int            { return b.ID }
func (b *BinaryInstruction) GetResult() *Value     { return b.Result }
func (b *BinaryInstruction) GetOperands() []*Value { return []*Value{b.Left, b.Right} }
func (b *BinaryInstruction) GetBlock() *BasicBlock { return b.Block }
func (b *BinaryInstruction) IsTerminator() bool    { return false }
func (b *BinaryInstruction) setOperand(index int, v *Value) {
	switch index {
	case 0:
		b.Left = v
	case 1:
		b.Right = v
	}
}

func (c *CompareInstruction) GetID() int            { return c.ID }
func (c *CompareInstruction) GetResult() *Value     { return c.Result }
func (c *CompareInstruction) GetOperands() []*Value { return []*Value{c.Left, c.Right} }
func (c *CompareInstruction) GetBlock() *BasicBlock { return c.Block }
func (c *CompareInstruction) IsTerminator() bool    { return false }
func (c *CompareInstruction) setOperand(index int, v *Value) {
	switch index {
	case 0:
		c.Left = v
	case 1:
		c.Right = v
	}
}

func (c *CallInstruction) GetID() int            { return c.ID }
func (c *CallInstruction) GetResult() *Value     { return c.Result }
func (c *CallInstruction) GetOperands() []*Value { return c.Args }
func (c *CallInstruction) GetBlock() *BasicBlock { return c.Block }
func (c *CallInstruction) IsTerminator() bool    { return false }
func (c *CallInstruction) setOperand(index int, v *Value) {
	if index >= 0 && index < len(c.Args) {
		c.Args[index] = v
	}
}

func (j *JumpTerminator) GetID() int                   { return j.ID }
func (j *JumpTerminator) GetResult() *Value            { return nil }
func (j *JumpTerminator) GetOperands() []*Value        { return nil }
func (j *JumpTerminator) GetBlock() *BasicBlock        { return j.Block }
func (j *JumpTerminator) IsTerminator() bool           { return true }
func (j *JumpTerminator) setOperand(int, *Value)       {}
func (j *JumpTerminator) GetSuccessors() []*BasicBlock { return []*BasicBlock{j.Target} }

func (b *BranchTerminator) GetID() int            { return b.ID }
func (b *BranchTerminator) GetResult() *Value     { return nil }
func (b *BranchTerminator) GetOperands() []*Value { return []*Value{b.Condition} }
func (b *BranchTerminator) GetBlock() *BasicBlock { return b.Block }
func (b *BranchTerminator) IsTerminator() bool    { return true }
func (b *BranchTerminator) setOperand(index int, v *Value) {
	if index == 0 {
		b.Condition = v
	}
}
func (b *BranchTerminator) GetSuccessors() []*BasicBlock {
	return []*BasicBlock{b.TrueBlock, b.FalseBlock}
}

func (r *ReturnTerminator) GetID() int        { return r.ID }
func (r *ReturnTerminator) GetResult() *Value { return nil }
func (r *ReturnTerminator) GetOperands() []*Value {
	if r.Value != nil {
		return []*Value{r.Value}
	}
	return nil
}
func (r *ReturnTerminator) GetBlock() *BasicBlock { return r.Block }
func (r *ReturnTerminator) IsTerminator() bool    { return true }
func (r *ReturnTerminator) setOperand(index int, v *Value) {
	if index == 0 {
		r.Value = v
	}
}
func (r *ReturnTerminator) GetSuccessors() []*BasicBlock { return nil }

// Types

type Type interface {
	String() string
}

type IntType struct {
	Bits int
}

type PointerType struct {
	Elem Type
}

type VoidType struct{}

func (i *IntType) String() string     { return fmt.Sprintf("i%d", i.Bits) }
func (p *PointerType) String() string { return p.Elem.String() + "*" }
func (v *VoidType) String() string    { return "void" }

// Shared type singletons.
var (
	I32    = &IntType{Bits: 32}
	I1     = &IntType{Bits: 1}
	I32Ptr = &PointerType{Elem: I32}
	Void   = &VoidType{}
)
