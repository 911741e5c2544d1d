package ir

import (
	"fmt"
	"strings"
)

// Printer renders a module in a textual LLVM-like form. This rendering is
// used by tests; the .ll file handed to downstream tools is produced by
// internal/emit.
type Printer struct {
	output strings.Builder
	names  map[*Value]string
	nextID int
}

// NewPrinter creates a new IR printer
func NewPrinter() *Printer {
	return &Printer{names: make(map[*Value]string)}
}

// Print returns the string representation of an IR module
func Print(m *Module) string {
	p := NewPrinter()
	p.printModule(m)
	return p.output.String()
}

func (p *Printer) printModule(m *Module) {
	p.write("target triple = \"%s\"\n\n", m.TargetTriple)
	for _, ext := range m.Externs {
		params := make([]string, len(ext.Params))
		for i, t := range ext.Params {
			params[i] = t.String()
		}
		p.write("declare %s @%s(%s)\n", ext.Returns, ext.Name, strings.Join(params, ", "))
	}
	if m.Function != nil {
		p.write("\n")
		p.printFunction(m.Function)
	}
}

func (p *Printer) printFunction(fn *Function) {
	param := ""
	if fn.Param != nil {
		param = fmt.Sprintf("%s %s", fn.Param.Typ, p.name(fn.Param))
	}
	p.write("define i32 @%s(%s) {\n", fn.Name, param)
	for i, block := range fn.Blocks {
		if i > 0 {
			p.write("\n")
		}
		p.write("%s:\n", block.Name)
		for _, inst := range block.Instructions {
			p.write("  %s\n", p.formatInstruction(inst))
		}
		if block.Terminator != nil {
			p.write("  %s\n", p.formatInstruction(block.Terminator))
		}
	}
	p.write("}\n")
}

func (p *Printer) formatInstruction(inst Instruction) string {
	switch i := inst.(type) {
	case *AllocaInstruction:
		return fmt.Sprintf("%s = alloca i32, align %d", p.name(i.Result), i.Align)
	case *LoadInstruction:
		return fmt.Sprintf("%s = load i32, i32* %s", p.name(i.Result), p.name(i.Address))
	case *StoreInstruction:
		return fmt.Sprintf("store i32 %s, i32* %s", p.name(i.Value), p.name(i.Address))
	case *BinaryInstruction:
		return fmt.Sprintf("%s = %s i32 %s, %s", p.name(i.Result), i.Op, p.name(i.Left), p.name(i.Right))
	case *CompareInstruction:
		return fmt.Sprintf("%s = icmp %s i32 %s, %s", p.name(i.Result), i.Pred, p.name(i.Left), p.name(i.Right))
	case *CallInstruction:
		if i.Callee == "read" {
			return fmt.Sprintf("%s = call i32 @read()", p.name(i.Result))
		}
		return fmt.Sprintf("call void @print(i32 %s)", p.name(i.Args[0]))
	case *JumpTerminator:
		return fmt.Sprintf("br label %%%s", i.Target.Name)
	case *BranchTerminator:
		return fmt.Sprintf("br i1 %s, label %%%s, label %%%s",
			p.name(i.Condition), i.TrueBlock.Name, i.FalseBlock.Name)
	case *ReturnTerminator:
		return fmt.Sprintf("ret i32 %s", p.name(i.Value))
	}
	return fmt.Sprintf("; unknown instruction %d", inst.GetID())
}

// name renders a value reference: constants as literals, named values by
// name, anonymous values by a sequential number.
func (p *Printer) name(v *Value) string {
	if v == nil {
		return "<nil>"
	}
	if v.IsConst() {
		return fmt.Sprintf("%d", v.ConstValue())
	}
	if n, ok := p.names[v]; ok {
		return n
	}
	var n string
	if v.Name != "" {
		n = "%" + v.Name
	} else {
		n = fmt.Sprintf("%%t%d", p.nextID)
		p.nextID++
	}
	p.names[v] = n
	return n
}

func (p *Printer) write(format string, args ...interface{}) {
	p.output.WriteString(fmt.Sprintf(format, args...))
}
