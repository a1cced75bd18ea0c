package program

import (
	"fmt"
	"strings"

	"github.com/colorfulnotion/avacore/isa"
	"github.com/xlab/treeprint"
)

// Instruction is one decoded entry of a listing.
type Instruction struct {
	Addr      int
	Opcode    byte
	Mnemonic  string
	Operands  []byte
	Illegal   bool // opcode not in the dispatch table; the listing stops here
	Truncated bool // the image ends inside the operand bytes
}

func (in Instruction) Len() int {
	return 1 + len(in.Operands)
}

// Immediate returns the 16-bit little-endian immediate of PUSH_IMM_INTEGER,
// zero-extended to the item width.
func (in Instruction) Immediate() (isa.Item, bool) {
	if in.Opcode != isa.PUSH_IMM_INTEGER || len(in.Operands) != 2 {
		return 0, false
	}
	return isa.Item(in.Operands[1])<<8 | isa.Item(in.Operands[0]), true
}

func (in Instruction) String() string {
	switch {
	case in.Illegal:
		return fmt.Sprintf("%04x: %02x ILLEGAL", in.Addr, in.Opcode)
	case in.Truncated:
		return fmt.Sprintf("%04x: %s <truncated % x>", in.Addr, in.Mnemonic, in.Operands)
	}
	switch in.Opcode {
	case isa.PUSH_IMM_INTEGER:
		v, _ := in.Immediate()
		return fmt.Sprintf("%04x: %s %d", in.Addr, in.Mnemonic, v)
	case isa.PUSH_VARIABLE, isa.LET:
		return fmt.Sprintf("%04x: %s s%d", in.Addr, in.Mnemonic, in.Operands[0])
	}
	return fmt.Sprintf("%04x: %s", in.Addr, in.Mnemonic)
}

// Disassemble decodes the whole image. Decoding stops at the first illegal
// opcode, which is the point where the engine halts.
func (p *Program) Disassemble() []Instruction {
	var out []Instruction
	for pc := 0; pc < len(p.code); {
		op := p.code[pc]
		n, ok := isa.OperandLength(op)
		if !ok {
			out = append(out, Instruction{Addr: pc, Opcode: op, Mnemonic: isa.OpcodeToString(op), Illegal: true})
			break
		}
		end := pc + 1 + n
		in := Instruction{Addr: pc, Opcode: op, Mnemonic: isa.OpcodeToString(op)}
		if end > len(p.code) {
			in.Operands = append([]byte{}, p.code[pc+1:]...)
			in.Truncated = true
			out = append(out, in)
			break
		}
		in.Operands = append([]byte{}, p.code[pc+1:end]...)
		out = append(out, in)
		pc = end
	}
	return out
}

// Listing renders the disassembly one instruction per line.
func (p *Program) Listing() string {
	var sb strings.Builder
	for _, in := range p.Disassemble() {
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Tree renders the disassembly grouped by statement: every run of
// instructions ending in a stack-draining instruction (LET, PRINT,
// LINEFEED) forms one branch.
func (p *Program) Tree() treeprint.Tree {
	tree := treeprint.New()
	tree.SetValue(fmt.Sprintf("program %s (%d bytes)", p.HashHex()[:16], p.Len()))

	var branch treeprint.Tree
	for _, in := range p.Disassemble() {
		if branch == nil {
			branch = tree.AddBranch(fmt.Sprintf("%04x", in.Addr))
		}
		branch.AddNode(in.String())
		switch in.Opcode {
		case isa.LET, isa.BUILTIN_PRINT, isa.BUILTIN_PRINT_LINEFEED:
			branch = nil
		}
	}
	return tree
}
