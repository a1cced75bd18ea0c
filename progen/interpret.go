package progen

import (
	"fmt"

	"github.com/colorfulnotion/avacore/alu"
	"github.com/colorfulnotion/avacore/avaerrors"
	"github.com/colorfulnotion/avacore/isa"
)

// Result is the architectural state after Interpret.
type Result struct {
	Output  []byte
	Stack   []isa.Item
	Slots   [isa.SLOT_N]isa.Item
	PC      int
	Illegal bool
	Pushes  int
	Pops    int
}

// Interpret executes code one instruction at a time with an unbounded
// stack. It has no notion of cycles and serves as an oracle for the engine.
func Interpret(code []byte) (*Result, error) {
	res := &Result{Stack: []isa.Item{}}
	pop := func() (isa.Item, error) {
		if len(res.Stack) == 0 {
			return 0, fmt.Errorf("pc=%d: pop of empty stack", res.PC)
		}
		v := res.Stack[len(res.Stack)-1]
		res.Stack = res.Stack[:len(res.Stack)-1]
		res.Pops++
		return v, nil
	}
	push := func(v isa.Item) {
		res.Stack = append(res.Stack, v)
		res.Pushes++
	}
	operand := func(i int) (byte, error) {
		if res.PC+i >= len(code) {
			return 0, fmt.Errorf("pc=%d: %w", res.PC, avaerrors.ErrFTruncated)
		}
		return code[res.PC+i], nil
	}

	for res.PC < len(code) {
		opcode := code[res.PC]
		n, ok := isa.InstructionLength(opcode)
		if !ok {
			res.Illegal = true
			return res, nil
		}
		switch opcode {
		case isa.PUSH_IMM_INTEGER:
			lo, err := operand(1)
			if err != nil {
				return res, err
			}
			hi, err := operand(2)
			if err != nil {
				return res, err
			}
			push(isa.Item(uint32(hi)<<8 | uint32(lo)))
		case isa.PUSH_VARIABLE, isa.LET:
			s, err := operand(1)
			if err != nil {
				return res, err
			}
			if int(s) >= isa.SLOT_N {
				return res, fmt.Errorf("pc=%d slot %d: %w", res.PC, s, avaerrors.ErrFSlotRange)
			}
			if opcode == isa.PUSH_VARIABLE {
				push(res.Slots[s])
				break
			}
			v, err := pop()
			if err != nil {
				return res, err
			}
			res.Slots[s] = v
		case isa.BUILTIN_PRINT:
			v, err := pop()
			if err != nil {
				return res, err
			}
			res.Output = append(res.Output, byte(0x30+uint32(v)))
		case isa.BUILTIN_PRINT_LINEFEED:
			res.Output = append(res.Output, '\n')
		case isa.OPERATOR_ADD_INTEGER, isa.OPERATOR_MULTIPLY_INTEGER:
			rhs, err := pop()
			if err != nil {
				return res, err
			}
			lhs, err := pop()
			if err != nil {
				return res, err
			}
			op, typ, _ := isa.ArithmeticOf(opcode)
			v, err := alu.Evaluate(op, typ, alu.Operand(lhs), alu.Operand(rhs))
			if err != nil {
				return res, err
			}
			push(v)
		}
		res.PC += n
	}
	return res, nil
}
