// Package isa holds the instruction set of the stack core: opcode bytes,
// their operand lengths and mnemonics, the arithmetic operation selector,
// the operand type tag, and the storage geometry shared by every component.
package isa

import "fmt"

// Geometry of the core.
const (
	STACK_N = 4 // operand stack depth
	SLOT_N  = 4 // slot store entries
)

// Item is the 32-bit value moved between the program, the operand stack
// and the slot store.
type Item uint32

// Opcodes. Any byte not listed here halts the engine.
const (
	PUSH_IMM_INTEGER          = 0x01
	PUSH_VARIABLE             = 0x0a
	LET                       = 0x20
	BUILTIN_PRINT             = 0x80
	BUILTIN_PRINT_LINEFEED    = 0x82
	OPERATOR_ADD_INTEGER      = 0xa0
	OPERATOR_MULTIPLY_INTEGER = 0xa5
)

var opcodeNames = map[byte]string{
	PUSH_IMM_INTEGER:          "PUSH_IMM_INTEGER",
	PUSH_VARIABLE:             "PUSH_VARIABLE",
	LET:                       "LET",
	BUILTIN_PRINT:             "BUILTIN_PRINT",
	BUILTIN_PRINT_LINEFEED:    "BUILTIN_PRINT_LINEFEED",
	OPERATOR_ADD_INTEGER:      "OPERATOR_ADD_INTEGER",
	OPERATOR_MULTIPLY_INTEGER: "OPERATOR_MULTIPLY_INTEGER",
}

var operandLengths = map[byte]int{
	PUSH_IMM_INTEGER:          2,
	PUSH_VARIABLE:             1,
	LET:                       1,
	BUILTIN_PRINT:             0,
	BUILTIN_PRINT_LINEFEED:    0,
	OPERATOR_ADD_INTEGER:      0,
	OPERATOR_MULTIPLY_INTEGER: 0,
}

// OpcodeToString returns the mnemonic of an opcode, or "ILLEGAL".
func OpcodeToString(opcode byte) string {
	name, exists := opcodeNames[opcode]
	if !exists {
		return "ILLEGAL"
	}
	return name
}

// IsValid reports whether the opcode is in the dispatch table.
func IsValid(opcode byte) bool {
	_, ok := opcodeNames[opcode]
	return ok
}

// OperandLength returns the number of operand bytes following the opcode.
func OperandLength(opcode byte) (int, bool) {
	n, ok := operandLengths[opcode]
	return n, ok
}

// InstructionLength returns the full encoded length (opcode + operands).
func InstructionLength(opcode byte) (int, bool) {
	n, ok := operandLengths[opcode]
	if !ok {
		return 0, false
	}
	return 1 + n, true
}

// StackEffect returns how many items an instruction pops and pushes.
func StackEffect(opcode byte) (pops, pushes int) {
	switch opcode {
	case PUSH_IMM_INTEGER, PUSH_VARIABLE:
		return 0, 1
	case LET, BUILTIN_PRINT:
		return 1, 0
	case OPERATOR_ADD_INTEGER, OPERATOR_MULTIPLY_INTEGER:
		return 2, 1
	}
	return 0, 0
}

// Opcodes returns every valid opcode in ascending byte order.
func Opcodes() []byte {
	return []byte{
		PUSH_IMM_INTEGER, PUSH_VARIABLE, LET, BUILTIN_PRINT,
		BUILTIN_PRINT_LINEFEED, OPERATOR_ADD_INTEGER, OPERATOR_MULTIPLY_INTEGER,
	}
}

// Op selects the arithmetic operation.
type Op uint8

const (
	ADD      Op = 0
	MULTIPLY Op = 1
	FDIVIDE  Op = 2
	IDIVIDE  Op = 3
	SUBTRACT Op = 4
	NEGATE   Op = 5
)

func (o Op) String() string {
	switch o {
	case ADD:
		return "ADD"
	case MULTIPLY:
		return "MULTIPLY"
	case FDIVIDE:
		return "FDIVIDE"
	case IDIVIDE:
		return "IDIVIDE"
	case SUBTRACT:
		return "SUBTRACT"
	case NEGATE:
		return "NEGATE"
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// Type is the 3-bit operand type tag. Only INTEGER has executable semantics.
type Type uint8

const (
	INTEGER Type = 0
	LONG    Type = 1
	SINGLE  Type = 2
	DOUBLE  Type = 3
	STRING  Type = 4
)

func (t Type) String() string {
	switch t {
	case INTEGER:
		return "INTEGER"
	case LONG:
		return "LONG"
	case SINGLE:
		return "SINGLE"
	case DOUBLE:
		return "DOUBLE"
	case STRING:
		return "STRING"
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// ArithmeticOf returns the operation and type an arithmetic opcode selects.
func ArithmeticOf(opcode byte) (Op, Type, bool) {
	switch opcode {
	case OPERATOR_ADD_INTEGER:
		return ADD, INTEGER, true
	case OPERATOR_MULTIPLY_INTEGER:
		return MULTIPLY, INTEGER, true
	}
	return 0, 0, false
}
