package isa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstructionLength(t *testing.T) {
	cases := map[byte]int{
		PUSH_IMM_INTEGER:          3,
		PUSH_VARIABLE:             2,
		LET:                       2,
		BUILTIN_PRINT:             1,
		BUILTIN_PRINT_LINEFEED:    1,
		OPERATOR_ADD_INTEGER:      1,
		OPERATOR_MULTIPLY_INTEGER: 1,
	}
	for op, want := range cases {
		got, ok := InstructionLength(op)
		assert.True(t, ok, OpcodeToString(op))
		assert.Equal(t, want, got, OpcodeToString(op))
	}
	_, ok := InstructionLength(0xff)
	assert.False(t, ok)
}

func TestOpcodeTable(t *testing.T) {
	assert.Len(t, Opcodes(), 7)
	for _, op := range Opcodes() {
		assert.True(t, IsValid(op))
		assert.NotEqual(t, "ILLEGAL", OpcodeToString(op))
	}
	assert.Equal(t, "ILLEGAL", OpcodeToString(0x00))
	assert.False(t, IsValid(0xa1))
}

func TestStackEffect(t *testing.T) {
	cases := map[byte][2]int{
		PUSH_IMM_INTEGER:          {0, 1},
		PUSH_VARIABLE:             {0, 1},
		LET:                       {1, 0},
		BUILTIN_PRINT:             {1, 0},
		BUILTIN_PRINT_LINEFEED:    {0, 0},
		OPERATOR_ADD_INTEGER:      {2, 1},
		OPERATOR_MULTIPLY_INTEGER: {2, 1},
	}
	for op, want := range cases {
		pops, pushes := StackEffect(op)
		assert.Equal(t, want, [2]int{pops, pushes}, OpcodeToString(op))
	}
	pops, pushes := StackEffect(0xff)
	assert.Zero(t, pops+pushes)
}

func TestArithmeticOf(t *testing.T) {
	op, typ, ok := ArithmeticOf(OPERATOR_MULTIPLY_INTEGER)
	assert.True(t, ok)
	assert.Equal(t, MULTIPLY, op)
	assert.Equal(t, INTEGER, typ)

	_, _, ok = ArithmeticOf(LET)
	assert.False(t, ok)

	assert.Equal(t, "IDIVIDE", IDIVIDE.String())
	assert.Equal(t, "Op(9)", Op(9).String())
	assert.Equal(t, "STRING", STRING.String())
}
