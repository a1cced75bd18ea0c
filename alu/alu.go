// Package alu evaluates the arithmetic operations of the core.
package alu

import (
	"fmt"

	"github.com/colorfulnotion/avacore/avaerrors"
	"github.com/colorfulnotion/avacore/isa"
)

// Operand reinterprets the low 16 bits of an item as a signed integer.
func Operand(v isa.Item) int16 {
	return int16(uint16(v))
}

// Evaluate computes op over lhs and rhs and sign-extends the result to the
// item width. NEGATE is unary and only uses rhs.
func Evaluate(op isa.Op, typ isa.Type, lhs, rhs int16) (isa.Item, error) {
	if typ != isa.INTEGER {
		return 0, fmt.Errorf("%s on %s: %w", op, typ, avaerrors.ErrFTypeViolation)
	}
	l, r := int32(lhs), int32(rhs)
	var res int32
	switch op {
	case isa.ADD:
		res = l + r
	case isa.MULTIPLY:
		res = l * r
	case isa.SUBTRACT:
		res = l - r
	case isa.IDIVIDE:
		if r == 0 {
			return 0, fmt.Errorf("%d / 0: %w", l, avaerrors.ErrFDivideByZero)
		}
		res = l / r
	case isa.NEGATE:
		res = -r
	case isa.FDIVIDE:
		return 0, fmt.Errorf("%s: %w", op, avaerrors.ErrFUnimplementedOp)
	default:
		return 0, fmt.Errorf("%s: %w", op, avaerrors.ErrFUnknownOp)
	}
	return isa.Item(uint32(res)), nil
}
