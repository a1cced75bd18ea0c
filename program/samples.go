package program

import "github.com/colorfulnotion/avacore/isa"

// Hello stores 2 and 4 in slots 0 and 1, multiplies them back from the
// slots and prints the product followed by a newline: "8\n".
var Hello = []byte{
	// 00
	isa.PUSH_IMM_INTEGER, 0x02, 0x00,
	// 03
	isa.LET, 0x00,
	// 05
	isa.PUSH_IMM_INTEGER, 0x04, 0x00,
	// 08
	isa.LET, 0x01,
	// 0a
	isa.PUSH_VARIABLE, 0x00,
	// 0c
	isa.PUSH_VARIABLE, 0x01,
	// 0e
	isa.OPERATOR_MULTIPLY_INTEGER,
	// 0f
	isa.BUILTIN_PRINT,
	// 10
	isa.BUILTIN_PRINT_LINEFEED,
}

// Samples are the built-in images addressable by name from the command line.
var Samples = map[string][]byte{
	"hello":    Hello,
	"multiply": {0x01, 0x02, 0x00, 0x01, 0x04, 0x00, 0xa5, 0x80},
	"slot":     {0x01, 0x04, 0x00, 0x20, 0x00, 0x0a, 0x00, 0x80},
	"add":      {0x01, 0x03, 0x00, 0x01, 0x04, 0x00, 0xa0, 0x80, 0x82},
	"linefeed": {0x82},
	"illegal":  {0xff},
}
