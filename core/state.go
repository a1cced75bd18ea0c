package core

import (
	"fmt"

	"github.com/colorfulnotion/avacore/isa"
)

// State is the engine's control state. Multi-cycle instructions have one
// state per sub-step.
type State uint8

const (
	StateInit State = iota
	StateDecode
	StatePushImm1
	StatePushImm2
	StatePushVar1
	StatePushVar2
	StatePushVar3
	StateLet
	StatePrint
	StateAlu1
	StateAlu2
	StateAlu3
	StateAlu4
	StateDone

	numStates
)

var stateNames = [numStates]string{
	StateInit:     "Init",
	StateDecode:   "Decode",
	StatePushImm1: "PushImmInteger1",
	StatePushImm2: "PushImmInteger2",
	StatePushVar1: "PushVariable1",
	StatePushVar2: "PushVariable2",
	StatePushVar3: "PushVariable3",
	StateLet:      "Let",
	StatePrint:    "Print",
	StateAlu1:     "Alu1",
	StateAlu2:     "Alu2",
	StateAlu3:     "Alu3",
	StateAlu4:     "Alu4",
	StateDone:     "Done",
}

func (s State) String() string {
	if s < numStates {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// HaltReason says why the engine reached Done.
type HaltReason uint8

const (
	HaltNone HaltReason = iota
	HaltEndOfProgram
	HaltIllegalOpcode
	HaltFault
)

func (h HaltReason) String() string {
	switch h {
	case HaltNone:
		return "running"
	case HaltEndOfProgram:
		return "end-of-program"
	case HaltIllegalOpcode:
		return "illegal-opcode"
	case HaltFault:
		return "fault"
	}
	return fmt.Sprintf("HaltReason(%d)", uint8(h))
}

// slotUnset marks the LET destination as not yet captured.
const slotUnset = uint8(isa.SLOT_N)

// instrContext holds the temporaries of the instruction being executed.
// Decode replaces it wholesale.
type instrContext struct {
	opcode byte
	addr   uint8
	op     isa.Op
	typ    isa.Type
	opa    isa.Item
	opb    isa.Item
	immLo  byte
	dslot  uint8
}

type registers struct {
	state State
	pc    int
	ctx   instrContext
}

// Registers is a read-only copy of the engine registers, taken with
// Engine.Registers.
type Registers struct {
	State  State
	PC     int
	Opcode byte
	Op     isa.Op
	Type   isa.Type
	OpA    isa.Item
	OpB    isa.Item
	DSlot  uint8 // isa.SLOT_N until captured
}

// Stats counts what the engine did since construction.
type Stats struct {
	Cycles         uint64
	Instructions   uint64
	Stalls         map[State]uint64
	BusStalls      uint64
	Pushes         uint64
	Pops           uint64
	Depth          int
	MaxDepth       int
	OutputBytes    uint64
	PrintOverflows uint64
}

// TotalStalls sums the per-state stall counters.
func (s Stats) TotalStalls() uint64 {
	var n uint64
	for _, v := range s.Stalls {
		n += v
	}
	return n
}
