// Package core is the cycle-stepped execution engine. Every call to Step is
// one clock cycle: the engine presents the requests registered on the
// previous cycle to the stack and output channel, computes the next
// registers from the current ones, and ticks the slot store.
package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/colorfulnotion/avacore/alu"
	"github.com/colorfulnotion/avacore/avaerrors"
	"github.com/colorfulnotion/avacore/isa"
	"github.com/colorfulnotion/avacore/log"
	"github.com/colorfulnotion/avacore/program"
	"github.com/colorfulnotion/avacore/slots"
	"github.com/colorfulnotion/avacore/trace"
)

// Stack is the operand stack handshake. Peek reports whether a top element
// is valid, Pop consumes it and Push is accepted only while ready.
type Stack interface {
	Peek() (isa.Item, bool)
	Pop() (isa.Item, bool)
	Push(v isa.Item) bool
}

// Output accepts one byte per cycle while ready.
type Output interface {
	Write(b byte) bool
}

// Ticker is implemented by collaborators that keep their own clock.
type Ticker interface {
	Tick()
}

// bus holds requests registered in the previous cycle.
type bus struct {
	pop     bool
	push    bool
	pushVal isa.Item
	out     bool
	outVal  byte
}

// Engine is the cycle-stepped bytecode core. It owns its slot store and
// drives the operand stack and output channel through registered requests.
type Engine struct {
	prog  *program.Program
	stack Stack
	out   Output
	slots *slots.Store

	regs  registers
	bus   bus
	cycle uint64

	halt    HaltReason
	fault   error
	illegal byte

	strictPrint bool
	sink        trace.Sink
	last        trace.Step
	stats       Stats
}

// New returns an engine in the Init state. The program image is never
// modified.
func New(prog *program.Program, stack Stack, out Output) *Engine {
	return &Engine{
		prog:  prog,
		stack: stack,
		out:   out,
		slots: slots.New(),
		regs:  registers{state: StateInit, ctx: instrContext{dslot: slotUnset}},
		stats: Stats{Stalls: make(map[State]uint64)},
	}
}

// SetSink routes every cycle's trace record to sink. nil disables tracing.
func (e *Engine) SetSink(sink trace.Sink) {
	e.sink = sink
}

// SetStrictPrint makes PRINT of a value outside 0..9 a fault.
func (e *Engine) SetStrictPrint(strict bool) {
	e.strictPrint = strict
}

// Program returns the image the engine executes.
func (e *Engine) Program() *program.Program { return e.prog }

// Slots returns the engine's slot store.
func (e *Engine) Slots() *slots.Store { return e.slots }

// State is the control state the next Step executes.
func (e *Engine) State() State { return e.regs.state }

// PC is the address of the byte presented to the next Step.
func (e *Engine) PC() int { return e.regs.pc }

// Cycle counts the steps taken so far.
func (e *Engine) Cycle() uint64 { return e.cycle }

// Halted is the halt signal.
func (e *Engine) Halted() bool { return e.regs.state == StateDone }

// Fault is the fault flag: non-nil only after a fatal halt.
func (e *Engine) Fault() error { return e.fault }

// HaltReason is HaltNone while running.
func (e *Engine) HaltReason() HaltReason { return e.halt }

// IllegalOpcode returns the byte that stopped the engine, if any.
func (e *Engine) IllegalOpcode() (byte, bool) {
	return e.illegal, e.halt == HaltIllegalOpcode
}

// LastStep returns the record of the most recent cycle.
func (e *Engine) LastStep() trace.Step { return e.last }

// Stats returns a copy of the counters.
func (e *Engine) Stats() Stats {
	s := e.stats
	s.Stalls = make(map[State]uint64, len(e.stats.Stalls))
	for k, v := range e.stats.Stalls {
		s.Stalls[k] = v
	}
	return s
}

// Registers returns a copy of the current registers.
func (e *Engine) Registers() Registers {
	c := e.regs.ctx
	return Registers{
		State:  e.regs.state,
		PC:     e.regs.pc,
		Opcode: c.opcode,
		Op:     c.op,
		Type:   c.typ,
		OpA:    c.opa,
		OpB:    c.opb,
		DSlot:  c.dslot,
	}
}

// Run steps until the engine halts, the context is cancelled or maxCycles
// cycles have run in this call (0 means no budget). It returns the fault of
// a fatal halt and nil for a clean or illegal-opcode halt.
func (e *Engine) Run(ctx context.Context, maxCycles uint64) error {
	start := e.cycle
	for !e.Halted() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if maxCycles > 0 && e.cycle-start >= maxCycles {
			return fmt.Errorf("%d cycles, pc=%d state=%s: %w", maxCycles, e.regs.pc, e.regs.state, avaerrors.ErrHCycleLimit)
		}
		e.Step()
	}
	return e.fault
}

// Step executes one cycle. It does nothing once the engine has halted.
func (e *Engine) Step() {
	if e.Halted() {
		return
	}
	cur := e.regs
	step := trace.Step{
		Cycle: e.cycle,
		State: cur.state.String(),
		PC:    cur.pc,
	}
	if b, ok := e.prog.Byte(cur.pc); ok {
		step.Fetch = &b
	}

	if e.drive(&step) {
		e.stats.BusStalls++
		step.Stall = true
	} else if !e.Halted() {
		e.regs = e.execute(cur, &step)
	}

	e.slots.Tick()
	if t, ok := e.stack.(Ticker); ok {
		t.Tick()
	}
	if t, ok := e.out.(Ticker); ok {
		t.Tick()
	}

	e.cycle++
	e.stats.Cycles++
	step.NextState = e.regs.state.String()
	step.Depth = e.stats.Depth
	if e.Halted() {
		step.Halt = e.halt.String()
		if e.fault != nil {
			step.Fault = e.fault.Error()
		}
	}
	e.emit(&step)
}

// drive presents last cycle's requests. It reports a bus stall when a
// push or output byte was refused; the request stays registered.
func (e *Engine) drive(step *trace.Step) bool {
	if e.bus.pop {
		if _, ok := e.stack.Pop(); !ok {
			e.bus = bus{}
			e.setFault(step, fmt.Errorf("pc=%d: %w", e.regs.pc, avaerrors.ErrFPopRefused))
			return false
		}
		e.bus.pop = false
		e.stats.Pops++
		e.stats.Depth--
	}
	if e.bus.push {
		if !e.stack.Push(e.bus.pushVal) {
			step.Action = "bus stall: push refused"
			return true
		}
		e.bus.push = false
		e.stats.Pushes++
		e.stats.Depth++
		if e.stats.Depth > e.stats.MaxDepth {
			e.stats.MaxDepth = e.stats.Depth
		}
	}
	if e.bus.out {
		if !e.out.Write(e.bus.outVal) {
			step.Action = "bus stall: output refused"
			return true
		}
		b := e.bus.outVal
		step.Output = &b
		e.bus.out = false
		e.stats.OutputBytes++
	}
	return false
}

func (e *Engine) execute(cur registers, step *trace.Step) registers {
	next := cur
	stall := func(action string) {
		step.Action = action
		step.Stall = true
		e.stats.Stalls[cur.state]++
	}
	fail := func(err error) {
		next = e.haltWith(next, HaltFault)
		e.setFault(step, fmt.Errorf("pc=%d cycle=%d %s: %w", cur.pc, e.cycle, cur.state, err))
	}

	switch cur.state {
	case StateInit:
		step.Action = "reset"
		if e.prog.Len() == 0 {
			next = e.haltWith(next, HaltEndOfProgram)
		} else {
			next.state = StateDecode
		}

	case StateDecode:
		opcode, ok := e.prog.Byte(cur.pc)
		if !ok {
			step.Action = "end of program"
			next = e.haltWith(next, HaltEndOfProgram)
			break
		}
		next.ctx = instrContext{opcode: opcode, dslot: slotUnset}
		if !isa.IsValid(opcode) {
			e.illegal = opcode
			step.Action = fmt.Sprintf("illegal opcode %02x", opcode)
			log.Debug(log.CoreMonitoring, "illegal opcode", "pc", cur.pc, "opcode", fmt.Sprintf("%02x", opcode))
			next = e.haltWith(next, HaltIllegalOpcode)
			break
		}
		e.stats.Instructions++
		step.Action = isa.OpcodeToString(opcode)
		switch opcode {
		case isa.PUSH_IMM_INTEGER:
			next.pc++
			next.state = StatePushImm1
		case isa.PUSH_VARIABLE:
			next.pc++
			next.state = StatePushVar1
		case isa.LET:
			next.pc++
			next.state = StateLet
		case isa.BUILTIN_PRINT:
			next.state = StatePrint
		case isa.BUILTIN_PRINT_LINEFEED:
			next.pc++
			e.bus.out, e.bus.outVal = true, '\n'
		case isa.OPERATOR_ADD_INTEGER, isa.OPERATOR_MULTIPLY_INTEGER:
			next.ctx.op, next.ctx.typ, _ = isa.ArithmeticOf(opcode)
			next.state = StateAlu1
		}

	case StatePushImm1:
		lo, ok := e.prog.Byte(cur.pc)
		if !ok {
			fail(avaerrors.ErrFTruncated)
			break
		}
		next.ctx.immLo = lo
		next.pc++
		next.state = StatePushImm2
		step.Action = fmt.Sprintf("imm lo=%02x", lo)

	case StatePushImm2:
		hi, ok := e.prog.Byte(cur.pc)
		if !ok {
			fail(avaerrors.ErrFTruncated)
			break
		}
		v := isa.Item(uint32(hi)<<8 | uint32(cur.ctx.immLo))
		e.bus.push, e.bus.pushVal = true, v
		next.pc++
		next.state = StateDecode
		step.Action = fmt.Sprintf("push %#x", uint32(v))

	case StatePushVar1:
		addr, ok := e.prog.Byte(cur.pc)
		if !ok {
			fail(avaerrors.ErrFTruncated)
			break
		}
		if err := e.slots.Read(addr); err != nil {
			fail(err)
			break
		}
		next.ctx.addr = addr
		next.state = StatePushVar2
		step.Action = fmt.Sprintf("read s%d", addr)

	case StatePushVar2:
		stall("wait slot read")
		next.state = StatePushVar3

	case StatePushVar3:
		v := e.slots.Data()
		e.bus.push, e.bus.pushVal = true, v
		next.pc++
		next.state = StateDecode
		step.Action = fmt.Sprintf("push s%d=%#x", cur.ctx.addr, uint32(v))

	case StateLet:
		dslot := cur.ctx.dslot
		if dslot == slotUnset {
			addr, ok := e.prog.Byte(cur.pc)
			if !ok {
				fail(avaerrors.ErrFTruncated)
				break
			}
			if err := slots.CheckAddr(addr); err != nil {
				fail(err)
				break
			}
			dslot = addr
			next.ctx.dslot = addr
		}
		top, ok := e.stack.Peek()
		if !ok {
			stall("stall: stack empty")
			break
		}
		if err := e.slots.Write(dslot, top, true); err != nil {
			fail(err)
			break
		}
		e.bus.pop = true
		next.pc++
		next.state = StateDecode
		step.Action = fmt.Sprintf("let s%d <- %#x", dslot, uint32(top))

	case StatePrint:
		top, ok := e.stack.Peek()
		if !ok {
			stall("stall: stack empty")
			break
		}
		v := uint32(top)
		if v > 9 {
			if e.strictPrint {
				fail(fmt.Errorf("value %d: %w", int32(v), avaerrors.ErrFPrintRange))
				break
			}
			e.stats.PrintOverflows++
			log.Warn(log.CoreMonitoring, "print value has no single-digit form", "pc", cur.pc, "value", int32(v))
		}
		b := byte(0x30 + v)
		e.bus.pop = true
		e.bus.out, e.bus.outVal = true, b
		next.pc++
		next.state = StateDecode
		step.Action = "print " + strconv.QuoteRune(rune(b))

	case StateAlu1:
		top, ok := e.stack.Peek()
		if !ok {
			stall("stall: stack empty")
			break
		}
		next.ctx.opb = top
		e.bus.pop = true
		next.state = StateAlu2
		step.Action = fmt.Sprintf("opb=%#x", uint32(top))

	case StateAlu2:
		stall("alu latency")
		next.state = StateAlu3

	case StateAlu3:
		top, ok := e.stack.Peek()
		if !ok {
			stall("stall: stack empty")
			break
		}
		next.ctx.opa = top
		e.bus.pop = true
		next.state = StateAlu4
		step.Action = fmt.Sprintf("opa=%#x", uint32(top))

	case StateAlu4:
		lhs, rhs := alu.Operand(cur.ctx.opa), alu.Operand(cur.ctx.opb)
		res, err := alu.Evaluate(cur.ctx.op, cur.ctx.typ, lhs, rhs)
		if err != nil {
			fail(err)
			break
		}
		e.bus.push, e.bus.pushVal = true, res
		next.pc++
		next.state = StateDecode
		step.Action = fmt.Sprintf("%s %d %d = %d", cur.ctx.op, lhs, rhs, int32(res))
	}

	if log.ModuleEnabled(log.CoreMonitoring) {
		log.Trace(log.CoreMonitoring, "cycle", "n", e.cycle, "pc", fmt.Sprintf("%02x", cur.pc), "i$", fetchString(step.Fetch), "state", cur.state, "action", step.Action)
	}
	return next
}

func (e *Engine) haltWith(r registers, reason HaltReason) registers {
	r.state = StateDone
	e.halt = reason
	return r
}

func (e *Engine) setFault(step *trace.Step, err error) {
	e.regs.state = StateDone
	e.halt = HaltFault
	e.fault = err
	step.Action = "fault: " + avaerrors.GetErrorCodeWithName(err)
	log.Error(log.CoreMonitoring, "engine fault", "err", err)
}

func (e *Engine) emit(step *trace.Step) {
	e.last = *step
	if e.sink == nil {
		return
	}
	if err := e.sink.WriteStep(step); err != nil && !errors.Is(err, trace.ErrTraceWriterClosed) {
		log.Warn(log.TraceMonitoring, "trace sink failed", "cycle", step.Cycle, "err", err)
	}
}

func fetchString(b *uint8) string {
	if b == nil {
		return "--"
	}
	return fmt.Sprintf("%02x", *b)
}
