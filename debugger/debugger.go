// Package debugger is an interactive cycle stepper for the engine.
// Conditions given to break-if are JavaScript expressions evaluated after
// every cycle with pc, cycle, depth, state, opcode and top bound, plus a
// slot(i) function.
package debugger

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dop251/goja"

	"github.com/colorfulnotion/avacore/core"
	"github.com/colorfulnotion/avacore/isa"
	"github.com/colorfulnotion/avacore/log"
)

// StackView exposes the stack contents for display, bottom first.
type StackView interface {
	Items() []isa.Item
}

// LineReader is satisfied by *readline.Instance.
type LineReader interface {
	Readline() (string, error)
}

type condition struct {
	src  string
	prog *goja.Program
}

type Debugger struct {
	eng   *core.Engine
	stack StackView
	out   io.Writer
	vm    *goja.Runtime

	breaks map[int]bool
	conds  []condition

	// MaxCycles bounds a single run command.
	MaxCycles uint64
}

var errUsage = errors.New("usage")

func New(eng *core.Engine, stack StackView, out io.Writer) *Debugger {
	d := &Debugger{
		eng:       eng,
		stack:     stack,
		out:       out,
		vm:        goja.New(),
		breaks:    make(map[int]bool),
		MaxCycles: 1_000_000,
	}
	d.vm.Set("slot", func(i int) goja.Value {
		v, ok := d.eng.Slots().Peek(uint8(i))
		if !ok {
			return goja.Null()
		}
		return d.vm.ToValue(uint32(v))
	})
	return d
}

// NewReadline opens a terminal line editor with history.
func NewReadline(prompt, historyFile string) (*readline.Instance, error) {
	return readline.NewEx(&readline.Config{
		Prompt:      prompt,
		HistoryFile: historyFile,
	})
}

// Serve reads commands until quit or end of input.
func (d *Debugger) Serve(rl LineReader) error {
	for {
		line, err := rl.Readline()
		if err == io.EOF || errors.Is(err, readline.ErrInterrupt) {
			return nil
		}
		if err != nil {
			return err
		}
		quit, err := d.Exec(line)
		if err != nil {
			fmt.Fprintf(d.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// Exec runs one command line.
func (d *Debugger) Exec(line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := fields[0], fields[1:]
	log.Debug(log.DebugMonitoring, "command", "cmd", cmd, "args", args)

	switch cmd {
	case "quit", "exit", "q":
		return true, nil
	case "help", "h", "?":
		d.help()
	case "step", "s":
		n := uint64(1)
		if len(args) > 0 {
			v, err := strconv.ParseUint(args[0], 0, 64)
			if err != nil || v == 0 {
				return false, fmt.Errorf("step [n]: %w", errUsage)
			}
			n = v
		}
		d.step(n)
	case "run", "continue", "c":
		return false, d.run()
	case "break", "b":
		if len(args) != 1 {
			return false, fmt.Errorf("break <pc>: %w", errUsage)
		}
		pc, err := strconv.ParseInt(args[0], 0, 0)
		if err != nil || pc < 0 || int(pc) > d.eng.Program().Len() {
			return false, fmt.Errorf("break %s: bad address", args[0])
		}
		d.breaks[int(pc)] = true
		fmt.Fprintf(d.out, "breakpoint at %04x\n", pc)
	case "break-if":
		src := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), cmd))
		if src == "" {
			return false, fmt.Errorf("break-if <expr>: %w", errUsage)
		}
		prog, err := goja.Compile("break-if", src, false)
		if err != nil {
			return false, err
		}
		d.conds = append(d.conds, condition{src: src, prog: prog})
		fmt.Fprintf(d.out, "condition %d: %s\n", len(d.conds), src)
	case "delete", "clear":
		d.breaks = make(map[int]bool)
		d.conds = nil
		fmt.Fprintln(d.out, "breakpoints cleared")
	case "regs", "r":
		d.regs()
	case "stack":
		d.printStack()
	case "slots":
		d.printSlots()
	case "disasm", "l":
		d.disasm()
	case "stats":
		d.printStats()
	default:
		return false, fmt.Errorf("unknown command %q, try help", cmd)
	}
	return false, nil
}

func (d *Debugger) step(n uint64) {
	for i := uint64(0); i < n && !d.eng.Halted(); i++ {
		d.eng.Step()
		last := d.eng.LastStep()
		fmt.Fprintln(d.out, last.String())
	}
	d.reportHalt()
}

func (d *Debugger) run() error {
	for i := uint64(0); !d.eng.Halted(); i++ {
		if i >= d.MaxCycles {
			fmt.Fprintf(d.out, "stopped after %d cycles at pc=%04x\n", i, d.eng.PC())
			return nil
		}
		d.eng.Step()
		// a bus stall keeps Decode at the same pc; only a fresh entry counts
		if last := d.eng.LastStep(); !last.Stall && d.eng.State() == core.StateDecode && d.breaks[d.eng.PC()] {
			fmt.Fprintf(d.out, "breakpoint at %04x, cycle %d\n", d.eng.PC(), d.eng.Cycle())
			return nil
		}
		for _, c := range d.conds {
			hit, err := d.eval(c)
			if err != nil {
				return fmt.Errorf("condition %q: %w", c.src, err)
			}
			if hit {
				fmt.Fprintf(d.out, "condition %q hit at pc=%04x, cycle %d\n", c.src, d.eng.PC(), d.eng.Cycle())
				return nil
			}
		}
	}
	d.reportHalt()
	return nil
}

func (d *Debugger) eval(c condition) (bool, error) {
	st := d.eng.Stats()
	r := d.eng.Registers()
	d.vm.Set("pc", r.PC)
	d.vm.Set("cycle", d.eng.Cycle())
	d.vm.Set("depth", st.Depth)
	d.vm.Set("state", r.State.String())
	d.vm.Set("opcode", int(r.Opcode))
	d.vm.Set("top", goja.Null())
	if d.stack != nil {
		if items := d.stack.Items(); len(items) > 0 {
			d.vm.Set("top", uint32(items[len(items)-1]))
		}
	}
	v, err := d.vm.RunProgram(c.prog)
	if err != nil {
		return false, err
	}
	return v.ToBoolean(), nil
}

func (d *Debugger) reportHalt() {
	if !d.eng.Halted() {
		return
	}
	switch d.eng.HaltReason() {
	case core.HaltFault:
		fmt.Fprintf(d.out, "halted: fault: %v\n", d.eng.Fault())
	case core.HaltIllegalOpcode:
		b, _ := d.eng.IllegalOpcode()
		fmt.Fprintf(d.out, "halted: illegal opcode %02x at %04x\n", b, d.eng.PC())
	default:
		fmt.Fprintf(d.out, "halted: %s after %d cycles\n", d.eng.HaltReason(), d.eng.Cycle())
	}
}

func (d *Debugger) regs() {
	r := d.eng.Registers()
	dslot := "-"
	if int(r.DSlot) < isa.SLOT_N {
		dslot = strconv.Itoa(int(r.DSlot))
	}
	fmt.Fprintf(d.out, "cycle=%d state=%s pc=%04x opcode=%02x(%s)\n", d.eng.Cycle(), r.State, r.PC, r.Opcode, isa.OpcodeToString(r.Opcode))
	fmt.Fprintf(d.out, "op=%s type=%s opa=%#x opb=%#x dslot=%s\n", r.Op, r.Type, uint32(r.OpA), uint32(r.OpB), dslot)
}

func (d *Debugger) printStack() {
	if d.stack == nil {
		fmt.Fprintf(d.out, "depth %d (contents not visible)\n", d.eng.Stats().Depth)
		return
	}
	items := d.stack.Items()
	if len(items) == 0 {
		fmt.Fprintln(d.out, "(empty)")
		return
	}
	for i := len(items) - 1; i >= 0; i-- {
		fmt.Fprintf(d.out, "[%d] %#x\n", i, uint32(items[i]))
	}
}

func (d *Debugger) printSlots() {
	for i := 0; i < isa.SLOT_N; i++ {
		v, ok := d.eng.Slots().Peek(uint8(i))
		if !ok {
			fmt.Fprintf(d.out, "s%d -\n", i)
			continue
		}
		fmt.Fprintf(d.out, "s%d %#x\n", i, uint32(v))
	}
}

func (d *Debugger) disasm() {
	pc := d.eng.PC()
	for _, in := range d.eng.Program().Disassemble() {
		mark := "  "
		if in.Addr <= pc && pc < in.Addr+in.Len() {
			mark = "=>"
		}
		bp := " "
		if d.breaks[in.Addr] {
			bp = "*"
		}
		fmt.Fprintf(d.out, "%s%s %s\n", mark, bp, in)
	}
}

func (d *Debugger) printStats() {
	st := d.eng.Stats()
	fmt.Fprintf(d.out, "cycles=%d instructions=%d stalls=%d bus_stalls=%d pushes=%d pops=%d max_depth=%d output=%d\n",
		st.Cycles, st.Instructions, st.TotalStalls(), st.BusStalls, st.Pushes, st.Pops, st.MaxDepth, st.OutputBytes)
}

func (d *Debugger) help() {
	fmt.Fprint(d.out, `step [n]        advance n cycles (default 1)
run             run to halt, breakpoint or condition
break <pc>      stop when decode reaches pc
break-if <js>   stop when the expression is true (pc, cycle, depth, state, opcode, top, slot(i))
delete          clear breakpoints and conditions
regs            registers and instruction context
stack           operand stack, top first
slots           slot store
disasm          listing with the current pc marked
stats           counters
quit            leave
`)
}
