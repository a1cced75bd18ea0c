package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/colorfulnotion/avacore/config"
	"github.com/colorfulnotion/avacore/core"
	"github.com/colorfulnotion/avacore/log"
	"github.com/colorfulnotion/avacore/program"
	"github.com/colorfulnotion/avacore/stack"
	"github.com/colorfulnotion/avacore/trace"
	"github.com/colorfulnotion/avacore/uart"
)

// runFlags mirror the [run] and [trace] configuration sections.
type runFlags struct {
	src programSource

	maxCycles    uint64
	stackDepth   int
	stackLatency int
	uartBusy     int
	strictPrint  bool
	jsonl        string
	db           string
	chart        string
	stats        bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	f.src.register(cmd)
	cmd.Flags().Uint64Var(&f.maxCycles, "max-cycles", config.DefaultMaxCycles, "Cycle budget, 0 for none")
	cmd.Flags().IntVar(&f.stackDepth, "stack-depth", 0, "Operand stack depth")
	cmd.Flags().IntVar(&f.stackLatency, "stack-latency", 0, "Busy cycles after each stack transfer")
	cmd.Flags().IntVar(&f.uartBusy, "uart-busy", 0, "Busy cycles after each output byte")
	cmd.Flags().BoolVar(&f.strictPrint, "strict-print", false, "Fault on PRINT of a value outside 0..9")
	cmd.Flags().StringVar(&f.jsonl, "trace-jsonl", "", "Write the cycle trace as JSON Lines")
	cmd.Flags().StringVar(&f.db, "trace-db", "", "Store the cycle trace in a LevelDB directory")
	cmd.Flags().StringVar(&f.chart, "trace-chart", "", "Render an HTML chart of the run")
	cmd.Flags().BoolVar(&f.stats, "stats", false, "Print counters after the run")
}

// apply folds explicitly set flags into cfg.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("max-cycles") {
		cfg.Run.MaxCycles = f.maxCycles
	}
	if flags.Changed("stack-depth") {
		cfg.Run.StackDepth = f.stackDepth
	}
	if flags.Changed("stack-latency") {
		cfg.Run.StackLatency = f.stackLatency
	}
	if flags.Changed("uart-busy") {
		cfg.Run.UartBusy = f.uartBusy
	}
	if flags.Changed("strict-print") {
		cfg.Run.StrictPrint = f.strictPrint
	}
	if flags.Changed("trace-jsonl") {
		cfg.Trace.JSONL = f.jsonl
	}
	if flags.Changed("trace-db") {
		cfg.Trace.DB = f.db
	}
	if flags.Changed("trace-chart") {
		cfg.Trace.Chart = f.chart
	}
	return cfg.Validate()
}

// machine is an engine wired to the reference stack and output channel.
type machine struct {
	eng   *core.Engine
	stack *stack.Bounded
	out   *uart.Channel
}

func newMachine(prog *program.Program, cfg *config.Config, w io.Writer) *machine {
	m := &machine{
		stack: stack.NewBounded(cfg.Run.StackDepth),
		out:   uart.New(w).WithBusyCycles(cfg.Run.UartBusy),
	}
	var s core.Stack = m.stack
	if cfg.Run.StackLatency > 0 {
		s = stack.NewDelayed(m.stack, cfg.Run.StackLatency)
	}
	m.eng = core.New(prog, s, m.out)
	m.eng.SetStrictPrint(cfg.Run.StrictPrint)
	return m
}

// tracers opens every trace output the configuration names.
type tracers struct {
	jsonl    *trace.JSONLTraceWriter
	store    *trace.Store
	recorder *trace.Recorder
	sinks    []trace.Sink
}

func openTracers(cfg config.TraceConfig, prog *program.Program) (*tracers, error) {
	t := &tracers{}
	if cfg.JSONL != "" {
		w, err := trace.NewJSONLTraceWriterFile(cfg.JSONL)
		if err != nil {
			return nil, err
		}
		t.jsonl = w
		t.sinks = append(t.sinks, w)
	}
	if cfg.DB != "" {
		st, err := trace.OpenStore(cfg.DB)
		if err != nil {
			t.close()
			return nil, err
		}
		t.store = st
		if err := st.DeleteTrace(prog.Hash()); err != nil {
			t.close()
			return nil, err
		}
		if err := st.PutProgram(prog.Hash(), prog.Bytes()); err != nil {
			t.close()
			return nil, err
		}
		t.sinks = append(t.sinks, st.Writer(prog.Hash()))
	}
	if cfg.Chart != "" {
		t.recorder = &trace.Recorder{}
		t.sinks = append(t.sinks, t.recorder)
	}
	return t, nil
}

func (t *tracers) sink() trace.Sink {
	switch len(t.sinks) {
	case 0:
		return nil
	case 1:
		return t.sinks[0]
	}
	return trace.Tee(t.sinks...)
}

func (t *tracers) close() error {
	var errs []error
	if t.jsonl != nil {
		errs = append(errs, t.jsonl.Close())
	}
	if t.store != nil {
		errs = append(errs, t.store.Close())
	}
	return errors.Join(errs...)
}

func newRunCmd(g *globals) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run [program]",
		Short: "Run a program until it halts",
		Long:  "Run a program image (raw bytes, or hex text with --hex or a .hex/.txt name). Without a program the built-in hello image runs.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.apply(cmd, g.cfg); err != nil {
				return err
			}
			prog, err := f.src.load(args)
			if err != nil {
				return err
			}
			log.Debug(log.CLIMonitoring, "program loaded", "bytes", prog.Len(), "blake2b", prog.HashHex())

			m := newMachine(prog, g.cfg, cmd.OutOrStdout())
			tr, err := openTracers(g.cfg.Trace, prog)
			if err != nil {
				return err
			}
			m.eng.SetSink(tr.sink())

			ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			runErr := m.eng.Run(ctx, g.cfg.Run.MaxCycles)

			if err := tr.close(); err != nil {
				log.Warn(log.TraceMonitoring, "closing traces", "err", err)
			}
			if tr.recorder != nil {
				if err := writeChart(g.cfg.Trace.Chart, prog, tr.recorder.Steps); err != nil {
					return err
				}
			}
			if err := m.out.Err(); err != nil {
				return err
			}
			if f.stats {
				printStats(cmd.ErrOrStderr(), m.eng)
			}
			if b, ok := m.eng.IllegalOpcode(); ok {
				log.Warn(log.CLIMonitoring, "halted on illegal opcode", "pc", m.eng.PC(), "opcode", fmt.Sprintf("%02x", b))
			}
			log.Info(log.CLIMonitoring, "run finished", "halt", m.eng.HaltReason(), "cycles", m.eng.Cycle(), "pc", m.eng.PC())
			return runErr
		},
	}
	f.register(cmd)
	return cmd
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func writeChart(path string, prog *program.Program, steps []trace.Step) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fh.Close()
	return trace.RenderChart(fh, "avacore "+prog.HashHex()[:16], steps)
}

func printStats(w io.Writer, eng *core.Engine) {
	st := eng.Stats()
	fmt.Fprintf(w, "halt:          %s\n", eng.HaltReason())
	fmt.Fprintf(w, "cycles:        %d\n", st.Cycles)
	fmt.Fprintf(w, "instructions:  %d\n", st.Instructions)
	fmt.Fprintf(w, "stalls:        %d\n", st.TotalStalls())
	for s := core.StateInit; s <= core.StateDone; s++ {
		if n := st.Stalls[s]; n > 0 {
			fmt.Fprintf(w, "  %-16s %d\n", s, n)
		}
	}
	fmt.Fprintf(w, "bus stalls:    %d\n", st.BusStalls)
	fmt.Fprintf(w, "pushes/pops:   %d/%d\n", st.Pushes, st.Pops)
	fmt.Fprintf(w, "max depth:     %d\n", st.MaxDepth)
	fmt.Fprintf(w, "output bytes:  %d\n", st.OutputBytes)
	if st.PrintOverflows > 0 {
		fmt.Fprintf(w, "print overflow: %d\n", st.PrintOverflows)
	}
}
