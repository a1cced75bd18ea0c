package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/colorfulnotion/avacore/debugger"
	"github.com/colorfulnotion/avacore/log"
)

func newDebugCmd(g *globals) *cobra.Command {
	f := &runFlags{}
	var history string
	cmd := &cobra.Command{
		Use:   "debug [program]",
		Short: "Step a program interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.apply(cmd, g.cfg); err != nil {
				return err
			}
			prog, err := f.src.load(args)
			if err != nil {
				return err
			}
			// program output and debugger output share the terminal
			m := newMachine(prog, g.cfg, cmd.OutOrStdout())
			tr, err := openTracers(g.cfg.Trace, prog)
			if err != nil {
				return err
			}
			defer tr.close()
			m.eng.SetSink(tr.sink())

			rl, err := debugger.NewReadline("avacore> ", history)
			if err != nil {
				return fmt.Errorf("failed to start readline: %w", err)
			}
			defer rl.Close()

			d := debugger.New(m.eng, m.stack, cmd.OutOrStdout())
			if g.cfg.Run.MaxCycles > 0 {
				d.MaxCycles = g.cfg.Run.MaxCycles
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d bytes loaded, type help for commands\n", prog.Len())
			log.Debug(log.DebugMonitoring, "debugger started", "blake2b", prog.HashHex())
			return d.Serve(rl)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&history, "history", filepath.Join(os.TempDir(), "avacore_history.txt"), "Command history file")
	return cmd
}
