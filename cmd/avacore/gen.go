package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/colorfulnotion/avacore/log"
	"github.com/colorfulnotion/avacore/progen"
)

func newGenCmd(g *globals) *cobra.Command {
	var (
		seed   uint64
		opts   = progen.DefaultOptions
		out    string
		raw    bool
		verify bool
	)
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a random well-formed program",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prog := progen.Generate(seed, opts)
			if verify {
				res, err := progen.Interpret(prog.Bytes())
				if err != nil {
					return fmt.Errorf("seed %d: %w", seed, err)
				}
				log.Info(log.ProgenMonitoring, "reference run", "seed", seed, "output", fmt.Sprintf("%q", res.Output), "depth", len(res.Stack))
			}
			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), prog.String())
				return nil
			}
			data := []byte(prog.String() + "\n")
			if raw {
				data = prog.Bytes()
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			log.Info(log.CLIMonitoring, "program written", "path", out, "bytes", prog.Len(), "seed", seed)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 1, "Generator seed")
	cmd.Flags().IntVarP(&opts.Instructions, "count", "n", opts.Instructions, "Number of instructions")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", opts.MaxDepth, "Bound on the stack depth")
	cmd.Flags().BoolVar(&opts.WideImm, "wide", false, "Allow full 16-bit immediates")
	cmd.Flags().BoolVar(&opts.IllegalTail, "illegal-tail", false, "End with an illegal opcode")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to a file instead of stdout")
	cmd.Flags().BoolVar(&raw, "raw", false, "Write raw bytes instead of hex text (with --out)")
	cmd.Flags().BoolVar(&verify, "verify", false, "Run the reference interpreter and log its result")
	return cmd
}
