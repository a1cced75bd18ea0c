package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDisasmCmd(g *globals) *cobra.Command {
	var (
		src  programSource
		tree bool
	)
	cmd := &cobra.Command{
		Use:   "disasm [program]",
		Short: "Disassemble a program image",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := src.load(args)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "# %d bytes, blake2b %s\n", prog.Len(), prog.HashHex())
			if tree {
				fmt.Fprint(w, prog.Tree().String())
				return nil
			}
			fmt.Fprint(w, prog.Listing())
			return nil
		},
	}
	src.register(cmd)
	cmd.Flags().BoolVar(&tree, "tree", false, "Group instructions into statements")
	return cmd
}
