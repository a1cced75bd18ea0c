package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/colorfulnotion/avacore/trace"
)

func newTraceCmd(g *globals) *cobra.Command {
	var db string
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded cycle traces",
		Long:  "Traces are JSON Lines files, or with --db program hashes inside a LevelDB trace store.",
	}
	cmd.PersistentFlags().StringVar(&db, "db", "", "Read traces from this LevelDB store")

	show := &cobra.Command{
		Use:   "show <trace>",
		Short: "Print a trace one cycle per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := readSteps(db, args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for i := range steps {
				fmt.Fprintln(w, steps[i].String())
			}
			return nil
		},
	}

	var coloring bool
	diff := &cobra.Command{
		Use:   "diff <trace-a> <trace-b>",
		Short: "Compare two traces",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := readSteps(db, args[0])
			if err != nil {
				return err
			}
			b, err := readSteps(db, args[1])
			if err != nil {
				return err
			}
			out, changed, err := trace.Diff(a, b, coloring)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintf(cmd.OutOrStdout(), "traces identical (%d cycles)\n", len(a))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return fmt.Errorf("traces diverge at cycle %d", trace.FirstDivergence(a, b))
		},
	}
	diff.Flags().BoolVar(&coloring, "color", false, "Colour the diff")

	var out string
	chart := &cobra.Command{
		Use:   "chart <trace>",
		Short: "Render pc, stack depth and stalls as an HTML chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := readSteps(db, args[0])
			if err != nil {
				return err
			}
			fh, err := os.Create(out)
			if err != nil {
				return err
			}
			defer fh.Close()
			return trace.RenderChart(fh, args[0], steps)
		},
	}
	chart.Flags().StringVarP(&out, "out", "o", "trace.html", "Output file")

	list := &cobra.Command{
		Use:   "list",
		Short: "List the programs held in a trace store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if db == "" {
				return fmt.Errorf("list needs --db")
			}
			st, err := trace.OpenStore(db)
			if err != nil {
				return err
			}
			defer st.Close()
			hashes, err := st.Programs()
			if err != nil {
				return err
			}
			for _, h := range hashes {
				code, err := st.Program(h)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%x %d bytes\n", h, len(code))
			}
			return nil
		},
	}

	cmd.AddCommand(show, diff, chart, list)
	return cmd
}

// readSteps loads a trace from a JSONL file, or from the store when db is
// set, in which case name is the program hash in hex.
func readSteps(db, name string) ([]trace.Step, error) {
	if db == "" {
		return trace.ReadJSONLFile(name)
	}
	raw, err := hex.DecodeString(name)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("%q is not a program hash", name)
	}
	var h [32]byte
	copy(h[:], raw)
	st, err := trace.OpenStore(db)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.Steps(h)
}
