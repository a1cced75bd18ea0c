package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/colorfulnotion/avacore/avaerrors"
	"github.com/colorfulnotion/avacore/program"
	"github.com/colorfulnotion/avacore/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRunHello(t *testing.T) {
	out, _, err := execute(t, "run")
	require.NoError(t, err)
	assert.Equal(t, "8\n", out)
}

func TestRunSamples(t *testing.T) {
	for name, want := range map[string]string{
		"multiply": "8",
		"slot":     "4",
		"add":      "7\n",
		"linefeed": "\n",
		"illegal":  "",
	} {
		t.Run(name, func(t *testing.T) {
			out, _, err := execute(t, "run", "--sample", name, "--uart-busy", "2", "--stack-latency", "1")
			require.NoError(t, err)
			assert.Equal(t, want, out)
		})
	}
	_, _, err := execute(t, "run", "--sample", "nope")
	assert.Error(t, err)
}

func TestRunHexFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.hex")
	require.NoError(t, os.WriteFile(path, []byte("# push 3, print\n01 03 00\n80\n"), 0o644))
	out, stats, err := execute(t, "run", path, "--stats")
	require.NoError(t, err)
	assert.Equal(t, "3", out)
	assert.Contains(t, stats, "halt:          end-of-program")
	assert.Contains(t, stats, "instructions:  2")
}

func TestRunCycleLimit(t *testing.T) {
	_, _, err := execute(t, "run", "--sample", "hello", "--max-cycles", "5")
	assert.ErrorIs(t, err, avaerrors.ErrHCycleLimit)
}

func TestRunStrictPrint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.hex")
	require.NoError(t, os.WriteFile(path, []byte("01 0c 00 80"), 0o644))
	_, _, err := execute(t, "run", path, "--strict-print")
	assert.ErrorIs(t, err, avaerrors.ErrFPrintRange)
}

func TestRunWritesTraces(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jsonl")
	b := filepath.Join(dir, "b.jsonl")
	db := filepath.Join(dir, "db")
	chart := filepath.Join(dir, "chart.html")

	_, _, err := execute(t, "run", "--trace-jsonl", a, "--trace-db", db, "--trace-chart", chart)
	require.NoError(t, err)
	_, _, err = execute(t, "run", "--trace-jsonl", b)
	require.NoError(t, err)

	steps, err := trace.ReadJSONLFile(a)
	require.NoError(t, err)
	require.NotEmpty(t, steps)
	assert.Equal(t, "end-of-program", steps[len(steps)-1].Halt)

	out, _, err := execute(t, "trace", "diff", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "traces identical")

	html, err := os.ReadFile(chart)
	require.NoError(t, err)
	assert.Contains(t, string(html), "stack depth")

	hash := program.New(program.Hello).HashHex()
	out, _, err = execute(t, "trace", "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, hash)

	out, _, err = execute(t, "trace", "show", "--db", db, hash)
	require.NoError(t, err)
	assert.Equal(t, len(steps), strings.Count(out, "\n"))

	// a slower run of the same program diverges
	_, _, err = execute(t, "run", "--trace-jsonl", b, "--uart-busy", "3")
	require.NoError(t, err)
	_, _, err = execute(t, "trace", "diff", a, b)
	assert.ErrorContains(t, err, "traces diverge")
}

func TestDisasm(t *testing.T) {
	out, _, err := execute(t, "disasm", "--sample", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "0000: PUSH_IMM_INTEGER 2")
	assert.Contains(t, out, "000e: OPERATOR_MULTIPLY_INTEGER")

	out, _, err = execute(t, "disasm", "--sample", "illegal")
	require.NoError(t, err)
	assert.Contains(t, out, "0000: ff ILLEGAL")
}

func TestGen(t *testing.T) {
	out, _, err := execute(t, "gen", "--seed", "9", "-n", "12", "--verify")
	require.NoError(t, err)
	prog, err := program.ParseHex(out)
	require.NoError(t, err)
	assert.NotZero(t, prog.Len())

	again, _, err := execute(t, "gen", "--seed", "9", "-n", "12")
	require.NoError(t, err)
	assert.Equal(t, out, again)

	path := filepath.Join(t.TempDir(), "gen.bin")
	_, _, err = execute(t, "gen", "--seed", "9", "-n", "12", "--raw", "-o", path)
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, prog.Bytes(), raw)

	// generated programs run
	_, _, err = execute(t, "run", path)
	assert.NoError(t, err)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avacore.toml")
	require.NoError(t, os.WriteFile(path, []byte("[run]\nmax_cycles = 4\n"), 0o644))
	_, _, err := execute(t, "--config", path, "run")
	assert.ErrorIs(t, err, avaerrors.ErrHCycleLimit)

	// flags win over the file
	out, _, err := execute(t, "--config", path, "run", "--max-cycles", "0")
	require.NoError(t, err)
	assert.Equal(t, "8\n", out)

	out, _, err = execute(t, "--config", path, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "max_cycles = 4")
}
