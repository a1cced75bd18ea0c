package debugger

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/colorfulnotion/avacore/core"
	"github.com/colorfulnotion/avacore/isa"
	"github.com/colorfulnotion/avacore/program"
	"github.com/colorfulnotion/avacore/stack"
	"github.com/colorfulnotion/avacore/uart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lines struct {
	queue []string
}

func (l *lines) Readline() (string, error) {
	if len(l.queue) == 0 {
		return "", io.EOF
	}
	line := l.queue[0]
	l.queue = l.queue[1:]
	return line, nil
}

func newDebugger(code []byte) (*Debugger, *uart.Channel, *bytes.Buffer) {
	stk := stack.NewBounded(isa.STACK_N)
	out := uart.New(nil)
	var buf bytes.Buffer
	eng := core.New(program.New(code), stk, out)
	return New(eng, stk, &buf), out, &buf
}

func TestStep(t *testing.T) {
	d, _, buf := newDebugger(program.Hello)
	quit, err := d.Exec("step 3")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Equal(t, uint64(3), d.eng.Cycle())
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "Init")

	_, err = d.Exec("step zero")
	assert.ErrorIs(t, err, errUsage)
}

func TestBreakpoint(t *testing.T) {
	d, out, buf := newDebugger(program.Hello)
	_, err := d.Exec("break 0x0e")
	require.NoError(t, err)
	_, err = d.Exec("run")
	require.NoError(t, err)
	assert.Equal(t, 14, d.eng.PC())
	assert.Equal(t, core.StateDecode, d.eng.State())
	assert.Contains(t, buf.String(), "breakpoint at 000e")
	assert.Empty(t, out.Bytes())

	buf.Reset()
	_, err = d.Exec("disasm")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "=>* 000e: OPERATOR_MULTIPLY_INTEGER")

	_, err = d.Exec("run")
	require.NoError(t, err)
	assert.True(t, d.eng.Halted())
	assert.Equal(t, "8\n", string(out.Bytes()))
	assert.Contains(t, buf.String(), "halted: end-of-program")
}

func TestConditionalBreakpoint(t *testing.T) {
	d, _, buf := newDebugger(program.Hello)
	_, err := d.Exec("break-if depth == 2 && top == 4")
	require.NoError(t, err)
	_, err = d.Exec("run")
	require.NoError(t, err)
	assert.False(t, d.eng.Halted())
	assert.Equal(t, 2, d.eng.Stats().Depth)
	assert.Contains(t, buf.String(), "condition \"depth == 2 && top == 4\" hit")

	buf.Reset()
	_, err = d.Exec("stack")
	require.NoError(t, err)
	assert.Equal(t, "[1] 0x4\n[0] 0x2\n", buf.String())
}

func TestConditionUsesSlots(t *testing.T) {
	d, _, _ := newDebugger(program.Hello)
	_, err := d.Exec("break-if slot(1) === 4")
	require.NoError(t, err)
	_, err = d.Exec("run")
	require.NoError(t, err)
	v, ok := d.eng.Slots().Peek(1)
	assert.True(t, ok)
	assert.Equal(t, isa.Item(4), v)
	assert.False(t, d.eng.Halted())
}

func TestBadCommands(t *testing.T) {
	d, _, _ := newDebugger(program.Hello)
	_, err := d.Exec("break-if pc ==")
	assert.Error(t, err)
	_, err = d.Exec("break 999")
	assert.Error(t, err)
	_, err = d.Exec("break")
	assert.ErrorIs(t, err, errUsage)
	_, err = d.Exec("frobnicate")
	assert.Error(t, err)
	quit, err := d.Exec("   ")
	assert.NoError(t, err)
	assert.False(t, quit)
}

func TestViews(t *testing.T) {
	d, _, buf := newDebugger(program.Hello)
	_, err := d.Exec("run")
	require.NoError(t, err)

	buf.Reset()
	_, err = d.Exec("slots")
	require.NoError(t, err)
	assert.Equal(t, "s0 0x2\ns1 0x4\ns2 -\ns3 -\n", buf.String())

	buf.Reset()
	_, err = d.Exec("regs")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "state=Done pc=0011")

	buf.Reset()
	_, err = d.Exec("stats")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "instructions=9")
	assert.Contains(t, buf.String(), "output=2")
}

func TestRunBudget(t *testing.T) {
	d, _, buf := newDebugger([]byte{0x80})
	d.MaxCycles = 10
	_, err := d.Exec("run")
	require.NoError(t, err)
	assert.False(t, d.eng.Halted())
	assert.Contains(t, buf.String(), "stopped after 10 cycles")
}

func TestServe(t *testing.T) {
	d, out, buf := newDebugger(program.Hello)
	script := &lines{queue: []string{"step", "bogus", "run", "quit", "step"}}
	require.NoError(t, d.Serve(script))
	assert.Equal(t, "8\n", string(out.Bytes()))
	assert.Contains(t, buf.String(), "error: unknown command")
	assert.Equal(t, []string{"step"}, script.queue)

	// end of input also ends the session
	d2, _, _ := newDebugger(program.Hello)
	require.NoError(t, d2.Serve(&lines{}))
}
