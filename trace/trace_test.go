package trace

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/colorfulnotion/avacore/avaerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u8(b uint8) *uint8 { return &b }

func sampleSteps() []Step {
	return []Step{
		{Cycle: 0, State: "Init", NextState: "Decode", PC: 0, Fetch: u8(0x82), Action: "reset"},
		{Cycle: 1, State: "Decode", NextState: "Decode", PC: 0, Fetch: u8(0x82), Action: "LINEFEED"},
		{Cycle: 2, State: "Decode", NextState: "Done", PC: 1, Action: "end of program", Output: u8('\n'), Halt: "end-of-program"},
	}
}

func TestJSONLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLTraceWriter(&buf)
	for i := range sampleSteps() {
		s := sampleSteps()[i]
		require.NoError(t, w.WriteStep(&s))
	}
	require.NoError(t, w.Close())
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))

	got, err := ReadJSONL(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleSteps(), got)

	s := sampleSteps()[0]
	assert.ErrorIs(t, w.WriteStep(&s), ErrTraceWriterClosed)
}

func TestJSONLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	w, err := NewJSONLTraceWriterFile(path)
	require.NoError(t, err)
	for _, s := range sampleSteps() {
		s := s
		require.NoError(t, w.WriteStep(&s))
	}
	require.NoError(t, w.Close())

	got, err := ReadJSONLFile(path)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestReadJSONLBadLine(t *testing.T) {
	_, err := ReadJSONL(strings.NewReader("{\"cycle\":1}\nnot json\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestStepString(t *testing.T) {
	s := sampleSteps()[1]
	assert.Contains(t, s.String(), "pc=00 i$=82")
	end := sampleSteps()[2]
	assert.Contains(t, end.String(), "i$=--")
}

type failingSink struct{}

func (failingSink) WriteStep(*Step) error { return errors.New("boom") }

func TestTee(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	sink := Tee(a, failingSink{}, b)
	s := sampleSteps()[0]
	err := sink.WriteStep(&s)
	assert.EqualError(t, err, "boom")
	assert.Len(t, a.Steps, 1)
	assert.Len(t, b.Steps, 1)
}

func TestStoreSteps(t *testing.T) {
	st, err := OpenStore("")
	require.NoError(t, err)
	defer st.Close()

	var hash [32]byte
	hash[0] = 0xaa
	require.NoError(t, st.PutProgram(hash, []byte{0x82}))
	w := st.Writer(hash)
	// out of order on purpose, keys sort by cycle
	steps := sampleSteps()
	for _, i := range []int{2, 0, 1} {
		require.NoError(t, w.WriteStep(&steps[i]))
	}

	got, err := st.Steps(hash)
	require.NoError(t, err)
	assert.Equal(t, sampleSteps(), got)

	code, err := st.Program(hash)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x82}, code)

	progs, err := st.Programs()
	require.NoError(t, err)
	assert.Equal(t, [][32]byte{hash}, progs)

	require.NoError(t, st.DeleteTrace(hash))
	_, err = st.Steps(hash)
	assert.ErrorIs(t, err, avaerrors.ErrHTraceMissing)
}

func TestStoreMissingProgram(t *testing.T) {
	st, err := OpenStore(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	defer st.Close()
	_, err = st.Program([32]byte{1})
	assert.ErrorIs(t, err, avaerrors.ErrHTraceMissing)
}

func TestDiff(t *testing.T) {
	left := sampleSteps()
	out, changed, err := Diff(left, sampleSteps(), false)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, out)
	assert.Equal(t, -1, FirstDivergence(left, sampleSteps()))

	right := sampleSteps()
	right[1].Action = "PRINT"
	out, changed, err = Diff(left, right, false)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, out, "PRINT")
	assert.Equal(t, 1, FirstDivergence(left, right))
	assert.Equal(t, 2, FirstDivergence(left, left[:2]))
}

func TestRenderChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderChart(&buf, "hello", sampleSteps()))
	assert.Contains(t, buf.String(), "stack depth")
}
