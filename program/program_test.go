package program

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/colorfulnotion/avacore/avaerrors"
	"github.com/colorfulnotion/avacore/isa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgramIsImmutable(t *testing.T) {
	src := []byte{0x01, 0x02, 0x00}
	p := New(src)
	src[0] = 0xff

	b, ok := p.Byte(0)
	require.True(t, ok)
	assert.Equal(t, byte(0x01), b)

	out := p.Bytes()
	out[1] = 0xee
	b, _ = p.Byte(1)
	assert.Equal(t, byte(0x02), b)

	_, ok = p.Byte(3)
	assert.False(t, ok)
	_, ok = p.Byte(-1)
	assert.False(t, ok)
}

func TestHashStable(t *testing.T) {
	a := New(Hello)
	b := New(append([]byte{}, Hello...))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Len(t, a.HashHex(), 64)
	assert.NotEqual(t, a.Hash(), New([]byte{0x82}).Hash())
}

func TestParseHex(t *testing.T) {
	p, err := ParseHex(`
		# push 2, push 4
		01 02 00 0x01,04,00
		a5 // multiply
		80
	`)
	require.NoError(t, err)
	assert.Equal(t, "01 02 00 01 04 00 a5 80", p.String())

	_, err = ParseHex("01 2")
	assert.ErrorIs(t, err, avaerrors.ErrHBadHex)
	_, err = ParseHex("zz")
	assert.ErrorIs(t, err, avaerrors.ErrHBadHex)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	raw := filepath.Join(dir, "prog.avc")
	require.NoError(t, os.WriteFile(raw, Hello, 0o644))
	p, err := Load(raw, false)
	require.NoError(t, err)
	assert.Equal(t, Hello, p.Bytes())

	txt := filepath.Join(dir, "prog.hex")
	require.NoError(t, os.WriteFile(txt, []byte("82"), 0o644))
	p, err = Load(txt, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x82}, p.Bytes())

	empty := filepath.Join(dir, "empty.avc")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = Load(empty, false)
	assert.ErrorIs(t, err, avaerrors.ErrHEmptyProgram)

	_, err = Load(filepath.Join(dir, "missing"), false)
	assert.Error(t, err)
}

func TestDisassemble(t *testing.T) {
	insts := New(Hello).Disassemble()
	require.Len(t, insts, 9)

	assert.Equal(t, isa.PUSH_IMM_INTEGER, int(insts[0].Opcode))
	v, ok := insts[0].Immediate()
	require.True(t, ok)
	assert.Equal(t, isa.Item(2), v)
	assert.Equal(t, "0003: LET s0", insts[1].String())
	assert.Equal(t, "000e: OPERATOR_MULTIPLY_INTEGER", insts[6].String())

	addr := 0
	for _, in := range insts {
		assert.Equal(t, addr, in.Addr)
		addr += in.Len()
	}
	assert.Equal(t, len(Hello), addr)
}

func TestDisassembleStops(t *testing.T) {
	insts := New([]byte{0x82, 0xff, 0x82}).Disassemble()
	require.Len(t, insts, 2)
	assert.True(t, insts[1].Illegal)
	assert.Equal(t, "0001: ff ILLEGAL", insts[1].String())

	insts = New([]byte{0x01, 0x05}).Disassemble()
	require.Len(t, insts, 1)
	assert.True(t, insts[0].Truncated)
	_, ok := insts[0].Immediate()
	assert.False(t, ok)
}

func TestTree(t *testing.T) {
	out := New(Hello).Tree().String()
	assert.Contains(t, out, "0000")
	assert.Contains(t, out, "LET s1")
	assert.Contains(t, out, "BUILTIN_PRINT_LINEFEED")
	assert.Equal(t, 9, strings.Count(New(Hello).Listing(), "\n"))
}
