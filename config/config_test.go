package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/colorfulnotion/avacore/avaerrors"
	"github.com/colorfulnotion/avacore/isa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[log]
level = "debug"
modules = "core_mod,slot_mod"

[run]
max_cycles = 500
stack_latency = 2
strict_print = true

[trace]
jsonl = "out.jsonl"
`

func TestParse(t *testing.T) {
	c, err := Parse(sample)
	require.NoError(t, err)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "core_mod,slot_mod", c.Log.Modules)
	assert.Equal(t, uint64(500), c.Run.MaxCycles)
	assert.Equal(t, 2, c.Run.StackLatency)
	assert.True(t, c.Run.StrictPrint)
	// untouched keys keep their defaults
	assert.Equal(t, isa.STACK_N, c.Run.StackDepth)
	assert.Equal(t, "out.jsonl", c.Trace.JSONL)
	assert.Empty(t, c.Trace.DB)
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"unknown key": "[run]\nmax_cycle = 3\n",
		"bad level":   "[log]\nlevel = \"loud\"\n",
		"bad depth":   "[run]\nstack_depth = 0\n",
		"bad latency": "[run]\nstack_latency = -1\n",
		"bad busy":    "[run]\nuart_busy = -2\n",
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(text)
			assert.ErrorIs(t, err, avaerrors.ErrHBadConfig)
		})
	}
	_, err := Parse("[run\n")
	assert.Error(t, err)
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(sample), 0o644))

	c, err := FindAndLoad(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, FileName), c.Path)
	assert.Equal(t, uint64(500), c.Run.MaxCycles)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	assert.Error(t, err)
}

func TestWriteRoundTrip(t *testing.T) {
	c := Default()
	c.Run.UartBusy = 3
	var buf bytes.Buffer
	require.NoError(t, c.Write(&buf))

	back, err := Parse(buf.String())
	require.NoError(t, err)
	assert.Equal(t, c, back)
}
