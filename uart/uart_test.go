package uart

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelForwards(t *testing.T) {
	var sink bytes.Buffer
	c := New(&sink)
	assert.True(t, c.Write('8'))
	assert.True(t, c.Write('\n'))
	assert.Equal(t, "8\n", sink.String())
	assert.Equal(t, []byte("8\n"), c.Bytes())
}

func TestChannelBusy(t *testing.T) {
	c := New(nil).WithBusyCycles(2)
	assert.True(t, c.Write('a'))
	assert.False(t, c.Ready())
	assert.False(t, c.Write('b'))
	c.Tick()
	assert.False(t, c.Write('b'))
	c.Tick()
	assert.True(t, c.Write('b'))
	assert.Equal(t, 2, c.Refused)
	assert.Equal(t, []byte("ab"), c.Bytes())
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("closed") }

func TestChannelSinkError(t *testing.T) {
	c := New(failingWriter{})
	assert.True(t, c.Write('x'))
	assert.EqualError(t, c.Err(), "closed")
	assert.Equal(t, []byte("x"), c.Bytes())
}
