// Package uart is the byte output channel. A write is accepted only while
// the channel is ready; after each accepted byte it may stay busy for a
// configured number of cycles.
package uart

import (
	"bytes"
	"io"
	"strconv"

	"github.com/colorfulnotion/avacore/log"
)

type Channel struct {
	w    io.Writer
	sent bytes.Buffer
	busy int
	wait int
	err  error

	Refused int
}

// New returns a channel forwarding accepted bytes to w (which may be nil).
func New(w io.Writer) *Channel {
	return &Channel{w: w}
}

// WithBusyCycles keeps the channel not-ready for n cycles after each byte.
func (c *Channel) WithBusyCycles(n int) *Channel {
	c.busy = n
	return c
}

// Ready reports whether a write would be accepted this cycle.
func (c *Channel) Ready() bool {
	return c.wait == 0
}

func (c *Channel) Write(b byte) bool {
	if c.wait > 0 {
		c.Refused++
		return false
	}
	c.sent.WriteByte(b)
	if c.w != nil && c.err == nil {
		if _, err := c.w.Write([]byte{b}); err != nil {
			c.err = err
			log.Error(log.UartMonitoring, "output sink failed", "err", err)
		}
	}
	log.Debug(log.UartMonitoring, "tx", "byte", strconv.QuoteRune(rune(b)))
	c.wait = c.busy
	return true
}

// Tick advances one cycle.
func (c *Channel) Tick() {
	if c.wait > 0 {
		c.wait--
	}
}

// Bytes returns every byte accepted so far.
func (c *Channel) Bytes() []byte {
	return bytes.Clone(c.sent.Bytes())
}

// Err returns the first error reported by the sink.
func (c *Channel) Err() error {
	return c.err
}
