// Package stack provides operand stacks speaking the push/pop handshake the
// engine consumes: Peek reports the valid top element, Pop consumes it, and
// Push is accepted only while the receiver is ready.
package stack

import (
	"fmt"

	"github.com/colorfulnotion/avacore/isa"
	"github.com/colorfulnotion/avacore/log"
)

// Handshake is the request/ready surface of an operand stack.
type Handshake interface {
	Peek() (isa.Item, bool)
	Pop() (isa.Item, bool)
	Push(v isa.Item) bool
}

// Bounded is a LIFO of fixed depth. It refuses pushes while full.
type Bounded struct {
	items []isa.Item
	depth int

	Pushes   int
	Pops     int
	Refused  int
	MaxDepth int
}

func NewBounded(depth int) *Bounded {
	if depth <= 0 {
		depth = isa.STACK_N
	}
	return &Bounded{items: make([]isa.Item, 0, depth), depth: depth}
}

func (s *Bounded) Peek() (isa.Item, bool) {
	if len(s.items) == 0 {
		return 0, false
	}
	return s.items[len(s.items)-1], true
}

func (s *Bounded) Pop() (isa.Item, bool) {
	v, ok := s.Peek()
	if !ok {
		return 0, false
	}
	s.items = s.items[:len(s.items)-1]
	s.Pops++
	log.Trace(log.StackMonitoring, "pop", "value", fmt.Sprintf("%#x", uint32(v)), "depth", len(s.items))
	return v, true
}

func (s *Bounded) Push(v isa.Item) bool {
	if len(s.items) == s.depth {
		s.Refused++
		return false
	}
	s.items = append(s.items, v)
	s.Pushes++
	if len(s.items) > s.MaxDepth {
		s.MaxDepth = len(s.items)
	}
	log.Trace(log.StackMonitoring, "push", "value", fmt.Sprintf("%#x", uint32(v)), "depth", len(s.items))
	return true
}

func (s *Bounded) Len() int {
	return len(s.items)
}

func (s *Bounded) Cap() int {
	return s.depth
}

// Items returns the stack contents from bottom to top.
func (s *Bounded) Items() []isa.Item {
	out := make([]isa.Item, len(s.items))
	copy(out, s.items)
	return out
}

// Delayed makes an inner stack unavailable for a number of cycles after
// every completed transfer, modelling a slow container.
type Delayed struct {
	inner   Handshake
	latency int
	busy    int
}

func NewDelayed(inner Handshake, latency int) *Delayed {
	return &Delayed{inner: inner, latency: latency}
}

func (d *Delayed) Peek() (isa.Item, bool) {
	if d.busy > 0 {
		return 0, false
	}
	return d.inner.Peek()
}

func (d *Delayed) Pop() (isa.Item, bool) {
	if d.busy > 0 {
		return 0, false
	}
	v, ok := d.inner.Pop()
	if ok {
		d.busy = d.latency
	}
	return v, ok
}

func (d *Delayed) Push(v isa.Item) bool {
	if d.busy > 0 {
		return false
	}
	ok := d.inner.Push(v)
	if ok {
		d.busy = d.latency
	}
	return ok
}

// Tick advances one cycle.
func (d *Delayed) Tick() {
	if d.busy > 0 {
		d.busy--
	}
}
