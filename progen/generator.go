// Package progen generates random well-formed programs and carries an
// instruction-level reference interpreter to check the engine against.
package progen

import (
	"golang.org/x/exp/rand"

	"github.com/colorfulnotion/avacore/isa"
	"github.com/colorfulnotion/avacore/log"
	"github.com/colorfulnotion/avacore/program"
)

type Options struct {
	Instructions int  // number of instructions to emit
	MaxDepth     int  // bound on the operand stack depth, 0 means isa.STACK_N
	WideImm      bool // allow full 16-bit immediates, not only 0..9
	IllegalTail  bool // end the image with a byte outside the opcode table
}

// DefaultOptions is what `avacore gen` uses without flags.
var DefaultOptions = Options{Instructions: 16, MaxDepth: isa.STACK_N}

type Generator struct {
	r    *rand.Rand
	opts Options
}

func New(seed uint64, opts Options) *Generator {
	if opts.MaxDepth <= 0 || opts.MaxDepth > isa.STACK_N {
		opts.MaxDepth = isa.STACK_N
	}
	return &Generator{r: rand.New(rand.NewSource(seed)), opts: opts}
}

// Generate is New(seed, opts).Program().
func Generate(seed uint64, opts Options) *program.Program {
	return New(seed, opts).Program()
}

// Program emits one image. Every pop is preceded by enough pushes, the
// depth never exceeds MaxDepth and slots are only read after a write.
func (g *Generator) Program() *program.Program {
	var (
		code    []byte
		depth   int
		written [isa.SLOT_N]bool
		nslots  int
		choices = make([]byte, 0, 8)
	)
	for i := 0; i < g.opts.Instructions; i++ {
		choices = choices[:0]
		for _, op := range isa.Opcodes() {
			if !g.fits(op, depth, nslots) {
				continue
			}
			choices = append(choices, op)
			if op == isa.PUSH_IMM_INTEGER {
				choices = append(choices, op)
			}
		}

		op := choices[g.r.Intn(len(choices))]
		code = append(code, op)
		switch op {
		case isa.PUSH_IMM_INTEGER:
			imm := uint16(g.r.Intn(10))
			if g.opts.WideImm && g.r.Intn(4) == 0 {
				imm = uint16(g.r.Uint32())
			}
			code = append(code, byte(imm), byte(imm>>8))
		case isa.PUSH_VARIABLE:
			code = append(code, g.writtenSlot(written))
		case isa.LET:
			s := byte(g.r.Intn(isa.SLOT_N))
			if !written[s] {
				written[s] = true
				nslots++
			}
			code = append(code, s)
		}
		pops, pushes := isa.StackEffect(op)
		depth += pushes - pops
	}
	if g.opts.IllegalTail {
		code = append(code, g.illegalByte())
	}
	log.Trace(log.ProgenMonitoring, "generated", "bytes", len(code), "depth", depth)
	return program.New(code)
}

// fits reports whether op can be emitted at the given depth without
// underflowing the stack or growing it past MaxDepth.
func (g *Generator) fits(op byte, depth, nslots int) bool {
	if op == isa.PUSH_VARIABLE && nslots == 0 {
		return false
	}
	pops, pushes := isa.StackEffect(op)
	if depth < pops {
		return false
	}
	return pushes == 0 || depth-pops+pushes <= g.opts.MaxDepth
}

func (g *Generator) writtenSlot(written [isa.SLOT_N]bool) byte {
	for {
		s := g.r.Intn(isa.SLOT_N)
		if written[s] {
			return byte(s)
		}
	}
}

func (g *Generator) illegalByte() byte {
	for {
		b := byte(g.r.Intn(256))
		if !isa.IsValid(b) {
			return b
		}
	}
}
