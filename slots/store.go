// Package slots implements the slot store: a fixed array of items with a
// registered read port (data appears after the next clock edge) and a write
// port that commits on the edge of the cycle its enable is asserted.
package slots

import (
	"fmt"

	"github.com/colorfulnotion/avacore/avaerrors"
	"github.com/colorfulnotion/avacore/isa"
	"github.com/colorfulnotion/avacore/log"
)

type Store struct {
	mem     [isa.SLOT_N]isa.Item
	written [isa.SLOT_N]bool

	// read port
	raddr uint8
	rdata isa.Item

	// write port, valid for the current cycle only
	wen   bool
	waddr uint8
	wdata isa.Item

	Reads  int
	Writes int
}

func New() *Store {
	return &Store{}
}

// CheckAddr returns ErrFSlotRange when addr does not name a slot.
func CheckAddr(addr uint8) error {
	if int(addr) >= isa.SLOT_N {
		return fmt.Errorf("slot %d of %d: %w", addr, isa.SLOT_N, avaerrors.ErrFSlotRange)
	}
	return nil
}

// Read drives the read address. Data() reflects it after the next Tick.
func (s *Store) Read(addr uint8) error {
	if err := CheckAddr(addr); err != nil {
		return err
	}
	if !s.written[addr] {
		log.Warn(log.SlotMonitoring, "read of uninitialized slot", "slot", addr)
	}
	s.raddr = addr
	s.Reads++
	return nil
}

// Write drives the write port for this cycle.
func (s *Store) Write(addr uint8, data isa.Item, en bool) error {
	if !en {
		s.wen = false
		return nil
	}
	if err := CheckAddr(addr); err != nil {
		return err
	}
	s.wen, s.waddr, s.wdata = true, addr, data
	return nil
}

// Data returns the value latched by the read port on the last edge.
func (s *Store) Data() isa.Item {
	return s.rdata
}

// Tick is the clock edge. The read port samples before the write commits.
func (s *Store) Tick() {
	s.rdata = s.mem[s.raddr]
	if s.wen {
		s.mem[s.waddr] = s.wdata
		s.written[s.waddr] = true
		s.Writes++
		log.Debug(log.SlotMonitoring, "slot write", "slot", s.waddr, "value", fmt.Sprintf("%#x", uint32(s.wdata)))
		s.wen = false
	}
}

// Peek reads a slot without latency. The second result is false when the
// slot has never been written.
func (s *Store) Peek(addr uint8) (isa.Item, bool) {
	if int(addr) >= isa.SLOT_N {
		return 0, false
	}
	return s.mem[addr], s.written[addr]
}

// Written reports whether addr has been written since construction.
func (s *Store) Written(addr uint8) bool {
	return int(addr) < isa.SLOT_N && s.written[addr]
}

// Snapshot returns a copy of all slots.
func (s *Store) Snapshot() [isa.SLOT_N]isa.Item {
	return s.mem
}
