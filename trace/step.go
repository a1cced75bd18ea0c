// Package trace records what the engine does on every cycle and keeps those
// records in JSON Lines files or a LevelDB store.
package trace

import "fmt"

// Step is the record of one engine cycle.
type Step struct {
	Cycle     uint64 `json:"cycle"`
	State     string `json:"state"`
	NextState string `json:"nextState"`
	PC        int    `json:"pc"`
	Fetch     *uint8 `json:"fetch,omitempty"` // byte presented at pc, absent past the end
	Action    string `json:"action"`
	Stall     bool   `json:"stall,omitempty"`
	Depth     int    `json:"depth"`
	Output    *uint8 `json:"output,omitempty"` // byte accepted by the output channel this cycle
	Halt      string `json:"halt,omitempty"`
	Fault     string `json:"fault,omitempty"`
}

// String renders the step in the engine's log line format.
func (s *Step) String() string {
	fetch := "--"
	if s.Fetch != nil {
		fetch = fmt.Sprintf("%02x", *s.Fetch)
	}
	return fmt.Sprintf("%6d pc=%02x i$=%s %18s |> %s", s.Cycle, s.PC, fetch, s.State, s.Action)
}

// Sink receives steps as they are produced.
type Sink interface {
	WriteStep(step *Step) error
}

// Recorder keeps every step in memory.
type Recorder struct {
	Steps []Step
}

func (r *Recorder) WriteStep(step *Step) error {
	r.Steps = append(r.Steps, *step)
	return nil
}

type tee []Sink

// Tee fans a step out to several sinks, returning the first error.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

func (t tee) WriteStep(step *Step) error {
	var first error
	for _, s := range t {
		if err := s.WriteStep(step); err != nil && first == nil {
			first = err
		}
	}
	return first
}
