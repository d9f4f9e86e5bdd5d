// Package mem implements the two mutually exclusive memory managers spec
// §4.2/§4.3 describes: first-fit contiguous allocation and demand-paged
// virtual memory with LRU frame replacement. Both implement Manager so
// sched.System can use either without the scheduler knowing which.
package mem

import (
	"fmt"

	"github.com/cs-emu/csopesy/proc"
)

// Manager is the memory subsystem interface the scheduler and interpreter
// depend on. Exactly one concrete implementation (Contiguous or Paging) is
// active for the life of a sched.System, selected by whether mem-per-frame
// equals max-overall-mem (spec treats paging and contiguous as mutually
// exclusive modes of one configuration).
type Manager interface {
	// Allocate reserves memory for p. It returns false on refusal (spec
	// §4.2/§4.3): the dispatcher re-queues p and tries again later.
	Allocate(p *proc.PCB) bool
	// Deallocate releases everything p owns. Safe to call on a PCB that
	// was never successfully allocated.
	Deallocate(p *proc.PCB)
	// Read loads the 16-bit cell at the process-virtual byte address addr.
	Read(p *proc.PCB, addr int) (uint16, error)
	// Write stores value at the process-virtual byte address addr.
	Write(p *proc.PCB, addr int, value uint16) error
	// Snapshot writes a textual memory map to filename.
	Snapshot(filename string) error
	// UsedBytes and TotalBytes back the vmstat/process-smi reporters.
	UsedBytes() int
	TotalBytes() int
}

// ViolationError is raised by Read/Write on an invalid virtual address,
// and by a paging deadlock escalating per spec §7 item 6. It replaces the
// original emulator's thrown exception with an explicit result the worker
// matches on (spec §9 design note on exceptions-as-control-flow).
type ViolationError struct {
	// AddressLiteral is the offending address exactly as the instruction
	// spelled it (e.g. "0x1000"), for the operator-facing message in
	// spec §6's `screen -r` output.
	AddressLiteral string
	// Cause is set when a lower-level error escalated into this violation,
	// e.g. Paging's ErrDeadlock. Nil for an ordinary out-of-bounds access.
	Cause error
}

func (e *ViolationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s invalid: %s", e.AddressLiteral, e.Cause)
	}
	return fmt.Sprintf("%s invalid", e.AddressLiteral)
}

func (e *ViolationError) Unwrap() error { return e.Cause }

// IsEven reports whether addr is a valid cell-aligned virtual address
// offset (spec §4.7: "is even").
func IsEven(addr int) bool {
	return addr%2 == 0
}
