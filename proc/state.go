// Package proc defines the process control block, its bounded per-process
// symbol table, and the states a PCB moves through (spec §3).
package proc

// State is the lifecycle stage of a PCB. A PCB belongs to exactly one of
// the ready queue, a running slot, the finished list, or the cancelled
// list at any instant - the state field and the table that holds the PCB
// are kept in lockstep by sched.Table.
type State int

const (
	// Ready means the PCB is waiting in the ready queue for a core.
	Ready State = iota
	// Running means the PCB occupies a core's running slot.
	Running
	// Finished means the PCB executed all its instructions.
	Finished
	// Cancelled means a memory access violation terminated the PCB early.
	Cancelled
)

// String renders the state the way the reporters print it.
func (s State) String() string {
	switch s {
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Finished:
		return "FINISHED"
	case Cancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}
