package proc

import (
	"sync"
	"sync/atomic"
	"time"
)

// NoCore is the CoreID value of a PCB that isn't currently bound to a core.
const NoCore = -1

// PCB is a process control block: one synthetic process's complete state.
// Fields that can be read by the reporters while a worker is concurrently
// mutating the PCB (InstructionsExecuted, logs) use atomics or a private
// mutex; everything else is only ever touched by the single worker
// currently running the PCB, per the ownership-exclusivity invariant in
// spec §3.
type PCB struct {
	ID           int
	Name         string
	CreationTime time.Time

	InstructionsTotal int
	// instructionsExecuted is atomic so process-smi/screen -ls can read it
	// without taking the running-lists lock (spec §5 tolerates a
	// one-tick-stale read).
	instructionsExecuted atomic.Int64

	// CoreID is the core index while Running, else NoCore.
	CoreID int
	// RemainingQuantum is meaningful only under round-robin scheduling.
	RemainingQuantum int

	MemoryRequirement int
	// memoryBound records whether the memory manager currently holds an
	// allocation for this PCB, so the dispatcher rebinding a quantum-expired
	// RR process to a core skips re-allocating memory it never gave up.
	memoryBound bool

	Symbols *SymbolTable

	// CustomInstructions, when non-nil, is the fixed instruction sequence
	// a `screen -c` process runs instead of randomly generated ones.
	CustomInstructions []string

	state State

	logsMu sync.Mutex
	logs   []string
}

// New creates a Ready PCB with an empty symbol table and no core assigned.
func New(id int, name string, instructionsTotal, memoryRequirement int, custom []string) *PCB {
	return &PCB{
		ID:                 id,
		Name:               name,
		CreationTime:       time.Now(),
		InstructionsTotal:  instructionsTotal,
		CoreID:             NoCore,
		MemoryRequirement:  memoryRequirement,
		Symbols:            NewSymbolTable(),
		CustomInstructions: custom,
		state:              Ready,
	}
}

// State returns the PCB's current lifecycle state.
func (p *PCB) State() State { return p.state }

// SetState transitions the PCB's lifecycle state. Callers are expected to
// hold whatever table lock governs the list the PCB is moving between
// (sched.Table serializes this).
func (p *PCB) SetState(s State) { p.state = s }

// Executed returns the number of instructions executed so far.
func (p *PCB) Executed() int64 { return p.instructionsExecuted.Load() }

// IncrementExecuted atomically records one more completed instruction.
func (p *PCB) IncrementExecuted() int64 { return p.instructionsExecuted.Add(1) }

// SetExecuted forces the executed counter, used when a memory violation
// cancels a PCB early (spec §4.6 step 5 sets executed = total).
func (p *PCB) SetExecuted(n int64) { p.instructionsExecuted.Store(n) }

// HasMemory reports whether the memory manager currently holds an
// allocation for this PCB.
func (p *PCB) HasMemory() bool { return p.memoryBound }

// SetMemoryBound records the memory manager's allocation state for this
// PCB. Callers toggle it to true right after a successful Allocate and to
// false right after Deallocate.
func (p *PCB) SetMemoryBound(bound bool) { p.memoryBound = bound }

// Done reports whether the PCB has executed every instruction it was
// given.
func (p *PCB) Done() bool {
	return p.instructionsExecuted.Load() >= int64(p.InstructionsTotal)
}

// NextInstruction returns the instruction text the worker should run for
// this step: the next custom instruction if the PCB has a fixed program,
// or an empty string and ok=false when the caller should synthesize one
// at random (spec §4.6 step 3).
func (p *PCB) NextInstruction() (text string, ok bool) {
	if p.CustomInstructions == nil {
		return "", false
	}
	idx := int(p.instructionsExecuted.Load())
	if idx < 0 || idx >= len(p.CustomInstructions) {
		return "", false
	}
	return p.CustomInstructions[idx], true
}

// AppendLog records a PRINT's rendered output. Safe to call concurrently
// with ReadLogs.
func (p *PCB) AppendLog(line string) {
	p.logsMu.Lock()
	defer p.logsMu.Unlock()
	p.logs = append(p.logs, line)
}

// ReadLogs returns a copy of the accumulated PRINT output.
func (p *PCB) ReadLogs() []string {
	p.logsMu.Lock()
	defer p.logsMu.Unlock()
	out := make([]string, len(p.logs))
	copy(out, p.logs)
	return out
}
