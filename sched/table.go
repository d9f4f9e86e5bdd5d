package sched

import (
	"sort"
	"sync"
	"time"

	"github.com/cs-emu/csopesy/proc"
)

// FinishedCap bounds how many finished PCBs the table keeps, discarding
// the oldest once full, to keep reporting cheap (spec §4.6).
const FinishedCap = 100

// CancellationRecord captures why and when a process was terminated by a
// memory access violation (spec §4.4).
type CancellationRecord struct {
	PCB              *proc.PCB
	WallTimestamp    time.Time
	OffendingAddress string
}

// Table owns every PCB ever created and the four lists spec §3 requires:
// ready queue, running slots, finished list, cancelled list. Lock
// granularity follows spec §5's shared-resource policy: one lock for the
// ready queue, one for running+finished (they transition together), one
// for cancelled. A separate registry lock guards name lookup, since
// `screen -r`/`screen -s` need it independent of scheduling activity.
//
// Every list stores *proc.PCB pointers rather than values, so unlike the
// raw pointers into a growable vector<PCB> in the original (spec §9's
// design note), moving a PCB between lists never invalidates a reference
// held elsewhere: Go pointers to heap-allocated PCBs are stable for the
// PCB's lifetime regardless of how any slice around them reallocates.
type Table struct {
	readyMu sync.Mutex
	ready   []*proc.PCB

	runFinMu sync.Mutex
	running  []*proc.PCB // length numCPU; nil entry means the core is idle
	finished []*proc.PCB

	cancelledMu sync.Mutex
	cancelled   []CancellationRecord

	registryMu sync.Mutex
	registry   map[string]*proc.PCB
}

// NewTable creates a Table with numCPU running slots, all empty.
func NewTable(numCPU int) *Table {
	return &Table{
		running:  make([]*proc.PCB, numCPU),
		registry: make(map[string]*proc.PCB),
	}
}

// Register adds p to the name registry. Returns false if the name is
// already taken.
func (t *Table) Register(p *proc.PCB) bool {
	t.registryMu.Lock()
	defer t.registryMu.Unlock()
	if _, exists := t.registry[p.Name]; exists {
		return false
	}
	t.registry[p.Name] = p
	return true
}

// Lookup finds a registered PCB by name.
func (t *Table) Lookup(name string) (*proc.PCB, bool) {
	t.registryMu.Lock()
	defer t.registryMu.Unlock()
	p, ok := t.registry[name]
	return p, ok
}

// Enqueue appends p to the tail of the ready queue and marks it Ready.
func (t *Table) Enqueue(p *proc.PCB) {
	p.SetState(proc.Ready)
	t.readyMu.Lock()
	t.ready = append(t.ready, p)
	t.readyMu.Unlock()
}

// Dequeue pops the head of the ready queue.
func (t *Table) Dequeue() (*proc.PCB, bool) {
	t.readyMu.Lock()
	defer t.readyMu.Unlock()
	if len(t.ready) == 0 {
		return nil, false
	}
	p := t.ready[0]
	t.ready = t.ready[1:]
	return p, true
}

// ReadyLen reports the ready queue's current depth.
func (t *Table) ReadyLen() int {
	t.readyMu.Lock()
	defer t.readyMu.Unlock()
	return len(t.ready)
}

// Bind places p into the lowest-index free running slot, setting state
// Running and the quantum (0 for FCFS, since workers only consult it
// under RoundRobin). Returns false if every slot is occupied.
func (t *Table) Bind(p *proc.PCB, quantum int) bool {
	t.runFinMu.Lock()
	defer t.runFinMu.Unlock()
	for i, slot := range t.running {
		if slot != nil {
			continue
		}
		p.SetState(proc.Running)
		p.CoreID = i
		p.RemainingQuantum = quantum
		t.running[i] = p
		return true
	}
	return false
}

// Running returns the PCB bound to coreID, or nil if the core is idle.
func (t *Table) Running(coreID int) *proc.PCB {
	t.runFinMu.Lock()
	defer t.runFinMu.Unlock()
	return t.running[coreID]
}

// IsRunning implements mem.LivenessChecker: true if a PCB with this name
// currently occupies a running slot.
func (t *Table) IsRunning(name string) bool {
	t.runFinMu.Lock()
	defer t.runFinMu.Unlock()
	for _, p := range t.running {
		if p != nil && p.Name == name {
			return true
		}
	}
	return false
}

// FinishAt clears coreID's slot and appends its former occupant to the
// finished list, capped at FinishedCap.
func (t *Table) FinishAt(coreID int) {
	t.runFinMu.Lock()
	defer t.runFinMu.Unlock()
	p := t.running[coreID]
	if p == nil {
		return
	}
	p.SetState(proc.Finished)
	t.running[coreID] = nil
	t.finished = append(t.finished, p)
	if len(t.finished) > FinishedCap {
		t.finished = t.finished[len(t.finished)-FinishedCap:]
	}
}

// RequeueAt clears coreID's slot, resets the occupant to Ready, and
// pushes it to the ready queue's tail (RR quantum expiry).
func (t *Table) RequeueAt(coreID int) {
	t.runFinMu.Lock()
	p := t.running[coreID]
	t.running[coreID] = nil
	t.runFinMu.Unlock()
	if p == nil {
		return
	}
	t.Enqueue(p)
}

// CancelAt clears coreID's slot, marks its occupant Cancelled with
// executed forced to total, and appends a cancellation record.
func (t *Table) CancelAt(coreID int, addr string) {
	t.runFinMu.Lock()
	p := t.running[coreID]
	t.running[coreID] = nil
	t.runFinMu.Unlock()
	if p == nil {
		return
	}
	p.SetState(proc.Cancelled)
	p.SetExecuted(int64(p.InstructionsTotal))

	t.cancelledMu.Lock()
	t.cancelled = append(t.cancelled, CancellationRecord{
		PCB:              p,
		WallTimestamp:    time.Now(),
		OffendingAddress: addr,
	})
	t.cancelledMu.Unlock()
}

// CancellationFor returns the most recent cancellation record for name,
// used by `screen -r` to render the violation message.
func (t *Table) CancellationFor(name string) (CancellationRecord, bool) {
	t.cancelledMu.Lock()
	defer t.cancelledMu.Unlock()
	for i := len(t.cancelled) - 1; i >= 0; i-- {
		if t.cancelled[i].PCB.Name == name {
			return t.cancelled[i], true
		}
	}
	return CancellationRecord{}, false
}

// All returns every PCB ever registered, ordered by ID, for process-smi's
// aggregate memory panel (spec §4.8).
func (t *Table) All() []*proc.PCB {
	t.registryMu.Lock()
	defer t.registryMu.Unlock()
	out := make([]*proc.PCB, 0, len(t.registry))
	for _, p := range t.registry {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RunningSnapshot, Finished, and Cancelled return copies for reporters,
// safe to read without further locking.
func (t *Table) RunningSnapshot() []*proc.PCB {
	t.runFinMu.Lock()
	defer t.runFinMu.Unlock()
	out := make([]*proc.PCB, len(t.running))
	copy(out, t.running)
	return out
}

func (t *Table) Finished() []*proc.PCB {
	t.runFinMu.Lock()
	defer t.runFinMu.Unlock()
	out := make([]*proc.PCB, len(t.finished))
	copy(out, t.finished)
	return out
}

func (t *Table) Cancelled() []CancellationRecord {
	t.cancelledMu.Lock()
	defer t.cancelledMu.Unlock()
	out := make([]CancellationRecord, len(t.cancelled))
	copy(out, t.cancelled)
	return out
}

// Reset clears every list (ready, running, finished) for a fresh
// scheduler-start after scheduler-stop. The registry and cancelled list
// are preserved: names stay taken and violation history stays
// inspectable across a restart.
func (t *Table) Reset() {
	t.readyMu.Lock()
	t.ready = nil
	t.readyMu.Unlock()

	t.runFinMu.Lock()
	for i := range t.running {
		t.running[i] = nil
	}
	t.finished = nil
	t.runFinMu.Unlock()
}
