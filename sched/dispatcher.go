package sched

import (
	"time"

	"github.com/cs-emu/csopesy/config"
	"github.com/cs-emu/csopesy/mem"
	"github.com/cs-emu/csopesy/proc"
)

// dispatcherPollIdle and dispatcherPollRetry mirror the 100ms/50ms sleeps
// in original_source/process.cpp's schedulerThread.
const (
	dispatcherPollIdle  = 100 * time.Millisecond
	dispatcherPollRetry = 50 * time.Millisecond
)

// Dispatcher is the single task that binds ready PCBs to free cores,
// grounded on original_source/process.cpp's schedulerThread.
type Dispatcher struct {
	table *Table
	mgr   mem.Manager
	cfg   *config.Config
}

// NewDispatcher builds a Dispatcher over table and mgr, reading the
// scheduler kind and quantum from cfg.
func NewDispatcher(table *Table, mgr mem.Manager, cfg *config.Config) *Dispatcher {
	return &Dispatcher{table: table, mgr: mgr, cfg: cfg}
}

// Run pops ready PCBs and binds them to cores until stop is closed (spec
// §4.5).
func (d *Dispatcher) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		// Only pop the head once a core is free, so a busy core never sends
		// the head to the tail and the ready queue stays FIFO.
		free := false
		for _, slot := range d.table.RunningSnapshot() {
			if slot == nil {
				free = true
				break
			}
		}
		if !free {
			sleepOrStop(stop, dispatcherPollRetry)
			continue
		}

		p, ok := d.table.Dequeue()
		if !ok {
			sleepOrStop(stop, dispatcherPollIdle)
			continue
		}

		if !d.tryBind(p) {
			d.table.Enqueue(p)
			sleepOrStop(stop, dispatcherPollRetry)
		}
	}
}

// tryBind allocates memory for p if it doesn't already hold an
// allocation (a quantum-expired RR process keeps its memory across
// re-dispatch), then places it in the lowest free core slot.
func (d *Dispatcher) tryBind(p *proc.PCB) bool {
	if !p.HasMemory() {
		if !d.mgr.Allocate(p) {
			return false
		}
		p.SetMemoryBound(true)
	}

	quantum := 0
	if d.cfg.SchedulerKind == config.RoundRobin {
		quantum = d.cfg.QuantumCycles
	}
	return d.table.Bind(p, quantum)
}
