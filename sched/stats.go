package sched

import "sync/atomic"

// Stats holds the multi-writer CPU-tick counters spec §3 names: one bump
// per worker loop pass (idle when its core has no running PCB, active
// otherwise). Page-in/page-out counts are kept by mem.Paging (Paging.Stats).
type Stats struct {
	idleCPUTicks   atomic.Uint64
	activeCPUTicks atomic.Uint64
}

// BumpIdle records one pass of a worker whose core was unoccupied.
func (s *Stats) BumpIdle() { s.idleCPUTicks.Add(1) }

// BumpActive records one pass of a worker whose core was occupied.
func (s *Stats) BumpActive() { s.activeCPUTicks.Add(1) }

// Snapshot reports the running totals: total, idle, active CPU ticks.
func (s *Stats) Snapshot() (total, idle, active uint64) {
	idle = s.idleCPUTicks.Load()
	active = s.activeCPUTicks.Load()
	return idle + active, idle, active
}
