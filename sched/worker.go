package sched

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/cs-emu/csopesy/config"
	"github.com/cs-emu/csopesy/instr"
	"github.com/cs-emu/csopesy/interp"
	"github.com/cs-emu/csopesy/mem"
	"github.com/cs-emu/csopesy/proc"
)

// workerPollIdle mirrors the 100ms/10ms idle-core sleeps in
// original_source/process.cpp's fcfs_worker_thread/rr_worker_thread.
const workerPollIdle = 10 * time.Millisecond

// memorySnapshotDir is where RR-quantum-expiry memory snapshots land
// (spec §6: "memory_snapshots/memory_stamp_<core>_<n>.txt").
const memorySnapshotDir = "memory_snapshots"

// Worker drives one core's running slot. FCFS and RR share every step but
// the quantum bookkeeping, so one type serves both, branching on
// cfg.SchedulerKind exactly where original_source's two worker functions
// diverge.
type Worker struct {
	coreID int
	table  *Table
	mgr    mem.Manager
	clock  *Clock
	interp *interp.Interpreter
	cfg    *config.Config
	rng    *rand.Rand

	enableSleep bool
	enableFor   bool

	stats *Stats

	// snapshotCount numbers this core's RR-quantum-expiry snapshots, so
	// successive files don't collide (spec §4.8).
	snapshotCount int
}

// NewWorker builds the worker for core coreID.
func NewWorker(
	coreID int,
	table *Table,
	mgr mem.Manager,
	clock *Clock,
	interpreter *interp.Interpreter,
	cfg *config.Config,
	stats *Stats,
	enableSleep, enableFor bool,
) *Worker {
	return &Worker{
		coreID:      coreID,
		table:       table,
		mgr:         mgr,
		clock:       clock,
		interp:      interpreter,
		cfg:         cfg,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano() + int64(coreID))),
		enableSleep: enableSleep,
		enableFor:   enableFor,
		stats:       stats,
	}
}

// Run services this core's running slot until stop is closed (spec §4.6).
func (w *Worker) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		p := w.table.Running(w.coreID)
		if p == nil {
			w.stats.BumpIdle()
			sleepOrStop(stop, workerPollIdle)
			continue
		}
		w.stats.BumpActive()

		if !w.waitDelay(stop) {
			return
		}

		text, ok := p.NextInstruction()
		if !ok {
			text = instr.Generate(w.rng, p.Name, 1, w.enableSleep, w.enableFor)[0]
		}

		if err := w.interp.Execute(p, text); err != nil {
			var verr *mem.ViolationError
			if errors.As(err, &verr) {
				w.cancel(p, verr)
				continue
			}
			// A malformed custom instruction line doesn't crash the
			// worker or the process; it's simply not counted as executed.
		} else {
			p.IncrementExecuted()
		}

		if w.cfg.SchedulerKind == config.RoundRobin {
			p.RemainingQuantum--
		}

		switch {
		case p.Done():
			w.finish(p)
		case w.cfg.SchedulerKind == config.RoundRobin && p.RemainingQuantum <= 0:
			w.table.RequeueAt(w.coreID)
			w.snapshot()
		}
	}
}

// waitDelay blocks for cfg.DelayPerExec ticks, and for one tick when it is
// 0 (an instruction every tick), returning false if stop fired during the
// wait.
func (w *Worker) waitDelay(stop <-chan struct{}) bool {
	ticks := w.cfg.DelayPerExec
	if ticks < 1 {
		ticks = 1
	}
	for t := 0; t < ticks; t++ {
		select {
		case <-stop:
			return false
		default:
		}
		last := w.clock.Current()
		if !w.clock.WaitPast(last) {
			return false
		}
	}
	return true
}

func (w *Worker) finish(p *proc.PCB) {
	w.mgr.Deallocate(p)
	p.SetMemoryBound(false)
	w.table.FinishAt(w.coreID)
}

func (w *Worker) cancel(p *proc.PCB, verr *mem.ViolationError) {
	w.mgr.Deallocate(p)
	p.SetMemoryBound(false)
	w.table.CancelAt(w.coreID, verr.AddressLiteral)

	if rec, ok := w.table.CancellationFor(p.Name); ok {
		appendViolationLogs(rec)
	}
}

// violationLogPath and legacyViolationLogPath are the two on-disk
// violation records spec §6 names: a timestamped detail log and a
// minimal compat line ("process <name> violation error") matching
// original_source's older log.txt format.
const (
	violationLogPath       = "memory-violation-log.txt"
	legacyViolationLogPath = "log.txt"
)

// appendViolationLogs appends rec's line to both violation log files.
// Failures here are diagnostics-only, per spec §7's propagation policy
// (only a memory-invariant failure or fatal I/O ends the program).
func appendViolationLogs(rec CancellationRecord) {
	appendLine(violationLogPath, violationLogLine(rec))
	appendLine(legacyViolationLogPath, legacyViolationLine(rec))
}

func appendLine(path, line string) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()
	_, _ = f.WriteString(line)
}

// snapshot writes a memory map after an RR quantum expires on this core,
// per spec §4.8's "memory snapshot... emitted on RR quantum expiry". A
// failure to create the memory_snapshots directory or write the file is
// not fatal to the scheduler; it's a diagnostics-only path.
func (w *Worker) snapshot() {
	if err := os.MkdirAll(memorySnapshotDir, 0o755); err != nil {
		return
	}
	path := filepath.Join(memorySnapshotDir, fmt.Sprintf("memory_stamp_%d_%d.txt", w.coreID, w.snapshotCount))
	w.snapshotCount++
	_ = w.mgr.Snapshot(path)
}
