package sched

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cs-emu/csopesy/config"
	"github.com/cs-emu/csopesy/instr"
	"github.com/cs-emu/csopesy/interp"
	"github.com/cs-emu/csopesy/mem"
	"github.com/cs-emu/csopesy/proc"
)

// System owns every moving part of one scheduler run: the tick clock, the
// process table, the memory manager, the dispatcher, one Worker per core,
// and the batch-process generator. It replaces the global mutable state in
// original_source/process.cpp (g_cpu_ticks, g_ready_queue, the thread
// handles themselves) with a single value whose lifetime is exactly one
// scheduler-start/scheduler-stop cycle (spec §9's design note).
type System struct {
	cfg    *config.Config
	mgr    mem.Manager
	clock  *Clock
	table  *Table
	interp *interp.Interpreter
	stats  *Stats

	enableSleep bool
	enableFor   bool

	genCounter atomic.Int64

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	group   *errgroup.Group
}

// Option configures a System at construction time.
type Option func(*System)

// WithSleepEnabled toggles whether the instruction generator (batch
// processes and NextInstruction fallback) may emit SLEEP.
func WithSleepEnabled(enabled bool) Option {
	return func(s *System) { s.enableSleep = enabled }
}

// WithForEnabled toggles whether the instruction generator may emit FOR.
func WithForEnabled(enabled bool) Option {
	return func(s *System) { s.enableFor = enabled }
}

// WithTable overrides the Table a System builds for itself. A caller that
// constructs a mem.Paging manager needs a mem.LivenessChecker (spec §4.3's
// liveness guard) before System exists to hand one out, so it builds the
// Table first with sched.NewTable, wires it into mem.NewPaging, and passes
// it back in here to make sure the manager and the System agree on who's
// running.
func WithTable(t *Table) Option {
	return func(s *System) { s.table = t }
}

// New builds a System around cfg and mgr. The caller is responsible for
// choosing mgr (mem.Contiguous or mem.Paging) according to spec §4.2/§4.3's
// mutual-exclusion rule before calling New.
func New(cfg *config.Config, mgr mem.Manager, opts ...Option) *System {
	s := &System{
		cfg:    cfg,
		mgr:    mgr,
		clock:  NewClock(),
		interp: interp.New(mgr, interp.WithDelayPerExec(TickDuration)),
		stats:  &Stats{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.table == nil {
		s.table = NewTable(cfg.NumCPU)
	}
	return s
}

// Table, Stats, and Config expose the System's internals to the operator
// console's reporters (process-smi, vmstat, screen -ls, report-util),
// which only ever read, never drive scheduling directly.
func (s *System) Table() *Table          { return s.table }
func (s *System) Stats() *Stats          { return s.stats }
func (s *System) Config() *config.Config { return s.cfg }
func (s *System) Manager() mem.Manager   { return s.mgr }
func (s *System) Clock() *Clock          { return s.clock }

// Running reports whether a scheduler-start is currently active.
func (s *System) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Submit registers and enqueues a new process, as both `screen -s` and the
// batch generator do. Returns false if the name is already taken.
func (s *System) Submit(p *proc.PCB) bool {
	if !s.table.Register(p) {
		return false
	}
	s.table.Enqueue(p)
	return true
}

// Start launches the clock, the dispatcher, cfg.NumCPU workers, and (if
// cfg.BatchProcessFreq > 0) the batch generator, all supervised by one
// errgroup, mirroring original_source/process.cpp's set of joined threads
// (tick_generator_thread, schedulerThread, the per-core worker threads,
// and the batch generator thread started by `scheduler-start`). Start
// returns an error if the scheduler is already running.
func (s *System) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sched: scheduler already running")
	}
	s.clock.Reset()
	s.stop = make(chan struct{})
	stop := s.stop
	group, ctx := errgroup.WithContext(context.Background())
	s.group = group
	s.running = true
	s.mu.Unlock()

	group.Go(func() error {
		s.clock.Run()
		return nil
	})

	dispatcher := NewDispatcher(s.table, s.mgr, s.cfg)
	group.Go(func() error {
		dispatcher.Run(stop)
		return nil
	})

	for core := 0; core < s.cfg.NumCPU; core++ {
		worker := NewWorker(core, s.table, s.mgr, s.clock, s.interp, s.cfg, s.stats, s.enableSleep, s.enableFor)
		group.Go(func() error {
			worker.Run(stop)
			return nil
		})
	}

	if s.cfg.BatchProcessFreq > 0 {
		group.Go(func() error {
			return s.runGenerator(ctx, stop)
		})
	}

	return nil
}

// Stop signals every goroutine started by Start to exit, waits for them,
// frees memory still held by any running PCB, and clears the ready, running
// and finished lists so a subsequent Start begins clean. Stop is a no-op if the
// scheduler isn't running. It mirrors original_source/process.cpp's
// stopAndResetScheduler: set the stop flag, broadcast the tick condition,
// join every thread, then reset shared state.
func (s *System) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	stop, group := s.stop, s.group
	s.mu.Unlock()

	close(stop)
	s.clock.Stop()
	_ = group.Wait()

	for _, p := range s.table.RunningSnapshot() {
		if p == nil {
			continue
		}
		s.mgr.Deallocate(p)
		p.SetMemoryBound(false)
	}
	s.table.Reset()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// runGenerator creates a fresh batch of PCBs roughly once per second while
// the scheduler runs, the Go equivalent of
// original_source/process.cpp's tick_generator_thread-adjacent batch
// process creation loop. Unlike the original, which names batch processes
// after the screen session that issued `scheduler-start`, this redesigned
// console issues scheduler-start as a flat top-level command (spec §6), so
// generated processes are named from an internal counter instead.
func (s *System) runGenerator(ctx context.Context, stop <-chan struct{}) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for i := 0; i < s.cfg.BatchProcessFreq; i++ {
				s.spawnGenerated(rng)
			}
		}
	}
}

// spawnGenerated builds one randomized PCB within cfg's instruction-count
// and memory-requirement bounds and submits it. Memory requirement is
// rounded up to the nearest power of two in [64, 65536], matching the
// constraint spec §3 places on every PCB regardless of how it was created.
func (s *System) spawnGenerated(rng *rand.Rand) {
	id := int(s.genCounter.Add(1))
	name := fmt.Sprintf("process_%02d", id)

	count := s.cfg.MinIns
	if s.cfg.MaxIns > s.cfg.MinIns {
		count += rng.Intn(s.cfg.MaxIns - s.cfg.MinIns + 1)
	}

	memReq := roundToPowerOfTwo(randBetween(rng, s.cfg.MinMemPerProc, s.cfg.MaxMemPerProc))

	lines := instr.Generate(rng, name, count, s.enableSleep, s.enableFor)
	p := proc.New(id, name, len(lines), memReq, lines)
	s.Submit(p)
}

func randBetween(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

// roundToPowerOfTwo clamps n into [64, 65536] and rounds it up to the
// nearest power of two, the same bound `screen -s` enforces on an
// operator-supplied memory requirement (spec §6).
func roundToPowerOfTwo(n int) int {
	const min, max = 64, 65536
	if n < min {
		n = min
	}
	if n > max {
		n = max
	}
	p := min
	for p < n {
		p <<= 1
	}
	return p
}
