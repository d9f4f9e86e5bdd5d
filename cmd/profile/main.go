// Package main provides a profiling wrapper for the scheduler emulator, to
// identify bottlenecks in the dispatcher/worker/clock goroutine set without
// the interactive console attached.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime/pprof"
	"time"

	"github.com/cs-emu/csopesy/config"
	"github.com/cs-emu/csopesy/instr"
	"github.com/cs-emu/csopesy/mem"
	"github.com/cs-emu/csopesy/proc"
	"github.com/cs-emu/csopesy/sched"
)

var (
	configPath = flag.String("config", "config.txt", "path to config.txt")
	cpuProfile = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile = flag.String("memprofile", "", "write memory profile to file")
	duration   = flag.Duration("duration", 10*time.Second, "how long to run the scheduler before stopping")
	processes  = flag.Int("processes", 50, "number of processes to submit before starting the scheduler")
)

func main() {
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	for _, w := range cfg.Warnings() {
		fmt.Fprintf(os.Stderr, "config warning: %s\n", w)
	}

	mgr, table := buildManager(cfg)
	sys := sched.New(cfg, mgr, sched.WithTable(table))

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < *processes; i++ {
		name := fmt.Sprintf("profile_%03d", i)
		count := cfg.MinIns
		if cfg.MaxIns > cfg.MinIns {
			count += rng.Intn(cfg.MaxIns - cfg.MinIns + 1)
		}
		lines := instr.Generate(rng, name, count, false, false)
		p := proc.New(i, name, len(lines), cfg.MinMemPerProc, lines)
		sys.Submit(p)
	}

	fmt.Printf("Submitted %d processes, running for %v...\n", *processes, *duration)

	start := time.Now()
	if err := sys.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "error starting scheduler: %v\n", err)
		os.Exit(1)
	}
	time.Sleep(*duration)
	// Stop empties the ready, running and finished lists, so read them first.
	finished := len(sys.Table().Finished())
	pending := sys.Table().ReadyLen()
	for _, p := range sys.Table().RunningSnapshot() {
		if p != nil {
			pending++
		}
	}
	sys.Stop()
	elapsed := time.Since(start)

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "error writing memory profile: %v\n", err)
		}
	}

	total, idle, active := sys.Stats().Snapshot()
	cancelled := len(sys.Table().Cancelled())

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Elapsed wall time: %v\n", elapsed)
	fmt.Printf("Ticks observed: %d (idle %d, active %d)\n", total, idle, active)
	fmt.Printf("Finished: %d  Cancelled: %d  Still ready/running: %d\n",
		finished, cancelled, pending)
}

// buildManager picks contiguous or paged memory per cfg and, for paging,
// builds the Table it hands back up front so the manager's liveness guard
// and the System's running-slot bookkeeping share one source of truth.
func buildManager(cfg *config.Config) (mem.Manager, *sched.Table) {
	if cfg.MemPerFrame >= cfg.MaxOverallMem {
		return mem.NewContiguous(cfg.MaxOverallMem, cfg.MinMemPerProc), nil
	}
	backing := mem.NewBackingStore("csopesy-backing-store.txt")
	table := sched.NewTable(cfg.NumCPU)
	return mem.NewPaging(cfg.MaxOverallMem, cfg.MemPerFrame, backing, table), table
}
