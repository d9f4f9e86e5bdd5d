// Command loadgen drives a headless sched.System for a configured
// duration with the batch generator enabled and reports throughput,
// adapted from the teacher's cmd/benchmark harness (SPEC_FULL.md's
// supplemented "Stress-test / load-generation CLI").
//
// Usage:
//
//	go run ./cmd/loadgen [flags]
//
// Flags:
//
//	-config    path to config.txt (default "config.txt")
//	-duration  how long to run before stopping (default 10s)
//	-csv       output results in CSV format (default: human-readable)
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cs-emu/csopesy/config"
	"github.com/cs-emu/csopesy/mem"
	"github.com/cs-emu/csopesy/sched"
)

func main() {
	configPath := flag.String("config", "config.txt", "path to config.txt")
	duration := flag.Duration("duration", 10*time.Second, "how long to run before stopping")
	csvOutput := flag.Bool("csv", false, "output results in CSV format")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loadgen: %v\n", err)
		os.Exit(1)
	}

	table := sched.NewTable(cfg.NumCPU)
	var mgr mem.Manager
	if cfg.MemPerFrame >= cfg.MaxOverallMem {
		mgr = mem.NewContiguous(cfg.MaxOverallMem, cfg.MinMemPerProc)
	} else {
		backing := mem.NewBackingStore("csopesy-backing-store.txt")
		mgr = mem.NewPaging(cfg.MaxOverallMem, cfg.MemPerFrame, backing, table)
	}

	sys := sched.New(cfg, mgr, sched.WithTable(table))

	if !*csvOutput {
		fmt.Println("CSOPESY-GO Load Generator")
		fmt.Println("=========================")
		fmt.Printf("num-cpu=%d scheduler=%s batch-process-freq=%d duration=%v\n",
			cfg.NumCPU, cfg.SchedulerKind, cfg.BatchProcessFreq, *duration)
		fmt.Println("")
	}

	if err := sys.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "loadgen: %v\n", err)
		os.Exit(1)
	}
	time.Sleep(*duration)
	// Stop empties the ready and finished lists, so read them first.
	finished := len(sys.Table().Finished())
	ready := sys.Table().ReadyLen()
	sys.Stop()

	total, idle, active := sys.Stats().Snapshot()
	cancelled := len(sys.Table().Cancelled())

	var utilization float64
	if total > 0 {
		utilization = float64(active) / float64(total) * 100.0
	}

	if *csvOutput {
		fmt.Println("metric,value")
		fmt.Printf("elapsed_seconds,%.3f\n", duration.Seconds())
		fmt.Printf("ticks_total,%d\n", total)
		fmt.Printf("ticks_idle,%d\n", idle)
		fmt.Printf("ticks_active,%d\n", active)
		fmt.Printf("cpu_utilization_pct,%.2f\n", utilization)
		fmt.Printf("finished,%d\n", finished)
		fmt.Printf("cancelled,%d\n", cancelled)
		fmt.Printf("still_ready,%d\n", ready)
		return
	}

	fmt.Println("=== Results ===")
	fmt.Printf("Ticks:        total=%d idle=%d active=%d\n", total, idle, active)
	fmt.Printf("CPU utilization: %.2f%%\n", utilization)
	fmt.Printf("Finished:     %d\n", finished)
	fmt.Printf("Cancelled:    %d\n", cancelled)
	fmt.Printf("Still ready:  %d\n", ready)
}
