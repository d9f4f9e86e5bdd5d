// Package config loads and validates the CSOPESY-GO runtime configuration
// (config.txt): the scheduler policy, core count, and memory geometry that
// sched.System is initialized with.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Scheduler identifies which worker policy drives the running slots.
type Scheduler int

const (
	// FCFS runs processes to completion in ready-queue order.
	FCFS Scheduler = iota
	// RoundRobin preempts a process after quantum-cycles instructions.
	RoundRobin
)

// String renders the scheduler name the way the operator console reports it.
func (s Scheduler) String() string {
	if s == RoundRobin {
		return "Round Robin (RR)"
	}
	return "First-Come-First-Served (FCFS)"
}

// Config holds the tunables read from config.txt. Field documentation
// mirrors the key semantics in spec §6.
type Config struct {
	// NumCPU is the number of worker tasks (one per core).
	NumCPU int
	// SchedulerKind selects FCFS or RoundRobin. Unknown values in the file
	// fall back to FCFS with a warning, never an error.
	SchedulerKind Scheduler
	// QuantumCycles is the RR time slice, in instructions.
	QuantumCycles int
	// BatchProcessFreq is how many PCBs the generator creates per batch.
	BatchProcessFreq int
	// MinIns and MaxIns bound the instruction count of generated PCBs.
	MinIns int
	MaxIns int
	// DelayPerExec is the number of ticks between instructions (0 = every tick).
	DelayPerExec int
	// MaxOverallMem is the total byte capacity of the memory manager.
	MaxOverallMem int
	// MemPerFrame is the paging frame size in bytes; it must divide MaxOverallMem.
	MemPerFrame int
	// MinMemPerProc and MaxMemPerProc bound the memory requirement of
	// generated PCBs.
	MinMemPerProc int
	MaxMemPerProc int

	// warnings accumulates non-fatal parse problems surfaced by Load, e.g.
	// an unrecognized scheduler name. Non-fatal per spec §7 item 1.
	warnings []string
}

// Default returns a Config with the defaults the original emulator ships,
// before any config.txt is read. TICK_DURATION_MS (10ms) is a clock
// constant, not a config key, and lives in sched.TickDuration.
func Default() *Config {
	return &Config{
		NumCPU:           1,
		SchedulerKind:    FCFS,
		QuantumCycles:    1,
		BatchProcessFreq: 1,
		MinIns:           1,
		MaxIns:           1,
		DelayPerExec:     0,
		MaxOverallMem:    16384,
		MemPerFrame:      16,
		MinMemPerProc:    64,
		MaxMemPerProc:    64,
	}
}

// Warnings returns the non-fatal problems accumulated during Load.
func (c *Config) Warnings() []string {
	return c.warnings
}

// Load reads config.txt at path: whitespace-separated "key value" pairs,
// order irrelevant, unknown keys skipped. Unrecognized values for a known
// key warn and keep the default rather than failing the whole read,
// matching original_source/config.cpp's tolerant parser.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	cfg := Default()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		for i := 0; i+1 < len(fields); i += 2 {
			cfg.apply(fields[i], fields[i+1])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) apply(key, value string) {
	value = strings.Trim(value, `"`)
	switch key {
	case "num-cpu":
		c.intField(key, value, &c.NumCPU)
	case "scheduler":
		switch strings.ToLower(value) {
		case "fcfs":
			c.SchedulerKind = FCFS
		case "rr":
			c.SchedulerKind = RoundRobin
		default:
			c.SchedulerKind = FCFS
			c.warn("unknown scheduler %q, defaulting to fcfs", value)
		}
	case "quantum-cycles":
		c.intField(key, value, &c.QuantumCycles)
	case "batch-process-freq":
		c.intField(key, value, &c.BatchProcessFreq)
	case "min-ins":
		c.intField(key, value, &c.MinIns)
	case "max-ins":
		c.intField(key, value, &c.MaxIns)
	case "delay-per-exec":
		c.intField(key, value, &c.DelayPerExec)
	case "max-overall-mem":
		c.intField(key, value, &c.MaxOverallMem)
	case "mem-per-frame":
		c.intField(key, value, &c.MemPerFrame)
	case "min-mem-per-proc":
		c.intField(key, value, &c.MinMemPerProc)
	case "max-mem-per-proc":
		c.intField(key, value, &c.MaxMemPerProc)
	default:
		// unknown keys are skipped per spec §6
	}
}

func (c *Config) intField(key, value string, dst *int) {
	n, err := strconv.Atoi(value)
	if err != nil {
		c.warn("%s: invalid integer %q, keeping default %d", key, value, *dst)
		return
	}
	*dst = n
}

func (c *Config) warn(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

// Validate enforces the cross-field invariants spec §6 requires. A
// violation here is the operator's to fix (bad config.txt), not a fatal
// emulator bug, so callers surface the error and decline to initialize.
func (c *Config) Validate() error {
	if c.NumCPU < 1 {
		return fmt.Errorf("config: num-cpu must be >= 1, got %d", c.NumCPU)
	}
	if c.QuantumCycles <= 0 {
		return fmt.Errorf("config: quantum-cycles must be > 0, got %d", c.QuantumCycles)
	}
	if c.BatchProcessFreq < 0 {
		return fmt.Errorf("config: batch-process-freq must be >= 0, got %d", c.BatchProcessFreq)
	}
	if c.MinIns > c.MaxIns {
		return fmt.Errorf("config: min-ins (%d) must be <= max-ins (%d)", c.MinIns, c.MaxIns)
	}
	if c.DelayPerExec < 0 {
		return fmt.Errorf("config: delay-per-exec must be >= 0, got %d", c.DelayPerExec)
	}
	if c.MaxOverallMem <= 0 {
		return fmt.Errorf("config: max-overall-mem must be > 0, got %d", c.MaxOverallMem)
	}
	if c.MemPerFrame <= 0 || c.MaxOverallMem%c.MemPerFrame != 0 {
		return fmt.Errorf("config: mem-per-frame (%d) must divide max-overall-mem (%d)", c.MemPerFrame, c.MaxOverallMem)
	}
	if c.MinMemPerProc > c.MaxMemPerProc {
		return fmt.Errorf("config: min-mem-per-proc (%d) must be <= max-mem-per-proc (%d)", c.MinMemPerProc, c.MaxMemPerProc)
	}
	return nil
}

// Clone returns a deep copy, following latency.TimingConfig.Clone's shape
// so the operator console can hand out a snapshot without racing Load.
func (c *Config) Clone() *Config {
	cp := *c
	cp.warnings = append([]string(nil), c.warnings...)
	return &cp
}
