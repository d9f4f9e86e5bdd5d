package sched

import (
	"fmt"
	"strings"
	"time"

	"github.com/cs-emu/csopesy/config"
	"github.com/cs-emu/csopesy/proc"
)

// timestampLayout renders wall-clock times the way original_source/utils.cpp's
// format_timestamp_for_display does: "(MM/DD/YYYY, HH:MM:SS AM/PM)".
const timestampLayout = "(01/02/2006, 03:04:05 PM)"

// cpuUtilization returns the number of occupied cores and the percentage
// of s.cfg.NumCPU they represent, the shared computation SystemReport,
// VMStatReport, and ProcessSMISummary all report from.
func (s *System) cpuUtilization() (usedCores int, percent float64) {
	for _, p := range s.table.RunningSnapshot() {
		if p != nil {
			usedCores++
		}
	}
	if s.cfg.NumCPU > 0 {
		percent = float64(usedCores) / float64(s.cfg.NumCPU) * 100.0
	}
	return usedCores, percent
}

// memoryUtilization returns bytes used, bytes total, and the percentage
// used represents of total.
func (s *System) memoryUtilization() (used, total int, percent float64) {
	total = s.mgr.TotalBytes()
	used = s.mgr.UsedBytes()
	if total > 0 {
		percent = float64(used) / float64(total) * 100.0
	}
	return used, total, percent
}

// SystemReport renders the `screen -ls` / `report-util` text: CPU
// utilization, current tick, scheduler name, and the running/finished/
// cancelled process lines, grounded on original_source/utils.cpp's
// getSystemReport.
func (s *System) SystemReport() string {
	var b strings.Builder

	usedCores, utilization := s.cpuUtilization()
	running := s.table.RunningSnapshot()
	tick := s.clock.Current()

	fmt.Fprintf(&b, "==== CPU UTILIZATION REPORT ====\n")
	fmt.Fprintf(&b, "CPU Utilization: %.1f%%\n", utilization)
	fmt.Fprintf(&b, "Current CPU Tick: %d\n", tick)
	fmt.Fprintf(&b, "Cores Used: %d\n", usedCores)
	fmt.Fprintf(&b, "Cores available: %d\n", s.cfg.NumCPU-usedCores)
	fmt.Fprintf(&b, "Scheduler: %s", s.cfg.SchedulerKind)
	if s.cfg.SchedulerKind == config.RoundRobin {
		fmt.Fprintf(&b, " [Quantum: %d cycles]", s.cfg.QuantumCycles)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Processes in Ready Queue: %d\n", s.table.ReadyLen())

	b.WriteString("\n==== RUNNING PROCESSES ====\n")
	any := false
	for i, p := range running {
		if p == nil {
			continue
		}
		fmt.Fprintf(&b, "%s\t%s\tCore: %d\t%d / %d",
			p.Name, p.CreationTime.Format(timestampLayout), i, p.Executed(), p.InstructionsTotal)
		if s.cfg.SchedulerKind == config.RoundRobin {
			fmt.Fprintf(&b, "\tQuantum Left: %d", p.RemainingQuantum)
		}
		b.WriteString("\n")
		any = true
	}
	if !any {
		b.WriteString("No running processes\n")
	}

	b.WriteString("\n==== FINISHED PROCESSES ====\n")
	finished := s.table.Finished()
	if len(finished) == 0 {
		b.WriteString("No finished processes\n")
	}
	for _, p := range finished {
		fmt.Fprintf(&b, "%s\t%s\tFinished\t%d / %d\n",
			p.Name, p.CreationTime.Format(timestampLayout), p.Executed(), p.InstructionsTotal)
	}

	cancelled := s.table.Cancelled()
	if len(cancelled) > 0 {
		b.WriteString("\n==== CANCELLED PROCESSES ====\n")
		for _, c := range cancelled {
			fmt.Fprintf(&b, "%s\t(%s)\tFinished\t%d / %d\n",
				c.PCB.Name, c.WallTimestamp.Format(timestampLayout), c.PCB.Executed(), c.PCB.InstructionsTotal)
		}
	}

	return b.String()
}

// VMStatReport renders the `vmstat` text: process counts, memory totals,
// CPU tick breakdown, and page fault counters, grounded on
// original_source/utils.cpp's getVMStatReport.
func (s *System) VMStatReport() string {
	var b strings.Builder

	active, _ := s.cpuUtilization()
	ready := s.table.ReadyLen()
	inactive := len(s.table.Finished())

	b.WriteString("==== DETAILED VIEW ====\n")
	fmt.Fprintf(&b, "Active processes: %d\n", active)
	fmt.Fprintf(&b, "Inactive processes: %d\n", inactive)
	fmt.Fprintf(&b, "Ready processes: %d\n\n", ready)

	used, total, _ := s.memoryUtilization()
	fmt.Fprintf(&b, "Total memory: %d bytes\n", total)
	fmt.Fprintf(&b, "Used memory: %d bytes\n", used)
	fmt.Fprintf(&b, "Free memory: %d bytes\n\n", total-used)

	totalTicks, idleTicks, activeTicks := s.stats.Snapshot()
	fmt.Fprintf(&b, "Idle cpu ticks: %d\n", idleTicks)
	fmt.Fprintf(&b, "Active cpu ticks: %d\n", activeTicks)
	fmt.Fprintf(&b, "Total cpu ticks: %d\n\n", totalTicks)

	if pager, ok := s.mgr.(interface{ Stats() (uint64, uint64) }); ok {
		in, out := pager.Stats()
		fmt.Fprintf(&b, "Num paged in: %d\n", in)
		fmt.Fprintf(&b, "Num paged out: %d\n", out)
	} else {
		b.WriteString("Num paged in: 0\n")
		b.WriteString("Num paged out: 0\n")
	}

	return b.String()
}

// ProcessSMISummary renders the aggregate panel process-smi shows before
// its per-process detail: CPU and memory utilization plus a
// memory-consumption line for every process ever registered, grounded on
// original_source/utils.cpp's getVMStatReport counters joined against the
// process table (spec §4.8).
func (s *System) ProcessSMISummary() string {
	var b strings.Builder

	usedCores, cpuPct := s.cpuUtilization()
	used, total, memPct := s.memoryUtilization()

	b.WriteString("==== SYSTEM UTILIZATION ====\n")
	fmt.Fprintf(&b, "CPU Utilization: %.1f%% (%d / %d cores)\n", cpuPct, usedCores, s.cfg.NumCPU)
	fmt.Fprintf(&b, "Memory Utilization: %.1f%% (%d / %d bytes)\n", memPct, used, total)

	b.WriteString("\n==== PER-PROCESS MEMORY ====\n")
	all := s.table.All()
	if len(all) == 0 {
		b.WriteString("No processes\n")
	}
	for _, p := range all {
		fmt.Fprintf(&b, "%s\t%s\t%d bytes\n", p.Name, p.State(), p.MemoryRequirement)
	}

	return b.String()
}

// ProcessSMI renders the `process-smi` panel for a single PCB: identity,
// state, progress, and accumulated PRINT output (spec §4.8).
func (s *System) ProcessSMI(p *proc.PCB) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Process: %s (id %d)\n", p.Name, p.ID)
	fmt.Fprintf(&b, "State: %s\n", p.State())
	fmt.Fprintf(&b, "Created: %s\n", p.CreationTime.Format(timestampLayout))
	fmt.Fprintf(&b, "Instructions: %d / %d\n", p.Executed(), p.InstructionsTotal)
	fmt.Fprintf(&b, "Memory: %d bytes\n", p.MemoryRequirement)

	logs := p.ReadLogs()
	if len(logs) == 0 {
		b.WriteString("Logs: (none)\n")
		return b.String()
	}
	b.WriteString("Logs:\n")
	for _, line := range logs {
		fmt.Fprintf(&b, "  %s\n", line)
	}
	return b.String()
}

// ViolationMessage renders the `screen -r` cancellation line exactly as
// spec §6 specifies: "shut down due to memory access violation error that
// occurred at HH:MM:SSAM/PM. <addr> invalid."
func ViolationMessage(rec CancellationRecord) string {
	return fmt.Sprintf(
		"shut down due to memory access violation error that occurred at %s. %s invalid.",
		rec.WallTimestamp.Format("03:04:05PM"), rec.OffendingAddress,
	)
}

// violationLogLine renders the memory-violation-log.txt / legacy log.txt
// line for one cancellation, grounded on spec §6's persisted-state table.
func violationLogLine(rec CancellationRecord) string {
	return fmt.Sprintf("%s: process %s violation error at %s\n",
		rec.WallTimestamp.Format(time.RFC3339), rec.PCB.Name, rec.OffendingAddress)
}

// legacyViolationLine renders the log.txt compat format spec §6 names:
// "process <name> violation error".
func legacyViolationLine(rec CancellationRecord) string {
	return fmt.Sprintf("process %s violation error\n", rec.PCB.Name)
}
