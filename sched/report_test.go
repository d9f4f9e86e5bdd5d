package sched_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cs-emu/csopesy/mem"
	"github.com/cs-emu/csopesy/proc"
	"github.com/cs-emu/csopesy/sched"
)

var _ = Describe("Reporters", func() {
	It("renders CPU and memory utilization plus a line per process in ProcessSMISummary", func() {
		cfg := baseConfig()
		cfg.NumCPU = 2
		cfg.MaxOverallMem = 128
		mgr := mem.NewContiguous(cfg.MaxOverallMem, cfg.MinMemPerProc)
		sys := sched.New(cfg, mgr)
		defer sys.Stop()

		lines := repeat(`PRINT "tick"`, 20)
		p := proc.New(1, "p1", len(lines), 64, lines)
		Expect(sys.Submit(p)).To(BeTrue())
		Expect(sys.Start()).To(Succeed())

		Eventually(func() bool {
			got, ok := sys.Table().Lookup("p1")
			return ok && got.State() == proc.Running
		}, 2*time.Second, 5*time.Millisecond).Should(BeTrue())

		summary := sys.ProcessSMISummary()
		Expect(summary).To(ContainSubstring("==== SYSTEM UTILIZATION ===="))
		Expect(summary).To(ContainSubstring("CPU Utilization:"))
		Expect(summary).To(ContainSubstring("Memory Utilization:"))
		Expect(summary).To(ContainSubstring("==== PER-PROCESS MEMORY ===="))
		Expect(summary).To(ContainSubstring("p1"))
		Expect(summary).To(ContainSubstring("64 bytes"))
	})

	It("reports no processes in ProcessSMISummary when the table is empty", func() {
		cfg := baseConfig()
		mgr := mem.NewContiguous(cfg.MaxOverallMem, cfg.MinMemPerProc)
		sys := sched.New(cfg, mgr)

		Expect(sys.ProcessSMISummary()).To(ContainSubstring("No processes"))
	})

	It("renders a single PCB's identity and memory in ProcessSMI", func() {
		cfg := baseConfig()
		mgr := mem.NewContiguous(cfg.MaxOverallMem, cfg.MinMemPerProc)
		sys := sched.New(cfg, mgr)

		p := proc.New(1, "p1", 1, 64, []string{`PRINT "hi"`})
		Expect(sys.Submit(p)).To(BeTrue())

		got, ok := sys.Table().Lookup("p1")
		Expect(ok).To(BeTrue())
		panel := sys.ProcessSMI(got)
		Expect(panel).To(ContainSubstring("Process: p1"))
		Expect(panel).To(ContainSubstring("Memory: 64 bytes"))
		Expect(panel).To(ContainSubstring("Logs: (none)"))
	})
})
