package sched_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cs-emu/csopesy/config"
	"github.com/cs-emu/csopesy/mem"
	"github.com/cs-emu/csopesy/proc"
	"github.com/cs-emu/csopesy/sched"
)

var _ = Describe("Scheduling invariants", func() {
	It("finishes FCFS processes in enqueue order on a single core", func() {
		cfg := baseConfig()
		mgr := mem.NewContiguous(cfg.MaxOverallMem, cfg.MinMemPerProc)
		sys := sched.New(cfg, mgr)
		defer sys.Stop()

		names := []string{"a", "b", "c"}
		for i, name := range names {
			lines := []string{`PRINT "hi"`}
			p := proc.New(i+1, name, len(lines), 64, lines)
			Expect(sys.Submit(p)).To(BeTrue())
		}
		Expect(sys.Start()).To(Succeed())

		Eventually(func() int { return len(sys.Table().Finished()) }, 2*time.Second, 5*time.Millisecond).Should(Equal(3))

		finished := sys.Table().Finished()
		got := make([]string, len(finished))
		for i, p := range finished {
			got[i] = p.Name
		}
		Expect(got).To(Equal(names))
	})

	It("never lets an RR process execute more than quantum-cycles instructions per dispatch", func() {
		cfg := baseConfig()
		cfg.SchedulerKind = config.RoundRobin
		cfg.QuantumCycles = 2
		mgr := mem.NewContiguous(cfg.MaxOverallMem, cfg.MinMemPerProc)
		sys := sched.New(cfg, mgr)
		defer sys.Stop()

		lines := repeat(`PRINT "x"`, 9)
		p := proc.New(1, "hog", len(lines), 64, lines)
		Expect(sys.Submit(p)).To(BeTrue())
		Expect(sys.Start()).To(Succeed())

		// Poll RemainingQuantum while the process is bound; it must never
		// go negative, which would mean more than quantum-cycles
		// instructions ran in one dispatch.
		Consistently(func() int {
			if running := sys.Table().Running(0); running != nil {
				return running.RemainingQuantum
			}
			return 0
		}, 300*time.Millisecond, time.Millisecond).Should(BeNumerically(">=", 0))

		Eventually(func() int { return len(sys.Table().Finished()) }, 2*time.Second, 5*time.Millisecond).Should(Equal(1))
	})

	It("eventually dispatches a process once free memory becomes available", func() {
		cfg := baseConfig()
		cfg.MaxOverallMem = 64
		mgr := mem.NewContiguous(cfg.MaxOverallMem, cfg.MinMemPerProc)
		sys := sched.New(cfg, mgr)
		defer sys.Stop()

		blocker := proc.New(1, "blocker", 1, 64, []string{`PRINT "x"`})
		waiter := proc.New(2, "waiter", 1, 64, []string{`PRINT "y"`})
		Expect(sys.Submit(blocker)).To(BeTrue())
		Expect(sys.Submit(waiter)).To(BeTrue())
		Expect(sys.Start()).To(Succeed())

		Eventually(func() int { return len(sys.Table().Finished()) }, 2*time.Second, 5*time.Millisecond).Should(Equal(2))
	})
})
