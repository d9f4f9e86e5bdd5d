package sched_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cs-emu/csopesy/mem"
	"github.com/cs-emu/csopesy/sched"
)

var _ = Describe("System lifecycle", func() {
	It("rejects a second Start while already running", func() {
		cfg := baseConfig()
		mgr := mem.NewContiguous(cfg.MaxOverallMem, cfg.MinMemPerProc)
		sys := sched.New(cfg, mgr)
		defer sys.Stop()

		Expect(sys.Start()).To(Succeed())
		Expect(sys.Start()).To(HaveOccurred())
	})

	It("treats a second Stop the same as the first (idempotence)", func() {
		cfg := baseConfig()
		mgr := mem.NewContiguous(cfg.MaxOverallMem, cfg.MinMemPerProc)
		sys := sched.New(cfg, mgr)

		Expect(sys.Start()).To(Succeed())
		sys.Stop()
		Expect(sys.Running()).To(BeFalse())

		sys.Stop() // must not panic or block
		Expect(sys.Running()).To(BeFalse())
	})

	It("stops generating batch processes once stopped", func() {
		cfg := baseConfig()
		cfg.BatchProcessFreq = 1
		mgr := mem.NewContiguous(cfg.MaxOverallMem, cfg.MinMemPerProc)
		sys := sched.New(cfg, mgr)

		Expect(sys.Start()).To(Succeed())
		time.Sleep(50 * time.Millisecond)
		sys.Stop()

		countAfterStop := len(sys.Table().Finished()) + sys.Table().ReadyLen()
		time.Sleep(1200 * time.Millisecond) // longer than the 1s generator tick
		countLater := len(sys.Table().Finished()) + sys.Table().ReadyLen()

		Expect(countLater).To(Equal(countAfterStop))
	})

	It("allows Start again after Stop", func() {
		cfg := baseConfig()
		mgr := mem.NewContiguous(cfg.MaxOverallMem, cfg.MinMemPerProc)
		sys := sched.New(cfg, mgr)

		Expect(sys.Start()).To(Succeed())
		sys.Stop()
		Expect(sys.Start()).To(Succeed())
		sys.Stop()
	})
})
