package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cs-emu/csopesy/config"
)

func writeConfig(dir, body string) string {
	path := filepath.Join(dir, "config.txt")
	Expect(os.WriteFile(path, []byte(body), 0o644)).To(Succeed())
	return path
}

var _ = Describe("Load", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("parses whitespace key-value pairs regardless of order", func() {
		path := writeConfig(dir, "scheduler rr\nnum-cpu 4\nquantum-cycles 3\n"+
			"batch-process-freq 1\nmin-ins 1\nmax-ins 5\ndelay-per-exec 0\n"+
			"max-overall-mem 1024\nmem-per-frame 64\nmin-mem-per-proc 64\nmax-mem-per-proc 64\n")

		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.NumCPU).To(Equal(4))
		Expect(cfg.SchedulerKind).To(Equal(config.RoundRobin))
		Expect(cfg.QuantumCycles).To(Equal(3))
	})

	It("is case-insensitive and tolerates quoted scheduler names", func() {
		path := writeConfig(dir, `scheduler "FCFS"`+"\nnum-cpu 1\nquantum-cycles 1\n"+
			"batch-process-freq 0\nmin-ins 1\nmax-ins 1\ndelay-per-exec 0\n"+
			"max-overall-mem 64\nmem-per-frame 64\nmin-mem-per-proc 64\nmax-mem-per-proc 64\n")

		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.SchedulerKind).To(Equal(config.FCFS))
	})

	It("skips unknown keys and falls back to FCFS on an unknown scheduler", func() {
		path := writeConfig(dir, "scheduler round-robin-ish\nnum-cpu 2\nquantum-cycles 1\n"+
			"batch-process-freq 0\nmin-ins 1\nmax-ins 1\ndelay-per-exec 0\n"+
			"max-overall-mem 64\nmem-per-frame 64\nmin-mem-per-proc 64\nmax-mem-per-proc 64\n"+
			"totally-unknown-key 42\n")

		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.SchedulerKind).To(Equal(config.FCFS))
		Expect(cfg.Warnings()).To(HaveLen(1))
	})

	It("rejects a frame size that does not divide the overall memory", func() {
		path := writeConfig(dir, "num-cpu 1\nquantum-cycles 1\nbatch-process-freq 0\n"+
			"min-ins 1\nmax-ins 1\ndelay-per-exec 0\nmax-overall-mem 100\nmem-per-frame 64\n"+
			"min-mem-per-proc 64\nmax-mem-per-proc 64\n")

		_, err := config.Load(path)
		Expect(err).To(HaveOccurred())
	})

	It("rejects min-ins greater than max-ins", func() {
		path := writeConfig(dir, "num-cpu 1\nquantum-cycles 1\nbatch-process-freq 0\n"+
			"min-ins 9\nmax-ins 1\ndelay-per-exec 0\nmax-overall-mem 64\nmem-per-frame 64\n"+
			"min-mem-per-proc 64\nmax-mem-per-proc 64\n")

		_, err := config.Load(path)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Default", func() {
	It("validates cleanly on its own", func() {
		Expect(config.Default().Validate()).To(Succeed())
	})
})

var _ = Describe("Clone", func() {
	It("copies warnings independently of the original", func() {
		path := writeConfig(GinkgoT().TempDir(), "scheduler bogus\n")
		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Warnings()).To(HaveLen(1))

		clone := cfg.Clone()
		Expect(clone).To(Equal(cfg))

		clone.Warnings()[0] = "changed"
		Expect(cfg.Warnings()[0]).NotTo(Equal("changed"))
	})
})
