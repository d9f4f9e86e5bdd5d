package mem_test

import (
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cs-emu/csopesy/mem"
	"github.com/cs-emu/csopesy/proc"
)

// fakeLiveness reports a process "running" only if its name is in the set.
type fakeLiveness map[string]bool

func (f fakeLiveness) IsRunning(name string) bool { return f[name] }

var _ = Describe("Paging", func() {
	var backingPath string

	BeforeEach(func() {
		f, err := os.CreateTemp("", "csopesy-backing-*.txt")
		Expect(err).NotTo(HaveOccurred())
		backingPath = f.Name()
		_ = f.Close()
	})

	AfterEach(func() {
		_ = os.Remove(backingPath)
	})

	It("faults a page in on first access and serves it from then on", func() {
		backing := mem.NewBackingStore(backingPath)
		pg := mem.NewPaging(256, 64, backing, fakeLiveness{})
		p1 := proc.New(1, "p1", 1, 64, nil)
		Expect(pg.Allocate(p1)).To(BeTrue())

		Expect(pg.Write(p1, 0, 42)).To(Succeed())
		v, err := pg.Read(p1, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint16(42)))
	})

	It("evicts the least-recently-used frame when physical memory is full", func() {
		backing := mem.NewBackingStore(backingPath)
		// 2 frames of 64 bytes total: only two processes fit at once.
		pg := mem.NewPaging(128, 64, backing, fakeLiveness{})
		p1 := proc.New(1, "p1", 1, 64, nil)
		p2 := proc.New(2, "p2", 1, 64, nil)
		p3 := proc.New(3, "p3", 1, 64, nil)
		Expect(pg.Allocate(p1)).To(BeTrue())
		Expect(pg.Allocate(p2)).To(BeTrue())
		Expect(pg.Allocate(p3)).To(BeTrue())

		Expect(pg.Write(p1, 0, 111)).To(Succeed())
		Expect(pg.Write(p2, 0, 222)).To(Succeed())
		// p1 is now the least recently touched resident page; p3's fault
		// should evict it rather than p2.
		Expect(pg.Write(p3, 0, 333)).To(Succeed())

		v, err := pg.Read(p2, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint16(222)))

		// p1's page was evicted and must be recoverable from backing store.
		v, err = pg.Read(p1, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint16(111)))
	})

	It("signals deadlock when every occupied frame belongs to a running process", func() {
		backing := mem.NewBackingStore(backingPath)
		pg := mem.NewPaging(128, 64, backing, fakeLiveness{"p1": true, "p2": true})
		p1 := proc.New(1, "p1", 1, 64, nil)
		p2 := proc.New(2, "p2", 1, 64, nil)
		p3 := proc.New(3, "p3", 1, 64, nil)
		Expect(pg.Allocate(p1)).To(BeTrue())
		Expect(pg.Allocate(p2)).To(BeTrue())
		Expect(pg.Allocate(p3)).To(BeTrue())

		Expect(pg.Write(p1, 0, 1)).To(Succeed())
		Expect(pg.Write(p2, 0, 2)).To(Succeed())

		err := pg.Write(p3, 0, 3)
		Expect(err).To(MatchError(mem.ErrDeadlock))
	})

	It("reports used and total bytes from resident frames", func() {
		backing := mem.NewBackingStore(backingPath)
		pg := mem.NewPaging(128, 64, backing, fakeLiveness{})
		Expect(pg.TotalBytes()).To(Equal(128))

		p1 := proc.New(1, "p1", 1, 64, nil)
		Expect(pg.Allocate(p1)).To(BeTrue())
		Expect(pg.UsedBytes()).To(Equal(0)) // allocated, not yet faulted in

		Expect(pg.Write(p1, 0, 7)).To(Succeed())
		Expect(pg.UsedBytes()).To(Equal(64))
	})
})
