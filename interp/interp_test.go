package interp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cs-emu/csopesy/interp"
	"github.com/cs-emu/csopesy/mem"
	"github.com/cs-emu/csopesy/proc"
)

func run(p *proc.PCB, i *interp.Interpreter, lines ...string) error {
	for _, line := range lines {
		if err := i.Execute(p, line); err != nil {
			return err
		}
	}
	return nil
}

var _ = Describe("Interpreter", func() {
	var m *mem.Contiguous
	var p *proc.PCB
	var i *interp.Interpreter

	BeforeEach(func() {
		m = mem.NewContiguous(1024, 64)
		p = proc.New(1, "p1", 10, 64, nil)
		Expect(m.Allocate(p)).To(BeTrue())
		i = interp.New(m)
	})

	It("saturates ADD at 65535", func() {
		Expect(run(p, i, "DECLARE a 65000", "ADD a a 1000", `PRINT "a=a"`)).To(Succeed())
		Expect(p.ReadLogs()).To(ContainElement("a=65535"))
	})

	It("floors SUBTRACT at 0", func() {
		Expect(run(p, i, "DECLARE b 5", "SUBTRACT b b 10", `PRINT "b=b"`)).To(Succeed())
		Expect(p.ReadLogs()).To(ContainElement("b=0"))
	})

	It("cancels on an invalid address with a ViolationError", func() {
		err := run(p, i, "WRITE 0x1000 7")
		Expect(err).To(HaveOccurred())
		var verr *mem.ViolationError
		Expect(err).To(BeAssignableToTypeOf(verr))
		Expect(err.Error()).To(Equal("0x1000 invalid"))
	})

	It("round-trips a written cell through READ", func() {
		Expect(run(p, i, "WRITE 0x0010 42", "READ x 0x0010", `PRINT "x=x"`)).To(Succeed())
		Expect(p.ReadLogs()).To(ContainElement("x=42"))
	})

	It("defaults an empty PRINT to a per-process greeting", func() {
		Expect(run(p, i, `PRINT ""`)).To(Succeed())
		Expect(p.ReadLogs()).To(ContainElement("Hello world from p1!"))
	})

	It("substitutes only whole-token symbol names", func() {
		Expect(run(p, i, "DECLARE a 7", `PRINT "alpha a a2"`)).To(Succeed())
		Expect(p.ReadLogs()).To(ContainElement("alpha 7 a2"))
	})

	It("executes a FOR body its clamped repeat count", func() {
		Expect(run(p, i, "DECLARE c 0", "FOR ADD c c 1 5")).To(Succeed())
		v, ok := p.Symbols.Get("c")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(uint16(5)))
	})

	It("skips a FOR nested past the maximum depth", func() {
		// Nesting depth 3 is allowed (outer FORs A, B, C); the 4th, D,
		// is invoked at depth 3 and is skipped before its body ever runs.
		forD := `FOR PRINT "too deep" 1`
		forC := "FOR " + forD + " 1"
		forB := "FOR " + forC + " 1"
		forA := "FOR " + forB + " 1"
		Expect(run(p, i, forA)).To(Succeed())
		Expect(p.ReadLogs()).To(BeEmpty())
	})
})
