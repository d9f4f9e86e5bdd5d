package instr_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cs-emu/csopesy/instr"
)

var _ = Describe("Parse", func() {
	It("parses DECLARE into opcode and args", func() {
		i, err := instr.Parse("DECLARE a 65000")
		Expect(err).NotTo(HaveOccurred())
		Expect(i.Op).To(Equal(instr.OpDeclare))
		Expect(i.Args).To(Equal([]string{"a", "65000"}))
	})

	It("parses PRINT and strips one pair of surrounding quotes", func() {
		i, err := instr.Parse(`PRINT "a=a"`)
		Expect(err).NotTo(HaveOccurred())
		Expect(i.Op).To(Equal(instr.OpPrint))
		Expect(i.Args).To(Equal([]string{"a=a"}))
	})

	It("defaults an empty PRINT body to an empty string", func() {
		i, err := instr.Parse(`PRINT ""`)
		Expect(err).NotTo(HaveOccurred())
		Expect(i.Args).To(Equal([]string{""}))
	})

	It("splits FOR into comma-separated body and clamped repeat count", func() {
		i, err := instr.Parse(`FOR DECLARE x 1, ADD x x 1 150`)
		Expect(err).NotTo(HaveOccurred())
		Expect(i.Op).To(Equal(instr.OpFor))
		Expect(i.ForBody).To(Equal([]string{"DECLARE x 1", "ADD x x 1"}))
		Expect(i.ForRepeats).To(Equal(instr.MaxForRepeats))
	})

	It("clamps a negative FOR repeat count to zero", func() {
		i, err := instr.Parse(`FOR PRINT "hi" -5`)
		Expect(err).NotTo(HaveOccurred())
		Expect(i.ForRepeats).To(Equal(0))
	})

	It("rejects an unrecognized opcode", func() {
		_, err := instr.Parse("FROB a b")
		Expect(err).To(HaveOccurred())
	})

	It("rejects an empty line", func() {
		_, err := instr.Parse("   ")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Generate", func() {
	It("never emits SLEEP or FOR when both are disabled", func() {
		rng := rand.New(rand.NewSource(1))
		lines := instr.Generate(rng, "p1", 200, false, false)
		for _, line := range lines {
			i, err := instr.Parse(line)
			Expect(err).NotTo(HaveOccurred())
			Expect(i.Op).NotTo(Equal(instr.OpSleep))
			Expect(i.Op).NotTo(Equal(instr.OpFor))
		}
	})

	It("produces only instructions this package can parse", func() {
		rng := rand.New(rand.NewSource(2))
		lines := instr.Generate(rng, "p2", 200, true, true)
		Expect(lines).To(HaveLen(200))
		for _, line := range lines {
			_, err := instr.Parse(line)
			Expect(err).NotTo(HaveOccurred())
		}
	})
})
