package engine_test

import (
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archsim/tomasulo16/arch"
	"github.com/archsim/tomasulo16/asm"
	"github.com/archsim/tomasulo16/isa"
	"github.com/archsim/tomasulo16/timing/config"
	"github.com/archsim/tomasulo16/timing/engine"
)

// commitOrder returns each retired instruction's opcode in the order it
// left the reorder buffer, regardless of the order it issued or executed in.
func commitOrder(tl *engine.Timeline) []isa.Opcode {
	entries := append([]engine.TimelineEntry(nil), tl.Entries...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Commit < entries[j].Commit })
	ops := make([]isa.Opcode, len(entries))
	for i, e := range entries {
		ops[i] = e.Inst.Op
	}
	return ops
}

func mustParse(src string) *asm.Program {
	prog, err := asm.Parse(strings.NewReader(src))
	Expect(err).NotTo(HaveOccurred())
	return prog
}

func newEngine(src string, cfg *config.Config) (*engine.Engine, *asm.Program) {
	prog := mustParse(src)
	mem := arch.NewMemory()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return engine.New(cfg, prog.Instructions, mem, 0), prog
}

func runToCompletion(e *engine.Engine) engine.Stats {
	stats, err := e.Run()
	Expect(err).NotTo(HaveOccurred())
	return stats
}

var _ = Describe("Engine", func() {
	Describe("a straight-line ADD chain", func() {
		It("retires every instruction and produces the correct register values", func() {
			e, _ := newEngine(`
				ADDI R1, R0, 5
				ADDI R2, R0, 7
				ADD  R3, R1, R2
				ADD  R4, R3, R3
			`, nil)

			stats := runToCompletion(e)

			Expect(e.RegisterFile().Read(1)).To(Equal(uint16(5)))
			Expect(e.RegisterFile().Read(2)).To(Equal(uint16(7)))
			Expect(e.RegisterFile().Read(3)).To(Equal(uint16(12)))
			Expect(e.RegisterFile().Read(4)).To(Equal(uint16(24)))
			Expect(stats.Retired).To(Equal(uint64(4)))
		})
	})

	Describe("a long-latency MUL that exposes out-of-order completion", func() {
		It("lets a later independent ADD finish its work before the MUL commits, but still commits in program order", func() {
			e, _ := newEngine(`
				ADDI R1, R0, 3
				ADDI R2, R0, 4
				MUL  R3, R1, R2
				ADDI R4, R0, 9
			`, nil)

			stats := runToCompletion(e)

			Expect(e.RegisterFile().Read(3)).To(Equal(uint16(12)))
			Expect(e.RegisterFile().Read(4)).To(Equal(uint16(9)))
			Expect(stats.Retired).To(Equal(uint64(4)))

			tl := e.Timeline().Entries
			// The ADDI after the MUL must still retire after the MUL,
			// even though its result was ready long before (in-order commit).
			Expect(tl[3].Commit).To(BeNumerically(">", tl[2].Commit))

			want := []isa.Opcode{isa.OpADDI, isa.OpADDI, isa.OpMUL, isa.OpADDI}
			if diff := cmp.Diff(want, commitOrder(e.Timeline())); diff != "" {
				Fail("commit order diverged from program order (-want +got):\n" + diff)
			}
		})
	})

	Describe("a correctly-predicted not-taken BEQ", func() {
		It("never squashes and runs the fall-through path", func() {
			e, _ := newEngine(`
				ADDI R1, R0, 1
				ADDI R2, R0, 2
				BEQ  R1, R2, 10
				ADDI R3, R0, 42
			`, nil)

			stats := runToCompletion(e)

			Expect(e.RegisterFile().Read(3)).To(Equal(uint16(42)))
			Expect(stats.Branches).To(Equal(uint64(1)))
			Expect(stats.Mispredicted).To(Equal(uint64(0)))
		})
	})

	Describe("a mispredicted taken BEQ", func() {
		It("squashes speculative work issued after the branch and resumes at the target", func() {
			e, _ := newEngine(`
				ADDI R1, R0, 1
				ADDI R2, R0, 1
				BEQ  R1, R2, 2
				ADDI R3, R0, 111
				ADDI R4, R0, 222
			`, nil)

			stats := runToCompletion(e)

			Expect(e.RegisterFile().Read(3)).To(Equal(uint16(0)))
			Expect(e.RegisterFile().Read(4)).To(Equal(uint16(222)))
			Expect(stats.Branches).To(Equal(uint64(1)))
			Expect(stats.Mispredicted).To(Equal(uint64(1)))
		})
	})

	Describe("a loop driven by BEQ", func() {
		It("iterates the correct number of times", func() {
			e, _ := newEngine(`
				ADDI R1, R0, 0
				ADDI R2, R0, 1
				ADDI R3, R0, 5
			loop:
				ADD  R1, R1, R2
				ADDI R3, R3, -1
				BEQ  R3, R0, end
				BEQ  R0, R0, loop
			end:
				ADDI R5, R0, 999
			`, nil)

			stats := runToCompletion(e)

			Expect(e.RegisterFile().Read(1)).To(Equal(uint16(5)))
			Expect(e.RegisterFile().Read(5)).To(Equal(uint16(999)))
			Expect(stats.Retired).To(BeNumerically(">", 8))
		})
	})

	Describe("STORE followed by a LOAD from the same address", func() {
		It("reads committed memory only, so a LOAD that executes before the STORE commits sees the old value", func() {
			e, _ := newEngine(`
				ADDI R1, R0, 77
				ADDI R2, R0, 0
				STORE R1, 0(R2)
				LOAD  R3, 0(R2)
			`, nil)

			stats := runToCompletion(e)

			// Both start executing in the same cycle; the LOAD finishes
			// (and reads memory) the cycle before the STORE commits.
			Expect(e.RegisterFile().Read(3)).To(Equal(uint16(0)))
			Expect(e.Memory().Read(0)).To(Equal(uint16(77)))
			Expect(stats.Retired).To(Equal(uint64(4)))
		})
	})

	Describe("CALL and RET", func() {
		It("transfers control to the target and returns via the link register", func() {
			// After returning, the caller points R7 past the end of the
			// program so the fall-through pass into sub ends the run.
			e, _ := newEngine(`
				CALL sub
				ADDI R2, R0, 2
				ADDI R7, R0, 5
			sub:
				ADDI R1, R0, 1
				RET  R7
			`, nil)

			stats := runToCompletion(e)

			Expect(e.RegisterFile().Read(1)).To(Equal(uint16(1)))
			Expect(e.RegisterFile().Read(2)).To(Equal(uint16(2)))
			Expect(stats.Mispredicted).To(Equal(uint64(0)))
		})
	})

	Describe("a reservation-station structural hazard", func() {
		It("stalls issue until a station frees up rather than deadlocking", func() {
			cfg := config.DefaultConfig()
			cfg.MulStations = 1
			e, _ := newEngine(`
				MUL R1, R0, R0
				MUL R2, R0, R0
				MUL R3, R0, R0
			`, cfg)

			stats := runToCompletion(e)
			Expect(stats.Retired).To(Equal(uint64(3)))
		})
	})

	Describe("a CDB broadcast resolving a waiting station's operand", func() {
		It("does not let that station start executing until the next cycle", func() {
			e, _ := newEngine(`
				ADDI R1, R0, 3
				ADDI R2, R0, 4
				MUL  R3, R1, R2
				ADD  R4, R3, R3
			`, nil)

			runToCompletion(e)

			tl := e.Timeline().Entries
			mul, add := tl[2], tl[3]
			Expect(mul.Write).To(BeNumerically(">", 0))
			Expect(add.ExecStart).To(Equal(mul.Write + 1))
		})
	})
})
