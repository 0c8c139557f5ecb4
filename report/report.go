// Package report renders a finished run's timeline and summary
// statistics (spec.md §7), grounded on the teacher's verbose "-v"
// instruction-count printing but expanded into a tabwriter-aligned
// per-instruction table.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/archsim/tomasulo16/isa"
	"github.com/archsim/tomasulo16/timing/engine"
)

// WriteTimeline prints one row per dynamic instruction, in issue order,
// with a "-" for any stage the instruction never reached (squashed
// speculative work).
func WriteTimeline(w io.Writer, tl *engine.Timeline) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tPC\tINST\tISSUE\tEXEC_START\tEXEC_FINISH\tWRITE\tCOMMIT")
	for _, e := range tl.Entries {
		fmt.Fprintf(tw, "%d\t0x%04x\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Seq, e.PC, mnemonic(e.Inst),
			cell(e.Issue), cell(e.ExecStart), cell(e.ExecFinish), cell(e.Write), cell(e.Commit))
	}
	tw.Flush()
}

func cell(cycle int) string {
	if cycle < 0 {
		return "-"
	}
	return fmt.Sprintf("%d", cycle)
}

func mnemonic(inst isa.Instruction) string {
	switch inst.Op {
	case isa.OpLOAD:
		return fmt.Sprintf("LOAD R%d, %d(R%d)", inst.Rd, inst.Imm, inst.Rs2)
	case isa.OpSTORE:
		return fmt.Sprintf("STORE R%d, %d(R%d)", inst.Rd, inst.Imm, inst.Rs2)
	case isa.OpBEQ:
		return fmt.Sprintf("BEQ R%d, R%d, %d", inst.Rs1, inst.Rs2, inst.Imm)
	case isa.OpCALL:
		return fmt.Sprintf("CALL %d", inst.Imm)
	case isa.OpRET:
		return fmt.Sprintf("RET R%d", inst.Rs1)
	case isa.OpADDI:
		return fmt.Sprintf("ADDI R%d, R%d, %d", inst.Rd, inst.Rs1, inst.Imm)
	default:
		return fmt.Sprintf("%s R%d, R%d, R%d", inst.Op, inst.Rd, inst.Rs1, inst.Rs2)
	}
}

// WriteSummary prints the aggregate statistics block.
func WriteSummary(w io.Writer, stats engine.Stats) {
	fmt.Fprintf(w, "\ncycles:            %d\n", stats.Cycles)
	fmt.Fprintf(w, "retired:           %d\n", stats.Retired)
	fmt.Fprintf(w, "IPC:               %.3f\n", stats.IPC())
	fmt.Fprintf(w, "branches:          %d\n", stats.Branches)
	fmt.Fprintf(w, "mispredicted:      %d\n", stats.Mispredicted)
	fmt.Fprintf(w, "misprediction rate: %.2f%%\n", stats.MispredictionRate()*100)
}

// WriteState prints a snapshot of the register alias table and reorder
// buffer contents, for the CLI driver's -dump-state mode (spec.md §7's
// requirement that a fatal diagnostic be able to show "the cycle, ROB
// contents, station states").
func WriteState(w io.Writer, cycle uint64, rat *engine.RAT, rob *engine.ROB) {
	fmt.Fprintf(w, "\n--- cycle %d ---\n", cycle)

	fmt.Fprintln(w, "rat:")
	snap := rat.Snapshot()
	for reg, tag := range snap {
		if tag == engine.NoTag {
			continue
		}
		fmt.Fprintf(w, "  R%d -> rob[%d]\n", reg, tag)
	}

	fmt.Fprintln(w, "rob:")
	for _, e := range rob.Snapshot() {
		fmt.Fprintf(w, "  [%d] seq=%d %s state=%s\n", e.Tag, e.Seq, mnemonic(e.Inst), e.State)
	}
}

// WriteRegisters prints the final architectural register file.
func WriteRegisters(w io.Writer, regs [isa.NumRegisters]uint16) {
	fmt.Fprintln(w, "\nregisters:")
	for i, v := range regs {
		fmt.Fprintf(w, "  R%d = %d (0x%04x)\n", i, v, v)
	}
}
