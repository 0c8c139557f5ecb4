package engine

import "github.com/archsim/tomasulo16/isa"

// noCycle marks a stage an instruction has not (yet, or ever) reached.
const noCycle = -1

// TimelineEntry records the cycle at which one dynamic instruction
// reached each pipeline stage, for the report package's timeline table
// (spec.md §7). A squashed instruction simply never has its later
// stages filled in.
type TimelineEntry struct {
	Seq        uint64
	PC         uint16
	Inst       isa.Instruction
	Issue      int
	ExecStart  int
	ExecFinish int
	Write      int
	Commit     int
}

// Timeline accumulates one TimelineEntry per dynamic instruction issued,
// in issue order.
type Timeline struct {
	Entries []TimelineEntry
}

// NewTimeline returns an empty Timeline.
func NewTimeline() *Timeline {
	return &Timeline{}
}

// Record appends a new entry for an instruction issued this cycle and
// returns its index, used later to update Exec/Write/Commit.
func (t *Timeline) Record(seq uint64, pc uint16, inst isa.Instruction, issueCycle uint64) int {
	idx := len(t.Entries)
	t.Entries = append(t.Entries, TimelineEntry{
		Seq:        seq,
		PC:         pc,
		Inst:       inst,
		Issue:      int(issueCycle),
		ExecStart:  noCycle,
		ExecFinish: noCycle,
		Write:      noCycle,
		Commit:     noCycle,
	})
	return idx
}

func (t *Timeline) markExec(idx int, cycle uint64) {
	t.Entries[idx].ExecStart = int(cycle)
}

func (t *Timeline) markExecFinish(idx int, cycle uint64) {
	t.Entries[idx].ExecFinish = int(cycle)
}

func (t *Timeline) markWrite(idx int, cycle uint64) {
	t.Entries[idx].Write = int(cycle)
}

func (t *Timeline) markCommit(idx int, cycle uint64) {
	t.Entries[idx].Commit = int(cycle)
}
