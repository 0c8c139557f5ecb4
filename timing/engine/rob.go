package engine

import "github.com/archsim/tomasulo16/isa"

// ROBState is the lifecycle stage of a reorder buffer entry (spec.md §2).
type ROBState uint8

const (
	// Issued: allocated, waiting on its reservation station to start.
	Issued ROBState = iota
	// Executing: its reservation station has begun computing.
	Executing
	// Written: its result has been broadcast on the CDB.
	Written
	// ReadyToCommit: finished and ready for the commit stage, reached
	// directly by STOREs, which skip the CDB entirely.
	ReadyToCommit
)

func (s ROBState) String() string {
	switch s {
	case Issued:
		return "issued"
	case Executing:
		return "executing"
	case Written:
		return "written"
	case ReadyToCommit:
		return "ready-to-commit"
	default:
		return "unknown"
	}
}

// ROBEntry is one in-flight instruction's bookkeeping record.
type ROBEntry struct {
	Valid bool
	Tag   Tag
	Seq   uint64 // monotonic issue order, used to break ties by age
	Inst  isa.Instruction
	State ROBState

	HasDestReg bool
	DestReg    uint8
	Value      uint16

	HasDestAddr bool
	DestAddr    uint32

	PredictedNextPC uint16
	ActualNextPC    uint16
	HasActualNextPC bool
	Mispredicted    bool

	TimelineIndex int
}

// ROB is the reorder buffer: a fixed-size circular arena indexed by
// Tag (spec.md §9 "arena-style ROB"). Instructions are allocated at the
// tail in program order and retire from the head in program order,
// which is what gives commit its in-order guarantee despite out-of-order
// execution.
type ROB struct {
	entries []ROBEntry
	head    int
	tail    int
	count   int
}

// NewROB returns an empty ROB with size slots.
func NewROB(size int) *ROB {
	return &ROB{entries: make([]ROBEntry, size)}
}

// Size returns the ROB's capacity.
func (r *ROB) Size() int { return len(r.entries) }

// Full reports whether the ROB has no free slots.
func (r *ROB) Full() bool { return r.count == len(r.entries) }

// Empty reports whether the ROB holds no in-flight instructions.
func (r *ROB) Empty() bool { return r.count == 0 }

// Allocate reserves the next slot at the tail for inst, returning its
// tag. The caller must have already checked !Full().
func (r *ROB) Allocate(inst isa.Instruction, seq uint64) (Tag, *ROBEntry) {
	idx := r.tail
	r.entries[idx] = ROBEntry{
		Valid: true,
		Tag:   Tag(idx),
		Seq:   seq,
		Inst:  inst,
		State: Issued,
	}
	r.tail = (r.tail + 1) % len(r.entries)
	r.count++
	return Tag(idx), &r.entries[idx]
}

// Get returns the entry for tag. The returned pointer is only valid
// until the next Squash.
func (r *ROB) Get(tag Tag) *ROBEntry {
	return &r.entries[int(tag)]
}

// HeadTag returns the tag of the oldest in-flight instruction.
func (r *ROB) HeadTag() (Tag, bool) {
	if r.Empty() {
		return NoTag, false
	}
	return Tag(r.head), true
}

// Advance retires the head entry, freeing its slot.
func (r *ROB) Advance() {
	r.entries[r.head].Valid = false
	r.head = (r.head + 1) % len(r.entries)
	r.count--
}

// Squash invalidates every in-flight entry, emptying the ROB. Used on
// branch misprediction.
func (r *ROB) Squash() {
	for i := range r.entries {
		r.entries[i].Valid = false
	}
	r.head = 0
	r.tail = 0
	r.count = 0
}

// Snapshot returns every in-flight entry from oldest (head) to newest
// (tail), for -dump-state reporting.
func (r *ROB) Snapshot() []ROBEntry {
	out := make([]ROBEntry, 0, r.count)
	for i, n := r.head, 0; n < r.count; i, n = (i+1)%len(r.entries), n+1 {
		out = append(out, r.entries[i])
	}
	return out
}
