package engine

import "github.com/archsim/tomasulo16/isa"

// RAT is the register alias table: for each architectural register, it
// either points at the ROB tag that will produce the next value, or
// says the register file already holds the current value (spec.md §2).
type RAT struct {
	tag     [isa.NumRegisters]Tag
	pending [isa.NumRegisters]bool
}

// NewRAT returns a RAT with every register mapped to the architectural
// register file (nothing pending).
func NewRAT() *RAT {
	r := &RAT{}
	r.Reset()
	return r
}

// Lookup reports whether reg's value is still pending on a ROB tag. If
// pending is false, the register file holds the current value.
func (r *RAT) Lookup(reg uint8) (tag Tag, pending bool) {
	return r.tag[reg], r.pending[reg]
}

// SetTag records that reg's next value will come from tag.
func (r *RAT) SetTag(reg uint8, tag Tag) {
	r.tag[reg] = tag
	r.pending[reg] = true
}

// ClearIfMatches clears reg's pending mapping, but only if it still
// points at tag. A later instruction may have already overwritten the
// mapping with a newer producer, in which case this is a no-op.
func (r *RAT) ClearIfMatches(reg uint8, tag Tag) {
	if r.pending[reg] && r.tag[reg] == tag {
		r.pending[reg] = false
		r.tag[reg] = NoTag
	}
}

// Reset clears every register mapping back to the architectural file.
// Used on branch misprediction squash.
func (r *RAT) Reset() {
	for i := range r.tag {
		r.tag[i] = NoTag
		r.pending[i] = false
	}
}

// Snapshot returns, for every architectural register, the ROB tag it is
// currently aliased to (NoTag if the register file already holds the
// value). Used by -dump-state reporting.
func (r *RAT) Snapshot() [isa.NumRegisters]Tag {
	var out [isa.NumRegisters]Tag
	for i := range r.tag {
		if r.pending[i] {
			out[i] = r.tag[i]
		} else {
			out[i] = NoTag
		}
	}
	return out
}
