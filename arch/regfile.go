// Package arch provides the architectural state: the register file and
// word-addressable memory. Both are mutated only by the engine's Commit
// stage (spec.md §5) — the package itself has no opinion about when it
// is safe to write, it simply provides bounds-checked storage.
package arch

import "github.com/archsim/tomasulo16/isa"

// RegFile holds the 8 architectural general-purpose registers.
type RegFile struct {
	R [isa.NumRegisters]uint16
}

// Read returns the value of register reg.
func (f *RegFile) Read(reg uint8) uint16 {
	return f.R[reg]
}

// Write stores value into register reg.
func (f *RegFile) Write(reg uint8, value uint16) {
	f.R[reg] = value
}

// Snapshot returns a copy of the register contents, for diagnostics and
// tests.
func (f *RegFile) Snapshot() [isa.NumRegisters]uint16 {
	return f.R
}
