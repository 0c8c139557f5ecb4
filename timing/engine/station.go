package engine

import "github.com/archsim/tomasulo16/isa"

// Station is a single reservation station slot: it buffers one
// instruction from issue until its result is broadcast (or, for
// STOREs, until it finishes executing), tracking operands as either
// known values or tags of the producing instruction (spec.md §2).
type Station struct {
	Busy        bool
	PendingFree bool // freed this cycle (by the CDB, or by a STORE finishing); cleared at end-of-cycle

	Op      isa.Opcode
	Vj, Vk  operand
	A       int32 // immediate: branch/call offset, load/store offset
	DestTag Tag
	PC      uint16 // originating instruction's PC
	Seq     uint64 // issue order, for oldest-first arbitration

	Started         bool
	Finished        bool
	CyclesRemaining int
	ExecStartCycle  uint64
	ExecFinishCycle uint64

	// Populated once Finished.
	ResultValue        uint16
	ResultAddr         uint32
	ResultTargetPC     uint16
	ResultMispredicted bool
	MemErr             *FatalError
}

func (s *Station) reset() {
	*s = Station{}
}

// ready reports whether both source operands (those the op actually
// uses) are known.
func (s *Station) ready() bool {
	switch s.Op {
	case isa.OpCALL:
		return true
	case isa.OpADDI, isa.OpRET, isa.OpLOAD:
		return s.Vj.ready
	default:
		return s.Vj.ready && s.Vk.ready
	}
}

// StationFile is the pool of reservation stations for one functional
// unit, plus that unit's single execution lane (spec.md §4.2: station
// count can exceed the number of concurrently-executing instructions —
// only one station of a given unit may be mid-execution at a time).
type StationFile struct {
	Unit     Unit
	Stations []Station
	Latency  uint64
}

// NewStationFile returns a StationFile with n idle stations.
func NewStationFile(unit Unit, n int, latency uint64) *StationFile {
	return &StationFile{
		Unit:     unit,
		Stations: make([]Station, n),
		Latency:  latency,
	}
}

// FindFree returns the index of an idle station, if one exists.
func (f *StationFile) FindFree() (int, bool) {
	for i := range f.Stations {
		if !f.Stations[i].Busy {
			return i, true
		}
	}
	return 0, false
}

// occupant returns the index of the station currently mid-execution
// (Started and not yet Finished), if any. Invariant: at most one.
func (f *StationFile) occupant() (int, bool) {
	for i := range f.Stations {
		s := &f.Stations[i]
		if s.Busy && s.Started && !s.Finished {
			return i, true
		}
	}
	return 0, false
}

// oldestReadyToStart returns the index of the busy, ready, not-yet-started
// station with the smallest Seq (oldest in program order), per the
// selection policy for contending stations of the same unit type.
func (f *StationFile) oldestReadyToStart() (int, bool) {
	best := -1
	for i := range f.Stations {
		s := &f.Stations[i]
		if !s.Busy || s.Started || !s.ready() {
			continue
		}
		if best == -1 || s.Seq < f.Stations[best].Seq {
			best = i
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// resolve flips any operand whose pending tag matches broadcastTag to
// a known value. Called on every station file when the CDB broadcasts.
func (s *Station) resolve(broadcastTag Tag, value uint16) {
	if !s.Vj.ready && s.Vj.tag == broadcastTag {
		s.Vj = knownOperand(value)
	}
	if !s.Vk.ready && s.Vk.tag == broadcastTag {
		s.Vk = knownOperand(value)
	}
}
