package engine

import (
	"github.com/archsim/tomasulo16/arch"
	"github.com/archsim/tomasulo16/isa"
	"github.com/archsim/tomasulo16/timing/config"
)

// Engine is the Tomasulo controller. It owns architectural state (the
// register file and memory), the speculative structures (RAT, ROB,
// reservation stations), and drives them one cycle at a time via Tick.
type Engine struct {
	cfg     *config.Config
	regFile *arch.RegFile
	memory  *arch.Memory
	program []isa.Instruction

	rat      *RAT
	rob      *ROB
	stations [numUnits]*StationFile

	cycle   uint64
	fetchPC uint16
	nextSeq uint64

	// A CDB broadcast resolves waiting stations' operands only at the
	// end of the cycle it happened in (see applyPendingResolve), so a
	// station made ready by it cannot start executing until next cycle.
	havePendingResolve  bool
	pendingResolveTag   Tag
	pendingResolveValue uint16

	timeline *Timeline
	stats    Stats
}

// New constructs an Engine ready to run program against memory, using
// the functional-unit configuration cfg. startPC is the address (word
// index into program) of the first instruction to fetch.
func New(cfg *config.Config, program []isa.Instruction, memory *arch.Memory, startPC uint16) *Engine {
	e := &Engine{
		cfg:      cfg,
		regFile:  &arch.RegFile{},
		memory:   memory,
		program:  program,
		rat:      NewRAT(),
		rob:      NewROB(cfg.ROBSize),
		fetchPC:  startPC,
		timeline: NewTimeline(),
	}
	e.stations[UnitLoad] = NewStationFile(UnitLoad, cfg.LoadStations, cfg.LoadLatency)
	e.stations[UnitStore] = NewStationFile(UnitStore, cfg.StoreStations, cfg.StoreLatency)
	e.stations[UnitBeq] = NewStationFile(UnitBeq, cfg.BeqStations, cfg.BeqLatency)
	e.stations[UnitCallRet] = NewStationFile(UnitCallRet, cfg.CallRetStations, cfg.CallRetLatency)
	e.stations[UnitAdd] = NewStationFile(UnitAdd, cfg.AddStations, cfg.AddLatency)
	e.stations[UnitNand] = NewStationFile(UnitNand, cfg.NandStations, cfg.NandLatency)
	e.stations[UnitMul] = NewStationFile(UnitMul, cfg.MulStations, cfg.MulLatency)
	return e
}

// RegisterFile returns the architectural register file, for reporting
// and tests. It must not be mutated outside Commit.
func (e *Engine) RegisterFile() *arch.RegFile { return e.regFile }

// Memory returns the architectural memory.
func (e *Engine) Memory() *arch.Memory { return e.memory }

// Timeline returns the per-instruction cycle-stamp recorder.
func (e *Engine) Timeline() *Timeline { return e.timeline }

// Stats returns the running statistics.
func (e *Engine) Stats() Stats { return e.stats }

// Cycle returns the number of cycles executed so far.
func (e *Engine) Cycle() uint64 { return e.cycle }

// RAT returns the register alias table, for -dump-state reporting.
func (e *Engine) RAT() *RAT { return e.rat }

// ROB returns the reorder buffer, for -dump-state reporting.
func (e *Engine) ROB() *ROB { return e.rob }

func (e *Engine) fetchExhausted() bool {
	return int(e.fetchPC) >= len(e.program)
}

func (e *Engine) anyStationBusy() bool {
	for _, f := range e.stations {
		for i := range f.Stations {
			if f.Stations[i].Busy {
				return true
			}
		}
	}
	return false
}

// Run ticks the engine until the program drains (fetch exhausted and
// the ROB empty) or a fatal condition is hit.
func (e *Engine) Run() (Stats, error) {
	for {
		done, err := e.Tick()
		if err != nil {
			return e.stats, err
		}
		if done {
			return e.stats, nil
		}
	}
}

// Tick advances the engine by one cycle, running Commit, Write-Result,
// Execute and Issue in that order (spec.md §2: newest-to-oldest stage
// evaluation, so a station freed this cycle is only reusable next
// cycle, and an operand resolved by this cycle's CDB broadcast cannot
// start executing until next cycle either). It returns done=true once
// the program has fully drained.
func (e *Engine) Tick() (bool, error) {
	e.cycle++
	e.stats.Cycles = e.cycle

	squashed, err := e.doCommit()
	if err != nil {
		return false, err
	}
	if !squashed {
		if err := e.doWriteResult(); err != nil {
			return false, err
		}
		e.doExecute()
		e.doIssue()
	}
	e.releasePendingFrees()
	e.applyPendingResolve()

	if e.fetchExhausted() && !e.rob.Empty() && !e.anyStationBusy() {
		head, _ := e.rob.HeadTag()
		if st := e.rob.Get(head).State; st != Written && st != ReadyToCommit {
			return false, e.deadlockError()
		}
	}

	return e.fetchExhausted() && e.rob.Empty(), nil
}

func (e *Engine) deadlockError() *FatalError {
	stations := make(map[string][]Station, numUnits)
	for _, f := range e.stations {
		snap := make([]Station, len(f.Stations))
		copy(snap, f.Stations)
		stations[f.Unit.String()] = snap
	}
	return &FatalError{
		Kind:     FatalDeadlock,
		Cycle:    e.cycle,
		ROB:      e.rob.Snapshot(),
		Stations: stations,
	}
}

func (e *Engine) releasePendingFrees() {
	for _, f := range e.stations {
		for i := range f.Stations {
			if f.Stations[i].PendingFree {
				f.Stations[i].reset()
			}
		}
	}
}

// applyPendingResolve broadcasts this cycle's CDB winner (recorded by
// doWriteResult) to every waiting station, at the very end of the
// cycle — so a station it makes ready cannot be selected by
// oldestReadyToStart until the next cycle's doExecute (spec.md §4.3
// point 2).
func (e *Engine) applyPendingResolve() {
	if !e.havePendingResolve {
		return
	}
	for _, f := range e.stations {
		for i := range f.Stations {
			f.Stations[i].resolve(e.pendingResolveTag, e.pendingResolveValue)
		}
	}
	e.havePendingResolve = false
}

// --- Commit -----------------------------------------------------------

// doCommit retires the ROB head if it is ready, returning squashed=true
// if committing it triggered a branch-misprediction squash (in which
// case no further stage runs this cycle).
func (e *Engine) doCommit() (bool, error) {
	tag, ok := e.rob.HeadTag()
	if !ok {
		return false, nil
	}
	entry := e.rob.Get(tag)
	if entry.State != Written && entry.State != ReadyToCommit {
		return false, nil
	}

	switch entry.Inst.Op {
	case isa.OpLOAD, isa.OpADD, isa.OpADDI, isa.OpNAND, isa.OpMUL, isa.OpCALL:
		e.regFile.Write(entry.DestReg, entry.Value)
		e.rat.ClearIfMatches(entry.DestReg, tag)

	case isa.OpSTORE:
		if err := e.memory.Write(entry.DestAddr, entry.Value); err != nil {
			return false, &FatalError{Kind: FatalMemoryAccess, Cycle: e.cycle, Tag: tag, PC: entry.Inst.PC, Addr: entry.DestAddr}
		}

	case isa.OpBEQ, isa.OpRET:
		// No architectural register write.
	}

	e.timeline.markCommit(entry.TimelineIndex, e.cycle)
	e.stats.Retired++

	squash := entry.Inst.Op == isa.OpBEQ && entry.Mispredicted
	if entry.Inst.Op == isa.OpBEQ {
		e.stats.Branches++
		if entry.Mispredicted {
			e.stats.Mispredicted++
		}
	}

	actualNextPC := entry.ActualNextPC
	e.rob.Advance()

	if squash {
		e.squash(actualNextPC)
	}

	return squash, nil
}

// squash discards every in-flight speculative instruction after a
// mispredicted branch and resumes fetch at the correct target.
func (e *Engine) squash(resumePC uint16) {
	e.rob.Squash()
	e.rat.Reset()
	for _, f := range e.stations {
		for i := range f.Stations {
			f.Stations[i].reset()
		}
	}
	e.fetchPC = resumePC
}

// --- Write-Result (CDB) ------------------------------------------------

// doWriteResult arbitrates the common data bus: among all finished,
// not-yet-broadcast stations, the oldest (smallest Seq) broadcasts its
// result this cycle. STOREs never reach this stage; they transition
// straight to ReadyToCommit when they finish executing.
func (e *Engine) doWriteResult() error {
	var winner *Station
	for _, f := range e.stations {
		for i := range f.Stations {
			s := &f.Stations[i]
			if !s.Busy || !s.Finished || s.PendingFree {
				continue
			}
			if winner == nil || s.Seq < winner.Seq {
				winner = s
			}
		}
	}
	if winner == nil {
		return nil
	}
	if winner.MemErr != nil {
		return winner.MemErr
	}

	tag := winner.DestTag
	entry := e.rob.Get(tag)
	entry.Value = winner.ResultValue
	entry.ActualNextPC = winner.ResultTargetPC
	entry.HasActualNextPC = true
	entry.Mispredicted = winner.ResultMispredicted
	entry.State = Written

	e.timeline.markWrite(entry.TimelineIndex, e.cycle)

	// Defer the actual station broadcast to end-of-cycle: a station
	// this unblocks must wait until next cycle to start executing.
	e.havePendingResolve = true
	e.pendingResolveTag = tag
	e.pendingResolveValue = winner.ResultValue

	winner.PendingFree = true
	return nil
}

// --- Execute -------------------------------------------------------------

// doExecute advances every unit's in-flight station by one cycle and,
// for units with a free lane, starts the oldest ready waiting station.
func (e *Engine) doExecute() {
	for _, f := range e.stations {
		occupantIdx, occupied := f.occupant()
		if occupied {
			e.advanceExecution(f, occupantIdx)
		}
		if !occupied {
			if startIdx, ok := f.oldestReadyToStart(); ok {
				e.beginExecution(f, startIdx)
			}
		}
	}
}

func (e *Engine) beginExecution(f *StationFile, idx int) {
	s := &f.Stations[idx]
	s.Started = true
	s.ExecStartCycle = e.cycle
	s.CyclesRemaining = int(f.Latency) - 1

	entry := e.rob.Get(s.DestTag)
	entry.State = Executing
	e.timeline.markExec(entry.TimelineIndex, e.cycle)

	if s.CyclesRemaining <= 0 {
		e.finishExecution(s)
	}
}

func (e *Engine) advanceExecution(f *StationFile, idx int) {
	s := &f.Stations[idx]
	s.CyclesRemaining--
	if s.CyclesRemaining <= 0 {
		e.finishExecution(s)
	}
}

// finishExecution computes a station's result and, for STOREs, takes
// it all the way to ReadyToCommit (skipping the CDB per spec.md §4.3).
func (e *Engine) finishExecution(s *Station) {
	s.Finished = true
	s.ExecFinishCycle = e.cycle
	e.timeline.markExecFinish(e.rob.Get(s.DestTag).TimelineIndex, e.cycle)

	switch s.Op {
	case isa.OpLOAD:
		addr := uint32(uint16(s.Vj.value) + uint16(s.A))
		value, err := e.memory.Read(addr)
		if err != nil {
			s.ResultAddr = addr
			s.MemErr = &FatalError{Kind: FatalMemoryAccess, Cycle: e.cycle, Tag: s.DestTag, PC: s.PC, Addr: addr}
			return
		}
		s.ResultValue = value

	case isa.OpSTORE:
		addr := uint32(uint16(s.Vk.value) + uint16(s.A))
		s.ResultAddr = addr
		s.ResultValue = s.Vj.value
		entry := e.rob.Get(s.DestTag)
		entry.HasDestAddr = true
		entry.DestAddr = addr
		entry.Value = s.Vj.value
		entry.State = ReadyToCommit
		s.PendingFree = true
		return

	case isa.OpADD, isa.OpMUL:
		s.ResultValue = s.Vj.value + s.Vk.value
		if s.Op == isa.OpMUL {
			s.ResultValue = s.Vj.value * s.Vk.value
		}

	case isa.OpADDI:
		s.ResultValue = uint16(int32(s.Vj.value) + s.A)

	case isa.OpNAND:
		s.ResultValue = ^(s.Vj.value & s.Vk.value)

	case isa.OpBEQ:
		taken := s.Vj.value == s.Vk.value
		notTakenPC := s.PC + 1
		if taken {
			s.ResultTargetPC = uint16(int32(s.PC) + s.A)
		} else {
			s.ResultTargetPC = notTakenPC
		}
		s.ResultMispredicted = s.ResultTargetPC != notTakenPC

	case isa.OpCALL:
		s.ResultValue = s.PC + 1
		s.ResultTargetPC = uint16(s.A)
		s.ResultMispredicted = false

	case isa.OpRET:
		s.ResultTargetPC = s.Vj.value
		s.ResultMispredicted = false
	}
}

// --- Issue -----------------------------------------------------------

// doIssue fetches the next program-order instruction and dispatches it
// into a free reservation station of the right unit, stalling on a
// structural hazard (no free station, full ROB) or, for RET, on its
// operand not yet being ready.
func (e *Engine) doIssue() {
	if e.fetchExhausted() {
		return
	}
	pc := e.fetchPC
	inst := e.program[pc]
	unit := UnitForOp(inst.Op)
	f := e.stations[unit]

	stationIdx, ok := f.FindFree()
	if !ok {
		return
	}
	if e.rob.Full() {
		return
	}

	var vj, vk operand
	switch inst.Op {
	case isa.OpLOAD:
		vj = e.resolve(inst.Rs2)
	case isa.OpSTORE:
		vj = e.resolve(inst.Rd)
		vk = e.resolve(inst.Rs2)
	case isa.OpBEQ:
		vj = e.resolve(inst.Rs1)
		vk = e.resolve(inst.Rs2)
	case isa.OpADDI:
		vj = e.resolve(inst.Rs1)
	case isa.OpRET:
		vj = e.resolve(inst.Rs1)
		if !vj.ready {
			// Issue stalls entirely until the return address is known;
			// the static predictor does not apply to RET.
			return
		}
	case isa.OpCALL:
		// no register operands
	default: // ADD, NAND, MUL
		vj = e.resolve(inst.Rs1)
		vk = e.resolve(inst.Rs2)
	}

	seq := e.nextSeq
	e.nextSeq++

	predictedNextPC := pc + 1
	switch inst.Op {
	case isa.OpCALL:
		predictedNextPC = uint16(inst.Imm)
	case isa.OpRET:
		// Issue stalled until the operand was ready, so the target is
		// already known — no speculation, no possible misprediction.
		predictedNextPC = vj.value
	}

	tag, entry := e.rob.Allocate(inst, seq)
	entry.PredictedNextPC = predictedNextPC
	if reg, writes := inst.WritesRegister(); writes {
		entry.HasDestReg = true
		entry.DestReg = reg
		e.rat.SetTag(reg, tag)
	}
	entry.TimelineIndex = e.timeline.Record(seq, pc, inst, e.cycle)

	s := &f.Stations[stationIdx]
	s.reset()
	s.Busy = true
	s.Op = inst.Op
	s.Vj = vj
	s.Vk = vk
	s.DestTag = tag
	s.PC = pc
	s.Seq = seq

	switch inst.Op {
	case isa.OpLOAD, isa.OpSTORE, isa.OpBEQ, isa.OpADDI, isa.OpCALL:
		s.A = int32(inst.Imm)
	}

	switch inst.Op {
	case isa.OpBEQ:
		e.fetchPC = pc + 1
	case isa.OpCALL:
		e.fetchPC = uint16(inst.Imm)
	case isa.OpRET:
		e.fetchPC = vj.value
	default:
		e.fetchPC = pc + 1
	}
}

// resolve looks up reg's current value via the RAT, forwarding a value
// already written into the ROB (but not yet committed) when possible.
func (e *Engine) resolve(reg uint8) operand {
	tag, pending := e.rat.Lookup(reg)
	if !pending {
		return knownOperand(e.regFile.Read(reg))
	}
	entry := e.rob.Get(tag)
	if entry.Valid && (entry.State == Written || entry.State == ReadyToCommit) {
		return knownOperand(entry.Value)
	}
	return pendingOperand(tag)
}
