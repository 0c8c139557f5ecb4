package engine

// Stats summarizes a completed (or aborted) run (spec.md §7).
type Stats struct {
	Cycles       uint64
	Retired      uint64
	Branches     uint64
	Mispredicted uint64
}

// IPC returns retired instructions per cycle.
func (s Stats) IPC() float64 {
	if s.Cycles == 0 {
		return 0
	}
	return float64(s.Retired) / float64(s.Cycles)
}

// MispredictionRate returns the fraction of committed branches that
// were mispredicted, as a value in [0, 1].
func (s Stats) MispredictionRate() float64 {
	if s.Branches == 0 {
		return 0
	}
	return float64(s.Mispredicted) / float64(s.Branches)
}
