package arch

import "fmt"

// MemoryWords is the memory capacity in 16-bit words: 128KB / 2 bytes
// per word (spec.md §3).
const MemoryWords = 128 * 1024 / 2

// Memory is word-addressable 16-bit storage.
type Memory struct {
	words [MemoryWords]uint16
}

// NewMemory returns a zeroed Memory.
func NewMemory() *Memory {
	return &Memory{}
}

// OutOfRangeError reports an access past the end of memory.
type OutOfRangeError struct {
	Addr uint32
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("memory address 0x%x out of range [0, 0x%x)", e.Addr, MemoryWords)
}

// Read returns the word at addr, or an error if addr is out of range.
func (m *Memory) Read(addr uint32) (uint16, error) {
	if addr >= MemoryWords {
		return 0, &OutOfRangeError{Addr: addr}
	}
	return m.words[addr], nil
}

// Write stores value at addr, or returns an error if addr is out of range.
func (m *Memory) Write(addr uint32, value uint16) error {
	if addr >= MemoryWords {
		return &OutOfRangeError{Addr: addr}
	}
	m.words[addr] = value
	return nil
}

// Preload is a single (address, value) seed pair applied before the
// engine starts (spec.md §6).
type Preload struct {
	Addr  uint32
	Value uint16
}

// ApplyPreloads writes every preload pair into memory, in order. It
// returns the first out-of-range error encountered, if any.
func (m *Memory) ApplyPreloads(preloads []Preload) error {
	for _, p := range preloads {
		if err := m.Write(p.Addr, p.Value); err != nil {
			return err
		}
	}
	return nil
}
