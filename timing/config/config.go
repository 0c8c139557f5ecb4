// Package config provides the functional-unit latency and station-count
// configuration for the Tomasulo engine, grounded on the teacher's
// timing/latency.TimingConfig pattern (JSON-backed, validated, cloneable).
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds the per-unit latency (in cycles, spec.md §4.2) and
// reservation-station counts (spec.md §2) for the engine.
type Config struct {
	// Latencies, total cycles from execute-start to execute-finish.
	LoadLatency    uint64 `json:"load_latency"`
	StoreLatency   uint64 `json:"store_latency"`
	BeqLatency     uint64 `json:"beq_latency"`
	CallRetLatency uint64 `json:"call_ret_latency"`
	AddLatency     uint64 `json:"add_latency"`
	NandLatency    uint64 `json:"nand_latency"`
	MulLatency     uint64 `json:"mul_latency"`

	// Station counts per functional unit.
	LoadStations    int `json:"load_stations"`
	StoreStations   int `json:"store_stations"`
	BeqStations     int `json:"beq_stations"`
	CallRetStations int `json:"call_ret_stations"`
	AddStations     int `json:"add_stations"`
	NandStations    int `json:"nand_stations"`
	MulStations     int `json:"mul_stations"`

	// ROBSize is the number of reorder buffer slots.
	ROBSize int `json:"rob_size"`
}

// DefaultConfig returns the configuration fixed by spec.md §4.2.
func DefaultConfig() *Config {
	return &Config{
		LoadLatency:    6,
		StoreLatency:   6,
		BeqLatency:     1,
		CallRetLatency: 1,
		AddLatency:     2,
		NandLatency:    1,
		MulLatency:     8,

		LoadStations:    2,
		StoreStations:   1,
		BeqStations:     1,
		CallRetStations: 1,
		AddStations:     4,
		NandStations:    2,
		MulStations:     1,

		ROBSize: 32,
	}
}

// LoadConfig loads a Config from a JSON file, starting from
// DefaultConfig so a partial file only overrides the fields it sets.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as indented JSON.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}
	return nil
}

// Validate checks that every latency and station count is positive and
// that the ROB is large enough to hold at least one of every station.
func (c *Config) Validate() error {
	latencies := map[string]uint64{
		"load_latency":     c.LoadLatency,
		"store_latency":    c.StoreLatency,
		"beq_latency":      c.BeqLatency,
		"call_ret_latency": c.CallRetLatency,
		"add_latency":      c.AddLatency,
		"nand_latency":     c.NandLatency,
		"mul_latency":      c.MulLatency,
	}
	for name, v := range latencies {
		if v == 0 {
			return fmt.Errorf("%s must be > 0", name)
		}
	}

	stations := map[string]int{
		"load_stations":     c.LoadStations,
		"store_stations":    c.StoreStations,
		"beq_stations":      c.BeqStations,
		"call_ret_stations": c.CallRetStations,
		"add_stations":      c.AddStations,
		"nand_stations":     c.NandStations,
		"mul_stations":      c.MulStations,
	}
	total := 0
	for name, v := range stations {
		if v <= 0 {
			return fmt.Errorf("%s must be > 0", name)
		}
		total += v
	}

	if c.ROBSize <= 0 {
		return fmt.Errorf("rob_size must be > 0")
	}
	if c.ROBSize < total {
		return fmt.Errorf("rob_size (%d) must be >= total reservation stations (%d)", c.ROBSize, total)
	}

	return nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
