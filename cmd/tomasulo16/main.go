// Package main provides the entry point for tomasulo16, a cycle-accurate
// simulator of a 16-bit RISC processor core using Tomasulo's algorithm.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/archsim/tomasulo16/arch"
	"github.com/archsim/tomasulo16/asm"
	"github.com/archsim/tomasulo16/loader"
	"github.com/archsim/tomasulo16/report"
	"github.com/archsim/tomasulo16/timing/config"
	"github.com/archsim/tomasulo16/timing/engine"
)

var (
	startPC    = flag.Uint("start", 0, "Word address to begin fetching at")
	memPath    = flag.String("mem", "", "Path to a memory preload file")
	configPath = flag.String("config", "", "Path to a timing configuration JSON file")
	verbose    = flag.Bool("v", false, "Print the per-instruction timeline and final registers")
	dumpState  = flag.Bool("dump-state", false, "Print the RAT and ROB contents every -dump-every cycles")
	dumpEvery  = flag.Uint("dump-every", 1, "Cycle interval for -dump-state")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: tomasulo16 [options] <program.asm>\n\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(programPath string) error {
	src, err := os.Open(programPath)
	if err != nil {
		return fmt.Errorf("failed to open program: %w", err)
	}
	defer src.Close()

	prog, err := asm.Parse(src)
	if err != nil {
		return fmt.Errorf("failed to assemble program: %w", err)
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			return fmt.Errorf("failed to load timing config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid timing config: %w", err)
	}

	mem := arch.NewMemory()
	if *memPath != "" {
		preloads, err := loader.Load(*memPath)
		if err != nil {
			return fmt.Errorf("failed to load memory preload: %w", err)
		}
		if err := mem.ApplyPreloads(preloads); err != nil {
			return fmt.Errorf("failed to apply memory preload: %w", err)
		}
	}

	e := engine.New(cfg, prog.Instructions, mem, uint16(*startPC))

	stats, runErr := runEngine(e)

	if *verbose {
		report.WriteTimeline(os.Stdout, e.Timeline())
		report.WriteRegisters(os.Stdout, e.RegisterFile().Snapshot())
	}
	report.WriteSummary(os.Stdout, stats)

	if runErr != nil {
		return runErr
	}
	return nil
}

// runEngine drives e to completion, optionally printing a RAT/ROB
// snapshot every -dump-every cycles along the way.
func runEngine(e *engine.Engine) (engine.Stats, error) {
	if !*dumpState {
		return e.Run()
	}

	every := *dumpEvery
	if every == 0 {
		every = 1
	}
	for {
		done, err := e.Tick()
		if e.Cycle()%uint64(every) == 0 {
			report.WriteState(os.Stdout, e.Cycle(), e.RAT(), e.ROB())
		}
		if err != nil {
			return e.Stats(), err
		}
		if done {
			return e.Stats(), nil
		}
	}
}
