// Package main provides a thin entry point for tomasulo16, a
// cycle-accurate simulator of a 16-bit RISC processor core using
// Tomasulo's algorithm.
//
// For the full CLI, use: go run ./cmd/tomasulo16
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("tomasulo16 - 16-bit RISC Tomasulo simulator")
	fmt.Println("")
	fmt.Println("Usage: tomasulo16 [options] <program.asm>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -start     Word address to begin fetching at")
	fmt.Println("  -mem       Path to a memory preload file")
	fmt.Println("  -config    Path to timing configuration JSON file")
	fmt.Println("  -v         Print the per-instruction timeline and final registers")
	fmt.Println("  -dump-state  Print the RAT and ROB contents every -dump-every cycles")
	fmt.Println("  -dump-every  Cycle interval for -dump-state")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/tomasulo16' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/tomasulo16' instead.")
	}
}
