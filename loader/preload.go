// Package loader reads a memory preload file: a plain-text list of
// (address, value) pairs applied to memory before the engine starts
// (spec.md §6). It is a peripheral component, not imported by the
// engine itself.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/archsim/tomasulo16/arch"
)

// Load reads preload pairs from path.
func Load(path string) ([]arch.Preload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open preload file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads preload pairs from r. Each non-blank, non-comment line
// holds "address value", decimal or 0x-prefixed hex, separated by
// whitespace. A ';' begins a line comment.
func Parse(r io.Reader) ([]arch.Preload, error) {
	var out []arch.Preload
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if idx := strings.IndexByte(line, ';'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected \"address value\", got %q", lineNo, line)
		}

		addr, err := parseNumber(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad address %q: %w", lineNo, fields[0], err)
		}
		value, err := parseNumber(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad value %q: %w", lineNo, fields[1], err)
		}

		out = append(out, arch.Preload{Addr: uint32(addr), Value: uint16(value)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read preload file: %w", err)
	}
	return out, nil
}

func parseNumber(s string) (uint64, error) {
	if strings.HasPrefix(strings.ToLower(s), "0x") {
		return strconv.ParseUint(s[2:], 16, 32)
	}
	return strconv.ParseUint(s, 10, 32)
}
