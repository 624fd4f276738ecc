package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/heapkit/heapalloc/validator"
)

// loadTrace parses a line-oriented trace file:
//
//	a <id> <size>   allocate, remembering the returned slot under id
//	f <id>          free the allocation remembered under id
//	r <id> <size>   reallocate the allocation remembered under id
//
// Blank lines and lines starting with '#' are ignored. ids are caller-
// chosen labels (trace files are typically machine-generated); loadTrace
// translates them into the slot indices validator.RunTrace expects,
// since the validator itself is id-agnostic and only tracks pointers.
func loadTrace(path string) ([]validator.Op, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()

	slotOf := make(map[string]int)
	var live []string
	var ops []validator.Op

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "a":
			if len(fields) != 3 {
				return nil, fmt.Errorf("trace line %d: want 'a <id> <size>'", lineNo)
			}
			size, err := strconv.ParseUint(fields[2], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("trace line %d: bad size: %w", lineNo, err)
			}
			ops = append(ops, validator.Op{Kind: validator.OpAllocate, Size: uint32(size)})
			slotOf[fields[1]] = len(live)
			live = append(live, fields[1])

		case "f":
			if len(fields) != 2 {
				return nil, fmt.Errorf("trace line %d: want 'f <id>'", lineNo)
			}
			idx, ok := slotOf[fields[1]]
			if !ok {
				return nil, fmt.Errorf("trace line %d: free of unknown id %q", lineNo, fields[1])
			}
			ops = append(ops, validator.Op{Kind: validator.OpFree, Target: idx})
			removeLive(slotOf, &live, idx)

		case "r":
			if len(fields) != 3 {
				return nil, fmt.Errorf("trace line %d: want 'r <id> <size>'", lineNo)
			}
			idx, ok := slotOf[fields[1]]
			if !ok {
				return nil, fmt.Errorf("trace line %d: reallocate of unknown id %q", lineNo, fields[1])
			}
			size, err := strconv.ParseUint(fields[2], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("trace line %d: bad size: %w", lineNo, err)
			}
			ops = append(ops, validator.Op{Kind: validator.OpReallocate, Target: idx, Size: uint32(size)})

		default:
			return nil, fmt.Errorf("trace line %d: unknown op %q", lineNo, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}

	return ops, nil
}

// removeLive deletes the slot at idx from live and shifts every later id's
// recorded slot index down by one, mirroring how validator.RunTrace
// compacts its own slots slice on free.
func removeLive(slotOf map[string]int, live *[]string, idx int) {
	l := *live
	for _, id := range l[idx+1:] {
		slotOf[id]--
	}
	delete(slotOf, l[idx])
	*live = append(l[:idx], l[idx+1:]...)
}
