package replay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"ammLedger/internal/model"
)

// Entry is one instruction of a journal with its 1-based line number.
type Entry struct {
	Line        uint64
	Instruction model.Instruction
}

// ReadJournal parses a JSONL instruction journal. Blank lines are skipped but
// still counted.
func ReadJournal(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()
	return parseJournal(file)
}

func parseJournal(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var (
		entries []Entry
		line    uint64
	)
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var ins model.Instruction
		if err := json.Unmarshal(raw, &ins); err != nil {
			return nil, fmt.Errorf("journal line %d: %w", line, err)
		}
		entries = append(entries, Entry{Line: line, Instruction: ins})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	return entries, nil
}
