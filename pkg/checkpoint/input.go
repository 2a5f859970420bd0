package checkpoint

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Lxr713/AO3-Crawler/pkg/utils"
)

// LoadUnitIDs reads a unit identifier list from path. Two formats are
// accepted: a JSON checkpoint exposing a "work_ids" array (the discover
// phase's output), or a newline-delimited text file of identifiers. Blank
// lines and '#' comments are ignored in text files.
func LoadUnitIDs(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", utils.ErrNoUnits, path, err)
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return unitIDsFromJSON(path, data)
	}
	return unitIDsFromLines(path, data)
}

func unitIDsFromJSON(path string, data []byte) ([]string, error) {
	var doc struct {
		WorkIDs []string `json:"work_ids"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", utils.ErrNoUnits, path, err)
	}
	if len(doc.WorkIDs) == 0 {
		return nil, fmt.Errorf("%w: %s has no work_ids", utils.ErrNoUnits, path)
	}
	return dedupe(doc.WorkIDs), nil
}

func unitIDsFromLines(path string, data []byte) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanning %s: %w", utils.ErrNoUnits, path, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", utils.ErrNoUnits, path)
	}
	return dedupe(ids), nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
