// Package stats persists keyed run statistics to a flat text file with
// last-write-wins semantics per key.
package stats

import (
	"fmt"
	"os"
	"strings"
)

// Key identifies one well-known stats entry.
type Key string

const (
	KeyTotalRecipients  Key = "TOTAL RECIPIENTS"
	KeyStartTime        Key = "START TIME"
	KeyEndTime          Key = "END TIME"
	KeyLastRecipient    Key = "LAST RECIPIENT"
	KeyFailedRecipients Key = "FAILED RECIPIENTS"
	KeySourceFile       Key = "SOURCE FILE"
)

// Recorder appends or updates keyed entries in the stats file. An existing
// line for the same key is replaced in place, preserving the ordering of all
// other lines; the file never holds two entries for one key.
type Recorder struct {
	path string
}

// NewRecorder creates a Recorder writing to the given file path.
func NewRecorder(path string) *Recorder {
	return &Recorder{path: path}
}

// Record writes "KEY: value" for the given key, replacing any previous entry.
func (r *Recorder) Record(key Key, value string) error {
	lines, err := r.readLines()
	if err != nil {
		return err
	}

	entry := fmt.Sprintf("%s: %s", key, value)
	replaced := false
	for i, line := range lines {
		if strings.HasPrefix(line, string(key)+":") {
			lines[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		lines = append(lines, entry)
	}

	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(r.path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	return nil
}

// Get returns the recorded value for a key, or false if absent.
func (r *Recorder) Get(key Key) (string, bool, error) {
	lines, err := r.readLines()
	if err != nil {
		return "", false, err
	}
	prefix := string(key) + ":"
	for _, line := range lines {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true, nil
		}
	}
	return "", false, nil
}

func (r *Recorder) readLines() ([]string, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read stats file: %w", err)
	}
	raw := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	lines := raw[:0]
	for _, line := range raw {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
