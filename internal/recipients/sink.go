package recipients

import (
	"encoding/csv"
	"fmt"
	"os"
)

// RetrySink appends failed recipients to the retry file in the headerless
// two-column format LoadRetry consumes.
type RetrySink struct {
	path string
}

// NewRetrySink creates a sink writing to the given retry file path.
func NewRetrySink(path string) *RetrySink {
	return &RetrySink{path: path}
}

// Path returns the retry file path.
func (s *RetrySink) Path() string {
	return s.path
}

// Append adds one recipient to the retry file.
func (s *RetrySink) Append(rec Record) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open retry file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{rec.Name, rec.Email}); err != nil {
		return fmt.Errorf("failed to write retry row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush retry row: %w", err)
	}
	return nil
}

// BadEmailSink records rejected raw addresses, one per line, append-only.
type BadEmailSink struct {
	path string
}

// NewBadEmailSink creates a sink writing to the given file path.
func NewBadEmailSink(path string) *BadEmailSink {
	return &BadEmailSink{path: path}
}

// Append writes the given rejected addresses to the sink.
func (s *BadEmailSink) Append(addresses []string) error {
	if len(addresses) == 0 {
		return nil
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open bad-email file: %w", err)
	}
	defer f.Close()

	for _, addr := range addresses {
		if _, err := fmt.Fprintln(f, addr); err != nil {
			return fmt.Errorf("failed to write bad-email entry: %w", err)
		}
	}
	return nil
}
