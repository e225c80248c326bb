// Package recipients loads delimited recipient files into structured records,
// separating deliverable rows from rejected addresses.
package recipients

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/shineum/bulkmail-lite/internal/validate"
)

// Record holds the data for one recipient row. Name and Email are the core
// fields; Fields carries every column from the source row (including name and
// email) keyed by header name, with Columns preserving the header order so
// template rendering is deterministic.
type Record struct {
	Name    string
	Email   string
	Fields  map[string]string
	Columns []string
}

// Field returns the value of a named column, or the empty string.
func (r Record) Field(key string) string {
	return r.Fields[key]
}

// NewRecord builds a minimal name/email record, as used for the fixed
// test-recipient list.
func NewRecord(name, emailAddr string) Record {
	return Record{
		Name:    name,
		Email:   emailAddr,
		Fields:  map[string]string{"name": name, "email": emailAddr},
		Columns: []string{"name", "email"},
	}
}

// Load parses a header-prefixed CSV recipient file in a single pass.
// Every data row is zipped against the header; the email column is run
// through the validator. Rows with a valid address become Records, rows
// without one are returned as raw rejected values. Rows shorter than the
// header are padded with empty strings for the missing trailing columns.
func Load(path string) ([]Record, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open recipient file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read recipient header: %w", err)
	}

	var (
		records  []Record
		rejected []string
	)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read recipient row: %w", err)
		}

		rec := Record{
			Fields:  make(map[string]string, len(header)),
			Columns: header,
		}
		for i, col := range header {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			rec.Fields[col] = value
			switch col {
			case "email":
				rec.Email = value
			case "name":
				rec.Name = value
			}
		}

		if !validate.Email(rec.Email) {
			rejected = append(rejected, rec.Email)
			continue
		}
		records = append(records, rec)
	}

	return records, rejected, nil
}

// retryColumns is the fixed header of the retry sink format.
var retryColumns = []string{"name", "email"}

// LoadRetry parses the headerless two-column (name, email) retry file and,
// on success, truncates it so the next pass starts from an empty sink. Rows
// failing address validation are returned as rejected values, same as Load.
func LoadRetry(path string) ([]Record, []string, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to open retry file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var (
		records  []Record
		rejected []string
	)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read retry row: %w", err)
		}

		rec := Record{
			Fields:  make(map[string]string, len(retryColumns)),
			Columns: retryColumns,
		}
		for i, col := range retryColumns {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			rec.Fields[col] = value
		}
		rec.Name = rec.Fields["name"]
		rec.Email = rec.Fields["email"]

		if !validate.Email(rec.Email) {
			rejected = append(rejected, rec.Email)
			continue
		}
		records = append(records, rec)
	}

	// The rows are consumed by this pass; reset the sink.
	if err := f.Truncate(0); err != nil {
		return nil, nil, fmt.Errorf("failed to truncate retry file: %w", err)
	}

	return records, rejected, nil
}
