// Package tabular reads and writes the delimited text format used for
// intermediate tabular artifacts.
//
// Null handling is part of the format contract: on read, empty fields
// and the literal text "None" collapse to an explicit nil; on write,
// every field is quoted and nil serializes as a quoted empty field.
// A write followed by a read recovers the same shape and the same
// null positions.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Table is an in-memory tabular payload. A nil cell is a null.
type Table struct {
	Columns []string
	Rows    [][]*string
}

// Shape returns the row and column counts.
func (t *Table) Shape() (rows, cols int) {
	return len(t.Rows), len(t.Columns)
}

// Cell returns the value at (row, col) and whether it is non-null.
func (t *Table) Cell(row, col int) (string, bool) {
	v := t.Rows[row][col]
	if v == nil {
		return "", false
	}
	return *v, true
}

// Read parses a delimited payload. The first record is the header.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing delimited payload: %w", err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}

	t := &Table{Columns: records[0]}
	for _, record := range records[1:] {
		row := make([]*string, len(record))
		for i, field := range record {
			if field == "" || field == "None" {
				continue
			}
			value := field
			row[i] = &value
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadString parses a delimited payload held in a string.
func ReadString(s string) (*Table, error) {
	return Read(strings.NewReader(s))
}

// Write renders the table with every field quoted. encoding/csv only
// quotes fields that require it and the format wants full quoting, so
// rendering is done by hand.
func Write(w io.Writer, t *Table) error {
	if err := writeRecord(w, t.Columns); err != nil {
		return err
	}
	for _, row := range t.Rows {
		fields := make([]string, len(row))
		for i, cell := range row {
			if cell != nil {
				fields[i] = *cell
			}
		}
		if err := writeRecord(w, fields); err != nil {
			return err
		}
	}
	return nil
}

// WriteString renders the table to a string.
func WriteString(t *Table) (string, error) {
	var sb strings.Builder
	if err := Write(&sb, t); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeRecord(w io.Writer, fields []string) error {
	quoted := make([]string, len(fields))
	for i, field := range fields {
		quoted[i] = `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
	}
	if _, err := io.WriteString(w, strings.Join(quoted, ",")+"\n"); err != nil {
		return fmt.Errorf("writing delimited payload: %w", err)
	}
	return nil
}
