package provider

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV reads a CSV document whose first record is the header.
// Blank lines are skipped and a leading UTF-8 byte order mark is dropped.
// A document without any record yields an empty table with no columns.
func ParseCSV(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	t := &Table{}
	for _, rec := range records {
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if t.Columns == nil {
			cols := make([]string, len(rec))
			for i, c := range rec {
				cols[i] = strings.TrimSpace(c)
			}
			t.Columns = cols
			continue
		}
		t.AddRow(rec...)
	}
	return t, nil
}
