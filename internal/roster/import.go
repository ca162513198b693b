package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"rollbook/internal/apperr"
)

// NameColumn is the header that marks the student name column.
const NameColumn = "Name"

// Candidate is a roster row read from a spreadsheet, not yet saved.
type Candidate struct {
	Name string `json:"name"`
}

// ParseFile reads candidates from the spreadsheet at path. Files ending in
// .csv are read as comma-separated text, anything else as an Excel workbook.
func ParseFile(path string) ([]Candidate, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return ParseCSV(f)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, unreadable(err)
	}
	defer f.Close()
	return parse(f)
}

// Parse reads candidates from a spreadsheet stream.
func Parse(r io.Reader) ([]Candidate, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, unreadable(err)
	}
	defer f.Close()
	return parse(f)
}

// ParseCSV reads candidates from comma-separated text with a header row.
func ParseCSV(r io.Reader) ([]Candidate, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, apperr.Invalid("could not read csv: %v", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return candidates(rows)
}

func parse(f *excelize.File) ([]Candidate, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.Invalid("spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return candidates(rows)
}

// candidates maps every non-blank row after the header to a Candidate. Rows
// without a value in the name column give an empty name.
func candidates(rows [][]string) ([]Candidate, error) {
	if len(rows) == 0 {
		return []Candidate{}, nil
	}

	col := nameColumn(rows[0])
	if col < 0 {
		return nil, apperr.Invalid("spreadsheet has no %q column", NameColumn)
	}

	out := make([]Candidate, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		var name string
		if col < len(row) {
			name = strings.TrimSpace(row[col])
		}
		out = append(out, Candidate{Name: name})
	}
	return out, nil
}

func nameColumn(header []string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == NameColumn {
			return i
		}
	}
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), NameColumn) {
			return i
		}
	}
	return -1
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func unreadable(err error) error {
	if errors.Is(err, excelize.ErrWorkbookFileFormat) {
		return apperr.Invalid("file is not a supported spreadsheet")
	}
	return apperr.Invalid("could not read spreadsheet: %v", err)
}
