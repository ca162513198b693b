package roster

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"rollbook/internal/apperr"
)

// writeSheet saves rows to the first sheet of a fresh workbook.
func writeSheet(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "roster.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	return path
}

func TestParseFile(t *testing.T) {
	path := writeSheet(t, [][]any{
		{"Roll", "Name", "Email"},
		{1, "Ada Lovelace", "ada@example.com"},
		{2, " Alan Turing ", ""},
		{},
		{3},
		{4, "Grace Hopper"},
	})

	got, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	want := []Candidate{{"Ada Lovelace"}, {"Alan Turing"}, {""}, {"Grace Hopper"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseHeaderCaseFallback(t *testing.T) {
	path := writeSheet(t, [][]any{{"NAME"}, {"Linus"}})

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	got, err := Parse(f)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Linus" {
		t.Fatalf("got %+v", got)
	}
}

func TestParseRejects(t *testing.T) {
	noColumn := writeSheet(t, [][]any{{"Student"}, {"Ada"}})

	garbage := filepath.Join(t.TempDir(), "notes.xlsx")
	if err := os.WriteFile(garbage, []byte("not a workbook"), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{noColumn, garbage} {
		_, err := ParseFile(path)
		if !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("ParseFile(%s) error = %v, want invalid input", filepath.Base(path), err)
		}
	}
}

func TestParseHeaderOnly(t *testing.T) {
	path := writeSheet(t, [][]any{{"Name"}})
	got, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %+v, want none", got)
	}
}

func TestParseFileCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.CSV")
	body := "\ufeffRoll,Name,Email\n" +
		"1,Ada Lovelace,ada@example.com\n" +
		"2,\" Alan Turing \",\n" +
		"\n" +
		",,\n" +
		"3\n" +
		"4,\"Hopper, Grace\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	want := []Candidate{{"Ada Lovelace"}, {"Alan Turing"}, {""}, {"Hopper, Grace"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseCSVRejects(t *testing.T) {
	tests := []struct {
		name, body string
	}{
		{"no name column", "Student\nAda\n"},
		{"bad quoting", "Name\n\"Ada\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.body))
			if !errors.Is(err, apperr.ErrInvalidInput) {
				t.Fatalf("error = %v, want invalid input", err)
			}
		})
	}
}
