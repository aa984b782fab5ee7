package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// DefaultSheetHeader matches the default [queue] column names.
var DefaultSheetHeader = []string{"KWs", "SEO Title", "Post ID", "Processed"}

// WriteSheet creates an XLSX workbook at path whose first worksheet is named
// sheet and holds header followed by rows.
func WriteSheet(t testing.TB, path, sheet string, header []string, rows [][]string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "" && sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			t.Fatalf("rename sheet: %v", err)
		}
	}
	if sheet == "" {
		sheet = "Sheet1"
	}
	write := func(rowIdx int, values []string) {
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if value == "" {
				continue
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				t.Fatalf("set %s: %v", cell, err)
			}
		}
	}
	write(1, header)
	for i, row := range rows {
		write(i+2, row)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook %s: %v", path, err)
	}
}

// ReadCell returns the value of cell in sheet of the workbook at path.
func ReadCell(t testing.TB, path, sheet, cell string) string {
	t.Helper()

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook %s: %v", path, err)
	}
	defer f.Close()
	value, err := f.GetCellValue(sheet, cell)
	if err != nil {
		t.Fatalf("read %s: %v", cell, err)
	}
	return value
}
