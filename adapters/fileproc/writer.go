package fileproc

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"spendlens/domain/table"
)

// WriteCSV writes a table to path, creating parent directories
func WriteCSV(path string, t *table.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteXLSX writes sheets to an Excel workbook in the given sheet order
func WriteXLSX(path string, sheets map[string]*table.Table, order []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	for n, name := range order {
		t, ok := sheets[name]
		if !ok {
			continue
		}
		if n == 0 {
			// Rename the default sheet rather than leaving an empty Sheet1
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("failed to name sheet %s: %w", name, err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return fmt.Errorf("failed to add sheet %s: %w", name, err)
			}
		}

		header := make([]interface{}, len(t.Columns))
		for i, c := range t.Columns {
			header[i] = c
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return fmt.Errorf("failed to write header for %s: %w", name, err)
		}
		for i, row := range t.Rows {
			cells := make([]interface{}, len(row))
			for j, v := range row {
				cells[j] = v
			}
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return fmt.Errorf("failed to compute cell name: %w", err)
			}
			if err := f.SetSheetRow(name, cell, &cells); err != nil {
				return fmt.Errorf("failed to write row %d for %s: %w", i+2, name, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}
