// Package sheet writes collected data into the spreadsheet valuation
// models and the monitor workbook. Formulas inside the workbooks are left
// for the spreadsheet application to evaluate.
package sheet

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// Sheet names used by the templates.
const (
	SheetDashboard  = "Dashboard"
	SheetData       = "Data"
	SheetAssetModel = "Asset_Model"
	SheetMacro      = "Macro"
)

// Workbook is an open spreadsheet file.
type Workbook struct {
	f    *excelize.File
	path string
}

// Open opens an existing workbook.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return &Workbook{f: f, path: path}, nil
}

// Path returns the file the workbook was opened from.
func (w *Workbook) Path() string { return w.path }

// SetCell writes value into sheet!cell. The sheet must exist.
func (w *Workbook) SetCell(sheet, cell string, value any) error {
	if idx, err := w.f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return fmt.Errorf("%s: no sheet %q", filepath.Base(w.path), sheet)
	}
	if err := w.f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("%s!%s: %w", sheet, cell, err)
	}
	return nil
}

// SetCellAt writes value at a 1-based column and row.
func (w *Workbook) SetCellAt(sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return w.SetCell(sheet, cell, value)
}

// Cell returns the formatted value of sheet!cell.
func (w *Workbook) Cell(sheet, cell string) (string, error) {
	return w.f.GetCellValue(sheet, cell)
}

// Save writes the workbook back to its file.
func (w *Workbook) Save() error {
	if err := w.f.Save(); err != nil {
		return fmt.Errorf("save %s: %w", w.path, err)
	}
	return nil
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// copyFile copies src to dst, failing if dst exists.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
