package sheet

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/seenimoa/smartvalue/internal/macro"
)

// Macro sheet cells holding the risk-free rates.
const (
	macroCellUS = "D6"
	macroCellCN = "F6"
	macroCellHK = "H6"
)

// WriteMacro writes the risk-free rates of snap into the Macro sheet.
func WriteMacro(wb *Workbook, snap macro.Snapshot) error {
	for _, c := range []cellValue{
		{macroCellUS, snap.RiskFreeUS},
		{macroCellCN, snap.RiskFreeCN},
		{macroCellHK, snap.RiskFreeHK},
	} {
		if err := wb.SetCell(SheetMacro, c.cell, c.value); err != nil {
			return err
		}
	}
	return nil
}

// ListModels returns the valuation models in dir, sorted by name. Lock
// files are skipped.
func ListModels(dir string) ([]string, error) {
	out, err := stockFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

func stockFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.Contains(name, "~") || !stockTemplateRe.MatchString(name) {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// ReadSymbol returns the ticker a model was created for.
func ReadSymbol(wb *Workbook) (string, error) {
	s, err := wb.Cell(SheetDashboard, "C3")
	if err != nil {
		return "", err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%s: empty symbol", filepath.Base(wb.Path()))
	}
	return s, nil
}
