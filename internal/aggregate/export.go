package aggregate

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/guregu/null/v6"
)

// ExportOptions controls how cells are rendered.
type ExportOptions struct {
	// PreserveNulls writes null cells as empty strings instead of 0.
	PreserveNulls bool
}

// Write renders tbl as CSV: one header line, then one line per row.
func Write(w io.Writer, tbl *Table, opts ExportOptions) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tbl.Layout.Columns); err != nil {
		return err
	}
	for _, row := range tbl.Rows {
		line := make([]string, len(tbl.Layout.Columns))
		for i, col := range tbl.Layout.Columns {
			line[i] = cell(row, col, tbl.Layout.Version, opts)
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export writes tbl to path, replacing any previous export wholesale.
func Export(tbl *Table, path string, opts ExportOptions) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, tbl, opts); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func cell(row Row, col, version string, opts ExportOptions) string {
	intro := row.Record.Intro()
	switch col {
	case ColLayoutVersion:
		return version
	case ColTicker:
		return row.Record.Ticker()
	case ColSource:
		return row.Record.Source()
	case ColShortName:
		return intro.ShortName
	case ColSector:
		return intro.Sector
	case ColIndustry:
		return intro.Industry
	case ColExchange:
		return intro.Exchange
	case ColFinancialCurrency:
		return intro.FinancialCurrency
	case ColPrice:
		return number(intro.Price, opts)
	case ColPriceCurrency:
		return intro.PriceCurrency
	case ColSharesOutstanding:
		return number(intro.SharesOutstanding, opts)
	case ColLastFiscalYearEnd:
		return date(intro.LastFiscalYearEnd)
	case ColMostRecentQuarter:
		return date(intro.MostRecentQuarter)
	}
	v, _ := row.Value(col)
	return number(v, opts)
}

func number(v null.Float, opts ExportOptions) string {
	if !v.Valid {
		if opts.PreserveNulls {
			return ""
		}
		return "0"
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}

func date(t null.Time) string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format("2006-01-02")
}
